// Package memstore is a transactional in-memory backend. A transaction holds
// the store lock for its whole duration and restores a snapshot on error, so
// it behaves like a serializable database for one process.
package memstore

import (
	"context"
	"maps"
	"sync"

	"github.com/ariefcatur/restaurant-orders/internal/accounts"
	"github.com/ariefcatur/restaurant-orders/internal/catalog"
	"github.com/ariefcatur/restaurant-orders/internal/orders"
)

type DB struct {
	mu sync.RWMutex
	st *state
}

type state struct {
	users      map[string]accounts.User
	customers  map[string]accounts.Customer
	employees  map[string]accounts.Employee
	categories map[string]catalog.Category
	products   map[string]catalog.Product
	stock      map[string]int
	orders     map[string]orders.Order
	orderSeq   int64
}

func New() *DB {
	return &DB{st: &state{
		users:      map[string]accounts.User{},
		customers:  map[string]accounts.Customer{},
		employees:  map[string]accounts.Employee{},
		categories: map[string]catalog.Category{},
		products:   map[string]catalog.Product{},
		stock:      map[string]int{},
		orders:     map[string]orders.Order{},
	}}
}

func (db *DB) Accounts() accounts.Store { return accountStore{db} }
func (db *DB) Catalog() catalog.Store   { return catalogStore{db} }
func (db *DB) Orders() orders.Store     { return orderStore{db} }

func (s *state) clone() *state {
	c := &state{
		users:      maps.Clone(s.users),
		customers:  maps.Clone(s.customers),
		employees:  maps.Clone(s.employees),
		categories: maps.Clone(s.categories),
		products:   maps.Clone(s.products),
		stock:      maps.Clone(s.stock),
		orders:     make(map[string]orders.Order, len(s.orders)),
		orderSeq:   s.orderSeq,
	}
	for id, o := range s.orders {
		o.Items = append([]orders.LineItem(nil), o.Items...)
		c.orders[id] = o
	}
	return c
}

// inTx runs fn with exclusive access and rolls back on error or panic.
func (db *DB) inTx(ctx context.Context, fn func(st *state) error) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	db.mu.Lock()
	defer db.mu.Unlock()

	snap := db.st.clone()
	defer func() {
		if r := recover(); r != nil {
			db.st = snap
			panic(r)
		}
		if err != nil {
			db.st = snap
		}
	}()
	return fn(db.st)
}

func (db *DB) read(fn func(st *state)) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	fn(db.st)
}
