package memstore

import (
	"cmp"
	"context"
	"slices"
	"time"

	"github.com/ariefcatur/restaurant-orders/internal/apperr"
	"github.com/ariefcatur/restaurant-orders/internal/orders"
	"github.com/shopspring/decimal"
)

type orderStore struct{ db *DB }

type orderTx struct{ st *state }

func (s orderStore) InTx(ctx context.Context, fn func(orders.Tx) error) error {
	return s.db.inTx(ctx, func(st *state) error { return fn(orderTx{st}) })
}

func (s orderStore) Get(ctx context.Context, id string) (orders.Order, error) {
	var (
		o  orders.Order
		ok bool
	)
	s.db.read(func(st *state) {
		o, ok = st.orders[id]
		if ok {
			o = st.view(o)
		}
	})
	if !ok {
		return orders.Order{}, apperr.NotFound("order %s not found", id)
	}
	return o, nil
}

func (s orderStore) List(ctx context.Context, f orders.Filter) ([]orders.Order, error) {
	out := []orders.Order{}
	s.db.read(func(st *state) {
		for _, o := range st.orders {
			if f.CustomerID != "" && o.CustomerID != f.CustomerID {
				continue
			}
			out = append(out, st.view(o))
		}
	})
	slices.SortFunc(out, func(a, b orders.Order) int { return cmp.Compare(a.Number, b.Number) })
	return out, nil
}

func (s orderStore) SumTotal(ctx context.Context, from, to time.Time) (decimal.Decimal, error) {
	total := decimal.Zero
	s.db.read(func(st *state) {
		for _, o := range st.orders {
			if !o.PlacedAt.Before(from) && o.PlacedAt.Before(to) {
				total = total.Add(o.Total)
			}
		}
	})
	return total, nil
}

// view joins the names a read model carries. Items are copied so callers
// cannot reach stored state.
func (st *state) view(o orders.Order) orders.Order {
	if c, ok := st.customers[o.CustomerID]; ok {
		if u, ok := st.users[c.UserID]; ok {
			o.CustomerName = u.Name
		}
	}
	items := make([]orders.LineItem, len(o.Items))
	for i, li := range o.Items {
		if p, ok := st.products[li.ProductID]; ok {
			li.ProductName = p.Name
			li.Description = p.Description
		}
		items[i] = li
	}
	o.Items = items
	return o
}

func (tx orderTx) ProductSnapshots(ctx context.Context, ids []string) (map[string]orders.ProductSnapshot, error) {
	out := make(map[string]orders.ProductSnapshot, len(ids))
	for _, id := range ids {
		p, ok := tx.st.products[id]
		if !ok {
			continue
		}
		out[id] = orders.ProductSnapshot{
			ID:          p.ID,
			Name:        p.Name,
			Description: p.Description,
			Price:       p.Price,
			PrepMinutes: p.PrepMinutes,
		}
	}
	return out, nil
}

func (tx orderTx) CustomerExists(ctx context.Context, id string) (bool, error) {
	_, ok := tx.st.customers[id]
	return ok, nil
}

func (tx orderTx) EmployeeExists(ctx context.Context, id string) (bool, error) {
	_, ok := tx.st.employees[id]
	return ok, nil
}

func (tx orderTx) InsertOrder(ctx context.Context, o *orders.Order) error {
	if _, ok := tx.st.orders[o.ID]; ok {
		return apperr.Conflict("order %s already exists", o.ID)
	}
	if _, ok := tx.st.customers[o.CustomerID]; !ok {
		return apperr.Validation("customer not found: %s", o.CustomerID)
	}
	tx.st.orderSeq++
	o.Number = tx.st.orderSeq
	stored := *o
	stored.Items = nil
	stored.CustomerName = ""
	tx.st.orders[o.ID] = stored
	return nil
}

func (tx orderTx) InsertLineItem(ctx context.Context, li orders.LineItem) error {
	o, ok := tx.st.orders[li.OrderID]
	if !ok {
		return apperr.Validation("order not found: %s", li.OrderID)
	}
	if _, ok := tx.st.products[li.ProductID]; !ok {
		return apperr.Validation("product not found: %s", li.ProductID)
	}
	li.ProductName = ""
	li.Description = ""
	o.Items = append(o.Items, li)
	tx.st.orders[o.ID] = o
	return nil
}

func (tx orderTx) LockOrder(ctx context.Context, id string) (orders.Order, error) {
	o, ok := tx.st.orders[id]
	if !ok {
		return orders.Order{}, apperr.NotFound("order %s not found", id)
	}
	return tx.st.view(o), nil
}

func (tx orderTx) SetStatus(ctx context.Context, id string, s orders.Status) error {
	o, ok := tx.st.orders[id]
	if !ok {
		return apperr.NotFound("order %s not found", id)
	}
	o.Status = s
	tx.st.orders[id] = o
	return nil
}
