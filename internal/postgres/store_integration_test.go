//go:build integration

package postgres

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/ariefcatur/restaurant-orders/internal/accounts"
	"github.com/ariefcatur/restaurant-orders/internal/apperr"
	"github.com/ariefcatur/restaurant-orders/internal/auth"
	"github.com/ariefcatur/restaurant-orders/internal/catalog"
	"github.com/ariefcatur/restaurant-orders/internal/orders"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"golang.org/x/crypto/bcrypt"
)

func setupTestDB(t *testing.T) (*pgxpool.Pool, func()) {
	ctx := context.Background()

	pgContainer, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("restaurant"),
		tcpostgres.WithUsername("testuser"),
		tcpostgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	require.NoError(t, Migrate(dsn))
	require.NoError(t, Migrate(dsn), "second run is a no-op")

	pool, err := Connect(ctx, dsn)
	require.NoError(t, err)

	cleanup := func() {
		pool.Close()
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	}
	return pool, cleanup
}

type services struct {
	accounts *accounts.Service
	catalog  *catalog.Service
	orders   *orders.Service
	admin    auth.Principal
	category catalog.Category
}

func newServices(t *testing.T, pool *pgxpool.Pool) services {
	t.Helper()
	ctx := context.Background()
	log := slog.New(slog.DiscardHandler)
	s := services{
		accounts: accounts.NewService(log, NewAccountStore(pool), accounts.BcryptHasher{Cost: bcrypt.MinCost}),
		catalog:  catalog.NewService(log, NewCatalogStore(pool)),
		orders:   orders.NewService(log, NewOrderStore(pool), time.UTC),
	}
	require.NoError(t, s.accounts.EnsureAdmin(ctx, "Owner", "owner@example.com", "secret123"))
	var err error
	s.admin, err = s.accounts.Authenticate(ctx, "owner@example.com", "secret123")
	require.NoError(t, err)
	s.category, err = s.catalog.CreateCategory(ctx, s.admin, "Mains")
	require.NoError(t, err)
	return s
}

func (s services) customer(t *testing.T, email string) auth.Principal {
	t.Helper()
	ctx := context.Background()
	_, err := s.accounts.RegisterCustomer(ctx, accounts.RegisterCustomerInput{
		Name: "Ana", Email: email, Password: "secret123", Phone: "555", Address: "Main St",
	})
	require.NoError(t, err)
	p, err := s.accounts.Authenticate(ctx, email, "secret123")
	require.NoError(t, err)
	return p
}

func (s services) product(t *testing.T, name, price string, prep int) catalog.Product {
	t.Helper()
	p, err := s.catalog.CreateProduct(context.Background(), s.admin, catalog.ProductInput{
		Name: name, Price: decimal.RequireFromString(price), CategoryID: s.category.ID, PrepMinutes: prep, Stock: 5,
	})
	require.NoError(t, err)
	return p
}

type failingStockStore struct{ catalog.Store }

type failingStockTx struct{ catalog.Tx }

func (s failingStockStore) InTx(ctx context.Context, fn func(catalog.Tx) error) error {
	return s.Store.InTx(ctx, func(tx catalog.Tx) error { return fn(failingStockTx{tx}) })
}

func (failingStockTx) InsertStock(context.Context, string, int) error {
	return errors.New("stock table unavailable")
}

func TestCatalogConsistency(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()
	s := newServices(t, pool)

	_, err := s.catalog.CreateCategory(ctx, s.admin, "Mains")
	assert.ErrorIs(t, err, apperr.ErrConflict)

	p := s.product(t, "Burger", "10.00", 12)
	_, err = s.catalog.CreateProduct(ctx, s.admin, catalog.ProductInput{
		Name: "Burger", Price: decimal.RequireFromString("1.00"), CategoryID: s.category.ID,
	})
	assert.ErrorIs(t, err, apperr.ErrConflict)

	broken := catalog.NewService(slog.New(slog.DiscardHandler), failingStockStore{NewCatalogStore(pool)})
	_, err = broken.CreateProduct(ctx, s.admin, catalog.ProductInput{
		Name: "Fries", Price: decimal.RequireFromString("4.00"), CategoryID: s.category.ID,
	})
	require.Error(t, err)

	list, err := s.catalog.ListProducts(ctx, s.admin)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, p.ID, list[0].ID)
	assert.Equal(t, 5, list[0].Stock)

	var orphans int
	require.NoError(t, pool.QueryRow(ctx, `SELECT count(*) FROM stock s LEFT JOIN products p ON p.id = s.product_id WHERE p.id IS NULL`).Scan(&orphans))
	assert.Zero(t, orphans)

	_, err = s.catalog.GetProduct(ctx, s.admin, "not-a-uuid")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	cats, err := s.catalog.ListCategories(ctx, s.admin)
	require.NoError(t, err)
	require.Len(t, cats, 1)
	assert.Len(t, cats[0].Products, 1)
}

func TestOrderLifecycle(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()
	s := newServices(t, pool)

	cust := s.customer(t, "ana@example.com")
	a := s.product(t, "Burger", "10.00", 12)
	b := s.product(t, "Soda", "5.00", 1)

	o, err := s.orders.Create(ctx, cust, orders.CreateInput{Items: []orders.ItemRequest{
		{ProductID: a.ID, Quantity: 2},
		{ProductID: b.ID, Quantity: 1},
	}})
	require.NoError(t, err)
	assert.Equal(t, "25.00", o.Total.StringFixed(2))
	assert.Equal(t, 13, o.PrepMinutes)
	assert.Positive(t, o.Number)

	got, err := s.orders.Get(ctx, cust, o.ID)
	require.NoError(t, err)
	assert.True(t, got.Total.Equal(o.Total))
	require.Len(t, got.Items, 2)
	assert.Equal(t, "Burger", got.Items[0].ProductName)
	assert.Equal(t, "Ana", got.CustomerName)

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = s.orders.Finalize(ctx, s.admin, o.ID)
		}(i)
	}
	wg.Wait()
	wins := 0
	for _, err := range results {
		if err == nil {
			wins++
		} else {
			assert.ErrorIs(t, err, apperr.ErrInvalidTransition)
		}
	}
	assert.Equal(t, 1, wins)

	_, err = s.orders.Cancel(ctx, s.admin, o.ID)
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)

	mt, err := s.orders.MonthlyTotal(ctx, s.admin)
	require.NoError(t, err)
	assert.Equal(t, "25.00", mt.Total.StringFixed(2))

	mine, err := s.orders.ListForPrincipal(ctx, cust)
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	err = s.accounts.DeleteCustomer(ctx, cust, cust.CustomerID)
	assert.ErrorIs(t, err, apperr.ErrConflict)
}

func TestAccountsStore(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()
	s := newServices(t, pool)

	commission := decimal.RequireFromString("0.10")
	e, err := s.accounts.CreateEmployee(ctx, s.admin, accounts.EmployeeInput{
		Name: "Cook", Email: "cook@example.com", Password: "secret123", Position: "cook", Commission: &commission,
	})
	require.NoError(t, err)

	emps, err := s.accounts.ListEmployees(ctx, s.admin)
	require.NoError(t, err)
	require.Len(t, emps, 1)
	require.NotNil(t, emps[0].Commission)
	assert.True(t, emps[0].Commission.Equal(commission))

	emp, err := s.accounts.Authenticate(ctx, "cook@example.com", "secret123")
	require.NoError(t, err)
	assert.Equal(t, e.ID, emp.EmployeeID)

	_, err = s.accounts.RegisterCustomer(ctx, accounts.RegisterCustomerInput{
		Name: "Dup", Email: "cook@example.com", Password: "secret123", Phone: "1", Address: "x",
	})
	assert.ErrorIs(t, err, apperr.ErrConflict)

	require.NoError(t, s.accounts.DeleteEmployee(ctx, s.admin, e.ID))
	_, err = s.accounts.Authenticate(ctx, "cook@example.com", "secret123")
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)

	cust := s.customer(t, "ana@example.com")
	require.NoError(t, s.accounts.DeleteCustomer(ctx, cust, cust.CustomerID))
}
