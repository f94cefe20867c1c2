package orders_test

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/ariefcatur/restaurant-orders/internal/accounts"
	"github.com/ariefcatur/restaurant-orders/internal/apperr"
	"github.com/ariefcatur/restaurant-orders/internal/auth"
	"github.com/ariefcatur/restaurant-orders/internal/catalog"
	"github.com/ariefcatur/restaurant-orders/internal/memstore"
	"github.com/ariefcatur/restaurant-orders/internal/orders"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type fixture struct {
	accounts *accounts.Service
	catalog  *catalog.Service
	orders   *orders.Service
	admin    auth.Principal
	employee auth.Principal
	category catalog.Category
	now      time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	log := slog.New(slog.DiscardHandler)
	db := memstore.New()

	f := &fixture{
		accounts: accounts.NewService(log, db.Accounts(), accounts.BcryptHasher{Cost: bcrypt.MinCost}),
		catalog:  catalog.NewService(log, db.Catalog()),
		now:      time.Date(2024, 5, 15, 12, 0, 0, 0, time.UTC),
	}
	f.orders = orders.NewService(log, db.Orders(), time.UTC).WithClock(func() time.Time { return f.now })

	require.NoError(t, f.accounts.EnsureAdmin(ctx, "Owner", "owner@example.com", "secret123"))
	admin, err := f.accounts.Authenticate(ctx, "owner@example.com", "secret123")
	require.NoError(t, err)
	f.admin = admin

	_, err = f.accounts.CreateEmployee(ctx, f.admin, accounts.EmployeeInput{
		Name: "Waiter", Email: "waiter@example.com", Password: "secret123", Position: "waiter",
	})
	require.NoError(t, err)
	f.employee, err = f.accounts.Authenticate(ctx, "waiter@example.com", "secret123")
	require.NoError(t, err)

	f.category, err = f.catalog.CreateCategory(ctx, f.admin, "Mains")
	require.NoError(t, err)
	return f
}

func (f *fixture) customer(t *testing.T, email string) auth.Principal {
	t.Helper()
	ctx := context.Background()
	_, err := f.accounts.RegisterCustomer(ctx, accounts.RegisterCustomerInput{
		Name: "Customer " + email, Email: email, Password: "secret123", Phone: "555-0100", Address: "Main St 1",
	})
	require.NoError(t, err)
	p, err := f.accounts.Authenticate(ctx, email, "secret123")
	require.NoError(t, err)
	require.NotEmpty(t, p.CustomerID)
	return p
}

func (f *fixture) product(t *testing.T, name, price string, prep int) catalog.Product {
	t.Helper()
	p, err := f.catalog.CreateProduct(context.Background(), f.admin, catalog.ProductInput{
		Name: name, Price: decimal.RequireFromString(price), CategoryID: f.category.ID, PrepMinutes: prep, Stock: 10,
	})
	require.NoError(t, err)
	return p
}

func TestCreateOrderPricesFromCatalog(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cust := f.customer(t, "ana@example.com")
	a := f.product(t, "Burger", "10.00", 12)
	b := f.product(t, "Soda", "5.00", 1)

	o, err := f.orders.Create(ctx, cust, orders.CreateInput{Items: []orders.ItemRequest{
		{ProductID: a.ID, Quantity: 2},
		{ProductID: b.ID, Quantity: 1},
	}})
	require.NoError(t, err)
	assert.Equal(t, "25.00", o.Total.StringFixed(2))
	assert.Equal(t, 13, o.PrepMinutes)
	assert.Equal(t, orders.StatusPending, o.Status)
	assert.Equal(t, cust.CustomerID, o.CustomerID)
	assert.EqualValues(t, 1, o.Number)

	got, err := f.orders.Get(ctx, cust, o.ID)
	require.NoError(t, err)
	assert.True(t, got.Total.Equal(o.Total))
	require.Len(t, got.Items, 2)
	assert.Equal(t, "Burger", got.Items[0].ProductName)
	assert.Equal(t, "Customer ana@example.com", got.CustomerName)
}

func TestCustomerCannotOrderForSomeoneElse(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ana := f.customer(t, "ana@example.com")
	bob := f.customer(t, "bob@example.com")
	p := f.product(t, "Burger", "10.00", 12)

	o, err := f.orders.Create(ctx, ana, orders.CreateInput{
		CustomerID: bob.CustomerID,
		Items:      []orders.ItemRequest{{ProductID: p.ID, Quantity: 1}},
	})
	require.NoError(t, err)
	assert.Equal(t, ana.CustomerID, o.CustomerID)
}

func TestEmployeeCreatesOrderForCustomer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ana := f.customer(t, "ana@example.com")
	p := f.product(t, "Burger", "10.00", 12)

	o, err := f.orders.Create(ctx, f.employee, orders.CreateInput{
		CustomerID: ana.CustomerID,
		Items:      []orders.ItemRequest{{ProductID: p.ID, Quantity: 3}},
	})
	require.NoError(t, err)
	assert.Equal(t, f.employee.EmployeeID, o.EmployeeID)
	assert.Equal(t, "30.00", o.Total.StringFixed(2))

	_, err = f.orders.Create(ctx, f.employee, orders.CreateInput{
		Items: []orders.ItemRequest{{ProductID: p.ID, Quantity: 1}},
	})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = f.orders.Create(ctx, f.employee, orders.CreateInput{
		CustomerID: "missing",
		Items:      []orders.ItemRequest{{ProductID: p.ID, Quantity: 1}},
	})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestCreateOrderValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cust := f.customer(t, "ana@example.com")
	p := f.product(t, "Burger", "10.00", 12)

	_, err := f.orders.Create(ctx, cust, orders.CreateInput{})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = f.orders.Create(ctx, cust, orders.CreateInput{Items: []orders.ItemRequest{
		{ProductID: p.ID, Quantity: 1},
		{ProductID: "ghost", Quantity: 1},
	}})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	list, err := f.orders.ListAll(ctx, f.admin)
	require.NoError(t, err)
	assert.Empty(t, list, "rejected orders leave nothing behind")
}

func TestCapturedPriceSurvivesCatalogChange(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cust := f.customer(t, "ana@example.com")
	p := f.product(t, "Burger", "10.00", 12)

	o, err := f.orders.Create(ctx, cust, orders.CreateInput{Items: []orders.ItemRequest{{ProductID: p.ID, Quantity: 2}}})
	require.NoError(t, err)

	newPrice := decimal.RequireFromString("99.00")
	_, err = f.catalog.UpdateProduct(ctx, f.admin, p.ID, catalog.ProductPatch{Price: &newPrice})
	require.NoError(t, err)

	got, err := f.orders.Get(ctx, f.admin, o.ID)
	require.NoError(t, err)
	assert.Equal(t, "20.00", got.Total.StringFixed(2))
	assert.Equal(t, "10.00", got.Items[0].UnitPrice.StringFixed(2))
}

func TestTerminalStatesAbsorb(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cust := f.customer(t, "ana@example.com")
	p := f.product(t, "Burger", "10.00", 12)
	place := func() orders.Order {
		o, err := f.orders.Create(ctx, cust, orders.CreateInput{Items: []orders.ItemRequest{{ProductID: p.ID, Quantity: 1}}})
		require.NoError(t, err)
		return o
	}

	finalized := place()
	o, err := f.orders.Finalize(ctx, f.employee, finalized.ID)
	require.NoError(t, err)
	assert.Equal(t, orders.StatusFinalized, o.Status)
	require.Len(t, o.Items, 1)

	_, err = f.orders.Finalize(ctx, f.employee, finalized.ID)
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)
	_, err = f.orders.Cancel(ctx, f.admin, finalized.ID)
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)

	canceled := place()
	o, err = f.orders.Cancel(ctx, f.employee, canceled.ID)
	require.NoError(t, err)
	assert.Equal(t, orders.StatusCanceled, o.Status)
	assert.True(t, o.Total.Equal(canceled.Total), "cancel keeps totals")

	_, err = f.orders.Finalize(ctx, f.employee, canceled.ID)
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)
	_, err = f.orders.Cancel(ctx, f.employee, canceled.ID)
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)

	got, err := f.orders.Get(ctx, f.admin, canceled.ID)
	require.NoError(t, err)
	assert.Equal(t, orders.StatusCanceled, got.Status)

	_, err = f.orders.Finalize(ctx, f.employee, "missing")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestTransitionPermissions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ana := f.customer(t, "ana@example.com")
	bob := f.customer(t, "bob@example.com")
	p := f.product(t, "Burger", "10.00", 12)

	o, err := f.orders.Create(ctx, ana, orders.CreateInput{Items: []orders.ItemRequest{{ProductID: p.ID, Quantity: 1}}})
	require.NoError(t, err)

	_, err = f.orders.Finalize(ctx, ana, o.ID)
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)

	_, err = f.orders.Cancel(ctx, bob, o.ID)
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)

	// owning the order does not make a customer staff
	_, err = f.orders.Cancel(ctx, ana, o.ID)
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)

	got, err := f.orders.Get(ctx, ana, o.ID)
	require.NoError(t, err)
	assert.Equal(t, orders.StatusPending, got.Status)

	got, err = f.orders.Cancel(ctx, f.employee, o.ID)
	require.NoError(t, err)
	assert.Equal(t, orders.StatusCanceled, got.Status)
}

func TestConcurrentFinalizeHasOneWinner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cust := f.customer(t, "ana@example.com")
	p := f.product(t, "Burger", "10.00", 12)
	o, err := f.orders.Create(ctx, cust, orders.CreateInput{Items: []orders.ItemRequest{{ProductID: p.ID, Quantity: 1}}})
	require.NoError(t, err)

	const workers = 8
	var (
		wg   sync.WaitGroup
		errs = make([]error, workers)
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.orders.Finalize(ctx, f.employee, o.ID)
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		assert.ErrorIs(t, err, apperr.ErrInvalidTransition)
	}
	assert.Equal(t, 1, wins)
}

func TestListForPrincipal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ana := f.customer(t, "ana@example.com")
	bob := f.customer(t, "bob@example.com")
	p := f.product(t, "Burger", "10.00", 12)

	for _, c := range []auth.Principal{ana, ana, bob} {
		_, err := f.orders.Create(ctx, c, orders.CreateInput{Items: []orders.ItemRequest{{ProductID: p.ID, Quantity: 1}}})
		require.NoError(t, err)
	}

	mine, err := f.orders.ListForPrincipal(ctx, ana)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	for _, o := range mine {
		assert.Equal(t, ana.CustomerID, o.CustomerID)
	}

	all, err := f.orders.ListForPrincipal(ctx, f.employee)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	_, err = f.orders.ListAll(ctx, ana)
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)

	_, err = f.orders.Get(ctx, ana, all[2].ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound, "bob's order is invisible to ana")
}

func TestMonthlyTotal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cust := f.customer(t, "ana@example.com")
	p := f.product(t, "Burger", "10.00", 12)
	place := func(at time.Time, qty int) {
		f.now = at
		_, err := f.orders.Create(ctx, cust, orders.CreateInput{Items: []orders.ItemRequest{{ProductID: p.ID, Quantity: qty}}})
		require.NoError(t, err)
	}

	place(time.Date(2024, 4, 30, 23, 59, 59, 0, time.UTC), 7)
	place(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), 1)
	place(time.Date(2024, 5, 31, 23, 59, 59, 0, time.UTC), 2)
	place(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), 5)

	f.now = time.Date(2024, 5, 20, 9, 0, 0, 0, time.UTC)
	mt, err := f.orders.MonthlyTotal(ctx, f.employee)
	require.NoError(t, err)
	assert.Equal(t, "30.00", mt.Total.StringFixed(2))
	assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), mt.From)

	_, err = f.orders.MonthlyTotal(ctx, cust)
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
}
