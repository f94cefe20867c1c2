package orders

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Store is the persistence boundary for orders. Writes go through InTx so
// an order and its line items land together or not at all.
type Store interface {
	InTx(ctx context.Context, fn func(Tx) error) error
	// Get returns a NOT_FOUND error for an unknown id.
	Get(ctx context.Context, id string) (Order, error)
	List(ctx context.Context, f Filter) ([]Order, error)
	// SumTotal sums order totals placed in [from, to).
	SumTotal(ctx context.Context, from, to time.Time) (decimal.Decimal, error)
}

type Tx interface {
	// ProductSnapshots returns the products that exist among ids, keyed by id.
	ProductSnapshots(ctx context.Context, ids []string) (map[string]ProductSnapshot, error)
	CustomerExists(ctx context.Context, id string) (bool, error)
	EmployeeExists(ctx context.Context, id string) (bool, error)
	// InsertOrder stores the header and assigns o.Number.
	InsertOrder(ctx context.Context, o *Order) error
	InsertLineItem(ctx context.Context, li LineItem) error
	// LockOrder loads the order with its items and holds it until the
	// transaction ends.
	LockOrder(ctx context.Context, id string) (Order, error)
	SetStatus(ctx context.Context, id string, s Status) error
}
