package catalog

import "context"

type Store interface {
	InTx(ctx context.Context, fn func(Tx) error) error
	ListCategories(ctx context.Context) ([]Category, error)
	ListProducts(ctx context.Context) ([]Product, error)
	// GetProduct returns a NOT_FOUND error for an unknown id.
	GetProduct(ctx context.Context, id string) (Product, error)
}

// Tx is one catalog transaction. Implementations report unique-name
// violations as CONFLICT even when the Taken checks raced.
type Tx interface {
	CategoryNameTaken(ctx context.Context, name string) (bool, error)
	CategoryExists(ctx context.Context, id string) (bool, error)
	InsertCategory(ctx context.Context, c Category) error

	// ProductNameTaken ignores the product with id exceptID.
	ProductNameTaken(ctx context.Context, name, exceptID string) (bool, error)
	InsertProduct(ctx context.Context, p Product) error
	InsertStock(ctx context.Context, productID string, qty int) error
	// LockProduct loads the product and holds it until the transaction ends.
	LockProduct(ctx context.Context, id string) (Product, error)
	UpdateProduct(ctx context.Context, p Product) error
	SetStock(ctx context.Context, productID string, qty int) error
}
