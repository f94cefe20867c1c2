package accounts

import (
	"context"

	"github.com/ariefcatur/restaurant-orders/internal/auth"
)

type Store interface {
	InTx(ctx context.Context, fn func(Tx) error) error
	// UserByEmail and GetUser return NOT_FOUND for unknown users.
	UserByEmail(ctx context.Context, email string) (User, error)
	GetUser(ctx context.Context, id string) (User, error)
	// Principal resolves the role and linked record ids of a user.
	Principal(ctx context.Context, userID string) (auth.Principal, error)
	ListUsers(ctx context.Context) ([]User, error)
	ListCustomers(ctx context.Context) ([]Customer, error)
	ListEmployees(ctx context.Context) ([]Employee, error)
}

type Tx interface {
	EmailTaken(ctx context.Context, email, exceptUserID string) (bool, error)
	InsertUser(ctx context.Context, u User) error
	InsertCustomer(ctx context.Context, c Customer) error
	InsertEmployee(ctx context.Context, e Employee) error

	LockUser(ctx context.Context, id string) (User, error)
	UpdateUser(ctx context.Context, u User) error

	LockEmployee(ctx context.Context, id string) (Employee, error)
	UpdateEmployee(ctx context.Context, e Employee) error
	// DeleteEmployee removes the employee and its user. Orders keep no
	// reference to a deleted employee.
	DeleteEmployee(ctx context.Context, id string) error

	LockCustomer(ctx context.Context, id string) (Customer, error)
	CustomerHasOrders(ctx context.Context, id string) (bool, error)
	// DeleteCustomer removes the customer and its user.
	DeleteCustomer(ctx context.Context, id string) error
}
