package auth

import "context"

type Role string

const (
	RoleCustomer Role = "CUSTOMER"
	RoleEmployee Role = "EMPLOYEE"
	RoleAdmin    Role = "ADMIN"
)

func (r Role) Valid() bool {
	switch r {
	case RoleCustomer, RoleEmployee, RoleAdmin:
		return true
	}
	return false
}

// Principal is the authenticated caller of one request. CustomerID and
// EmployeeID are empty when the user has no such record.
type Principal struct {
	UserID     string `json:"user_id"`
	Role       Role   `json:"role"`
	CustomerID string `json:"customer_id,omitempty"`
	EmployeeID string `json:"employee_id,omitempty"`
}

func (p Principal) IsCustomer() bool { return p.Role == RoleCustomer }

// IsStaff reports employees and admins.
func (p Principal) IsStaff() bool { return p.Role == RoleEmployee || p.Role == RoleAdmin }

type ctxKey struct{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(ctxKey{}).(Principal)
	return p, ok
}
