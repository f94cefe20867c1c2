package accounts

import (
	"time"

	"github.com/ariefcatur/restaurant-orders/internal/auth"
	"github.com/shopspring/decimal"
)

type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         auth.Role `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type Customer struct {
	ID      string `json:"id"`
	UserID  string `json:"user_id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

type Employee struct {
	ID         string           `json:"id"`
	UserID     string           `json:"user_id"`
	Name       string           `json:"name"`
	Email      string           `json:"email"`
	Position   string           `json:"position"`
	Commission *decimal.Decimal `json:"commission,omitempty"`
}

// Profile is a user together with its linked customer or employee id.
type Profile struct {
	User
	CustomerID string `json:"customer_id,omitempty"`
	EmployeeID string `json:"employee_id,omitempty"`
}

type RegisterCustomerInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
}

type EmployeeInput struct {
	Name       string           `json:"name"`
	Email      string           `json:"email"`
	Password   string           `json:"password"`
	Position   string           `json:"position"`
	Commission *decimal.Decimal `json:"commission"`
}

type UserPatch struct {
	Name     *string `json:"name"`
	Email    *string `json:"email"`
	Password *string `json:"password"`
}

type EmployeePatch struct {
	Position   *string          `json:"position"`
	Commission *decimal.Decimal `json:"commission"`
}
