package orders

import (
	"time"

	"github.com/shopspring/decimal"
)

type Order struct {
	ID           string          `json:"id"`
	Number       int64           `json:"number"`
	CustomerID   string          `json:"customer_id"`
	CustomerName string          `json:"customer_name,omitempty"`
	EmployeeID   string          `json:"employee_id,omitempty"`
	PlacedAt     time.Time       `json:"placed_at"`
	Status       Status          `json:"status"`
	Total        decimal.Decimal `json:"total"`
	PrepMinutes  int             `json:"prep_minutes"`
	Items        []LineItem      `json:"items"`
}

// LineItem keeps the unit price captured when the order was placed.
type LineItem struct {
	ID          string          `json:"id"`
	OrderID     string          `json:"order_id"`
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name,omitempty"`
	Description string          `json:"description,omitempty"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

func (li LineItem) Subtotal() decimal.Decimal {
	return li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

type ItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// ProductSnapshot is the catalog state an order is priced against.
type ProductSnapshot struct {
	ID          string
	Name        string
	Description string
	Price       decimal.Decimal
	PrepMinutes int
}

type CreateInput struct {
	// CustomerID is ignored for customer principals; their own id is used.
	CustomerID string        `json:"customer_id"`
	EmployeeID string        `json:"employee_id"`
	Items      []ItemRequest `json:"items"`
}

// Filter narrows Store.List. Zero value lists everything.
type Filter struct {
	CustomerID string
}
