package orders

import (
	"time"

	"github.com/ariefcatur/restaurant-orders/internal/apperr"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// NewOrder builds a PENDING order priced from products. Every requested
// product must resolve; nothing is silently dropped.
func NewOrder(customerID, employeeID string, placedAt time.Time, items []ItemRequest, products map[string]ProductSnapshot) (Order, error) {
	if customerID == "" {
		return Order{}, apperr.Validation("customer is required")
	}
	if len(items) == 0 {
		return Order{}, apperr.Validation("order must contain at least one item")
	}

	o := Order{
		ID:         uuid.NewString(),
		CustomerID: customerID,
		EmployeeID: employeeID,
		PlacedAt:   placedAt,
		Status:     StatusPending,
		Total:      decimal.Zero,
		Items:      make([]LineItem, 0, len(items)),
	}
	for _, it := range items {
		if it.Quantity <= 0 {
			return Order{}, apperr.Validation("invalid quantity %d for product %s", it.Quantity, it.ProductID)
		}
		p, ok := products[it.ProductID]
		if !ok {
			return Order{}, apperr.Validation("product not found: %s", it.ProductID)
		}
		li := LineItem{
			ID:          uuid.NewString(),
			OrderID:     o.ID,
			ProductID:   p.ID,
			ProductName: p.Name,
			Description: p.Description,
			Quantity:    it.Quantity,
			UnitPrice:   p.Price,
		}
		o.Items = append(o.Items, li)
		o.Total = o.Total.Add(li.Subtotal())
		// prep time counts once per line, whatever the quantity
		o.PrepMinutes += p.PrepMinutes
	}
	return o, nil
}

func productIDs(items []ItemRequest) []string {
	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))
	for _, it := range items {
		if !seen[it.ProductID] {
			seen[it.ProductID] = true
			out = append(out, it.ProductID)
		}
	}
	return out
}
