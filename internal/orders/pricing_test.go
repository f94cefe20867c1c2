package orders

import (
	"testing"
	"time"

	"github.com/ariefcatur/restaurant-orders/internal/apperr"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func snapshots() map[string]ProductSnapshot {
	return map[string]ProductSnapshot{
		"A": {ID: "A", Name: "Burger", Price: decimal.RequireFromString("10.00"), PrepMinutes: 12},
		"B": {ID: "B", Name: "Soda", Price: decimal.RequireFromString("5.00"), PrepMinutes: 1},
	}
}

func TestNewOrderTotals(t *testing.T) {
	placed := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	o, err := NewOrder("c-1", "", placed, []ItemRequest{
		{ProductID: "A", Quantity: 2},
		{ProductID: "B", Quantity: 1},
	}, snapshots())
	require.NoError(t, err)

	assert.Equal(t, "25.00", o.Total.StringFixed(2))
	assert.Equal(t, 13, o.PrepMinutes, "prep time is per line, not per unit")
	assert.Equal(t, StatusPending, o.Status)
	assert.Equal(t, placed, o.PlacedAt)
	require.Len(t, o.Items, 2)
	for _, li := range o.Items {
		assert.Equal(t, o.ID, li.OrderID)
	}
	assert.True(t, o.Items[0].UnitPrice.Equal(decimal.RequireFromString("10.00")))
}

func TestNewOrderTotalIsSumOfSubtotals(t *testing.T) {
	products := map[string]ProductSnapshot{
		"X": {ID: "X", Price: decimal.RequireFromString("0.10")},
		"Y": {ID: "Y", Price: decimal.RequireFromString("0.20")},
	}
	o, err := NewOrder("c-1", "", time.Now(), []ItemRequest{
		{ProductID: "X", Quantity: 3},
		{ProductID: "Y", Quantity: 7},
	}, products)
	require.NoError(t, err)

	sum := decimal.Zero
	for _, li := range o.Items {
		sum = sum.Add(li.Subtotal())
	}
	assert.True(t, o.Total.Equal(sum))
	assert.Equal(t, "1.70", o.Total.StringFixed(2))
}

func TestNewOrderRejects(t *testing.T) {
	tests := []struct {
		name     string
		customer string
		items    []ItemRequest
	}{
		{"empty items", "c-1", nil},
		{"zero quantity", "c-1", []ItemRequest{{ProductID: "A", Quantity: 0}}},
		{"negative quantity", "c-1", []ItemRequest{{ProductID: "A", Quantity: -1}}},
		{"unknown product", "c-1", []ItemRequest{{ProductID: "A", Quantity: 1}, {ProductID: "Z", Quantity: 1}}},
		{"no customer", "", []ItemRequest{{ProductID: "A", Quantity: 1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewOrder(tt.customer, "", time.Now(), tt.items, snapshots())
			require.Error(t, err)
			assert.ErrorIs(t, err, apperr.ErrValidation)
		})
	}
}

func TestProductIDsDedup(t *testing.T) {
	ids := productIDs([]ItemRequest{{ProductID: "A"}, {ProductID: "B"}, {ProductID: "A"}})
	assert.Equal(t, []string{"A", "B"}, ids)
}

func TestStatusTransitions(t *testing.T) {
	assert.True(t, CanTransition(StatusPending, StatusFinalized))
	assert.True(t, CanTransition(StatusPending, StatusCanceled))
	for _, from := range []Status{StatusFinalized, StatusCanceled} {
		assert.True(t, from.Terminal())
		for _, to := range []Status{StatusPending, StatusFinalized, StatusCanceled} {
			assert.False(t, CanTransition(from, to), "%s -> %s", from, to)
		}
	}
	assert.False(t, StatusPending.Terminal())
	assert.False(t, Status("UNKNOWN").Valid())

	err := checkTransition("o-1", StatusCanceled, StatusCanceled)
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)
	assert.Contains(t, err.Error(), "already CANCELED")
}

func TestMonthWindow(t *testing.T) {
	loc := time.FixedZone("BRT", -3*60*60)
	// 01:30 UTC on March 1st is still February 28th in BRT.
	from, to := MonthWindow(time.Date(2023, 3, 1, 1, 30, 0, 0, time.UTC), loc)
	assert.Equal(t, time.Date(2023, 2, 1, 0, 0, 0, 0, loc), from)
	assert.Equal(t, time.Date(2023, 3, 1, 0, 0, 0, 0, loc), to)

	from, to = MonthWindow(time.Date(2024, 12, 31, 23, 59, 0, 0, time.UTC), time.UTC)
	assert.Equal(t, time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC), from)
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), to)
}
