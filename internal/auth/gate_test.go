package auth

import (
	"context"
	"testing"

	"github.com/ariefcatur/restaurant-orders/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	admin    = Principal{UserID: "u-admin", Role: RoleAdmin}
	employee = Principal{UserID: "u-emp", Role: RoleEmployee, EmployeeID: "e-1"}
	customer = Principal{UserID: "u-cust", Role: RoleCustomer, CustomerID: "c-1"}
)

func TestCanPerform(t *testing.T) {
	own := &Resource{OwnerUserID: "u-cust", CustomerID: "c-1"}
	foreign := &Resource{OwnerUserID: "u-other", CustomerID: "c-2"}
	empSelf := &Resource{OwnerUserID: "u-emp"}

	tests := []struct {
		name string
		p    Principal
		op   Operation
		res  *Resource
		want bool
	}{
		{"admin catalog", admin, OpCatalogWrite, nil, true},
		{"admin write other", admin, OpAccountWriteOther, foreign, true},
		{"admin transition", admin, OpOrderTransition, nil, true},

		{"employee catalog", employee, OpCatalogWrite, nil, true},
		{"employee read all", employee, OpOrderReadAll, nil, true},
		{"employee transition", employee, OpOrderTransition, nil, true},
		{"employee create order for anyone", employee, OpOrderCreate, foreign, true},
		{"employee write self", employee, OpAccountWriteSelf, empSelf, true},
		{"employee write other", employee, OpAccountWriteOther, foreign, false},
		{"employee write self on foreign", employee, OpAccountWriteSelf, foreign, false},

		{"customer catalog", customer, OpCatalogWrite, nil, false},
		{"customer transition", customer, OpOrderTransition, own, false},
		{"customer read all", customer, OpOrderReadAll, nil, false},
		{"customer read own", customer, OpOrderReadOwn, own, true},
		{"customer read foreign", customer, OpOrderReadOwn, foreign, false},
		{"customer read own nil resource", customer, OpOrderReadOwn, nil, false},
		{"customer create own", customer, OpOrderCreate, &Resource{CustomerID: "c-1"}, true},
		{"customer create foreign", customer, OpOrderCreate, &Resource{CustomerID: "c-2"}, false},
		{"customer transition own", customer, OpOrderTransition, own, false},
		{"customer write self", customer, OpAccountWriteSelf, &Resource{OwnerUserID: "u-cust"}, true},
		{"customer write other", customer, OpAccountWriteOther, foreign, false},
		{"customer read accounts", customer, OpAccountReadAll, nil, false},

		{"anonymous", Principal{}, OpOrderReadOwn, own, false},
		{"unknown role", Principal{UserID: "u", Role: "GUEST"}, OpCatalogWrite, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanPerform(tt.p, tt.op, tt.res))
		})
	}
}

func TestEmptyResourceFieldsNeverMatch(t *testing.T) {
	p := Principal{UserID: "u-x", Role: RoleCustomer}
	assert.False(t, CanPerform(p, OpOrderReadOwn, &Resource{}))
}

func TestAuthorize(t *testing.T) {
	require.NoError(t, Authorize(employee, OpCatalogWrite, nil))

	err := Authorize(customer, OpCatalogWrite, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
}

func TestPrincipalContext(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)

	ctx := WithPrincipal(context.Background(), customer)
	got, ok := FromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, customer, got)
	assert.True(t, got.IsCustomer())
	assert.False(t, got.IsStaff())
}
