package auth

import "github.com/ariefcatur/restaurant-orders/internal/apperr"

type Operation string

const (
	OpCatalogWrite      Operation = "CATALOG_WRITE"
	OpOrderCreate       Operation = "ORDER_CREATE"
	OpOrderReadAll      Operation = "ORDER_READ_ALL"
	OpOrderReadOwn      Operation = "ORDER_READ_OWN"
	OpOrderTransition   Operation = "ORDER_TRANSITION"
	OpAccountReadAll    Operation = "ACCOUNT_READ_ALL"
	OpAccountWriteSelf  Operation = "ACCOUNT_WRITE_SELF"
	OpAccountWriteOther Operation = "ACCOUNT_WRITE_OTHER"
)

// Resource identifies who owns the target of an operation. Either field may
// be empty; an empty field never matches.
type Resource struct {
	OwnerUserID string
	CustomerID  string
}

type rule struct {
	allowed bool
	// owned rules additionally require the principal to own the resource.
	owned bool
}

var rules = map[Role]map[Operation]rule{
	RoleEmployee: {
		OpCatalogWrite:     {allowed: true},
		OpOrderCreate:      {allowed: true},
		OpOrderReadAll:     {allowed: true},
		OpOrderTransition:  {allowed: true},
		OpAccountReadAll:   {allowed: true},
		OpAccountWriteSelf: {allowed: true, owned: true},
	},
	RoleCustomer: {
		OpOrderCreate:      {allowed: true, owned: true},
		OpOrderReadOwn:     {allowed: true, owned: true},
		OpAccountWriteSelf: {allowed: true, owned: true},
	},
}

// CanPerform is the single permission check. It has no side effects.
// Admins may do everything; ownership-checked operations deny a nil resource.
func CanPerform(p Principal, op Operation, res *Resource) bool {
	if p.UserID == "" || !p.Role.Valid() {
		return false
	}
	if p.Role == RoleAdmin {
		return true
	}
	r := rules[p.Role][op]
	if !r.allowed {
		return false
	}
	if r.owned {
		return owns(p, res)
	}
	return true
}

func owns(p Principal, res *Resource) bool {
	if res == nil {
		return false
	}
	if res.OwnerUserID != "" && res.OwnerUserID == p.UserID {
		return true
	}
	return res.CustomerID != "" && res.CustomerID == p.CustomerID
}

// Authorize returns an UNAUTHORIZED error when CanPerform denies.
func Authorize(p Principal, op Operation, res *Resource) error {
	if CanPerform(p, op, res) {
		return nil
	}
	return apperr.Unauthorized("not allowed to perform %s", op)
}
