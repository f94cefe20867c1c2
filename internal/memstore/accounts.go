package memstore

import (
	"context"
	"slices"
	"strings"

	"github.com/ariefcatur/restaurant-orders/internal/accounts"
	"github.com/ariefcatur/restaurant-orders/internal/apperr"
	"github.com/ariefcatur/restaurant-orders/internal/auth"
)

type accountStore struct{ db *DB }

type accountTx struct{ st *state }

func (s accountStore) InTx(ctx context.Context, fn func(accounts.Tx) error) error {
	return s.db.inTx(ctx, func(st *state) error { return fn(accountTx{st}) })
}

func (s accountStore) UserByEmail(ctx context.Context, email string) (accounts.User, error) {
	var (
		u  accounts.User
		ok bool
	)
	s.db.read(func(st *state) { u, ok = st.userByEmail(email) })
	if !ok {
		return accounts.User{}, apperr.NotFound("user %s not found", email)
	}
	return u, nil
}

func (s accountStore) GetUser(ctx context.Context, id string) (accounts.User, error) {
	var (
		u  accounts.User
		ok bool
	)
	s.db.read(func(st *state) { u, ok = st.users[id] })
	if !ok {
		return accounts.User{}, apperr.NotFound("user %s not found", id)
	}
	return u, nil
}

func (s accountStore) Principal(ctx context.Context, userID string) (auth.Principal, error) {
	var (
		p  auth.Principal
		ok bool
	)
	s.db.read(func(st *state) {
		var u accounts.User
		u, ok = st.users[userID]
		if !ok {
			return
		}
		p = auth.Principal{UserID: u.ID, Role: u.Role}
		for _, c := range st.customers {
			if c.UserID == u.ID {
				p.CustomerID = c.ID
			}
		}
		for _, e := range st.employees {
			if e.UserID == u.ID {
				p.EmployeeID = e.ID
			}
		}
	})
	if !ok {
		return auth.Principal{}, apperr.NotFound("user %s not found", userID)
	}
	return p, nil
}

func (s accountStore) ListUsers(ctx context.Context) ([]accounts.User, error) {
	out := []accounts.User{}
	s.db.read(func(st *state) {
		for _, u := range st.users {
			out = append(out, u)
		}
	})
	slices.SortFunc(out, func(a, b accounts.User) int { return strings.Compare(a.Email, b.Email) })
	return out, nil
}

func (s accountStore) ListCustomers(ctx context.Context) ([]accounts.Customer, error) {
	out := []accounts.Customer{}
	s.db.read(func(st *state) {
		for _, c := range st.customers {
			out = append(out, st.customerView(c))
		}
	})
	slices.SortFunc(out, func(a, b accounts.Customer) int { return strings.Compare(a.Email, b.Email) })
	return out, nil
}

func (s accountStore) ListEmployees(ctx context.Context) ([]accounts.Employee, error) {
	out := []accounts.Employee{}
	s.db.read(func(st *state) {
		for _, e := range st.employees {
			out = append(out, st.employeeView(e))
		}
	})
	slices.SortFunc(out, func(a, b accounts.Employee) int { return strings.Compare(a.Email, b.Email) })
	return out, nil
}

func (st *state) userByEmail(email string) (accounts.User, bool) {
	for _, u := range st.users {
		if u.Email == email {
			return u, true
		}
	}
	return accounts.User{}, false
}

func (st *state) customerView(c accounts.Customer) accounts.Customer {
	if u, ok := st.users[c.UserID]; ok {
		c.Name, c.Email = u.Name, u.Email
	}
	return c
}

func (st *state) employeeView(e accounts.Employee) accounts.Employee {
	if u, ok := st.users[e.UserID]; ok {
		e.Name, e.Email = u.Name, u.Email
	}
	return e
}

func (tx accountTx) EmailTaken(ctx context.Context, email, exceptUserID string) (bool, error) {
	u, ok := tx.st.userByEmail(email)
	return ok && u.ID != exceptUserID, nil
}

func (tx accountTx) InsertUser(ctx context.Context, u accounts.User) error {
	if taken, _ := tx.EmailTaken(ctx, u.Email, u.ID); taken {
		return apperr.Conflict("email %s is already registered", u.Email)
	}
	tx.st.users[u.ID] = u
	return nil
}

func (tx accountTx) InsertCustomer(ctx context.Context, c accounts.Customer) error {
	if _, ok := tx.st.users[c.UserID]; !ok {
		return apperr.Validation("user not found: %s", c.UserID)
	}
	tx.st.customers[c.ID] = c
	return nil
}

func (tx accountTx) InsertEmployee(ctx context.Context, e accounts.Employee) error {
	if _, ok := tx.st.users[e.UserID]; !ok {
		return apperr.Validation("user not found: %s", e.UserID)
	}
	tx.st.employees[e.ID] = e
	return nil
}

func (tx accountTx) LockUser(ctx context.Context, id string) (accounts.User, error) {
	u, ok := tx.st.users[id]
	if !ok {
		return accounts.User{}, apperr.NotFound("user %s not found", id)
	}
	return u, nil
}

func (tx accountTx) UpdateUser(ctx context.Context, u accounts.User) error {
	if _, ok := tx.st.users[u.ID]; !ok {
		return apperr.NotFound("user %s not found", u.ID)
	}
	if taken, _ := tx.EmailTaken(ctx, u.Email, u.ID); taken {
		return apperr.Conflict("email %s is already registered", u.Email)
	}
	tx.st.users[u.ID] = u
	return nil
}

func (tx accountTx) LockEmployee(ctx context.Context, id string) (accounts.Employee, error) {
	e, ok := tx.st.employees[id]
	if !ok {
		return accounts.Employee{}, apperr.NotFound("employee %s not found", id)
	}
	return tx.st.employeeView(e), nil
}

func (tx accountTx) UpdateEmployee(ctx context.Context, e accounts.Employee) error {
	if _, ok := tx.st.employees[e.ID]; !ok {
		return apperr.NotFound("employee %s not found", e.ID)
	}
	tx.st.employees[e.ID] = e
	return nil
}

func (tx accountTx) DeleteEmployee(ctx context.Context, id string) error {
	e, ok := tx.st.employees[id]
	if !ok {
		return apperr.NotFound("employee %s not found", id)
	}
	for oid, o := range tx.st.orders {
		if o.EmployeeID == id {
			o.EmployeeID = ""
			tx.st.orders[oid] = o
		}
	}
	delete(tx.st.employees, id)
	delete(tx.st.users, e.UserID)
	return nil
}

func (tx accountTx) LockCustomer(ctx context.Context, id string) (accounts.Customer, error) {
	c, ok := tx.st.customers[id]
	if !ok {
		return accounts.Customer{}, apperr.NotFound("customer %s not found", id)
	}
	return tx.st.customerView(c), nil
}

func (tx accountTx) CustomerHasOrders(ctx context.Context, id string) (bool, error) {
	for _, o := range tx.st.orders {
		if o.CustomerID == id {
			return true, nil
		}
	}
	return false, nil
}

func (tx accountTx) DeleteCustomer(ctx context.Context, id string) error {
	c, ok := tx.st.customers[id]
	if !ok {
		return apperr.NotFound("customer %s not found", id)
	}
	if has, _ := tx.CustomerHasOrders(ctx, id); has {
		return apperr.Conflict("customer %s has orders and cannot be deleted", id)
	}
	delete(tx.st.customers, id)
	delete(tx.st.users, c.UserID)
	return nil
}
