package postgres

import (
	"context"

	"github.com/ariefcatur/restaurant-orders/internal/accounts"
	"github.com/ariefcatur/restaurant-orders/internal/apperr"
	"github.com/ariefcatur/restaurant-orders/internal/auth"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type AccountStore struct {
	pool *pgxpool.Pool
}

func NewAccountStore(pool *pgxpool.Pool) *AccountStore {
	return &AccountStore{pool: pool}
}

type accountTx struct{ tx pgx.Tx }

func (s *AccountStore) InTx(ctx context.Context, fn func(accounts.Tx) error) error {
	return inTx(ctx, s.pool, func(tx pgx.Tx) error { return fn(accountTx{tx}) })
}

const userColumns = `id, name, email, password_hash, role, created_at, updated_at`

func scanUser(row pgx.Row) (accounts.User, error) {
	var (
		u    accounts.User
		role string
	)
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &role, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return accounts.User{}, err
	}
	u.Role = auth.Role(role)
	return u, nil
}

func (s *AccountStore) UserByEmail(ctx context.Context, email string) (accounts.User, error) {
	u, err := scanUser(s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
	if err != nil {
		return accounts.User{}, translate(err, "user "+email)
	}
	return u, nil
}

func (s *AccountStore) GetUser(ctx context.Context, id string) (accounts.User, error) {
	if !validID(id) {
		return accounts.User{}, apperr.NotFound("user %s not found", id)
	}
	u, err := scanUser(s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return accounts.User{}, translate(err, "user "+id)
	}
	return u, nil
}

func (s *AccountStore) Principal(ctx context.Context, userID string) (auth.Principal, error) {
	if !validID(userID) {
		return auth.Principal{}, apperr.NotFound("user %s not found", userID)
	}
	var (
		p    auth.Principal
		role string
	)
	err := s.pool.QueryRow(ctx, `
		SELECT u.id, u.role, COALESCE(c.id::text, ''), COALESCE(e.id::text, '')
		FROM users u
		LEFT JOIN customers c ON c.user_id = u.id
		LEFT JOIN employees e ON e.user_id = u.id
		WHERE u.id = $1`, userID).Scan(&p.UserID, &role, &p.CustomerID, &p.EmployeeID)
	if err != nil {
		return auth.Principal{}, translate(err, "user "+userID)
	}
	p.Role = auth.Role(role)
	return p, nil
}

func (s *AccountStore) ListUsers(ctx context.Context) ([]accounts.User, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY email`)
	if err != nil {
		return nil, translate(err, "list users")
	}
	defer rows.Close()

	out := []accounts.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, translate(err, "scan user")
		}
		out = append(out, u)
	}
	return out, translate(rows.Err(), "list users")
}

const customerSelect = `
	SELECT c.id, c.user_id, u.name, u.email, c.phone, c.address
	FROM customers c JOIN users u ON u.id = c.user_id`

func scanCustomer(row pgx.Row) (accounts.Customer, error) {
	var c accounts.Customer
	err := row.Scan(&c.ID, &c.UserID, &c.Name, &c.Email, &c.Phone, &c.Address)
	return c, err
}

func (s *AccountStore) ListCustomers(ctx context.Context) ([]accounts.Customer, error) {
	rows, err := s.pool.Query(ctx, customerSelect+` ORDER BY u.email`)
	if err != nil {
		return nil, translate(err, "list customers")
	}
	defer rows.Close()

	out := []accounts.Customer{}
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, translate(err, "scan customer")
		}
		out = append(out, c)
	}
	return out, translate(rows.Err(), "list customers")
}

const employeeSelect = `
	SELECT e.id, e.user_id, u.name, u.email, e.position, e.commission::text
	FROM employees e JOIN users u ON u.id = e.user_id`

func scanEmployee(row pgx.Row) (accounts.Employee, error) {
	var (
		e          accounts.Employee
		commission *string
	)
	if err := row.Scan(&e.ID, &e.UserID, &e.Name, &e.Email, &e.Position, &commission); err != nil {
		return accounts.Employee{}, err
	}
	if commission != nil {
		d, err := decimal.NewFromString(*commission)
		if err != nil {
			return accounts.Employee{}, err
		}
		e.Commission = &d
	}
	return e, nil
}

func (s *AccountStore) ListEmployees(ctx context.Context) ([]accounts.Employee, error) {
	rows, err := s.pool.Query(ctx, employeeSelect+` ORDER BY u.email`)
	if err != nil {
		return nil, translate(err, "list employees")
	}
	defer rows.Close()

	out := []accounts.Employee{}
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, translate(err, "scan employee")
		}
		out = append(out, e)
	}
	return out, translate(rows.Err(), "list employees")
}

func (t accountTx) EmailTaken(ctx context.Context, email, exceptUserID string) (bool, error) {
	return exists(ctx, t.tx, `SELECT EXISTS (SELECT 1 FROM users WHERE email = $1 AND id::text <> $2)`, email, exceptUserID)
}

func (t accountTx) InsertUser(ctx context.Context, u accounts.User) error {
	_, err := t.tx.Exec(ctx, `INSERT INTO users (`+userColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		u.ID, u.Name, u.Email, u.PasswordHash, string(u.Role), u.CreatedAt, u.UpdatedAt)
	return translate(err, "user "+u.Email)
}

func (t accountTx) InsertCustomer(ctx context.Context, c accounts.Customer) error {
	_, err := t.tx.Exec(ctx, `INSERT INTO customers (id, user_id, phone, address) VALUES ($1, $2, $3, $4)`,
		c.ID, c.UserID, c.Phone, c.Address)
	return translate(err, "customer "+c.ID)
}

func (t accountTx) InsertEmployee(ctx context.Context, e accounts.Employee) error {
	_, err := t.tx.Exec(ctx, `INSERT INTO employees (id, user_id, position, commission) VALUES ($1, $2, $3, $4::text::numeric)`,
		e.ID, e.UserID, e.Position, decimalText(e.Commission))
	return translate(err, "employee "+e.ID)
}

func (t accountTx) LockUser(ctx context.Context, id string) (accounts.User, error) {
	if !validID(id) {
		return accounts.User{}, apperr.NotFound("user %s not found", id)
	}
	u, err := scanUser(t.tx.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return accounts.User{}, translate(err, "user "+id)
	}
	return u, nil
}

func (t accountTx) UpdateUser(ctx context.Context, u accounts.User) error {
	_, err := t.tx.Exec(ctx, `
		UPDATE users SET name = $2, email = $3, password_hash = $4, updated_at = $5
		WHERE id = $1`, u.ID, u.Name, u.Email, u.PasswordHash, u.UpdatedAt)
	return translate(err, "user "+u.Email)
}

func (t accountTx) LockEmployee(ctx context.Context, id string) (accounts.Employee, error) {
	if !validID(id) {
		return accounts.Employee{}, apperr.NotFound("employee %s not found", id)
	}
	e, err := scanEmployee(t.tx.QueryRow(ctx, employeeSelect+` WHERE e.id = $1 FOR UPDATE OF e`, id))
	if err != nil {
		return accounts.Employee{}, translate(err, "employee "+id)
	}
	return e, nil
}

func (t accountTx) UpdateEmployee(ctx context.Context, e accounts.Employee) error {
	_, err := t.tx.Exec(ctx, `UPDATE employees SET position = $2, commission = $3::text::numeric WHERE id = $1`,
		e.ID, e.Position, decimalText(e.Commission))
	return translate(err, "employee "+e.ID)
}

// DeleteEmployee relies on ON DELETE SET NULL for orders.employee_id and
// ON DELETE CASCADE from users to employees.
func (t accountTx) DeleteEmployee(ctx context.Context, id string) error {
	ct, err := t.tx.Exec(ctx, `DELETE FROM users WHERE id = (SELECT user_id FROM employees WHERE id = $1)`, id)
	if err != nil {
		return translate(err, "employee "+id)
	}
	if ct.RowsAffected() != 1 {
		return apperr.NotFound("employee %s not found", id)
	}
	return nil
}

func (t accountTx) LockCustomer(ctx context.Context, id string) (accounts.Customer, error) {
	if !validID(id) {
		return accounts.Customer{}, apperr.NotFound("customer %s not found", id)
	}
	c, err := scanCustomer(t.tx.QueryRow(ctx, customerSelect+` WHERE c.id = $1 FOR UPDATE OF c`, id))
	if err != nil {
		return accounts.Customer{}, translate(err, "customer "+id)
	}
	return c, nil
}

func (t accountTx) CustomerHasOrders(ctx context.Context, id string) (bool, error) {
	return exists(ctx, t.tx, `SELECT EXISTS (SELECT 1 FROM orders WHERE customer_id = $1)`, id)
}

func (t accountTx) DeleteCustomer(ctx context.Context, id string) error {
	ct, err := t.tx.Exec(ctx, `DELETE FROM users WHERE id = (SELECT user_id FROM customers WHERE id = $1)`, id)
	if err != nil {
		// orders.customer_id has no cascade; a racing order insert lands here
		if apperr.KindOf(translate(err, "")) == apperr.KindValidation {
			return apperr.Conflict("customer %s has orders and cannot be deleted", id)
		}
		return translate(err, "customer "+id)
	}
	if ct.RowsAffected() != 1 {
		return apperr.NotFound("customer %s not found", id)
	}
	return nil
}

func decimalText(d *decimal.Decimal) *string {
	if d == nil {
		return nil
	}
	s := d.String()
	return &s
}
