package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ariefcatur/restaurant-orders/internal/apperr"
	"github.com/ariefcatur/restaurant-orders/internal/orders"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type OrderStore struct {
	pool *pgxpool.Pool
}

func NewOrderStore(pool *pgxpool.Pool) *OrderStore {
	return &OrderStore{pool: pool}
}

type orderTx struct {
	tx pgx.Tx
	// next line item position per order
	positions map[string]int
}

func (s *OrderStore) InTx(ctx context.Context, fn func(orders.Tx) error) error {
	return inTx(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(&orderTx{tx: tx, positions: map[string]int{}})
	})
}

// every order has at least one item, so inner joins are safe
const orderSelect = `
	SELECT o.id, o.number, o.customer_id, u.name, COALESCE(o.employee_id::text, ''), o.placed_at,
	       o.status, o.total::text, o.prep_minutes,
	       i.id, i.product_id, p.name, p.description, i.quantity, i.unit_price::text
	FROM orders o
	JOIN customers c ON c.id = o.customer_id
	JOIN users u ON u.id = c.user_id
	JOIN order_items i ON i.order_id = o.id
	JOIN products p ON p.id = i.product_id`

const orderOrder = ` ORDER BY o.number, i.position`

type queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func queryOrders(ctx context.Context, q queryer, where string, args ...any) ([]orders.Order, error) {
	rows, err := q.Query(ctx, orderSelect+where+orderOrder, args...)
	if err != nil {
		return nil, translate(err, "query orders")
	}
	defer rows.Close()

	out := []orders.Order{}
	idx := map[string]int{}
	for rows.Next() {
		var (
			o            orders.Order
			li           orders.LineItem
			status       string
			total, price string
		)
		if err := rows.Scan(&o.ID, &o.Number, &o.CustomerID, &o.CustomerName, &o.EmployeeID, &o.PlacedAt,
			&status, &total, &o.PrepMinutes,
			&li.ID, &li.ProductID, &li.ProductName, &li.Description, &li.Quantity, &price); err != nil {
			return nil, translate(err, "scan order")
		}
		i, seen := idx[o.ID]
		if !seen {
			o.Status = orders.Status(status)
			if o.Total, err = decimal.NewFromString(total); err != nil {
				return nil, apperr.Internal(err, "parse total")
			}
			o.Items = []orders.LineItem{}
			out = append(out, o)
			i = len(out) - 1
			idx[o.ID] = i
		}
		li.OrderID = o.ID
		if li.UnitPrice, err = decimal.NewFromString(price); err != nil {
			return nil, apperr.Internal(err, "parse unit price")
		}
		out[i].Items = append(out[i].Items, li)
	}
	return out, translate(rows.Err(), "query orders")
}

func (s *OrderStore) Get(ctx context.Context, id string) (orders.Order, error) {
	if !validID(id) {
		return orders.Order{}, apperr.NotFound("order %s not found", id)
	}
	list, err := queryOrders(ctx, s.pool, ` WHERE o.id = $1`, id)
	if err != nil {
		return orders.Order{}, err
	}
	if len(list) == 0 {
		return orders.Order{}, apperr.NotFound("order %s not found", id)
	}
	return list[0], nil
}

func (s *OrderStore) List(ctx context.Context, f orders.Filter) ([]orders.Order, error) {
	if f.CustomerID == "" {
		return queryOrders(ctx, s.pool, "")
	}
	if !validID(f.CustomerID) {
		return []orders.Order{}, nil
	}
	return queryOrders(ctx, s.pool, ` WHERE o.customer_id = $1`, f.CustomerID)
}

func (s *OrderStore) SumTotal(ctx context.Context, from, to time.Time) (decimal.Decimal, error) {
	var total string
	err := s.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(total), 0)::text FROM orders
		WHERE placed_at >= $1 AND placed_at < $2`, from, to).Scan(&total)
	if err != nil {
		return decimal.Zero, translate(err, "sum totals")
	}
	d, err := decimal.NewFromString(total)
	if err != nil {
		return decimal.Zero, apperr.Internal(err, "parse total")
	}
	return d, nil
}

func (t *orderTx) ProductSnapshots(ctx context.Context, ids []string) (map[string]orders.ProductSnapshot, error) {
	out := make(map[string]orders.ProductSnapshot, len(ids))
	args := make([]any, 0, len(ids))
	params := make([]string, 0, len(ids))
	for _, id := range ids {
		if !validID(id) {
			continue
		}
		args = append(args, id)
		params = append(params, fmt.Sprintf("$%d", len(args)))
	}
	if len(args) == 0 {
		return out, nil
	}

	rows, err := t.tx.Query(ctx, `
		SELECT id, name, description, price::text, prep_minutes
		FROM products WHERE id IN (`+strings.Join(params, ",")+`)`, args...)
	if err != nil {
		return nil, translate(err, "load products")
	}
	defer rows.Close()
	for rows.Next() {
		var (
			p     orders.ProductSnapshot
			price string
		)
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &price, &p.PrepMinutes); err != nil {
			return nil, translate(err, "scan product")
		}
		if p.Price, err = decimal.NewFromString(price); err != nil {
			return nil, apperr.Internal(err, "parse price")
		}
		out[p.ID] = p
	}
	return out, translate(rows.Err(), "load products")
}

func (t *orderTx) CustomerExists(ctx context.Context, id string) (bool, error) {
	if !validID(id) {
		return false, nil
	}
	return exists(ctx, t.tx, `SELECT EXISTS (SELECT 1 FROM customers WHERE id = $1)`, id)
}

func (t *orderTx) EmployeeExists(ctx context.Context, id string) (bool, error) {
	if !validID(id) {
		return false, nil
	}
	return exists(ctx, t.tx, `SELECT EXISTS (SELECT 1 FROM employees WHERE id = $1)`, id)
}

func (t *orderTx) InsertOrder(ctx context.Context, o *orders.Order) error {
	var employeeID *string
	if o.EmployeeID != "" {
		employeeID = &o.EmployeeID
	}
	err := t.tx.QueryRow(ctx, `
		INSERT INTO orders (id, customer_id, employee_id, placed_at, status, total, prep_minutes)
		VALUES ($1, $2, $3, $4, $5, $6::text::numeric, $7)
		RETURNING number`,
		o.ID, o.CustomerID, employeeID, o.PlacedAt, string(o.Status), o.Total.String(), o.PrepMinutes,
	).Scan(&o.Number)
	return translate(err, "order "+o.ID)
}

func (t *orderTx) InsertLineItem(ctx context.Context, li orders.LineItem) error {
	pos := t.positions[li.OrderID]
	t.positions[li.OrderID] = pos + 1
	_, err := t.tx.Exec(ctx, `
		INSERT INTO order_items (id, order_id, product_id, position, quantity, unit_price)
		VALUES ($1, $2, $3, $4, $5, $6::text::numeric)`,
		li.ID, li.OrderID, li.ProductID, pos, li.Quantity, li.UnitPrice.String())
	return translate(err, "line item for product "+li.ProductID)
}

// LockOrder takes a row lock on the order header before reading the full
// order, so a concurrent transition blocks until this transaction ends.
func (t *orderTx) LockOrder(ctx context.Context, id string) (orders.Order, error) {
	if !validID(id) {
		return orders.Order{}, apperr.NotFound("order %s not found", id)
	}
	var locked string
	if err := t.tx.QueryRow(ctx, `SELECT id FROM orders WHERE id = $1 FOR UPDATE`, id).Scan(&locked); err != nil {
		return orders.Order{}, translate(err, "order "+id)
	}
	list, err := queryOrders(ctx, t.tx, ` WHERE o.id = $1`, id)
	if err != nil {
		return orders.Order{}, err
	}
	if len(list) == 0 {
		return orders.Order{}, apperr.NotFound("order %s not found", id)
	}
	return list[0], nil
}

func (t *orderTx) SetStatus(ctx context.Context, id string, s orders.Status) error {
	ct, err := t.tx.Exec(ctx, `UPDATE orders SET status = $2 WHERE id = $1`, id, string(s))
	if err != nil {
		return translate(err, "order "+id)
	}
	if ct.RowsAffected() != 1 {
		return apperr.NotFound("order %s not found", id)
	}
	return nil
}
