package postgres

import (
	"context"

	"github.com/ariefcatur/restaurant-orders/internal/apperr"
	"github.com/ariefcatur/restaurant-orders/internal/catalog"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type CatalogStore struct {
	pool *pgxpool.Pool
}

func NewCatalogStore(pool *pgxpool.Pool) *CatalogStore {
	return &CatalogStore{pool: pool}
}

type catalogTx struct{ tx pgx.Tx }

func (s *CatalogStore) InTx(ctx context.Context, fn func(catalog.Tx) error) error {
	return inTx(ctx, s.pool, func(tx pgx.Tx) error { return fn(catalogTx{tx}) })
}

const productColumns = `p.id, p.name, p.description, p.price::text, p.category_id, p.prep_minutes,
	COALESCE(s.quantity, 0), p.created_at, p.updated_at`

func scanProduct(row pgx.Row) (catalog.Product, error) {
	var (
		p     catalog.Product
		price string
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &price, &p.CategoryID, &p.PrepMinutes,
		&p.Stock, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return catalog.Product{}, err
	}
	d, err := decimal.NewFromString(price)
	if err != nil {
		return catalog.Product{}, err
	}
	p.Price = d
	return p, nil
}

func (s *CatalogStore) ListCategories(ctx context.Context) ([]catalog.Category, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT c.id, c.name, c.created_at, p.id, p.name, p.price::text
		FROM categories c
		LEFT JOIN products p ON p.category_id = c.id
		ORDER BY c.name, p.name`)
	if err != nil {
		return nil, translate(err, "list categories")
	}
	defer rows.Close()

	out := []catalog.Category{}
	idx := map[string]int{}
	for rows.Next() {
		var (
			c                 catalog.Category
			pid, pname, price *string
		)
		if err := rows.Scan(&c.ID, &c.Name, &c.CreatedAt, &pid, &pname, &price); err != nil {
			return nil, translate(err, "scan category")
		}
		i, seen := idx[c.ID]
		if !seen {
			c.Products = []catalog.ProductSummary{}
			out = append(out, c)
			i = len(out) - 1
			idx[c.ID] = i
		}
		if pid == nil {
			continue
		}
		d, err := decimal.NewFromString(*price)
		if err != nil {
			return nil, apperr.Internal(err, "parse price")
		}
		out[i].Products = append(out[i].Products, catalog.ProductSummary{ID: *pid, Name: *pname, Price: d})
	}
	return out, translate(rows.Err(), "list categories")
}

func (s *CatalogStore) ListProducts(ctx context.Context) ([]catalog.Product, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+productColumns+`
		FROM products p LEFT JOIN stock s ON s.product_id = p.id
		ORDER BY p.name`)
	if err != nil {
		return nil, translate(err, "list products")
	}
	defer rows.Close()

	out := []catalog.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, translate(err, "scan product")
		}
		out = append(out, p)
	}
	return out, translate(rows.Err(), "list products")
}

func (s *CatalogStore) GetProduct(ctx context.Context, id string) (catalog.Product, error) {
	if !validID(id) {
		return catalog.Product{}, apperr.NotFound("product %s not found", id)
	}
	p, err := scanProduct(s.pool.QueryRow(ctx, `SELECT `+productColumns+`
		FROM products p LEFT JOIN stock s ON s.product_id = p.id
		WHERE p.id = $1`, id))
	if err != nil {
		return catalog.Product{}, translate(err, "product "+id)
	}
	return p, nil
}

func (t catalogTx) CategoryNameTaken(ctx context.Context, name string) (bool, error) {
	return exists(ctx, t.tx, `SELECT EXISTS (SELECT 1 FROM categories WHERE name = $1)`, name)
}

func (t catalogTx) CategoryExists(ctx context.Context, id string) (bool, error) {
	if !validID(id) {
		return false, nil
	}
	return exists(ctx, t.tx, `SELECT EXISTS (SELECT 1 FROM categories WHERE id = $1)`, id)
}

func (t catalogTx) InsertCategory(ctx context.Context, c catalog.Category) error {
	_, err := t.tx.Exec(ctx, `INSERT INTO categories (id, name, created_at) VALUES ($1, $2, $3)`,
		c.ID, c.Name, c.CreatedAt)
	return translate(err, "category "+c.Name)
}

func (t catalogTx) ProductNameTaken(ctx context.Context, name, exceptID string) (bool, error) {
	return exists(ctx, t.tx, `SELECT EXISTS (SELECT 1 FROM products WHERE name = $1 AND id::text <> $2)`, name, exceptID)
}

func (t catalogTx) InsertProduct(ctx context.Context, p catalog.Product) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO products (id, name, description, price, category_id, prep_minutes, created_at, updated_at)
		VALUES ($1, $2, $3, $4::text::numeric, $5, $6, $7, $8)`,
		p.ID, p.Name, p.Description, p.Price.String(), p.CategoryID, p.PrepMinutes, p.CreatedAt, p.UpdatedAt)
	return translate(err, "product "+p.Name)
}

func (t catalogTx) InsertStock(ctx context.Context, productID string, qty int) error {
	_, err := t.tx.Exec(ctx, `INSERT INTO stock (product_id, quantity) VALUES ($1, $2)`, productID, qty)
	return translate(err, "stock for product "+productID)
}

func (t catalogTx) LockProduct(ctx context.Context, id string) (catalog.Product, error) {
	if !validID(id) {
		return catalog.Product{}, apperr.NotFound("product %s not found", id)
	}
	p, err := scanProduct(t.tx.QueryRow(ctx, `SELECT `+productColumns+`
		FROM products p LEFT JOIN stock s ON s.product_id = p.id
		WHERE p.id = $1
		FOR UPDATE OF p`, id))
	if err != nil {
		return catalog.Product{}, translate(err, "product "+id)
	}
	return p, nil
}

func (t catalogTx) UpdateProduct(ctx context.Context, p catalog.Product) error {
	ct, err := t.tx.Exec(ctx, `
		UPDATE products
		SET name = $2, description = $3, price = $4::text::numeric, category_id = $5, prep_minutes = $6, updated_at = $7
		WHERE id = $1`,
		p.ID, p.Name, p.Description, p.Price.String(), p.CategoryID, p.PrepMinutes, p.UpdatedAt)
	if err != nil {
		return translate(err, "product "+p.Name)
	}
	if ct.RowsAffected() != 1 {
		return apperr.NotFound("product %s not found", p.ID)
	}
	return nil
}

func (t catalogTx) SetStock(ctx context.Context, productID string, qty int) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO stock (product_id, quantity) VALUES ($1, $2)
		ON CONFLICT (product_id) DO UPDATE SET quantity = EXCLUDED.quantity`, productID, qty)
	return translate(err, "stock for product "+productID)
}
