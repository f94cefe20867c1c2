package memstore

import (
	"context"
	"slices"
	"strings"

	"github.com/ariefcatur/restaurant-orders/internal/apperr"
	"github.com/ariefcatur/restaurant-orders/internal/catalog"
)

type catalogStore struct{ db *DB }

type catalogTx struct{ st *state }

func (s catalogStore) InTx(ctx context.Context, fn func(catalog.Tx) error) error {
	return s.db.inTx(ctx, func(st *state) error { return fn(catalogTx{st}) })
}

func (s catalogStore) ListCategories(ctx context.Context) ([]catalog.Category, error) {
	var out []catalog.Category
	s.db.read(func(st *state) {
		for _, c := range st.categories {
			c.Products = []catalog.ProductSummary{}
			for _, p := range st.products {
				if p.CategoryID == c.ID {
					c.Products = append(c.Products, catalog.ProductSummary{ID: p.ID, Name: p.Name, Price: p.Price})
				}
			}
			slices.SortFunc(c.Products, func(a, b catalog.ProductSummary) int { return strings.Compare(a.Name, b.Name) })
			out = append(out, c)
		}
	})
	slices.SortFunc(out, func(a, b catalog.Category) int { return strings.Compare(a.Name, b.Name) })
	return out, nil
}

func (s catalogStore) ListProducts(ctx context.Context) ([]catalog.Product, error) {
	var out []catalog.Product
	s.db.read(func(st *state) {
		for _, p := range st.products {
			p.Stock = st.stock[p.ID]
			out = append(out, p)
		}
	})
	slices.SortFunc(out, func(a, b catalog.Product) int { return strings.Compare(a.Name, b.Name) })
	return out, nil
}

func (s catalogStore) GetProduct(ctx context.Context, id string) (catalog.Product, error) {
	var (
		p  catalog.Product
		ok bool
	)
	s.db.read(func(st *state) {
		p, ok = st.products[id]
		p.Stock = st.stock[id]
	})
	if !ok {
		return catalog.Product{}, apperr.NotFound("product %s not found", id)
	}
	return p, nil
}

func (tx catalogTx) CategoryNameTaken(ctx context.Context, name string) (bool, error) {
	for _, c := range tx.st.categories {
		if c.Name == name {
			return true, nil
		}
	}
	return false, nil
}

func (tx catalogTx) CategoryExists(ctx context.Context, id string) (bool, error) {
	_, ok := tx.st.categories[id]
	return ok, nil
}

func (tx catalogTx) InsertCategory(ctx context.Context, c catalog.Category) error {
	if taken, _ := tx.CategoryNameTaken(ctx, c.Name); taken {
		return apperr.Conflict("category %q already exists", c.Name)
	}
	c.Products = nil
	tx.st.categories[c.ID] = c
	return nil
}

func (tx catalogTx) ProductNameTaken(ctx context.Context, name, exceptID string) (bool, error) {
	for _, p := range tx.st.products {
		if p.Name == name && p.ID != exceptID {
			return true, nil
		}
	}
	return false, nil
}

func (tx catalogTx) InsertProduct(ctx context.Context, p catalog.Product) error {
	if taken, _ := tx.ProductNameTaken(ctx, p.Name, p.ID); taken {
		return apperr.Conflict("product %q already exists", p.Name)
	}
	if _, ok := tx.st.categories[p.CategoryID]; !ok {
		return apperr.Validation("category not found: %s", p.CategoryID)
	}
	p.Stock = 0
	tx.st.products[p.ID] = p
	return nil
}

func (tx catalogTx) InsertStock(ctx context.Context, productID string, qty int) error {
	if _, ok := tx.st.products[productID]; !ok {
		return apperr.Validation("product not found: %s", productID)
	}
	if _, ok := tx.st.stock[productID]; ok {
		return apperr.Conflict("stock for product %s already exists", productID)
	}
	tx.st.stock[productID] = qty
	return nil
}

func (tx catalogTx) LockProduct(ctx context.Context, id string) (catalog.Product, error) {
	p, ok := tx.st.products[id]
	if !ok {
		return catalog.Product{}, apperr.NotFound("product %s not found", id)
	}
	p.Stock = tx.st.stock[id]
	return p, nil
}

func (tx catalogTx) UpdateProduct(ctx context.Context, p catalog.Product) error {
	if _, ok := tx.st.products[p.ID]; !ok {
		return apperr.NotFound("product %s not found", p.ID)
	}
	if taken, _ := tx.ProductNameTaken(ctx, p.Name, p.ID); taken {
		return apperr.Conflict("product %q already exists", p.Name)
	}
	p.Stock = 0
	tx.st.products[p.ID] = p
	return nil
}

func (tx catalogTx) SetStock(ctx context.Context, productID string, qty int) error {
	if _, ok := tx.st.products[productID]; !ok {
		return apperr.NotFound("product %s not found", productID)
	}
	tx.st.stock[productID] = qty
	return nil
}
