package catalog

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/ariefcatur/restaurant-orders/internal/apperr"
	"github.com/ariefcatur/restaurant-orders/internal/auth"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Service struct {
	store Store
	log   *slog.Logger
	now   func() time.Time
}

func NewService(log *slog.Logger, store Store) *Service {
	return &Service{store: store, log: log, now: time.Now}
}

func (s *Service) CreateCategory(ctx context.Context, p auth.Principal, name string) (Category, error) {
	if err := auth.Authorize(p, auth.OpCatalogWrite, nil); err != nil {
		return Category{}, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return Category{}, apperr.Validation("category name is required")
	}

	c := Category{ID: uuid.NewString(), Name: name, CreatedAt: s.now().UTC(), Products: []ProductSummary{}}
	err := s.store.InTx(ctx, func(tx Tx) error {
		taken, err := tx.CategoryNameTaken(ctx, name)
		if err != nil {
			return err
		}
		if taken {
			return apperr.Conflict("category %q already exists", name)
		}
		return tx.InsertCategory(ctx, c)
	})
	if err != nil {
		return Category{}, apperr.Passthrough(err, "create category")
	}
	s.log.Info("category created", slog.String("category_id", c.ID), slog.String("name", c.Name))
	return c, nil
}

// ListCategories returns each category with a summary of its products.
func (s *Service) ListCategories(ctx context.Context, p auth.Principal) ([]Category, error) {
	if p.UserID == "" {
		return nil, auth.Authorize(p, auth.OpCatalogWrite, nil)
	}
	out, err := s.store.ListCategories(ctx)
	return out, apperr.Passthrough(err, "list categories")
}

// CreateProduct inserts the product and its stock row together. A failure on
// either leaves the catalog unchanged.
func (s *Service) CreateProduct(ctx context.Context, p auth.Principal, in ProductInput) (Product, error) {
	if err := auth.Authorize(p, auth.OpCatalogWrite, nil); err != nil {
		return Product{}, err
	}
	now := s.now().UTC()
	prod := Product{
		ID:          uuid.NewString(),
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		Price:       in.Price,
		CategoryID:  in.CategoryID,
		PrepMinutes: in.PrepMinutes,
		Stock:       in.Stock,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := validateProduct(prod); err != nil {
		return Product{}, err
	}

	err := s.store.InTx(ctx, func(tx Tx) error {
		if err := checkProductRefs(ctx, tx, prod); err != nil {
			return err
		}
		if err := tx.InsertProduct(ctx, prod); err != nil {
			return err
		}
		return tx.InsertStock(ctx, prod.ID, prod.Stock)
	})
	if err != nil {
		return Product{}, apperr.Passthrough(err, "create product")
	}
	s.log.Info("product created", slog.String("product_id", prod.ID), slog.String("name", prod.Name))
	return prod, nil
}

// UpdateProduct applies patch under a row lock on the product. Concurrent
// updates to the same product serialize; the last one wins.
func (s *Service) UpdateProduct(ctx context.Context, p auth.Principal, id string, patch ProductPatch) (Product, error) {
	if err := auth.Authorize(p, auth.OpCatalogWrite, nil); err != nil {
		return Product{}, err
	}

	var out Product
	err := s.store.InTx(ctx, func(tx Tx) error {
		cur, err := tx.LockProduct(ctx, id)
		if err != nil {
			return err
		}
		next := cur
		patch.apply(&next)
		next.Name = strings.TrimSpace(next.Name)
		next.UpdatedAt = s.now().UTC()
		if err := validateProduct(next); err != nil {
			return err
		}
		if err := checkProductRefs(ctx, tx, next); err != nil {
			return err
		}
		if err := tx.UpdateProduct(ctx, next); err != nil {
			return err
		}
		if next.Stock != cur.Stock {
			if err := tx.SetStock(ctx, next.ID, next.Stock); err != nil {
				return err
			}
		}
		out = next
		return nil
	})
	if err != nil {
		return Product{}, apperr.Passthrough(err, "update product")
	}
	s.log.Info("product updated", slog.String("product_id", out.ID))
	return out, nil
}

func (s *Service) ListProducts(ctx context.Context, p auth.Principal) ([]Product, error) {
	if p.UserID == "" {
		return nil, auth.Authorize(p, auth.OpCatalogWrite, nil)
	}
	out, err := s.store.ListProducts(ctx)
	return out, apperr.Passthrough(err, "list products")
}

func (s *Service) GetProduct(ctx context.Context, p auth.Principal, id string) (Product, error) {
	if p.UserID == "" {
		return Product{}, auth.Authorize(p, auth.OpCatalogWrite, nil)
	}
	out, err := s.store.GetProduct(ctx, id)
	return out, apperr.Passthrough(err, "get product")
}

func validateProduct(p Product) error {
	switch {
	case p.Name == "":
		return apperr.Validation("product name is required")
	case !p.Price.GreaterThan(decimal.Zero):
		return apperr.Validation("price must be greater than zero")
	case !p.Price.Equal(p.Price.Round(2)):
		return apperr.Validation("price cannot have more than 2 decimal places")
	case p.PrepMinutes < 0:
		return apperr.Validation("prep time cannot be negative")
	case p.Stock < 0:
		return apperr.Validation("stock cannot be negative")
	case p.CategoryID == "":
		return apperr.Validation("category is required")
	}
	return nil
}

func checkProductRefs(ctx context.Context, tx Tx, p Product) error {
	taken, err := tx.ProductNameTaken(ctx, p.Name, p.ID)
	if err != nil {
		return err
	}
	if taken {
		return apperr.Conflict("product %q already exists", p.Name)
	}
	ok, err := tx.CategoryExists(ctx, p.CategoryID)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.Validation("category not found: %s", p.CategoryID)
	}
	return nil
}
