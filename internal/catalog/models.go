package catalog

import (
	"time"

	"github.com/shopspring/decimal"
)

type Category struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	CreatedAt time.Time        `json:"created_at"`
	Products  []ProductSummary `json:"products"`
}

type ProductSummary struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

type Product struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	CategoryID  string          `json:"category_id"`
	PrepMinutes int             `json:"prep_minutes"`
	Stock       int             `json:"stock"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

type ProductInput struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	CategoryID  string          `json:"category_id"`
	PrepMinutes int             `json:"prep_minutes"`
	Stock       int             `json:"stock"`
}

// ProductPatch changes only the non-nil fields.
type ProductPatch struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	CategoryID  *string          `json:"category_id"`
	PrepMinutes *int             `json:"prep_minutes"`
	Stock       *int             `json:"stock"`
}

func (pp ProductPatch) apply(p *Product) {
	if pp.Name != nil {
		p.Name = *pp.Name
	}
	if pp.Description != nil {
		p.Description = *pp.Description
	}
	if pp.Price != nil {
		p.Price = *pp.Price
	}
	if pp.CategoryID != nil {
		p.CategoryID = *pp.CategoryID
	}
	if pp.PrepMinutes != nil {
		p.PrepMinutes = *pp.PrepMinutes
	}
	if pp.Stock != nil {
		p.Stock = *pp.Stock
	}
}
