package catalog

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/induservicios/backend/internal/domain/shared"
)

// ProductFilter narrows product listings
type ProductFilter struct {
	shared.Filter
	CategoryID *uuid.UUID
	Featured   *bool
	Active     *bool
	MinPrice   *decimal.Decimal
	MaxPrice   *decimal.Decimal
}

// ProductRepository defines the interface for product persistence
type ProductRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Product, error)
	FindBySlug(ctx context.Context, slug string) (*Product, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]Product, error)
	FindAll(ctx context.Context, filter ProductFilter) ([]Product, int64, error)
	ExistsBySlug(ctx context.Context, slug string) (bool, error)
	CountByCategory(ctx context.Context, categoryID uuid.UUID) (int64, error)
	Save(ctx context.Context, product *Product) error
	// AdjustStock atomically adds delta to the stored stock; it fails with
	// ErrInsufficientStock instead of going below zero.
	AdjustStock(ctx context.Context, id uuid.UUID, delta int) error
	Delete(ctx context.Context, id uuid.UUID) error
}
