package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/induservicios/backend/internal/domain/catalog"
	"github.com/induservicios/backend/internal/infrastructure/spreadsheet"
)

// CreateCategoryRequest represents a request to create a category
type CreateCategoryRequest struct {
	Name        string `json:"name" binding:"required,min=1,max=100"`
	Description string `json:"description" binding:"max=2000"`
	ImageURL    string `json:"image_url" binding:"omitempty,url,max=500"`
	SortOrder   *int   `json:"sort_order"`
	IsActive    *bool  `json:"is_active"`
}

// UpdateCategoryRequest represents a request to update a category
type UpdateCategoryRequest struct {
	Name        *string `json:"name" binding:"omitempty,min=1,max=100"`
	Description *string `json:"description" binding:"omitempty,max=2000"`
	ImageURL    *string `json:"image_url" binding:"omitempty,max=500"`
	SortOrder   *int    `json:"sort_order"`
	IsActive    *bool   `json:"is_active"`
}

// CategoryResponse represents a category in API responses
type CategoryResponse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description"`
	ImageURL    string    `json:"image_url"`
	SortOrder   int       `json:"sort_order"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CreateProductRequest represents a request to create a product
type CreateProductRequest struct {
	Name        string          `json:"name" binding:"required,min=1,max=200"`
	Description string          `json:"description" binding:"max=5000"`
	SKU         string          `json:"sku" binding:"max=60"`
	Unit        string          `json:"unit" binding:"max=20"`
	CategoryID  *uuid.UUID      `json:"category_id"`
	Price       decimal.Decimal `json:"price" binding:"required"`
	Stock       int             `json:"stock" binding:"min=0"`
	IsFeatured  bool            `json:"is_featured"`
	IsActive    *bool           `json:"is_active"`
}

// UpdateProductRequest represents a request to update a product.
// Nil fields are left unchanged.
type UpdateProductRequest struct {
	Name          *string          `json:"name" binding:"omitempty,min=1,max=200"`
	Description   *string          `json:"description" binding:"omitempty,max=5000"`
	SKU           *string          `json:"sku" binding:"omitempty,max=60"`
	Unit          *string          `json:"unit" binding:"omitempty,max=20"`
	CategoryID    *uuid.UUID       `json:"category_id"`
	ClearCategory bool             `json:"clear_category"`
	Price         *decimal.Decimal `json:"price"`
	IsFeatured    *bool            `json:"is_featured"`
	IsActive      *bool            `json:"is_active"`
}

// AdjustStockRequest adds or removes units
type AdjustStockRequest struct {
	Delta  int    `json:"delta" binding:"required"`
	Reason string `json:"reason" binding:"max=200"`
}

// ProductResponse represents a product in API responses
type ProductResponse struct {
	ID           uuid.UUID       `json:"id"`
	CategoryID   *uuid.UUID      `json:"category_id,omitempty"`
	Name         string          `json:"name"`
	Slug         string          `json:"slug"`
	SKU          string          `json:"sku,omitempty"`
	Description  string          `json:"description"`
	Price        decimal.Decimal `json:"price"`
	Stock        int             `json:"stock"`
	Unit         string          `json:"unit"`
	ImageURL     string          `json:"image_url"`
	ThumbnailURL string          `json:"thumbnail_url"`
	IsFeatured   bool            `json:"is_featured"`
	IsActive     bool            `json:"is_active"`
	InStock      bool            `json:"in_stock"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
	Version      int             `json:"version"`
}

// ImportResult summarizes a bulk product upload
type ImportResult struct {
	Created     int                    `json:"created"`
	Updated     int                    `json:"updated"`
	Skipped     int                    `json:"skipped"`
	Errors      []spreadsheet.RowError `json:"errors,omitempty"`
	TotalErrors int                    `json:"total_errors"`
	Truncated   bool                   `json:"truncated"`
}

func toCategoryResponse(c *catalog.Category) CategoryResponse {
	return CategoryResponse{
		ID:          c.ID,
		Name:        c.Name,
		Slug:        c.Slug,
		Description: c.Description,
		ImageURL:    c.ImageURL,
		SortOrder:   c.SortOrder,
		IsActive:    c.IsActive,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

func toProductResponse(p *catalog.Product) ProductResponse {
	return ProductResponse{
		ID:           p.ID,
		CategoryID:   p.CategoryID,
		Name:         p.Name,
		Slug:         p.Slug,
		SKU:          p.SKU,
		Description:  p.Description,
		Price:        p.Price,
		Stock:        p.Stock,
		Unit:         p.Unit,
		ImageURL:     p.ImageURL,
		ThumbnailURL: p.ThumbnailURL,
		IsFeatured:   p.IsFeatured,
		IsActive:     p.IsActive,
		InStock:      p.Stock > 0,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
		Version:      p.Version,
	}
}
