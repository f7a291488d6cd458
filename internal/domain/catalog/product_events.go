package catalog

import (
	"github.com/shopspring/decimal"

	"github.com/induservicios/backend/internal/domain/shared"
)

// AggregateTypeProduct is the aggregate type for products
const AggregateTypeProduct = "Product"

// Product event types
const (
	EventTypeProductCreated      = "catalog.product.created"
	EventTypeProductUpdated      = "catalog.product.updated"
	EventTypeProductDeleted      = "catalog.product.deleted"
	EventTypeProductStockChanged = "catalog.product.stock_changed"
)

// ProductEvent carries the public view of a product
type ProductEvent struct {
	shared.BaseDomainEvent
	Name         string          `json:"name"`
	Slug         string          `json:"slug"`
	Price        decimal.Decimal `json:"price"`
	Stock        int             `json:"stock"`
	ThumbnailURL string          `json:"thumbnail_url,omitempty"`
	IsActive     bool            `json:"is_active"`
}

// NewProductEvent creates a product event of the given type
func NewProductEvent(eventType string, p *Product) *ProductEvent {
	return &ProductEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, AggregateTypeProduct, p.ID),
		Name:            p.Name,
		Slug:            p.Slug,
		Price:           p.Price,
		Stock:           p.Stock,
		ThumbnailURL:    p.ThumbnailURL,
		IsActive:        p.IsActive,
	}
}

// StockChangedEvent is published when stock moves through an order or an admin adjustment
type StockChangedEvent struct {
	shared.BaseDomainEvent
	Delta    int  `json:"delta"`
	Stock    int  `json:"stock"`
	IsActive bool `json:"is_active"`
}

// NewStockChangedEvent creates a new StockChangedEvent
func NewStockChangedEvent(p *Product, delta int) *StockChangedEvent {
	return &StockChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeProductStockChanged, AggregateTypeProduct, p.ID),
		Delta:           delta,
		Stock:           p.Stock,
		IsActive:        p.IsActive,
	}
}
