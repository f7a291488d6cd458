package catalog

import "github.com/induservicios/backend/internal/domain/shared"

// AggregateTypeCategory is the aggregate type for categories
const AggregateTypeCategory = "Category"

// Category event types
const (
	EventTypeCategoryCreated = "catalog.category.created"
	EventTypeCategoryUpdated = "catalog.category.updated"
	EventTypeCategoryDeleted = "catalog.category.deleted"
)

// CategoryEvent carries a category snapshot for create, update and delete
type CategoryEvent struct {
	shared.BaseDomainEvent
	Name     string `json:"name"`
	Slug     string `json:"slug"`
	IsActive bool   `json:"is_active"`
}

// NewCategoryEvent creates a category event of the given type
func NewCategoryEvent(eventType string, c *Category) *CategoryEvent {
	return &CategoryEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, AggregateTypeCategory, c.ID),
		Name:            c.Name,
		Slug:            c.Slug,
		IsActive:        c.IsActive,
	}
}
