package catalog

import (
	"strings"

	"github.com/induservicios/backend/internal/domain/shared"
)

// Category groups products in the storefront
type Category struct {
	shared.BaseAggregateRoot
	Name        string `gorm:"type:varchar(100);not null" json:"name"`
	Slug        string `gorm:"type:varchar(200);not null;uniqueIndex" json:"slug"`
	Description string `gorm:"type:text" json:"description"`
	ImageURL    string `gorm:"type:varchar(500)" json:"image_url"`
	SortOrder   int    `gorm:"not null;default:0" json:"sort_order"`
	IsActive    bool   `gorm:"not null" json:"is_active"`
}

// TableName returns the table name for GORM
func (Category) TableName() string {
	return "categories"
}

// NewCategory creates an active category with a slug derived from its name
func NewCategory(name, description string) (*Category, error) {
	name = strings.TrimSpace(name)
	if err := validateCategoryName(name); err != nil {
		return nil, err
	}
	slug := Slugify(name)
	if slug == "" {
		return nil, shared.NewDomainError("INVALID_CATEGORY_NAME", "Category name must contain letters or digits")
	}

	category := &Category{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Name:              name,
		Slug:              slug,
		Description:       strings.TrimSpace(description),
		IsActive:          true,
	}
	category.AddDomainEvent(NewCategoryEvent(EventTypeCategoryCreated, category))
	return category, nil
}

// Update changes name and description. The slug is kept stable.
func (c *Category) Update(name, description string) error {
	name = strings.TrimSpace(name)
	if err := validateCategoryName(name); err != nil {
		return err
	}
	c.Name = name
	c.Description = strings.TrimSpace(description)
	c.Touch()
	c.IncrementVersion()
	c.AddDomainEvent(NewCategoryEvent(EventTypeCategoryUpdated, c))
	return nil
}

// SetImage sets the category image
func (c *Category) SetImage(url string) {
	c.ImageURL = url
	c.Touch()
	c.IncrementVersion()
}

// SetSortOrder sets the display order
func (c *Category) SetSortOrder(order int) {
	c.SortOrder = order
	c.Touch()
	c.IncrementVersion()
}

// SetActive toggles storefront visibility
func (c *Category) SetActive(active bool) {
	if c.IsActive == active {
		return
	}
	c.IsActive = active
	c.Touch()
	c.IncrementVersion()
	c.AddDomainEvent(NewCategoryEvent(EventTypeCategoryUpdated, c))
}

// MarkDeleted records the deletion event before the row is removed
func (c *Category) MarkDeleted() {
	c.AddDomainEvent(NewCategoryEvent(EventTypeCategoryDeleted, c))
}

func validateCategoryName(name string) error {
	if name == "" {
		return shared.NewDomainError("INVALID_CATEGORY_NAME", "Category name cannot be empty")
	}
	if len(name) > 100 {
		return shared.NewDomainError("INVALID_CATEGORY_NAME", "Category name cannot exceed 100 characters")
	}
	return nil
}
