package catalog

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/induservicios/backend/internal/domain/shared"
)

// Product is a sellable item or service listed in the catalog.
// Prices are stored in soles and include IGV.
type Product struct {
	shared.BaseAggregateRoot
	CategoryID   *uuid.UUID      `gorm:"type:uuid;index" json:"category_id,omitempty"`
	Name         string          `gorm:"type:varchar(200);not null" json:"name"`
	Slug         string          `gorm:"type:varchar(200);not null;uniqueIndex" json:"slug"`
	SKU          string          `gorm:"type:varchar(60);index" json:"sku,omitempty"`
	Description  string          `gorm:"type:text" json:"description"`
	Price        decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price"`
	Stock        int             `gorm:"not null;default:0" json:"stock"`
	Unit         string          `gorm:"type:varchar(20);not null;default:'unidad'" json:"unit"`
	ImageURL     string          `gorm:"type:varchar(500)" json:"image_url"`
	ImageKey     string          `gorm:"type:varchar(300)" json:"-"`
	ThumbnailURL string          `gorm:"type:varchar(500)" json:"thumbnail_url"`
	ThumbnailKey string          `gorm:"type:varchar(300)" json:"-"`
	IsFeatured   bool            `gorm:"not null;default:false" json:"is_featured"`
	IsActive     bool            `gorm:"not null" json:"is_active"`
}

// TableName returns the table name for GORM
func (Product) TableName() string {
	return "products"
}

// NewProduct creates an active product
func NewProduct(name string, price decimal.Decimal, stock int) (*Product, error) {
	name = strings.TrimSpace(name)
	if err := validateProductName(name); err != nil {
		return nil, err
	}
	if err := validatePrice(price); err != nil {
		return nil, err
	}
	if stock < 0 {
		return nil, shared.NewDomainError("INVALID_STOCK", "Stock cannot be negative")
	}
	slug := Slugify(name)
	if slug == "" {
		return nil, shared.NewDomainError("INVALID_PRODUCT_NAME", "Product name must contain letters or digits")
	}

	product := &Product{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Name:              name,
		Slug:              slug,
		Price:             price.Round(2),
		Stock:             stock,
		Unit:              "unidad",
		IsActive:          true,
	}
	product.AddDomainEvent(NewProductEvent(EventTypeProductCreated, product))
	return product, nil
}

// Update changes the descriptive fields and price
func (p *Product) Update(name, description, sku, unit string, price decimal.Decimal) error {
	name = strings.TrimSpace(name)
	if err := validateProductName(name); err != nil {
		return err
	}
	if err := validatePrice(price); err != nil {
		return err
	}
	if len(sku) > 60 {
		return shared.NewDomainError("INVALID_SKU", "SKU cannot exceed 60 characters")
	}
	p.Name = name
	p.Description = strings.TrimSpace(description)
	p.SKU = strings.ToUpper(strings.TrimSpace(sku))
	if u := strings.TrimSpace(unit); u != "" {
		p.Unit = u
	}
	p.Price = price.Round(2)
	p.Touch()
	p.IncrementVersion()
	p.AddDomainEvent(NewProductEvent(EventTypeProductUpdated, p))
	return nil
}

// SetCategory assigns or clears the category
func (p *Product) SetCategory(categoryID *uuid.UUID) {
	p.CategoryID = categoryID
	p.Touch()
	p.IncrementVersion()
}

// SetFeatured toggles the featured flag
func (p *Product) SetFeatured(featured bool) {
	p.IsFeatured = featured
	p.Touch()
	p.IncrementVersion()
}

// SetActive toggles storefront visibility
func (p *Product) SetActive(active bool) {
	if p.IsActive == active {
		return
	}
	p.IsActive = active
	p.Touch()
	p.IncrementVersion()
	p.AddDomainEvent(NewProductEvent(EventTypeProductUpdated, p))
}

// SetImages replaces the original and thumbnail images and returns the
// object keys that were replaced so the caller can remove them.
func (p *Product) SetImages(imageURL, imageKey, thumbURL, thumbKey string) []string {
	var old []string
	if p.ImageKey != "" && p.ImageKey != imageKey {
		old = append(old, p.ImageKey)
	}
	if p.ThumbnailKey != "" && p.ThumbnailKey != thumbKey {
		old = append(old, p.ThumbnailKey)
	}
	p.ImageURL = imageURL
	p.ImageKey = imageKey
	p.ThumbnailURL = thumbURL
	p.ThumbnailKey = thumbKey
	p.Touch()
	p.IncrementVersion()
	p.AddDomainEvent(NewProductEvent(EventTypeProductUpdated, p))
	return old
}

// AdjustStock adds delta units. Stock never goes below zero and is not
// part of the product version.
func (p *Product) AdjustStock(delta int) error {
	if p.Stock+delta < 0 {
		return shared.NewDomainError(shared.ErrInsufficientStock.Code,
			fmt.Sprintf("Insufficient stock for %s: available %d, requested %d", p.Name, p.Stock, -delta))
	}
	p.Stock += delta
	p.Touch()
	p.AddDomainEvent(NewStockChangedEvent(p, delta))
	return nil
}

// IsPurchasable reports whether the product can be added to an order
func (p *Product) IsPurchasable(quantity int) bool {
	return p.IsActive && quantity > 0 && p.Stock >= quantity
}

// MarkDeleted records the deletion event before the row is removed
func (p *Product) MarkDeleted() {
	p.AddDomainEvent(NewProductEvent(EventTypeProductDeleted, p))
}

func validateProductName(name string) error {
	if name == "" {
		return shared.NewDomainError("INVALID_PRODUCT_NAME", "Product name cannot be empty")
	}
	if len(name) > 200 {
		return shared.NewDomainError("INVALID_PRODUCT_NAME", "Product name cannot exceed 200 characters")
	}
	return nil
}

func validatePrice(price decimal.Decimal) error {
	if price.IsNegative() {
		return shared.NewDomainError("INVALID_PRICE", "Price cannot be negative")
	}
	return nil
}
