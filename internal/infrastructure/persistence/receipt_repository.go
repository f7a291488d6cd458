package persistence

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/induservicios/backend/internal/domain/receipt"
	"github.com/induservicios/backend/internal/domain/shared"
)

// GormReceiptRepository implements receipt.Repository using GORM
type GormReceiptRepository struct {
	db *gorm.DB
}

// NewGormReceiptRepository creates a new GormReceiptRepository
func NewGormReceiptRepository(db *gorm.DB) *GormReceiptRepository {
	return &GormReceiptRepository{db: db}
}

// FindByID finds a receipt by ID
func (r *GormReceiptRepository) FindByID(ctx context.Context, id uuid.UUID) (*receipt.Receipt, error) {
	var rc receipt.Receipt
	if err := r.db.WithContext(ctx).First(&rc, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &rc, nil
}

// FindByOrderID finds the receipt issued for an order
func (r *GormReceiptRepository) FindByOrderID(ctx context.Context, orderID uuid.UUID) (*receipt.Receipt, error) {
	var rc receipt.Receipt
	if err := r.db.WithContext(ctx).Where("order_id = ?", orderID).First(&rc).Error; err != nil {
		return nil, translate(err)
	}
	return &rc, nil
}

// Create inserts a receipt. A second receipt for the same order or number
// fails with shared.ErrAlreadyExists.
func (r *GormReceiptRepository) Create(ctx context.Context, rc *receipt.Receipt) error {
	return translate(r.db.WithContext(ctx).Create(rc).Error)
}

// SetPDFKey stores the object key of the rendered PDF
func (r *GormReceiptRepository) SetPDFKey(ctx context.Context, id uuid.UUID, key string) error {
	result := r.db.WithContext(ctx).
		Model(&receipt.Receipt{}).
		Where("id = ?", id).
		Update("pdf_key", key)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}
