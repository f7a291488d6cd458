package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/induservicios/backend/internal/domain/order"
	"github.com/induservicios/backend/internal/domain/shared"
)

// GormOrderRepository implements order.Repository using GORM
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new GormOrderRepository
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

func (r *GormOrderRepository) withItems(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("product_name ASC")
	})
}

// FindByID finds an order with its items and evidence
func (r *GormOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	var o order.Order
	if err := r.withItems(ctx).
		Preload("Evidence", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		First(&o, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	o.MarkPersisted()
	return &o, nil
}

// FindByCode finds an order by its public code
func (r *GormOrderRepository) FindByCode(ctx context.Context, code string) (*order.Order, error) {
	var o order.Order
	if err := r.withItems(ctx).Where("code = ?", code).First(&o).Error; err != nil {
		return nil, translate(err)
	}
	o.MarkPersisted()
	return &o, nil
}

// FindByPaymentIntent finds the order paid through a Stripe PaymentIntent
func (r *GormOrderRepository) FindByPaymentIntent(ctx context.Context, intentID string) (*order.Order, error) {
	var o order.Order
	if err := r.withItems(ctx).Where("stripe_payment_intent_id = ?", intentID).First(&o).Error; err != nil {
		return nil, translate(err)
	}
	o.MarkPersisted()
	return &o, nil
}

// FindAll lists orders with their items
func (r *GormOrderRepository) FindAll(ctx context.Context, filter order.Filter) ([]order.Order, int64, error) {
	query := r.db.WithContext(ctx).Model(&order.Order{})
	if filter.Search != "" {
		p := likePattern(filter.Search)
		query = query.Where(
			"LOWER(code) LIKE ? ESCAPE '\\' OR LOWER(customer_name) LIKE ? ESCAPE '\\' OR LOWER(email) LIKE ? ESCAPE '\\'",
			p, p, p)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.PaymentMethod != nil {
		query = query.Where("payment_method = ?", *filter.PaymentMethod)
	}
	if filter.PaymentStatus != nil {
		query = query.Where("payment_status = ?", *filter.PaymentStatus)
	}
	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.From != nil {
		query = query.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("created_at < ?", *filter.To)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var orders []order.Order
	if err := page(query.Preload("Items"), filter.Filter, orderSortFields, "created_at").
		Find(&orders).Error; err != nil {
		return nil, 0, err
	}
	markLoaded(orders)
	return orders, total, nil
}

// Create inserts the order and its items, decrementing stock for each item
// in the same transaction.
func (r *GormOrderRepository) Create(ctx context.Context, o *order.Order) error {
	if err := translate(r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, item := range o.Items {
			if err := adjustStock(tx, item.ProductID, -item.Quantity); err != nil {
				return err
			}
		}
		return tx.Omit("Evidence").Create(o).Error
	})); err != nil {
		return err
	}
	o.MarkPersisted()
	return nil
}

// ReleaseStock returns the order quantities to the catalog
func (r *GormOrderRepository) ReleaseStock(ctx context.Context, o *order.Order) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, item := range o.Items {
			err := adjustStock(tx, item.ProductID, item.Quantity)
			// a product deleted after the sale has nothing to restock
			if err != nil && !errors.Is(err, shared.ErrNotFound) {
				return err
			}
		}
		return nil
	})
}

// Save updates the order header when the stored version still matches the
// one the order was loaded with. Items and evidence are left untouched.
func (r *GormOrderRepository) Save(ctx context.Context, o *order.Order) error {
	return saveWithLock(r.db.WithContext(ctx).Omit(clause.Associations), o)
}

// AddEvidence appends a delivery photo to an order
func (r *GormOrderRepository) AddEvidence(ctx context.Context, ev *order.Evidence) error {
	return r.db.WithContext(ctx).Create(ev).Error
}

// FindEvidence lists the evidence of an order oldest first
func (r *GormOrderRepository) FindEvidence(ctx context.Context, orderID uuid.UUID) ([]order.Evidence, error) {
	var evidence []order.Evidence
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&evidence).Error; err != nil {
		return nil, err
	}
	return evidence, nil
}

// Delete removes an order with its items and evidence
func (r *GormOrderRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("order_id = ?", id).Delete(&order.Item{}).Error; err != nil {
			return err
		}
		if err := tx.Where("order_id = ?", id).Delete(&order.Evidence{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&order.Order{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}
