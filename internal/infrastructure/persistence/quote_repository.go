package persistence

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/induservicios/backend/internal/domain/quote"
	"github.com/induservicios/backend/internal/domain/shared"
)

// GormQuoteRepository implements quote.Repository and quote.ProgressRepository
type GormQuoteRepository struct {
	db *gorm.DB
}

// NewGormQuoteRepository creates a new GormQuoteRepository
func NewGormQuoteRepository(db *gorm.DB) *GormQuoteRepository {
	return &GormQuoteRepository{db: db}
}

// FindByID finds a quote by ID
func (r *GormQuoteRepository) FindByID(ctx context.Context, id uuid.UUID) (*quote.Quote, error) {
	var q quote.Quote
	if err := r.db.WithContext(ctx).First(&q, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &q, nil
}

// FindByCode finds a quote by its public code
func (r *GormQuoteRepository) FindByCode(ctx context.Context, code string) (*quote.Quote, error) {
	var q quote.Quote
	if err := r.db.WithContext(ctx).Where("code = ?", code).First(&q).Error; err != nil {
		return nil, translate(err)
	}
	return &q, nil
}

// FindAll lists quotes matching the filter, newest first by default
func (r *GormQuoteRepository) FindAll(ctx context.Context, filter quote.Filter) ([]quote.Quote, int64, error) {
	query := r.db.WithContext(ctx).Model(&quote.Quote{})
	if filter.Search != "" {
		p := likePattern(filter.Search)
		query = query.Where(
			"LOWER(code) LIKE ? ESCAPE '\\' OR LOWER(customer_name) LIKE ? ESCAPE '\\' OR LOWER(email) LIKE ? ESCAPE '\\'",
			p, p, p)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	// owner match: the linked user or, for guest quotes, the email
	switch {
	case filter.UserID != nil && filter.Email != "":
		query = query.Where("user_id = ? OR email = ?", *filter.UserID, filter.Email)
	case filter.UserID != nil:
		query = query.Where("user_id = ?", *filter.UserID)
	case filter.Email != "":
		query = query.Where("email = ?", filter.Email)
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

	var quotes []quote.Quote
	if err := page(query, filter.Filter, quoteSortFields, "created_at").Find(&quotes).Error; err != nil {
		return nil, 0, err
	}
	return quotes, total, nil
}

// Save creates or updates a quote
func (r *GormQuoteRepository) Save(ctx context.Context, q *quote.Quote) error {
	return translate(r.db.WithContext(ctx).Save(q).Error)
}

// SaveWithProgress stores the quote and appends the progress entry atomically
func (r *GormQuoteRepository) SaveWithProgress(ctx context.Context, q *quote.Quote, update *quote.ProgressUpdate) error {
	return translate(r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(q).Error; err != nil {
			return err
		}
		if update == nil {
			return nil
		}
		return tx.Create(update).Error
	}))
}

// Delete removes a quote and its progress log
func (r *GormQuoteRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("quote_id = ?", id).Delete(&quote.ProgressUpdate{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&quote.Quote{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

// FindByQuote returns the progress log of a quote in chronological order
func (r *GormQuoteRepository) FindByQuote(ctx context.Context, quoteID uuid.UUID) ([]quote.ProgressUpdate, error) {
	var updates []quote.ProgressUpdate
	if err := r.db.WithContext(ctx).
		Where("quote_id = ?", quoteID).
		Order("created_at ASC").
		Find(&updates).Error; err != nil {
		return nil, err
	}
	return updates, nil
}

// MarkNotified records which channels delivered the notification for an entry
func (r *GormQuoteRepository) MarkNotified(ctx context.Context, id uuid.UUID, email, whatsapp bool) error {
	result := r.db.WithContext(ctx).
		Model(&quote.ProgressUpdate{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"notified_email":    email,
			"notified_whatsapp": whatsapp,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}
