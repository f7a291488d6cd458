package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/induservicios/backend/internal/domain/mail"
)

// GormEmailLogRepository implements mail.LogRepository using GORM
type GormEmailLogRepository struct {
	db *gorm.DB
}

// NewGormEmailLogRepository creates a new GormEmailLogRepository
func NewGormEmailLogRepository(db *gorm.DB) *GormEmailLogRepository {
	return &GormEmailLogRepository{db: db}
}

// Save creates or updates a delivery log
func (r *GormEmailLogRepository) Save(ctx context.Context, log *mail.EmailLog) error {
	return r.db.WithContext(ctx).Save(log).Error
}

// FindByID finds a delivery log by ID
func (r *GormEmailLogRepository) FindByID(ctx context.Context, id uuid.UUID) (*mail.EmailLog, error) {
	var log mail.EmailLog
	if err := r.db.WithContext(ctx).First(&log, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &log, nil
}

// FindAll lists delivery logs newest first
func (r *GormEmailLogRepository) FindAll(ctx context.Context, filter mail.LogFilter) ([]mail.EmailLog, int64, error) {
	query := r.db.WithContext(ctx).Model(&mail.EmailLog{})
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Template != "" {
		query = query.Where("template = ?", filter.Template)
	}
	if filter.To != "" {
		query = query.Where("recipient = ?", filter.To)
	}
	if filter.Search != "" {
		p := likePattern(filter.Search)
		query = query.Where("LOWER(recipient) LIKE ? ESCAPE '\\' OR LOWER(subject) LIKE ? ESCAPE '\\'", p, p)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var logs []mail.EmailLog
	if err := page(query.Omit("html"), filter.Filter, emailLogSortFields, "created_at").Find(&logs).Error; err != nil {
		return nil, 0, err
	}
	return logs, total, nil
}

// CountByStatusSince counts non-alert deliveries with the given status
func (r *GormEmailLogRepository) CountByStatusSince(ctx context.Context, status mail.DeliveryStatus, since time.Time) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&mail.EmailLog{}).
		Where("status = ? AND is_alert = ? AND created_at >= ?", status, false, since).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// LastAlertAt returns when the newest alert was logged, or nil if none was
func (r *GormEmailLogRepository) LastAlertAt(ctx context.Context) (*time.Time, error) {
	var log mail.EmailLog
	err := r.db.WithContext(ctx).
		Where("is_alert = ?", true).
		Order("created_at DESC").
		Limit(1).
		Find(&log).Error
	if err != nil {
		return nil, err
	}
	if log.ID == uuid.Nil {
		return nil, nil
	}
	return &log.CreatedAt, nil
}
