package mail

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/induservicios/backend/internal/domain/shared"
)

// DeliveryStatus is the final outcome of a send attempt sequence
type DeliveryStatus string

const (
	DeliverySent   DeliveryStatus = "SENT"
	DeliveryFailed DeliveryStatus = "FAILED"
)

// EmailLog records every outgoing email and how it was delivered
type EmailLog struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	To        string         `gorm:"column:recipient;type:varchar(200);not null;index" json:"to"`
	Subject   string         `gorm:"type:varchar(300);not null" json:"subject"`
	Template  string         `gorm:"type:varchar(60);index" json:"template"`
	Provider  string         `gorm:"type:varchar(20)" json:"provider"`
	Status    DeliveryStatus `gorm:"type:varchar(10);not null;index" json:"status"`
	Attempts  int            `gorm:"not null;default:0" json:"attempts"`
	Error     string         `gorm:"type:text" json:"error,omitempty"`
	MessageID string         `gorm:"type:varchar(200)" json:"message_id,omitempty"`
	HTML      string         `gorm:"type:text" json:"-"`
	IsAlert   bool           `gorm:"not null;default:false" json:"is_alert"`
	SentAt    *time.Time     `json:"sent_at,omitempty"`
	CreatedAt time.Time      `gorm:"not null;index" json:"created_at"`
}

// TableName returns the table name for GORM
func (EmailLog) TableName() string {
	return "email_logs"
}

// NewEmailLog starts a log entry for a message about to be sent
func NewEmailLog(to, subject, template, html string) *EmailLog {
	return &EmailLog{
		ID:        uuid.New(),
		To:        to,
		Subject:   subject,
		Template:  template,
		HTML:      html,
		CreatedAt: time.Now(),
	}
}

// MarkSent records a successful delivery
func (l *EmailLog) MarkSent(provider, messageID string, attempts int) {
	now := time.Now()
	l.Status = DeliverySent
	l.Provider = provider
	l.MessageID = messageID
	l.Attempts = attempts
	l.Error = ""
	l.SentAt = &now
}

// MarkFailed records that every provider gave up
func (l *EmailLog) MarkFailed(provider string, attempts int, err error) {
	l.Status = DeliveryFailed
	l.Provider = provider
	l.Attempts = attempts
	if err != nil {
		l.Error = err.Error()
	}
}

// Stats summarises deliveries inside a time window
type Stats struct {
	Since  time.Time `json:"since"`
	Sent   int64     `json:"sent"`
	Failed int64     `json:"failed"`
}

// LogFilter narrows delivery log listings
type LogFilter struct {
	shared.Filter
	Status   *DeliveryStatus
	Template string
	To       string
}

// LogRepository persists delivery logs
type LogRepository interface {
	Save(ctx context.Context, log *EmailLog) error
	FindByID(ctx context.Context, id uuid.UUID) (*EmailLog, error)
	FindAll(ctx context.Context, filter LogFilter) ([]EmailLog, int64, error)
	// CountByStatusSince counts non-alert deliveries with the given status created after since
	CountByStatusSince(ctx context.Context, status DeliveryStatus, since time.Time) (int64, error)
	// LastAlertAt returns the creation time of the newest alert log, or nil
	LastAlertAt(ctx context.Context) (*time.Time, error)
}
