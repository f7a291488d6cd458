package quote

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// ProgressUpdate is an entry of the append-only progress log of a quote
type ProgressUpdate struct {
	ID               uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	QuoteID          uuid.UUID  `gorm:"type:uuid;not null;index" json:"quote_id"`
	Status           Status     `gorm:"type:varchar(20);not null" json:"status"`
	Progress         int        `gorm:"not null" json:"progress"`
	Comment          string     `gorm:"type:text" json:"comment"`
	AuthorID         *uuid.UUID `gorm:"type:uuid" json:"author_id,omitempty"`
	NotifiedEmail    bool       `gorm:"not null;default:false" json:"notified_email"`
	NotifiedWhatsApp bool       `gorm:"column:notified_whatsapp;not null;default:false" json:"notified_whatsapp"`
	CreatedAt        time.Time  `gorm:"not null" json:"created_at"`
}

// TableName returns the table name for GORM
func (ProgressUpdate) TableName() string {
	return "quote_progress_updates"
}

func newProgressUpdate(q *Quote, comment string, authorID *uuid.UUID) *ProgressUpdate {
	comment = strings.TrimSpace(comment)
	if comment == "" {
		comment = "Estado actualizado a " + q.Status.Label()
	}
	return &ProgressUpdate{
		ID:        uuid.New(),
		QuoteID:   q.ID,
		Status:    q.Status,
		Progress:  q.Progress,
		Comment:   comment,
		AuthorID:  authorID,
		CreatedAt: time.Now(),
	}
}
