package order

import (
	"time"

	"github.com/google/uuid"
)

// Evidence is a photo proving delivery or installation of an order
type Evidence struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	OrderID     uuid.UUID  `gorm:"type:uuid;not null;index" json:"order_id"`
	URL         string     `gorm:"type:varchar(500);not null" json:"url"`
	ObjectKey   string     `gorm:"type:varchar(300)" json:"-"`
	Description string     `gorm:"type:varchar(500)" json:"description,omitempty"`
	UploadedBy  *uuid.UUID `gorm:"type:uuid" json:"uploaded_by,omitempty"`
	CreatedAt   time.Time  `gorm:"not null" json:"created_at"`
}

// TableName returns the table name for GORM
func (Evidence) TableName() string {
	return "order_evidence"
}
