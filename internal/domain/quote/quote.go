package quote

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/induservicios/backend/internal/domain/identity"
	"github.com/induservicios/backend/internal/domain/shared"
)

// Quote is a customer's request for a priced service or fabrication job
type Quote struct {
	shared.BaseAggregateRoot
	Code              string                `gorm:"type:varchar(30);not null;uniqueIndex" json:"code"`
	UserID            *uuid.UUID            `gorm:"type:uuid;index" json:"user_id,omitempty"`
	CustomerName      string                `gorm:"type:varchar(200);not null" json:"customer_name"`
	Email             string                `gorm:"type:varchar(200);not null;index" json:"email"`
	Phone             string                `gorm:"type:varchar(30)" json:"phone"`
	Company           string                `gorm:"type:varchar(200)" json:"company,omitempty"`
	DocumentType      identity.DocumentType `gorm:"type:varchar(10)" json:"document_type,omitempty"`
	DocumentNumber    string                `gorm:"type:varchar(20)" json:"document_number,omitempty"`
	ServiceType       string                `gorm:"type:varchar(100);not null" json:"service_type"`
	ProductID         *uuid.UUID            `gorm:"type:uuid" json:"product_id,omitempty"`
	Quantity          int                   `gorm:"not null;default:1" json:"quantity"`
	Description       string                `gorm:"type:text;not null" json:"description"`
	Address           string                `gorm:"type:varchar(300)" json:"address,omitempty"`
	Status            Status                `gorm:"type:varchar(20);not null;index" json:"status"`
	Progress          int                   `gorm:"not null;default:0" json:"progress"`
	EstimatedAmount   *decimal.Decimal      `gorm:"type:decimal(12,2)" json:"estimated_amount,omitempty"`
	EstimatedDelivery *time.Time            `json:"estimated_delivery,omitempty"`
	AdminNotes        string                `gorm:"type:text" json:"admin_notes,omitempty"`
}

// TableName returns the table name for GORM
func (Quote) TableName() string {
	return "quotes"
}

// Contact identifies who is requesting the quote
type Contact struct {
	Name           string
	Email          string
	Phone          string
	Company        string
	DocumentType   identity.DocumentType
	DocumentNumber string
}

// NewQuote creates a pending quote. The code is assigned by the caller from
// a sequence so it is unique and human readable.
func NewQuote(code string, contact Contact, serviceType, description string, quantity int) (*Quote, error) {
	if strings.TrimSpace(code) == "" {
		return nil, shared.NewDomainError("INVALID_QUOTE_CODE", "Quote code cannot be empty")
	}
	if strings.TrimSpace(contact.Name) == "" {
		return nil, shared.NewDomainError("INVALID_CUSTOMER_NAME", "Customer name cannot be empty")
	}
	if err := identity.ValidateEmail(contact.Email); err != nil {
		return nil, err
	}
	if contact.DocumentNumber != "" {
		if err := identity.ValidateDocument(contact.DocumentType, contact.DocumentNumber); err != nil {
			return nil, err
		}
	}
	serviceType = strings.TrimSpace(serviceType)
	if serviceType == "" {
		return nil, shared.NewDomainError("INVALID_SERVICE_TYPE", "Service type cannot be empty")
	}
	description = strings.TrimSpace(description)
	if len(description) < 10 {
		return nil, shared.NewDomainError("INVALID_DESCRIPTION", "Description must be at least 10 characters")
	}
	if quantity <= 0 {
		quantity = 1
	}

	q := &Quote{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Code:              code,
		CustomerName:      strings.TrimSpace(contact.Name),
		Email:             identity.NormalizeEmail(contact.Email),
		Phone:             strings.TrimSpace(contact.Phone),
		Company:           strings.TrimSpace(contact.Company),
		DocumentType:      contact.DocumentType,
		DocumentNumber:    contact.DocumentNumber,
		ServiceType:       serviceType,
		Quantity:          quantity,
		Description:       description,
		Status:            StatusPendiente,
		Progress:          StatusPendiente.Progress(),
	}
	q.AddDomainEvent(NewQuoteCreatedEvent(q))
	return q, nil
}

// UpdateDetails lets an admin price and schedule the quote
func (q *Quote) UpdateDetails(amount *decimal.Decimal, delivery *time.Time, notes, address string) error {
	if q.Status.IsTerminal() {
		return shared.NewDomainError(shared.ErrInvalidState.Code,
			fmt.Sprintf("Cannot edit a quote in %s status", q.Status))
	}
	if amount != nil {
		if amount.IsNegative() {
			return shared.NewDomainError("INVALID_AMOUNT", "Estimated amount cannot be negative")
		}
		rounded := amount.Round(2)
		q.EstimatedAmount = &rounded
	}
	if delivery != nil {
		q.EstimatedDelivery = delivery
	}
	q.AdminNotes = strings.TrimSpace(notes)
	if a := strings.TrimSpace(address); a != "" {
		q.Address = a
	}
	q.Touch()
	q.IncrementVersion()
	q.AddDomainEvent(NewQuoteUpdatedEvent(q))
	return nil
}

// ChangeStatus moves the quote along its lifecycle and returns the progress
// update entry to append to the log.
func (q *Quote) ChangeStatus(target Status, comment string, authorID *uuid.UUID) (*ProgressUpdate, error) {
	if !target.IsValid() {
		return nil, shared.NewDomainError("INVALID_STATUS", fmt.Sprintf("Unknown quote status %s", target))
	}
	if !q.Status.CanTransitionTo(target) {
		return nil, shared.NewDomainError(shared.ErrInvalidState.Code,
			fmt.Sprintf("Cannot change quote status from %s to %s", q.Status, target))
	}

	previous := q.Status
	q.Status = target
	if p := target.Progress(); p >= 0 {
		q.Progress = p
	}
	q.Touch()
	q.IncrementVersion()

	update := newProgressUpdate(q, comment, authorID)
	q.AddDomainEvent(NewQuoteStatusChangedEvent(q, previous, update.Comment))
	return update, nil
}

// AddComment appends a progress note without changing status
func (q *Quote) AddComment(comment string, authorID *uuid.UUID) (*ProgressUpdate, error) {
	if strings.TrimSpace(comment) == "" {
		return nil, shared.NewDomainError("INVALID_COMMENT", "Comment cannot be empty")
	}
	if q.Status == StatusCancelada {
		return nil, shared.NewDomainError(shared.ErrInvalidState.Code, "Cannot comment on a cancelled quote")
	}
	q.Touch()
	return newProgressUpdate(q, comment, authorID), nil
}

// CanDelete reports whether the quote may be removed
func (q *Quote) CanDelete() bool {
	return q.Status == StatusPendiente || q.Status == StatusCancelada
}

// BelongsTo reports whether the quote was requested by the given user or email
func (q *Quote) BelongsTo(userID *uuid.UUID, email string) bool {
	if userID != nil && q.UserID != nil && *q.UserID == *userID {
		return true
	}
	return email != "" && identity.NormalizeEmail(email) == q.Email
}

// MarkDeleted records the deletion event before the row is removed
func (q *Quote) MarkDeleted() {
	q.AddDomainEvent(NewQuoteDeletedEvent(q))
}
