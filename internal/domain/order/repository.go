package order

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/induservicios/backend/internal/domain/shared"
)

// Filter narrows order listings
type Filter struct {
	shared.Filter
	Status        *Status
	PaymentMethod *PaymentMethod
	PaymentStatus *PaymentStatus
	UserID        *uuid.UUID
	From          *time.Time
	To            *time.Time
}

// Repository defines the interface for order persistence
type Repository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Order, error)
	FindByCode(ctx context.Context, code string) (*Order, error)
	FindByPaymentIntent(ctx context.Context, intentID string) (*Order, error)
	FindAll(ctx context.Context, filter Filter) ([]Order, int64, error)
	// Create inserts the order with its items and reserves stock for every
	// item in the same transaction. Returns shared.ErrInsufficientStock when a
	// product cannot cover its quantity.
	Create(ctx context.Context, o *Order) error
	// ReleaseStock returns the items' quantities to the catalog
	ReleaseStock(ctx context.Context, o *Order) error
	// Save updates order header fields; items are immutable after creation
	Save(ctx context.Context, o *Order) error
	AddEvidence(ctx context.Context, ev *Evidence) error
	FindEvidence(ctx context.Context, orderID uuid.UUID) ([]Evidence, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
