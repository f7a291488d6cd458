package quote

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/induservicios/backend/internal/domain/shared"
)

// Filter narrows quote listings
type Filter struct {
	shared.Filter
	Status *Status
	UserID *uuid.UUID
	Email  string
	From   *time.Time
	To     *time.Time
}

// Repository defines the interface for quote persistence
type Repository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Quote, error)
	FindByCode(ctx context.Context, code string) (*Quote, error)
	FindAll(ctx context.Context, filter Filter) ([]Quote, int64, error)
	Save(ctx context.Context, q *Quote) error
	// SaveWithProgress persists the quote and appends the progress entry in one transaction
	SaveWithProgress(ctx context.Context, q *Quote, update *ProgressUpdate) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// ProgressRepository reads and annotates the append-only progress log
type ProgressRepository interface {
	FindByQuote(ctx context.Context, quoteID uuid.UUID) ([]ProgressUpdate, error)
	// MarkNotified only flips notification flags; entries are never rewritten otherwise
	MarkNotified(ctx context.Context, id uuid.UUID, email, whatsapp bool) error
}
