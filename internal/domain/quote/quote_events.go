package quote

import "github.com/induservicios/backend/internal/domain/shared"

// AggregateTypeQuote is the aggregate type for quotes
const AggregateTypeQuote = "Quote"

// Quote event types
const (
	EventTypeQuoteCreated       = "quote.created"
	EventTypeQuoteUpdated       = "quote.updated"
	EventTypeQuoteStatusChanged = "quote.status_changed"
	EventTypeQuoteDeleted       = "quote.deleted"
)

// QuoteCreatedEvent is published when a customer submits a quote request
type QuoteCreatedEvent struct {
	shared.BaseDomainEvent
	Code         string `json:"code"`
	CustomerName string `json:"customer_name"`
	Email        string `json:"email"`
	ServiceType  string `json:"service_type"`
}

// NewQuoteCreatedEvent creates a new QuoteCreatedEvent
func NewQuoteCreatedEvent(q *Quote) *QuoteCreatedEvent {
	return &QuoteCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeQuoteCreated, AggregateTypeQuote, q.ID),
		Code:            q.Code,
		CustomerName:    q.CustomerName,
		Email:           q.Email,
		ServiceType:     q.ServiceType,
	}
}

// QuoteUpdatedEvent is published when an admin edits pricing or schedule
type QuoteUpdatedEvent struct {
	shared.BaseDomainEvent
	Code string `json:"code"`
}

// NewQuoteUpdatedEvent creates a new QuoteUpdatedEvent
func NewQuoteUpdatedEvent(q *Quote) *QuoteUpdatedEvent {
	return &QuoteUpdatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeQuoteUpdated, AggregateTypeQuote, q.ID),
		Code:            q.Code,
	}
}

// QuoteStatusChangedEvent is published on every lifecycle move
type QuoteStatusChangedEvent struct {
	shared.BaseDomainEvent
	Code           string `json:"code"`
	PreviousStatus Status `json:"previous_status"`
	Status         Status `json:"status"`
	Progress       int    `json:"progress"`
	Comment        string `json:"comment"`
}

// NewQuoteStatusChangedEvent creates a new QuoteStatusChangedEvent
func NewQuoteStatusChangedEvent(q *Quote, previous Status, comment string) *QuoteStatusChangedEvent {
	return &QuoteStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeQuoteStatusChanged, AggregateTypeQuote, q.ID),
		Code:            q.Code,
		PreviousStatus:  previous,
		Status:          q.Status,
		Progress:        q.Progress,
		Comment:         comment,
	}
}

// QuoteDeletedEvent is published when an admin removes a quote
type QuoteDeletedEvent struct {
	shared.BaseDomainEvent
	Code string `json:"code"`
}

// NewQuoteDeletedEvent creates a new QuoteDeletedEvent
func NewQuoteDeletedEvent(q *Quote) *QuoteDeletedEvent {
	return &QuoteDeletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeQuoteDeleted, AggregateTypeQuote, q.ID),
		Code:            q.Code,
	}
}
