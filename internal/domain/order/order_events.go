package order

import (
	"github.com/shopspring/decimal"

	"github.com/induservicios/backend/internal/domain/shared"
)

// AggregateTypeOrder is the aggregate type for orders
const AggregateTypeOrder = "Order"

// Order event types
const (
	EventTypeOrderCreated       = "order.created"
	EventTypeOrderPaid          = "order.paid"
	EventTypeOrderStatusChanged = "order.status_changed"
	EventTypeOrderEvidenceAdded = "order.evidence_added"
	EventTypeOrderDeleted       = "order.deleted"
)

// OrderCreatedEvent is published when an order is placed
type OrderCreatedEvent struct {
	shared.BaseDomainEvent
	Code          string          `json:"code"`
	Email         string          `json:"email"`
	Total         decimal.Decimal `json:"total"`
	PaymentMethod PaymentMethod   `json:"payment_method"`
	ItemCount     int             `json:"item_count"`
}

// NewOrderCreatedEvent creates a new OrderCreatedEvent
func NewOrderCreatedEvent(o *Order) *OrderCreatedEvent {
	return &OrderCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderCreated, AggregateTypeOrder, o.ID),
		Code:            o.Code,
		Email:           o.Email,
		Total:           o.Total,
		PaymentMethod:   o.PaymentMethod,
		ItemCount:       o.ItemCount(),
	}
}

// OrderPaidEvent is published when payment is confirmed
type OrderPaidEvent struct {
	shared.BaseDomainEvent
	Code          string          `json:"code"`
	Total         decimal.Decimal `json:"total"`
	PaymentMethod PaymentMethod   `json:"payment_method"`
}

// NewOrderPaidEvent creates a new OrderPaidEvent
func NewOrderPaidEvent(o *Order) *OrderPaidEvent {
	return &OrderPaidEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderPaid, AggregateTypeOrder, o.ID),
		Code:            o.Code,
		Total:           o.Total,
		PaymentMethod:   o.PaymentMethod,
	}
}

// OrderStatusChangedEvent is published on fulfillment and payment status moves
type OrderStatusChangedEvent struct {
	shared.BaseDomainEvent
	Code           string        `json:"code"`
	PreviousStatus Status        `json:"previous_status"`
	Status         Status        `json:"status"`
	PaymentStatus  PaymentStatus `json:"payment_status"`
}

// NewOrderStatusChangedEvent creates a new OrderStatusChangedEvent
func NewOrderStatusChangedEvent(o *Order, previous Status) *OrderStatusChangedEvent {
	return &OrderStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderStatusChanged, AggregateTypeOrder, o.ID),
		Code:            o.Code,
		PreviousStatus:  previous,
		Status:          o.Status,
		PaymentStatus:   o.PaymentStatus,
	}
}

// OrderEvidenceAddedEvent is published when a photo is attached
type OrderEvidenceAddedEvent struct {
	shared.BaseDomainEvent
	Code       string `json:"code"`
	EvidenceID string `json:"evidence_id"`
	URL        string `json:"url"`
}

// NewOrderEvidenceAddedEvent creates a new OrderEvidenceAddedEvent
func NewOrderEvidenceAddedEvent(o *Order, ev Evidence) *OrderEvidenceAddedEvent {
	return &OrderEvidenceAddedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderEvidenceAdded, AggregateTypeOrder, o.ID),
		Code:            o.Code,
		EvidenceID:      ev.ID.String(),
		URL:             ev.URL,
	}
}

// OrderDeletedEvent is published when an admin removes an order
type OrderDeletedEvent struct {
	shared.BaseDomainEvent
	Code string `json:"code"`
}

// NewOrderDeletedEvent creates a new OrderDeletedEvent
func NewOrderDeletedEvent(o *Order) *OrderDeletedEvent {
	return &OrderDeletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderDeleted, AggregateTypeOrder, o.ID),
		Code:            o.Code,
	}
}
