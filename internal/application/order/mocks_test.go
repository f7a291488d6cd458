package order

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/induservicios/backend/internal/application/notification"
	"github.com/induservicios/backend/internal/domain/catalog"
	"github.com/induservicios/backend/internal/domain/order"
	"github.com/induservicios/backend/internal/domain/receipt"
	"github.com/induservicios/backend/internal/domain/shared"
	"github.com/induservicios/backend/internal/infrastructure/payment"
)

type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderRepository) FindByCode(ctx context.Context, code string) (*order.Order, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderRepository) FindByPaymentIntent(ctx context.Context, intentID string) (*order.Order, error) {
	args := m.Called(ctx, intentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderRepository) FindAll(ctx context.Context, filter order.Filter) ([]order.Order, int64, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]order.Order), args.Get(1).(int64), args.Error(2)
}

func (m *MockOrderRepository) Create(ctx context.Context, o *order.Order) error {
	return m.Called(ctx, o).Error(0)
}

func (m *MockOrderRepository) ReleaseStock(ctx context.Context, o *order.Order) error {
	return m.Called(ctx, o).Error(0)
}

func (m *MockOrderRepository) Save(ctx context.Context, o *order.Order) error {
	return m.Called(ctx, o).Error(0)
}

func (m *MockOrderRepository) AddEvidence(ctx context.Context, ev *order.Evidence) error {
	return m.Called(ctx, ev).Error(0)
}

func (m *MockOrderRepository) FindEvidence(ctx context.Context, orderID uuid.UUID) ([]order.Evidence, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]order.Evidence), args.Error(1)
}

func (m *MockOrderRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

type MockGateway struct {
	mock.Mock
	enabled bool
}

func (m *MockGateway) Enabled() bool { return m.enabled }

func (m *MockGateway) PublishableKey() string { return "pk_test_tienda" }

func (m *MockGateway) CreatePaymentIntent(ctx context.Context, input payment.PaymentIntentInput) (*payment.PaymentIntent, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.PaymentIntent), args.Error(1)
}

func (m *MockGateway) RefundPaymentIntent(ctx context.Context, intentID, reason string) (*payment.Refund, error) {
	args := m.Called(ctx, intentID, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Refund), args.Error(1)
}

func (m *MockGateway) ParseWebhook(payload []byte, signature string) (*payment.WebhookEvent, error) {
	args := m.Called(payload, signature)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.WebhookEvent), args.Error(1)
}

// productCatalog serves products from memory
type productCatalog map[uuid.UUID]catalog.Product

func (c productCatalog) FindByIDs(_ context.Context, ids []uuid.UUID) ([]catalog.Product, error) {
	var out []catalog.Product
	for _, id := range ids {
		if p, ok := c[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

type stubReceipts struct {
	issued []uuid.UUID
	err    error
}

func (s *stubReceipts) IssueForOrder(_ context.Context, o *order.Order) (*receipt.Receipt, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.issued = append(s.issued, o.ID)
	return &receipt.Receipt{ID: uuid.New(), OrderID: o.ID, Series: "B001", Number: int64(len(s.issued))}, nil
}

type recordingNotifier struct {
	mu       sync.Mutex
	messages []notification.Message
}

func (n *recordingNotifier) Dispatch(_ context.Context, msg notification.Message) notification.Result {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, msg)
	return notification.Result{Email: true}
}

func (n *recordingNotifier) templates() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.messages))
	for i, m := range n.messages {
		out[i] = m.Template
	}
	return out
}

type counterSequence struct {
	n int64
}

func (c *counterSequence) Next(_ context.Context, _ string) (int64, error) {
	c.n++
	return c.n, nil
}

type recordingPublisher struct {
	events []shared.DomainEvent
}

func (p *recordingPublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	p.events = append(p.events, events...)
	return nil
}

func (p *recordingPublisher) types() []string {
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.EventType()
	}
	return out
}
