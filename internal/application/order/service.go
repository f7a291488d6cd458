// Package order handles checkout, fulfilment and payment of store orders.
package order

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/induservicios/backend/internal/application/mail"
	"github.com/induservicios/backend/internal/application/notification"
	"github.com/induservicios/backend/internal/domain/catalog"
	"github.com/induservicios/backend/internal/domain/order"
	"github.com/induservicios/backend/internal/domain/receipt"
	"github.com/induservicios/backend/internal/domain/shared"
	"github.com/induservicios/backend/internal/infrastructure/config"
	"github.com/induservicios/backend/internal/infrastructure/imaging"
	"github.com/induservicios/backend/internal/infrastructure/logger"
	"github.com/induservicios/backend/internal/infrastructure/payment"
	"github.com/induservicios/backend/internal/infrastructure/printing"
)

// CodePrefix starts every order code
const CodePrefix = "PED"

var (
	// ErrPaymentUnavailable is returned for card checkout without Stripe
	ErrPaymentUnavailable = shared.NewDomainError("PAYMENT_UNAVAILABLE", "Card payments are not available")
	// ErrCODNotAllowed is returned when contra-entrega rules reject an order
	ErrCODNotAllowed = shared.NewDomainError("COD_NOT_ALLOWED", "Cash on delivery is not available for this order")
	// ErrProductUnavailable is returned for inactive or missing products
	ErrProductUnavailable = shared.NewDomainError("PRODUCT_UNAVAILABLE", "Product is not available")
	// ErrOrderNotDeletable is returned when deleting an order that is not cancelled
	ErrOrderNotDeletable = shared.NewDomainError("ORDER_NOT_DELETABLE", "Only cancelled orders can be deleted")
	// ErrInvalidEvidence is returned for uploads that are not photos
	ErrInvalidEvidence = shared.NewDomainError("INVALID_EVIDENCE", "Evidence must be a JPEG, PNG or GIF photo")
)

// PaymentGateway charges and refunds card orders
type PaymentGateway interface {
	Enabled() bool
	PublishableKey() string
	CreatePaymentIntent(ctx context.Context, input payment.PaymentIntentInput) (*payment.PaymentIntent, error)
	RefundPaymentIntent(ctx context.Context, intentID, reason string) (*payment.Refund, error)
	ParseWebhook(payload []byte, signature string) (*payment.WebhookEvent, error)
}

// ProductReader prices cart lines
type ProductReader interface {
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]catalog.Product, error)
}

// ReceiptIssuer emits the comprobante of a paid order
type ReceiptIssuer interface {
	IssueForOrder(ctx context.Context, o *order.Order) (*receipt.Receipt, error)
}

// EvidenceStore keeps delivery photos
type EvidenceStore interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) error
	Delete(ctx context.Context, key string) error
	PublicURL(key string) string
}

// Notifier reaches the customer without holding up the request
type Notifier interface {
	Dispatch(ctx context.Context, msg notification.Message) notification.Result
}

// Config holds order service settings
type Config struct {
	FrontendURL string
	Rules       config.OrdersConfig
	// WebhookDedupTTL is how long processed Stripe event IDs are remembered
	WebhookDedupTTL time.Duration
}

// Service handles order operations
type Service struct {
	orders   order.Repository
	products ProductReader
	seq      shared.SequenceGenerator
	gateway  PaymentGateway
	receipts ReceiptIssuer
	files    EvidenceStore
	dedup    shared.IdempotencyStore
	notifier Notifier
	events   shared.EventPublisher
	config   Config
	logger   *zap.Logger
	now      func() time.Time
}

// Deps groups the collaborators of the order service
type Deps struct {
	Orders   order.Repository
	Products ProductReader
	Sequence shared.SequenceGenerator
	Gateway  PaymentGateway
	Receipts ReceiptIssuer
	Files    EvidenceStore
	Dedup    shared.IdempotencyStore
	Notifier Notifier
	Events   shared.EventPublisher
}

// NewService creates an order service
func NewService(deps Deps, cfg Config, logger *zap.Logger) *Service {
	if cfg.WebhookDedupTTL <= 0 {
		cfg.WebhookDedupTTL = 72 * time.Hour
	}
	return &Service{
		orders:   deps.Orders,
		products: deps.Products,
		seq:      deps.Sequence,
		gateway:  deps.Gateway,
		receipts: deps.Receipts,
		files:    deps.Files,
		dedup:    deps.Dedup,
		notifier: deps.Notifier,
		events:   deps.Events,
		config:   cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// Get returns an order the requester may see
func (s *Service) Get(ctx context.Context, id uuid.UUID, requester Requester) (*OrderResponse, error) {
	o, err := s.load(ctx, id, requester)
	if err != nil {
		return nil, err
	}
	resp := toOrderResponse(o)
	return &resp, nil
}

// GetByCode is the public order tracking lookup. The email must match.
func (s *Service) GetByCode(ctx context.Context, code, email string) (*OrderResponse, error) {
	o, err := s.orders.FindByCode(ctx, strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		return nil, err
	}
	if !strings.EqualFold(strings.TrimSpace(email), o.Email) {
		return nil, shared.ErrNotFound
	}
	resp := toOrderResponse(o)
	return &resp, nil
}

// List returns a page of orders for admins
func (s *Service) List(ctx context.Context, filter order.Filter) (shared.Paginated[OrderResponse], error) {
	filter.Normalize()
	if filter.From != nil && filter.To != nil && filter.From.After(*filter.To) {
		return shared.Paginated[OrderResponse]{}, shared.NewDomainError(shared.ErrInvalidInput.Code, "from cannot be after to")
	}
	return s.list(ctx, filter)
}

// ListMine returns the orders of the signed in customer
func (s *Service) ListMine(ctx context.Context, requester Requester, filter shared.Filter) (shared.Paginated[OrderResponse], error) {
	if requester.UserID == nil {
		return shared.Paginated[OrderResponse]{}, shared.ErrUnauthorized
	}
	f := order.Filter{Filter: filter, UserID: requester.UserID}
	f.Normalize()
	return s.list(ctx, f)
}

func (s *Service) list(ctx context.Context, filter order.Filter) (shared.Paginated[OrderResponse], error) {
	orders, total, err := s.orders.FindAll(ctx, filter)
	if err != nil {
		return shared.Paginated[OrderResponse]{}, err
	}
	items := make([]OrderResponse, len(orders))
	for i := range orders {
		items[i] = toOrderResponse(&orders[i])
	}
	return shared.NewPaginated(items, total, filter.Page, filter.PageSize), nil
}

// UpdateStatus moves an order forward. CANCELADO is routed to Cancel.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, req UpdateStatusRequest) (*OrderResponse, error) {
	if req.Status == order.StatusCancelado {
		res, err := s.Cancel(ctx, id, CancelRequest{Reason: req.Comment}, Requester{Admin: true})
		if err != nil {
			return nil, err
		}
		return &res.Order, nil
	}

	o, err := s.orders.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	previous := o.Status
	if err := o.ChangeStatus(req.Status); err != nil {
		return nil, err
	}
	if err := s.save(ctx, o); err != nil {
		return nil, err
	}
	s.notifyStatus(ctx, o, req.Comment)

	logger.Or(ctx, s.logger).Info("Order status changed",
		zap.String("order_id", o.ID.String()),
		zap.String("from", string(previous)),
		zap.String("to", string(o.Status)))
	resp := toOrderResponse(o)
	return &resp, nil
}

// Cancel cancels an order, returns its stock and refunds a paid card order.
// Customers may cancel their own orders until they are prepared.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID, req CancelRequest, requester Requester) (*CancelResult, error) {
	o, err := s.load(ctx, id, requester)
	if err != nil {
		return nil, err
	}
	if !requester.Admin && o.Status != order.StatusPendiente && o.Status != order.StatusConfirmado {
		return nil, shared.NewDomainError(shared.ErrInvalidState.Code, "The order is already being prepared, contact us to cancel it")
	}
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		reason = "Cancelado por el cliente"
		if requester.Admin {
			reason = "Cancelado por la tienda"
		}
	}
	if err := o.Cancel(reason); err != nil {
		return nil, err
	}
	if err := s.save(ctx, o); err != nil {
		return nil, err
	}
	s.releaseStock(ctx, o)

	result := &CancelResult{}
	if o.NeedsRefund() {
		if err := s.refund(ctx, o, reason); err != nil {
			result.RefundError = err.Error()
		} else {
			result.Refunded = true
		}
	}
	s.notifyStatus(ctx, o, reason)

	logger.Or(ctx, s.logger).Info("Order cancelled",
		zap.String("order_id", o.ID.String()),
		zap.String("reason", reason),
		zap.Bool("refunded", result.Refunded))
	result.Order = toOrderResponse(o)
	return result, nil
}

// MarkCashCollected records the payment of a contra-entrega order and
// issues its receipt
func (s *Service) MarkCashCollected(ctx context.Context, id uuid.UUID) (*OrderResponse, error) {
	o, err := s.orders.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := o.CollectCash(); err != nil {
		return nil, err
	}
	if err := s.save(ctx, o); err != nil {
		return nil, err
	}
	s.issueReceipt(ctx, o)
	logger.Or(ctx, s.logger).Info("Cash on delivery collected",
		zap.String("order_id", o.ID.String()), zap.String("total", o.Total.StringFixed(2)))
	resp := toOrderResponse(o)
	return &resp, nil
}

// Delete removes a cancelled order with its evidence
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	o, err := s.orders.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if !o.CanDelete() {
		return ErrOrderNotDeletable
	}
	evidence, err := s.orders.FindEvidence(ctx, id)
	if err != nil {
		return err
	}
	if err := s.orders.Delete(ctx, id); err != nil {
		return err
	}
	for _, ev := range evidence {
		s.deleteObject(ctx, ev.ObjectKey)
	}
	o.MarkDeleted()
	s.publish(ctx, o)
	logger.Or(ctx, s.logger).Info("Order deleted", zap.String("order_id", id.String()), zap.String("code", o.Code))
	return nil
}

// UploadEvidence stores a delivery photo for an order
func (s *Service) UploadEvidence(ctx context.Context, id uuid.UUID, data []byte, description string, uploadedBy *uuid.UUID) (*EvidenceResponse, error) {
	o, err := s.orders.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	img, err := imaging.Decode(data)
	if err != nil {
		return nil, ErrInvalidEvidence
	}

	key := fmt.Sprintf("orders/%s/evidence/%s.%s", o.ID, uuid.NewString(), img.Extension)
	if err := s.files.Upload(ctx, key, img.Data, img.ContentType); err != nil {
		return nil, fmt.Errorf("upload evidence: %w", err)
	}
	ev, err := o.AddEvidence(s.files.PublicURL(key), key, description, uploadedBy)
	if err != nil {
		s.deleteObject(ctx, key)
		return nil, err
	}
	if err := s.orders.AddEvidence(ctx, ev); err != nil {
		s.deleteObject(ctx, key)
		return nil, err
	}
	s.publish(ctx, o)

	logger.Or(ctx, s.logger).Info("Order evidence uploaded",
		zap.String("order_id", o.ID.String()), zap.String("key", key))
	resp := toEvidenceResponse(ev)
	return &resp, nil
}

// ListEvidence returns the delivery photos of an order
func (s *Service) ListEvidence(ctx context.Context, id uuid.UUID, requester Requester) ([]EvidenceResponse, error) {
	o, err := s.load(ctx, id, requester)
	if err != nil {
		return nil, err
	}
	evidence, err := s.orders.FindEvidence(ctx, o.ID)
	if err != nil {
		return nil, err
	}
	out := make([]EvidenceResponse, len(evidence))
	for i := range evidence {
		out[i] = toEvidenceResponse(&evidence[i])
	}
	return out, nil
}

func (s *Service) refund(ctx context.Context, o *order.Order, reason string) error {
	log := logger.Or(ctx, s.logger)
	if _, err := s.gateway.RefundPaymentIntent(ctx, o.StripePaymentIntentID, reason); err != nil {
		log.Error("Refund failed, manual action required",
			zap.String("order_id", o.ID.String()),
			zap.String("payment_intent_id", o.StripePaymentIntentID),
			zap.Error(err))
		return err
	}
	if err := o.MarkRefunded(); err != nil {
		return err
	}
	return s.save(ctx, o)
}

func (s *Service) releaseStock(ctx context.Context, o *order.Order) {
	if err := s.orders.ReleaseStock(ctx, o); err != nil {
		logger.Or(ctx, s.logger).Error("Failed to release order stock",
			zap.String("order_id", o.ID.String()), zap.Error(err))
	}
}

// issueReceipt emits the receipt of a paid order. Failures are logged; the
// receipt can be issued again from the admin panel.
func (s *Service) issueReceipt(ctx context.Context, o *order.Order) string {
	if s.receipts == nil {
		return ""
	}
	r, err := s.receipts.IssueForOrder(ctx, o)
	if err != nil {
		logger.Or(ctx, s.logger).Warn("Receipt not issued",
			zap.String("order_id", o.ID.String()), zap.Error(err))
		return ""
	}
	return r.FullNumber()
}

func (s *Service) notifyStatus(ctx context.Context, o *order.Order, comment string) {
	label := o.Status.Label()
	s.notifier.Dispatch(ctx, notification.Message{
		Email:    o.Email,
		Phone:    o.Phone,
		Template: mail.TemplateOrderStatus,
		Vars: map[string]string{
			"name":         o.CustomerName,
			"code":         o.Code,
			"status_label": label,
			"comment":      comment,
			"tracking_url": s.trackingURL(o),
		},
		WhatsApp: fmt.Sprintf("Hola %s, tu pedido %s está %s. %s", o.CustomerName, o.Code, strings.ToLower(label), comment),
	})
}

// load fetches an order and hides it from requesters who do not own it
func (s *Service) load(ctx context.Context, id uuid.UUID, requester Requester) (*order.Order, error) {
	o, err := s.orders.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if requester.Admin {
		return o, nil
	}
	if requester.UserID == nil || !o.BelongsTo(*requester.UserID) {
		return nil, shared.ErrNotFound
	}
	return o, nil
}

func (s *Service) save(ctx context.Context, o *order.Order) error {
	if err := s.orders.Save(ctx, o); err != nil {
		return err
	}
	s.publish(ctx, o)
	return nil
}

func (s *Service) publish(ctx context.Context, o *order.Order) {
	if err := shared.PublishPending(ctx, s.events, o); err != nil {
		logger.Or(ctx, s.logger).Warn("Failed to publish order events", zap.Error(err))
	}
}

func (s *Service) deleteObject(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := s.files.Delete(ctx, key); err != nil {
		logger.Or(ctx, s.logger).Warn("Failed to delete order object", zap.String("key", key), zap.Error(err))
	}
}

func (s *Service) trackingURL(o *order.Order) string {
	return strings.TrimRight(s.config.FrontendURL, "/") + "/pedidos/" + o.Code
}

func isNotFound(err error) bool {
	return errors.Is(err, shared.ErrNotFound)
}

// itemsHTML renders the order lines for email templates
func itemsHTML(o *order.Order) string {
	var b strings.Builder
	b.WriteString(`<table style="width:100%;border-collapse:collapse">`)
	for _, item := range o.Items {
		fmt.Fprintf(&b, `<tr><td style="padding:4px 0">%d x %s</td><td style="text-align:right">%s</td></tr>`,
			item.Quantity, html.EscapeString(item.ProductName), printing.FormatMoney(item.Subtotal))
	}
	if o.ShippingCost.IsPositive() {
		fmt.Fprintf(&b, `<tr><td style="padding:4px 0">Envío</td><td style="text-align:right">%s</td></tr>`,
			printing.FormatMoney(o.ShippingCost))
	}
	b.WriteString(`</table>`)
	return b.String()
}

// shippingFor applies the flat rate below the free shipping threshold
func (s *Service) shippingFor(subtotal decimal.Decimal) decimal.Decimal {
	rules := s.config.Rules
	if rules.FreeShippingFrom.IsPositive() && subtotal.GreaterThanOrEqual(rules.FreeShippingFrom) {
		return decimal.Zero
	}
	return rules.ShippingFlat
}
