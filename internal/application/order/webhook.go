package order

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/induservicios/backend/internal/application/mail"
	"github.com/induservicios/backend/internal/application/notification"
	"github.com/induservicios/backend/internal/domain/order"
	"github.com/induservicios/backend/internal/domain/shared"
	"github.com/induservicios/backend/internal/infrastructure/logger"
	"github.com/induservicios/backend/internal/infrastructure/payment"
	"github.com/induservicios/backend/internal/infrastructure/printing"
	"github.com/induservicios/backend/internal/infrastructure/telemetry"
)

// maxSaveAttempts bounds the reload-and-retry loop on concurrent order writes
const maxSaveAttempts = 3

// ErrInvalidWebhook is returned when a Stripe payload fails verification
var ErrInvalidWebhook = shared.NewDomainError("INVALID_WEBHOOK", "Webhook signature verification failed")

// HandleWebhook verifies and applies a Stripe event. Once the signature is
// valid the event is acknowledged even when applying it fails, failures are
// logged for follow-up.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signature string) (*WebhookResult, error) {
	if s.gateway == nil {
		return nil, ErrPaymentUnavailable
	}
	event, err := s.gateway.ParseWebhook(payload, signature)
	if err != nil {
		if errors.Is(err, payment.ErrGatewayDisabled) {
			return nil, ErrPaymentUnavailable
		}
		logger.Or(ctx, s.logger).Warn("Rejected Stripe webhook", zap.Error(err))
		return nil, ErrInvalidWebhook
	}

	ctx, span := telemetry.StartServiceSpan(ctx, "order", "stripe_webhook", telemetry.AttrStripeEvent, event.Type)
	defer span.End()
	log := logger.Or(ctx, s.logger).With(zap.String("event_id", event.ID), zap.String("event_type", event.Type))

	result := &WebhookResult{EventID: event.ID, EventType: event.Type}
	if s.dedup != nil {
		fresh, err := s.dedup.MarkProcessed(ctx, "stripe:"+event.ID, s.config.WebhookDedupTTL)
		if err != nil {
			log.Warn("Idempotency store unavailable, processing anyway", zap.Error(err))
		} else if !fresh {
			log.Info("Duplicate Stripe event ignored")
			result.Duplicate = true
			return result, nil
		}
	}

	switch event.Type {
	case payment.EventPaymentIntentSucceeded, payment.EventPaymentIntentFailed, payment.EventChargeRefunded:
	default:
		log.Debug("Stripe event ignored")
		return result, nil
	}

	o, err := s.orderForEvent(ctx, event)
	if err != nil {
		telemetry.RecordError(span, err)
		log.Error("No order for Stripe event", zap.String("payment_intent_id", event.PaymentIntentID), zap.Error(err))
		return result, nil
	}
	telemetry.SetAttributes(span, telemetry.AttrOrderID, o.ID.String(), telemetry.AttrOrderCode, o.Code)
	log = log.With(zap.String("order_id", o.ID.String()))

	for attempt := 1; ; attempt++ {
		err = s.applyEvent(ctx, o, event)
		if !errors.Is(err, shared.ErrConcurrencyConflict) || attempt == maxSaveAttempts {
			break
		}
		log.Info("Order changed while applying Stripe event, reloading", zap.Int("attempt", attempt))
		if o, err = s.orders.FindByID(ctx, o.ID); err != nil {
			break
		}
	}
	if err != nil {
		telemetry.RecordError(span, err)
		log.Error("Failed to apply Stripe event", zap.Error(err))
		return result, nil
	}
	result.Handled = true
	log.Info("Stripe event applied",
		zap.String("payment_status", string(o.PaymentStatus)),
		zap.String("status", string(o.Status)))
	return result, nil
}

func (s *Service) applyEvent(ctx context.Context, o *order.Order, event *payment.WebhookEvent) error {
	switch event.Type {
	case payment.EventPaymentIntentSucceeded:
		return s.applyPaymentSucceeded(ctx, o, event)
	case payment.EventPaymentIntentFailed:
		return s.applyPaymentFailed(ctx, o, event)
	case payment.EventChargeRefunded:
		return s.applyRefunded(ctx, o)
	}
	return nil
}

func (s *Service) orderForEvent(ctx context.Context, event *payment.WebhookEvent) (*order.Order, error) {
	if id, err := uuid.Parse(event.OrderID); err == nil {
		o, err := s.orders.FindByID(ctx, id)
		if err == nil || !isNotFound(err) {
			return o, err
		}
	}
	if event.PaymentIntentID == "" {
		return nil, shared.ErrNotFound
	}
	return s.orders.FindByPaymentIntent(ctx, event.PaymentIntentID)
}

func (s *Service) applyPaymentSucceeded(ctx context.Context, o *order.Order, event *payment.WebhookEvent) error {
	if o.PaymentStatus == order.PaymentStatusPagado {
		return nil
	}
	if o.Status == order.StatusCancelado {
		// the customer paid after the order expired: give the money back
		if o.StripePaymentIntentID == "" {
			o.StripePaymentIntentID = event.PaymentIntentID
		}
		o.PaymentStatus = order.PaymentStatusPagado
		return s.refund(ctx, o, "Pedido vencido antes del pago")
	}
	if event.AmountCents != 0 && event.AmountCents != o.AmountInCents() {
		logger.Or(ctx, s.logger).Warn("Stripe amount differs from order total",
			zap.Int64("stripe_amount", event.AmountCents),
			zap.Int64("order_amount", o.AmountInCents()))
	}
	if err := o.MarkPaid(); err != nil {
		return err
	}
	if err := s.save(ctx, o); err != nil {
		return err
	}

	number := s.issueReceipt(ctx, o)
	if number == "" {
		number = "en proceso"
	}
	s.notifier.Dispatch(ctx, notification.Message{
		Email:    o.Email,
		Template: mail.TemplateOrderConfirmation,
		Vars: map[string]string{
			"name":           o.CustomerName,
			"code":           o.Code,
			"items_html":     itemsHTML(o),
			"total":          printing.FormatMoney(o.Total),
			"receipt_number": number,
			"tracking_url":   s.trackingURL(o),
		},
	})
	return nil
}

func (s *Service) applyPaymentFailed(ctx context.Context, o *order.Order, event *payment.WebhookEvent) error {
	if o.PaymentStatus == order.PaymentStatusFallido {
		return nil
	}
	if err := o.MarkPaymentFailed(); err != nil {
		return err
	}
	logger.Or(ctx, s.logger).Info("Card payment failed",
		zap.String("order_id", o.ID.String()), zap.String("reason", event.FailureMessage))
	return s.save(ctx, o)
}

func (s *Service) applyRefunded(ctx context.Context, o *order.Order) error {
	if o.PaymentStatus == order.PaymentStatusReembolsado {
		return nil
	}
	if err := o.MarkRefunded(); err != nil {
		return err
	}
	return s.save(ctx, o)
}

// ExpireUnpaid cancels card orders left unpaid longer than the payment
// timeout and returns their stock. It returns how many were cancelled.
func (s *Service) ExpireUnpaid(ctx context.Context) (int, error) {
	timeout := s.config.Rules.PaymentTimeout
	if timeout <= 0 {
		return 0, nil
	}
	log := logger.Or(ctx, s.logger)

	status := order.StatusPendiente
	method := order.PaymentMethodTarjeta
	cutoff := s.now().Add(-timeout)
	filter := order.Filter{Status: &status, PaymentMethod: &method, To: &cutoff}
	filter.PageSize = 100
	filter.OrderDir = "asc"
	filter.Normalize()

	// collect first: cancelled orders drop out of the filter and would
	// shift the pages
	var stale []order.Order
	for filter.Page = 1; filter.Page <= 10; filter.Page++ {
		batch, total, err := s.orders.FindAll(ctx, filter)
		if err != nil {
			return 0, err
		}
		stale = append(stale, batch...)
		if len(batch) == 0 || int64(filter.Page*filter.PageSize) >= total {
			break
		}
	}

	expired := 0
	for i := range stale {
		o, ok := s.expireOrder(ctx, &stale[i])
		if !ok {
			continue
		}
		s.releaseStock(ctx, o)
		expired++
	}
	if expired > 0 {
		log.Info("Expired unpaid card orders",
			zap.Int("count", expired), zap.Duration("timeout", timeout), zap.Time("cutoff", cutoff.Truncate(time.Second)))
	}
	return expired, nil
}

// expireOrder cancels an unpaid card order. When the order changed since it
// was listed (a payment landing meanwhile) it is reloaded and checked again.
func (s *Service) expireOrder(ctx context.Context, o *order.Order) (*order.Order, bool) {
	log := logger.Or(ctx, s.logger).With(zap.String("order_id", o.ID.String()))
	for attempt := 1; ; attempt++ {
		if o.Status != order.StatusPendiente || o.PaymentStatus == order.PaymentStatusPagado {
			return o, false
		}
		if err := o.Cancel("Pago no completado a tiempo"); err != nil {
			return o, false
		}
		err := s.save(ctx, o)
		if err == nil {
			return o, true
		}
		if !errors.Is(err, shared.ErrConcurrencyConflict) || attempt == maxSaveAttempts {
			log.Warn("Failed to expire order", zap.Error(err))
			return o, false
		}
		if o, err = s.orders.FindByID(ctx, o.ID); err != nil {
			log.Warn("Failed to reload order", zap.Error(err))
			return o, false
		}
	}
}
