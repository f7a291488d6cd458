package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/paymentintent"
	"github.com/stripe/stripe-go/v81/refund"
	"github.com/stripe/stripe-go/v81/webhook"
	"go.uber.org/zap"

	"github.com/induservicios/backend/internal/infrastructure/config"
	"github.com/induservicios/backend/internal/infrastructure/logger"
)

// Stripe event types the store reacts to
const (
	EventPaymentIntentSucceeded = "payment_intent.succeeded"
	EventPaymentIntentFailed    = "payment_intent.payment_failed"
	EventChargeRefunded         = "charge.refunded"
)

var (
	// ErrGatewayDisabled is returned when Stripe is not configured
	ErrGatewayDisabled = errors.New("stripe: payments are not enabled")
	// ErrInvalidSignature is returned when a webhook fails verification
	ErrInvalidSignature = errors.New("stripe: webhook signature verification failed")
)

// PaymentIntentInput describes the intent created for a card order
type PaymentIntentInput struct {
	OrderID     string
	OrderCode   string
	AmountCents int64
	Currency    string
	Email       string
	Description string
}

// PaymentIntent is the subset of a Stripe PaymentIntent handed back to checkout
type PaymentIntent struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
	Status       string `json:"status"`
	AmountCents  int64  `json:"amount"`
	Currency     string `json:"currency"`
}

// Refund is the result of refunding a payment intent
type Refund struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	AmountCents int64  `json:"amount"`
}

// WebhookEvent is a verified Stripe event reduced to what order handling needs
type WebhookEvent struct {
	ID              string
	Type            string
	PaymentIntentID string
	OrderID         string
	FailureMessage  string
	AmountCents     int64
}

// StripeGateway creates payment intents and refunds and verifies webhooks
type StripeGateway struct {
	cfg    config.StripeConfig
	logger *zap.Logger
}

// NewStripeGateway creates a gateway. A disabled config yields a gateway whose
// calls return ErrGatewayDisabled.
func NewStripeGateway(cfg config.StripeConfig, log *zap.Logger) *StripeGateway {
	if cfg.Currency == "" {
		cfg.Currency = "pen"
	}
	cfg.Currency = strings.ToLower(cfg.Currency)
	if cfg.Enabled {
		stripe.Key = cfg.SecretKey
	}
	return &StripeGateway{cfg: cfg, logger: log}
}

// Enabled reports whether card payments are available
func (g *StripeGateway) Enabled() bool {
	return g.cfg.Enabled && g.cfg.SecretKey != ""
}

// PublishableKey returns the key the checkout page uses with Stripe Elements
func (g *StripeGateway) PublishableKey() string {
	return g.cfg.PublishableKey
}

// CreatePaymentIntent creates an intent for the order total. The order ID is
// used as idempotency key so a retried checkout reuses the same intent.
func (g *StripeGateway) CreatePaymentIntent(ctx context.Context, input PaymentIntentInput) (*PaymentIntent, error) {
	if !g.Enabled() {
		return nil, ErrGatewayDisabled
	}
	if input.AmountCents <= 0 {
		return nil, fmt.Errorf("stripe: amount must be positive, got %d", input.AmountCents)
	}
	currency := strings.ToLower(input.Currency)
	if currency == "" {
		currency = g.cfg.Currency
	}

	log := logger.Or(ctx, g.logger)
	log.Debug("Creating Stripe payment intent",
		zap.String("order_code", input.OrderCode),
		zap.Int64("amount", input.AmountCents))

	params := &stripe.PaymentIntentParams{
		Amount:      stripe.Int64(input.AmountCents),
		Currency:    stripe.String(currency),
		Description: stripe.String(input.Description),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	if input.Email != "" {
		params.ReceiptEmail = stripe.String(input.Email)
	}
	params.Context = ctx
	params.AddMetadata("order_id", input.OrderID)
	params.AddMetadata("order_code", input.OrderCode)
	params.SetIdempotencyKey("order-" + input.OrderID)

	pi, err := paymentintent.New(params)
	if err != nil {
		log.Error("Failed to create Stripe payment intent",
			zap.String("order_code", input.OrderCode),
			zap.Error(err))
		return nil, fmt.Errorf("stripe: failed to create payment intent: %w", err)
	}

	log.Info("Created Stripe payment intent",
		zap.String("order_code", input.OrderCode),
		zap.String("payment_intent_id", pi.ID))

	return &PaymentIntent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       string(pi.Status),
		AmountCents:  pi.Amount,
		Currency:     string(pi.Currency),
	}, nil
}

// RefundPaymentIntent refunds the full amount captured by an intent
func (g *StripeGateway) RefundPaymentIntent(ctx context.Context, intentID, reason string) (*Refund, error) {
	if !g.Enabled() {
		return nil, ErrGatewayDisabled
	}

	log := logger.Or(ctx, g.logger)
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(intentID),
		Reason:        stripe.String(string(stripe.RefundReasonRequestedByCustomer)),
	}
	params.Context = ctx
	if reason != "" {
		params.AddMetadata("cancel_reason", reason)
	}
	params.SetIdempotencyKey("refund-" + intentID)

	r, err := refund.New(params)
	if err != nil {
		log.Error("Failed to refund Stripe payment intent",
			zap.String("payment_intent_id", intentID),
			zap.Error(err))
		return nil, fmt.Errorf("stripe: failed to create refund: %w", err)
	}

	log.Info("Refunded Stripe payment intent",
		zap.String("payment_intent_id", intentID),
		zap.String("refund_id", r.ID))

	return &Refund{ID: r.ID, Status: string(r.Status), AmountCents: r.Amount}, nil
}

// ParseWebhook verifies the Stripe-Signature header and decodes the event
func (g *StripeGateway) ParseWebhook(payload []byte, signature string) (*WebhookEvent, error) {
	if g.cfg.WebhookSecret == "" {
		return nil, ErrGatewayDisabled
	}
	event, err := webhook.ConstructEventWithOptions(payload, signature, g.cfg.WebhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	out := &WebhookEvent{ID: event.ID, Type: string(event.Type)}
	switch out.Type {
	case EventPaymentIntentSucceeded, EventPaymentIntentFailed:
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			return nil, fmt.Errorf("stripe: failed to unmarshal payment intent: %w", err)
		}
		out.PaymentIntentID = pi.ID
		out.OrderID = pi.Metadata["order_id"]
		out.AmountCents = pi.Amount
		if pi.LastPaymentError != nil {
			out.FailureMessage = pi.LastPaymentError.Msg
		}
	case EventChargeRefunded:
		var ch stripe.Charge
		if err := json.Unmarshal(event.Data.Raw, &ch); err != nil {
			return nil, fmt.Errorf("stripe: failed to unmarshal charge: %w", err)
		}
		if ch.PaymentIntent != nil {
			out.PaymentIntentID = ch.PaymentIntent.ID
		}
		out.OrderID = ch.Metadata["order_id"]
		out.AmountCents = ch.AmountRefunded
	}
	return out, nil
}
