package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/form"
	"github.com/stripe/stripe-go/v81/webhook"
	"go.uber.org/zap"

	"github.com/induservicios/backend/internal/infrastructure/config"
)

// mockBackend implements stripe.Backend for testing
type mockBackend struct {
	handler func(method, path string, params stripe.ParamsContainer) ([]byte, error)
}

func (m *mockBackend) Call(method, path, key string, params stripe.ParamsContainer, v stripe.LastResponseSetter) error {
	data, err := m.handler(method, path, params)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

func (m *mockBackend) CallStreaming(method, path, key string, params stripe.ParamsContainer, v stripe.StreamingLastResponseSetter) error {
	return nil
}

func (m *mockBackend) CallRaw(method, path, key string, body *form.Values, params *stripe.Params, v stripe.LastResponseSetter) error {
	return nil
}

func (m *mockBackend) CallMultipart(method, path, key, boundary string, body *bytes.Buffer, params *stripe.Params, v stripe.LastResponseSetter) error {
	return nil
}

func (m *mockBackend) SetMaxNetworkRetries(maxNetworkRetries int64) {}

func setupMockBackend(t *testing.T, handler func(method, path string, params stripe.ParamsContainer) ([]byte, error)) {
	t.Helper()
	stripe.SetBackend(stripe.APIBackend, &mockBackend{handler: handler})
	t.Cleanup(func() { stripe.SetBackend(stripe.APIBackend, nil) })
}

const testWebhookSecret = "whsec_test_123456789"

func newTestGateway() *StripeGateway {
	return NewStripeGateway(config.StripeConfig{
		Enabled:        true,
		SecretKey:      "sk_test_123456789",
		PublishableKey: "pk_test_123456789",
		WebhookSecret:  testWebhookSecret,
		Currency:       "PEN",
	}, zap.NewNop())
}

func TestStripeGateway_Disabled(t *testing.T) {
	g := NewStripeGateway(config.StripeConfig{}, zap.NewNop())
	assert.False(t, g.Enabled())

	_, err := g.CreatePaymentIntent(context.Background(), PaymentIntentInput{AmountCents: 100})
	assert.ErrorIs(t, err, ErrGatewayDisabled)

	_, err = g.RefundPaymentIntent(context.Background(), "pi_1", "")
	assert.ErrorIs(t, err, ErrGatewayDisabled)

	_, err = g.ParseWebhook([]byte(`{}`), "t=1,v1=abc")
	assert.ErrorIs(t, err, ErrGatewayDisabled)
}

func TestStripeGateway_CreatePaymentIntent(t *testing.T) {
	g := newTestGateway()

	var captured *stripe.PaymentIntentParams
	setupMockBackend(t, func(method, path string, params stripe.ParamsContainer) ([]byte, error) {
		if method == "POST" && path == "/v1/payment_intents" {
			captured = params.(*stripe.PaymentIntentParams)
			return json.Marshal(&stripe.PaymentIntent{
				ID:           "pi_test123",
				ClientSecret: "pi_test123_secret_abc",
				Status:       stripe.PaymentIntentStatusRequiresPaymentMethod,
				Amount:       *captured.Amount,
				Currency:     stripe.Currency(*captured.Currency),
			})
		}
		return nil, fmt.Errorf("unexpected call: %s %s", method, path)
	})

	pi, err := g.CreatePaymentIntent(context.Background(), PaymentIntentInput{
		OrderID:     "2b0c7f2e-1111-4d2a-9d7e-0a2c1a6b3c4d",
		OrderCode:   "PED-202610-00001",
		AmountCents: 15990,
		Email:       "ana@example.com",
		Description: "Pedido PED-202610-00001",
	})
	require.NoError(t, err)

	assert.Equal(t, "pi_test123", pi.ID)
	assert.Equal(t, "pi_test123_secret_abc", pi.ClientSecret)
	assert.Equal(t, int64(15990), pi.AmountCents)
	assert.Equal(t, "pen", pi.Currency)

	require.NotNil(t, captured)
	assert.Equal(t, "PED-202610-00001", captured.Metadata["order_code"])
	assert.Equal(t, "2b0c7f2e-1111-4d2a-9d7e-0a2c1a6b3c4d", captured.Metadata["order_id"])
	assert.Equal(t, "order-2b0c7f2e-1111-4d2a-9d7e-0a2c1a6b3c4d", *captured.IdempotencyKey)
	assert.Equal(t, "ana@example.com", *captured.ReceiptEmail)
}

func TestStripeGateway_CreatePaymentIntent_Errors(t *testing.T) {
	g := newTestGateway()

	_, err := g.CreatePaymentIntent(context.Background(), PaymentIntentInput{AmountCents: 0})
	assert.Error(t, err)

	setupMockBackend(t, func(method, path string, params stripe.ParamsContainer) ([]byte, error) {
		return nil, &stripe.Error{Code: stripe.ErrorCodeAmountTooSmall, Msg: "Amount must be at least S/ 2.00"}
	})
	_, err = g.CreatePaymentIntent(context.Background(), PaymentIntentInput{OrderID: "x", AmountCents: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create payment intent")
}

func TestStripeGateway_RefundPaymentIntent(t *testing.T) {
	g := newTestGateway()

	setupMockBackend(t, func(method, path string, params stripe.ParamsContainer) ([]byte, error) {
		if method == "POST" && path == "/v1/refunds" {
			p := params.(*stripe.RefundParams)
			assert.Equal(t, "pi_paid", *p.PaymentIntent)
			assert.Equal(t, "cliente desistió", p.Metadata["cancel_reason"])
			return json.Marshal(&stripe.Refund{ID: "re_1", Status: stripe.RefundStatusSucceeded, Amount: 15990})
		}
		return nil, fmt.Errorf("unexpected call: %s %s", method, path)
	})

	r, err := g.RefundPaymentIntent(context.Background(), "pi_paid", "cliente desistió")
	require.NoError(t, err)
	assert.Equal(t, "re_1", r.ID)
	assert.Equal(t, "succeeded", r.Status)
	assert.Equal(t, int64(15990), r.AmountCents)
}

func signedPayload(t *testing.T, secret string, event map[string]any) ([]byte, string) {
	t.Helper()
	payload, err := json.Marshal(event)
	require.NoError(t, err)
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    secret,
		Timestamp: time.Now(),
	})
	return signed.Payload, signed.Header
}

func TestStripeGateway_ParseWebhook(t *testing.T) {
	g := newTestGateway()

	t.Run("payment intent succeeded", func(t *testing.T) {
		payload, header := signedPayload(t, testWebhookSecret, map[string]any{
			"id":     "evt_1",
			"object": "event",
			"type":   EventPaymentIntentSucceeded,
			"data": map[string]any{"object": map[string]any{
				"id":       "pi_123",
				"object":   "payment_intent",
				"amount":   15990,
				"metadata": map[string]string{"order_id": "order-uuid"},
			}},
		})

		ev, err := g.ParseWebhook(payload, header)
		require.NoError(t, err)
		assert.Equal(t, "evt_1", ev.ID)
		assert.Equal(t, EventPaymentIntentSucceeded, ev.Type)
		assert.Equal(t, "pi_123", ev.PaymentIntentID)
		assert.Equal(t, "order-uuid", ev.OrderID)
		assert.Equal(t, int64(15990), ev.AmountCents)
	})

	t.Run("payment failed carries message", func(t *testing.T) {
		payload, header := signedPayload(t, testWebhookSecret, map[string]any{
			"id":   "evt_2",
			"type": EventPaymentIntentFailed,
			"data": map[string]any{"object": map[string]any{
				"id":                 "pi_456",
				"last_payment_error": map[string]any{"message": "Your card was declined."},
			}},
		})

		ev, err := g.ParseWebhook(payload, header)
		require.NoError(t, err)
		assert.Equal(t, "pi_456", ev.PaymentIntentID)
		assert.Equal(t, "Your card was declined.", ev.FailureMessage)
	})

	t.Run("charge refunded", func(t *testing.T) {
		payload, header := signedPayload(t, testWebhookSecret, map[string]any{
			"id":   "evt_3",
			"type": EventChargeRefunded,
			"data": map[string]any{"object": map[string]any{
				"id":              "ch_1",
				"object":          "charge",
				"payment_intent":  "pi_789",
				"amount_refunded": 500,
			}},
		})

		ev, err := g.ParseWebhook(payload, header)
		require.NoError(t, err)
		assert.Equal(t, "pi_789", ev.PaymentIntentID)
		assert.Equal(t, int64(500), ev.AmountCents)
	})

	t.Run("wrong secret", func(t *testing.T) {
		payload, header := signedPayload(t, "whsec_other", map[string]any{"id": "evt_4", "type": "x"})
		_, err := g.ParseWebhook(payload, header)
		assert.ErrorIs(t, err, ErrInvalidSignature)
	})
}
