package handler

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	orderapp "github.com/induservicios/backend/internal/application/order"
)

type MockWebhookProcessor struct {
	mock.Mock
}

func (m *MockWebhookProcessor) HandleWebhook(ctx context.Context, payload []byte, signature string) (*orderapp.WebhookResult, error) {
	args := m.Called(ctx, payload, signature)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*orderapp.WebhookResult), args.Error(1)
}

func setupWebhookHandler() (*MockWebhookProcessor, *gin.Engine) {
	proc := new(MockWebhookProcessor)
	r := gin.New()
	NewWebhookHandler(proc).RegisterRoutes(r)
	return proc, r
}

func postWebhook(r http.Handler, payload []byte, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", bytes.NewReader(payload))
	if signature != "" {
		req.Header.Set("Stripe-Signature", signature)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestWebhookHandler_Stripe(t *testing.T) {
	proc, r := setupWebhookHandler()
	payload := []byte(`{"id":"evt_1","type":"payment_intent.succeeded"}`)
	proc.On("HandleWebhook", mock.Anything, payload, "t=1,v1=abc").Return(&orderapp.WebhookResult{
		EventID:   "evt_1",
		EventType: "payment_intent.succeeded",
		Handled:   true,
	}, nil)

	w := postWebhook(r, payload, "t=1,v1=abc")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"received":true,"event_id":"evt_1","event_type":"payment_intent.succeeded"}`, w.Body.String())
}

func TestWebhookHandler_Duplicate(t *testing.T) {
	proc, r := setupWebhookHandler()
	proc.On("HandleWebhook", mock.Anything, mock.Anything, mock.Anything).
		Return(&orderapp.WebhookResult{EventID: "evt_1", EventType: "payment_intent.succeeded", Duplicate: true}, nil)

	w := postWebhook(r, []byte(`{}`), "sig")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"duplicate":true`)
}

func TestWebhookHandler_Rejections(t *testing.T) {
	tests := []struct {
		name      string
		payload   []byte
		signature string
		err       error
		status    int
	}{
		{"missing signature", []byte(`{}`), "", nil, http.StatusBadRequest},
		{"too large", bytes.Repeat([]byte("a"), maxWebhookPayloadSize+1), "sig", nil, http.StatusRequestEntityTooLarge},
		{"bad signature", []byte(`{}`), "sig", orderapp.ErrInvalidWebhook, http.StatusBadRequest},
		{"stripe disabled", []byte(`{}`), "sig", orderapp.ErrPaymentUnavailable, http.StatusServiceUnavailable},
		{"unexpected", []byte(`{}`), "sig", errors.New("db down"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			proc, r := setupWebhookHandler()
			if tt.err != nil {
				proc.On("HandleWebhook", mock.Anything, mock.Anything, mock.Anything).Return(nil, tt.err)
			}

			w := postWebhook(r, tt.payload, tt.signature)

			assert.Equal(t, tt.status, w.Code)
			if tt.err == nil {
				proc.AssertNotCalled(t, "HandleWebhook", mock.Anything, mock.Anything, mock.Anything)
			}
		})
	}
}
