package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	orderapp "github.com/induservicios/backend/internal/application/order"
	"github.com/induservicios/backend/internal/interfaces/http/dto"
)

// Stripe payloads are small; anything larger is rejected before verification
const maxWebhookPayloadSize = 64 << 10

// WebhookProcessor verifies and applies Stripe events
type WebhookProcessor interface {
	HandleWebhook(ctx context.Context, payload []byte, signature string) (*orderapp.WebhookResult, error)
}

// WebhookHandler receives Stripe webhooks. It runs without authentication;
// the signature is the credential.
type WebhookHandler struct {
	BaseHandler
	processor WebhookProcessor
}

// NewWebhookHandler creates a new WebhookHandler
func NewWebhookHandler(processor WebhookProcessor) *WebhookHandler {
	return &WebhookHandler{processor: processor}
}

// RegisterRoutes mounts the webhook route
func (h *WebhookHandler) RegisterRoutes(public gin.IRoutes) {
	public.POST("/webhooks/stripe", h.Stripe)
}

// WebhookResponse acknowledges a Stripe delivery
type WebhookResponse struct {
	Received  bool   `json:"received"`
	EventID   string `json:"event_id,omitempty"`
	EventType string `json:"event_type,omitempty"`
	Duplicate bool   `json:"duplicate,omitempty"`
}

// Stripe handles POST /webhooks/stripe. A verified event answers 200 even
// when applying it failed so Stripe stops retrying it.
func (h *WebhookHandler) Stripe(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookPayloadSize+1))
	if err != nil {
		h.BadRequest(c, "Failed to read request body")
		return
	}
	if len(payload) > maxWebhookPayloadSize {
		h.Error(c, http.StatusRequestEntityTooLarge, dto.ErrCodeRequestTooLarge, "Payload too large")
		return
	}

	signature := c.GetHeader("Stripe-Signature")
	if signature == "" {
		h.BadRequest(c, "Missing Stripe-Signature header")
		return
	}

	result, err := h.processor.HandleWebhook(c.Request.Context(), payload, signature)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, WebhookResponse{
		Received:  true,
		EventID:   result.EventID,
		EventType: result.EventType,
		Duplicate: result.Duplicate,
	})
}
