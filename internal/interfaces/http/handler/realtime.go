package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/induservicios/backend/internal/infrastructure/logger"
	"github.com/induservicios/backend/internal/infrastructure/realtime"
	"github.com/induservicios/backend/internal/interfaces/http/middleware"
)

// RealtimeHub registers SSE listeners
type RealtimeHub interface {
	Register(ns realtime.Namespace, userID string) (*realtime.Client, error)
	Unregister(c *realtime.Client)
}

// RealtimeHandler streams domain events over Server-Sent Events
type RealtimeHandler struct {
	BaseHandler
	hub RealtimeHub
	now func() time.Time
}

// NewRealtimeHandler creates a new RealtimeHandler
func NewRealtimeHandler(hub RealtimeHub) *RealtimeHandler {
	return &RealtimeHandler{hub: hub, now: time.Now}
}

// RegisterRoutes mounts the streams. admin must accept the token in the
// query string since EventSource cannot send headers.
func (h *RealtimeHandler) RegisterRoutes(public, admin gin.IRoutes) {
	public.GET("/realtime/public", h.PublicStream)
	admin.GET("/admin/realtime", h.AdminStream)
}

// PublicStream sends catalog changes and status updates stripped of
// customer data
func (h *RealtimeHandler) PublicStream(c *gin.Context) {
	h.stream(c, realtime.NamespacePublic)
}

// AdminStream sends every domain event
func (h *RealtimeHandler) AdminStream(c *gin.Context) {
	h.stream(c, realtime.NamespaceAdmin)
}

func (h *RealtimeHandler) stream(c *gin.Context, ns realtime.Namespace) {
	client, err := h.hub.Register(ns, middleware.GetJWTUserID(c))
	if err != nil {
		if errors.Is(err, realtime.ErrTooManyClients) {
			h.Error(c, http.StatusServiceUnavailable, "MAX_CONNECTIONS_REACHED", "Maximum number of realtime connections reached")
			return
		}
		h.HandleError(c, err)
		return
	}
	defer h.hub.Unregister(client)

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	log := logger.L(c.Request.Context())
	log.Debug("Realtime stream opened",
		zap.String("client_id", client.ID),
		zap.String("namespace", string(ns)))

	hello := realtime.Message{
		Event:     "connected",
		Entity:    "system",
		Action:    "connected",
		Data:      gin.H{"client_id": client.ID},
		Timestamp: h.now(),
	}
	if err := realtime.WriteSSE(c.Writer, hello); err != nil {
		return
	}
	c.Writer.Flush()

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			log.Debug("Realtime stream closed by client", zap.String("client_id", client.ID))
			return
		case msg, ok := <-client.Messages():
			if !ok {
				return
			}
			if err := realtime.WriteSSE(c.Writer, msg); err != nil {
				log.Debug("Realtime write failed", zap.String("client_id", client.ID), zap.Error(err))
				return
			}
			c.Writer.Flush()
		}
	}
}
