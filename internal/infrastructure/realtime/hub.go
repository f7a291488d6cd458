// Package realtime fans domain events out to Server-Sent Events clients.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/induservicios/backend/internal/domain/catalog"
	"github.com/induservicios/backend/internal/domain/order"
	"github.com/induservicios/backend/internal/domain/quote"
	"github.com/induservicios/backend/internal/domain/shared"
	"github.com/induservicios/backend/internal/infrastructure/config"
)

// Namespace separates admin and public listeners
type Namespace string

const (
	NamespaceAdmin  Namespace = "admin"
	NamespacePublic Namespace = "public"
)

// ErrTooManyClients is returned by Register when a namespace is full
var ErrTooManyClients = errors.New("realtime: maximum number of clients reached")

// Message is a single SSE frame payload
type Message struct {
	Event     string    `json:"event"`
	Entity    string    `json:"entity"`
	Action    string    `json:"action"`
	ID        string    `json:"id,omitempty"`
	Data      any       `json:"data,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Client is one connected SSE stream
type Client struct {
	ID        string
	Namespace Namespace
	UserID    string

	ch      chan Message
	dropped int
}

// Messages returns the channel the stream loop reads from. It is closed
// when the client is unregistered or the hub stops.
func (c *Client) Messages() <-chan Message {
	return c.ch
}

// Hub keeps the connected clients per namespace
type Hub struct {
	logger     *zap.Logger
	maxClients int
	bufferSize int
	heartbeat  time.Duration

	mu      sync.RWMutex
	clients map[Namespace]map[string]*Client
	stopped bool

	ctx    context.Context
	cancel context.CancelFunc
}

// NewHub creates a hub from realtime settings
func NewHub(cfg config.RealtimeConfig, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Hub{
		logger:     logger,
		maxClients: cfg.MaxClients,
		bufferSize: cfg.BufferSize,
		heartbeat:  cfg.HeartbeatInterval,
		clients: map[Namespace]map[string]*Client{
			NamespaceAdmin:  {},
			NamespacePublic: {},
		},
	}
	if h.bufferSize <= 0 {
		h.bufferSize = 16
	}
	if h.heartbeat <= 0 {
		h.heartbeat = 30 * time.Second
	}
	h.ctx, h.cancel = context.WithCancel(context.Background())
	return h
}

// Start launches the heartbeat loop
func (h *Hub) Start() {
	go h.heartbeatLoop()
	h.logger.Info("realtime hub started", zap.Duration("heartbeat", h.heartbeat))
}

// Stop closes every client stream
func (h *Hub) Stop() {
	h.cancel()

	h.mu.Lock()
	defer h.mu.Unlock()
	h.stopped = true
	for ns, clients := range h.clients {
		for id, c := range clients {
			close(c.ch)
			delete(clients, id)
		}
		h.clients[ns] = clients
	}
	h.logger.Info("realtime hub stopped")
}

// Register adds a client to a namespace
func (h *Hub) Register(ns Namespace, userID string) (*Client, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients, ok := h.clients[ns]
	if !ok {
		return nil, fmt.Errorf("realtime: unknown namespace %q", ns)
	}
	if h.stopped {
		return nil, errors.New("realtime: hub stopped")
	}
	if h.maxClients > 0 && len(clients) >= h.maxClients {
		return nil, ErrTooManyClients
	}

	c := &Client{
		ID:        uuid.New().String(),
		Namespace: ns,
		UserID:    userID,
		ch:        make(chan Message, h.bufferSize),
	}
	clients[c.ID] = c
	h.logger.Debug("realtime client connected",
		zap.String("client_id", c.ID),
		zap.String("namespace", string(ns)),
		zap.Int("clients", len(clients)))
	return c, nil
}

// Unregister removes a client and closes its channel
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c.Namespace][c.ID]; !ok {
		return
	}
	delete(h.clients[c.Namespace], c.ID)
	close(c.ch)
	h.logger.Debug("realtime client disconnected",
		zap.String("client_id", c.ID),
		zap.Int("dropped", c.dropped))
}

// ClientCount returns the number of clients in a namespace
func (h *Hub) ClientCount(ns Namespace) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[ns])
}

// Broadcast sends a message to every client of a namespace. Clients whose
// buffer is full miss the message.
func (h *Hub) Broadcast(ns Namespace, msg Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, c := range h.clients[ns] {
		select {
		case c.ch <- msg:
		default:
			c.dropped++
			h.logger.Warn("realtime client buffer full, dropping message",
				zap.String("client_id", c.ID),
				zap.String("event", msg.Event))
		}
	}
}

// Handle implements shared.EventHandler. Admin clients get every event;
// public clients get the stripped projection when one exists.
func (h *Hub) Handle(ctx context.Context, event shared.DomainEvent) error {
	entity, action := splitEventType(event.EventType())
	base := Message{
		Event:     event.EventType(),
		Entity:    entity,
		Action:    action,
		ID:        event.AggregateID().String(),
		Timestamp: event.OccurredAt(),
	}

	admin := base
	admin.Data = event
	h.Broadcast(NamespaceAdmin, admin)

	if data, ok := PublicProjection(event); ok {
		public := base
		public.Data = data
		h.Broadcast(NamespacePublic, public)
	}
	return nil
}

// EventTypes subscribes the hub to every event
func (h *Hub) EventTypes() []string {
	return nil
}

// PublicProjection returns the payload anonymous listeners may see.
// Catalog events of active products and categories are public as-is;
// inactive ones stay in the admin namespace. Quote and order status
// changes are reduced to code and status.
func PublicProjection(event shared.DomainEvent) (any, bool) {
	switch e := event.(type) {
	case *catalog.ProductEvent:
		return e, e.IsActive
	case *catalog.CategoryEvent:
		return e, e.IsActive
	case *catalog.StockChangedEvent:
		return e, e.IsActive
	case *quote.QuoteStatusChangedEvent:
		return map[string]any{
			"code":     e.Code,
			"status":   e.Status,
			"progress": e.Progress,
		}, true
	case *order.OrderStatusChangedEvent:
		return map[string]any{
			"code":           e.Code,
			"status":         e.Status,
			"payment_status": e.PaymentStatus,
		}, true
	default:
		return nil, false
	}
}

func (h *Hub) heartbeatLoop() {
	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-h.ctx.Done():
			return
		case now := <-ticker.C:
			msg := Message{Event: "heartbeat", Entity: "system", Action: "heartbeat", Timestamp: now}
			h.Broadcast(NamespaceAdmin, msg)
			h.Broadcast(NamespacePublic, msg)
		}
	}
}

// "catalog.product.created" -> ("product", "created"); "order.paid" -> ("order", "paid")
func splitEventType(eventType string) (entity, action string) {
	parts := strings.Split(eventType, ".")
	if len(parts) < 2 {
		return eventType, ""
	}
	return parts[len(parts)-2], parts[len(parts)-1]
}

// WriteSSE writes one event-stream frame
func WriteSSE(w io.Writer, msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("realtime: encode message: %w", err)
	}
	if msg.Event != "" {
		if _, err := fmt.Fprintf(w, "event: %s\n", msg.Event); err != nil {
			return err
		}
	}
	if msg.ID != "" {
		if _, err := fmt.Fprintf(w, "id: %s\n", msg.ID); err != nil {
			return err
		}
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", data)
	return err
}

var _ shared.EventHandler = (*Hub)(nil)
