package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/induservicios/backend/internal/domain/identity"
	"github.com/induservicios/backend/internal/infrastructure/config"
	"github.com/induservicios/backend/internal/infrastructure/realtime"
)

func setupRealtimeHandler(maxClients int) (*realtime.Hub, *gin.Engine) {
	hub := realtime.NewHub(config.RealtimeConfig{
		MaxClients:        maxClients,
		BufferSize:        8,
		HeartbeatInterval: time.Hour,
	}, zap.NewNop())
	r, public, _, admin := testRoutes(uuid.New(), identity.RoleAdmin)
	NewRealtimeHandler(hub).RegisterRoutes(public, admin)
	return hub, r
}

func TestRealtimeHandler_PublicStream(t *testing.T) {
	hub, r := setupRealtimeHandler(10)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/realtime/public", nil).WithContext(ctx)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		r.ServeHTTP(w, req)
		close(done)
	}()

	require.Eventually(t, func() bool {
		return hub.ClientCount(realtime.NamespacePublic) == 1
	}, time.Second, 5*time.Millisecond)

	hub.Broadcast(realtime.NamespacePublic, realtime.Message{
		Event:  "catalog.product.updated",
		Entity: "product",
		Action: "updated",
		ID:     "p-1",
	})
	hub.Broadcast(realtime.NamespaceAdmin, realtime.Message{Event: "order.paid"})
	// Stop closes the client channel after the buffered message
	hub.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("stream did not end")
	}

	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	body := w.Body.String()
	assert.Contains(t, body, "event: connected\n")
	assert.Contains(t, body, "event: catalog.product.updated\nid: p-1\n")
	assert.NotContains(t, body, "order.paid")
	assert.Equal(t, 0, hub.ClientCount(realtime.NamespacePublic))
}

func TestRealtimeHandler_ClientDisconnect(t *testing.T) {
	hub, r := setupRealtimeHandler(10)
	defer hub.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/admin/realtime", nil).WithContext(ctx)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		r.ServeHTTP(w, req)
		close(done)
	}()

	require.Eventually(t, func() bool {
		return hub.ClientCount(realtime.NamespaceAdmin) == 1
	}, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("stream did not end")
	}
	assert.Equal(t, 0, hub.ClientCount(realtime.NamespaceAdmin))
}

func TestRealtimeHandler_TooManyClients(t *testing.T) {
	hub, r := setupRealtimeHandler(1)
	defer hub.Stop()

	_, err := hub.Register(realtime.NamespacePublic, "")
	require.NoError(t, err)

	w := doRequest(r, http.MethodGet, "/realtime/public", nil)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "MAX_CONNECTIONS_REACHED", errorCodeOf(t, w))
}
