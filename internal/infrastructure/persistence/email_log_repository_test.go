package persistence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/induservicios/backend/internal/domain/mail"
)

func TestGormEmailLogRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewGormEmailLogRepository(newTestDB(t))

	sent := mail.NewEmailLog("ana@example.com", "Bienvenida", "welcome", "<p>Hola</p>")
	sent.MarkSent("resend", "msg-1", 1)
	require.NoError(t, repo.Save(ctx, sent))

	for i := 0; i < 3; i++ {
		failed := mail.NewEmailLog("luis@example.com", "Pedido", "order_confirmation", "<p>x</p>")
		failed.MarkFailed("smtp", 3, errors.New("connection refused"))
		require.NoError(t, repo.Save(ctx, failed))
	}

	t.Run("counts exclude alerts", func(t *testing.T) {
		alert := mail.NewEmailLog("admin@example.com", "Alerta", "alert", "")
		alert.IsAlert = true
		alert.MarkFailed("smtp", 1, errors.New("down"))
		require.NoError(t, repo.Save(ctx, alert))

		n, err := repo.CountByStatusSince(ctx, mail.DeliveryFailed, time.Now().Add(-time.Hour))
		require.NoError(t, err)
		assert.Equal(t, int64(3), n)

		n, err = repo.CountByStatusSince(ctx, mail.DeliverySent, time.Now().Add(-time.Hour))
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		last, err := repo.LastAlertAt(ctx)
		require.NoError(t, err)
		require.NotNil(t, last)
	})

	t.Run("list filters and hides body", func(t *testing.T) {
		status := mail.DeliveryFailed
		logs, total, err := repo.FindAll(ctx, mail.LogFilter{Status: &status, To: "luis@example.com"})
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
		assert.Len(t, logs, 3)
		assert.Empty(t, logs[0].HTML)

		logs, total, err = repo.FindAll(ctx, mail.LogFilter{Template: "welcome"})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		assert.Equal(t, sent.ID, logs[0].ID)
	})

	t.Run("find by id keeps body for resend", func(t *testing.T) {
		found, err := repo.FindByID(ctx, sent.ID)
		require.NoError(t, err)
		assert.Equal(t, "<p>Hola</p>", found.HTML)
	})
}

func TestGormEmailLogRepository_NoAlerts(t *testing.T) {
	repo := NewGormEmailLogRepository(newTestDB(t))

	last, err := repo.LastAlertAt(context.Background())
	require.NoError(t, err)
	assert.Nil(t, last)
}
