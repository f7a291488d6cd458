package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/induservicios/backend/internal/domain/quote"
	"github.com/induservicios/backend/internal/domain/shared"
)

func newQuote(t *testing.T, code, email string) *quote.Quote {
	t.Helper()
	q, err := quote.NewQuote(code, quote.Contact{
		Name:  "Carlos Ruiz",
		Email: email,
		Phone: "987654321",
	}, "Estructuras metálicas", "Techo parabólico para almacén de 200 m2", 1)
	require.NoError(t, err)
	return q
}

func TestGormQuoteRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewGormQuoteRepository(newTestDB(t))

	userID := uuid.New()
	mine := newQuote(t, "COT-202610-00001", "carlos@example.com")
	mine.UserID = &userID
	require.NoError(t, repo.Save(ctx, mine))

	guest := newQuote(t, "COT-202610-00002", "carlos@example.com")
	require.NoError(t, repo.Save(ctx, guest))

	other := newQuote(t, "COT-202610-00003", "otra@example.com")
	require.NoError(t, repo.Save(ctx, other))

	t.Run("find by code", func(t *testing.T) {
		found, err := repo.FindByCode(ctx, "COT-202610-00002")
		require.NoError(t, err)
		assert.Equal(t, guest.ID, found.ID)

		_, err = repo.FindByCode(ctx, "COT-000000-00000")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("owner filter matches user or email", func(t *testing.T) {
		quotes, total, err := repo.FindAll(ctx, quote.Filter{UserID: &userID, Email: "carlos@example.com"})
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		assert.Len(t, quotes, 2)
	})

	t.Run("status change appends progress", func(t *testing.T) {
		update, err := mine.ChangeStatus(quote.StatusEnProceso, "", nil)
		require.NoError(t, err)
		require.NoError(t, repo.SaveWithProgress(ctx, mine, update))

		found, err := repo.FindByID(ctx, mine.ID)
		require.NoError(t, err)
		assert.Equal(t, quote.StatusEnProceso, found.Status)
		assert.Equal(t, 25, found.Progress)

		status := quote.StatusEnProceso
		_, total, err := repo.FindAll(ctx, quote.Filter{Status: &status})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)

		log, err := repo.FindByQuote(ctx, mine.ID)
		require.NoError(t, err)
		require.Len(t, log, 1)
		assert.False(t, log[0].NotifiedEmail)

		require.NoError(t, repo.MarkNotified(ctx, log[0].ID, true, false))
		log, err = repo.FindByQuote(ctx, mine.ID)
		require.NoError(t, err)
		assert.True(t, log[0].NotifiedEmail)
		assert.False(t, log[0].NotifiedWhatsApp)
	})

	t.Run("date range", func(t *testing.T) {
		from := time.Now().Add(time.Hour)
		_, total, err := repo.FindAll(ctx, quote.Filter{From: &from})
		require.NoError(t, err)
		assert.Zero(t, total)
	})

	t.Run("delete removes progress log", func(t *testing.T) {
		require.NoError(t, repo.Delete(ctx, mine.ID))
		log, err := repo.FindByQuote(ctx, mine.ID)
		require.NoError(t, err)
		assert.Empty(t, log)
		assert.ErrorIs(t, repo.Delete(ctx, mine.ID), shared.ErrNotFound)
	})
}
