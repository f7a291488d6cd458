package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/induservicios/backend/internal/domain/catalog"
	"github.com/induservicios/backend/internal/domain/order"
	"github.com/induservicios/backend/internal/domain/receipt"
	"github.com/induservicios/backend/internal/domain/shared"
)

func TestGormReceiptRepository(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewGormReceiptRepository(db)

	p := saveProduct(t, NewGormProductRepository(db), "Bisagra", "118.00", 5)
	o := newOrder(t, "PED-202610-00001", nil, map[*catalog.Product]int{p: 1})
	require.NoError(t, o.MarkPaid())

	issuer := receipt.Issuer{RUC: "20539782232", Name: "Induservicios SAC", BoletaSeries: "B001", FacturaSeries: "F001"}
	rc, err := receipt.New(issuer, o, order.ReceiptTypeBoleta, 1, time.Now())
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, rc))

	t.Run("find by order keeps a valid hash", func(t *testing.T) {
		found, err := repo.FindByOrderID(ctx, o.ID)
		require.NoError(t, err)
		assert.Equal(t, "B001-00000001", found.FullNumber())
		assert.True(t, found.Total.Equal(rc.Total))
	})

	t.Run("one receipt per order", func(t *testing.T) {
		dup, err := receipt.New(issuer, o, order.ReceiptTypeBoleta, 2, time.Now())
		require.NoError(t, err)
		assert.ErrorIs(t, repo.Create(ctx, dup), shared.ErrAlreadyExists)
	})

	t.Run("set pdf key", func(t *testing.T) {
		require.NoError(t, repo.SetPDFKey(ctx, rc.ID, "receipts/B001-00000001.pdf"))
		found, err := repo.FindByID(ctx, rc.ID)
		require.NoError(t, err)
		assert.Equal(t, "receipts/B001-00000001.pdf", found.PDFKey)
	})
}
