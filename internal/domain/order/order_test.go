package order

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/induservicios/backend/internal/domain/identity"
	"github.com/induservicios/backend/internal/domain/shared"
)

func testCustomer() Customer {
	return Customer{
		Name:            "María Torres",
		Email:           "maria@example.com",
		Phone:           "987654321",
		DocumentType:    identity.DocumentTypeDNI,
		DocumentNumber:  "12345678",
		ShippingAddress: "Jr. Los Pinos 456",
		District:        "Surco",
		City:            "Lima",
	}
}

func newTestOrder(t *testing.T, method PaymentMethod) *Order {
	t.Helper()
	productA := uuid.New()
	o, err := NewOrder("PED-202610-00001", testCustomer(), []LineInput{
		{ProductID: productA, ProductName: "Bisagra", UnitPrice: decimal.RequireFromString("12.50"), Quantity: 2},
		{ProductID: uuid.New(), ProductName: "Candado", UnitPrice: decimal.RequireFromString("45.90"), Quantity: 1},
		{ProductID: productA, ProductName: "Bisagra", UnitPrice: decimal.RequireFromString("12.50"), Quantity: 1},
	}, decimal.NewFromInt(15), method, ReceiptTypeBoleta)
	require.NoError(t, err)
	return o
}

func TestNewOrder(t *testing.T) {
	o := newTestOrder(t, PaymentMethodTarjeta)

	require.Len(t, o.Items, 2, "repeated products are merged")
	assert.Equal(t, 3, o.Items[0].Quantity)
	assert.True(t, o.Items[0].Subtotal.Equal(decimal.RequireFromString("37.50")))
	assert.True(t, o.Subtotal.Equal(decimal.RequireFromString("83.40")))
	assert.True(t, o.Total.Equal(decimal.RequireFromString("98.40")))
	assert.Equal(t, int64(9840), o.AmountInCents())
	assert.Equal(t, 4, o.ItemCount())
	assert.Equal(t, StatusPendiente, o.Status)
	assert.Equal(t, PaymentStatusPendiente, o.PaymentStatus)
	assert.Equal(t, DefaultCurrency, o.Currency)
	for _, item := range o.Items {
		assert.Equal(t, o.ID, item.OrderID)
	}
	require.Len(t, o.GetDomainEvents(), 1)
}

func TestNewOrder_Validation(t *testing.T) {
	line := []LineInput{{ProductID: uuid.New(), ProductName: "X", UnitPrice: decimal.NewFromInt(1), Quantity: 1}}

	t.Run("factura requires ruc", func(t *testing.T) {
		_, err := NewOrder("PED-1", testCustomer(), line, decimal.Zero, PaymentMethodTarjeta, ReceiptTypeFactura)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "RUC")
	})

	t.Run("factura with ruc", func(t *testing.T) {
		c := testCustomer()
		c.DocumentType = identity.DocumentTypeRUC
		c.DocumentNumber = "20539782232"
		o, err := NewOrder("PED-1", c, line, decimal.Zero, PaymentMethodTarjeta, ReceiptTypeFactura)
		require.NoError(t, err)
		assert.Equal(t, ReceiptTypeFactura, o.ReceiptType)
	})

	t.Run("empty order", func(t *testing.T) {
		_, err := NewOrder("PED-1", testCustomer(), nil, decimal.Zero, PaymentMethodTarjeta, "")
		assert.Error(t, err)
	})

	t.Run("invalid quantity", func(t *testing.T) {
		bad := []LineInput{{ProductID: uuid.New(), ProductName: "X", UnitPrice: decimal.NewFromInt(1), Quantity: 0}}
		_, err := NewOrder("PED-1", testCustomer(), bad, decimal.Zero, PaymentMethodTarjeta, "")
		assert.Error(t, err)
	})

	t.Run("missing address", func(t *testing.T) {
		c := testCustomer()
		c.City = ""
		_, err := NewOrder("PED-1", c, line, decimal.Zero, PaymentMethodTarjeta, "")
		assert.Error(t, err)
	})

	t.Run("invalid payment method", func(t *testing.T) {
		_, err := NewOrder("PED-1", testCustomer(), line, decimal.Zero, PaymentMethod("YAPE"), "")
		assert.Error(t, err)
	})
}

func TestOrder_CardFlow(t *testing.T) {
	o := newTestOrder(t, PaymentMethodTarjeta)
	require.NoError(t, o.AttachPaymentIntent("pi_123"))

	err := o.ChangeStatus(StatusEnPreparacion)
	assert.ErrorIs(t, err, shared.ErrInvalidState)

	require.NoError(t, o.MarkPaid())
	assert.Equal(t, StatusConfirmado, o.Status)
	assert.Equal(t, PaymentStatusPagado, o.PaymentStatus)
	assert.NotNil(t, o.PaidAt)
	require.NoError(t, o.MarkPaid(), "paying twice is a no-op")

	require.NoError(t, o.ChangeStatus(StatusEnPreparacion))
	require.NoError(t, o.ChangeStatus(StatusEnviado))
	assert.ErrorIs(t, o.ChangeStatus(StatusConfirmado), shared.ErrInvalidState)
	require.NoError(t, o.ChangeStatus(StatusEntregado))
	assert.NotNil(t, o.DeliveredAt)

	assert.ErrorIs(t, o.Cancel("late"), shared.ErrInvalidState)
}

func TestOrder_CashOnDeliveryFlow(t *testing.T) {
	o := newTestOrder(t, PaymentMethodContraEntrega)
	assert.Error(t, o.AttachPaymentIntent("pi_1"))

	require.NoError(t, o.ConfirmCashOnDelivery())
	assert.Equal(t, StatusConfirmado, o.Status)
	assert.Equal(t, PaymentStatusPendiente, o.PaymentStatus)

	require.NoError(t, o.ChangeStatus(StatusEnPreparacion), "cash orders ship before payment")
	require.NoError(t, o.ChangeStatus(StatusEnviado))
	require.NoError(t, o.ChangeStatus(StatusEntregado))
	require.NoError(t, o.CollectCash())
	assert.Equal(t, PaymentStatusPagado, o.PaymentStatus)
	assert.Equal(t, StatusEntregado, o.Status)
}

func TestOrder_CancelAndRefund(t *testing.T) {
	o := newTestOrder(t, PaymentMethodTarjeta)
	require.NoError(t, o.AttachPaymentIntent("pi_1"))
	require.NoError(t, o.MarkPaid())

	require.NoError(t, o.Cancel(" cliente desistió "))
	assert.Equal(t, StatusCancelado, o.Status)
	assert.Equal(t, "cliente desistió", o.CancelReason)
	assert.True(t, o.NeedsRefund())
	assert.True(t, o.CanDelete())

	require.NoError(t, o.MarkRefunded())
	assert.False(t, o.NeedsRefund())
	assert.Error(t, o.MarkRefunded())
	assert.Error(t, o.MarkPaid())
}

func TestOrder_PaymentFailed(t *testing.T) {
	o := newTestOrder(t, PaymentMethodTarjeta)
	require.NoError(t, o.MarkPaymentFailed())
	assert.Equal(t, PaymentStatusFallido, o.PaymentStatus)

	require.NoError(t, o.MarkPaid(), "a retried payment can still succeed")
	assert.Error(t, o.MarkPaymentFailed())
}

func TestOrder_AddEvidence(t *testing.T) {
	o := newTestOrder(t, PaymentMethodContraEntrega)
	admin := uuid.New()

	ev, err := o.AddEvidence("https://cdn/e.jpg", "evidence/e.jpg", " entrega ", &admin)
	require.NoError(t, err)
	assert.Equal(t, o.ID, ev.OrderID)
	assert.Equal(t, "entrega", ev.Description)
	assert.Len(t, o.Evidence, 1)

	_, err = o.AddEvidence("", "", "", nil)
	assert.Error(t, err)

	require.NoError(t, o.Cancel(""))
	_, err = o.AddEvidence("https://cdn/f.jpg", "", "", nil)
	assert.ErrorIs(t, err, shared.ErrInvalidState)
}

func TestOrder_BelongsTo(t *testing.T) {
	o := newTestOrder(t, PaymentMethodTarjeta)
	assert.False(t, o.BelongsTo(uuid.New()))

	user := uuid.New()
	o.UserID = &user
	assert.True(t, o.BelongsTo(user))
}
