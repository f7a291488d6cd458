package receipt

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/induservicios/backend/internal/domain/identity"
	"github.com/induservicios/backend/internal/domain/order"
)

var testIssuer = Issuer{
	RUC:           "20539782232",
	Name:          "Industrias Metálicas SAC",
	BoletaSeries:  "B001",
	FacturaSeries: "F001",
}

func paidOrder(t *testing.T, customer order.Customer, price string) *order.Order {
	t.Helper()
	o, err := order.NewOrder("PED-202610-00007", customer, []order.LineInput{
		{ProductID: uuid.New(), ProductName: "Portón", UnitPrice: decimal.RequireFromString(price), Quantity: 1},
	}, decimal.Zero, order.PaymentMethodTarjeta, "")
	require.NoError(t, err)
	require.NoError(t, o.MarkPaid())
	return o
}

func customer(docType identity.DocumentType, doc string) order.Customer {
	return order.Customer{
		Name: "Constructora Andina", Email: "compras@andina.pe", Phone: "014445566",
		DocumentType: docType, DocumentNumber: doc,
		ShippingAddress: "Av. Industrial 100", City: "Lima",
	}
}

func TestSplitIGV(t *testing.T) {
	sub, igv := SplitIGV(decimal.NewFromInt(118))
	assert.Equal(t, "100.00", sub.StringFixed(2))
	assert.Equal(t, "18.00", igv.StringFixed(2))

	sub, igv = SplitIGV(decimal.RequireFromString("98.40"))
	assert.Equal(t, "83.39", sub.StringFixed(2))
	assert.Equal(t, "15.01", igv.StringFixed(2))
}

func TestNew_Factura(t *testing.T) {
	o := paidOrder(t, customer(identity.DocumentTypeRUC, "20100070970"), "1180.00")
	issued := time.Date(2026, 10, 5, 10, 0, 0, 0, time.UTC)

	r, err := New(testIssuer, o, order.ReceiptTypeFactura, 42, issued)
	require.NoError(t, err)

	assert.Equal(t, "F001", r.Series)
	assert.Equal(t, "F001-00000042", r.FullNumber())
	assert.Equal(t, "01", r.SunatTypeCode())
	assert.Equal(t, "1000.00", r.Subtotal.StringFixed(2))
	assert.Equal(t, "180.00", r.IGV.StringFixed(2))
	assert.True(t, r.VerifyHash())
	assert.Equal(t,
		"20539782232|01|F001|00000042|180.00|1180.00|2026-10-05|6|20100070970|"+r.Hash+"|",
		r.QRData)

	r.Total = decimal.NewFromInt(1)
	assert.False(t, r.VerifyHash(), "tampering breaks the hash")
}

func TestNew_Boleta(t *testing.T) {
	t.Run("anonymous boleta under limit", func(t *testing.T) {
		o := paidOrder(t, customer("", ""), "699.99")
		r, err := New(testIssuer, o, order.ReceiptTypeBoleta, 1, time.Now())
		require.NoError(t, err)
		assert.Equal(t, "B001", r.Series)
		assert.True(t, strings.Contains(r.QRData, "|0|-|"))
	})

	t.Run("anonymous boleta over limit", func(t *testing.T) {
		o := paidOrder(t, customer("", ""), "700.00")
		_, err := New(testIssuer, o, order.ReceiptTypeBoleta, 1, time.Now())
		assert.Error(t, err)
	})

	t.Run("factura without ruc", func(t *testing.T) {
		o := paidOrder(t, customer(identity.DocumentTypeDNI, "12345678"), "50")
		_, err := New(testIssuer, o, order.ReceiptTypeFactura, 1, time.Now())
		assert.Error(t, err)
	})
}

func TestNew_RequiresPayment(t *testing.T) {
	o, err := order.NewOrder("PED-1", customer(identity.DocumentTypeDNI, "12345678"), []order.LineInput{
		{ProductID: uuid.New(), ProductName: "X", UnitPrice: decimal.NewFromInt(10), Quantity: 1},
	}, decimal.Zero, order.PaymentMethodContraEntrega, "")
	require.NoError(t, err)

	_, err = New(testIssuer, o, order.ReceiptTypeBoleta, 1, time.Now())
	assert.Error(t, err)
}

func TestIssuer_Validate(t *testing.T) {
	assert.NoError(t, testIssuer.Validate())

	bad := testIssuer
	bad.RUC = "20539782233"
	assert.Error(t, bad.Validate())

	bad = testIssuer
	bad.FacturaSeries = "B001"
	assert.Error(t, bad.Validate())
}
