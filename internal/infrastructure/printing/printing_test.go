package printing

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/induservicios/backend/internal/domain/identity"
	"github.com/induservicios/backend/internal/domain/order"
	"github.com/induservicios/backend/internal/domain/receipt"
)

func TestNumberToWords(t *testing.T) {
	tests := map[int64]string{
		0:       "CERO",
		1:       "UNO",
		16:      "DIECISEIS",
		20:      "VEINTE",
		21:      "VEINTIUNO",
		45:      "CUARENTA Y CINCO",
		100:     "CIEN",
		115:     "CIENTO QUINCE",
		500:     "QUINIENTOS",
		1000:    "MIL",
		1250:    "MIL DOSCIENTOS CINCUENTA",
		21001:   "VEINTIUN MIL UNO",
		100000:  "CIEN MIL",
		1000000: "UN MILLON",
		2345678: "DOS MILLONES TRESCIENTOS CUARENTA Y CINCO MIL SEISCIENTOS SETENTA Y OCHO",
	}
	for n, want := range tests {
		assert.Equal(t, want, NumberToWords(n), "n=%d", n)
	}
}

func TestAmountInWords(t *testing.T) {
	assert.Equal(t, "SON: MIL DOSCIENTOS CINCUENTA Y 50/100 SOLES", AmountInWords(decimal.RequireFromString("1250.50")))
	assert.Equal(t, "SON: CIEN Y 00/100 SOLES", AmountInWords(decimal.NewFromInt(100)))
	assert.Equal(t, "SON: CERO Y 07/100 SOLES", AmountInWords(decimal.RequireFromString("0.07")))
}

func TestFormatMoney(t *testing.T) {
	tests := map[string]string{
		"0":          "S/ 0.00",
		"12.5":       "S/ 12.50",
		"1234.56":    "S/ 1,234.56",
		"1234567.8":  "S/ 1,234,567.80",
		"-980.129":   "-S/ 980.13",
		"100000.001": "S/ 100,000.00",
	}
	for in, want := range tests {
		assert.Equal(t, want, FormatMoney(decimal.RequireFromString(in)), in)
	}
}

func TestTitleCase(t *testing.T) {
	assert.Equal(t, "Quispe Mamani Juan Carlos", TitleCase("  QUISPE MAMANI JUAN CARLOS "))
	assert.Equal(t, "Peña Núñez", TitleCase("PEÑA NÚÑEZ"))
}

func TestBuildPrintParams(t *testing.T) {
	p := buildPrintParams(&RenderRequest{PaperSize: PaperSizeA4, MarginMM: 10})
	assert.InDelta(t, 8.27, p.paperWidth, 0.01)
	assert.InDelta(t, 11.69, p.paperHeight, 0.01)
	assert.InDelta(t, 0.39, p.margin, 0.01)

	p = buildPrintParams(&RenderRequest{PaperSize: PaperSizeTicket80, Landscape: true})
	assert.InDelta(t, mmToInches(80), p.paperWidth, 0.001)
	assert.True(t, p.landscape)
}

func TestValidateRequest(t *testing.T) {
	var rerr *RenderError

	err := validateRequest(&RenderRequest{HTML: "  "})
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, ErrCodeInvalidHTML, rerr.Code)

	err = validateRequest(&RenderRequest{HTML: "<p>x</p>", PaperSize: "LETTER"})
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, ErrCodeInvalidPaperSize, rerr.Code)

	req := &RenderRequest{HTML: "<p>x</p>"}
	require.NoError(t, validateRequest(req))
	assert.Equal(t, PaperSizeA4, req.PaperSize)
}

func TestCompleteHTML(t *testing.T) {
	doc := completeHTML(&RenderRequest{HTML: "<p>hola</p>", Title: "B001 <1>"})
	assert.True(t, strings.HasPrefix(doc, "<!DOCTYPE html>"))
	assert.Contains(t, doc, "<title>B001 &lt;1&gt;</title>")
	assert.Contains(t, doc, "<body><p>hola</p></body>")

	full := "<!doctype html><html><body>x</body></html>"
	assert.Equal(t, full, completeHTML(&RenderRequest{HTML: full}))
}

func TestDisabledRenderer(t *testing.T) {
	_, err := DisabledRenderer{}.Render(context.Background(), &RenderRequest{HTML: "x"})
	var rerr *RenderError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, ErrCodeDisabled, rerr.Code)
}

func testReceiptDocument(t *testing.T) ReceiptDocument {
	t.Helper()
	o := &order.Order{
		Code:          "PED-202610-00007",
		PaymentStatus: order.PaymentStatusPagado,
		Currency:      "PEN",
		Total:         decimal.RequireFromString("1180.00"),
	}
	o.ID = uuid.New()
	o.CustomerName = "Ferretería Los Andes SAC"
	o.DocumentType = identity.DocumentTypeRUC
	o.DocumentNumber = "20100070970"

	issuer := receipt.Issuer{RUC: "20100070970", Name: "Induservicios", BoletaSeries: "B001", FacturaSeries: "F001"}
	r, err := receipt.New(issuer, o, order.ReceiptTypeFactura, 42, time.Date(2026, 10, 19, 15, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	return ReceiptDocument{
		Company: CompanyInfo{Name: "Induservicios", RUC: "20100070970", Address: "Av. Argentina 123, Lima"},
		Receipt: r,
		Items: []order.Item{{
			ProductName: "Puerta enrollable",
			SKU:         "PE-01",
			UnitPrice:   decimal.RequireFromString("1150.00"),
			Quantity:    1,
			Subtotal:    decimal.RequireFromString("1150.00"),
		}},
		ShippingCost: decimal.NewFromInt(30),
	}
}

func TestRenderReceiptHTML(t *testing.T) {
	doc := testReceiptDocument(t)
	out, err := NewTemplateEngine().RenderReceiptHTML(context.Background(), doc)
	require.NoError(t, err)

	assert.Contains(t, out, "FACTURA ELECTRÓNICA")
	assert.Contains(t, out, "F001-00000042")
	assert.Contains(t, out, "19/10/2026 10:00")
	assert.Contains(t, out, "Puerta enrollable (PE-01)")
	assert.Contains(t, out, "Servicio de envío")
	assert.Contains(t, out, "S/ 1,000.00")
	assert.Contains(t, out, "S/ 180.00")
	assert.Contains(t, out, "SON: MIL CIENTO OCHENTA Y 00/100 SOLES")
	assert.Contains(t, out, "20100070970|01|F001|00000042|180.00|1180.00|2026-10-19|6|20100070970|")
}

func TestRenderReceiptHTML_NilReceipt(t *testing.T) {
	_, err := NewTemplateEngine().RenderReceiptHTML(context.Background(), ReceiptDocument{})
	assert.Error(t, err)
}
