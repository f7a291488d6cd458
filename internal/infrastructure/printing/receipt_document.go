package printing

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/induservicios/backend/internal/domain/order"
	"github.com/induservicios/backend/internal/domain/receipt"
)

// CompanyInfo is the issuer block printed on the header
type CompanyInfo struct {
	Name    string
	RUC     string
	Address string
	Phone   string
}

// ReceiptDocument is the data bound to the receipt template
type ReceiptDocument struct {
	Company      CompanyInfo
	Receipt      *receipt.Receipt
	Items        []order.Item
	ShippingCost decimal.Decimal
}

// Title returns the printed document title
func (d ReceiptDocument) Title() string {
	if d.Receipt.Type == order.ReceiptTypeFactura {
		return "FACTURA ELECTRÓNICA"
	}
	return "BOLETA DE VENTA ELECTRÓNICA"
}

// HasShipping reports whether a delivery line is printed
func (d ReceiptDocument) HasShipping() bool {
	return d.ShippingCost.IsPositive()
}

// RenderReceiptHTML renders a receipt with the built-in layout
func (e *TemplateEngine) RenderReceiptHTML(ctx context.Context, doc ReceiptDocument) (string, error) {
	if doc.Receipt == nil {
		return "", NewRenderError(ErrCodeInvalidHTML, "receipt is nil", nil)
	}
	return e.RenderString(ctx, "receipt", receiptTemplate, doc)
}

const receiptTemplate = `<!DOCTYPE html>
<html lang="es">
<head>
<meta charset="UTF-8">
<title>{{.Receipt.FullNumber}}</title>
<style>
  body { font-family: Arial, Helvetica, sans-serif; font-size: 11px; color: #222; }
  .header { display: flex; justify-content: space-between; align-items: flex-start; }
  .company h1 { font-size: 16px; margin: 0 0 4px; }
  .box { border: 2px solid #222; padding: 8px 16px; text-align: center; min-width: 220px; }
  .box div { margin: 2px 0; font-weight: bold; }
  table { width: 100%; border-collapse: collapse; margin-top: 12px; }
  th, td { padding: 4px 6px; border-bottom: 1px solid #ddd; }
  th { background: #f0f0f0; text-align: left; }
  .num { text-align: right; }
  .totals { width: 280px; margin-left: auto; }
  .totals td { border: none; }
  .words { margin-top: 10px; font-weight: bold; }
  .footer { margin-top: 18px; font-size: 9px; color: #555; word-break: break-all; }
</style>
</head>
<body>
<div class="header">
  <div class="company">
    <h1>{{.Company.Name}}</h1>
    <div>{{.Company.Address}}</div>
    {{if .Company.Phone}}<div>Tel: {{.Company.Phone}}</div>{{end}}
  </div>
  <div class="box">
    <div>R.U.C. {{.Company.RUC}}</div>
    <div>{{.Title}}</div>
    <div>{{.Receipt.FullNumber}}</div>
  </div>
</div>

<table>
  <tr><td><b>Fecha de emisión:</b> {{formatDateTime .Receipt.IssuedAt}}</td><td><b>Pedido:</b> {{.Receipt.OrderCode}}</td></tr>
  <tr><td><b>Cliente:</b> {{.Receipt.CustomerName}}</td>
      <td><b>{{default "Documento" (print .Receipt.CustomerDocType)}}:</b> {{default "-" .Receipt.CustomerDocNumber}}</td></tr>
  {{if .Receipt.CustomerAddress}}<tr><td colspan="2"><b>Dirección:</b> {{.Receipt.CustomerAddress}}</td></tr>{{end}}
</table>

<table>
  <thead>
    <tr><th>#</th><th>Descripción</th><th class="num">Cant.</th><th class="num">P. Unit.</th><th class="num">Importe</th></tr>
  </thead>
  <tbody>
  {{range $i, $it := .Items}}
    <tr>
      <td>{{inc $i}}</td>
      <td>{{$it.ProductName}}{{if $it.SKU}} ({{$it.SKU}}){{end}}</td>
      <td class="num">{{$it.Quantity}}</td>
      <td class="num">{{formatDecimal $it.UnitPrice}}</td>
      <td class="num">{{formatDecimal $it.Subtotal}}</td>
    </tr>
  {{end}}
  {{if .HasShipping}}
    <tr><td></td><td>Servicio de envío</td><td class="num">1</td>
        <td class="num">{{formatDecimal .ShippingCost}}</td><td class="num">{{formatDecimal .ShippingCost}}</td></tr>
  {{end}}
  </tbody>
</table>

<table class="totals">
  <tr><td>Op. gravada</td><td class="num">{{formatMoney .Receipt.Subtotal}}</td></tr>
  <tr><td>IGV (18%)</td><td class="num">{{formatMoney .Receipt.IGV}}</td></tr>
  <tr><td><b>Importe total</b></td><td class="num"><b>{{formatMoney .Receipt.Total}}</b></td></tr>
</table>

<div class="words">{{amountInWords .Receipt.Total}}</div>

<div class="footer">
  <div>Código hash: {{.Receipt.Hash}}</div>
  <div>QR: {{.Receipt.QRData}}</div>
  <div>Representación impresa del comprobante. Documento de uso interno, no enviado a SUNAT.</div>
</div>
</body>
</html>
`
