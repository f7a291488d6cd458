package order

import (
	"context"
	"fmt"
	"io"

	"github.com/induservicios/backend/internal/domain/order"
	"github.com/induservicios/backend/internal/infrastructure/spreadsheet"
	"github.com/induservicios/backend/internal/infrastructure/telemetry"
)

const maxExportRows = 10000

// ExportXLSX writes the orders matching filter as a workbook with an
// orders sheet and an items sheet
func (s *Service) ExportXLSX(ctx context.Context, filter order.Filter, w io.Writer) (int, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "order", "export")
	defer span.End()

	orders := spreadsheet.Sheet{
		Name: "Pedidos",
		Columns: []spreadsheet.Column{
			{Header: "Código", Width: 18},
			{Header: "Fecha", Width: 18, Format: spreadsheet.FormatDate},
			{Header: "Cliente", Width: 28},
			{Header: "Email", Width: 28},
			{Header: "Teléfono", Width: 14},
			{Header: "Documento", Width: 16},
			{Header: "Dirección", Width: 36},
			{Header: "Ciudad", Width: 14},
			{Header: "Método de pago", Width: 16},
			{Header: "Estado de pago", Width: 14},
			{Header: "Estado", Width: 16},
			{Header: "Comprobante", Width: 12},
			{Header: "Subtotal", Width: 12, Format: spreadsheet.FormatMoney},
			{Header: "Envío", Width: 10, Format: spreadsheet.FormatMoney},
			{Header: "Total", Width: 12, Format: spreadsheet.FormatMoney},
			{Header: "Pagado", Width: 18, Format: spreadsheet.FormatDate},
		},
	}
	items := spreadsheet.Sheet{
		Name: "Items",
		Columns: []spreadsheet.Column{
			{Header: "Pedido", Width: 18},
			{Header: "Producto", Width: 32},
			{Header: "SKU", Width: 12},
			{Header: "Cantidad", Width: 10, Format: spreadsheet.FormatInt},
			{Header: "Precio unitario", Width: 14, Format: spreadsheet.FormatMoney},
			{Header: "Importe", Width: 12, Format: spreadsheet.FormatMoney},
		},
	}

	filter.PageSize = 100
	filter.Normalize()
	for filter.Page = 1; len(orders.Rows) < maxExportRows; filter.Page++ {
		batch, total, err := s.orders.FindAll(ctx, filter)
		if err != nil {
			telemetry.RecordError(span, err)
			return 0, err
		}
		for i := range batch {
			o := &batch[i]
			doc := ""
			if o.DocumentNumber != "" {
				doc = string(o.DocumentType) + " " + o.DocumentNumber
			}
			orders.AddRow(o.Code, o.CreatedAt, o.CustomerName, o.Email, o.Phone, doc,
				o.ShippingAddress, o.City, string(o.PaymentMethod), string(o.PaymentStatus),
				o.Status.Label(), string(o.ReceiptType), o.Subtotal, o.ShippingCost, o.Total, o.PaidAt)
			for _, item := range o.Items {
				items.AddRow(o.Code, item.ProductName, item.SKU, item.Quantity, item.UnitPrice, item.Subtotal)
			}
		}
		if len(batch) == 0 || int64(filter.Page*filter.PageSize) >= total {
			break
		}
	}

	if err := spreadsheet.WriteWorkbook(w, orders, items); err != nil {
		telemetry.RecordError(span, err)
		return 0, fmt.Errorf("write orders workbook: %w", err)
	}
	telemetry.SetAttributes(span, "export.rows", len(orders.Rows))
	return len(orders.Rows), nil
}
