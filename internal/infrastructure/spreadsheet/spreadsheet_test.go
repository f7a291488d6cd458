package spreadsheet

import (
	"bytes"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestWriteWorkbook(t *testing.T) {
	paidAt := time.Date(2026, 10, 19, 10, 30, 0, 0, time.UTC)
	id := uuid.New()

	orders := Sheet{
		Name: "Pedidos",
		Columns: []Column{
			{Header: "Código", Width: 20},
			{Header: "Total", Format: FormatMoney},
			{Header: "Pagado", Format: FormatDate},
			{Header: "ID"},
		},
	}
	orders.AddRow("PED-202610-00001", decimal.RequireFromString("1180.50"), &paidAt, id)
	orders.AddRow("PED-202610-00002", decimal.NewFromInt(35), (*time.Time)(nil), id)

	quotes := Sheet{Name: "Cotizaciones", Columns: []Column{{Header: "Código"}}}

	var buf bytes.Buffer
	require.NoError(t, WriteWorkbook(&buf, orders, quotes))

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Pedidos", "Cotizaciones"}, f.GetSheetList())

	header, err := f.GetCellValue("Pedidos", "A1")
	require.NoError(t, err)
	assert.Equal(t, "Código", header)

	total, err := f.GetCellValue("Pedidos", "B2", excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	assert.Equal(t, "1180.5", total)

	blank, err := f.GetCellValue("Pedidos", "C3")
	require.NoError(t, err)
	assert.Empty(t, blank)

	idCell, err := f.GetCellValue("Pedidos", "D2")
	require.NoError(t, err)
	assert.Equal(t, id.String(), idCell)

	rows, err := f.GetRows("Cotizaciones")
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestWriteWorkbook_Invalid(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, WriteWorkbook(&buf))
	assert.Error(t, WriteWorkbook(&buf, Sheet{Name: "Vacía"}))
}

func TestReadTable_XLSX(t *testing.T) {
	sheet := Sheet{Name: "Productos", Columns: []Column{{Header: "Nombre"}, {Header: "Precio"}, {Header: " Stock Inicial "}}}
	sheet.AddRow("Portón corredizo", "2500.00", 3)
	sheet.AddRow("", "", "")
	sheet.AddRow("Malla olímpica", "45.90")

	var buf bytes.Buffer
	require.NoError(t, WriteWorkbook(&buf, sheet))

	table, err := ReadTable("catalogo.XLSX", buf.Bytes())
	require.NoError(t, err)

	assert.Equal(t, []string{"nombre", "precio", "stock_inicial"}, table.Headers)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, "Portón corredizo", table.Rows[0].Get("Nombre"))
	assert.Equal(t, "3", table.Rows[0].Get("stock inicial"))
	assert.Equal(t, 4, table.Rows[1].LineNumber)
	assert.Equal(t, "0", table.Rows[1].GetOrDefault("stock_inicial", "0"))
	assert.Empty(t, table.MissingHeaders("nombre", "precio"))
	assert.Equal(t, []string{"sku"}, table.MissingHeaders("sku"))
}

func TestReadTable_CSV(t *testing.T) {
	data := []byte("\uFEFFnombre;precio;stock\nPlancha LAC 1/16;120,50;10\n;;\n\"Tubo; 2\"\"\";30;\n")

	table, err := ReadTable("productos.csv", data)
	require.NoError(t, err)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, "120,50", table.Rows[0].Get("precio"))
	assert.Equal(t, `Tubo; 2"`, table.Rows[1].Get("nombre"))
	assert.Equal(t, "", table.Rows[1].Get("stock"))
}

func TestReadTable_Errors(t *testing.T) {
	_, err := ReadTable("foto.jpg", []byte("x"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = ReadTable("vacio.csv", nil)
	assert.ErrorIs(t, err, ErrEmptyFile)

	_, err = ReadTable("latin1.csv", []byte{'n', 0xf1, '\n'})
	assert.ErrorIs(t, err, ErrInvalidEncoding)

	_, err = ReadTable("roto.xlsx", []byte("not a zip"))
	assert.Error(t, err)
}

func TestErrorCollection(t *testing.T) {
	ec := NewErrorCollection(2)
	assert.False(t, ec.HasErrors())

	ec.AddRequired(2, "nombre")
	ec.AddInvalid(3, "precio", ErrCodeInvalidType, "expected a number", "abc")
	ec.AddInvalid(4, "precio", ErrCodeInvalidType, "expected a number", "x")

	assert.True(t, ec.HasErrors())
	assert.True(t, ec.IsTruncated())
	assert.Equal(t, 3, ec.TotalCount())
	require.Len(t, ec.Errors(), 2)
	assert.Equal(t, "row 2, column 'nombre': field 'nombre' is required", ec.Errors()[0].Error())
}
