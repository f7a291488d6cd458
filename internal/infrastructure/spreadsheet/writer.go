// Package spreadsheet writes XLSX exports and reads XLSX/CSV imports.
package spreadsheet

import (
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// ContentTypeXLSX is the MIME type of generated workbooks
const ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Column formats
const (
	FormatText  = ""
	FormatMoney = "money"
	FormatDate  = "date"
	FormatInt   = "int"
)

var (
	moneyNumFmt = "#,##0.00"
	dateNumFmt  = "dd/mm/yyyy hh:mm"
)

// Column describes a sheet column
type Column struct {
	Header string
	Width  float64
	Format string
}

// Sheet is one worksheet of an export
type Sheet struct {
	Name    string
	Columns []Column
	Rows    [][]any
}

// AddRow appends a row. decimal.Decimal values are written as numbers and
// *time.Time values as dates or blanks.
func (s *Sheet) AddRow(values ...any) {
	s.Rows = append(s.Rows, values)
}

// WriteWorkbook writes the sheets as an XLSX document. Each sheet gets a
// bold frozen header row with an auto filter.
func WriteWorkbook(w io.Writer, sheets ...Sheet) error {
	if len(sheets) == 0 {
		return fmt.Errorf("spreadsheet: no sheets to write")
	}

	f := excelize.NewFile()
	defer f.Close()

	styles, err := newStyles(f)
	if err != nil {
		return err
	}

	for i, sheet := range sheets {
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), sheet.Name); err != nil {
				return fmt.Errorf("spreadsheet: rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(sheet.Name); err != nil {
			return fmt.Errorf("spreadsheet: create sheet %q: %w", sheet.Name, err)
		}
		if err := writeSheet(f, sheet, styles); err != nil {
			return err
		}
	}
	f.SetActiveSheet(0)

	if err := f.Write(w); err != nil {
		return fmt.Errorf("spreadsheet: write workbook: %w", err)
	}
	return nil
}

type styleSet struct {
	header int
	money  int
	date   int
}

func newStyles(f *excelize.File) (styleSet, error) {
	var s styleSet
	var err error
	if s.header, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#1F4E78"}, Pattern: 1},
		Alignment: &excelize.Alignment{Vertical: "center"},
	}); err != nil {
		return s, fmt.Errorf("spreadsheet: header style: %w", err)
	}
	if s.money, err = f.NewStyle(&excelize.Style{CustomNumFmt: &moneyNumFmt}); err != nil {
		return s, fmt.Errorf("spreadsheet: money style: %w", err)
	}
	if s.date, err = f.NewStyle(&excelize.Style{CustomNumFmt: &dateNumFmt}); err != nil {
		return s, fmt.Errorf("spreadsheet: date style: %w", err)
	}
	return s, nil
}

func writeSheet(f *excelize.File, sheet Sheet, styles styleSet) error {
	name := sheet.Name
	ncols := len(sheet.Columns)
	if ncols == 0 {
		return fmt.Errorf("spreadsheet: sheet %q has no columns", name)
	}

	headers := make([]any, ncols)
	for i, col := range sheet.Columns {
		headers[i] = col.Header
	}
	if err := f.SetSheetRow(name, "A1", &headers); err != nil {
		return fmt.Errorf("spreadsheet: write header: %w", err)
	}

	for r, values := range sheet.Rows {
		row := make([]any, len(values))
		for i, v := range values {
			row[i] = cellValue(v)
		}
		cell, _ := excelize.CoordinatesToCellName(1, r+2)
		if err := f.SetSheetRow(name, cell, &row); err != nil {
			return fmt.Errorf("spreadsheet: write row %d: %w", r+2, err)
		}
	}

	lastCol, _ := excelize.ColumnNumberToName(ncols)
	lastRow := len(sheet.Rows) + 1
	if err := f.SetCellStyle(name, "A1", lastCol+"1", styles.header); err != nil {
		return err
	}

	for i, col := range sheet.Columns {
		letter, _ := excelize.ColumnNumberToName(i + 1)
		width := col.Width
		if width == 0 {
			width = 16
		}
		if err := f.SetColWidth(name, letter, letter, width); err != nil {
			return err
		}
		if lastRow < 2 {
			continue
		}
		var style int
		switch col.Format {
		case FormatMoney:
			style = styles.money
		case FormatDate:
			style = styles.date
		default:
			continue
		}
		if err := f.SetCellStyle(name, letter+"2", fmt.Sprintf("%s%d", letter, lastRow), style); err != nil {
			return err
		}
	}

	if err := f.SetPanes(name, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("spreadsheet: freeze header: %w", err)
	}
	return f.AutoFilter(name, fmt.Sprintf("A1:%s%d", lastCol, lastRow), nil)
}

func cellValue(v any) any {
	switch val := v.(type) {
	case decimal.Decimal:
		return val.InexactFloat64()
	case *decimal.Decimal:
		if val == nil {
			return nil
		}
		return val.InexactFloat64()
	case *time.Time:
		if val == nil || val.IsZero() {
			return nil
		}
		return *val
	case time.Time:
		if val.IsZero() {
			return nil
		}
		return val
	case fmt.Stringer:
		return val.String()
	default:
		return v
	}
}
