package spreadsheet

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
)

var (
	// ErrEmptyFile is returned when the upload has no header row
	ErrEmptyFile = errors.New("spreadsheet: file is empty")
	// ErrInvalidEncoding is returned for CSV files that are not UTF-8
	ErrInvalidEncoding = errors.New("spreadsheet: CSV file must be UTF-8")
	// ErrUnsupportedFormat is returned for extensions other than xlsx and csv
	ErrUnsupportedFormat = errors.New("spreadsheet: only .xlsx and .csv files are supported")
)

// Row is a data row keyed by normalized header
type Row struct {
	LineNumber int
	Data       map[string]string
}

// Get returns the value for a header
func (r *Row) Get(header string) string {
	return r.Data[NormalizeHeader(header)]
}

// GetOrDefault returns the value for a header or def when blank
func (r *Row) GetOrDefault(header, def string) string {
	if v := r.Get(header); v != "" {
		return v
	}
	return def
}

// IsEmpty reports whether every cell is blank
func (r *Row) IsEmpty() bool {
	for _, v := range r.Data {
		if v != "" {
			return false
		}
	}
	return true
}

// Table is a parsed upload
type Table struct {
	Headers []string
	Rows    []*Row
}

// HasHeader reports whether a column is present
func (t *Table) HasHeader(name string) bool {
	name = NormalizeHeader(name)
	for _, h := range t.Headers {
		if h == name {
			return true
		}
	}
	return false
}

// MissingHeaders returns the required headers not present in the file
func (t *Table) MissingHeaders(required ...string) []string {
	var missing []string
	for _, h := range required {
		if !t.HasHeader(h) {
			missing = append(missing, h)
		}
	}
	return missing
}

// NormalizeHeader lower-cases and trims a header, turning spaces into underscores
func NormalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\uFEFF")))
	return strings.Join(strings.Fields(h), "_")
}

// ReadTable parses the first sheet of an XLSX file or a CSV file, chosen
// by the file extension. Blank rows are skipped.
func ReadTable(filename string, data []byte) (*Table, error) {
	var records [][]string
	var err error

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx":
		records, err = readXLSX(data)
	case ".csv":
		records, err = readCSV(data)
	default:
		return nil, ErrUnsupportedFormat
	}
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrEmptyFile
	}

	t := &Table{Headers: make([]string, len(records[0]))}
	for i, h := range records[0] {
		t.Headers[i] = NormalizeHeader(h)
	}

	for i, record := range records[1:] {
		row := &Row{LineNumber: i + 2, Data: make(map[string]string, len(t.Headers))}
		for j, h := range t.Headers {
			if h == "" {
				continue
			}
			if j < len(record) {
				row.Data[h] = strings.TrimSpace(record[j])
			} else {
				row.Data[h] = ""
			}
		}
		if !row.IsEmpty() {
			t.Rows = append(t.Rows, row)
		}
	}
	return t, nil
}

func readXLSX(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("spreadsheet: open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptyFile
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("spreadsheet: read sheet %q: %w", sheets[0], err)
	}
	return rows, nil
}

func readCSV(data []byte) ([][]string, error) {
	if !utf8.Valid(data) {
		return nil, ErrInvalidEncoding
	}

	r := csv.NewReader(bytes.NewReader(data))
	r.LazyQuotes = true
	r.FieldsPerRecord = -1
	// Excel in es-PE saves CSV with semicolons
	if first, _, _ := bytes.Cut(data, []byte("\n")); bytes.Count(first, []byte(";")) > bytes.Count(first, []byte(",")) {
		r.Comma = ';'
	}

	var records [][]string
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("spreadsheet: parse CSV: %w", err)
		}
		records = append(records, record)
	}
	return records, nil
}
