package spreadsheet

import "fmt"

// Row error codes
const (
	ErrCodeRequiredField = "REQUIRED_FIELD"
	ErrCodeInvalidType   = "INVALID_TYPE"
	ErrCodeInvalidValue  = "INVALID_VALUE"
	ErrCodeDuplicate     = "DUPLICATE"
	ErrCodeNotFound      = "REFERENCE_NOT_FOUND"
)

// RowError is a problem found in one row of an upload
type RowError struct {
	Row     int    `json:"row"`
	Column  string `json:"column,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Value   string `json:"value,omitempty"`
}

func (e RowError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("row %d, column '%s': %s", e.Row, e.Column, e.Message)
	}
	return fmt.Sprintf("row %d: %s", e.Row, e.Message)
}

// ErrorCollection keeps the first maxErrors row errors and counts the rest
type ErrorCollection struct {
	errors     []RowError
	maxErrors  int
	totalCount int
}

// NewErrorCollection creates a collection, 100 errors by default
func NewErrorCollection(maxErrors int) *ErrorCollection {
	if maxErrors <= 0 {
		maxErrors = 100
	}
	return &ErrorCollection{maxErrors: maxErrors}
}

// Add records an error
func (ec *ErrorCollection) Add(err RowError) {
	ec.totalCount++
	if len(ec.errors) < ec.maxErrors {
		ec.errors = append(ec.errors, err)
	}
}

// AddRequired records a missing value
func (ec *ErrorCollection) AddRequired(row int, column string) {
	ec.Add(RowError{Row: row, Column: column, Code: ErrCodeRequiredField,
		Message: fmt.Sprintf("field '%s' is required", column)})
}

// AddInvalid records a value that failed to parse or validate
func (ec *ErrorCollection) AddInvalid(row int, column, code, message, value string) {
	ec.Add(RowError{Row: row, Column: column, Code: code, Message: message, Value: value})
}

// Errors returns the kept errors
func (ec *ErrorCollection) Errors() []RowError {
	return ec.errors
}

// TotalCount includes errors beyond the limit
func (ec *ErrorCollection) TotalCount() int {
	return ec.totalCount
}

// HasErrors reports whether anything was recorded
func (ec *ErrorCollection) HasErrors() bool {
	return ec.totalCount > 0
}

// IsTruncated reports whether errors were dropped
func (ec *ErrorCollection) IsTruncated() bool {
	return ec.totalCount > ec.maxErrors
}
