// Package printing renders comprobantes to HTML and PDF.
package printing

import (
	"context"
	"time"
)

// PaperSize is a supported output format
type PaperSize string

const (
	PaperSizeA4 PaperSize = "A4"
	PaperSizeA5 PaperSize = "A5"
	// PaperSizeTicket80 is 80mm thermal roll paper
	PaperSizeTicket80 PaperSize = "TICKET_80"
)

// IsValid reports whether the paper size is known
func (p PaperSize) IsValid() bool {
	switch p {
	case PaperSizeA4, PaperSizeA5, PaperSizeTicket80:
		return true
	}
	return false
}

// Dimensions returns width and height in millimeters
func (p PaperSize) Dimensions() (width, height float64) {
	switch p {
	case PaperSizeA5:
		return 148, 210
	case PaperSizeTicket80:
		return 80, 3000
	default:
		return 210, 297
	}
}

// RenderRequest contains the parameters for rendering HTML to PDF
type RenderRequest struct {
	HTML      string
	Title     string
	PaperSize PaperSize
	Landscape bool
	// MarginMM applies to every side
	MarginMM float64
	// Timeout overrides the renderer default
	Timeout time.Duration
}

// RenderResult contains the output from PDF rendering
type RenderResult struct {
	PDFData        []byte
	RenderDuration time.Duration
}

// PDFRenderer renders HTML documents to PDF
type PDFRenderer interface {
	Render(ctx context.Context, req *RenderRequest) (*RenderResult, error)
	Close() error
}

// RenderError represents an error during rendering
type RenderError struct {
	Code    string
	Message string
	Cause   error
}

func (e *RenderError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *RenderError) Unwrap() error {
	return e.Cause
}

// Error codes for rendering failures
const (
	ErrCodeRenderTimeout    = "RENDER_TIMEOUT"
	ErrCodeRenderFailed     = "RENDER_FAILED"
	ErrCodeInvalidHTML      = "INVALID_HTML"
	ErrCodeInvalidPaperSize = "INVALID_PAPER_SIZE"
	ErrCodeDisabled         = "PRINTING_DISABLED"
)

// NewRenderError creates a new RenderError
func NewRenderError(code, message string, cause error) *RenderError {
	return &RenderError{Code: code, Message: message, Cause: cause}
}

// DisabledRenderer is used when no browser is configured
type DisabledRenderer struct{}

// Render always fails with ErrCodeDisabled
func (DisabledRenderer) Render(context.Context, *RenderRequest) (*RenderResult, error) {
	return nil, NewRenderError(ErrCodeDisabled, "PDF rendering is disabled", nil)
}

// Close is a no-op
func (DisabledRenderer) Close() error { return nil }
