// Package receipt issues and renders comprobantes for paid orders.
package receipt

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/induservicios/backend/internal/domain/order"
	"github.com/induservicios/backend/internal/domain/receipt"
	"github.com/induservicios/backend/internal/domain/shared"
	"github.com/induservicios/backend/internal/infrastructure/logger"
	"github.com/induservicios/backend/internal/infrastructure/printing"
	"github.com/induservicios/backend/internal/infrastructure/telemetry"
)

const defaultDownloadTTL = 15 * time.Minute

// OrderReader loads orders
type OrderReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*order.Order, error)
}

// FileStore keeps rendered PDFs
type FileStore interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) error
	Exists(ctx context.Context, key string) (bool, error)
	DownloadURL(ctx context.Context, key string, expiresIn time.Duration) (string, time.Time, error)
}

// Config holds receipt settings
type Config struct {
	Issuer      receipt.Issuer
	Company     printing.CompanyInfo
	PaperSize   printing.PaperSize
	DownloadTTL time.Duration
}

// Response represents a receipt in API responses
type Response struct {
	ID                uuid.UUID         `json:"id"`
	OrderID           uuid.UUID         `json:"order_id"`
	OrderCode         string            `json:"order_code"`
	Type              order.ReceiptType `json:"type"`
	Number            string            `json:"number"`
	IssuerRUC         string            `json:"issuer_ruc"`
	IssuerName        string            `json:"issuer_name"`
	CustomerDocType   string            `json:"customer_doc_type,omitempty"`
	CustomerDocNumber string            `json:"customer_doc_number,omitempty"`
	CustomerName      string            `json:"customer_name"`
	CustomerAddress   string            `json:"customer_address,omitempty"`
	Currency          string            `json:"currency"`
	Subtotal          decimal.Decimal   `json:"subtotal"`
	IGV               decimal.Decimal   `json:"igv"`
	Total             decimal.Decimal   `json:"total"`
	Hash              string            `json:"hash"`
	QRData            string            `json:"qr_data"`
	HasPDF            bool              `json:"has_pdf"`
	IssuedAt          time.Time         `json:"issued_at"`
}

// Download is a temporary link to a rendered PDF
type Download struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Service issues receipts
type Service struct {
	receipts receipt.Repository
	orders   OrderReader
	seq      shared.SequenceGenerator
	engine   *printing.TemplateEngine
	renderer printing.PDFRenderer
	files    FileStore
	config   Config
	logger   *zap.Logger
	now      func() time.Time
}

// NewService creates a receipt service
func NewService(
	receipts receipt.Repository,
	orders OrderReader,
	seq shared.SequenceGenerator,
	engine *printing.TemplateEngine,
	renderer printing.PDFRenderer,
	files FileStore,
	config Config,
	logger *zap.Logger,
) *Service {
	if config.DownloadTTL <= 0 {
		config.DownloadTTL = defaultDownloadTTL
	}
	if !config.PaperSize.IsValid() {
		config.PaperSize = printing.PaperSizeA4
	}
	if renderer == nil {
		renderer = printing.DisabledRenderer{}
	}
	return &Service{
		receipts: receipts,
		orders:   orders,
		seq:      seq,
		engine:   engine,
		renderer: renderer,
		files:    files,
		config:   config,
		logger:   logger,
		now:      time.Now,
	}
}

// Issue emits the receipt of an order. Issuing twice returns the first
// receipt. receiptType overrides the type chosen at checkout.
func (s *Service) Issue(ctx context.Context, orderID uuid.UUID, receiptType *order.ReceiptType) (*Response, error) {
	o, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	t := o.ReceiptType
	if receiptType != nil {
		t = *receiptType
	}
	r, err := s.issue(ctx, o, t)
	if err != nil {
		return nil, err
	}
	resp := toResponse(r)
	return &resp, nil
}

// IssueForOrder emits the receipt of an already loaded order with the
// type chosen at checkout
func (s *Service) IssueForOrder(ctx context.Context, o *order.Order) (*receipt.Receipt, error) {
	return s.issue(ctx, o, o.ReceiptType)
}

func (s *Service) issue(ctx context.Context, o *order.Order, t order.ReceiptType) (*receipt.Receipt, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "receipt", "issue",
		telemetry.AttrOrderID, o.ID.String(), telemetry.AttrDocumentType, string(t))
	defer span.End()

	existing, err := s.receipts.FindByOrderID(ctx, o.ID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	// eligibility is checked before drawing a number so rejected requests
	// leave no gaps in the series
	if err := receipt.CheckEligibility(o, t); err != nil {
		return nil, err
	}
	series := s.config.Issuer.SeriesFor(t)
	number, err := s.seq.Next(ctx, "receipt-"+series)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("next receipt number: %w", err)
	}

	r, err := receipt.New(s.config.Issuer, o, t, number, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.receipts.Create(ctx, r); err != nil {
		if errors.Is(err, shared.ErrAlreadyExists) {
			// another request issued it first
			return s.receipts.FindByOrderID(ctx, o.ID)
		}
		telemetry.RecordError(span, err)
		return nil, err
	}

	telemetry.SetAttributes(span, telemetry.AttrReceiptNumber, r.FullNumber())
	logger.Or(ctx, s.logger).Info("Receipt issued",
		zap.String("receipt", r.FullNumber()),
		zap.String("order_code", o.Code),
		zap.String("total", r.Total.StringFixed(2)))
	return r, nil
}

// Get returns a receipt
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Response, error) {
	r, err := s.receipts.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := toResponse(r)
	return &resp, nil
}

// GetByOrder returns the receipt of an order
func (s *Service) GetByOrder(ctx context.Context, orderID uuid.UUID) (*Response, error) {
	r, err := s.receipts.FindByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	resp := toResponse(r)
	return &resp, nil
}

// RenderHTML returns the printable HTML of a receipt
func (s *Service) RenderHTML(ctx context.Context, id uuid.UUID) (string, error) {
	r, err := s.receipts.FindByID(ctx, id)
	if err != nil {
		return "", err
	}
	return s.renderHTML(ctx, r)
}

func (s *Service) renderHTML(ctx context.Context, r *receipt.Receipt) (string, error) {
	o, err := s.orders.FindByID(ctx, r.OrderID)
	if err != nil {
		return "", err
	}
	return s.engine.RenderReceiptHTML(ctx, printing.ReceiptDocument{
		Company:      s.config.Company,
		Receipt:      r,
		Items:        o.Items,
		ShippingCost: o.ShippingCost,
	})
}

// RenderPDF renders the receipt once, keeps it in object storage and returns
// a temporary download link
func (s *Service) RenderPDF(ctx context.Context, id uuid.UUID) (*Download, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "receipt", "render_pdf")
	defer span.End()
	log := logger.Or(ctx, s.logger)

	r, err := s.receipts.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	telemetry.SetAttributes(span, telemetry.AttrReceiptNumber, r.FullNumber())

	if r.PDFKey != "" {
		exists, err := s.files.Exists(ctx, r.PDFKey)
		if err != nil {
			log.Warn("Cannot check stored receipt PDF", zap.String("key", r.PDFKey), zap.Error(err))
		}
		if exists {
			return s.download(ctx, r.PDFKey)
		}
	}

	html, err := s.renderHTML(ctx, r)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	result, err := s.renderer.Render(ctx, &printing.RenderRequest{
		HTML:      html,
		Title:     r.FullNumber(),
		PaperSize: s.config.PaperSize,
		MarginMM:  10,
	})
	if err != nil {
		telemetry.RecordError(span, err)
		var renderErr *printing.RenderError
		if errors.As(err, &renderErr) && renderErr.Code == printing.ErrCodeDisabled {
			return nil, shared.NewDomainError(shared.ErrExternalService.Code, "PDF rendering is not available")
		}
		return nil, fmt.Errorf("render receipt pdf: %w", err)
	}

	key := fmt.Sprintf("receipts/%s/%s.pdf", r.IssuedAt.Format("200601"), r.FullNumber())
	if err := s.files.Upload(ctx, key, result.PDFData, "application/pdf"); err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("upload receipt pdf: %w", err)
	}
	if err := s.receipts.SetPDFKey(ctx, r.ID, key); err != nil {
		return nil, err
	}

	log.Info("Receipt PDF rendered",
		zap.String("receipt", r.FullNumber()),
		zap.Int("bytes", len(result.PDFData)),
		zap.Duration("duration", result.RenderDuration))
	return s.download(ctx, key)
}

func (s *Service) download(ctx context.Context, key string) (*Download, error) {
	url, expires, err := s.files.DownloadURL(ctx, key, s.config.DownloadTTL)
	if err != nil {
		return nil, fmt.Errorf("receipt download url: %w", err)
	}
	return &Download{URL: url, ExpiresAt: expires}, nil
}

func toResponse(r *receipt.Receipt) Response {
	return Response{
		ID:                r.ID,
		OrderID:           r.OrderID,
		OrderCode:         r.OrderCode,
		Type:              r.Type,
		Number:            r.FullNumber(),
		IssuerRUC:         r.IssuerRUC,
		IssuerName:        r.IssuerName,
		CustomerDocType:   string(r.CustomerDocType),
		CustomerDocNumber: r.CustomerDocNumber,
		CustomerName:      r.CustomerName,
		CustomerAddress:   r.CustomerAddress,
		Currency:          r.Currency,
		Subtotal:          r.Subtotal,
		IGV:               r.IGV,
		Total:             r.Total,
		Hash:              r.Hash,
		QRData:            r.QRData,
		HasPDF:            r.PDFKey != "",
		IssuedAt:          r.IssuedAt,
	}
}
