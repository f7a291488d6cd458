// Package quote handles cotizaciones: public requests, admin follow-up and
// the progress log customers track.
package quote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/induservicios/backend/internal/application/mail"
	"github.com/induservicios/backend/internal/application/notification"
	"github.com/induservicios/backend/internal/domain/catalog"
	"github.com/induservicios/backend/internal/domain/quote"
	"github.com/induservicios/backend/internal/domain/shared"
	"github.com/induservicios/backend/internal/infrastructure/logger"
	"github.com/induservicios/backend/internal/infrastructure/spreadsheet"
	"github.com/induservicios/backend/internal/infrastructure/telemetry"
)

// CodePrefix starts every quote code
const CodePrefix = "COT"

// maxExportRows bounds a single XLSX export
const maxExportRows = 10000

// ErrQuoteNotDeletable is returned when deleting an active quote
var ErrQuoteNotDeletable = shared.NewDomainError("QUOTE_NOT_DELETABLE", "Only pending or cancelled quotes can be deleted")

// Notifier reaches the customer. Notify waits for the channels and reports
// them; Dispatch sends in the background.
type Notifier interface {
	Notify(ctx context.Context, msg notification.Message) notification.Result
	Dispatch(ctx context.Context, msg notification.Message) notification.Result
}

// Config holds quote service settings
type Config struct {
	FrontendURL string
}

// Service handles quote operations
type Service struct {
	quotes   quote.Repository
	progress quote.ProgressRepository
	products catalog.ProductRepository
	seq      shared.SequenceGenerator
	notifier Notifier
	events   shared.EventPublisher
	config   Config
	logger   *zap.Logger
	now      func() time.Time
}

// NewService creates a quote service. products may be nil to skip the
// product reference check.
func NewService(
	quotes quote.Repository,
	progress quote.ProgressRepository,
	products catalog.ProductRepository,
	seq shared.SequenceGenerator,
	notifier Notifier,
	events shared.EventPublisher,
	config Config,
	logger *zap.Logger,
) *Service {
	return &Service{
		quotes:   quotes,
		progress: progress,
		products: products,
		seq:      seq,
		notifier: notifier,
		events:   events,
		config:   config,
		logger:   logger,
		now:      time.Now,
	}
}

// Create registers a quote request. The quote is linked to the requester
// when authenticated.
func (s *Service) Create(ctx context.Context, req CreateQuoteRequest, requester Requester) (*QuoteResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "quote", "create")
	defer span.End()
	log := logger.Or(ctx, s.logger)

	if req.ProductID != nil && s.products != nil {
		if _, err := s.products.FindByID(ctx, *req.ProductID); err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return nil, shared.NewDomainError("INVALID_PRODUCT", "Product not found")
			}
			return nil, err
		}
	}

	code, err := shared.NextCode(ctx, s.seq, CodePrefix, s.now())
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("next quote code: %w", err)
	}

	q, err := quote.NewQuote(code, quote.Contact{
		Name:           req.CustomerName,
		Email:          req.Email,
		Phone:          req.Phone,
		Company:        req.Company,
		DocumentType:   req.DocumentType,
		DocumentNumber: strings.TrimSpace(req.DocumentNumber),
	}, req.ServiceType, req.Description, req.Quantity)
	if err != nil {
		return nil, err
	}
	q.UserID = requester.UserID
	q.ProductID = req.ProductID
	q.Address = strings.TrimSpace(req.Address)

	if err := s.quotes.Save(ctx, q); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	s.publish(ctx, q)
	telemetry.SetAttributes(span, telemetry.AttrQuoteID, q.ID.String())

	s.notifier.Dispatch(ctx, notification.Message{
		Email:    q.Email,
		Template: mail.TemplateQuoteReceived,
		Vars: map[string]string{
			"name":         q.CustomerName,
			"code":         q.Code,
			"service_type": q.ServiceType,
			"tracking_url": s.trackingURL(q),
		},
	})

	log.Info("Quote created",
		zap.String("quote_id", q.ID.String()),
		zap.String("code", q.Code),
		zap.String("service_type", q.ServiceType))
	resp := toQuoteResponse(q, false)
	return &resp, nil
}

// Get returns a quote the requester may see
func (s *Service) Get(ctx context.Context, id uuid.UUID, requester Requester) (*QuoteResponse, error) {
	q, err := s.load(ctx, id, requester)
	if err != nil {
		return nil, err
	}
	resp := toQuoteResponse(q, requester.Admin)
	return &resp, nil
}

// GetByCode is the public tracking lookup. The email must match the quote.
func (s *Service) GetByCode(ctx context.Context, code, email string) (*QuoteResponse, []ProgressResponse, error) {
	q, err := s.quotes.FindByCode(ctx, strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		return nil, nil, err
	}
	if !q.BelongsTo(nil, email) {
		return nil, nil, shared.ErrNotFound
	}
	updates, err := s.progress.FindByQuote(ctx, q.ID)
	if err != nil {
		return nil, nil, err
	}
	resp := toQuoteResponse(q, false)
	return &resp, toProgressResponses(updates), nil
}

// List returns a page of quotes for admins
func (s *Service) List(ctx context.Context, filter quote.Filter) (shared.Paginated[QuoteResponse], error) {
	filter.Normalize()
	if filter.Status != nil && !filter.Status.IsValid() {
		return shared.Paginated[QuoteResponse]{}, shared.NewDomainError("INVALID_STATUS", "Unknown quote status")
	}
	return s.list(ctx, filter, true)
}

// ListMine returns the quotes of the requester, matched by user or email
func (s *Service) ListMine(ctx context.Context, requester Requester, filter shared.Filter) (shared.Paginated[QuoteResponse], error) {
	if requester.UserID == nil {
		return shared.Paginated[QuoteResponse]{}, shared.ErrUnauthorized
	}
	f := quote.Filter{Filter: filter, UserID: requester.UserID, Email: requester.Email}
	f.Normalize()
	return s.list(ctx, f, false)
}

func (s *Service) list(ctx context.Context, filter quote.Filter, admin bool) (shared.Paginated[QuoteResponse], error) {
	quotes, total, err := s.quotes.FindAll(ctx, filter)
	if err != nil {
		return shared.Paginated[QuoteResponse]{}, err
	}
	items := make([]QuoteResponse, len(quotes))
	for i := range quotes {
		items[i] = toQuoteResponse(&quotes[i], admin)
	}
	return shared.NewPaginated(items, total, filter.Page, filter.PageSize), nil
}

// Update changes the admin managed details of a quote
func (s *Service) Update(ctx context.Context, id uuid.UUID, req UpdateQuoteRequest) (*QuoteResponse, error) {
	q, err := s.quotes.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := q.UpdateDetails(req.EstimatedAmount, req.EstimatedDelivery, req.AdminNotes, req.Address); err != nil {
		return nil, err
	}
	if err := s.quotes.Save(ctx, q); err != nil {
		return nil, err
	}
	s.publish(ctx, q)
	resp := toQuoteResponse(q, true)
	return &resp, nil
}

// ChangeStatus moves the quote forward, appends a progress update and
// notifies the customer. Notification failures only show on the update flags.
func (s *Service) ChangeStatus(ctx context.Context, id uuid.UUID, req ChangeStatusRequest, authorID *uuid.UUID) (*ProgressResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "quote", "change_status",
		telemetry.AttrQuoteID, id.String(), telemetry.AttrQuoteStatus, string(req.Status))
	defer span.End()

	q, err := s.quotes.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	previous := q.Status
	update, err := q.ChangeStatus(req.Status, req.Comment, authorID)
	if err != nil {
		return nil, err
	}
	result, err := s.appendProgress(ctx, q, update, true)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	logger.Or(ctx, s.logger).Info("Quote status changed",
		zap.String("quote_id", q.ID.String()),
		zap.String("from", string(previous)),
		zap.String("to", string(q.Status)),
		zap.Int("progress", q.Progress),
		zap.Bool("notified_email", update.NotifiedEmail),
		zap.Bool("notified_whatsapp", update.NotifiedWhatsApp))
	return result, nil
}

// AddComment appends a progress update without changing the status
func (s *Service) AddComment(ctx context.Context, id uuid.UUID, req AddCommentRequest, authorID *uuid.UUID) (*ProgressResult, error) {
	q, err := s.quotes.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	update, err := q.AddComment(req.Comment, authorID)
	if err != nil {
		return nil, err
	}
	return s.appendProgress(ctx, q, update, req.Notify)
}

// Cancel cancels a quote. Customers may cancel their own quotes.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID, req CancelRequest, requester Requester) (*ProgressResult, error) {
	q, err := s.load(ctx, id, requester)
	if err != nil {
		return nil, err
	}
	comment := strings.TrimSpace(req.Reason)
	if comment == "" {
		comment = "Cotización cancelada"
	}
	update, err := q.ChangeStatus(quote.StatusCancelada, comment, requester.UserID)
	if err != nil {
		return nil, err
	}
	// a customer cancelling does not need to be told about it
	return s.appendProgress(ctx, q, update, requester.Admin)
}

// ListProgress returns the progress log of a quote, oldest first
func (s *Service) ListProgress(ctx context.Context, id uuid.UUID, requester Requester) ([]ProgressResponse, error) {
	q, err := s.load(ctx, id, requester)
	if err != nil {
		return nil, err
	}
	updates, err := s.progress.FindByQuote(ctx, q.ID)
	if err != nil {
		return nil, err
	}
	return toProgressResponses(updates), nil
}

// Delete removes a pending or cancelled quote
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	q, err := s.quotes.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if !q.CanDelete() {
		return ErrQuoteNotDeletable
	}
	if err := s.quotes.Delete(ctx, id); err != nil {
		return err
	}
	q.MarkDeleted()
	s.publish(ctx, q)
	logger.Or(ctx, s.logger).Info("Quote deleted", zap.String("quote_id", id.String()), zap.String("code", q.Code))
	return nil
}

// ExportXLSX writes the quotes matching filter as a workbook
func (s *Service) ExportXLSX(ctx context.Context, filter quote.Filter, w io.Writer) (int, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "quote", "export")
	defer span.End()

	sheet := spreadsheet.Sheet{
		Name: "Cotizaciones",
		Columns: []spreadsheet.Column{
			{Header: "Código", Width: 18},
			{Header: "Fecha", Width: 18, Format: spreadsheet.FormatDate},
			{Header: "Cliente", Width: 28},
			{Header: "Email", Width: 28},
			{Header: "Teléfono", Width: 14},
			{Header: "Empresa", Width: 24},
			{Header: "Documento", Width: 16},
			{Header: "Servicio", Width: 24},
			{Header: "Cantidad", Width: 10, Format: spreadsheet.FormatInt},
			{Header: "Estado", Width: 16},
			{Header: "Avance %", Width: 10, Format: spreadsheet.FormatInt},
			{Header: "Monto estimado", Width: 16, Format: spreadsheet.FormatMoney},
			{Header: "Entrega estimada", Width: 18, Format: spreadsheet.FormatDate},
		},
	}

	filter.PageSize = 100
	filter.Normalize()
	for filter.Page = 1; len(sheet.Rows) < maxExportRows; filter.Page++ {
		quotes, total, err := s.quotes.FindAll(ctx, filter)
		if err != nil {
			telemetry.RecordError(span, err)
			return 0, err
		}
		for i := range quotes {
			q := &quotes[i]
			doc := ""
			if q.DocumentNumber != "" {
				doc = string(q.DocumentType) + " " + q.DocumentNumber
			}
			sheet.AddRow(q.Code, q.CreatedAt, q.CustomerName, q.Email, q.Phone, q.Company, doc,
				q.ServiceType, q.Quantity, q.Status.Label(), q.Progress, q.EstimatedAmount, q.EstimatedDelivery)
		}
		if len(quotes) == 0 || int64(filter.Page*filter.PageSize) >= total {
			break
		}
	}

	if err := spreadsheet.WriteWorkbook(w, sheet); err != nil {
		telemetry.RecordError(span, err)
		return 0, fmt.Errorf("write quotes workbook: %w", err)
	}
	telemetry.SetAttributes(span, "export.rows", len(sheet.Rows))
	return len(sheet.Rows), nil
}

func (s *Service) appendProgress(ctx context.Context, q *quote.Quote, update *quote.ProgressUpdate, notify bool) (*ProgressResult, error) {
	if err := s.quotes.SaveWithProgress(ctx, q, update); err != nil {
		return nil, err
	}
	s.publish(ctx, q)

	result := &ProgressResult{}
	if notify {
		res := s.notifier.Notify(ctx, s.statusMessage(q, update))
		update.NotifiedEmail = res.Email
		update.NotifiedWhatsApp = res.WhatsApp
		result.WhatsAppLink = res.WhatsAppLink
		if res.Email || res.WhatsApp {
			if err := s.progress.MarkNotified(ctx, update.ID, res.Email, res.WhatsApp); err != nil {
				logger.Or(ctx, s.logger).Warn("Failed to record quote notification",
					zap.String("update_id", update.ID.String()), zap.Error(err))
			}
		}
	}

	result.Quote = toQuoteResponse(q, true)
	result.Update = toProgressResponse(update)
	return result, nil
}

func (s *Service) statusMessage(q *quote.Quote, update *quote.ProgressUpdate) notification.Message {
	progress := strconv.Itoa(update.Progress)
	tracking := s.trackingURL(q)
	return notification.Message{
		Email:    q.Email,
		Phone:    q.Phone,
		Template: mail.TemplateQuoteStatus,
		Vars: map[string]string{
			"name":         q.CustomerName,
			"code":         q.Code,
			"status_label": update.Status.Label(),
			"progress":     progress,
			"comment":      update.Comment,
			"tracking_url": tracking,
		},
		WhatsApp: fmt.Sprintf("Hola %s, tu cotización %s está en estado %s (%s%%). %s %s",
			q.CustomerName, q.Code, update.Status.Label(), progress, update.Comment, tracking),
	}
}

// load fetches a quote and hides it from requesters who do not own it
func (s *Service) load(ctx context.Context, id uuid.UUID, requester Requester) (*quote.Quote, error) {
	q, err := s.quotes.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !requester.Admin && !q.BelongsTo(requester.UserID, requester.Email) {
		return nil, shared.ErrNotFound
	}
	return q, nil
}

func (s *Service) trackingURL(q *quote.Quote) string {
	v := url.Values{}
	v.Set("code", q.Code)
	v.Set("email", q.Email)
	return strings.TrimRight(s.config.FrontendURL, "/") + "/cotizaciones/seguimiento?" + v.Encode()
}

func (s *Service) publish(ctx context.Context, q *quote.Quote) {
	if err := shared.PublishPending(ctx, s.events, q); err != nil {
		logger.Or(ctx, s.logger).Warn("Failed to publish quote events", zap.Error(err))
	}
}

func toProgressResponses(updates []quote.ProgressUpdate) []ProgressResponse {
	out := make([]ProgressResponse, len(updates))
	for i := range updates {
		out[i] = toProgressResponse(&updates[i])
	}
	return out
}
