package handler

import (
	"bytes"
	"context"
	"io"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	quoteapp "github.com/induservicios/backend/internal/application/quote"
	"github.com/induservicios/backend/internal/domain/quote"
	"github.com/induservicios/backend/internal/domain/shared"
	"github.com/induservicios/backend/internal/interfaces/http/middleware"
)

// QuoteService manages cotizaciones
type QuoteService interface {
	Create(ctx context.Context, req quoteapp.CreateQuoteRequest, requester quoteapp.Requester) (*quoteapp.QuoteResponse, error)
	Get(ctx context.Context, id uuid.UUID, requester quoteapp.Requester) (*quoteapp.QuoteResponse, error)
	GetByCode(ctx context.Context, code, email string) (*quoteapp.QuoteResponse, []quoteapp.ProgressResponse, error)
	List(ctx context.Context, filter quote.Filter) (shared.Paginated[quoteapp.QuoteResponse], error)
	ListMine(ctx context.Context, requester quoteapp.Requester, filter shared.Filter) (shared.Paginated[quoteapp.QuoteResponse], error)
	Update(ctx context.Context, id uuid.UUID, req quoteapp.UpdateQuoteRequest) (*quoteapp.QuoteResponse, error)
	ChangeStatus(ctx context.Context, id uuid.UUID, req quoteapp.ChangeStatusRequest, authorID *uuid.UUID) (*quoteapp.ProgressResult, error)
	AddComment(ctx context.Context, id uuid.UUID, req quoteapp.AddCommentRequest, authorID *uuid.UUID) (*quoteapp.ProgressResult, error)
	Cancel(ctx context.Context, id uuid.UUID, req quoteapp.CancelRequest, requester quoteapp.Requester) (*quoteapp.ProgressResult, error)
	ListProgress(ctx context.Context, id uuid.UUID, requester quoteapp.Requester) ([]quoteapp.ProgressResponse, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ExportXLSX(ctx context.Context, filter quote.Filter, w io.Writer) (int, error)
}

// QuoteHandler handles quote endpoints
type QuoteHandler struct {
	BaseHandler
	quotes QuoteService
	now    func() time.Time
}

// NewQuoteHandler creates a new QuoteHandler
func NewQuoteHandler(quotes QuoteService) *QuoteHandler {
	return &QuoteHandler{quotes: quotes, now: time.Now}
}

// RegisterRoutes mounts the quote routes. public runs the optional JWT
// middleware so requests from signed-in customers are linked to them.
func (h *QuoteHandler) RegisterRoutes(public, authed, admin gin.IRoutes) {
	public.POST("/quotes", h.Create)
	public.GET("/quotes/track", h.Track)

	authed.GET("/quotes/mine", h.ListMine)
	authed.GET("/quotes/:id", h.Get)
	authed.GET("/quotes/:id/progress", h.ListProgress)
	authed.POST("/quotes/:id/cancel", h.Cancel)

	admin.GET("/admin/quotes", h.List)
	admin.GET("/admin/quotes/export", h.Export)
	admin.PUT("/admin/quotes/:id", h.Update)
	admin.POST("/admin/quotes/:id/status", h.ChangeStatus)
	admin.POST("/admin/quotes/:id/comments", h.AddComment)
	admin.DELETE("/admin/quotes/:id", h.Delete)
}

// QuoteTrackQuery identifies a quote for public tracking
type QuoteTrackQuery struct {
	Code  string `form:"code" binding:"required,max=30"`
	Email string `form:"email" binding:"required,email"`
}

// QuoteTrackResponse is the public view of a quote and its log
type QuoteTrackResponse struct {
	Quote    quoteapp.QuoteResponse      `json:"quote"`
	Progress []quoteapp.ProgressResponse `json:"progress"`
}

// QuoteListQuery holds the admin filters
type QuoteListQuery struct {
	DateRangeQuery
	Status string `form:"status" binding:"omitempty,oneof=PENDIENTE EN_PROCESO PRODUCCION INSTALACION ENTREGA CANCELADA"`
	Email  string `form:"email" binding:"omitempty,max=200"`
}

func quoteRequester(c *gin.Context) quoteapp.Requester {
	return quoteapp.Requester{
		UserID: optionalUserID(c),
		Email:  middleware.GetJWTEmail(c),
		Admin:  middleware.IsAdmin(c),
	}
}

// Create registers a quote request from the public form
func (h *QuoteHandler) Create(c *gin.Context) {
	var req quoteapp.CreateQuoteRequest
	if !h.bindJSON(c, &req) {
		return
	}
	q, err := h.quotes.Create(c.Request.Context(), req, quoteRequester(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, q)
}

// Track returns a quote by code when the email matches
func (h *QuoteHandler) Track(c *gin.Context) {
	var q QuoteTrackQuery
	if !h.bindQuery(c, &q) {
		return
	}
	resp, progress, err := h.quotes.GetByCode(c.Request.Context(), q.Code, q.Email)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if progress == nil {
		progress = []quoteapp.ProgressResponse{}
	}
	h.Success(c, QuoteTrackResponse{Quote: *resp, Progress: progress})
}

// ListMine returns the caller's quotes
func (h *QuoteHandler) ListMine(c *gin.Context) {
	req, ok := h.listFilter(c)
	if !ok {
		return
	}
	page, err := h.quotes.ListMine(c.Request.Context(), quoteRequester(c), req.Filter())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	Page(c, page)
}

// Get returns a quote owned by the caller, or any quote for admins
func (h *QuoteHandler) Get(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	q, err := h.quotes.Get(c.Request.Context(), id, quoteRequester(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, q)
}

// ListProgress returns the progress log of a quote
func (h *QuoteHandler) ListProgress(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	progress, err := h.quotes.ListProgress(c.Request.Context(), id, quoteRequester(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, progress)
}

// Cancel cancels a quote
func (h *QuoteHandler) Cancel(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	var req quoteapp.CancelRequest
	if c.Request.ContentLength != 0 && !h.bindJSON(c, &req) {
		return
	}
	result, err := h.quotes.Cancel(c.Request.Context(), id, req, quoteRequester(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

func (h *QuoteHandler) adminFilter(c *gin.Context) (quote.Filter, bool) {
	req, ok := h.listFilter(c)
	if !ok {
		return quote.Filter{}, false
	}
	var q QuoteListQuery
	if !h.bindQuery(c, &q) {
		return quote.Filter{}, false
	}
	from, to, err := q.Bounds()
	if err != nil {
		h.BadRequest(c, err.Error())
		return quote.Filter{}, false
	}
	filter := quote.Filter{Filter: req.Filter(), Email: q.Email, From: from, To: to}
	if q.Status != "" {
		status := quote.Status(q.Status)
		filter.Status = &status
	}
	return filter, true
}

// List returns quotes for the admin panel
func (h *QuoteHandler) List(c *gin.Context) {
	filter, ok := h.adminFilter(c)
	if !ok {
		return
	}
	page, err := h.quotes.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	Page(c, page)
}

// Export streams the filtered quotes as XLSX
func (h *QuoteHandler) Export(c *gin.Context) {
	filter, ok := h.adminFilter(c)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if _, err := h.quotes.ExportXLSX(c.Request.Context(), filter, &buf); err != nil {
		h.HandleError(c, err)
		return
	}
	startXLSXDownload(c, "cotizaciones", h.now())
	_, _ = c.Writer.Write(buf.Bytes())
}

// Update edits admin details
func (h *QuoteHandler) Update(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	var req quoteapp.UpdateQuoteRequest
	if !h.bindJSON(c, &req) {
		return
	}
	q, err := h.quotes.Update(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, q)
}

// ChangeStatus advances a quote and notifies the customer
func (h *QuoteHandler) ChangeStatus(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	var req quoteapp.ChangeStatusRequest
	if !h.bindJSON(c, &req) {
		return
	}
	result, err := h.quotes.ChangeStatus(c.Request.Context(), id, req, optionalUserID(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// AddComment appends a note to the progress log
func (h *QuoteHandler) AddComment(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	var req quoteapp.AddCommentRequest
	if !h.bindJSON(c, &req) {
		return
	}
	result, err := h.quotes.AddComment(c.Request.Context(), id, req, optionalUserID(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, result)
}

// Delete removes a pending or cancelled quote
func (h *QuoteHandler) Delete(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	if err := h.quotes.Delete(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}
