package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/induservicios/backend/internal/domain/mail"
	"github.com/induservicios/backend/internal/domain/shared"
)

const (
	defaultStatsWindow = 24 * time.Hour
	maxStatsWindow     = 30 * 24 * time.Hour
)

// MailService exposes the delivery log
type MailService interface {
	ListLogs(ctx context.Context, filter mail.LogFilter) (shared.Paginated[mail.EmailLog], error)
	GetLog(ctx context.Context, id uuid.UUID) (*mail.EmailLog, error)
	Stats(ctx context.Context, window time.Duration) (*mail.Stats, error)
	Resend(ctx context.Context, id uuid.UUID) (*mail.EmailLog, error)
	CheckFailures(ctx context.Context) (bool, error)
}

// MailHandler handles the admin mail dashboard
type MailHandler struct {
	BaseHandler
	mail MailService
}

// NewMailHandler creates a new MailHandler
func NewMailHandler(svc MailService) *MailHandler {
	return &MailHandler{mail: svc}
}

// RegisterRoutes mounts the mail routes
func (h *MailHandler) RegisterRoutes(admin gin.IRoutes) {
	admin.GET("/admin/mail/logs", h.ListLogs)
	admin.GET("/admin/mail/logs/:id", h.GetLog)
	admin.POST("/admin/mail/logs/:id/resend", h.Resend)
	admin.GET("/admin/mail/stats", h.Stats)
	admin.POST("/admin/mail/check", h.Check)
}

// MailLogQuery holds the delivery log filters
type MailLogQuery struct {
	Status   string `form:"status" binding:"omitempty,oneof=SENT FAILED"`
	Template string `form:"template" binding:"max=60"`
	To       string `form:"to" binding:"max=200"`
}

// ListLogs returns a page of deliveries, newest first
func (h *MailHandler) ListLogs(c *gin.Context) {
	req, ok := h.listFilter(c)
	if !ok {
		return
	}
	var q MailLogQuery
	if !h.bindQuery(c, &q) {
		return
	}
	filter := mail.LogFilter{Filter: req.Filter(), Template: q.Template, To: q.To}
	if q.Status != "" {
		s := mail.DeliveryStatus(q.Status)
		filter.Status = &s
	}
	page, err := h.mail.ListLogs(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	Page(c, page)
}

// GetLog returns one delivery
func (h *MailHandler) GetLog(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	entry, err := h.mail.GetLog(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, entry)
}

// Resend delivers a logged message again
func (h *MailHandler) Resend(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	entry, err := h.mail.Resend(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, entry)
}

// Stats counts deliveries in a window given as a Go duration, e.g. 1h or 168h
func (h *MailHandler) Stats(c *gin.Context) {
	window := defaultStatsWindow
	if raw := c.Query("window"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 || d > maxStatsWindow {
			h.BadRequest(c, "window must be a positive duration up to 720h")
			return
		}
		window = d
	}
	stats, err := h.mail.Stats(c.Request.Context(), window)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, stats)
}

// Check runs the failure alert on demand
func (h *MailHandler) Check(c *gin.Context) {
	alerted, err := h.mail.CheckFailures(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{"alerted": alerted})
}
