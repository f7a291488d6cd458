package handler

import (
	"bytes"
	"context"
	"io"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	orderapp "github.com/induservicios/backend/internal/application/order"
	"github.com/induservicios/backend/internal/domain/order"
	"github.com/induservicios/backend/internal/domain/shared"
	"github.com/induservicios/backend/internal/interfaces/http/middleware"
)

// OrderService manages pedidos
type OrderService interface {
	CreateCardOrder(ctx context.Context, req orderapp.CheckoutRequest, requester orderapp.Requester) (*orderapp.CheckoutResponse, error)
	CreateCashOnDeliveryOrder(ctx context.Context, req orderapp.CheckoutRequest, requester orderapp.Requester) (*orderapp.CheckoutResponse, error)
	Get(ctx context.Context, id uuid.UUID, requester orderapp.Requester) (*orderapp.OrderResponse, error)
	GetByCode(ctx context.Context, code, email string) (*orderapp.OrderResponse, error)
	List(ctx context.Context, filter order.Filter) (shared.Paginated[orderapp.OrderResponse], error)
	ListMine(ctx context.Context, requester orderapp.Requester, filter shared.Filter) (shared.Paginated[orderapp.OrderResponse], error)
	UpdateStatus(ctx context.Context, id uuid.UUID, req orderapp.UpdateStatusRequest) (*orderapp.OrderResponse, error)
	Cancel(ctx context.Context, id uuid.UUID, req orderapp.CancelRequest, requester orderapp.Requester) (*orderapp.CancelResult, error)
	MarkCashCollected(ctx context.Context, id uuid.UUID) (*orderapp.OrderResponse, error)
	Delete(ctx context.Context, id uuid.UUID) error
	UploadEvidence(ctx context.Context, id uuid.UUID, data []byte, description string, uploadedBy *uuid.UUID) (*orderapp.EvidenceResponse, error)
	ListEvidence(ctx context.Context, id uuid.UUID, requester orderapp.Requester) ([]orderapp.EvidenceResponse, error)
	ExportXLSX(ctx context.Context, filter order.Filter, w io.Writer) (int, error)
}

// OrderHandler handles order endpoints
type OrderHandler struct {
	BaseHandler
	orders        OrderService
	maxUploadSize int64
	now           func() time.Time
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(orders OrderService, maxUploadSize int64) *OrderHandler {
	return &OrderHandler{orders: orders, maxUploadSize: maxUploadSize, now: time.Now}
}

// RegisterRoutes mounts the order routes. public runs the optional JWT
// middleware so checkouts of signed-in customers are linked to them.
func (h *OrderHandler) RegisterRoutes(public, authed, admin gin.IRoutes) {
	public.POST("/orders/checkout/card", h.CheckoutCard)
	public.POST("/orders/checkout/cod", h.CheckoutCashOnDelivery)
	public.GET("/orders/track", h.Track)

	authed.GET("/orders/mine", h.ListMine)
	authed.GET("/orders/:id", h.Get)
	authed.POST("/orders/:id/cancel", h.Cancel)
	authed.GET("/orders/:id/evidence", h.ListEvidence)

	admin.GET("/admin/orders", h.List)
	admin.GET("/admin/orders/export", h.Export)
	admin.PATCH("/admin/orders/:id/status", h.UpdateStatus)
	admin.POST("/admin/orders/:id/cash-collected", h.MarkCashCollected)
	admin.POST("/admin/orders/:id/evidence", h.UploadEvidence)
	admin.DELETE("/admin/orders/:id", h.Delete)
}

// OrderTrackQuery identifies an order for public tracking
type OrderTrackQuery struct {
	Code  string `form:"code" binding:"required,max=30"`
	Email string `form:"email" binding:"required,email"`
}

// OrderListQuery holds the admin filters
type OrderListQuery struct {
	DateRangeQuery
	Status        string `form:"status" binding:"omitempty,oneof=PENDIENTE CONFIRMADO EN_PREPARACION ENVIADO ENTREGADO CANCELADO"`
	PaymentMethod string `form:"payment_method" binding:"omitempty,oneof=TARJETA CONTRA_ENTREGA"`
	PaymentStatus string `form:"payment_status" binding:"omitempty,oneof=PENDIENTE PAGADO FALLIDO REEMBOLSADO"`
	UserID        string `form:"user_id" binding:"omitempty,uuid"`
}

func orderRequester(c *gin.Context) orderapp.Requester {
	return orderapp.Requester{UserID: optionalUserID(c), Admin: middleware.IsAdmin(c)}
}

// CheckoutCard creates a card order and its Stripe PaymentIntent
func (h *OrderHandler) CheckoutCard(c *gin.Context) {
	var req orderapp.CheckoutRequest
	if !h.bindJSON(c, &req) {
		return
	}
	resp, err := h.orders.CreateCardOrder(c.Request.Context(), req, orderRequester(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// CheckoutCashOnDelivery creates a contra-entrega order
func (h *OrderHandler) CheckoutCashOnDelivery(c *gin.Context) {
	var req orderapp.CheckoutRequest
	if !h.bindJSON(c, &req) {
		return
	}
	resp, err := h.orders.CreateCashOnDeliveryOrder(c.Request.Context(), req, orderRequester(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// Track returns an order by code when the email matches
func (h *OrderHandler) Track(c *gin.Context) {
	var q OrderTrackQuery
	if !h.bindQuery(c, &q) {
		return
	}
	resp, err := h.orders.GetByCode(c.Request.Context(), q.Code, q.Email)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// ListMine returns the caller's orders
func (h *OrderHandler) ListMine(c *gin.Context) {
	req, ok := h.listFilter(c)
	if !ok {
		return
	}
	page, err := h.orders.ListMine(c.Request.Context(), orderRequester(c), req.Filter())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	Page(c, page)
}

// Get returns an order owned by the caller, or any order for admins
func (h *OrderHandler) Get(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	resp, err := h.orders.Get(c.Request.Context(), id, orderRequester(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Cancel cancels an order, releasing stock and refunding card payments
func (h *OrderHandler) Cancel(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	var req orderapp.CancelRequest
	if c.Request.ContentLength != 0 && !h.bindJSON(c, &req) {
		return
	}
	result, err := h.orders.Cancel(c.Request.Context(), id, req, orderRequester(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// ListEvidence returns the delivery photos of an order
func (h *OrderHandler) ListEvidence(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	evidence, err := h.orders.ListEvidence(c.Request.Context(), id, orderRequester(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if evidence == nil {
		evidence = []orderapp.EvidenceResponse{}
	}
	h.Success(c, evidence)
}

func (h *OrderHandler) adminFilter(c *gin.Context) (order.Filter, bool) {
	req, ok := h.listFilter(c)
	if !ok {
		return order.Filter{}, false
	}
	var q OrderListQuery
	if !h.bindQuery(c, &q) {
		return order.Filter{}, false
	}
	from, to, err := q.Bounds()
	if err != nil {
		h.BadRequest(c, err.Error())
		return order.Filter{}, false
	}

	filter := order.Filter{Filter: req.Filter(), From: from, To: to}
	if q.Status != "" {
		v := order.Status(q.Status)
		filter.Status = &v
	}
	if q.PaymentMethod != "" {
		v := order.PaymentMethod(q.PaymentMethod)
		filter.PaymentMethod = &v
	}
	if q.PaymentStatus != "" {
		v := order.PaymentStatus(q.PaymentStatus)
		filter.PaymentStatus = &v
	}
	if q.UserID != "" {
		v := uuid.MustParse(q.UserID)
		filter.UserID = &v
	}
	return filter, true
}

// List returns orders for the admin panel
func (h *OrderHandler) List(c *gin.Context) {
	filter, ok := h.adminFilter(c)
	if !ok {
		return
	}
	page, err := h.orders.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	Page(c, page)
}

// Export streams the filtered orders as XLSX
func (h *OrderHandler) Export(c *gin.Context) {
	filter, ok := h.adminFilter(c)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if _, err := h.orders.ExportXLSX(c.Request.Context(), filter, &buf); err != nil {
		h.HandleError(c, err)
		return
	}
	startXLSXDownload(c, "pedidos", h.now())
	_, _ = c.Writer.Write(buf.Bytes())
}

// UpdateStatus moves an order along its lifecycle
func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	var req orderapp.UpdateStatusRequest
	if !h.bindJSON(c, &req) {
		return
	}
	resp, err := h.orders.UpdateStatus(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// MarkCashCollected records the contra-entrega payment
func (h *OrderHandler) MarkCashCollected(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	resp, err := h.orders.MarkCashCollected(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// UploadEvidence stores a delivery photo from the "photo" form field
func (h *OrderHandler) UploadEvidence(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	data, _, err := readFormFile(c, "photo", h.maxUploadSize)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	ev, err := h.orders.UploadEvidence(c.Request.Context(), id, data, c.PostForm("description"), optionalUserID(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, ev)
}

// Delete removes a cancelled order
func (h *OrderHandler) Delete(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	if err := h.orders.Delete(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}
