package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	orderapp "github.com/induservicios/backend/internal/application/order"
	receiptapp "github.com/induservicios/backend/internal/application/receipt"
	"github.com/induservicios/backend/internal/domain/order"
)

// ReceiptService issues and renders comprobantes
type ReceiptService interface {
	Issue(ctx context.Context, orderID uuid.UUID, receiptType *order.ReceiptType) (*receiptapp.Response, error)
	Get(ctx context.Context, id uuid.UUID) (*receiptapp.Response, error)
	GetByOrder(ctx context.Context, orderID uuid.UUID) (*receiptapp.Response, error)
	RenderHTML(ctx context.Context, id uuid.UUID) (string, error)
	RenderPDF(ctx context.Context, id uuid.UUID) (*receiptapp.Download, error)
}

// OrderAccess checks that the caller may see an order
type OrderAccess interface {
	Get(ctx context.Context, id uuid.UUID, requester orderapp.Requester) (*orderapp.OrderResponse, error)
}

// ReceiptHandler handles comprobante endpoints
type ReceiptHandler struct {
	BaseHandler
	receipts ReceiptService
	orders   OrderAccess
}

// NewReceiptHandler creates a new ReceiptHandler
func NewReceiptHandler(receipts ReceiptService, orders OrderAccess) *ReceiptHandler {
	return &ReceiptHandler{receipts: receipts, orders: orders}
}

// RegisterRoutes mounts the receipt routes
func (h *ReceiptHandler) RegisterRoutes(authed, admin gin.IRoutes) {
	authed.GET("/orders/:id/receipt", h.GetForOrder)
	authed.GET("/orders/:id/receipt/html", h.OrderHTML)
	authed.GET("/orders/:id/receipt/pdf", h.OrderPDF)

	admin.POST("/admin/orders/:id/receipt", h.Issue)
	admin.GET("/admin/receipts/:id", h.Get)
	admin.GET("/admin/receipts/:id/html", h.HTML)
	admin.GET("/admin/receipts/:id/pdf", h.PDF)
}

// IssueReceiptRequest optionally overrides the checkout receipt type
type IssueReceiptRequest struct {
	Type *order.ReceiptType `json:"type" binding:"omitempty,oneof=BOLETA FACTURA"`
}

// orderReceipt resolves the receipt of an order the caller can see
func (h *ReceiptHandler) orderReceipt(c *gin.Context) (*receiptapp.Response, bool) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return nil, false
	}
	ctx := c.Request.Context()
	if _, err := h.orders.Get(ctx, id, orderRequester(c)); err != nil {
		h.HandleError(c, err)
		return nil, false
	}
	r, err := h.receipts.GetByOrder(ctx, id)
	if err != nil {
		h.HandleError(c, err)
		return nil, false
	}
	return r, true
}

// GetForOrder returns the receipt of one of the caller's orders
func (h *ReceiptHandler) GetForOrder(c *gin.Context) {
	r, ok := h.orderReceipt(c)
	if !ok {
		return
	}
	h.Success(c, r)
}

// OrderHTML renders the receipt of one of the caller's orders
func (h *ReceiptHandler) OrderHTML(c *gin.Context) {
	r, ok := h.orderReceipt(c)
	if !ok {
		return
	}
	h.writeHTML(c, r.ID)
}

// OrderPDF returns a download link for one of the caller's orders
func (h *ReceiptHandler) OrderPDF(c *gin.Context) {
	r, ok := h.orderReceipt(c)
	if !ok {
		return
	}
	h.writePDF(c, r.ID)
}

// Issue emits the receipt of a paid order
func (h *ReceiptHandler) Issue(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	var req IssueReceiptRequest
	if c.Request.ContentLength > 0 && !h.bindJSON(c, &req) {
		return
	}
	r, err := h.receipts.Issue(c.Request.Context(), id, req.Type)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, r)
}

// Get returns a receipt by id
func (h *ReceiptHandler) Get(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	r, err := h.receipts.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, r)
}

// HTML renders a receipt for printing
func (h *ReceiptHandler) HTML(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	h.writeHTML(c, id)
}

// PDF returns a download link to the rendered receipt
func (h *ReceiptHandler) PDF(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	h.writePDF(c, id)
}

func (h *ReceiptHandler) writeHTML(c *gin.Context, id uuid.UUID) {
	html, err := h.receipts.RenderHTML(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(html))
}

func (h *ReceiptHandler) writePDF(c *gin.Context, id uuid.UUID) {
	dl, err := h.receipts.RenderPDF(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dl)
}
