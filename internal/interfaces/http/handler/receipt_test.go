package handler

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	orderapp "github.com/induservicios/backend/internal/application/order"
	receiptapp "github.com/induservicios/backend/internal/application/receipt"
	"github.com/induservicios/backend/internal/domain/identity"
	"github.com/induservicios/backend/internal/domain/order"
	"github.com/induservicios/backend/internal/domain/shared"
)

type MockReceiptService struct {
	mock.Mock
}

func (m *MockReceiptService) receipt(args mock.Arguments) (*receiptapp.Response, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*receiptapp.Response), args.Error(1)
}

func (m *MockReceiptService) Issue(ctx context.Context, orderID uuid.UUID, receiptType *order.ReceiptType) (*receiptapp.Response, error) {
	return m.receipt(m.Called(ctx, orderID, receiptType))
}

func (m *MockReceiptService) Get(ctx context.Context, id uuid.UUID) (*receiptapp.Response, error) {
	return m.receipt(m.Called(ctx, id))
}

func (m *MockReceiptService) GetByOrder(ctx context.Context, orderID uuid.UUID) (*receiptapp.Response, error) {
	return m.receipt(m.Called(ctx, orderID))
}

func (m *MockReceiptService) RenderHTML(ctx context.Context, id uuid.UUID) (string, error) {
	args := m.Called(ctx, id)
	return args.String(0), args.Error(1)
}

func (m *MockReceiptService) RenderPDF(ctx context.Context, id uuid.UUID) (*receiptapp.Download, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*receiptapp.Download), args.Error(1)
}

type MockOrderAccess struct {
	mock.Mock
}

func (m *MockOrderAccess) Get(ctx context.Context, id uuid.UUID, requester orderapp.Requester) (*orderapp.OrderResponse, error) {
	args := m.Called(ctx, id, requester)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*orderapp.OrderResponse), args.Error(1)
}

func setupReceiptHandler(userID uuid.UUID, role identity.Role) (*MockReceiptService, *MockOrderAccess, *gin.Engine) {
	receipts, orders := new(MockReceiptService), new(MockOrderAccess)
	r, _, authed, admin := testRoutes(userID, role)
	NewReceiptHandler(receipts, orders).RegisterRoutes(authed, admin)
	return receipts, orders, r
}

func TestReceiptHandler_GetForOrder(t *testing.T) {
	userID := uuid.New()
	receipts, orders, r := setupReceiptHandler(userID, identity.RoleCliente)
	orderID := uuid.New()
	orders.On("Get", mock.Anything, orderID, orderapp.Requester{UserID: &userID}).Return(&orderapp.OrderResponse{ID: orderID}, nil)
	receipts.On("GetByOrder", mock.Anything, orderID).Return(&receiptapp.Response{OrderID: orderID, Number: "B001-00000012"}, nil)

	w := doRequest(r, http.MethodGet, "/orders/"+orderID.String()+"/receipt", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeResponse(t, w).Data.(map[string]any)
	assert.Equal(t, "B001-00000012", data["number"])
}

func TestReceiptHandler_GetForOrder_NotOwner(t *testing.T) {
	receipts, orders, r := setupReceiptHandler(uuid.New(), identity.RoleCliente)
	orderID := uuid.New()
	orders.On("Get", mock.Anything, orderID, mock.Anything).Return(nil, shared.ErrNotFound)

	w := doRequest(r, http.MethodGet, "/orders/"+orderID.String()+"/receipt/pdf", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
	receipts.AssertNotCalled(t, "GetByOrder", mock.Anything, mock.Anything)
	receipts.AssertNotCalled(t, "RenderPDF", mock.Anything, mock.Anything)
}

func TestReceiptHandler_OrderHTML(t *testing.T) {
	receipts, orders, r := setupReceiptHandler(uuid.New(), identity.RoleCliente)
	orderID, receiptID := uuid.New(), uuid.New()
	orders.On("Get", mock.Anything, orderID, mock.Anything).Return(&orderapp.OrderResponse{ID: orderID}, nil)
	receipts.On("GetByOrder", mock.Anything, orderID).Return(&receiptapp.Response{ID: receiptID}, nil)
	receipts.On("RenderHTML", mock.Anything, receiptID).Return("<html>BOLETA</html>", nil)

	w := doRequest(r, http.MethodGet, "/orders/"+orderID.String()+"/receipt/html", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/html; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, "<html>BOLETA</html>", w.Body.String())
}

func TestReceiptHandler_Issue(t *testing.T) {
	receipts, _, r := setupReceiptHandler(uuid.New(), identity.RoleAdmin)
	orderID := uuid.New()
	factura := order.ReceiptTypeFactura
	receipts.On("Issue", mock.Anything, orderID, &factura).Return(&receiptapp.Response{Type: factura}, nil)
	receipts.On("Issue", mock.Anything, orderID, (*order.ReceiptType)(nil)).Return(&receiptapp.Response{}, nil)

	w := doRequest(r, http.MethodPost, "/admin/orders/"+orderID.String()+"/receipt", IssueReceiptRequest{Type: &factura})
	assert.Equal(t, http.StatusCreated, w.Code)

	w = doRequest(r, http.MethodPost, "/admin/orders/"+orderID.String()+"/receipt", nil)
	assert.Equal(t, http.StatusCreated, w.Code)

	w = doRequest(r, http.MethodPost, "/admin/orders/"+orderID.String()+"/receipt", `{"type":"TICKET"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	receipts.AssertNumberOfCalls(t, "Issue", 2)
}

func TestReceiptHandler_Issue_Unpaid(t *testing.T) {
	receipts, _, r := setupReceiptHandler(uuid.New(), identity.RoleAdmin)
	orderID := uuid.New()
	receipts.On("Issue", mock.Anything, orderID, mock.Anything).Return(nil, shared.ErrInvalidState)

	w := doRequest(r, http.MethodPost, "/admin/orders/"+orderID.String()+"/receipt", nil)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestReceiptHandler_PDF(t *testing.T) {
	receipts, _, r := setupReceiptHandler(uuid.New(), identity.RoleAdmin)
	id := uuid.New()
	expires := time.Date(2026, 5, 4, 10, 15, 0, 0, time.UTC)
	receipts.On("RenderPDF", mock.Anything, id).Return(&receiptapp.Download{URL: "https://bucket/r.pdf", ExpiresAt: expires}, nil)

	w := doRequest(r, http.MethodGet, "/admin/receipts/"+id.String()+"/pdf", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeResponse(t, w).Data.(map[string]any)
	assert.Equal(t, "https://bucket/r.pdf", data["url"])
}
