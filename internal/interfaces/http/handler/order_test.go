package handler

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	orderapp "github.com/induservicios/backend/internal/application/order"
	"github.com/induservicios/backend/internal/domain/identity"
	"github.com/induservicios/backend/internal/domain/order"
	"github.com/induservicios/backend/internal/domain/shared"
)

type MockOrderService struct {
	mock.Mock
}

func (m *MockOrderService) order(args mock.Arguments) (*orderapp.OrderResponse, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*orderapp.OrderResponse), args.Error(1)
}

func (m *MockOrderService) checkout(args mock.Arguments) (*orderapp.CheckoutResponse, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*orderapp.CheckoutResponse), args.Error(1)
}

func (m *MockOrderService) CreateCardOrder(ctx context.Context, req orderapp.CheckoutRequest, requester orderapp.Requester) (*orderapp.CheckoutResponse, error) {
	return m.checkout(m.Called(ctx, req, requester))
}

func (m *MockOrderService) CreateCashOnDeliveryOrder(ctx context.Context, req orderapp.CheckoutRequest, requester orderapp.Requester) (*orderapp.CheckoutResponse, error) {
	return m.checkout(m.Called(ctx, req, requester))
}

func (m *MockOrderService) Get(ctx context.Context, id uuid.UUID, requester orderapp.Requester) (*orderapp.OrderResponse, error) {
	return m.order(m.Called(ctx, id, requester))
}

func (m *MockOrderService) GetByCode(ctx context.Context, code, email string) (*orderapp.OrderResponse, error) {
	return m.order(m.Called(ctx, code, email))
}

func (m *MockOrderService) List(ctx context.Context, filter order.Filter) (shared.Paginated[orderapp.OrderResponse], error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(shared.Paginated[orderapp.OrderResponse]), args.Error(1)
}

func (m *MockOrderService) ListMine(ctx context.Context, requester orderapp.Requester, filter shared.Filter) (shared.Paginated[orderapp.OrderResponse], error) {
	args := m.Called(ctx, requester, filter)
	return args.Get(0).(shared.Paginated[orderapp.OrderResponse]), args.Error(1)
}

func (m *MockOrderService) UpdateStatus(ctx context.Context, id uuid.UUID, req orderapp.UpdateStatusRequest) (*orderapp.OrderResponse, error) {
	return m.order(m.Called(ctx, id, req))
}

func (m *MockOrderService) Cancel(ctx context.Context, id uuid.UUID, req orderapp.CancelRequest, requester orderapp.Requester) (*orderapp.CancelResult, error) {
	args := m.Called(ctx, id, req, requester)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*orderapp.CancelResult), args.Error(1)
}

func (m *MockOrderService) MarkCashCollected(ctx context.Context, id uuid.UUID) (*orderapp.OrderResponse, error) {
	return m.order(m.Called(ctx, id))
}

func (m *MockOrderService) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockOrderService) UploadEvidence(ctx context.Context, id uuid.UUID, data []byte, description string, uploadedBy *uuid.UUID) (*orderapp.EvidenceResponse, error) {
	args := m.Called(ctx, id, data, description, uploadedBy)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*orderapp.EvidenceResponse), args.Error(1)
}

func (m *MockOrderService) ListEvidence(ctx context.Context, id uuid.UUID, requester orderapp.Requester) ([]orderapp.EvidenceResponse, error) {
	args := m.Called(ctx, id, requester)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]orderapp.EvidenceResponse), args.Error(1)
}

func (m *MockOrderService) ExportXLSX(ctx context.Context, filter order.Filter, w io.Writer) (int, error) {
	args := m.Called(ctx, filter, w)
	return args.Int(0), args.Error(1)
}

func setupOrderHandler(userID uuid.UUID, role identity.Role) (*MockOrderService, *gin.Engine) {
	svc := new(MockOrderService)
	r, public, authed, admin := testRoutes(userID, role)
	h := NewOrderHandler(svc, 1<<20)
	h.now = func() time.Time { return time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC) }
	h.RegisterRoutes(public, authed, admin)
	return svc, r
}

func sampleCheckout() orderapp.CheckoutRequest {
	return orderapp.CheckoutRequest{
		CustomerName:    "Rosa Mendoza",
		Email:           "rosa@example.com",
		Phone:           "+51987654321",
		ShippingAddress: "Av. Arequipa 1234",
		City:            "Lima",
		Items:           []orderapp.LineRequest{{ProductID: uuid.New(), Quantity: 2}},
	}
}

func TestOrderHandler_CheckoutCard(t *testing.T) {
	svc, r := setupOrderHandler(uuid.New(), identity.RoleCliente)
	req := sampleCheckout()
	svc.On("CreateCardOrder", mock.Anything, req, orderapp.Requester{}).Return(&orderapp.CheckoutResponse{
		Order:        orderapp.OrderResponse{Code: "PED-000010", PaymentMethod: order.PaymentMethodTarjeta},
		ClientSecret: "pi_123_secret_456",
	}, nil)

	w := doRequest(r, http.MethodPost, "/orders/checkout/card", req)

	require.Equal(t, http.StatusCreated, w.Code)
	data := decodeResponse(t, w).Data.(map[string]any)
	assert.Equal(t, "pi_123_secret_456", data["client_secret"])
}

func TestOrderHandler_CheckoutCard_PaymentsDisabled(t *testing.T) {
	svc, r := setupOrderHandler(uuid.New(), identity.RoleCliente)
	svc.On("CreateCardOrder", mock.Anything, mock.Anything, mock.Anything).Return(nil, orderapp.ErrPaymentUnavailable)

	w := doRequest(r, http.MethodPost, "/orders/checkout/card", sampleCheckout())

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "PAYMENT_UNAVAILABLE", errorCodeOf(t, w))
}

func TestOrderHandler_CheckoutCashOnDelivery(t *testing.T) {
	svc, r := setupOrderHandler(uuid.New(), identity.RoleCliente)
	svc.On("CreateCashOnDeliveryOrder", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, shared.NewDomainError("COD_NOT_ALLOWED", "Contra entrega no disponible en Cusco"))

	req := sampleCheckout()
	req.City = "Cusco"
	w := doRequest(r, http.MethodPost, "/orders/checkout/cod", req)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "COD_NOT_ALLOWED", errorCodeOf(t, w))
}

func TestOrderHandler_Checkout_Validation(t *testing.T) {
	svc, r := setupOrderHandler(uuid.New(), identity.RoleCliente)

	req := sampleCheckout()
	req.Items = nil
	w := doRequest(r, http.MethodPost, "/orders/checkout/cod", req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	req = sampleCheckout()
	req.Items[0].Quantity = 0
	w = doRequest(r, http.MethodPost, "/orders/checkout/cod", req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	svc.AssertNotCalled(t, "CreateCashOnDeliveryOrder", mock.Anything, mock.Anything, mock.Anything)
}

func TestOrderHandler_Track(t *testing.T) {
	svc, r := setupOrderHandler(uuid.New(), identity.RoleCliente)
	svc.On("GetByCode", mock.Anything, "PED-000010", "rosa@example.com").
		Return(&orderapp.OrderResponse{Code: "PED-000010", Status: order.StatusEnviado}, nil)

	w := doRequest(r, http.MethodGet, "/orders/track?code=PED-000010&email=rosa@example.com", nil)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestOrderHandler_ListMine(t *testing.T) {
	userID := uuid.New()
	svc, r := setupOrderHandler(userID, identity.RoleCliente)
	svc.On("ListMine", mock.Anything, orderapp.Requester{UserID: &userID}, mock.AnythingOfType("shared.Filter")).
		Return(shared.NewPaginated([]orderapp.OrderResponse{{Code: "PED-000001"}}, 1, 1, 20), nil)

	w := doRequest(r, http.MethodGet, "/orders/mine", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	svc.AssertExpectations(t)
}

func TestOrderHandler_Get_NotOwner(t *testing.T) {
	svc, r := setupOrderHandler(uuid.New(), identity.RoleCliente)
	id := uuid.New()
	svc.On("Get", mock.Anything, id, mock.Anything).Return(nil, shared.ErrNotFound)

	w := doRequest(r, http.MethodGet, "/orders/"+id.String(), nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestOrderHandler_Cancel(t *testing.T) {
	userID := uuid.New()
	svc, r := setupOrderHandler(userID, identity.RoleCliente)
	id := uuid.New()
	svc.On("Cancel", mock.Anything, id, orderapp.CancelRequest{Reason: "Pedido duplicado"}, orderapp.Requester{UserID: &userID}).
		Return(&orderapp.CancelResult{Refunded: true}, nil)

	w := doRequest(r, http.MethodPost, "/orders/"+id.String()+"/cancel", orderapp.CancelRequest{Reason: "Pedido duplicado"})

	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeResponse(t, w).Data.(map[string]any)
	assert.Equal(t, true, data["refunded"])
}

func TestOrderHandler_ListEvidence_Empty(t *testing.T) {
	svc, r := setupOrderHandler(uuid.New(), identity.RoleCliente)
	id := uuid.New()
	svc.On("ListEvidence", mock.Anything, id, mock.Anything).Return(nil, nil)

	w := doRequest(r, http.MethodGet, "/orders/"+id.String()+"/evidence", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"data":[]`)
}

func TestOrderHandler_List_Filters(t *testing.T) {
	svc, r := setupOrderHandler(uuid.New(), identity.RoleAdmin)
	svc.On("List", mock.Anything, mock.MatchedBy(func(f order.Filter) bool {
		return f.Status != nil && *f.Status == order.StatusConfirmado &&
			f.PaymentMethod != nil && *f.PaymentMethod == order.PaymentMethodContraEntrega &&
			f.PaymentStatus == nil
	})).Return(shared.NewPaginated([]orderapp.OrderResponse{}, 0, 1, 20), nil)

	w := doRequest(r, http.MethodGet, "/admin/orders?status=CONFIRMADO&payment_method=CONTRA_ENTREGA", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doRequest(r, http.MethodGet, "/admin/orders?user_id=nope", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	svc.AssertNumberOfCalls(t, "List", 1)
}

func TestOrderHandler_Export(t *testing.T) {
	svc, r := setupOrderHandler(uuid.New(), identity.RoleAdmin)
	svc.On("ExportXLSX", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			_, _ = args.Get(2).(io.Writer).Write([]byte("PK"))
		}).Return(3, nil)

	w := doRequest(r, http.MethodGet, "/admin/orders/export?from=2026-05-01", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "pedidos-20260504-100000.xlsx")
}

func TestOrderHandler_UpdateStatus(t *testing.T) {
	svc, r := setupOrderHandler(uuid.New(), identity.RoleAdmin)
	id := uuid.New()
	req := orderapp.UpdateStatusRequest{Status: order.StatusEnviado, Comment: "Salió con Olva"}
	svc.On("UpdateStatus", mock.Anything, id, req).Return(&orderapp.OrderResponse{ID: id, Status: order.StatusEnviado}, nil)

	w := doRequest(r, http.MethodPatch, "/admin/orders/"+id.String()+"/status", req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestOrderHandler_AdminRoutesRequireAdmin(t *testing.T) {
	svc, r := setupOrderHandler(uuid.New(), identity.RoleCliente)
	id := uuid.New()

	assert.Equal(t, http.StatusForbidden, doRequest(r, http.MethodPost, "/admin/orders/"+id.String()+"/cash-collected", nil).Code)
	assert.Equal(t, http.StatusForbidden, doRequest(r, http.MethodDelete, "/admin/orders/"+id.String(), nil).Code)
	svc.AssertNotCalled(t, "MarkCashCollected", mock.Anything, mock.Anything)
}

func TestOrderHandler_UploadEvidence(t *testing.T) {
	adminID := uuid.New()
	svc, r := setupOrderHandler(adminID, identity.RoleAdmin)
	id := uuid.New()
	photo := []byte("\xff\xd8\xff jpeg")
	svc.On("UploadEvidence", mock.Anything, id, photo, "Entregado en recepción", &adminID).
		Return(&orderapp.EvidenceResponse{ID: uuid.New(), URL: "/files/evidencias/1.jpg"}, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, multipartRequest(t, "/admin/orders/"+id.String()+"/evidence", "photo", "foto.jpg", photo,
		map[string]string{"description": "Entregado en recepción"}))

	assert.Equal(t, http.StatusCreated, w.Code)
	svc.AssertExpectations(t)
}
