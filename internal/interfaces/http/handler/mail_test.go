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

	"github.com/induservicios/backend/internal/domain/identity"
	"github.com/induservicios/backend/internal/domain/mail"
	"github.com/induservicios/backend/internal/domain/shared"
)

type MockMailService struct {
	mock.Mock
}

func (m *MockMailService) ListLogs(ctx context.Context, filter mail.LogFilter) (shared.Paginated[mail.EmailLog], error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(shared.Paginated[mail.EmailLog]), args.Error(1)
}

func (m *MockMailService) GetLog(ctx context.Context, id uuid.UUID) (*mail.EmailLog, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*mail.EmailLog), args.Error(1)
}

func (m *MockMailService) Stats(ctx context.Context, window time.Duration) (*mail.Stats, error) {
	args := m.Called(ctx, window)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*mail.Stats), args.Error(1)
}

func (m *MockMailService) Resend(ctx context.Context, id uuid.UUID) (*mail.EmailLog, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*mail.EmailLog), args.Error(1)
}

func (m *MockMailService) CheckFailures(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}

func setupMailHandler() (*MockMailService, *gin.Engine) {
	svc := new(MockMailService)
	r, _, _, admin := testRoutes(uuid.New(), identity.RoleAdmin)
	NewMailHandler(svc).RegisterRoutes(admin)
	return svc, r
}

func TestMailHandler_ListLogs(t *testing.T) {
	svc, r := setupMailHandler()
	svc.On("ListLogs", mock.Anything, mock.MatchedBy(func(f mail.LogFilter) bool {
		return f.Status != nil && *f.Status == mail.DeliveryFailed && f.Template == "order_confirmation"
	})).Return(shared.NewPaginated([]mail.EmailLog{{To: "rosa@example.com"}}, 1, 1, 20), nil)

	w := doRequest(r, http.MethodGet, "/admin/mail/logs?status=FAILED&template=order_confirmation", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doRequest(r, http.MethodGet, "/admin/mail/logs?status=BOUNCED", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	svc.AssertNumberOfCalls(t, "ListLogs", 1)
}

func TestMailHandler_Stats_Window(t *testing.T) {
	svc, r := setupMailHandler()
	svc.On("Stats", mock.Anything, 24*time.Hour).Return(&mail.Stats{Sent: 10, Failed: 1}, nil)
	svc.On("Stats", mock.Anything, time.Hour).Return(&mail.Stats{Sent: 2}, nil)

	assert.Equal(t, http.StatusOK, doRequest(r, http.MethodGet, "/admin/mail/stats", nil).Code)
	assert.Equal(t, http.StatusOK, doRequest(r, http.MethodGet, "/admin/mail/stats?window=1h", nil).Code)
	assert.Equal(t, http.StatusBadRequest, doRequest(r, http.MethodGet, "/admin/mail/stats?window=-1h", nil).Code)
	assert.Equal(t, http.StatusBadRequest, doRequest(r, http.MethodGet, "/admin/mail/stats?window=1000h", nil).Code)
	assert.Equal(t, http.StatusBadRequest, doRequest(r, http.MethodGet, "/admin/mail/stats?window=ayer", nil).Code)
	svc.AssertExpectations(t)
}

func TestMailHandler_Resend(t *testing.T) {
	svc, r := setupMailHandler()
	id := uuid.New()
	svc.On("Resend", mock.Anything, id).Return(&mail.EmailLog{Status: mail.DeliverySent}, nil)

	w := doRequest(r, http.MethodPost, "/admin/mail/logs/"+id.String()+"/resend", nil)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMailHandler_Check(t *testing.T) {
	svc, r := setupMailHandler()
	svc.On("CheckFailures", mock.Anything).Return(true, nil)

	w := doRequest(r, http.MethodPost, "/admin/mail/check", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decodeResponse(t, w).Data.(map[string]any)["alerted"])
}
