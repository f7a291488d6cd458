package mail

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/induservicios/backend/internal/domain/mail"
	"github.com/induservicios/backend/internal/domain/shared"
	"github.com/induservicios/backend/internal/infrastructure/config"
	"github.com/induservicios/backend/internal/infrastructure/mailer"
)

type MockLogRepository struct {
	mock.Mock
}

func (m *MockLogRepository) Save(ctx context.Context, log *mail.EmailLog) error {
	return m.Called(ctx, log).Error(0)
}

func (m *MockLogRepository) FindByID(ctx context.Context, id uuid.UUID) (*mail.EmailLog, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*mail.EmailLog), args.Error(1)
}

func (m *MockLogRepository) FindAll(ctx context.Context, filter mail.LogFilter) ([]mail.EmailLog, int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]mail.EmailLog), args.Get(1).(int64), args.Error(2)
}

func (m *MockLogRepository) CountByStatusSince(ctx context.Context, status mail.DeliveryStatus, since time.Time) (int64, error) {
	args := m.Called(ctx, status, since)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockLogRepository) LastAlertAt(ctx context.Context) (*time.Time, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*time.Time), args.Error(1)
}

type stubSender struct {
	sent []mailer.Message
	err  error
}

func (s *stubSender) Send(_ context.Context, msg mailer.Message) (mailer.Result, error) {
	s.sent = append(s.sent, msg)
	if s.err != nil {
		return mailer.Result{Provider: "resend", Attempts: 3}, s.err
	}
	return mailer.Result{Provider: "resend", MessageID: "msg-1", Attempts: 1}, nil
}

func newTestService(sender Sender, logs mail.LogRepository) *Service {
	svc := NewService(sender, logs, Config{
		AdminEmail:  "admin@induservicios.pe",
		CompanyName: "Induservicios",
		FrontendURL: "https://induservicios.pe",
		Alert: config.AlertConfig{
			Enabled:   true,
			Window:    time.Hour,
			Threshold: 5,
			Cooldown:  time.Hour,
		},
	}, zap.NewNop())
	svc.now = func() time.Time { return time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC) }
	return svc
}

func TestSubstitute(t *testing.T) {
	vars := map[string]string{"name": "<b>Ana</b>", "items_html": "<ul></ul>"}

	assert.Equal(t, "Hola &lt;b&gt;Ana&lt;/b&gt; ", Substitute("Hola {{name}} {{missing}}", vars, true))
	assert.Equal(t, "<ul></ul>", Substitute("{{ items_html }}", vars, true))
	assert.Equal(t, "Hola <b>Ana</b>", Substitute("Hola {{name}}", vars, false))
}

func TestTemplatesRender(t *testing.T) {
	for _, name := range TemplateNames() {
		tmpl, ok := LookupTemplate(name)
		require.True(t, ok)
		subject, body := tmpl.Render(map[string]string{"company_name": "Induservicios", "code": "PED-202610-00001"})
		assert.NotEmpty(t, subject, name)
		assert.Contains(t, body, "Induservicios", name)
		assert.NotContains(t, body, "{{", name)
	}
	assert.Len(t, TemplateNames(), 8)
}

func TestService_Send_LogsSuccess(t *testing.T) {
	logs := new(MockLogRepository)
	sender := &stubSender{}
	svc := newTestService(sender, logs)

	logs.On("Save", mock.Anything, mock.MatchedBy(func(l *mail.EmailLog) bool {
		return l.Status == mail.DeliverySent && l.Provider == "resend" && l.MessageID == "msg-1"
	})).Return(nil).Once()

	entry, err := svc.Send(context.Background(), "ana@example.com", TemplateQuoteReceived, map[string]string{
		"name": "Ana", "code": "COT-202610-00001",
	})
	require.NoError(t, err)
	assert.Equal(t, "Recibimos tu cotización COT-202610-00001", entry.Subject)
	require.Len(t, sender.sent, 1)
	assert.Equal(t, []string{"ana@example.com"}, sender.sent[0].To)
	assert.Contains(t, sender.sent[0].HTML, "https://induservicios.pe")
	logs.AssertExpectations(t)
}

func TestService_Send_LogsFailure(t *testing.T) {
	logs := new(MockLogRepository)
	svc := newTestService(&stubSender{err: errors.New("smtp down")}, logs)

	logs.On("Save", mock.Anything, mock.MatchedBy(func(l *mail.EmailLog) bool {
		return l.Status == mail.DeliveryFailed && l.Attempts == 3 && l.Error == "smtp down"
	})).Return(nil).Once()

	entry, err := svc.Send(context.Background(), "ana@example.com", TemplateWelcome, nil)
	assert.Error(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, mail.DeliveryFailed, entry.Status)
	logs.AssertExpectations(t)
}

func TestService_Send_UnknownTemplate(t *testing.T) {
	svc := newTestService(&stubSender{}, new(MockLogRepository))
	_, err := svc.Send(context.Background(), "ana@example.com", "nope", nil)
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "UNKNOWN_TEMPLATE", domainErr.Code)
}

func TestService_Resend(t *testing.T) {
	logs := new(MockLogRepository)
	sender := &stubSender{}
	svc := newTestService(sender, logs)

	failed := mail.NewEmailLog("ana@example.com", "Pedido", TemplateOrderStatus, "<p>x</p>")
	failed.MarkFailed("smtp", 3, errors.New("timeout"))
	sent := mail.NewEmailLog("ana@example.com", "Pedido", TemplateOrderStatus, "<p>x</p>")
	sent.MarkSent("smtp", "id", 1)

	logs.On("FindByID", mock.Anything, failed.ID).Return(failed, nil)
	logs.On("FindByID", mock.Anything, sent.ID).Return(sent, nil)
	logs.On("Save", mock.Anything, mock.Anything).Return(nil)

	entry, err := svc.Resend(context.Background(), failed.ID)
	require.NoError(t, err)
	assert.NotEqual(t, failed.ID, entry.ID)
	assert.Equal(t, mail.DeliverySent, entry.Status)
	assert.Equal(t, "<p>x</p>", sender.sent[0].HTML)

	_, err = svc.Resend(context.Background(), sent.ID)
	assert.ErrorIs(t, err, shared.ErrInvalidState)
}

func TestService_Stats(t *testing.T) {
	logs := new(MockLogRepository)
	svc := newTestService(&stubSender{}, logs)
	since := svc.now().Add(-time.Hour)

	logs.On("CountByStatusSince", mock.Anything, mail.DeliverySent, since).Return(int64(12), nil)
	logs.On("CountByStatusSince", mock.Anything, mail.DeliveryFailed, since).Return(int64(2), nil)

	stats, err := svc.Stats(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, int64(12), stats.Sent)
	assert.Equal(t, int64(2), stats.Failed)
	assert.Equal(t, since, stats.Since)
}

func TestService_CheckFailures(t *testing.T) {
	t.Run("below threshold", func(t *testing.T) {
		logs := new(MockLogRepository)
		sender := &stubSender{}
		svc := newTestService(sender, logs)
		logs.On("CountByStatusSince", mock.Anything, mail.DeliveryFailed, mock.Anything).Return(int64(4), nil)

		alerted, err := svc.CheckFailures(context.Background())
		require.NoError(t, err)
		assert.False(t, alerted)
		assert.Empty(t, sender.sent)
	})

	t.Run("within cooldown", func(t *testing.T) {
		logs := new(MockLogRepository)
		sender := &stubSender{}
		svc := newTestService(sender, logs)
		recent := svc.now().Add(-10 * time.Minute)
		logs.On("CountByStatusSince", mock.Anything, mail.DeliveryFailed, mock.Anything).Return(int64(9), nil)
		logs.On("LastAlertAt", mock.Anything).Return(&recent, nil)

		alerted, err := svc.CheckFailures(context.Background())
		require.NoError(t, err)
		assert.False(t, alerted)
		assert.Empty(t, sender.sent)
	})

	t.Run("sends alert", func(t *testing.T) {
		logs := new(MockLogRepository)
		sender := &stubSender{}
		svc := newTestService(sender, logs)
		old := svc.now().Add(-2 * time.Hour)
		lastFailure := mail.NewEmailLog("x@example.com", "s", TemplateWelcome, "")
		lastFailure.MarkFailed("smtp", 3, errors.New("535 auth failed"))

		logs.On("CountByStatusSince", mock.Anything, mail.DeliveryFailed, mock.Anything).Return(int64(5), nil)
		logs.On("LastAlertAt", mock.Anything).Return(&old, nil)
		logs.On("FindAll", mock.Anything, mock.Anything).Return([]mail.EmailLog{*lastFailure}, int64(5), nil)
		logs.On("Save", mock.Anything, mock.MatchedBy(func(l *mail.EmailLog) bool { return l.IsAlert })).Return(nil)

		alerted, err := svc.CheckFailures(context.Background())
		require.NoError(t, err)
		assert.True(t, alerted)
		require.Len(t, sender.sent, 1)
		assert.Equal(t, []string{"admin@induservicios.pe"}, sender.sent[0].To)
		assert.Contains(t, sender.sent[0].Subject, "5 correos fallidos")
		assert.Contains(t, sender.sent[0].HTML, "535 auth failed")
	})
}
