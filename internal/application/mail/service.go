package mail

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/induservicios/backend/internal/domain/mail"
	"github.com/induservicios/backend/internal/domain/shared"
	"github.com/induservicios/backend/internal/infrastructure/config"
	"github.com/induservicios/backend/internal/infrastructure/logger"
	"github.com/induservicios/backend/internal/infrastructure/mailer"
	"github.com/induservicios/backend/internal/infrastructure/telemetry"
)

// Sender delivers a message through the configured providers
type Sender interface {
	Send(ctx context.Context, msg mailer.Message) (mailer.Result, error)
}

// Config holds the values shared by every template
type Config struct {
	AdminEmail   string
	CompanyName  string
	CompanyPhone string
	FrontendURL  string
	Alert        config.AlertConfig
}

// Service renders templates, sends them and keeps the delivery log
type Service struct {
	sender Sender
	logs   mail.LogRepository
	cfg    Config
	logger *zap.Logger
	now    func() time.Time
}

// NewService creates a mail service
func NewService(sender Sender, logs mail.LogRepository, cfg Config, logger *zap.Logger) *Service {
	return &Service{
		sender: sender,
		logs:   logs,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

// Send renders the named template for one recipient, delivers it and logs
// the outcome. The returned log is set even when delivery fails.
func (s *Service) Send(ctx context.Context, to, templateName string, vars map[string]string) (*mail.EmailLog, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "mail", "send", telemetry.AttrMailTemplate, templateName)
	defer span.End()

	tmpl, ok := LookupTemplate(templateName)
	if !ok {
		return nil, shared.NewDomainError("UNKNOWN_TEMPLATE", fmt.Sprintf("Unknown email template %q", templateName))
	}
	subject, body := tmpl.Render(s.withDefaults(vars))

	entry := mail.NewEmailLog(to, subject, templateName, body)
	entry.IsAlert = templateName == TemplateAlert
	err := s.deliver(ctx, entry)
	if err != nil {
		telemetry.RecordError(span, err)
	}
	telemetry.SetAttributes(span, telemetry.AttrMailProvider, entry.Provider)
	return entry, err
}

func (s *Service) withDefaults(vars map[string]string) map[string]string {
	out := map[string]string{
		"company_name":  s.cfg.CompanyName,
		"company_phone": s.cfg.CompanyPhone,
		"frontend_url":  s.cfg.FrontendURL,
	}
	for k, v := range vars {
		out[k] = v
	}
	return out
}

// deliver sends the logged message and persists the result
func (s *Service) deliver(ctx context.Context, entry *mail.EmailLog) error {
	log := logger.Or(ctx, s.logger)

	res, sendErr := s.sender.Send(ctx, mailer.Message{
		To:      []string{entry.To},
		Subject: entry.Subject,
		HTML:    entry.HTML,
	})
	if sendErr != nil {
		entry.MarkFailed(res.Provider, res.Attempts, sendErr)
	} else {
		entry.MarkSent(res.Provider, res.MessageID, res.Attempts)
	}

	// The log write uses a detached context so a cancelled request still
	// records what happened to the message.
	if err := s.logs.Save(context.WithoutCancel(ctx), entry); err != nil {
		log.Error("Failed to save email log", zap.String("to", entry.To), zap.Error(err))
	}

	if sendErr != nil {
		log.Warn("Email delivery failed",
			zap.String("template", entry.Template),
			zap.String("to", entry.To),
			zap.Int("attempts", res.Attempts),
			zap.Error(sendErr))
		return fmt.Errorf("send %s email: %w", entry.Template, sendErr)
	}
	return nil
}

// ListLogs returns a page of the delivery log
func (s *Service) ListLogs(ctx context.Context, filter mail.LogFilter) (shared.Paginated[mail.EmailLog], error) {
	filter.Normalize()
	logs, total, err := s.logs.FindAll(ctx, filter)
	if err != nil {
		return shared.Paginated[mail.EmailLog]{}, err
	}
	return shared.NewPaginated(logs, total, filter.Page, filter.PageSize), nil
}

// GetLog returns one delivery log entry
func (s *Service) GetLog(ctx context.Context, id uuid.UUID) (*mail.EmailLog, error) {
	return s.logs.FindByID(ctx, id)
}

// Stats counts deliveries in the last window; zero uses the alert window
func (s *Service) Stats(ctx context.Context, window time.Duration) (*mail.Stats, error) {
	if window <= 0 {
		window = s.cfg.Alert.Window
	}
	since := s.now().Add(-window)
	sent, err := s.logs.CountByStatusSince(ctx, mail.DeliverySent, since)
	if err != nil {
		return nil, err
	}
	failed, err := s.logs.CountByStatusSince(ctx, mail.DeliveryFailed, since)
	if err != nil {
		return nil, err
	}
	return &mail.Stats{Since: since, Sent: sent, Failed: failed}, nil
}

// Resend delivers a failed message again as a new log entry
func (s *Service) Resend(ctx context.Context, id uuid.UUID) (*mail.EmailLog, error) {
	original, err := s.logs.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if original.Status != mail.DeliveryFailed {
		return nil, shared.NewDomainError(shared.ErrInvalidState.Code, "Only failed emails can be resent")
	}

	entry := mail.NewEmailLog(original.To, original.Subject, original.Template, original.HTML)
	entry.IsAlert = original.IsAlert
	err = s.deliver(ctx, entry)
	return entry, err
}

// CheckFailures sends an alert to the admin address when the failed
// deliveries in the alert window reach the threshold and no alert went out
// during the cooldown. It reports whether an alert was sent.
func (s *Service) CheckFailures(ctx context.Context) (bool, error) {
	alert := s.cfg.Alert
	if !alert.Enabled || s.cfg.AdminEmail == "" {
		return false, nil
	}

	now := s.now()
	failed, err := s.logs.CountByStatusSince(ctx, mail.DeliveryFailed, now.Add(-alert.Window))
	if err != nil {
		return false, err
	}
	if failed < int64(alert.Threshold) {
		return false, nil
	}

	last, err := s.logs.LastAlertAt(ctx)
	if err != nil {
		return false, err
	}
	if last != nil && now.Sub(*last) < alert.Cooldown {
		return false, nil
	}

	lastError := ""
	status := mail.DeliveryFailed
	recent, _, err := s.logs.FindAll(ctx, mail.LogFilter{
		Filter: shared.Filter{Page: 1, PageSize: 1, OrderBy: "created_at", OrderDir: "desc"},
		Status: &status,
	})
	if err == nil && len(recent) > 0 {
		lastError = recent[0].Error
	}

	logger.Or(ctx, s.logger).Warn("Email failure threshold reached, alerting admin",
		zap.Int64("failed", failed),
		zap.Duration("window", alert.Window))

	_, err = s.Send(ctx, s.cfg.AdminEmail, TemplateAlert, map[string]string{
		"failed":     strconv.FormatInt(failed, 10),
		"window":     alert.Window.String(),
		"last_error": lastError,
	})
	return err == nil, err
}
