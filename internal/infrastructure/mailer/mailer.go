// Package mailer delivers email through Resend or SMTP, retrying each provider
// with exponential backoff and falling back to the next one.
package mailer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/induservicios/backend/internal/infrastructure/config"
	"github.com/induservicios/backend/internal/infrastructure/logger"
)

var (
	// ErrNoProviders is returned when no provider is configured
	ErrNoProviders = errors.New("mailer: no email provider configured")
	// ErrPermanent marks failures that a retry cannot fix (bad address, rejected auth)
	ErrPermanent = errors.New("mailer: permanent failure")
)

// Message is an outgoing email
type Message struct {
	To      []string
	Subject string
	HTML    string
	Text    string
	ReplyTo string
}

// Provider sends a single message through one transport
type Provider interface {
	Name() string
	Send(ctx context.Context, msg Message) (messageID string, err error)
}

// Result describes how a message was delivered, or the last failure
type Result struct {
	Provider  string
	MessageID string
	Attempts  int
}

// RetryPolicy is the backoff schedule applied to each provider
type RetryPolicy struct {
	Attempts     int
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

// Delay returns the wait before the given retry (1-based): initial * 2^(n-1), capped
func (p RetryPolicy) Delay(retry int) time.Duration {
	if retry < 1 {
		return 0
	}
	d := p.InitialDelay * time.Duration(1<<uint(retry-1))
	if p.MaxDelay > 0 && (d > p.MaxDelay || d <= 0) {
		d = p.MaxDelay
	}
	return d
}

// Dispatcher tries providers in order
type Dispatcher struct {
	providers []Provider
	policy    RetryPolicy
	logger    *zap.Logger
	sleep     func(ctx context.Context, d time.Duration) error
}

// NewDispatcher creates a dispatcher over the given providers
func NewDispatcher(providers []Provider, policy RetryPolicy, log *zap.Logger) *Dispatcher {
	if policy.Attempts < 1 {
		policy.Attempts = 1
	}
	return &Dispatcher{
		providers: providers,
		policy:    policy,
		logger:    log,
		sleep:     sleepContext,
	}
}

// NewDispatcherFromConfig builds the providers named in cfg.Providers. Providers
// missing credentials are skipped with a warning.
func NewDispatcherFromConfig(cfg config.MailConfig, log *zap.Logger) *Dispatcher {
	var providers []Provider
	for _, name := range cfg.Providers {
		switch name {
		case ProviderResend:
			if cfg.Resend.APIKey == "" {
				log.Warn("Resend provider configured without API key, skipping")
				continue
			}
			providers = append(providers, NewResendProvider(cfg.Resend, cfg.From, cfg.FromName))
		case ProviderSMTP:
			if cfg.SMTP.Host == "" {
				log.Warn("SMTP provider configured without host, skipping")
				continue
			}
			providers = append(providers, NewSMTPProvider(cfg.SMTP, cfg.From, cfg.FromName))
		}
	}
	return NewDispatcher(providers, RetryPolicy{
		Attempts:     cfg.Retry.Attempts,
		InitialDelay: cfg.Retry.InitialDelay,
		MaxDelay:     cfg.Retry.MaxDelay,
	}, log)
}

// Providers returns the names of the configured providers in order
func (d *Dispatcher) Providers() []string {
	names := make([]string, 0, len(d.providers))
	for _, p := range d.providers {
		names = append(names, p.Name())
	}
	return names
}

// Send delivers msg with the first provider that succeeds. The returned
// Result is filled on failure too so the caller can log it.
func (d *Dispatcher) Send(ctx context.Context, msg Message) (Result, error) {
	var res Result
	if len(d.providers) == 0 {
		return res, ErrNoProviders
	}
	if len(msg.To) == 0 {
		return res, fmt.Errorf("%w: message has no recipients", ErrPermanent)
	}

	log := logger.Or(ctx, d.logger)
	var lastErr error
	for _, p := range d.providers {
		res.Provider = p.Name()
		for attempt := 1; attempt <= d.policy.Attempts; attempt++ {
			if attempt > 1 {
				if err := d.sleep(ctx, d.policy.Delay(attempt-1)); err != nil {
					return res, err
				}
			}
			res.Attempts++

			id, err := p.Send(ctx, msg)
			if err == nil {
				res.MessageID = id
				log.Debug("Email sent",
					zap.String("provider", p.Name()),
					zap.Strings("to", msg.To),
					zap.Int("attempts", res.Attempts))
				return res, nil
			}

			lastErr = err
			log.Warn("Email send attempt failed",
				zap.String("provider", p.Name()),
				zap.Int("attempt", attempt),
				zap.Error(err))
			if errors.Is(err, ErrPermanent) {
				break
			}
		}
	}
	return res, fmt.Errorf("mailer: all providers failed: %w", lastErr)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
