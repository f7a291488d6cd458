// Package notification reaches customers by email and WhatsApp.
package notification

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/induservicios/backend/internal/domain/mail"
	"github.com/induservicios/backend/internal/infrastructure/logger"
	"github.com/induservicios/backend/internal/infrastructure/whatsapp"
)

// MailSender sends a templated email
type MailSender interface {
	Send(ctx context.Context, to, templateName string, vars map[string]string) (*mail.EmailLog, error)
}

// WhatsAppSender sends a WhatsApp text message
type WhatsAppSender interface {
	Enabled() bool
	SendText(ctx context.Context, phone, body string) (string, error)
}

// Message is one customer notification over every available channel
type Message struct {
	Email    string
	Phone    string
	Template string
	Vars     map[string]string
	// WhatsApp is the plain text body; empty skips the channel
	WhatsApp string
}

// Result reports which channels accepted the message
type Result struct {
	Email        bool   `json:"email"`
	WhatsApp     bool   `json:"whatsapp"`
	WhatsAppLink string `json:"whatsapp_link,omitempty"`
}

// DefaultDispatchTimeout bounds one background notification, retries included
const DefaultDispatchTimeout = 2 * time.Minute

// Notifier fans a message out to email and WhatsApp. Channel failures are
// logged and reported in Result, never returned.
type Notifier struct {
	mail     MailSender
	whatsapp WhatsAppSender
	logger   *zap.Logger
	timeout  time.Duration
	wg       sync.WaitGroup
}

// NewNotifier creates a notifier. whatsapp may be nil.
func NewNotifier(mailSender MailSender, wa WhatsAppSender, logger *zap.Logger) *Notifier {
	return &Notifier{mail: mailSender, whatsapp: wa, logger: logger, timeout: DefaultDispatchTimeout}
}

// Dispatch sends msg in the background so the caller does not wait on mail
// retries. The send outlives the caller's cancellation. The returned Result
// only carries the click-to-chat link, computed up front when the WhatsApp
// Cloud API is not configured.
func (n *Notifier) Dispatch(ctx context.Context, msg Message) Result {
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), n.timeout)
		defer cancel()
		n.Notify(sendCtx, msg)
	}()

	var res Result
	if strings.TrimSpace(msg.Phone) == "" || msg.WhatsApp == "" {
		return res
	}
	if n.whatsapp != nil && n.whatsapp.Enabled() {
		return res
	}
	if link, err := whatsapp.ClickToChatLink(msg.Phone, msg.WhatsApp); err == nil {
		res.WhatsAppLink = link
	}
	return res
}

// Wait blocks until background dispatches finish or ctx is done
func (n *Notifier) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		n.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Notify sends msg and reports per channel success
func (n *Notifier) Notify(ctx context.Context, msg Message) Result {
	log := logger.Or(ctx, n.logger)
	var res Result

	if msg.Email != "" && msg.Template != "" && n.mail != nil {
		if _, err := n.mail.Send(ctx, msg.Email, msg.Template, msg.Vars); err != nil {
			log.Warn("Email notification failed", zap.String("template", msg.Template), zap.Error(err))
		} else {
			res.Email = true
		}
	}

	if strings.TrimSpace(msg.Phone) == "" || msg.WhatsApp == "" {
		return res
	}

	if n.whatsapp != nil && n.whatsapp.Enabled() {
		id, err := n.whatsapp.SendText(ctx, msg.Phone, msg.WhatsApp)
		if err == nil {
			res.WhatsApp = true
			log.Debug("WhatsApp notification sent", zap.String("message_id", id))
			return res
		}
		log.Warn("WhatsApp notification failed, falling back to link", zap.Error(err))
	}

	link, err := whatsapp.ClickToChatLink(msg.Phone, msg.WhatsApp)
	if err != nil {
		log.Warn("Cannot build WhatsApp link", zap.String("phone", msg.Phone), zap.Error(err))
		return res
	}
	res.WhatsAppLink = link
	log.Info("WhatsApp click-to-chat link generated", zap.String("link", link))
	return res
}
