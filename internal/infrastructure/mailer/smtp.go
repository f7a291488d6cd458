package mailer

import (
	"context"
	"errors"
	"fmt"
	"net/textproto"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/gomail.v2"

	"github.com/induservicios/backend/internal/infrastructure/config"
)

// Provider names
const (
	ProviderSMTP   = "smtp"
	ProviderResend = "resend"
)

// dialer is the part of gomail.Dialer the provider needs
type dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPProvider sends mail through an SMTP relay with gomail
type SMTPProvider struct {
	dialer   dialer
	from     string
	fromName string
}

// NewSMTPProvider creates an SMTP provider. SSL selects implicit TLS (port 465);
// otherwise STARTTLS is used when the server offers it.
func NewSMTPProvider(cfg config.SMTPConfig, from, fromName string) *SMTPProvider {
	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password)
	d.SSL = cfg.SSL
	return &SMTPProvider{dialer: d, from: from, fromName: fromName}
}

// Name returns the provider name
func (p *SMTPProvider) Name() string {
	return ProviderSMTP
}

// Send delivers msg. SMTP has no message ID of its own so the generated
// Message-Id header is returned.
func (p *SMTPProvider) Send(ctx context.Context, msg Message) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	m := gomail.NewMessage()
	m.SetAddressHeader("From", p.from, p.fromName)
	m.SetHeader("To", msg.To...)
	m.SetHeader("Subject", msg.Subject)
	if msg.ReplyTo != "" {
		m.SetHeader("Reply-To", msg.ReplyTo)
	}
	messageID := fmt.Sprintf("<%s@%s>", newMessageToken(), domainOf(p.from))
	m.SetHeader("Message-Id", messageID)

	if msg.Text != "" {
		m.SetBody("text/plain", msg.Text)
		m.AddAlternative("text/html", msg.HTML)
	} else {
		m.SetBody("text/html", msg.HTML)
	}

	if err := p.dialer.DialAndSend(m); err != nil {
		return "", classifySMTPError(err)
	}
	return messageID, nil
}

// classifySMTPError marks 5xx replies as permanent
func classifySMTPError(err error) error {
	var tpErr *textproto.Error
	if errors.As(err, &tpErr) && tpErr.Code >= 500 {
		return fmt.Errorf("%w: smtp %d %s", ErrPermanent, tpErr.Code, tpErr.Msg)
	}
	return fmt.Errorf("smtp: %w", err)
}

func domainOf(addr string) string {
	if i := strings.LastIndex(addr, "@"); i >= 0 && i < len(addr)-1 {
		return addr[i+1:]
	}
	return "localhost"
}

func newMessageToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
