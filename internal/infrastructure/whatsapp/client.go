// Package whatsapp sends text messages through the WhatsApp Cloud API.
package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/induservicios/backend/internal/infrastructure/config"
)

const maxResponseSize = 64 << 10

var (
	// ErrDisabled is returned when the Cloud API is not configured
	ErrDisabled = errors.New("whatsapp: cloud api not configured")
	// ErrInvalidPhone is returned for numbers that cannot be normalized
	ErrInvalidPhone = errors.New("whatsapp: invalid phone number")
)

// APIError is an error answered by the Graph API
type APIError struct {
	Status  int
	Code    int    `json:"code"`
	Type    string `json:"type"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("whatsapp: HTTP %d code %d: %s", e.Status, e.Code, e.Message)
}

// Client posts messages to /{phone-number-id}/messages
type Client struct {
	apiURL        string
	phoneNumberID string
	accessToken   string
	enabled       bool
	httpClient    *http.Client
}

// NewClient creates a Cloud API client
func NewClient(cfg config.WhatsAppConfig) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		apiURL:        strings.TrimSuffix(cfg.APIURL, "/"),
		phoneNumberID: cfg.PhoneNumberID,
		accessToken:   cfg.AccessToken,
		enabled:       cfg.Enabled && cfg.AccessToken != "" && cfg.PhoneNumberID != "",
		httpClient:    &http.Client{Timeout: timeout},
	}
}

// Enabled reports whether messages can be sent through the API
func (c *Client) Enabled() bool {
	return c.enabled
}

type textMessage struct {
	MessagingProduct string `json:"messaging_product"`
	RecipientType    string `json:"recipient_type"`
	To               string `json:"to"`
	Type             string `json:"type"`
	Text             struct {
		PreviewURL bool   `json:"preview_url"`
		Body       string `json:"body"`
	} `json:"text"`
}

// SendText sends a text body to phone and returns the WhatsApp message ID
func (c *Client) SendText(ctx context.Context, phone, body string) (string, error) {
	if !c.enabled {
		return "", ErrDisabled
	}
	to, err := NormalizePhone(phone)
	if err != nil {
		return "", err
	}

	msg := textMessage{MessagingProduct: "whatsapp", RecipientType: "individual", To: to, Type: "text"}
	msg.Text.PreviewURL = true
	msg.Text.Body = body
	payload, err := json.Marshal(msg)
	if err != nil {
		return "", fmt.Errorf("whatsapp: marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/%s/messages", c.apiURL, c.phoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("whatsapp: create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("whatsapp: request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return "", fmt.Errorf("whatsapp: read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		var wrapper struct {
			Error APIError `json:"error"`
		}
		_ = json.Unmarshal(raw, &wrapper)
		apiErr := wrapper.Error
		apiErr.Status = resp.StatusCode
		return "", &apiErr
	}

	var out struct {
		Messages []struct {
			ID string `json:"id"`
		} `json:"messages"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("whatsapp: decode response: %w", err)
	}
	if len(out.Messages) == 0 {
		return "", fmt.Errorf("whatsapp: response without message id")
	}
	return out.Messages[0].ID, nil
}

// NormalizePhone converts Peruvian numbers to the international form
// 51XXXXXXXXX. Mobile numbers have nine digits starting with 9; other
// numbers already carrying a country code are kept as given.
func NormalizePhone(phone string) (string, error) {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := strings.TrimPrefix(b.String(), "00")

	switch {
	case len(digits) == 9 && digits[0] == '9':
		return "51" + digits, nil
	case len(digits) == 11 && strings.HasPrefix(digits, "519"):
		return digits, nil
	case strings.HasPrefix(phone, "+") && len(digits) >= 10 && len(digits) <= 15:
		return digits, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidPhone, phone)
}

// ClickToChatLink returns a wa.me link that opens a chat with phone and a
// prefilled message
func ClickToChatLink(phone, text string) (string, error) {
	to, err := NormalizePhone(phone)
	if err != nil {
		return "", err
	}
	link := "https://wa.me/" + to
	if text != "" {
		link += "?text=" + url.QueryEscape(text)
	}
	return link, nil
}
