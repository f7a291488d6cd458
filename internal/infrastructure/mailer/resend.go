package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/induservicios/backend/internal/infrastructure/config"
)

const maxResendResponseSize = 64 << 10

// ResendProvider sends mail through the Resend HTTP API
type ResendProvider struct {
	baseURL    string
	apiKey     string
	from       string
	httpClient *http.Client
}

// NewResendProvider creates a Resend provider
func NewResendProvider(cfg config.ResendConfig, from, fromName string) *ResendProvider {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.resend.com"
	}
	sender := from
	if fromName != "" {
		sender = fmt.Sprintf("%s <%s>", fromName, from)
	}
	return &ResendProvider{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     cfg.APIKey,
		from:       sender,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Name returns the provider name
func (p *ResendProvider) Name() string {
	return ProviderResend
}

type resendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html,omitempty"`
	Text    string   `json:"text,omitempty"`
	ReplyTo string   `json:"reply_to,omitempty"`
}

// Send posts msg to /emails and returns the Resend email ID
func (p *ResendProvider) Send(ctx context.Context, msg Message) (string, error) {
	body, err := json.Marshal(resendRequest{
		From:    p.from,
		To:      msg.To,
		Subject: msg.Subject,
		HTML:    msg.HTML,
		Text:    msg.Text,
		ReplyTo: msg.ReplyTo,
	})
	if err != nil {
		return "", fmt.Errorf("resend: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/emails", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("resend: create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("resend: request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResendResponseSize))
	if err != nil {
		return "", fmt.Errorf("resend: read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Name    string `json:"name"`
			Message string `json:"message"`
		}
		_ = json.Unmarshal(respBody, &apiErr)
		err := fmt.Errorf("resend: HTTP %d %s: %s", resp.StatusCode, apiErr.Name, apiErr.Message)
		// 4xx other than rate limiting will fail the same way again
		if resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return "", fmt.Errorf("%w: %v", ErrPermanent, err)
		}
		return "", err
	}

	var out struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", fmt.Errorf("resend: decode response: %w", err)
	}
	return out.ID, nil
}
