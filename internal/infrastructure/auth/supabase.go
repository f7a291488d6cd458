package auth

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

const maxSupabaseResponseSize = 1 << 20

// Supabase errors
var (
	ErrSupabaseDisabled           = errors.New("supabase auth is not configured")
	ErrSupabaseInvalidCredentials = errors.New("invalid login credentials")
	ErrSupabaseUserExists         = errors.New("user already registered")
	ErrSupabaseWeakPassword       = errors.New("password does not meet requirements")
	ErrSupabaseEmailNotConfirmed  = errors.New("email not confirmed")
	ErrSupabaseUnavailable        = errors.New("supabase auth unavailable")
)

// SupabaseError carries the status and message of a rejected request
type SupabaseError struct {
	Status  int
	Code    string
	Message string
}

func (e *SupabaseError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("supabase: HTTP %d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("supabase: HTTP %d: %s", e.Status, e.Message)
}

// SupabaseUser is the subset of a GoTrue user the backend needs
type SupabaseUser struct {
	ID           string         `json:"id"`
	Email        string         `json:"email"`
	Phone        string         `json:"phone"`
	UserMetadata map[string]any `json:"user_metadata"`
}

// FullName returns the name stored in user metadata, if any
func (u SupabaseUser) FullName() string {
	for _, key := range []string{"full_name", "name"} {
		if v, ok := u.UserMetadata[key].(string); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// SupabaseSession is returned by sign-in and by sign-up when email
// confirmation is disabled
type SupabaseSession struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	ExpiresIn    int          `json:"expires_in"`
	User         SupabaseUser `json:"user"`
}

// SupabaseClient talks to the Supabase Auth (GoTrue) REST API
type SupabaseClient struct {
	baseURL          string
	anonKey          string
	resetRedirectURL string
	httpClient       *http.Client
}

// NewSupabaseClient creates a client for the project in cfg
func NewSupabaseClient(cfg config.SupabaseConfig) *SupabaseClient {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &SupabaseClient{
		baseURL:          strings.TrimSuffix(cfg.URL, "/") + "/auth/v1",
		anonKey:          cfg.AnonKey,
		resetRedirectURL: cfg.ResetRedirectURL,
		httpClient:       &http.Client{Timeout: timeout},
	}
}

// Enabled reports whether the client has a project to talk to
func (c *SupabaseClient) Enabled() bool {
	return c != nil && c.anonKey != "" && c.baseURL != "/auth/v1"
}

// SignUp registers an account. The session is nil when the project requires
// email confirmation.
func (c *SupabaseClient) SignUp(ctx context.Context, email, password, fullName string) (*SupabaseUser, *SupabaseSession, error) {
	body := map[string]any{
		"email":    email,
		"password": password,
		"data":     map[string]string{"full_name": fullName},
	}
	raw, err := c.do(ctx, http.MethodPost, "/signup", "", body)
	if err != nil {
		return nil, nil, err
	}

	// GoTrue answers with a session when autoconfirm is on, otherwise a bare user
	var session SupabaseSession
	if err := json.Unmarshal(raw, &session); err == nil && session.AccessToken != "" {
		return &session.User, &session, nil
	}
	var user SupabaseUser
	if err := json.Unmarshal(raw, &user); err != nil {
		return nil, nil, fmt.Errorf("supabase: decode signup response: %w", err)
	}
	if user.ID == "" {
		return nil, nil, fmt.Errorf("supabase: signup response without user id")
	}
	return &user, nil, nil
}

// SignInWithPassword exchanges credentials for a Supabase session
func (c *SupabaseClient) SignInWithPassword(ctx context.Context, email, password string) (*SupabaseSession, error) {
	raw, err := c.do(ctx, http.MethodPost, "/token?grant_type=password", "", map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return nil, err
	}
	var session SupabaseSession
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, fmt.Errorf("supabase: decode session: %w", err)
	}
	return &session, nil
}

// RecoverPassword sends the password reset email
func (c *SupabaseClient) RecoverPassword(ctx context.Context, email string) error {
	path := "/recover"
	if c.resetRedirectURL != "" {
		path += "?redirect_to=" + url.QueryEscape(c.resetRedirectURL)
	}
	_, err := c.do(ctx, http.MethodPost, path, "", map[string]string{"email": email})
	return err
}

// UpdatePassword sets a new password for the owner of accessToken, usually
// the recovery token from the reset link
func (c *SupabaseClient) UpdatePassword(ctx context.Context, accessToken, password string) (*SupabaseUser, error) {
	raw, err := c.do(ctx, http.MethodPut, "/user", accessToken, map[string]string{"password": password})
	if err != nil {
		return nil, err
	}
	var user SupabaseUser
	if err := json.Unmarshal(raw, &user); err != nil {
		return nil, fmt.Errorf("supabase: decode user: %w", err)
	}
	return &user, nil
}

// GetUser resolves a Supabase access token to its user
func (c *SupabaseClient) GetUser(ctx context.Context, accessToken string) (*SupabaseUser, error) {
	raw, err := c.do(ctx, http.MethodGet, "/user", accessToken, nil)
	if err != nil {
		return nil, err
	}
	var user SupabaseUser
	if err := json.Unmarshal(raw, &user); err != nil {
		return nil, fmt.Errorf("supabase: decode user: %w", err)
	}
	return &user, nil
}

func (c *SupabaseClient) do(ctx context.Context, method, path, bearer string, payload any) ([]byte, error) {
	if !c.Enabled() {
		return nil, ErrSupabaseDisabled
	}

	var reader io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("supabase: marshal request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("supabase: create request: %w", err)
	}
	req.Header.Set("apikey", c.anonKey)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer == "" {
		bearer = c.anonKey
	}
	req.Header.Set("Authorization", "Bearer "+bearer)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSupabaseUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxSupabaseResponseSize))
	if err != nil {
		return nil, fmt.Errorf("supabase: read response: %w", err)
	}
	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("%w: HTTP %d", ErrSupabaseUnavailable, resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		return nil, classifySupabaseError(resp.StatusCode, body)
	}
	return body, nil
}

// classifySupabaseError maps GoTrue error payloads to sentinel errors.
// GoTrue has used both {error, error_description} and {code, error_code, msg}.
func classifySupabaseError(status int, body []byte) error {
	var payload struct {
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
		ErrorCode        string `json:"error_code"`
		Msg              string `json:"msg"`
		Message          string `json:"message"`
	}
	_ = json.Unmarshal(body, &payload)

	code := payload.ErrorCode
	if code == "" {
		code = payload.Error
	}
	msg := payload.Msg
	if msg == "" {
		msg = payload.ErrorDescription
	}
	if msg == "" {
		msg = payload.Message
	}
	lower := strings.ToLower(code + " " + msg)

	var sentinel error
	switch {
	case strings.Contains(lower, "email_not_confirmed"), strings.Contains(lower, "email not confirmed"):
		sentinel = ErrSupabaseEmailNotConfirmed
	case strings.Contains(lower, "invalid_credentials"), strings.Contains(lower, "invalid login credentials"),
		strings.Contains(lower, "invalid_grant"):
		sentinel = ErrSupabaseInvalidCredentials
	case strings.Contains(lower, "user_already_exists"), strings.Contains(lower, "already registered"):
		sentinel = ErrSupabaseUserExists
	case strings.Contains(lower, "weak_password"), strings.Contains(lower, "password should"):
		sentinel = ErrSupabaseWeakPassword
	}

	apiErr := &SupabaseError{Status: status, Code: code, Message: msg}
	if sentinel != nil {
		return fmt.Errorf("%w: %w", sentinel, apiErr)
	}
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return fmt.Errorf("%w: %w", ErrInvalidToken, apiErr)
	}
	return apiErr
}
