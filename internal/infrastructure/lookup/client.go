// Package lookup queries SUNAT (RUC) and RENIEC (DNI) data through the
// apis.net.pe gateway.
package lookup

import (
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

const maxResponseSize = 256 << 10

var (
	// ErrNotFound is returned when the registry has no record for the number
	ErrNotFound = errors.New("lookup: document not found")
	// ErrUnavailable is returned when the gateway fails or rate limits
	ErrUnavailable = errors.New("lookup: service unavailable")
)

// RUCRecord is a taxpayer as returned by the gateway
type RUCRecord struct {
	RazonSocial     string `json:"razonSocial"`
	NumeroDocumento string `json:"numeroDocumento"`
	Estado          string `json:"estado"`
	Condicion       string `json:"condicion"`
	Direccion       string `json:"direccion"`
	Ubigeo          string `json:"ubigeo"`
	Distrito        string `json:"distrito"`
	Provincia       string `json:"provincia"`
	Departamento    string `json:"departamento"`
}

// DNIRecord is a person as returned by the gateway
type DNIRecord struct {
	Nombres         string `json:"nombres"`
	ApellidoPaterno string `json:"apellidoPaterno"`
	ApellidoMaterno string `json:"apellidoMaterno"`
	NumeroDocumento string `json:"numeroDocumento"`
}

// Client calls the gateway's /sunat/ruc and /reniec/dni endpoints
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient creates a lookup client
func NewClient(cfg config.LookupConfig) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 8 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		token:      cfg.Token,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// RUC fetches a taxpayer by RUC
func (c *Client) RUC(ctx context.Context, ruc string) (*RUCRecord, error) {
	var rec RUCRecord
	if err := c.get(ctx, "/sunat/ruc", ruc, &rec); err != nil {
		return nil, err
	}
	if rec.RazonSocial == "" {
		return nil, ErrNotFound
	}
	return &rec, nil
}

// DNI fetches a person by DNI
func (c *Client) DNI(ctx context.Context, dni string) (*DNIRecord, error) {
	var rec DNIRecord
	if err := c.get(ctx, "/reniec/dni", dni, &rec); err != nil {
		return nil, err
	}
	if rec.Nombres == "" && rec.ApellidoPaterno == "" {
		return nil, ErrNotFound
	}
	return &rec, nil
}

func (c *Client) get(ctx context.Context, path, number string, out any) error {
	endpoint := c.baseURL + path + "?numero=" + url.QueryEscape(number)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("lookup: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("lookup: read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound, resp.StatusCode == http.StatusUnprocessableEntity:
		return ErrNotFound
	case resp.StatusCode == http.StatusTooManyRequests, resp.StatusCode >= 500:
		return fmt.Errorf("%w: HTTP %d", ErrUnavailable, resp.StatusCode)
	case resp.StatusCode >= 400:
		return fmt.Errorf("lookup: HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("lookup: decode response: %w", err)
	}
	return nil
}
