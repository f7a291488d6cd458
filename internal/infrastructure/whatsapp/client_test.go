package whatsapp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/induservicios/backend/internal/infrastructure/config"
)

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"987654321", "51987654321", false},
		{"987 654 321", "51987654321", false},
		{"+51 987-654-321", "51987654321", false},
		{"0051987654321", "51987654321", false},
		{"51987654321", "51987654321", false},
		{"+1 415 555 2671", "14155552671", false},
		{"01 4567890", "", true},
		{"12345", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := NormalizePhone(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidPhone)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClickToChatLink(t *testing.T) {
	link, err := ClickToChatLink("987654321", "Hola, su cotización COT-202610-00001 está en producción")
	require.NoError(t, err)
	assert.Equal(t, "https://wa.me/51987654321?text=Hola%2C+su+cotizaci%C3%B3n+COT-202610-00001+est%C3%A1+en+producci%C3%B3n", link)

	link, err = ClickToChatLink("987654321", "")
	require.NoError(t, err)
	assert.Equal(t, "https://wa.me/51987654321", link)
}

func TestClient_Disabled(t *testing.T) {
	c := NewClient(config.WhatsAppConfig{Enabled: true})
	assert.False(t, c.Enabled(), "enabled without credentials stays disabled")

	_, err := c.SendText(context.Background(), "987654321", "hola")
	assert.ErrorIs(t, err, ErrDisabled)
}

func TestClient_SendText(t *testing.T) {
	var got textMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v21.0/1234567890/messages", r.URL.Path)
		assert.Equal(t, "Bearer token-abc", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"messaging_product":"whatsapp","messages":[{"id":"wamid.HBgL"}]}`))
	}))
	defer srv.Close()

	c := NewClient(config.WhatsAppConfig{
		Enabled:       true,
		APIURL:        srv.URL + "/v21.0/",
		PhoneNumberID: "1234567890",
		AccessToken:   "token-abc",
	})

	id, err := c.SendText(context.Background(), "987 654 321", "Su pedido fue enviado")
	require.NoError(t, err)
	assert.Equal(t, "wamid.HBgL", id)
	assert.Equal(t, "51987654321", got.To)
	assert.Equal(t, "text", got.Type)
	assert.Equal(t, "Su pedido fue enviado", got.Text.Body)
}

func TestClient_SendText_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"Recipient phone number not in allowed list","type":"OAuthException","code":131030}}`))
	}))
	defer srv.Close()

	c := NewClient(config.WhatsAppConfig{Enabled: true, APIURL: srv.URL, PhoneNumberID: "1", AccessToken: "t"})
	_, err := c.SendText(context.Background(), "987654321", "hola")

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, 131030, apiErr.Code)

	_, err = c.SendText(context.Background(), "123", "hola")
	assert.ErrorIs(t, err, ErrInvalidPhone)
}
