package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/induservicios/backend/internal/domain/identity"
	"github.com/induservicios/backend/internal/domain/shared"
	"github.com/induservicios/backend/internal/infrastructure/auth"
	"github.com/induservicios/backend/internal/interfaces/http/dto"
	"github.com/induservicios/backend/internal/interfaces/http/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

// authenticate simulates the JWT middleware for a given caller
func authenticate(userID uuid.UUID, role identity.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := &auth.Claims{
			UserID:    userID.String(),
			Email:     "cliente@example.com",
			Role:      string(role),
			TokenType: auth.TokenTypeAccess,
		}
		c.Set(middleware.JWTClaimsKey, claims)
		c.Set(middleware.JWTUserIDKey, claims.UserID)
		c.Set(middleware.JWTEmailKey, claims.Email)
		c.Set(middleware.JWTRoleKey, claims.Role)
		c.Next()
	}
}

// testRoutes returns public, authed and admin groups on one engine
func testRoutes(userID uuid.UUID, role identity.Role) (*gin.Engine, *gin.RouterGroup, *gin.RouterGroup, *gin.RouterGroup) {
	r := gin.New()
	public := r.Group("")
	authed := r.Group("", authenticate(userID, role))
	admin := r.Group("", authenticate(userID, role), middleware.RequireAdmin())
	return r, public, authed, admin
}

func doRequest(r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, _ := json.Marshal(b)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) dto.Response {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

func errorCodeOf(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	resp := decodeResponse(t, w)
	require.NotNil(t, resp.Error, w.Body.String())
	return resp.Error.Code
}

func TestGetRequestID(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Empty(t, getRequestID(c))

	c.Set(middleware.RequestIDKey, "req-1")
	assert.Equal(t, "req-1", getRequestID(c))
}

func TestGetUserID(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	_, err := getUserID(c)
	assert.Error(t, err)
	assert.Nil(t, optionalUserID(c))

	id := uuid.New()
	c.Set(middleware.JWTUserIDKey, id.String())
	got, err := getUserID(c)
	require.NoError(t, err)
	assert.Equal(t, id, got)
	assert.Equal(t, id, *optionalUserID(c))
}

func TestBaseHandlerSuccess(t *testing.T) {
	h := &BaseHandler{}
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	h.Success(c, map[string]string{"key": "value"})

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w)
	assert.True(t, resp.Success)
	assert.Nil(t, resp.Meta)
}

func TestBaseHandlerCreatedAndNoContent(t *testing.T) {
	h := &BaseHandler{}
	r := gin.New()
	r.POST("/x", func(c *gin.Context) { h.Created(c, gin.H{"id": "1"}) })
	r.DELETE("/x", func(c *gin.Context) { h.NoContent(c) })

	w := doRequest(r, http.MethodPost, "/x", nil)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.True(t, decodeResponse(t, w).Success)

	w = doRequest(r, http.MethodDelete, "/x", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.Bytes())
}

func TestPage(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	Page(c, shared.NewPaginated([]string{"a", "b"}, 12, 2, 5))

	resp := decodeResponse(t, w)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, int64(12), resp.Meta.Total)
	assert.Equal(t, 2, resp.Meta.Page)
	assert.Equal(t, 3, resp.Meta.TotalPages)
	assert.Len(t, resp.Data, 2)
}

func TestPage_NilItemsEncodeAsEmptyList(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	Page(c, shared.Paginated[string]{Page: 1, PageSize: 20})

	assert.Contains(t, w.Body.String(), `"data":[]`)
}

func TestBaseHandlerErrorMethods(t *testing.T) {
	tests := []struct {
		name         string
		method       func(*BaseHandler, *gin.Context)
		expectedCode int
		expectedErr  string
	}{
		{"BadRequest", func(h *BaseHandler, c *gin.Context) { h.BadRequest(c, "bad") }, http.StatusBadRequest, dto.ErrCodeBadRequest},
		{"NotFound", func(h *BaseHandler, c *gin.Context) { h.NotFound(c, "missing") }, http.StatusNotFound, dto.ErrCodeNotFound},
		{"Unauthorized", func(h *BaseHandler, c *gin.Context) { h.Unauthorized(c, "who") }, http.StatusUnauthorized, dto.ErrCodeUnauthorized},
		{"InternalError", func(h *BaseHandler, c *gin.Context) { h.InternalError(c, "boom") }, http.StatusInternalServerError, dto.ErrCodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
			c.Set(middleware.RequestIDKey, "req-42")

			tt.method(&BaseHandler{}, c)

			assert.Equal(t, tt.expectedCode, w.Code)
			resp := decodeResponse(t, w)
			assert.False(t, resp.Success)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.expectedErr, resp.Error.Code)
			assert.Equal(t, "req-42", resp.Error.RequestID)
		})
	}
}

func TestHandleError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"not found", shared.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
		{"wrapped domain error", fmt.Errorf("load: %w", shared.ErrNotFound), http.StatusNotFound, "NOT_FOUND"},
		{"unlisted invalid code", shared.NewDomainError("INVALID_SLUG", "bad slug"), http.StatusBadRequest, "INVALID_SLUG"},
		{"unlisted business rule", shared.NewDomainError("QUOTE_CLOSED", "closed"), http.StatusUnprocessableEntity, "QUOTE_CLOSED"},
		{"payment unavailable", shared.NewDomainError("PAYMENT_UNAVAILABLE", "off"), http.StatusServiceUnavailable, "PAYMENT_UNAVAILABLE"},
		{"plain error", errors.New("connection refused"), http.StatusInternalServerError, dto.ErrCodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			(&BaseHandler{}).HandleError(c, tt.err)

			assert.Equal(t, tt.status, w.Code)
			resp := decodeResponse(t, w)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
		})
	}
}

func TestHandleError_HidesInternalMessage(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	(&BaseHandler{}).HandleError(c, errors.New("pq: password authentication failed"))

	assert.NotContains(t, w.Body.String(), "password")
	assert.Len(t, c.Errors, 1)
}

func TestParseID(t *testing.T) {
	h := &BaseHandler{}
	r := gin.New()
	r.GET("/items/:id", func(c *gin.Context) {
		id, ok := h.parseID(c, "id")
		if !ok {
			return
		}
		h.Success(c, id)
	})

	id := uuid.New()
	w := doRequest(r, http.MethodGet, "/items/"+id.String(), nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, id.String(), decodeResponse(t, w).Data)

	w = doRequest(r, http.MethodGet, "/items/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDateRangeQueryBounds(t *testing.T) {
	from, to, err := DateRangeQuery{From: "2026-03-01", To: "2026-03-31"}.Bounds()
	require.NoError(t, err)
	assert.Equal(t, "2026-03-01T00:00:00Z", from.Format("2006-01-02T15:04:05Z07:00"))
	assert.Equal(t, 23, to.Hour())
	assert.Equal(t, 31, to.Day())

	from, to, err = DateRangeQuery{}.Bounds()
	require.NoError(t, err)
	assert.Nil(t, from)
	assert.Nil(t, to)

	_, _, err = DateRangeQuery{From: "2026-03-10", To: "2026-03-01"}.Bounds()
	assert.Error(t, err)

	_, _, err = DateRangeQuery{From: "01/03/2026"}.Bounds()
	assert.Error(t, err)
}
