package middleware

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func bodyRouter(mw gin.HandlerFunc) *gin.Engine {
	router := gin.New()
	router.Use(RequestID(), mw)
	router.POST("/upload", func(c *gin.Context) {
		if _, err := io.ReadAll(c.Request.Body); err != nil {
			c.Status(http.StatusRequestEntityTooLarge)
			return
		}
		c.Status(http.StatusOK)
	})
	return router
}

func TestBodyLimit(t *testing.T) {
	router := bodyRouter(BodyLimit(10))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/upload", bytes.NewBufferString("small")))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/upload", bytes.NewBufferString("this body is too large")))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "REQUEST_TOO_LARGE", errorCode(t, rec))
}

func TestBodyLimit_ChunkedBody(t *testing.T) {
	router := bodyRouter(BodyLimit(10))

	req := httptest.NewRequest(http.MethodPost, "/upload", bytes.NewBufferString("this body is too large"))
	req.ContentLength = -1
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestBodyLimitWithConfig_MultipartAllowance(t *testing.T) {
	router := bodyRouter(BodyLimitWithConfig(BodyLimitConfig{MaxBytes: 10, UploadMaxBytes: 100}))
	payload := bytes.Repeat([]byte("a"), 50)

	req := httptest.NewRequest(http.MethodPost, "/upload", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "multipart/form-data; boundary=x")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/upload", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}
