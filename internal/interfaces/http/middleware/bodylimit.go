package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/induservicios/backend/internal/interfaces/http/dto"
)

// BodyLimitConfig sets the request size limits
type BodyLimitConfig struct {
	// MaxBytes applies to JSON and form requests
	MaxBytes int64
	// UploadMaxBytes applies to multipart requests (images, evidence, imports)
	UploadMaxBytes int64
}

// BodyLimit limits every request body to maxBytes
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return BodyLimitWithConfig(BodyLimitConfig{MaxBytes: maxBytes, UploadMaxBytes: maxBytes})
}

// BodyLimitWithConfig limits request bodies, allowing more for multipart uploads
func BodyLimitWithConfig(cfg BodyLimitConfig) gin.HandlerFunc {
	if cfg.UploadMaxBytes < cfg.MaxBytes {
		cfg.UploadMaxBytes = cfg.MaxBytes
	}
	return func(c *gin.Context) {
		limit := cfg.MaxBytes
		if strings.HasPrefix(c.ContentType(), "multipart/") {
			limit = cfg.UploadMaxBytes
		}
		if limit <= 0 {
			c.Next()
			return
		}
		if c.Request.ContentLength > limit {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge,
				dto.NewErrorResponseWithRequestID(dto.ErrCodeRequestTooLarge,
					"Request body exceeds maximum allowed size", GetRequestID(c)))
			return
		}
		// chunked bodies have no ContentLength
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		c.Next()
	}
}
