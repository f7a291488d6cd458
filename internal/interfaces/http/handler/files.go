package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/induservicios/backend/internal/infrastructure/storage"
)

// ObjectReader returns stored objects by key
type ObjectReader interface {
	Get(key string) (storage.MemoryObject, bool)
}

// FileHandler serves objects of the in-memory storage backend. With S3 the
// route is not mounted and URLs point at the bucket.
type FileHandler struct {
	BaseHandler
	objects ObjectReader
}

// NewFileHandler creates a new FileHandler
func NewFileHandler(objects ObjectReader) *FileHandler {
	return &FileHandler{objects: objects}
}

// RegisterRoutes mounts the file route
func (h *FileHandler) RegisterRoutes(public gin.IRoutes) {
	public.GET("/files/*key", h.Serve)
}

// Serve writes one object
func (h *FileHandler) Serve(c *gin.Context) {
	key := strings.TrimPrefix(c.Param("key"), "/")
	if key == "" || strings.Contains(key, "..") {
		h.NotFound(c, "File not found")
		return
	}
	obj, ok := h.objects.Get(key)
	if !ok {
		h.NotFound(c, "File not found")
		return
	}
	c.Header("Cache-Control", "public, max-age=3600")
	c.Data(http.StatusOK, obj.ContentType, obj.Data)
}
