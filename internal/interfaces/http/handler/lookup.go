package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	lookupapp "github.com/induservicios/backend/internal/application/lookup"
	"github.com/induservicios/backend/internal/domain/identity"
)

// LookupService validates and resolves RUC and DNI numbers
type LookupService interface {
	Validate(docType identity.DocumentType, number string) lookupapp.ValidationResult
	LookupRUC(ctx context.Context, ruc string) (*lookupapp.RUCResult, error)
	LookupDNI(ctx context.Context, dni string) (*lookupapp.DNIResult, error)
}

// LookupHandler handles document lookups for checkout forms
type LookupHandler struct {
	BaseHandler
	lookup LookupService
}

// NewLookupHandler creates a new LookupHandler
func NewLookupHandler(lookup LookupService) *LookupHandler {
	return &LookupHandler{lookup: lookup}
}

// RegisterRoutes mounts the lookup routes. public should be rate limited
// since every miss reaches an external registry.
func (h *LookupHandler) RegisterRoutes(public gin.IRoutes) {
	public.GET("/lookup/ruc/:ruc", h.RUC)
	public.GET("/lookup/dni/:dni", h.DNI)
	public.POST("/lookup/validate", h.Validate)
}

// ValidateDocumentRequest is an offline document check
type ValidateDocumentRequest struct {
	DocumentType identity.DocumentType `json:"document_type" binding:"required,oneof=DNI RUC CE"`
	Number       string                `json:"number" binding:"required,max=20"`
}

// RUC resolves a taxpayer
func (h *LookupHandler) RUC(c *gin.Context) {
	res, err := h.lookup.LookupRUC(c.Request.Context(), c.Param("ruc"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, res)
}

// DNI resolves a person
func (h *LookupHandler) DNI(c *gin.Context) {
	res, err := h.lookup.LookupDNI(c.Request.Context(), c.Param("dni"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, res)
}

// Validate checks a document number without calling any registry.
// Invalid numbers still answer 200 with valid=false.
func (h *LookupHandler) Validate(c *gin.Context) {
	var req ValidateDocumentRequest
	if !h.bindJSON(c, &req) {
		return
	}
	h.Success(c, h.lookup.Validate(req.DocumentType, req.Number))
}
