package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	catalogapp "github.com/induservicios/backend/internal/application/catalog"
	"github.com/induservicios/backend/internal/domain/shared"
)

// CategoryService manages catalog categories
type CategoryService interface {
	Create(ctx context.Context, req catalogapp.CreateCategoryRequest) (*catalogapp.CategoryResponse, error)
	GetByID(ctx context.Context, id uuid.UUID) (*catalogapp.CategoryResponse, error)
	GetBySlug(ctx context.Context, slug string) (*catalogapp.CategoryResponse, error)
	List(ctx context.Context, filter shared.Filter) (shared.Paginated[catalogapp.CategoryResponse], error)
	Update(ctx context.Context, id uuid.UUID, req catalogapp.UpdateCategoryRequest) (*catalogapp.CategoryResponse, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// CategoryHandler handles category endpoints
type CategoryHandler struct {
	BaseHandler
	categories CategoryService
}

// NewCategoryHandler creates a new CategoryHandler
func NewCategoryHandler(categories CategoryService) *CategoryHandler {
	return &CategoryHandler{categories: categories}
}

// RegisterRoutes mounts public reads and admin writes
func (h *CategoryHandler) RegisterRoutes(public, admin gin.IRoutes) {
	public.GET("/categories", h.ListPublic)
	public.GET("/categories/slug/:slug", h.GetBySlug)

	admin.GET("/admin/categories", h.List)
	admin.GET("/admin/categories/:id", h.Get)
	admin.POST("/admin/categories", h.Create)
	admin.PUT("/admin/categories/:id", h.Update)
	admin.DELETE("/admin/categories/:id", h.Delete)
}

// ListPublic returns active categories
func (h *CategoryHandler) ListPublic(c *gin.Context) {
	h.list(c, true)
}

// List returns every category
func (h *CategoryHandler) List(c *gin.Context) {
	h.list(c, false)
}

func (h *CategoryHandler) list(c *gin.Context, activeOnly bool) {
	req, ok := h.listFilter(c)
	if !ok {
		return
	}
	filter := req.Filter()
	if activeOnly {
		filter.Filters["is_active"] = true
	} else if active, err := queryBool(c, "active"); err != nil {
		h.BadRequest(c, err.Error())
		return
	} else if active != nil {
		filter.Filters["is_active"] = *active
	}

	page, err := h.categories.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	Page(c, page)
}

// GetBySlug returns an active category
func (h *CategoryHandler) GetBySlug(c *gin.Context) {
	category, err := h.categories.GetBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if !category.IsActive {
		h.NotFound(c, "Category not found")
		return
	}
	h.Success(c, category)
}

// Get returns a category by ID
func (h *CategoryHandler) Get(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	category, err := h.categories.GetByID(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, category)
}

// Create adds a category
func (h *CategoryHandler) Create(c *gin.Context) {
	var req catalogapp.CreateCategoryRequest
	if !h.bindJSON(c, &req) {
		return
	}
	category, err := h.categories.Create(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, category)
}

// Update edits a category
func (h *CategoryHandler) Update(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	var req catalogapp.UpdateCategoryRequest
	if !h.bindJSON(c, &req) {
		return
	}
	category, err := h.categories.Update(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, category)
}

// Delete removes a category without products
func (h *CategoryHandler) Delete(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	if err := h.categories.Delete(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}
