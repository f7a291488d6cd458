package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	catalogapp "github.com/induservicios/backend/internal/application/catalog"
	"github.com/induservicios/backend/internal/domain/catalog"
	"github.com/induservicios/backend/internal/domain/shared"
)

// ProductService manages catalog products
type ProductService interface {
	Create(ctx context.Context, req catalogapp.CreateProductRequest) (*catalogapp.ProductResponse, error)
	GetByID(ctx context.Context, id uuid.UUID) (*catalogapp.ProductResponse, error)
	GetBySlug(ctx context.Context, slug string) (*catalogapp.ProductResponse, error)
	List(ctx context.Context, filter catalog.ProductFilter) (shared.Paginated[catalogapp.ProductResponse], error)
	Update(ctx context.Context, id uuid.UUID, req catalogapp.UpdateProductRequest) (*catalogapp.ProductResponse, error)
	Delete(ctx context.Context, id uuid.UUID) error
	UploadImage(ctx context.Context, id uuid.UUID, data []byte) (*catalogapp.ProductResponse, error)
	AdjustStock(ctx context.Context, id uuid.UUID, req catalogapp.AdjustStockRequest) (*catalogapp.ProductResponse, error)
	Import(ctx context.Context, filename string, data []byte) (*catalogapp.ImportResult, error)
}

// ProductHandler handles product endpoints
type ProductHandler struct {
	BaseHandler
	products      ProductService
	maxUploadSize int64
}

// NewProductHandler creates a new ProductHandler. maxUploadSize bounds
// images and import files.
func NewProductHandler(products ProductService, maxUploadSize int64) *ProductHandler {
	return &ProductHandler{products: products, maxUploadSize: maxUploadSize}
}

// RegisterRoutes mounts public reads and admin writes
func (h *ProductHandler) RegisterRoutes(public, admin gin.IRoutes) {
	public.GET("/products", h.ListPublic)
	public.GET("/products/slug/:slug", h.GetBySlug)
	public.GET("/products/:id", h.GetPublic)

	admin.GET("/admin/products", h.List)
	admin.GET("/admin/products/:id", h.Get)
	admin.POST("/admin/products", h.Create)
	admin.POST("/admin/products/import", h.Import)
	admin.PUT("/admin/products/:id", h.Update)
	admin.DELETE("/admin/products/:id", h.Delete)
	admin.POST("/admin/products/:id/image", h.UploadImage)
	admin.POST("/admin/products/:id/stock", h.AdjustStock)
}

// ProductListQuery holds the catalog filters
type ProductListQuery struct {
	CategoryID string `form:"category_id" binding:"omitempty,uuid"`
	MinPrice   string `form:"min_price" binding:"omitempty,numeric"`
	MaxPrice   string `form:"max_price" binding:"omitempty,numeric"`
}

// ListPublic returns active products
func (h *ProductHandler) ListPublic(c *gin.Context) {
	h.list(c, true)
}

// List returns products for the admin panel
func (h *ProductHandler) List(c *gin.Context) {
	h.list(c, false)
}

func (h *ProductHandler) list(c *gin.Context, activeOnly bool) {
	req, ok := h.listFilter(c)
	if !ok {
		return
	}
	var q ProductListQuery
	if !h.bindQuery(c, &q) {
		return
	}
	featured, err := queryBool(c, "featured")
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	filter := catalog.ProductFilter{Filter: req.Filter(), Featured: featured}
	if activeOnly {
		active := true
		filter.Active = &active
	} else if filter.Active, err = queryBool(c, "active"); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	if q.CategoryID != "" {
		id := uuid.MustParse(q.CategoryID)
		filter.CategoryID = &id
	}
	if q.MinPrice != "" {
		v, err := decimal.NewFromString(q.MinPrice)
		if err != nil {
			h.BadRequest(c, "Invalid min_price")
			return
		}
		filter.MinPrice = &v
	}
	if q.MaxPrice != "" {
		v, err := decimal.NewFromString(q.MaxPrice)
		if err != nil {
			h.BadRequest(c, "Invalid max_price")
			return
		}
		filter.MaxPrice = &v
	}

	page, err := h.products.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	Page(c, page)
}

// GetBySlug returns an active product
func (h *ProductHandler) GetBySlug(c *gin.Context) {
	product, err := h.products.GetBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if !product.IsActive {
		h.NotFound(c, "Product not found")
		return
	}
	h.Success(c, product)
}

// GetPublic returns an active product by ID
func (h *ProductHandler) GetPublic(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	product, err := h.products.GetByID(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if !product.IsActive {
		h.NotFound(c, "Product not found")
		return
	}
	h.Success(c, product)
}

// Get returns any product by ID
func (h *ProductHandler) Get(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	product, err := h.products.GetByID(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, product)
}

// Create adds a product
func (h *ProductHandler) Create(c *gin.Context) {
	var req catalogapp.CreateProductRequest
	if !h.bindJSON(c, &req) {
		return
	}
	product, err := h.products.Create(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, product)
}

// Update edits a product
func (h *ProductHandler) Update(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	var req catalogapp.UpdateProductRequest
	if !h.bindJSON(c, &req) {
		return
	}
	product, err := h.products.Update(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, product)
}

// Delete removes a product and its images
func (h *ProductHandler) Delete(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	if err := h.products.Delete(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// UploadImage replaces the product photo from the "image" form field
func (h *ProductHandler) UploadImage(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	data, _, err := readFormFile(c, "image", h.maxUploadSize)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	product, err := h.products.UploadImage(c.Request.Context(), id, data)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, product)
}

// AdjustStock adds or removes units
func (h *ProductHandler) AdjustStock(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	var req catalogapp.AdjustStockRequest
	if !h.bindJSON(c, &req) {
		return
	}
	product, err := h.products.AdjustStock(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, product)
}

// Import loads products from the XLSX or CSV "file" form field
func (h *ProductHandler) Import(c *gin.Context) {
	data, fh, err := readFormFile(c, "file", h.maxUploadSize)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	result, err := h.products.Import(c.Request.Context(), fh.Filename, data)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}
