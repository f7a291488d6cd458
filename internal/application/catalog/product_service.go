package catalog

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/induservicios/backend/internal/domain/catalog"
	"github.com/induservicios/backend/internal/domain/shared"
	"github.com/induservicios/backend/internal/infrastructure/imaging"
	"github.com/induservicios/backend/internal/infrastructure/logger"
	"github.com/induservicios/backend/internal/infrastructure/spreadsheet"
	"github.com/induservicios/backend/internal/infrastructure/telemetry"
)

// ErrInvalidImage is returned for uploads that are not jpeg, png or gif
var ErrInvalidImage = shared.NewDomainError("INVALID_IMAGE", "Image must be a JPEG, PNG or GIF file")

// ImageStore keeps product images
type ImageStore interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) error
	Delete(ctx context.Context, key string) error
	PublicURL(key string) string
}

// ProductServiceConfig tunes image processing
type ProductServiceConfig struct {
	ThumbnailSize int
	JPEGQuality   int
}

// ProductService handles product-related business operations
type ProductService struct {
	productRepo  catalog.ProductRepository
	categoryRepo catalog.CategoryRepository
	images       ImageStore
	events       shared.EventPublisher
	config       ProductServiceConfig
	logger       *zap.Logger
}

// NewProductService creates a new ProductService
func NewProductService(
	productRepo catalog.ProductRepository,
	categoryRepo catalog.CategoryRepository,
	images ImageStore,
	events shared.EventPublisher,
	config ProductServiceConfig,
	logger *zap.Logger,
) *ProductService {
	if config.ThumbnailSize <= 0 {
		config.ThumbnailSize = imaging.DefaultThumbnailSize
	}
	if config.JPEGQuality <= 0 {
		config.JPEGQuality = imaging.DefaultJPEGQuality
	}
	return &ProductService{
		productRepo:  productRepo,
		categoryRepo: categoryRepo,
		images:       images,
		events:       events,
		config:       config,
		logger:       logger,
	}
}

// Create creates a new product
func (s *ProductService) Create(ctx context.Context, req CreateProductRequest) (*ProductResponse, error) {
	if err := s.checkCategory(ctx, req.CategoryID); err != nil {
		return nil, err
	}

	product, err := catalog.NewProduct(req.Name, req.Price, req.Stock)
	if err != nil {
		return nil, err
	}
	if product.Slug, err = uniqueSlug(ctx, product.Slug, s.productRepo.ExistsBySlug); err != nil {
		return nil, err
	}
	if req.Description != "" || req.SKU != "" || req.Unit != "" {
		if err := product.Update(product.Name, req.Description, req.SKU, req.Unit, product.Price); err != nil {
			return nil, err
		}
	}
	if req.CategoryID != nil {
		product.SetCategory(req.CategoryID)
	}
	if req.IsFeatured {
		product.SetFeatured(true)
	}
	if req.IsActive != nil {
		product.SetActive(*req.IsActive)
	}

	if err := s.save(ctx, product); err != nil {
		return nil, err
	}
	logger.Or(ctx, s.logger).Info("Product created",
		zap.String("product_id", product.ID.String()), zap.String("slug", product.Slug))
	resp := toProductResponse(product)
	return &resp, nil
}

// GetByID returns a product
func (s *ProductService) GetByID(ctx context.Context, id uuid.UUID) (*ProductResponse, error) {
	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := toProductResponse(product)
	return &resp, nil
}

// GetBySlug returns a product by slug
func (s *ProductService) GetBySlug(ctx context.Context, slug string) (*ProductResponse, error) {
	product, err := s.productRepo.FindBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	resp := toProductResponse(product)
	return &resp, nil
}

// List returns a page of products
func (s *ProductService) List(ctx context.Context, filter catalog.ProductFilter) (shared.Paginated[ProductResponse], error) {
	filter.Normalize()
	if filter.MinPrice != nil && filter.MaxPrice != nil && filter.MinPrice.GreaterThan(*filter.MaxPrice) {
		return shared.Paginated[ProductResponse]{}, shared.NewDomainError(shared.ErrInvalidInput.Code, "min_price cannot exceed max_price")
	}
	products, total, err := s.productRepo.FindAll(ctx, filter)
	if err != nil {
		return shared.Paginated[ProductResponse]{}, err
	}
	items := make([]ProductResponse, len(products))
	for i := range products {
		items[i] = toProductResponse(&products[i])
	}
	return shared.NewPaginated(items, total, filter.Page, filter.PageSize), nil
}

// Update changes a product. The slug is kept so storefront links stay valid.
func (s *ProductService) Update(ctx context.Context, id uuid.UUID, req UpdateProductRequest) (*ProductResponse, error) {
	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil || req.Description != nil || req.SKU != nil || req.Unit != nil || req.Price != nil {
		name, description, sku, unit, price := product.Name, product.Description, product.SKU, product.Unit, product.Price
		if req.Name != nil {
			name = *req.Name
		}
		if req.Description != nil {
			description = *req.Description
		}
		if req.SKU != nil {
			sku = *req.SKU
		}
		if req.Unit != nil {
			unit = *req.Unit
		}
		if req.Price != nil {
			price = *req.Price
		}
		if err := product.Update(name, description, sku, unit, price); err != nil {
			return nil, err
		}
	}

	switch {
	case req.ClearCategory:
		product.SetCategory(nil)
	case req.CategoryID != nil:
		if err := s.checkCategory(ctx, req.CategoryID); err != nil {
			return nil, err
		}
		product.SetCategory(req.CategoryID)
	}
	if req.IsFeatured != nil {
		product.SetFeatured(*req.IsFeatured)
	}
	if req.IsActive != nil {
		product.SetActive(*req.IsActive)
	}

	if err := s.save(ctx, product); err != nil {
		return nil, err
	}
	resp := toProductResponse(product)
	return &resp, nil
}

// Delete removes a product and its images
func (s *ProductService) Delete(ctx context.Context, id uuid.UUID) error {
	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.productRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.deleteObjects(ctx, product.ImageKey, product.ThumbnailKey)

	product.MarkDeleted()
	s.publish(ctx, product)
	logger.Or(ctx, s.logger).Info("Product deleted", zap.String("product_id", id.String()))
	return nil
}

// UploadImage validates an image, stores it with a thumbnail and replaces
// the product images. The previous objects are removed.
func (s *ProductService) UploadImage(ctx context.Context, id uuid.UUID, data []byte) (*ProductResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "catalog", "upload_image", telemetry.AttrProductID, id.String())
	defer span.End()
	log := logger.Or(ctx, s.logger)

	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	img, err := imaging.Decode(data)
	if err != nil {
		if errors.Is(err, imaging.ErrImageTooLarge) {
			return nil, shared.NewDomainError("INVALID_IMAGE", "Image dimensions are too large")
		}
		return nil, ErrInvalidImage
	}
	thumb, err := img.Thumbnail(s.config.ThumbnailSize, s.config.JPEGQuality)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("create thumbnail: %w", err)
	}
	telemetry.SetAttributes(span, "image.width", img.Width, "image.height", img.Height)

	base := fmt.Sprintf("products/%s/%s", product.ID, uuid.NewString())
	imageKey := base + "." + img.Extension
	thumbKey := base + "_thumb.jpg"

	if err := s.images.Upload(ctx, imageKey, img.Data, img.ContentType); err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("upload image: %w", err)
	}
	if err := s.images.Upload(ctx, thumbKey, thumb, "image/jpeg"); err != nil {
		telemetry.RecordError(span, err)
		s.deleteObjects(ctx, imageKey)
		return nil, fmt.Errorf("upload thumbnail: %w", err)
	}

	old := product.SetImages(s.images.PublicURL(imageKey), imageKey, s.images.PublicURL(thumbKey), thumbKey)
	if err := s.save(ctx, product); err != nil {
		s.deleteObjects(ctx, imageKey, thumbKey)
		return nil, err
	}
	s.deleteObjects(ctx, old...)

	log.Info("Product image replaced",
		zap.String("product_id", product.ID.String()),
		zap.Int("width", img.Width),
		zap.Int("height", img.Height),
		zap.Int("replaced", len(old)))
	resp := toProductResponse(product)
	return &resp, nil
}

// AdjustStock adds delta units to the stock. Stock never goes below zero.
func (s *ProductService) AdjustStock(ctx context.Context, id uuid.UUID, req AdjustStockRequest) (*ProductResponse, error) {
	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := product.AdjustStock(req.Delta); err != nil {
		return nil, err
	}
	if err := s.productRepo.AdjustStock(ctx, id, req.Delta); err != nil {
		return nil, err
	}
	s.publish(ctx, product)

	logger.Or(ctx, s.logger).Info("Stock adjusted",
		zap.String("product_id", id.String()),
		zap.Int("delta", req.Delta),
		zap.Int("stock", product.Stock),
		zap.String("reason", req.Reason))
	resp := toProductResponse(product)
	return &resp, nil
}

// Import columns
const (
	colName        = "name"
	colPrice       = "price"
	colStock       = "stock"
	colSKU         = "sku"
	colUnit        = "unit"
	colDescription = "description"
	colCategory    = "category"
	colFeatured    = "featured"
)

// Import creates or updates products from an XLSX or CSV upload. Rows are
// matched to existing products by slug. Invalid rows are reported and skipped.
func (s *ProductService) Import(ctx context.Context, filename string, data []byte) (*ImportResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "catalog", "import")
	defer span.End()

	table, err := spreadsheet.ReadTable(filename, data)
	if err != nil {
		return nil, shared.NewDomainError(shared.ErrInvalidInput.Code, err.Error())
	}
	if missing := table.MissingHeaders(colName, colPrice); len(missing) > 0 {
		return nil, shared.NewDomainError(shared.ErrInvalidInput.Code,
			"Missing required columns: "+strings.Join(missing, ", "))
	}

	errs := spreadsheet.NewErrorCollection(0)
	categories := make(map[string]*uuid.UUID)
	seen := make(map[string]int)
	result := &ImportResult{}

	for _, row := range table.Rows {
		p, ok := s.parseImportRow(ctx, row, errs, categories)
		if !ok {
			result.Skipped++
			continue
		}
		slug := catalog.Slugify(p.name)
		if first, dup := seen[slug]; dup {
			errs.Add(spreadsheet.RowError{Row: row.LineNumber, Column: colName, Code: spreadsheet.ErrCodeDuplicate,
				Message: fmt.Sprintf("duplicates row %d", first), Value: p.name})
			result.Skipped++
			continue
		}
		seen[slug] = row.LineNumber

		created, err := s.upsertImported(ctx, slug, p)
		if err != nil {
			errs.Add(spreadsheet.RowError{Row: row.LineNumber, Code: spreadsheet.ErrCodeInvalidValue, Message: err.Error()})
			result.Skipped++
			continue
		}
		if created {
			result.Created++
		} else {
			result.Updated++
		}
	}

	result.Errors = errs.Errors()
	result.TotalErrors = errs.TotalCount()
	result.Truncated = errs.IsTruncated()
	telemetry.SetAttributes(span, "import.created", result.Created, "import.updated", result.Updated, "import.errors", result.TotalErrors)
	logger.Or(ctx, s.logger).Info("Products imported",
		zap.String("file", filename),
		zap.Int("created", result.Created),
		zap.Int("updated", result.Updated),
		zap.Int("errors", result.TotalErrors))
	return result, nil
}

type importedProduct struct {
	name        string
	description string
	sku         string
	unit        string
	price       decimal.Decimal
	stock       *int
	categoryID  *uuid.UUID
	featured    *bool
}

func (s *ProductService) parseImportRow(ctx context.Context, row *spreadsheet.Row, errs *spreadsheet.ErrorCollection, categories map[string]*uuid.UUID) (importedProduct, bool) {
	p := importedProduct{
		name:        row.Get(colName),
		description: row.Get(colDescription),
		sku:         row.Get(colSKU),
		unit:        row.Get(colUnit),
	}
	ok := true

	if p.name == "" {
		errs.AddRequired(row.LineNumber, colName)
		ok = false
	}

	rawPrice := strings.ReplaceAll(row.Get(colPrice), ",", "")
	if rawPrice == "" {
		errs.AddRequired(row.LineNumber, colPrice)
		ok = false
	} else if price, err := decimal.NewFromString(rawPrice); err != nil || price.IsNegative() {
		errs.AddInvalid(row.LineNumber, colPrice, spreadsheet.ErrCodeInvalidType, "price must be a non-negative number", rawPrice)
		ok = false
	} else {
		p.price = price
	}

	if raw := row.Get(colStock); raw != "" {
		stock, err := strconv.Atoi(raw)
		if err != nil || stock < 0 {
			errs.AddInvalid(row.LineNumber, colStock, spreadsheet.ErrCodeInvalidType, "stock must be a non-negative integer", raw)
			ok = false
		} else {
			p.stock = &stock
		}
	}

	if raw := row.Get(colFeatured); raw != "" {
		switch strings.ToLower(raw) {
		case "1", "si", "sí", "yes", "true", "x":
			v := true
			p.featured = &v
		case "0", "no", "false":
			v := false
			p.featured = &v
		default:
			errs.AddInvalid(row.LineNumber, colFeatured, spreadsheet.ErrCodeInvalidValue, "featured must be si or no", raw)
			ok = false
		}
	}

	if raw := row.Get(colCategory); raw != "" {
		slug := catalog.Slugify(raw)
		id, cached := categories[slug]
		if !cached {
			if category, err := s.categoryRepo.FindBySlug(ctx, slug); err == nil {
				id = &category.ID
			}
			categories[slug] = id
		}
		if id == nil {
			errs.Add(spreadsheet.RowError{Row: row.LineNumber, Column: colCategory, Code: spreadsheet.ErrCodeNotFound,
				Message: "category not found", Value: raw})
			ok = false
		}
		p.categoryID = id
	}
	return p, ok
}

func (s *ProductService) upsertImported(ctx context.Context, slug string, p importedProduct) (bool, error) {
	created := false
	delta := 0
	product, err := s.productRepo.FindBySlug(ctx, slug)
	switch {
	case errors.Is(err, shared.ErrNotFound):
		created = true
		stock := 0
		if p.stock != nil {
			stock = *p.stock
		}
		product, err = catalog.NewProduct(p.name, p.price, stock)
		if err != nil {
			return false, err
		}
	case err != nil:
		return false, err
	default:
		if p.stock != nil {
			delta = *p.stock - product.Stock
		}
	}
	description := p.description
	if description == "" {
		description = product.Description
	}
	if err := product.Update(p.name, description, p.sku, p.unit, p.price); err != nil {
		return false, err
	}
	if p.categoryID != nil {
		product.SetCategory(p.categoryID)
	}
	if p.featured != nil {
		product.SetFeatured(*p.featured)
	}
	if err := s.save(ctx, product); err != nil {
		return false, err
	}
	// stock of an existing product moves atomically, like any other adjustment
	if delta != 0 {
		if err := s.productRepo.AdjustStock(ctx, product.ID, delta); err != nil {
			return false, err
		}
		if err := product.AdjustStock(delta); err != nil {
			return false, err
		}
		s.publish(ctx, product)
	}
	return created, nil
}

func (s *ProductService) checkCategory(ctx context.Context, id *uuid.UUID) error {
	if id == nil {
		return nil
	}
	if _, err := s.categoryRepo.FindByID(ctx, *id); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return shared.NewDomainError("INVALID_CATEGORY", "Category not found")
		}
		return err
	}
	return nil
}

func (s *ProductService) save(ctx context.Context, product *catalog.Product) error {
	if err := s.productRepo.Save(ctx, product); err != nil {
		return err
	}
	s.publish(ctx, product)
	return nil
}

func (s *ProductService) publish(ctx context.Context, product *catalog.Product) {
	if err := shared.PublishPending(ctx, s.events, product); err != nil {
		logger.Or(ctx, s.logger).Warn("Failed to publish product events", zap.Error(err))
	}
}

func (s *ProductService) deleteObjects(ctx context.Context, keys ...string) {
	for _, key := range keys {
		if key == "" {
			continue
		}
		if err := s.images.Delete(ctx, key); err != nil {
			logger.Or(ctx, s.logger).Warn("Failed to delete product image",
				zap.String("key", key), zap.Error(err))
		}
	}
}
