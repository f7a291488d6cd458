package catalog

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/induservicios/backend/internal/domain/catalog"
	"github.com/induservicios/backend/internal/domain/shared"
	"github.com/induservicios/backend/internal/infrastructure/logger"
)

// CategoryService handles category-related business operations
type CategoryService struct {
	categoryRepo catalog.CategoryRepository
	productRepo  catalog.ProductRepository
	events       shared.EventPublisher
	logger       *zap.Logger
}

// NewCategoryService creates a new CategoryService
func NewCategoryService(
	categoryRepo catalog.CategoryRepository,
	productRepo catalog.ProductRepository,
	events shared.EventPublisher,
	logger *zap.Logger,
) *CategoryService {
	return &CategoryService{
		categoryRepo: categoryRepo,
		productRepo:  productRepo,
		events:       events,
		logger:       logger,
	}
}

// Create creates a new category
func (s *CategoryService) Create(ctx context.Context, req CreateCategoryRequest) (*CategoryResponse, error) {
	category, err := catalog.NewCategory(req.Name, req.Description)
	if err != nil {
		return nil, err
	}
	if category.Slug, err = uniqueSlug(ctx, category.Slug, s.categoryRepo.ExistsBySlug); err != nil {
		return nil, err
	}
	if req.ImageURL != "" {
		category.SetImage(strings.TrimSpace(req.ImageURL))
	}
	if req.SortOrder != nil {
		category.SetSortOrder(*req.SortOrder)
	}
	if req.IsActive != nil {
		category.SetActive(*req.IsActive)
	}

	if err := s.save(ctx, category); err != nil {
		return nil, err
	}
	logger.Or(ctx, s.logger).Info("Category created",
		zap.String("category_id", category.ID.String()), zap.String("slug", category.Slug))
	resp := toCategoryResponse(category)
	return &resp, nil
}

// GetByID returns a category
func (s *CategoryService) GetByID(ctx context.Context, id uuid.UUID) (*CategoryResponse, error) {
	category, err := s.categoryRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := toCategoryResponse(category)
	return &resp, nil
}

// GetBySlug returns a category by slug
func (s *CategoryService) GetBySlug(ctx context.Context, slug string) (*CategoryResponse, error) {
	category, err := s.categoryRepo.FindBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	resp := toCategoryResponse(category)
	return &resp, nil
}

// List returns a page of categories ordered by sort order
func (s *CategoryService) List(ctx context.Context, filter shared.Filter) (shared.Paginated[CategoryResponse], error) {
	filter.Normalize()
	categories, total, err := s.categoryRepo.FindAll(ctx, filter)
	if err != nil {
		return shared.Paginated[CategoryResponse]{}, err
	}
	items := make([]CategoryResponse, len(categories))
	for i := range categories {
		items[i] = toCategoryResponse(&categories[i])
	}
	return shared.NewPaginated(items, total, filter.Page, filter.PageSize), nil
}

// Update changes a category. The slug is kept.
func (s *CategoryService) Update(ctx context.Context, id uuid.UUID, req UpdateCategoryRequest) (*CategoryResponse, error) {
	category, err := s.categoryRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil || req.Description != nil {
		name, description := category.Name, category.Description
		if req.Name != nil {
			name = *req.Name
		}
		if req.Description != nil {
			description = *req.Description
		}
		if err := category.Update(name, description); err != nil {
			return nil, err
		}
	}
	if req.ImageURL != nil {
		category.SetImage(strings.TrimSpace(*req.ImageURL))
	}
	if req.SortOrder != nil {
		category.SetSortOrder(*req.SortOrder)
	}
	if req.IsActive != nil {
		category.SetActive(*req.IsActive)
	}

	if err := s.save(ctx, category); err != nil {
		return nil, err
	}
	resp := toCategoryResponse(category)
	return &resp, nil
}

// Delete removes a category without products
func (s *CategoryService) Delete(ctx context.Context, id uuid.UUID) error {
	category, err := s.categoryRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	count, err := s.productRepo.CountByCategory(ctx, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return shared.NewDomainError("CATEGORY_HAS_PRODUCTS", "Cannot delete a category that still has products")
	}

	if err := s.categoryRepo.Delete(ctx, id); err != nil {
		return err
	}
	category.MarkDeleted()
	s.publish(ctx, category)
	logger.Or(ctx, s.logger).Info("Category deleted", zap.String("category_id", id.String()))
	return nil
}

func (s *CategoryService) save(ctx context.Context, category *catalog.Category) error {
	if err := s.categoryRepo.Save(ctx, category); err != nil {
		return err
	}
	s.publish(ctx, category)
	return nil
}

func (s *CategoryService) publish(ctx context.Context, category *catalog.Category) {
	if err := shared.PublishPending(ctx, s.events, category); err != nil {
		logger.Or(ctx, s.logger).Warn("Failed to publish category events", zap.Error(err))
	}
}
