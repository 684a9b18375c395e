package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/utafrali/catalog/internal/domain"
	"github.com/utafrali/catalog/internal/repository"
	apperrors "github.com/utafrali/catalog/pkg/errors"
	"github.com/utafrali/catalog/pkg/pagination"
)

// CategoryService implements the business logic for category operations.
// Categories are not indexed, but cached products embed their categories,
// so renames and deletes evict the linked products.
type CategoryService struct {
	store       repository.Store
	invalidator *CacheInvalidator
	logger      *slog.Logger
}

// NewCategoryService creates a new category service.
func NewCategoryService(store repository.Store, invalidator *CacheInvalidator, logger *slog.Logger) *CategoryService {
	return &CategoryService{store: store, invalidator: invalidator, logger: logger}
}

// CreateCategory creates a category.
func (s *CategoryService) CreateCategory(ctx context.Context, input *domain.CreateCategoryInput) (*domain.CategoryResult, error) {
	title, sl, err := titleAndSlug(input.Title)
	if err != nil {
		return nil, err
	}

	category := &domain.Category{Title: title, Slug: sl}
	if err := s.store.Repos().Categories.Create(ctx, category); err != nil {
		return nil, fmt.Errorf("create category: %w", err)
	}

	s.logger.InfoContext(ctx, "category created",
		slog.Int64("category_id", category.ID),
		slog.String("slug", category.Slug),
	)
	return &domain.CategoryResult{Category: category}, nil
}

// UpdateCategory renames a category.
func (s *CategoryService) UpdateCategory(ctx context.Context, id int64, input *domain.UpdateCategoryInput) (*domain.CategoryResult, error) {
	var (
		category *domain.Category
		affected []string
	)
	err := s.store.WithinTx(ctx, func(r repository.Repositories) error {
		current, err := r.Categories.GetByID(ctx, id)
		if err != nil {
			return err
		}
		category = current

		if input.Title == nil {
			return nil
		}
		title, sl, err := titleAndSlug(*input.Title)
		if err != nil {
			return err
		}
		if title == current.Title {
			return nil
		}

		current.Title, current.Slug = title, sl
		if err := r.Categories.Update(ctx, current); err != nil {
			return err
		}
		affected, err = r.Products.SlugsByCategory(ctx, id)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("update category: %w", err)
	}

	result := &domain.CategoryResult{Category: category}
	if err := s.invalidator.Invalidate(ctx, affected...); err != nil {
		result.Degraded = append(result.Degraded, domain.StoreCache)
	}

	s.logger.InfoContext(ctx, "category updated",
		slog.Int64("category_id", id),
		slog.Int("products_evicted", len(affected)),
	)
	return result, nil
}

// DeleteCategory removes a category and its associations. Linked products
// are kept.
func (s *CategoryService) DeleteCategory(ctx context.Context, id int64) (*domain.DeleteResult, error) {
	var affected []string
	err := s.store.WithinTx(ctx, func(r repository.Repositories) error {
		slugs, err := r.Products.SlugsByCategory(ctx, id)
		if err != nil {
			return err
		}
		affected = slugs
		return r.Categories.Delete(ctx, id)
	})
	if err != nil {
		return nil, fmt.Errorf("delete category: %w", err)
	}

	result := &domain.DeleteResult{ID: id}
	if err := s.invalidator.Invalidate(ctx, affected...); err != nil {
		result.Degraded = append(result.Degraded, domain.StoreCache)
	}

	s.logger.InfoContext(ctx, "category deleted", slog.Int64("category_id", id))
	return result, nil
}

// GetCategory retrieves a category by its ID.
func (s *CategoryService) GetCategory(ctx context.Context, id int64) (*domain.Category, error) {
	category, err := s.store.Repos().Categories.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get category by id: %w", err)
	}
	return category, nil
}

// ListCategories returns every category ordered by id.
func (s *CategoryService) ListCategories(ctx context.Context) ([]domain.Category, error) {
	categories, err := s.store.Repos().Categories.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

// GetCategoryWithProducts returns one page of the products linked to the
// category with the given slug.
func (s *CategoryService) GetCategoryWithProducts(ctx context.Context, slug string, page, perPage int) (*domain.CategoryPage, error) {
	params, err := pagination.New(page, perPage)
	if err != nil {
		return nil, apperrors.InvalidInput(err.Error())
	}

	repos := s.store.Repos()
	category, err := repos.Categories.GetBySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("get category by slug: %w", err)
	}

	products, total, err := repos.Products.ListByCategory(ctx, category.ID, params.PerPage, params.Offset)
	if err != nil {
		return nil, fmt.Errorf("list category products: %w", err)
	}

	result := pagination.NewResult(products, total, params)
	return &domain.CategoryPage{
		Category:   category,
		Products:   result.Data,
		Total:      result.TotalCount,
		Page:       result.Page,
		PerPage:    result.PerPage,
		TotalPages: result.TotalPages,
		HasNext:    result.HasNext,
		HasPrev:    result.HasPrev,
	}, nil
}
