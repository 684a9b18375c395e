package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/utafrali/catalog/internal/cache"
	"github.com/utafrali/catalog/internal/domain"
	"github.com/utafrali/catalog/internal/repository"
	apperrors "github.com/utafrali/catalog/pkg/errors"
	"github.com/utafrali/catalog/pkg/slug"
)

// DefaultCacheTTL is how long a product read stays cached.
const DefaultCacheTTL = 5 * time.Minute

// EventPublisher is satisfied by *event.Producer.
type EventPublisher interface {
	PublishProductCreated(ctx context.Context, product *domain.Product) error
	PublishProductUpdated(ctx context.Context, product *domain.Product, previousSlug string) error
	PublishProductDeleted(ctx context.Context, product *domain.Product) error
}

// ProductDeps groups the collaborators of a ProductService. Cache and
// Events are optional.
type ProductDeps struct {
	Store        repository.Store
	Associations *AssociationManager
	Indexer      *IndexSynchronizer
	Invalidator  *CacheInvalidator
	Cache        Cache
	CacheTTL     time.Duration
	Events       EventPublisher
}

// ProductService implements the business logic for product operations.
// Every write commits to the store first; the search index, the cache and
// the event stream follow in that order and their failures only degrade
// the result.
type ProductService struct {
	store        repository.Store
	associations *AssociationManager
	indexer      *IndexSynchronizer
	invalidator  *CacheInvalidator
	cache        Cache
	cacheTTL     time.Duration
	events       EventPublisher
	logger       *slog.Logger
}

// NewProductService creates a new product service.
func NewProductService(deps ProductDeps, logger *slog.Logger) *ProductService {
	ttl := deps.CacheTTL
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &ProductService{
		store:        deps.Store,
		associations: deps.Associations,
		indexer:      deps.Indexer,
		invalidator:  deps.Invalidator,
		cache:        deps.Cache,
		cacheTTL:     ttl,
		events:       deps.Events,
		logger:       logger,
	}
}

// CreateProduct creates a product and links the given categories.
func (s *ProductService) CreateProduct(ctx context.Context, input *domain.CreateProductInput) (*domain.ProductResult, error) {
	title, sl, err := titleAndSlug(input.Title)
	if err != nil {
		return nil, err
	}

	product := &domain.Product{Title: title, Slug: sl, Description: input.Description}
	err = s.store.WithinTx(ctx, func(r repository.Repositories) error {
		if err := r.Products.Create(ctx, product); err != nil {
			return err
		}
		if input.CategoryIDs != nil {
			if err := s.associations.SetCategories(ctx, r, product.ID, input.CategoryIDs); err != nil {
				return err
			}
		}
		created, err := r.Products.GetByID(ctx, product.ID)
		if err != nil {
			return err
		}
		product = created
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}

	result := &domain.ProductResult{Product: product}
	if err := s.indexer.Upsert(ctx, product); err != nil {
		result.Degraded = append(result.Degraded, domain.StoreSearchIndex)
	}

	if s.events != nil {
		if err := s.events.PublishProductCreated(ctx, product); err != nil {
			s.logEventFailure(ctx, "product.created", product.ID, err)
		}
	}

	s.logger.InfoContext(ctx, "product created",
		slog.Int64("product_id", product.ID),
		slog.String("slug", product.Slug),
	)
	return result, nil
}

// UpdateProduct applies a partial update. The slug is re-derived only when
// the title changes; associations are replaced only when CategoryIDs is set.
func (s *ProductService) UpdateProduct(ctx context.Context, id int64, input *domain.UpdateProductInput) (*domain.ProductResult, error) {
	var (
		product      *domain.Product
		previousSlug string
	)
	err := s.store.WithinTx(ctx, func(r repository.Repositories) error {
		current, err := r.Products.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		previousSlug = current.Slug

		if input.Title != nil {
			title, sl, err := titleAndSlug(*input.Title)
			if err != nil {
				return err
			}
			if title != current.Title {
				current.Title, current.Slug = title, sl
			}
		}
		if input.Description != nil {
			current.Description = *input.Description
		}

		if err := r.Products.Update(ctx, current); err != nil {
			return err
		}
		if input.CategoryIDs != nil {
			if err := s.associations.SetCategories(ctx, r, id, input.CategoryIDs); err != nil {
				return err
			}
		}

		product, err = r.Products.GetByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}

	result := &domain.ProductResult{Product: product}
	if err := s.indexer.Upsert(ctx, product); err != nil {
		result.Degraded = append(result.Degraded, domain.StoreSearchIndex)
	}
	if err := s.invalidator.Invalidate(ctx, previousSlug, product.Slug); err != nil {
		result.Degraded = append(result.Degraded, domain.StoreCache)
	}

	if s.events != nil {
		if err := s.events.PublishProductUpdated(ctx, product, previousSlug); err != nil {
			s.logEventFailure(ctx, "product.updated", product.ID, err)
		}
	}

	s.logger.InfoContext(ctx, "product updated",
		slog.Int64("product_id", product.ID),
		slog.Int64("version", product.Version),
	)
	return result, nil
}

// DeleteProduct removes a product along with its associations.
func (s *ProductService) DeleteProduct(ctx context.Context, id int64) (*domain.DeleteResult, error) {
	var product *domain.Product
	err := s.store.WithinTx(ctx, func(r repository.Repositories) error {
		current, err := r.Products.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		product = current
		return r.Products.Delete(ctx, id)
	})
	if err != nil {
		return nil, fmt.Errorf("delete product: %w", err)
	}

	result := &domain.DeleteResult{ID: id}
	if err := s.indexer.Delete(ctx, id); err != nil {
		result.Degraded = append(result.Degraded, domain.StoreSearchIndex)
	}
	if err := s.invalidator.Invalidate(ctx, product.Slug); err != nil {
		result.Degraded = append(result.Degraded, domain.StoreCache)
	}

	if s.events != nil {
		if err := s.events.PublishProductDeleted(ctx, product); err != nil {
			s.logEventFailure(ctx, "product.deleted", id, err)
		}
	}

	s.logger.InfoContext(ctx, "product deleted", slog.Int64("product_id", id))
	return result, nil
}

// GetProduct retrieves a product by its ID.
func (s *ProductService) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	product, err := s.store.Repos().Products.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product by id: %w", err)
	}
	return product, nil
}

// GetProductBySlug retrieves a product by slug through the cache. Cache
// failures fall back to the store.
func (s *ProductService) GetProductBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	key := cache.Key("product", slug)

	if s.cache != nil {
		data, err := s.cache.Get(ctx, key)
		switch {
		case err == nil:
			var product domain.Product
			if err := json.Unmarshal(data, &product); err == nil {
				return &product, nil
			}
			s.logger.WarnContext(ctx, "discarding undecodable cache entry", slog.String("key", key))
		case !errors.Is(err, cache.ErrMiss):
			s.logger.WarnContext(ctx, "cache read failed",
				slog.String("key", key),
				slog.String("error", err.Error()),
			)
		}
	}

	product, err := s.store.Repos().Products.GetBySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("get product by slug: %w", err)
	}

	if s.cache != nil {
		data, err := json.Marshal(product)
		if err == nil {
			err = s.cache.Set(ctx, key, data, s.cacheTTL)
		}
		if err != nil {
			s.logger.WarnContext(ctx, "cache write failed",
				slog.String("key", key),
				slog.String("error", err.Error()),
			)
		}
	}
	return product, nil
}

// ListProducts returns every product with its categories, ordered by id.
func (s *ProductService) ListProducts(ctx context.Context) ([]domain.Product, error) {
	products, err := s.store.Repos().Products.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return products, nil
}

func (s *ProductService) logEventFailure(ctx context.Context, eventType string, id int64, err error) {
	s.logger.ErrorContext(ctx, "failed to publish "+eventType+" event",
		slog.Int64("product_id", id),
		slog.String("error", err.Error()),
	)
}

// titleAndSlug trims a title and derives its slug.
func titleAndSlug(raw string) (string, string, error) {
	title := strings.TrimSpace(raw)
	if title == "" {
		return "", "", apperrors.InvalidInput("title is required")
	}
	sl, err := slug.Make(title)
	if err != nil {
		return "", "", apperrors.InvalidInput("title must contain at least one letter or digit")
	}
	return title, sl, nil
}
