package service

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/catalog/internal/cache"
	"github.com/utafrali/catalog/internal/domain"
	"github.com/utafrali/catalog/internal/engine"
	memengine "github.com/utafrali/catalog/internal/engine/memory"
	memrepo "github.com/utafrali/catalog/internal/repository/memory"
)

// --- Test Doubles ---

type mockEvents struct {
	mock.Mock
}

func (m *mockEvents) PublishProductCreated(ctx context.Context, product *domain.Product) error {
	return m.Called(ctx, product).Error(0)
}

func (m *mockEvents) PublishProductUpdated(ctx context.Context, product *domain.Product, previousSlug string) error {
	return m.Called(ctx, product, previousSlug).Error(0)
}

func (m *mockEvents) PublishProductDeleted(ctx context.Context, product *domain.Product) error {
	return m.Called(ctx, product).Error(0)
}

// failingEngine rejects every document write and query.
type failingEngine struct {
	*memengine.Engine
	err error
}

func (e *failingEngine) Upsert(context.Context, domain.SearchDocument) error { return e.err }
func (e *failingEngine) Delete(context.Context, int64) error                 { return e.err }
func (e *failingEngine) Search(context.Context, string, int) ([]domain.SearchHit, error) {
	return nil, e.err
}

// brokenCache fails every call.
type brokenCache struct{}

var errCacheDown = errors.New("dial tcp 127.0.0.1:6379: connect: connection refused")

func (brokenCache) Get(context.Context, string) ([]byte, error) { return nil, errCacheDown }
func (brokenCache) Set(context.Context, string, []byte, time.Duration) error {
	return errCacheDown
}
func (brokenCache) Delete(context.Context, ...string) error { return errCacheDown }

// --- Fixture ---

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

type fixture struct {
	store      *memrepo.Store
	engine     *memengine.Engine
	redis      *miniredis.Miniredis
	metrics    *Metrics
	indexer    *IndexSynchronizer
	products   *ProductService
	categories *CategoryService
	search     *SearchService
	events     *mockEvents
}

type fixtureOptions struct {
	strict bool
	cache  Cache
}

type fixtureOption func(*fixtureOptions)

func withStrictAssociations() fixtureOption {
	return func(o *fixtureOptions) { o.strict = true }
}

func withCache(c Cache) fixtureOption {
	return func(o *fixtureOptions) { o.cache = c }
}

func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()
	return newFixtureWithEngine(t, nil, opts...)
}

// newFixtureWithEngine builds the services over the memory store, the memory
// engine (or wrap of it) and a miniredis cache, with the index bootstrapped.
func newFixtureWithEngine(t *testing.T, wrap func(*memengine.Engine) engine.SearchEngine, opts ...fixtureOption) *fixture {
	t.Helper()
	o := &fixtureOptions{}
	for _, opt := range opts {
		opt(o)
	}

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	var c Cache = cache.New(client)
	if o.cache != nil {
		c = o.cache
	}

	logger := newTestLogger()
	store := memrepo.NewStore()
	mem := memengine.New()
	var eng engine.SearchEngine = mem
	if wrap != nil {
		eng = wrap(mem)
	}

	metrics := NewMetrics(nil)
	cfg := DefaultIndexerConfig()
	cfg.RetryInterval = time.Millisecond
	indexer := NewIndexSynchronizer(eng, store, cfg, metrics, logger)
	require.NoError(t, indexer.Bootstrap(context.Background()))

	invalidator := NewCacheInvalidator(c, metrics, logger)
	events := new(mockEvents)
	events.On("PublishProductCreated", mock.Anything, mock.Anything).Return(nil).Maybe()
	events.On("PublishProductUpdated", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	events.On("PublishProductDeleted", mock.Anything, mock.Anything).Return(nil).Maybe()

	return &fixture{
		store:   store,
		engine:  mem,
		redis:   mr,
		metrics: metrics,
		indexer: indexer,
		products: NewProductService(ProductDeps{
			Store:        store,
			Associations: NewAssociationManager(o.strict, logger),
			Indexer:      indexer,
			Invalidator:  invalidator,
			Cache:        c,
			CacheTTL:     time.Minute,
			Events:       events,
		}, logger),
		categories: NewCategoryService(store, invalidator, logger),
		search:     NewSearchService(eng, store, indexer, 10, logger),
		events:     events,
	}
}

func (f *fixture) createCategory(t *testing.T, title string) *domain.Category {
	t.Helper()
	res, err := f.categories.CreateCategory(context.Background(), &domain.CreateCategoryInput{Title: title})
	require.NoError(t, err)
	return res.Category
}

func (f *fixture) createProduct(t *testing.T, title string, categoryIDs ...int64) *domain.Product {
	t.Helper()
	res, err := f.products.CreateProduct(context.Background(), &domain.CreateProductInput{
		Title:       title,
		CategoryIDs: categoryIDs,
	})
	require.NoError(t, err)
	require.Empty(t, res.Degraded)
	return res.Product
}

func (f *fixture) categoryIDs(t *testing.T, productID int64) []int64 {
	t.Helper()
	ids, err := f.store.Repos().Associations.CategoryIDs(context.Background(), productID)
	require.NoError(t, err)
	return ids
}
