package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/catalog/internal/service"
	"github.com/utafrali/catalog/pkg/health"
	"github.com/utafrali/catalog/pkg/middleware"
)

// Services groups the services the router exposes.
type Services struct {
	Products   *service.ProductService
	Categories *service.CategoryService
	Search     *service.SearchService
	Indexer    *service.IndexSynchronizer
}

// RouterConfig holds the cross-cutting HTTP settings.
type RouterConfig struct {
	CORS              middleware.CORSConfig
	AdminAllowedCIDRs []string
	// SearchRateLimit and ReindexRateLimit bound requests per client IP.
	// The zero value disables limiting.
	SearchRateLimit  middleware.RateLimitConfig
	ReindexRateLimit middleware.RateLimitConfig
	// Metrics records request metrics when set.
	Metrics *middleware.HTTPMetrics
	// MetricsHandler serves /metrics when set.
	MetricsHandler http.Handler
}

// NewRouter creates a chi router with all catalog routes registered.
func NewRouter(svc Services, healthHandler *health.Handler, cfg RouterConfig, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Tracing())
	r.Use(middleware.RequestLogging(logger))
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware)
	}
	r.Use(middleware.CORS(cfg.CORS))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())

	if cfg.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", cfg.MetricsHandler)
	}

	productHandler := NewProductHandler(svc.Products, svc.Search, logger)

	r.Route("/api/v1/products", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Get("/", productHandler.ListProducts)
		r.With(middleware.RateLimit(cfg.SearchRateLimit, logger)).Get("/search", productHandler.SearchProducts)
		r.Get("/id/{id}", productHandler.GetProduct)
		r.Get("/{slug}", productHandler.GetProductBySlug)
		r.Post("/", productHandler.CreateProduct)
		r.Put("/{id}", productHandler.UpdateProduct)
		r.Delete("/{id}", productHandler.DeleteProduct)
	})

	categoryHandler := NewCategoryHandler(svc.Categories, logger)

	r.Route("/api/v1/categories", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Get("/", categoryHandler.ListCategories)
		r.Get("/id/{id}", categoryHandler.GetCategory)
		r.Get("/{slug}", categoryHandler.GetCategoryWithProducts)
		r.Post("/", categoryHandler.CreateCategory)
		r.Put("/{id}", categoryHandler.UpdateCategory)
		r.Delete("/{id}", categoryHandler.DeleteCategory)
	})

	adminHandler := NewAdminHandler(svc.Indexer, logger)

	r.Route("/api/v1/admin", func(r chi.Router) {
		r.Use(middleware.IPAllowlist(cfg.AdminAllowedCIDRs, logger))
		r.Use(middleware.RateLimit(cfg.ReindexRateLimit, logger))

		r.Post("/reindex", adminHandler.Reindex)
	})

	middleware.RegisterPprof(r, cfg.AdminAllowedCIDRs, logger)

	return r
}
