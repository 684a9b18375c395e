package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/utafrali/catalog/internal/domain"
	"github.com/utafrali/catalog/internal/engine"
	"github.com/utafrali/catalog/internal/repository"
	apperrors "github.com/utafrali/catalog/pkg/errors"
)

// DefaultMaxHits caps the number of search results.
const DefaultMaxHits = 50

// readiness is satisfied by *IndexSynchronizer.
type readiness interface {
	Ready() bool
}

// SearchService resolves free-text queries to products.
type SearchService struct {
	engine  engine.SearchEngine
	store   repository.Store
	index   readiness
	maxHits int
	logger  *slog.Logger
}

// NewSearchService creates a search service.
func NewSearchService(e engine.SearchEngine, store repository.Store, index readiness, maxHits int, logger *slog.Logger) *SearchService {
	if maxHits <= 0 {
		maxHits = DefaultMaxHits
	}
	return &SearchService{
		engine:  e,
		store:   store,
		index:   index,
		maxHits: maxHits,
		logger:  logger,
	}
}

// Search returns the products whose titles fuzzily match text, in the
// engine's rank order. Hits whose product no longer exists are skipped.
func (s *SearchService) Search(ctx context.Context, text string) ([]domain.Product, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return []domain.Product{}, nil
	}
	if !s.index.Ready() {
		return nil, apperrors.Unavailable("search index", nil)
	}

	hits, err := s.engine.Search(ctx, text, s.maxHits)
	if err != nil {
		s.logger.ErrorContext(ctx, "search query failed",
			slog.String("query", text),
			slog.String("error", err.Error()),
		)
		return nil, apperrors.Unavailable("search index", err)
	}
	if len(hits) == 0 {
		return []domain.Product{}, nil
	}

	ids := make([]int64, len(hits))
	for i, h := range hits {
		ids[i] = h.ID
	}
	found, err := s.store.Repos().Products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load search results: %w", err)
	}

	byID := make(map[int64]domain.Product, len(found))
	for _, p := range found {
		byID[p.ID] = p
	}
	products := make([]domain.Product, 0, len(found))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			products = append(products, p)
		}
	}
	return products, nil
}
