package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/utafrali/catalog/internal/domain"
	"github.com/utafrali/catalog/internal/engine"
	"github.com/utafrali/catalog/internal/repository"
	"github.com/utafrali/catalog/pkg/logger"
)

// DefaultBatchSize is the number of products indexed per bulk request.
const DefaultBatchSize = 500

// errIndexNotPrepared is returned by writes that arrive before the index
// exists. The bootstrap rebuild picks those products up.
var errIndexNotPrepared = errors.New("search index not prepared")

// IndexerConfig holds the synchronizer settings.
type IndexerConfig struct {
	BatchSize int
	// RetryInterval is the initial delay between bootstrap attempts. It
	// doubles up to MaxRetryInterval.
	RetryInterval    time.Duration
	MaxRetryInterval time.Duration
}

// DefaultIndexerConfig returns the default synchronizer settings.
func DefaultIndexerConfig() IndexerConfig {
	return IndexerConfig{
		BatchSize:        DefaultBatchSize,
		RetryInterval:    time.Second,
		MaxRetryInterval: 30 * time.Second,
	}
}

// IndexSynchronizer mirrors products into the search engine.
type IndexSynchronizer struct {
	engine  engine.SearchEngine
	store   repository.Store
	cfg     IndexerConfig
	metrics *Metrics
	logger  *slog.Logger

	prepared  atomic.Bool
	ready     atomic.Bool
	rebuildMu sync.Mutex
}

// NewIndexSynchronizer creates an index synchronizer.
func NewIndexSynchronizer(e engine.SearchEngine, store repository.Store, cfg IndexerConfig, metrics *Metrics, logger *slog.Logger) *IndexSynchronizer {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = time.Second
	}
	if cfg.MaxRetryInterval < cfg.RetryInterval {
		cfg.MaxRetryInterval = cfg.RetryInterval
	}
	return &IndexSynchronizer{
		engine:  e,
		store:   store,
		cfg:     cfg,
		metrics: metrics,
		logger:  logger,
	}
}

// Ready reports whether the index has been bootstrapped and can serve
// searches.
func (s *IndexSynchronizer) Ready() bool {
	return s.ready.Load()
}

// Prepare creates the index if it does not exist. Live writes are accepted
// from then on; searches wait for Bootstrap.
func (s *IndexSynchronizer) Prepare(ctx context.Context) error {
	if _, err := s.engine.EnsureIndex(ctx); err != nil {
		return fmt.Errorf("ensure search index: %w", err)
	}
	s.prepared.Store(true)
	return nil
}

// Bootstrap rebuilds the index from the store, retrying with a doubling
// delay until a rebuild completes or ctx ends. It runs on every start, so an
// index left partial by an earlier process is reconciled.
func (s *IndexSynchronizer) Bootstrap(ctx context.Context) error {
	delay := s.cfg.RetryInterval
	for {
		_, err := s.BulkRebuild(ctx)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.logger.WarnContext(ctx, "search index bootstrap failed, retrying",
			slog.Duration("retry_in", delay),
			slog.String("error", err.Error()),
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay = min(delay*2, s.cfg.MaxRetryInterval)
	}
}

// BulkRebuild loads every product into the index in id order and then
// prunes documents not rewritten by this pass. Documents carry the product
// version, so a live write newer than the snapshot is never overwritten.
// Rebuilds are serialized.
func (s *IndexSynchronizer) BulkRebuild(ctx context.Context) (int, error) {
	s.rebuildMu.Lock()
	defer s.rebuildMu.Unlock()

	ctx = logger.WithOperation(ctx, "index.rebuild")
	start := time.Now()
	if err := s.Prepare(ctx); err != nil {
		return 0, err
	}

	products := s.store.Repos().Products
	var (
		afterID int64
		indexed int
	)
	for {
		batch, err := products.ListAfter(ctx, afterID, s.cfg.BatchSize)
		if err != nil {
			return indexed, fmt.Errorf("list products for reindex: %w", err)
		}
		if len(batch) == 0 {
			break
		}

		at := time.Now()
		docs := make([]domain.SearchDocument, len(batch))
		for i := range batch {
			docs[i] = domain.NewSearchDocument(&batch[i], at)
		}
		if err := s.engine.BulkUpsert(ctx, docs); err != nil {
			s.metrics.indexSyncFailures.WithLabelValues("bulk").Inc()
			return indexed, fmt.Errorf("bulk index products after %d: %w", afterID, err)
		}

		indexed += len(batch)
		afterID = batch[len(batch)-1].ID
		if len(batch) < s.cfg.BatchSize {
			break
		}
	}

	pruned, err := s.engine.PruneBefore(ctx, start)
	if err != nil {
		s.metrics.indexSyncFailures.WithLabelValues("prune").Inc()
		return indexed, fmt.Errorf("prune stale documents: %w", err)
	}

	s.ready.Store(true)
	logger.WithContext(ctx, s.logger).InfoContext(ctx, "search index rebuilt",
		slog.Int("indexed", indexed),
		slog.Int("pruned", pruned),
		slog.Duration("took", time.Since(start)),
	)
	return indexed, nil
}

// Upsert writes the search document of p.
func (s *IndexSynchronizer) Upsert(ctx context.Context, p *domain.Product) error {
	if !s.prepared.Load() {
		return s.failed(ctx, "upsert", p.ID, errIndexNotPrepared)
	}
	if err := s.engine.Upsert(ctx, domain.NewSearchDocument(p, time.Now())); err != nil {
		return s.failed(ctx, "upsert", p.ID, err)
	}
	return nil
}

// Delete removes the search document of product id.
func (s *IndexSynchronizer) Delete(ctx context.Context, id int64) error {
	if !s.prepared.Load() {
		return s.failed(ctx, "delete", id, errIndexNotPrepared)
	}
	if err := s.engine.Delete(ctx, id); err != nil {
		return s.failed(ctx, "delete", id, err)
	}
	return nil
}

func (s *IndexSynchronizer) failed(ctx context.Context, op string, id int64, err error) error {
	s.metrics.indexSyncFailures.WithLabelValues(op).Inc()
	s.logger.ErrorContext(ctx, "search index sync failed",
		slog.String("op", op),
		slog.Int64("product_id", id),
		slog.String("error", err.Error()),
	)
	return fmt.Errorf("%s search document %d: %w", op, id, err)
}
