package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sony/gobreaker/v2"

	"github.com/utafrali/catalog/internal/domain"
)

// ErrCircuitOpen is returned while the breaker rejects calls.
var ErrCircuitOpen = errors.New("search engine circuit open")

// BreakerConfig holds configuration for the circuit breaker.
type BreakerConfig struct {
	// Name identifies this breaker in metrics and logs.
	Name string

	// MaxRequests is the number of trial calls allowed while half-open.
	MaxRequests uint32

	// Interval is the cyclic period of the closed state for clearing counts.
	Interval time.Duration

	// Timeout is how long the breaker stays open before going half-open.
	Timeout time.Duration

	// FailureRatio trips the breaker once MinRequests have been seen.
	FailureRatio float64

	MinRequests uint32
}

// DefaultBreakerConfig returns sensible defaults for the search breaker.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Name:         "search_engine",
		MaxRequests:  1,
		Interval:     60 * time.Second,
		Timeout:      30 * time.Second,
		FailureRatio: 0.5,
		MinRequests:  5,
	}
}

// Breaker decorates a SearchEngine so that every call goes through a
// circuit breaker. While open, calls fail fast with ErrCircuitOpen.
type Breaker struct {
	next   SearchEngine
	cb     *gobreaker.CircuitBreaker[any]
	logger *slog.Logger
}

// NewBreaker wraps next. The breaker state is exported as
// catalog_search_breaker_state when reg is non-nil.
func NewBreaker(next SearchEngine, cfg BreakerConfig, reg prometheus.Registerer, logger *slog.Logger) (*Breaker, error) {
	state := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "catalog_search_breaker_state",
		Help: "Circuit breaker state for the search engine (0=closed, 1=half-open, 2=open).",
	}, []string{"name"})
	if reg != nil {
		if err := reg.Register(state); err != nil {
			return nil, fmt.Errorf("register breaker metrics: %w", err)
		}
	}

	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
			state.WithLabelValues(name).Set(stateValue(to))
		},
		// Canceled calls do not count as failures.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	}
	state.WithLabelValues(cfg.Name).Set(0)

	return &Breaker{
		next:   next,
		cb:     gobreaker.NewCircuitBreaker[any](settings),
		logger: logger,
	}, nil
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

// State returns the current breaker state.
func (b *Breaker) State() gobreaker.State {
	return b.cb.State()
}

func execute[T any](b *Breaker, fn func() (T, error)) (T, error) {
	v, err := b.cb.Execute(func() (any, error) {
		res, err := fn()
		return res, err
	})
	if err != nil {
		var zero T
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return zero, fmt.Errorf("%w: %w", ErrCircuitOpen, err)
		}
		return zero, err
	}
	return v.(T), nil
}

func (b *Breaker) EnsureIndex(ctx context.Context) (bool, error) {
	return execute(b, func() (bool, error) { return b.next.EnsureIndex(ctx) })
}

func (b *Breaker) Upsert(ctx context.Context, doc domain.SearchDocument) error {
	_, err := execute(b, func() (struct{}, error) { return struct{}{}, b.next.Upsert(ctx, doc) })
	return err
}

func (b *Breaker) Delete(ctx context.Context, id int64) error {
	_, err := execute(b, func() (struct{}, error) { return struct{}{}, b.next.Delete(ctx, id) })
	return err
}

func (b *Breaker) BulkUpsert(ctx context.Context, docs []domain.SearchDocument) error {
	_, err := execute(b, func() (struct{}, error) { return struct{}{}, b.next.BulkUpsert(ctx, docs) })
	return err
}

func (b *Breaker) PruneBefore(ctx context.Context, t time.Time) (int, error) {
	return execute(b, func() (int, error) { return b.next.PruneBefore(ctx, t) })
}

func (b *Breaker) Search(ctx context.Context, text string, limit int) ([]domain.SearchHit, error) {
	return execute(b, func() ([]domain.SearchHit, error) { return b.next.Search(ctx, text, limit) })
}

func (b *Breaker) Count(ctx context.Context) (int, error) {
	return execute(b, func() (int, error) { return b.next.Count(ctx) })
}

// Ping bypasses the breaker so health checks observe the engine directly.
func (b *Breaker) Ping(ctx context.Context) error {
	return b.next.Ping(ctx)
}
