// Package memory is an in-process system of record used by tests and by
// STORE_DRIVER=memory. It enforces the same uniqueness and cascade rules as
// the PostgreSQL schema.
package memory

import (
	"context"
	"maps"
	"sync"

	"github.com/utafrali/catalog/internal/domain"
	"github.com/utafrali/catalog/internal/repository"
)

type state struct {
	products       map[int64]domain.Product
	categories     map[int64]domain.Category
	links          map[int64]map[int64]struct{} // product id -> category ids
	nextProductID  int64
	nextCategoryID int64
}

func newState() *state {
	return &state{
		products:   make(map[int64]domain.Product),
		categories: make(map[int64]domain.Category),
		links:      make(map[int64]map[int64]struct{}),
	}
}

func (s *state) clone() *state {
	c := &state{
		products:       maps.Clone(s.products),
		categories:     maps.Clone(s.categories),
		links:          make(map[int64]map[int64]struct{}, len(s.links)),
		nextProductID:  s.nextProductID,
		nextCategoryID: s.nextCategoryID,
	}
	for pid, set := range s.links {
		c.links[pid] = maps.Clone(set)
	}
	return c
}

// access runs fn against a state with whatever locking the binding needs.
type access func(fn func(*state) error) error

// Store is an in-memory repository.Store. Transactions are serialized and
// applied by swapping in a modified copy of the state on success.
type Store struct {
	mu    sync.Mutex
	state *state
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{state: newState()}
}

// Repos returns repositories that lock the store per call.
func (s *Store) Repos() repository.Repositories {
	return reposFor(func(fn func(*state) error) error {
		s.mu.Lock()
		defer s.mu.Unlock()
		return fn(s.state)
	})
}

// WithinTx runs fn against a private copy of the state and publishes it only
// when fn succeeds. Repositories obtained from Repos must not be used inside fn.
func (s *Store) WithinTx(ctx context.Context, fn func(repository.Repositories) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	working := s.state.clone()
	err := fn(reposFor(func(op func(*state) error) error {
		return op(working)
	}))
	if err != nil {
		return err
	}

	s.state = working
	return nil
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error {
	return nil
}

func reposFor(a access) repository.Repositories {
	return repository.Repositories{
		Products:     &ProductRepository{with: a},
		Categories:   &CategoryRepository{with: a},
		Associations: &AssociationRepository{with: a},
	}
}
