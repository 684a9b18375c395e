package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/agnivade/levenshtein"

	"github.com/utafrali/catalog/internal/domain"
	"github.com/utafrali/catalog/internal/engine"
)

// Engine is an in-memory implementation of the SearchEngine interface.
// Title matching is fuzzy per term using Levenshtein distance with the same
// AUTO fuzziness the Elasticsearch engine uses. Thread-safe via sync.RWMutex.
type Engine struct {
	mu     sync.RWMutex
	exists bool
	docs   map[int64]domain.SearchDocument
}

// New creates a new in-memory search engine with no index.
func New() *Engine {
	return &Engine{docs: make(map[int64]domain.SearchDocument)}
}

// EnsureIndex creates the index if absent.
func (e *Engine) EnsureIndex(_ context.Context) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.exists {
		return false, nil
	}
	e.exists = true
	return true, nil
}

// Upsert stores doc unless a newer version is already present. Writing to a
// missing index creates it.
func (e *Engine) Upsert(_ context.Context, doc domain.SearchDocument) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.exists = true
	e.put(doc)
	return nil
}

// Delete removes a document from the index.
func (e *Engine) Delete(_ context.Context, id int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	delete(e.docs, id)
	return nil
}

// BulkUpsert stores many documents under one lock.
func (e *Engine) BulkUpsert(_ context.Context, docs []domain.SearchDocument) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.exists = true
	for _, doc := range docs {
		e.put(doc)
	}
	return nil
}

func (e *Engine) put(doc domain.SearchDocument) {
	if cur, ok := e.docs[doc.ID]; ok && cur.Version > doc.Version {
		return
	}
	e.docs[doc.ID] = doc
}

// PruneBefore removes documents indexed before t.
func (e *Engine) PruneBefore(_ context.Context, t time.Time) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	removed := 0
	for id, doc := range e.docs {
		if doc.IndexedAt.Before(t) {
			delete(e.docs, id)
			removed++
		}
	}
	return removed, nil
}

// Search returns documents with at least one title term within the allowed
// edit distance of a query term. Exact term matches score higher than fuzzy
// ones; ties are broken by id.
func (e *Engine) Search(_ context.Context, text string, limit int) ([]domain.SearchHit, error) {
	queryTerms := terms(text)
	if len(queryTerms) == 0 || limit <= 0 {
		return []domain.SearchHit{}, nil
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	hits := make([]domain.SearchHit, 0)
	for _, doc := range e.docs {
		if score := score(queryTerms, terms(doc.Title)); score > 0 {
			hits = append(hits, domain.SearchHit{ID: doc.ID, Score: score})
		}
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ID < hits[j].ID
	})

	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

// Count returns the number of stored documents.
func (e *Engine) Count(_ context.Context) (int, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.docs), nil
}

// Ping always succeeds.
func (e *Engine) Ping(_ context.Context) error {
	return nil
}

// Get returns a stored document. It is meant for tests.
func (e *Engine) Get(id int64) (domain.SearchDocument, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	doc, ok := e.docs[id]
	return doc, ok
}

func score(query, title []string) float64 {
	var total float64
	for _, q := range query {
		best := 0.0
		maxEdits := engine.Fuzziness(q)
		for _, t := range title {
			d := levenshtein.ComputeDistance(q, t)
			if d > maxEdits {
				continue
			}
			if s := 1.0 / float64(1+d); s > best {
				best = s
			}
		}
		total += best
	}
	return total
}

func terms(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
