package engine

import (
	"context"
	"time"

	"github.com/utafrali/catalog/internal/domain"
)

// SearchEngine defines the interface for the product search index.
// Implementations may use Elasticsearch or in-memory storage.
//
// Writes are versioned: a document is stored only if its Version is greater
// than or equal to the stored one. Rejected writes are not errors.
type SearchEngine interface {
	// EnsureIndex creates the index with the fixed product mapping if it does
	// not exist and reports whether it was created.
	EnsureIndex(ctx context.Context) (created bool, err error)

	// Upsert adds or replaces a single document.
	Upsert(ctx context.Context, doc domain.SearchDocument) error

	// Delete removes a document. A missing document is not an error.
	Delete(ctx context.Context, id int64) error

	// BulkUpsert adds or replaces many documents in one request.
	BulkUpsert(ctx context.Context, docs []domain.SearchDocument) error

	// PruneBefore removes every document whose IndexedAt precedes t and
	// returns how many were removed.
	PruneBefore(ctx context.Context, t time.Time) (int, error)

	// Search runs a fuzzy match on titles and returns at most limit hits in
	// rank order.
	Search(ctx context.Context, text string, limit int) ([]domain.SearchHit, error)

	// Count returns the number of indexed documents.
	Count(ctx context.Context) (int, error)

	// Ping checks that the engine is reachable.
	Ping(ctx context.Context) error
}

// Fuzziness returns the maximum edit distance accepted for a query term,
// following the AUTO rule: exact for up to two characters, one edit up to
// five, two beyond that.
func Fuzziness(term string) int {
	n := len([]rune(term))
	switch {
	case n <= 2:
		return 0
	case n <= 5:
		return 1
	default:
		return 2
	}
}
