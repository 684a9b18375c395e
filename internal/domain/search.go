package domain

import "time"

// SearchDocument is the search index projection of a Product.
type SearchDocument struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Slug        string    `json:"slug"`
	Description string    `json:"description"`
	Version     int64     `json:"version"`
	IndexedAt   time.Time `json:"indexed_at"`
}

// NewSearchDocument projects p into a search document stamped with at.
func NewSearchDocument(p *Product, at time.Time) SearchDocument {
	return SearchDocument{
		ID:          p.ID,
		Title:       p.Title,
		Slug:        p.Slug,
		Description: p.Description,
		Version:     p.Version,
		IndexedAt:   at.UTC(),
	}
}

// SearchHit is one ranked match returned by a search engine.
type SearchHit struct {
	ID    int64   `json:"id"`
	Score float64 `json:"score"`
}
