package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestProduct_CategoryIDs(t *testing.T) {
	p := Product{Categories: []Category{{ID: 3}, {ID: 1}}}
	assert.Equal(t, []int64{3, 1}, p.CategoryIDs())

	empty := Product{}
	assert.NotNil(t, empty.CategoryIDs())
	assert.Empty(t, empty.CategoryIDs())
}

func TestNewSearchDocument(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.FixedZone("TRT", 3*3600))
	p := &Product{ID: 7, Title: "Trail Runner 3000", Slug: "trail-runner-3000", Description: "light", Version: 4}

	doc := NewSearchDocument(p, at)

	assert.Equal(t, int64(7), doc.ID)
	assert.Equal(t, "trail-runner-3000", doc.Slug)
	assert.Equal(t, int64(4), doc.Version)
	assert.Equal(t, time.UTC, doc.IndexedAt.Location())
	assert.True(t, doc.IndexedAt.Equal(at))
}
