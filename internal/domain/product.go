package domain

import "time"

// Product is a catalog item. Slug is derived from Title and is globally
// unique; Version increases by one on every update.
type Product struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Slug        string     `json:"slug"`
	Description string     `json:"description"`
	Version     int64      `json:"version"`
	Categories  []Category `json:"categories"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// CategoryIDs returns the ids of the product's linked categories.
func (p *Product) CategoryIDs() []int64 {
	ids := make([]int64, 0, len(p.Categories))
	for _, c := range p.Categories {
		ids = append(ids, c.ID)
	}
	return ids
}

// CreateProductInput holds the parameters for creating a product.
type CreateProductInput struct {
	Title       string  `json:"title" validate:"required,notblank,max=255"`
	Description string  `json:"description" validate:"max=10000"`
	CategoryIDs []int64 `json:"categoryIds" validate:"omitempty,max=100,dive,gt=0"`
}

// UpdateProductInput holds a partial product update. Nil fields are left
// untouched. A nil CategoryIDs leaves associations unchanged while an empty
// non-nil slice clears them; JSON `[]` decodes to the latter and an absent
// field or `null` to the former.
type UpdateProductInput struct {
	Title       *string `json:"title" validate:"omitempty,notblank,max=255"`
	Description *string `json:"description" validate:"omitempty,max=10000"`
	CategoryIDs []int64 `json:"categoryIds" validate:"omitempty,max=100,dive,gt=0"`
}

// ProductResult is the outcome of a product write. Degraded names the
// derived stores that could not be brought up to date; the write itself
// has committed.
type ProductResult struct {
	Product  *Product
	Degraded []string
}

// DeleteResult is the outcome of a delete.
type DeleteResult struct {
	ID       int64
	Degraded []string
}

// Derived store names reported in Degraded.
const (
	StoreSearchIndex = "search_index"
	StoreCache       = "cache"
)
