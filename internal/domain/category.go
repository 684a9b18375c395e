package domain

import "time"

// Category groups products. Both Title and Slug are unique.
type Category struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Slug      string    `json:"slug"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CreateCategoryInput holds the parameters for creating a category.
type CreateCategoryInput struct {
	Title string `json:"title" validate:"required,notblank,max=255"`
}

// UpdateCategoryInput holds a partial category update.
type UpdateCategoryInput struct {
	Title *string `json:"title" validate:"omitempty,notblank,max=255"`
}

// CategoryResult is the outcome of a category write.
type CategoryResult struct {
	Category *Category
	Degraded []string
}

// CategoryPage is one page of the products linked to a category.
type CategoryPage struct {
	Category   *Category `json:"category"`
	Products   []Product `json:"products"`
	Total      int       `json:"total"`
	Page       int       `json:"page"`
	PerPage    int       `json:"perPage"`
	TotalPages int       `json:"totalPages"`
	HasNext    bool      `json:"hasNext"`
	HasPrev    bool      `json:"hasPrev"`
}

