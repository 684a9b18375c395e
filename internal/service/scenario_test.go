package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/catalog/internal/domain"
	apperrors "github.com/utafrali/catalog/pkg/errors"
)

func TestCatalogLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cat, err := f.categories.CreateCategory(ctx, &domain.CreateCategoryInput{Title: "Outdoor Gear"})
	require.NoError(t, err)
	assert.Equal(t, "outdoor-gear", cat.Category.Slug)

	created, err := f.products.CreateProduct(ctx, &domain.CreateProductInput{
		Title:       "Trail Runner 3000",
		CategoryIDs: []int64{cat.Category.ID},
	})
	require.NoError(t, err)
	product := created.Product
	assert.Equal(t, "trail-runner-3000", product.Slug)
	assert.Equal(t, []int64{cat.Category.ID}, f.categoryIDs(t, product.ID))

	page, err := f.categories.GetCategoryWithProducts(ctx, "outdoor-gear", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, "outdoor-gear", page.Category.Slug)
	require.Len(t, page.Products, 1)
	assert.Equal(t, product.ID, page.Products[0].ID)
	assert.Equal(t, 1, page.Total)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 10, page.PerPage)

	// Warm the cache under the old slug.
	_, err = f.products.GetProductBySlug(ctx, "trail-runner-3000")
	require.NoError(t, err)
	require.True(t, f.redis.Exists("product_trail-runner-3000"))

	title := "Trail Runner v4"
	updated, err := f.products.UpdateProduct(ctx, product.ID, &domain.UpdateProductInput{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "trail-runner-v4", updated.Product.Slug)
	assert.False(t, f.redis.Exists("product_trail-runner-3000"))

	hits, err := f.search.Search(ctx, "runer")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "Trail Runner v4", hits[0].Title)

	_, err = f.products.DeleteProduct(ctx, product.ID)
	require.NoError(t, err)

	_, err = f.products.GetProduct(ctx, product.ID)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))

	hits, err = f.search.Search(ctx, "runer")
	require.NoError(t, err)
	assert.Empty(t, hits)

	n, err := f.engine.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}
