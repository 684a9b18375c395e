package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/catalog/internal/domain"
	"github.com/utafrali/catalog/pkg/database"
	apperrors "github.com/utafrali/catalog/pkg/errors"
)

// --- Test Helpers ---

var now = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

var productCols = []string{"id", "title", "slug", "description", "version", "created_at", "updated_at"}

var productCategoryCols = []string{"product_id", "id", "title", "slug", "created_at", "updated_at"}

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

func productRow(id int64, title, slug string) []any {
	return []any{id, title, slug, "", int64(1), now, now}
}

func expectCategories(mock pgxmock.PgxPoolIface, ids []int64, rows ...[]any) {
	r := pgxmock.NewRows(productCategoryCols)
	for _, row := range rows {
		r.AddRow(row...)
	}
	mock.ExpectQuery("SELECT pc.product_id").WithArgs(ids).WillReturnRows(r)
}

// --- Create ---

func TestProductRepository_Create_Success(t *testing.T) {
	mock := newMock(t)
	repo := NewProductRepository(mock)

	mock.ExpectQuery("INSERT INTO products").
		WithArgs("Trail Runner 3000", "trail-runner-3000", "light shoe").
		WillReturnRows(pgxmock.NewRows([]string{"id", "version", "created_at", "updated_at"}).
			AddRow(int64(1), int64(1), now, now))

	p := &domain.Product{Title: "Trail Runner 3000", Slug: "trail-runner-3000", Description: "light shoe"}
	require.NoError(t, repo.Create(context.Background(), p))

	assert.Equal(t, int64(1), p.ID)
	assert.Equal(t, int64(1), p.Version)
	assert.Equal(t, now, p.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_Create_DuplicateSlug(t *testing.T) {
	mock := newMock(t)
	repo := NewProductRepository(mock)

	mock.ExpectQuery("INSERT INTO products").
		WithArgs("Trail Runner", "trail-runner", "").
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "products_slug_key"})

	err := repo.Create(context.Background(), &domain.Product{Title: "Trail Runner", Slug: "trail-runner"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrAlreadyExists))
	assert.NoError(t, mock.ExpectationsWereMet())
}

// --- Get ---

func TestProductRepository_GetByID_WithCategories(t *testing.T) {
	mock := newMock(t)
	repo := NewProductRepository(mock)

	mock.ExpectQuery("SELECT .+ FROM products WHERE id").
		WithArgs(int64(1)).
		WillReturnRows(pgxmock.NewRows(productCols).AddRow(productRow(1, "Trail Runner 3000", "trail-runner-3000")...))
	expectCategories(mock, []int64{1},
		[]any{int64(1), int64(5), "Outdoor Gear", "outdoor-gear", now, now},
	)

	p, err := repo.GetByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "trail-runner-3000", p.Slug)
	require.Len(t, p.Categories, 1)
	assert.Equal(t, "outdoor-gear", p.Categories[0].Slug)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_GetByID_NotFound(t *testing.T) {
	mock := newMock(t)
	repo := NewProductRepository(mock)

	mock.ExpectQuery("SELECT .+ FROM products WHERE id").
		WithArgs(int64(42)).
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.GetByID(context.Background(), 42)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_GetForUpdate(t *testing.T) {
	mock := newMock(t)
	repo := NewProductRepository(mock)

	mock.ExpectQuery("SELECT .+ FROM products WHERE id = \\$1 FOR UPDATE").
		WithArgs(int64(1)).
		WillReturnRows(pgxmock.NewRows(productCols).AddRow(productRow(1, "Trail Runner 3000", "trail-runner-3000")...))
	expectCategories(mock, []int64{1})

	p, err := repo.GetForUpdate(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), p.ID)
	assert.Empty(t, p.Categories)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_GetForUpdate_NotFound(t *testing.T) {
	mock := newMock(t)
	repo := NewProductRepository(mock)

	mock.ExpectQuery("FOR UPDATE").
		WithArgs(int64(9)).
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.GetForUpdate(context.Background(), 9)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_GetBySlug_NotFound(t *testing.T) {
	mock := newMock(t)
	repo := NewProductRepository(mock)

	mock.ExpectQuery("SELECT .+ FROM products WHERE slug").
		WithArgs("nope").
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.GetBySlug(context.Background(), "nope")
	assert.Equal(t, 404, apperrors.HTTPStatus(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_GetByIDs(t *testing.T) {
	mock := newMock(t)
	repo := NewProductRepository(mock)

	mock.ExpectQuery("SELECT .+ FROM products WHERE id = ANY").
		WithArgs([]int64{3, 1}).
		WillReturnRows(pgxmock.NewRows(productCols).
			AddRow(productRow(1, "A", "a")...).
			AddRow(productRow(3, "C", "c")...))
	expectCategories(mock, []int64{1, 3},
		[]any{int64(3), int64(9), "Shoes", "shoes", now, now},
	)

	products, err := repo.GetByIDs(context.Background(), []int64{3, 1})
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Empty(t, products[0].Categories)
	assert.NotNil(t, products[0].Categories)
	assert.Len(t, products[1].Categories, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_GetByIDs_Empty(t *testing.T) {
	mock := newMock(t)
	products, err := NewProductRepository(mock).GetByIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, products)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// --- Listing ---

func TestProductRepository_ListAfter(t *testing.T) {
	mock := newMock(t)
	repo := NewProductRepository(mock)

	mock.ExpectQuery("SELECT .+ FROM products WHERE id > ").
		WithArgs(int64(10), 2).
		WillReturnRows(pgxmock.NewRows(productCols).
			AddRow(productRow(11, "K", "k")...).
			AddRow(productRow(12, "L", "l")...))

	products, err := repo.ListAfter(context.Background(), 10, 2)
	require.NoError(t, err)
	assert.Len(t, products, 2)
	assert.Nil(t, products[0].Categories)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_ListByCategory(t *testing.T) {
	mock := newMock(t)
	repo := NewProductRepository(mock)

	mock.ExpectQuery("SELECT COUNT").
		WithArgs(int64(5)).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(11))
	mock.ExpectQuery("SELECT .+ FROM products p").
		WithArgs(int64(5), 10, 10).
		WillReturnRows(pgxmock.NewRows(productCols).AddRow(productRow(21, "Tent", "tent")...))
	expectCategories(mock, []int64{21},
		[]any{int64(21), int64(5), "Outdoor Gear", "outdoor-gear", now, now},
	)

	products, total, err := repo.ListByCategory(context.Background(), 5, 10, 10)
	require.NoError(t, err)
	assert.Equal(t, 11, total)
	require.Len(t, products, 1)
	assert.Equal(t, int64(21), products[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_SlugsByCategory(t *testing.T) {
	mock := newMock(t)

	mock.ExpectQuery("SELECT p.slug").
		WithArgs(int64(5)).
		WillReturnRows(pgxmock.NewRows([]string{"slug"}).AddRow("tent").AddRow("stove"))

	slugs, err := NewProductRepository(mock).SlugsByCategory(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"tent", "stove"}, slugs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// --- Update / Delete ---

func TestProductRepository_Update_BumpsVersion(t *testing.T) {
	mock := newMock(t)
	repo := NewProductRepository(mock)

	later := now.Add(time.Minute)
	mock.ExpectQuery("UPDATE products").
		WithArgs("Trail Runner v4", "trail-runner-v4", "", int64(1)).
		WillReturnRows(pgxmock.NewRows([]string{"version", "updated_at"}).AddRow(int64(2), later))

	p := &domain.Product{ID: 1, Title: "Trail Runner v4", Slug: "trail-runner-v4", Version: 1}
	require.NoError(t, repo.Update(context.Background(), p))
	assert.Equal(t, int64(2), p.Version)
	assert.Equal(t, later, p.UpdatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_Update_NotFound(t *testing.T) {
	mock := newMock(t)
	repo := NewProductRepository(mock)

	mock.ExpectQuery("UPDATE products").
		WithArgs("X", "x", "", int64(9)).
		WillReturnError(pgx.ErrNoRows)

	err := repo.Update(context.Background(), &domain.Product{ID: 9, Title: "X", Slug: "x"})
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestProductRepository_Update_DuplicateSlug(t *testing.T) {
	mock := newMock(t)
	repo := NewProductRepository(mock)

	mock.ExpectQuery("UPDATE products").
		WithArgs("X", "x", "", int64(9)).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "products_slug_key"})

	err := repo.Update(context.Background(), &domain.Product{ID: 9, Title: "X", Slug: "x"})
	assert.True(t, errors.Is(err, apperrors.ErrAlreadyExists))
}

func TestProductRepository_Delete(t *testing.T) {
	mock := newMock(t)
	repo := NewProductRepository(mock)

	mock.ExpectExec("DELETE FROM products").
		WithArgs(int64(1)).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec("DELETE FROM products").
		WithArgs(int64(1)).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	require.NoError(t, repo.Delete(context.Background(), 1))
	err := repo.Delete(context.Background(), 1)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_Count(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery("SELECT COUNT").WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(3))

	n, err := NewProductRepository(mock).Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}
