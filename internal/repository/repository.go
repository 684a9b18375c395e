package repository

import (
	"context"

	"github.com/utafrali/catalog/internal/domain"
)

// ProductRepository defines the interface for product persistence operations.
// Reads return products with their categories attached.
type ProductRepository interface {
	// Create inserts a product and fills in its ID, Version and timestamps.
	Create(ctx context.Context, product *domain.Product) error

	// GetByID retrieves a product by its identifier.
	GetByID(ctx context.Context, id int64) (*domain.Product, error)

	// GetForUpdate retrieves a product by id and locks its row until the
	// enclosing transaction ends.
	GetForUpdate(ctx context.Context, id int64) (*domain.Product, error)

	// GetBySlug retrieves a product by its slug.
	GetBySlug(ctx context.Context, slug string) (*domain.Product, error)

	// GetByIDs retrieves every existing product in ids, ordered by id.
	// Missing ids are skipped.
	GetByIDs(ctx context.Context, ids []int64) ([]domain.Product, error)

	// List returns all products ordered by id.
	List(ctx context.Context) ([]domain.Product, error)

	// ListAfter returns up to limit products with id > afterID, ordered by
	// id, without categories. It drives batched index rebuilds.
	ListAfter(ctx context.Context, afterID int64, limit int) ([]domain.Product, error)

	// ListByCategory returns a page of the products linked to categoryID,
	// ordered by id, along with the total number of linked products.
	ListByCategory(ctx context.Context, categoryID int64, limit, offset int) ([]domain.Product, int, error)

	// SlugsByCategory returns the slugs of every product linked to categoryID.
	SlugsByCategory(ctx context.Context, categoryID int64) ([]string, error)

	// Count returns the number of products.
	Count(ctx context.Context) (int, error)

	// Update persists title, slug and description, bumps Version and
	// refreshes UpdatedAt on the passed product.
	Update(ctx context.Context, product *domain.Product) error

	// Delete removes a product and its associations.
	Delete(ctx context.Context, id int64) error
}

// CategoryRepository defines the interface for category persistence operations.
type CategoryRepository interface {
	Create(ctx context.Context, category *domain.Category) error
	GetByID(ctx context.Context, id int64) (*domain.Category, error)
	GetBySlug(ctx context.Context, slug string) (*domain.Category, error)
	List(ctx context.Context) ([]domain.Category, error)
	Update(ctx context.Context, category *domain.Category) error

	// Delete removes a category and its associations; linked products stay.
	Delete(ctx context.Context, id int64) error

	// ExistingIDs returns the subset of ids that refer to existing categories.
	ExistingIDs(ctx context.Context, ids []int64) ([]int64, error)
}

// AssociationRepository manages product to category links.
type AssociationRepository interface {
	// CategoryIDs returns the category ids linked to productID.
	CategoryIDs(ctx context.Context, productID int64) ([]int64, error)

	// DeleteExcept removes every link of productID whose category is not in
	// keep and returns the number removed.
	DeleteExcept(ctx context.Context, productID int64, keep []int64) (int64, error)

	// Insert links productID to each of categoryIDs, skipping existing links.
	Insert(ctx context.Context, productID int64, categoryIDs []int64) error
}

// Repositories groups the repositories bound to one connection or transaction.
type Repositories struct {
	Products     ProductRepository
	Categories   CategoryRepository
	Associations AssociationRepository
}

// Store is the system of record. Repos serves reads outside a transaction;
// WithinTx runs fn in a single transaction that commits only if fn returns nil.
type Store interface {
	Repos() Repositories
	WithinTx(ctx context.Context, fn func(Repositories) error) error
	Ping(ctx context.Context) error
}
