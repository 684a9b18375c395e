package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/utafrali/catalog/internal/domain"
	"github.com/utafrali/catalog/pkg/database"
	apperrors "github.com/utafrali/catalog/pkg/errors"
)

// productColumns is the standard SELECT column list for products.
const productColumns = `id, title, slug, description, version, created_at, updated_at`

// ProductRepository implements product persistence operations using PostgreSQL.
type ProductRepository struct {
	pool database.DBTX
}

// NewProductRepository creates a new PostgreSQL-backed product repository.
func NewProductRepository(pool database.DBTX) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// Create inserts a new product into the database.
func (r *ProductRepository) Create(ctx context.Context, p *domain.Product) error {
	query := `
		INSERT INTO products (title, slug, description)
		VALUES ($1, $2, $3)
		RETURNING id, version, created_at, updated_at`

	err := r.pool.QueryRow(ctx, query, p.Title, p.Slug, p.Description).
		Scan(&p.ID, &p.Version, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if _, ok := database.UniqueViolation(err); ok {
			return apperrors.AlreadyExists("product", "slug", p.Slug)
		}
		return fmt.Errorf("insert product: %w", err)
	}

	return nil
}

// GetByID retrieves a product by its identifier.
func (r *ProductRepository) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	query := fmt.Sprintf(`SELECT %s FROM products WHERE id = $1`, productColumns)
	p, err := r.scanProduct(ctx, query, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("product", fmt.Sprint(id))
		}
		return nil, err
	}
	return p, nil
}

// GetForUpdate retrieves a product and takes a row lock on it. Outside a
// transaction the lock is released immediately.
func (r *ProductRepository) GetForUpdate(ctx context.Context, id int64) (*domain.Product, error) {
	query := fmt.Sprintf(`SELECT %s FROM products WHERE id = $1 FOR UPDATE`, productColumns)
	p, err := r.scanProduct(ctx, query, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("product", fmt.Sprint(id))
		}
		return nil, err
	}
	return p, nil
}

// GetBySlug retrieves a product by its slug.
func (r *ProductRepository) GetBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	query := fmt.Sprintf(`SELECT %s FROM products WHERE slug = $1`, productColumns)
	p, err := r.scanProduct(ctx, query, slug)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFoundBy("product", "slug", slug)
		}
		return nil, err
	}
	return p, nil
}

// GetByIDs retrieves the existing products among ids in a single query.
func (r *ProductRepository) GetByIDs(ctx context.Context, ids []int64) (products []domain.Product, err error) {
	if len(ids) == 0 {
		return []domain.Product{}, nil
	}

	query := fmt.Sprintf(`SELECT %s FROM products WHERE id = ANY($1) ORDER BY id`, productColumns)

	ctx, end := database.TraceQuery(ctx, "products.get_by_ids", query)
	defer func() { end(err) }()

	products, err = r.queryProducts(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("get products by ids: %w", err)
	}
	if err = r.attachCategories(ctx, products); err != nil {
		return nil, err
	}
	return products, nil
}

// List returns all products ordered by id.
func (r *ProductRepository) List(ctx context.Context) ([]domain.Product, error) {
	query := fmt.Sprintf(`SELECT %s FROM products ORDER BY id`, productColumns)

	products, err := r.queryProducts(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	if err := r.attachCategories(ctx, products); err != nil {
		return nil, err
	}
	return products, nil
}

// ListAfter returns the next batch of products by id without categories.
func (r *ProductRepository) ListAfter(ctx context.Context, afterID int64, limit int) ([]domain.Product, error) {
	query := fmt.Sprintf(`SELECT %s FROM products WHERE id > $1 ORDER BY id LIMIT $2`, productColumns)

	products, err := r.queryProducts(ctx, query, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("list products after %d: %w", afterID, err)
	}
	return products, nil
}

// ListByCategory returns one page of the products linked to a category.
func (r *ProductRepository) ListByCategory(ctx context.Context, categoryID int64, limit, offset int) (products []domain.Product, total int, err error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM products p
		JOIN product_categories pc ON pc.product_id = p.id
		WHERE pc.category_id = $1
		ORDER BY p.id
		LIMIT $2 OFFSET $3`, prefixed("p", productColumns))

	ctx, end := database.TraceQuery(ctx, "products.list_by_category", query)
	defer func() { end(err) }()

	err = r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM product_categories WHERE category_id = $1`, categoryID,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count products by category: %w", err)
	}

	products, err = r.queryProducts(ctx, query, categoryID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list products by category: %w", err)
	}
	if err = r.attachCategories(ctx, products); err != nil {
		return nil, 0, err
	}

	return products, total, nil
}

// SlugsByCategory returns the slugs of the products linked to a category.
func (r *ProductRepository) SlugsByCategory(ctx context.Context, categoryID int64) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT p.slug
		FROM products p
		JOIN product_categories pc ON pc.product_id = p.id
		WHERE pc.category_id = $1
		ORDER BY p.id`, categoryID)
	if err != nil {
		return nil, fmt.Errorf("list slugs by category: %w", err)
	}
	defer rows.Close()

	slugs := []string{}
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("scan slug: %w", err)
		}
		slugs = append(slugs, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate slug rows: %w", err)
	}
	return slugs, nil
}

// Count returns the number of products.
func (r *ProductRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM products`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}
	return n, nil
}

// Update modifies an existing product and bumps its version.
func (r *ProductRepository) Update(ctx context.Context, p *domain.Product) error {
	query := `
		UPDATE products
		SET title = $1, slug = $2, description = $3,
		    version = version + 1, updated_at = NOW()
		WHERE id = $4
		RETURNING version, updated_at`

	err := r.pool.QueryRow(ctx, query, p.Title, p.Slug, p.Description, p.ID).
		Scan(&p.Version, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NotFound("product", fmt.Sprint(p.ID))
		}
		if _, ok := database.UniqueViolation(err); ok {
			return apperrors.AlreadyExists("product", "slug", p.Slug)
		}
		return fmt.Errorf("update product: %w", err)
	}

	return nil
}

// Delete removes a product. Association rows go with it via ON DELETE CASCADE.
func (r *ProductRepository) Delete(ctx context.Context, id int64) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("product", fmt.Sprint(id))
	}

	return nil
}

// scanProduct executes a query expected to return a single product row and
// loads its categories.
func (r *ProductRepository) scanProduct(ctx context.Context, query string, args ...any) (*domain.Product, error) {
	var p domain.Product

	err := r.pool.QueryRow(ctx, query, args...).Scan(
		&p.ID,
		&p.Title,
		&p.Slug,
		&p.Description,
		&p.Version,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan product: %w", err)
	}

	products := []domain.Product{p}
	if err := r.attachCategories(ctx, products); err != nil {
		return nil, err
	}
	return &products[0], nil
}

func (r *ProductRepository) queryProducts(ctx context.Context, query string, args ...any) ([]domain.Product, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := []domain.Product{}
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(
			&p.ID,
			&p.Title,
			&p.Slug,
			&p.Description,
			&p.Version,
			&p.CreatedAt,
			&p.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan product row: %w", err)
		}
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate product rows: %w", err)
	}
	return products, nil
}

// attachCategories loads the categories of every product in one query.
func (r *ProductRepository) attachCategories(ctx context.Context, products []domain.Product) error {
	if len(products) == 0 {
		return nil
	}

	ids := make([]int64, len(products))
	index := make(map[int64]int, len(products))
	for i := range products {
		ids[i] = products[i].ID
		index[products[i].ID] = i
		products[i].Categories = []domain.Category{}
	}

	query := fmt.Sprintf(`
		SELECT pc.product_id, %s
		FROM product_categories pc
		JOIN categories c ON c.id = pc.category_id
		WHERE pc.product_id = ANY($1)
		ORDER BY pc.product_id, c.id`, prefixed("c", categoryColumns))

	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		return fmt.Errorf("load product categories: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			productID int64
			c         domain.Category
		)
		if err := rows.Scan(&productID, &c.ID, &c.Title, &c.Slug, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return fmt.Errorf("scan product category: %w", err)
		}
		if i, ok := index[productID]; ok {
			products[i].Categories = append(products[i].Categories, c)
		}
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate product category rows: %w", err)
	}
	return nil
}
