package postgres

import (
	"context"
	"fmt"

	"github.com/utafrali/catalog/pkg/database"
)

// AssociationRepository manages rows of the product_categories join table.
type AssociationRepository struct {
	pool database.DBTX
}

// NewAssociationRepository creates a new PostgreSQL-backed association repository.
func NewAssociationRepository(pool database.DBTX) *AssociationRepository {
	return &AssociationRepository{pool: pool}
}

// CategoryIDs returns the category ids linked to a product.
func (r *AssociationRepository) CategoryIDs(ctx context.Context, productID int64) ([]int64, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT category_id FROM product_categories WHERE product_id = $1 ORDER BY category_id`, productID)
	if err != nil {
		return nil, fmt.Errorf("list product categories: %w", err)
	}
	defer rows.Close()

	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan category id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate product category rows: %w", err)
	}
	return ids, nil
}

// DeleteExcept removes the product's links to categories outside keep. An
// empty keep removes every link.
func (r *AssociationRepository) DeleteExcept(ctx context.Context, productID int64, keep []int64) (int64, error) {
	if keep == nil {
		keep = []int64{}
	}

	ct, err := r.pool.Exec(ctx, `
		DELETE FROM product_categories
		WHERE product_id = $1 AND NOT (category_id = ANY($2))`, productID, keep)
	if err != nil {
		return 0, fmt.Errorf("delete product categories: %w", err)
	}
	return ct.RowsAffected(), nil
}

// Insert links a product to categories, ignoring links that already exist.
func (r *AssociationRepository) Insert(ctx context.Context, productID int64, categoryIDs []int64) error {
	if len(categoryIDs) == 0 {
		return nil
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO product_categories (product_id, category_id)
		SELECT $1, unnest($2::bigint[])
		ON CONFLICT DO NOTHING`, productID, categoryIDs)
	if err != nil {
		return fmt.Errorf("insert product categories: %w", err)
	}
	return nil
}
