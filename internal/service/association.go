package service

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/utafrali/catalog/internal/repository"
	apperrors "github.com/utafrali/catalog/pkg/errors"
)

// AssociationManager replaces a product's category set.
type AssociationManager struct {
	strict bool
	logger *slog.Logger
}

// NewAssociationManager creates an association manager. In strict mode
// unknown category ids fail the write; otherwise they are dropped.
func NewAssociationManager(strict bool, logger *slog.Logger) *AssociationManager {
	return &AssociationManager{strict: strict, logger: logger}
}

// SetCategories makes the categories of productID exactly categoryIDs,
// minus unknown ids in lenient mode. Links already present are left in
// place. It must run inside the transaction that owns r.
func (m *AssociationManager) SetCategories(ctx context.Context, r repository.Repositories, productID int64, categoryIDs []int64) error {
	ids := slices.Clone(categoryIDs)
	slices.Sort(ids)
	ids = slices.Compact(ids)

	existing, err := r.Categories.ExistingIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("resolve categories: %w", err)
	}

	if unknown := missing(ids, existing); len(unknown) > 0 {
		if m.strict {
			return apperrors.UnresolvedAssociation("category", unknown)
		}
		m.logger.WarnContext(ctx, "dropping unknown category ids",
			slog.Int64("product_id", productID),
			slog.Any("category_ids", unknown),
		)
	}

	removed, err := r.Associations.DeleteExcept(ctx, productID, existing)
	if err != nil {
		return fmt.Errorf("remove stale associations: %w", err)
	}
	if err := r.Associations.Insert(ctx, productID, existing); err != nil {
		return fmt.Errorf("insert associations: %w", err)
	}

	m.logger.DebugContext(ctx, "categories replaced",
		slog.Int64("product_id", productID),
		slog.Int("categories", len(existing)),
		slog.Int64("removed", removed),
	)
	return nil
}

// missing returns the members of want absent from have.
func missing(want, have []int64) []int64 {
	var out []int64
	for _, id := range want {
		if !slices.Contains(have, id) {
			out = append(out, id)
		}
	}
	return out
}
