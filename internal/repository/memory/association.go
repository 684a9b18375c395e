package memory

import (
	"context"
	"fmt"
	"slices"
)

// AssociationRepository is the in-memory product_categories table.
type AssociationRepository struct {
	with access
}

func (r *AssociationRepository) CategoryIDs(_ context.Context, productID int64) ([]int64, error) {
	ids := []int64{}
	err := r.with(func(s *state) error {
		for cid := range s.links[productID] {
			ids = append(ids, cid)
		}
		slices.Sort(ids)
		return nil
	})
	return ids, err
}

func (r *AssociationRepository) DeleteExcept(_ context.Context, productID int64, keep []int64) (int64, error) {
	var removed int64
	err := r.with(func(s *state) error {
		for cid := range s.links[productID] {
			if !slices.Contains(keep, cid) {
				delete(s.links[productID], cid)
				removed++
			}
		}
		return nil
	})
	return removed, err
}

func (r *AssociationRepository) Insert(_ context.Context, productID int64, categoryIDs []int64) error {
	if len(categoryIDs) == 0 {
		return nil
	}
	return r.with(func(s *state) error {
		if _, ok := s.products[productID]; !ok {
			return fmt.Errorf("insert product categories: product %d does not exist", productID)
		}
		for _, cid := range categoryIDs {
			if _, ok := s.categories[cid]; !ok {
				return fmt.Errorf("insert product categories: category %d does not exist", cid)
			}
		}

		set, ok := s.links[productID]
		if !ok {
			set = make(map[int64]struct{}, len(categoryIDs))
			s.links[productID] = set
		}
		for _, cid := range categoryIDs {
			set[cid] = struct{}{}
		}
		return nil
	})
}
