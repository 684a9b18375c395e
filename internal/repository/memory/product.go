package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/utafrali/catalog/internal/domain"
	apperrors "github.com/utafrali/catalog/pkg/errors"
)

// ProductRepository is the in-memory product repository.
type ProductRepository struct {
	with access
}

func (r *ProductRepository) Create(_ context.Context, p *domain.Product) error {
	return r.with(func(s *state) error {
		if s.slugTaken(p.Slug, 0) {
			return apperrors.AlreadyExists("product", "slug", p.Slug)
		}

		s.nextProductID++
		now := time.Now().UTC()
		p.ID = s.nextProductID
		p.Version = 1
		p.CreatedAt, p.UpdatedAt = now, now

		stored := *p
		stored.Categories = nil
		s.products[p.ID] = stored
		return nil
	})
}

func (r *ProductRepository) GetByID(_ context.Context, id int64) (*domain.Product, error) {
	var out *domain.Product
	err := r.with(func(s *state) error {
		p, ok := s.products[id]
		if !ok {
			return apperrors.NotFound("product", fmt.Sprint(id))
		}
		out = s.hydrate(p)
		return nil
	})
	return out, err
}

// GetForUpdate is GetByID; WithinTx already serializes writers.
func (r *ProductRepository) GetForUpdate(ctx context.Context, id int64) (*domain.Product, error) {
	return r.GetByID(ctx, id)
}

func (r *ProductRepository) GetBySlug(_ context.Context, slug string) (*domain.Product, error) {
	var out *domain.Product
	err := r.with(func(s *state) error {
		for _, p := range s.products {
			if p.Slug == slug {
				out = s.hydrate(p)
				return nil
			}
		}
		return apperrors.NotFoundBy("product", "slug", slug)
	})
	return out, err
}

func (r *ProductRepository) GetByIDs(_ context.Context, ids []int64) ([]domain.Product, error) {
	out := []domain.Product{}
	err := r.with(func(s *state) error {
		seen := make(map[int64]struct{}, len(ids))
		for _, id := range ids {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			if p, ok := s.products[id]; ok {
				out = append(out, *s.hydrate(p))
			}
		}
		slices.SortFunc(out, byProductID)
		return nil
	})
	return out, err
}

func (r *ProductRepository) List(_ context.Context) ([]domain.Product, error) {
	out := []domain.Product{}
	err := r.with(func(s *state) error {
		for _, p := range s.sortedProducts() {
			out = append(out, *s.hydrate(p))
		}
		return nil
	})
	return out, err
}

func (r *ProductRepository) ListAfter(_ context.Context, afterID int64, limit int) ([]domain.Product, error) {
	out := []domain.Product{}
	err := r.with(func(s *state) error {
		for _, p := range s.sortedProducts() {
			if len(out) == limit {
				break
			}
			if p.ID > afterID {
				out = append(out, p)
			}
		}
		return nil
	})
	return out, err
}

func (r *ProductRepository) ListByCategory(_ context.Context, categoryID int64, limit, offset int) ([]domain.Product, int, error) {
	out := []domain.Product{}
	total := 0
	err := r.with(func(s *state) error {
		for _, p := range s.sortedProducts() {
			if _, linked := s.links[p.ID][categoryID]; !linked {
				continue
			}
			if total >= offset && len(out) < limit {
				out = append(out, *s.hydrate(p))
			}
			total++
		}
		return nil
	})
	return out, total, err
}

func (r *ProductRepository) SlugsByCategory(_ context.Context, categoryID int64) ([]string, error) {
	slugs := []string{}
	err := r.with(func(s *state) error {
		for _, p := range s.sortedProducts() {
			if _, linked := s.links[p.ID][categoryID]; linked {
				slugs = append(slugs, p.Slug)
			}
		}
		return nil
	})
	return slugs, err
}

func (r *ProductRepository) Count(_ context.Context) (int, error) {
	var n int
	err := r.with(func(s *state) error {
		n = len(s.products)
		return nil
	})
	return n, err
}

func (r *ProductRepository) Update(_ context.Context, p *domain.Product) error {
	return r.with(func(s *state) error {
		stored, ok := s.products[p.ID]
		if !ok {
			return apperrors.NotFound("product", fmt.Sprint(p.ID))
		}
		if s.slugTaken(p.Slug, p.ID) {
			return apperrors.AlreadyExists("product", "slug", p.Slug)
		}

		stored.Title = p.Title
		stored.Slug = p.Slug
		stored.Description = p.Description
		stored.Version++
		stored.UpdatedAt = time.Now().UTC()
		s.products[p.ID] = stored

		p.Version = stored.Version
		p.UpdatedAt = stored.UpdatedAt
		return nil
	})
}

func (r *ProductRepository) Delete(_ context.Context, id int64) error {
	return r.with(func(s *state) error {
		if _, ok := s.products[id]; !ok {
			return apperrors.NotFound("product", fmt.Sprint(id))
		}
		delete(s.products, id)
		delete(s.links, id)
		return nil
	})
}

func (s *state) slugTaken(slug string, exceptID int64) bool {
	for id, p := range s.products {
		if p.Slug == slug && id != exceptID {
			return true
		}
	}
	return false
}

func (s *state) sortedProducts() []domain.Product {
	out := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		out = append(out, p)
	}
	slices.SortFunc(out, byProductID)
	return out
}

// hydrate returns a copy of p with its categories attached in id order.
func (s *state) hydrate(p domain.Product) *domain.Product {
	p.Categories = []domain.Category{}
	for cid := range s.links[p.ID] {
		if c, ok := s.categories[cid]; ok {
			p.Categories = append(p.Categories, c)
		}
	}
	slices.SortFunc(p.Categories, func(a, b domain.Category) int { return cmp.Compare(a.ID, b.ID) })
	return &p
}

func byProductID(a, b domain.Product) int { return cmp.Compare(a.ID, b.ID) }
