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

// CategoryRepository is the in-memory category repository.
type CategoryRepository struct {
	with access
}

func (r *CategoryRepository) Create(_ context.Context, c *domain.Category) error {
	return r.with(func(s *state) error {
		if err := s.categoryConflict(c, 0); err != nil {
			return err
		}

		s.nextCategoryID++
		now := time.Now().UTC()
		c.ID = s.nextCategoryID
		c.CreatedAt, c.UpdatedAt = now, now
		s.categories[c.ID] = *c
		return nil
	})
}

func (r *CategoryRepository) GetByID(_ context.Context, id int64) (*domain.Category, error) {
	var out *domain.Category
	err := r.with(func(s *state) error {
		c, ok := s.categories[id]
		if !ok {
			return apperrors.NotFound("category", fmt.Sprint(id))
		}
		out = &c
		return nil
	})
	return out, err
}

func (r *CategoryRepository) GetBySlug(_ context.Context, slug string) (*domain.Category, error) {
	var out *domain.Category
	err := r.with(func(s *state) error {
		for _, c := range s.categories {
			if c.Slug == slug {
				out = &c
				return nil
			}
		}
		return apperrors.NotFoundBy("category", "slug", slug)
	})
	return out, err
}

func (r *CategoryRepository) List(_ context.Context) ([]domain.Category, error) {
	out := []domain.Category{}
	err := r.with(func(s *state) error {
		for _, c := range s.categories {
			out = append(out, c)
		}
		slices.SortFunc(out, func(a, b domain.Category) int { return cmp.Compare(a.ID, b.ID) })
		return nil
	})
	return out, err
}

func (r *CategoryRepository) Update(_ context.Context, c *domain.Category) error {
	return r.with(func(s *state) error {
		stored, ok := s.categories[c.ID]
		if !ok {
			return apperrors.NotFound("category", fmt.Sprint(c.ID))
		}
		if err := s.categoryConflict(c, c.ID); err != nil {
			return err
		}

		stored.Title = c.Title
		stored.Slug = c.Slug
		stored.UpdatedAt = time.Now().UTC()
		s.categories[c.ID] = stored
		*c = stored
		return nil
	})
}

func (r *CategoryRepository) Delete(_ context.Context, id int64) error {
	return r.with(func(s *state) error {
		if _, ok := s.categories[id]; !ok {
			return apperrors.NotFound("category", fmt.Sprint(id))
		}
		delete(s.categories, id)
		for _, set := range s.links {
			delete(set, id)
		}
		return nil
	})
}

func (r *CategoryRepository) ExistingIDs(_ context.Context, ids []int64) ([]int64, error) {
	out := []int64{}
	err := r.with(func(s *state) error {
		for _, id := range ids {
			if _, ok := s.categories[id]; ok && !slices.Contains(out, id) {
				out = append(out, id)
			}
		}
		slices.Sort(out)
		return nil
	})
	return out, err
}

func (s *state) categoryConflict(c *domain.Category, exceptID int64) error {
	for id, existing := range s.categories {
		if id == exceptID {
			continue
		}
		if existing.Title == c.Title {
			return apperrors.AlreadyExists("category", "title", c.Title)
		}
		if existing.Slug == c.Slug {
			return apperrors.AlreadyExists("category", "slug", c.Slug)
		}
	}
	return nil
}
