package memory

import (
	"cmp"
	"context"
	"slices"

	"github.com/glowcart/storefront/internal/domain/category"
	"github.com/glowcart/storefront/internal/domain/product"
)

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository.
type ProductRepository struct {
	db *DB
}

func (r *ProductRepository) List(_ context.Context, f product.Filter) ([]product.Product, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	out := make([]product.Product, 0, len(r.db.products))
	for _, p := range r.db.products {
		if f.CategoryID != "" && p.CategoryID != f.CategoryID {
			continue
		}
		if f.FeaturedOnly && !p.IsFeatured {
			continue
		}
		out = append(out, cloneProduct(p))
	}
	slices.SortFunc(out, func(a, b product.Product) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

func (r *ProductRepository) GetByID(_ context.Context, id string) (*product.Product, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	p, ok := r.db.products[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	p = cloneProduct(p)
	return &p, nil
}

func (r *ProductRepository) GetByIDs(_ context.Context, ids []string) ([]product.Product, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	out := make([]product.Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := r.db.products[id]; ok {
			out = append(out, cloneProduct(p))
		}
	}
	return out, nil
}

func (r *ProductRepository) Create(_ context.Context, p *product.Product) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if r.slugTaken(p.Slug, p.ID) {
		return product.ErrDuplicateSlug
	}
	r.db.products[p.ID] = cloneProduct(*p)
	return nil
}

func (r *ProductRepository) Update(_ context.Context, p *product.Product) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	current, ok := r.db.products[p.ID]
	if !ok {
		return product.ErrNotFound
	}
	if r.slugTaken(p.Slug, p.ID) {
		return product.ErrDuplicateSlug
	}
	next := cloneProduct(*p)
	// Stock is owned by checkout and Restock, aggregates by the rating
	// aggregator.
	next.Stock = current.Stock
	next.Rating = current.Rating
	next.TotalReviews = current.TotalReviews
	next.CreatedAt = current.CreatedAt
	r.db.products[p.ID] = next
	p.Stock = current.Stock
	return nil
}

func (r *ProductRepository) Delete(_ context.Context, id string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.products[id]; !ok {
		return product.ErrNotFound
	}
	delete(r.db.products, id)
	return nil
}

func (r *ProductRepository) Restock(_ context.Context, id string, qty int) (int, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	p, ok := r.db.products[id]
	if !ok {
		return 0, product.ErrNotFound
	}
	if qty > product.MaxStock || qty < -product.MaxStock {
		return 0, product.ErrStockOutOfRange
	}
	next := p.Stock + qty
	if next < 0 || next > product.MaxStock {
		return 0, product.ErrStockOutOfRange
	}
	p.Stock = next
	r.db.products[id] = p
	return p.Stock, nil
}

func (r *ProductRepository) UpdateRating(_ context.Context, id string, rating float64, totalReviews int) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	p, ok := r.db.products[id]
	if !ok {
		return product.ErrNotFound
	}
	p.Rating = rating
	p.TotalReviews = totalReviews
	r.db.products[id] = p
	return nil
}

func (r *ProductRepository) slugTaken(slug, exceptID string) bool {
	if slug == "" {
		return false
	}
	for id, p := range r.db.products {
		if id != exceptID && p.Slug == slug {
			return true
		}
	}
	return false
}

var _ category.Repository = (*CategoryRepository)(nil)

// CategoryRepository implements category.Repository.
type CategoryRepository struct {
	db *DB
}

func (r *CategoryRepository) List(_ context.Context) ([]category.Category, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	out := make([]category.Category, 0, len(r.db.categories))
	for _, c := range r.db.categories {
		out = append(out, c)
	}
	slices.SortFunc(out, func(a, b category.Category) int {
		return cmp.Compare(a.Title, b.Title)
	})
	return out, nil
}

func (r *CategoryRepository) GetByID(_ context.Context, id string) (*category.Category, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	c, ok := r.db.categories[id]
	if !ok {
		return nil, category.ErrNotFound
	}
	return &c, nil
}

func (r *CategoryRepository) Create(_ context.Context, c *category.Category) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if r.taken(c) {
		return category.ErrDuplicate
	}
	r.db.categories[c.ID] = *c
	return nil
}

func (r *CategoryRepository) Update(_ context.Context, c *category.Category) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	current, ok := r.db.categories[c.ID]
	if !ok {
		return category.ErrNotFound
	}
	if r.taken(c) {
		return category.ErrDuplicate
	}
	next := *c
	next.CreatedAt = current.CreatedAt
	r.db.categories[c.ID] = next
	return nil
}

func (r *CategoryRepository) Delete(_ context.Context, id string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.categories[id]; !ok {
		return category.ErrNotFound
	}
	delete(r.db.categories, id)
	return nil
}

func (r *CategoryRepository) taken(c *category.Category) bool {
	for id, other := range r.db.categories {
		if id != c.ID && (other.Title == c.Title || other.Slug == c.Slug) {
			return true
		}
	}
	return false
}
