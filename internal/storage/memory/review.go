package memory

import (
	"cmp"
	"context"
	"slices"

	"github.com/glowcart/storefront/internal/domain/audit"
	"github.com/glowcart/storefront/internal/domain/auth"
	"github.com/glowcart/storefront/internal/domain/review"
)

var _ review.Repository = (*ReviewRepository)(nil)

// ReviewRepository implements review.Repository.
type ReviewRepository struct {
	db *DB
}

func (r *ReviewRepository) Create(_ context.Context, rv *review.Review) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if rv.UserID != "" {
		for _, existing := range r.db.reviews {
			if existing.ProductID == rv.ProductID && existing.UserID == rv.UserID {
				return review.ErrDuplicate
			}
		}
	}
	r.db.reviews[rv.ID] = *rv
	return nil
}

func (r *ReviewRepository) GetByID(_ context.Context, id string) (*review.Review, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	rv, ok := r.db.reviews[id]
	if !ok {
		return nil, review.ErrNotFound
	}
	return &rv, nil
}

func (r *ReviewRepository) List(_ context.Context) ([]review.Review, error) {
	return r.list(""), nil
}

func (r *ReviewRepository) ListByProduct(_ context.Context, productID string) ([]review.Review, error) {
	return r.list(productID), nil
}

func (r *ReviewRepository) list(productID string) []review.Review {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	out := make([]review.Review, 0)
	for _, rv := range r.db.reviews {
		if productID == "" || rv.ProductID == productID {
			out = append(out, rv)
		}
	}
	slices.SortFunc(out, func(a, b review.Review) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}

func (r *ReviewRepository) Update(_ context.Context, rv *review.Review) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.reviews[rv.ID]; !ok {
		return review.ErrNotFound
	}
	r.db.reviews[rv.ID] = *rv
	return nil
}

func (r *ReviewRepository) Delete(_ context.Context, id string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.reviews[id]; !ok {
		return review.ErrNotFound
	}
	delete(r.db.reviews, id)
	return nil
}

var _ audit.Repository = (*AuditRepository)(nil)

// AuditRepository implements audit.Repository.
type AuditRepository struct {
	db *DB
}

func (r *AuditRepository) Create(_ context.Context, e *audit.Entry) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	r.db.audit = append(r.db.audit, *e)
	return nil
}

func (r *AuditRepository) List(_ context.Context, limit int) ([]audit.Entry, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	out := make([]audit.Entry, 0, min(limit, len(r.db.audit)))
	for i := len(r.db.audit) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, r.db.audit[i])
	}
	return out, nil
}

var _ auth.Repository = (*APIKeyRepository)(nil)

// APIKeyRepository implements auth.Repository.
type APIKeyRepository struct {
	db *DB
}

func (r *APIKeyRepository) FindByHash(_ context.Context, hash string) (*auth.APIKey, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	for _, k := range r.db.apiKeys {
		if k.KeyHash == hash && k.Active {
			k.Scopes = slices.Clone(k.Scopes)
			return &k, nil
		}
	}
	return nil, auth.ErrNotFound
}

func (r *APIKeyRepository) Create(_ context.Context, k *auth.APIKey) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	r.db.apiKeys[k.ID] = *k
	return nil
}
