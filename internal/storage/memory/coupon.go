package memory

import (
	"cmp"
	"context"
	"slices"

	"github.com/glowcart/storefront/internal/domain/coupon"
)

var _ coupon.Repository = (*CouponRepository)(nil)

// CouponRepository implements coupon.Repository.
type CouponRepository struct {
	db *DB
}

func (r *CouponRepository) FindByCode(_ context.Context, code string) (*coupon.Coupon, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	code = coupon.NormalizeCode(code)
	for _, c := range r.db.coupons {
		if c.Code == code {
			return &c, nil
		}
	}
	return nil, coupon.ErrNotFound
}

func (r *CouponRepository) GetByID(_ context.Context, id string) (*coupon.Coupon, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	c, ok := r.db.coupons[id]
	if !ok {
		return nil, coupon.ErrNotFound
	}
	return &c, nil
}

func (r *CouponRepository) List(_ context.Context) ([]coupon.Coupon, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	out := make([]coupon.Coupon, 0, len(r.db.coupons))
	for _, c := range r.db.coupons {
		out = append(out, c)
	}
	slices.SortFunc(out, func(a, b coupon.Coupon) int {
		return cmp.Compare(a.Code, b.Code)
	})
	return out, nil
}

func (r *CouponRepository) Create(_ context.Context, c *coupon.Coupon) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if r.codeTaken(c.Code, c.ID) {
		return coupon.ErrDuplicateCode
	}
	r.db.coupons[c.ID] = *c
	return nil
}

func (r *CouponRepository) Update(_ context.Context, c *coupon.Coupon) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	current, ok := r.db.coupons[c.ID]
	if !ok {
		return coupon.ErrNotFound
	}
	if r.codeTaken(c.Code, c.ID) {
		return coupon.ErrDuplicateCode
	}
	next := *c
	next.CreatedAt = current.CreatedAt
	r.db.coupons[c.ID] = next
	return nil
}

func (r *CouponRepository) Delete(_ context.Context, id string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.coupons[id]; !ok {
		return coupon.ErrNotFound
	}
	delete(r.db.coupons, id)
	return nil
}

func (r *CouponRepository) Upsert(_ context.Context, c *coupon.Coupon) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	for id, existing := range r.db.coupons {
		if existing.Code == c.Code {
			next := *c
			next.ID = id
			next.CreatedAt = existing.CreatedAt
			r.db.coupons[id] = next
			c.ID = id
			return nil
		}
	}
	r.db.coupons[c.ID] = *c
	return nil
}

func (r *CouponRepository) codeTaken(code, exceptID string) bool {
	for id, c := range r.db.coupons {
		if id != exceptID && c.Code == code {
			return true
		}
	}
	return false
}
