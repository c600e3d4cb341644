package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/glowcart/storefront/internal/domain/coupon"
)

const couponColumns = `id, code, discount_type, discount_value, min_amount, max_discount,
	expires_at, is_active, created_at, updated_at`

const (
	getCouponByCodeSQL = `SELECT ` + couponColumns + ` FROM coupons WHERE code = UPPER($1)`
	getCouponByIDSQL   = `SELECT ` + couponColumns + ` FROM coupons WHERE id = $1`
	listCouponsSQL     = `SELECT ` + couponColumns + ` FROM coupons ORDER BY code`

	insertCouponSQL = `INSERT INTO coupons (` + couponColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	updateCouponSQL = `UPDATE coupons SET code = $2, discount_type = $3, discount_value = $4,
		min_amount = $5, max_discount = $6, expires_at = $7, is_active = $8, updated_at = $9
		WHERE id = $1`

	upsertCouponSQL = `INSERT INTO coupons (` + couponColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (code) DO UPDATE SET
			discount_type = EXCLUDED.discount_type,
			discount_value = EXCLUDED.discount_value,
			min_amount = EXCLUDED.min_amount,
			max_discount = EXCLUDED.max_discount,
			expires_at = EXCLUDED.expires_at,
			is_active = EXCLUDED.is_active,
			updated_at = EXCLUDED.updated_at
		RETURNING id`

	deleteCouponSQL = `DELETE FROM coupons WHERE id = $1`
)

var _ coupon.Repository = (*CouponRepository)(nil)

// CouponRepository implements coupon.Repository backed by PostgreSQL.
type CouponRepository struct {
	pool *pgxpool.Pool
}

// NewCouponRepository returns a CouponRepository that uses the given pool.
func NewCouponRepository(pool *pgxpool.Pool) *CouponRepository {
	return &CouponRepository{pool: pool}
}

// FindByCode looks up a coupon by code regardless of its active flag or
// expiry. Returns coupon.ErrNotFound when no coupon matches.
func (r *CouponRepository) FindByCode(ctx context.Context, code string) (*coupon.Coupon, error) {
	return r.one(ctx, getCouponByCodeSQL, code)
}

// GetByID returns a coupon by id.
func (r *CouponRepository) GetByID(ctx context.Context, id string) (*coupon.Coupon, error) {
	return r.one(ctx, getCouponByIDSQL, id)
}

func (r *CouponRepository) one(ctx context.Context, sql, arg string) (*coupon.Coupon, error) {
	rows, err := r.pool.Query(ctx, sql, arg)
	if err != nil {
		return nil, fmt.Errorf("finding coupon %q: %w", arg, err)
	}
	c, err := pgx.CollectExactlyOneRow(rows, scanCoupon)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, coupon.ErrNotFound
		}
		return nil, fmt.Errorf("finding coupon %q: %w", arg, err)
	}
	return &c, nil
}

// List returns all coupons ordered by code.
func (r *CouponRepository) List(ctx context.Context) ([]coupon.Coupon, error) {
	rows, err := r.pool.Query(ctx, listCouponsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing coupons: %w", err)
	}
	return pgx.CollectRows(rows, scanCoupon)
}

// Create inserts a coupon. Returns coupon.ErrDuplicateCode on code clashes.
func (r *CouponRepository) Create(ctx context.Context, c *coupon.Coupon) error {
	_, err := r.pool.Exec(ctx, insertCouponSQL,
		c.ID, c.Code, string(c.DiscountType), c.DiscountValue, c.MinAmount, c.MaxDiscount,
		c.ExpiresAt, c.IsActive, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return coupon.ErrDuplicateCode
		}
		return fmt.Errorf("creating coupon %q: %w", c.Code, err)
	}
	return nil
}

// Update overwrites a coupon.
func (r *CouponRepository) Update(ctx context.Context, c *coupon.Coupon) error {
	tag, err := r.pool.Exec(ctx, updateCouponSQL,
		c.ID, c.Code, string(c.DiscountType), c.DiscountValue, c.MinAmount, c.MaxDiscount,
		c.ExpiresAt, c.IsActive, c.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return coupon.ErrDuplicateCode
		}
		return fmt.Errorf("updating coupon %q: %w", c.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return coupon.ErrNotFound
	}
	return nil
}

// Delete removes a coupon.
func (r *CouponRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, deleteCouponSQL, id)
	if err != nil {
		return fmt.Errorf("deleting coupon %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return coupon.ErrNotFound
	}
	return nil
}

// Upsert inserts c or replaces the coupon with the same code. c.ID is set to
// the stored id.
func (r *CouponRepository) Upsert(ctx context.Context, c *coupon.Coupon) error {
	err := r.pool.QueryRow(ctx, upsertCouponSQL,
		c.ID, c.Code, string(c.DiscountType), c.DiscountValue, c.MinAmount, c.MaxDiscount,
		c.ExpiresAt, c.IsActive, c.CreatedAt, c.UpdatedAt,
	).Scan(&c.ID)
	if err != nil {
		return fmt.Errorf("upserting coupon %q: %w", c.Code, err)
	}
	return nil
}

func scanCoupon(row pgx.CollectableRow) (coupon.Coupon, error) {
	var (
		c            coupon.Coupon
		discountType string
	)
	err := row.Scan(
		&c.ID, &c.Code, &discountType, &c.DiscountValue, &c.MinAmount, &c.MaxDiscount,
		&c.ExpiresAt, &c.IsActive, &c.CreatedAt, &c.UpdatedAt,
	)
	c.DiscountType = coupon.DiscountType(discountType)
	return c, err
}
