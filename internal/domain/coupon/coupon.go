package coupon

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// DiscountType enumerates the supported coupon discount strategies.
type DiscountType string

const (
	// DiscountPercentage takes a percentage of the subtotal, optionally capped
	// by MaxDiscount.
	DiscountPercentage DiscountType = "percentage"
	// DiscountFixed takes a flat amount. It is not capped at the subtotal; the
	// order total is floored at zero instead.
	DiscountFixed DiscountType = "fixed"
)

// Valid reports whether t is a known discount type.
func (t DiscountType) Valid() bool {
	return t == DiscountPercentage || t == DiscountFixed
}

var (
	// ErrNotFound is returned when no coupon matches a code or id, and by
	// validation when the matching coupon is inactive or expired.
	ErrNotFound = errors.New("invalid or expired coupon code")
	// ErrDuplicateCode is returned when another coupon already uses the code.
	ErrDuplicateCode = errors.New("coupon code already exists")
)

// Coupon is a promotion code redeemable at checkout.
type Coupon struct {
	ID            string
	Code          string
	DiscountType  DiscountType
	DiscountValue decimal.Decimal
	MinAmount     decimal.Decimal
	// MaxDiscount caps percentage discounts. Ignored for fixed coupons.
	MaxDiscount decimal.NullDecimal
	ExpiresAt   time.Time
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NormalizeCode returns the canonical stored form of a coupon code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Usable reports whether the coupon is active and not yet expired at now.
func (c *Coupon) Usable(now time.Time) bool {
	return c.IsActive && now.Before(c.ExpiresAt)
}

// AppliesTo reports whether the coupon can be redeemed against subtotal at now.
func (c *Coupon) AppliesTo(subtotal decimal.Decimal, now time.Time) bool {
	return c.Usable(now) && subtotal.GreaterThanOrEqual(c.MinAmount)
}

// Discount holds the computed discount amount together with the coupon that
// produced it. A zero Discount means no coupon was applied.
type Discount struct {
	Amount decimal.Decimal
	Coupon *Coupon
}

// Applied reports whether a coupon contributed to the discount.
func (d Discount) Applied() bool {
	return d.Coupon != nil
}

// Repository provides lookup and mutation of coupons.
type Repository interface {
	// FindByCode looks up a coupon by its normalized code regardless of its
	// active flag or expiry. Returns ErrNotFound when no coupon matches.
	FindByCode(ctx context.Context, code string) (*Coupon, error)
	GetByID(ctx context.Context, id string) (*Coupon, error)
	List(ctx context.Context) ([]Coupon, error)
	Create(ctx context.Context, c *Coupon) error
	Update(ctx context.Context, c *Coupon) error
	Delete(ctx context.Context, id string) error
	// Upsert inserts or replaces a coupon keyed by its code.
	Upsert(ctx context.Context, c *Coupon) error
}
