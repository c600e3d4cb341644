package coupon

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Validator resolves coupon codes for display and for checkout.
type Validator interface {
	// Validate returns the coupon for code when it is active and unexpired.
	// The minimum order amount is not checked.
	Validate(ctx context.Context, code string) (*Coupon, error)
	// Apply resolves code against subtotal. A coupon that is unknown,
	// inactive, expired or below its minimum yields a zero Discount and no
	// error; only lookup failures are returned.
	Apply(ctx context.Context, code string, subtotal decimal.Decimal) (Discount, error)
}

// RepoValidator implements Validator on top of a Repository.
type RepoValidator struct {
	repo Repository
	now  func() time.Time
}

// NewRepoValidator creates a RepoValidator backed by the given Repository.
func NewRepoValidator(repo Repository) *RepoValidator {
	return &RepoValidator{repo: repo, now: time.Now}
}

// Validate implements Validator.
func (v *RepoValidator) Validate(ctx context.Context, code string) (*Coupon, error) {
	c, err := v.repo.FindByCode(ctx, NormalizeCode(code))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "lookup coupon")
	}
	if !c.Usable(v.now()) {
		return nil, ErrNotFound
	}
	return c, nil
}

// Apply implements Validator.
func (v *RepoValidator) Apply(ctx context.Context, code string, subtotal decimal.Decimal) (Discount, error) {
	code = NormalizeCode(code)
	if code == "" {
		return Discount{Amount: decimal.Zero}, nil
	}

	c, err := v.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Discount{Amount: decimal.Zero}, nil
		}
		return Discount{}, errors.Wrap(err, "lookup coupon")
	}
	if !c.AppliesTo(subtotal, v.now()) {
		return Discount{Amount: decimal.Zero}, nil
	}

	return Discount{Amount: c.Amount(subtotal), Coupon: c}, nil
}
