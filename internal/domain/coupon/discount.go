package coupon

import (
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Amount computes the discount this coupon grants on subtotal. It does not
// check eligibility; see AppliesTo.
func (c *Coupon) Amount(subtotal decimal.Decimal) decimal.Decimal {
	switch c.DiscountType {
	case DiscountPercentage:
		return percentageOf(subtotal, c.DiscountValue, c.MaxDiscount)
	case DiscountFixed:
		return floorAtZero(c.DiscountValue).Round(2)
	default:
		return decimal.Zero
	}
}

func percentageOf(subtotal, percent decimal.Decimal, maxDiscount decimal.NullDecimal) decimal.Decimal {
	amount := subtotal.Mul(percent).Div(hundred)
	if maxDiscount.Valid && amount.GreaterThan(maxDiscount.Decimal) {
		amount = maxDiscount.Decimal
	}
	return floorAtZero(amount).Round(2)
}

// Total returns subtotal minus discount, floored at zero.
func Total(subtotal, discount decimal.Decimal) decimal.Decimal {
	return floorAtZero(subtotal.Sub(discount)).Round(2)
}

// floorAtZero clamps negative values to zero.
func floorAtZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
