package handler

import (
	"fmt"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/glowcart/storefront/internal/domain/coupon"
)

var hundred = decimal.NewFromInt(100)

// couponFields is the only accepted coupon payload shape. Legacy spellings
// such as "value" or "minimumSpend" are rejected as unknown fields.
func couponFields(c *coupon.Coupon) fields {
	return fields{
		"code": str(&c.Code),
		"discountType": func(d *jx.Decoder) error {
			s, err := d.Str()
			c.DiscountType = coupon.DiscountType(s)
			return err
		},
		"discountValue": money(&c.DiscountValue),
		"minAmount":     money(&c.MinAmount),
		"maxDiscount":   optMoney(&c.MaxDiscount),
		"expiresAt":     timestamp(&c.ExpiresAt),
		"isActive":      boolean(&c.IsActive),
	}
}

func validateCoupon(c *coupon.Coupon) error {
	c.Code = coupon.NormalizeCode(c.Code)
	switch {
	case c.Code == "":
		return invalid("code", "is required")
	case !c.DiscountType.Valid():
		return invalid("discountType", "must be percentage or fixed")
	case !c.DiscountValue.IsPositive():
		return invalid("discountValue", "must be greater than 0")
	case c.DiscountType == coupon.DiscountPercentage && c.DiscountValue.GreaterThan(hundred):
		return invalid("discountValue", "percentage must not exceed 100")
	case c.MinAmount.IsNegative():
		return invalid("minAmount", "must not be negative")
	case c.MaxDiscount.Valid && !c.MaxDiscount.Decimal.IsPositive():
		return invalid("maxDiscount", "must be greater than 0")
	case c.ExpiresAt.IsZero():
		return invalid("expiresAt", "is required")
	}
	return nil
}

func encodeCoupon(e *jx.Encoder, c *coupon.Coupon) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Str(c.ID) })
		e.Field("code", func(e *jx.Encoder) { e.Str(c.Code) })
		e.Field("discountType", func(e *jx.Encoder) { e.Str(string(c.DiscountType)) })
		e.Field("discountValue", func(e *jx.Encoder) { encodeMoney(e, c.DiscountValue) })
		e.Field("minAmount", func(e *jx.Encoder) { encodeMoney(e, c.MinAmount) })
		e.Field("maxDiscount", func(e *jx.Encoder) {
			if c.MaxDiscount.Valid {
				encodeMoney(e, c.MaxDiscount.Decimal)
				return
			}
			e.Null()
		})
		e.Field("expiresAt", func(e *jx.Encoder) { encodeTime(e, c.ExpiresAt) })
		e.Field("isActive", func(e *jx.Encoder) { e.Bool(c.IsActive) })
	})
}

func (h *Handler) listCoupons(w http.ResponseWriter, r *http.Request) {
	coupons, err := h.coupons.List(r.Context())
	if err != nil {
		fail(w, r, errors.Wrap(err, "list coupons"))
		return
	}
	writeJSON(w, http.StatusOK, encodeList(coupons, encodeCoupon))
}

func (h *Handler) validateCoupon(w http.ResponseWriter, r *http.Request) {
	c, err := h.validator.Validate(r.Context(), r.PathValue("code"))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeCoupon(e, c) })
}

func (h *Handler) createCoupon(w http.ResponseWriter, r *http.Request) {
	c := coupon.Coupon{IsActive: true}
	if err := decodeBody(r, couponFields(&c)); err != nil {
		fail(w, r, err)
		return
	}
	if err := validateCoupon(&c); err != nil {
		fail(w, r, err)
		return
	}
	now := h.now().UTC()
	c.ID = uuid.NewString()
	c.CreatedAt = now
	c.UpdatedAt = now

	if err := h.coupons.Create(r.Context(), &c); err != nil {
		fail(w, r, errors.Wrap(err, "create coupon"))
		return
	}
	h.audit.Record(r.Context(), actorID(r), "Promotion Creation", fmt.Sprintf("created coupon %s", c.Code))
	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) { encodeCoupon(e, &c) })
}

func (h *Handler) updateCoupon(w http.ResponseWriter, r *http.Request) {
	c, err := h.coupons.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		fail(w, r, err)
		return
	}
	if err := decodeBody(r, couponFields(c)); err != nil {
		fail(w, r, err)
		return
	}
	if err := validateCoupon(c); err != nil {
		fail(w, r, err)
		return
	}
	c.UpdatedAt = h.now().UTC()

	if err := h.coupons.Update(r.Context(), c); err != nil {
		fail(w, r, errors.Wrap(err, "update coupon"))
		return
	}
	h.audit.Record(r.Context(), actorID(r), "Promotion Update", fmt.Sprintf("updated coupon %s", c.Code))
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeCoupon(e, c) })
}

func (h *Handler) deleteCoupon(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.coupons.Delete(r.Context(), id); err != nil {
		fail(w, r, err)
		return
	}
	h.audit.Record(r.Context(), actorID(r), "Promotion Deletion", fmt.Sprintf("deleted coupon %s", id))
	w.WriteHeader(http.StatusNoContent)
}
