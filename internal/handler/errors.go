package handler

import (
	"fmt"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/glowcart/storefront/internal/domain/auth"
	"github.com/glowcart/storefront/internal/domain/category"
	"github.com/glowcart/storefront/internal/domain/coupon"
	"github.com/glowcart/storefront/internal/domain/order"
	"github.com/glowcart/storefront/internal/domain/product"
	"github.com/glowcart/storefront/internal/domain/review"
	"github.com/glowcart/storefront/internal/domain/stats"
	"github.com/glowcart/storefront/internal/domain/support"
)

var (
	errAuthRequired = errors.New("authentication required")
	errForbidden    = errors.New("admin access required")
	errNotOwner     = errors.New("not allowed to access this order")
)

// fail writes the API error response for err. Errors that do not map to a
// client error are logged and reported as 500.
func fail(w http.ResponseWriter, r *http.Request, err error) {
	status, msg, field := classify(err)
	if status == http.StatusInternalServerError {
		zctx.From(r.Context()).Error("Request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		msg = "internal server error"
	}
	writeError(w, status, msg, field)
}

func classify(err error) (status int, msg, field string) {
	var (
		ve         *ValidationError
		qty        *order.InvalidQuantityError
		stock      *order.InsufficientStockError
		conflict   *order.StockConflictError
		missing    *order.ProductNotFoundError
		transition *order.TransitionError
	)
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest, ve.Message, ve.Field
	case errors.As(err, &qty):
		return http.StatusBadRequest, qty.Error(), fmt.Sprintf("items[%d].quantity", qty.Index)
	case errors.Is(err, order.ErrEmptyItems):
		return http.StatusBadRequest, "no order items", "items"
	case errors.As(err, &stock):
		return http.StatusBadRequest, stock.Error(), ""
	case errors.As(err, &conflict):
		return http.StatusBadRequest, conflict.Error(), ""
	case errors.Is(err, review.ErrInvalidRating):
		return http.StatusBadRequest, err.Error(), "rating"
	case errors.Is(err, product.ErrStockOutOfRange):
		return http.StatusBadRequest, product.ErrStockOutOfRange.Error(), "quantity"
	case errors.Is(err, support.ErrInvalidStatus):
		return http.StatusBadRequest, support.ErrInvalidStatus.Error(), "status"
	case errors.Is(err, stats.ErrInvalidFilter):
		return http.StatusBadRequest, stats.ErrInvalidFilter.Error(), "filter"

	case errors.Is(err, auth.ErrUnauthorized), errors.Is(err, errAuthRequired):
		return http.StatusUnauthorized, rootMessage(err, auth.ErrUnauthorized, errAuthRequired), ""
	case errors.Is(err, errForbidden), errors.Is(err, errNotOwner):
		return http.StatusForbidden, rootMessage(err, errForbidden, errNotOwner), ""

	case errors.As(err, &missing):
		return http.StatusNotFound, missing.Error(), ""
	case errors.Is(err, product.ErrNotFound),
		errors.Is(err, category.ErrNotFound),
		errors.Is(err, coupon.ErrNotFound),
		errors.Is(err, order.ErrNotFound),
		errors.Is(err, review.ErrNotFound),
		errors.Is(err, support.ErrNotFound):
		return http.StatusNotFound, rootMessage(err,
			product.ErrNotFound, category.ErrNotFound, coupon.ErrNotFound,
			order.ErrNotFound, review.ErrNotFound, support.ErrNotFound), ""

	case errors.As(err, &transition):
		return http.StatusConflict, transition.Error(), "status"
	case errors.Is(err, product.ErrDuplicateSlug),
		errors.Is(err, category.ErrDuplicate),
		errors.Is(err, coupon.ErrDuplicateCode),
		errors.Is(err, review.ErrDuplicate),
		errors.Is(err, order.ErrStatusChanged),
		errors.Is(err, order.ErrCancelled):
		return http.StatusConflict, rootMessage(err,
			product.ErrDuplicateSlug, category.ErrDuplicate, coupon.ErrDuplicateCode,
			review.ErrDuplicate, order.ErrStatusChanged, order.ErrCancelled), ""
	}
	return http.StatusInternalServerError, "", ""
}

// rootMessage returns the message of the first sentinel err wraps, so
// internal wrapping context does not leak into responses.
func rootMessage(err error, sentinels ...error) string {
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return err.Error()
}
