package handler

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/glowcart/storefront/internal/domain/auth"
	"github.com/glowcart/storefront/internal/domain/order"
)

func addressFields(a *order.Address) fields {
	return fields{
		"fullName":   str(&a.FullName),
		"phone":      str(&a.Phone),
		"street":     str(&a.Street),
		"city":       str(&a.City),
		"state":      str(&a.State),
		"postalCode": str(&a.PostalCode),
		"country":    str(&a.Country),
	}
}

// decodePlaceOrder maps the checkout payload onto a PlaceOrderRequest.
func decodePlaceOrder(r *http.Request) (order.PlaceOrderRequest, error) {
	var req order.PlaceOrderRequest
	err := decodeBody(r, fields{
		"items": func(d *jx.Decoder) error {
			return d.Arr(func(d *jx.Decoder) error {
				var line order.LineRequest
				prefix := fmt.Sprintf("items[%d]", len(req.Items))
				if err := decodeObject(d, prefix, fields{
					"productId": str(&line.ProductID),
					"quantity":  integer(&line.Quantity),
				}); err != nil {
					return err
				}
				line.ProductID = strings.TrimSpace(line.ProductID)
				if line.ProductID == "" {
					return invalid(prefix+".productId", "is required")
				}
				req.Items = append(req.Items, line)
				return nil
			})
		},
		"couponCode":   str(&req.CouponCode),
		"customerName": str(&req.CustomerName),
		"shippingAddress": func(d *jx.Decoder) error {
			return decodeObject(d, "shippingAddress", addressFields(&req.ShippingAddress))
		},
	})
	return req, err
}

func encodeAddress(e *jx.Encoder, a order.Address) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("fullName", func(e *jx.Encoder) { e.Str(a.FullName) })
		e.Field("phone", func(e *jx.Encoder) { e.Str(a.Phone) })
		e.Field("street", func(e *jx.Encoder) { e.Str(a.Street) })
		e.Field("city", func(e *jx.Encoder) { e.Str(a.City) })
		e.Field("state", func(e *jx.Encoder) { e.Str(a.State) })
		e.Field("postalCode", func(e *jx.Encoder) { e.Str(a.PostalCode) })
		e.Field("country", func(e *jx.Encoder) { e.Str(a.Country) })
	})
}

func encodeSummary(e *jx.Encoder, s order.Summary) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("subtotal", func(e *jx.Encoder) { encodeMoney(e, s.Subtotal) })
		e.Field("discount", func(e *jx.Encoder) { encodeMoney(e, s.Discount) })
		e.Field("total", func(e *jx.Encoder) { encodeMoney(e, s.Total) })
	})
}

func encodeOrder(e *jx.Encoder, o *order.Order) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Str(o.ID) })
		if o.UserID != "" {
			e.Field("userId", func(e *jx.Encoder) { e.Str(o.UserID) })
		}
		e.Field("customerName", func(e *jx.Encoder) { e.Str(o.CustomerName) })
		e.Field("items", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, it := range o.Items {
					e.Obj(func(e *jx.Encoder) {
						e.Field("productId", func(e *jx.Encoder) { e.Str(it.ProductID) })
						e.Field("title", func(e *jx.Encoder) { e.Str(it.Title) })
						e.Field("quantity", func(e *jx.Encoder) { e.Int(it.Quantity) })
						e.Field("price", func(e *jx.Encoder) { encodeMoney(e, it.Price) })
						e.Field("lineTotal", func(e *jx.Encoder) { encodeMoney(e, it.LineTotal()) })
					})
				}
			})
		})
		e.Field("shippingAddress", func(e *jx.Encoder) { encodeAddress(e, o.ShippingAddress) })
		if o.CouponID != "" {
			e.Field("couponId", func(e *jx.Encoder) { e.Str(o.CouponID) })
		}
		e.Field("subtotal", func(e *jx.Encoder) { encodeMoney(e, o.Subtotal) })
		e.Field("discount", func(e *jx.Encoder) { encodeMoney(e, o.Discount) })
		e.Field("totalAmount", func(e *jx.Encoder) { encodeMoney(e, o.TotalAmount) })
		e.Field("paymentStatus", func(e *jx.Encoder) { e.Str(string(o.PaymentStatus)) })
		e.Field("status", func(e *jx.Encoder) { e.Str(string(o.Status)) })
		if o.PaidAt != nil {
			e.Field("paidAt", func(e *jx.Encoder) { encodeTime(e, *o.PaidAt) })
		}
		if o.DeliveredAt != nil {
			e.Field("deliveredAt", func(e *jx.Encoder) { encodeTime(e, *o.DeliveredAt) })
		}
		e.Field("createdAt", func(e *jx.Encoder) { encodeTime(e, o.CreatedAt) })
		e.Field("updatedAt", func(e *jx.Encoder) { encodeTime(e, o.UpdatedAt) })
	})
}

func (h *Handler) placeOrder(w http.ResponseWriter, r *http.Request) {
	req, err := decodePlaceOrder(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	if p := auth.PrincipalFrom(r.Context()); p != nil {
		req.UserID = p.ID
		if req.CustomerName == "" {
			req.CustomerName = p.Name
		}
	}

	res, err := h.orders.PlaceOrder(r.Context(), req)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("order", func(e *jx.Encoder) { encodeOrder(e, res.Order) })
			e.Field("summary", func(e *jx.Encoder) { encodeSummary(e, res.Summary) })
		})
	})
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.List(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, encodeList(orders, encodeOrder))
}

func (h *Handler) myOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.ListByUser(r.Context(), actorID(r))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, encodeList(orders, encodeOrder))
}

// ownedOrder loads the order in the path and checks the caller may see it.
func (h *Handler) ownedOrder(r *http.Request) (*order.Order, error) {
	o, err := h.orders.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		return nil, err
	}
	p := auth.PrincipalFrom(r.Context())
	if !p.IsAdmin() && (p == nil || o.UserID != p.ID) {
		return nil, errNotOwner
	}
	return o, nil
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.ownedOrder(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeOrder(e, o) })
}

func (h *Handler) payOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.ownedOrder(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	if o, err = h.orders.Pay(r.Context(), o.ID, actorID(r)); err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeOrder(e, o) })
}

func (h *Handler) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var status string
	if err := decodeBody(r, fields{"status": str(&status)}); err != nil {
		fail(w, r, err)
		return
	}
	to := order.Status(status)
	if !to.Valid() {
		fail(w, r, invalid("status", "unknown order status"))
		return
	}

	o, err := h.orders.UpdateStatus(r.Context(), r.PathValue("id"), to, actorID(r))
	if err != nil {
		fail(w, r, errors.Wrap(err, "update order status"))
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeOrder(e, o) })
}
