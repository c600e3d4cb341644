// Package handler exposes the storefront over HTTP/JSON.
package handler

import (
	"net/http"
	"time"

	"github.com/glowcart/storefront/internal/domain/audit"
	"github.com/glowcart/storefront/internal/domain/auth"
	"github.com/glowcart/storefront/internal/domain/category"
	"github.com/glowcart/storefront/internal/domain/coupon"
	"github.com/glowcart/storefront/internal/domain/order"
	"github.com/glowcart/storefront/internal/domain/product"
	"github.com/glowcart/storefront/internal/domain/review"
	"github.com/glowcart/storefront/internal/domain/stats"
	"github.com/glowcart/storefront/internal/domain/support"
	"github.com/glowcart/storefront/internal/notify"
)

// Deps are the collaborators of Handler. All fields are required.
type Deps struct {
	Products   product.Repository
	Categories category.Repository
	Coupons    coupon.Repository
	Validator  coupon.Validator
	Orders     *order.Service
	Reviews    *review.Service
	Stats      *stats.Service
	Tickets    support.Repository
	Audit      *audit.Recorder
	Auth       *auth.Authenticator
	Hub        *notify.Hub
}

// Handler serves the /api routes.
type Handler struct {
	products   product.Repository
	categories category.Repository
	coupons    coupon.Repository
	validator  coupon.Validator
	orders     *order.Service
	reviews    *review.Service
	stats      *stats.Service
	tickets    support.Repository
	audit      *audit.Recorder
	auth       *auth.Authenticator
	hub        *notify.Hub

	now       func() time.Time
	keepAlive time.Duration
}

// New creates a Handler.
func New(d Deps) *Handler {
	return &Handler{
		products:   d.Products,
		categories: d.Categories,
		coupons:    d.Coupons,
		validator:  d.Validator,
		orders:     d.Orders,
		reviews:    d.Reviews,
		stats:      d.Stats,
		tickets:    d.Tickets,
		audit:      d.Audit,
		auth:       d.Auth,
		hub:        d.Hub,
		now:        time.Now,
		keepAlive:  30 * time.Second,
	}
}

// Routes returns the API mux with authentication applied. Paths are
// registered under /api.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/products", h.listProducts)
	mux.HandleFunc("GET /api/products/{id}", h.getProduct)
	mux.HandleFunc("POST /api/products", h.admin(h.createProduct))
	mux.HandleFunc("PUT /api/products/{id}", h.admin(h.updateProduct))
	mux.HandleFunc("DELETE /api/products/{id}", h.admin(h.deleteProduct))
	mux.HandleFunc("POST /api/products/{id}/restock", h.admin(h.restockProduct))
	mux.HandleFunc("GET /api/products/{id}/reviews", h.listProductReviews)

	mux.HandleFunc("GET /api/categories", h.listCategories)
	mux.HandleFunc("GET /api/categories/{id}", h.getCategory)
	mux.HandleFunc("POST /api/categories", h.admin(h.createCategory))
	mux.HandleFunc("PUT /api/categories/{id}", h.admin(h.updateCategory))
	mux.HandleFunc("DELETE /api/categories/{id}", h.admin(h.deleteCategory))

	mux.HandleFunc("GET /api/coupons", h.admin(h.listCoupons))
	mux.HandleFunc("GET /api/coupons/validate/{code}", h.validateCoupon)
	mux.HandleFunc("POST /api/coupons", h.admin(h.createCoupon))
	mux.HandleFunc("PUT /api/coupons/{id}", h.admin(h.updateCoupon))
	mux.HandleFunc("DELETE /api/coupons/{id}", h.admin(h.deleteCoupon))

	mux.HandleFunc("POST /api/orders", h.placeOrder)
	mux.HandleFunc("GET /api/orders", h.admin(h.listOrders))
	mux.HandleFunc("GET /api/orders/mine", h.user(h.myOrders))
	mux.HandleFunc("GET /api/orders/{id}", h.user(h.getOrder))
	mux.HandleFunc("PUT /api/orders/{id}/pay", h.user(h.payOrder))
	mux.HandleFunc("PUT /api/orders/{id}/status", h.admin(h.updateOrderStatus))

	mux.HandleFunc("POST /api/reviews", h.user(h.createReview))
	mux.HandleFunc("GET /api/reviews", h.admin(h.listReviews))
	mux.HandleFunc("PUT /api/reviews/{id}", h.admin(h.updateReview))
	mux.HandleFunc("DELETE /api/reviews/{id}", h.admin(h.deleteReview))

	mux.HandleFunc("POST /api/support-tickets", h.createTicket)
	mux.HandleFunc("GET /api/support-tickets", h.admin(h.listTickets))
	mux.HandleFunc("GET /api/support-tickets/mine", h.user(h.myTickets))
	mux.HandleFunc("PUT /api/support-tickets/{id}", h.admin(h.updateTicket))
	mux.HandleFunc("DELETE /api/support-tickets/{id}", h.admin(h.deleteTicket))

	mux.HandleFunc("GET /api/audit", h.admin(h.listAudit))
	mux.HandleFunc("GET /api/stats/dashboard", h.admin(h.dashboard))
	mux.HandleFunc("GET /api/stats/progress", h.admin(h.progress))

	mux.HandleFunc("GET /api/notifications/stream", h.user(h.stream))

	mux.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "route not found", "")
	})

	return h.authenticate(mux)
}
