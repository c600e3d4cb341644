// Package memory implements every repository in process memory. All
// repositories of one DB share a single lock, so multi-entity writes such as
// order creation are atomic.
package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/glowcart/storefront/internal/domain/audit"
	"github.com/glowcart/storefront/internal/domain/auth"
	"github.com/glowcart/storefront/internal/domain/category"
	"github.com/glowcart/storefront/internal/domain/coupon"
	"github.com/glowcart/storefront/internal/domain/order"
	"github.com/glowcart/storefront/internal/domain/product"
	"github.com/glowcart/storefront/internal/domain/review"
	"github.com/glowcart/storefront/internal/domain/support"
)

// DB holds all entities.
type DB struct {
	mu         sync.RWMutex
	products   map[string]product.Product
	categories map[string]category.Category
	coupons    map[string]coupon.Coupon
	orders     map[string]order.Order
	reviews    map[string]review.Review
	tickets    map[string]support.Ticket
	audit      []audit.Entry
	apiKeys    map[string]auth.APIKey
}

// New creates an empty DB.
func New() *DB {
	return &DB{
		products:   make(map[string]product.Product),
		categories: make(map[string]category.Category),
		coupons:    make(map[string]coupon.Coupon),
		orders:     make(map[string]order.Order),
		reviews:    make(map[string]review.Review),
		tickets:    make(map[string]support.Ticket),
		apiKeys:    make(map[string]auth.APIKey),
	}
}

// Ping always succeeds.
func (db *DB) Ping(context.Context) error { return nil }

func (db *DB) Products() *ProductRepository   { return &ProductRepository{db: db} }
func (db *DB) Categories() *CategoryRepository { return &CategoryRepository{db: db} }
func (db *DB) Coupons() *CouponRepository     { return &CouponRepository{db: db} }
func (db *DB) Orders() *OrderRepository       { return &OrderRepository{db: db} }
func (db *DB) Reviews() *ReviewRepository     { return &ReviewRepository{db: db} }
func (db *DB) Tickets() *TicketRepository     { return &TicketRepository{db: db} }
func (db *DB) Audit() *AuditRepository        { return &AuditRepository{db: db} }
func (db *DB) APIKeys() *APIKeyRepository     { return &APIKeyRepository{db: db} }

func cloneProduct(p product.Product) product.Product {
	p.Images = slices.Clone(p.Images)
	p.Tags = slices.Clone(p.Tags)
	return p
}

func cloneOrder(o order.Order) order.Order {
	o.Items = slices.Clone(o.Items)
	if o.PaidAt != nil {
		t := *o.PaidAt
		o.PaidAt = &t
	}
	if o.DeliveredAt != nil {
		t := *o.DeliveredAt
		o.DeliveredAt = &t
	}
	return o
}
