package memory

import (
	"cmp"
	"context"
	"slices"
	"time"

	"github.com/glowcart/storefront/internal/domain/order"
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository.
type OrderRepository struct {
	db *DB
}

// Create checks and decrements stock for every line and stores the order
// under the DB write lock.
func (r *OrderRepository) Create(_ context.Context, o *order.Order) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	need := make(map[string]int, len(o.Items))
	for i, item := range o.Items {
		if item.Quantity <= 0 || item.Quantity > order.MaxQuantity ||
			need[item.ProductID]+item.Quantity > order.MaxQuantity {
			return &order.InvalidQuantityError{Index: i, ProductID: item.ProductID}
		}
		need[item.ProductID] += item.Quantity
	}
	for _, item := range o.Items {
		p, ok := r.db.products[item.ProductID]
		if !ok || p.Stock < need[item.ProductID] {
			return &order.StockConflictError{ProductID: item.ProductID, Title: item.Title}
		}
	}
	for id, qty := range need {
		p := r.db.products[id]
		p.Stock -= qty
		r.db.products[id] = p
	}

	r.db.orders[o.ID] = cloneOrder(*o)
	return nil
}

func (r *OrderRepository) GetByID(_ context.Context, id string) (*order.Order, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	o, ok := r.db.orders[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	o = cloneOrder(o)
	return &o, nil
}

func (r *OrderRepository) List(_ context.Context) ([]order.Order, error) {
	return r.list(func(order.Order) bool { return true }), nil
}

func (r *OrderRepository) ListByUser(_ context.Context, userID string) ([]order.Order, error) {
	return r.list(func(o order.Order) bool { return o.UserID == userID }), nil
}

func (r *OrderRepository) list(keep func(order.Order) bool) []order.Order {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	out := make([]order.Order, 0)
	for _, o := range r.db.orders {
		if keep(o) {
			out = append(out, cloneOrder(o))
		}
	}
	slices.SortFunc(out, func(a, b order.Order) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}

func (r *OrderRepository) MarkPaid(_ context.Context, id string, paidAt time.Time) (*order.Order, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	o, ok := r.db.orders[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	o.PaymentStatus = order.PaymentPaid
	o.PaidAt = &paidAt
	o.UpdatedAt = paidAt
	r.db.orders[id] = o

	o = cloneOrder(o)
	return &o, nil
}

func (r *OrderRepository) UpdateStatus(_ context.Context, id string, from, to order.Status, at time.Time) (*order.Order, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	o, ok := r.db.orders[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	if o.Status != from {
		return nil, order.ErrStatusChanged
	}
	o.Status = to
	o.UpdatedAt = at
	if to == order.StatusDelivered {
		o.DeliveredAt = &at
	}
	r.db.orders[id] = o

	o = cloneOrder(o)
	return &o, nil
}
