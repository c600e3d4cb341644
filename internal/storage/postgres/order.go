package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/glowcart/storefront/internal/domain/order"
)

const orderColumns = `id, user_id, customer_name, items, shipping_address, coupon_id, subtotal,
	discount, total_amount, payment_status, status, paid_at, delivered_at, created_at, updated_at`

const (
	// reserveStockSQL decrements only when enough units remain, so concurrent
	// checkouts can never push stock below zero.
	reserveStockSQL = `UPDATE products SET stock = stock - $2, updated_at = now()
		WHERE id = $1 AND stock >= $2`

	insertOrderSQL = `INSERT INTO orders (` + orderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	getOrderSQL         = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	listOrdersSQL       = `SELECT ` + orderColumns + ` FROM orders ORDER BY created_at DESC, id`
	listOrdersByUserSQL = `SELECT ` + orderColumns + ` FROM orders WHERE user_id = $1 ORDER BY created_at DESC, id`

	markOrderPaidSQL = `UPDATE orders SET payment_status = 'paid', paid_at = $2, updated_at = $2
		WHERE id = $1 RETURNING ` + orderColumns

	updateOrderStatusSQL = `UPDATE orders SET status = $3, updated_at = $4,
		delivered_at = CASE WHEN $3 = 'delivered' THEN $4 ELSE delivered_at END
		WHERE id = $1 AND status = $2 RETURNING ` + orderColumns

	orderExistsSQL = `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

type itemRecord struct {
	ProductID string          `json:"productId"`
	Title     string          `json:"title"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

type addressRecord struct {
	FullName   string `json:"fullName,omitempty"`
	Phone      string `json:"phone,omitempty"`
	Street     string `json:"street,omitempty"`
	City       string `json:"city,omitempty"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postalCode,omitempty"`
	Country    string `json:"country,omitempty"`
}

// Create reserves stock for every line and inserts the order in a single
// transaction. Products are locked in id order so concurrent multi-line
// orders cannot deadlock.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	need := make(map[string]int, len(o.Items))
	titles := make(map[string]string, len(o.Items))
	for i, item := range o.Items {
		if item.Quantity <= 0 || item.Quantity > order.MaxQuantity ||
			need[item.ProductID]+item.Quantity > order.MaxQuantity {
			return &order.InvalidQuantityError{Index: i, ProductID: item.ProductID}
		}
		need[item.ProductID] += item.Quantity
		titles[item.ProductID] = item.Title
	}
	ids := make([]string, 0, len(need))
	for id := range need {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	itemsJSON, addressJSON, err := marshalOrder(o)
	if err != nil {
		return err
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning order transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, id := range ids {
		tag, err := tx.Exec(ctx, reserveStockSQL, id, need[id])
		if err != nil {
			return fmt.Errorf("reserving stock for %q: %w", id, err)
		}
		if tag.RowsAffected() == 0 {
			return &order.StockConflictError{ProductID: id, Title: titles[id]}
		}
	}

	_, err = tx.Exec(ctx, insertOrderSQL,
		o.ID, nullIfEmpty(o.UserID), o.CustomerName, itemsJSON, addressJSON, nullIfEmpty(o.CouponID),
		o.Subtotal, o.Discount, o.TotalAmount, string(o.PaymentStatus), string(o.Status),
		o.PaidAt, o.DeliveredAt, o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing order %q: %w", o.ID, err)
	}
	return nil
}

// GetByID returns a single order.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, getOrderSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}
	return collectOrder(rows, id)
}

// List returns all orders, newest first.
func (r *OrderRepository) List(ctx context.Context) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, listOrdersSQL)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	return pgx.CollectRows(rows, scanOrder)
}

// ListByUser returns the orders of one user, newest first.
func (r *OrderRepository) ListByUser(ctx context.Context, userID string) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, listOrdersByUserSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("listing orders of %q: %w", userID, err)
	}
	return pgx.CollectRows(rows, scanOrder)
}

// MarkPaid sets the payment status to paid.
func (r *OrderRepository) MarkPaid(ctx context.Context, id string, paidAt time.Time) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, markOrderPaidSQL, id, paidAt)
	if err != nil {
		return nil, fmt.Errorf("marking order %q paid: %w", id, err)
	}
	return collectOrder(rows, id)
}

// UpdateStatus moves the order from one status to another. The WHERE clause
// on the current status turns concurrent transitions into ErrStatusChanged.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, from, to order.Status, at time.Time) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, updateOrderStatusSQL, id, string(from), string(to), at)
	if err != nil {
		return nil, fmt.Errorf("updating status of order %q: %w", id, err)
	}
	o, err := collectOrder(rows, id)
	if !errors.Is(err, order.ErrNotFound) {
		return o, err
	}

	var exists bool
	if err := r.pool.QueryRow(ctx, orderExistsSQL, id).Scan(&exists); err != nil {
		return nil, fmt.Errorf("checking order %q: %w", id, err)
	}
	if exists {
		return nil, order.ErrStatusChanged
	}
	return nil, order.ErrNotFound
}

func collectOrder(rows pgx.Rows, id string) (*order.Order, error) {
	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("reading order %q: %w", id, err)
	}
	return &o, nil
}

func marshalOrder(o *order.Order) (items, address []byte, err error) {
	records := make([]itemRecord, len(o.Items))
	for i, item := range o.Items {
		records[i] = itemRecord(item)
	}
	if items, err = json.Marshal(records); err != nil {
		return nil, nil, fmt.Errorf("marshaling order items: %w", err)
	}
	if address, err = json.Marshal(addressRecord(o.ShippingAddress)); err != nil {
		return nil, nil, fmt.Errorf("marshaling shipping address: %w", err)
	}
	return items, address, nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o                     order.Order
		userID, couponID      *string
		itemsJSON, addrJSON   []byte
		paymentStatus, status string
	)
	err := row.Scan(
		&o.ID, &userID, &o.CustomerName, &itemsJSON, &addrJSON, &couponID, &o.Subtotal,
		&o.Discount, &o.TotalAmount, &paymentStatus, &status, &o.PaidAt, &o.DeliveredAt,
		&o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return o, err
	}
	o.UserID = deref(userID)
	o.CouponID = deref(couponID)
	o.PaymentStatus = order.PaymentStatus(paymentStatus)
	o.Status = order.Status(status)

	var records []itemRecord
	if err := json.Unmarshal(itemsJSON, &records); err != nil {
		return o, fmt.Errorf("unmarshaling order items: %w", err)
	}
	o.Items = make([]order.Item, len(records))
	for i, rec := range records {
		o.Items[i] = order.Item(rec)
	}

	var addr addressRecord
	if err := json.Unmarshal(addrJSON, &addr); err != nil {
		return o, fmt.Errorf("unmarshaling shipping address: %w", err)
	}
	o.ShippingAddress = order.Address(addr)
	return o, nil
}
