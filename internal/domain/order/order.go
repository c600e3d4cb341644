package order

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatus tracks whether an order has been paid for.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
	PaymentFailed  PaymentStatus = "failed"
)

// Order is a placed customer order. Items, Subtotal and Discount are fixed at
// checkout; only payment and fulfillment fields change afterwards.
type Order struct {
	ID              string
	UserID          string // empty for guest checkout
	CustomerName    string
	Items           []Item
	ShippingAddress Address
	CouponID        string
	Subtotal        decimal.Decimal
	Discount        decimal.Decimal
	TotalAmount     decimal.Decimal
	PaymentStatus   PaymentStatus
	Status          Status
	PaidAt          *time.Time
	DeliveredAt     *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Item is a line of an order with the unit price captured at checkout.
type Item struct {
	ProductID string
	Title     string
	Quantity  int
	Price     decimal.Decimal
}

// LineTotal returns Price multiplied by Quantity.
func (i Item) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Address is the shipping destination of an order.
type Address struct {
	FullName   string
	Phone      string
	Street     string
	City       string
	State      string
	PostalCode string
	Country    string
}

// Summary is the pricing breakdown returned with a placed order.
type Summary struct {
	Subtotal decimal.Decimal
	Discount decimal.Decimal
	Total    decimal.Decimal
}

// Summary returns the stored pricing breakdown of the order.
func (o *Order) Summary() Summary {
	return Summary{
		Subtotal: o.Subtotal,
		Discount: o.Discount,
		Total:    o.TotalAmount,
	}
}

// Repository defines persistence operations for orders.
type Repository interface {
	// Create decrements stock for every item and inserts the order as one
	// all-or-nothing unit. When any product has fewer units left than its
	// line requests, nothing is applied and a *StockConflictError is returned.
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id string) (*Order, error)
	// List returns all orders, newest first.
	List(ctx context.Context) ([]Order, error)
	// ListByUser returns the orders placed by userID, newest first.
	ListByUser(ctx context.Context, userID string) ([]Order, error)
	// MarkPaid sets the payment status to paid and records paidAt.
	MarkPaid(ctx context.Context, id string, paidAt time.Time) (*Order, error)
	// UpdateStatus moves the order from status from to status to. It returns
	// ErrStatusChanged when the stored status no longer equals from.
	UpdateStatus(ctx context.Context, id string, from, to Status, at time.Time) (*Order, error)
}
