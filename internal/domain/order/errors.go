package order

import (
	"fmt"

	"github.com/go-faster/errors"
)

// Sentinel errors for order placement and lifecycle.
var (
	ErrEmptyItems    = errors.New("items required")
	ErrNotFound      = errors.New("order not found")
	ErrStatusChanged = errors.New("order status changed concurrently")
	ErrCancelled     = errors.New("order is cancelled")
)

// ProductNotFoundError indicates a requested product does not exist.
type ProductNotFoundError struct {
	ProductID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %s not found", e.ProductID)
}

// MaxQuantity caps the units of one product in a single order, per line and
// summed over lines.
const MaxQuantity = 10_000

// InvalidQuantityError indicates a line item quantity outside 1..MaxQuantity,
// or lines of one product whose quantities add up past MaxQuantity.
type InvalidQuantityError struct {
	Index     int
	ProductID string
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be between 1 and %d for product %s", MaxQuantity, e.ProductID)
}

// InsufficientStockError is returned before any write when a product has
// fewer units than the cart requests.
type InsufficientStockError struct {
	ProductID string
	Title     string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return stockMessage(e.ProductID, e.Title)
}

// StockConflictError is returned when the conditional stock decrement fails
// at commit time because concurrent orders consumed the remaining units.
type StockConflictError struct {
	ProductID string
	Title     string
}

func (e *StockConflictError) Error() string {
	return stockMessage(e.ProductID, e.Title)
}

func stockMessage(id, title string) string {
	if title == "" {
		title = id
	}
	return fmt.Sprintf("insufficient stock for product %s", title)
}
