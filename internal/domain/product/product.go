package product

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

const (
	// MaxStock is the largest stock level a product can hold.
	MaxStock = math.MaxInt32
	// PriceScale is the number of decimal places a price may carry.
	PriceScale = 2
)

// ValidPrice reports whether d is a non-negative amount of at most
// PriceScale decimal places.
func ValidPrice(d decimal.Decimal) bool {
	return !d.IsNegative() && d.Equal(d.Truncate(PriceScale))
}

var (
	// ErrNotFound is returned when a requested product does not exist.
	ErrNotFound = errors.New("product not found")
	// ErrDuplicateSlug is returned when another product already uses the slug.
	ErrDuplicateSlug = errors.New("product slug already exists")
	// ErrStockOutOfRange is returned when a stock change would leave the
	// product outside 0..MaxStock.
	ErrStockOutOfRange = errors.New("stock out of range")
)

// Status controls storefront visibility of a product.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// Product represents a catalog item available for purchase.
type Product struct {
	ID           string
	Title        string
	Slug         string
	Description  string
	Images       []string
	Price        decimal.Decimal
	SalePrice    decimal.NullDecimal
	Stock        int
	CategoryID   string
	Tags         []string
	IsFeatured   bool
	Status       Status
	Rating       float64
	TotalReviews int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// SaleActive reports whether the sale price is set and strictly below the
// base price.
func (p *Product) SaleActive() bool {
	return p.SalePrice.Valid && p.SalePrice.Decimal.LessThan(p.Price)
}

// UnitPrice returns the price a customer pays for one unit right now.
func (p *Product) UnitPrice() decimal.Decimal {
	if p.SaleActive() {
		return p.SalePrice.Decimal
	}
	return p.Price
}

// SaleBadge returns a "NN% OFF" label while a sale is active, or "".
func (p *Product) SaleBadge() string {
	if !p.SaleActive() || !p.Price.IsPositive() {
		return ""
	}
	percent := p.Price.Sub(p.SalePrice.Decimal).
		Div(p.Price).
		Mul(decimal.NewFromInt(100)).
		Round(0)
	return fmt.Sprintf("%s%% OFF", percent.String())
}

// AvailabilityLabel summarises stock and popularity for display.
func (p *Product) AvailabilityLabel() string {
	switch {
	case p.Stock <= 0:
		return "Out of Stock"
	case p.Stock < 5:
		return fmt.Sprintf("Only %d Left", p.Stock)
	case p.TotalReviews > 20 && p.Rating >= 4:
		return "Bestseller"
	default:
		return "In Stock"
	}
}

// Filter narrows List results. Zero values mean "no filter".
type Filter struct {
	CategoryID   string
	FeaturedOnly bool
}

// Repository defines persistence operations for the product catalog.
type Repository interface {
	List(ctx context.Context, f Filter) ([]Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)
	GetByIDs(ctx context.Context, ids []string) ([]Product, error)
	Create(ctx context.Context, p *Product) error
	// Update overwrites the descriptive fields of p. Stock and the rating
	// aggregates are left as stored; stock only moves through checkout and
	// Restock. p.Stock is refreshed with the stored level.
	Update(ctx context.Context, p *Product) error
	Delete(ctx context.Context, id string) error
	// Restock adds qty units (a negative qty removes them) and returns the new
	// stock level, or ErrStockOutOfRange.
	Restock(ctx context.Context, id string, qty int) (int, error)
	// UpdateRating overwrites only the aggregate rating fields.
	UpdateRating(ctx context.Context, id string, rating float64, totalReviews int) error
}
