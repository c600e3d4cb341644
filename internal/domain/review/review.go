package review

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

var (
	// ErrNotFound is returned when a requested review does not exist.
	ErrNotFound = errors.New("review not found")
	// ErrDuplicate is returned when the reviewer already reviewed the product.
	ErrDuplicate = errors.New("you have already reviewed this product")
	// ErrInvalidRating is returned for ratings outside 1..5.
	ErrInvalidRating = errors.New("rating must be between 1 and 5")
)

// Review is a customer's rating of a product.
type Review struct {
	ID         string
	ProductID  string
	UserID     string
	Name       string
	Title      string
	Rating     int
	Comment    string
	Recommend  bool
	AdminReply string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// ValidRating reports whether r is an accepted star rating.
func ValidRating(r int) bool {
	return r >= 1 && r <= 5
}

// Repository defines persistence operations for reviews.
type Repository interface {
	// Create inserts r. Returns ErrDuplicate when the same user already
	// reviewed the product.
	Create(ctx context.Context, r *Review) error
	GetByID(ctx context.Context, id string) (*Review, error)
	List(ctx context.Context) ([]Review, error)
	ListByProduct(ctx context.Context, productID string) ([]Review, error)
	Update(ctx context.Context, r *Review) error
	Delete(ctx context.Context, id string) error
}
