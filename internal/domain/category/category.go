package category

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

var (
	// ErrNotFound is returned when a requested category does not exist.
	ErrNotFound = errors.New("category not found")
	// ErrDuplicate is returned when the title or slug is already taken.
	ErrDuplicate = errors.New("category title or slug already exists")
)

// Category groups products on the storefront.
type Category struct {
	ID          string
	Title       string
	Slug        string
	Description string
	Image       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Repository defines persistence operations for categories.
type Repository interface {
	List(ctx context.Context) ([]Category, error)
	GetByID(ctx context.Context, id string) (*Category, error)
	Create(ctx context.Context, c *Category) error
	Update(ctx context.Context, c *Category) error
	Delete(ctx context.Context, id string) error
}
