package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/glowcart/storefront/internal/domain/review"
)

const reviewColumns = `id, product_id, user_id, name, title, rating, comment, recommend,
	admin_reply, created_at, updated_at`

const (
	insertReviewSQL = `INSERT INTO reviews (` + reviewColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	getReviewSQL            = `SELECT ` + reviewColumns + ` FROM reviews WHERE id = $1`
	listReviewsSQL          = `SELECT ` + reviewColumns + ` FROM reviews ORDER BY created_at DESC, id`
	listReviewsByProductSQL = `SELECT ` + reviewColumns + ` FROM reviews WHERE product_id = $1 ORDER BY created_at DESC, id`
	deleteReviewSQL         = `DELETE FROM reviews WHERE id = $1`

	updateReviewSQL = `UPDATE reviews SET title = $2, rating = $3, comment = $4, recommend = $5,
		admin_reply = $6, updated_at = $7
		WHERE id = $1`
)

var _ review.Repository = (*ReviewRepository)(nil)

// ReviewRepository implements review.Repository backed by PostgreSQL.
type ReviewRepository struct {
	pool *pgxpool.Pool
}

// NewReviewRepository returns a ReviewRepository that uses the given pool.
func NewReviewRepository(pool *pgxpool.Pool) *ReviewRepository {
	return &ReviewRepository{pool: pool}
}

// Create inserts a review. The (product_id, user_id) unique constraint
// enforces one review per reviewer and product.
func (r *ReviewRepository) Create(ctx context.Context, rv *review.Review) error {
	_, err := r.pool.Exec(ctx, insertReviewSQL,
		rv.ID, rv.ProductID, nullIfEmpty(rv.UserID), rv.Name, rv.Title, rv.Rating, rv.Comment,
		rv.Recommend, rv.AdminReply, rv.CreatedAt, rv.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return review.ErrDuplicate
		}
		return fmt.Errorf("creating review: %w", err)
	}
	return nil
}

func (r *ReviewRepository) GetByID(ctx context.Context, id string) (*review.Review, error) {
	rows, err := r.pool.Query(ctx, getReviewSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting review %q: %w", id, err)
	}
	rv, err := pgx.CollectExactlyOneRow(rows, scanReview)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, review.ErrNotFound
		}
		return nil, fmt.Errorf("getting review %q: %w", id, err)
	}
	return &rv, nil
}

func (r *ReviewRepository) List(ctx context.Context) ([]review.Review, error) {
	rows, err := r.pool.Query(ctx, listReviewsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing reviews: %w", err)
	}
	return pgx.CollectRows(rows, scanReview)
}

func (r *ReviewRepository) ListByProduct(ctx context.Context, productID string) ([]review.Review, error) {
	rows, err := r.pool.Query(ctx, listReviewsByProductSQL, productID)
	if err != nil {
		return nil, fmt.Errorf("listing reviews of %q: %w", productID, err)
	}
	return pgx.CollectRows(rows, scanReview)
}

func (r *ReviewRepository) Update(ctx context.Context, rv *review.Review) error {
	tag, err := r.pool.Exec(ctx, updateReviewSQL,
		rv.ID, rv.Title, rv.Rating, rv.Comment, rv.Recommend, rv.AdminReply, rv.UpdatedAt)
	if err != nil {
		return fmt.Errorf("updating review %q: %w", rv.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return review.ErrNotFound
	}
	return nil
}

func (r *ReviewRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, deleteReviewSQL, id)
	if err != nil {
		return fmt.Errorf("deleting review %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return review.ErrNotFound
	}
	return nil
}

func scanReview(row pgx.CollectableRow) (review.Review, error) {
	var (
		rv     review.Review
		userID *string
	)
	err := row.Scan(
		&rv.ID, &rv.ProductID, &userID, &rv.Name, &rv.Title, &rv.Rating, &rv.Comment,
		&rv.Recommend, &rv.AdminReply, &rv.CreatedAt, &rv.UpdatedAt,
	)
	rv.UserID = deref(userID)
	return rv, err
}
