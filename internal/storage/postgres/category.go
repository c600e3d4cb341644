package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/glowcart/storefront/internal/domain/category"
)

const (
	categoryColumns = `id, title, slug, description, image, created_at, updated_at`

	listCategoriesSQL = `SELECT ` + categoryColumns + ` FROM categories ORDER BY title`
	getCategorySQL    = `SELECT ` + categoryColumns + ` FROM categories WHERE id = $1`
	insertCategorySQL = `INSERT INTO categories (` + categoryColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7)`
	updateCategorySQL = `UPDATE categories SET title = $2, slug = $3, description = $4, image = $5, updated_at = $6 WHERE id = $1`
	deleteCategorySQL = `DELETE FROM categories WHERE id = $1`
)

var _ category.Repository = (*CategoryRepository)(nil)

// CategoryRepository implements category.Repository backed by PostgreSQL.
type CategoryRepository struct {
	pool *pgxpool.Pool
}

// NewCategoryRepository returns a CategoryRepository that uses the given pool.
func NewCategoryRepository(pool *pgxpool.Pool) *CategoryRepository {
	return &CategoryRepository{pool: pool}
}

func (r *CategoryRepository) List(ctx context.Context) ([]category.Category, error) {
	rows, err := r.pool.Query(ctx, listCategoriesSQL)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	return pgx.CollectRows(rows, scanCategory)
}

func (r *CategoryRepository) GetByID(ctx context.Context, id string) (*category.Category, error) {
	rows, err := r.pool.Query(ctx, getCategorySQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting category %q: %w", id, err)
	}
	c, err := pgx.CollectExactlyOneRow(rows, scanCategory)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, category.ErrNotFound
		}
		return nil, fmt.Errorf("getting category %q: %w", id, err)
	}
	return &c, nil
}

func (r *CategoryRepository) Create(ctx context.Context, c *category.Category) error {
	_, err := r.pool.Exec(ctx, insertCategorySQL,
		c.ID, c.Title, c.Slug, c.Description, c.Image, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return category.ErrDuplicate
		}
		return fmt.Errorf("creating category %q: %w", c.ID, err)
	}
	return nil
}

func (r *CategoryRepository) Update(ctx context.Context, c *category.Category) error {
	tag, err := r.pool.Exec(ctx, updateCategorySQL,
		c.ID, c.Title, c.Slug, c.Description, c.Image, c.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return category.ErrDuplicate
		}
		return fmt.Errorf("updating category %q: %w", c.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return category.ErrNotFound
	}
	return nil
}

func (r *CategoryRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, deleteCategorySQL, id)
	if err != nil {
		return fmt.Errorf("deleting category %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return category.ErrNotFound
	}
	return nil
}

func scanCategory(row pgx.CollectableRow) (category.Category, error) {
	var c category.Category
	err := row.Scan(&c.ID, &c.Title, &c.Slug, &c.Description, &c.Image, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}
