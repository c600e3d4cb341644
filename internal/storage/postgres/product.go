package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/glowcart/storefront/internal/domain/product"
)

const productColumns = `id, title, slug, description, images, price, sale_price, stock,
	category_id, tags, is_featured, status, rating, total_reviews, created_at, updated_at`

const (
	listProductsSQL = `SELECT ` + productColumns + ` FROM products
		WHERE ($1 = '' OR category_id = $1) AND (NOT $2 OR is_featured)
		ORDER BY created_at DESC, id`

	getProductByIDSQL = `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	getProductsByIDsSQL = `SELECT ` + productColumns + ` FROM products WHERE id = ANY($1)`

	insertProductSQL = `INSERT INTO products (id, title, slug, description, images, price, sale_price,
		stock, category_id, tags, is_featured, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	// No stock column: stock only moves through reserveStockSQL and
	// restockProductSQL.
	updateProductSQL = `UPDATE products SET title = $2, slug = $3, description = $4, images = $5,
		price = $6, sale_price = $7, category_id = $8, tags = $9, is_featured = $10,
		status = $11, updated_at = $12
		WHERE id = $1 RETURNING stock`

	deleteProductSQL = `DELETE FROM products WHERE id = $1`

	restockProductSQL = `UPDATE products SET stock = stock + $2::integer, updated_at = now()
		WHERE id = $1 AND stock::bigint + $2::integer BETWEEN 0 AND $3::bigint RETURNING stock`

	updateRatingSQL = `UPDATE products SET rating = $2, total_reviews = $3 WHERE id = $1`
)

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository backed by PostgreSQL.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// List returns catalog products matching f, newest first.
func (r *ProductRepository) List(ctx context.Context, f product.Filter) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, listProductsSQL, f.CategoryID, f.FeaturedOnly)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// GetByID returns a single product by its identifier.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*product.Product, error) {
	rows, err := r.pool.Query(ctx, getProductByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}
	return &p, nil
}

// GetByIDs returns products matching any of the given IDs.
func (r *ProductRepository) GetByIDs(ctx context.Context, ids []string) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, getProductsByIDsSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("getting products by ids: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// Create inserts a new product.
func (r *ProductRepository) Create(ctx context.Context, p *product.Product) error {
	_, err := r.pool.Exec(ctx, insertProductSQL,
		p.ID, p.Title, p.Slug, p.Description, nonNil(p.Images), p.Price, p.SalePrice,
		p.Stock, nullIfEmpty(p.CategoryID), nonNil(p.Tags), p.IsFeatured, string(p.Status),
		p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return product.ErrDuplicateSlug
		}
		return fmt.Errorf("creating product %q: %w", p.ID, err)
	}
	return nil
}

// Update overwrites the editable fields of a product and refreshes p.Stock
// with the stored level. Rating aggregates are left untouched.
func (r *ProductRepository) Update(ctx context.Context, p *product.Product) error {
	err := r.pool.QueryRow(ctx, updateProductSQL,
		p.ID, p.Title, p.Slug, p.Description, nonNil(p.Images), p.Price, p.SalePrice,
		nullIfEmpty(p.CategoryID), nonNil(p.Tags), p.IsFeatured, string(p.Status),
		p.UpdatedAt,
	).Scan(&p.Stock)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return product.ErrNotFound
	case isUniqueViolation(err):
		return product.ErrDuplicateSlug
	case err != nil:
		return fmt.Errorf("updating product %q: %w", p.ID, err)
	}
	return nil
}

// Delete removes a product and, by cascade, its reviews.
func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, deleteProductSQL, id)
	if err != nil {
		return fmt.Errorf("deleting product %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return product.ErrNotFound
	}
	return nil
}

// Restock adds qty units and returns the new stock level. The range check
// happens in the same statement, so concurrent checkouts are respected.
func (r *ProductRepository) Restock(ctx context.Context, id string, qty int) (int, error) {
	if qty > product.MaxStock || qty < -product.MaxStock {
		return 0, product.ErrStockOutOfRange
	}
	var stock int
	err := r.pool.QueryRow(ctx, restockProductSQL, id, qty, product.MaxStock).Scan(&stock)
	if errors.Is(err, pgx.ErrNoRows) {
		// Either the product is gone or the new level is out of range.
		if _, gerr := r.GetByID(ctx, id); gerr != nil {
			return 0, gerr
		}
		return 0, product.ErrStockOutOfRange
	}
	if err != nil {
		return 0, fmt.Errorf("restocking product %q: %w", id, err)
	}
	return stock, nil
}

// UpdateRating overwrites the aggregate rating fields only.
func (r *ProductRepository) UpdateRating(ctx context.Context, id string, rating float64, totalReviews int) error {
	tag, err := r.pool.Exec(ctx, updateRatingSQL, id, rating, totalReviews)
	if err != nil {
		return fmt.Errorf("updating rating of %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return product.ErrNotFound
	}
	return nil
}

func scanProduct(row pgx.CollectableRow) (product.Product, error) {
	var (
		p          product.Product
		categoryID *string
		status     string
	)
	err := row.Scan(
		&p.ID, &p.Title, &p.Slug, &p.Description, &p.Images, &p.Price, &p.SalePrice, &p.Stock,
		&categoryID, &p.Tags, &p.IsFeatured, &status, &p.Rating, &p.TotalReviews,
		&p.CreatedAt, &p.UpdatedAt,
	)
	p.CategoryID = deref(categoryID)
	p.Status = product.Status(status)
	return p, err
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
