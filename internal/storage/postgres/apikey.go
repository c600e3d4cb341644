package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/glowcart/storefront/internal/domain/auth"
)

const (
	getAPIKeyByHashSQL = `SELECT id, key_hash, name, role, scopes, active, created_at
		FROM api_keys WHERE key_hash = $1 AND active = TRUE`

	insertAPIKeySQL = `INSERT INTO api_keys (id, key_hash, name, role, scopes, active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
)

var _ auth.Repository = (*APIKeyRepository)(nil)

// APIKeyRepository provides API key lookups backed by PostgreSQL.
type APIKeyRepository struct {
	pool *pgxpool.Pool
}

// NewAPIKeyRepository returns an APIKeyRepository that uses the given pool.
func NewAPIKeyRepository(pool *pgxpool.Pool) *APIKeyRepository {
	return &APIKeyRepository{pool: pool}
}

// FindByHash looks up an active API key by its HMAC-SHA256 hash.
func (r *APIKeyRepository) FindByHash(ctx context.Context, hash string) (*auth.APIKey, error) {
	var (
		k    auth.APIKey
		role string
	)
	err := r.pool.QueryRow(ctx, getAPIKeyByHashSQL, hash).Scan(
		&k.ID, &k.KeyHash, &k.Name, &role, &k.Scopes, &k.Active, &k.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, auth.ErrNotFound
		}
		return nil, fmt.Errorf("finding api key by hash: %w", err)
	}
	k.Role = auth.Role(role)
	return &k, nil
}

// Create stores a new API key.
func (r *APIKeyRepository) Create(ctx context.Context, k *auth.APIKey) error {
	_, err := r.pool.Exec(ctx, insertAPIKeySQL,
		k.ID, k.KeyHash, k.Name, string(k.Role), nonNil(k.Scopes), k.Active, k.CreatedAt)
	if err != nil {
		return fmt.Errorf("creating api key %q: %w", k.Name, err)
	}
	return nil
}
