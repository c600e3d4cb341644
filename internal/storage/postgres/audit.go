package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/glowcart/storefront/internal/domain/audit"
)

const (
	insertAuditSQL = `INSERT INTO audit_log (id, actor_id, action, details, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	listAuditSQL = `SELECT id, actor_id, action, details, created_at
		FROM audit_log ORDER BY created_at DESC, id LIMIT $1`
)

var _ audit.Repository = (*AuditRepository)(nil)

// AuditRepository implements audit.Repository backed by PostgreSQL.
type AuditRepository struct {
	pool *pgxpool.Pool
}

// NewAuditRepository returns an AuditRepository that uses the given pool.
func NewAuditRepository(pool *pgxpool.Pool) *AuditRepository {
	return &AuditRepository{pool: pool}
}

func (r *AuditRepository) Create(ctx context.Context, e *audit.Entry) error {
	if _, err := r.pool.Exec(ctx, insertAuditSQL, e.ID, e.ActorID, e.Action, e.Details, e.CreatedAt); err != nil {
		return fmt.Errorf("creating audit entry: %w", err)
	}
	return nil
}

func (r *AuditRepository) List(ctx context.Context, limit int) ([]audit.Entry, error) {
	rows, err := r.pool.Query(ctx, listAuditSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("listing audit entries: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (audit.Entry, error) {
		var e audit.Entry
		err := row.Scan(&e.ID, &e.ActorID, &e.Action, &e.Details, &e.CreatedAt)
		return e, err
	})
}
