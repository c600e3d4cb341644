package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/glowcart/storefront/internal/domain/support"
)

const (
	ticketColumns = `id, user_id, name, email, message, status, created_at, updated_at`

	listTicketsSQL       = `SELECT ` + ticketColumns + ` FROM support_tickets ORDER BY created_at DESC, id`
	listTicketsByUserSQL = `SELECT ` + ticketColumns + ` FROM support_tickets WHERE user_id = $1 ORDER BY created_at DESC, id`
	getTicketSQL         = `SELECT ` + ticketColumns + ` FROM support_tickets WHERE id = $1`
	insertTicketSQL      = `INSERT INTO support_tickets (` + ticketColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	setTicketStatusSQL   = `UPDATE support_tickets SET status = $2, updated_at = $3 WHERE id = $1 RETURNING ` + ticketColumns
	deleteTicketSQL      = `DELETE FROM support_tickets WHERE id = $1`
)

var _ support.Repository = (*TicketRepository)(nil)

// TicketRepository implements support.Repository backed by PostgreSQL.
type TicketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository returns a TicketRepository that uses the given pool.
func NewTicketRepository(pool *pgxpool.Pool) *TicketRepository {
	return &TicketRepository{pool: pool}
}

func (r *TicketRepository) List(ctx context.Context) ([]support.Ticket, error) {
	rows, err := r.pool.Query(ctx, listTicketsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing tickets: %w", err)
	}
	return pgx.CollectRows(rows, scanTicket)
}

func (r *TicketRepository) ListByUser(ctx context.Context, userID string) ([]support.Ticket, error) {
	rows, err := r.pool.Query(ctx, listTicketsByUserSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("listing tickets of %q: %w", userID, err)
	}
	return pgx.CollectRows(rows, scanTicket)
}

func (r *TicketRepository) GetByID(ctx context.Context, id string) (*support.Ticket, error) {
	rows, err := r.pool.Query(ctx, getTicketSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting ticket %q: %w", id, err)
	}
	return oneTicket(rows, id)
}

func (r *TicketRepository) Create(ctx context.Context, t *support.Ticket) error {
	_, err := r.pool.Exec(ctx, insertTicketSQL,
		t.ID, nullIfEmpty(t.UserID), t.Name, t.Email, t.Message, string(t.Status), t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("creating ticket %q: %w", t.ID, err)
	}
	return nil
}

func (r *TicketRepository) SetStatus(ctx context.Context, id string, s support.Status, at time.Time) (*support.Ticket, error) {
	rows, err := r.pool.Query(ctx, setTicketStatusSQL, id, string(s), at)
	if err != nil {
		return nil, fmt.Errorf("updating ticket %q: %w", id, err)
	}
	return oneTicket(rows, id)
}

func (r *TicketRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, deleteTicketSQL, id)
	if err != nil {
		return fmt.Errorf("deleting ticket %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return support.ErrNotFound
	}
	return nil
}

func oneTicket(rows pgx.Rows, id string) (*support.Ticket, error) {
	t, err := pgx.CollectExactlyOneRow(rows, scanTicket)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, support.ErrNotFound
		}
		return nil, fmt.Errorf("reading ticket %q: %w", id, err)
	}
	return &t, nil
}

func scanTicket(row pgx.CollectableRow) (support.Ticket, error) {
	var (
		t      support.Ticket
		userID *string
		status string
	)
	err := row.Scan(&t.ID, &userID, &t.Name, &t.Email, &t.Message, &status, &t.CreatedAt, &t.UpdatedAt)
	t.UserID = deref(userID)
	t.Status = support.Status(status)
	return t, err
}
