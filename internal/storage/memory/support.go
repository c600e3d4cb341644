package memory

import (
	"cmp"
	"context"
	"slices"
	"time"

	"github.com/glowcart/storefront/internal/domain/support"
)

var _ support.Repository = (*TicketRepository)(nil)

// TicketRepository implements support.Repository.
type TicketRepository struct {
	db *DB
}

func (r *TicketRepository) List(_ context.Context) ([]support.Ticket, error) {
	return r.filter(func(support.Ticket) bool { return true }), nil
}

func (r *TicketRepository) ListByUser(_ context.Context, userID string) ([]support.Ticket, error) {
	return r.filter(func(t support.Ticket) bool { return t.UserID == userID }), nil
}

func (r *TicketRepository) filter(keep func(support.Ticket) bool) []support.Ticket {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	out := make([]support.Ticket, 0)
	for _, t := range r.db.tickets {
		if keep(t) {
			out = append(out, t)
		}
	}
	slices.SortFunc(out, func(a, b support.Ticket) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}

func (r *TicketRepository) GetByID(_ context.Context, id string) (*support.Ticket, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	t, ok := r.db.tickets[id]
	if !ok {
		return nil, support.ErrNotFound
	}
	return &t, nil
}

func (r *TicketRepository) Create(_ context.Context, t *support.Ticket) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	r.db.tickets[t.ID] = *t
	return nil
}

func (r *TicketRepository) SetStatus(_ context.Context, id string, s support.Status, at time.Time) (*support.Ticket, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	t, ok := r.db.tickets[id]
	if !ok {
		return nil, support.ErrNotFound
	}
	t.Status = s
	t.UpdatedAt = at
	r.db.tickets[id] = t
	return &t, nil
}

func (r *TicketRepository) Delete(_ context.Context, id string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.tickets[id]; !ok {
		return support.ErrNotFound
	}
	delete(r.db.tickets, id)
	return nil
}
