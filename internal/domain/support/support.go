// Package support holds customer support tickets.
package support

import (
	"context"
	"net/mail"
	"time"

	"github.com/go-faster/errors"
)

// Status is the handling state of a ticket.
type Status string

const (
	StatusOpen       Status = "open"
	StatusInProgress Status = "in-progress"
	StatusResolved   Status = "resolved"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusResolved:
		return true
	}
	return false
}

var (
	// ErrNotFound is returned when a requested ticket does not exist.
	ErrNotFound = errors.New("support ticket not found")
	// ErrInvalidStatus is returned for a status outside open, in-progress
	// and resolved.
	ErrInvalidStatus = errors.New("status must be open, in-progress or resolved")
)

// Ticket is a message sent to the store's support staff. UserID is empty for
// guest submissions.
type Ticket struct {
	ID        string
	UserID    string
	Name      string
	Email     string
	Message   string
	Status    Status
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ValidEmail reports whether s is a bare address such as "a@b.co".
func ValidEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s && addr.Name == ""
}

// Repository defines persistence operations for tickets. Lists are newest
// first.
type Repository interface {
	List(ctx context.Context) ([]Ticket, error)
	ListByUser(ctx context.Context, userID string) ([]Ticket, error)
	GetByID(ctx context.Context, id string) (*Ticket, error)
	Create(ctx context.Context, t *Ticket) error
	// SetStatus changes the status of a ticket and returns the stored ticket.
	SetStatus(ctx context.Context, id string, s Status, at time.Time) (*Ticket, error)
	Delete(ctx context.Context, id string) error
}
