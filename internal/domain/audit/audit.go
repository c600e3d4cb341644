// Package audit keeps a trail of who changed what.
package audit

import (
	"context"
	"time"

	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultListLimit bounds List when no limit is given.
const DefaultListLimit = 100

// Entry is a single audit record.
type Entry struct {
	ID        string
	ActorID   string
	Action    string
	Details   string
	CreatedAt time.Time
}

// Repository stores audit entries.
type Repository interface {
	Create(ctx context.Context, e *Entry) error
	// List returns up to limit entries, newest first.
	List(ctx context.Context, limit int) ([]Entry, error)
}

// Recorder writes audit entries without failing the calling operation.
type Recorder struct {
	repo Repository
	now  func() time.Time
}

// NewRecorder creates a Recorder backed by repo.
func NewRecorder(repo Repository) *Recorder {
	return &Recorder{repo: repo, now: time.Now}
}

// Record stores an entry. Errors are logged and dropped.
func (r *Recorder) Record(ctx context.Context, actorID, action, details string) {
	e := &Entry{
		ID:        uuid.NewString(),
		ActorID:   actorID,
		Action:    action,
		Details:   details,
		CreatedAt: r.now().UTC(),
	}
	if err := r.repo.Create(ctx, e); err != nil {
		zctx.From(ctx).Error("Record audit entry",
			zap.String("actor_id", actorID),
			zap.String("action", action),
			zap.Error(err),
		)
	}
}

// List returns recent entries. A non-positive limit means DefaultListLimit.
func (r *Recorder) List(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	return r.repo.List(ctx, limit)
}
