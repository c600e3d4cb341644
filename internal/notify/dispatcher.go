package notify

import (
	"context"
	"time"

	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Publisher delivers an event to one destination.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Dispatcher fans events out to every configured Publisher. Delivery is best
// effort: failures are logged and never returned to the caller.
type Dispatcher struct {
	publishers []Publisher
	now        func() time.Time
}

// NewDispatcher creates a Dispatcher over the given publishers.
func NewDispatcher(publishers ...Publisher) *Dispatcher {
	return &Dispatcher{publishers: publishers, now: time.Now}
}

// Dispatch stamps e with an id and creation time if missing and hands it to
// every publisher.
func (d *Dispatcher) Dispatch(ctx context.Context, e Event) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = d.now().UTC()
	}
	for _, p := range d.publishers {
		if err := p.Publish(ctx, e); err != nil {
			zctx.From(ctx).Error("Publish event",
				zap.String("type", e.Type),
				zap.String("event_id", e.ID),
				zap.Error(err),
			)
		}
	}
}
