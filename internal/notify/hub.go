package notify

import (
	"context"
	"sync"

	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const subscriptionBuffer = 16

// Subscriber identifies who is listening on a subscription.
type Subscriber struct {
	UserID string
	Admin  bool
}

// Subscription is a live registration in a Hub. Events arrive on C until the
// subscription is removed, at which point C is closed.
type Subscription struct {
	ID         string
	Subscriber Subscriber
	C          <-chan Event

	ch      chan Event
	onClose func()
}

// Hub is the process-wide registry of connected event subscribers.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]*Subscription
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[string]*Subscription)}
}

// Subscribe registers s. onClose, when non-nil, runs once after the
// subscription is removed.
func (h *Hub) Subscribe(s Subscriber, onClose func()) *Subscription {
	ch := make(chan Event, subscriptionBuffer)
	sub := &Subscription{
		ID:         uuid.NewString(),
		Subscriber: s,
		C:          ch,
		ch:         ch,
		onClose:    onClose,
	}

	h.mu.Lock()
	h.subs[sub.ID] = sub
	h.mu.Unlock()
	return sub
}

// Unsubscribe removes the subscription with the given id. Unknown ids are
// ignored.
func (h *Hub) Unsubscribe(id string) {
	h.mu.Lock()
	sub, ok := h.subs[id]
	if ok {
		delete(h.subs, id)
		close(sub.ch)
	}
	h.mu.Unlock()

	if ok && sub.onClose != nil {
		sub.onClose()
	}
}

// Close removes every subscription, ending all open streams.
func (h *Hub) Close() {
	h.mu.RLock()
	ids := make([]string, 0, len(h.subs))
	for id := range h.subs {
		ids = append(ids, id)
	}
	h.mu.RUnlock()

	for _, id := range ids {
		h.Unsubscribe(id)
	}
}

// Len returns the number of active subscriptions.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Publish delivers e to every matching subscriber. Slow subscribers whose
// buffer is full miss the event.
func (h *Hub) Publish(ctx context.Context, e Event) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, sub := range h.subs {
		if !matches(sub.Subscriber, e) {
			continue
		}
		select {
		case sub.ch <- e:
		default:
			zctx.From(ctx).Warn("Dropping event for slow subscriber",
				zap.String("subscription", sub.ID),
				zap.String("type", e.Type),
			)
		}
	}
	return nil
}

func matches(s Subscriber, e Event) bool {
	if e.ForAdmins() {
		return s.Admin
	}
	return e.UserID != "" && e.UserID == s.UserID
}
