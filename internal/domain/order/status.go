package order

import "fmt"

// Status is the fulfillment state of an order.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusConfirmed  Status = "confirmed"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
)

// progression lists the forward path; cancelled sits outside it.
var progression = map[Status]int{
	StatusPending:    0,
	StatusProcessing: 1,
	StatusConfirmed:  2,
	StatusShipped:    3,
	StatusDelivered:  4,
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	_, ok := progression[s]
	return ok || s == StatusCancelled
}

// Terminal reports whether no further transitions are possible from s.
func (s Status) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// CanTransition reports whether an order may move from one status to another.
// Orders only move forward, possibly skipping steps, and may be cancelled
// until they reach a terminal status.
func CanTransition(from, to Status) bool {
	if !from.Valid() || !to.Valid() || from.Terminal() {
		return false
	}
	if to == StatusCancelled {
		return true
	}
	return progression[to] > progression[from]
}

// TransitionError reports a rejected status change.
type TransitionError struct {
	From Status
	To   Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot change order status from %s to %s", e.From, e.To)
}
