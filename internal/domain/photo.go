// Package domain photo.go contains the photo lifecycle state machine.
package domain

import "time"

// State is the lifecycle position of a stored photo. Transitions are
// strictly monotonic: Captured -> Delivered -> Deleted. Delivered is an
// audit marker set by the first successful remote fetch; only explicit
// consumption (or retake/expiry) reaches Deleted.
type State string

const (
	StateCaptured  State = "captured"
	StateDelivered State = "delivered"
	StateDeleted   State = "deleted"
)

// rank orders states along the lifecycle. Unknown states rank below
// Captured so they can never be transitioned into.
func (s State) rank() int {
	switch s {
	case StateCaptured:
		return 1
	case StateDelivered:
		return 2
	case StateDeleted:
		return 3
	}
	return 0
}

// Valid reports whether s is one of the three lifecycle states.
func (s State) Valid() bool { return s.rank() > 0 }

// CanTransition reports whether moving from s to next respects the
// monotonic lifecycle. Skipping Delivered is allowed (a retake deletes a
// photo that was never fetched); moving backwards never is.
func (s State) CanTransition(next State) bool {
	if !s.Valid() || !next.Valid() {
		return false
	}
	return next.rank() > s.rank()
}

// Transition returns next if the move is legal, or ErrBadTransition.
func (s State) Transition(next State) (State, error) {
	if !s.CanTransition(next) {
		return s, ErrBadTransition
	}
	return next, nil
}

// Photo is the captured artifact's metadata. Image bytes live in the
// store and are never carried on this struct.
type Photo struct {
	ID          PhotoID
	Size        int64
	State       State
	CreatedAt   time.Time
	DeliveredAt time.Time // zero until the first successful delivery read
	ExpiresAt   time.Time
}
