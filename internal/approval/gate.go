// Package approval holds the reservation status state machine. The gate only
// knows which transitions are legal and records each one as an audit event;
// what policy decides a transition is supplied by the caller.
package approval

import (
	"time"

	"github.com/google/uuid"

	"labbooking/internal/entities"
)

// Decision is the outcome of an approval policy for a conflict-free
// candidate.
type Decision struct {
	AutoConfirm bool
	Approvers   []string
}

// Policy is the external rule lookup. How policies are configured (roles,
// quotas, tiers) is the caller's business; the gate only consumes the
// decision.
type Policy interface {
	Decide(request entities.BookingRequest) Decision
}

// PolicyFunc adapts a plain function to Policy.
type PolicyFunc func(request entities.BookingRequest) Decision

func (f PolicyFunc) Decide(request entities.BookingRequest) Decision { return f(request) }

// Event records one status transition for the audit trail. The payload is
// opaque to this package.
type Event struct {
	ID            string                     `json:"id"`
	ReservationID string                     `json:"reservation_id"`
	From          entities.ReservationStatus `json:"from"`
	To            entities.ReservationStatus `json:"to"`
	Actor         string                     `json:"actor"`
	At            time.Time                  `json:"at"`
	Payload       map[string]string          `json:"payload,omitempty"`
}

// EventSink receives transition events for external history/audit storage.
type EventSink interface {
	Record(event Event)
}

// legal maps each status to the statuses it may move to. cancelled,
// rejected and completed are terminal.
var legal = map[entities.ReservationStatus][]entities.ReservationStatus{
	entities.StatusCandidate: {entities.StatusPending, entities.StatusConfirmed},
	entities.StatusPending:   {entities.StatusConfirmed, entities.StatusRejected, entities.StatusCancelled},
	entities.StatusConfirmed: {entities.StatusCancelled, entities.StatusCompleted},
}

type Gate struct {
	sink EventSink
}

func NewGate(sink EventSink) *Gate {
	return &Gate{sink: sink}
}

// Admit decides the initial status of a conflict-free candidate via the
// supplied policy and returns it together with the approver set when a
// manual decision is required.
func (g *Gate) Admit(request entities.BookingRequest, policy Policy) (entities.ReservationStatus, []string) {
	decision := policy.Decide(request)
	if decision.AutoConfirm {
		return entities.StatusConfirmed, nil
	}
	return entities.StatusPending, decision.Approvers
}

// Transition moves a reservation to a new status, emitting an audit event.
// Illegal moves fail with IllegalTransitionError and leave the reservation
// untouched.
func (g *Gate) Transition(res *entities.Reservation, to entities.ReservationStatus, actor string, at time.Time) (Event, error) {
	if !Allowed(res.Status, to) {
		return Event{}, &entities.IllegalTransitionError{From: res.Status, To: to}
	}
	event := Event{
		ID:            uuid.NewString(),
		ReservationID: res.ID,
		From:          res.Status,
		To:            to,
		Actor:         actor,
		At:            at,
	}
	res.Status = to
	if g.sink != nil {
		g.sink.Record(event)
	}
	return event, nil
}

// Allowed reports whether the state machine permits from -> to.
func Allowed(from, to entities.ReservationStatus) bool {
	for _, next := range legal[from] {
		if next == to {
			return true
		}
	}
	return false
}
