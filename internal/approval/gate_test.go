package approval

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"labbooking/internal/entities"
)

type recordingSink struct {
	events []Event
}

func (s *recordingSink) Record(event Event) { s.events = append(s.events, event) }

var when = time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)

func candidate() entities.Reservation {
	return entities.Reservation{ID: "r1", ResourceID: "lab-a", OwnerID: "u1", Status: entities.StatusCandidate}
}

func TestAdmitFollowsPolicy(t *testing.T) {
	gate := NewGate(nil)

	status, approvers := gate.Admit(entities.BookingRequest{}, PolicyFunc(func(entities.BookingRequest) Decision {
		return Decision{AutoConfirm: true}
	}))
	assert.Equal(t, entities.StatusConfirmed, status)
	assert.Empty(t, approvers)

	status, approvers = gate.Admit(entities.BookingRequest{}, PolicyFunc(func(entities.BookingRequest) Decision {
		return Decision{Approvers: []string{"supervisor-1"}}
	}))
	assert.Equal(t, entities.StatusPending, status)
	assert.Equal(t, []string{"supervisor-1"}, approvers)
}

func TestTransitionLegality(t *testing.T) {
	cases := []struct {
		from, to entities.ReservationStatus
		ok       bool
	}{
		{entities.StatusCandidate, entities.StatusPending, true},
		{entities.StatusCandidate, entities.StatusConfirmed, true},
		{entities.StatusCandidate, entities.StatusCompleted, false},
		{entities.StatusPending, entities.StatusConfirmed, true},
		{entities.StatusPending, entities.StatusRejected, true},
		{entities.StatusPending, entities.StatusCancelled, true},
		{entities.StatusPending, entities.StatusCompleted, false},
		{entities.StatusConfirmed, entities.StatusCancelled, true},
		{entities.StatusConfirmed, entities.StatusCompleted, true},
		{entities.StatusConfirmed, entities.StatusPending, false},
		{entities.StatusCompleted, entities.StatusPending, false},
		{entities.StatusCancelled, entities.StatusConfirmed, false},
		{entities.StatusRejected, entities.StatusPending, false},
	}
	for _, tc := range cases {
		assert.Equalf(t, tc.ok, Allowed(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestTransitionUpdatesAndRecords(t *testing.T) {
	sink := &recordingSink{}
	gate := NewGate(sink)
	res := candidate()

	event, err := gate.Transition(&res, entities.StatusPending, "u1", when)
	require.NoError(t, err)

	assert.Equal(t, entities.StatusPending, res.Status)
	assert.Equal(t, entities.StatusCandidate, event.From)
	assert.Equal(t, entities.StatusPending, event.To)
	assert.Equal(t, "u1", event.Actor)
	assert.Equal(t, when, event.At)
	assert.NotEmpty(t, event.ID)
	require.Len(t, sink.events, 1)
	assert.Equal(t, event, sink.events[0])
}

func TestIllegalTransitionLeavesReservationUntouched(t *testing.T) {
	sink := &recordingSink{}
	gate := NewGate(sink)
	res := candidate()
	res.Status = entities.StatusCompleted

	_, err := gate.Transition(&res, entities.StatusPending, "u1", when)

	var transitionErr *entities.IllegalTransitionError
	require.ErrorAs(t, err, &transitionErr)
	assert.Equal(t, entities.StatusCompleted, transitionErr.From)
	assert.Equal(t, entities.StatusPending, transitionErr.To)
	assert.Equal(t, entities.StatusCompleted, res.Status)
	assert.Empty(t, sink.events)
}
