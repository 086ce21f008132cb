package entities

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInterval rejects intervals with start >= end at construction.
	ErrInvalidInterval = errors.New("interval start must be before end")

	// ErrRecurrenceTooLarge means a pattern would expand past the occurrence
	// cap. It is surfaced so the requester can narrow the series, never
	// silently truncated.
	ErrRecurrenceTooLarge = errors.New("recurrence pattern expands beyond the occurrence cap")

	// ErrDuplicateWaitlistEntry rejects a second active waiting-list entry for
	// the same requester, resource and overlapping desired window.
	ErrDuplicateWaitlistEntry = errors.New("an active waiting list entry already covers this window")
)

// IllegalTransitionError reports a reservation status transition the approval
// gate does not permit. Always an integration error, not a business outcome.
type IllegalTransitionError struct {
	From ReservationStatus
	To   ReservationStatus
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("illegal reservation transition %s -> %s", e.From, e.To)
}
