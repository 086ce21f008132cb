// Package conflict decides whether a candidate booking is admissible against
// a resource's availability snapshot and business constraints. Detection is a
// pure evaluation: conflicts come back as data in the report, never as
// errors. Errors are reserved for malformed input such as an oversized
// recurrence.
package conflict

import (
	"fmt"
	"sort"
	"time"

	"labbooking/internal/availability"
	"labbooking/internal/entities"
	"labbooking/internal/recurrence"
)

// ConstraintSet carries the per-resource business rules the detector
// evaluates alongside plain overlap.
type ConstraintSet struct {
	Capacity    int
	MinDuration time.Duration
	MaxDuration time.Duration
	OpensAt     entities.TimeOfDay
	ClosesAt    entities.TimeOfDay

	// OrderedTieBreak makes pending reservations with an earlier created_at
	// count toward occupancy, so under shared capacity the earlier submission
	// wins. When off, pending reservations do not block a new candidate.
	OrderedTieBreak bool
}

// ConstraintsFor derives the constraint set from a resource, with the
// submission-order tie-break on by default.
func ConstraintsFor(res entities.Resource) ConstraintSet {
	return ConstraintSet{
		Capacity:        res.Capacity,
		MinDuration:     res.MinDuration,
		MaxDuration:     res.MaxDuration,
		OpensAt:         res.OpensAt,
		ClosesAt:        res.ClosesAt,
		OrderedTieBreak: true,
	}
}

// Detect evaluates the request against the index and constraints and returns
// one aggregated report. Recurring requests are expanded first; every
// finding is tagged with the occurrence it belongs to.
func Detect(request entities.BookingRequest, index *availability.Index, constraints ConstraintSet) (entities.ConflictReport, error) {
	occurrences, err := occurrencesFor(request)
	if err != nil {
		return entities.ConflictReport{}, err
	}

	report := entities.ConflictReport{}
	seenReservations := map[string]bool{}
	seenMaintenance := map[string]bool{}

	for i, occ := range occurrences {
		finding := entities.OccurrenceFinding{Index: i, Interval: occ}
		finding.Violations = constraintViolations(occ, i, constraints)

		hits := index.Query(occ)
		var overlapping []entities.Reservation
		for _, h := range hits {
			switch h.Kind {
			case availability.OccupantMaintenance:
				finding.Maintenance = append(finding.Maintenance, *h.Maintenance)
			case availability.OccupantReservation:
				if countsTowardOccupancy(*h.Reservation, constraints) {
					overlapping = append(overlapping, *h.Reservation)
				}
			}
		}

		capacity := constraints.Capacity
		if capacity < 1 {
			capacity = 1
		}
		if peak := peakOccupancy(occ, overlapping); peak+1 > capacity {
			finding.Reservations = overlapping
			if capacity > 1 {
				finding.Violations = append(finding.Violations, entities.ConstraintViolation{
					Kind:            entities.ConstraintCapacity,
					OccurrenceIndex: i,
					Message:         fmt.Sprintf("resource is at capacity (%d) for this interval", capacity),
				})
			}
		}

		for _, r := range finding.Reservations {
			if !seenReservations[r.ID] {
				seenReservations[r.ID] = true
				report.ConflictingReservations = append(report.ConflictingReservations, r)
			}
		}
		for _, m := range finding.Maintenance {
			if !seenMaintenance[m.ID] {
				seenMaintenance[m.ID] = true
				report.ConflictingMaintenance = append(report.ConflictingMaintenance, m)
			}
		}
		report.ViolatedConstraints = append(report.ViolatedConstraints, finding.Violations...)
		if finding.Conflicted() {
			report.HasConflict = true
		}
		report.Occurrences = append(report.Occurrences, finding)
	}

	return report, nil
}

func occurrencesFor(request entities.BookingRequest) ([]entities.Interval, error) {
	if request.IsRecurring && request.Pattern != nil {
		return recurrence.Expand(*request.Pattern, request.Interval)
	}
	return []entities.Interval{request.Interval}, nil
}

// countsTowardOccupancy applies the submission-order tie-break: confirmed
// reservations always occupy; pending ones only when the tie-break is on.
func countsTowardOccupancy(r entities.Reservation, constraints ConstraintSet) bool {
	if r.Status == entities.StatusConfirmed {
		return true
	}
	return constraints.OrderedTieBreak && r.Status == entities.StatusPending
}

// peakOccupancy computes the maximum number of reservations simultaneously
// active at any instant within occ, so capacity is judged against concurrent
// load rather than the raw overlap count.
func peakOccupancy(occ entities.Interval, reservations []entities.Reservation) int {
	type event struct {
		at    time.Time
		delta int
	}
	var events []event
	for _, r := range reservations {
		start, end := r.Interval.Start, r.Interval.End
		if start.Before(occ.Start) {
			start = occ.Start
		}
		if end.After(occ.End) {
			end = occ.End
		}
		events = append(events, event{at: start, delta: +1}, event{at: end, delta: -1})
	}
	sort.Slice(events, func(a, b int) bool {
		if events[a].at.Equal(events[b].at) {
			return events[a].delta < events[b].delta // process leaves before enters
		}
		return events[a].at.Before(events[b].at)
	})
	peak, cur := 0, 0
	for _, e := range events {
		cur += e.delta
		if cur > peak {
			peak = cur
		}
	}
	return peak
}

func constraintViolations(occ entities.Interval, index int, constraints ConstraintSet) []entities.ConstraintViolation {
	var out []entities.ConstraintViolation
	dur := occ.Duration()

	if constraints.MinDuration > 0 && dur < constraints.MinDuration {
		out = append(out, entities.ConstraintViolation{
			Kind:            entities.ConstraintMinDuration,
			OccurrenceIndex: index,
			Message:         fmt.Sprintf("booking of %s is shorter than the minimum %s", dur, constraints.MinDuration),
		})
	}
	if constraints.MaxDuration > 0 && dur > constraints.MaxDuration {
		out = append(out, entities.ConstraintViolation{
			Kind:            entities.ConstraintMaxDuration,
			OccurrenceIndex: index,
			Message:         fmt.Sprintf("booking of %s exceeds the maximum %s", dur, constraints.MaxDuration),
		})
	}
	if !withinOperatingHours(occ, constraints) {
		out = append(out, entities.ConstraintViolation{
			Kind:            entities.ConstraintOperatingHours,
			OccurrenceIndex: index,
			Message: fmt.Sprintf("booking must fall within operating hours %02d:%02d-%02d:%02d",
				constraints.OpensAt.Hour, constraints.OpensAt.Minute,
				constraints.ClosesAt.Hour, constraints.ClosesAt.Minute),
		})
	}
	return out
}

// withinOperatingHours checks the occurrence against the daily open/close
// window. A zero window means the resource is bookable around the clock.
func withinOperatingHours(occ entities.Interval, constraints ConstraintSet) bool {
	if constraints.ClosesAt.Minutes() <= constraints.OpensAt.Minutes() {
		return true
	}
	opens := constraints.OpensAt.On(occ.Start)
	closes := constraints.ClosesAt.On(occ.Start)
	return !occ.Start.Before(opens) && !occ.End.After(closes)
}
