// Package availability answers overlap queries for one resource over a
// call-scoped snapshot of its reservations and maintenance windows. The index
// never outlives a single evaluation; callers rebuild it from fresh data
// instead of mutating it, so there is no cache to go stale between checks.
package availability

import (
	"sort"
	"time"

	"labbooking/internal/entities"
)

type OccupantKind string

const (
	OccupantReservation OccupantKind = "reservation"
	OccupantMaintenance OccupantKind = "maintenance"
)

// Occupant is one entry holding a slice of the resource's time: either a
// pending/confirmed reservation or a blocking maintenance window.
type Occupant struct {
	Kind        OccupantKind
	Interval    entities.Interval
	Reservation *entities.Reservation
	Maintenance *entities.MaintenanceWindow
}

// Index is the per-resource, per-evaluation occupancy structure.
type Index struct {
	resourceID string
	occupants  []Occupant // sorted by interval start
}

// NewIndex builds the index from a snapshot. Reservations that are not
// pending or confirmed and maintenance windows that do not block booking are
// dropped here so queries never see them.
func NewIndex(resourceID string, reservations []entities.Reservation, maintenance []entities.MaintenanceWindow) *Index {
	idx := &Index{resourceID: resourceID}
	for i := range reservations {
		r := reservations[i]
		if r.ResourceID != resourceID || !r.Status.Occupying() {
			continue
		}
		idx.occupants = append(idx.occupants, Occupant{
			Kind:        OccupantReservation,
			Interval:    r.Interval,
			Reservation: &reservations[i],
		})
	}
	for i := range maintenance {
		m := maintenance[i]
		if m.ResourceID != resourceID || !m.BlocksBooking {
			continue
		}
		idx.occupants = append(idx.occupants, Occupant{
			Kind:        OccupantMaintenance,
			Interval:    m.Interval,
			Maintenance: &maintenance[i],
		})
	}
	sort.SliceStable(idx.occupants, func(a, b int) bool {
		return idx.occupants[a].Interval.Start.Before(idx.occupants[b].Interval.Start)
	})
	return idx
}

func (idx *Index) ResourceID() string {
	return idx.resourceID
}

// Query returns every occupant whose interval overlaps the query interval,
// in start order. Half-open semantics: back-to-back entries do not match.
func (idx *Index) Query(interval entities.Interval) []Occupant {
	var hits []Occupant
	for _, occ := range idx.occupants {
		if occ.Interval.Overlaps(interval) {
			hits = append(hits, occ)
		}
	}
	return hits
}

// IsFree reports whether nothing occupies the interval.
func (idx *Index) IsFree(interval entities.Interval) bool {
	return len(idx.Query(interval)) == 0
}

// FreeGaps returns the maximal unoccupied sub-intervals of window with
// length >= minDur, in chronological order. Used by the alternative-time
// search.
func (idx *Index) FreeGaps(window entities.Interval, minDur time.Duration) []entities.Interval {
	cursor := window.Start
	var gaps []entities.Interval
	for _, occ := range idx.occupants {
		if !occ.Interval.Overlaps(window) {
			continue
		}
		if occ.Interval.Start.After(cursor) {
			gap := entities.Interval{Start: cursor, End: occ.Interval.Start}
			if gap.Duration() >= minDur {
				gaps = append(gaps, gap)
			}
		}
		if occ.Interval.End.After(cursor) {
			cursor = occ.Interval.End
		}
	}
	if cursor.Before(window.End) {
		gap := entities.Interval{Start: cursor, End: window.End}
		if gap.Duration() >= minDur {
			gaps = append(gaps, gap)
		}
	}
	return gaps
}
