// Package resolution turns a conflict report into something actionable:
// alternative resources, alternative time slots, a waiting-list entry, or a
// plain rejection. It also owns waiting-list promotion when a slot frees up.
package resolution

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"labbooking/internal/availability"
	"labbooking/internal/conflict"
	"labbooking/internal/entities"
)

type OutcomeKind string

const (
	OutcomeRejected             OutcomeKind = "rejected"
	OutcomeAlternativeResources OutcomeKind = "alternative_resources"
	OutcomeAlternativeTimes     OutcomeKind = "alternative_times"
	OutcomeWaitlistEnrolled     OutcomeKind = "waitlist_enrolled"
)

// Outcome is the resolution result. Exactly one of the payload fields is set,
// matching Kind.
type Outcome struct {
	Kind        OutcomeKind                `json:"kind"`
	ResourceIDs []string                   `json:"resource_ids,omitempty"`
	Times       []entities.Interval        `json:"times,omitempty"`
	Entry       *entities.WaitingListEntry `json:"entry,omitempty"`
}

// ResourceOption is one alternative resource candidate: the resource plus a
// fresh availability snapshot for it, supplied by the caller.
type ResourceOption struct {
	Resource entities.Resource
	Index    *availability.Index
}

// Context carries everything Resolve needs beyond the report itself. All
// snapshots are call-scoped; the engine performs no I/O.
type Context struct {
	// Requested resource, its snapshot and constraints, for the
	// alternative-time search.
	Resource    entities.Resource
	Index       *availability.Index
	Constraints conflict.ConstraintSet

	// Candidate replacement resources, each re-checked for the original
	// interval.
	Alternatives []ResourceOption

	AllowAlternatives bool
	MaxSuggestions    int           // default 3
	Horizon           time.Duration // look-ahead for the time search

	// Waiting list controls.
	JoinWaitlist     bool // caller opted in; skips suggestions
	WaitlistFallback bool // enroll automatically when nothing else helps
	Priority         int
	FlexibleStart    bool
	FlexibleDuration bool
	WaitlistTTL      time.Duration
	ExistingEntries  []entities.WaitingListEntry

	Now time.Time
}

const defaultMaxSuggestions = 3

// Resolve produces resolution options for a conflicted request. Recurring
// requests resolve against their anchor interval.
func Resolve(report entities.ConflictReport, request entities.BookingRequest, rctx Context) (Outcome, error) {
	if rctx.MaxSuggestions <= 0 {
		rctx.MaxSuggestions = defaultMaxSuggestions
	}

	if rctx.JoinWaitlist {
		entry, err := Enroll(request, rctx)
		if err != nil {
			return Outcome{}, err
		}
		return Outcome{Kind: OutcomeWaitlistEnrolled, Entry: entry}, nil
	}

	if rctx.AllowAlternatives {
		if ids := alternativeResources(request, rctx); len(ids) > 0 {
			return Outcome{Kind: OutcomeAlternativeResources, ResourceIDs: ids}, nil
		}
		if times := AlternativeTimes(request.Interval, rctx.Index, rctx.Constraints, rctx.Horizon, rctx.MaxSuggestions); len(times) > 0 {
			return Outcome{Kind: OutcomeAlternativeTimes, Times: times}, nil
		}
	}

	if rctx.WaitlistFallback {
		entry, err := Enroll(request, rctx)
		if err != nil {
			return Outcome{}, err
		}
		return Outcome{Kind: OutcomeWaitlistEnrolled, Entry: entry}, nil
	}

	return Outcome{Kind: OutcomeRejected}, nil
}

// alternativeResources keeps the candidates on which the requested interval
// checks out conflict-free.
func alternativeResources(request entities.BookingRequest, rctx Context) []string {
	var ids []string
	for _, opt := range rctx.Alternatives {
		probe := request
		probe.ResourceID = opt.Resource.ID
		probe.IsRecurring = false
		probe.Pattern = nil

		report, err := conflict.Detect(probe, opt.Index, conflict.ConstraintsFor(opt.Resource))
		if err != nil || report.HasConflict {
			continue
		}
		ids = append(ids, opt.Resource.ID)
		if len(ids) >= rctx.MaxSuggestions {
			break
		}
	}
	return ids
}

// AlternativeTimes slides the requested duration across the resource's free
// gaps, chronologically from the requested start, bounded by the horizon.
// Candidates honor the operating-hours window and at most max are returned.
func AlternativeTimes(requested entities.Interval, index *availability.Index, constraints conflict.ConstraintSet, horizon time.Duration, max int) []entities.Interval {
	if index == nil || horizon <= 0 {
		return nil
	}
	duration := requested.Duration()
	horizonEnd := requested.Start.Add(horizon)

	var out []entities.Interval
	for day := requested.Start; day.Before(horizonEnd) && len(out) < max; day = nextDay(day) {
		window := dayWindow(day, constraints)
		if window.Start.Before(requested.Start) {
			window.Start = requested.Start
		}
		if window.End.After(horizonEnd) {
			window.End = horizonEnd
		}
		if !window.End.After(window.Start) {
			continue
		}
		for _, gap := range index.FreeGaps(window, duration) {
			candidate := entities.Interval{Start: gap.Start, End: gap.Start.Add(duration)}
			if candidate.Start.Equal(requested.Start) && candidate.End.Equal(requested.End) {
				continue // that slot is the one that just conflicted
			}
			out = append(out, candidate)
			if len(out) >= max {
				break
			}
		}
	}
	return out
}

// dayWindow is the bookable window of the day containing t: the operating
// hours when configured, the whole day otherwise.
func dayWindow(t time.Time, constraints conflict.ConstraintSet) entities.Interval {
	midnight := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	if constraints.ClosesAt.Minutes() <= constraints.OpensAt.Minutes() {
		return entities.Interval{Start: midnight, End: midnight.AddDate(0, 0, 1)}
	}
	return entities.Interval{
		Start: constraints.OpensAt.On(midnight),
		End:   constraints.ClosesAt.On(midnight),
	}
}

func nextDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location()).AddDate(0, 0, 1)
}

// Enroll creates a waiting entry for the requested window. A second active
// entry for the same requester, resource and overlapping window is rejected
// with ErrDuplicateWaitlistEntry.
func Enroll(request entities.BookingRequest, rctx Context) (*entities.WaitingListEntry, error) {
	for _, existing := range rctx.ExistingEntries {
		if existing.RequesterID == request.RequesterID &&
			existing.ResourceID == request.ResourceID &&
			existing.Status.Active() &&
			existing.DesiredInterval.Overlaps(request.Interval) {
			return nil, entities.ErrDuplicateWaitlistEntry
		}
	}

	entry := &entities.WaitingListEntry{
		ID:               uuid.NewString(),
		ResourceID:       request.ResourceID,
		RequesterID:      request.RequesterID,
		DesiredInterval:  request.Interval,
		FlexibleStart:    rctx.FlexibleStart,
		FlexibleDuration: rctx.FlexibleDuration,
		Priority:         rctx.Priority,
		CreatedAt:        rctx.Now,
		Status:           entities.WaitlistWaiting,
	}
	if rctx.WaitlistTTL > 0 {
		expires := rctx.Now.Add(rctx.WaitlistTTL)
		entry.ExpiresAt = &expires
	}
	return entry, nil
}

// Promote picks the waiting entry that should take a freed interval: highest
// priority first, then oldest. The chosen entry moves to notified and is
// returned for external notification dispatch; nil means nothing fit.
func Promote(resourceID string, freed entities.Interval, entries []entities.WaitingListEntry, now time.Time) *entities.WaitingListEntry {
	candidates := make([]*entities.WaitingListEntry, 0, len(entries))
	for i := range entries {
		e := &entries[i]
		if e.ResourceID != resourceID || e.Status != entities.WaitlistWaiting {
			continue
		}
		if IsExpired(*e, now) || !fitsFreed(*e, freed) {
			continue
		}
		candidates = append(candidates, e)
	}
	if len(candidates) == 0 {
		return nil
	}
	sort.SliceStable(candidates, func(a, b int) bool {
		if candidates[a].Priority != candidates[b].Priority {
			return candidates[a].Priority > candidates[b].Priority
		}
		return candidates[a].CreatedAt.Before(candidates[b].CreatedAt)
	})
	chosen := candidates[0]
	chosen.Status = entities.WaitlistNotified
	return chosen
}

// fitsFreed decides whether a freed interval satisfies an entry's desired
// window under its flexibility flags: exact entries need full containment,
// flexible-start entries need room for their duration anywhere in the freed
// window, flexible-duration entries accept any non-empty overlap with their
// desired window.
func fitsFreed(entry entities.WaitingListEntry, freed entities.Interval) bool {
	if freed.Contains(entry.DesiredInterval) {
		return true
	}
	if entry.FlexibleStart && freed.Duration() >= entry.DesiredInterval.Duration() {
		return true
	}
	if entry.FlexibleDuration && freed.Overlaps(entry.DesiredInterval) {
		return true
	}
	return false
}

// IsExpired is the pure expiry predicate; the scheduled job applies the
// actual status transition.
func IsExpired(entry entities.WaitingListEntry, now time.Time) bool {
	return entry.Status.Active() && entry.ExpiresAt != nil && !now.Before(*entry.ExpiresAt)
}
