package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"labbooking/internal/approval"
	"labbooking/internal/availability"
	"labbooking/internal/clock"
	"labbooking/internal/conflict"
	"labbooking/internal/entities"
	"labbooking/internal/recurrence"
	"labbooking/internal/resolution"
)

// BookingOptions are the caller's knobs for one booking attempt.
type BookingOptions struct {
	AllowAlternatives bool `json:"allow_alternatives"`
	// AlternativeResourceIDs are the resources considered as replacements
	// when the requested one conflicts.
	AlternativeResourceIDs []string `json:"alternative_resource_ids,omitempty"`
	JoinWaitlist           bool     `json:"join_waitlist"`
	Priority               int      `json:"priority"`
	FlexibleStart          bool     `json:"flexible_start"`
	FlexibleDuration       bool     `json:"flexible_duration"`
}

// BookingResult is the outcome of a booking attempt: either the persisted
// reservations, or the conflict report plus the resolution the engine chose.
type BookingResult struct {
	Booked                 bool                     `json:"booked"`
	Reservations           []entities.Reservation   `json:"reservations,omitempty"`
	Approvers              []string                 `json:"approvers,omitempty"`
	Report                 *entities.ConflictReport `json:"report,omitempty"`
	Resolution             *resolution.Outcome      `json:"resolution,omitempty"`
	RequiresRiskAssessment bool                     `json:"requires_risk_assessment"`
}

type BookingService struct {
	Repo            Repository
	Gate            *approval.Gate
	Policy          approval.Policy
	Notifier        Notifier
	Clock           clock.Clock
	Log             *zap.Logger
	Horizon         time.Duration
	MaxAlternatives int
	WaitlistTTL     time.Duration
}

func NewBookingService(repo Repository, gate *approval.Gate, policy approval.Policy, notifier Notifier, clk clock.Clock, log *zap.Logger, horizon time.Duration, maxAlternatives int, waitlistTTL time.Duration) *BookingService {
	return &BookingService{
		Repo:            repo,
		Gate:            gate,
		Policy:          policy,
		Notifier:        notifier,
		Clock:           clk,
		Log:             log,
		Horizon:         horizon,
		MaxAlternatives: maxAlternatives,
		WaitlistTTL:     waitlistTTL,
	}
}

// CheckAvailability runs conflict detection without persisting anything.
func (s *BookingService) CheckAvailability(ctx context.Context, request entities.BookingRequest) (entities.ConflictReport, error) {
	resource, err := s.Repo.GetResource(ctx, request.ResourceID)
	if err != nil {
		return entities.ConflictReport{}, fmt.Errorf("loading resource %s: %w", request.ResourceID, err)
	}
	occurrences, err := expandRequest(request)
	if err != nil {
		return entities.ConflictReport{}, err
	}
	index, err := s.buildIndex(ctx, s.Repo, request.ResourceID, span(occurrences))
	if err != nil {
		return entities.ConflictReport{}, err
	}
	return conflict.Detect(request, index, conflict.ConstraintsFor(resource))
}

// RequestBooking is the full read-detect-write sequence. It runs under the
// repository's per-resource lock so no other writer can commit an overlapping
// reservation between the snapshot and the insert.
func (s *BookingService) RequestBooking(ctx context.Context, request entities.BookingRequest, opts BookingOptions) (*BookingResult, error) {
	occurrences, err := expandRequest(request)
	if err != nil {
		return nil, err
	}

	var result *BookingResult
	err = s.Repo.WithResourceLock(ctx, request.ResourceID, func(store Store) error {
		resource, err := store.GetResource(ctx, request.ResourceID)
		if err != nil {
			return fmt.Errorf("loading resource %s: %w", request.ResourceID, err)
		}

		index, err := s.buildIndex(ctx, store, request.ResourceID, span(occurrences))
		if err != nil {
			return err
		}

		report, err := conflict.Detect(request, index, conflict.ConstraintsFor(resource))
		if err != nil {
			return err
		}

		if report.HasConflict {
			result, err = s.resolveConflict(ctx, store, resource, request, report, opts)
			return err
		}

		result, err = s.admitAndPersist(ctx, store, resource, request, occurrences)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *BookingService) admitAndPersist(ctx context.Context, store Store, resource entities.Resource, request entities.BookingRequest, occurrences []entities.Interval) (*BookingResult, error) {
	now := s.Clock.Now()
	status, approvers := s.Gate.Admit(request, s.Policy)

	seriesID := ""
	if len(occurrences) > 1 {
		seriesID = uuid.NewString()
	}

	reservations := make([]entities.Reservation, 0, len(occurrences))
	for _, occ := range occurrences {
		res := entities.Reservation{
			ID:           uuid.NewString(),
			ResourceID:   request.ResourceID,
			OwnerID:      request.RequesterID,
			OwnerGroupID: request.GroupID,
			Interval:     occ,
			Status:       entities.StatusCandidate,
			SeriesID:     seriesID,
			CreatedAt:    now,
		}
		event, err := s.Gate.Transition(&res, status, request.RequesterID, now)
		if err != nil {
			return nil, err
		}
		if err := store.RecordEvent(ctx, event); err != nil {
			return nil, fmt.Errorf("recording admit event: %w", err)
		}
		reservations = append(reservations, res)
	}

	if err := store.CreateReservations(ctx, reservations); err != nil {
		return nil, fmt.Errorf("persisting reservations: %w", err)
	}

	s.Log.Info("booking admitted",
		zap.String("resource_id", request.ResourceID),
		zap.String("requester_id", request.RequesterID),
		zap.String("status", string(status)),
		zap.Int("occurrences", len(reservations)))

	return &BookingResult{
		Booked:                 true,
		Reservations:           reservations,
		Approvers:              approvers,
		RequiresRiskAssessment: resource.RequiresRiskAssessment,
	}, nil
}

func (s *BookingService) resolveConflict(ctx context.Context, store Store, resource entities.Resource, request entities.BookingRequest, report entities.ConflictReport, opts BookingOptions) (*BookingResult, error) {
	now := s.Clock.Now()

	index, err := s.buildIndex(ctx, store, request.ResourceID, searchWindow(request.Interval, s.Horizon))
	if err != nil {
		return nil, err
	}

	alternatives, err := s.alternativeOptions(ctx, store, request, opts.AlternativeResourceIDs)
	if err != nil {
		return nil, err
	}

	existing, err := store.ActiveWaitlist(ctx, request.ResourceID)
	if err != nil {
		return nil, fmt.Errorf("loading waiting list: %w", err)
	}

	outcome, err := resolution.Resolve(report, request, resolution.Context{
		Resource:          resource,
		Index:             index,
		Constraints:       conflict.ConstraintsFor(resource),
		Alternatives:      alternatives,
		AllowAlternatives: opts.AllowAlternatives,
		MaxSuggestions:    s.MaxAlternatives,
		Horizon:           s.Horizon,
		JoinWaitlist:      opts.JoinWaitlist,
		Priority:          opts.Priority,
		FlexibleStart:     opts.FlexibleStart,
		FlexibleDuration:  opts.FlexibleDuration,
		WaitlistTTL:       s.WaitlistTTL,
		ExistingEntries:   existing,
		Now:               now,
	})
	if err != nil {
		return nil, err
	}

	if outcome.Kind == resolution.OutcomeWaitlistEnrolled {
		if err := store.CreateWaitlistEntry(ctx, *outcome.Entry); err != nil {
			return nil, fmt.Errorf("persisting waiting list entry: %w", err)
		}
	}

	s.Log.Info("booking conflicted",
		zap.String("resource_id", request.ResourceID),
		zap.String("requester_id", request.RequesterID),
		zap.String("resolution", string(outcome.Kind)))

	return &BookingResult{
		Booked:                 false,
		Report:                 &report,
		Resolution:             &outcome,
		RequiresRiskAssessment: resource.RequiresRiskAssessment,
	}, nil
}

// JoinWaitlist enrolls a requester directly, without a prior booking attempt.
func (s *BookingService) JoinWaitlist(ctx context.Context, request entities.BookingRequest, opts BookingOptions) (*entities.WaitingListEntry, error) {
	existing, err := s.Repo.ActiveWaitlist(ctx, request.ResourceID)
	if err != nil {
		return nil, fmt.Errorf("loading waiting list: %w", err)
	}
	entry, err := resolution.Enroll(request, resolution.Context{
		Priority:         opts.Priority,
		FlexibleStart:    opts.FlexibleStart,
		FlexibleDuration: opts.FlexibleDuration,
		WaitlistTTL:      s.WaitlistTTL,
		ExistingEntries:  existing,
		Now:              s.Clock.Now(),
	})
	if err != nil {
		return nil, err
	}
	if err := s.Repo.CreateWaitlistEntry(ctx, *entry); err != nil {
		return nil, fmt.Errorf("persisting waiting list entry: %w", err)
	}
	return entry, nil
}

// Approve moves a pending reservation to confirmed.
func (s *BookingService) Approve(ctx context.Context, reservationID, actor string) (entities.Reservation, error) {
	res, err := s.transition(ctx, reservationID, entities.StatusConfirmed, actor)
	if err == nil && s.Notifier != nil {
		s.Notifier.ReservationDecided(res)
	}
	return res, err
}

// Reject declines a pending reservation and promotes from the waiting list,
// since the slot it held is free again.
func (s *BookingService) Reject(ctx context.Context, reservationID, actor string) (entities.Reservation, error) {
	res, err := s.transition(ctx, reservationID, entities.StatusRejected, actor)
	if err != nil {
		return res, err
	}
	if s.Notifier != nil {
		s.Notifier.ReservationDecided(res)
	}
	return res, s.promoteInto(ctx, res.ResourceID, res.Interval)
}

// Cancel withdraws a pending or confirmed reservation and promotes from the
// waiting list.
func (s *BookingService) Cancel(ctx context.Context, reservationID, actor string) (entities.Reservation, error) {
	res, err := s.transition(ctx, reservationID, entities.StatusCancelled, actor)
	if err != nil {
		return res, err
	}
	return res, s.promoteInto(ctx, res.ResourceID, res.Interval)
}

func (s *BookingService) transition(ctx context.Context, reservationID string, to entities.ReservationStatus, actor string) (entities.Reservation, error) {
	res, err := s.Repo.GetReservation(ctx, reservationID)
	if err != nil {
		return entities.Reservation{}, fmt.Errorf("loading reservation %s: %w", reservationID, err)
	}
	event, err := s.Gate.Transition(&res, to, actor, s.Clock.Now())
	if err != nil {
		return entities.Reservation{}, err
	}
	if err := s.Repo.UpdateReservationStatus(ctx, res.ID, res.Status); err != nil {
		return entities.Reservation{}, fmt.Errorf("updating reservation status: %w", err)
	}
	if err := s.Repo.RecordEvent(ctx, event); err != nil {
		return entities.Reservation{}, fmt.Errorf("recording transition event: %w", err)
	}
	return res, nil
}

// promoteInto offers a freed interval to the waiting list and notifies the
// chosen entry, if any fits.
func (s *BookingService) promoteInto(ctx context.Context, resourceID string, freed entities.Interval) error {
	entries, err := s.Repo.ActiveWaitlist(ctx, resourceID)
	if err != nil {
		return fmt.Errorf("loading waiting list: %w", err)
	}
	promoted := resolution.Promote(resourceID, freed, entries, s.Clock.Now())
	if promoted == nil {
		return nil
	}
	if err := s.Repo.UpdateWaitlistStatus(ctx, promoted.ID, promoted.Status); err != nil {
		return fmt.Errorf("updating waiting list entry %s: %w", promoted.ID, err)
	}
	s.Log.Info("waiting list entry promoted",
		zap.String("entry_id", promoted.ID),
		zap.String("resource_id", resourceID))
	if s.Notifier != nil {
		s.Notifier.PromotionAvailable(*promoted, freed)
	}
	return nil
}

// alternativeOptions loads a resource and snapshot for each candidate
// replacement. Unknown resources are skipped rather than failing the whole
// resolution.
func (s *BookingService) alternativeOptions(ctx context.Context, store Store, request entities.BookingRequest, ids []string) ([]resolution.ResourceOption, error) {
	var options []resolution.ResourceOption
	for _, id := range ids {
		if id == request.ResourceID {
			continue
		}
		res, err := store.GetResource(ctx, id)
		if err != nil {
			s.Log.Warn("skipping alternative resource", zap.String("resource_id", id), zap.Error(err))
			continue
		}
		index, err := s.buildIndex(ctx, store, id, request.Interval)
		if err != nil {
			return nil, err
		}
		options = append(options, resolution.ResourceOption{Resource: res, Index: index})
	}
	return options, nil
}

func (s *BookingService) buildIndex(ctx context.Context, store Store, resourceID string, window entities.Interval) (*availability.Index, error) {
	reservations, err := store.SnapshotReservations(ctx, resourceID, window)
	if err != nil {
		return nil, fmt.Errorf("loading reservations for %s: %w", resourceID, err)
	}
	maintenance, err := store.SnapshotMaintenance(ctx, resourceID, window)
	if err != nil {
		return nil, fmt.Errorf("loading maintenance for %s: %w", resourceID, err)
	}
	return availability.NewIndex(resourceID, reservations, maintenance), nil
}

func expandRequest(request entities.BookingRequest) ([]entities.Interval, error) {
	if request.IsRecurring && request.Pattern != nil {
		occurrences, err := recurrence.Expand(*request.Pattern, request.Interval)
		if err != nil {
			return nil, err
		}
		if len(occurrences) == 0 {
			return nil, fmt.Errorf("recurrence pattern yields no occurrences")
		}
		return occurrences, nil
	}
	return []entities.Interval{request.Interval}, nil
}

// span is the window covering every occurrence, used to scope snapshots.
func span(occurrences []entities.Interval) entities.Interval {
	window := occurrences[0]
	for _, occ := range occurrences[1:] {
		if occ.Start.Before(window.Start) {
			window.Start = occ.Start
		}
		if occ.End.After(window.End) {
			window.End = occ.End
		}
	}
	return window
}

// searchWindow widens the requested interval to the alternative-search
// horizon.
func searchWindow(requested entities.Interval, horizon time.Duration) entities.Interval {
	end := requested.Start.Add(horizon)
	if end.Before(requested.End) {
		end = requested.End
	}
	return entities.Interval{Start: requested.Start, End: end}
}
