package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"labbooking/internal/approval"
	"labbooking/internal/clock"
	"labbooking/internal/entities"
	"labbooking/internal/resolution"
)

// JobService holds the scheduled maintenance of reservation and waiting-list
// lifecycles. The engine only defines the transition rules; these jobs apply
// them on a timer.
type JobService struct {
	Repo  Repository
	Gate  *approval.Gate
	Clock clock.Clock
	Log   *zap.Logger
}

func NewJobService(repo Repository, gate *approval.Gate, clk clock.Clock, log *zap.Logger) *JobService {
	return &JobService{Repo: repo, Gate: gate, Clock: clk, Log: log}
}

// CompleteFinishedReservations moves confirmed reservations whose end has
// passed to completed, through the gate so the audit trail stays intact.
func (s *JobService) CompleteFinishedReservations(ctx context.Context) error {
	now := s.Clock.Now()
	finished, err := s.Repo.ConfirmedPastEnd(ctx, now)
	if err != nil {
		return fmt.Errorf("completion job: loading finished reservations: %w", err)
	}
	if len(finished) == 0 {
		return nil
	}

	for i := range finished {
		res := &finished[i]
		event, err := s.Gate.Transition(res, entities.StatusCompleted, "system", now)
		if err != nil {
			return fmt.Errorf("completion job: reservation %s: %w", res.ID, err)
		}
		if err := s.Repo.UpdateReservationStatus(ctx, res.ID, res.Status); err != nil {
			return fmt.Errorf("completion job: updating reservation %s: %w", res.ID, err)
		}
		if err := s.Repo.RecordEvent(ctx, event); err != nil {
			return fmt.Errorf("completion job: recording event for %s: %w", res.ID, err)
		}
	}

	s.Log.Info("completion job finished", zap.Int("completed", len(finished)))
	return nil
}

// ExpireWaitlistEntries applies the expiry rule to active entries whose
// expires_at has passed.
func (s *JobService) ExpireWaitlistEntries(ctx context.Context) error {
	now := s.Clock.Now()
	entries, err := s.Repo.AllActiveWaitlist(ctx)
	if err != nil {
		return fmt.Errorf("expiry job: loading waiting list: %w", err)
	}

	expired := 0
	for _, entry := range entries {
		if !resolution.IsExpired(entry, now) {
			continue
		}
		if err := s.Repo.UpdateWaitlistStatus(ctx, entry.ID, entities.WaitlistExpired); err != nil {
			return fmt.Errorf("expiry job: updating entry %s: %w", entry.ID, err)
		}
		expired++
	}

	if expired > 0 {
		s.Log.Info("expiry job finished", zap.Int("expired", expired))
	}
	return nil
}
