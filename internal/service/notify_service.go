package service

import (
	"go.uber.org/zap"

	"labbooking/internal/approval"
	"labbooking/internal/entities"
)

// LogNotifier is the shipped Notifier: it logs the structured outcome and
// leaves delivery to whatever tails the log or replaces this implementation.
type LogNotifier struct {
	Log *zap.Logger
}

func (n *LogNotifier) PromotionAvailable(entry entities.WaitingListEntry, freed entities.Interval) {
	n.Log.Info("waiting list promotion available",
		zap.String("entry_id", entry.ID),
		zap.String("requester_id", entry.RequesterID),
		zap.String("resource_id", entry.ResourceID),
		zap.Time("freed_start", freed.Start),
		zap.Time("freed_end", freed.End))
}

func (n *LogNotifier) ReservationDecided(reservation entities.Reservation) {
	n.Log.Info("reservation decided",
		zap.String("reservation_id", reservation.ID),
		zap.String("owner_id", reservation.OwnerID),
		zap.String("resource_id", reservation.ResourceID),
		zap.String("status", string(reservation.Status)))
}

// LogEventSink mirrors approval-gate audit events into the log. Persistence
// of events is handled by the repository, not here.
type LogEventSink struct {
	Log *zap.Logger
}

func (s *LogEventSink) Record(event approval.Event) {
	s.Log.Info("reservation transition",
		zap.String("reservation_id", event.ReservationID),
		zap.String("from", string(event.From)),
		zap.String("to", string(event.To)),
		zap.String("actor", event.Actor))
}
