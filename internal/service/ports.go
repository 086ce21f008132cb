package service

import (
	"context"
	"time"

	"labbooking/internal/approval"
	"labbooking/internal/entities"
)

// Store is the repository contract the engine's collaborators must satisfy.
// Snapshot queries feed the availability index; the write methods persist
// engine outcomes.
type Store interface {
	GetResource(ctx context.Context, id string) (entities.Resource, error)
	ListResources(ctx context.Context) ([]entities.Resource, error)

	// SnapshotReservations returns the pending/confirmed reservations of the
	// resource overlapping the window.
	SnapshotReservations(ctx context.Context, resourceID string, window entities.Interval) ([]entities.Reservation, error)
	// SnapshotMaintenance returns the blocking maintenance windows of the
	// resource overlapping the window.
	SnapshotMaintenance(ctx context.Context, resourceID string, window entities.Interval) ([]entities.MaintenanceWindow, error)

	GetReservation(ctx context.Context, id string) (entities.Reservation, error)
	CreateReservations(ctx context.Context, reservations []entities.Reservation) error
	UpdateReservationStatus(ctx context.Context, id string, status entities.ReservationStatus) error
	ConfirmedPastEnd(ctx context.Context, now time.Time) ([]entities.Reservation, error)

	ActiveWaitlist(ctx context.Context, resourceID string) ([]entities.WaitingListEntry, error)
	AllActiveWaitlist(ctx context.Context) ([]entities.WaitingListEntry, error)
	CreateWaitlistEntry(ctx context.Context, entry entities.WaitingListEntry) error
	UpdateWaitlistStatus(ctx context.Context, id string, status entities.WaitlistStatus) error

	RecordEvent(ctx context.Context, event approval.Event) error
}

// Repository adds the transactional boundary the engine requires: the caller
// must hold per-resource serializable isolation around the read-detect-write
// sequence, or two racing requests could both pass detection and double-book.
type Repository interface {
	Store

	// WithResourceLock runs fn inside a transaction holding an exclusive
	// per-resource lock; the Store passed to fn is bound to that transaction.
	WithResourceLock(ctx context.Context, resourceID string, fn func(Store) error) error
}

// Notifier receives engine outcomes for external delivery. Message formatting
// and channels are not this service's concern.
type Notifier interface {
	PromotionAvailable(entry entities.WaitingListEntry, freed entities.Interval)
	ReservationDecided(reservation entities.Reservation)
}
