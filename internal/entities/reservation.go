package entities

import "time"

type ReservationStatus string

const (
	// StatusCandidate is the transient pre-persistence state of a booking
	// that passed conflict detection and awaits the approval gate's initial
	// decision. Never stored.
	StatusCandidate ReservationStatus = "candidate"

	StatusPending   ReservationStatus = "pending"
	StatusConfirmed ReservationStatus = "confirmed"
	StatusCancelled ReservationStatus = "cancelled"
	StatusRejected  ReservationStatus = "rejected"
	StatusCompleted ReservationStatus = "completed"
)

// Occupying reports whether a reservation in this status holds its slot in
// the availability index. Only pending and confirmed reservations do.
func (s ReservationStatus) Occupying() bool {
	return s == StatusPending || s == StatusConfirmed
}

// Reservation is the persisted booking of a resource for one interval.
// Recurring bookings persist one reservation per occurrence, linked by
// SeriesID.
type Reservation struct {
	ID           string            `json:"id"`
	ResourceID   string            `json:"resource_id"`
	OwnerID      string            `json:"owner_id"`
	OwnerGroupID string            `json:"owner_group_id,omitempty"`
	Interval     Interval          `json:"interval"`
	Status       ReservationStatus `json:"status"`
	SeriesID     string            `json:"series_id,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
}

// MaintenanceWindow blocks a resource for an interval. Blocking windows
// always occupy the availability index and take precedence over every
// reservation; they never require approval.
type MaintenanceWindow struct {
	ID            string   `json:"id"`
	ResourceID    string   `json:"resource_id"`
	Interval      Interval `json:"interval"`
	BlocksBooking bool     `json:"blocks_booking"`
}
