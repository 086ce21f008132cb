package entities

type ConstraintKind string

const (
	ConstraintOperatingHours ConstraintKind = "operating_hours"
	ConstraintMinDuration    ConstraintKind = "min_duration"
	ConstraintMaxDuration    ConstraintKind = "max_duration"
	ConstraintCapacity       ConstraintKind = "capacity"
	ConstraintMaintenance    ConstraintKind = "maintenance"
)

// ConstraintViolation names one broken business rule, tagged with the
// occurrence it applies to so the UI can point at the failing instance of a
// recurring series.
type ConstraintViolation struct {
	Kind            ConstraintKind `json:"kind"`
	OccurrenceIndex int            `json:"occurrence_index"`
	Message         string         `json:"message"`
}

// OccurrenceFinding is the conflict result for one occurrence of the
// candidate (index 0 for single bookings).
type OccurrenceFinding struct {
	Index        int                   `json:"index"`
	Interval     Interval              `json:"interval"`
	Reservations []Reservation         `json:"reservations,omitempty"`
	Maintenance  []MaintenanceWindow   `json:"maintenance,omitempty"`
	Violations   []ConstraintViolation `json:"violations,omitempty"`
}

func (f OccurrenceFinding) Conflicted() bool {
	return len(f.Reservations) > 0 || len(f.Maintenance) > 0 || len(f.Violations) > 0
}

// ConflictReport aggregates every finding for a candidate booking. A conflict
// is a normal business outcome carried as data, never an error.
type ConflictReport struct {
	HasConflict             bool                  `json:"has_conflict"`
	Occurrences             []OccurrenceFinding   `json:"occurrences"`
	ConflictingReservations []Reservation         `json:"conflicting_reservations,omitempty"`
	ConflictingMaintenance  []MaintenanceWindow   `json:"conflicting_maintenance,omitempty"`
	ViolatedConstraints     []ConstraintViolation `json:"violated_constraints,omitempty"`
}
