package entities

import "time"

// TimeOfDay is a clock time without a date, used for operating hours.
type TimeOfDay struct {
	Hour   int `json:"hour"`
	Minute int `json:"minute"`
}

// On anchors the clock time to the date of t, in t's location.
func (c TimeOfDay) On(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), c.Hour, c.Minute, 0, 0, t.Location())
}

func (c TimeOfDay) Minutes() int {
	return c.Hour*60 + c.Minute
}

// Resource is a bookable lab asset: an instrument, room or piece of
// equipment. Capacity > 1 means that many reservations may overlap at any
// instant before the resource counts as full.
type Resource struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Capacity    int           `json:"capacity"`
	MinDuration time.Duration `json:"min_duration"`
	MaxDuration time.Duration `json:"max_duration"`
	OpensAt     TimeOfDay     `json:"opens_at"`
	ClosesAt    TimeOfDay     `json:"closes_at"`

	// RequiresRiskAssessment is derived from the existence of a linked
	// mandatory assessment, not stored on the resource row.
	RequiresRiskAssessment bool `json:"requires_risk_assessment"`
}
