package entities

import "time"

type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
)

// RecurrencePattern describes a recurring series. The end condition is either
// Count (number of emitted occurrences) or Until (inclusive last start date);
// exactly one must be set. Exceptions name dates to skip without consuming
// the count.
type RecurrencePattern struct {
	Frequency  Frequency      `json:"frequency"`
	Interval   int            `json:"interval"`
	DaysOfWeek []time.Weekday `json:"days_of_week,omitempty"`
	Count      int            `json:"count,omitempty"`
	Until      *time.Time     `json:"until,omitempty"`
	Exceptions []time.Time    `json:"exceptions,omitempty"`
}

// BookingRequest is the candidate under evaluation. Constructed per check,
// never persisted.
type BookingRequest struct {
	ResourceID    string             `json:"resource_id"`
	RequesterID   string             `json:"requester_id"`
	GroupID       string             `json:"group_id,omitempty"`
	Interval      Interval           `json:"interval"`
	Pattern       *RecurrencePattern `json:"pattern,omitempty"`
	Justification string             `json:"justification,omitempty"`
	IsRecurring   bool               `json:"is_recurring"`
}
