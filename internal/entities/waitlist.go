package entities

import "time"

type WaitlistStatus string

const (
	WaitlistWaiting   WaitlistStatus = "waiting"
	WaitlistNotified  WaitlistStatus = "notified"
	WaitlistExpired   WaitlistStatus = "expired"
	WaitlistBooked    WaitlistStatus = "booked"
	WaitlistCancelled WaitlistStatus = "cancelled"
)

// Active reports whether the entry still holds a place in the queue.
func (s WaitlistStatus) Active() bool {
	return s == WaitlistWaiting || s == WaitlistNotified
}

// WaitingListEntry records an unmet request eligible for promotion when a
// slot frees up. Promotion order is (priority desc, created_at asc).
type WaitingListEntry struct {
	ID               string         `json:"id"`
	ResourceID       string         `json:"resource_id"`
	RequesterID      string         `json:"requester_id"`
	DesiredInterval  Interval       `json:"desired_interval"`
	FlexibleStart    bool           `json:"flexible_start"`
	FlexibleDuration bool           `json:"flexible_duration"`
	Priority         int            `json:"priority"`
	CreatedAt        time.Time      `json:"created_at"`
	Status           WaitlistStatus `json:"status"`
	ExpiresAt        *time.Time     `json:"expires_at,omitempty"`
}
