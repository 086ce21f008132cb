package api

import (
	"time"

	"labbooking/internal/entities"
	"labbooking/internal/service"
)

// BookingPayload is the wire shape for availability checks, booking attempts
// and waiting-list joins. Identity arrives pre-resolved; this layer performs
// no authentication.
type BookingPayload struct {
	ResourceID    string                      `json:"resource_id"`
	RequesterID   string                      `json:"requester_id"`
	GroupID       string                      `json:"group_id,omitempty"`
	Start         time.Time                   `json:"start"`
	End           time.Time                   `json:"end"`
	Justification string                      `json:"justification,omitempty"`
	Pattern       *entities.RecurrencePattern `json:"pattern,omitempty"`

	Options service.BookingOptions `json:"options"`
}

// ToRequest validates the interval and builds the engine's booking request.
func (p BookingPayload) ToRequest() (entities.BookingRequest, error) {
	interval, err := entities.NewInterval(p.Start, p.End)
	if err != nil {
		return entities.BookingRequest{}, err
	}
	return entities.BookingRequest{
		ResourceID:    p.ResourceID,
		RequesterID:   p.RequesterID,
		GroupID:       p.GroupID,
		Interval:      interval,
		Pattern:       p.Pattern,
		Justification: p.Justification,
		IsRecurring:   p.Pattern != nil,
	}, nil
}

type ActorPayload struct {
	Actor string `json:"actor"`
}

type MessageResponse struct {
	Message string `json:"message"`
}
