package availability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"labbooking/internal/entities"
)

func span(t *testing.T, startHour, endHour int) entities.Interval {
	t.Helper()
	iv, err := entities.NewInterval(
		time.Date(2024, 1, 10, startHour, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 10, endHour, 0, 0, 0, time.UTC),
	)
	require.NoError(t, err)
	return iv
}

func reservation(t *testing.T, id string, startHour, endHour int, status entities.ReservationStatus) entities.Reservation {
	t.Helper()
	return entities.Reservation{
		ID:         id,
		ResourceID: "microscope-1",
		OwnerID:    "u1",
		Interval:   span(t, startHour, endHour),
		Status:     status,
	}
}

func TestQueryReturnsOverlappingOccupants(t *testing.T) {
	idx := NewIndex("microscope-1",
		[]entities.Reservation{
			reservation(t, "r1", 9, 10, entities.StatusConfirmed),
			reservation(t, "r2", 13, 14, entities.StatusPending),
		},
		nil,
	)

	hits := idx.Query(span(t, 9, 11))
	require.Len(t, hits, 1)
	assert.Equal(t, "r1", hits[0].Reservation.ID)

	assert.True(t, idx.IsFree(span(t, 11, 12)))
	assert.False(t, idx.IsFree(span(t, 13, 15)))
}

func TestBackToBackIsFree(t *testing.T) {
	idx := NewIndex("microscope-1",
		[]entities.Reservation{reservation(t, "r1", 9, 10, entities.StatusConfirmed)},
		nil,
	)
	assert.True(t, idx.IsFree(span(t, 10, 11)))
	assert.True(t, idx.IsFree(span(t, 8, 9)))
}

func TestNonOccupyingEntriesAreDropped(t *testing.T) {
	idx := NewIndex("microscope-1",
		[]entities.Reservation{
			reservation(t, "r1", 9, 10, entities.StatusCancelled),
			reservation(t, "r2", 9, 10, entities.StatusRejected),
			reservation(t, "r3", 9, 10, entities.StatusCompleted),
		},
		[]entities.MaintenanceWindow{
			{ID: "m1", ResourceID: "microscope-1", Interval: span(t, 11, 12), BlocksBooking: false},
		},
	)
	assert.True(t, idx.IsFree(span(t, 9, 12)))
}

func TestBlockingMaintenanceOccupies(t *testing.T) {
	idx := NewIndex("microscope-1", nil, []entities.MaintenanceWindow{
		{ID: "m1", ResourceID: "microscope-1", Interval: span(t, 8, 12), BlocksBooking: true},
	})
	hits := idx.Query(span(t, 9, 10))
	require.Len(t, hits, 1)
	assert.Equal(t, OccupantMaintenance, hits[0].Kind)
	assert.Equal(t, "m1", hits[0].Maintenance.ID)
}

func TestOtherResourceEntriesAreIgnored(t *testing.T) {
	other := reservation(t, "r1", 9, 10, entities.StatusConfirmed)
	other.ResourceID = "centrifuge-2"
	idx := NewIndex("microscope-1", []entities.Reservation{other}, nil)
	assert.True(t, idx.IsFree(span(t, 9, 10)))
}

func TestFreeGaps(t *testing.T) {
	idx := NewIndex("microscope-1",
		[]entities.Reservation{
			reservation(t, "r1", 9, 10, entities.StatusConfirmed),
			reservation(t, "r2", 11, 12, entities.StatusConfirmed),
		},
		nil,
	)

	gaps := idx.FreeGaps(span(t, 8, 14), time.Hour)
	require.Len(t, gaps, 3)
	assert.Equal(t, span(t, 8, 9), gaps[0])
	assert.Equal(t, span(t, 10, 11), gaps[1])
	assert.Equal(t, span(t, 12, 14), gaps[2])

	// A larger minimum filters the short gaps out.
	gaps = idx.FreeGaps(span(t, 8, 14), 90*time.Minute)
	require.Len(t, gaps, 1)
	assert.Equal(t, span(t, 12, 14), gaps[0])
}

func TestFreeGapsWithOverlappingOccupants(t *testing.T) {
	idx := NewIndex("microscope-1",
		[]entities.Reservation{
			reservation(t, "r1", 9, 11, entities.StatusConfirmed),
			reservation(t, "r2", 10, 12, entities.StatusConfirmed),
		},
		nil,
	)
	gaps := idx.FreeGaps(span(t, 9, 14), time.Hour)
	require.Len(t, gaps, 1)
	assert.Equal(t, span(t, 12, 14), gaps[0])
}
