package entities

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(hour, min int) time.Time {
	return time.Date(2024, 1, 10, hour, min, 0, 0, time.UTC)
}

func mustInterval(t *testing.T, start, end time.Time) Interval {
	t.Helper()
	iv, err := NewInterval(start, end)
	require.NoError(t, err)
	return iv
}

func TestNewIntervalRejectsMalformed(t *testing.T) {
	_, err := NewInterval(at(10, 0), at(9, 0))
	assert.ErrorIs(t, err, ErrInvalidInterval)

	_, err = NewInterval(at(10, 0), at(10, 0))
	assert.ErrorIs(t, err, ErrInvalidInterval)
}

func TestOverlapsIsSymmetric(t *testing.T) {
	cases := []struct {
		name string
		a, b Interval
		want bool
	}{
		{"partial overlap", mustInterval(t, at(9, 0), at(10, 0)), mustInterval(t, at(9, 30), at(10, 30)), true},
		{"containment", mustInterval(t, at(9, 0), at(12, 0)), mustInterval(t, at(10, 0), at(11, 0)), true},
		{"identical", mustInterval(t, at(9, 0), at(10, 0)), mustInterval(t, at(9, 0), at(10, 0)), true},
		{"back to back", mustInterval(t, at(9, 0), at(10, 0)), mustInterval(t, at(10, 0), at(11, 0)), false},
		{"disjoint", mustInterval(t, at(9, 0), at(10, 0)), mustInterval(t, at(14, 0), at(15, 0)), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.a.Overlaps(tc.b))
			assert.Equal(t, tc.want, tc.b.Overlaps(tc.a), "overlap must be symmetric")
		})
	}
}

func TestContains(t *testing.T) {
	outer := mustInterval(t, at(9, 0), at(12, 0))
	assert.True(t, outer.Contains(mustInterval(t, at(9, 0), at(12, 0))))
	assert.True(t, outer.Contains(mustInterval(t, at(10, 0), at(11, 0))))
	assert.False(t, outer.Contains(mustInterval(t, at(8, 0), at(10, 0))))
	assert.False(t, outer.Contains(mustInterval(t, at(11, 0), at(13, 0))))
}

func TestDuration(t *testing.T) {
	assert.Equal(t, 90*time.Minute, mustInterval(t, at(9, 0), at(10, 30)).Duration())
}
