// Package recurrence expands recurrence patterns into concrete occurrence
// intervals. Expansion is a pure function of its inputs: calling it twice
// with the same pattern and anchor yields the same sequence.
package recurrence

import (
	"errors"
	"fmt"
	"time"

	"labbooking/internal/entities"
)

// MaxOccurrences caps series expansion so a pattern can never make a
// conflict check unbounded.
const MaxOccurrences = 365

var errEndCondition = errors.New("recurrence pattern needs either count or until")

// Expand produces the ordered occurrences of pattern anchored at anchor.
// Each occurrence keeps the anchor's time of day and duration. Exception
// dates are skipped without consuming the count. Patterns that would emit
// more than MaxOccurrences fail with ErrRecurrenceTooLarge rather than
// truncating.
func Expand(pattern entities.RecurrencePattern, anchor entities.Interval) ([]entities.Interval, error) {
	if err := validate(pattern); err != nil {
		return nil, err
	}

	duration := anchor.Duration()
	exceptions := dateSet(pattern.Exceptions)

	var out []entities.Interval
	emit := func(start time.Time) error {
		if pattern.Until != nil && start.After(endOfDay(*pattern.Until)) {
			return errDone
		}
		if !exceptions[dateKey(start)] {
			if len(out) >= MaxOccurrences {
				return entities.ErrRecurrenceTooLarge
			}
			out = append(out, entities.Interval{Start: start, End: start.Add(duration)})
			if pattern.Count > 0 && len(out) >= pattern.Count {
				return errDone
			}
		}
		return nil
	}

	var err error
	switch pattern.Frequency {
	case entities.FrequencyDaily:
		err = expandDaily(pattern, anchor.Start, emit)
	case entities.FrequencyWeekly:
		err = expandWeekly(pattern, anchor.Start, emit)
	case entities.FrequencyMonthly:
		err = expandMonthly(pattern, anchor.Start, emit)
	default:
		return nil, fmt.Errorf("unsupported recurrence frequency %q", pattern.Frequency)
	}
	if err != nil && err != errDone {
		return nil, err
	}
	return out, nil
}

var errDone = errors.New("done")

func validate(pattern entities.RecurrencePattern) error {
	if pattern.Interval < 1 {
		return fmt.Errorf("recurrence interval must be positive, got %d", pattern.Interval)
	}
	hasCount := pattern.Count > 0
	hasUntil := pattern.Until != nil
	if !hasCount && !hasUntil {
		return errEndCondition
	}
	if pattern.Count > MaxOccurrences {
		return entities.ErrRecurrenceTooLarge
	}
	return nil
}

// maxSteps bounds the until-driven loops. An until date far enough out to
// step past the cap surfaces ErrRecurrenceTooLarge through emit.
const maxSteps = MaxOccurrences * 8

func expandDaily(pattern entities.RecurrencePattern, start time.Time, emit func(time.Time) error) error {
	for step := 0; step < maxSteps; step++ {
		occ := start.AddDate(0, 0, step*pattern.Interval)
		if err := emit(occ); err != nil {
			return err
		}
	}
	return entities.ErrRecurrenceTooLarge
}

func expandWeekly(pattern entities.RecurrencePattern, start time.Time, emit func(time.Time) error) error {
	days := pattern.DaysOfWeek
	if len(days) == 0 {
		days = []time.Weekday{start.Weekday()}
	}
	wanted := map[time.Weekday]bool{}
	for _, d := range days {
		wanted[d] = true
	}

	// Walk whole weeks from the anchor's week, emitting matching weekdays in
	// chronological order. Days earlier in the anchor week than the anchor
	// itself are not emitted.
	weekStart := start.AddDate(0, 0, -int(start.Weekday()))
	for week := 0; week < maxSteps; week++ {
		base := weekStart.AddDate(0, 0, week*7*pattern.Interval)
		for dow := 0; dow < 7; dow++ {
			day := base.AddDate(0, 0, dow)
			if day.Before(start) || !wanted[day.Weekday()] {
				continue
			}
			if err := emit(day); err != nil {
				return err
			}
		}
	}
	return entities.ErrRecurrenceTooLarge
}

func expandMonthly(pattern entities.RecurrencePattern, start time.Time, emit func(time.Time) error) error {
	year, month, day := start.Date()
	hour, min, sec := start.Clock()
	for step := 0; step < maxSteps; step++ {
		y, m := addMonths(year, month, step*pattern.Interval)
		// Months without the anchor's day (e.g. Jan 31 monthly) are skipped
		// rather than normalized into the following month.
		if day > daysInMonth(y, m) {
			continue
		}
		occ := time.Date(y, m, day, hour, min, sec, start.Nanosecond(), start.Location())
		if err := emit(occ); err != nil {
			return err
		}
	}
	return entities.ErrRecurrenceTooLarge
}

func addMonths(year int, month time.Month, n int) (int, time.Month) {
	total := year*12 + int(month) - 1 + n
	return total / 12, time.Month(total%12 + 1)
}

func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func dateKey(t time.Time) string {
	return t.Format("2006-01-02")
}

func dateSet(dates []time.Time) map[string]bool {
	set := make(map[string]bool, len(dates))
	for _, d := range dates {
		set[dateKey(d)] = true
	}
	return set
}

func endOfDay(d time.Time) time.Time {
	return time.Date(d.Year(), d.Month(), d.Day(), 23, 59, 59, 0, d.Location())
}
