// Package frequency defines the reporting frequencies vector data can be
// resampled to and the calendar arithmetic that goes with them.
package frequency

import (
	"fmt"
	"strings"
	"time"

	"enstats/domain/core"
)

// Frequency is the reporting granularity of a vector table. Values are
// ordered from finest (Raw) to coarsest (Yearly).
type Frequency int

const (
	Raw Frequency = iota
	Daily
	Weekly
	Monthly
	Quarterly
	Yearly
)

var names = [...]string{"raw", "daily", "weekly", "monthly", "quarterly", "yearly"}

// All returns every frequency in ascending order.
func All() []Frequency {
	return []Frequency{Raw, Daily, Weekly, Monthly, Quarterly, Yearly}
}

func (f Frequency) String() string {
	if !f.IsValid() {
		return fmt.Sprintf("frequency(%d)", int(f))
	}
	return names[f]
}

// IsValid reports whether f is one of the declared frequencies.
func (f Frequency) IsValid() bool {
	return f >= Raw && f <= Yearly
}

// Parse converts a user supplied string into a Frequency. The empty string
// and "none" both mean Raw.
func Parse(value string) (Frequency, error) {
	v := strings.ToLower(strings.TrimSpace(value))
	switch v {
	case "", "none":
		return Raw, nil
	}
	for i, name := range names {
		if name == v {
			return Frequency(i), nil
		}
	}
	return Raw, core.NewInvalidFrequencyError(value)
}

// MarshalText implements encoding.TextMarshaler.
func (f Frequency) MarshalText() ([]byte, error) {
	if !f.IsValid() {
		return nil, core.NewInvalidFrequencyError(f.String())
	}
	return []byte(f.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (f *Frequency) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// IntervalLabel returns the human readable name of the bucket date falls in.
// Raw and Daily have no bucketing, so the label is the date itself.
func IntervalLabel(date time.Time, f Frequency) string {
	switch f {
	case Weekly:
		year, week := date.ISOWeek()
		return fmt.Sprintf("%d-W%02d", year, week)
	case Monthly:
		return date.Format("Jan 2006")
	case Quarterly:
		return fmt.Sprintf("Q%d %d", quarterOf(date.Month()), date.Year())
	case Yearly:
		return date.Format("2006")
	default:
		return date.Format("2006-01-02")
	}
}

// Floor rounds t down to the start of its period. Weeks start on Monday.
// Raw returns t unchanged.
func Floor(t time.Time, f Frequency) time.Time {
	switch f {
	case Daily:
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	case Weekly:
		weekday := int(t.Weekday())
		if weekday == 0 {
			weekday = 7
		}
		monday := t.AddDate(0, 0, -(weekday - 1))
		return time.Date(monday.Year(), monday.Month(), monday.Day(), 0, 0, 0, 0, t.Location())
	case Monthly:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	case Quarterly:
		first := time.Month((quarterOf(t.Month())-1)*3 + 1)
		return time.Date(t.Year(), first, 1, 0, 0, 0, 0, t.Location())
	case Yearly:
		return time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, t.Location())
	default:
		return t
	}
}

// Next returns the start of the period following the one t falls in.
// Raw has no periods and returns t unchanged.
func Next(t time.Time, f Frequency) time.Time {
	start := Floor(t, f)
	switch f {
	case Daily:
		return start.AddDate(0, 0, 1)
	case Weekly:
		return start.AddDate(0, 0, 7)
	case Monthly:
		return start.AddDate(0, 1, 0)
	case Quarterly:
		return start.AddDate(0, 3, 0)
	case Yearly:
		return start.AddDate(1, 0, 0)
	default:
		return t
	}
}

// Ceil rounds t up to a period boundary. Dates already on a boundary are
// returned unchanged.
func Ceil(t time.Time, f Frequency) time.Time {
	floor := Floor(t, f)
	if floor.Equal(t) {
		return t
	}
	return Next(t, f)
}

// DateRange returns the normalized sampling grid covering [start, end]: the
// first date is floored and the last date ceiled to period boundaries. Raw
// has no grid and yields nil.
func DateRange(start, end time.Time, f Frequency) []time.Time {
	if f == Raw || !f.IsValid() || end.Before(start) {
		return nil
	}
	last := Ceil(end, f)
	var grid []time.Time
	for current := Floor(start, f); !current.After(last); current = Next(current, f) {
		grid = append(grid, current)
	}
	return grid
}

func quarterOf(m time.Month) int {
	return (int(m)-1)/3 + 1
}
