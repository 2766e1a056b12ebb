package vector

import (
	"fmt"
	"strconv"
	"time"

	"enstats/domain/core"
)

// DateKind describes how the DATE column of a table is represented.
type DateKind int

const (
	// DateKindDatetime holds real time.Time values. Only this kind can be
	// compared, joined or aggregated.
	DateKindDatetime DateKind = iota
	// DateKindText holds dates as strings, as delivered by text readers.
	DateKindText
	// DateKindEpoch holds raw unix timestamps in seconds.
	DateKindEpoch
)

func (k DateKind) String() string {
	switch k {
	case DateKindDatetime:
		return "datetime"
	case DateKindText:
		return "text"
	case DateKindEpoch:
		return "epoch"
	default:
		return fmt.Sprintf("datekind(%d)", int(k))
	}
}

var textDateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// DateColumn is the DATE column of a vector table.
type DateColumn struct {
	kind  DateKind
	times []time.Time
	text  []string
	epoch []int64
}

// DatetimeColumn wraps already typed dates.
func DatetimeColumn(times []time.Time) DateColumn {
	return DateColumn{kind: DateKindDatetime, times: times}
}

// TextDateColumn wraps dates that are still strings.
func TextDateColumn(values []string) DateColumn {
	return DateColumn{kind: DateKindText, text: values}
}

// EpochDateColumn wraps raw unix timestamps (seconds).
func EpochDateColumn(seconds []int64) DateColumn {
	return DateColumn{kind: DateKindEpoch, epoch: seconds}
}

// Kind returns the column representation.
func (c DateColumn) Kind() DateKind { return c.kind }

// Len returns the number of values.
func (c DateColumn) Len() int {
	switch c.kind {
	case DateKindText:
		return len(c.text)
	case DateKindEpoch:
		return len(c.epoch)
	default:
		return len(c.times)
	}
}

// Times returns the typed dates, or ErrNonDatetimeDateColumn when the column
// has not been normalized.
func (c DateColumn) Times() ([]time.Time, error) {
	if c.kind != DateKindDatetime {
		return nil, core.NewNonDatetimeError(c.kind.String())
	}
	return c.times, nil
}

// Format renders the i-th value for display regardless of kind.
func (c DateColumn) Format(i int) string {
	switch c.kind {
	case DateKindText:
		return c.text[i]
	case DateKindEpoch:
		return strconv.FormatInt(c.epoch[i], 10)
	default:
		t := c.times[i]
		if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
			return t.Format("2006-01-02")
		}
		return t.Format(time.RFC3339)
	}
}

// Normalize converts text and epoch values into a datetime column. Text must
// be RFC3339 or an ISO date; epoch values are seconds and map to UTC.
func (c DateColumn) Normalize() (DateColumn, error) {
	switch c.kind {
	case DateKindDatetime:
		return c, nil
	case DateKindEpoch:
		times := make([]time.Time, len(c.epoch))
		for i, s := range c.epoch {
			times[i] = time.Unix(s, 0).UTC()
		}
		return DatetimeColumn(times), nil
	case DateKindText:
		times := make([]time.Time, len(c.text))
		for i, s := range c.text {
			parsed, err := ParseDate(s)
			if err != nil {
				return DateColumn{}, fmt.Errorf("%w: row %d: %v", core.ErrInvalidTable, i, err)
			}
			times[i] = parsed
		}
		return DatetimeColumn(times), nil
	default:
		return DateColumn{}, fmt.Errorf("%w: unknown date kind %v", core.ErrInvalidTable, c.kind)
	}
}

// ParseDate parses one text date in any of the accepted layouts.
func ParseDate(s string) (time.Time, error) {
	for _, layout := range textDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse date %q", s)
}

// take returns the values at idx in order.
func (c DateColumn) take(idx []int) DateColumn {
	switch c.kind {
	case DateKindText:
		out := make([]string, len(idx))
		for i, j := range idx {
			out[i] = c.text[j]
		}
		return TextDateColumn(out)
	case DateKindEpoch:
		out := make([]int64, len(idx))
		for i, j := range idx {
			out[i] = c.epoch[j]
		}
		return EpochDateColumn(out)
	default:
		out := make([]time.Time, len(idx))
		for i, j := range idx {
			out[i] = c.times[j]
		}
		return DatetimeColumn(out)
	}
}
