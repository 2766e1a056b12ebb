package temporal

import (
	"math"
	"sort"
	"time"

	"enstats/domain/frequency"
)

// ============================================================================
// RESAMPLING
// ============================================================================
// Raw summary samples arrive at solver report steps, which differ between
// realizations. Resampling puts every realization of an ensemble on one
// common date grid so realizations can be compared date by date.
// ============================================================================

// Method defines how a vector is carried onto grid dates.
type Method string

const (
	// MethodInterpolate linearly interpolates in time. Used for cumulative
	// vectors; values are held constant outside the sampled range.
	MethodInterpolate Method = "interpolate"
	// MethodBackfill takes the first sample at or after the grid date, and
	// the last sample past the end. Used for rates, whose value at a report
	// step describes the period leading up to it.
	MethodBackfill Method = "backfill"
)

// MethodFor picks the resampling method of a vector.
func MethodFor(isTotal bool) Method {
	if isTotal {
		return MethodInterpolate
	}
	return MethodBackfill
}

// Grid returns the common sampling dates for the given raw dates. Raw keeps
// the distinct raw dates; other frequencies produce the normalized calendar
// grid spanning them.
func Grid(dates []time.Time, f frequency.Frequency) []time.Time {
	if len(dates) == 0 {
		return nil
	}
	sorted := append([]time.Time(nil), dates...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })

	if f == frequency.Raw {
		unique := sorted[:0:0]
		for i, d := range sorted {
			if i == 0 || !d.Equal(sorted[i-1]) {
				unique = append(unique, d)
			}
		}
		return unique
	}
	return frequency.DateRange(sorted[0], sorted[len(sorted)-1], f)
}

// ResampleSeries carries one realization's samples (dates ascending) onto grid.
func ResampleSeries(dates []time.Time, values []float64, grid []time.Time, method Method) []float64 {
	out := make([]float64, len(grid))
	if len(dates) == 0 {
		for i := range out {
			out[i] = math.NaN()
		}
		return out
	}

	last := len(dates) - 1
	for i, g := range grid {
		// first sample at or after g
		j := sort.Search(len(dates), func(k int) bool { return !dates[k].Before(g) })

		switch {
		case j <= last && dates[j].Equal(g):
			out[i] = values[j]
		case j > last:
			out[i] = values[last]
		case method == MethodBackfill:
			out[i] = values[j]
		case j == 0:
			out[i] = values[0]
		default:
			out[i] = interpolate(dates[j-1], values[j-1], dates[j], values[j], g)
		}
	}
	return out
}

func interpolate(t0 time.Time, v0 float64, t1 time.Time, v1 float64, at time.Time) float64 {
	span := t1.Sub(t0).Seconds()
	if span == 0 {
		return v1
	}
	weight := at.Sub(t0).Seconds() / span
	return v0 + weight*(v1-v0)
}
