package engine

import (
	"math"
	"sort"
	"time"

	"github.com/montanaflynn/stats"

	domainstats "enstats/domain/stats"
	"enstats/domain/vector"
)

// Aggregate computes the cross-realization statistics of every vector in
// table, one output row per distinct date in ascending order. Missing
// (NaN) samples are skipped; a date where a vector has no samples keeps NaN
// statistics. The DATE column must be datetime typed.
func Aggregate(table *vector.Table) (*domainstats.Table, error) {
	times, err := table.Times()
	if err != nil {
		return nil, err
	}

	dates, rowOf := distinctDates(times)
	names := table.VectorNames()
	out := domainstats.NewTable(names, dates)
	if len(dates) == 0 {
		return out, nil
	}

	buckets := make([][]float64, len(dates))
	for _, name := range names {
		for i := range buckets {
			buckets[i] = buckets[i][:0]
		}
		for i, v := range table.Column(name) {
			if math.IsNaN(v) {
				continue
			}
			row := rowOf[times[i].UTC()]
			buckets[row] = append(buckets[row], v)
		}
		for row, samples := range buckets {
			if len(samples) == 0 {
				continue
			}
			for stat, value := range summarize(samples) {
				out.Set(name, stat, row, value)
			}
		}
	}
	return out, nil
}

// Percentile returns the p-th percentile (0-100) of samples using linear
// interpolation between closest ranks, rank = p/100*(n-1). samples is
// sorted in place. Returns NaN for no samples.
func Percentile(samples []float64, p float64) float64 {
	n := len(samples)
	if n == 0 {
		return math.NaN()
	}
	sort.Float64s(samples)
	rank := p / 100 * float64(n-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo < 0 {
		lo = 0
	}
	if hi > n-1 {
		hi = n - 1
	}
	return samples[lo] + (rank-float64(lo))*(samples[hi]-samples[lo])
}

func summarize(samples []float64) map[domainstats.Statistic]float64 {
	data := stats.Float64Data(samples)
	mean, _ := stats.Mean(data)
	min, _ := stats.Min(data)
	max, _ := stats.Max(data)

	result := map[domainstats.Statistic]float64{
		domainstats.Mean: mean,
		domainstats.Min:  min,
		domainstats.Max:  max,
	}
	for _, s := range domainstats.All() {
		if p, ok := s.NumericPercentile(); ok {
			result[s] = Percentile(samples, p)
		}
	}
	return result
}

// distinctDates returns the sorted distinct dates and each date's row.
func distinctDates(times []time.Time) ([]time.Time, map[time.Time]int) {
	seen := make(map[time.Time]struct{}, len(times))
	var dates []time.Time
	for _, t := range times {
		key := t.UTC()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		dates = append(dates, key)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	rowOf := make(map[time.Time]int, len(dates))
	for i, d := range dates {
		rowOf[d] = i
	}
	return dates, rowOf
}
