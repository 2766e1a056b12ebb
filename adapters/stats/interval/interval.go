// Package interval derives per-interval and per-day vectors from cumulative
// vectors sampled at a reporting frequency.
package interval

import (
	"fmt"
	"strings"

	"enstats/domain/core"
	"enstats/domain/frequency"
	"enstats/domain/vector"
)

const hoursPerDay = 24.0

// Derive computes the requested PER_INTVL_/PER_DAY_ vectors from a table
// holding their cumulative base vectors.
//
// For each realization with dates d_0 < ... < d_n, the per-interval value at
// d_i is V(d_{i+1}) - V(d_i) and the per-day value divides it by the elapsed
// days between d_i and d_{i+1}. The last date has no following interval and
// yields no row; realizations with fewer than two dates yield no rows.
// Requests of other kinds are ignored.
func Derive(cumulative *vector.Table, requests []vector.Classification) (*vector.Table, error) {
	requests = vector.OfKind(requests, vector.KindPerInterval, vector.KindPerDay)
	names := make([]string, len(requests))
	bases := make([][]float64, len(requests))
	for i, req := range requests {
		names[i] = req.Name
		if !cumulative.HasVector(req.Base) {
			return nil, fmt.Errorf("%w %s (base of %s)", core.ErrVariableNotFound, req.Base, req.Name)
		}
		bases[i] = cumulative.Column(req.Base)
	}

	out := vector.NewTable(names)
	if cumulative.IsEmpty() || len(requests) == 0 {
		return out, nil
	}

	groups, err := cumulative.GroupByRealization()
	if err != nil {
		return nil, err
	}
	times, _ := cumulative.Times()

	row := make([]float64, len(requests))
	for _, g := range groups {
		for k := 0; k+1 < len(g.Rows); k++ {
			cur, next := g.Rows[k], g.Rows[k+1]
			elapsed := times[next].Sub(times[cur]).Hours() / hoursPerDay
			if elapsed <= 0 {
				return nil, core.NewDegenerateIntervalError(
					strings.Join(names, ","), g.Real, times[cur].Format("2006-01-02T15:04:05"))
			}
			for i, req := range requests {
				delta := bases[i][next] - bases[i][cur]
				if req.Kind == vector.KindPerDay {
					delta /= elapsed
				}
				row[i] = delta
			}
			out.AppendRow(times[cur], g.Real, row...)
		}
	}
	return out, nil
}

// Labels returns the interval label of every row of a derived table.
func Labels(table *vector.Table, f frequency.Frequency) ([]string, error) {
	times, err := table.Times()
	if err != nil {
		return nil, err
	}
	labels := make([]string, len(times))
	for i, t := range times {
		labels[i] = frequency.IntervalLabel(t, f)
	}
	return labels, nil
}
