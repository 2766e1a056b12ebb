// Package delta resolves delta ensembles and computes their vector tables.
package delta

import (
	"time"

	"enstats/domain/ensemble"
	"enstats/domain/vector"
	"enstats/ports"

	"gonum.org/v1/gonum/floats"
)

// Resolve returns the providers of the two ensembles a delta refers to.
func Resolve(d ensemble.Delta, providers ports.ProviderSet) (a, b ports.VectorProvider, err error) {
	if err := d.Validate(); err != nil {
		return nil, nil, err
	}
	if a, err = providers.Get(d.A); err != nil {
		return nil, nil, err
	}
	if b, err = providers.Get(d.B); err != nil {
		return nil, nil, err
	}
	return a, b, nil
}

type rowKey struct {
	real int
	date int64
}

// ComputeDeltaTable returns a - b for every (REAL, DATE) present in both
// tables and every vector present in both. Rows missing from either side are
// dropped, not zero-filled. The result is sorted by REAL then DATE.
func ComputeDeltaTable(a, b *vector.Table) (*vector.Table, error) {
	aTimes, err := a.Times()
	if err != nil {
		return nil, err
	}
	bTimes, err := b.Times()
	if err != nil {
		return nil, err
	}

	var names []string
	for _, n := range a.VectorNames() {
		if b.HasVector(n) {
			names = append(names, n)
		}
	}
	if a.IsEmpty() || b.IsEmpty() {
		return vector.NewTable(names), nil
	}

	bIndex := make(map[rowKey]int, b.Len())
	for i := 0; i < b.Len(); i++ {
		bIndex[rowKey{real: b.Real(i), date: bTimes[i].UnixNano()}] = i
	}

	groups, err := a.GroupByRealization()
	if err != nil {
		return nil, err
	}
	var aRows, bRows []int
	for _, g := range groups {
		for _, i := range g.Rows {
			if j, ok := bIndex[rowKey{real: g.Real, date: aTimes[i].UnixNano()}]; ok {
				aRows = append(aRows, i)
				bRows = append(bRows, j)
			}
		}
	}

	dates := make([]time.Time, len(aRows))
	reals := make([]int, len(aRows))
	for k, i := range aRows {
		dates[k] = aTimes[i]
		reals[k] = a.Real(i)
	}
	columns := make(map[string][]float64, len(names))
	for _, n := range names {
		aCol, bCol := a.Column(n), b.Column(n)
		lhs := make([]float64, len(aRows))
		rhs := make([]float64, len(aRows))
		for k := range aRows {
			lhs[k] = aCol[aRows[k]]
			rhs[k] = bCol[bRows[k]]
		}
		diff := make([]float64, len(aRows))
		floats.SubTo(diff, lhs, rhs)
		columns[n] = diff
	}
	return vector.FromColumns(vector.DatetimeColumn(dates), reals, names, columns)
}
