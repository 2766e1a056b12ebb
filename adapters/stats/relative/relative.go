// Package relative rebases vector tables on a reference date.
package relative

import (
	"math"
	"time"

	"enstats/domain/vector"
)

// MakeRelativeToDate subtracts, per realization and vector, the value found
// at date from every row of that realization. Realizations without a row at
// exactly date are dropped. Rows keep their original order.
func MakeRelativeToDate(table *vector.Table, date time.Time) (*vector.Table, error) {
	times, err := table.Times()
	if err != nil {
		return nil, err
	}

	names := table.VectorNames()
	baseline := make(map[int][]float64)
	for i, t := range times {
		if !t.Equal(date) {
			continue
		}
		real := table.Real(i)
		if _, ok := baseline[real]; ok {
			continue
		}
		values := make([]float64, len(names))
		for j, name := range names {
			values[j] = table.Value(name, i)
		}
		baseline[real] = values
	}

	out := vector.NewTable(names)
	row := make([]float64, len(names))
	for i, t := range times {
		base, ok := baseline[table.Real(i)]
		if !ok {
			continue
		}
		for j, name := range names {
			row[j] = table.Value(name, i) - base[j]
			if math.IsInf(row[j], 0) {
				row[j] = math.NaN()
			}
		}
		out.AppendRow(t, table.Real(i), row...)
	}
	return out, nil
}
