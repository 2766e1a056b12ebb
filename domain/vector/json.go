package vector

import (
	"encoding/json"
	"math"
)

type jsonColumn struct {
	Vector string     `json:"vector"`
	Values []*float64 `json:"values"`
}

type jsonTable struct {
	Dates     []string     `json:"dates"`
	Reals     []int        `json:"reals"`
	Intervals []string     `json:"intervals,omitempty"`
	Columns   []jsonColumn `json:"columns"`
}

// MarshalJSON writes the table column by column in vector order. NaN values
// are written as null.
func (t *Table) MarshalJSON() ([]byte, error) {
	return t.MarshalLabeledJSON(nil)
}

// MarshalLabeledJSON is MarshalJSON with an intervals field holding one label
// per row. A nil labels slice omits the field.
func (t *Table) MarshalLabeledJSON(labels []string) ([]byte, error) {
	out := jsonTable{
		Dates:     make([]string, t.Len()),
		Reals:     append([]int{}, t.reals...),
		Intervals: labels,
		Columns:   make([]jsonColumn, 0, len(t.names)),
	}
	for i := range out.Dates {
		out.Dates[i] = t.dates.Format(i)
	}
	for _, name := range t.names {
		src := t.columns[name]
		values := make([]*float64, len(src))
		for i := range src {
			if !math.IsNaN(src[i]) {
				v := src[i]
				values[i] = &v
			}
		}
		out.Columns = append(out.Columns, jsonColumn{Vector: name, Values: values})
	}
	return json.Marshal(out)
}
