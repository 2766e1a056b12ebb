package stats

import (
	"encoding/json"
	"math"
	"time"
)

// ============================================================================
// STATISTIC LABELS
// ============================================================================

// Statistic labels one cross-realization statistic column.
//
// P10 and P90 follow the oil-industry convention: P10 is the optimistic
// tail (the 90th numeric percentile) and P90 the pessimistic tail (the 10th
// numeric percentile).
type Statistic string

const (
	Mean Statistic = "MEAN"
	Min  Statistic = "MIN"
	Max  Statistic = "MAX"
	P10  Statistic = "P10"
	P90  Statistic = "P90"
	P50  Statistic = "P50"
)

// All returns the statistics in column order.
func All() []Statistic {
	return []Statistic{Mean, Min, Max, P10, P90, P50}
}

// NumericPercentile returns the plain percentile (0-100) backing a
// percentile label, and false for non-percentile statistics.
func (s Statistic) NumericPercentile() (float64, bool) {
	switch s {
	case P10:
		return 90, true
	case P90:
		return 10, true
	case P50:
		return 50, true
	default:
		return 0, false
	}
}

// ColumnKey is the two-level column key (vector, statistic).
type ColumnKey struct {
	Vector    string    `json:"vector"`
	Statistic Statistic `json:"statistic"`
}

// ============================================================================
// STATISTICS TABLE
// ============================================================================

// Table holds statistics per vector per date, one row per distinct date in
// ascending order. Built fresh per aggregation and never mutated afterwards.
type Table struct {
	dates   []time.Time
	vectors []string
	values  map[string]map[Statistic][]float64
}

// NewTable allocates a table for vectors over dates with every value NaN.
func NewTable(vectors []string, dates []time.Time) *Table {
	t := &Table{
		dates:   dates,
		vectors: append([]string(nil), vectors...),
		values:  make(map[string]map[Statistic][]float64, len(vectors)),
	}
	for _, v := range t.vectors {
		byStat := make(map[Statistic][]float64, len(All()))
		for _, s := range All() {
			col := make([]float64, len(dates))
			for i := range col {
				col[i] = math.NaN()
			}
			byStat[s] = col
		}
		t.values[v] = byStat
	}
	return t
}

// Set stores one value. Callers building the table use it; consumers only
// read.
func (t *Table) Set(vector string, stat Statistic, row int, value float64) {
	t.values[vector][stat][row] = value
}

// Len returns the number of dates.
func (t *Table) Len() int { return len(t.dates) }

// Dates returns the row keys.
func (t *Table) Dates() []time.Time { return t.dates }

// Vectors returns the vector names in column order.
func (t *Table) Vectors() []string { return append([]string(nil), t.vectors...) }

// Columns returns every (vector, statistic) key in column order.
func (t *Table) Columns() []ColumnKey {
	keys := make([]ColumnKey, 0, len(t.vectors)*len(All()))
	for _, v := range t.vectors {
		for _, s := range All() {
			keys = append(keys, ColumnKey{Vector: v, Statistic: s})
		}
	}
	return keys
}

// Column returns the values of one statistic column, or nil when absent.
func (t *Table) Column(vector string, stat Statistic) []float64 {
	byStat, ok := t.values[vector]
	if !ok {
		return nil
	}
	return byStat[stat]
}

// Row returns the statistics at row i as vector -> statistic -> value.
func (t *Table) Row(i int) map[string]map[Statistic]float64 {
	row := make(map[string]map[Statistic]float64, len(t.vectors))
	for _, v := range t.vectors {
		byStat := make(map[Statistic]float64, len(All()))
		for _, s := range All() {
			byStat[s] = t.values[v][s][i]
		}
		row[v] = byStat
	}
	return row
}

type jsonColumn struct {
	ColumnKey
	Values []*float64 `json:"values"`
}

type jsonTable struct {
	Dates   []time.Time  `json:"dates"`
	Columns []jsonColumn `json:"columns"`
}

// MarshalJSON writes the table column by column, preserving column order.
// NaN values are written as null.
func (t *Table) MarshalJSON() ([]byte, error) {
	out := jsonTable{Dates: t.dates, Columns: make([]jsonColumn, 0, len(t.vectors)*len(All()))}
	if out.Dates == nil {
		out.Dates = []time.Time{}
	}
	for _, key := range t.Columns() {
		src := t.Column(key.Vector, key.Statistic)
		values := make([]*float64, len(src))
		for i := range src {
			if !math.IsNaN(src[i]) {
				v := src[i]
				values[i] = &v
			}
		}
		out.Columns = append(out.Columns, jsonColumn{ColumnKey: key, Values: values})
	}
	return json.Marshal(out)
}
