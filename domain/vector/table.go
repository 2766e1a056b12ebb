// Package vector holds the tidy vector table exchanged between every stage of
// the engine, plus the naming rules for derived vectors.
package vector

import (
	"fmt"
	"math"
	"sort"
	"time"

	"enstats/domain/core"
)

const (
	DateColumnName = "DATE"
	RealColumnName = "REAL"
)

// Table is a tidy vector table: one row per (REAL, DATE) with one float
// column per vector. Missing values are NaN. Tables are treated as immutable
// once built; every transformation returns a new table.
type Table struct {
	dates   DateColumn
	reals   []int
	names   []string
	columns map[string][]float64
}

// RealizationRows lists the row indices of one realization, sorted by date.
type RealizationRows struct {
	Real int
	Rows []int
}

// NewTable returns an empty, datetime-typed table with the given vector
// columns. Duplicate names are collapsed.
func NewTable(names []string) *Table {
	t := &Table{
		dates:   DatetimeColumn(nil),
		columns: make(map[string][]float64, len(names)),
	}
	for _, name := range names {
		if _, exists := t.columns[name]; exists {
			continue
		}
		t.names = append(t.names, name)
		t.columns[name] = []float64{}
	}
	return t
}

// FromColumns builds a table from column slices. The table takes ownership
// of the slices.
func FromColumns(dates DateColumn, reals []int, names []string, columns map[string][]float64) (*Table, error) {
	n := dates.Len()
	if len(reals) != n {
		return nil, fmt.Errorf("%w: %d dates but %d realizations", core.ErrInvalidTable, n, len(reals))
	}
	t := &Table{dates: dates, reals: reals, columns: make(map[string][]float64, len(names))}
	for _, name := range names {
		if _, exists := t.columns[name]; exists {
			return nil, fmt.Errorf("%w: duplicate column %s", core.ErrInvalidTable, name)
		}
		values, ok := columns[name]
		if !ok {
			return nil, fmt.Errorf("%w: missing column %s", core.ErrInvalidTable, name)
		}
		if len(values) != n {
			return nil, fmt.Errorf("%w: column %s has %d values, expected %d", core.ErrInvalidTable, name, len(values), n)
		}
		t.names = append(t.names, name)
		t.columns[name] = values
	}
	return t, nil
}

// AppendRow adds one row to a datetime table. It panics when called on a
// non-datetime table or with the wrong number of values.
func (t *Table) AppendRow(date time.Time, real int, values ...float64) {
	if t.dates.kind != DateKindDatetime {
		panic("vector: AppendRow on non-datetime table")
	}
	if len(values) != len(t.names) {
		panic(fmt.Sprintf("vector: AppendRow got %d values for %d columns", len(values), len(t.names)))
	}
	t.dates.times = append(t.dates.times, date)
	t.reals = append(t.reals, real)
	for i, name := range t.names {
		t.columns[name] = append(t.columns[name], values[i])
	}
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.reals) }

// IsEmpty reports whether the table has no rows.
func (t *Table) IsEmpty() bool { return t.Len() == 0 }

// VectorNames returns the vector columns in order.
func (t *Table) VectorNames() []string {
	return append([]string(nil), t.names...)
}

// HasVector reports whether name is a column of the table.
func (t *Table) HasVector(name string) bool {
	_, ok := t.columns[name]
	return ok
}

// Column returns the values of a vector column, or nil when absent. The
// returned slice must not be modified.
func (t *Table) Column(name string) []float64 {
	return t.columns[name]
}

// Value returns the value of vector name at row i.
func (t *Table) Value(name string, i int) float64 {
	col, ok := t.columns[name]
	if !ok {
		return math.NaN()
	}
	return col[i]
}

// Dates returns the DATE column.
func (t *Table) Dates() DateColumn { return t.dates }

// Times returns the typed dates or ErrNonDatetimeDateColumn.
func (t *Table) Times() ([]time.Time, error) { return t.dates.Times() }

// Real returns the realization of row i.
func (t *Table) Real(i int) int { return t.reals[i] }

// Realizations returns the distinct realizations in ascending order.
func (t *Table) Realizations() []int {
	seen := make(map[int]struct{})
	var out []int
	for _, r := range t.reals {
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	sort.Ints(out)
	return out
}

// EmptyLike returns a zero-row datetime table with the same vector columns.
func (t *Table) EmptyLike() *Table {
	return NewTable(t.names)
}

// Take returns a table holding rows idx, in that order.
func (t *Table) Take(idx []int) *Table {
	out := &Table{
		dates:   t.dates.take(idx),
		reals:   make([]int, len(idx)),
		names:   append([]string(nil), t.names...),
		columns: make(map[string][]float64, len(t.names)),
	}
	for i, j := range idx {
		out.reals[i] = t.reals[j]
	}
	for _, name := range t.names {
		src := t.columns[name]
		dst := make([]float64, len(idx))
		for i, j := range idx {
			dst[i] = src[j]
		}
		out.columns[name] = dst
	}
	return out
}

// Select returns a table restricted to the given vector columns.
func (t *Table) Select(names []string) (*Table, error) {
	out := &Table{
		dates:   t.dates,
		reals:   t.reals,
		columns: make(map[string][]float64, len(names)),
	}
	for _, name := range names {
		col, ok := t.columns[name]
		if !ok {
			return nil, fmt.Errorf("%w %s", core.ErrVariableNotFound, name)
		}
		if _, dup := out.columns[name]; dup {
			continue
		}
		out.names = append(out.names, name)
		out.columns[name] = col
	}
	return out, nil
}

// WithColumn returns a table with one more vector column (or the named
// column replaced).
func (t *Table) WithColumn(name string, values []float64) (*Table, error) {
	if len(values) != t.Len() {
		return nil, fmt.Errorf("%w: column %s has %d values, expected %d", core.ErrInvalidTable, name, len(values), t.Len())
	}
	out := &Table{
		dates:   t.dates,
		reals:   t.reals,
		names:   append([]string(nil), t.names...),
		columns: make(map[string][]float64, len(t.names)+1),
	}
	for k, v := range t.columns {
		out.columns[k] = v
	}
	if _, exists := out.columns[name]; !exists {
		out.names = append(out.names, name)
	}
	out.columns[name] = values
	return out, nil
}

// FilterRealizations keeps only rows whose realization is in reals. A nil
// slice means no filter and returns t itself; an empty slice yields an
// empty table.
func (t *Table) FilterRealizations(reals []int) *Table {
	if reals == nil {
		return t
	}
	keep := make(map[int]struct{}, len(reals))
	for _, r := range reals {
		keep[r] = struct{}{}
	}
	var idx []int
	for i, r := range t.reals {
		if _, ok := keep[r]; ok {
			idx = append(idx, i)
		}
	}
	return t.Take(idx)
}

// GroupByRealization returns the rows of each realization sorted by date,
// with realizations in ascending order.
func (t *Table) GroupByRealization() ([]RealizationRows, error) {
	times, err := t.Times()
	if err != nil {
		return nil, err
	}
	byReal := make(map[int][]int)
	for i, r := range t.reals {
		byReal[r] = append(byReal[r], i)
	}
	groups := make([]RealizationRows, 0, len(byReal))
	for _, r := range t.Realizations() {
		rows := byReal[r]
		sort.SliceStable(rows, func(a, b int) bool {
			return times[rows[a]].Before(times[rows[b]])
		})
		groups = append(groups, RealizationRows{Real: r, Rows: rows})
	}
	return groups, nil
}

// SortByRealDate returns a copy sorted by REAL then DATE.
func (t *Table) SortByRealDate() (*Table, error) {
	groups, err := t.GroupByRealization()
	if err != nil {
		return nil, err
	}
	idx := make([]int, 0, t.Len())
	for _, g := range groups {
		idx = append(idx, g.Rows...)
	}
	return t.Take(idx), nil
}

// NormalizeDates returns a copy whose DATE column is datetime-typed.
func (t *Table) NormalizeDates() (*Table, error) {
	dates, err := t.dates.Normalize()
	if err != nil {
		return nil, err
	}
	return &Table{dates: dates, reals: t.reals, names: t.names, columns: t.columns}, nil
}
