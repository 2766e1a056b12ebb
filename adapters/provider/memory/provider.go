// Package memory implements ports.VectorProvider over raw samples held in
// memory. File and database loaders build these providers.
package memory

import (
	"fmt"
	"sort"
	"time"

	"enstats/adapters/stats/temporal"
	"enstats/domain/core"
	"enstats/domain/frequency"
	"enstats/domain/vector"
	"enstats/ports"
)

// Provider serves one ensemble from raw per-realization samples.
type Provider struct {
	name     string
	vectors  []string
	metadata map[string]vector.Metadata
	reals    []int
	series   map[int]*realizationSeries
	allDates []time.Time
}

type realizationSeries struct {
	dates  []time.Time
	values map[string][]float64
}

var _ ports.VectorProvider = (*Provider)(nil)

// New builds a provider from a raw vector table. The table must be
// datetime-typed with at most one row per (REAL, DATE). Vectors without an
// entry in metadata get inferred metadata.
func New(name string, raw *vector.Table, metadata map[string]vector.Metadata) (*Provider, error) {
	groups, err := raw.GroupByRealization()
	if err != nil {
		return nil, fmt.Errorf("ensemble %s: %w", name, err)
	}
	times, _ := raw.Times()

	p := &Provider{
		name:     name,
		vectors:  raw.VectorNames(),
		metadata: make(map[string]vector.Metadata, len(raw.VectorNames())),
		series:   make(map[int]*realizationSeries, len(groups)),
	}
	for _, v := range p.vectors {
		if meta, ok := metadata[v]; ok {
			meta.Name = v
			p.metadata[v] = meta
		} else {
			p.metadata[v] = vector.InferMetadata(v)
		}
	}

	for _, g := range groups {
		s := &realizationSeries{
			dates:  make([]time.Time, len(g.Rows)),
			values: make(map[string][]float64, len(p.vectors)),
		}
		for i, row := range g.Rows {
			s.dates[i] = times[row]
			if i > 0 && s.dates[i].Equal(s.dates[i-1]) {
				return nil, fmt.Errorf("%w: ensemble %s realization %d has duplicate date %s",
					core.ErrInvalidTable, name, g.Real, s.dates[i].Format(time.RFC3339))
			}
		}
		for _, v := range p.vectors {
			col := raw.Column(v)
			vals := make([]float64, len(g.Rows))
			for i, row := range g.Rows {
				vals[i] = col[row]
			}
			s.values[v] = vals
		}
		p.series[g.Real] = s
		p.reals = append(p.reals, g.Real)
		p.allDates = append(p.allDates, s.dates...)
	}
	return p, nil
}

// Name returns the ensemble name.
func (p *Provider) Name() string { return p.name }

func (p *Provider) VectorNames() []string { return append([]string(nil), p.vectors...) }

func (p *Provider) Realizations() []int { return append([]int(nil), p.reals...) }

func (p *Provider) Metadata(name string) (vector.Metadata, bool) {
	meta, ok := p.metadata[name]
	return meta, ok
}

// Dates returns the raw dates of reals, or the frequency grid of the whole
// ensemble.
func (p *Provider) Dates(freq frequency.Frequency, reals []int) []time.Time {
	if freq != frequency.Raw {
		return temporal.Grid(p.allDates, freq)
	}
	var dates []time.Time
	for _, r := range p.selectReals(reals) {
		dates = append(dates, p.series[r].dates...)
	}
	return temporal.Grid(dates, frequency.Raw)
}

// Vectors returns the named vectors for reals at freq. Unknown realizations
// in reals are ignored; unknown vectors are an error.
func (p *Provider) Vectors(names []string, freq frequency.Frequency, reals []int) (*vector.Table, error) {
	for _, n := range names {
		if _, ok := p.metadata[n]; !ok {
			return nil, fmt.Errorf("ensemble %s: %w %s", p.name, core.ErrVariableNotFound, n)
		}
	}
	out := vector.NewTable(names)
	names = out.VectorNames()

	var grid []time.Time
	if freq != frequency.Raw {
		grid = temporal.Grid(p.allDates, freq)
	}

	row := make([]float64, len(names))
	for _, r := range p.selectReals(reals) {
		s := p.series[r]
		dates := s.dates
		columns := make([][]float64, len(names))
		if grid == nil {
			for i, n := range names {
				columns[i] = s.values[n]
			}
		} else {
			dates = grid
			for i, n := range names {
				method := temporal.MethodFor(p.metadata[n].IsTotal)
				columns[i] = temporal.ResampleSeries(s.dates, s.values[n], grid, method)
			}
		}
		for k, date := range dates {
			for i := range names {
				row[i] = columns[i][k]
			}
			out.AppendRow(date, r, row...)
		}
	}
	return out, nil
}

func (p *Provider) selectReals(reals []int) []int {
	if reals == nil {
		return p.reals
	}
	out := make([]int, 0, len(reals))
	seen := make(map[int]struct{}, len(reals))
	for _, r := range reals {
		if _, ok := p.series[r]; !ok {
			continue
		}
		if _, dup := seen[r]; dup {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	sort.Ints(out)
	return out
}
