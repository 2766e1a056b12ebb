// Package testkit provides deterministic ensemble fixtures for tests and demos.
package testkit

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"enstats/adapters/provider/memory"
	"enstats/domain/vector"
	"enstats/ports"
)

// Builder assembles a raw ensemble row by row.
type Builder struct {
	name     string
	table    *vector.Table
	metadata map[string]vector.Metadata
}

// NewBuilder starts an ensemble with the given vector columns. Metadata is
// inferred from the names until Total or Rate overrides it.
func NewBuilder(name string, vectors ...string) *Builder {
	b := &Builder{
		name:     name,
		table:    vector.NewTable(vectors),
		metadata: make(map[string]vector.Metadata, len(vectors)),
	}
	for _, v := range vectors {
		b.metadata[v] = vector.InferMetadata(v)
	}
	return b
}

// Total flags vectors as cumulative.
func (b *Builder) Total(vectors ...string) *Builder {
	for _, v := range vectors {
		b.metadata[v] = vector.Metadata{Name: v, IsTotal: true}
	}
	return b
}

// Rate flags vectors as non-cumulative.
func (b *Builder) Rate(vectors ...string) *Builder {
	for _, v := range vectors {
		b.metadata[v] = vector.Metadata{Name: v, IsTotal: false}
	}
	return b
}

// Row appends one sample row.
func (b *Builder) Row(date time.Time, real int, values ...float64) *Builder {
	b.table.AppendRow(date, real, values...)
	return b
}

// Series appends one realization's samples for every vector: values[v][i]
// is vector v at dates[i].
func (b *Builder) Series(real int, dates []time.Time, values ...[]float64) *Builder {
	row := make([]float64, len(values))
	for i, date := range dates {
		for v := range values {
			row[v] = values[v][i]
		}
		b.table.AppendRow(date, real, row...)
	}
	return b
}

// Table returns the raw table built so far.
func (b *Builder) Table() *vector.Table { return b.table }

// Metadata returns the vector metadata.
func (b *Builder) Metadata() map[string]vector.Metadata { return b.metadata }

// Provider builds the in-memory provider.
func (b *Builder) Provider() (*memory.Provider, error) {
	return memory.New(b.name, b.table, b.metadata)
}

// MustProvider builds the provider and panics on error.
func (b *Builder) MustProvider() *memory.Provider {
	p, err := b.Provider()
	if err != nil {
		panic(fmt.Sprintf("testkit: %v", err))
	}
	return p
}

// MonthlyDates returns n first-of-month dates starting at start's month.
func MonthlyDates(start time.Time, n int) []time.Time {
	first := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, time.UTC)
	dates := make([]time.Time, n)
	for i := range dates {
		dates[i] = first.AddDate(0, i, 0)
	}
	return dates
}

// DailyDates returns n consecutive days starting at start.
func DailyDates(start time.Time, n int) []time.Time {
	dates := make([]time.Time, n)
	for i := range dates {
		dates[i] = start.AddDate(0, 0, i)
	}
	return dates
}

// SyntheticEnsemble generates a reproducible field-level ensemble with a
// cumulative oil total FOPT, its rate FOPR and a pressure FPR. Each
// realization has its own plateau rate drawn from seed.
func SyntheticEnsemble(name string, realizations int, dates []time.Time, seed int64) *memory.Provider {
	rng := rand.New(rand.NewSource(seed))
	b := NewBuilder(name, "FOPT", "FOPR", "FPR").Total("FOPT").Rate("FOPR", "FPR")

	for r := 0; r < realizations; r++ {
		plateau := 800 + 400*rng.Float64()
		decline := 0.01 + 0.02*rng.Float64()
		fopt := make([]float64, len(dates))
		fopr := make([]float64, len(dates))
		fpr := make([]float64, len(dates))
		for i := range dates {
			rate := plateau * math.Exp(-decline*float64(i))
			fopr[i] = rate
			fpr[i] = 300 - 2*float64(i) + 5*rng.Float64()
			if i > 0 {
				days := dates[i].Sub(dates[i-1]).Hours() / 24
				fopt[i] = fopt[i-1] + rate*days
			}
		}
		b.Series(r, dates, fopt, fopr, fpr)
	}
	return b.MustProvider()
}

// Providers collects providers keyed by ensemble name.
func Providers(providers ...*memory.Provider) ports.ProviderSet {
	set := make(ports.ProviderSet, len(providers))
	for _, p := range providers {
		set[p.Name()] = p
	}
	return set
}
