package app

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"enstats/adapters/stats/calculator"
	"enstats/adapters/stats/delta"
	"enstats/adapters/stats/interval"
	"enstats/adapters/stats/relative"
	"enstats/domain/calc"
	"enstats/domain/ensemble"
	"enstats/domain/frequency"
	"enstats/domain/vector"
	"enstats/ports"
)

// AccessorOptions selects what a DerivedVectorsAccessor produces.
type AccessorOptions struct {
	Vectors     []string
	Expressions []calc.Expression
	Frequency   frequency.Frequency
	// RelativeDate rebases every returned table on this date when set.
	RelativeDate *time.Time
}

// DerivedVectorsAccessor serves the requested vectors of one real or delta
// ensemble. Requested names are classified once at construction; each
// derivation path then returns its own table.
type DerivedVectorsAccessor struct {
	ref       ensemble.Ref
	a, b      ports.VectorProvider // b is nil for a real ensemble
	opts      AccessorOptions
	catalog   vector.Catalog
	classes   []vector.Classification
	calcExprs []calc.Expression
}

// NewDerivedVectorsAccessor resolves ref against providers and classifies
// the requested vectors. Unknown ensembles fail with ErrUnknownEnsemble.
func NewDerivedVectorsAccessor(ref ensemble.Ref, providers ports.ProviderSet, opts AccessorOptions) (*DerivedVectorsAccessor, error) {
	acc := &DerivedVectorsAccessor{ref: ref, opts: opts}

	var catalog vector.Catalog
	switch r := ref.(type) {
	case ensemble.RealEnsemble:
		p, err := providers.Get(r.Ensemble)
		if err != nil {
			return nil, err
		}
		acc.a = p
		catalog = ports.Catalog(p)
	case ensemble.Delta:
		a, b, err := delta.Resolve(r, providers)
		if err != nil {
			return nil, err
		}
		acc.a, acc.b = a, b
		catalog = deltaCatalog{a: ports.Catalog(a), b: ports.Catalog(b)}
	default:
		return nil, fmt.Errorf("unsupported ensemble reference %T", ref)
	}

	acc.classes = vector.ClassifyAll(opts.Vectors, catalog, calc.Names(opts.Expressions))
	for _, c := range vector.OfKind(acc.classes, vector.KindCalculated) {
		e, _ := calc.ByName(opts.Expressions, c.Name)
		acc.calcExprs = append(acc.calcExprs, e)
	}
	acc.catalog = catalog
	return acc, nil
}

// deltaCatalog offers the vectors both sides of a delta can deliver.
type deltaCatalog struct {
	a, b vector.Catalog
}

func (c deltaCatalog) HasVector(name string) bool {
	return c.a.HasVector(name) && c.b.HasVector(name)
}

func (c deltaCatalog) IsTotal(name string) bool {
	return c.a.IsTotal(name) && c.b.IsTotal(name)
}

// Name returns the ensemble display name.
func (acc *DerivedVectorsAccessor) Name() string { return acc.ref.Name() }

// Classifications returns the classification of every requested vector.
func (acc *DerivedVectorsAccessor) Classifications() []vector.Classification {
	return append([]vector.Classification(nil), acc.classes...)
}

// UnknownVectors returns the requested names no derivation path can produce.
func (acc *DerivedVectorsAccessor) UnknownVectors() []string {
	return names(vector.OfKind(acc.classes, vector.KindUnknown))
}

func (acc *DerivedVectorsAccessor) HasProviderVectors() bool {
	return len(vector.OfKind(acc.classes, vector.KindRaw)) > 0
}

func (acc *DerivedVectorsAccessor) HasPerIntervalAndPerDayVectors() bool {
	return len(vector.OfKind(acc.classes, vector.KindPerInterval, vector.KindPerDay)) > 0
}

func (acc *DerivedVectorsAccessor) HasVectorCalculatorExpressions() bool {
	return len(acc.calcExprs) > 0
}

// Realizations returns the provider realizations, or for a delta ensemble
// the realizations present in both ensembles.
func (acc *DerivedVectorsAccessor) Realizations() []int {
	if acc.b == nil {
		return acc.a.Realizations()
	}
	return ensemble.Intersect(acc.a.Realizations(), acc.b.Realizations())
}

// CreateValidRealizationsQuery filters requested against Realizations. See
// ensemble.ValidRealizationsQuery for the nil and empty results.
func (acc *DerivedVectorsAccessor) CreateValidRealizationsQuery(requested []int) []int {
	return ensemble.ValidRealizationsQuery(requested, acc.Realizations())
}

// GetProviderVectorsTable reads the raw requested vectors, or their A-B
// difference for a delta ensemble. A nil reals reads every realization.
func (acc *DerivedVectorsAccessor) GetProviderVectorsTable(reals []int) (*vector.Table, error) {
	raw := names(vector.OfKind(acc.classes, vector.KindRaw))
	if noData(reals) {
		return vector.NewTable(raw), nil
	}
	table, err := acc.read(raw, reals, func(t *vector.Table) (*vector.Table, error) { return t, nil })
	if err != nil {
		return nil, err
	}
	return acc.rebase(table)
}

// CreatePerIntervalAndPerDayVectorsTable derives the requested PER_INTVL_
// and PER_DAY_ vectors from their cumulative base vectors. For a delta
// ensemble both sides are derived before subtracting.
func (acc *DerivedVectorsAccessor) CreatePerIntervalAndPerDayVectorsTable(reals []int) (*vector.Table, error) {
	requests := vector.OfKind(acc.classes, vector.KindPerInterval, vector.KindPerDay)
	if noData(reals) {
		return vector.NewTable(names(requests)), nil
	}
	bases := make([]string, 0, len(requests))
	for _, r := range requests {
		bases = append(bases, r.Base)
	}
	table, err := acc.read(bases, reals, func(t *vector.Table) (*vector.Table, error) {
		return interval.Derive(t, requests)
	})
	if err != nil {
		return nil, err
	}
	return acc.rebase(table)
}

// CreateCalculatedVectorsTable evaluates the requested calculated vectors
// over the provider vectors they reference. Vectors that cannot be evaluated
// are left out of the table and reported in a calculator.Errors alongside
// it; any other error is returned with a nil table.
func (acc *DerivedVectorsAccessor) CreateCalculatedVectorsTable(reals []int) (*vector.Table, error) {
	if noData(reals) {
		return vector.NewTable(names(vector.OfKind(acc.classes, vector.KindCalculated))), nil
	}
	var referenced []string
	seen := make(map[string]bool)
	for _, e := range acc.calcExprs {
		for _, v := range e.Vectors() {
			if !seen[v] && acc.catalog.HasVector(v) {
				seen[v] = true
				referenced = append(referenced, v)
			}
		}
	}
	sort.Strings(referenced)

	var failures calculator.Errors
	table, err := acc.read(referenced, reals, func(t *vector.Table) (*vector.Table, error) {
		out, err := calculator.Apply(acc.calcExprs, t)
		var f calculator.Errors
		if errors.As(err, &f) {
			failures = mergeFailures(failures, f)
			return out, nil
		}
		return out, err
	})
	if err != nil {
		return nil, err
	}
	if table, err = acc.rebase(table); err != nil {
		return nil, err
	}
	if len(failures) > 0 {
		return table, failures
	}
	return table, nil
}

// read fetches names at the accessor frequency and applies derive, on both
// sides of a delta before differencing them.
func (acc *DerivedVectorsAccessor) read(names []string, reals []int, derive func(*vector.Table) (*vector.Table, error)) (*vector.Table, error) {
	side := func(p ports.VectorProvider) (*vector.Table, error) {
		t, err := p.Vectors(names, acc.opts.Frequency, reals)
		if err != nil {
			return nil, err
		}
		return derive(t)
	}

	a, err := side(acc.a)
	if err != nil {
		return nil, fmt.Errorf("ensemble %s: %w", acc.Name(), err)
	}
	if acc.b == nil {
		return a, nil
	}
	b, err := side(acc.b)
	if err != nil {
		return nil, fmt.Errorf("ensemble %s: %w", acc.Name(), err)
	}
	return delta.ComputeDeltaTable(a, b)
}

func (acc *DerivedVectorsAccessor) rebase(table *vector.Table) (*vector.Table, error) {
	if acc.opts.RelativeDate == nil {
		return table, nil
	}
	return relative.MakeRelativeToDate(table, *acc.opts.RelativeDate)
}

func noData(reals []int) bool {
	return reals != nil && len(reals) == 0
}

func names(classes []vector.Classification) []string {
	out := make([]string, len(classes))
	for i, c := range classes {
		out[i] = c.Name
	}
	return out
}

// mergeFailures appends failures of vectors not already reported.
func mergeFailures(into, from calculator.Errors) calculator.Errors {
	for _, f := range from {
		dup := false
		for _, existing := range into {
			if existing.Vector == f.Vector {
				dup = true
				break
			}
		}
		if !dup {
			into = append(into, f)
		}
	}
	return into
}
