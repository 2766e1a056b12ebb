package ports

import (
	"sort"
	"time"

	"enstats/domain/core"
	"enstats/domain/frequency"
	"enstats/domain/vector"
)

// VectorProvider exposes the raw vector data of one ensemble. Reads are
// served from memory; any I/O happens when the provider is built.
type VectorProvider interface {
	// VectorNames lists the vectors the provider can deliver.
	VectorNames() []string
	// Realizations lists the realizations in ascending order.
	Realizations() []int
	// Vectors returns the named vectors resampled to freq. A nil reals reads
	// every realization.
	Vectors(names []string, freq frequency.Frequency, reals []int) (*vector.Table, error)
	// Metadata describes one vector.
	Metadata(name string) (vector.Metadata, bool)
	// Dates returns the sorted union of dates at freq for reals (nil = all).
	Dates(freq frequency.Frequency, reals []int) []time.Time
}

// ProviderSet maps ensemble names to providers.
type ProviderSet map[string]VectorProvider

// Names returns the ensemble names sorted.
func (s ProviderSet) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Get returns the provider of ensemble name or ErrUnknownEnsemble.
func (s ProviderSet) Get(name string) (VectorProvider, error) {
	p, ok := s[name]
	if !ok {
		return nil, core.NewUnknownEnsembleError(name)
	}
	return p, nil
}

// Catalog adapts a provider to the vector classification catalog.
func Catalog(p VectorProvider) vector.Catalog {
	names := p.VectorNames()
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return providerCatalog{provider: p, names: set}
}

type providerCatalog struct {
	provider VectorProvider
	names    map[string]struct{}
}

func (c providerCatalog) HasVector(name string) bool {
	_, ok := c.names[name]
	return ok
}

func (c providerCatalog) IsTotal(name string) bool {
	meta, ok := c.provider.Metadata(name)
	return ok && meta.IsTotal
}
