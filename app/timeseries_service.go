package app

import (
	"errors"
	"time"

	"enstats/adapters/stats/calculator"
	"enstats/adapters/stats/engine"
	"enstats/domain/calc"
	"enstats/domain/core"
	"enstats/domain/ensemble"
	"enstats/domain/frequency"
	"enstats/domain/stats"
	"enstats/domain/vector"
	"enstats/internal"
	"enstats/ports"
)

// VectorsRequest asks for vectors of one or more ensembles. Realizations nil
// means every realization.
type VectorsRequest struct {
	Ensembles    []ensemble.Ref
	Vectors      []string
	Expressions  []calc.Expression
	Frequency    frequency.Frequency
	Realizations []int
	RelativeDate *time.Time
}

// EnsembleTables holds the non-empty tables produced for one ensemble, one
// per derivation path.
type EnsembleTables struct {
	Ensemble string `json:"ensemble"`

	// Realizations is the effective filter; nil means all.
	Realizations []int           `json:"realizations,omitempty"`
	Tables       []*vector.Table `json:"tables"`
}

// VectorsResponse is the result of TimeSeriesService.VectorTables.
type VectorsResponse struct {
	Ensembles []EnsembleTables
	// Unknown lists, per ensemble, requested vectors that were ignored.
	Unknown map[string][]string
	// Failures lists calculated vectors that could not be evaluated.
	Failures map[string]calculator.Errors
}

// EnsembleStatistics holds one statistics table per vector table of an
// ensemble.
type EnsembleStatistics struct {
	Ensemble string         `json:"ensemble"`
	Tables   []*stats.Table `json:"tables"`
}

// TimeSeriesService answers vector and statistics requests over a fixed set
// of ensemble providers.
type TimeSeriesService struct {
	providers   ports.ProviderSet
	deltas      *ensemble.DeltaSet
	expressions []calc.Expression
	logger      *internal.Logger
}

// NewTimeSeriesService builds the service. deltas and expressions are the
// predefined delta ensembles and calculated vectors offered to clients.
func NewTimeSeriesService(providers ports.ProviderSet, deltas *ensemble.DeltaSet, expressions []calc.Expression, logger *internal.Logger) *TimeSeriesService {
	if deltas == nil {
		deltas = ensemble.NewDeltaSet()
	}
	if logger == nil {
		logger = internal.DefaultLogger
	}
	validated := make([]calc.Expression, 0, len(expressions))
	for _, e := range expressions {
		v, err := calculator.Validate(e)
		if err != nil {
			logger.Warn("predefined expression %s is invalid: %v", e.Name, err)
		}
		validated = append(validated, v)
	}
	return &TimeSeriesService{
		providers:   providers,
		deltas:      deltas,
		expressions: validated,
		logger:      logger,
	}
}

// Ensembles returns the real ensemble names followed by the predefined
// delta ensembles.
func (s *TimeSeriesService) Ensembles() []ensemble.Ref {
	refs := make([]ensemble.Ref, 0, len(s.providers)+s.deltas.Len())
	for _, name := range s.providers.Names() {
		refs = append(refs, ensemble.RealEnsemble{Ensemble: name})
	}
	for _, d := range s.deltas.Items() {
		refs = append(refs, d)
	}
	return refs
}

// Expressions returns the predefined calculated vectors.
func (s *TimeSeriesService) Expressions() []calc.Expression {
	return append([]calc.Expression(nil), s.expressions...)
}

// Provider returns the provider of a real ensemble.
func (s *TimeSeriesService) Provider(name string) (ports.VectorProvider, error) {
	return s.providers.Get(name)
}

// VectorTables builds the vector tables of every requested ensemble.
// Unknown ensembles, invalid frequencies and derivation failures abort the
// request; unknown vectors and failing calculated vectors are reported in
// the response.
func (s *TimeSeriesService) VectorTables(req VectorsRequest) (*VectorsResponse, error) {
	if !req.Frequency.IsValid() {
		return nil, core.NewInvalidFrequencyError(req.Frequency.String())
	}
	opts := AccessorOptions{
		Vectors:      req.Vectors,
		Expressions:  s.mergeExpressions(req.Expressions),
		Frequency:    req.Frequency,
		RelativeDate: req.RelativeDate,
	}

	resp := &VectorsResponse{
		Unknown:  make(map[string][]string),
		Failures: make(map[string]calculator.Errors),
	}
	for _, ref := range req.Ensembles {
		acc, err := NewDerivedVectorsAccessor(ref, s.providers, opts)
		if err != nil {
			return nil, err
		}
		log := s.logger.With("ensemble", acc.Name())

		if unknown := acc.UnknownVectors(); len(unknown) > 0 {
			log.Warn("ignoring vectors %v", unknown)
			resp.Unknown[acc.Name()] = unknown
		}

		var reals []int
		if req.Realizations != nil {
			reals = acc.CreateValidRealizationsQuery(req.Realizations)
			if len(reals) == 0 && reals != nil {
				log.Debug("no requested realization is available, skipping")
				continue
			}
		}

		entry := EnsembleTables{Ensemble: acc.Name(), Realizations: reals}
		add := func(t *vector.Table) {
			if t != nil && !t.IsEmpty() && len(t.VectorNames()) > 0 {
				entry.Tables = append(entry.Tables, t)
			}
		}

		if acc.HasProviderVectors() {
			t, err := acc.GetProviderVectorsTable(reals)
			if err != nil {
				return nil, err
			}
			add(t)
		}
		if acc.HasPerIntervalAndPerDayVectors() {
			t, err := acc.CreatePerIntervalAndPerDayVectorsTable(reals)
			if err != nil {
				return nil, err
			}
			add(t)
		}
		if acc.HasVectorCalculatorExpressions() {
			t, err := acc.CreateCalculatedVectorsTable(reals)
			var failures calculator.Errors
			switch {
			case errors.As(err, &failures):
				log.Warn("%v", failures)
				resp.Failures[acc.Name()] = failures
			case err != nil:
				return nil, err
			}
			add(t)
		}

		log.Debug("built %d tables", len(entry.Tables))
		resp.Ensembles = append(resp.Ensembles, entry)
	}
	return resp, nil
}

// Statistics aggregates one vector table across realizations.
func (s *TimeSeriesService) Statistics(table *vector.Table) (*stats.Table, error) {
	return engine.Aggregate(table)
}

// EnsembleStatistics builds the vector tables of req and aggregates each.
func (s *TimeSeriesService) EnsembleStatistics(req VectorsRequest) ([]EnsembleStatistics, *VectorsResponse, error) {
	resp, err := s.VectorTables(req)
	if err != nil {
		return nil, nil, err
	}
	out := make([]EnsembleStatistics, 0, len(resp.Ensembles))
	for _, e := range resp.Ensembles {
		entry := EnsembleStatistics{Ensemble: e.Ensemble}
		for _, t := range e.Tables {
			st, err := s.Statistics(t)
			if err != nil {
				return nil, nil, err
			}
			entry.Tables = append(entry.Tables, st)
		}
		out = append(out, entry)
	}
	return out, resp, nil
}

// mergeExpressions returns the predefined expressions with request
// expressions validated and overriding those of the same name.
func (s *TimeSeriesService) mergeExpressions(extra []calc.Expression) []calc.Expression {
	if len(extra) == 0 {
		return s.expressions
	}
	byName := make(map[string]int, len(s.expressions)+len(extra))
	merged := make([]calc.Expression, 0, len(s.expressions)+len(extra))
	for _, e := range s.expressions {
		byName[e.Name] = len(merged)
		merged = append(merged, e)
	}
	for _, e := range extra {
		v, err := calculator.Validate(e)
		if err != nil {
			s.logger.Debug("expression %s is invalid: %v", e.Name, err)
		}
		v.IsDynamic = true
		if i, ok := byName[v.Name]; ok {
			merged[i] = v
			continue
		}
		byName[v.Name] = len(merged)
		merged = append(merged, v)
	}
	return merged
}
