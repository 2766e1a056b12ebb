package app

import (
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"enstats/domain/calc"
	"enstats/domain/core"
	"enstats/domain/ensemble"
	"enstats/domain/frequency"
	"enstats/domain/stats"
	"enstats/internal"
	"enstats/internal/testkit"
)

func newService(exprs ...calc.Expression) *TimeSeriesService {
	logger := internal.NewLoggerTo(io.Discard, internal.LogLevelError)
	deltas := ensemble.NewDeltaSet(ensemble.Delta{A: "A", B: "B"})
	return NewTimeSeriesService(fixtures(), deltas, exprs, logger)
}

func TestService_PerDayAtDailyFrequency(t *testing.T) {
	svc := newService()

	resp, err := svc.VectorTables(VectorsRequest{
		Ensembles: []ensemble.Ref{ensemble.RealEnsemble{Ensemble: "A"}},
		Vectors:   []string{"PER_DAY_FOPT"},
		Frequency: frequency.Daily,
	})
	require.NoError(t, err)
	require.Len(t, resp.Ensembles, 1)
	require.Len(t, resp.Ensembles[0].Tables, 1)

	table := resp.Ensembles[0].Tables[0]
	assert.Equal(t, 6, table.Len())
	assert.Equal(t, []float64{10, 20, 10, 20, 10, 20}, table.Column("PER_DAY_FOPT"))
	assert.Equal(t, []int{0, 1, 2}, table.Realizations())
}

func TestService_StatisticsAtFirstDateAreZero(t *testing.T) {
	svc := newService()

	result, _, err := svc.EnsembleStatistics(VectorsRequest{
		Ensembles: []ensemble.Ref{ensemble.RealEnsemble{Ensemble: "A"}},
		Vectors:   []string{"FOPT"},
		Frequency: frequency.Daily,
	})
	require.NoError(t, err)
	require.Len(t, result, 1)
	require.Len(t, result[0].Tables, 1)

	st := result[0].Tables[0]
	assert.Equal(t, 3, st.Len())
	assert.True(t, st.Dates()[0].Equal(day(1)))
	for _, s := range stats.All() {
		assert.Equal(t, 0.0, st.Column("FOPT", s)[0], "statistic %s", s)
	}
	assert.Equal(t, 30.0, st.Column("FOPT", stats.P10)[2])
}

func TestService_ZeroRowEnsemble(t *testing.T) {
	empty := testkit.NewBuilder("E", "FOPT").Total("FOPT").MustProvider()
	logger := internal.NewLoggerTo(io.Discard, internal.LogLevelError)
	svc := NewTimeSeriesService(testkit.Providers(empty), ensemble.NewDeltaSet(),
		[]calc.Expression{calc.New("FOPT_X2", "o * 2", map[string]string{"o": "FOPT"})}, logger)

	result, resp, err := svc.EnsembleStatistics(VectorsRequest{
		Ensembles: []ensemble.Ref{ensemble.RealEnsemble{Ensemble: "E"}},
		Vectors:   []string{"FOPT", "PER_DAY_FOPT", "FOPT_X2"},
		Frequency: frequency.Monthly,
	})
	require.NoError(t, err)
	assert.Empty(t, resp.Unknown["E"])
	assert.Empty(t, resp.Failures["E"])

	require.Len(t, result, 1)
	assert.Equal(t, "E", result[0].Ensemble)
	assert.Empty(t, result[0].Tables)
}

func TestService_ReportsUnknownAndFailedVectors(t *testing.T) {
	broken := calc.New("BROKEN", "o +* 2", map[string]string{"o": "FOPT"})
	svc := newService(broken)

	resp, err := svc.VectorTables(VectorsRequest{
		Ensembles: []ensemble.Ref{ensemble.RealEnsemble{Ensemble: "A"}},
		Vectors:   []string{"FOPT", "FOPT_X2", "FGPT_X2", "BROKEN", "NOPE"},
		Expressions: []calc.Expression{
			calc.New("FOPT_X2", "o * 2", map[string]string{"o": "FOPT"}),
			calc.New("FGPT_X2", "g * 2", map[string]string{"g": "FGPT"}),
		},
		Frequency: frequency.Raw,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"NOPE"}, resp.Unknown["A"])

	failures := resp.Failures["A"]
	require.Len(t, failures, 2)
	failed := map[string]error{}
	for _, f := range failures {
		failed[f.Vector] = f.Err
	}
	assert.True(t, errors.Is(failed["FGPT_X2"], core.ErrUnresolvedVariable))
	assert.True(t, errors.Is(failed["BROKEN"], core.ErrExpressionError))

	tables := resp.Ensembles[0].Tables
	require.Len(t, tables, 2)
	assert.Equal(t, []string{"FOPT"}, tables[0].VectorNames())
	assert.Equal(t, []string{"FOPT_X2"}, tables[1].VectorNames())
}

func TestService_RealizationFilter(t *testing.T) {
	svc := newService()
	req := VectorsRequest{
		Ensembles: []ensemble.Ref{
			ensemble.RealEnsemble{Ensemble: "A"},
			ensemble.RealEnsemble{Ensemble: "B"},
		},
		Vectors:   []string{"FOPT"},
		Frequency: frequency.Raw,
	}

	req.Realizations = []int{2, 1, 0}
	resp, err := svc.VectorTables(req)
	require.NoError(t, err)
	require.Len(t, resp.Ensembles, 2)
	assert.Nil(t, resp.Ensembles[0].Realizations)
	assert.Equal(t, []int{1}, resp.Ensembles[1].Realizations)

	// no realization of B is 0, so B is skipped
	req.Realizations = []int{0}
	resp, err = svc.VectorTables(req)
	require.NoError(t, err)
	require.Len(t, resp.Ensembles, 1)
	assert.Equal(t, "A", resp.Ensembles[0].Ensemble)
	assert.Equal(t, []int{0}, resp.Ensembles[0].Tables[0].Realizations())
}

func TestService_DeltaEnsemble(t *testing.T) {
	svc := newService()
	refs := svc.Ensembles()
	require.Len(t, refs, 3)
	assert.Equal(t, "(A)-(B)", refs[2].Name())

	resp, err := svc.VectorTables(VectorsRequest{
		Ensembles: []ensemble.Ref{refs[2]},
		Vectors:   []string{"FOPT"},
		Frequency: frequency.Daily,
	})
	require.NoError(t, err)
	require.Len(t, resp.Ensembles, 1)
	assert.Equal(t, []float64{0, 5, 20}, resp.Ensembles[0].Tables[0].Column("FOPT"))
}

func TestService_Errors(t *testing.T) {
	svc := newService()

	_, err := svc.VectorTables(VectorsRequest{
		Ensembles: []ensemble.Ref{ensemble.RealEnsemble{Ensemble: "missing"}},
		Vectors:   []string{"FOPT"},
	})
	assert.True(t, errors.Is(err, core.ErrUnknownEnsemble))

	_, err = svc.VectorTables(VectorsRequest{
		Ensembles: []ensemble.Ref{ensemble.RealEnsemble{Ensemble: "A"}},
		Frequency: frequency.Frequency(42),
	})
	assert.True(t, errors.Is(err, core.ErrInvalidFrequency))
}

func TestService_PredefinedExpressionsAreValidated(t *testing.T) {
	svc := newService(
		calc.New("FOPT_X2", "o * 2", map[string]string{"o": "FOPT"}),
		calc.New("BROKEN", "o +* 2", map[string]string{"o": "FOPT"}),
	)

	exprs := svc.Expressions()
	require.Len(t, exprs, 2)
	assert.True(t, exprs[0].IsValid)
	assert.False(t, exprs[1].IsValid)

	resp, err := svc.VectorTables(VectorsRequest{
		Ensembles: []ensemble.Ref{ensemble.RealEnsemble{Ensemble: "A"}},
		Vectors:   []string{"FOPT_X2"},
		Frequency: frequency.Raw,
	})
	require.NoError(t, err)
	assert.Empty(t, resp.Failures["A"])
	assert.Equal(t, []float64{0, 20, 60, 0, 20, 60, 0, 20, 60}, resp.Ensembles[0].Tables[0].Column("FOPT_X2"))
}
