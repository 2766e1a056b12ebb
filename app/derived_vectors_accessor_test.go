package app

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"enstats/adapters/provider/memory"
	"enstats/adapters/stats/calculator"
	"enstats/adapters/stats/engine"
	"enstats/domain/calc"
	"enstats/domain/core"
	"enstats/domain/ensemble"
	"enstats/domain/frequency"
	"enstats/domain/stats"
	"enstats/domain/vector"
	"enstats/internal/testkit"
	"enstats/ports"
)

func day(d int) time.Time {
	return time.Date(2021, time.January, d, 0, 0, 0, 0, time.UTC)
}

// ensembleA has three realizations with FOPT 0, 10, 30 on three consecutive days.
func ensembleA() *memory.Provider {
	b := testkit.NewBuilder("A", "FOPT", "FOPR").Total("FOPT").Rate("FOPR")
	for r := 0; r < 3; r++ {
		b.Series(r, []time.Time{day(1), day(2), day(3)}, []float64{0, 10, 30}, []float64{10, 20, 20})
	}
	return b.MustProvider()
}

// ensembleB overlaps A on realization 1 only.
func ensembleB() *memory.Provider {
	b := testkit.NewBuilder("B", "FOPT", "FOPR").Total("FOPT").Rate("FOPR")
	for _, r := range []int{1, 3} {
		b.Series(r, []time.Time{day(1), day(2), day(3)}, []float64{0, 5, 10}, []float64{1, 1, 1})
	}
	return b.MustProvider()
}

func fixtures() ports.ProviderSet {
	return testkit.Providers(ensembleA(), ensembleB())
}

func mustValidate(t *testing.T, e calc.Expression) calc.Expression {
	t.Helper()
	v, err := calculator.Validate(e)
	require.NoError(t, err)
	return v
}

func TestAccessor_Classification(t *testing.T) {
	double := mustValidate(t, calc.New("FOPT_X2", "o * 2", map[string]string{"o": "FOPT"}))
	acc, err := NewDerivedVectorsAccessor(ensemble.RealEnsemble{Ensemble: "A"}, fixtures(), AccessorOptions{
		Vectors:     []string{"FOPT", "PER_DAY_FOPT", "PER_INTVL_FOPR", "FOPT_X2", "WOPT:OP_1"},
		Expressions: []calc.Expression{double},
		Frequency:   frequency.Raw,
	})
	require.NoError(t, err)

	assert.Equal(t, "A", acc.Name())
	assert.True(t, acc.HasProviderVectors())
	assert.True(t, acc.HasPerIntervalAndPerDayVectors())
	assert.True(t, acc.HasVectorCalculatorExpressions())
	// FOPR is a rate, so it has no per-interval vector
	assert.Equal(t, []string{"PER_INTVL_FOPR", "WOPT:OP_1"}, acc.UnknownVectors())
	assert.Equal(t, []int{0, 1, 2}, acc.Realizations())
}

func TestAccessor_PerDayUsesElapsedDays(t *testing.T) {
	b := testkit.NewBuilder("R", "FOPT").Total("FOPT").
		Series(0, []time.Time{day(1), day(11), day(31)}, []float64{0, 10, 30})
	acc, err := NewDerivedVectorsAccessor(ensemble.RealEnsemble{Ensemble: "R"}, testkit.Providers(b.MustProvider()), AccessorOptions{
		Vectors:   []string{"PER_DAY_FOPT", "PER_INTVL_FOPT"},
		Frequency: frequency.Raw,
	})
	require.NoError(t, err)
	assert.False(t, acc.HasProviderVectors())

	table, err := acc.CreatePerIntervalAndPerDayVectorsTable(nil)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 1}, table.Column("PER_DAY_FOPT"))
	assert.Equal(t, []float64{10, 20}, table.Column("PER_INTVL_FOPT"))
}

func TestAccessor_DeltaEnsemble(t *testing.T) {
	ref := ensemble.Delta{A: "A", B: "B"}
	acc, err := NewDerivedVectorsAccessor(ref, fixtures(), AccessorOptions{
		Vectors:   []string{"FOPT", "PER_INTVL_FOPT"},
		Frequency: frequency.Raw,
	})
	require.NoError(t, err)

	assert.Equal(t, "(A)-(B)", acc.Name())
	assert.Equal(t, []int{1}, acc.Realizations())
	assert.Nil(t, acc.CreateValidRealizationsQuery([]int{1}))
	assert.Equal(t, []int{}, acc.CreateValidRealizationsQuery([]int{0, 2}))

	raw, err := acc.GetProviderVectorsTable(nil)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, raw.Realizations())
	assert.Equal(t, []float64{0, 5, 20}, raw.Column("FOPT"))

	derived, err := acc.CreatePerIntervalAndPerDayVectorsTable(nil)
	require.NoError(t, err)
	assert.Equal(t, []float64{5, 15}, derived.Column("PER_INTVL_FOPT"))
}

func TestAccessor_UnknownEnsemble(t *testing.T) {
	_, err := NewDerivedVectorsAccessor(ensemble.RealEnsemble{Ensemble: "C"}, fixtures(), AccessorOptions{})
	assert.True(t, errors.Is(err, core.ErrUnknownEnsemble))

	_, err = NewDerivedVectorsAccessor(ensemble.Delta{A: "A", B: "C"}, fixtures(), AccessorOptions{})
	assert.True(t, errors.Is(err, core.ErrUnknownEnsemble))
}

func TestAccessor_EmptyFilterYieldsShapedTables(t *testing.T) {
	double := mustValidate(t, calc.New("FOPT_X2", "o * 2", map[string]string{"o": "FOPT"}))
	acc, err := NewDerivedVectorsAccessor(ensemble.RealEnsemble{Ensemble: "A"}, fixtures(), AccessorOptions{
		Vectors:     []string{"FOPT", "PER_DAY_FOPT", "FOPT_X2"},
		Expressions: []calc.Expression{double},
		Frequency:   frequency.Daily,
	})
	require.NoError(t, err)

	reals := acc.CreateValidRealizationsQuery([]int{99})
	require.NotNil(t, reals)
	require.Empty(t, reals)

	raw, err := acc.GetProviderVectorsTable(reals)
	require.NoError(t, err)
	assert.Equal(t, 0, raw.Len())
	assert.Equal(t, []string{"FOPT"}, raw.VectorNames())

	derived, err := acc.CreatePerIntervalAndPerDayVectorsTable(reals)
	require.NoError(t, err)
	assert.Equal(t, 0, derived.Len())
	assert.Equal(t, []string{"PER_DAY_FOPT"}, derived.VectorNames())

	calculated, err := acc.CreateCalculatedVectorsTable(reals)
	require.NoError(t, err)
	assert.Equal(t, 0, calculated.Len())
	assert.Equal(t, []string{"FOPT_X2"}, calculated.VectorNames())

	// empty tables aggregate to zero-row statistics with every column
	st, err := engine.Aggregate(derived)
	require.NoError(t, err)
	assert.Equal(t, 0, st.Len())
	assert.Len(t, st.Columns(), len(stats.All()))
}

func TestAccessor_CalculatedVectors(t *testing.T) {
	exprs := []calc.Expression{
		mustValidate(t, calc.New("FOPT_X2", "o * 2", map[string]string{"o": "FOPT"})),
		mustValidate(t, calc.New("FGPT_X2", "g * 2", map[string]string{"g": "FGPT"})),
	}
	acc, err := NewDerivedVectorsAccessor(ensemble.RealEnsemble{Ensemble: "A"}, fixtures(), AccessorOptions{
		Vectors:     []string{"FOPT_X2", "FGPT_X2"},
		Expressions: exprs,
		Frequency:   frequency.Raw,
	})
	require.NoError(t, err)

	table, err := acc.CreateCalculatedVectorsTable([]int{0})
	var failures calculator.Errors
	require.True(t, errors.As(err, &failures))
	require.Len(t, failures, 1)
	assert.Equal(t, "FGPT_X2", failures[0].Vector)
	assert.True(t, errors.Is(err, core.ErrUnresolvedVariable))

	require.NotNil(t, table)
	assert.Equal(t, []float64{0, 20, 60}, table.Column("FOPT_X2"))
	assert.False(t, table.HasVector("FGPT_X2"))
}

func TestAccessor_RelativeDate(t *testing.T) {
	baseline := day(2)
	acc, err := NewDerivedVectorsAccessor(ensemble.RealEnsemble{Ensemble: "A"}, fixtures(), AccessorOptions{
		Vectors:      []string{"FOPT"},
		Frequency:    frequency.Raw,
		RelativeDate: &baseline,
	})
	require.NoError(t, err)

	table, err := acc.GetProviderVectorsTable([]int{0})
	require.NoError(t, err)
	assert.Equal(t, []float64{-10, 0, 20}, table.Column("FOPT"))
}

func TestAccessor_UnknownRealizationKeepsShape(t *testing.T) {
	double := mustValidate(t, calc.New("FOPT_X2", "o * 2", map[string]string{"o": "FOPT"}))
	acc, err := NewDerivedVectorsAccessor(ensemble.RealEnsemble{Ensemble: "A"}, fixtures(), AccessorOptions{
		Vectors:     []string{"PER_DAY_FOPT", "FOPT_X2"},
		Expressions: []calc.Expression{double},
		Frequency:   frequency.Daily,
	})
	require.NoError(t, err)

	perDay, err := acc.CreatePerIntervalAndPerDayVectorsTable([]int{99})
	require.NoError(t, err)
	require.NotNil(t, perDay)
	assert.Equal(t, 0, perDay.Len())
	assert.Equal(t, []string{"PER_DAY_FOPT"}, perDay.VectorNames())

	calculated, err := acc.CreateCalculatedVectorsTable([]int{99})
	require.NoError(t, err)
	require.NotNil(t, calculated)
	assert.Equal(t, 0, calculated.Len())
	assert.Equal(t, []string{"FOPT_X2"}, calculated.VectorNames())
}

func TestAccessor_ZeroRowEnsembleAggregates(t *testing.T) {
	empty := testkit.NewBuilder("E", "FOPT").Total("FOPT").MustProvider()
	double := mustValidate(t, calc.New("FOPT_X2", "o * 2", map[string]string{"o": "FOPT"}))
	acc, err := NewDerivedVectorsAccessor(ensemble.RealEnsemble{Ensemble: "E"}, testkit.Providers(empty), AccessorOptions{
		Vectors:     []string{"FOPT", "PER_DAY_FOPT", "PER_INTVL_FOPT", "FOPT_X2"},
		Expressions: []calc.Expression{double},
		Frequency:   frequency.Monthly,
	})
	require.NoError(t, err)
	assert.Empty(t, acc.UnknownVectors())

	raw, err := acc.GetProviderVectorsTable(nil)
	require.NoError(t, err)
	perInterval, err := acc.CreatePerIntervalAndPerDayVectorsTable(nil)
	require.NoError(t, err)
	calculated, err := acc.CreateCalculatedVectorsTable(nil)
	require.NoError(t, err)

	for _, tc := range []struct {
		name    string
		vectors []string
		got     *vector.Table
	}{
		{"raw", []string{"FOPT"}, raw},
		{"per interval", []string{"PER_DAY_FOPT", "PER_INTVL_FOPT"}, perInterval},
		{"calculated", []string{"FOPT_X2"}, calculated},
	} {
		t.Run(tc.name, func(t *testing.T) {
			require.NotNil(t, tc.got)
			assert.Equal(t, 0, tc.got.Len())
			assert.ElementsMatch(t, tc.vectors, tc.got.VectorNames())

			st, err := engine.Aggregate(tc.got)
			require.NoError(t, err)
			assert.Equal(t, 0, st.Len())
			assert.ElementsMatch(t, tc.vectors, st.Vectors())
			assert.Len(t, st.Columns(), len(tc.vectors)*len(stats.All()))
		})
	}
}
