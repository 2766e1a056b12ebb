package vector

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeCatalog map[string]bool

func (c fakeCatalog) HasVector(name string) bool {
	_, ok := c[name]
	return ok
}

func (c fakeCatalog) IsTotal(name string) bool { return c[name] }

func TestClassify(t *testing.T) {
	catalog := fakeCatalog{"FOPT": true, "FOPR": false, "WOPT:OP_1": true}
	calculated := map[string]bool{"FOPT_X2": true}

	cases := []struct {
		name string
		kind Kind
		base string
	}{
		{"FOPT", KindRaw, "FOPT"},
		{"PER_DAY_FOPT", KindPerDay, "FOPT"},
		{"PER_INTVL_WOPT:OP_1", KindPerInterval, "WOPT:OP_1"},
		{"PER_DAY_FOPR", KindUnknown, "FOPR"},
		{"PER_INTVL_FGPT", KindUnknown, "FGPT"},
		{"FOPT_X2", KindCalculated, "FOPT_X2"},
		{"FWPT", KindUnknown, "FWPT"},
	}
	for _, tc := range cases {
		got := Classify(tc.name, catalog, calculated)
		assert.Equal(t, tc.kind, got.Kind, tc.name)
		assert.Equal(t, tc.base, got.Base, tc.name)
	}
}

func TestClassifyAllDeduplicatesAndFilters(t *testing.T) {
	catalog := fakeCatalog{"FOPT": true}
	classes := ClassifyAll([]string{"FOPT", "PER_DAY_FOPT", "FOPT", "X"}, catalog, nil)
	assert.Len(t, classes, 3)

	derived := OfKind(classes, KindPerDay, KindPerInterval)
	assert.Len(t, derived, 1)
	assert.Equal(t, "PER_DAY_FOPT", derived[0].Name)
}

func TestInferIsTotal(t *testing.T) {
	assert.True(t, InferIsTotal("FOPT"))
	assert.True(t, InferIsTotal("WOPTH:OP_1"))
	assert.False(t, InferIsTotal("FOPR"))
	assert.False(t, InferIsTotal("FWCT"))
	assert.False(t, InferIsTotal("WWCTH:OP_2"))
	assert.Equal(t, "WOPT", Keyword("WOPT:OP_1"))
	assert.Equal(t, "PER_DAY_FOPT", PerDayName("FOPT"))
	assert.Equal(t, "PER_INTVL_FOPT", PerIntervalName("FOPT"))
}
