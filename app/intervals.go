package app

import (
	"strings"

	"enstats/adapters/stats/interval"
	"enstats/domain/frequency"
	"enstats/domain/vector"
)

// IntervalLabels returns the interval label of every row of a table holding
// per-interval or per-day vectors, or nil for any other table.
func IntervalLabels(t *vector.Table, f frequency.Frequency) []string {
	if t == nil || !holdsIntervalVectors(t) {
		return nil
	}
	labels, err := interval.Labels(t, f)
	if err != nil {
		return nil
	}
	return labels
}

func holdsIntervalVectors(t *vector.Table) bool {
	for _, name := range t.VectorNames() {
		if strings.HasPrefix(name, vector.PerDayPrefix) || strings.HasPrefix(name, vector.PerIntervalPrefix) {
			return true
		}
	}
	return false
}
