package api

import (
	"enstats/adapters/stats/calculator"
	"enstats/app"
	"enstats/domain/calc"
	"enstats/domain/frequency"
	"enstats/domain/stats"
	"enstats/domain/vector"
)

// DeltaRequest names the two sides of a delta ensemble.
type DeltaRequest struct {
	EnsembleA string `json:"ensemble_a"`
	EnsembleB string `json:"ensemble_b"`
}

// VectorsRequest is the body of POST /api/vectors and POST /api/statistics.
// An absent realizations field selects every realization; an empty list
// selects none.
type VectorsRequest struct {
	Ensembles    []string          `json:"ensembles"`
	Deltas       []DeltaRequest    `json:"deltas"`
	Vectors      []string          `json:"vectors"`
	Expressions  []calc.Expression `json:"expressions"`
	Frequency    string            `json:"frequency"`
	Realizations []int             `json:"realizations"`
	RelativeDate string            `json:"relative_date"`
}

// EnsembleInfo describes one selectable ensemble.
type EnsembleInfo struct {
	Name      string `json:"name"`
	Kind      string `json:"kind"`
	EnsembleA string `json:"ensemble_a,omitempty"`
	EnsembleB string `json:"ensemble_b,omitempty"`
}

// VectorInfo describes one raw vector of an ensemble.
type VectorInfo struct {
	Name    string `json:"name"`
	Unit    string `json:"unit,omitempty"`
	IsTotal bool   `json:"is_total"`
}

// EnsembleVectorsResponse is returned by GET /api/ensembles/{name}/vectors.
type EnsembleVectorsResponse struct {
	Ensemble     string       `json:"ensemble"`
	Realizations []int        `json:"realizations"`
	Vectors      []VectorInfo `json:"vectors"`
}

// DatesResponse is returned by GET /api/ensembles/{name}/dates.
type DatesResponse struct {
	Ensemble  string   `json:"ensemble"`
	Frequency string   `json:"frequency"`
	Dates     []string `json:"dates"`
}

// FailureInfo reports one calculated vector that could not be evaluated.
type FailureInfo struct {
	Vector string `json:"vector"`
	Error  string `json:"error"`
}

// TableResponse is one vector table. Tables of per-interval and per-day
// vectors also carry the interval label of every row.
type TableResponse struct {
	Table     *vector.Table
	Intervals []string
}

func (t TableResponse) MarshalJSON() ([]byte, error) {
	return t.Table.MarshalLabeledJSON(t.Intervals)
}

// EnsembleTablesResponse holds the vector tables of one ensemble.
type EnsembleTablesResponse struct {
	Ensemble     string          `json:"ensemble"`
	Realizations []int           `json:"realizations,omitempty"`
	Tables       []TableResponse `json:"tables"`
}

// NewEnsembleTablesResponses converts service tables to their wire form,
// labelling per-interval and per-day rows at frequency f.
func NewEnsembleTablesResponses(ensembles []app.EnsembleTables, f frequency.Frequency) []EnsembleTablesResponse {
	out := make([]EnsembleTablesResponse, 0, len(ensembles))
	for _, e := range ensembles {
		tables := make([]TableResponse, 0, len(e.Tables))
		for _, t := range e.Tables {
			tables = append(tables, TableResponse{Table: t, Intervals: app.IntervalLabels(t, f)})
		}
		out = append(out, EnsembleTablesResponse{
			Ensemble:     e.Ensemble,
			Realizations: e.Realizations,
			Tables:       tables,
		})
	}
	return out
}

// EnsembleStatisticsResponse holds the statistics tables of one ensemble.
type EnsembleStatisticsResponse struct {
	Ensemble string         `json:"ensemble"`
	Tables   []*stats.Table `json:"tables"`
}

// VectorsResponse is returned by POST /api/vectors.
type VectorsResponse struct {
	Ensembles []EnsembleTablesResponse `json:"ensembles"`
	Unknown   map[string][]string      `json:"unknown_vectors,omitempty"`
	Failures  map[string][]FailureInfo `json:"failures,omitempty"`
}

// StatisticsResponse is returned by POST /api/statistics.
type StatisticsResponse struct {
	Ensembles []EnsembleStatisticsResponse `json:"ensembles"`
	Unknown   map[string][]string          `json:"unknown_vectors,omitempty"`
	Failures  map[string][]FailureInfo     `json:"failures,omitempty"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func failureInfos(all map[string]calculator.Errors) map[string][]FailureInfo {
	if len(all) == 0 {
		return nil
	}
	out := make(map[string][]FailureInfo, len(all))
	for ens, failures := range all {
		infos := make([]FailureInfo, 0, len(failures))
		for _, f := range failures {
			infos = append(infos, FailureInfo{Vector: f.Vector, Error: f.Err.Error()})
		}
		out[ens] = infos
	}
	return out
}
