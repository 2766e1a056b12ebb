package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"enstats/app"
	"enstats/domain/ensemble"
	"enstats/domain/frequency"
	"enstats/domain/stats"
	"enstats/domain/vector"
	apperrors "enstats/internal/errors"
)

const maxRequestBody = 1 << 20

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleEnsembles(w http.ResponseWriter, r *http.Request) {
	refs := s.service.Ensembles()
	out := make([]EnsembleInfo, 0, len(refs))
	for _, ref := range refs {
		switch e := ref.(type) {
		case ensemble.RealEnsemble:
			out = append(out, EnsembleInfo{Name: e.Name(), Kind: "ensemble"})
		case ensemble.Delta:
			out = append(out, EnsembleInfo{Name: e.Name(), Kind: "delta", EnsembleA: e.A, EnsembleB: e.B})
		}
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleEnsembleVectors(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	provider, err := s.service.Provider(name)
	if err != nil {
		s.writeError(w, err)
		return
	}

	names := provider.VectorNames()
	vectors := make([]VectorInfo, 0, len(names))
	for _, n := range names {
		meta, ok := provider.Metadata(n)
		if !ok {
			meta = vector.InferMetadata(n)
		}
		vectors = append(vectors, VectorInfo{Name: n, Unit: meta.Unit, IsTotal: meta.IsTotal})
	}
	s.writeJSON(w, http.StatusOK, EnsembleVectorsResponse{
		Ensemble:     name,
		Realizations: provider.Realizations(),
		Vectors:      vectors,
	})
}

func (s *Server) handleEnsembleDates(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	freq, err := s.parseFrequency(r.URL.Query().Get("frequency"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	provider, err := s.service.Provider(name)
	if err != nil {
		s.writeError(w, err)
		return
	}

	dates := provider.Dates(freq, nil)
	out := make([]string, 0, len(dates))
	for _, d := range dates {
		out = append(out, d.Format("2006-01-02"))
	}
	s.writeJSON(w, http.StatusOK, DatesResponse{Ensemble: name, Frequency: freq.String(), Dates: out})
}

func (s *Server) handleExpressions(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.service.Expressions())
}

func (s *Server) handleVectors(w http.ResponseWriter, r *http.Request) {
	req, err := s.decodeVectorsRequest(w, r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	resp, err := s.service.VectorTables(req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.observe(resp)

	out := VectorsResponse{
		Ensembles: NewEnsembleTablesResponses(resp.Ensembles, req.Frequency),
		Unknown:   resp.Unknown,
		Failures:  failureInfos(resp.Failures),
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleStatistics(w http.ResponseWriter, r *http.Request) {
	req, err := s.decodeVectorsRequest(w, r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	all, resp, err := s.service.EnsembleStatistics(req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.observe(resp)

	out := StatisticsResponse{
		Ensembles: make([]EnsembleStatisticsResponse, 0, len(all)),
		Unknown:   resp.Unknown,
		Failures:  failureInfos(resp.Failures),
	}
	for _, e := range all {
		entry := EnsembleStatisticsResponse{Ensemble: e.Ensemble, Tables: e.Tables}
		if entry.Tables == nil {
			entry.Tables = []*stats.Table{}
		}
		out.Ensembles = append(out.Ensembles, entry)
	}
	s.writeJSON(w, http.StatusOK, out)
}

// decodeVectorsRequest turns the JSON body into a service request.
func (s *Server) decodeVectorsRequest(w http.ResponseWriter, r *http.Request) (app.VectorsRequest, error) {
	var body VectorsRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		return app.VectorsRequest{}, apperrors.Wrap(apperrors.WithCode(apperrors.CodeInvalidInput, err), "malformed request body")
	}
	if len(body.Ensembles) == 0 && len(body.Deltas) == 0 {
		return app.VectorsRequest{}, apperrors.InvalidInput("at least one ensemble or delta ensemble is required")
	}

	refs := make([]ensemble.Ref, 0, len(body.Ensembles)+len(body.Deltas))
	for _, name := range body.Ensembles {
		refs = append(refs, ensemble.RealEnsemble{Ensemble: name})
	}
	for _, d := range body.Deltas {
		delta := ensemble.Delta{A: d.EnsembleA, B: d.EnsembleB}
		if err := delta.Validate(); err != nil {
			return app.VectorsRequest{}, apperrors.InvalidInput(err.Error())
		}
		refs = append(refs, delta)
	}

	freq, err := s.parseFrequency(body.Frequency)
	if err != nil {
		return app.VectorsRequest{}, err
	}

	var relative *time.Time
	if body.RelativeDate != "" {
		t, err := vector.ParseDate(body.RelativeDate)
		if err != nil {
			return app.VectorsRequest{}, apperrors.InvalidInput(err.Error())
		}
		relative = &t
	}

	return app.VectorsRequest{
		Ensembles:    refs,
		Vectors:      body.Vectors,
		Expressions:  body.Expressions,
		Frequency:    freq,
		Realizations: body.Realizations,
		RelativeDate: relative,
	}, nil
}

// parseFrequency falls back to the server default for an empty value.
func (s *Server) parseFrequency(value string) (frequency.Frequency, error) {
	if value == "" {
		return s.defaultFrequency, nil
	}
	return frequency.Parse(value)
}

func (s *Server) observe(resp *app.VectorsResponse) {
	for _, e := range resp.Ensembles {
		s.metrics.VectorTablesTotal.WithLabelValues(e.Ensemble).Add(float64(len(e.Tables)))
	}
	for ens, failures := range resp.Failures {
		s.metrics.CalculationFailures.WithLabelValues(ens).Add(float64(len(failures)))
	}
	for ens, unknown := range resp.Unknown {
		s.metrics.UnknownVectors.WithLabelValues(ens).Add(float64(len(unknown)))
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	appErr := apperrors.FromDomain(err)
	status := apperrors.HTTPStatus(appErr)
	if status >= http.StatusInternalServerError {
		s.logger.Error("%v", err)
	} else {
		s.logger.Debug("%v", err)
	}
	s.writeJSON(w, status, ErrorResponse{Code: appErr.Code, Message: appErr.Error()})
}
