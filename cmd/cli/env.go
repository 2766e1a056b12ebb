package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"enstats/app"
	"enstats/domain/ensemble"
	"enstats/domain/frequency"
	"enstats/domain/vector"
	"enstats/internal"
	"enstats/internal/config"
	"enstats/internal/container"
	apperrors "enstats/internal/errors"
)

type globalOptions struct {
	catalog  string
	logLevel string
}

// setup loads the configuration and, unless loadData is false, every
// catalog ensemble.
func (o *globalOptions) setup(ctx context.Context, loadData bool) (*container.Container, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if o.catalog != "" {
		cfg.Data.EnsemblesFile = o.catalog
	}
	level := cfg.LogLevel
	if o.logLevel != "" {
		level = o.logLevel
	}
	logger := internal.NewConsoleLogger(internal.ParseLogLevel(level))

	c, err := container.New(cfg, logger)
	if err != nil {
		return nil, err
	}
	if loadData {
		if err := c.Init(ctx); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// requestOptions are the flags shared by vectors and stats.
type requestOptions struct {
	ensembles    []string
	deltas       []string
	vectors      []string
	frequency    string
	realizations []int
	relativeDate string
}

func (o *requestOptions) register(cmd *cobra.Command) {
	cmd.Flags().StringSliceVarP(&o.ensembles, "ensemble", "e", nil, "Ensemble name (repeatable)")
	cmd.Flags().StringSliceVarP(&o.deltas, "delta", "d", nil, "Delta ensemble as A:B (repeatable)")
	cmd.Flags().StringSliceVarP(&o.vectors, "vector", "v", nil, "Vector name (repeatable)")
	cmd.Flags().StringVarP(&o.frequency, "frequency", "f", "", "Resampling frequency (default $DEFAULT_FREQUENCY)")
	cmd.Flags().IntSliceVarP(&o.realizations, "realization", "r", nil, "Realization filter (repeatable)")
	cmd.Flags().StringVar(&o.relativeDate, "relative-date", "", "Report values relative to this date")
	_ = cmd.MarkFlagRequired("vector")
}

func (o *requestOptions) build(cmd *cobra.Command, defaultFrequency frequency.Frequency) (app.VectorsRequest, error) {
	if len(o.ensembles) == 0 && len(o.deltas) == 0 {
		return app.VectorsRequest{}, apperrors.InvalidInput("at least one --ensemble or --delta is required")
	}
	refs := make([]ensemble.Ref, 0, len(o.ensembles)+len(o.deltas))
	for _, name := range o.ensembles {
		refs = append(refs, ensemble.RealEnsemble{Ensemble: name})
	}
	for _, d := range o.deltas {
		delta, err := parseDelta(d)
		if err != nil {
			return app.VectorsRequest{}, err
		}
		refs = append(refs, delta)
	}

	freq := defaultFrequency
	if o.frequency != "" {
		f, err := frequency.Parse(o.frequency)
		if err != nil {
			return app.VectorsRequest{}, err
		}
		freq = f
	}

	var relative *time.Time
	if o.relativeDate != "" {
		t, err := vector.ParseDate(o.relativeDate)
		if err != nil {
			return app.VectorsRequest{}, apperrors.InvalidInput(err.Error())
		}
		relative = &t
	}

	req := app.VectorsRequest{
		Ensembles:    refs,
		Vectors:      o.vectors,
		Frequency:    freq,
		RelativeDate: relative,
	}
	// An explicitly empty filter is not expressible on the command line, so
	// only a given flag restricts realizations.
	if cmd.Flags().Changed("realization") {
		req.Realizations = o.realizations
	}
	return req, nil
}

func parseDelta(value string) (ensemble.Delta, error) {
	a, b, ok := strings.Cut(value, ":")
	delta := ensemble.Delta{A: strings.TrimSpace(a), B: strings.TrimSpace(b)}
	if !ok {
		return delta, apperrors.InvalidInput(fmt.Sprintf("delta %q must be written as A:B", value))
	}
	if err := delta.Validate(); err != nil {
		return delta, apperrors.InvalidInput(err.Error())
	}
	return delta, nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// reportIssues lists unknown and failed vectors on stderr.
func reportIssues(w io.Writer, resp *app.VectorsResponse) {
	for ens, unknown := range resp.Unknown {
		fmt.Fprintf(w, "%s: ignored unknown vectors %s\n", ens, strings.Join(unknown, ", "))
	}
	for ens, failures := range resp.Failures {
		for _, f := range failures {
			fmt.Fprintf(w, "%s: %s could not be calculated: %v\n", ens, f.Vector, f.Err)
		}
	}
}
