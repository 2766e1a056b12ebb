package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"enstats/adapters/api"
	"enstats/adapters/excel"
	"enstats/adapters/postgres/migrations"
	"enstats/app"
	"enstats/domain/ensemble"
	"enstats/domain/frequency"
	"enstats/domain/vector"
	apperrors "enstats/internal/errors"
)

func newEnsemblesCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ensembles",
		Short: "List the ensembles and delta ensembles of the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := g.setup(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer c.Close()

			out := cmd.OutOrStdout()
			for _, ref := range c.Service.Ensembles() {
				switch e := ref.(type) {
				case ensemble.RealEnsemble:
					p, err := c.Service.Provider(e.Name())
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "%s\t%d realizations\t%d vectors\n", e.Name(), len(p.Realizations()), len(p.VectorNames()))
				case ensemble.Delta:
					fmt.Fprintf(out, "%s\tdelta\n", e.Name())
				}
			}
			return nil
		},
	}
}

func newVectorsCmd(g *globalOptions) *cobra.Command {
	opts := &requestOptions{}
	var format string

	cmd := &cobra.Command{
		Use:   "vectors",
		Short: "Print vector tables of one or more ensembles",
		Long: `Print raw, per-interval, per-day and calculated vectors.

Example: enstats vectors -e iter-0 -d iter-1:iter-0 -v FOPT -v PER_DAY_FOPT -f monthly`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := g.setup(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer c.Close()

			req, err := opts.build(cmd, c.Config.Data.DefaultFrequency)
			if err != nil {
				return err
			}
			resp, err := c.Service.VectorTables(req)
			if err != nil {
				return err
			}
			reportIssues(cmd.ErrOrStderr(), resp)

			switch format {
			case "json":
				return writeJSON(cmd.OutOrStdout(), api.NewEnsembleTablesResponses(resp.Ensembles, req.Frequency))
			case "csv":
				return writeTablesCSV(cmd.OutOrStdout(), resp.Ensembles, req.Frequency)
			default:
				return apperrors.InvalidInput(fmt.Sprintf("unknown format %q", format))
			}
		},
	}
	opts.register(cmd)
	cmd.Flags().StringVar(&format, "format", "json", "Output format: json|csv")
	return cmd
}

func newStatsCmd(g *globalOptions) *cobra.Command {
	opts := &requestOptions{}

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print cross-realization statistics of vectors",
		Long: `Print MEAN, MIN, MAX, P10, P90 and P50 per vector and date.

P10 is the 90th percentile and P90 the 10th.

Example: enstats stats -e iter-0 -v FOPT -f yearly`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := g.setup(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer c.Close()

			req, err := opts.build(cmd, c.Config.Data.DefaultFrequency)
			if err != nil {
				return err
			}
			result, resp, err := c.Service.EnsembleStatistics(req)
			if err != nil {
				return err
			}
			reportIssues(cmd.ErrOrStderr(), resp)
			return writeJSON(cmd.OutOrStdout(), result)
		},
	}
	opts.register(cmd)
	return cmd
}

func newDatesCmd(g *globalOptions) *cobra.Command {
	var freqFlag string

	cmd := &cobra.Command{
		Use:   "dates [ensemble]",
		Short: "List the dates of an ensemble at a frequency",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := g.setup(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer c.Close()

			freq := c.Config.Data.DefaultFrequency
			if freqFlag != "" {
				if freq, err = frequency.Parse(freqFlag); err != nil {
					return err
				}
			}
			p, err := c.Service.Provider(args[0])
			if err != nil {
				return err
			}
			for _, d := range p.Dates(freq, nil) {
				fmt.Fprintln(cmd.OutOrStdout(), d.Format("2006-01-02"))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&freqFlag, "frequency", "f", "", "Resampling frequency (default $DEFAULT_FREQUENCY)")
	return cmd
}

func newImportCmd(g *globalOptions) *cobra.Command {
	var sheet string

	cmd := &cobra.Command{
		Use:   "import [ensemble] [file]",
		Short: "Store an ensemble file in the database",
		Long: `Read an xlsx or csv ensemble file and replace the stored vectors of the
ensemble. Requires DATABASE_URL.

Example: enstats import history data/history.xlsx --sheet vectors`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, path := args[0], args[1]
			c, err := g.setup(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer c.Close()
			if c.Config.Database.URL == "" {
				return apperrors.ConfigInvalid("DATABASE_URL is required")
			}
			if err := c.InitDatabase(cmd.Context()); err != nil {
				return err
			}

			cfg := excel.DefaultReaderConfig()
			if sheet != "" {
				cfg.Sheet = sheet
			}
			data, meta, err := excel.NewDataReader(path, cfg, c.Logger).ReadData()
			if err != nil {
				return apperrors.LoadError(path, err)
			}
			table, err := excel.ParseVectorTable(data)
			if err != nil {
				return apperrors.LoadError(path, err)
			}
			metadata, err := excel.ParseMetadata(meta)
			if err != nil {
				return apperrors.LoadError(path, err)
			}
			if err := c.Store.SaveEnsemble(cmd.Context(), name, table, metadata); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "stored %d rows of %d vectors as %s\n", table.Len(), len(table.VectorNames()), name)
			return nil
		},
	}
	cmd.Flags().StringVar(&sheet, "sheet", "", "Worksheet to read (first sheet by default)")
	return cmd
}

func newMigrateCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations and print their status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := g.setup(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer c.Close()
			if c.Config.Database.URL == "" {
				return apperrors.ConfigInvalid("DATABASE_URL is required")
			}
			if err := c.InitDatabase(cmd.Context()); err != nil {
				return err
			}

			status, err := migrations.NewMigrator(c.DB.DB).Status(cmd.Context())
			if err != nil {
				return apperrors.DatabaseError("failed to read migration status", err)
			}
			for _, s := range status {
				state := "pending"
				if s.Applied {
					state = "applied"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", s.Version, state)
			}
			return nil
		},
	}
}

// writeTablesCSV writes every table as ENSEMBLE,DATE,REAL,<vectors...>
// blocks separated by their own header row. Tables of per-interval and
// per-day vectors get an INTERVAL column after DATE.
func writeTablesCSV(w io.Writer, ensembles []app.EnsembleTables, f frequency.Frequency) error {
	cw := csv.NewWriter(w)
	for _, e := range ensembles {
		for _, t := range e.Tables {
			labels := app.IntervalLabels(t, f)
			header := []string{"ENSEMBLE", "DATE"}
			if labels != nil {
				header = append(header, "INTERVAL")
			}
			if err := cw.Write(append(append(header, "REAL"), t.VectorNames()...)); err != nil {
				return err
			}
			for i := 0; i < t.Len(); i++ {
				if err := cw.Write(csvRow(e.Ensemble, t, labels, i)); err != nil {
					return err
				}
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

func csvRow(ens string, t *vector.Table, labels []string, i int) []string {
	row := []string{ens, t.Dates().Format(i)}
	if labels != nil {
		row = append(row, labels[i])
	}
	row = append(row, strconv.Itoa(t.Real(i)))
	for _, name := range t.VectorNames() {
		row = append(row, strconv.FormatFloat(t.Value(name, i), 'g', -1, 64))
	}
	return row
}
