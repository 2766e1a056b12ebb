package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	// Missing .env is fine; the environment may already be set
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:           "enstats",
		Short:         "Query ensemble vectors and statistics",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&opts.catalog, "catalog", "", "Ensemble catalog file (default $ENSEMBLES_FILE)")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level: error|warn|info|debug|trace (default $LOG_LEVEL)")

	rootCmd.AddCommand(
		newEnsemblesCmd(opts),
		newVectorsCmd(opts),
		newStatsCmd(opts),
		newDatesCmd(opts),
		newImportCmd(opts),
		newMigrateCmd(opts),
	)
	return rootCmd
}
