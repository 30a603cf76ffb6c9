package main

import (
	"encoding/json"
	"fmt"
	"load-consolidation-service/internal/app"
	"load-consolidation-service/internal/config"
	"load-consolidation-service/internal/services"
	"os"

	"github.com/spf13/cobra"
)

type runOptions struct {
	inputs   []string
	output   string
	profile  string
	history  string
	jsonPath string
	depot    string
}

func newRunCmd() *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the consolidation pipeline once",
		Long: `run reads the five extracts from the input directories (first match wins),
consolidates them and writes consolidated.csv and consolidated.xlsx.

Set ORS_API_KEY to estimate missing planned distances from the depot.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConsolidate(cmd, opts)
		},
	}

	cmd.Flags().StringSliceVarP(&opts.inputs, "input", "i", []string{"."}, "Directories holding the extracts, searched in order")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "output", "Directory for the consolidated files")
	cmd.Flags().StringVar(&opts.profile, "profile", "", "Profile YAML (default: $PROFILE_PATH, else embedded)")
	cmd.Flags().StringVar(&opts.history, "history", "", "SQLite file recording the run (default: none)")
	cmd.Flags().StringVar(&opts.jsonPath, "json", "", "Also write the run report as JSON to this file")
	cmd.Flags().StringVar(&opts.depot, "depot", "", "Depot address for distance estimates (default: $DEPOT_ADDRESS)")

	return cmd
}

func runConsolidate(cmd *cobra.Command, opts runOptions) error {
	ctx := cmd.Context()

	if !cmd.Flags().Changed("profile") {
		opts.profile = config.Get("PROFILE_PATH", "")
	}
	if !cmd.Flags().Changed("depot") {
		opts.depot = config.Get("DEPOT_ADDRESS", "")
	}

	a, err := app.Build(ctx, app.Options{
		ProfilePath: opts.profile,
		HistoryDB:   opts.history,
		ORSKey:      config.Get("ORS_API_KEY", ""),
		Depot:       opts.depot,
		DatabaseURL: config.Get("DATABASE_URL", ""),
	}, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	rep, err := a.Pipeline.Run(ctx, services.Input{Dirs: opts.inputs, OutputDir: opts.output})
	if err != nil {
		return err
	}

	fmt.Fprint(cmd.OutOrStdout(), rep.Summary())

	if opts.jsonPath != "" {
		data, err := json.MarshalIndent(rep, "", "  ")
		if err != nil {
			return fmt.Errorf("encode report: %w", err)
		}
		if err := os.WriteFile(opts.jsonPath, data, 0o644); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
	}
	return nil
}
