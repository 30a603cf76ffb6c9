package main

import (
	"fmt"
	"load-consolidation-service/internal/platform/logging"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	verbose bool
	logger  *zap.Logger
)

// newRootCmd builds the command tree. Flags are read from the environment
// only after PersistentPreRunE has loaded .env.
func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "consolidate",
		Short: "Consolidate delivery load extracts into one table",
		Long: `consolidate merges the depot, customer, distance, timestamp and
time-in-route extracts into one row per load number, fills the gaps and
writes CSV and Excel outputs.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("load .env: %w", err)
			}

			var err error
			logger, err = logging.New(verbose)
			if err != nil {
				return err
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logger != nil {
				_ = logger.Sync()
			}
		},
	}

	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	root.AddCommand(newRunCmd())
	root.AddCommand(newVerifyCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
