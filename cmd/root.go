package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/coordclean/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "coordclean",
	Short: "Flag problematic geographic coordinates in occurrence records",
	Long:  "Runs a configurable battery of spatial tests (capitals, centroids, institutions, seas, outliers, duplicates, ...) over species occurrence records and reports which records pass.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
