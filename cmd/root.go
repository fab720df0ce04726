package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/searchwise/termlens/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "termlens",
	Short: "Search-term classification and reporting pipeline",
	Long:  "Runs GAQL search-term reports, computes derived ad metrics, classifies terms by intent via an LLM provider, and writes results to an XLSX workbook.",
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
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
