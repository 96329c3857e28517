package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mortis-lab/pmi-cli/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "pmi-cli",
	Short: "Forensic post-mortem interval estimation from insect evidence",
	Long:  "Back-calculates time of death by inverting accumulated-degree-hour insect development models against scene temperature reconstructions.",
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
