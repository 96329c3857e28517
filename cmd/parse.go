package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mortis-lab/pmi-cli/internal/profiler"
	"github.com/mortis-lab/pmi-cli/internal/scenario"
	"github.com/mortis-lab/pmi-cli/internal/weather"
	"github.com/mortis-lab/pmi-cli/pkg/anthropic"
)

var parseOutPath string

var parseCmd = &cobra.Command{
	Use:   "parse <narrative.txt>",
	Short: "Parse a scene narrative into a structured case file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if cfg.Anthropic.Key == "" {
			return eris.New("anthropic API key not configured (set PMI_ANTHROPIC_KEY)")
		}

		narrative, err := os.ReadFile(args[0])
		if err != nil {
			return eris.Wrap(err, "read narrative")
		}

		client := anthropic.NewClient(cfg.Anthropic.Key, anthropic.Options{
			RPS: cfg.Anthropic.RPS,
		})
		prof := profiler.New(client, cfg.Anthropic.Model, cfg.Anthropic.MaxTokens)

		sc, hints, err := prof.Parse(ctx, string(narrative))
		if err != nil {
			return err
		}

		// The narrative yields no measured series; synthesize a diurnal
		// one from the hints so the case file is runnable as-is.
		opts := weather.SyntheticOptions{
			BaseTempC:  hints.MeanTempC,
			AmplitudeC: hints.SwingC / 2,
			Days:       hints.HistoryDays,
			End:        sc.DiscoveryTime,
		}
		if opts.Days <= 0 {
			opts.Days = 7
		}
		sc.Weather, err = weather.Synthesize(opts)
		if err != nil {
			return err
		}

		zap.L().Info("narrative parsed",
			zap.String("case_id", sc.CaseID),
			zap.String("species", sc.SpeciesID),
			zap.String("stage", sc.ObservedStage),
			zap.Int("weather_samples", len(sc.Weather)),
		)

		if err := scenario.SaveCaseFile(parseOutPath, sc); err != nil {
			return err
		}
		zap.L().Info("case file written", zap.String("path", parseOutPath))
		return nil
	},
}

func init() {
	parseCmd.Flags().StringVar(&parseOutPath, "out", "case.yaml", "path for the generated case file")
	rootCmd.AddCommand(parseCmd)
}
