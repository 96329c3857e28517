package main

import (
	"encoding/json"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mortis-lab/pmi-cli/internal/metrics"
	"github.com/mortis-lab/pmi-cli/internal/model"
	"github.com/mortis-lab/pmi-cli/internal/report"
	"github.com/mortis-lab/pmi-cli/internal/scenario"
)

var (
	estimateReportPath string
	estimateNoPersist  bool
)

var estimateCmd = &cobra.Command{
	Use:   "estimate <case.yaml>",
	Short: "Estimate the post-mortem interval for a case file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		sc, err := scenario.LoadCaseFile(args[0])
		if err != nil {
			return err
		}

		adapter, err := newAdapter(ctx)
		if err != nil {
			return err
		}

		run := &model.Run{Scenario: sc, Status: model.RunStatusRunning}
		if !estimateNoPersist {
			st, err := initStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			run, err = st.CreateRun(ctx, sc)
			if err != nil {
				return err
			}
			if err := st.UpdateRunStatus(ctx, run.ID, model.RunStatusRunning); err != nil {
				return err
			}

			defer func() {
				if run.Result != nil {
					if err := st.UpdateRunResult(ctx, run.ID, run.Result); err != nil {
						zap.L().Error("persist run result", zap.Error(err))
					}
				}
			}()
		}

		started := time.Now()
		result, err := adapter.Run(sc)
		if err != nil {
			run.Result = &model.RunResult{Species: sc.SpeciesID, Stage: sc.ObservedStage, Error: err.Error()}
			metrics.EstimationsTotal.WithLabelValues(sc.SpeciesID, "failed").Inc()
			return eris.Wrap(err, "estimate")
		}
		run.Result = result

		metrics.EstimationsTotal.WithLabelValues(result.Species, "complete").Inc()
		metrics.EstimationDuration.WithLabelValues(result.Species).Observe(time.Since(started).Seconds())
		metrics.EstimatedPMIHours.WithLabelValues(result.Species).Observe(result.Estimate.ElapsedHours)

		zap.L().Info("estimation complete",
			zap.String("run_id", run.ID),
			zap.String("species", result.Species),
			zap.String("stage", result.Stage),
			zap.Float64("pmi_hours", result.Estimate.ElapsedHours),
			zap.Float64("lower_hours", result.Estimate.LowerBoundHours),
			zap.Float64("upper_hours", result.Estimate.UpperBoundHours),
		)

		if estimateReportPath != "" {
			if err := report.Write(estimateReportPath, run); err != nil {
				return err
			}
			zap.L().Info("report written", zap.String("path", estimateReportPath))
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result.Estimate)
	},
}

func init() {
	estimateCmd.Flags().StringVar(&estimateReportPath, "report", "", "write an XLSX report to this path")
	estimateCmd.Flags().BoolVar(&estimateNoPersist, "no-persist", false, "skip writing the run to the store")
	rootCmd.AddCommand(estimateCmd)
}
