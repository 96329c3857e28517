package main

import (
	"context"
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mortis-lab/pmi-cli/internal/metrics"
	"github.com/mortis-lab/pmi-cli/internal/model"
	"github.com/mortis-lab/pmi-cli/internal/scenario"
	"github.com/mortis-lab/pmi-cli/internal/store"
)

var batchConcurrency int

type batchOutcome struct {
	Case     string             `json:"case"`
	RunID    string             `json:"run_id,omitempty"`
	Estimate *model.PMIEstimate `json:"estimate,omitempty"`
	Error    string             `json:"error,omitempty"`
}

var batchCmd = &cobra.Command{
	Use:   "batch <case.yaml> [case.yaml...]",
	Short: "Estimate a batch of case files concurrently",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		adapter, err := newAdapter(ctx)
		if err != nil {
			return err
		}

		concurrency := batchConcurrency
		if concurrency <= 0 {
			concurrency = cfg.Batch.MaxConcurrentRuns
		}

		outcomes := make([]batchOutcome, len(args))
		var mu sync.Mutex

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(concurrency)
		for i, path := range args {
			g.Go(func() error {
				out := processCase(gctx, st, adapter, path)
				mu.Lock()
				outcomes[i] = out
				mu.Unlock()
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		failed := 0
		for _, out := range outcomes {
			if out.Error != "" {
				failed++
			}
		}
		zap.L().Info("batch complete",
			zap.Int("cases", len(args)),
			zap.Int("failed", failed),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(outcomes)
	},
}

// processCase runs one case file end to end; failures are reported in the
// outcome rather than aborting the batch.
func processCase(ctx context.Context, st store.Store, adapter *scenario.Adapter, path string) batchOutcome {
	out := batchOutcome{Case: path}

	sc, err := scenario.LoadCaseFile(path)
	if err != nil {
		out.Error = err.Error()
		return out
	}

	run, err := st.CreateRun(ctx, sc)
	if err != nil {
		out.Error = err.Error()
		return out
	}
	out.RunID = run.ID

	if err := st.UpdateRunStatus(ctx, run.ID, model.RunStatusRunning); err != nil {
		zap.L().Warn("mark run running", zap.String("run_id", run.ID), zap.Error(err))
	}

	started := time.Now()
	result, err := adapter.Run(sc)
	if err != nil {
		out.Error = err.Error()
		metrics.EstimationsTotal.WithLabelValues(sc.SpeciesID, "failed").Inc()
		failure := &model.RunResult{Species: sc.SpeciesID, Stage: sc.ObservedStage, Error: err.Error()}
		if perr := st.UpdateRunResult(ctx, run.ID, failure); perr != nil {
			zap.L().Error("persist failed run", zap.String("run_id", run.ID), zap.Error(perr))
		}
		return out
	}

	metrics.EstimationsTotal.WithLabelValues(result.Species, "complete").Inc()
	metrics.EstimationDuration.WithLabelValues(result.Species).Observe(time.Since(started).Seconds())
	metrics.EstimatedPMIHours.WithLabelValues(result.Species).Observe(result.Estimate.ElapsedHours)

	if err := st.UpdateRunResult(ctx, run.ID, result); err != nil {
		zap.L().Error("persist run result", zap.String("run_id", run.ID), zap.Error(err))
	}
	out.Estimate = result.Estimate
	return out
}

func init() {
	batchCmd.Flags().IntVar(&batchConcurrency, "concurrency", 0, "max concurrent runs (defaults to batch.max_concurrent_runs)")
	rootCmd.AddCommand(batchCmd)
}
