package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mortis-lab/pmi-cli/internal/model"
	"github.com/mortis-lab/pmi-cli/internal/store"
)

var (
	runsStatus  string
	runsSpecies string
	runsLimit   int
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect stored estimation runs",
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored runs, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		runs, err := st.ListRuns(ctx, store.RunFilter{
			Status:    model.RunStatus(runsStatus),
			SpeciesID: runsSpecies,
			Limit:     runsLimit,
		})
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tCASE\tSPECIES\tSTAGE\tSTATUS\tPMI (h)\tCREATED")
		for _, run := range runs {
			pmi := "-"
			if run.Result != nil && run.Result.Estimate != nil {
				pmi = fmt.Sprintf("%.2f", run.Result.Estimate.ElapsedHours)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
				run.ID,
				run.Scenario.CaseID,
				run.Scenario.SpeciesID,
				run.Scenario.ObservedStage,
				run.Status,
				pmi,
				run.CreatedAt.Format("2006-01-02 15:04"),
			)
		}
		return w.Flush()
	},
}

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Print one run as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		run, err := st.GetRun(ctx, args[0])
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(run)
	},
}

func init() {
	runsListCmd.Flags().StringVar(&runsStatus, "status", "", "filter by status (queued, running, complete, failed, exhausted)")
	runsListCmd.Flags().StringVar(&runsSpecies, "species", "", "filter by species ID")
	runsListCmd.Flags().IntVar(&runsLimit, "limit", 50, "max runs to list")

	runsCmd.AddCommand(runsListCmd, runsShowCmd)
	rootCmd.AddCommand(runsCmd)
}
