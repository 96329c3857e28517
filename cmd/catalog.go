package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mortis-lab/pmi-cli/internal/catalog"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Inspect the species and toxicology catalogs",
}

var catalogSpeciesCmd = &cobra.Command{
	Use:   "species",
	Short: "List the loaded species profiles",
	RunE: func(cmd *cobra.Command, args []string) error {
		species, _, err := loadCatalogs(cmd.Context())
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tLDT °C\tUDT °C\tSTAGES\tSOURCE")
		for _, id := range species.IDs() {
			p, err := species.Lookup(id)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "%s\t%s\t%.1f\t%.1f\t%d\t%s\n",
				p.ID, p.Name, p.LDTC, p.UDTC, len(p.Stages), p.Source)
		}
		return w.Flush()
	},
}

var catalogDrugsCmd = &cobra.Command{
	Use:   "drugs",
	Short: "List the loaded toxicology modifiers",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, tox, err := loadCatalogs(cmd.Context())
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "DRUG\tMULTIPLIER\tNOTE")
		for _, drug := range tox.Drugs() {
			f, err := tox.Lookup(drug)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "%s\t%.2f\t%s\n", f.Drug, f.Multiplier, f.Note)
		}
		return w.Flush()
	},
}

var validateTox bool

var catalogValidateCmd = &cobra.Command{
	Use:   "validate <fixture.json>",
	Short: "Validate a catalog fixture file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if validateTox {
			tox, err := catalog.LoadToxicologyFromFile(args[0])
			if err != nil {
				return err
			}
			zap.L().Info("toxicology fixture valid", zap.Int("drugs", len(tox.Drugs())))
			return nil
		}
		species, err := catalog.LoadSpeciesFromFile(args[0])
		if err != nil {
			return err
		}
		zap.L().Info("species fixture valid", zap.Int("species", len(species.IDs())))
		return nil
	},
}

func init() {
	catalogValidateCmd.Flags().BoolVar(&validateTox, "toxicology", false, "treat the file as a toxicology fixture")
	catalogCmd.AddCommand(catalogSpeciesCmd, catalogDrugsCmd, catalogValidateCmd)
	rootCmd.AddCommand(catalogCmd)
}
