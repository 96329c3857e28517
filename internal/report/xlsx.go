// Package report renders run results as XLSX workbooks for case files.
package report

import (
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"gonum.org/v1/gonum/stat"

	"github.com/mortis-lab/pmi-cli/internal/model"
)

// Write renders a completed run as an XLSX workbook with a Summary sheet
// and a Curve sheet, written to path.
func Write(path string, run *model.Run) error {
	if run.Result == nil {
		return eris.New("report: run has no result")
	}

	f := xlsx.NewFile()
	if err := writeSummary(f, run); err != nil {
		return err
	}
	if err := writeCurve(f, run.Result.Curve); err != nil {
		return err
	}
	if err := f.Save(path); err != nil {
		return eris.Wrap(err, "report: save workbook")
	}
	return nil
}

func writeSummary(f *xlsx.File, run *model.Run) error {
	sheet, err := f.AddSheet("Summary")
	if err != nil {
		return eris.Wrap(err, "report: add summary sheet")
	}

	addRow := func(label string, value any) {
		row := sheet.AddRow()
		row.AddCell().SetString(label)
		switch v := value.(type) {
		case string:
			row.AddCell().SetString(v)
		case float64:
			row.AddCell().SetFloat(v)
		case int:
			row.AddCell().SetInt(v)
		case time.Time:
			row.AddCell().SetString(v.UTC().Format(time.RFC3339))
		default:
			row.AddCell().SetString(fmt.Sprint(v))
		}
	}

	res := run.Result
	addRow("Run ID", run.ID)
	addRow("Case ID", run.Scenario.CaseID)
	addRow("Species", res.Species)
	addRow("Observed stage", res.Stage)
	addRow("Discovery time", run.Scenario.DiscoveryTime)

	if est := res.Estimate; est != nil {
		addRow("PMI (hours)", est.ElapsedHours)
		addRow("Estimated time of death", est.EstimatedTimeOfDeath)
		addRow("Lower bound (hours)", est.LowerBoundHours)
		addRow("Upper bound (hours)", est.UpperBoundHours)
		addRow("Confidence level", est.ConfidenceLevel)
		addRow("Pre-colonization delay (hours)", est.PIADelayHours)
		addRow("Target ADH", est.TargetADH)
		addRow("Accumulated ADH", est.AccumulatedADH)
		if est.NightOviposition {
			addRow("Night oviposition flag", "oviposition falls between 20:00 and 06:00")
		}
	}

	if cool := res.Cooling; cool != nil {
		addRow("Cooling estimate (hours)", cool.Hours)
		addRow("Cooling interval (± hours)", cool.IntervalHours)
	}

	if len(res.Curve) > 0 {
		base := make([]float64, len(res.Curve))
		eff := make([]float64, len(res.Curve))
		for i, p := range res.Curve {
			base[i] = p.BaseTempC
			eff[i] = p.EffectiveTempC
		}
		addRow("Mean base temperature (C)", stat.Mean(base, nil))
		addRow("Base temperature stddev (C)", stat.StdDev(base, nil))
		addRow("Mean effective temperature (C)", stat.Mean(eff, nil))
		addRow("Effective temperature stddev (C)", stat.StdDev(eff, nil))
	}

	return nil
}

func writeCurve(f *xlsx.File, curve []model.CurvePoint) error {
	sheet, err := f.AddSheet("Curve")
	if err != nil {
		return eris.Wrap(err, "report: add curve sheet")
	}

	header := sheet.AddRow()
	for _, h := range []string{
		"Time", "Elapsed hours", "Cumulative ADH", "Stage index",
		"Base temp C", "Effective temp C", "Mass heat C",
	} {
		header.AddCell().SetString(h)
	}

	for _, p := range curve {
		row := sheet.AddRow()
		row.AddCell().SetString(p.Time.UTC().Format(time.RFC3339))
		row.AddCell().SetFloat(p.ElapsedHours)
		row.AddCell().SetFloat(p.CumulativeADH)
		row.AddCell().SetInt(p.StageIndex)
		row.AddCell().SetFloat(p.BaseTempC)
		row.AddCell().SetFloat(p.EffectiveTempC)
		row.AddCell().SetFloat(p.MassHeatC)
	}

	return nil
}
