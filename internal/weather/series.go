// Package weather loads, fetches, and synthesizes hourly temperature
// series for scene reconstruction.
package weather

import (
	"context"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/mortis-lab/pmi-cli/internal/model"
)

// timeLayouts lists the timestamp formats accepted in series files, most
// specific first.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04",
}

func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, eris.Errorf("weather: unparseable timestamp %q", s)
}

// ReadCSV parses an hourly series from CSV with a header row of at least
// (time, temp_c) columns, in that order.
func ReadCSV(ctx context.Context, r io.Reader) ([]model.WeatherSample, error) {
	rowCh, errCh := streamCSV(ctx, r)

	var samples []model.WeatherSample
	for row := range rowCh {
		if len(row) < 2 {
			return nil, eris.Errorf("weather: short csv row %v", row)
		}
		sample, err := parseSampleRow(row[0], row[1])
		if err != nil {
			return nil, err
		}
		samples = append(samples, sample)
	}
	if err := <-errCh; err != nil {
		return nil, err
	}

	return Normalize(samples)
}

// ReadCSVFile parses an hourly series from a CSV file on disk.
func ReadCSVFile(ctx context.Context, path string) ([]model.WeatherSample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "weather: open csv")
	}
	defer f.Close()
	return ReadCSV(ctx, f)
}

// ReadXLSXFile parses an hourly series from the first sheet of an XLSX
// workbook, skipping the header row.
func ReadXLSXFile(path string) ([]model.WeatherSample, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "weather: open xlsx")
	}
	if len(f.Sheets) == 0 {
		return nil, eris.New("weather: xlsx has no sheets")
	}

	var samples []model.WeatherSample
	for i, row := range f.Sheets[0].Rows {
		if i == 0 {
			continue
		}
		if len(row.Cells) < 2 {
			continue
		}
		sample, err := parseSampleRow(row.Cells[0].String(), row.Cells[1].String())
		if err != nil {
			return nil, err
		}
		samples = append(samples, sample)
	}

	return Normalize(samples)
}

func parseSampleRow(timeStr, tempStr string) (model.WeatherSample, error) {
	t, err := parseTime(timeStr)
	if err != nil {
		return model.WeatherSample{}, err
	}
	temp, err := strconv.ParseFloat(strings.TrimSpace(tempStr), 64)
	if err != nil {
		return model.WeatherSample{}, eris.Wrapf(err, "weather: bad temperature %q", tempStr)
	}
	return model.WeatherSample{Time: t, TempC: temp}, nil
}

// Normalize sorts samples chronologically and rejects duplicates and
// empty series. Estimation needs a strictly increasing time axis.
func Normalize(samples []model.WeatherSample) ([]model.WeatherSample, error) {
	if len(samples) == 0 {
		return nil, eris.New("weather: empty series")
	}

	out := make([]model.WeatherSample, len(samples))
	copy(out, samples)
	sort.Slice(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })

	for i := 1; i < len(out); i++ {
		if !out[i].Time.After(out[i-1].Time) {
			return nil, eris.Errorf("weather: duplicate timestamp %s", out[i].Time.Format(time.RFC3339))
		}
	}
	return out, nil
}
