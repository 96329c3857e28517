package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mortis-lab/pmi-cli/internal/model"
	"github.com/mortis-lab/pmi-cli/internal/weather"
)

var weatherCmd = &cobra.Command{
	Use:   "weather",
	Short: "Fetch, synthesize, and manage scene temperature series",
}

var weatherFetchCmd = &cobra.Command{
	Use:   "fetch <station-id>",
	Short: "Fetch an hourly station series from the archive, caching it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if cfg.Weather.FTPURL == "" {
			return eris.New("weather archive URL not configured (set PMI_WEATHER_FTP_URL)")
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		fetcher := weather.NewArchiveFetcher(weather.ArchiveOptions{
			BaseURL: cfg.Weather.FTPURL,
			Timeout: time.Duration(cfg.Weather.TimeoutSecs) * time.Second,
		})
		svc := weather.NewService(fetcher, st, time.Duration(cfg.Weather.CacheTTLHours)*time.Hour)

		samples, err := svc.Series(ctx, args[0])
		if err != nil {
			return err
		}
		zap.L().Info("station series ready",
			zap.String("station", args[0]),
			zap.Int("samples", len(samples)),
			zap.Time("first", samples[0].Time),
			zap.Time("last", samples[len(samples)-1].Time),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(samples)
	},
}

var (
	nearestLat float64
	nearestLon float64
)

var weatherNearestCmd = &cobra.Command{
	Use:   "nearest",
	Short: "Find the archive station closest to a coordinate",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Weather.StationsShp == "" {
			return eris.New("station shapefile not configured (set PMI_WEATHER_STATIONS_SHP)")
		}

		idx, err := weather.LoadStations(cfg.Weather.StationsShp)
		if err != nil {
			return err
		}
		st := idx.Nearest(nearestLat, nearestLon)
		fmt.Printf("%s\t%s\t(%.4f, %.4f)\n", st.ID, st.Name, st.Location.Y(), st.Location.X())
		return nil
	},
}

var (
	synthBase  float64
	synthSwing float64
	synthDays  int
	synthEnd   string
)

var weatherSynthCmd = &cobra.Command{
	Use:   "synth",
	Short: "Generate a synthetic diurnal series",
	RunE: func(cmd *cobra.Command, args []string) error {
		end := time.Now().UTC().Truncate(time.Hour)
		if synthEnd != "" {
			var err error
			end, err = time.Parse(time.RFC3339, synthEnd)
			if err != nil {
				return eris.Wrap(err, "parse --end")
			}
		}

		samples, err := weather.Synthesize(weather.SyntheticOptions{
			BaseTempC:  synthBase,
			AmplitudeC: synthSwing / 2,
			Days:       synthDays,
			End:        end,
		})
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(samples)
	},
}

var importStation string

var weatherImportCmd = &cobra.Command{
	Use:   "import <series.csv|series.xlsx>",
	Short: "Import a local series file into the station cache",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		var (
			samples []model.WeatherSample
			err     error
		)
		if strings.HasSuffix(args[0], ".xlsx") {
			samples, err = weather.ReadXLSXFile(args[0])
		} else {
			samples, err = weather.ReadCSVFile(ctx, args[0])
		}
		if err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		ttl := time.Duration(cfg.Weather.CacheTTLHours) * time.Hour
		if err := st.SetCachedSeries(ctx, importStation, samples, ttl); err != nil {
			return err
		}
		zap.L().Info("series imported",
			zap.String("station", importStation),
			zap.Int("samples", len(samples)),
		)
		return nil
	},
}

var weatherPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete expired cached station series",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		deleted, err := st.DeleteExpiredSeries(ctx)
		if err != nil {
			return err
		}
		zap.L().Info("expired series pruned", zap.Int("deleted", deleted))
		return nil
	},
}

func init() {
	weatherNearestCmd.Flags().Float64Var(&nearestLat, "lat", 0, "latitude in degrees")
	weatherNearestCmd.Flags().Float64Var(&nearestLon, "lon", 0, "longitude in degrees")
	_ = weatherNearestCmd.MarkFlagRequired("lat")
	_ = weatherNearestCmd.MarkFlagRequired("lon")

	weatherSynthCmd.Flags().Float64Var(&synthBase, "base", 20, "daily mean temperature °C")
	weatherSynthCmd.Flags().Float64Var(&synthSwing, "swing", 8, "full daily swing °C")
	weatherSynthCmd.Flags().IntVar(&synthDays, "days", 7, "days of history to generate")
	weatherSynthCmd.Flags().StringVar(&synthEnd, "end", "", "last sample timestamp (RFC3339, default now)")

	weatherImportCmd.Flags().StringVar(&importStation, "station", "local", "station ID to cache the series under")

	weatherCmd.AddCommand(weatherFetchCmd, weatherNearestCmd, weatherSynthCmd, weatherImportCmd, weatherPruneCmd)
	rootCmd.AddCommand(weatherCmd)
}
