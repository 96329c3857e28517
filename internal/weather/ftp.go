package weather

import (
	"bytes"
	"context"
	"io"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jlaffaye/ftp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/mortis-lab/pmi-cli/internal/model"
)

// ArchiveOptions configures the FTP archive fetcher.
type ArchiveOptions struct {
	BaseURL    string        // e.g. ftp://archive.example.org/hourly
	Timeout    time.Duration // dial timeout
	MaxRetries uint64        // retries on transient failure
}

// ArchiveFetcher retrieves hourly station series from an FTP archive that
// publishes one CSV file per station.
type ArchiveFetcher struct {
	opts ArchiveOptions
}

// NewArchiveFetcher creates an ArchiveFetcher with defaults applied.
func NewArchiveFetcher(opts ArchiveOptions) *ArchiveFetcher {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = 3
	}
	return &ArchiveFetcher{opts: opts}
}

// parseFTPURL extracts host (with port) and path from an FTP URL.
func parseFTPURL(rawURL string) (host string, path string, err error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", "", eris.Wrap(err, "weather: parse ftp url")
	}
	if u.Scheme != "ftp" {
		return "", "", eris.Errorf("weather: expected ftp scheme, got %q", u.Scheme)
	}

	host = u.Host
	if _, _, splitErr := net.SplitHostPort(host); splitErr != nil {
		host = net.JoinHostPort(host, "21")
	}

	path = u.Path
	if path == "" {
		return "", "", eris.New("weather: empty path in ftp url")
	}

	return host, path, nil
}

// FetchStation downloads and parses the hourly series for a station,
// retrying transient failures with exponential backoff.
func (f *ArchiveFetcher) FetchStation(ctx context.Context, station string) ([]model.WeatherSample, error) {
	fileURL := strings.TrimRight(f.opts.BaseURL, "/") + "/" + station + ".csv"

	var samples []model.WeatherSample
	operation := func() error {
		data, err := f.download(ctx, fileURL)
		if err != nil {
			zap.L().Warn("weather: archive fetch failed, retrying",
				zap.String("station", station),
				zap.Error(err),
			)
			return err
		}
		samples, err = ReadCSV(ctx, bytes.NewReader(data))
		if err != nil {
			// Parse failures are not transient.
			return backoff.Permanent(err)
		}
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), f.opts.MaxRetries),
		ctx,
	)
	if err := backoff.Retry(operation, policy); err != nil {
		return nil, eris.Wrapf(err, "weather: fetch station %s", station)
	}
	return samples, nil
}

func (f *ArchiveFetcher) download(ctx context.Context, ftpURL string) ([]byte, error) {
	host, path, err := parseFTPURL(ftpURL)
	if err != nil {
		return nil, err
	}

	zap.L().Debug("weather: ftp connecting", zap.String("host", host), zap.String("path", path))

	conn, err := ftp.Dial(host, ftp.DialWithTimeout(f.opts.Timeout), ftp.DialWithContext(ctx))
	if err != nil {
		return nil, eris.Wrap(err, "weather: ftp dial")
	}
	defer conn.Quit() //nolint:errcheck

	if err := conn.Login("anonymous", "anonymous@"); err != nil {
		return nil, eris.Wrap(err, "weather: ftp login")
	}

	resp, err := conn.Retr(path)
	if err != nil {
		return nil, eris.Wrap(err, "weather: ftp retrieve")
	}
	defer resp.Close()

	data, err := io.ReadAll(resp)
	if err != nil {
		return nil, eris.Wrap(err, "weather: ftp read")
	}
	return data, nil
}
