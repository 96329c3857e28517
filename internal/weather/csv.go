package weather

import (
	"context"
	"encoding/csv"
	"io"
	"strings"

	"github.com/rotisserie/eris"
)

// streamCSV reads a headered CSV and sends data rows to a channel. Both
// channels are closed when processing completes.
func streamCSV(ctx context.Context, r io.Reader) (<-chan []string, <-chan error) {
	rowCh := make(chan []string, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(rowCh)
		defer close(errCh)

		reader := csv.NewReader(r)
		reader.FieldsPerRecord = -1

		first := true
		for {
			if ctx.Err() != nil {
				errCh <- eris.Wrap(ctx.Err(), "weather: csv context cancelled")
				return
			}

			record, err := reader.Read()
			if err == io.EOF {
				return
			}
			if err != nil {
				errCh <- eris.Wrap(err, "weather: csv read row")
				return
			}

			for i, field := range record {
				record[i] = strings.TrimSpace(field)
			}

			if first {
				first = false
				continue
			}

			select {
			case rowCh <- record:
			case <-ctx.Done():
				errCh <- eris.Wrap(ctx.Err(), "weather: csv context cancelled")
				return
			}
		}
	}()

	return rowCh, errCh
}
