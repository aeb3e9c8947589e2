package fetcher

import (
	"context"
	"encoding/csv"
	"io"
	"strings"

	"github.com/rotisserie/eris"
)

// CSVOptions configures the streaming CSV reader.
type CSVOptions struct {
	Delimiter rune // zero means comma; the Gazetteer files use '\t'
	HasHeader bool // first row is not a data row
	TrimSpace bool

	// HeaderCh, when set with HasHeader, receives the header row before
	// the first data row is sent.
	HeaderCh chan<- []string
}

// StreamCSV reads delimited rows from r and sends them on the returned row
// channel. Both channels are closed when the stream ends; on failure a
// single error is sent first. Callers must drain the row channel and then
// receive from the error channel.
func StreamCSV(ctx context.Context, r io.Reader, opts CSVOptions) (<-chan []string, <-chan error) {
	rowCh := make(chan []string, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(rowCh)
		defer close(errCh)

		reader := csv.NewReader(r)
		if opts.Delimiter != 0 {
			reader.Comma = opts.Delimiter
		}
		// Census files pad short rows; let the caller decide per column.
		reader.FieldsPerRecord = -1

		header := opts.HasHeader
		for {
			row, err := reader.Read()
			if err == io.EOF {
				return
			}
			if err != nil {
				errCh <- eris.Wrap(err, "fetcher: read csv row")
				return
			}

			if opts.TrimSpace {
				for i, field := range row {
					row[i] = strings.TrimSpace(field)
				}
			}

			if header {
				header = false
				if opts.HeaderCh != nil {
					select {
					case opts.HeaderCh <- row:
					case <-ctx.Done():
						errCh <- eris.Wrap(ctx.Err(), "fetcher: stream csv")
						return
					}
				}
				continue
			}

			select {
			case rowCh <- row:
			case <-ctx.Done():
				errCh <- eris.Wrap(ctx.Err(), "fetcher: stream csv")
				return
			}
		}
	}()

	return rowCh, errCh
}
