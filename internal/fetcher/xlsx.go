package fetcher

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// XLSXOptions configures the streaming workbook reader.
type XLSXOptions struct {
	Sheet    string // sheet name; empty means the first sheet
	SkipRows int    // leading rows excluded from the data stream

	// HeaderCh, when set, receives the first row of the sheet before any
	// data row is sent. With SkipRows >= 1 the header is not re-sent as
	// data.
	HeaderCh chan<- []string
}

// StreamXLSX reads one sheet of a workbook and sends rows on the returned
// channel, following the same contract as StreamCSV.
func StreamXLSX(ctx context.Context, path string, opts XLSXOptions) (<-chan []string, <-chan error) {
	rowCh := make(chan []string, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(rowCh)
		defer close(errCh)

		f, err := xlsx.OpenFile(path)
		if err != nil {
			errCh <- eris.Wrapf(err, "fetcher: open %s", path)
			return
		}
		sheet, err := pickSheet(f, opts.Sheet)
		if err != nil {
			errCh <- err
			return
		}

		for i, row := range sheet.Rows {
			values := cellValues(row)

			if i == 0 && opts.HeaderCh != nil {
				select {
				case opts.HeaderCh <- values:
				case <-ctx.Done():
					errCh <- eris.Wrap(ctx.Err(), "fetcher: stream xlsx")
					return
				}
			}
			if i < opts.SkipRows {
				continue
			}

			select {
			case rowCh <- values:
			case <-ctx.Done():
				errCh <- eris.Wrap(ctx.Err(), "fetcher: stream xlsx")
				return
			}
		}
	}()

	return rowCh, errCh
}

func pickSheet(f *xlsx.File, name string) (*xlsx.Sheet, error) {
	if name != "" {
		sheet, ok := f.Sheet[name]
		if !ok {
			return nil, eris.Errorf("fetcher: sheet %q not found", name)
		}
		return sheet, nil
	}
	if len(f.Sheets) == 0 {
		return nil, eris.New("fetcher: workbook has no sheets")
	}
	return f.Sheets[0], nil
}

func cellValues(row *xlsx.Row) []string {
	values := make([]string, len(row.Cells))
	for i, cell := range row.Cells {
		values[i] = cell.String()
	}
	return values
}
