package main

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/VIDA-NYU/openclean-geo/internal/fetcher"
	"github.com/VIDA-NYU/openclean-geo/pkg/address"
	"github.com/VIDA-NYU/openclean-geo/pkg/token"
)

// Rows are standardized in chunks so workers stay busy without buffering the
// whole input.
const standardizeChunk = 2048

var (
	standardizeInput    string
	standardizeOutput   string
	standardizeColumn   string
	standardizeCase     string
	standardizeAlphanum bool
	standardizeUnique   bool
	standardizeCollapse bool
	standardizeMappings string
	standardizeWorkers  int
)

var standardizeCmd = &cobra.Command{
	Use:   "standardize",
	Short: "Standardize US street names in a CSV or XLSX column",
	Long: `Streams a CSV or XLSX file and rewrites one column with standardized
US street names. Directions are spelled out, street types abbreviated and
spelled-out street numbers replaced by digits.

Examples:
  # Rewrite the street column in place, result on stdout
  openclean-geo standardize --input addresses.csv --column street

  # Upper-case output with custom mapping overlays
  openclean-geo standardize --input addresses.xlsx --column Street \
    --case upper --mappings mappings.yaml --output clean.csv`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("standardize"); err != nil {
			return err
		}

		std, err := buildStandardizer()
		if err != nil {
			return err
		}

		workers := standardizeWorkers
		if workers <= 0 {
			workers = cfg.Standardize.Workers
		}

		out, closeOut, err := openOutput(standardizeOutput)
		if err != nil {
			return err
		}
		defer closeOut()

		rows, errs, headerCh, closeIn, err := streamTable(ctx, standardizeInput)
		if err != nil {
			return err
		}
		defer closeIn()

		n, err := standardizeStream(rows, errs, headerCh, out, workers, std.Key)
		if err != nil {
			return err
		}

		zap.L().Info("standardize complete",
			zap.String("input", standardizeInput),
			zap.String("column", standardizeColumn),
			zap.Int("rows", n),
		)
		return nil
	},
}

func init() {
	standardizeCmd.Flags().StringVar(&standardizeInput, "input", "", "CSV or XLSX file to read (required)")
	standardizeCmd.Flags().StringVar(&standardizeOutput, "output", "", "output CSV path (default: stdout)")
	standardizeCmd.Flags().StringVar(&standardizeColumn, "column", "", "name of the column to standardize (required)")
	standardizeCmd.Flags().StringVar(&standardizeCase, "case", address.CaseCapitalize, "output case: capitalize, lower or upper")
	standardizeCmd.Flags().BoolVar(&standardizeAlphanum, "alphanum", false, "drop tokens with non-alphanumeric characters")
	standardizeCmd.Flags().BoolVar(&standardizeUnique, "unique", false, "drop duplicate tokens")
	standardizeCmd.Flags().BoolVar(&standardizeCollapse, "collapse-repeated", false, "drop consecutive duplicate tokens")
	standardizeCmd.Flags().StringVar(&standardizeMappings, "mappings", "", "YAML file with mapping overlays")
	standardizeCmd.Flags().IntVar(&standardizeWorkers, "workers", 0, "parallel workers (default from config)")
	_ = standardizeCmd.MarkFlagRequired("input")
	_ = standardizeCmd.MarkFlagRequired("column")
	rootCmd.AddCommand(standardizeCmd)
}

// buildStandardizer assembles the street standardizer from the shared flags.
func buildStandardizer() (token.Pipeline, error) {
	opts, err := addressOptions()
	if err != nil {
		return token.Pipeline{}, err
	}
	opts = append(opts, address.WithCase(standardizeCase))
	return address.NewStandardizer(opts...)
}

// addressOptions converts the standardize flags shared with the keys command.
func addressOptions() ([]address.Option, error) {
	var opts []address.Option
	if standardizeMappings != "" {
		m, err := address.ReadMappings(standardizeMappings)
		if err != nil {
			return nil, err
		}
		opts = append(opts, address.WithMappings(m))
	}
	if standardizeAlphanum {
		opts = append(opts, address.WithAlphaNumericOnly())
	}
	if standardizeUnique {
		opts = append(opts, address.WithUnique())
	}
	if standardizeCollapse {
		opts = append(opts, address.WithCollapseRepeated())
	}
	return opts, nil
}

// streamTable opens a row stream over a CSV or XLSX file, selected by
// extension. The header row arrives on the returned channel before the first
// data row.
func streamTable(ctx context.Context, path string) (<-chan []string, <-chan error, chan []string, func(), error) {
	headerCh := make(chan []string, 1)

	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		rows, errs := fetcher.StreamXLSX(ctx, path, fetcher.XLSXOptions{
			SkipRows: 1,
			HeaderCh: headerCh,
		})
		return rows, errs, headerCh, func() {}, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, nil, nil, nil, eris.Wrapf(err, "open %s", path)
	}
	rows, errs := fetcher.StreamCSV(ctx, f, fetcher.CSVOptions{
		HasHeader: true,
		HeaderCh:  headerCh,
	})
	return rows, errs, headerCh, func() { _ = f.Close() }, nil
}

// openOutput returns the output writer and its close function.
func openOutput(path string) (io.Writer, func(), error) {
	if path == "" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, eris.Wrapf(err, "create %s", path)
	}
	return f, func() { _ = f.Close() }, nil
}

// standardizeStream copies rows to out with the target column rewritten,
// preserving row order. Returns the number of data rows written.
func standardizeStream(rows <-chan []string, errs <-chan error, headerCh chan []string, out io.Writer, workers int, fn func(string) string) (int, error) {
	w := csv.NewWriter(out)
	col := -1
	written := 0
	batch := make([][]string, 0, standardizeChunk)

	flush := func() error {
		standardizeBatch(batch, col, workers, fn)
		for _, row := range batch {
			if err := w.Write(row); err != nil {
				return eris.Wrap(err, "standardize: write row")
			}
		}
		written += len(batch)
		batch = batch[:0]
		return nil
	}

	readHeader := func(header []string) error {
		idx, err := findColumn(header, standardizeColumn)
		if err != nil {
			return err
		}
		col = idx
		return eris.Wrap(w.Write(header), "standardize: write header")
	}

	for row := range rows {
		if col < 0 {
			// The header lands in headerCh before the first row is sent.
			if err := readHeader(<-headerCh); err != nil {
				return 0, err
			}
		}
		batch = append(batch, row)
		if len(batch) >= standardizeChunk {
			if err := flush(); err != nil {
				return 0, err
			}
		}
	}
	if err := <-errs; err != nil {
		return 0, err
	}

	if col < 0 {
		// Header-only input: no data row forced the header read.
		select {
		case header := <-headerCh:
			if err := readHeader(header); err != nil {
				return 0, err
			}
		default:
			return 0, eris.Errorf("standardize: %s is empty", standardizeInput)
		}
	}

	if err := flush(); err != nil {
		return 0, err
	}
	w.Flush()
	return written, eris.Wrap(w.Error(), "standardize: flush output")
}

// standardizeBatch rewrites the target column in place. Workers operate on
// disjoint row spans, so no locking is needed.
func standardizeBatch(batch [][]string, col, workers int, fn func(string) string) {
	if len(batch) == 0 {
		return
	}
	if workers < 1 {
		workers = 1
	}
	span := (len(batch) + workers - 1) / workers

	var g errgroup.Group
	for start := 0; start < len(batch); start += span {
		rows := batch[start:min(start+span, len(batch))]
		g.Go(func() error {
			for _, row := range rows {
				if col < len(row) {
					row[col] = fn(row[col])
				}
			}
			return nil
		})
	}
	_ = g.Wait() // workers never return errors
}

// findColumn locates a header column by case-insensitive name.
func findColumn(header []string, name string) (int, error) {
	want := strings.ToLower(strings.TrimSpace(name))
	for i, h := range header {
		if strings.ToLower(strings.TrimSpace(h)) == want {
			return i, nil
		}
	}
	return 0, eris.Errorf("column %q not found in header", name)
}
