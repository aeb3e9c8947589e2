package main

import (
	"encoding/csv"
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/VIDA-NYU/openclean-geo/pkg/address"
)

var (
	keysInput          string
	keysOutput         string
	keysColumn         string
	keysFormat         string
	keysCollisionsOnly bool
	keysUnique         bool
	keysMappings       string
)

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Cluster street names by collision key",
	Long: `Groups the distinct values of a CSV or XLSX column by their street
name collision key. Values that standardize to the same sorted token list
land in the same group, so 'W 35th Street' and 'West 35 St' cluster together.

Examples:
  # All groups as JSON
  openclean-geo keys --input addresses.csv --column street --format json

  # Only groups holding more than one spelling
  openclean-geo keys --input addresses.csv --column street --collisions-only`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		var opts []address.Option
		if keysMappings != "" {
			m, err := address.ReadMappings(keysMappings)
			if err != nil {
				return err
			}
			opts = append(opts, address.WithMappings(m))
		}
		if keysUnique {
			opts = append(opts, address.WithUnique())
		}
		keyer := address.NewStreetNameKeyer(opts...)

		rows, errs, headerCh, closeIn, err := streamTable(ctx, keysInput)
		if err != nil {
			return err
		}
		defer closeIn()

		order, groups, err := collectKeys(rows, errs, headerCh, keysInput, keysColumn, keyer.Key)
		if err != nil {
			return err
		}

		if keysCollisionsOnly {
			var kept []string
			for _, k := range order {
				if len(groups[k]) > 1 {
					kept = append(kept, k)
				}
			}
			order = kept
		}

		out, closeOut, err := openOutput(keysOutput)
		if err != nil {
			return err
		}
		defer closeOut()

		switch keysFormat {
		case "csv":
			err = writeKeyGroupsCSV(out, order, groups)
		case "json":
			err = writeKeyGroupsJSON(out, order, groups)
		default:
			return eris.Errorf("keys: unknown format %q", keysFormat)
		}
		if err != nil {
			return err
		}

		zap.L().Info("keys complete",
			zap.String("input", keysInput),
			zap.String("column", keysColumn),
			zap.Int("groups", len(order)),
		)
		return nil
	},
}

func init() {
	keysCmd.Flags().StringVar(&keysInput, "input", "", "CSV or XLSX file to read (required)")
	keysCmd.Flags().StringVar(&keysOutput, "output", "", "output path (default: stdout)")
	keysCmd.Flags().StringVar(&keysColumn, "column", "", "name of the column to cluster (required)")
	keysCmd.Flags().StringVar(&keysFormat, "format", "csv", "output format: csv or json")
	keysCmd.Flags().BoolVar(&keysCollisionsOnly, "collisions-only", false, "only emit groups with multiple distinct values")
	keysCmd.Flags().BoolVar(&keysUnique, "unique", false, "drop duplicate tokens when keying")
	keysCmd.Flags().StringVar(&keysMappings, "mappings", "", "YAML file with mapping overlays")
	_ = keysCmd.MarkFlagRequired("input")
	_ = keysCmd.MarkFlagRequired("column")
	rootCmd.AddCommand(keysCmd)
}

// collectKeys groups the distinct column values by collision key. Keys and
// the values within each group keep first-seen order.
func collectKeys(rows <-chan []string, errs <-chan error, headerCh chan []string, input, column string, fn func(string) string) ([]string, map[string][]string, error) {
	col := -1
	var order []string
	groups := make(map[string][]string)
	seen := make(map[string]map[string]bool)

	for row := range rows {
		if col < 0 {
			// The header lands in headerCh before the first row is sent.
			idx, err := findColumn(<-headerCh, column)
			if err != nil {
				return nil, nil, err
			}
			col = idx
		}
		if col >= len(row) {
			continue
		}
		v := row[col]
		if v == "" {
			continue
		}
		k := fn(v)
		if seen[k] == nil {
			seen[k] = make(map[string]bool)
			order = append(order, k)
		}
		if !seen[k][v] {
			seen[k][v] = true
			groups[k] = append(groups[k], v)
		}
	}
	if err := <-errs; err != nil {
		return nil, nil, err
	}

	if col < 0 {
		select {
		case header := <-headerCh:
			if _, err := findColumn(header, column); err != nil {
				return nil, nil, err
			}
		default:
			return nil, nil, eris.Errorf("keys: %s is empty", input)
		}
	}
	return order, groups, nil
}

// writeKeyGroupsCSV emits one key,value row per distinct value.
func writeKeyGroupsCSV(out io.Writer, order []string, groups map[string][]string) error {
	w := csv.NewWriter(out)
	if err := w.Write([]string{"key", "value"}); err != nil {
		return eris.Wrap(err, "keys: write header")
	}
	for _, k := range order {
		for _, v := range groups[k] {
			if err := w.Write([]string{k, v}); err != nil {
				return eris.Wrap(err, "keys: write row")
			}
		}
	}
	w.Flush()
	return eris.Wrap(w.Error(), "keys: flush output")
}

type keyGroup struct {
	Key    string   `json:"key"`
	Count  int      `json:"count"`
	Values []string `json:"values"`
}

// writeKeyGroupsJSON emits the groups as a JSON array.
func writeKeyGroupsJSON(out io.Writer, order []string, groups map[string][]string) error {
	list := make([]keyGroup, 0, len(order))
	for _, k := range order {
		list = append(list, keyGroup{Key: k, Count: len(groups[k]), Values: groups[k]})
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return eris.Wrap(enc.Encode(list), "keys: encode output")
}
