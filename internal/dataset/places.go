package dataset

import (
	"context"
	"io"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/VIDA-NYU/openclean-geo/internal/fetcher"
	"github.com/VIDA-NYU/openclean-geo/pkg/zipcode"
)

// placesColumns are the header fields the crosswalk must carry; the
// remaining record fields (type, aliases, county, timezone, area_codes,
// population, housing_units, density) are read when present.
var placesColumns = []string{"zip", "city", "state"}

// ParsePlaces reads a places crosswalk CSV and returns one record per row
// with naming and demographic fields filled in. Rows with an unusable ZIP
// or state are skipped.
func ParsePlaces(ctx context.Context, r io.Reader) ([]zipcode.Record, error) {
	headerCh := make(chan []string, 1)
	rows, errs := fetcher.StreamCSV(ctx, r, fetcher.CSVOptions{
		HasHeader: true,
		HeaderCh:  headerCh,
		TrimSpace: true,
	})
	return collectPlaces(rows, errs, headerCh)
}

// ParsePlacesXLSX reads a places crosswalk workbook. The first sheet is
// used; the first row is the header.
func ParsePlacesXLSX(ctx context.Context, path string) ([]zipcode.Record, error) {
	headerCh := make(chan []string, 1)
	rows, errs := fetcher.StreamXLSX(ctx, path, fetcher.XLSXOptions{
		SkipRows: 1,
		HeaderCh: headerCh,
	})
	return collectPlaces(rows, errs, headerCh)
}

func collectPlaces(rows <-chan []string, errs <-chan error, headerCh <-chan []string) ([]zipcode.Record, error) {
	var idx map[string]int
	var records []zipcode.Record
	var skipped int

	for row := range rows {
		if idx == nil {
			var err error
			idx, err = columnIndex(<-headerCh, placesColumns)
			if err != nil {
				return nil, err
			}
		}

		rec, err := placeFromRow(row, idx)
		if err != nil {
			skipped++
			continue
		}
		records = append(records, *rec)
	}

	if err := <-errs; err != nil {
		return nil, err
	}

	if skipped > 0 {
		zap.L().Debug("dataset: skipped places rows", zap.Int("skipped", skipped))
	}
	return records, nil
}

func placeFromRow(row []string, idx map[string]int) (*zipcode.Record, error) {
	zip, err := zipcode.Normalize(cell(row, idx, "zip"))
	if err != nil {
		return nil, err
	}

	state := cell(row, idx, "state")
	if state != "" {
		if state, err = zipcode.NormalizeState(state); err != nil {
			return nil, err
		}
	}

	typ := zipcode.Type(strings.ToUpper(cell(row, idx, "type")))
	if typ == "" {
		typ = zipcode.TypeStandard
	}

	rec := &zipcode.Record{
		Zip:       zip,
		Type:      typ,
		City:      cell(row, idx, "city"),
		Aliases:   splitList(cell(row, idx, "aliases")),
		County:    cell(row, idx, "county"),
		State:     state,
		Timezone:  cell(row, idx, "timezone"),
		AreaCodes: splitList(cell(row, idx, "area_codes")),
	}
	rec.Population, _ = strconv.ParseInt(cell(row, idx, "population"), 10, 64)
	rec.HousingUnits, _ = strconv.ParseInt(cell(row, idx, "housing_units"), 10, 64)
	rec.Density, _ = strconv.ParseFloat(cell(row, idx, "density"), 64)
	return rec, nil
}

// columnIndex maps lower-cased header names to positions and verifies the
// required columns are present.
func columnIndex(header []string, required []string) (map[string]int, error) {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, col := range required {
		if _, ok := idx[col]; !ok {
			return nil, eris.Errorf("dataset: missing column %q", col)
		}
	}
	return idx, nil
}

// cell returns the named column of a row, or "" when the row is short.
func cell(row []string, idx map[string]int, name string) string {
	i, ok := idx[name]
	if !ok || i >= len(row) {
		return ""
	}
	return row[i]
}

// splitList splits a semicolon-separated cell into trimmed values.
func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(s, ";") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
