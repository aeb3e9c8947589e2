package dataset

import (
	"context"
	"io"
	"strconv"

	"go.uber.org/zap"

	"github.com/VIDA-NYU/openclean-geo/internal/fetcher"
	"github.com/VIDA-NYU/openclean-geo/pkg/zipcode"
)

// gazetteerColumns are the header fields consumed from the national ZCTA
// Gazetteer file. The file is tab-delimited and also carries ALAND/AWATER
// in square meters, which the record does not use.
var gazetteerColumns = []string{"geoid", "aland_sqmi", "awater_sqmi", "intptlat", "intptlong"}

// ParseGazetteer reads the ZCTA national Gazetteer file and returns one
// record per ZCTA with the ZIP, internal-point centroid, and land/water
// area filled in. Rows with an unusable GEOID or coordinates are skipped.
func ParseGazetteer(ctx context.Context, r io.Reader) ([]zipcode.Record, error) {
	headerCh := make(chan []string, 1)
	rows, errs := fetcher.StreamCSV(ctx, r, fetcher.CSVOptions{
		Delimiter: '\t',
		HasHeader: true,
		HeaderCh:  headerCh,
		TrimSpace: true,
	})

	var idx map[string]int
	var records []zipcode.Record
	var skipped int

	for row := range rows {
		if idx == nil {
			// The header lands in headerCh before the first row is sent.
			var err error
			idx, err = columnIndex(<-headerCh, gazetteerColumns)
			if err != nil {
				return nil, err
			}
		}

		zip, err := zipcode.Normalize(cell(row, idx, "geoid"))
		if err != nil {
			skipped++
			continue
		}

		lat, latErr := strconv.ParseFloat(cell(row, idx, "intptlat"), 64)
		lng, lngErr := strconv.ParseFloat(cell(row, idx, "intptlong"), 64)
		if latErr != nil || lngErr != nil {
			skipped++
			continue
		}

		// Area columns are occasionally blank for water-only ZCTAs.
		land, _ := strconv.ParseFloat(cell(row, idx, "aland_sqmi"), 64)
		water, _ := strconv.ParseFloat(cell(row, idx, "awater_sqmi"), 64)

		records = append(records, zipcode.Record{
			Zip:       zip,
			Latitude:  lat,
			Longitude: lng,
			LandSqMi:  land,
			WaterSqMi: water,
		})
	}

	if err := <-errs; err != nil {
		return nil, err
	}

	if skipped > 0 {
		zap.L().Debug("dataset: skipped gazetteer rows", zap.Int("skipped", skipped))
	}
	return records, nil
}
