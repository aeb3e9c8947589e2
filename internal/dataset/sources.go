// Package dataset builds the ZIP code gazetteer from public Census sources
// and loads it into a zipcode.Store.
package dataset

import (
	"fmt"
	"net/url"

	"github.com/rotisserie/eris"
)

const (
	censusHost = "www2.census.gov"
	mirrorHost = "ftp2.census.gov"

	defaultYear = 2024
)

// Source describes one input feeding the gazetteer build.
type Source struct {
	Name     string // e.g., "gazetteer"
	Format   string // "tsv", "csv", "shapefile"
	Fetched  bool   // true = downloadable from Census, false = user-supplied
	Provides string // fields this source contributes to a record
}

// SourceList lists the inputs the loader understands. The gazetteer is
// authoritative for centroid and area, places for naming and demographics,
// and the shapefile attaches boundary geometry.
var SourceList = []Source{
	{
		Name:     "gazetteer",
		Format:   "tsv",
		Fetched:  true,
		Provides: "zip, centroid, land/water area",
	},
	{
		Name:     "places",
		Format:   "csv",
		Fetched:  false,
		Provides: "type, city, aliases, county, state, timezone, area codes, population, housing units, density",
	},
	{
		Name:     "zcta5",
		Format:   "shapefile",
		Fetched:  true,
		Provides: "boundary polygon, bounds, centroid fallback",
	},
}

// SourceByName looks up a source by its name (case-sensitive).
func SourceByName(name string) (Source, bool) {
	for _, s := range SourceList {
		if s.Name == name {
			return s, true
		}
	}
	return Source{}, false
}

// GazetteerURL builds the Census download URL for the national ZCTA
// Gazetteer file of the given vintage.
func GazetteerURL(year int) string {
	return fmt.Sprintf(
		"https://%s/geo/docs/maps-data/data/gazetteer/%d_Gazetteer/%d_Gaz_zcta_national.zip",
		censusHost, year, year,
	)
}

// ShapefileURL builds the Census download URL for the national ZCTA5
// TIGER/Line shapefile of the given vintage.
func ShapefileURL(year int) string {
	return fmt.Sprintf(
		"https://%s/geo/tiger/TIGER%d/ZCTA520/tl_%d_us_zcta520.zip",
		censusHost, year, year,
	)
}

// MirrorURL rewrites a www2.census.gov HTTPS URL to the anonymous FTP
// mirror, which serves the same directory tree.
func MirrorURL(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", eris.Wrapf(err, "dataset: parse url %s", rawURL)
	}
	if u.Host != censusHost {
		return "", eris.Errorf("dataset: no FTP mirror for host %q", u.Host)
	}
	u.Scheme = "ftp"
	u.Host = mirrorHost
	return u.String(), nil
}
