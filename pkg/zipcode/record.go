package zipcode

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// ErrNotFound is returned when no record matches a lookup.
var ErrNotFound = eris.New("zipcode: not found")

// Type classifies how the postal service uses a ZIP code.
type Type string

const (
	TypeStandard Type = "STANDARD"
	TypeUnique   Type = "UNIQUE"
	TypePOBox    Type = "PO BOX"
	TypeMilitary Type = "MILITARY"
)

// Record is a single US ZIP code. Latitude and Longitude are the ZCTA
// internal point; Boundary, when present, is the ZCTA polygon encoded as
// EWKB with SRID 4326.
type Record struct {
	Zip          string   `json:"zip"`
	Type         Type     `json:"type,omitempty"`
	City         string   `json:"city,omitempty"`
	Aliases      []string `json:"aliases,omitempty"`
	County       string   `json:"county,omitempty"`
	State        string   `json:"state,omitempty"`
	Latitude     float64  `json:"latitude"`
	Longitude    float64  `json:"longitude"`
	Timezone     string   `json:"timezone,omitempty"`
	AreaCodes    []string `json:"area_codes,omitempty"`
	Population   int64    `json:"population"`
	HousingUnits int64    `json:"housing_units"`
	Density      float64  `json:"density"`
	LandSqMi     float64  `json:"land_sqmi"`
	WaterSqMi    float64  `json:"water_sqmi"`
	Bounds       *Bounds  `json:"bounds,omitempty"`
	Boundary     []byte   `json:"-"`
}

// Bounds is a latitude/longitude bounding box in WGS84 degrees.
type Bounds struct {
	West  float64 `json:"west"`
	East  float64 `json:"east"`
	North float64 `json:"north"`
	South float64 `json:"south"`
}

// Point is a WGS84 coordinate pair.
type Point struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Match is a record returned by a proximity search, with the great-circle
// distance from the query point.
type Match struct {
	Record
	Miles float64 `json:"miles"`
}

// Stats summarizes the records currently loaded in a store.
type Stats struct {
	Records      int64 `json:"records"`
	WithBoundary int64 `json:"with_boundary"`
	States       int   `json:"states"`
}

// Load is the audit row written after each dataset load.
type Load struct {
	ID         string    `json:"id"`
	Source     string    `json:"source"`
	Records    int64     `json:"records"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// Normalize canonicalizes raw ZIP input. Surrounding whitespace is removed,
// a ZIP+4 suffix is cut at the hyphen, and digit strings shorter than five
// are left-padded with zeros since upstream exports often drop the leading
// zero. Anything non-numeric or longer than five digits is an error.
func Normalize(raw string) (string, error) {
	z := strings.TrimSpace(raw)
	if i := strings.IndexByte(z, '-'); i >= 0 {
		z = z[:i]
	}
	if z == "" {
		return "", eris.New("zipcode: empty value")
	}
	for i := 0; i < len(z); i++ {
		if z[i] < '0' || z[i] > '9' {
			return "", eris.Errorf("zipcode: invalid value %q", raw)
		}
	}
	if len(z) > 5 {
		return "", eris.Errorf("zipcode: invalid value %q", raw)
	}
	for len(z) < 5 {
		z = "0" + z
	}
	return z, nil
}
