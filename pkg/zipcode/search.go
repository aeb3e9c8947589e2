package zipcode

import (
	"context"
	"math"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
)

// Candidate and result limits for the search operations. Proximity queries
// over-fetch from the store because the SQL limit applies before the
// haversine refinement.
const (
	defaultNearLimit      = 10
	nearCandidates        = 1000
	containsCandidates    = 50
	containsFallbackMiles = 30

	cityLimit   = 1000
	stateLimit  = 5000
	prefixLimit = 1000
)

// Search answers lookup queries over a Store.
type Search struct {
	store Store
}

// NewSearch returns a Search backed by the given store.
func NewSearch(store Store) *Search {
	return &Search{store: store}
}

// ByZip returns the record for a single ZIP code. Input is normalized
// first, so "8544" and "08544-1234" both resolve to "08544".
func (s *Search) ByZip(ctx context.Context, zip string) (*Record, error) {
	z, err := Normalize(zip)
	if err != nil {
		return nil, err
	}
	return s.store.Get(ctx, z)
}

// City returns the major city for a ZIP code.
func (s *Search) City(ctx context.Context, zip string) (string, error) {
	r, err := s.ByZip(ctx, zip)
	if err != nil {
		return "", err
	}
	return r.City, nil
}

// ByCity returns the records for a city, optionally narrowed to a state.
// Matching is case-insensitive and includes alias city names.
func (s *Search) ByCity(ctx context.Context, city, state string) ([]Record, error) {
	c := strings.TrimSpace(city)
	if c == "" {
		return nil, eris.New("zipcode: empty city")
	}
	filter := Filter{City: c, Limit: cityLimit}
	if state != "" {
		st, err := NormalizeState(state)
		if err != nil {
			return nil, err
		}
		filter.State = st
	}
	return s.store.Query(ctx, filter)
}

// ByState returns all records for a state.
func (s *Search) ByState(ctx context.Context, state string) ([]Record, error) {
	st, err := NormalizeState(state)
	if err != nil {
		return nil, err
	}
	return s.store.Query(ctx, Filter{State: st, Limit: stateLimit})
}

// ByPrefix returns records whose ZIP starts with a 1 to 5 digit prefix.
func (s *Search) ByPrefix(ctx context.Context, prefix string) ([]Record, error) {
	p := strings.TrimSpace(prefix)
	if p == "" || len(p) > 5 {
		return nil, eris.Errorf("zipcode: invalid prefix %q", prefix)
	}
	for i := 0; i < len(p); i++ {
		if p[i] < '0' || p[i] > '9' {
			return nil, eris.Errorf("zipcode: invalid prefix %q", prefix)
		}
	}
	return s.store.Query(ctx, Filter{Prefix: p, Limit: prefixLimit})
}

// Query runs a caller-assembled filter, validating the state abbreviation
// when present.
func (s *Search) Query(ctx context.Context, filter Filter) ([]Record, error) {
	if filter.State != "" {
		st, err := NormalizeState(filter.State)
		if err != nil {
			return nil, err
		}
		filter.State = st
	}
	return s.store.Query(ctx, filter)
}

// Near returns records within radiusMiles of the point, closest first. The
// store prefilters by bounding box and the exact distance is refined with
// haversine.
func (s *Search) Near(ctx context.Context, lat, lng, radiusMiles float64, limit int) ([]Match, error) {
	if err := validateCoords(lat, lng); err != nil {
		return nil, err
	}
	if radiusMiles <= 0 {
		return nil, eris.Errorf("zipcode: radius must be positive, got %v", radiusMiles)
	}
	if limit <= 0 {
		limit = defaultNearLimit
	}

	bb := boundingBox(lat, lng, radiusMiles)
	candidates, err := s.store.Query(ctx, Filter{BBox: &bb, Limit: nearCandidates})
	if err != nil {
		return nil, err
	}

	var matches []Match
	for _, r := range candidates {
		d := Haversine(lat, lng, r.Latitude, r.Longitude)
		if d <= radiusMiles {
			matches = append(matches, Match{Record: r, Miles: d})
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Miles != matches[j].Miles {
			return matches[i].Miles < matches[j].Miles
		}
		return matches[i].Zip < matches[j].Zip
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// Contains returns the record whose ZCTA polygon contains the point. When
// no polygon data is loaded it falls back to the nearest centroid; when
// polygons are loaded but none contains the point it returns ErrNotFound.
func (s *Search) Contains(ctx context.Context, lat, lng float64) (*Record, error) {
	if err := validateCoords(lat, lng); err != nil {
		return nil, err
	}

	candidates, err := s.store.Query(ctx, Filter{
		Contains: &Point{Latitude: lat, Longitude: lng},
		Limit:    containsCandidates,
	})
	if err != nil {
		return nil, err
	}

	withBoundary := false
	for i := range candidates {
		r := &candidates[i]
		if len(r.Boundary) == 0 {
			continue
		}
		withBoundary = true
		ok, err := r.ContainsPoint(lat, lng)
		if err != nil {
			return nil, err
		}
		if ok {
			return r, nil
		}
	}
	if withBoundary {
		return nil, eris.Wrapf(ErrNotFound, "zipcode: no boundary contains %.5f,%.5f", lat, lng)
	}

	// No polygon data available; pick the nearest centroid instead.
	if len(candidates) == 0 {
		bb := boundingBox(lat, lng, containsFallbackMiles)
		candidates, err = s.store.Query(ctx, Filter{BBox: &bb, Limit: containsCandidates})
		if err != nil {
			return nil, err
		}
		if len(candidates) == 0 {
			return nil, eris.Wrapf(ErrNotFound, "zipcode: nothing near %.5f,%.5f", lat, lng)
		}
	}

	best := 0
	bestDist := math.MaxFloat64
	for i := range candidates {
		d := Haversine(lat, lng, candidates[i].Latitude, candidates[i].Longitude)
		if d < bestDist {
			best, bestDist = i, d
		}
	}
	return &candidates[best], nil
}

// BoundaryGeoJSON returns the boundary of a ZIP code as GeoJSON.
func (s *Search) BoundaryGeoJSON(ctx context.Context, zip string) ([]byte, error) {
	r, err := s.ByZip(ctx, zip)
	if err != nil {
		return nil, err
	}
	return r.BoundaryGeoJSON()
}

func validateCoords(lat, lng float64) error {
	if lat < -90 || lat > 90 {
		return eris.Errorf("zipcode: latitude %v out of range", lat)
	}
	if lng < -180 || lng > 180 {
		return eris.Errorf("zipcode: longitude %v out of range", lng)
	}
	return nil
}
