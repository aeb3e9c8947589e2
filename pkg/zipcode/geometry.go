package zipcode

import (
	"math"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"
	"github.com/twpayne/go-geom/encoding/geojson"
	"github.com/twpayne/go-geom/xy"
)

const (
	// earthRadiusMiles is the mean Earth radius.
	earthRadiusMiles = 3958.8

	milesPerDegreeLat = 69.0
	milesPerDegreeLng = 69.17
)

// Haversine returns the great-circle distance in miles between two WGS84
// coordinates.
func Haversine(lat1, lng1, lat2, lng2 float64) float64 {
	rlat1 := lat1 * math.Pi / 180
	rlat2 := lat2 * math.Pi / 180
	dlat := (lat2 - lat1) * math.Pi / 180
	dlng := (lng2 - lng1) * math.Pi / 180

	a := math.Sin(dlat/2)*math.Sin(dlat/2) +
		math.Cos(rlat1)*math.Cos(rlat2)*math.Sin(dlng/2)*math.Sin(dlng/2)
	return 2 * earthRadiusMiles * math.Asin(math.Sqrt(a))
}

// boundingBox returns a latitude/longitude window that contains the circle
// of the given radius around the point. Near the poles the longitude span
// degenerates, so the window widens to all longitudes there.
func boundingBox(lat, lng, radiusMiles float64) Bounds {
	latDelta := radiusMiles / milesPerDegreeLat
	b := Bounds{South: lat - latDelta, North: lat + latDelta}

	if math.Abs(lat) > 89 {
		b.West, b.East = -180, 180
		return b
	}
	lngDelta := radiusMiles / (milesPerDegreeLng * math.Cos(lat*math.Pi/180))
	b.West = lng - lngDelta
	b.East = lng + lngDelta
	return b
}

// ContainsPoint reports whether the point lies inside the record's boundary
// polygon. Records without boundary data report false.
func (r *Record) ContainsPoint(lat, lng float64) (bool, error) {
	if len(r.Boundary) == 0 {
		return false, nil
	}
	g, err := ewkb.Unmarshal(r.Boundary)
	if err != nil {
		return false, eris.Wrapf(err, "zipcode: decode boundary %s", r.Zip)
	}

	coord := geom.Coord{lng, lat}
	switch t := g.(type) {
	case *geom.Polygon:
		return polygonContains(t, coord), nil
	case *geom.MultiPolygon:
		for i := 0; i < t.NumPolygons(); i++ {
			if polygonContains(t.Polygon(i), coord) {
				return true, nil
			}
		}
		return false, nil
	default:
		return false, eris.Errorf("zipcode: unexpected boundary geometry %T for %s", g, r.Zip)
	}
}

// polygonContains tests point membership with the ring convention that the
// first ring is the shell and any further rings are holes.
func polygonContains(p *geom.Polygon, coord geom.Coord) bool {
	if p.NumLinearRings() == 0 {
		return false
	}
	if !xy.IsPointInRing(p.Layout(), coord, p.LinearRing(0).FlatCoords()) {
		return false
	}
	for i := 1; i < p.NumLinearRings(); i++ {
		if xy.IsPointInRing(p.Layout(), coord, p.LinearRing(i).FlatCoords()) {
			return false
		}
	}
	return true
}

// BoundaryGeoJSON encodes the record's boundary as a GeoJSON geometry.
// Records without boundary data return ErrNotFound.
func (r *Record) BoundaryGeoJSON() ([]byte, error) {
	if len(r.Boundary) == 0 {
		return nil, eris.Wrapf(ErrNotFound, "zipcode: no boundary for %s", r.Zip)
	}
	g, err := ewkb.Unmarshal(r.Boundary)
	if err != nil {
		return nil, eris.Wrapf(err, "zipcode: decode boundary %s", r.Zip)
	}
	b, err := geojson.Marshal(g)
	if err != nil {
		return nil, eris.Wrapf(err, "zipcode: encode geojson for %s", r.Zip)
	}
	return b, nil
}
