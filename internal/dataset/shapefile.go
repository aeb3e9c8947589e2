package dataset

import (
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"
	"go.uber.org/zap"

	"github.com/VIDA-NYU/openclean-geo/pkg/zipcode"
)

// Boundary carries the geometry extracted for one ZCTA.
type Boundary struct {
	Zip      string
	Bounds   zipcode.Bounds
	Centroid zipcode.Point
	EWKB     []byte
}

// zctaFields lists the attribute names that carry the ZCTA code across
// shapefile vintages, newest first.
var zctaFields = []string{"zcta5ce20", "zcta5ce10", "zcta5ce", "geoid20", "geoid10", "geoid"}

// ParseShapefile reads a ZCTA5 shapefile and returns one Boundary per
// usable polygon record. The bounding-box midpoint stands in as a centroid
// for ZCTAs the gazetteer does not cover.
func ParseShapefile(shpPath string) ([]Boundary, error) {
	reader, err := shp.Open(shpPath)
	if err != nil {
		return nil, eris.Wrapf(err, "dataset: open shapefile %s", shpPath)
	}
	defer func() { _ = reader.Close() }()

	fields := reader.Fields()
	fieldIdx := make(map[string]int, len(fields))
	for i, f := range fields {
		name := strings.TrimRight(f.String(), "\x00")
		fieldIdx[strings.ToLower(name)] = i
	}

	zipIdx := -1
	for _, name := range zctaFields {
		if i, ok := fieldIdx[name]; ok {
			zipIdx = i
			break
		}
	}
	if zipIdx < 0 {
		return nil, eris.Errorf("dataset: no ZCTA code field in %s", shpPath)
	}

	var boundaries []Boundary
	var skipped int

	for reader.Next() {
		_, shape := reader.Shape()

		raw := strings.TrimSpace(strings.TrimRight(reader.Attribute(zipIdx), "\x00"))
		zip, err := zipcode.Normalize(raw)
		if err != nil {
			skipped++
			continue
		}

		poly, ok := shape.(*shp.Polygon)
		if !ok {
			skipped++
			continue
		}

		data, err := encodeBoundary(poly)
		if err != nil || data == nil {
			skipped++
			continue
		}

		box := poly.BBox()
		boundaries = append(boundaries, Boundary{
			Zip: zip,
			Bounds: zipcode.Bounds{
				West:  box.MinX,
				East:  box.MaxX,
				North: box.MaxY,
				South: box.MinY,
			},
			Centroid: zipcode.Point{
				Latitude:  (box.MinY + box.MaxY) / 2,
				Longitude: (box.MinX + box.MaxX) / 2,
			},
			EWKB: data,
		})
	}

	if skipped > 0 {
		zap.L().Debug("dataset: skipped shapefile records",
			zap.String("path", shpPath),
			zap.Int("skipped", skipped),
		)
	}
	return boundaries, nil
}

// encodeBoundary converts a shapefile polygon to EWKB bytes with SRID 4326.
// Returns nil, nil for shapes without usable rings.
func encodeBoundary(p *shp.Polygon) ([]byte, error) {
	mp := polygonToMulti(p)
	if mp == nil {
		return nil, nil
	}
	data, err := ewkb.Marshal(mp, ewkb.NDR)
	if err != nil {
		return nil, eris.Wrap(err, "dataset: encode boundary")
	}
	return data, nil
}

// polygonToMulti converts a shapefile polygon to a geom.MultiPolygon.
// Shapefile ring order encodes nesting: a clockwise ring opens a new outer
// shell and counter-clockwise rings are holes in the preceding shell.
func polygonToMulti(p *shp.Polygon) *geom.MultiPolygon {
	if p == nil || p.NumParts == 0 || len(p.Points) == 0 {
		return nil
	}

	mp := geom.NewMultiPolygon(geom.XY).SetSRID(4326)

	var cur *geom.Polygon
	flush := func() {
		if cur != nil && cur.NumLinearRings() > 0 {
			if err := mp.Push(cur); err != nil {
				zap.L().Debug("dataset: skipping malformed polygon part", zap.Error(err))
			}
		}
		cur = nil
	}

	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		end := int32(len(p.Points))
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		}
		pts := p.Points[start:end]
		if len(pts) == 0 {
			continue
		}

		flat := make([]float64, 0, len(pts)*2)
		for _, pt := range pts {
			flat = append(flat, pt.X, pt.Y)
		}
		ring := geom.NewLinearRingFlat(geom.XY, flat)

		if cur == nil || clockwise(pts) {
			flush()
			cur = geom.NewPolygon(geom.XY)
		}
		if err := cur.Push(ring); err != nil {
			zap.L().Debug("dataset: skipping malformed ring", zap.Int32("part", i), zap.Error(err))
		}
	}
	flush()

	if mp.NumPolygons() == 0 {
		return nil
	}
	return mp
}

// clockwise reports the winding of a ring via the signed shoelace sum.
func clockwise(pts []shp.Point) bool {
	var sum float64
	for i := range pts {
		j := (i + 1) % len(pts)
		sum += (pts[j].X - pts[i].X) * (pts[j].Y + pts[i].Y)
	}
	return sum > 0
}
