package wkt2shp

import (
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"
	"github.com/paulmach/orb/planar"
	"github.com/pkg/errors"
)

// emptyWKT maps the tag of a "<TYPE> EMPTY" literal to an empty orb value.
// orb has no empty point, so an empty multipoint stands in for POINT EMPTY.
var emptyWKT = map[string]func() orb.Geometry{
	"POINT":              func() orb.Geometry { return orb.MultiPoint{} },
	"MULTIPOINT":         func() orb.Geometry { return orb.MultiPoint{} },
	"LINESTRING":         func() orb.Geometry { return orb.LineString{} },
	"MULTILINESTRING":    func() orb.Geometry { return orb.MultiLineString{} },
	"POLYGON":            func() orb.Geometry { return orb.Polygon{} },
	"MULTIPOLYGON":       func() orb.Geometry { return orb.MultiPolygon{} },
	"GEOMETRYCOLLECTION": func() orb.Geometry { return orb.Collection{} },
}

// ParseWKT parses a single Well-Known-Text value. "<TYPE> EMPTY" literals,
// optionally with a Z, M or ZM qualifier, parse to an empty geometry.
func ParseWKT(s string) (orb.Geometry, error) {
	s = strings.TrimSpace(s)
	if g, ok := parseEmptyWKT(s); ok {
		return g, nil
	}

	g, err := wkt.Unmarshal(s)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, ErrNilGeometry
	}
	return g, nil
}

func parseEmptyWKT(s string) (orb.Geometry, bool) {
	words := strings.Fields(strings.ToUpper(s))
	switch {
	case len(words) == 2 && words[1] == "EMPTY":
	case len(words) == 3 && words[2] == "EMPTY" && (words[1] == "Z" || words[1] == "M" || words[1] == "ZM"):
	default:
		return nil, false
	}
	newEmpty, ok := emptyWKT[words[0]]
	if !ok {
		return nil, false
	}
	return newEmpty(), true
}

// shapeTypeFor returns the shapefile type that can hold every geometry.
// Points and multipoints share a file as MULTIPOINT. Empty geometries are
// written as null shapes and fit any file.
func shapeTypeFor(geometries []orb.Geometry) (shp.ShapeType, error) {
	st := shp.ShapeType(shp.NULL)
	for i, g := range geometries {
		if g != nil && isEmpty(g) {
			continue
		}
		t, err := orbToShapeType(g)
		if err != nil {
			return shp.NULL, errors.Wrapf(err, "record %d", i)
		}
		switch {
		case st == shp.NULL || st == t:
			st = t
		case isPointFamily(st) && isPointFamily(t):
			st = shp.MULTIPOINT
		default:
			return shp.NULL, errors.Wrapf(ErrMixedGeometry, "record %d is %s, file is %s", i, g.GeoJSONType(), shapeTypeName(st))
		}
	}
	return st, nil
}

func isPointFamily(t shp.ShapeType) bool {
	return t == shp.POINT || t == shp.MULTIPOINT
}

// orbToShapeType converts an orb.Geometry to its shapefile ShapeType.
func orbToShapeType(geom orb.Geometry) (shp.ShapeType, error) {
	if geom == nil {
		return shp.NULL, ErrNilGeometry
	}
	if isEmpty(geom) {
		return shp.NULL, ErrEmptyGeometry
	}

	switch geom.(type) {
	case orb.Point:
		return shp.POINT, nil
	case orb.MultiPoint:
		return shp.MULTIPOINT, nil
	case orb.LineString, orb.MultiLineString:
		return shp.POLYLINE, nil
	case orb.Ring, orb.Polygon, orb.MultiPolygon, orb.Bound:
		return shp.POLYGON, nil
	default:
		return shp.NULL, errors.Wrap(ErrUnsupportedType, geom.GeoJSONType())
	}
}

func isEmpty(geom orb.Geometry) bool {
	switch v := geom.(type) {
	case orb.MultiPoint:
		return len(v) == 0
	case orb.LineString:
		return len(v) == 0
	case orb.MultiLineString:
		for _, ls := range v {
			if len(ls) > 0 {
				return false
			}
		}
		return true
	case orb.Ring:
		return len(v) == 0
	case orb.Polygon:
		return len(v) == 0 || len(v[0]) == 0
	case orb.MultiPolygon:
		for _, p := range v {
			if len(p) > 0 && len(p[0]) > 0 {
				return false
			}
		}
		return true
	case orb.Collection:
		return len(v) == 0
	}
	return false
}

func shapeTypeName(t shp.ShapeType) string {
	switch t {
	case shp.NULL:
		return "Null"
	case shp.POINT:
		return "Point"
	case shp.POLYLINE:
		return "PolyLine"
	case shp.POLYGON:
		return "Polygon"
	case shp.MULTIPOINT:
		return "MultiPoint"
	default:
		return "Unknown"
	}
}

// geometryToShape converts an orb.Geometry to a shape of type st. Empty
// geometries become null shapes.
func geometryToShape(geom orb.Geometry, st shp.ShapeType) (shp.Shape, error) {
	if geom != nil && isEmpty(geom) {
		return &shp.Null{}, nil
	}

	switch v := geom.(type) {
	case orb.Point:
		if st == shp.MULTIPOINT {
			return multiPointToShape(orb.MultiPoint{v}), nil
		}
		return &shp.Point{X: v[0], Y: v[1]}, nil

	case orb.MultiPoint:
		return multiPointToShape(v), nil

	case orb.LineString:
		return shp.NewPolyLine([][]shp.Point{lineStringToPoints(v)}), nil

	case orb.MultiLineString:
		parts := make([][]shp.Point, 0, len(v))
		for _, ls := range v {
			if len(ls) > 0 {
				parts = append(parts, lineStringToPoints(ls))
			}
		}
		return shp.NewPolyLine(parts), nil

	case orb.Ring:
		return polygonToShape(orb.MultiPolygon{{v}}), nil

	case orb.Polygon:
		return polygonToShape(orb.MultiPolygon{v}), nil

	case orb.MultiPolygon:
		return polygonToShape(v), nil

	case orb.Bound:
		return polygonToShape(orb.MultiPolygon{v.ToPolygon()}), nil

	default:
		return nil, ErrUnsupportedType
	}
}

// geometryFromShape converts a shape read from a shapefile to an orb.Geometry.
func geometryFromShape(s shp.Shape) orb.Geometry {
	switch v := s.(type) {
	case *shp.Point:
		return orb.Point{v.X, v.Y}

	case *shp.MultiPoint:
		mp := make(orb.MultiPoint, 0, len(v.Points))
		for _, p := range v.Points {
			mp = append(mp, orb.Point{p.X, p.Y})
		}
		return mp

	case *shp.PolyLine:
		parts := splitParts(v.Parts, v.Points)
		if len(parts) == 1 {
			return orb.LineString(parts[0])
		}
		mls := make(orb.MultiLineString, 0, len(parts))
		for _, p := range parts {
			mls = append(mls, orb.LineString(p))
		}
		return mls

	case *shp.Polygon:
		mp := polygonFromRings(splitParts(v.Parts, v.Points))
		if len(mp) == 1 {
			return mp[0]
		}
		return mp

	default:
		return nil
	}
}

// Helper functions for writing

func lineStringToPoints(ls orb.LineString) []shp.Point {
	pts := make([]shp.Point, 0, len(ls))
	for _, p := range ls {
		pts = append(pts, shp.Point{X: p[0], Y: p[1]})
	}
	return pts
}

func ringToPoints(r orb.Ring) []shp.Point {
	pts := make([]shp.Point, 0, len(r)+1)
	for _, p := range r {
		pts = append(pts, shp.Point{X: p[0], Y: p[1]})
	}
	if !r.Closed() {
		pts = append(pts, shp.Point{X: r[0][0], Y: r[0][1]})
	}
	return pts
}

func multiPointToShape(mp orb.MultiPoint) *shp.MultiPoint {
	pts := make([]shp.Point, 0, len(mp))
	for _, p := range mp {
		pts = append(pts, shp.Point{X: p[0], Y: p[1]})
	}
	return &shp.MultiPoint{
		Box:       shp.BBoxFromPoints(pts),
		NumPoints: int32(len(pts)),
		Points:    pts,
	}
}

// polygonToShape writes exterior rings clockwise and holes counter-clockwise.
func polygonToShape(mp orb.MultiPolygon) *shp.Polygon {
	parts := make([][]shp.Point, 0, len(mp))
	for _, poly := range mp {
		for i, ring := range poly {
			if len(ring) == 0 {
				continue
			}
			want := orb.CCW
			if i == 0 {
				want = orb.CW
			}
			if ring.Orientation() != want {
				ring = ring.Clone()
				ring.Reverse()
			}
			parts = append(parts, ringToPoints(ring))
		}
	}
	p := shp.Polygon(*shp.NewPolyLine(parts))
	return &p
}

// Helper functions for reading

func splitParts(starts []int32, points []shp.Point) [][]orb.Point {
	parts := make([][]orb.Point, 0, len(starts))
	for i, start := range starts {
		end := int32(len(points))
		if i+1 < len(starts) {
			end = starts[i+1]
		}
		if start < 0 || start > end || int(end) > len(points) {
			continue
		}
		part := make([]orb.Point, 0, end-start)
		for _, p := range points[start:end] {
			part = append(part, orb.Point{p.X, p.Y})
		}
		parts = append(parts, part)
	}
	return parts
}

// polygonFromRings groups clockwise exterior rings with the counter-clockwise
// holes they contain and returns them in OGC orientation.
func polygonFromRings(rings [][]orb.Point) orb.MultiPolygon {
	var mp orb.MultiPolygon
	var holes []orb.Ring

	for _, pts := range rings {
		ring := orb.Ring(pts)
		if ring.Orientation() == orb.CCW {
			holes = append(holes, ring)
			continue
		}
		ring.Reverse()
		mp = append(mp, orb.Polygon{ring})
	}

	for _, hole := range holes {
		owner := -1
		for i, poly := range mp {
			if planar.RingContains(poly[0], hole[0]) {
				owner = i
				break
			}
		}
		if owner < 0 {
			// orphan hole, keep it as an exterior
			mp = append(mp, orb.Polygon{hole})
			continue
		}
		hole.Reverse()
		mp[owner] = append(mp[owner], hole)
	}

	return mp
}
