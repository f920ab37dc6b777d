package wkt2shp

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/pkg/errors"
)

// RecordSet is a set of attribute rows paired one to one with geometries,
// all sharing a single CRS.
type RecordSet struct {
	Columns        []string                   // Attribute columns in output order
	GeometryColumn string                     // Name of the geometry column
	Features       *geojson.FeatureCollection // One feature per row, in row order
	CRS            *CRS
}

// NewRecordSet returns an empty record set with the given attribute columns.
func NewRecordSet(columns []string, crs *CRS) *RecordSet {
	if crs == nil {
		crs = WGS84()
	}
	return &RecordSet{
		Columns:        columns,
		GeometryColumn: GeometryField,
		Features:       geojson.NewFeatureCollection(),
		CRS:            crs,
	}
}

// BuildRecordSet parses geomColumn of every row as WKT and pairs each row's
// remaining attributes with its geometry. The source column is dropped
// unless it is literally named "geometry", in which case it becomes the
// geometry column. Any unparseable row fails the whole build.
func BuildRecordSet(t *Table, geomColumn string, crs *CRS) (*RecordSet, error) {
	if !t.HasColumn(geomColumn) {
		return nil, classify(KindMissingColumn, errors.Errorf("Geometry column '%s' not found in CSV", geomColumn))
	}

	columns := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		if c == geomColumn || c == GeometryField {
			continue
		}
		columns = append(columns, c)
	}

	rs := NewRecordSet(columns, crs)
	for i, row := range t.Rows {
		g, err := rowGeometry(row, geomColumn)
		if err != nil {
			return nil, classify(KindParse, errors.Wrapf(err, "row %d", i+1))
		}

		f := geojson.NewFeature(g)
		for _, c := range columns {
			f.Properties[c] = row[c]
		}
		rs.Features.Append(f)
	}

	return rs, nil
}

func rowGeometry(row Row, geomColumn string) (orb.Geometry, error) {
	s, ok := row[geomColumn].(string)
	if !ok {
		return nil, errors.Errorf("expected WKT text in %q, got %v", geomColumn, row[geomColumn])
	}
	g, err := ParseWKT(s)
	if err != nil {
		return nil, errors.Wrapf(err, "parse %q", abbreviate(s, 64))
	}
	return g, nil
}

// Len returns the number of records.
func (rs *RecordSet) Len() int {
	if rs == nil || rs.Features == nil {
		return 0
	}
	return len(rs.Features.Features)
}

// Geometries returns the geometry of every record in order.
func (rs *RecordSet) Geometries() []orb.Geometry {
	geoms := make([]orb.Geometry, 0, rs.Len())
	for _, f := range rs.Features.Features {
		geoms = append(geoms, f.Geometry)
	}
	return geoms
}

// HasColumn reports whether name is an attribute column or the geometry column.
func (rs *RecordSet) HasColumn(name string) bool {
	if name == rs.GeometryColumn {
		return true
	}
	for _, c := range rs.Columns {
		if c == name {
			return true
		}
	}
	return false
}

func abbreviate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return truncateBytes(s, n) + "..."
}
