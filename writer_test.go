package wkt2shp

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/require"
)

func TestShapefilePath(t *testing.T) {
	tests := []struct {
		in       string
		expected string
	}{
		{"out.shp", "out.shp"},
		{"data/OUT.SHP", "data/OUT.shp"},
		{"data/roads", "data/roads/roads.shp"},
		{"data/roads/", "data/roads/roads.shp"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ShapefilePath(filepath.FromSlash(tt.in))
			require.NoError(t, err)
			require.Equal(t, filepath.FromSlash(tt.expected), got)
		})
	}

	_, err := ShapefilePath("out.geojson")
	require.ErrorIs(t, err, ErrOutputPath)

	_, err = ShapefilePath("")
	require.ErrorIs(t, err, ErrOutputPath)
}

func TestWrite_Points(t *testing.T) {
	path := filepath.Join(t.TempDir(), "points.shp")
	geometries := []orb.Geometry{
		orb.Point{1, 2},
		orb.Point{3, 4},
		orb.Point{5, 6},
	}

	require.NoError(t, Write(path, geometries, &Options{Logger: discard}))

	for _, ext := range []string{".shp", ".shx", ".dbf", ".prj", ".cpg"} {
		_, err := os.Stat(sidecar(path, ext))
		require.NoError(t, err, ext)
	}
	require.NoFileExists(t, filepath.Join(filepath.Dir(path), "pointsdbf"))

	h, err := ReadHeader(path)
	require.NoError(t, err)
	require.Equal(t, "points", h.Name)
	require.Equal(t, "Point", h.GeometryType)
	require.Equal(t, 3, h.FeaturesCount)
	require.Equal(t, [4]float64{1, 2, 5, 6}, h.Envelope)
	require.Equal(t, "EPSG:4326", h.CRS.String())
	require.Equal(t, "UTF-8", h.Encoding)
	require.Empty(t, h.Fields)
}

func TestWrite_MixedGeometries(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mixed.shp")
	geometries := []orb.Geometry{
		orb.Point{1, 2},
		orb.LineString{{0, 0}, {1, 1}},
	}

	err := Write(path, geometries, &Options{Logger: discard})
	require.ErrorIs(t, err, ErrMixedGeometry)

	// validation happens before any file is created
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestWrite_NoGeometries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.shp")
	require.NoError(t, Write(path, nil, &Options{Logger: discard}))

	h, err := ReadHeader(path)
	require.NoError(t, err)
	require.Equal(t, "Null", h.GeometryType)
	require.Zero(t, h.FeaturesCount)
}

func TestWriteShapefile_WithProperties(t *testing.T) {
	path := filepath.Join(t.TempDir(), "props.shp")

	rs := NewRecordSet([]string{"name", "value", "ratio", "population_total"}, ParseCRS("EPSG:3857"))
	f1 := geojson.NewFeature(orb.Point{1, 2})
	f1.Properties = geojson.Properties{"name": "Point A", "value": 42, "ratio": 0.25, "population_total": int64(1000)}
	rs.Features.Append(f1)
	f2 := geojson.NewFeature(orb.Point{3, 4})
	f2.Properties = geojson.Properties{"name": "Point B", "value": nil, "ratio": 1.0, "population_total": int64(2000)}
	rs.Features.Append(f2)

	require.NoError(t, WriteShapefile(path, rs, &Options{Logger: discard}))

	h, err := ReadHeader(path)
	require.NoError(t, err)
	require.Equal(t, "EPSG:3857", h.CRS.String())
	require.Len(t, h.Fields, 4)
	require.Equal(t, "name", h.Fields[0].Name)
	require.Equal(t, fieldTypeString, h.Fields[0].Type)
	require.Equal(t, 7, h.Fields[0].Size)
	require.Equal(t, fieldTypeInt, h.Fields[1].Type)
	require.Equal(t, fieldTypeReal, h.Fields[2].Type)
	require.Equal(t, "population", h.Fields[3].Name)

	got, err := ReadShapefile(path)
	require.NoError(t, err)
	require.Equal(t, []string{"name", "value", "ratio", "population"}, got.Columns)
	require.Equal(t, 2, got.Len())

	p := got.Features.Features[0].Properties
	require.Equal(t, "Point A", p["name"])
	require.Equal(t, int64(42), p["value"])
	require.Equal(t, 0.25, p["ratio"])
	require.Equal(t, int64(1000), p["population"])

	p = got.Features.Features[1].Properties
	require.Nil(t, p["value"])
	require.Equal(t, 1.0, p["ratio"])
}

func TestWriteShapefile_ComplexGeometries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "polygons.shp")

	poly := orb.Polygon{
		{{0, 0}, {100, 0}, {100, 100}, {0, 100}, {0, 0}},
		{{20, 20}, {20, 80}, {80, 80}, {80, 20}, {20, 20}},
	}
	mpoly := orb.MultiPolygon{
		{{{0, 0}, {10, 0}, {10, 10}, {0, 10}, {0, 0}}},
		{{{50, 50}, {60, 50}, {60, 60}, {50, 60}, {50, 50}}},
	}

	require.NoError(t, Write(path, []orb.Geometry{poly, mpoly}, &Options{Logger: discard}))

	got, err := ReadShapefile(path)
	require.NoError(t, err)
	require.Equal(t, []orb.Geometry{poly, mpoly}, got.Geometries())
}

func TestWriteShapefile_Overwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "twice.shp")
	opts := &Options{Logger: discard}

	require.NoError(t, Write(path, []orb.Geometry{orb.Point{1, 1}, orb.Point{2, 2}, orb.Point{3, 3}}, opts))
	require.NoError(t, Write(path, []orb.Geometry{orb.Point{9, 9}}, opts))

	got, err := ReadShapefile(path)
	require.NoError(t, err)
	require.Equal(t, []orb.Geometry{orb.Point{9, 9}}, got.Geometries())
}

func TestWriteShapefile_EmptyGeometries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nulls.shp")

	rs := NewRecordSet([]string{"id"}, nil)
	for i, g := range []orb.Geometry{orb.MultiPoint{}, orb.Point{1, 2}, orb.LineString{}, orb.Point{5, 6}} {
		f := geojson.NewFeature(g)
		f.Properties["id"] = int64(i)
		rs.Features.Append(f)
	}
	require.NoError(t, WriteShapefile(path, rs, &Options{Logger: discard}))

	h, err := ReadHeader(path)
	require.NoError(t, err)
	require.Equal(t, "Point", h.GeometryType)
	require.Equal(t, 4, h.FeaturesCount)
	// null records do not pull the envelope to the origin
	require.Equal(t, [4]float64{1, 2, 5, 6}, h.Envelope)

	got, err := ReadShapefile(path)
	require.NoError(t, err)
	require.Equal(t, []orb.Geometry{nil, orb.Point{1, 2}, nil, orb.Point{5, 6}}, got.Geometries())
	require.Equal(t, int64(2), got.Features.Features[2].Properties["id"])
}

func TestWriteShapefile_Nil(t *testing.T) {
	err := WriteShapefile(filepath.Join(t.TempDir(), "nil.shp"), nil, nil)
	require.ErrorIs(t, err, ErrNilGeometry)
}

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()

	require.NotNil(t, opts)
	require.Equal(t, DefaultCRS, opts.CRS)
	require.Equal(t, ',', opts.Delimiter)
	require.NotNil(t, opts.Logger)

	var nilOpts *Options
	require.Equal(t, DefaultCRS, nilOpts.crs())
	require.Equal(t, ',', nilOpts.delimiter())
}
