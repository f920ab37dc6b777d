package wkt2shp

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/require"
)

func TestReadShapefile_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := ReadShapefile(filepath.Join(dir, "missing.shp"))
	require.Error(t, err)

	_, err = ReadShapefile(filepath.Join(dir, "layer.fgb"))
	require.ErrorIs(t, err, ErrOutputPath)

	_, err = ReadHeader(filepath.Join(dir, "missing.shp"))
	require.Error(t, err)
}

func TestReadShapefile_MissingDBF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nodbf.shp")
	require.NoError(t, Write(path, []orb.Geometry{orb.Point{1, 2}}, &Options{Logger: discard}))
	require.NoError(t, os.Remove(sidecar(path, ".dbf")))

	_, err := ReadShapefile(path)
	require.Error(t, err)
	require.ErrorIs(t, err, os.ErrNotExist)

	_, err = ReadHeader(path)
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestReadShapefile_Truncated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cut.shp")
	require.NoError(t, Write(path, []orb.Geometry{orb.Point{1, 2}, orb.Point{3, 4}, orb.Point{5, 6}}, &Options{Logger: discard}))

	info, err := os.Stat(path)
	require.NoError(t, err)
	// 100 byte header and three 28 byte point records; cut into the last one
	require.Equal(t, int64(184), info.Size())
	require.NoError(t, os.Truncate(path, info.Size()-8))

	_, err = ReadShapefile(path)
	require.Error(t, err)

	_, err = ReadHeader(path)
	require.Error(t, err)
}

func TestReadShapefile_WithoutSidecars(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bare.shp")
	require.NoError(t, Write(path, []orb.Geometry{orb.LineString{{0, 0}, {1, 1}, {2, 0}}}, &Options{Logger: discard}))
	require.NoError(t, os.Remove(sidecar(path, ".prj")))
	require.NoError(t, os.Remove(sidecar(path, ".cpg")))

	rs, err := ReadShapefile(path)
	require.NoError(t, err)
	require.Nil(t, rs.CRS)
	require.Equal(t, []orb.Geometry{orb.LineString{{0, 0}, {1, 1}, {2, 0}}}, rs.Geometries())

	h, err := ReadHeader(path)
	require.NoError(t, err)
	require.Nil(t, h.CRS)
	require.Empty(t, h.Encoding)
	require.Equal(t, "PolyLine", h.GeometryType)
}

func TestReadShapefile_DatasetDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "roads")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, Write(filepath.Join(dir, "roads.shp"), []orb.Geometry{
		orb.MultiLineString{{{0, 0}, {1, 1}}, {{5, 5}, {6, 6}}},
	}, &Options{Logger: discard}))

	rs, err := ReadShapefile(dir)
	require.NoError(t, err)
	require.Equal(t, []orb.Geometry{
		orb.MultiLineString{{{0, 0}, {1, 1}}, {{5, 5}, {6, 6}}},
	}, rs.Geometries())
}

func TestSidecar(t *testing.T) {
	require.Equal(t, filepath.Join("a", "b.prj"), sidecar(filepath.Join("a", "b.shp"), ".prj"))
	require.Equal(t, "b.cpg", sidecar("b.shp", ".cpg"))
}
