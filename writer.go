package wkt2shp

import (
	"encoding/binary"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/pkg/errors"
)

// shapefileEncoding is written to the .cpg sidecar; DBF text is UTF-8.
const shapefileEncoding = "UTF-8"

// ShapefilePath resolves the .shp file for an output location. A path ending
// in .shp names the file itself; a path without an extension names a dataset
// directory holding <dir>/<base>.shp.
func ShapefilePath(path string) (string, error) {
	if path == "" {
		return "", errors.Wrap(ErrOutputPath, "empty path")
	}

	ext := filepath.Ext(path)
	switch {
	case strings.EqualFold(ext, ".shp"):
		return strings.TrimSuffix(path, ext) + ".shp", nil
	case ext == "":
		clean := filepath.Clean(path)
		return filepath.Join(clean, filepath.Base(clean)+".shp"), nil
	default:
		return "", errors.Wrapf(ErrOutputPath, "%s: extension %q is not .shp", path, ext)
	}
}

// Write writes geometries without attributes to a shapefile.
// This is a convenience function for writing geometry-only data.
func Write(path string, geometries []orb.Geometry, opts *Options) error {
	rs := NewRecordSet(nil, ParseCRS(opts.crs()))
	for _, g := range geometries {
		rs.Features.Append(geojson.NewFeature(g))
	}
	return WriteShapefile(path, rs, opts)
}

// WriteShapefile writes a record set to the shapefile at path along with its
// .shx, .dbf, .prj and .cpg sidecars. Existing files are overwritten.
func WriteShapefile(path string, rs *RecordSet, opts *Options) error {
	l, err := encodeLayer(path, rs, opts.logger())
	if err != nil {
		return err
	}
	return l.write()
}

// layer is a record set converted to shapes and DBF fields, ready to be
// written without further validation.
type layer struct {
	path   string
	st     shp.ShapeType
	shapes []shp.Shape
	fields []dbfField
	rows   []geojson.Properties
	crs    *CRS
	log    *slog.Logger
}

// encodeLayer validates rs and converts it for writing. It does not touch
// the filesystem.
func encodeLayer(path string, rs *RecordSet, log *slog.Logger) (*layer, error) {
	if rs == nil || rs.Features == nil {
		return nil, ErrNilGeometry
	}

	shpPath, err := ShapefilePath(path)
	if err != nil {
		return nil, err
	}

	geoms := rs.Geometries()
	st, err := shapeTypeFor(geoms)
	if err != nil {
		return nil, err
	}

	shapes := make([]shp.Shape, 0, len(geoms))
	for i, g := range geoms {
		s, err := geometryToShape(g, st)
		if err != nil {
			return nil, errors.Wrapf(err, "record %d", i)
		}
		shapes = append(shapes, s)
	}

	rows := make([]geojson.Properties, 0, len(geoms))
	for _, f := range rs.Features.Features {
		rows = append(rows, f.Properties)
	}

	return &layer{
		path:   shpPath,
		st:     st,
		shapes: shapes,
		fields: inferFields(rs.Columns, rs.Features.Features, log),
		rows:   rows,
		crs:    rs.CRS,
		log:    log,
	}, nil
}

func (l *layer) write() error {
	if err := l.writeShapes(); err != nil {
		return err
	}
	if err := placeDBF(l.path); err != nil {
		return errors.Wrap(err, "write .dbf")
	}
	if err := l.fixBounds(); err != nil {
		return errors.Wrap(err, "write bounds")
	}

	prj := sidecar(l.path, ".prj")
	if l.crs.Known() {
		if err := os.WriteFile(prj, []byte(l.crs.PRJ()), 0o644); err != nil {
			return errors.Wrap(err, "write .prj")
		}
	} else {
		if err := os.Remove(prj); err != nil && !os.IsNotExist(err) {
			return errors.Wrap(err, "remove stale .prj")
		}
		l.log.Warn("crs has no known WKT, .prj not written",
			slog.String("crs", l.crs.String()))
	}
	if err := os.WriteFile(sidecar(l.path, ".cpg"), []byte(shapefileEncoding), 0o644); err != nil {
		return errors.Wrap(err, "write .cpg")
	}

	l.log.Debug("wrote shapefile",
		slog.String("path", l.path),
		slog.String("type", shapeTypeName(l.st)),
		slog.Int("records", len(l.shapes)),
		slog.Int("fields", len(l.fields)),
		slog.String("crs", l.crs.String()))

	return nil
}

func (l *layer) writeShapes() error {
	w, err := shp.Create(l.path, l.st)
	if err != nil {
		return errors.Wrapf(err, "create %s", l.path)
	}
	defer w.Close()

	fields := make([]shp.Field, 0, len(l.fields))
	for _, f := range l.fields {
		fields = append(fields, f.field)
	}
	if err := w.SetFields(fields); err != nil {
		return errors.Wrap(err, "set fields")
	}

	for i, s := range l.shapes {
		n := int(writeShape(w, s))
		for j, f := range l.fields {
			if err := w.WriteAttribute(n, j, formatValue(l.rows[i][f.info.Source], f.info)); err != nil {
				return errors.Wrapf(err, "record %d field %s", i, f.info.Name)
			}
		}
	}
	return nil
}

// writeShape writes s with its own record type. The writer stamps every
// record with the file type, which would corrupt null records in a typed file.
func writeShape(w *shp.Writer, s shp.Shape) int32 {
	if _, ok := s.(*shp.Null); !ok {
		return w.Write(s)
	}
	st := w.GeometryType
	w.GeometryType = shp.NULL
	defer func() { w.GeometryType = st }()
	return w.Write(s)
}

// placeDBF moves the attribute table go-shp writes as "<base>dbf" to
// "<base>.dbf".
func placeDBF(shpPath string) error {
	base := strings.TrimSuffix(shpPath, filepath.Ext(shpPath))
	stray := base + "dbf"
	if _, err := os.Stat(stray); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	dbf := base + ".dbf"
	if err := os.Remove(dbf); err != nil && !os.IsNotExist(err) {
		return err
	}
	return os.Rename(stray, dbf)
}

// fixBounds rewrites the header bounding box of the .shp and .shx files
// from the non-null shapes. The writer folds the zero box of null records
// into the header.
func (l *layer) fixBounds() error {
	var box shp.Box
	found, nulls := false, false
	for _, s := range l.shapes {
		if _, ok := s.(*shp.Null); ok {
			nulls = true
			continue
		}
		if !found {
			box, found = s.BBox(), true
			continue
		}
		box.Extend(s.BBox())
	}
	if !nulls {
		return nil
	}

	buf := make([]byte, 32)
	for i, v := range []float64{box.MinX, box.MinY, box.MaxX, box.MaxY} {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(v))
	}
	for _, path := range []string{l.path, sidecar(l.path, ".shx")} {
		if err := writeAt(path, buf, headerBoundsOffset); err != nil {
			return err
		}
	}
	return nil
}

// headerBoundsOffset is the byte offset of Xmin in the main file header.
const headerBoundsOffset = 36

func writeAt(path string, b []byte, off int64) error {
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return err
	}
	if _, err := f.WriteAt(b, off); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
