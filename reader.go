package wkt2shp

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/paulmach/orb/geojson"
	"github.com/pkg/errors"
)

// Header contains metadata about a shapefile.
type Header struct {
	Name          string      // Layer name (file base name)
	GeometryType  string      // "Point", "MultiPoint", "PolyLine", "Polygon" or "Null"
	FeaturesCount int         // Number of records in the file
	Envelope      [4]float64  // Bounding box [minX, minY, maxX, maxY]
	CRS           *CRS        // Coordinate reference system from the .prj sidecar
	Encoding      string      // Contents of the .cpg sidecar
	Fields        []FieldInfo // Attribute schema
}

// ReadShapefile reads the shapefile at path into a record set. Attribute
// values are typed from the DBF schema and the CRS is recovered from the
// .prj sidecar when present.
func ReadShapefile(path string) (*RecordSet, error) {
	shpPath, err := ShapefilePath(path)
	if err != nil {
		return nil, err
	}

	r, err := openReader(shpPath)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	fields := r.Fields()
	columns := make([]string, 0, len(fields))
	for _, f := range fields {
		columns = append(columns, fieldName(f))
	}

	rs := NewRecordSet(columns, nil)
	rs.CRS = readPRJ(shpPath)

	for r.Next() {
		n, s := r.Shape()
		f := geojson.NewFeature(geometryFromShape(s))
		for i, field := range fields {
			raw := strings.Trim(r.ReadAttribute(n, i), " \x00")
			f.Properties[columns[i]] = parseValue(raw, field)
		}
		rs.Features.Append(f)
	}
	if err := r.Err(); err != nil {
		return nil, errors.Wrapf(err, "read %s", shpPath)
	}

	return rs, nil
}

// ReadHeader returns metadata about the shapefile at path.
func ReadHeader(path string) (*Header, error) {
	shpPath, err := ShapefilePath(path)
	if err != nil {
		return nil, err
	}

	r, err := openReader(shpPath)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	box := r.BBox()
	h := &Header{
		Name:         strings.TrimSuffix(filepath.Base(shpPath), filepath.Ext(shpPath)),
		GeometryType: shapeTypeName(r.GeometryType),
		Envelope:     [4]float64{box.MinX, box.MinY, box.MaxX, box.MaxY},
		CRS:          readPRJ(shpPath),
	}

	for _, f := range r.Fields() {
		h.Fields = append(h.Fields, fieldInfoFromDBF(f))
	}
	for r.Next() {
		h.FeaturesCount++
	}
	if err := r.Err(); err != nil {
		return nil, errors.Wrapf(err, "read %s", shpPath)
	}

	if b, err := os.ReadFile(sidecar(shpPath, ".cpg")); err == nil {
		h.Encoding = strings.TrimSpace(string(b))
	}

	return h, nil
}

// openReader opens shpPath after checking for its .dbf, which go-shp would
// otherwise treat as an empty attribute table.
func openReader(shpPath string) (*shp.Reader, error) {
	if _, err := os.Stat(sidecar(shpPath, ".dbf")); err != nil {
		return nil, errors.Wrapf(err, "open %s attribute table", shpPath)
	}
	r, err := shp.Open(shpPath)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", shpPath)
	}
	return r, nil
}

func readPRJ(shpPath string) *CRS {
	b, err := os.ReadFile(sidecar(shpPath, ".prj"))
	if err != nil {
		return nil
	}
	return CRSFromPRJ(string(b))
}

func sidecar(shpPath, ext string) string {
	return strings.TrimSuffix(shpPath, filepath.Ext(shpPath)) + ext
}
