// Package wkt2shp converts delimited tables carrying Well-Known-Text geometries
// into ESRI Shapefiles. Geometries are handled as orb.Geometry values and rows
// as geojson.Feature properties, so a RecordSet can also be built or read back
// programmatically.
package wkt2shp

import (
	"log/slog"

	"github.com/pkg/errors"
)

// DefaultCRS is the coordinate reference system used when none is given.
const DefaultCRS = "EPSG:4326"

// GeometryField is the name of the geometry column in a RecordSet.
const GeometryField = "geometry"

// Common errors returned by this package.
var (
	ErrNilGeometry     = errors.New("wkt2shp: nil geometry")
	ErrEmptyGeometry   = errors.New("wkt2shp: empty geometry")
	ErrUnsupportedType = errors.New("wkt2shp: unsupported geometry type")
	ErrMixedGeometry   = errors.New("wkt2shp: mixed geometry types")
	ErrOutputPath      = errors.New("wkt2shp: unsupported output path")
	ErrEmptyTable      = errors.New("wkt2shp: no header row")
)

// Options configures conversion and shapefile writing.
type Options struct {
	CRS       string       // Coordinate reference system tag (default: EPSG:4326)
	Delimiter rune         // Field delimiter of the input table (default: ',')
	Logger    *slog.Logger // Status output (default: slog.Default())
}

// DefaultOptions returns default options for converting a table.
func DefaultOptions() *Options {
	return &Options{
		CRS:       DefaultCRS,
		Delimiter: ',',
		Logger:    slog.Default(),
	}
}

func (o *Options) crs() string {
	if o == nil || o.CRS == "" {
		return DefaultCRS
	}
	return o.CRS
}

func (o *Options) delimiter() rune {
	if o == nil || o.Delimiter == 0 {
		return ','
	}
	return o.Delimiter
}

func (o *Options) logger() *slog.Logger {
	if o == nil || o.Logger == nil {
		return slog.Default()
	}
	return o.Logger
}

// FieldInfo describes an attribute column of a shapefile.
type FieldInfo struct {
	Name      string // Column name as stored in the DBF (at most 10 bytes)
	Source    string // Record set column the field was written from
	Type      string // "Integer", "Real" or "String"
	Size      int    // Field width in bytes
	Precision int    // Decimal places for Real fields
}
