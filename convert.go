package wkt2shp

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// Result reports the outcome of a conversion. OK is the authoritative
// success signal; Err is set only when OK is false.
type Result struct {
	OK      bool
	Message string // One-line status text
	Err     error  // *Error describing the failure
	Records int    // Records written
	Output  string // Path of the .shp file written
}

// CSVWKTToShapefile converts the CSV at inCSV to a shapefile at outSHP,
// reading geometries from the WKT column geomCol and tagging them with crs
// (EPSG:4326 when empty). It reports whether the conversion succeeded.
func CSVWKTToShapefile(inCSV, outSHP, geomCol, crs string) bool {
	opts := DefaultOptions()
	if crs != "" {
		opts.CRS = crs
	}
	return Convert(inCSV, outSHP, geomCol, opts).OK
}

// Convert reads the delimited table at inPath, parses geomCol of every row
// as WKT and writes the rows with their geometries to a shapefile at
// outPath. Missing parent directories of outPath are created.
//
// Convert never returns a failure as a bare error or panic: every failure is
// reported through the Result and logged on opts.Logger.
func Convert(inPath, outPath, geomCol string, opts *Options) Result {
	if opts == nil {
		opts = DefaultOptions()
	}
	log := opts.logger()

	res, err := convert(inPath, outPath, geomCol, opts)
	if err != nil {
		res.Err = classify(KindUnclassified, err)
		res.Message = "Error converting file: " + err.Error()
		log.Error(res.Message,
			slog.String("input", inPath),
			slog.String("output", outPath),
			slog.String("kind", KindOf(res.Err).String()))
		return res
	}

	res.OK = true
	res.Message = fmt.Sprintf("Successfully converted %s to %s", inPath, outPath)
	log.Info(res.Message,
		slog.Int("records", res.Records),
		slog.String("crs", opts.crs()))
	return res
}

func convert(inPath, outPath, geomCol string, opts *Options) (res Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = classify(KindUnclassified, errors.Errorf("panic: %v", r))
		}
	}()

	if _, err := os.Stat(inPath); err != nil {
		if os.IsNotExist(err) {
			return res, classify(KindMissingInput, errors.Errorf("Input file not found: %s", inPath))
		}
		return res, classify(KindMissingInput, errors.Wrapf(err, "stat %s", inPath))
	}

	t, err := ReadTable(inPath, opts.delimiter())
	if err != nil {
		return res, classify(KindUnclassified, err)
	}

	rs, err := BuildRecordSet(t, geomCol, ParseCRS(opts.crs()))
	if err != nil {
		return res, err
	}

	l, err := encodeLayer(outPath, rs, opts.logger())
	if err != nil {
		return res, classify(KindIO, err)
	}

	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return res, classify(KindIO, errors.Wrap(err, "create output directory"))
	}

	if err := l.write(); err != nil {
		return res, classify(KindIO, err)
	}

	res.Records = rs.Len()
	res.Output = l.path
	return res, nil
}
