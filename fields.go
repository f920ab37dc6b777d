package wkt2shp

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/jonas-p/go-shp"
	"github.com/paulmach/orb/geojson"
)

// DBF limits.
const (
	maxFieldName    = 10
	maxStringSize   = 254
	maxNumericSize  = 24
	floatPrecision  = 15
	fieldTypeInt    = "Integer"
	fieldTypeReal   = "Real"
	fieldTypeString = "String"
)

type columnType int

const (
	columnNull columnType = iota
	columnInt
	columnReal
	columnString
)

// dbfField couples a DBF field definition with the record set column it is
// written from.
type dbfField struct {
	info  FieldInfo
	field shp.Field
}

// inferFields analyzes features and infers the DBF schema for columns.
// It examines every value of a column to pick its type and width.
func inferFields(columns []string, features []*geojson.Feature, log *slog.Logger) []dbfField {
	names := launderNames(columns, log)
	fields := make([]dbfField, 0, len(columns))

	for i, col := range columns {
		ct := columnNull
		for _, f := range features {
			ct = promoteColumnType(ct, inferColumnType(f.Properties[col]))
		}

		info := FieldInfo{Name: names[i], Source: col}
		switch ct {
		case columnInt:
			info.Type = fieldTypeInt
			info.Size = 1
			for _, f := range features {
				if v, ok := toInt64(f.Properties[col]); ok {
					info.Size = max(info.Size, len(strconv.FormatInt(v, 10)))
				}
			}
			if info.Size > maxNumericSize {
				info.Type = fieldTypeString
			}

		case columnReal:
			info.Type = fieldTypeReal
			intWidth := 1
			for _, f := range features {
				if v, ok := toFloat64(f.Properties[col]); ok && isFinite(v) {
					intWidth = max(intWidth, len(strconv.FormatFloat(math.Trunc(v), 'f', 0, 64)))
				}
			}
			info.Precision = floatPrecision
			info.Size = intWidth + 1 + floatPrecision
			if info.Size > maxNumericSize {
				info.Precision = max(maxNumericSize-intWidth-1, 0)
				info.Size = maxNumericSize
			}
			if intWidth > maxNumericSize {
				info.Type, info.Precision = fieldTypeString, 0
			}
		}

		if ct == columnNull || ct == columnString || info.Type == fieldTypeString {
			info.Type = fieldTypeString
			info.Precision = 0
			info.Size = 1
			for _, f := range features {
				if v := f.Properties[col]; v != nil {
					info.Size = max(info.Size, len(toString(v)))
				}
			}
			if info.Size > maxStringSize {
				log.Warn("string values truncated",
					slog.String("column", col),
					slog.Int("longest", info.Size),
					slog.Int("limit", maxStringSize))
				info.Size = maxStringSize
			}
		}

		fields = append(fields, dbfField{info: info, field: newField(info)})
	}

	return fields
}

func newField(info FieldInfo) shp.Field {
	switch info.Type {
	case fieldTypeInt:
		return shp.NumberField(info.Name, uint8(info.Size))
	case fieldTypeReal:
		return shp.FloatField(info.Name, uint8(info.Size), uint8(info.Precision))
	default:
		return shp.StringField(info.Name, uint8(info.Size))
	}
}

// inferColumnType determines the DBF column type for a Go value.
func inferColumnType(value interface{}) columnType {
	if value == nil {
		return columnNull
	}

	switch v := value.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32:
		return columnInt
	case uint64:
		if v <= math.MaxInt64 {
			return columnInt
		}
		return columnReal
	case float32:
		if !isFinite(float64(v)) {
			return columnNull
		}
		return columnReal
	case float64:
		if !isFinite(v) {
			return columnNull
		}
		return columnReal
	case json.Number:
		if _, err := v.Int64(); err == nil {
			return columnInt
		}
		return columnReal
	default:
		return columnString
	}
}

// promoteColumnType returns the more general type when there's a conflict.
func promoteColumnType(a, b columnType) columnType {
	if a > b {
		return a
	}
	return b
}

// launderNames shortens column names to the DBF limit and resolves
// collisions with numbered suffixes.
func launderNames(columns []string, log *slog.Logger) []string {
	names := make([]string, len(columns))
	taken := make(map[string]bool, len(columns))

	for i, col := range columns {
		name := truncateBytes(col, maxFieldName)
		if name == "" {
			name = fmt.Sprintf("FIELD_%d", i+1)
		}
		for n := 1; taken[strings.ToUpper(name)]; n++ {
			suffix := fmt.Sprintf("_%d", n)
			name = truncateBytes(col, maxFieldName-len(suffix)) + suffix
		}
		taken[strings.ToUpper(name)] = true
		names[i] = name

		if name != col {
			log.Warn("field name laundered",
				slog.String("column", col),
				slog.String("field", name))
		}
	}

	return names
}

// truncateBytes cuts s to at most n bytes without splitting a rune.
func truncateBytes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// formatValue renders value as the padded bytes of a DBF field.
// Numbers are right-aligned, text left-aligned; nil is blank.
func formatValue(value interface{}, info FieldInfo) string {
	var s string
	switch info.Type {
	case fieldTypeInt:
		if v, ok := toInt64(value); ok {
			s = strconv.FormatInt(v, 10)
		}
		return fmt.Sprintf("%*s", info.Size, s)

	case fieldTypeReal:
		if v, ok := toFloat64(value); ok && isFinite(v) {
			s = strconv.FormatFloat(v, 'f', info.Precision, 64)
		}
		return fmt.Sprintf("%*s", info.Size, truncateBytes(s, info.Size))

	default:
		if value != nil {
			s = truncateBytes(toString(value), info.Size)
		}
		return s + strings.Repeat(" ", info.Size-len(s))
	}
}

// parseValue converts a trimmed DBF value back into a Go value.
func parseValue(s string, f shp.Field) interface{} {
	if s == "" {
		return nil
	}

	switch f.Fieldtype {
	case 'N', 'F':
		if f.Precision == 0 {
			if v, err := strconv.ParseInt(s, 10, 64); err == nil {
				return v
			}
		}
		if v, err := strconv.ParseFloat(s, 64); err == nil {
			return v
		}
		return nil
	case 'L':
		switch s {
		case "T", "t", "Y", "y":
			return true
		case "F", "f", "N", "n":
			return false
		}
		return nil
	default:
		return s
	}
}

func fieldInfoFromDBF(f shp.Field) FieldInfo {
	info := FieldInfo{
		Name:      fieldName(f),
		Size:      int(f.Size),
		Precision: int(f.Precision),
		Type:      fieldTypeString,
	}
	info.Source = info.Name
	if f.Fieldtype == 'N' || f.Fieldtype == 'F' {
		info.Type = fieldTypeReal
		if f.Precision == 0 {
			info.Type = fieldTypeInt
		}
	}
	return info
}

func fieldName(f shp.Field) string {
	return strings.TrimRight(string(f.Name[:]), "\x00")
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Type conversion helpers

func toInt64(v interface{}) (int64, bool) {
	switch val := v.(type) {
	case int:
		return int64(val), true
	case int8:
		return int64(val), true
	case int16:
		return int64(val), true
	case int32:
		return int64(val), true
	case int64:
		return val, true
	case uint:
		return int64(val), true
	case uint8:
		return int64(val), true
	case uint16:
		return int64(val), true
	case uint32:
		return int64(val), true
	case uint64:
		if val <= math.MaxInt64 {
			return int64(val), true
		}
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i, true
		}
	}
	return 0, false
}

func toFloat64(v interface{}) (float64, bool) {
	switch val := v.(type) {
	case float32:
		return float64(val), true
	case float64:
		return val, true
	case uint64:
		return float64(val), true
	case json.Number:
		if f, err := val.Float64(); err == nil {
			return f, true
		}
	}
	if i, ok := toInt64(v); ok {
		return float64(i), true
	}
	return 0, false
}

func toString(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case []byte:
		return string(val)
	case bool:
		return strconv.FormatBool(val)
	case fmt.Stringer:
		return val.String()
	}
	if i, ok := toInt64(v); ok {
		return strconv.FormatInt(i, 10)
	}
	if f, ok := toFloat64(v); ok {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}
