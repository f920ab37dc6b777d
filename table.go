package wkt2shp

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Row is one table row keyed by column name. Values are int64, float64,
// string or nil.
type Row map[string]any

// Table is a delimited file loaded into memory.
type Table struct {
	Columns []string
	Rows    []Row
}

// nullTokens are cell values read as missing.
var nullTokens = map[string]bool{
	"":     true,
	"NA":   true,
	"N/A":  true,
	"NaN":  true,
	"nan":  true,
	"null": true,
	"NULL": true,
	"None": true,
}

const utf8BOM = "\xef\xbb\xbf"

type cellKind int

const (
	cellInt cellKind = iota
	cellFloat
	cellString
)

// ReadTable loads the delimited file at path. A zero delimiter means comma.
func ReadTable(path string, delimiter rune) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open table")
	}
	defer f.Close()

	t, err := ParseTable(f, delimiter)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	return t, nil
}

// ParseTable reads a header row followed by data rows and types every column
// as integer, float or string from its non-null cells.
func ParseTable(r io.Reader, delimiter rune) (*Table, error) {
	if delimiter == 0 {
		delimiter = ','
	}

	br := bufio.NewReader(r)
	if bom, err := br.Peek(3); err == nil && string(bom) == utf8BOM {
		_, _ = br.Discard(3)
	}

	cr := csv.NewReader(br)
	cr.Comma = delimiter
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, ErrEmptyTable
	}
	if err != nil {
		return nil, errors.Wrap(err, "header")
	}

	columns := dedupeColumns(header)
	raw := make([][]string, 0, 64)
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "row")
		}
		if len(rec) > len(columns) {
			line, _ := cr.FieldPos(0)
			return nil, errors.Errorf("line %d: expected %d fields, saw %d", line, len(columns), len(rec))
		}
		raw = append(raw, rec)
	}

	kinds := make([]cellKind, len(columns))
	for i := range columns {
		kinds[i] = columnKind(raw, i)
	}

	rows := make([]Row, 0, len(raw))
	for _, rec := range raw {
		row := make(Row, len(columns))
		for i, name := range columns {
			if i >= len(rec) || nullTokens[rec[i]] {
				row[name] = nil
				continue
			}
			row[name] = typedCell(rec[i], kinds[i])
		}
		rows = append(rows, row)
	}

	return &Table{Columns: columns, Rows: rows}, nil
}

// HasColumn reports whether name is one of the table's columns.
func (t *Table) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// dedupeColumns names blank headers "Unnamed: <i>" and suffixes repeats
// with ".1", ".2", ...
func dedupeColumns(header []string) []string {
	columns := make([]string, len(header))
	seen := make(map[string]int, len(header))
	taken := make(map[string]bool, len(header))
	for i, h := range header {
		if h == "" {
			h = fmt.Sprintf("Unnamed: %d", i)
		}
		name := h
		for taken[name] {
			seen[h]++
			name = fmt.Sprintf("%s.%d", h, seen[h])
		}
		taken[name] = true
		columns[i] = name
	}
	return columns
}

func columnKind(raw [][]string, col int) cellKind {
	kind := cellInt
	for _, rec := range raw {
		if col >= len(rec) || nullTokens[rec[col]] {
			continue
		}
		v := strings.TrimSpace(rec[col])
		switch kind {
		case cellInt:
			if _, err := strconv.ParseInt(v, 10, 64); err == nil {
				continue
			}
			kind = cellFloat
			fallthrough
		case cellFloat:
			if _, err := strconv.ParseFloat(v, 64); err == nil {
				continue
			}
			return cellString
		}
	}
	return kind
}

func typedCell(v string, kind cellKind) any {
	switch kind {
	case cellInt:
		i, _ := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		return i
	case cellFloat:
		f, _ := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f
	default:
		return v
	}
}
