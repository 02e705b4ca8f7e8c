package tables

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ErrNoTable is returned by Find when none of the supported encodings of a
// table exist.
var ErrNoTable = errors.New("table not found")

// Extensions lists the table encodings Find looks for, in priority order.
var Extensions = []string{".parquet", ".csv.gz", ".csv.zst", ".csv"}

// Row maps column names to cell values. Values are float64, int64, string,
// bool, []float64, []any or nil for a missing cell.
type Row map[string]any

// Frame is a table read from a companion file with its column order kept.
type Frame struct {
	Path    string
	Columns []string
	Rows    []Row
}

// Len returns the number of rows.
func (f *Frame) Len() int {
	return len(f.Rows)
}

// HasColumns reports whether every named column is present.
func (f *Frame) HasColumns(names ...string) bool {
	for _, n := range names {
		found := false
		for _, c := range f.Columns {
			if c == n {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func (f *Frame) require(names ...string) error {
	for _, n := range names {
		if !f.HasColumns(n) {
			return fmt.Errorf("%s: missing column %q", filepath.Base(f.Path), n)
		}
	}
	return nil
}

// Find returns the path of the first existing <dir>/<name><ext> for the
// extensions in Extensions.
func Find(dir, name string) (string, error) {
	for _, ext := range Extensions {
		p := filepath.Join(dir, name+ext)
		if st, err := os.Stat(p); err == nil && !st.IsDir() {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: %s in %s", ErrNoTable, name, dir)
}

// ReadFrame reads a table, choosing the decoder from the file extension.
func ReadFrame(path string) (*Frame, error) {
	lower := strings.ToLower(path)
	switch {
	case strings.HasSuffix(lower, ".parquet"):
		return readParquet(path)
	case strings.HasSuffix(lower, ".csv.gz"):
		return readCSVFile(path, gzipCodec)
	case strings.HasSuffix(lower, ".csv.zst"):
		return readCSVFile(path, zstdCodec)
	case strings.HasSuffix(lower, ".csv"):
		return readCSVFile(path, plainCodec)
	}
	return nil, fmt.Errorf("unsupported table file: %s", filepath.Base(path))
}

// parseCell converts a text cell into the most specific value: nil for an
// empty cell, int64 or float64 for numbers, bool for true/false and the
// trimmed string otherwise.
func parseCell(s string) any {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	switch strings.ToLower(s) {
	case "true":
		return true
	case "false":
		return false
	}
	return s
}

// Float converts a cell value to float64.
func Float(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case int:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}

// String converts a cell value to its text form. Bytes from binary columns
// are returned as text.
func String(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case []byte:
		return string(s)
	case int64:
		return strconv.FormatInt(s, 10)
	case float64:
		return strconv.FormatFloat(s, 'g', -1, 64)
	}
	return fmt.Sprint(v)
}

// FloatList converts a list cell to []float64. Text cells holding a JSON
// array, as written by CSV exports of list columns, are decoded first.
func FloatList(v any) ([]float64, error) {
	switch l := v.(type) {
	case []float64:
		return l, nil
	case []any:
		out := make([]float64, len(l))
		for i, e := range l {
			f, ok := Float(e)
			if !ok {
				return nil, fmt.Errorf("element %d is not numeric: %v", i, e)
			}
			out[i] = f
		}
		return out, nil
	case string:
		var raw []any
		if err := json.Unmarshal([]byte(l), &raw); err != nil {
			return nil, fmt.Errorf("not a coordinate list: %q", l)
		}
		return FloatList(raw)
	case nil:
		return nil, fmt.Errorf("missing coordinate list")
	}
	return nil, fmt.Errorf("not a coordinate list: %T", v)
}
