package tables

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/parquet-go/parquet-go"
)

// readParquet reads every row of a parquet file into a Frame. Top-level
// fields become columns in schema order; repeated leaves become []any
// cells, and null optional leaves become nil.
func readParquet(path string) (*Frame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return nil, err
	}
	pf, err := parquet.OpenFile(f, st.Size())
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet %s: %w", path, err)
	}

	schema := pf.Schema()
	frame := &Frame{Path: path}
	for _, field := range schema.Fields() {
		frame.Columns = append(frame.Columns, field.Name())
	}

	type leaf struct {
		name     string
		repeated bool
	}
	var leaves []leaf
	for _, p := range schema.Columns() {
		lc, _ := schema.Lookup(p...)
		leaves = append(leaves, leaf{name: p[0], repeated: lc.MaxRepetitionLevel > 0})
	}

	reader := parquet.NewReader(pf)
	defer reader.Close()

	buf := make([]parquet.Row, 128)
	for {
		n, err := reader.ReadRows(buf)
		for _, values := range buf[:n] {
			row := make(Row, len(frame.Columns))
			for _, v := range values {
				idx := v.Column()
				if idx < 0 || idx >= len(leaves) {
					continue
				}
				lf := leaves[idx]
				if lf.repeated {
					list, _ := row[lf.name].([]any)
					if list == nil {
						list = []any{}
					}
					if !v.IsNull() {
						list = append(list, parquetValue(v))
					}
					row[lf.name] = list
					continue
				}
				row[lf.name] = parquetValue(v)
			}
			frame.Rows = append(frame.Rows, row)
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read parquet %s: %w", path, err)
		}
		if n == 0 {
			break
		}
	}
	return frame, nil
}

func parquetValue(v parquet.Value) any {
	if v.IsNull() {
		return nil
	}
	switch v.Kind() {
	case parquet.Boolean:
		return v.Boolean()
	case parquet.Int32:
		return int64(v.Int32())
	case parquet.Int64:
		return v.Int64()
	case parquet.Float:
		return float64(v.Float())
	case parquet.Double:
		return v.Double()
	case parquet.ByteArray, parquet.FixedLenByteArray:
		return string(v.ByteArray())
	}
	return v.String()
}
