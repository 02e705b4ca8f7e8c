package tables

// ReadMetrics reads a summary-statistics table and returns its first row
// with columns in file order. A table without data rows yields an empty
// record.
func ReadMetrics(path string) (*Record, error) {
	frame, err := ReadFrame(path)
	if err != nil {
		return nil, err
	}
	rec := NewRecord()
	if frame.Len() == 0 {
		return rec, nil
	}
	row := frame.Rows[0]
	for _, c := range frame.Columns {
		rec.Set(c, row[c])
	}
	return rec, nil
}
