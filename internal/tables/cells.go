package tables

import "fmt"

// Cell is one segmented cell with its centroid in microns.
type Cell struct {
	ID string
	X  float64
	Y  float64
}

// CellTable holds one row per cell. Attribute columns (counts, areas)
// are kept in Frame.
type CellTable struct {
	Frame *Frame
	Cells []Cell
}

// ReadCells reads a cell table. The centroid columns x_centroid and
// y_centroid are required; cell_id is optional and defaults to the row
// number.
func ReadCells(path string) (*CellTable, error) {
	frame, err := ReadFrame(path)
	if err != nil {
		return nil, err
	}
	if err := frame.require("x_centroid", "y_centroid"); err != nil {
		return nil, err
	}

	t := &CellTable{Frame: frame, Cells: make([]Cell, 0, frame.Len())}
	for i, row := range frame.Rows {
		x, okX := Float(row["x_centroid"])
		y, okY := Float(row["y_centroid"])
		if !okX || !okY {
			return nil, fmt.Errorf("row %d: non-numeric centroid", i)
		}
		id := String(row["cell_id"])
		if id == "" {
			id = fmt.Sprint(i)
		}
		t.Cells = append(t.Cells, Cell{ID: id, X: x, Y: y})
	}
	return t, nil
}

// Len returns the number of cells.
func (t *CellTable) Len() int {
	return len(t.Cells)
}
