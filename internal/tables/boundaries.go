package tables

import (
	"errors"
	"fmt"
	"math"
)

// ErrMalformedPolygon marks a boundary whose vertex lists cannot be
// rasterized.
var ErrMalformedPolygon = errors.New("malformed polygon")

// Polygon is the outline of one cell or nucleus. Err is set when the
// vertex data was missing, non-numeric, empty or of unequal length; X and
// Y are nil in that case.
type Polygon struct {
	CellID string
	X      []float64
	Y      []float64
	Err    error
}

// Valid reports whether the polygon can be rasterized.
func (p Polygon) Valid() bool {
	return p.Err == nil
}

// BoundaryTable holds cell or nucleus outlines.
type BoundaryTable struct {
	Frame    *Frame
	Polygons []Polygon
}

// ReadBoundaries reads a boundary table in either of two layouts:
//
//   - one row per vertex with scalar vertex_x/vertex_y columns, grouped
//     into polygons by consecutive cell_id values;
//   - one row per cell whose vertex_x/vertex_y cells hold coordinate lists.
//
// Malformed rows do not fail the read; they yield polygons with Err set.
func ReadBoundaries(path string) (*BoundaryTable, error) {
	frame, err := ReadFrame(path)
	if err != nil {
		return nil, err
	}
	if err := frame.require("vertex_x", "vertex_y"); err != nil {
		return nil, err
	}

	t := &BoundaryTable{Frame: frame}
	if listLayout(frame) {
		for i, row := range frame.Rows {
			t.Polygons = append(t.Polygons, listPolygon(i, row))
		}
		return t, nil
	}
	t.Polygons = vertexPolygons(frame)
	return t, nil
}

// Len returns the number of rows in the underlying table.
func (t *BoundaryTable) Len() int {
	return t.Frame.Len()
}

// ValidCount returns the number of polygons without errors.
func (t *BoundaryTable) ValidCount() int {
	n := 0
	for _, p := range t.Polygons {
		if p.Valid() {
			n++
		}
	}
	return n
}

// listLayout reports whether vertex columns hold lists rather than scalars,
// judged by the first non-nil vertex_x cell.
func listLayout(f *Frame) bool {
	for _, row := range f.Rows {
		switch v := row["vertex_x"].(type) {
		case nil:
			continue
		case []any, []float64:
			return true
		case string:
			_, err := FloatList(v)
			return err == nil
		default:
			return false
		}
	}
	return false
}

func listPolygon(i int, row Row) Polygon {
	p := Polygon{CellID: String(row["cell_id"])}
	if p.CellID == "" {
		p.CellID = fmt.Sprint(i)
	}
	xs, err := FloatList(row["vertex_x"])
	if err != nil {
		p.Err = fmt.Errorf("%w: row %d vertex_x: %v", ErrMalformedPolygon, i, err)
		return p
	}
	ys, err := FloatList(row["vertex_y"])
	if err != nil {
		p.Err = fmt.Errorf("%w: row %d vertex_y: %v", ErrMalformedPolygon, i, err)
		return p
	}
	if err := checkVertices(xs, ys); err != nil {
		p.Err = fmt.Errorf("%w: row %d: %v", ErrMalformedPolygon, i, err)
		return p
	}
	p.X, p.Y = xs, ys
	return p
}

func vertexPolygons(f *Frame) []Polygon {
	var out []Polygon
	var cur *Polygon
	flush := func() {
		if cur == nil {
			return
		}
		if cur.Err == nil {
			if err := checkVertices(cur.X, cur.Y); err != nil {
				cur.Err = fmt.Errorf("%w: cell %s: %v", ErrMalformedPolygon, cur.CellID, err)
			}
		}
		if cur.Err != nil {
			cur.X, cur.Y = nil, nil
		}
		out = append(out, *cur)
		cur = nil
	}

	for i, row := range f.Rows {
		id := String(row["cell_id"])
		if cur == nil || id != cur.CellID {
			flush()
			cur = &Polygon{CellID: id}
		}
		if cur.Err != nil {
			continue
		}
		x, okX := Float(row["vertex_x"])
		y, okY := Float(row["vertex_y"])
		if !okX || !okY {
			cur.Err = fmt.Errorf("%w: row %d: non-numeric vertex", ErrMalformedPolygon, i)
			continue
		}
		cur.X = append(cur.X, x)
		cur.Y = append(cur.Y, y)
	}
	flush()
	return out
}

func checkVertices(xs, ys []float64) error {
	if len(xs) == 0 || len(ys) == 0 {
		return fmt.Errorf("empty vertex list")
	}
	if len(xs) != len(ys) {
		return fmt.Errorf("%d x coordinates but %d y coordinates", len(xs), len(ys))
	}
	for i := range xs {
		if math.IsNaN(xs[i]) || math.IsNaN(ys[i]) || math.IsInf(xs[i], 0) || math.IsInf(ys[i], 0) {
			return fmt.Errorf("vertex %d is not finite", i)
		}
	}
	return nil
}
