package game

import "sort"

// Walls is the fixed set of blocked cells loaded from a layout.
// It is read-only after construction.
type Walls struct {
	cells map[Cell]struct{}
}

func NewWalls(cells ...Cell) *Walls {
	w := &Walls{cells: make(map[Cell]struct{}, len(cells))}
	for _, c := range cells {
		w.cells[c] = struct{}{}
	}
	return w
}

// Contains reports whether c is a wall. A nil set contains nothing.
func (w *Walls) Contains(c Cell) bool {
	if w == nil {
		return false
	}
	_, ok := w.cells[c]
	return ok
}

func (w *Walls) Len() int {
	if w == nil {
		return 0
	}
	return len(w.cells)
}

// Cells returns the wall cells in row-major order.
func (w *Walls) Cells() []Cell {
	if w == nil {
		return nil
	}
	out := make([]Cell, 0, len(w.cells))
	for c := range w.cells {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Row != out[j].Row {
			return out[i].Row < out[j].Row
		}
		return out[i].Col < out[j].Col
	})
	return out
}
