package game

import "iter"

// GridSpace maps grid cells to world (pixel) coordinates and defines the
// grid bounds. It is immutable once constructed.
type GridSpace struct {
	cols, rows     int
	cellW, cellH   int
	worldW, worldH int
}

// NewGridSpace builds a grid of cols x rows cells laid over a world of
// worldW x worldH pixels. Cell size is floor(world / grid) per axis.
func NewGridSpace(cols, rows, worldW, worldH int) GridSpace {
	g := GridSpace{cols: cols, rows: rows, worldW: worldW, worldH: worldH}
	if cols > 0 {
		g.cellW = worldW / cols
	}
	if rows > 0 {
		g.cellH = worldH / rows
	}
	return g
}

func (g GridSpace) Cols() int { return g.cols }
func (g GridSpace) Rows() int { return g.rows }

// Area is the number of cells in the grid.
func (g GridSpace) Area() int { return g.cols * g.rows }

// CellSize returns the pixel size of one cell.
func (g GridSpace) CellSize() (w, h int) { return g.cellW, g.cellH }

// WorldSize returns the pixel size the grid was laid over.
func (g GridSpace) WorldSize() (w, h int) { return g.worldW, g.worldH }

// ToWorld returns the pixel position of the top-left corner of c.
func (g GridSpace) ToWorld(c Cell) (x, y int) {
	return c.Col * g.cellW, c.Row * g.cellH
}

// Contains reports whether c lies inside the grid.
func (g GridSpace) Contains(c Cell) bool {
	return c.Col >= 0 && c.Col < g.cols && c.Row >= 0 && c.Row < g.rows
}

// AllCells yields every cell in row-major order. The sequence is finite and
// can be ranged over any number of times.
func (g GridSpace) AllCells() iter.Seq[Cell] {
	return func(yield func(Cell) bool) {
		for row := 0; row < g.rows; row++ {
			for col := 0; col < g.cols; col++ {
				if !yield(Cell{Col: col, Row: row}) {
					return
				}
			}
		}
	}
}
