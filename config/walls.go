package config

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/brensch/gridsnake/game"
)

// LoadWalls reads a wall layout. A missing file means no walls.
func LoadWalls(path string, grid game.GridSpace) (*game.Walls, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return game.NewWalls(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("open walls: %w", err)
	}
	defer f.Close()

	w, err := ParseWalls(f, grid)
	if err != nil {
		return nil, fmt.Errorf("walls %s: %w", path, err)
	}
	return w, nil
}

// ParseWalls reads CSV where record r, field c describes cell (c, r). A
// field is a wall unless it is empty, "0" or ".". Rows may differ in length.
func ParseWalls(r io.Reader, grid game.GridSpace) (*game.Walls, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var cells []game.Cell
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		// Blank lines are skipped by the reader but still count as rows.
		line, _ := cr.FieldPos(0)
		row := line - 1
		for col, field := range rec {
			switch strings.TrimSpace(field) {
			case "", "0", ".":
				continue
			}
			c := game.Cell{Col: col, Row: row}
			if !grid.Contains(c) {
				return nil, fmt.Errorf("%w: wall %v outside %dx%d grid", ErrMalformed, c, grid.Cols(), grid.Rows())
			}
			cells = append(cells, c)
		}
	}
	return game.NewWalls(cells...), nil
}
