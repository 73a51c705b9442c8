// Package game defines the entity state for the grid snake simulation.
//
// Positions are discrete grid cells; there is no sub-cell state. The types
// here are mutated in place by the rules package once per tick and copied
// with Clone when a read-only snapshot is needed.
package game

import "fmt"

// Cell is a grid coordinate. (0,0) is the top-left cell; rows grow downward.
type Cell struct {
	Col int
	Row int
}

func (c Cell) String() string {
	return fmt.Sprintf("(%d,%d)", c.Col, c.Row)
}

// Add returns c translated by d.
func (c Cell) Add(d Cell) Cell {
	return Cell{Col: c.Col + d.Col, Row: c.Row + d.Row}
}

// Food is a consumable item. Power is the growth granted on consumption.
type Food struct {
	Position Cell
	Power    int
}

// State is everything a tick reads and mutates.
// Snakes holds live snakes only, in load order; that order is the collision
// processing order.
type State struct {
	Grid   GridSpace
	Walls  *Walls
	Snakes []*Snake
	Food   []Food
	Tick   int
}

// FoodAt returns the index of the food item at c, or -1.
func (s *State) FoodAt(c Cell) int {
	for i, f := range s.Food {
		if f.Position == c {
			return i
		}
	}
	return -1
}

// Clone performs a deep copy of the state. Walls are shared since they are
// never mutated after load.
func (s *State) Clone() *State {
	if s == nil {
		return nil
	}

	out := &State{
		Grid:  s.Grid,
		Walls: s.Walls,
		Tick:  s.Tick,
	}

	if len(s.Food) > 0 {
		out.Food = make([]Food, len(s.Food))
		copy(out.Food, s.Food)
	}

	if len(s.Snakes) > 0 {
		out.Snakes = make([]*Snake, len(s.Snakes))
		for i := range s.Snakes {
			out.Snakes[i] = s.Snakes[i].Clone()
		}
	}

	return out
}
