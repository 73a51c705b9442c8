package rules

import (
	"log/slog"
	"math/rand"

	"github.com/brensch/gridsnake/game"
)

// Spawner places food on free cells.
//
// A free cell is any grid cell not covered by a live snake (head or body),
// a wall, or existing food. The free set is recomputed on every call, which
// is O(grid area); spawns only happen at start-up and once per meal.
type Spawner struct {
	power int
	rng   *rand.Rand
	log   *slog.Logger
}

// NewSpawner returns a spawner granting power growth per item. A nil rng
// is seeded with 1 so tests stay reproducible.
func NewSpawner(power int, rng *rand.Rand, logger *slog.Logger) *Spawner {
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Spawner{power: power, rng: rng, log: logger}
}

func (sp *Spawner) Power() int { return sp.power }

// FreeCells returns every unoccupied cell in row-major order.
func (sp *Spawner) FreeCells(grid game.GridSpace, snakes []*game.Snake, walls *game.Walls, food []game.Food) []game.Cell {
	occupied := make(map[game.Cell]struct{}, walls.Len()+len(food)+len(snakes)*4)
	for _, s := range snakes {
		if !s.Alive {
			continue
		}
		occupied[s.Head] = struct{}{}
		for _, p := range s.Body {
			occupied[p] = struct{}{}
		}
	}
	for _, f := range food {
		occupied[f.Position] = struct{}{}
	}

	free := make([]game.Cell, 0, grid.Area())
	for c := range grid.AllCells() {
		if walls.Contains(c) {
			continue
		}
		if _, ok := occupied[c]; ok {
			continue
		}
		free = append(free, c)
	}
	return free
}

// Spawn picks one free cell uniformly at random. It reports false when the
// grid is saturated; that is starvation, not a failure, and the caller simply
// carries on with less food.
func (sp *Spawner) Spawn(grid game.GridSpace, snakes []*game.Snake, walls *game.Walls, food []game.Food) (game.Food, bool) {
	free := sp.FreeCells(grid, snakes, walls, food)
	if len(free) == 0 {
		sp.log.Debug("no space to spawn new food", "food_remaining", len(food))
		return game.Food{}, false
	}
	return game.Food{Position: free[sp.rng.Intn(len(free))], Power: sp.power}, true
}

// Fill spawns up to n items into state, one at a time. It returns how many
// could not be placed.
func (sp *Spawner) Fill(state *game.State, n int) (starved int) {
	for i := 0; i < n; i++ {
		f, ok := sp.Spawn(state.Grid, state.Snakes, state.Walls, state.Food)
		if !ok {
			starved++
			continue
		}
		state.Food = append(state.Food, f)
	}
	return starved
}
