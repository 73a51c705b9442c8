// Package rules implements the per-tick collision pass and food spawning.
package rules

import (
	"fmt"

	"github.com/brensch/gridsnake/game"
)

// Cause records why a snake died.
type Cause int

const (
	CauseWall Cause = iota
	CauseSelf
	CauseHeadToHead
	CauseHeadToBody
)

func (c Cause) String() string {
	switch c {
	case CauseWall:
		return "wall"
	case CauseSelf:
		return "self"
	case CauseHeadToHead:
		return "head-to-head"
	case CauseHeadToBody:
		return "head-to-body"
	}
	return fmt.Sprintf("Cause(%d)", int(c))
}

// Death describes one kill applied during a tick. Other names the snake that
// was hit, if any.
type Death struct {
	Snake string
	Cause Cause
	Cell  game.Cell
	Other string
}

// Meal describes one food item consumed during a tick.
type Meal struct {
	Snake string
	Food  game.Food
}

// Report summarizes what Resolve changed.
type Report struct {
	Deaths  []Death
	Meals   []Meal
	Spawned []game.Food
	// Starved counts replacement spawns that found no free cell.
	Starved int
}

// AdvanceAll moves every live snake one cell. It must run exactly once per
// tick, before Resolve.
func AdvanceAll(state *game.State) {
	for _, s := range state.Snakes {
		if s.Alive {
			s.Advance()
		}
	}
}

// Resolve runs the collision pass over the live snakes in list order.
//
// For each snake not already killed this tick: leaving the grid or entering
// a wall kills it; so does its head landing on its own body. Then it is
// checked against every other snake still alive: a shared head cell kills it
// and every snake sharing that cell, landing on another body kills only it.
// A snake that survives all of that eats at most one food item, and each
// meal requests exactly one replacement from sp.
//
// Kills are marked during the pass and the live list is compacted once the
// pass is complete. A snake killed earlier in the pass neither causes nor
// suffers collisions for the rest of the tick, so outcomes depend on list
// order but are deterministic for a fixed order.
func Resolve(state *game.State, sp *Spawner) Report {
	var rep Report
	dead := make(map[*game.Snake]bool)

	kill := func(s *game.Snake, at game.Cell, why Cause, other string) {
		s.Kill()
		dead[s] = true
		rep.Deaths = append(rep.Deaths, Death{Snake: s.Name, Cause: why, Cell: at, Other: other})
	}

	for _, s := range state.Snakes {
		if dead[s] || !s.Alive {
			continue
		}
		head := s.Head

		// 1. Walls and grid edges
		if !state.Grid.Contains(head) || state.Walls.Contains(head) {
			kill(s, head, CauseWall, "")
			continue
		}

		// 2. Own body
		if s.BodyContains(head) {
			kill(s, head, CauseSelf, s.Name)
			continue
		}

		// 3. Other snakes
		collided := false
		for _, t := range state.Snakes {
			if t == s || dead[t] || !t.Alive {
				continue
			}
			if t.Head == head {
				kill(s, head, CauseHeadToHead, t.Name)
				for _, u := range state.Snakes {
					if u == s || dead[u] || !u.Alive || u.Head != head {
						continue
					}
					kill(u, head, CauseHeadToHead, s.Name)
				}
				collided = true
				break
			}
			if t.BodyContains(head) {
				kill(s, head, CauseHeadToBody, t.Name)
				collided = true
				break
			}
		}
		if collided {
			continue
		}

		// 4. Food, at most one item per snake per tick
		i := state.FoodAt(head)
		if i < 0 {
			continue
		}
		f := state.Food[i]
		s.Grow(f.Power)
		state.Food = append(state.Food[:i], state.Food[i+1:]...)
		rep.Meals = append(rep.Meals, Meal{Snake: s.Name, Food: f})

		if sp == nil {
			continue
		}
		if nf, ok := sp.Spawn(state.Grid, state.Snakes, state.Walls, state.Food); ok {
			state.Food = append(state.Food, nf)
			rep.Spawned = append(rep.Spawned, nf)
		} else {
			rep.Starved++
		}
	}

	if len(dead) > 0 {
		live := state.Snakes[:0]
		for _, s := range state.Snakes {
			if !dead[s] {
				live = append(live, s)
			}
		}
		for i := len(live); i < len(state.Snakes); i++ {
			state.Snakes[i] = nil
		}
		state.Snakes = live
	}

	return rep
}
