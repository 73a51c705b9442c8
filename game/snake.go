package game

import (
	"fmt"
	"strings"
)

// Direction is one of the four cardinal directions.
type Direction int

const (
	Up Direction = iota
	Down
	Left
	Right
)

var directionNames = [...]string{"up", "down", "left", "right"}

func (d Direction) String() string {
	if !d.Valid() {
		return fmt.Sprintf("Direction(%d)", int(d))
	}
	return directionNames[d]
}

func (d Direction) Valid() bool {
	return d >= Up && d <= Right
}

// Delta is the one-cell step taken when moving in d.
func (d Direction) Delta() Cell {
	switch d {
	case Up:
		return Cell{Row: -1}
	case Down:
		return Cell{Row: 1}
	case Left:
		return Cell{Col: -1}
	case Right:
		return Cell{Col: 1}
	}
	return Cell{}
}

// ParseDirection accepts "up", "down", "left" or "right" in any case.
func ParseDirection(s string) (Direction, error) {
	for i, name := range directionNames {
		if strings.EqualFold(strings.TrimSpace(s), name) {
			return Direction(i), nil
		}
	}
	return 0, fmt.Errorf("unknown direction %q", s)
}

// PlayerDef describes a snake at session start.
type PlayerDef struct {
	Name           string
	Keybindings    map[string]Direction
	Start          Cell
	StartLength    int
	StartDirection Direction
}

// Snake is a player-controlled snake.
//
// Body is ordered head-adjacent first and never includes Head. A new snake
// starts as a lone head with StartLength-1 segments of pending growth, so
// the body unrolls from the start cell over the first ticks.
type Snake struct {
	Name        string
	Keybindings map[string]Direction
	Direction   Direction
	Head        Cell
	Body        []Cell
	Alive       bool

	pendingGrowth int
}

func NewSnake(def PlayerDef) *Snake {
	s := &Snake{
		Name:        def.Name,
		Keybindings: make(map[string]Direction, len(def.Keybindings)),
		Direction:   def.StartDirection,
		Head:        def.Start,
		Alive:       true,
	}
	for k, d := range def.Keybindings {
		s.Keybindings[strings.ToUpper(k)] = d
	}
	if def.StartLength > 1 {
		s.pendingGrowth = def.StartLength - 1
	}
	return s
}

// Steer applies the direction bound to key. Unbound keys are ignored and
// report false. Reversing into the neck is allowed and is lethal.
func (s *Snake) Steer(key string) bool {
	d, ok := s.Keybindings[strings.ToUpper(key)]
	if !ok {
		return false
	}
	return s.SetDirection(d)
}

// SetDirection stores d for the next Advance. Invalid values are rejected.
func (s *Snake) SetDirection(d Direction) bool {
	if !d.Valid() {
		return false
	}
	s.Direction = d
	return true
}

// Advance moves the head one cell in the current direction. The old head
// becomes the first body segment and the tail segment is dropped unless
// growth is pending.
func (s *Snake) Advance() {
	s.Body = append(s.Body, Cell{})
	copy(s.Body[1:], s.Body)
	s.Body[0] = s.Head
	s.Head = s.Head.Add(s.Direction.Delta())

	if s.pendingGrowth > 0 {
		s.pendingGrowth--
		return
	}
	s.Body = s.Body[:len(s.Body)-1]
}

// Grow suppresses tail truncation for the next power calls to Advance.
func (s *Snake) Grow(power int) {
	if power > 0 {
		s.pendingGrowth += power
	}
}

func (s *Snake) PendingGrowth() int { return s.pendingGrowth }

// Kill marks the snake dead. Removing it from the live list is the caller's job.
func (s *Snake) Kill() {
	s.Alive = false
}

// Length counts the head and every body segment.
func (s *Snake) Length() int {
	return 1 + len(s.Body)
}

func (s *Snake) OccupiesCell(c Cell) bool {
	return s.Head == c || s.BodyContains(c)
}

func (s *Snake) BodyContains(c Cell) bool {
	for _, p := range s.Body {
		if p == c {
			return true
		}
	}
	return false
}

// Cells returns head followed by body.
func (s *Snake) Cells() []Cell {
	out := make([]Cell, 0, len(s.Body)+1)
	out = append(out, s.Head)
	return append(out, s.Body...)
}

func (s *Snake) Clone() *Snake {
	if s == nil {
		return nil
	}
	out := *s
	if len(s.Body) > 0 {
		out.Body = make([]Cell, len(s.Body))
		copy(out.Body, s.Body)
	} else {
		out.Body = nil
	}
	// Bindings are never mutated after construction.
	return &out
}
