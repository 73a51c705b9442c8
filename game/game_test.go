package game

import (
	"testing"
)

func newTestSnake(start Cell, length int, dir Direction) *Snake {
	return NewSnake(PlayerDef{
		Name:           "p1",
		Keybindings:    map[string]Direction{"w": Up, "s": Down, "a": Left, "d": Right},
		Start:          start,
		StartLength:    length,
		StartDirection: dir,
	})
}

func TestGridSpace_CellSizeFloors(t *testing.T) {
	g := NewGridSpace(3, 7, 100, 100)
	w, h := g.CellSize()
	if w != 33 || h != 14 {
		t.Fatalf("cell size=%dx%d want=33x14", w, h)
	}
	x, y := g.ToWorld(Cell{Col: 2, Row: 3})
	if x != 66 || y != 42 {
		t.Fatalf("world=(%d,%d) want=(66,42)", x, y)
	}
}

func TestGridSpace_Contains(t *testing.T) {
	g := NewGridSpace(4, 3, 40, 30)
	for _, c := range []Cell{{0, 0}, {3, 2}, {1, 1}} {
		if !g.Contains(c) {
			t.Fatalf("expected %v inside", c)
		}
	}
	for _, c := range []Cell{{-1, 0}, {4, 0}, {0, 3}, {0, -1}} {
		if g.Contains(c) {
			t.Fatalf("expected %v outside", c)
		}
	}
}

func TestGridSpace_AllCellsRestartable(t *testing.T) {
	g := NewGridSpace(3, 2, 30, 20)
	for pass := 0; pass < 2; pass++ {
		var got []Cell
		for c := range g.AllCells() {
			got = append(got, c)
		}
		if len(got) != g.Area() {
			t.Fatalf("pass %d: got %d cells want %d", pass, len(got), g.Area())
		}
		if got[0] != (Cell{0, 0}) || got[len(got)-1] != (Cell{2, 1}) {
			t.Fatalf("pass %d: unexpected order %v", pass, got)
		}
	}

	n := 0
	for range g.AllCells() {
		n++
		if n == 2 {
			break
		}
	}
	if n != 2 {
		t.Fatalf("early break yielded %d cells", n)
	}
}

func TestSnake_AdvanceNoGrowthKeepsLength(t *testing.T) {
	s := newTestSnake(Cell{1, 1}, 1, Right)
	s.Advance()
	if s.Head != (Cell{2, 1}) {
		t.Fatalf("head=%v want=(2,1)", s.Head)
	}
	if len(s.Body) != 0 {
		t.Fatalf("body=%v want empty", s.Body)
	}
}

func TestSnake_StartLengthUnrollsFromStart(t *testing.T) {
	s := newTestSnake(Cell{0, 0}, 3, Down)
	if s.Length() != 1 || s.PendingGrowth() != 2 {
		t.Fatalf("len=%d pending=%d want 1/2", s.Length(), s.PendingGrowth())
	}
	for i := 0; i < 3; i++ {
		s.Advance()
	}
	want := []Cell{{0, 2}, {0, 1}}
	if s.Head != (Cell{0, 3}) {
		t.Fatalf("head=%v want=(0,3)", s.Head)
	}
	if len(s.Body) != len(want) {
		t.Fatalf("body=%v want=%v", s.Body, want)
	}
	for i := range want {
		if s.Body[i] != want[i] {
			t.Fatalf("body[%d]=%v want=%v", i, s.Body[i], want[i])
		}
	}
}

func TestSnake_GrowDelaysTailDrop(t *testing.T) {
	s := newTestSnake(Cell{0, 0}, 1, Right)
	s.Grow(2)
	s.Advance()
	s.Advance()
	if s.Length() != 3 {
		t.Fatalf("len=%d want=3", s.Length())
	}
	s.Advance()
	if s.Length() != 3 {
		t.Fatalf("len=%d want=3 after growth exhausted", s.Length())
	}
	if s.Body[0] != (Cell{2, 0}) || s.Body[1] != (Cell{1, 0}) {
		t.Fatalf("body=%v", s.Body)
	}
}

func TestSnake_SteerIgnoresUnboundKeys(t *testing.T) {
	s := newTestSnake(Cell{0, 0}, 1, Right)
	if s.Steer("q") {
		t.Fatalf("unbound key accepted")
	}
	if s.Direction != Right {
		t.Fatalf("direction changed to %v", s.Direction)
	}
	if !s.Steer("W") {
		t.Fatalf("bound key rejected")
	}
	if s.Direction != Up {
		t.Fatalf("direction=%v want=up", s.Direction)
	}
	if s.SetDirection(Direction(9)) {
		t.Fatalf("invalid direction accepted")
	}
}

func TestSnake_ReverseIntoNeckSelfCollides(t *testing.T) {
	s := newTestSnake(Cell{2, 2}, 3, Right)
	s.Advance()
	s.Advance()
	s.Steer("a")
	s.Advance()
	if !s.BodyContains(s.Head) {
		t.Fatalf("head %v should land on body %v", s.Head, s.Body)
	}
}

func TestSnake_KillIdempotent(t *testing.T) {
	s := newTestSnake(Cell{0, 0}, 1, Right)
	s.Kill()
	s.Kill()
	if s.Alive {
		t.Fatalf("snake still alive")
	}
}

func TestSnake_OccupiesCell(t *testing.T) {
	s := newTestSnake(Cell{0, 0}, 2, Right)
	s.Advance()
	if !s.OccupiesCell(Cell{1, 0}) || !s.OccupiesCell(Cell{0, 0}) {
		t.Fatalf("expected head and body occupied: head=%v body=%v", s.Head, s.Body)
	}
	if s.OccupiesCell(Cell{2, 0}) {
		t.Fatalf("unexpected occupancy")
	}
}

func TestState_CloneIsDeep(t *testing.T) {
	st := &State{
		Grid:   NewGridSpace(5, 5, 50, 50),
		Walls:  NewWalls(Cell{0, 0}),
		Snakes: []*Snake{newTestSnake(Cell{2, 2}, 2, Up)},
		Food:   []Food{{Position: Cell{4, 4}, Power: 1}},
	}
	st.Snakes[0].Advance()

	c := st.Clone()
	c.Snakes[0].Advance()
	c.Snakes[0].Kill()
	c.Food[0].Power = 9

	if st.Snakes[0].Head != (Cell{2, 1}) || !st.Snakes[0].Alive {
		t.Fatalf("original snake mutated: %+v", st.Snakes[0])
	}
	if st.Food[0].Power != 1 {
		t.Fatalf("original food mutated")
	}
	if st.FoodAt(Cell{4, 4}) != 0 || st.FoodAt(Cell{1, 1}) != -1 {
		t.Fatalf("FoodAt mismatch")
	}
}

func TestParseDirection(t *testing.T) {
	d, err := ParseDirection(" Left ")
	if err != nil || d != Left {
		t.Fatalf("got %v, %v", d, err)
	}
	if _, err := ParseDirection("north"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestWalls_CellsRowMajor(t *testing.T) {
	w := NewWalls(Cell{2, 1}, Cell{0, 1}, Cell{1, 0})
	got := w.Cells()
	want := []Cell{{1, 0}, {0, 1}, {2, 1}}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("cells=%v want=%v", got, want)
		}
	}
	var nilWalls *Walls
	if nilWalls.Contains(Cell{}) || nilWalls.Len() != 0 {
		t.Fatalf("nil walls should be empty")
	}
}
