package engine

import (
	"fmt"
	"strings"

	"github.com/brensch/gridsnake/game"
	"github.com/brensch/gridsnake/rules"
)

// Snapshot is the read-only result of a Step, handed to renderers and
// observers. Snakes holds copies of the live snakes only.
type Snapshot struct {
	SessionID string
	Tick      int
	Status    Status
	Quit      bool
	Grid      game.GridSpace
	Walls     *game.Walls
	Snakes    []*game.Snake
	Food      []game.Food
	Report    rules.Report
}

// Done reports whether the session has stopped for good.
func (s Snapshot) Done() bool {
	return s.Quit || s.Status == Lost
}

// Observer receives every snapshot a session produces.
type Observer interface {
	Observe(Snapshot)
}

type ObserverFunc func(Snapshot)

func (f ObserverFunc) Observe(s Snapshot) { f(s) }

// String renders the board as ASCII: '#' wall, 'F' food, upper-case head and
// lower-case body per snake in list order.
func (s Snapshot) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Tick=%d Status=%s Snakes=%d Food=%d\n", s.Tick, s.Status, len(s.Snakes), len(s.Food))

	cols, rows := s.Grid.Cols(), s.Grid.Rows()
	board := make([][]byte, rows)
	for r := range board {
		board[r] = []byte(strings.Repeat(".", cols))
	}
	put := func(c game.Cell, ch byte) {
		if s.Grid.Contains(c) {
			board[c.Row][c.Col] = ch
		}
	}

	for _, w := range s.Walls.Cells() {
		put(w, '#')
	}
	for _, f := range s.Food {
		put(f.Position, 'F')
	}
	for i, sn := range s.Snakes {
		sym := byte('a' + i%26)
		for _, p := range sn.Body {
			put(p, sym)
		}
		put(sn.Head, sym-32)
	}

	for _, line := range board {
		b.Write(line)
		b.WriteByte('\n')
	}
	return b.String()
}
