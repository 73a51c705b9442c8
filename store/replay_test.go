package store

import (
	"io"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/brensch/gridsnake/engine"
	"github.com/brensch/gridsnake/game"
)

var quietLog = slog.New(slog.NewTextHandler(io.Discard, nil))

func newSession(t *testing.T, rec *Recorder) *engine.Session {
	t.Helper()
	cfg := engine.DefaultConfig()
	cfg.InitialFood = 1
	players := []game.PlayerDef{
		{Name: "left", Start: game.Cell{Col: 1, Row: 1}, StartLength: 3, StartDirection: game.Right},
		{Name: "right", Start: game.Cell{Col: 1, Row: 3}, StartLength: 1, StartDirection: game.Right},
	}
	s, err := engine.NewSession(cfg, game.NewGridSpace(6, 5, 60, 50), game.NewWalls(game.Cell{Col: 5, Row: 3}), players,
		engine.WithLogger(quietLog), engine.WithRand(rand.New(rand.NewSource(5))), engine.WithObserver(rec), engine.WithID("replay-test"))
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	return s
}

func TestRecorder_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	rec, err := NewRecorder(dir, quietLog)
	if err != nil {
		t.Fatalf("NewRecorder: %v", err)
	}
	s := newSession(t, rec)

	var last engine.Snapshot
	for i := 0; i < 10 && !last.Done(); i++ {
		last = s.Step(engine.Input{})
	}

	path, err := rec.Close()
	if err != nil {
		t.Fatalf("Close: %v", err)
	}
	if path != filepath.Join(dir, "replay_replay-test.parquet") {
		t.Fatalf("path=%s", path)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("temp file left behind")
	}

	rows, err := ReadReplay(path)
	if err != nil {
		t.Fatalf("ReadReplay: %v", err)
	}
	if len(rows) != rec.BufferedRows() {
		t.Fatalf("rows=%d want=%d", len(rows), rec.BufferedRows())
	}

	first := RowSnapshot(rows[0])
	t.Logf("first row:\n%s", first)
	if first.SessionID != "replay-test" || first.Tick != 0 || first.Grid.Cols() != 6 || first.Grid.Rows() != 5 {
		t.Fatalf("first=%+v", first)
	}
	if !first.Walls.Contains(game.Cell{Col: 5, Row: 3}) || len(first.Snakes) != 2 || len(first.Food) != 1 {
		t.Fatalf("walls=%v snakes=%d food=%d", first.Walls.Cells(), len(first.Snakes), len(first.Food))
	}
	if first.Snakes[0].Head != (game.Cell{Col: 1, Row: 1}) || first.Snakes[1].Head != (game.Cell{Col: 1, Row: 3}) {
		t.Fatalf("start heads=%v %v", first.Snakes[0].Head, first.Snakes[1].Head)
	}

	second := RowSnapshot(rows[1])
	if second.Tick != 1 || second.Snakes[0].Head != (game.Cell{Col: 2, Row: 1}) || second.Snakes[0].Length() != 2 {
		t.Fatalf("tick=%d left snake head=%v len=%d", second.Tick, second.Snakes[0].Head, second.Snakes[0].Length())
	}

	// "right" runs into the wall at (5,3) on tick 4.
	final := RowSnapshot(rows[len(rows)-1])
	t.Logf("last row:\n%s", final)
	if final.Tick != last.Tick || final.Status != last.Status {
		t.Fatalf("final tick=%d status=%v want %d/%v", final.Tick, final.Status, last.Tick, last.Status)
	}
	var sawWallDeath bool
	for _, r := range rows {
		for _, d := range r.Deaths {
			if d.Snake == "right" && d.Cause == "wall" && d.Col == 5 && d.Row == 3 {
				sawWallDeath = true
			}
		}
	}
	if !sawWallDeath {
		t.Fatalf("wall death not recorded")
	}
}

func TestRecorder_RecordsStartingBoard(t *testing.T) {
	dir := t.TempDir()
	rec, err := NewRecorder(dir, quietLog)
	if err != nil {
		t.Fatalf("NewRecorder: %v", err)
	}
	s := newSession(t, rec)
	start := s.Snapshot()

	s.Step(engine.Input{})
	s.Step(engine.Input{Quit: true})

	path, err := rec.Close()
	if err != nil {
		t.Fatalf("Close: %v", err)
	}
	rows, err := ReadReplay(path)
	if err != nil {
		t.Fatalf("ReadReplay: %v", err)
	}
	if len(rows) != 3 || rows[0].Tick != 0 || rows[1].Tick != 1 || !rows[2].Quit {
		t.Fatalf("rows=%d ticks=%d,%d", len(rows), rows[0].Tick, rows[1].Tick)
	}

	got := RowSnapshot(rows[0])
	if got.Snakes[0].Head != (game.Cell{Col: 1, Row: 1}) || got.Status != engine.Running {
		t.Fatalf("first head=%v status=%v, start was (1,1)", got.Snakes[0].Head, got.Status)
	}
	if len(got.Food) != len(start.Food) || got.Food[0] != start.Food[0] {
		t.Fatalf("food=%v want=%v", got.Food, start.Food)
	}
}

func TestRecorder_SkipsIdleFrames(t *testing.T) {
	rec, err := NewRecorder(t.TempDir(), quietLog)
	if err != nil {
		t.Fatalf("NewRecorder: %v", err)
	}
	s := newSession(t, rec)

	s.Step(engine.Input{})
	s.Step(engine.Input{TogglePause: true})
	s.Step(engine.Input{})
	s.Step(engine.Input{})

	// start board, tick 1 running, then one row for the pause.
	if rec.BufferedRows() != 3 {
		t.Fatalf("rows=%d want=3", rec.BufferedRows())
	}
}

func TestRecorder_EmptyCloseWritesNothing(t *testing.T) {
	dir := t.TempDir()
	rec, err := NewRecorder(dir, quietLog)
	if err != nil {
		t.Fatalf("NewRecorder: %v", err)
	}
	path, err := rec.Close()
	if err != nil || path != "" {
		t.Fatalf("path=%q err=%v", path, err)
	}
	entries, _ := os.ReadDir(dir)
	for _, e := range entries {
		if e.Name() != IndexFile {
			t.Fatalf("unexpected file: %s", e.Name())
		}
	}
	if ids, err := ReadIndex(filepath.Join(dir, IndexFile)); err != nil || len(ids) != 0 {
		t.Fatalf("index=%v err=%v", ids, err)
	}
}

func TestRecorder_IndexesSessions(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 2; i++ {
		rec, err := NewRecorder(dir, quietLog)
		if err != nil {
			t.Fatalf("NewRecorder: %v", err)
		}
		s := newSession(t, rec)
		s.Step(engine.Input{})
		if _, err := rec.Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}
	}

	// Both sessions used the same fixed ID, so the index holds it once.
	ids, err := ReadIndex(filepath.Join(dir, IndexFile))
	if err != nil {
		t.Fatalf("ReadIndex: %v", err)
	}
	if len(ids) != 1 || ids[0] != "replay-test" {
		t.Fatalf("ids=%v", ids)
	}
	if _, err := os.Stat(ReplayPath(dir, "replay-test")); err != nil {
		t.Fatalf("replay missing: %v", err)
	}
}

func TestIndex_AddAndReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", IndexFile)
	idx, err := OpenIndex(path)
	if err != nil {
		t.Fatalf("OpenIndex: %v", err)
	}
	for _, tc := range []struct {
		id    string
		fresh bool
	}{{"a", true}, {"b", true}, {"a", false}} {
		added, err := idx.Add(tc.id)
		if err != nil || added != tc.fresh {
			t.Fatalf("Add(%s)=%v,%v want %v", tc.id, added, err, tc.fresh)
		}
	}
	if got := idx.IDs(); len(got) != 2 || !idx.Contains("b") || idx.Contains("c") {
		t.Fatalf("ids=%v", got)
	}
	for _, bad := range []string{"", "x\ny"} {
		if _, err := idx.Add(bad); err == nil {
			t.Fatalf("Add(%q) accepted", bad)
		}
	}
	if err := idx.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := idx.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if _, err := idx.Add("c"); err == nil {
		t.Fatalf("add after close accepted")
	}

	// Blank lines and repeats are dropped on read.
	f, _ := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	f.WriteString("\n\nc\na\n")
	f.Close()

	idx, err = OpenIndex(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer idx.Close()
	got := idx.IDs()
	if len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Fatalf("ids=%v", got)
	}
	if added, err := idx.Add("c"); err != nil || added {
		t.Fatalf("reloaded id re-added: %v %v", added, err)
	}
}
