// Package store records session replays as Parquet files.
//
// A replay is append-only output for offline inspection; nothing reads it
// back into a running session.
package store

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress/zstd"

	"github.com/brensch/gridsnake/engine"
	"github.com/brensch/gridsnake/game"
	"github.com/brensch/gridsnake/rules"
)

// TickRow is one (session, tick) snapshot.
//
// Walls and grid size are repeated on every row so a single row can be
// rendered on its own.
type TickRow struct {
	SessionID string `parquet:"session_id,dict"`
	Tick      int32  `parquet:"tick"`
	Status    string `parquet:"status,dict"`
	Quit      bool   `parquet:"quit"`
	Cols      int32  `parquet:"cols"`
	Rows      int32  `parquet:"rows"`

	WallCol []int32 `parquet:"wall_col"`
	WallRow []int32 `parquet:"wall_row"`

	FoodCol   []int32 `parquet:"food_col"`
	FoodRow   []int32 `parquet:"food_row"`
	FoodPower []int32 `parquet:"food_power"`

	Snakes []SnakeRow `parquet:"snakes"`
	Deaths []DeathRow `parquet:"deaths"`

	// Starved counts replacement spawns that found no free cell this tick.
	Starved int32 `parquet:"starved"`
}

// SnakeRow holds one live snake. Cells are head first.
type SnakeRow struct {
	Name      string  `parquet:"name,dict"`
	Alive     bool    `parquet:"alive"`
	Direction string  `parquet:"direction,dict"`
	Col       []int32 `parquet:"col"`
	Row       []int32 `parquet:"row"`
}

type DeathRow struct {
	Snake string `parquet:"snake,dict"`
	Cause string `parquet:"cause,dict"`
	Col   int32  `parquet:"col"`
	Row   int32  `parquet:"row"`
	Other string `parquet:"other,dict"`
}

// SnapshotRow flattens a snapshot into a row.
func SnapshotRow(s engine.Snapshot) TickRow {
	row := TickRow{
		SessionID: s.SessionID,
		Tick:      int32(s.Tick),
		Status:    s.Status.String(),
		Quit:      s.Quit,
		Cols:      int32(s.Grid.Cols()),
		Rows:      int32(s.Grid.Rows()),
		Starved:   int32(s.Report.Starved),
	}

	for _, c := range s.Walls.Cells() {
		row.WallCol = append(row.WallCol, int32(c.Col))
		row.WallRow = append(row.WallRow, int32(c.Row))
	}
	for _, f := range s.Food {
		row.FoodCol = append(row.FoodCol, int32(f.Position.Col))
		row.FoodRow = append(row.FoodRow, int32(f.Position.Row))
		row.FoodPower = append(row.FoodPower, int32(f.Power))
	}
	for _, sn := range s.Snakes {
		sr := SnakeRow{Name: sn.Name, Alive: sn.Alive, Direction: sn.Direction.String()}
		for _, c := range sn.Cells() {
			sr.Col = append(sr.Col, int32(c.Col))
			sr.Row = append(sr.Row, int32(c.Row))
		}
		row.Snakes = append(row.Snakes, sr)
	}
	for _, d := range s.Report.Deaths {
		row.Deaths = append(row.Deaths, DeathRow{
			Snake: d.Snake,
			Cause: d.Cause.String(),
			Col:   int32(d.Cell.Col),
			Row:   int32(d.Cell.Row),
			Other: d.Other,
		})
	}
	return row
}

// RowSnapshot rebuilds a snapshot for rendering. Only the fields a replay
// carries are filled; pixel sizes are not recorded, so the grid uses one
// pixel per cell.
func RowSnapshot(row TickRow) engine.Snapshot {
	snap := engine.Snapshot{
		SessionID: row.SessionID,
		Tick:      int(row.Tick),
		Status:    parseStatus(row.Status),
		Quit:      row.Quit,
		Grid:      game.NewGridSpace(int(row.Cols), int(row.Rows), int(row.Cols), int(row.Rows)),
		Report:    rules.Report{Starved: int(row.Starved)},
	}

	walls := make([]game.Cell, 0, len(row.WallCol))
	for i := range row.WallCol {
		walls = append(walls, game.Cell{Col: int(row.WallCol[i]), Row: int(row.WallRow[i])})
	}
	snap.Walls = game.NewWalls(walls...)

	for i := range row.FoodCol {
		snap.Food = append(snap.Food, game.Food{
			Position: game.Cell{Col: int(row.FoodCol[i]), Row: int(row.FoodRow[i])},
			Power:    int(row.FoodPower[i]),
		})
	}
	for _, sr := range row.Snakes {
		if len(sr.Col) == 0 {
			continue
		}
		dir, _ := game.ParseDirection(sr.Direction)
		sn := &game.Snake{
			Name:      sr.Name,
			Alive:     sr.Alive,
			Direction: dir,
			Head:      game.Cell{Col: int(sr.Col[0]), Row: int(sr.Row[0])},
		}
		for i := 1; i < len(sr.Col); i++ {
			sn.Body = append(sn.Body, game.Cell{Col: int(sr.Col[i]), Row: int(sr.Row[i])})
		}
		snap.Snakes = append(snap.Snakes, sn)
	}
	for _, d := range row.Deaths {
		snap.Report.Deaths = append(snap.Report.Deaths, rules.Death{
			Snake: d.Snake,
			Cause: parseCause(d.Cause),
			Cell:  game.Cell{Col: int(d.Col), Row: int(d.Row)},
			Other: d.Other,
		})
	}
	return snap
}

func parseStatus(s string) engine.Status {
	for st := engine.Running; st <= engine.Lost; st++ {
		if st.String() == s {
			return st
		}
	}
	return engine.Running
}

func parseCause(s string) rules.Cause {
	for c := rules.CauseWall; c <= rules.CauseHeadToBody; c++ {
		if c.String() == s {
			return c
		}
	}
	return rules.CauseWall
}

// WriteReplayParquet writes rows to outPath via a temp file and rename, so
// readers never see a partial file.
func WriteReplayParquet(outPath string, rows []TickRow) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	tmpPath := outPath + ".tmp"
	_ = os.Remove(tmpPath)

	if err := parquet.WriteFile(tmpPath, rows,
		parquet.Compression(&zstd.Codec{Level: zstd.SpeedBetterCompression}),
		parquet.KeyValueMetadata("schema", "replay_tick_v1"),
	); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write parquet: %w", err)
	}

	if err := os.Rename(tmpPath, outPath); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename parquet: %w", err)
	}
	return nil
}

func ReadReplay(path string) ([]TickRow, error) {
	rows, err := parquet.ReadFile[TickRow](path)
	if err != nil {
		return nil, fmt.Errorf("read replay %s: %w", path, err)
	}
	return rows, nil
}

// Recorder is an engine.Observer that buffers one row per distinct tick and
// status, and writes the replay on Close. Idle frames while paused or won
// are not repeated.
type Recorder struct {
	outDir string
	index  *Index
	log    *slog.Logger

	sessionID  string
	rows       []TickRow
	lastTick   int
	lastStatus engine.Status
	closed     bool
}

func NewRecorder(outDir string, logger *slog.Logger) (*Recorder, error) {
	if outDir == "" {
		return nil, fmt.Errorf("outDir is required")
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	index, err := OpenIndex(filepath.Join(outDir, IndexFile))
	if err != nil {
		return nil, err
	}
	return &Recorder{outDir: outDir, index: index, log: logger, lastTick: -1}, nil
}

func (r *Recorder) Observe(s engine.Snapshot) {
	if r.closed {
		return
	}
	if len(r.rows) > 0 && s.Tick == r.lastTick && s.Status == r.lastStatus && !s.Quit {
		return
	}
	r.sessionID = s.SessionID
	r.lastTick = s.Tick
	r.lastStatus = s.Status
	r.rows = append(r.rows, SnapshotRow(s))
}

func (r *Recorder) BufferedRows() int { return len(r.rows) }

// Path is where Close writes the replay.
func (r *Recorder) Path() string {
	id := r.sessionID
	if id == "" {
		id = "unknown"
	}
	return ReplayPath(r.outDir, id)
}

// Close writes the buffered rows and adds the session to the directory
// index. With nothing recorded it writes nothing and returns an empty path.
func (r *Recorder) Close() (string, error) {
	if r.closed {
		return "", nil
	}
	r.closed = true
	defer r.index.Close()
	if len(r.rows) == 0 {
		return "", nil
	}

	outPath := r.Path()
	if err := WriteReplayParquet(outPath, r.rows); err != nil {
		return "", err
	}
	added, err := r.index.Add(r.sessionID)
	switch {
	case err != nil:
		r.log.Warn("replay index append failed", "path", outPath, "err", err)
	case !added:
		r.log.Warn("replay replaced an earlier recording of this session", "path", outPath)
	}
	r.log.Info("replay written", "path", outPath, "rows", len(r.rows))
	return outPath, nil
}

// ReplayPath is where a recorder in dir writes sessionID's replay.
func ReplayPath(dir, sessionID string) string {
	return filepath.Join(dir, fmt.Sprintf("replay_%s.parquet", sessionID))
}
