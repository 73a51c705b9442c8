// Package engine drives a game session one tick at a time.
//
// A Session owns the live snakes, the live food and the wall set. Step runs
// exactly one state transition; Run calls Step at the configured tick rate.
// Nothing here is safe for concurrent use except InputQueue, which is the
// hand-off point between input goroutines and the simulation.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/brensch/gridsnake/game"
	"github.com/brensch/gridsnake/rules"
)

var ErrNoSnakes = errors.New("engine: session needs at least one player")

// Status is the clock state.
type Status int

const (
	Running Status = iota
	Paused
	Won
	Lost
)

func (s Status) String() string {
	switch s {
	case Running:
		return "RUNNING"
	case Paused:
		return "PAUSED"
	case Won:
		return "WON"
	case Lost:
		return "LOST"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// Config holds the session knobs.
type Config struct {
	TickRate    float64 // ticks per second while running
	IdleRate    float64 // frames per second while paused or won
	InitialFood int
	FoodPower   int
	Seed        int64 // 0 seeds from the clock
	PauseKey    string
	ExitKey     string
}

func DefaultConfig() Config {
	return Config{
		TickRate:    2,
		IdleRate:    60,
		InitialFood: 2,
		FoodPower:   1,
		PauseKey:    "SPACE",
		ExitKey:     "ESCAPE",
	}
}

type Option func(*Session)

func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.log = l }
}

// WithObserver registers o to receive the starting board and every snapshot
// produced by Step.
func WithObserver(o Observer) Option {
	return func(s *Session) { s.observers = append(s.observers, o) }
}

func WithRand(r *rand.Rand) Option {
	return func(s *Session) { s.rng = r }
}

func WithID(id string) Option {
	return func(s *Session) { s.id = id }
}

type Session struct {
	id        string
	cfg       Config
	state     *game.State
	spawner   *rules.Spawner
	status    Status
	quit      bool
	observers []Observer
	rng       *rand.Rand
	log       *slog.Logger
}

// NewSession creates the snakes in player order, spawns the initial food and
// hands the tick 0 board to the observers.
func NewSession(cfg Config, grid game.GridSpace, walls *game.Walls, players []game.PlayerDef, opts ...Option) (*Session, error) {
	if len(players) == 0 {
		return nil, ErrNoSnakes
	}
	if cfg.TickRate <= 0 {
		return nil, fmt.Errorf("engine: tick rate must be positive, got %v", cfg.TickRate)
	}
	if cfg.IdleRate <= 0 {
		cfg.IdleRate = DefaultConfig().IdleRate
	}
	if walls == nil {
		walls = game.NewWalls()
	}

	s := &Session{
		id:  uuid.NewString(),
		cfg: cfg,
		state: &game.State{
			Grid:  grid,
			Walls: walls,
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	if s.rng == nil {
		seed := cfg.Seed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		s.rng = rand.New(rand.NewSource(seed))
	}
	s.log = s.log.With("session", s.id)

	for _, p := range players {
		if !grid.Contains(p.Start) {
			return nil, fmt.Errorf("engine: player %q starts outside the grid at %v", p.Name, p.Start)
		}
		s.state.Snakes = append(s.state.Snakes, game.NewSnake(p))
	}

	s.spawner = rules.NewSpawner(cfg.FoodPower, s.rng, s.log)
	if starved := s.spawner.Fill(s.state, cfg.InitialFood); starved > 0 {
		s.log.Warn("initial food could not all be placed", "wanted", cfg.InitialFood, "placed", len(s.state.Food))
	}

	s.log.Info("session started",
		"grid", fmt.Sprintf("%dx%d", grid.Cols(), grid.Rows()),
		"snakes", len(s.state.Snakes),
		"walls", walls.Len(),
		"food", len(s.state.Food),
		"tick_rate", cfg.TickRate,
	)
	s.publish(rules.Report{})
	return s, nil
}

func (s *Session) ID() string           { return s.id }
func (s *Session) Status() Status       { return s.status }
func (s *Session) Config() Config       { return s.cfg }
func (s *Session) Quit() bool           { return s.quit }
func (s *Session) Done() bool           { return s.quit || s.status == Lost }
func (s *Session) Grid() game.GridSpace { return s.state.Grid }

// Interval is the wait before the next Step: the tick period while running,
// the idle frame period otherwise.
func (s *Session) Interval() time.Duration {
	rate := s.cfg.TickRate
	if s.status != Running {
		rate = s.cfg.IdleRate
	}
	return time.Duration(float64(time.Second) / rate)
}

// Step consumes the input gathered since the last tick and runs one
// transition. Keys are handled in order: the exit key quits, the pause key
// toggles, and any other key steers every snake bound to it unless the
// session is not running. Then, if still running: an empty food list wins,
// otherwise every live snake moves, collisions resolve, and an empty snake
// list loses.
func (s *Session) Step(in Input) Snapshot {
	if in.Quit {
		s.quit = true
	}
	if in.TogglePause {
		s.togglePause()
	}
	for _, k := range in.Keys {
		if s.quit {
			break
		}
		switch {
		case keyIs(k, s.cfg.ExitKey):
			s.quit = true
		case keyIs(k, s.cfg.PauseKey):
			s.togglePause()
		case s.status == Running:
			for _, sn := range s.state.Snakes {
				sn.Steer(k)
			}
		}
	}
	if s.quit {
		s.log.Info("quit requested", "tick", s.state.Tick)
		return s.publish(rules.Report{})
	}

	if s.status == Running && len(s.state.Food) == 0 {
		s.status = Won
		s.log.Info("game over, you won", "tick", s.state.Tick, "exit_key", s.cfg.ExitKey)
	}
	if s.status != Running {
		return s.publish(rules.Report{})
	}

	rules.AdvanceAll(s.state)
	rep := rules.Resolve(s.state, s.spawner)
	s.state.Tick++

	for _, d := range rep.Deaths {
		s.log.Info("snake died", "tick", s.state.Tick, "snake", d.Snake, "cause", d.Cause.String(), "cell", d.Cell.String(), "other", d.Other)
	}
	for _, m := range rep.Meals {
		s.log.Debug("food eaten", "tick", s.state.Tick, "snake", m.Snake, "cell", m.Food.Position.String(), "power", m.Food.Power)
	}
	if rep.Starved > 0 {
		s.log.Warn("food starvation", "tick", s.state.Tick, "missing", rep.Starved, "food_remaining", len(s.state.Food))
	}

	if len(s.state.Snakes) == 0 {
		s.status = Lost
		s.log.Info("game over, every one is dead", "tick", s.state.Tick)
	}
	return s.publish(rep)
}

// Run steps the session until it is done or ctx is cancelled. It returns
// nil after a quit or a loss.
func (s *Session) Run(ctx context.Context, src InputSource) error {
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}

		snap := s.Step(src.Poll())
		if snap.Done() {
			return nil
		}
		timer.Reset(s.Interval())
	}
}

// Snapshot returns a copy of the current state without stepping.
func (s *Session) Snapshot() Snapshot {
	return s.snapshot(rules.Report{})
}

func (s *Session) togglePause() {
	switch s.status {
	case Running:
		s.status = Paused
		s.log.Info("paused", "tick", s.state.Tick)
	case Paused:
		s.status = Running
		s.log.Info("resumed", "tick", s.state.Tick)
	}
}

func (s *Session) snapshot(rep rules.Report) Snapshot {
	st := s.state.Clone()
	return Snapshot{
		SessionID: s.id,
		Tick:      st.Tick,
		Status:    s.status,
		Quit:      s.quit,
		Grid:      st.Grid,
		Walls:     st.Walls,
		Snakes:    st.Snakes,
		Food:      st.Food,
		Report:    rep,
	}
}

func (s *Session) publish(rep rules.Report) Snapshot {
	snap := s.snapshot(rep)
	for _, o := range s.observers {
		o.Observe(snap)
	}
	return snap
}

func keyIs(k, want string) bool {
	return want != "" && strings.EqualFold(k, want)
}
