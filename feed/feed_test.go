package feed

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/brensch/gridsnake/engine"
	"github.com/brensch/gridsnake/game"
	"github.com/brensch/gridsnake/rules"
)

var quietLog = slog.New(slog.NewTextHandler(io.Discard, nil))

func snap(tick int, status engine.Status) engine.Snapshot {
	sn := &game.Snake{Name: "alice", Alive: true, Direction: game.Right, Head: game.Cell{Col: 2, Row: 1}, Body: []game.Cell{{Col: 1, Row: 1}}}
	return engine.Snapshot{
		SessionID: "feed-test",
		Tick:      tick,
		Status:    status,
		Grid:      game.NewGridSpace(4, 3, 40, 30),
		Walls:     game.NewWalls(game.Cell{Col: 3, Row: 2}),
		Snakes:    []*game.Snake{sn},
		Food:      []game.Food{{Position: game.Cell{Col: 0, Row: 2}, Power: 1}},
	}
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) Event {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ev Event
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("read: %v", err)
	}
	return ev
}

func TestHub_Stream(t *testing.T) {
	hub := NewHub(quietLog)
	srv := httptest.NewServer(hub)
	defer srv.Close()
	defer hub.Close()

	hub.Observe(snap(1, engine.Running))

	conn := dial(t, srv)

	ev := readEvent(t, conn)
	if ev.Type != "game_info" {
		t.Fatalf("first event=%s want game_info", ev.Type)
	}
	var info GameInfo
	if err := json.Unmarshal(ev.Data, &info); err != nil {
		t.Fatalf("info: %v", err)
	}
	if info.ID != "feed-test" || info.Width != 4 || info.Height != 3 || len(info.Walls) != 1 || info.Walls[0] != (Coord{X: 3, Y: 2}) {
		t.Fatalf("info=%+v", info)
	}

	ev = readEvent(t, conn)
	if ev.Type != "frame" {
		t.Fatalf("second event=%s want frame", ev.Type)
	}
	var f Frame
	if err := json.Unmarshal(ev.Data, &f); err != nil {
		t.Fatalf("frame: %v", err)
	}
	if f.Turn != 1 || f.Status != "RUNNING" || len(f.Snakes) != 1 || len(f.Snakes[0].Body) != 2 || f.Snakes[0].Body[0] != (Coord{X: 2, Y: 1}) {
		t.Fatalf("frame=%+v", f)
	}
	if hub.Clients() != 1 {
		t.Fatalf("clients=%d want=1", hub.Clients())
	}

	// Idle frames with the same tick and status are not re-sent.
	hub.Observe(snap(1, engine.Running))

	end := snap(2, engine.Lost)
	end.Snakes = nil
	end.Report = rules.Report{Deaths: []rules.Death{{Snake: "alice", Cause: rules.CauseWall, Cell: game.Cell{Col: 4, Row: 1}}}}
	hub.Observe(end)

	ev = readEvent(t, conn)
	if ev.Type != "frame" {
		t.Fatalf("event=%s want frame", ev.Type)
	}
	if err := json.Unmarshal(ev.Data, &f); err != nil {
		t.Fatalf("frame: %v", err)
	}
	if f.Turn != 2 || f.Status != "LOST" || len(f.Snakes) != 0 || len(f.Deaths) != 1 || f.Deaths[0].Cause != "wall" {
		t.Fatalf("frame=%+v", f)
	}

	if ev = readEvent(t, conn); ev.Type != "game_end" {
		t.Fatalf("event=%s want game_end", ev.Type)
	}
}

func TestHub_LateJoinerGetsLatestFrame(t *testing.T) {
	hub := NewHub(quietLog)
	srv := httptest.NewServer(hub)
	defer srv.Close()
	defer hub.Close()

	hub.Observe(snap(1, engine.Running))
	hub.Observe(snap(2, engine.Running))
	hub.Observe(snap(2, engine.Paused))

	conn := dial(t, srv)
	if ev := readEvent(t, conn); ev.Type != "game_info" {
		t.Fatalf("event=%s", ev.Type)
	}
	ev := readEvent(t, conn)
	var f Frame
	if err := json.Unmarshal(ev.Data, &f); err != nil {
		t.Fatalf("frame: %v", err)
	}
	if f.Turn != 2 || f.Status != "PAUSED" {
		t.Fatalf("frame=%+v", f)
	}
}

func TestHub_CloseDisconnects(t *testing.T) {
	hub := NewHub(quietLog)
	srv := httptest.NewServer(hub)
	defer srv.Close()

	hub.Observe(snap(1, engine.Running))
	conn := dial(t, srv)
	readEvent(t, conn)
	readEvent(t, conn)

	hub.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		t.Fatalf("err=%v want normal close", err)
	}
	if hub.Clients() != 0 {
		t.Fatalf("clients=%d", hub.Clients())
	}
}

func TestHub_ReceivesStartingBoardFromSession(t *testing.T) {
	hub := NewHub(quietLog)
	srv := httptest.NewServer(hub)
	defer srv.Close()
	defer hub.Close()

	players := []game.PlayerDef{{Name: "alice", Start: game.Cell{Col: 1, Row: 1}, StartLength: 1, StartDirection: game.Right}}
	if _, err := engine.NewSession(engine.DefaultConfig(), game.NewGridSpace(4, 3, 40, 30), nil, players,
		engine.WithLogger(quietLog), engine.WithObserver(hub), engine.WithID("start")); err != nil {
		t.Fatalf("NewSession: %v", err)
	}

	conn := dial(t, srv)
	if ev := readEvent(t, conn); ev.Type != "game_info" {
		t.Fatalf("event=%s want game_info", ev.Type)
	}
	ev := readEvent(t, conn)
	var f Frame
	if err := json.Unmarshal(ev.Data, &f); err != nil {
		t.Fatalf("frame: %v", err)
	}
	if ev.Type != "frame" || f.Turn != 0 || len(f.Snakes) != 1 || f.Snakes[0].Body[0] != (Coord{X: 1, Y: 1}) || len(f.Food) != 2 {
		t.Fatalf("event=%s frame=%+v", ev.Type, f)
	}
}
