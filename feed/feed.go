// Package feed streams session snapshots to websocket spectators.
//
// The stream follows the event shape of the public Battlesnake engine feed:
// one "game_info" event on connect, a "frame" event per tick and a final
// "game_end". Spectators are read-only; anything they send is discarded.
package feed

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/brensch/gridsnake/engine"
	"github.com/brensch/gridsnake/game"
)

const (
	writeWait  = 5 * time.Second
	sendBuffer = 64
)

// Event is one message on the wire.
type Event struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type Coord struct {
	X int `json:"x"`
	Y int `json:"y"`
}

type GameInfo struct {
	ID     string  `json:"id"`
	Width  int     `json:"width"`
	Height int     `json:"height"`
	Walls  []Coord `json:"walls"`
}

type SnakeData struct {
	Name      string  `json:"name"`
	Direction string  `json:"direction"`
	Body      []Coord `json:"body"` // head first
}

type FoodData struct {
	Coord
	Power int `json:"power"`
}

type DeathData struct {
	Snake string `json:"snake"`
	Cause string `json:"cause"`
	At    Coord  `json:"at"`
	Other string `json:"other,omitempty"`
}

type Frame struct {
	Turn    int         `json:"turn"`
	Status  string      `json:"status"`
	Snakes  []SnakeData `json:"snakes"`
	Food    []FoodData  `json:"food"`
	Deaths  []DeathData `json:"deaths,omitempty"`
	Starved int         `json:"starved,omitempty"`
}

func coord(c game.Cell) Coord { return Coord{X: c.Col, Y: c.Row} }

func infoFrom(s engine.Snapshot) GameInfo {
	info := GameInfo{ID: s.SessionID, Width: s.Grid.Cols(), Height: s.Grid.Rows(), Walls: []Coord{}}
	for _, w := range s.Walls.Cells() {
		info.Walls = append(info.Walls, coord(w))
	}
	return info
}

// FrameFrom converts a snapshot to its wire form.
func FrameFrom(s engine.Snapshot) Frame {
	f := Frame{
		Turn:    s.Tick,
		Status:  s.Status.String(),
		Snakes:  make([]SnakeData, 0, len(s.Snakes)),
		Food:    make([]FoodData, 0, len(s.Food)),
		Starved: s.Report.Starved,
	}
	for _, sn := range s.Snakes {
		sd := SnakeData{Name: sn.Name, Direction: sn.Direction.String()}
		for _, c := range sn.Cells() {
			sd.Body = append(sd.Body, coord(c))
		}
		f.Snakes = append(f.Snakes, sd)
	}
	for _, fd := range s.Food {
		f.Food = append(f.Food, FoodData{Coord: coord(fd.Position), Power: fd.Power})
	}
	for _, d := range s.Report.Deaths {
		f.Deaths = append(f.Deaths, DeathData{Snake: d.Snake, Cause: d.Cause.String(), At: coord(d.Cell), Other: d.Other})
	}
	return f
}

func encode(typ string, v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Event{Type: typ, Data: data})
}

type client struct {
	ws   *websocket.Conn
	send chan []byte
}

// Hub fans snapshots out to connected spectators. Observe never blocks on a
// slow client; a client whose buffer is full is dropped.
type Hub struct {
	upgrader websocket.Upgrader
	log      *slog.Logger

	mu       sync.Mutex
	clients  map[*client]struct{}
	info     []byte
	last     []byte
	lastTick int
	lastStat engine.Status
	ended    bool
	closed   bool
}

func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		log:      logger,
		clients:  make(map[*client]struct{}),
		lastTick: -1,
	}
}

func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request and sends the game info and latest frame
// before any live frames.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "err", err)
		return
	}

	c := &client{ws: ws, send: make(chan []byte, sendBuffer)}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		ws.Close()
		return
	}
	h.clients[c] = struct{}{}
	if h.info != nil {
		c.send <- h.info
	}
	if h.last != nil {
		c.send <- h.last
	}
	if h.ended {
		if msg, err := encode("game_end", struct{}{}); err == nil {
			c.send <- msg
		}
	}
	n := len(h.clients)
	h.mu.Unlock()

	h.log.Info("spectator connected", "remote", r.RemoteAddr, "clients", n)

	go h.writeLoop(c)
	h.readLoop(c)
}

// readLoop discards input and detects disconnects.
func (h *Hub) readLoop(c *client) {
	defer h.remove(c)
	for {
		if _, _, err := c.ws.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Debug("spectator read error", "err", err)
			}
			return
		}
	}
}

func (h *Hub) writeLoop(c *client) {
	defer c.ws.Close()
	for msg := range c.send {
		c.ws.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
			h.log.Debug("spectator write failed", "err", err)
			go h.remove(c)
			for range c.send {
			}
			return
		}
	}
	c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	_ = c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// broadcast must be called with h.mu held.
func (h *Hub) broadcast(msg []byte) {
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			h.log.Warn("dropping slow spectator")
			delete(h.clients, c)
			close(c.send)
		}
	}
}

// Observe publishes a frame when the tick or status changed, and game_end
// once the session is done.
func (h *Hub) Observe(s engine.Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed || h.ended {
		return
	}

	if h.info == nil {
		msg, err := encode("game_info", infoFrom(s))
		if err != nil {
			h.log.Error("encode game_info", "err", err)
			return
		}
		h.info = msg
		h.broadcast(msg)
	}

	if s.Tick != h.lastTick || s.Status != h.lastStat {
		msg, err := encode("frame", FrameFrom(s))
		if err != nil {
			h.log.Error("encode frame", "err", err)
			return
		}
		h.last = msg
		h.lastTick = s.Tick
		h.lastStat = s.Status
		h.broadcast(msg)
	}

	if s.Done() {
		h.ended = true
		if msg, err := encode("game_end", struct{}{}); err == nil {
			h.broadcast(msg)
		}
	}
}

// Close disconnects every spectator and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}
