// Package tui is the terminal front end: it collects key presses between
// ticks, steps the session on a timer and draws the board with lipgloss.
package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/brensch/gridsnake/engine"
	"github.com/brensch/gridsnake/game"
)

var snakeColors = []lipgloss.Color{"#2e7d32", "#1565c0", "#6a1b9a", "#ef6c00", "#00838f", "#ad1457"}

type styles struct {
	background lipgloss.Style
	wall       lipgloss.Style
	food       lipgloss.Style
	status     lipgloss.Style
	banner     lipgloss.Style
}

func newStyles(background string) styles {
	bg := lipgloss.Color(background)
	return styles{
		background: lipgloss.NewStyle().Background(bg),
		wall:       lipgloss.NewStyle().Background(lipgloss.Color("#424242")),
		food:       lipgloss.NewStyle().Background(bg).Foreground(lipgloss.Color("#c62828")).Bold(true),
		status:     lipgloss.NewStyle().Faint(true),
		banner:     lipgloss.NewStyle().Bold(true).Padding(0, 1),
	}
}

type tickMsg time.Time

// Model drives one session.
type Model struct {
	session *engine.Session
	snap    engine.Snapshot
	keys    []string
	styles  styles
}

func New(s *engine.Session, background string) Model {
	return Model{
		session: s,
		snap:    s.Snapshot(),
		styles:  newStyles(background),
	}
}

// Snapshot is the last state the model drew.
func (m Model) Snapshot() engine.Snapshot { return m.snap }

func (m Model) tickCmd() tea.Cmd {
	return tea.Tick(m.session.Interval(), func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) Init() tea.Cmd {
	return m.tickCmd()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			m.snap = m.session.Step(engine.Input{Keys: m.keys, Quit: true})
			m.keys = nil
			return m, tea.Quit
		}
		m.keys = append(m.keys, KeyName(msg))
	case tickMsg:
		m.snap = m.session.Step(engine.Input{Keys: m.keys})
		m.keys = nil
		if m.snap.Done() {
			return m, tea.Quit
		}
		return m, m.tickCmd()
	}
	return m, nil
}

// KeyName maps a terminal key to the names used in settings and player
// files: "SPACE", "ESCAPE", "UP", upper-cased letters and so on.
func KeyName(k tea.KeyMsg) string {
	switch k.Type {
	case tea.KeySpace:
		return "SPACE"
	case tea.KeyEsc:
		return "ESCAPE"
	case tea.KeyEnter:
		return "RETURN"
	case tea.KeyTab:
		return "TAB"
	case tea.KeyBackspace:
		return "BACKSPACE"
	case tea.KeyUp:
		return "UP"
	case tea.KeyDown:
		return "DOWN"
	case tea.KeyLeft:
		return "LEFT"
	case tea.KeyRight:
		return "RIGHT"
	case tea.KeyRunes:
		if string(k.Runes) == " " {
			return "SPACE"
		}
		return strings.ToUpper(string(k.Runes))
	}
	return strings.ToUpper(k.String())
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(m.board())
	b.WriteByte('\n')
	b.WriteString(m.statusLine())
	b.WriteByte('\n')
	if banner := m.banner(); banner != "" {
		b.WriteString(m.styles.banner.Render(banner))
		b.WriteByte('\n')
	}
	return b.String()
}

func (m Model) board() string {
	s := m.snap
	cols, rows := s.Grid.Cols(), s.Grid.Rows()

	owner := make(map[game.Cell]int)
	heads := make(map[game.Cell]bool)
	for i, sn := range s.Snakes {
		for _, c := range sn.Body {
			owner[c] = i
		}
		owner[sn.Head] = i
		heads[sn.Head] = true
	}
	food := make(map[game.Cell]bool, len(s.Food))
	for _, f := range s.Food {
		food[f.Position] = true
	}

	var b strings.Builder
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			cell := game.Cell{Col: c, Row: r}
			switch i, ok := owner[cell]; {
			case ok:
				st := lipgloss.NewStyle().Background(snakeColors[i%len(snakeColors)])
				if heads[cell] {
					b.WriteString(st.Foreground(lipgloss.Color("#ffffff")).Render("<>"))
				} else {
					b.WriteString(st.Render("  "))
				}
			case s.Walls.Contains(cell):
				b.WriteString(m.styles.wall.Render("  "))
			case food[cell]:
				b.WriteString(m.styles.food.Render("()"))
			default:
				b.WriteString(m.styles.background.Render("  "))
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func (m Model) statusLine() string {
	s := m.snap
	parts := []string{fmt.Sprintf("tick %d", s.Tick), s.Status.String()}
	for _, sn := range s.Snakes {
		parts = append(parts, fmt.Sprintf("%s:%d", sn.Name, sn.Length()))
	}
	return m.styles.status.Render(strings.Join(parts, "  "))
}

func (m Model) banner() string {
	cfg := m.session.Config()
	switch m.snap.Status {
	case engine.Paused:
		return fmt.Sprintf("PAUSED, press %s to resume", cfg.PauseKey)
	case engine.Won:
		return fmt.Sprintf("Game over, you won! Press %s to exit", cfg.ExitKey)
	case engine.Lost:
		return "Game over, every one is dead"
	}
	return ""
}
