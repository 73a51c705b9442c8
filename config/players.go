package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/brensch/gridsnake/game"
)

type playerFile struct {
	Name              string            `yaml:"name"`
	Keybindings       map[string]string `yaml:"keybindings"`
	Textures          any               `yaml:"textures"`
	StartingPos       []int             `yaml:"starting_pos"`
	StartingLength    int               `yaml:"starting_length"`
	StartingDirection string            `yaml:"starting_direction"`
}

// LoadPlayers reads every .yml/.yaml file in dir. Files are loaded in
// lexical name order, which becomes the snake processing order.
func LoadPlayers(dir string) ([]game.PlayerDef, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read players dir: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".yml", ".yaml":
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	players := make([]game.PlayerDef, 0, len(names))
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("read player %s: %w", name, err)
		}
		p, err := ParsePlayer(data)
		if err != nil {
			return nil, fmt.Errorf("player %s: %w", name, err)
		}
		if p.Name == "" {
			p.Name = strings.TrimSuffix(name, filepath.Ext(name))
		}
		players = append(players, p)
	}
	return players, nil
}

// ParsePlayer decodes one player definition.
func ParsePlayer(data []byte) (game.PlayerDef, error) {
	var pf playerFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return game.PlayerDef{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if len(pf.StartingPos) != 2 {
		return game.PlayerDef{}, fmt.Errorf("%w: starting_pos needs [col, row], got %v", ErrMalformed, pf.StartingPos)
	}

	def := game.PlayerDef{
		Name:           pf.Name,
		Keybindings:    make(map[string]game.Direction, len(pf.Keybindings)),
		Start:          game.Cell{Col: pf.StartingPos[0], Row: pf.StartingPos[1]},
		StartLength:    pf.StartingLength,
		StartDirection: game.Right,
	}
	if def.StartLength < 1 {
		def.StartLength = 1
	}
	for key, dir := range pf.Keybindings {
		d, err := game.ParseDirection(dir)
		if err != nil {
			return game.PlayerDef{}, fmt.Errorf("%w: keybinding %q: %v", ErrMalformed, key, err)
		}
		def.Keybindings[strings.ToUpper(key)] = d
	}
	if pf.StartingDirection != "" {
		d, err := game.ParseDirection(pf.StartingDirection)
		if err != nil {
			return game.PlayerDef{}, fmt.Errorf("%w: starting_direction: %v", ErrMalformed, err)
		}
		def.StartDirection = d
	}
	return def, nil
}
