// Package config loads the session bootstrap inputs: TOML settings, YAML
// player definitions and the CSV wall layout.
//
// Anything missing falls back to a default. Only a file that cannot be
// parsed, or a value that is present but out of range, is an error.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/go-viper/mapstructure/v2"
	"github.com/pelletier/go-toml/v2"

	"github.com/brensch/gridsnake/engine"
	"github.com/brensch/gridsnake/game"
)

// ErrMalformed marks a bootstrap file that cannot be used.
var ErrMalformed = errors.New("malformed definition")

// Settings mirrors the keys of the settings file.
type Settings struct {
	ScreenSizeX int `mapstructure:"SCREEN_SIZE_X"`
	ScreenSizeY int `mapstructure:"SCREEN_SIZE_Y"`
	GridSizeX   int `mapstructure:"SNAKE_GRID_SIZE_X"`
	GridSizeY   int `mapstructure:"SNAKE_GRID_SIZE_Y"`

	SnakeTextures string `mapstructure:"SNAKE_DEFAULT_TEXTURES"`
	FoodTextures  string `mapstructure:"FOOD_DEFAULT_TEXTURES"`
	WallsTextures string `mapstructure:"WALLS_DEFAULT_TEXTURES"`

	InitialApples      int     `mapstructure:"INITIAL_APPLES"`
	DefaultApplesPower int     `mapstructure:"DEFAULT_APPLES_POWER"`
	PauseKey           string  `mapstructure:"PAUSE_KEY"`
	ExitKey            string  `mapstructure:"EXIT_KEY"`
	TickPerSecond      float64 `mapstructure:"TICK_PER_SECOND"`
	IdleTickPerSecond  float64 `mapstructure:"IDLE_TICK_PER_SECOND"`
	WallsMap           string  `mapstructure:"WALLS_MAP"`
	BackgroundColor    string  `mapstructure:"BACKGROUND_COLOR"`
	Seed               int64   `mapstructure:"SEED"`

	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogFormat string `mapstructure:"LOG_FORMAT"`
}

func Default() Settings {
	return Settings{
		ScreenSizeX:        800,
		ScreenSizeY:        800,
		GridSizeX:          10,
		GridSizeY:          10,
		SnakeTextures:      "default.png",
		FoodTextures:       "default.png",
		WallsTextures:      "default.png",
		InitialApples:      2,
		DefaultApplesPower: 1,
		PauseKey:           "SPACE",
		ExitKey:            "ESCAPE",
		TickPerSecond:      2,
		IdleTickPerSecond:  60,
		WallsMap:           "default.csv",
		BackgroundColor:    "#eeeeee",
		LogLevel:           "info",
		LogFormat:          "pretty",
	}
}

// Load reads settings from path. A missing file is not an error: the
// defaults are returned and a notice is logged.
func Load(path string, logger *slog.Logger) (Settings, error) {
	if logger == nil {
		logger = slog.Default()
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		logger.Info("config file not found, using default settings", "path", path)
		return Default(), nil
	}
	if err != nil {
		return Settings{}, fmt.Errorf("read config: %w", err)
	}

	s, unused, err := Parse(data)
	if err != nil {
		return Settings{}, fmt.Errorf("config %s: %w", path, err)
	}
	if len(unused) > 0 {
		logger.Warn("unknown config keys ignored", "path", path, "keys", unused)
	}
	return s, nil
}

// Parse decodes TOML settings over the defaults. It also returns the keys
// it did not recognise.
func Parse(data []byte) (Settings, []string, error) {
	raw := map[string]any{}
	if err := toml.Unmarshal(data, &raw); err != nil {
		return Settings{}, nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	s := Default()
	var md mapstructure.Metadata
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &s,
		Metadata:         &md,
		WeaklyTypedInput: true,
		TagName:          "mapstructure",
	})
	if err != nil {
		return Settings{}, nil, err
	}
	if err := dec.Decode(raw); err != nil {
		return Settings{}, nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if err := s.Validate(); err != nil {
		return Settings{}, nil, err
	}
	return s, md.Unused, nil
}

func (s Settings) Validate() error {
	switch {
	case s.ScreenSizeX <= 0 || s.ScreenSizeY <= 0:
		return fmt.Errorf("%w: screen size must be positive, got %dx%d", ErrMalformed, s.ScreenSizeX, s.ScreenSizeY)
	case s.GridSizeX <= 0 || s.GridSizeY <= 0:
		return fmt.Errorf("%w: grid size must be positive, got %dx%d", ErrMalformed, s.GridSizeX, s.GridSizeY)
	case s.TickPerSecond <= 0:
		return fmt.Errorf("%w: TICK_PER_SECOND must be positive, got %v", ErrMalformed, s.TickPerSecond)
	case s.IdleTickPerSecond <= 0:
		return fmt.Errorf("%w: IDLE_TICK_PER_SECOND must be positive, got %v", ErrMalformed, s.IdleTickPerSecond)
	case s.InitialApples < 0:
		return fmt.Errorf("%w: INITIAL_APPLES must not be negative, got %d", ErrMalformed, s.InitialApples)
	case s.DefaultApplesPower <= 0:
		return fmt.Errorf("%w: DEFAULT_APPLES_POWER must be positive, got %d", ErrMalformed, s.DefaultApplesPower)
	}
	return nil
}

func (s Settings) Grid() game.GridSpace {
	return game.NewGridSpace(s.GridSizeX, s.GridSizeY, s.ScreenSizeX, s.ScreenSizeY)
}

func (s Settings) Engine() engine.Config {
	return engine.Config{
		TickRate:    s.TickPerSecond,
		IdleRate:    s.IdleTickPerSecond,
		InitialFood: s.InitialApples,
		FoodPower:   s.DefaultApplesPower,
		Seed:        s.Seed,
		PauseKey:    s.PauseKey,
		ExitKey:     s.ExitKey,
	}
}
