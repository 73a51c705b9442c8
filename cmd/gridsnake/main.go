package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/brensch/gridsnake/config"
	"github.com/brensch/gridsnake/engine"
	"github.com/brensch/gridsnake/feed"
	"github.com/brensch/gridsnake/logging"
	"github.com/brensch/gridsnake/store"
	"github.com/brensch/gridsnake/tui"
)

func main() {
	configPath := flag.String("config", getEnvOrDefault("GRIDSNAKE_CONFIG", "config.toml"), "Settings file (TOML)")
	playersDir := flag.String("players", getEnvOrDefault("GRIDSNAKE_PLAYERS", "players"), "Directory of player definitions (*.yml)")
	wallsPath := flag.String("walls", getEnvOrDefault("GRIDSNAKE_WALLS", ""), "Wall layout CSV (defaults to WALLS_MAP from the settings)")
	replayDir := flag.String("replay-dir", getEnvOrDefault("REPLAY_DIR", ""), "Write a parquet replay into this directory")
	feedAddr := flag.String("feed-addr", getEnvOrDefault("FEED_ADDR", ""), "Serve a spectator websocket on this address, e.g. :8080")
	headless := flag.Bool("headless", getEnvBoolOrDefault("HEADLESS", false), "Run without the terminal UI; keys are read from stdin, one per word")
	logFile := flag.String("log-file", getEnvOrDefault("LOG_FILE", ""), "Write logs here (the terminal UI defaults to gridsnake.log)")
	logFormat := flag.String("log-format", getEnvOrDefault("LOG_FORMAT", ""), "pretty, json or text (overrides LOG_FORMAT in settings)")
	logLevel := flag.String("log-level", getEnvOrDefault("LOG_LEVEL", ""), "debug, info, warn or error (overrides LOG_LEVEL in settings)")
	seed := flag.Int64("seed", getEnvInt64OrDefault("SEED", 0), "Food RNG seed; 0 uses the settings value")

	flag.Parse()

	settings, err := config.Load(*configPath, slog.Default())
	if err != nil {
		log.Fatalf("Failed to load settings: %v", err)
	}
	if *logFormat != "" {
		settings.LogFormat = *logFormat
	}
	if *logLevel != "" {
		settings.LogLevel = *logLevel
	}
	if *seed != 0 {
		settings.Seed = *seed
	}

	logOut := io.Writer(os.Stderr)
	if *logFile == "" && !*headless {
		*logFile = "gridsnake.log"
	}
	if *logFile != "" {
		f, err := os.OpenFile(*logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			log.Fatalf("Failed to open log file: %v", err)
		}
		defer f.Close()
		logOut = f
	}
	logger, err := logging.New(logOut, settings.LogFormat, settings.LogLevel)
	if err != nil {
		log.Printf("Logging: %v (using defaults)", err)
	}
	slog.SetDefault(logger)

	grid := settings.Grid()
	if *wallsPath == "" {
		*wallsPath = settings.WallsMap
	}
	walls, err := config.LoadWalls(*wallsPath, grid)
	if err != nil {
		log.Fatalf("Failed to load walls: %v", err)
	}
	players, err := config.LoadPlayers(*playersDir)
	if err != nil {
		log.Fatalf("Failed to load players: %v", err)
	}

	opts := []engine.Option{engine.WithLogger(logger)}

	var recorder *store.Recorder
	if *replayDir != "" {
		recorder, err = store.NewRecorder(*replayDir, logger)
		if err != nil {
			log.Fatalf("Failed to create replay recorder: %v", err)
		}
		opts = append(opts, engine.WithObserver(recorder))
	}

	var hub *feed.Hub
	var srv *http.Server
	if *feedAddr != "" {
		hub = feed.NewHub(logger)
		opts = append(opts, engine.WithObserver(hub))
		mux := http.NewServeMux()
		mux.Handle("/ws", hub)
		srv = &http.Server{Addr: *feedAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("spectator feed stopped", "addr", *feedAddr, "err", err)
			}
		}()
		logger.Info("spectator feed listening", "addr", *feedAddr, "path", "/ws")
	}

	sess, err := engine.NewSession(settings.Engine(), grid, walls, players, opts...)
	if err != nil {
		log.Fatalf("Failed to start session: %v", err)
	}

	if *headless {
		err = runHeadless(sess)
	} else {
		err = runTUI(sess, settings.BackgroundColor)
	}
	if err != nil {
		logger.Error("session ended with error", "err", err)
	}

	if recorder != nil {
		if path, err := recorder.Close(); err != nil {
			log.Printf("Failed to write replay: %v", err)
		} else if path != "" {
			fmt.Fprintf(os.Stderr, "Replay written to %s\n", path)
		}
	}
	if hub != nil {
		hub.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		_ = srv.Shutdown(ctx)
		cancel()
	}

	snap := sess.Snapshot()
	fmt.Fprintf(os.Stderr, "Session %s finished: tick=%d status=%s snakes=%d\n", sess.ID(), snap.Tick, snap.Status, len(snap.Snakes))
}

func runTUI(sess *engine.Session, background string) error {
	p := tea.NewProgram(tui.New(sess, background), tea.WithAltScreen())
	_, err := p.Run()
	// SIGTERM or a killed program still counts as a quit.
	if !sess.Done() {
		sess.Step(engine.Input{Quit: true})
	}
	return err
}

func runHeadless(sess *engine.Session) error {
	var queue engine.InputQueue

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		<-sigChan
		queue.Quit()
	}()

	go func() {
		sc := bufio.NewScanner(os.Stdin)
		for sc.Scan() {
			for _, key := range strings.Fields(sc.Text()) {
				queue.PushKey(key)
			}
		}
	}()

	return sess.Run(context.Background(), &queue)
}

// Environment variable helpers
func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt64OrDefault(key string, defaultVal int64) int64 {
	if val := os.Getenv(key); val != "" {
		var i int64
		if _, err := fmt.Sscanf(val, "%d", &i); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvBoolOrDefault(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		return val == "true" || val == "1" || val == "yes"
	}
	return defaultVal
}
