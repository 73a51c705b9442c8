// Package logging builds the slog handlers used by the session binaries.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// ParseLevel maps debug, info, warn and error (any case) to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
}

// NewHandler returns a handler for format "pretty", "json" or "text".
func NewHandler(w io.Writer, format string, level slog.Level) (slog.Handler, error) {
	opts := &slog.HandlerOptions{Level: level}
	switch strings.ToLower(format) {
	case "", "pretty":
		return NewPrettyJSONHandler(w, opts), nil
	case "json":
		return slog.NewJSONHandler(w, opts), nil
	case "text":
		return slog.NewTextHandler(w, opts), nil
	}
	return nil, fmt.Errorf("unknown log format %q", format)
}

// New is NewHandler wrapped in a logger, falling back to pretty/info on bad input.
func New(w io.Writer, format, level string) (*slog.Logger, error) {
	lvl, lerr := ParseLevel(level)
	h, herr := NewHandler(w, format, lvl)
	if herr != nil {
		h = NewPrettyJSONHandler(w, &slog.HandlerOptions{Level: lvl})
	}
	if lerr != nil {
		return slog.New(h), lerr
	}
	return slog.New(h), herr
}
