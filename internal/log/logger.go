// Package log is the slog wrapper shared by every billtrack binary. A Logger
// always carries a component attribute naming the subsystem that logs.
package log

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

type Logger struct {
	*slog.Logger
	base      *slog.Logger
	component string
}

type Config struct {
	Level     slog.Level
	Component string
	Writer    io.Writer
	// JSON selects slog's JSON handler; text is the default.
	JSON bool
}

func DefaultConfig() Config {
	return Config{
		Level:     slog.LevelInfo,
		Component: ComponentApp,
		Writer:    os.Stdout,
	}
}

// ParseLevel maps LOG_LEVEL values to slog levels, defaulting to Info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

func New(cfg Config) *Logger {
	w := cfg.Writer
	if w == nil {
		w = os.Stdout
	}
	opts := &slog.HandlerOptions{Level: cfg.Level}
	var h slog.Handler = slog.NewTextHandler(w, opts)
	if cfg.JSON {
		h = slog.NewJSONHandler(w, opts)
	}
	return wrap(slog.New(h), cfg.Component)
}

// NewText creates a text logger writing to w.
func NewText(w io.Writer, level slog.Level, component string) *Logger {
	return New(Config{Level: level, Component: component, Writer: w})
}

func wrap(base *slog.Logger, component string) *Logger {
	if component == "" {
		component = "unknown"
	}
	return &Logger{
		Logger:    base.With(FieldComponent, component),
		base:      base,
		component: component,
	}
}

// With returns a logger carrying args on every record. The component is kept.
func (l *Logger) With(args ...any) *Logger {
	return wrap(l.base.With(args...), l.component)
}

// WithComponent returns a logger that reports component instead of the
// current one.
func (l *Logger) WithComponent(component string) *Logger {
	return wrap(l.base, component)
}

func (l *Logger) Component() string { return l.component }

// SetDefault makes l the slog default, so packages logging through slog
// directly share its handler.
func SetDefault(l *Logger) {
	slog.SetDefault(l.Logger)
}
