package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"anonpair/backend/internal/config"
)

type Options struct {
	Level     string
	Format    string // "text" or "json"
	Component string
	Source    bool
	Output    io.Writer
}

var (
	mu   sync.RWMutex
	base *slog.Logger
	opts = Options{Level: "info", Format: "text"}
)

// InitFromConfig builds the global logger from the app config.
func InitFromConfig(c *config.Config) {
	if c == nil {
		Init(nil)
		return
	}
	Init(&Options{
		Level:     c.Log.Level,
		Format:    c.Log.Format,
		Component: c.Log.Component,
		Source:    c.Log.Source,
	})
}

// Init replaces the global logger. Safe to call more than once.
func Init(o *Options) {
	mu.Lock()
	defer mu.Unlock()

	if o != nil {
		opts = *o
	}
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}

	text := !strings.EqualFold(opts.Format, "json")
	hopts := &slog.HandlerOptions{
		Level:     ParseLevel(opts.Level),
		AddSource: opts.Source,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if text && a.Key == slog.TimeKey {
				return slog.String(slog.TimeKey, a.Value.Time().Format(time.DateTime))
			}
			return a
		},
	}

	var h slog.Handler
	if text {
		h = slog.NewTextHandler(out, hopts)
	} else {
		h = slog.NewJSONHandler(out, hopts)
	}

	l := slog.New(h)
	if opts.Component != "" {
		l = l.With("component", opts.Component)
	}
	base = l
}

// L returns the global logger, initializing a default one on first use.
func L() *slog.Logger {
	mu.RLock()
	l := base
	mu.RUnlock()
	if l != nil {
		return l
	}

	Init(nil)
	mu.RLock()
	defer mu.RUnlock()
	return base
}

func With(args ...any) *slog.Logger { return L().With(args...) }

func Debug(msg string, args ...any) { L().Debug(msg, args...) }
func Info(msg string, args ...any)  { L().Info(msg, args...) }
func Warn(msg string, args ...any)  { L().Warn(msg, args...) }
func Error(msg string, args ...any) { L().Error(msg, args...) }

func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
