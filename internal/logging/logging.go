// Package logging configures log/slog for the screencast binaries.
//
// Each component asks for a module logger with For("capture"), For("recording"), ...
// The global level applies unless the module has its own entry in Config.Modules.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Config selects the level and output format.
type Config struct {
	Level   string            `toml:"level"`
	Format  string            `toml:"format"`
	Modules map[string]string `toml:"modules"`
}

var (
	mu           sync.RWMutex
	cfg          Config
	out          io.Writer = os.Stderr
	globalLevel            = &slog.LevelVar{}
	moduleLevels           = make(map[string]*slog.LevelVar)
	moduleLogger           = make(map[string]*slog.Logger)
)

// Setup installs the default slog logger and refreshes module loggers.
func Setup(c Config) {
	SetupWriter(c, os.Stderr)
}

// SetupWriter is Setup with an explicit destination.
func SetupWriter(c Config, w io.Writer) {
	mu.Lock()
	defer mu.Unlock()

	cfg = c
	out = w
	globalLevel.Set(ParseLevel(c.Level))

	for module, lv := range moduleLevels {
		lv.Set(levelFor(module))
		moduleLogger[module] = slog.New(newHandler(lv)).With("module", module)
	}
	slog.SetDefault(slog.New(newHandler(globalLevel)))
}

// For returns the logger for a module, creating it on first use.
func For(module string) *slog.Logger {
	mu.RLock()
	if l, ok := moduleLogger[module]; ok {
		mu.RUnlock()
		return l
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if l, ok := moduleLogger[module]; ok {
		return l
	}
	lv := &slog.LevelVar{}
	lv.Set(levelFor(module))
	moduleLevels[module] = lv
	l := slog.New(newHandler(lv)).With("module", module)
	moduleLogger[module] = l
	return l
}

// Discard returns a logger that drops everything. Used by tests.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

// ParseLevel maps "debug", "info", "warn" and "error" to slog levels; anything else is info.
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

// levelFor must be called with mu held.
func levelFor(module string) slog.Level {
	if s, ok := cfg.Modules[module]; ok && s != "" {
		return ParseLevel(s)
	}
	return ParseLevel(cfg.Level)
}

// newHandler must be called with mu held.
func newHandler(level slog.Leveler) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.NewJSONHandler(out, opts)
	}
	return slog.NewTextHandler(out, opts)
}
