// Package log wraps zerolog with a small per-function logger surface.
// Handlers obtain a logger via WithFunc so every line carries the
// originating function name.
package log

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	mu   sync.RWMutex
	root = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).
		With().Timestamp().Logger().Level(zerolog.InfoLevel)
)

// Setup configures the global logger. Unknown levels fall back to info.
func Setup(level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	mu.Lock()
	root = root.Level(lvl)
	mu.Unlock()
}

// Logger is a named logger bound to one function or component.
type Logger struct {
	l zerolog.Logger
}

// WithFunc returns a Logger tagged with the given function name.
func WithFunc(fn string) Logger {
	mu.RLock()
	defer mu.RUnlock()
	return Logger{l: root.With().Str("func", fn).Logger()}
}

func (lg Logger) Debugf(_ context.Context, format string, args ...any) {
	lg.l.Debug().Msgf(format, args...)
}

func (lg Logger) Info(_ context.Context, msg string) {
	lg.l.Info().Msg(msg)
}

func (lg Logger) Infof(_ context.Context, format string, args ...any) {
	lg.l.Info().Msgf(format, args...)
}

func (lg Logger) Warnf(_ context.Context, format string, args ...any) {
	lg.l.Warn().Msgf(format, args...)
}

func (lg Logger) Errorf(_ context.Context, format string, args ...any) {
	lg.l.Error().Msgf(format, args...)
}
