// Package logging configures zerolog for the slate CLI and tracks whether
// any error-level event fired during a run. Individual failures (one vendor
// entity failing to extract, a skipped file) are logged and recovered, but
// the process must still exit non-zero when any of them occurred; the
// Tracker hook is how the root command finds out.
package logging

import (
	"fmt"
	"io"
	"strings"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// Config holds logging configuration.
type Config struct {
	// Level is the minimum log level: debug, info, warn, error.
	Level string
	// Format is the output format: console or json.
	Format string
	// Output is the log writer, typically os.Stderr.
	Output io.Writer
}

// Tracker is a zerolog hook that remembers whether any event at error level
// or above was emitted.
type Tracker struct {
	errors atomic.Int64
}

// Run implements zerolog.Hook.
func (t *Tracker) Run(_ *zerolog.Event, level zerolog.Level, _ string) {
	if level >= zerolog.ErrorLevel && level < zerolog.NoLevel {
		t.errors.Add(1)
	}
}

// Errored reports whether any error was logged during the run.
func (t *Tracker) Errored() bool { return t.errors.Load() > 0 }

// Count returns the number of error events logged.
func (t *Tracker) Count() int64 { return t.errors.Load() }

// New builds the run logger with the tracker hook attached.
func New(cfg Config, tracker *Tracker) (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	out := cfg.Output
	if strings.EqualFold(cfg.Format, "console") {
		out = zerolog.ConsoleWriter{Out: cfg.Output, TimeFormat: "15:04:05"}
	}

	logger := zerolog.New(out).Level(level).With().Timestamp().Logger()
	if tracker != nil {
		logger = logger.Hook(tracker)
	}
	return logger, nil
}
