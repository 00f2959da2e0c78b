// Package logging builds the zerolog loggers used across the module.
package logging

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"
)

// Config selects the level and output format. The zero value logs info and
// above as JSON.
type Config struct {
	Level string `yaml:"level"`
	// Format is "json" or "console".
	Format string `yaml:"format"`
}

// New creates a logger writing to out.
func New(cfg Config, out io.Writer) (zerolog.Logger, error) {
	level := zerolog.InfoLevel
	if cfg.Level != "" {
		var err error
		level, err = zerolog.ParseLevel(strings.ToLower(cfg.Level))
		if err != nil {
			return zerolog.Nop(), fmt.Errorf("log level: %w", err)
		}
	}
	switch cfg.Format {
	case "", "json":
	case "console":
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	default:
		return zerolog.Nop(), fmt.Errorf("unknown log format %q", cfg.Format)
	}
	return zerolog.New(out).Level(level).With().Timestamp().Logger(), nil
}

// Badger adapts l to badger's logger, tagging entries with component=badger.
func Badger(l zerolog.Logger) badger.Logger {
	return badgerLogger{log: l.With().Str("component", "badger").Logger()}
}

type badgerLogger struct {
	log zerolog.Logger
}

// badger terminates its messages with a newline.
func (b badgerLogger) msg(e *zerolog.Event, format string, args []any) {
	e.Msg(strings.TrimSuffix(fmt.Sprintf(format, args...), "\n"))
}

func (b badgerLogger) Errorf(format string, args ...any)   { b.msg(b.log.Error(), format, args) }
func (b badgerLogger) Warningf(format string, args ...any) { b.msg(b.log.Warn(), format, args) }
func (b badgerLogger) Infof(format string, args ...any)    { b.msg(b.log.Info(), format, args) }
func (b badgerLogger) Debugf(format string, args ...any)   { b.msg(b.log.Debug(), format, args) }
