// Package logging builds the process logger from config.LogConfig.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"

	"embedd/internal/config"
)

// New returns a zerolog logger writing to stderr and, when cfg.File is set,
// to a size-rotated file. The returned closer flushes and closes the file sink.
func New(cfg config.LogConfig) (zerolog.Logger, io.Closer, error) {
	return newWithStderr(cfg, os.Stderr)
}

func newWithStderr(cfg config.LogConfig, stderr io.Writer) (zerolog.Logger, io.Closer, error) {
	lvl, err := ParseLevel(cfg.Level)
	if err != nil {
		return zerolog.Nop(), nopCloser{}, err
	}

	var console io.Writer = stderr
	switch cfg.Format {
	case "", "console":
		console = zerolog.ConsoleWriter{Out: stderr, TimeFormat: time.RFC3339}
	case "json":
	default:
		return zerolog.Nop(), nopCloser{}, fmt.Errorf("unknown log format: %s", cfg.Format)
	}

	var out io.Writer = console
	var closer io.Closer = nopCloser{}
	if strings.TrimSpace(cfg.File) != "" {
		// The file sink is always JSON so it stays machine-readable.
		rot := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    positive(cfg.MaxSizeMB, config.DefaultLogMaxSizeMB),
			MaxBackups: positive(cfg.MaxBackups, config.DefaultLogMaxBackups),
		}
		out = zerolog.MultiLevelWriter(console, rot)
		closer = rot
	}

	l := zerolog.New(out).Level(lvl).With().Timestamp().Str("service", "embedd").Logger()
	return l, closer, nil
}

// ParseLevel maps a level name to a zerolog level. Empty means info.
func ParseLevel(s string) (zerolog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return zerolog.InfoLevel, nil
	case "off", "disabled":
		return zerolog.Disabled, nil
	default:
		l, err := zerolog.ParseLevel(strings.ToLower(s))
		if err != nil {
			return zerolog.NoLevel, fmt.Errorf("invalid log level %q: %w", s, err)
		}
		return l, nil
	}
}

func positive(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
