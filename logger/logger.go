// Package logger builds the structured loggers used by the focuser binaries.
//
// Two output formats are supported: "console", a colorized human-readable
// format for interactive use, and "json", one object per line with the time
// under the key "ts".
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/phsym/console-slog"
)

const (
	// FormatConsole is colorized, human-readable output
	FormatConsole = "console"

	// FormatJSON is one JSON object per line
	FormatJSON = "json"
)

// Options configures New
type Options struct {
	// Level is the minimum enabled level.  Keeping the LevelVar lets the
	// caller change the level of a running logger.  Nil means info.
	Level *slog.LevelVar

	// Format is FormatConsole or FormatJSON, FormatConsole if empty
	Format string

	// Output is where records are written, os.Stderr if nil
	Output io.Writer

	// AddSource includes the file:line of the log call
	AddSource bool
}

// New returns a logger writing in the given format
func New(opts Options) (*slog.Logger, error) {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	var level slog.Leveler = slog.LevelInfo
	if opts.Level != nil {
		level = opts.Level
	}

	var handler slog.Handler
	switch strings.ToLower(opts.Format) {
	case "", FormatConsole:
		handler = console.NewHandler(out, &console.HandlerOptions{
			AddSource: opts.AddSource,
			Level:     level,
		})
	case FormatJSON:
		handler = slog.NewJSONHandler(out, &slog.HandlerOptions{
			AddSource: opts.AddSource,
			Level:     level,
			ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
				if a.Key == slog.TimeKey && len(groups) == 0 {
					a.Key = "ts"
				}
				return a
			},
		})
	default:
		return nil, fmt.Errorf("unknown log format %q, want %q or %q", opts.Format, FormatConsole, FormatJSON)
	}
	return slog.New(handler), nil
}

// ParseLevel converts debug, info, warn, or error (any case) to a slog.Level
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if s == "" {
		return slog.LevelInfo, nil
	}
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
	return l, nil
}

// Discard returns a logger that drops every record
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
