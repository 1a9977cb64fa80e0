package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/aretw0/lettergraph/pkg/redact"
)

// Options configures NewWithOptions.
type Options struct {
	Level slog.Level
	// JSON selects the JSON handler; the default is text.
	JSON bool
	// Redactor masks attributes whose key looks like member PII.
	Redactor *redact.Redactor
	// Output defaults to os.Stderr.
	Output io.Writer
}

// New creates a configured application logger.
// It writes to Stderr (to separate from Stdout letters/JSON-RPC).
// It standardizes common keys (e.g., "error" -> "err").
func New(level slog.Level) *slog.Logger {
	return NewWithOptions(Options{Level: level})
}

// NewWithOptions creates a logger from opts.
func NewWithOptions(opts Options) *slog.Logger {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	handlerOpts := &slog.HandlerOptions{
		Level: opts.Level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			// Standardize 'error' key to 'err'
			if a.Key == "error" {
				a.Key = "err"
			}
			if opts.Redactor != nil {
				return opts.Redactor.ReplaceAttr(groups, a)
			}
			return a
		},
	}
	if opts.JSON {
		return slog.New(slog.NewJSONHandler(out, handlerOpts))
	}
	return slog.New(slog.NewTextHandler(out, handlerOpts))
}

// ParseLevel maps debug, info, warn and error to a level. Anything else is info.
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

// NewNop returns a no-op logger.
func NewNop() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
