// Package logger provides structured logging setup for PaperDesk.
package logger

import (
	"log/slog"
	"os"
	"strings"

	"github.com/Strob0t/PaperDesk/internal/config"
)

const (
	asyncBufferSize = 10000
	asyncWorkers    = 4
)

// New creates a *slog.Logger from the given Logging config.
// Output is JSON to stdout with a "service" attribute on every record.
// Request and workflow IDs stored in the context are added to each record.
// The returned Closer must be called on shutdown to flush the async buffer.
func New(cfg config.Logging) (*slog.Logger, Closer) {
	level := parseLevel(cfg.Level)

	var handler slog.Handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})

	var closer Closer = nopCloser{}
	if cfg.Async {
		ah := NewAsyncHandler(handler, asyncBufferSize, asyncWorkers)
		handler = ah
		closer = ah
	}
	// Context attributes are read here, before a record leaves the caller.
	handler = &ContextHandler{inner: handler}

	return slog.New(handler).With("service", cfg.Service), closer
}

// parseLevel converts a string log level to slog.Level.
func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
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
