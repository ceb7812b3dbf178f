package observability

import (
	"log/slog"
	"os"
)

// process-wide logger, JSON to stdout.
var logger = slog.New(slog.NewJSONHandler(os.Stdout, nil))

func Logger() *slog.Logger {
	return logger
}

// WithComponent returns a logger tagged with the owning component name.
func WithComponent(name string) *slog.Logger {
	return logger.With("component", name)
}

// SetLogger swaps the process logger. Intended for tests that want to
// capture or silence output.
func SetLogger(l *slog.Logger) {
	logger = l
}
