// Package logging wraps decred/slog the way the teacher's
// bisonbotkit/logging.LogBackend does: one process-wide backend handing out
// a named, independently-leveled slog.Logger per subsystem. Unlike the
// teacher's wrapper this one has no bisonrelay-specific bits, since that
// package is only reachable through a local replace directive and is not an
// independently fetchable module.
package logging

import (
	"io"
	"sync"

	"github.com/decred/slog"
)

// Backend creates subsystem loggers against a single underlying writer.
type Backend struct {
	backend *slog.Backend
	mu      sync.Mutex
	level   slog.Level
}

// NewBackend creates a logging backend writing to w at the given default level.
func NewBackend(w io.Writer, level slog.Level) *Backend {
	return &Backend{
		backend: slog.NewBackend(w),
		level:   level,
	}
}

// Logger returns a named logger (e.g. "TABLE", "SESSION", "DISPATCH")
// sharing this backend's output and default level.
func (b *Backend) Logger(subsystem string) slog.Logger {
	b.mu.Lock()
	defer b.mu.Unlock()
	l := b.backend.Logger(subsystem)
	l.SetLevel(b.level)
	return l
}

// SetLevel changes the default level for loggers created after this call.
// Existing loggers are unaffected, matching decred/slog's per-logger levels.
func (b *Backend) SetLevel(level slog.Level) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.level = level
}
