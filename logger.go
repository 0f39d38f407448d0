package shadegraph

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// nopHandler is a slog.Handler that silently discards all log records.
// Enabled returns false so callers skip message formatting entirely.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

// NopLogger returns a logger that silently discards all output.
func NopLogger() *slog.Logger { return slog.New(nopHandler{}) }

// loggerPtr stores the active logger. Accessed atomically so that
// SetLogger can be called concurrently with resolutions on any goroutine.
var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(NopLogger())
}

// SetLogger configures the logger for shadegraph and all its sub-packages.
// By default, shadegraph produces no log output.
//
// SetLogger is safe for concurrent use. Pass nil to restore the silent default.
// Components created before the call keep the logger they were built with.
//
// Log levels used by shadegraph:
//   - [slog.LevelDebug]: scan progress, cache hits, texture batch sizes
//   - [slog.LevelInfo]: lifecycle events (definitions registered)
//   - [slog.LevelWarn]: unknown node types, empty nodes, missing tiles
//   - [slog.LevelError]: node construction and texture load failures
//
// Example:
//
//	shadegraph.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = NopLogger()
	}
	loggerPtr.Store(l)
}

// Logger returns the current logger used by shadegraph.
// Sub-packages call this to share the same configuration without
// introducing import cycles.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}

// OrDefault returns l, or the package logger when l is nil.
func OrDefault(l *slog.Logger) *slog.Logger {
	if l != nil {
		return l
	}
	return Logger()
}
