package waysync

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/gogpu/waysync/buffer"
	"github.com/gogpu/waysync/eventloop"
	"github.com/gogpu/waysync/timeline"
)

// nopHandler is a slog.Handler that silently discards all log records.
// The Enabled method returns false so the caller skips message formatting
// entirely, making disabled logging effectively zero-cost.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

// newNopLogger creates a logger that silently discards all output.
func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

// loggerPtr stores the active logger. Accessed atomically so that
// SetLogger can be called concurrently with logging from any goroutine.
var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	l := newNopLogger()
	loggerPtr.Store(l)
}

// SetLogger configures the logger for waysync and all its sub-packages.
// By default, waysync produces no log output. Call SetLogger to enable
// logging.
//
// SetLogger is safe for concurrent use: it stores the new logger atomically.
// Pass nil to disable logging (restore default silent behavior).
//
// Log levels used by waysync:
//   - [slog.LevelDebug]: queue and state transitions (enqueue, drain, discard)
//   - [slog.LevelInfo]: lifecycle events (surface created, client terminated)
//   - [slog.LevelWarn]: degraded paths (missing implicit fence, forced apply)
//   - [slog.LevelError]: invariant violations (expired-point use, double release)
//
// Example:
//
//	// Enable info-level logging to stderr:
//	waysync.SetLogger(slog.Default())
//
//	// Enable debug-level logging for full diagnostics:
//	waysync.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)

	// Propagate to the leaf packages so the whole pipeline shares one
	// configuration.
	timeline.SetLogger(l)
	buffer.SetLogger(l)
	eventloop.SetLogger(l)
}

// Logger returns the current logger used by waysync.
// Packages that import waysync (syncobj, cmd) call this to share the same
// logger configuration without introducing import cycles.
//
// Logger is safe for concurrent use.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}

// slogger is the package-internal accessor.
func slogger() *slog.Logger {
	return loggerPtr.Load()
}
