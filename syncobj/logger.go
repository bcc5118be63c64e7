package syncobj

import (
	"log/slog"

	"github.com/gogpu/waysync"
)

// slogger returns the engine's logger. The adapter shares the root
// package's configuration (waysync.SetLogger) instead of carrying its own.
func slogger() *slog.Logger { return waysync.Logger() }
