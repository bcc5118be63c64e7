package waysync

import "github.com/gogpu/waysync/config"

// tuning holds the engine knobs shared by every surface. Read on the loop
// goroutine without locking; Configure before surfaces start committing.
var tuning struct {
	maxQueuedCommits      int
	allowImplicitFallback bool
	cursorMirrorPixels    bool
}

func init() {
	Configure(config.Default())
}

// Configure applies cfg's engine knobs.
func Configure(cfg *config.Config) {
	tuning.maxQueuedCommits = cfg.MaxQueuedCommits
	tuning.allowImplicitFallback = cfg.AllowImplicitFallback
	tuning.cursorMirrorPixels = cfg.CursorMirrorPixels
}
