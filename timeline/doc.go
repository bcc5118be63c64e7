// Package timeline implements explicit-synchronization timelines: 64-bit
// monotonic counters that GPU work, kernel sync objects, and compositor
// state changes rendezvous on.
//
// A Timeline is the software counterpart of a DRM syncobj timeline. Producers
// advance it with Signal; consumers register callbacks with AddWaiter that
// fire exactly once when the signaled value reaches theirs. Nothing ever
// blocks: a waiter whose value is already reached fires synchronously during
// registration, and everything else fires during the Signal call that
// satisfies it.
//
// # Sync Points
//
// A Point pins one value on one timeline, in either the acquire role (content
// is ready to read once the point signals) or the release role (the consumer
// signals it when it is done with the content). Points are minted against a
// PointSource so that protocol-level teardown can expire every outstanding
// point at once; operations on an expired point fail softly and log instead
// of touching a dead timeline.
//
// # Releasers
//
// A Releaser is the one guaranteed producer of a release point's signal.
// Each point hands out at most one; Release fires the signal exactly once
// and Drop disarms it when the buffer never reached the consumer.
//
// # Pollable Exports
//
// ExportPoint materializes a point as a file descriptor that becomes
// readable when the point signals, the library's stand-in for a kernel
// sync_file. Exports are Linux-only (eventfd underneath).
//
// # GPU Fences
//
// FenceTimeline adapts a hal fence so that device-side completion feeds the
// same waiter machinery, with signals delivered back through the caller's
// event loop. Build with the nogpu tag to drop the GPU dependency.
package timeline
