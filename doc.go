// Package waysync implements the commit and synchronization core of a
// display-server protocol: the machinery that decides, for every
// client-submitted frame, when that frame's buffer is safe to read and when
// its state becomes the visible state of a surface.
//
// # Surfaces and State
//
// A [Surface] carries two [SurfaceState] slots. Pending accumulates client
// mutations ([Surface.Attach], [Surface.Damage], [Surface.SetScale], ...)
// between commits; current is the last fully-applied, visible state.
// [Surface.Commit] snapshots pending and decides how the snapshot reaches
// current:
//
//   - explicit sync: the snapshot waits on its acquire point
//     (timeline.Point), attached by the syncobj package before the commit
//     is finalized
//   - synchronous buffers (shm): applied in the same turn, with the pixel
//     content finalized into the surface's compositor-side texture
//   - implicit sync: asynchronous buffers without explicit points wait on
//     the buffer's exported sync file through the event loop; if no handle
//     can be obtained the state is applied immediately as a degraded path
//
// # Ordering
//
// Snapshots that cannot apply immediately queue in submission order, and
// application order always equals submission order: each readiness callback
// drains the queue from the front up to its own entry, so a later commit
// whose fence signals first still waits for every earlier one.
//
// # Roles
//
// A surface acquires at most one role ([Surface.SetRole]). Subsurfaces in
// synchronized mode have their commit visibility suppressed until the
// parent commits; cursor surfaces keep a CPU pixel mirror of their latest
// synchronous content.
//
// # Concurrency
//
// The engine is loop-affine: every Surface and Client method, and every
// readiness callback, must run on one eventloop.Loop goroutine. Waiting
// never blocks; it registers a callback and returns. GPU fences enter the
// same discipline through timeline.FenceTimeline, which posts its signals
// back to the loop.
//
// waysync produces no log output by default; call [SetLogger] to enable it.
package waysync
