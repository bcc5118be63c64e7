// Package syncobj is the explicit-synchronization protocol adapter: it
// binds DRM syncobj timelines and per-surface acquire/release points onto
// the commit engine.
//
// # Timelines
//
// [ImportTimeline] wraps a client-supplied syncobj fd into a
// [TimelineResource]. The resource is a [timeline.PointSource]: points
// minted from it expire the instant the resource is destroyed, and every
// waiter on the backing timeline drops with it.
//
// # Surface adapters
//
// [Attach] hangs a [SurfaceSync] off a surface. The adapter stages
// acquire and release points between protocol requests and the next
// commit, then consumes them from the surface's precommit hook: it
// validates the pair, attaches them to the staged buffer and creates the
// release trigger. A failed validation rejects the commit and terminates
// the client with the matching protocol error.
//
// # Error codes
//
// The Code constants carry the protocol's wire values. Codes are scoped
// to the interface that raises them, so a manager code and a surface code
// may share a value.
//
// The package is loop-affine like the engine: all calls belong on the
// surface's event loop goroutine.
package syncobj
