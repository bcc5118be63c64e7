package waysync

import "github.com/gogpu/waysync/internal/handle"

// ListenerID identifies one registered listener on a Signal. The zero
// value is never issued.
type ListenerID struct {
	h handle.Handle
}

// Valid reports whether the ID could have been produced by Register.
func (id ListenerID) Valid() bool { return id.h.Valid() }

// Signal is a loop-affine listener list for the surface lifecycle moments
// the engine emits. Registration returns an ID so a collaborator can drop
// its listener when it goes away.
type Signal struct {
	listeners handle.Map[func()]
}

// Register adds fn to the signal. A nil fn is ignored and yields an
// invalid ID.
func (s *Signal) Register(fn func()) ListenerID {
	if fn == nil {
		return ListenerID{}
	}
	return ListenerID{h: s.listeners.Insert(fn)}
}

// Unregister removes a listener. Stale IDs miss harmlessly.
func (s *Signal) Unregister(id ListenerID) bool {
	return s.listeners.Delete(id.h)
}

// emit invokes the listeners registered at the time of the call.
// Listeners may register or unregister during emission; additions are not
// seen by the running emit.
func (s *Signal) emit() {
	if s.listeners.Len() == 0 {
		return
	}
	fns := make([]func(), 0, s.listeners.Len())
	s.listeners.Range(func(_ handle.Handle, fn func()) bool {
		fns = append(fns, fn)
		return true
	})
	for _, fn := range fns {
		fn()
	}
}

// Events groups a surface's lifecycle signals.
type Events struct {
	// PreCommit fires inside Commit after state derivation and before
	// the wait strategy is chosen. The syncobj adapter validates and
	// attaches explicit sync points here, and may reject the commit.
	PreCommit Signal

	// Commit fires when a state generation becomes current and visible.
	// Synchronized subsurfaces do not fire it on their own applies; the
	// parent's commit does.
	Commit Signal

	// Destroy fires once when the surface is torn down.
	Destroy Signal
}
