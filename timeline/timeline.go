package timeline

import (
	"errors"
	"sync"
)

// Sentinel errors returned by timeline operations.
var (
	// ErrDestroyed is returned when operating on a destroyed timeline.
	ErrDestroyed = errors.New("timeline: timeline destroyed")

	// ErrInvalidFD is returned by Import when a file descriptor is negative.
	ErrInvalidFD = errors.New("timeline: invalid file descriptor")

	// ErrPointExpired is returned when operating on an expired sync point.
	ErrPointExpired = errors.New("timeline: sync point expired")
)

// WaitFlags modify how a waiter observes the timeline.
type WaitFlags uint32

const (
	// WaitForSubmit defers the waiter until the point's producer has
	// materialized on the timeline. Software timelines always know their
	// value, so the flag is accepted for contract parity with kernel
	// timelines and otherwise ignored.
	WaitForSubmit WaitFlags = 1 << iota
)

// WaiterID identifies a registered waiter for targeted removal.
// The zero WaiterID is never assigned; AddWaiter returns it when the
// waiter fired synchronously and there is nothing left to remove.
type WaiterID uint64

type waiter struct {
	id    WaiterID
	value uint64
	flags WaitFlags
	fn    func()
}

// export is a pollable handle for one point, pending its signal.
type export struct {
	value uint64
	fd    int
}

// Timeline is a monotonically increasing 64-bit sync counter.
//
// Waiters fire exactly once, in registration order, during the Signal call
// that reaches their value; a waiter registered at or below the current
// value fires synchronously inside AddWaiter. Destroy drops all pending
// waiters without invoking them.
//
// Timeline is safe for concurrent use. Waiter callbacks run outside the
// internal lock, so they may call back into the timeline freely.
type Timeline struct {
	mu        sync.Mutex
	value     uint64
	nextID    WaiterID
	waiters   []waiter
	exports   []export
	destroyed bool

	// Imported timelines carry the client's DRM device and syncobj fds.
	// deviceFD is borrowed; fd is owned and closed on Destroy.
	deviceFD int
	fd       int
}

// New creates a software timeline with a signaled value of zero.
func New() *Timeline {
	return &Timeline{nextID: 1, deviceFD: -1, fd: -1}
}

// Import wraps a client-supplied timeline fd for the DRM device deviceFD.
// Import takes ownership of fd and closes it on Destroy; deviceFD stays
// with the caller. Both descriptors must be non-negative.
//
// The kernel object behind fd is the platform's business; the returned
// Timeline tracks its value through the same Signal path software
// timelines use.
func Import(deviceFD, fd int) (*Timeline, error) {
	if deviceFD < 0 || fd < 0 {
		return nil, ErrInvalidFD
	}
	return &Timeline{nextID: 1, deviceFD: deviceFD, fd: fd}, nil
}

// Value returns the highest signaled value.
func (t *Timeline) Value() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.value
}

// Destroyed reports whether Destroy has been called.
func (t *Timeline) Destroyed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.destroyed
}

// AddWaiter registers fn to run once the signaled value reaches value.
//
// If the timeline has already reached value, fn runs synchronously before
// AddWaiter returns and the returned WaiterID is zero. Otherwise fn runs
// during the Signal call that satisfies it and the WaiterID can cancel it
// with RemoveWaiter. Returns ok == false, without running fn, when the
// timeline is destroyed.
func (t *Timeline) AddWaiter(value uint64, flags WaitFlags, fn func()) (WaiterID, bool) {
	t.mu.Lock()
	if t.destroyed {
		t.mu.Unlock()
		return 0, false
	}
	if t.value >= value {
		t.mu.Unlock()
		fn()
		return 0, true
	}
	id := t.nextID
	t.nextID++
	t.waiters = append(t.waiters, waiter{id: id, value: value, flags: flags, fn: fn})
	t.mu.Unlock()
	return id, true
}

// Signal raises the timeline to value and fires every waiter whose value is
// now reached, in registration order. Values at or below the current one are
// ignored; the signaled value never decreases. Exported point handles whose
// value is reached become readable.
func (t *Timeline) Signal(value uint64) {
	t.mu.Lock()
	if t.destroyed || value <= t.value {
		t.mu.Unlock()
		return
	}
	t.value = value

	var due []waiter
	kept := t.waiters[:0]
	for _, w := range t.waiters {
		if w.value <= t.value {
			due = append(due, w)
		} else {
			kept = append(kept, w)
		}
	}
	t.waiters = kept

	keptExports := t.exports[:0]
	for _, e := range t.exports {
		if e.value <= t.value {
			if err := signalEventFD(e.fd); err != nil {
				slogger().Warn("signalling exported point failed",
					"value", e.value, "error", err)
			}
			closeFD(e.fd)
		} else {
			keptExports = append(keptExports, e)
		}
	}
	t.exports = keptExports
	t.mu.Unlock()

	for _, w := range due {
		w.fn()
	}
}

// RemoveWaiter cancels a registered waiter. Returns false when no waiter
// with that id is pending (already fired, already removed, or zero).
func (t *Timeline) RemoveWaiter(id WaiterID) bool {
	if id == 0 {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	for i, w := range t.waiters {
		if w.id == id {
			t.waiters = append(t.waiters[:i], t.waiters[i+1:]...)
			return true
		}
	}
	return false
}

// RemoveAllWaiters drops every pending waiter without invoking it.
func (t *Timeline) RemoveAllWaiters() {
	t.mu.Lock()
	t.waiters = nil
	t.mu.Unlock()
}

// ExportPoint returns a file descriptor that becomes readable when the
// timeline reaches value. A value already reached yields an immediately
// readable descriptor. The caller owns the returned fd; if the timeline is
// destroyed first, the descriptor simply never becomes readable.
func (t *Timeline) ExportPoint(value uint64) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.destroyed {
		return -1, ErrDestroyed
	}
	if t.value >= value {
		return newEventFD(1)
	}
	fd, err := newEventFD(0)
	if err != nil {
		return -1, err
	}
	// Keep our own descriptor for the later signal write; the dup handed
	// out shares the eventfd counter, so the caller closing theirs cannot
	// break signalling.
	dup, err := dupFD(fd)
	if err != nil {
		closeFD(fd)
		return -1, err
	}
	t.exports = append(t.exports, export{value: value, fd: fd})
	return dup, nil
}

// Destroy tears the timeline down: pending waiters are dropped without
// being invoked, unsignaled exports are closed, and an imported syncobj fd
// is released. Further operations fail softly. Destroy is idempotent.
func (t *Timeline) Destroy() {
	t.mu.Lock()
	if t.destroyed {
		t.mu.Unlock()
		return
	}
	t.destroyed = true
	dropped := len(t.waiters)
	t.waiters = nil
	for _, e := range t.exports {
		closeFD(e.fd)
	}
	t.exports = nil
	if t.fd >= 0 {
		closeFD(t.fd)
		t.fd = -1
	}
	t.mu.Unlock()

	if dropped > 0 {
		slogger().Debug("timeline destroyed with pending waiters", "waiters", dropped)
	}
}
