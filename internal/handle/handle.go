// Package handle provides a generational slot map for protocol resource
// registries.
//
// Protocol objects (surfaces, timeline resources) are created and destroyed
// constantly, and other objects keep references to them across asynchronous
// callbacks. A Handle is a stable identifier that becomes invalid the moment
// its slot is deleted: a stale Handle simply misses instead of touching a
// reused slot. This replaces identity scans over live-resource slices with
// O(1) lookup and makes "does this still exist" an explicit, cheap check.
package handle

// Handle identifies one slot in a Map. The zero Handle is never valid.
type Handle struct {
	index uint32
	gen   uint32
}

// Valid reports whether h could have been produced by Insert.
// It does not check liveness; use Map.Get for that.
func (h Handle) Valid() bool {
	return h.gen != 0
}

// slot holds one value together with its generation counter.
// gen is odd while occupied, even while free; it increments on every
// insert and delete so a stale Handle can never match a reused slot.
type slot[T any] struct {
	value T
	gen   uint32
}

// Map is a generational slot map. The zero value is ready to use.
//
// Map is not safe for concurrent use; callers on the compositor loop do not
// need locking, and off-loop callers must synchronize externally.
type Map[T any] struct {
	slots []slot[T]
	free  []uint32
	count int
}

// Insert stores v and returns its Handle.
func (m *Map[T]) Insert(v T) Handle {
	var idx uint32
	if n := len(m.free); n > 0 {
		idx = m.free[n-1]
		m.free = m.free[:n-1]
	} else {
		m.slots = append(m.slots, slot[T]{})
		idx = uint32(len(m.slots) - 1)
	}
	s := &m.slots[idx]
	s.gen++ // even -> odd: occupied
	s.value = v
	m.count++
	return Handle{index: idx, gen: s.gen}
}

// Get returns the value for h, or the zero value and false if h is stale
// or was never issued by this map.
func (m *Map[T]) Get(h Handle) (T, bool) {
	var zero T
	if int(h.index) >= len(m.slots) {
		return zero, false
	}
	s := &m.slots[h.index]
	if s.gen != h.gen || s.gen%2 == 0 {
		return zero, false
	}
	return s.value, true
}

// Delete removes the value for h. It reports whether anything was removed;
// deleting a stale Handle is a no-op.
func (m *Map[T]) Delete(h Handle) bool {
	if int(h.index) >= len(m.slots) {
		return false
	}
	s := &m.slots[h.index]
	if s.gen != h.gen || s.gen%2 == 0 {
		return false
	}
	var zero T
	s.value = zero
	s.gen++ // odd -> even: free
	m.free = append(m.free, h.index)
	m.count--
	return true
}

// Len returns the number of live entries.
func (m *Map[T]) Len() int {
	return m.count
}

// Range calls fn for every live entry. fn must not insert or delete;
// collect handles first if mutation during iteration is needed.
func (m *Map[T]) Range(fn func(Handle, T) bool) {
	for i := range m.slots {
		s := &m.slots[i]
		if s.gen%2 == 0 {
			continue
		}
		if !fn(Handle{index: uint32(i), gen: s.gen}, s.value) {
			return
		}
	}
}
