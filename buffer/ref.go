package buffer

// Ref counts the state slots holding one buffer. A commit hand-off briefly
// puts the same buffer in the outgoing and the incoming state, so two
// holders is the expected ceiling; more gets logged. The last Release runs
// the release hook, which is where the buffer is handed back to its
// client.
//
// Ref is not safe for concurrent use; commit machinery is loop-affine.
type Ref struct {
	buf       Buffer
	count     int
	onRelease func(Buffer)
}

// NewRef wraps buf with a single holder. onRelease runs once, when the
// last holder releases; nil is allowed.
func NewRef(buf Buffer, onRelease func(Buffer)) *Ref {
	return &Ref{buf: buf, count: 1, onRelease: onRelease}
}

// Buffer returns the wrapped buffer.
func (r *Ref) Buffer() Buffer { return r.buf }

// Holders returns the current holder count.
func (r *Ref) Holders() int { return r.count }

// Acquire adds a holder and returns r for chaining.
func (r *Ref) Acquire() *Ref {
	if r.count <= 0 {
		slogger().Error("acquiring a buffer after its last release")
		return r
	}
	r.count++
	if r.count > 2 {
		slogger().Warn("buffer held by more than two state slots", "holders", r.count)
	}
	return r
}

// Release drops a holder. The drop that reaches zero runs the release
// hook; dropping below zero is a logged no-op.
func (r *Ref) Release() {
	if r.count <= 0 {
		slogger().Error("releasing a buffer more often than it was held")
		return
	}
	r.count--
	if r.count == 0 && r.onRelease != nil {
		r.onRelease(r.buf)
	}
}
