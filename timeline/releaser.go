package timeline

// Releaser is the single guaranteed producer of one release point's signal.
// It is created through Point.CreateReleaser before the commit that carries
// the point is queued, so the release signal exists no matter how the
// commit ends: Release fires it when the compositor is done with the
// buffer, Drop disarms it when the buffer never reached the compositor.
//
// Release fires at most once. Releasing twice is a logged error; releasing
// after Drop is ignored.
type Releaser struct {
	tl       *Timeline
	value    uint64
	released bool
	dropped  bool
}

// Value returns the timeline value the releaser signals.
func (r *Releaser) Value() uint64 { return r.value }

// Release signals the release point. Only the first call signals.
func (r *Releaser) Release() {
	switch {
	case r.released:
		slogger().Error("sync point released twice", "value", r.value)
	case r.dropped:
		slogger().Debug("release after drop ignored", "value", r.value)
	default:
		r.released = true
		r.tl.Signal(r.value)
	}
}

// Drop disarms the releaser without signalling. Idempotent.
func (r *Releaser) Drop() {
	r.dropped = true
}
