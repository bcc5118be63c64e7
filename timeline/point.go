package timeline

// PointSource is the origin a sync point was minted from, typically a
// protocol resource wrapping an imported timeline. Expiring the source
// (destroying the resource or its timeline) expires every point minted
// from it in one stroke.
type PointSource interface {
	// Timeline returns the backing timeline, or nil once the source has
	// let go of it.
	Timeline() *Timeline

	// Expired reports whether the source itself is gone.
	Expired() bool
}

// directSource wires a bare Timeline up as its own source.
type directSource struct {
	t *Timeline
}

func (d directSource) Timeline() *Timeline { return d.t }
func (d directSource) Expired() bool       { return d.t == nil || d.t.Destroyed() }

// Direct wraps a bare Timeline as a PointSource, for points that are not
// backed by a protocol resource.
func Direct(t *Timeline) PointSource { return directSource{t: t} }

// Point pins one value on one timeline, in either the acquire or the
// release role. Operations on an expired point log and fail softly; the
// protocol layer is expected to have validated liveness already, so an
// expired point this deep means a teardown race, not a client error.
//
// Point is not safe for concurrent use; commit machinery is loop-affine.
type Point struct {
	source  PointSource
	value   uint64
	acquire bool

	committed    bool
	releaseTaken bool
}

// NewPoint mints a point for value on source. acquire selects the role:
// true for acquire points, false for release points.
func NewPoint(source PointSource, value uint64, acquire bool) *Point {
	return &Point{source: source, value: value, acquire: acquire}
}

// Value returns the point's timeline value.
func (p *Point) Value() uint64 { return p.value }

// IsAcquire reports whether this is an acquire point.
func (p *Point) IsAcquire() bool { return p.acquire }

// Committed reports whether a waiter has been registered on this point.
func (p *Point) Committed() bool { return p.committed }

// Expired reports whether the point's source or timeline is gone.
func (p *Point) Expired() bool {
	return p.source == nil || p.source.Expired() || p.source.Timeline() == nil
}

// Timeline returns the point's backing timeline, or nil with an error log
// when the point has expired.
func (p *Point) Timeline() *Timeline {
	if p.Expired() {
		slogger().Error("looking up the timeline of an expired sync point", "value", p.value)
		return nil
	}
	return p.source.Timeline()
}

// AddWaiter registers fn to run once the point signals and marks the point
// committed. Semantics follow Timeline.AddWaiter: an already-signaled point
// runs fn synchronously. Returns ok == false with an error log when the
// point has expired.
func (p *Point) AddWaiter(fn func()) (WaiterID, bool) {
	if p.Expired() {
		slogger().Error("adding a waiter on an expired sync point", "value", p.value)
		return 0, false
	}
	p.committed = true
	return p.source.Timeline().AddWaiter(p.value, 0, fn)
}

// CreateReleaser hands out the point's releaser. Each point has at most one
// for its whole lifetime; a second call logs and returns nil, as does a call
// on an expired point.
func (p *Point) CreateReleaser() *Releaser {
	if p.Expired() {
		slogger().Error("creating a releaser on an expired sync point", "value", p.value)
		return nil
	}
	if p.releaseTaken {
		slogger().Error("sync point already has a releaser", "value", p.value)
		return nil
	}
	p.releaseTaken = true
	return &Releaser{tl: p.source.Timeline(), value: p.value}
}

// ExportSyncFile returns a pollable descriptor that becomes readable when
// the point signals. See Timeline.ExportPoint for ownership.
func (p *Point) ExportSyncFile() (int, error) {
	if p.Expired() {
		return -1, ErrPointExpired
	}
	return p.source.Timeline().ExportPoint(p.value)
}

// Signal raises the point's timeline to its value. Soft no-op with an
// error log when the point has expired.
func (p *Point) Signal() {
	if p.Expired() {
		slogger().Error("signalling an expired sync point", "value", p.value)
		return
	}
	p.source.Timeline().Signal(p.value)
}
