package syncobj

import (
	"github.com/gogpu/waysync"
	"github.com/gogpu/waysync/internal/handle"
	"github.com/gogpu/waysync/timeline"
)

// TimelineResource is a client-imported syncobj timeline. It is the
// source of every sync point referring to it: destroying the resource
// expires the points and drops the timeline's waiters in one stroke.
type TimelineResource struct {
	handle handle.Handle
	client *waysync.Client
	tl     *timeline.Timeline
	dead   bool
}

var _ timeline.PointSource = (*TimelineResource)(nil)

// timelines is the live-resource registry.
var timelines handle.Map[*TimelineResource]

// ImportTimeline wraps a client-supplied timeline fd for the DRM device
// deviceFD and registers the resource. Import failure terminates the
// client with CodeInvalidTimeline and returns the protocol error.
func ImportTimeline(client *waysync.Client, deviceFD, fd int) (*TimelineResource, error) {
	tl, err := timeline.Import(deviceFD, fd)
	if err != nil {
		perr := &waysync.ProtocolError{Code: CodeInvalidTimeline, Reason: "Timeline failed importing"}
		client.PostError(perr)
		return nil, perr
	}
	r := &TimelineResource{client: client, tl: tl}
	r.handle = timelines.Insert(r)
	slogger().Debug("timeline imported", "client", client.Trace(), "fd", fd)
	return r, nil
}

// NewTimeline registers a resource backed by a software timeline. It
// serves in-process compositors and tests; protocol clients come in
// through ImportTimeline.
func NewTimeline(client *waysync.Client) *TimelineResource {
	r := &TimelineResource{client: client, tl: timeline.New()}
	r.handle = timelines.Insert(r)
	slogger().Debug("software timeline created", "client", client.Trace())
	return r
}

// TimelineFromHandle resolves a registry handle. The boolean is false for
// stale handles and destroyed resources.
func TimelineFromHandle(h handle.Handle) (*TimelineResource, bool) {
	return timelines.Get(h)
}

// Handle returns the resource's registry handle.
func (r *TimelineResource) Handle() handle.Handle { return r.handle }

// Timeline returns the backing timeline, or nil once the resource is
// destroyed.
func (r *TimelineResource) Timeline() *timeline.Timeline {
	if r == nil || r.dead {
		return nil
	}
	return r.tl
}

// Expired reports whether the resource has been destroyed.
func (r *TimelineResource) Expired() bool { return r == nil || r.dead }

// Point mints a sync point for value on this resource. acquire selects
// the point's role.
func (r *TimelineResource) Point(value uint64, acquire bool) *timeline.Point {
	return timeline.NewPoint(r, value, acquire)
}

// Destroy unregisters the resource and tears down the backing timeline.
// Pending waiters drop without firing; points minted from the resource
// read as expired from here on.
func (r *TimelineResource) Destroy() {
	if r.dead {
		return
	}
	r.dead = true
	timelines.Delete(r.handle)
	r.tl.Destroy()
	r.tl = nil
	slogger().Debug("timeline resource destroyed", "client", r.client.Trace())
}
