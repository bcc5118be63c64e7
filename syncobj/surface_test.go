package syncobj

import (
	"errors"
	"image"
	"testing"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/waysync"
	"github.com/gogpu/waysync/buffer"
	"github.com/gogpu/waysync/eventloop"
)

func newTestClient(t *testing.T) *waysync.Client {
	t.Helper()
	loop, err := eventloop.New()
	if err != nil {
		t.Skipf("event loop unavailable: %v", err)
	}
	t.Cleanup(func() { loop.Close() })
	return waysync.NewClient(loop)
}

func newTestSurface(t *testing.T) (*waysync.Client, *waysync.Surface) {
	t.Helper()
	c := newTestClient(t)
	s := waysync.NewSurface(c)
	t.Cleanup(s.Destroy)
	return c, s
}

// newSyncedSurface wires a surface with its sync adapter and a software
// timeline resource pair, one timeline for acquires and one for releases.
func newSyncedSurface(t *testing.T) (*waysync.Client, *waysync.Surface, *SurfaceSync, *TimelineResource, *TimelineResource) {
	t.Helper()
	c, s := newTestSurface(t)
	ss, err := Attach(c, s)
	if err != nil {
		t.Fatalf("Attach: %v", err)
	}
	acq := NewTimeline(c)
	rel := NewTimeline(c)
	t.Cleanup(acq.Destroy)
	t.Cleanup(rel.Destroy)
	return c, s, ss, acq, rel
}

// dmaRef builds a refcounted dmabuf wrapper with no implicit fence.
// released, when not nil, flips once the last reference drops.
func dmaRef(t *testing.T, w, h int, released *bool) *buffer.Ref {
	t.Helper()
	buf, err := buffer.NewDMABuffer(w, h, gputypes.TextureFormatRGBA8Unorm, []int{0}, nil)
	if err != nil {
		t.Fatalf("NewDMABuffer: %v", err)
	}
	return buffer.NewRef(buf, func(buffer.Buffer) {
		if released != nil {
			*released = true
		}
	})
}

func countCommits(s *waysync.Surface) *int {
	n := new(int)
	s.Events.Commit.Register(func() { *n++ })
	return n
}

// zeroBuffer has no content: its dimensions are empty.
type zeroBuffer struct{}

func (zeroBuffer) Size() (int, int)               { return 0, 0 }
func (zeroBuffer) Format() gputypes.TextureFormat { return gputypes.TextureFormatRGBA8Unorm }
func (zeroBuffer) Synchronous() bool              { return false }
func (zeroBuffer) ExportSyncFile() (int, error)   { return -1, buffer.ErrNoSyncFile }

func TestAttachSecondAdapterIsProtocolError(t *testing.T) {
	c, s := newTestSurface(t)
	if _, err := Attach(c, s); err != nil {
		t.Fatalf("first Attach: %v", err)
	}

	_, err := Attach(c, s)
	if err == nil {
		t.Fatal("second Attach succeeded")
	}
	perr := c.LastError()
	if perr == nil || perr.Code != CodeSurfaceExists {
		t.Fatalf("posted error = %v, want code %d", perr, CodeSurfaceExists)
	}
	if perr.Reason != "Surface already has a syncobj attached" {
		t.Errorf("reason = %q", perr.Reason)
	}
}

func TestAttachDestroyedSurfaceFails(t *testing.T) {
	c, s := newTestSurface(t)
	s.Destroy()

	if _, err := Attach(c, s); !errors.Is(err, ErrSurfaceGone) {
		t.Fatalf("Attach after destroy: %v, want ErrSurfaceGone", err)
	}
	if !c.Alive() {
		t.Error("attach on a destroyed surface terminated the client")
	}
}

func TestSetPointAfterSurfaceDestroyPostsNoSurface(t *testing.T) {
	c, s := newTestSurface(t)
	ss, err := Attach(c, s)
	if err != nil {
		t.Fatalf("Attach: %v", err)
	}
	tl := NewTimeline(c)
	t.Cleanup(tl.Destroy)
	s.Destroy()

	ss.SetAcquirePoint(tl, 0, 1)
	perr := c.LastError()
	if perr == nil || perr.Code != CodeNoSurface {
		t.Fatalf("posted error = %v, want code %d", perr, CodeNoSurface)
	}
	if perr.Reason != "Surface is gone" {
		t.Errorf("reason = %q", perr.Reason)
	}
}

func TestCommitWaitsOnAcquireAndSignalsRelease(t *testing.T) {
	c, s, ss, acq, rel := newSyncedSurface(t)
	commits := countCommits(s)

	firstReleased := false
	ss.SetAcquirePoint(acq, 0, 1)
	ss.SetReleasePoint(rel, 0, 1)
	s.Attach(dmaRef(t, 4, 4, &firstReleased), image.Point{})
	s.Commit()

	if !c.Alive() {
		t.Fatalf("commit terminated the client: %v", c.LastError())
	}
	if *commits != 0 {
		t.Fatal("explicit commit applied before its acquire point")
	}

	acq.Timeline().Signal(1)
	if *commits != 1 {
		t.Fatalf("commit events = %d after acquire signal, want 1", *commits)
	}
	if rel.Timeline().Value() != 0 {
		t.Fatal("release signalled while the buffer is still current")
	}

	// The replacement commit retires the first buffer and fires its
	// release point.
	ss.SetAcquirePoint(acq, 0, 2)
	ss.SetReleasePoint(rel, 0, 2)
	s.Attach(dmaRef(t, 4, 4, nil), image.Point{})
	s.Commit()
	acq.Timeline().Signal(2)

	if *commits != 2 {
		t.Fatalf("commit events = %d, want 2", *commits)
	}
	if !firstReleased {
		t.Error("retired buffer was not released")
	}
	if got := rel.Timeline().Value(); got != 1 {
		t.Errorf("release timeline value = %d, want 1", got)
	}
}

func TestConflictingPointsOnOneTimeline(t *testing.T) {
	c, s, ss, acq, _ := newSyncedSurface(t)
	commits := countCommits(s)

	released := false
	ss.SetAcquirePoint(acq, 0, 5)
	ss.SetReleasePoint(acq, 0, 5)
	s.Attach(dmaRef(t, 4, 4, &released), image.Point{})
	s.Commit()

	perr := c.LastError()
	if perr == nil || perr.Code != CodeConflictingPoints {
		t.Fatalf("posted error = %v, want code %d", perr, CodeConflictingPoints)
	}
	if perr.Reason != "Acquire and release points are on the same timeline, and acquire >= release" {
		t.Errorf("reason = %q", perr.Reason)
	}
	if *commits != 0 {
		t.Error("rejected commit applied")
	}
	if !released {
		t.Error("rejected commit kept its buffer alive")
	}
	if acq.Timeline().Value() != 0 {
		t.Error("rejected commit signalled its release point")
	}
	if ss.stagedAcquire != nil || ss.stagedRelease != nil {
		t.Error("rejected commit left staged points behind")
	}
}

func TestOrderedPointsOnOneTimeline(t *testing.T) {
	c, s, ss, acq, _ := newSyncedSurface(t)
	commits := countCommits(s)

	ss.SetAcquirePoint(acq, 0, 5)
	ss.SetReleasePoint(acq, 0, 6)
	s.Attach(dmaRef(t, 4, 4, nil), image.Point{})
	s.Commit()

	if !c.Alive() {
		t.Fatalf("ordered same-timeline points rejected: %v", c.LastError())
	}
	acq.Timeline().Signal(5)
	if *commits != 1 {
		t.Fatalf("commit events = %d, want 1", *commits)
	}
}

func TestCrossTimelinePointsAlwaysOrdered(t *testing.T) {
	c, s, ss, acq, rel := newSyncedSurface(t)

	// Numerically reversed values are fine across distinct timelines.
	ss.SetAcquirePoint(acq, 0, 9)
	ss.SetReleasePoint(rel, 0, 1)
	s.Attach(dmaRef(t, 4, 4, nil), image.Point{})
	s.Commit()

	if !c.Alive() {
		t.Fatalf("cross-timeline points rejected: %v", c.LastError())
	}
}

func TestMissingAcquirePointRejects(t *testing.T) {
	c, s, ss, _, rel := newSyncedSurface(t)

	ss.SetReleasePoint(rel, 0, 1)
	s.Attach(dmaRef(t, 4, 4, nil), image.Point{})
	s.Commit()

	perr := c.LastError()
	if perr == nil || perr.Code != CodeNoAcquirePoint {
		t.Fatalf("posted error = %v, want code %d", perr, CodeNoAcquirePoint)
	}
	if perr.Reason != "Missing acquire timeline" {
		t.Errorf("reason = %q", perr.Reason)
	}
}

func TestMissingReleasePointRejects(t *testing.T) {
	c, s, ss, acq, _ := newSyncedSurface(t)

	ss.SetAcquirePoint(acq, 0, 1)
	s.Attach(dmaRef(t, 4, 4, nil), image.Point{})
	s.Commit()

	perr := c.LastError()
	if perr == nil || perr.Code != CodeNoReleasePoint {
		t.Fatalf("posted error = %v, want code %d", perr, CodeNoReleasePoint)
	}
	if perr.Reason != "Missing release timeline" {
		t.Errorf("reason = %q", perr.Reason)
	}
}

func TestDestroyedResourcePointsRejectAsMissing(t *testing.T) {
	c, s, ss, acq, rel := newSyncedSurface(t)

	ss.SetAcquirePoint(acq, 0, 1)
	ss.SetReleasePoint(rel, 0, 2)
	acq.Destroy()
	rel.Destroy()
	s.Attach(dmaRef(t, 4, 4, nil), image.Point{})
	s.Commit()

	perr := c.LastError()
	if perr == nil || perr.Code != CodeNoAcquirePoint {
		t.Fatalf("posted error = %v, want code %d", perr, CodeNoAcquirePoint)
	}
}

func TestZeroSizeBufferRejects(t *testing.T) {
	c, s, ss, acq, rel := newSyncedSurface(t)

	ss.SetAcquirePoint(acq, 0, 1)
	ss.SetReleasePoint(rel, 0, 2)
	s.Attach(buffer.NewRef(zeroBuffer{}, nil), image.Point{})
	s.Commit()

	perr := c.LastError()
	if perr == nil || perr.Code != CodeNoBuffer {
		t.Fatalf("posted error = %v, want code %d", perr, CodeNoBuffer)
	}
	if perr.Reason != "Missing buffer" {
		t.Errorf("reason = %q", perr.Reason)
	}
}

func TestStagedPointsSurviveBufferlessCommit(t *testing.T) {
	c, s, ss, acq, rel := newSyncedSurface(t)

	ss.SetAcquirePoint(acq, 0, 1)
	ss.SetReleasePoint(rel, 0, 1)
	s.SetScale(2)
	s.Commit()

	if !c.Alive() {
		t.Fatalf("bufferless commit terminated the client: %v", c.LastError())
	}
	if ss.stagedAcquire == nil || ss.stagedRelease == nil {
		t.Fatal("bufferless commit consumed the staged points")
	}

	commits := countCommits(s)
	s.Attach(dmaRef(t, 4, 4, nil), image.Point{})
	s.Commit()
	if !c.Alive() {
		t.Fatalf("buffer commit rejected: %v", c.LastError())
	}
	if ss.stagedAcquire != nil || ss.stagedRelease != nil {
		t.Error("buffer commit did not consume the staged points")
	}
	acq.Timeline().Signal(1)
	if *commits != 1 {
		t.Errorf("commit events = %d, want 1", *commits)
	}
}

func TestStagedPointsSurviveNullAttach(t *testing.T) {
	c, s, ss, acq, rel := newSyncedSurface(t)

	ss.SetAcquirePoint(acq, 0, 1)
	ss.SetReleasePoint(rel, 0, 1)
	s.Attach(nil, image.Point{})
	s.Commit()

	if !c.Alive() {
		t.Fatalf("null attach terminated the client: %v", c.LastError())
	}
	if ss.stagedAcquire == nil || ss.stagedRelease == nil {
		t.Fatal("null attach consumed the staged points")
	}
}

func TestRecommitWithoutNewBufferDropsDamage(t *testing.T) {
	c, s, ss, acq, rel := newSyncedSurface(t)

	acq.Timeline().Signal(1)
	ss.SetAcquirePoint(acq, 0, 1)
	ss.SetReleasePoint(rel, 0, 1)
	s.Attach(dmaRef(t, 4, 4, nil), image.Point{})
	s.Commit()
	if !c.Alive() {
		t.Fatalf("first commit failed: %v", c.LastError())
	}
	if s.Current().Buffer.Buf == nil {
		t.Fatal("pre-signalled acquire did not apply in the same turn")
	}

	scrubbed := false
	s.Events.PreCommit.Register(func() {
		p := s.Pending()
		scrubbed = p.Damage.Empty() && p.BufferDamage.Empty() && p.Flags&waysync.FlagDamage == 0
	})
	s.Damage(image.Rect(0, 0, 2, 2))
	s.Commit()

	if !scrubbed {
		t.Error("content-less re-commit kept its damage")
	}
}

func TestAdapterDestroyDiscardsQueuedCommits(t *testing.T) {
	c, s, ss, acq, rel := newSyncedSurface(t)
	commits := countCommits(s)

	released := false
	ss.SetAcquirePoint(acq, 0, 3)
	ss.SetReleasePoint(rel, 0, 1)
	s.Attach(dmaRef(t, 4, 4, &released), image.Point{})
	s.Commit()

	ss.Destroy()
	if !released {
		t.Error("discarded commit kept its buffer alive")
	}
	if got := rel.Timeline().Value(); got != 1 {
		t.Errorf("release timeline value = %d after discard, want 1", got)
	}

	acq.Timeline().Signal(3)
	if *commits != 0 {
		t.Error("discarded commit applied after a late acquire signal")
	}
	if !c.Alive() {
		t.Errorf("adapter teardown terminated the client: %v", c.LastError())
	}

	// The surface is free for a fresh adapter.
	if _, err := Attach(c, s); err != nil {
		t.Errorf("re-Attach after destroy: %v", err)
	}
}

func TestSurfaceDestroyDetachesAdapter(t *testing.T) {
	c, s := newTestSurface(t)
	ss, err := Attach(c, s)
	if err != nil {
		t.Fatalf("Attach: %v", err)
	}

	s.Destroy()
	if !ss.dead {
		t.Error("surface destroy left the adapter live")
	}
	if _, ok := adapters[s.Handle()]; ok {
		t.Error("surface destroy left the adapter registered")
	}
	ss.Destroy()
	if !c.Alive() {
		t.Errorf("double destroy terminated the client: %v", c.LastError())
	}
}
