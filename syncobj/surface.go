package syncobj

import (
	"errors"

	"github.com/gogpu/waysync"
	"github.com/gogpu/waysync/timeline"
)

// ErrSurfaceGone is returned by Attach when the surface is already
// destroyed.
var ErrSurfaceGone = errors.New("syncobj: surface is destroyed")

// SurfaceSync is the per-surface explicit-sync adapter. It stages the
// acquire and release points set between commits and, from the surface's
// precommit hook, validates and binds them to the committed buffer.
type SurfaceSync struct {
	surface waysync.Handle
	client  *waysync.Client

	stagedAcquire *timeline.Point
	stagedRelease *timeline.Point

	precommit waysync.ListenerID
	destroy   waysync.ListenerID
	dead      bool
}

// adapters maps each surface to its attached adapter. One per surface;
// loop-affine like the engine registries.
var adapters = make(map[waysync.Handle]*SurfaceSync)

// Attach hangs a sync adapter off surf. A surface carries at most one:
// a second Attach terminates the client with CodeSurfaceExists.
func Attach(client *waysync.Client, surf *waysync.Surface) (*SurfaceSync, error) {
	if surf == nil || surf.Destroyed() {
		return nil, ErrSurfaceGone
	}
	if _, ok := adapters[surf.Handle()]; ok {
		perr := &waysync.ProtocolError{Code: CodeSurfaceExists, Reason: "Surface already has a syncobj attached"}
		client.PostError(perr)
		return nil, perr
	}

	ss := &SurfaceSync{surface: surf.Handle(), client: client}
	ss.precommit = surf.Events.PreCommit.Register(ss.onPrecommit)
	ss.destroy = surf.Events.Destroy.Register(ss.Destroy)
	adapters[surf.Handle()] = ss
	slogger().Debug("sync adapter attached", "client", client.Trace())
	return ss, nil
}

// SetAcquirePoint stages the acquire point for the next commit. res and
// (hi, lo) name the point the compositor must wait on before reading the
// committed buffer.
func (ss *SurfaceSync) SetAcquirePoint(res *TimelineResource, hi, lo uint32) {
	if _, ok := waysync.FromHandle(ss.surface); !ok {
		ss.client.PostError(&waysync.ProtocolError{Code: CodeNoSurface, Reason: "Surface is gone"})
		return
	}
	ss.stagedAcquire = timeline.NewPoint(res, PointValue(hi, lo), true)
}

// SetReleasePoint stages the release point for the next commit. The
// compositor signals it once it is done reading the committed buffer.
func (ss *SurfaceSync) SetReleasePoint(res *TimelineResource, hi, lo uint32) {
	if _, ok := waysync.FromHandle(ss.surface); !ok {
		ss.client.PostError(&waysync.ProtocolError{Code: CodeNoSurface, Reason: "Surface is gone"})
		return
	}
	ss.stagedRelease = timeline.NewPoint(res, PointValue(hi, lo), false)
}

// onPrecommit runs inside Commit, after state derivation. Commits that
// carry no new buffer pass through: a null attach is the engine's
// discard-and-clear, and a content-less re-commit only has its damage
// scrubbed, since the content on screen did not change. Staged points
// survive both and wait for a commit with a buffer.
func (ss *SurfaceSync) onPrecommit() {
	surf, ok := waysync.FromHandle(ss.surface)
	if !ok {
		return
	}
	p := surf.Pending()
	if p.Flags&waysync.FlagBuffer == 0 {
		if surf.Current().Buffer.Buf != nil {
			p.Damage.Clear()
			p.BufferDamage.Clear()
			p.Flags &^= waysync.FlagDamage
		}
		return
	}
	if p.Buffer.Buf == nil {
		return
	}

	// A commit with a buffer consumes the staged points, expired or not.
	att := &p.Buffer
	if ss.stagedAcquire != nil && !ss.stagedAcquire.Expired() {
		att.Acquire = ss.stagedAcquire
	}
	if ss.stagedRelease != nil && !ss.stagedRelease.Expired() {
		att.Release = ss.stagedRelease
	}
	ss.stagedAcquire = nil
	ss.stagedRelease = nil

	if perr := validate(p); perr != nil {
		surf.RejectPending()
		ss.client.PostError(perr)
		return
	}

	p.Flags |= waysync.FlagAcquire
	att.Releaser = att.Release.CreateReleaser()
}

// validate checks the committed buffer and its point pair, in the
// protocol's order. A nil return means the commit may proceed.
func validate(p *waysync.SurfaceState) *waysync.ProtocolError {
	att := &p.Buffer
	if w, h := att.Buf.Buffer().Size(); w <= 0 || h <= 0 {
		return &waysync.ProtocolError{Code: CodeNoBuffer, Reason: "Missing buffer"}
	}
	if att.Acquire == nil || att.Acquire.Timeline() == nil {
		return &waysync.ProtocolError{Code: CodeNoAcquirePoint, Reason: "Missing acquire timeline"}
	}
	if att.Release == nil || att.Release.Timeline() == nil {
		return &waysync.ProtocolError{Code: CodeNoReleasePoint, Reason: "Missing release timeline"}
	}
	if att.Acquire.Timeline() == att.Release.Timeline() && att.Acquire.Value() >= att.Release.Value() {
		return &waysync.ProtocolError{
			Code:   CodeConflictingPoints,
			Reason: "Acquire and release points are on the same timeline, and acquire >= release",
		}
	}
	return nil
}

// Destroy detaches the adapter. The surface's queued commits discard
// with their waiters removed, staged points drop, and the listeners
// unregister. Runs automatically when the surface is destroyed.
func (ss *SurfaceSync) Destroy() {
	if ss.dead {
		return
	}
	ss.dead = true
	ss.stagedAcquire = nil
	ss.stagedRelease = nil
	delete(adapters, ss.surface)
	if surf, ok := waysync.FromHandle(ss.surface); ok {
		surf.DiscardQueued()
		surf.Events.PreCommit.Unregister(ss.precommit)
		surf.Events.Destroy.Unregister(ss.destroy)
	}
	slogger().Debug("sync adapter detached", "client", ss.client.Trace())
}
