package waysync

import (
	"errors"
	"image"
	"os"

	"github.com/gogpu/waysync/buffer"
	"github.com/gogpu/waysync/eventloop"
	"github.com/gogpu/waysync/timeline"
)

// commitPhase tracks an in-flight commit through its lifecycle.
type commitPhase uint8

const (
	phaseQueued commitPhase = iota
	phaseWaiting
	phaseReady
	phaseApplied
	phaseDiscarded
)

// inflight is one snapshotted state generation between commit and apply.
// Readiness callbacks re-resolve the item through (surface handle, seq)
// instead of retaining pointers, so a fence that fires after the surface
// or the item is gone resolves nothing.
type inflight struct {
	seq   uint64
	state *SurfaceState
	phase commitPhase

	// acquireTimeline and waiter identify a registered acquire waiter for
	// cancellation. watch and syncFD are the implicit-fence counterpart.
	acquireTimeline *timeline.Timeline
	waiter          timeline.WaiterID
	watch           eventloop.WatchID
	syncFD          int
}

// Commit finalizes the pending state. Content-less commits apply in the
// same turn. Commits carrying a buffer snapshot into the queue and apply
// once their content is ready: when the explicit acquire point is reached,
// when the buffer is synchronous, or when the implicit fence signals.
//
// A null attach discards everything still queued first; those generations
// can never become visible.
func (s *Surface) Commit() {
	if s.dead {
		slogger().Warn("commit on destroyed surface ignored", "client", s.client.Trace())
		return
	}

	s.deriveCommit()

	s.Events.PreCommit.emit()
	if s.rejected {
		s.rejected = false
		s.pending.Buffer.Close()
		s.pending.Flags &^= FlagBuffer | FlagAcquire
		slogger().Debug("commit rejected", "client", s.client.Trace())
		return
	}

	if s.pending.Flags&FlagBuffer == 0 || s.pending.Buffer.Buf == nil {
		if s.pending.Flags&FlagBuffer != 0 {
			s.DiscardQueued()
		}
		s.applyState(s.pending.snapshot())
		return
	}

	item := &inflight{
		seq:    s.nextCommitSeq(),
		state:  s.pending.snapshot(),
		syncFD: -1,
	}
	s.queue = append(s.queue, item)
	slogger().Debug("commit queued", "client", s.client.Trace(), "seq", item.seq)

	if max := tuning.maxQueuedCommits; max > 0 && len(s.queue) > max {
		slogger().Warn("commit queue over limit, applying oldest now",
			"client", s.client.Trace(), "limit", max)
		s.drain(s.queue[0])
	}

	s.armWait(item)
}

// deriveCommit computes the commit-time derived fields on pending: buffer
// damage clamps to the buffer bounds, the surface size follows from buffer
// size, transform and scale, surface damage clamps to that size.
func (s *Surface) deriveCommit() {
	p := &s.pending
	if p.Flags&FlagBuffer != 0 {
		if p.Buffer.Buf == nil {
			p.BufferSize = image.Point{}
		} else {
			w, h := p.Buffer.Buf.Buffer().Size()
			p.BufferSize = image.Pt(w, h)
		}
	}
	p.BufferDamage.Intersect(image.Rectangle{Max: p.BufferSize})

	size := p.BufferSize
	if p.Transform.Swapped() {
		size.X, size.Y = size.Y, size.X
	}
	p.Size = size.Div(int(p.Scale))
	p.Damage.Intersect(image.Rectangle{Max: p.Size})
}

// armWait picks the wait strategy for a freshly queued item, in priority
// order: explicit acquire point, synchronous content, implicit fence.
func (s *Surface) armWait(item *inflight) {
	att := &item.state.Buffer

	if att.Acquire != nil {
		item.phase = phaseWaiting
		item.acquireTimeline = att.Acquire.Timeline()
		id, ok := att.Acquire.AddWaiter(s.drainCallback(item.seq))
		if !ok {
			slogger().Warn("acquire point expired before wait, applying now",
				"client", s.client.Trace(), "seq", item.seq)
			s.drain(item)
			return
		}
		// A zero id with ok means the point was already reached and the
		// callback has run; the item is applied by the time we get here.
		if id != 0 {
			item.waiter = id
			slogger().Debug("commit waiting on acquire point",
				"client", s.client.Trace(), "seq", item.seq, "value", att.Acquire.Value())
		}
		return
	}

	buf := att.Buf.Buffer()
	if buf.Synchronous() {
		item.phase = phaseReady
		s.drain(item)
		return
	}

	if !tuning.allowImplicitFallback {
		slogger().Debug("implicit fence watching disabled, applying now",
			"client", s.client.Trace(), "seq", item.seq)
		item.phase = phaseReady
		s.drain(item)
		return
	}

	fd, err := buf.ExportSyncFile()
	if err != nil {
		if errors.Is(err, buffer.ErrNoSyncFile) {
			slogger().Warn("asynchronous buffer without a fence, applying now",
				"client", s.client.Trace(), "seq", item.seq)
		} else {
			slogger().Error("implicit fence export failed, applying now",
				"client", s.client.Trace(), "seq", item.seq, "error", err)
		}
		item.phase = phaseReady
		s.drain(item)
		return
	}
	wid, err := s.client.Loop().OnReadable(fd, s.drainCallback(item.seq))
	if err != nil {
		closeSyncFile(fd)
		slogger().Warn("implicit fence watch failed, applying now",
			"client", s.client.Trace(), "seq", item.seq, "error", err)
		item.phase = phaseReady
		s.drain(item)
		return
	}
	item.phase = phaseWaiting
	item.watch = wid
	item.syncFD = fd
	slogger().Debug("commit waiting on implicit fence",
		"client", s.client.Trace(), "seq", item.seq, "fd", fd)
}

// drainCallback builds the readiness callback for the item with the given
// seq. It captures the surface handle, not the surface, so firing after
// destruction is a no-op.
func (s *Surface) drainCallback(seq uint64) func() {
	h := s.handle
	return func() {
		surf, ok := FromHandle(h)
		if !ok {
			return
		}
		for _, it := range surf.queue {
			if it.seq == seq {
				surf.drain(it)
				return
			}
		}
	}
}

// drain pops and applies every queued item from the front through item, in
// queue order. An earlier entry still waiting applies without further
// delay once its turn comes; its own callback later finds it gone.
func (s *Surface) drain(item *inflight) {
	if s.dead || item.phase == phaseApplied || item.phase == phaseDiscarded {
		return
	}
	for len(s.queue) > 0 {
		front := s.queue[0]
		s.queue = s.queue[1:]
		s.cancelWait(front)
		front.phase = phaseApplied
		s.applyState(front.state)
		slogger().Debug("commit applied", "client", s.client.Trace(), "seq", front.seq)
		if front == item || s.dead {
			return
		}
	}
}

// DiscardQueued drops every queued commit without applying it: waits are
// cancelled, each generation's buffer closes (firing its release), and
// the queue empties. Null attaches and Destroy discard internally; a
// protocol adapter discards on its own teardown, since the waiters were
// registered on its behalf.
func (s *Surface) DiscardQueued() {
	if len(s.queue) == 0 {
		return
	}
	slogger().Debug("discarding queued commits",
		"client", s.client.Trace(), "count", len(s.queue))
	for _, it := range s.queue {
		s.cancelWait(it)
		it.phase = phaseDiscarded
		it.state.Buffer.Close()
	}
	s.queue = nil
}

// cancelWait releases whatever readiness registration item still holds.
// After a fence has fired both removals miss, which is harmless.
func (s *Surface) cancelWait(item *inflight) {
	if item.waiter != 0 && item.acquireTimeline != nil {
		item.acquireTimeline.RemoveWaiter(item.waiter)
		item.waiter = 0
	}
	if item.watch != 0 {
		s.client.Loop().CancelWatch(item.watch)
		item.watch = 0
	}
	if item.syncFD >= 0 {
		closeSyncFile(item.syncFD)
		item.syncFD = -1
	}
}

// applyState merges one finalized generation into current and makes its
// effects visible: texture content, transform metadata and the role-aware
// commit emission.
func (s *Surface) applyState(st *SurfaceState) {
	if s.dead {
		return
	}

	bufferChanged := st.Flags&FlagBuffer != 0
	var prev BufferAttachment
	if bufferChanged {
		prev = s.current.Buffer
	}

	s.current.UpdateFrom(st)

	if bufferChanged {
		// The replaced generation is done: its release fires and its
		// content reference drops.
		prev.Close()
	}

	att := &s.current.Buffer
	if bufferChanged && att.Buf != nil {
		if shm, ok := att.Buf.Buffer().(*buffer.SHMBuffer); ok {
			damage := s.current.BufferDamage.Rects()
			s.texture.UpdateFromSHM(shm, damage)
			if cur, ok := s.role.(*CursorRole); ok && tuning.cursorMirrorPixels {
				cur.updateMirror(shm, damage)
			}
		}
	}
	s.texture.SetTransform(s.current.Transform)

	// A synchronized subsurface stays silent until the parent flushes it.
	// A desynchronized one announces only itself. Anything else announces
	// itself and every synchronized descendant.
	if sub, ok := s.role.(*SubsurfaceRole); ok {
		if !sub.Synchronized {
			s.Events.Commit.emit()
		}
	} else {
		s.eachCommitTarget(func(t *Surface) {
			t.Events.Commit.emit()
		})
	}

	// Synchronous content was copied into the texture, so the buffer can
	// go back to the client. Role-less surfaces hold on to it: the buffer
	// may still become a cursor image.
	if att.Buf != nil && att.Buf.Buffer().Synchronous() && s.role.Kind() != RoleNone {
		att.Close()
	}

	s.current.Damage.Clear()
	s.current.BufferDamage.Clear()
	s.current.Flags = 0
}

func (s *Surface) nextCommitSeq() uint64 {
	s.commitSeq++
	return s.commitSeq
}

// closeSyncFile closes an exported fence descriptor.
func closeSyncFile(fd int) {
	if fd >= 0 {
		_ = os.NewFile(uintptr(fd), "sync_file").Close()
	}
}
