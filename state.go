package waysync

import (
	"image"

	"github.com/gogpu/waysync/buffer"
	"github.com/gogpu/waysync/timeline"
)

// StateFlags records which fields of a SurfaceState a commit actually
// changed. Applying a state copies only the flagged fields, so an
// unflagged field keeps whatever the previous apply established.
type StateFlags uint32

const (
	// FlagBuffer marks a buffer (re-)attachment, including a null attach.
	FlagBuffer StateFlags = 1 << iota
	// FlagDamage marks new damage in either coordinate space.
	FlagDamage
	// FlagScale marks a buffer scale change.
	FlagScale
	// FlagTransform marks a buffer transform change.
	FlagTransform
	// FlagInput marks an input region change.
	FlagInput
	// FlagOpaque marks an opaque region change.
	FlagOpaque
	// FlagOffset marks an attach offset change.
	FlagOffset
	// FlagAcquire marks explicit sync points attached to the buffer.
	FlagAcquire
)

// BufferAttachment binds buffer content to one state generation, together
// with the explicit sync points governing when the compositor may read it
// and when the client learns it may write again.
type BufferAttachment struct {
	// Buf is the reference-counted content, nil for a null attach.
	Buf *buffer.Ref

	// Acquire is the explicit point the compositor waits on before
	// reading Buf. Nil for synchronous and implicitly-fenced buffers.
	Acquire *timeline.Point

	// Release is the explicit point signalled when the compositor is done
	// with Buf.
	Release *timeline.Point

	// Releaser is the one-shot trigger for Release, created at commit
	// validation so the release signal exists before the state applies.
	Releaser *timeline.Releaser
}

// Close finishes the attachment's buffer generation: the releaser fires so
// the producer learns the content is reusable, the content reference drops,
// and every field resets. Closing an empty attachment is a no-op, so the
// one-shot release guarantee holds no matter which path (replacement,
// discard, surface teardown) gets there first.
func (a *BufferAttachment) Close() {
	if a.Releaser != nil {
		a.Releaser.Release()
	}
	if a.Buf != nil {
		a.Buf.Release()
	}
	*a = BufferAttachment{}
}

// SurfaceState is one generation of surface state. Each surface owns
// exactly two long-lived instances (pending and current) plus the
// in-flight snapshots queued between commit and apply.
type SurfaceState struct {
	Flags StateFlags

	Buffer BufferAttachment

	// Size is the surface-local size derived at commit time from the
	// buffer size, transform and scale.
	Size image.Point

	// BufferSize is the raw pixel size of the attached buffer.
	BufferSize image.Point

	Scale     int32
	Transform buffer.Transform
	Offset    image.Point

	// Damage is surface-local; BufferDamage is buffer-local. Both
	// accumulate across mutations and are consumed by the apply.
	Damage       Region
	BufferDamage Region

	Input  Region
	Opaque Region
}

// newSurfaceState returns a state with protocol defaults.
func newSurfaceState() SurfaceState {
	return SurfaceState{Scale: 1}
}

// UpdateFrom merges o into s, copying only the fields o's flags mark as
// changed. Damage accumulates instead of replacing. The buffer attachment
// moves: after a merge with FlagBuffer set, s owns o's attachment and o
// must not close it.
func (s *SurfaceState) UpdateFrom(o *SurfaceState) {
	s.Flags |= o.Flags

	if o.Flags&FlagBuffer != 0 {
		s.Buffer = o.Buffer
		o.Buffer = BufferAttachment{}
		s.BufferSize = o.BufferSize
	}
	if o.Flags&(FlagBuffer|FlagScale|FlagTransform) != 0 {
		s.Size = o.Size
	}
	if o.Flags&FlagDamage != 0 {
		for _, r := range o.Damage.Rects() {
			s.Damage.Add(r)
		}
		for _, r := range o.BufferDamage.Rects() {
			s.BufferDamage.Add(r)
		}
	}
	if o.Flags&FlagScale != 0 {
		s.Scale = o.Scale
	}
	if o.Flags&FlagTransform != 0 {
		s.Transform = o.Transform
	}
	if o.Flags&FlagInput != 0 {
		s.Input = o.Input.Clone()
	}
	if o.Flags&FlagOpaque != 0 {
		s.Opaque = o.Opaque.Clone()
	}
	if o.Flags&FlagOffset != 0 {
		s.Offset = o.Offset
	}
}

// snapshot returns an independent copy of s and resets s for the next
// commit cycle: flags and damage clear, the buffer attachment moves into
// the snapshot. Scale, transform, offset and the regions persist as
// values, matching double-buffered protocol state.
func (s *SurfaceState) snapshot() *SurfaceState {
	snap := &SurfaceState{}
	*snap = *s
	snap.Damage = s.Damage.Clone()
	snap.BufferDamage = s.BufferDamage.Clone()
	snap.Input = s.Input.Clone()
	snap.Opaque = s.Opaque.Clone()

	s.Flags = 0
	s.Buffer = BufferAttachment{}
	s.Damage.Clear()
	s.BufferDamage.Clear()
	return snap
}
