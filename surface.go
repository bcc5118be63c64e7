package waysync

import (
	"image"
	"slices"
	"time"

	"github.com/gogpu/waysync/buffer"
	"github.com/gogpu/waysync/internal/handle"
)

// Handle identifies a Surface in the package registry. Handles are stable
// identifiers that miss once the surface is destroyed, which is what makes
// a late fence callback a safe no-op.
type Handle = handle.Handle

// surfaces is the live-surface registry, loop-affine like every Surface
// method.
var surfaces handle.Map[*Surface]

// FromHandle resolves h to a live surface, reporting false when it has
// been destroyed.
func FromHandle(h Handle) (*Surface, bool) {
	return surfaces.Get(h)
}

// Surface is one client surface: double-buffered state, the in-flight
// commit queue, a role, and the compositor-side texture of its synchronous
// content.
//
// All methods are loop-affine; see the package documentation.
type Surface struct {
	// Events exposes the surface's lifecycle signals.
	Events Events

	handle Handle
	client *Client

	pending SurfaceState
	current SurfaceState

	queue     []*inflight
	commitSeq uint64

	role     Role
	children []*Surface

	texture *buffer.Texture

	frameCallbacks []FrameCallback

	rejected bool
	mapped   bool
	dead     bool
}

// NewSurface creates a surface owned by c and registers it.
func NewSurface(c *Client) *Surface {
	s := &Surface{
		client:  c,
		pending: newSurfaceState(),
		current: newSurfaceState(),
		role:    defaultRole{},
		texture: buffer.NewTexture(),
	}
	s.handle = surfaces.Insert(s)
	slogger().Debug("surface created", "client", c.Trace())
	return s
}

// Handle returns the surface's registry handle.
func (s *Surface) Handle() Handle { return s.handle }

// Client returns the owning client.
func (s *Surface) Client() *Client { return s.client }

// Texture returns the compositor-side copy of the surface's synchronous
// content.
func (s *Surface) Texture() *buffer.Texture { return s.texture }

// Pending returns the state accumulating mutations for the next commit.
// Role and protocol adapters mutate it; everything else treats it as
// read-only.
func (s *Surface) Pending() *SurfaceState { return &s.pending }

// Current returns the last fully-applied state.
func (s *Surface) Current() *SurfaceState { return &s.current }

// Destroyed reports whether Destroy has run.
func (s *Surface) Destroyed() bool { return s.dead }

// Mapped reports whether the surface is visible.
func (s *Surface) Mapped() bool { return s.mapped }

// SetRole assigns the surface's role. A surface takes at most one role in
// its lifetime; a second assignment fails with ErrRoleExists. Assigning a
// subsurface role links the surface into its parent's tree.
func (s *Surface) SetRole(r Role) error {
	if r == nil || r.Kind() == RoleNone {
		return nil
	}
	if s.role.Kind() != RoleNone {
		return ErrRoleExists
	}
	s.role = r
	if sub, ok := r.(*SubsurfaceRole); ok && sub.Parent != nil {
		sub.Parent.adoptChild(s)
	}
	slogger().Debug("surface role assigned",
		"client", s.client.Trace(), "kind", r.Kind())
	return nil
}

// Role returns the surface's role; its Kind is RoleNone until SetRole.
func (s *Surface) Role() Role { return s.role }

// Subsurfaces returns the surface's direct subsurfaces, lowest z first.
func (s *Surface) Subsurfaces() []*Surface {
	return slices.Clone(s.children)
}

func (s *Surface) adoptChild(child *Surface) {
	s.children = append(s.children, child)
	slices.SortStableFunc(s.children, func(a, b *Surface) int {
		return subsurfaceZ(a) - subsurfaceZ(b)
	})
}

func (s *Surface) removeChild(child *Surface) {
	s.children = slices.DeleteFunc(s.children, func(c *Surface) bool {
		return c == child
	})
}

func subsurfaceZ(s *Surface) int {
	if sub, ok := s.role.(*SubsurfaceRole); ok {
		return sub.Z
	}
	return 0
}

// eachCommitTarget visits s and then, breadth-first, every descendant
// whose visibility this surface's commit flushes: synchronized
// subsurfaces. Desynchronized children are skipped (they emit on their own
// applies) but their subtrees are still walked.
func (s *Surface) eachCommitTarget(fn func(*Surface)) {
	fn(s)
	queue := slices.Clone(s.children)
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		if n.dead {
			continue
		}
		if sub, ok := n.role.(*SubsurfaceRole); ok && sub.Synchronized {
			fn(n)
		}
		queue = append(queue, n.children...)
	}
}

// Attach replaces the pending buffer and sets the attach offset. Attach
// takes ownership of ref's reference. A nil ref is a null attach: at the
// next commit it discards all queued commits and clears the content.
// Attaching a buffer of a different size than the current one damages the
// whole surface.
func (s *Surface) Attach(ref *buffer.Ref, offset image.Point) {
	if s.dead {
		if ref != nil {
			ref.Release()
		}
		slogger().Warn("attach on destroyed surface ignored", "client", s.client.Trace())
		return
	}
	p := &s.pending
	p.Flags |= FlagBuffer | FlagOffset
	p.Offset = offset
	p.Buffer.Close()
	if ref != nil {
		w, h := ref.Buffer().Size()
		p.Buffer.Buf = ref
		p.BufferSize = image.Pt(w, h)
	} else {
		p.BufferSize = image.Point{}
	}
	if p.BufferSize != s.current.BufferSize {
		p.Flags |= FlagDamage
		p.BufferDamage.Clear()
		p.BufferDamage.Add(infiniteRect)
	}
}

// Damage adds a surface-local damage rectangle to the pending state.
func (s *Surface) Damage(rect image.Rectangle) {
	s.pending.Flags |= FlagDamage
	s.pending.Damage.Add(rect)
}

// DamageBuffer adds a buffer-local damage rectangle to the pending state.
func (s *Surface) DamageBuffer(rect image.Rectangle) {
	s.pending.Flags |= FlagDamage
	s.pending.BufferDamage.Add(rect)
}

// SetScale sets the pending buffer scale. Scales below one are a client
// bug and are ignored. A scale change damages the whole buffer.
func (s *Surface) SetScale(scale int32) {
	if scale == s.pending.Scale {
		return
	}
	if scale < 1 {
		slogger().Error("ignoring invalid buffer scale",
			"client", s.client.Trace(), "scale", scale)
		return
	}
	s.pending.Flags |= FlagScale | FlagDamage
	s.pending.Scale = scale
	s.pending.BufferDamage.Clear()
	s.pending.BufferDamage.Add(infiniteRect)
}

// SetTransform sets the pending buffer transform. A transform change
// damages the whole buffer.
func (s *Surface) SetTransform(tr buffer.Transform) {
	if tr == s.pending.Transform {
		return
	}
	s.pending.Flags |= FlagTransform | FlagDamage
	s.pending.Transform = tr
	s.pending.BufferDamage.Clear()
	s.pending.BufferDamage.Add(infiniteRect)
}

// SetInputRegion sets the pending input region. Nil means the whole
// surface accepts input.
func (s *Surface) SetInputRegion(r *Region) {
	s.pending.Flags |= FlagInput
	s.pending.Input.Clear()
	if r == nil {
		s.pending.Input.Add(infiniteRect)
		return
	}
	s.pending.Input = r.Clone()
}

// SetOpaqueRegion sets the pending opaque region. Nil means nothing is
// known to be opaque.
func (s *Surface) SetOpaqueRegion(r *Region) {
	s.pending.Flags |= FlagOpaque
	s.pending.Opaque.Clear()
	if r != nil {
		s.pending.Opaque = r.Clone()
	}
}

// Offset sets the pending attach offset without touching the buffer.
func (s *Surface) Offset(offset image.Point) {
	s.pending.Flags |= FlagOffset
	s.pending.Offset = offset
}

// RejectPending marks the in-progress commit rejected. Only meaningful
// from a PreCommit listener; Commit drops the pending buffer and applies
// nothing.
func (s *Surface) RejectPending() {
	s.rejected = true
}

// Map makes the surface visible. Queued frame callbacks fire, and both
// state slots take full damage so the first presented frame uploads
// everything.
func (s *Surface) Map() {
	if s.mapped || s.dead {
		return
	}
	s.mapped = true
	s.FrameDone(time.Now())
	s.current.BufferDamage.Clear()
	s.current.BufferDamage.Add(infiniteRect)
	s.pending.BufferDamage.Clear()
	s.pending.BufferDamage.Add(infiniteRect)
	slogger().Debug("surface mapped", "client", s.client.Trace())
}

// Unmap hides the surface and releases the current buffer. Some protocol
// paths unmap without ever attaching a null buffer, so the release happens
// here rather than waiting for one.
func (s *Surface) Unmap() {
	if !s.mapped {
		return
	}
	s.mapped = false
	s.current.Buffer.Close()
	slogger().Debug("surface unmapped", "client", s.client.Trace())
}

// Destroy tears the surface down: every queued commit is discarded with
// its waiters cancelled, both state slots release their buffers, the
// destroy signal fires, and the handle is unregistered so late callbacks
// miss.
func (s *Surface) Destroy() {
	if s.dead {
		return
	}
	if s.mapped {
		s.Unmap()
	}
	s.Events.Destroy.emit()
	s.DiscardQueued()
	s.pending.Buffer.Close()
	s.current.Buffer.Close()
	s.texture.Destroy()
	s.frameCallbacks = nil

	for _, c := range s.children {
		if sub, ok := c.role.(*SubsurfaceRole); ok {
			sub.Parent = nil
		}
	}
	s.children = nil
	if sub, ok := s.role.(*SubsurfaceRole); ok && sub.Parent != nil {
		sub.Parent.removeChild(s)
	}

	surfaces.Delete(s.handle)
	s.dead = true
	slogger().Debug("surface destroyed", "client", s.client.Trace())
}
