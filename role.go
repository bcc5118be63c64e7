package waysync

import (
	"image"

	"golang.org/x/image/draw"

	"github.com/gogpu/waysync/buffer"
)

// RoleKind discriminates surface roles.
type RoleKind uint8

const (
	// RoleNone is the default before any role is assigned.
	RoleNone RoleKind = iota
	// RoleSubsurface marks a child surface positioned inside a parent.
	RoleSubsurface
	// RoleCursor marks a surface whose content drives a pointer image.
	RoleCursor
)

// Role is the small capability interface surface roles implement. A role
// is assigned once through Surface.SetRole and lives as long as the
// surface.
type Role interface {
	Kind() RoleKind
}

// defaultRole is the unassigned placeholder every surface starts with.
type defaultRole struct{}

func (defaultRole) Kind() RoleKind { return RoleNone }

// SubsurfaceRole places a surface inside a parent surface's tree.
type SubsurfaceRole struct {
	// Parent is the surface this subsurface belongs to. Nil once the
	// parent has been destroyed.
	Parent *Surface

	// Synchronized holds commit visibility back until the parent's own
	// commit flushes it.
	Synchronized bool

	// Z orders siblings, lowest first. Negative values draw below the
	// parent.
	Z int
}

func (*SubsurfaceRole) Kind() RoleKind { return RoleSubsurface }

// CursorRole mirrors the surface's synchronous content into a CPU pixel
// buffer for the pointer plane.
type CursorRole struct {
	// Hotspot is the cursor hotspot in surface coordinates.
	Hotspot image.Point

	mirror *image.RGBA
}

func (*CursorRole) Kind() RoleKind { return RoleCursor }

// Pixels returns the mirrored cursor content. Nil before the first
// synchronous commit, or when mirroring is disabled.
func (c *CursorRole) Pixels() *image.RGBA { return c.mirror }

// updateMirror copies the damaged rectangles of buf into the mirror,
// reallocating and copying everything when the size changes.
func (c *CursorRole) updateMirror(buf *buffer.SHMBuffer, damage []image.Rectangle) {
	src := buf.RGBA()
	bounds := src.Bounds()
	full := len(damage) == 0
	if c.mirror == nil || c.mirror.Bounds() != bounds {
		c.mirror = image.NewRGBA(bounds)
		full = true
	}
	if full {
		draw.Copy(c.mirror, bounds.Min, src, bounds, draw.Src, nil)
		return
	}
	for _, r := range damage {
		r = r.Intersect(bounds)
		if r.Empty() {
			continue
		}
		draw.Copy(c.mirror, r.Min, src, r, draw.Src, nil)
	}
}
