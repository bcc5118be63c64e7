package waysync

import (
	"image"
	"math"
)

// infiniteRect covers every representable coordinate. Attaching a buffer of
// a new size, changing scale or transform, and mapping all damage the whole
// surface with it.
var infiniteRect = image.Rect(0, 0, math.MaxInt32, math.MaxInt32)

// Region is a thin rectangle list used for damage accumulation and for the
// input and opaque surface regions. It deliberately stops short of full
// region arithmetic (merging, subtraction); the compositor's damage tracker
// owns that.
//
// The zero value is an empty region ready to use.
type Region struct {
	rects []image.Rectangle
}

// Add appends rect to the region. Empty rectangles are ignored.
func (r *Region) Add(rect image.Rectangle) {
	if rect.Empty() {
		return
	}
	r.rects = append(r.rects, rect)
}

// Intersect clips every rectangle to bounds, dropping the ones that fall
// entirely outside.
func (r *Region) Intersect(bounds image.Rectangle) {
	kept := r.rects[:0]
	for _, rect := range r.rects {
		if c := rect.Intersect(bounds); !c.Empty() {
			kept = append(kept, c)
		}
	}
	r.rects = kept
}

// Clear empties the region, keeping its backing storage.
func (r *Region) Clear() {
	r.rects = r.rects[:0]
}

// Empty reports whether the region contains no rectangles.
func (r *Region) Empty() bool {
	return len(r.rects) == 0
}

// Rects returns the region's rectangles. The slice is owned by the region
// and valid until the next mutation.
func (r *Region) Rects() []image.Rectangle {
	return r.rects
}

// Clone returns an independent copy of the region.
func (r *Region) Clone() Region {
	if len(r.rects) == 0 {
		return Region{}
	}
	out := make([]image.Rectangle, len(r.rects))
	copy(out, r.rects)
	return Region{rects: out}
}
