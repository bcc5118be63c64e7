package buffer

import (
	"image"

	"golang.org/x/image/draw"

	"github.com/gogpu/gputypes"
)

// mirror is the optional GPU shadow of a Texture's pixel store. The hal
// implementation lives behind the nogpu build tag.
type mirror interface {
	resize(width, height int, format gputypes.TextureFormat) error
	upload(img *image.RGBA, rects []image.Rectangle)
	destroy()
}

// Texture is the compositor-side copy of a surface's synchronous content.
// UpdateFromSHM keeps it current with the client's shared-memory buffer,
// copying only the damaged rows; the full store is rebuilt when the buffer
// changes size or format. With a device provider set, every update is
// mirrored into a GPU texture as well.
type Texture struct {
	store     *image.RGBA
	format    gputypes.TextureFormat
	transform Transform
	gpu       mirror
}

// NewTexture returns an empty texture. The pixel store is allocated on the
// first update.
func NewTexture() *Texture {
	return &Texture{format: gputypes.TextureFormatUndefined}
}

// Size returns the store dimensions, or zeros before the first update.
func (t *Texture) Size() (int, int) {
	if t.store == nil {
		return 0, 0
	}
	b := t.store.Bounds()
	return b.Dx(), b.Dy()
}

// Format returns the pixel format of the last update.
func (t *Texture) Format() gputypes.TextureFormat { return t.format }

// Image returns the pixel store, or nil before the first update.
func (t *Texture) Image() *image.RGBA { return t.store }

// Transform returns the texture's display transform.
func (t *Texture) Transform() Transform { return t.transform }

// SetTransform records the display transform. Metadata only; pixels are
// stored untransformed.
func (t *Texture) SetTransform(tr Transform) { t.transform = tr }

// UpdateFromSHM copies buf into the texture. damage lists the changed
// buffer rectangles; an empty list, like a resize, means a full copy.
// Rectangles are clipped to the buffer bounds.
func (t *Texture) UpdateFromSHM(buf *SHMBuffer, damage []image.Rectangle) {
	w, h := buf.Size()
	bounds := image.Rect(0, 0, w, h)

	full := len(damage) == 0
	if t.store == nil || t.store.Bounds() != bounds || t.format != buf.Format() {
		t.store = image.NewRGBA(bounds)
		t.format = buf.Format()
		full = true
		if t.gpu != nil {
			if err := t.gpu.resize(w, h, t.format); err != nil {
				slogger().Warn("resizing texture mirror failed", "error", err)
			}
		}
	}

	src := buf.RGBA()
	if full {
		draw.Copy(t.store, image.Point{}, src, bounds, draw.Src, nil)
		if t.gpu != nil {
			t.gpu.upload(t.store, []image.Rectangle{bounds})
		}
		return
	}

	uploaded := make([]image.Rectangle, 0, len(damage))
	for _, r := range damage {
		r = r.Intersect(bounds)
		if r.Empty() {
			continue
		}
		draw.Copy(t.store, r.Min, src, r, draw.Src, nil)
		uploaded = append(uploaded, r)
	}
	if t.gpu != nil && len(uploaded) > 0 {
		t.gpu.upload(t.store, uploaded)
	}
}

// Destroy releases the pixel store and any GPU mirror.
func (t *Texture) Destroy() {
	if t.gpu != nil {
		t.gpu.destroy()
		t.gpu = nil
	}
	t.store = nil
	t.format = gputypes.TextureFormatUndefined
}
