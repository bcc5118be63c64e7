//go:build !nogpu

package buffer

import (
	"fmt"
	"image"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/types"
)

// SetDevice attaches a GPU mirror to the texture using the shared device
// from dev. The handle must expose HAL types through HalDevice() any and
// HalQueue() any returning hal.Device and hal.Queue (gogpu devices do).
// The current store, if any, is uploaded right away. Passing nil detaches
// the mirror.
func (t *Texture) SetDevice(dev DeviceHandle) error {
	if dev == nil {
		if t.gpu != nil {
			t.gpu.destroy()
			t.gpu = nil
		}
		return nil
	}
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := dev.(halProvider)
	if !ok {
		return fmt.Errorf("buffer: device handle does not expose HAL types")
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return fmt.Errorf("buffer: device handle HalDevice is not hal.Device")
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return fmt.Errorf("buffer: device handle HalQueue is not hal.Queue")
	}

	if t.gpu != nil {
		t.gpu.destroy()
	}
	m := &halMirror{device: device, queue: queue}
	if t.store != nil {
		b := t.store.Bounds()
		if err := m.resize(b.Dx(), b.Dy(), t.format); err != nil {
			return err
		}
		m.upload(t.store, []image.Rectangle{b})
	}
	t.gpu = m
	return nil
}

// halMirror shadows the pixel store in a GPU texture.
type halMirror struct {
	device hal.Device
	queue  hal.Queue
	tex    hal.Texture
}

func (m *halMirror) resize(width, height int, format gputypes.TextureFormat) error {
	if m.tex != nil {
		m.device.DestroyTexture(m.tex)
		m.tex = nil
	}

	desc := &hal.TextureDescriptor{
		Label: "waysync surface content",
		Size: hal.Extent3D{
			Width:              uint32(width),
			Height:             uint32(height),
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     types.TextureDimension2D,
		Format:        format,
		Usage:         types.TextureUsageCopyDst | types.TextureUsageTextureBinding,
	}

	tex, err := m.device.CreateTexture(desc)
	if err != nil {
		return fmt.Errorf("buffer: creating mirror texture: %w", err)
	}
	m.tex = tex
	return nil
}

// upload writes the given store rectangles into the GPU texture. Each
// rectangle is written from the shared store with the full row stride, so
// only its own rows travel.
func (m *halMirror) upload(img *image.RGBA, rects []image.Rectangle) {
	if m.tex == nil {
		return
	}
	for _, r := range rects {
		if r.Empty() {
			continue
		}
		data := img.Pix[img.PixOffset(r.Min.X, r.Min.Y):]
		m.queue.WriteTexture(
			&hal.ImageCopyTexture{
				Texture:  m.tex,
				MipLevel: 0,
				Origin:   hal.Origin3D{X: uint32(r.Min.X), Y: uint32(r.Min.Y), Z: 0},
				Aspect:   types.TextureAspectAll,
			},
			data,
			&hal.ImageDataLayout{
				Offset:       0,
				BytesPerRow:  uint32(img.Stride),
				RowsPerImage: uint32(r.Dy()),
			},
			&hal.Extent3D{
				Width:              uint32(r.Dx()),
				Height:             uint32(r.Dy()),
				DepthOrArrayLayers: 1,
			},
		)
	}
}

func (m *halMirror) destroy() {
	if m.tex != nil {
		m.device.DestroyTexture(m.tex)
		m.tex = nil
	}
}
