package buffer

import (
	"errors"
	"fmt"
	"image"

	"github.com/gogpu/gputypes"
)

// Buffer errors.
var (
	// ErrNoSyncFile is returned when a buffer cannot export an implicit
	// fence: shared-memory buffers never can, dmabufs can't without an
	// exporter.
	ErrNoSyncFile = errors.New("buffer: no sync file available")
)

// Transform enumerates the eight output transforms a surface can request
// for its buffer, the four rotations and their flipped variants.
type Transform int32

const (
	TransformNormal Transform = iota
	Transform90
	Transform180
	Transform270
	TransformFlipped
	TransformFlipped90
	TransformFlipped180
	TransformFlipped270
)

// Swapped reports whether the transform exchanges width and height.
func (t Transform) Swapped() bool { return t&1 == 1 }

// Buffer is client-provided surface content.
type Buffer interface {
	// Size returns the buffer dimensions in pixels.
	Size() (width, height int)

	// Format returns the pixel format.
	Format() gputypes.TextureFormat

	// Synchronous reports whether the content is readable immediately on
	// commit, without waiting on any fence.
	Synchronous() bool

	// ExportSyncFile exports the buffer's implicit fence as a pollable
	// file descriptor that becomes readable when the content is ready.
	// The caller owns the descriptor. Returns ErrNoSyncFile when the
	// buffer has no implicit fence to offer.
	ExportSyncFile() (int, error)
}

// SHMBuffer is a shared-memory buffer: synchronous, with its pixels
// directly addressable.
type SHMBuffer struct {
	width  int
	height int
	stride int
	format gputypes.TextureFormat
	pixels []byte
}

// NewSHMBuffer wraps a pixel slab as a shared-memory buffer. The stride is
// in bytes and must cover a full row; pixels must cover stride*height
// bytes. Only 4-byte-per-pixel formats are supported.
func NewSHMBuffer(width, height, stride int, format gputypes.TextureFormat, pixels []byte) (*SHMBuffer, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("buffer: shm dimensions must be positive, got %dx%d", width, height)
	}
	if format != gputypes.TextureFormatRGBA8Unorm && format != gputypes.TextureFormatBGRA8Unorm {
		return nil, fmt.Errorf("buffer: unsupported shm format %v", format)
	}
	if stride < width*4 {
		return nil, fmt.Errorf("buffer: stride %d too small for width %d", stride, width)
	}
	if len(pixels) < stride*height {
		return nil, fmt.Errorf("buffer: pixel slab holds %d bytes, need %d", len(pixels), stride*height)
	}
	return &SHMBuffer{width: width, height: height, stride: stride, format: format, pixels: pixels}, nil
}

// Size returns the buffer dimensions in pixels.
func (b *SHMBuffer) Size() (int, int) { return b.width, b.height }

// Format returns the pixel format.
func (b *SHMBuffer) Format() gputypes.TextureFormat { return b.format }

// Synchronous always reports true for shared memory.
func (b *SHMBuffer) Synchronous() bool { return true }

// ExportSyncFile always fails: shared memory carries no implicit fence.
func (b *SHMBuffer) ExportSyncFile() (int, error) { return -1, ErrNoSyncFile }

// Stride returns the row length in bytes.
func (b *SHMBuffer) Stride() int { return b.stride }

// Pixels returns the raw pixel slab.
func (b *SHMBuffer) Pixels() []byte { return b.pixels }

// RGBA returns an image view over the pixel slab without copying. BGRA
// content keeps its byte order; consumers that care swizzle at upload time.
func (b *SHMBuffer) RGBA() *image.RGBA {
	return &image.RGBA{
		Pix:    b.pixels,
		Stride: b.stride,
		Rect:   image.Rect(0, 0, b.width, b.height),
	}
}

// SyncFileExporter turns a dmabuf's plane descriptors into a pollable sync
// file. The kernel-facing side of implicit synchronization lives behind
// this interface; the library never issues ioctls itself.
type SyncFileExporter interface {
	ExportSyncFile(planeFDs []int) (int, error)
}

// DMABuffer is a GPU buffer shared by file descriptor: asynchronous, its
// readiness signalled by fences rather than by the commit itself.
type DMABuffer struct {
	width    int
	height   int
	format   gputypes.TextureFormat
	planes   []int
	exporter SyncFileExporter
}

// NewDMABuffer wraps dmabuf plane descriptors. exporter supplies implicit
// fences; with a nil exporter ExportSyncFile reports ErrNoSyncFile and
// commits waiting on this buffer degrade to immediate application.
func NewDMABuffer(width, height int, format gputypes.TextureFormat, planeFDs []int, exporter SyncFileExporter) (*DMABuffer, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("buffer: dmabuf dimensions must be positive, got %dx%d", width, height)
	}
	if len(planeFDs) == 0 {
		return nil, fmt.Errorf("buffer: dmabuf needs at least one plane")
	}
	for i, fd := range planeFDs {
		if fd < 0 {
			return nil, fmt.Errorf("buffer: dmabuf plane %d has invalid fd %d", i, fd)
		}
	}
	planes := make([]int, len(planeFDs))
	copy(planes, planeFDs)
	return &DMABuffer{width: width, height: height, format: format, planes: planes, exporter: exporter}, nil
}

// Size returns the buffer dimensions in pixels.
func (b *DMABuffer) Size() (int, int) { return b.width, b.height }

// Format returns the pixel format.
func (b *DMABuffer) Format() gputypes.TextureFormat { return b.format }

// Synchronous always reports false for dmabufs.
func (b *DMABuffer) Synchronous() bool { return false }

// ExportSyncFile exports the buffer's implicit fence through the exporter.
func (b *DMABuffer) ExportSyncFile() (int, error) {
	if b.exporter == nil {
		return -1, ErrNoSyncFile
	}
	return b.exporter.ExportSyncFile(b.PlaneFDs())
}

// PlaneFDs returns a copy of the plane descriptors.
func (b *DMABuffer) PlaneFDs() []int {
	planes := make([]int, len(b.planes))
	copy(planes, b.planes)
	return planes
}
