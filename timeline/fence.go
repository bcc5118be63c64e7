//go:build !nogpu

package timeline

import (
	"time"

	"github.com/gogpu/wgpu/hal"
)

// fenceWaitTimeout bounds how long a Watch goroutine blocks on the device.
const fenceWaitTimeout = 5 * time.Second

// FenceTimeline exposes a hal fence as a Timeline, so device-side
// completion feeds the same waiter machinery as software and imported
// timelines.
//
// Watch bridges the two worlds: it waits for the fence on a goroutine and
// delivers the signal back through the post function, which keeps all
// waiter callbacks on the caller's event loop. The fence stays owned by
// the caller.
type FenceTimeline struct {
	*Timeline

	device hal.Device
	queue  hal.Queue
	fence  hal.Fence
	post   func(func())
}

// ImportFence wraps a hal fence. post is how fence signals re-enter the
// caller's goroutine, typically an event loop's Post; a nil post signals
// the timeline directly from the wait goroutine.
func ImportFence(device hal.Device, queue hal.Queue, fence hal.Fence, post func(func())) *FenceTimeline {
	return &FenceTimeline{
		Timeline: New(),
		device:   device,
		queue:    queue,
		fence:    fence,
		post:     post,
	}
}

// Watch starts a bounded wait for the fence to reach value and signals the
// timeline when it does. One goroutine per call; a timed-out or failed
// wait logs and leaves the timeline unsignaled.
func (f *FenceTimeline) Watch(value uint64) {
	go func() {
		ok, err := f.device.Wait(f.fence, value, fenceWaitTimeout)
		if err != nil {
			slogger().Error("fence wait failed", "value", value, "error", err)
			return
		}
		if !ok {
			slogger().Warn("fence wait timed out", "value", value, "timeout", fenceWaitTimeout)
			return
		}
		if f.post != nil {
			f.post(func() { f.Signal(value) })
			return
		}
		f.Signal(value)
	}()
}

// SignalDevice signals the fence at value from the device queue with an
// empty submission.
func (f *FenceTimeline) SignalDevice(value uint64) error {
	return f.queue.Submit(nil, f.fence, value)
}
