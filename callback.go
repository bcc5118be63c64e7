package waysync

import "time"

// FrameCallback is notified once when the surface should draw its next
// frame.
type FrameCallback func(now time.Time)

// Frame queues cb for the next frame-done delivery. Callbacks fire in
// registration order and exactly once.
func (s *Surface) Frame(cb FrameCallback) {
	if cb == nil {
		return
	}
	s.frameCallbacks = append(s.frameCallbacks, cb)
}

// FrameDone delivers and clears the queued frame callbacks. The surface
// owner calls it on visibility changes and presentation feedback.
func (s *Surface) FrameDone(now time.Time) {
	if len(s.frameCallbacks) == 0 {
		return
	}
	cbs := s.frameCallbacks
	s.frameCallbacks = nil
	for _, cb := range cbs {
		cb(now)
	}
}
