package waysync

import (
	"testing"
	"time"
)

func TestSignalRegisterUnregister(t *testing.T) {
	var s Signal
	n := 0
	id := s.Register(func() { n++ })
	if !id.Valid() {
		t.Fatal("Register returned an invalid ID")
	}

	s.emit()
	if n != 1 {
		t.Fatalf("listener ran %d times, want 1", n)
	}

	if !s.Unregister(id) {
		t.Error("Unregister missed a live listener")
	}
	s.emit()
	if n != 1 {
		t.Error("unregistered listener still runs")
	}
	if s.Unregister(id) {
		t.Error("second Unregister claimed success")
	}
}

func TestSignalNilListener(t *testing.T) {
	var s Signal
	if id := s.Register(nil); id.Valid() {
		t.Error("nil listener produced a valid ID")
	}
	s.emit()
}

func TestSignalUnregisterDuringEmit(t *testing.T) {
	var s Signal
	ran := 0
	var self ListenerID
	self = s.Register(func() {
		ran++
		s.Unregister(self)
	})

	s.emit()
	s.emit()
	if ran != 1 {
		t.Errorf("self-removing listener ran %d times, want 1", ran)
	}
}

func TestSignalRegisterDuringEmitNotSeen(t *testing.T) {
	var s Signal
	late := 0
	s.Register(func() {
		s.Register(func() { late++ })
	})

	s.emit()
	if late != 0 {
		t.Error("listener added during emit ran in the same emit")
	}
	s.emit()
	if late == 0 {
		t.Error("listener added during emit never ran")
	}
}

func TestFrameCallbacksDeliverInOrder(t *testing.T) {
	s := newTestSurface(t)

	var order []int
	s.Frame(func(time.Time) { order = append(order, 1) })
	s.Frame(func(time.Time) { order = append(order, 2) })
	s.Frame(func(time.Time) { order = append(order, 3) })

	now := time.Now()
	s.FrameDone(now)
	if len(order) != 3 || order[0] != 1 || order[1] != 2 || order[2] != 3 {
		t.Fatalf("callback order = %v", order)
	}

	s.FrameDone(now)
	if len(order) != 3 {
		t.Error("drained callbacks ran again")
	}
}

func TestFrameCallbackRequeueDuringDelivery(t *testing.T) {
	s := newTestSurface(t)

	redelivered := false
	s.Frame(func(time.Time) {
		s.Frame(func(time.Time) { redelivered = true })
	})

	s.FrameDone(time.Now())
	if redelivered {
		t.Fatal("callback queued during delivery ran in the same frame")
	}
	s.FrameDone(time.Now())
	if !redelivered {
		t.Error("callback queued during delivery was lost")
	}
}
