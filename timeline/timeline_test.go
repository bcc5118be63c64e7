package timeline

import (
	"errors"
	"testing"
)

func TestNewStartsAtZero(t *testing.T) {
	tl := New()
	if got := tl.Value(); got != 0 {
		t.Errorf("Value() = %d, want 0", got)
	}
	if tl.Destroyed() {
		t.Error("new timeline reports destroyed")
	}
}

func TestSignalMonotonic(t *testing.T) {
	tl := New()
	tl.Signal(5)
	if got := tl.Value(); got != 5 {
		t.Fatalf("Value() = %d, want 5", got)
	}

	// A lower signal must not move the value backwards.
	tl.Signal(3)
	if got := tl.Value(); got != 5 {
		t.Errorf("Value() after Signal(3) = %d, want 5", got)
	}

	tl.Signal(9)
	if got := tl.Value(); got != 9 {
		t.Errorf("Value() = %d, want 9", got)
	}
}

func TestAddWaiterFiresOnSignal(t *testing.T) {
	tl := New()
	fired := 0
	id, ok := tl.AddWaiter(3, 0, func() { fired++ })
	if !ok {
		t.Fatal("AddWaiter returned ok = false")
	}
	if id == 0 {
		t.Fatal("expected a non-zero WaiterID for a deferred waiter")
	}
	if fired != 0 {
		t.Fatalf("waiter fired before signal, fired = %d", fired)
	}

	tl.Signal(2)
	if fired != 0 {
		t.Fatalf("waiter fired at value 2, fired = %d", fired)
	}

	tl.Signal(3)
	if fired != 1 {
		t.Fatalf("fired = %d after Signal(3), want 1", fired)
	}

	// Re-signalling past the value must not fire the waiter again.
	tl.Signal(10)
	if fired != 1 {
		t.Errorf("fired = %d after Signal(10), want 1", fired)
	}
}

func TestAddWaiterAlreadySatisfied(t *testing.T) {
	tl := New()
	tl.Signal(4)

	fired := false
	id, ok := tl.AddWaiter(4, 0, func() { fired = true })
	if !ok {
		t.Fatal("AddWaiter returned ok = false")
	}
	if !fired {
		t.Error("waiter at a reached value did not fire synchronously")
	}
	if id != 0 {
		t.Errorf("WaiterID = %d for a synchronous fire, want 0", id)
	}
}

func TestWaitersFireInRegistrationOrder(t *testing.T) {
	tl := New()
	var order []string
	tl.AddWaiter(1, 0, func() { order = append(order, "a") })
	tl.AddWaiter(3, 0, func() { order = append(order, "b") })
	tl.AddWaiter(2, 0, func() { order = append(order, "c") })

	tl.Signal(3)

	want := []string{"a", "b", "c"}
	if len(order) != len(want) {
		t.Fatalf("fired %d waiters, want %d", len(order), len(want))
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("order[%d] = %q, want %q", i, order[i], want[i])
		}
	}
}

func TestWaiterMayReenterTimeline(t *testing.T) {
	tl := New()
	var chained bool
	tl.AddWaiter(1, 0, func() {
		// Registering from inside a firing waiter must not deadlock.
		tl.AddWaiter(1, 0, func() { chained = true })
	})

	tl.Signal(1)
	if !chained {
		t.Error("waiter registered from a callback did not fire")
	}
}

func TestRemoveWaiter(t *testing.T) {
	tl := New()
	var first, second bool
	id1, _ := tl.AddWaiter(1, 0, func() { first = true })
	tl.AddWaiter(1, 0, func() { second = true })

	if !tl.RemoveWaiter(id1) {
		t.Fatal("RemoveWaiter(id1) = false, want true")
	}
	if tl.RemoveWaiter(id1) {
		t.Error("removing the same waiter twice succeeded")
	}
	if tl.RemoveWaiter(0) {
		t.Error("RemoveWaiter(0) succeeded")
	}

	tl.Signal(1)
	if first {
		t.Error("removed waiter fired")
	}
	if !second {
		t.Error("remaining waiter did not fire")
	}
}

func TestRemoveAllWaiters(t *testing.T) {
	tl := New()
	fired := 0
	tl.AddWaiter(1, 0, func() { fired++ })
	tl.AddWaiter(2, 0, func() { fired++ })

	tl.RemoveAllWaiters()
	tl.Signal(5)
	if fired != 0 {
		t.Errorf("fired = %d after RemoveAllWaiters, want 0", fired)
	}
}

func TestDestroyDropsWaitersWithoutInvoking(t *testing.T) {
	tl := New()
	fired := false
	tl.AddWaiter(1, 0, func() { fired = true })

	tl.Destroy()
	if fired {
		t.Error("Destroy invoked a pending waiter")
	}
	if !tl.Destroyed() {
		t.Error("Destroyed() = false after Destroy")
	}

	// Further operations fail softly.
	tl.Signal(1)
	if fired {
		t.Error("Signal after Destroy invoked a dropped waiter")
	}
	if _, ok := tl.AddWaiter(1, 0, func() {}); ok {
		t.Error("AddWaiter succeeded on a destroyed timeline")
	}

	// Idempotent.
	tl.Destroy()
}

func TestImportValidatesDescriptors(t *testing.T) {
	if _, err := Import(-1, 3); !errors.Is(err, ErrInvalidFD) {
		t.Errorf("Import(-1, 3) error = %v, want ErrInvalidFD", err)
	}
	if _, err := Import(3, -1); !errors.Is(err, ErrInvalidFD) {
		t.Errorf("Import(3, -1) error = %v, want ErrInvalidFD", err)
	}
}

func TestWaitForSubmitFlagAccepted(t *testing.T) {
	tl := New()
	fired := false
	if _, ok := tl.AddWaiter(1, WaitForSubmit, func() { fired = true }); !ok {
		t.Fatal("AddWaiter with WaitForSubmit returned ok = false")
	}
	tl.Signal(1)
	if !fired {
		t.Error("waiter with WaitForSubmit did not fire")
	}
}
