package eventloop

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

// Loop errors.
var (
	// ErrAlreadyRunning is returned by Run when the loop is running.
	ErrAlreadyRunning = errors.New("eventloop: loop already running")

	// ErrStopped is returned by Post once the loop has been stopped.
	ErrStopped = errors.New("eventloop: loop stopped")

	// ErrClosed is returned when operating on a closed loop.
	ErrClosed = errors.New("eventloop: loop closed")
)

// WatchID identifies a registered readability watch.
// The zero WatchID is never assigned.
type WatchID uint64

type watch struct {
	id WatchID
	fd int
	fn func()
}

// Loop is a single-goroutine task executor with fd readability watches.
// Tasks and watch callbacks all run on the goroutine inside Run; Post and
// Stop are safe from any goroutine.
type Loop struct {
	poller *poller

	mu      sync.Mutex
	posted  []func()
	watches map[int]*watch
	nextID  WatchID
	stopped bool
	closed  bool

	running atomic.Bool
}

// New creates a loop. Fails on platforms without an fd watcher.
func New() (*Loop, error) {
	p, err := newPoller()
	if err != nil {
		return nil, err
	}
	return &Loop{
		poller:  p,
		watches: make(map[int]*watch),
		nextID:  1,
	}, nil
}

// Run executes tasks and watch callbacks until Stop is called or ctx is
// done, then drains the remaining posted tasks and returns ctx's error, if
// any. Only one Run at a time.
func (l *Loop) Run(ctx context.Context) error {
	if !l.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer l.running.Store(false)

	unwatch := context.AfterFunc(ctx, l.Stop)
	defer unwatch()

	for {
		l.runPosted()
		if l.isStopped() {
			l.runPosted()
			return ctx.Err()
		}
		ready, err := l.poller.wait(-1)
		if err != nil {
			return err
		}
		l.dispatch(ready)
	}
}

// Stop asks Run to return after the current cycle. Safe from any
// goroutine, idempotent. Tasks posted before Stop still run.
func (l *Loop) Stop() {
	l.mu.Lock()
	already := l.stopped
	l.stopped = true
	l.mu.Unlock()
	if !already {
		l.poller.wake()
	}
}

// Close releases the loop's descriptors. Stop the loop first; closing
// while Run is blocked makes Run return an error. Idempotent.
func (l *Loop) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	l.stopped = true
	l.watches = nil
	l.mu.Unlock()
	l.poller.close()
	return nil
}

// Post queues fn on the loop and wakes it. Safe from any goroutine; tasks
// run in post order.
func (l *Loop) Post(fn func()) error {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return ErrStopped
	}
	l.posted = append(l.posted, fn)
	l.mu.Unlock()
	l.poller.wake()
	return nil
}

// PostLocal queues fn without the cross-thread wake. Call it only from a
// task or watch callback already running on the loop; the loop drains the
// queue again before sleeping, so the task runs in the same cycle.
func (l *Loop) PostLocal(fn func()) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.stopped {
		return ErrStopped
	}
	l.posted = append(l.posted, fn)
	return nil
}

// OnReadable registers fn to run on the loop once fd is readable. The
// watch is one-shot: it disarms before fn runs, and re-watching takes
// another OnReadable. One watch per descriptor at a time.
func (l *Loop) OnReadable(fd int, fn func()) (WatchID, error) {
	if fd < 0 {
		return 0, fmt.Errorf("eventloop: invalid fd %d", fd)
	}
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return 0, ErrClosed
	}
	if _, busy := l.watches[fd]; busy {
		l.mu.Unlock()
		return 0, fmt.Errorf("eventloop: fd %d already watched", fd)
	}
	id := l.nextID
	l.nextID++
	l.watches[fd] = &watch{id: id, fd: fd, fn: fn}
	l.mu.Unlock()

	if err := l.poller.watch(fd); err != nil {
		l.mu.Lock()
		delete(l.watches, fd)
		l.mu.Unlock()
		return 0, fmt.Errorf("eventloop: watching fd %d: %w", fd, err)
	}
	return id, nil
}

// CancelWatch removes a pending watch. Returns false when no watch with
// that id remains (fired, cancelled, or zero).
func (l *Loop) CancelWatch(id WatchID) bool {
	if id == 0 {
		return false
	}
	l.mu.Lock()
	var found *watch
	for fd, w := range l.watches {
		if w.id == id {
			found = w
			delete(l.watches, fd)
			break
		}
	}
	l.mu.Unlock()
	if found == nil {
		return false
	}
	if err := l.poller.unwatch(found.fd); err != nil {
		slogger().Warn("unwatching cancelled fd failed", "fd", found.fd, "error", err)
	}
	return true
}

func (l *Loop) isStopped() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stopped
}

// runPosted drains the task queue, including tasks queued by the tasks
// themselves, then returns.
func (l *Loop) runPosted() {
	for {
		l.mu.Lock()
		tasks := l.posted
		l.posted = nil
		l.mu.Unlock()
		if len(tasks) == 0 {
			return
		}
		for _, fn := range tasks {
			fn()
		}
	}
}

// dispatch runs the callbacks of ready descriptors. Each watch is removed
// before its callback runs, so the callback can re-register the same fd.
func (l *Loop) dispatch(ready []int) {
	for _, fd := range ready {
		l.mu.Lock()
		w := l.watches[fd]
		if w != nil {
			delete(l.watches, fd)
		}
		l.mu.Unlock()
		if w == nil {
			continue
		}
		if err := l.poller.unwatch(fd); err != nil {
			slogger().Warn("unwatching fired fd failed", "fd", fd, "error", err)
		}
		w.fn()
	}
}
