//go:build linux

package eventloop

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/sys/unix"
)

// poller is the epoll-backed fd watcher. A dedicated eventfd, registered
// level-triggered, carries cross-thread wakes; user descriptors are added
// one-shot so a fired watch never reports twice.
type poller struct {
	epfd   int
	wakeFD int
	events []unix.EpollEvent
}

func newPoller() (*poller, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("eventloop: epoll_create1: %w", err)
	}
	wakeFD, err := unix.Eventfd(0, unix.EFD_CLOEXEC|unix.EFD_NONBLOCK)
	if err != nil {
		_ = unix.Close(epfd)
		return nil, fmt.Errorf("eventloop: eventfd: %w", err)
	}
	ev := unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(wakeFD)}
	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, wakeFD, &ev); err != nil {
		_ = unix.Close(wakeFD)
		_ = unix.Close(epfd)
		return nil, fmt.Errorf("eventloop: registering wake fd: %w", err)
	}
	return &poller{
		epfd:   epfd,
		wakeFD: wakeFD,
		events: make([]unix.EpollEvent, 64),
	}, nil
}

// watch arms a one-shot readability watch on fd.
func (p *poller) watch(fd int) error {
	ev := unix.EpollEvent{Events: unix.EPOLLIN | unix.EPOLLONESHOT, Fd: int32(fd)}
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_ADD, fd, &ev)
}

// unwatch removes fd from the epoll set.
func (p *poller) unwatch(fd int) error {
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, fd, nil)
}

// wake makes the next (or current) wait return.
func (p *poller) wake() {
	var buf [8]byte
	binary.NativeEndian.PutUint64(buf[:], 1)
	_, _ = unix.Write(p.wakeFD, buf[:])
}

// wait blocks until descriptors become readable or wake is called, and
// returns the ready user descriptors. The wake eventfd is drained
// internally and never reported. A negative timeout blocks indefinitely.
func (p *poller) wait(timeoutMs int) ([]int, error) {
	n, err := unix.EpollWait(p.epfd, p.events, timeoutMs)
	if err != nil {
		if err == unix.EINTR {
			return nil, nil
		}
		return nil, fmt.Errorf("eventloop: epoll_wait: %w", err)
	}
	var ready []int
	for i := 0; i < n; i++ {
		fd := int(p.events[i].Fd)
		if fd == p.wakeFD {
			var buf [8]byte
			_, _ = unix.Read(p.wakeFD, buf[:])
			continue
		}
		ready = append(ready, fd)
	}
	return ready, nil
}

func (p *poller) close() {
	_ = unix.Close(p.wakeFD)
	_ = unix.Close(p.epfd)
}
