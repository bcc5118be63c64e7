//go:build linux

package timeline

import (
	"encoding/binary"

	"golang.org/x/sys/unix"
)

// newEventFD creates a non-blocking close-on-exec eventfd with the given
// initial counter. A non-zero counter makes the descriptor immediately
// readable.
func newEventFD(initval uint) (int, error) {
	return unix.Eventfd(initval, unix.EFD_CLOEXEC|unix.EFD_NONBLOCK)
}

// signalEventFD adds one to the eventfd counter, making every descriptor
// sharing the eventfd readable.
func signalEventFD(fd int) error {
	var buf [8]byte
	binary.NativeEndian.PutUint64(buf[:], 1)
	_, err := unix.Write(fd, buf[:])
	return err
}

// dupFD duplicates fd with close-on-exec set.
func dupFD(fd int) (int, error) {
	return unix.FcntlInt(uintptr(fd), unix.F_DUPFD_CLOEXEC, 0)
}

// closeFD closes fd, ignoring errors.
func closeFD(fd int) {
	_ = unix.Close(fd)
}
