//go:build !linux

package timeline

import "errors"

// errNoEventFD reports that pollable point exports need eventfd support.
var errNoEventFD = errors.New("timeline: pollable point exports require linux")

func newEventFD(uint) (int, error) { return -1, errNoEventFD }

func signalEventFD(int) error { return errNoEventFD }

func dupFD(int) (int, error) { return -1, errNoEventFD }

func closeFD(int) {}
