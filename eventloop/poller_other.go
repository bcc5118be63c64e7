//go:build !linux

package eventloop

import "errors"

// errNoPoller reports that the loop's fd watcher needs epoll.
var errNoPoller = errors.New("eventloop: fd watching requires linux")

type poller struct{}

func newPoller() (*poller, error) { return nil, errNoPoller }

func (p *poller) watch(int) error { return errNoPoller }

func (p *poller) unwatch(int) error { return errNoPoller }

func (p *poller) wake() {}

func (p *poller) wait(int) ([]int, error) { return nil, errNoPoller }

func (p *poller) close() {}
