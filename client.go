package waysync

import (
	"github.com/google/uuid"

	"github.com/gogpu/waysync/eventloop"
)

// Client represents one protocol connection. It carries the event loop the
// connection's surfaces are affine to and a trace token that tags every
// log line belonging to the connection.
//
// Client follows the protocol's error-termination model: the first
// ProtocolError posted wins and the connection is dead from then on. The
// transport layer that owns the socket observes Alive and closes it.
type Client struct {
	trace string
	loop  *eventloop.Loop
	err   *ProtocolError
}

// NewClient creates a client bound to loop.
func NewClient(loop *eventloop.Loop) *Client {
	c := &Client{
		trace: uuid.New().String(),
		loop:  loop,
	}
	slogger().Debug("client created", "client", c.trace)
	return c
}

// Trace returns the client's trace token.
func (c *Client) Trace() string { return c.trace }

// Loop returns the event loop this client's surfaces run on.
func (c *Client) Loop() *eventloop.Loop { return c.loop }

// PostError terminates the connection with e. Only the first error is
// kept; later ones are dropped since the client is already dead.
func (c *Client) PostError(e *ProtocolError) {
	if e == nil {
		return
	}
	if c.err != nil {
		slogger().Debug("protocol error on dead client dropped",
			"client", c.trace, "code", e.Code, "reason", e.Reason)
		return
	}
	c.err = e
	slogger().Info("client terminated by protocol error",
		"client", c.trace, "code", e.Code, "reason", e.Reason)
}

// Alive reports whether no protocol error has been posted.
func (c *Client) Alive() bool { return c.err == nil }

// LastError returns the terminating error, or nil while the client is
// alive.
func (c *Client) LastError() *ProtocolError { return c.err }
