package waysync

import (
	"errors"
	"fmt"
)

// ErrRoleExists is returned when a role is assigned to a surface that
// already has one. Roles are permanent for the surface's lifetime.
var ErrRoleExists = errors.New("waysync: surface already has a role")

// ProtocolError describes a client protocol violation.
//
// Protocol errors are terminal: posting one through Client.PostError marks
// the whole connection dead, and the commit that raised it is rejected with
// no partial state applied. Code carries the violated interface's wire
// value (the syncobj package defines the known codes).
type ProtocolError struct {
	Code   uint32
	Reason string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("waysync: protocol error %d: %s", e.Code, e.Reason)
}
