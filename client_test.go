package waysync

import "testing"

func TestClientFirstProtocolErrorWins(t *testing.T) {
	c := newTestClient(t)
	if !c.Alive() {
		t.Fatal("fresh client not alive")
	}
	if c.Trace() == "" {
		t.Error("client has no trace token")
	}

	first := &ProtocolError{Code: 3, Reason: "Missing buffer"}
	c.PostError(first)
	if c.Alive() {
		t.Error("client alive after protocol error")
	}
	if c.LastError() != first {
		t.Errorf("LastError = %v, want the first error", c.LastError())
	}

	c.PostError(&ProtocolError{Code: 1, Reason: "Surface is gone"})
	if c.LastError() != first {
		t.Error("later error displaced the first")
	}
}

func TestClientNilErrorIgnored(t *testing.T) {
	c := newTestClient(t)
	c.PostError(nil)
	if !c.Alive() {
		t.Error("nil error terminated the client")
	}
}

func TestProtocolErrorMessage(t *testing.T) {
	e := &ProtocolError{Code: 4, Reason: "Missing acquire timeline"}
	want := "waysync: protocol error 4: Missing acquire timeline"
	if got := e.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestClientsHaveDistinctTraces(t *testing.T) {
	a := newTestClient(t)
	b := newTestClient(t)
	if a.Trace() == b.Trace() {
		t.Error("two clients share a trace token")
	}
}
