package extras

import (
	"errors"
	"testing"
	"time"
)

// stubConnection is a minimal nimbus.Connection double for exercising
// Broadcaster without a real socket.
type stubConnection struct {
	written  [][]byte
	flushed  int
	writeErr error
}

func (c *stubConnection) Read(p []byte) (int, error) { return 0, nil }

func (c *stubConnection) Write(p []byte) (int, error) {
	if c.writeErr != nil {
		return 0, c.writeErr
	}

	c.written = append(c.written, append([]byte(nil), p...))

	return len(p), nil
}

func (c *stubConnection) SetReadDeadline(time.Time) error  { return nil }
func (c *stubConnection) SetWriteDeadline(time.Time) error { return nil }
func (c *stubConnection) Flush() error                     { c.flushed++; return nil }
func (c *stubConnection) Shutdown() error                  { return nil }
func (c *stubConnection) Close() error                     { return nil }

func TestBroadcasterRegisterUnregisterCount(t *testing.T) {
	b := NewBroadcaster()

	id := b.Register(&stubConnection{})
	if b.Count() != 1 {
		t.Fatalf("got count %d", b.Count())
	}

	b.Unregister(id)
	if b.Count() != 0 {
		t.Fatalf("expected count 0 after Unregister, got %d", b.Count())
	}
}

func TestBroadcasterBroadcastWritesToEveryConnection(t *testing.T) {
	b := NewBroadcaster()

	a := &stubConnection{}
	c := &stubConnection{}

	b.Register(a)
	b.Register(c)

	b.Broadcast([]byte("hello"))

	if len(a.written) != 1 || string(a.written[0]) != "hello" {
		t.Fatalf("got %+v", a.written)
	}

	if len(c.written) != 1 || string(c.written[0]) != "hello" {
		t.Fatalf("got %+v", c.written)
	}

	if a.flushed != 1 || c.flushed != 1 {
		t.Fatalf("expected each connection to be flushed once, got a=%d c=%d", a.flushed, c.flushed)
	}
}

func TestBroadcasterBroadcastUnregistersFailedConnections(t *testing.T) {
	b := NewBroadcaster()

	var reportedID string
	b.OnSendError(func(id string, err error) { reportedID = id })

	bad := &stubConnection{writeErr: errors.New("boom")}
	id := b.Register(bad)

	b.Broadcast([]byte("hello"))

	if reportedID != id {
		t.Fatalf("expected OnSendError to report %q, got %q", id, reportedID)
	}

	if b.Count() != 0 {
		t.Fatalf("expected the failing connection to be unregistered, count=%d", b.Count())
	}
}

func TestBroadcasterSendTargetsOneConnection(t *testing.T) {
	b := NewBroadcaster()

	a := &stubConnection{}
	c := &stubConnection{}

	idA := b.Register(a)
	b.Register(c)

	if err := b.Send(idA, []byte("hi")); err != nil {
		t.Fatalf("Send: %v", err)
	}

	if len(a.written) != 1 {
		t.Fatalf("expected exactly one write to the targeted connection")
	}

	if len(c.written) != 0 {
		t.Fatalf("expected no write to the untargeted connection")
	}
}

func TestBroadcasterSendUnknownIDIsANoop(t *testing.T) {
	b := NewBroadcaster()

	if err := b.Send("missing", []byte("hi")); err != nil {
		t.Fatalf("expected Send on an unknown id to be a no-op, got %v", err)
	}
}

func TestFormatConnIDIsUnique(t *testing.T) {
	seen := make(map[string]bool)

	for i := uint64(0); i < 1000; i++ {
		id := formatConnID(i)
		if seen[id] {
			t.Fatalf("duplicate id %q at seq %d", id, i)
		}

		seen[id] = true
	}
}
