package extras

import (
	"sync"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/nimbushttp/nimbus"
)

// Broadcaster fans a message out to every currently-registered
// WebSocket connection. Since this core only implements the handshake,
// Broadcaster operates purely on raw Connections handed to it after a
// 101 hijack — framing the outgoing bytes as WebSocket frames is the
// registered handler's job, not the broadcaster's.
type Broadcaster struct {
	conns *xsync.MapOf[string, *registeredConn]

	mu      sync.Mutex
	seq     uint64
	onError func(id string, err error)
}

type registeredConn struct {
	conn nimbus.Connection
}

// NewBroadcaster returns an empty Broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{conns: xsync.NewMapOf[string, *registeredConn]()}
}

// OnSendError registers a callback invoked when writing to a registered
// connection fails during Broadcast; the failing connection is removed.
func (b *Broadcaster) OnSendError(fn func(id string, err error)) {
	b.onError = fn
}

// Register adds conn under a freshly generated id and returns it, so the
// caller's hijack handler can later Unregister it on disconnect.
func (b *Broadcaster) Register(conn nimbus.Connection) string {
	b.mu.Lock()
	b.seq++
	id := formatConnID(b.seq)
	b.mu.Unlock()

	b.conns.Store(id, &registeredConn{conn: conn})

	return id
}

// Unregister removes a connection previously returned by Register. It
// does not close the connection.
func (b *Broadcaster) Unregister(id string) {
	b.conns.Delete(id)
}

// Count returns the number of currently registered connections.
func (b *Broadcaster) Count() int {
	return b.conns.Size()
}

// Broadcast writes frame to every registered connection. Connections
// that fail to write are unregistered and reported via OnSendError.
func (b *Broadcaster) Broadcast(frame []byte) {
	var failed []string

	b.conns.Range(func(id string, rc *registeredConn) bool {
		if _, err := rc.conn.Write(frame); err != nil {
			failed = append(failed, id)

			if b.onError != nil {
				b.onError(id, err)
			}

			return true
		}

		_ = rc.conn.Flush()

		return true
	})

	for _, id := range failed {
		b.conns.Delete(id)
	}
}

// Send writes frame to exactly the connection registered under id, if
// still present.
func (b *Broadcaster) Send(id string, frame []byte) error {
	rc, ok := b.conns.Load(id)
	if !ok {
		return nil
	}

	if _, err := rc.conn.Write(frame); err != nil {
		b.conns.Delete(id)

		return err
	}

	return rc.conn.Flush()
}

func formatConnID(seq uint64) string {
	const hex = "0123456789abcdef"

	if seq == 0 {
		return "0"
	}

	var buf [16]byte

	i := len(buf)
	for seq > 0 {
		i--
		buf[i] = hex[seq&0xf]
		seq >>= 4
	}

	return string(buf[i:])
}
