// Package extras provides optional, host-side conveniences built on top
// of the core connection-handling library: things the core deliberately
// does not do itself (opening listening sockets, spawning threads,
// broadcasting to WebSocket clients) but that a real deployment usually
// needs. Nothing in this package is required to use the core; it exists
// purely as ready-made wiring for the common case.
package extras

import (
	"crypto/tls"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nimbushttp/nimbus"
)

// wrapConnection adapts an accepted net.Conn into a nimbus.Connection,
// recognizing a completed TLS handshake regardless of which underlying
// transport (TCP or Unix) it rides on.
func wrapConnection(conn net.Conn) nimbus.Connection {
	if tlsConn, ok := conn.(*tls.Conn); ok {
		return nimbus.NewTLSConnection(tlsConn)
	}

	return nimbus.NewTCPConnection(conn)
}

// Connector is the lifecycle surface every listener helper in this
// package exposes: request a shutdown, observe its progress, and block
// until it completes.
type Connector interface {
	// Shutdown requests a shutdown; it does not interrupt connections
	// already being served.
	Shutdown()

	// IsMarkedForShutdown reports whether Shutdown has been called.
	IsMarkedForShutdown() bool

	// IsShuttingDown reports whether Shutdown has closed the listener;
	// it stays true after the shutdown completes.
	IsShuttingDown() bool

	// IsShutdown reports whether the accept loop has exited. Connections
	// accepted before that may still be being served; Join waits for
	// them.
	IsShutdown() bool

	// ShutdownAndJoin requests a shutdown and blocks until it completes
	// or timeout elapses (zero means wait forever). It reports whether
	// the shutdown completed.
	ShutdownAndJoin(timeout time.Duration) bool

	// Join blocks until the connector finishes shutting down, or until
	// timeout elapses (zero means wait forever).
	Join(timeout time.Duration) bool
}

// connWait is a broadcastable "reached at least this generation" gate,
// used to implement Join/ShutdownAndJoin without a busy-poll loop.
type connWait struct {
	mu   sync.Mutex
	cond *sync.Cond
	gen  atomic.Uint64
}

func newConnWait() *connWait {
	w := &connWait{}
	w.cond = sync.NewCond(&w.mu)

	return w
}

func (w *connWait) signal(gen uint64) {
	w.gen.Store(gen)
	w.mu.Lock()
	w.cond.Broadcast()
	w.mu.Unlock()
}

func (w *connWait) isDone(gen uint64) bool {
	return w.gen.Load() >= gen
}

func (w *connWait) wait(gen uint64, timeout time.Duration) bool {
	if w.isDone(gen) {
		return true
	}

	done := make(chan struct{})

	go func() {
		w.mu.Lock()
		for !w.isDone(gen) {
			w.cond.Wait()
		}
		w.mu.Unlock()
		close(done)
	}()

	if timeout <= 0 {
		<-done

		return true
	}

	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return w.isDone(gen)
	}
}

// connectorState is the shared shutdown bookkeeping embedded in every
// concrete connector (tcp/unix/tls): a condition-variable gate plus the
// marked/draining/shutdown flags a Connector's lifecycle methods report.
type connectorState struct {
	markedForShutdown atomic.Bool
	shuttingDown      atomic.Bool
	shutdown          atomic.Bool

	activeConns atomic.Int64

	wait *connWait
}

func newConnectorState() *connectorState {
	return &connectorState{wait: newConnWait()}
}

func (s *connectorState) IsMarkedForShutdown() bool { return s.markedForShutdown.Load() }
func (s *connectorState) IsShuttingDown() bool       { return s.shuttingDown.Load() }
func (s *connectorState) IsShutdown() bool           { return s.shutdown.Load() }

func (s *connectorState) markShutdown() {
	s.markedForShutdown.Store(true)
}

func (s *connectorState) enterDraining() {
	s.shuttingDown.Store(true)
}

func (s *connectorState) finishShutdown() {
	s.shutdown.Store(true)
	s.wait.signal(1)
}

func (s *connectorState) connStarted()  { s.activeConns.Add(1) }
func (s *connectorState) connFinished() { s.activeConns.Add(-1) }

func (s *connectorState) join(timeout time.Duration) bool {
	return s.wait.wait(1, timeout)
}
