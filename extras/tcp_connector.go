package extras

import (
	"context"
	"net"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/nimbushttp/nimbus"
)

// TCPConnectorConfig configures TCPConnector's accept loop.
type TCPConnectorConfig struct {
	// MaxConcurrentConnections caps how many connections are served at
	// once; once the cap is reached, the accept loop holds the next
	// accepted connection unserved (without closing the listener) until
	// a slot frees. Zero means unbounded.
	MaxConcurrentConnections int64

	// OnAcceptError, if set, is called with any error Accept returns
	// other than the one caused by Shutdown closing the listener.
	OnAcceptError func(error)

	// OnConnectionError, if set, is called with the error (if any)
	// HandleConnection returned for a finished connection.
	OnConnectionError func(net.Conn, error)
}

// TCPConnector accepts plain TCP connections on a net.Listener and
// drives each one with a *nimbus.Server, one goroutine per connection.
type TCPConnector struct {
	*connectorState

	ln     net.Listener
	server *nimbus.Server
	cfg    TCPConnectorConfig
	sem    *semaphore.Weighted

	wg sync.WaitGroup
}

// ListenTCP opens a TCP listener on addr and returns a TCPConnector
// ready to Serve. The caller is responsible for calling Serve (typically
// in its own goroutine) and, eventually, ShutdownAndJoin.
func ListenTCP(addr string, server *nimbus.Server, cfg TCPConnectorConfig) (*TCPConnector, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	return NewTCPConnector(ln, server, cfg), nil
}

// NewTCPConnector wraps an already-bound net.Listener.
func NewTCPConnector(ln net.Listener, server *nimbus.Server, cfg TCPConnectorConfig) *TCPConnector {
	c := &TCPConnector{
		connectorState: newConnectorState(),
		ln:             ln,
		server:         server,
		cfg:            cfg,
	}

	if cfg.MaxConcurrentConnections > 0 {
		c.sem = semaphore.NewWeighted(cfg.MaxConcurrentConnections)
	}

	return c
}

// Addr returns the listener's bound address.
func (c *TCPConnector) Addr() net.Addr { return c.ln.Addr() }

// Serve runs the accept loop until Shutdown is called or the listener
// fails. It blocks the calling goroutine.
func (c *TCPConnector) Serve(ctx context.Context) error {
	defer c.finishShutdown()

	for {
		conn, err := c.ln.Accept()
		if err != nil {
			if c.IsMarkedForShutdown() {
				return nil
			}

			if c.cfg.OnAcceptError != nil {
				c.cfg.OnAcceptError(err)
			}

			return err
		}

		if c.sem != nil {
			if err := c.sem.Acquire(ctx, 1); err != nil {
				_ = conn.Close()

				continue
			}
		}

		c.connStarted()
		c.wg.Add(1)

		go c.serveOne(ctx, conn)
	}
}

func (c *TCPConnector) serveOne(ctx context.Context, conn net.Conn) {
	defer c.wg.Done()
	defer c.connFinished()

	if c.sem != nil {
		defer c.sem.Release(1)
	}

	defer func() { _ = conn.Close() }()

	err := c.server.HandleConnection(ctx, wrapConnection(conn))
	if err != nil && c.cfg.OnConnectionError != nil {
		c.cfg.OnConnectionError(conn, err)
	}
}

// Shutdown closes the listener so Accept unblocks with an error; open
// connections are left to finish on their own.
func (c *TCPConnector) Shutdown() {
	c.markShutdown()
	c.enterDraining()
	_ = c.ln.Close()
}

// ShutdownAndJoin requests a shutdown and waits for every in-flight
// connection to finish, up to timeout (0 = forever).
func (c *TCPConnector) ShutdownAndJoin(timeout time.Duration) bool {
	c.Shutdown()

	return c.Join(timeout)
}

// Join blocks until every in-flight connection has finished being
// served, up to timeout (0 = forever). It does not itself request a
// shutdown.
func (c *TCPConnector) Join(timeout time.Duration) bool {
	done := make(chan struct{})

	go func() {
		c.wg.Wait()
		close(done)
	}()

	if timeout <= 0 {
		<-done
	} else {
		select {
		case <-done:
		case <-time.After(timeout):
			return false
		}
	}

	return c.join(timeout)
}
