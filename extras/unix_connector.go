package extras

import (
	"context"
	"net"
	"os"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/nimbushttp/nimbus"
)

// UnixConnector is TCPConnector's counterpart for Unix domain sockets. It
// additionally removes a stale socket file at the configured path before
// binding.
type UnixConnector struct {
	*connectorState

	ln     net.Listener
	path   string
	server *nimbus.Server
	cfg    TCPConnectorConfig
	sem    *semaphore.Weighted

	wg sync.WaitGroup
}

// ListenUnix binds a Unix domain socket at path, removing any stale
// socket file left behind by a previous, uncleanly-terminated process.
func ListenUnix(path string, server *nimbus.Server, cfg TCPConnectorConfig) (*UnixConnector, error) {
	if _, err := os.Stat(path); err == nil {
		if err := os.Remove(path); err != nil {
			return nil, err
		}
	}

	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, err
	}

	c := &UnixConnector{
		connectorState: newConnectorState(),
		ln:             ln,
		path:           path,
		server:         server,
		cfg:            cfg,
	}

	if cfg.MaxConcurrentConnections > 0 {
		c.sem = semaphore.NewWeighted(cfg.MaxConcurrentConnections)
	}

	return c, nil
}

// Addr returns the listener's bound address.
func (c *UnixConnector) Addr() net.Addr { return c.ln.Addr() }

// Serve runs the accept loop until Shutdown is called or the listener
// fails. It blocks the calling goroutine.
func (c *UnixConnector) Serve(ctx context.Context) error {
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

func (c *UnixConnector) serveOne(ctx context.Context, conn net.Conn) {
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

// Shutdown closes the listener and removes the socket file.
func (c *UnixConnector) Shutdown() {
	c.markShutdown()
	c.enterDraining()
	_ = c.ln.Close()
	_ = os.Remove(c.path)
}

// ShutdownAndJoin requests a shutdown and waits for every in-flight
// connection to finish, up to timeout (0 = forever).
func (c *UnixConnector) ShutdownAndJoin(timeout time.Duration) bool {
	c.Shutdown()

	return c.Join(timeout)
}

// Join blocks until every in-flight connection has finished being
// served, up to timeout (0 = forever).
func (c *UnixConnector) Join(timeout time.Duration) bool {
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
