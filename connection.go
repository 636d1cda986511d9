package nimbus

import (
	"bufio"
	"crypto/tls"
	"net"
	"sync"
	"time"
)

// Connection is the full-duplex byte stream capability the core requires
// from its host: read with a caller-assigned deadline, buffered write,
// flush, and a graceful half-close. The core never opens or accepts a
// Connection itself — the host owns that decision and hands an
// already-established stream to Server.HandleConnection.
//
// Rather than a bespoke read_timed(buf, deadline) method, deadlines are set
// with SetReadDeadline/SetWriteDeadline exactly as net.Conn already does,
// so any net.Conn trivially satisfies everything but Flush and Shutdown.
type Connection interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error

	// Flush pushes any buffered bytes the Connection itself holds onto
	// the wire. Most transports (TCP, Unix, TLS) have nothing to flush
	// and may return nil unconditionally.
	Flush() error

	// Shutdown performs a graceful half-close (TCP FIN / CloseWrite) when
	// the underlying transport supports one, falling back to Close.
	Shutdown() error

	Close() error
}

// netConnection adapts any net.Conn (TCP, Unix, or a *tls.Conn wrapping
// either) into a Connection. TLS is transport-agnostic in Go — a
// *tls.Conn satisfies net.Conn regardless of what it wraps — so one
// adapter covers every transport/security combination.
type netConnection struct {
	net.Conn
}

func (c *netConnection) Flush() error { return nil }

// closeWriter is satisfied by *net.TCPConn and *net.UnixConn, and by
// *tls.Conn once the handshake has completed.
type closeWriter interface {
	CloseWrite() error
}

func (c *netConnection) Shutdown() error {
	if cw, ok := c.Conn.(closeWriter); ok {
		return cw.CloseWrite()
	}

	return c.Conn.Close()
}

// NewTCPConnection adapts a TCP net.Conn into a Connection.
func NewTCPConnection(c net.Conn) Connection { return &netConnection{Conn: c} }

// NewUnixConnection adapts a Unix-domain-socket net.Conn into a Connection.
func NewUnixConnection(c net.Conn) Connection { return &netConnection{Conn: c} }

// NewTLSConnection adapts a TLS connection, over either TCP or Unix, into
// a Connection.
func NewTLSConnection(c *tls.Conn) Connection { return &netConnection{Conn: c} }

// defaultReadBufSize and defaultWriteBufSize are the sizes for which
// newBufioReader and newBufioWriter take a buffer from the pool; any
// other size is freshly allocated. The writer is always requested at
// defaultWriteBufSize. The reader is requested at the max head size
// plus 4 KiB (never below defaultReadBufSize), so with the default
// 8 KiB max head size it is 12 KiB and is not taken from the pool.
// release returns readers and writers to the pools whatever their size.
const (
	defaultReadBufSize  = 8 << 10
	defaultWriteBufSize = 4 << 10
)

var (
	bufioReaderPool sync.Pool
	bufioWriterPool sync.Pool
)

func newBufioReader(r *bufferedConn, size int) *bufio.Reader {
	if size == defaultReadBufSize {
		if v := bufioReaderPool.Get(); v != nil {
			br := v.(*bufio.Reader)
			br.Reset(r)

			return br
		}
	}

	return bufio.NewReaderSize(r, size)
}

func putBufioReader(br *bufio.Reader) {
	br.Reset(nil)
	bufioReaderPool.Put(br)
}

func newBufioWriter(w *bufferedConn, size int) *bufio.Writer {
	if size == defaultWriteBufSize {
		if v := bufioWriterPool.Get(); v != nil {
			bw := v.(*bufio.Writer)
			bw.Reset(w)

			return bw
		}
	}

	return bufio.NewWriterSize(w, size)
}

func putBufioWriter(bw *bufio.Writer) {
	bw.Reset(nil)
	bufioWriterPool.Put(bw)
}

// bufferedConn wraps a Connection with a buffered reader, a buffered
// writer, and the "tainted" flag: once tainted, no further bytes may be
// written and the cause must surface from HandleConnection.
type bufferedConn struct {
	conn Connection

	br *bufio.Reader
	bw *bufio.Writer

	readTimeout  time.Duration
	writeTimeout time.Duration

	tainted  bool
	taintErr error

	// headersFlushed is set once any byte has been written to the
	// underlying Connection. It is never cleared, and nothing in this
	// package reads it: responses are serialized only after dispatch,
	// error handler included, has finished.
	headersFlushed bool
}

func newBufferedConn(c Connection, maxHead int, readTimeout, writeTimeout time.Duration) *bufferedConn {
	readSize := maxHead + 4096
	if readSize < defaultReadBufSize {
		readSize = defaultReadBufSize
	}

	bc := &bufferedConn{
		conn:         c,
		readTimeout:  readTimeout,
		writeTimeout: writeTimeout,
	}
	bc.br = newBufioReader(bc, readSize)
	bc.bw = newBufioWriter(bc, defaultWriteBufSize)

	return bc
}

// Read implements io.Reader by reading from the underlying Connection
// under the configured read timeout. It is only ever called by bc.br.
func (bc *bufferedConn) Read(p []byte) (int, error) {
	if bc.readTimeout > 0 {
		_ = bc.conn.SetReadDeadline(time.Now().Add(bc.readTimeout))
	} else {
		_ = bc.conn.SetReadDeadline(time.Time{})
	}

	n, err := bc.conn.Read(p)
	if err != nil {
		bc.taint(err)
	}

	return n, err
}

// Write implements io.Writer by writing to the underlying Connection
// under the configured write timeout. It is only ever called by bc.bw.
func (bc *bufferedConn) Write(p []byte) (int, error) {
	if bc.tainted {
		return 0, bc.taintErr
	}

	if bc.writeTimeout > 0 {
		_ = bc.conn.SetWriteDeadline(time.Now().Add(bc.writeTimeout))
	} else {
		_ = bc.conn.SetWriteDeadline(time.Time{})
	}

	n, err := bc.conn.Write(p)
	if n > 0 {
		bc.headersFlushed = true
	}

	if err != nil {
		bc.taint(err)
	}

	return n, err
}

func (bc *bufferedConn) taint(err error) {
	if !bc.tainted {
		bc.tainted = true
		bc.taintErr = err
	}
}

func (bc *bufferedConn) flush() error {
	if bc.tainted {
		return bc.taintErr
	}

	if err := bc.bw.Flush(); err != nil {
		bc.taint(err)

		return err
	}

	return bc.conn.Flush()
}

// release flushes the writer and returns the reader and writer to their
// pools. It does not close the underlying Connection; that is left to
// the caller of HandleConnection.
func (bc *bufferedConn) release() {
	if bc.br != nil {
		putBufioReader(bc.br)
		bc.br = nil
	}

	if bc.bw != nil {
		_ = bc.bw.Flush()
		putBufioWriter(bc.bw)
		bc.bw = nil
	}
}
