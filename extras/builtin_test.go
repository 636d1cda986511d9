package extras

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/nimbushttp/nimbus"
)

// memConn is an in-memory net.Conn-shaped nimbus.Connection used to drive
// HandleConnection without a real socket.
type memConn struct {
	in  *strings.Reader
	out bytes.Buffer
}

func (c *memConn) Read(p []byte) (int, error)        { return c.in.Read(p) }
func (c *memConn) Write(p []byte) (int, error)        { return c.out.Write(p) }
func (c *memConn) SetReadDeadline(time.Time) error  { return nil }
func (c *memConn) SetWriteDeadline(time.Time) error { return nil }
func (c *memConn) Flush() error                     { return nil }
func (c *memConn) Shutdown() error                  { return nil }
func (c *memConn) Close() error                     { return nil }

func runRequest(t *testing.T, h nimbus.HandlerFunc, request string) string {
	t.Helper()

	rt := nimbus.NewRouter(nimbus.AlwaysPredicate)
	rt.Get("/x", h)
	rt.Post("/x", h)

	s, err := nimbus.NewBuilder().AddRouter(rt).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	conn := &memConn{in: strings.NewReader(request)}

	if err := s.HandleConnection(context.Background(), conn); err != nil {
		t.Fatalf("HandleConnection: %v", err)
	}

	return conn.out.String()
}

func TestEchoMirrorsBodyAndContentType(t *testing.T) {
	request := "POST /x HTTP/1.1\r\nHost: h\r\nContent-Type: text/plain\r\nContent-Length: 5\r\nConnection: close\r\n\r\nhello"

	out := runRequest(t, Echo, request)

	if !strings.Contains(out, "Content-Type: text/plain\r\n") {
		t.Fatalf("expected the request Content-Type to be mirrored, got %q", out)
	}

	if !strings.HasSuffix(out, "hello") {
		t.Fatalf("expected the request body to be echoed, got %q", out)
	}
}

func TestEchoDefaultsContentTypeWhenAbsent(t *testing.T) {
	request := "POST /x HTTP/1.1\r\nHost: h\r\nContent-Length: 5\r\nConnection: close\r\n\r\nhello"

	out := runRequest(t, Echo, request)

	if !strings.Contains(out, "Content-Type: application/octet-stream\r\n") {
		t.Fatalf("expected a default Content-Type, got %q", out)
	}
}

func TestHealthReturnsOKStatusJSON(t *testing.T) {
	request := "GET /x HTTP/1.1\r\nHost: h\r\nConnection: close\r\n\r\n"

	out := runRequest(t, Health, request)

	if !strings.HasPrefix(out, "HTTP/1.1 200") {
		t.Fatalf("got %q", out)
	}

	if !strings.Contains(out, "Content-Type: application/json\r\n") {
		t.Fatalf("got %q", out)
	}

	if !strings.Contains(out, `{"status":"ok"}`) {
		t.Fatalf("expected the health body in %q", out)
	}
}

func TestRedirectSetsLocationAnd301(t *testing.T) {
	request := "GET /x HTTP/1.1\r\nHost: h\r\nConnection: close\r\n\r\n"

	out := runRequest(t, Redirect("https://example.com/new"), request)

	if !strings.HasPrefix(out, "HTTP/1.1 301") {
		t.Fatalf("got %q", out)
	}

	if !strings.Contains(out, "Location: https://example.com/new\r\n") {
		t.Fatalf("got %q", out)
	}
}
