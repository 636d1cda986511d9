package nimbus

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Builder assembles a Server via fluent configuration, configuring the
// value this core actually cares about: routers, limits, and timeouts
// rather than a listen address.
type Builder struct {
	routers []*Router

	limits Limits

	keepAliveTimeout   time.Duration
	readTimeout        time.Duration
	writeTimeout       time.Duration
	maxRequestsPerConn int

	serverHeader       string
	compressionEnabled bool
	logger             zerolog.Logger
}

// NewBuilder returns a Builder seeded with default parsing limits
// and a zerolog console logger writing to stderr.
func NewBuilder() *Builder {
	return &Builder{
		limits:             DefaultLimits(),
		keepAliveTimeout:   75 * time.Second,
		readTimeout:        30 * time.Second,
		writeTimeout:       30 * time.Second,
		maxRequestsPerConn: 0,
		serverHeader:       "nimbus",
		compressionEnabled: true,
		logger:             zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger(),
	}
}

// AddRouter appends rt to the chain consulted in insertion order.
func (b *Builder) AddRouter(rt *Router) *Builder {
	b.routers = append(b.routers, rt)

	return b
}

func (b *Builder) WithKeepAliveTimeout(d time.Duration) *Builder { b.keepAliveTimeout = d; return b }
func (b *Builder) WithReadTimeout(d time.Duration) *Builder      { b.readTimeout = d; return b }
func (b *Builder) WithWriteTimeout(d time.Duration) *Builder     { b.writeTimeout = d; return b }

// WithMaxHeadSize bounds the request line plus headers.
func (b *Builder) WithMaxHeadSize(n int) *Builder { b.limits.MaxHeadSize = n; return b }

// WithMaxHeaderCount bounds the number of header lines.
func (b *Builder) WithMaxHeaderCount(n int) *Builder { b.limits.MaxHeaderCount = n; return b }

// WithMaxHeaderLen bounds any single header line.
func (b *Builder) WithMaxHeaderLen(n int) *Builder { b.limits.MaxHeaderLen = n; return b }

// WithHTTP10 opts into accepting HTTP/1.0 request lines.
func (b *Builder) WithHTTP10(allow bool) *Builder { b.limits.AllowHTTP10 = allow; return b }

// WithMaxRequestsPerConnection caps keep-alive reuse; 0 means unbounded.
func (b *Builder) WithMaxRequestsPerConnection(n int) *Builder {
	b.maxRequestsPerConn = n

	return b
}

// WithServerHeader overrides the Server response header value; "" omits
// the header entirely.
func (b *Builder) WithServerHeader(name string) *Builder { b.serverHeader = name; return b }

// WithCompression sets the server-wide default for negotiated response
// compression. When disabled, no response is ever gzip/br/deflate
// encoded regardless of a response's own compress flag or the
// request's Accept-Encoding header; individual responses may still opt
// out further with Response.DisableCompression.
func (b *Builder) WithCompression(enabled bool) *Builder { b.compressionEnabled = enabled; return b }

// WithLogger overrides the default zerolog logger.
func (b *Builder) WithLogger(l zerolog.Logger) *Builder { b.logger = l; return b }

// Build finalizes the configuration into an immutable, concurrency-safe
// *Server. If no router was added, a single catch-all router with only
// default handlers is installed, so an empty Builder still answers
// every request with 404 rather than panicking.
func (b *Builder) Build() (*Server, error) {
	routers := b.routers
	if len(routers) == 0 {
		routers = []*Router{NewRouter(AlwaysPredicate)}
	}

	return &Server{
		routers:            routers,
		limits:             b.limits,
		keepAliveTimeout:   b.keepAliveTimeout,
		readTimeout:        b.readTimeout,
		writeTimeout:       b.writeTimeout,
		maxRequestsPerConn: b.maxRequestsPerConn,
		serverHeader:       b.serverHeader,
		compressionEnabled: b.compressionEnabled,
		logger:             b.logger,
	}, nil
}
