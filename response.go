package nimbus

import (
	"bufio"
	"fmt"
	"io"

	"github.com/nimbushttp/nimbus/headers"
	"github.com/nimbushttp/nimbus/wserr"
)

// bodyKind distinguishes the three mutually exclusive body producers a
// Response may carry.
type bodyKind int

const (
	bodyNone bodyKind = iota
	bodyFixed
	bodyReader
	bodyChunked
)

// Response is the value a route, filter, or error handler produces.
// Exactly one body producer may be set; setting a new one discards
// whatever was set before.
type Response struct {
	Code    int
	Headers *headers.Headers
	// Trailers is only meaningful when the body producer is chunked; it
	// is written as a final trailer section after the terminating
	// zero-size chunk.
	Trailers *headers.Headers

	kind        bodyKind
	fixedBody   []byte
	readerBody  io.Reader
	readerSize  int64
	chunkedBody io.Reader

	// compress, when true, permits the driver to apply a negotiated
	// Content-Encoding to this body. Error responses and
	// responses that already set Content-Encoding themselves should
	// leave this false.
	compress bool

	// hijack, when set, is invoked with the raw Connection once this
	// response has been written and flushed; the driver's keep-alive
	// loop stops immediately afterward and returns whatever hijack
	// returns.
	hijack func(Connection) error
}

// SetHijack arranges for fn to take ownership of the raw Connection once
// this response is written, ending the core's involvement with the
// connection. Used for the WebSocket handshake handoff.
func (r *Response) SetHijack(fn func(Connection) error) {
	r.hijack = fn
}

// NewResponse creates a Response with the given status code and an empty
// header set. The code must be 100-999; 1xx codes other than 101 may
// never be used as a final response and are rejected by the
// driver at write time, not here, so that intermediate construction
// (e.g. building up a 100 Continue) is not penalized.
func NewResponse(code int) *Response {
	return &Response{
		Code:     code,
		Headers:  headers.New(),
		Trailers: headers.New(),
		compress: true,
	}
}

// SetFixedBody sets a body of known, fixed length held entirely in
// memory. This is the common case for small JSON/text responses.
func (r *Response) SetFixedBody(b []byte) {
	r.kind = bodyFixed
	r.fixedBody = b
	r.readerBody = nil
	r.chunkedBody = nil
}

// SetReaderBody sets a body streamed from rd whose total length in bytes
// is known in advance, framed with Content-Length.
func (r *Response) SetReaderBody(rd io.Reader, size int64) {
	r.kind = bodyReader
	r.readerBody = rd
	r.readerSize = size
	r.fixedBody = nil
	r.chunkedBody = nil
}

// SetChunkedBody sets a body streamed from rd whose total length is not
// known in advance, framed with Transfer-Encoding: chunked.
func (r *Response) SetChunkedBody(rd io.Reader) {
	r.kind = bodyChunked
	r.chunkedBody = rd
	r.fixedBody = nil
	r.readerBody = nil
}

// DisableCompression opts this response out of negotiated
// Content-Encoding, e.g. because the body is already compressed or is an
// error body that should stay easy to read on the wire.
func (r *Response) DisableCompression() {
	r.compress = false
}

func (r *Response) bodyLen() (int64, bool) {
	switch r.kind {
	case bodyNone:
		return 0, true
	case bodyFixed:
		return int64(len(r.fixedBody)), true
	case bodyReader:
		return r.readerSize, true
	default:
		return 0, false
	}
}

// statusText mirrors net/http's table for the subset of codes this
// package's default handlers actually produce; anything else falls back
// to a generic reason phrase rather than failing the write.
var statusText = map[int]string{
	100: "Continue",
	101: "Switching Protocols",
	200: "OK",
	201: "Created",
	202: "Accepted",
	204: "No Content",
	206: "Partial Content",
	301: "Moved Permanently",
	302: "Found",
	304: "Not Modified",
	400: "Bad Request",
	401: "Unauthorized",
	403: "Forbidden",
	404: "Not Found",
	405: "Method Not Allowed",
	406: "Not Acceptable",
	408: "Request Timeout",
	409: "Conflict",
	411: "Length Required",
	413: "Payload Too Large",
	415: "Unsupported Media Type",
	417: "Expectation Failed",
	431: "Request Header Fields Too Large",
	500: "Internal Server Error",
	501: "Not Implemented",
	502: "Bad Gateway",
	503: "Service Unavailable",
}

func reasonPhrase(code int) string {
	if t, ok := statusText[code]; ok {
		return t
	}

	return "Status " + fmt.Sprint(code)
}

// writeStatusLine writes "HTTP/1.1 NNN Reason\r\n".
func writeStatusLine(bw *bufio.Writer, version string, code int) error {
	_, err := fmt.Fprintf(bw, "%s %d %s\r\n", version, code, reasonPhrase(code))

	return err
}

// writeResponse serializes resp onto bw: it decides
// between Content-Length and chunked framing, injects Date/Server/
// Connection, optionally applies a negotiated Content-Encoding, and
// writes the body. It never reads bc.br.
//
// wantsClose reports whether the connection will be closed after this
// exchange, so the Connection header can be set accurately even for
// HTTP/1.1 requests that didn't ask for it themselves (e.g. a fatal
// error forces a close).
func writeResponse(bc *bufferedConn, version string, resp *Response, wantsClose bool, acceptEncoding string, serverHeader string) error {
	if resp.Code >= 100 && resp.Code < 200 && resp.Code != 101 {
		return wserr.New(wserr.KindIO, "1xx status other than 101 may not be a final response")
	}

	encoding := ""
	if resp.compress && resp.Code != 101 && resp.Code != 204 && resp.Code != 304 {
		encoding = negotiateContentEncoding(acceptEncoding)
	}

	bw := bc.bw

	if err := writeStatusLine(bw, version, resp.Code); err != nil {
		return err
	}

	if serverHeader != "" && !resp.Headers.Has("Server") {
		resp.Headers.Set("Server", serverHeader)
	}

	if !resp.Headers.Has("Date") {
		resp.Headers.Set("Date", formatHTTPDate())
	}

	if resp.Code == 101 {
		// A Switching Protocols response carries its own Connection/Upgrade
		// headers and never has a Content-Length or Transfer-Encoding body.
		if err := resp.Headers.WriteTo(bw); err != nil {
			return err
		}

		_, err := bw.WriteString("\r\n")

		return err
	}

	connToken := "keep-alive"
	if wantsClose {
		connToken = "close"
	}

	resp.Headers.Set("Connection", connToken)

	bodyLen, known := resp.bodyLen()

	useChunked := !known
	var body io.Reader

	switch resp.kind {
	case bodyNone:
		body = nil
	case bodyFixed:
		body = bytesReader(resp.fixedBody)
	case bodyReader:
		body = resp.readerBody
	case bodyChunked:
		body = resp.chunkedBody
	}

	if encoding != "" && body != nil {
		wrapped, err := wrapCompressedReader(body, encoding)
		if err != nil {
			return err
		}

		body = wrapped
		useChunked = true
		resp.Headers.Set("Content-Encoding", encoding)
		resp.Headers.Del("Content-Length")
	} else if known {
		resp.Headers.Set("Content-Length", fmt.Sprint(bodyLen))
		resp.Headers.Del("Transfer-Encoding")
	}

	if useChunked {
		resp.Headers.Del("Content-Length")
		resp.Headers.Set("Transfer-Encoding", "chunked")
	}

	if err := resp.Headers.WriteTo(bw); err != nil {
		return err
	}

	if _, err := bw.WriteString("\r\n"); err != nil {
		return err
	}

	if body == nil {
		return nil
	}

	if useChunked {
		return writeChunkedBody(bw, body, resp.Trailers)
	}

	_, err := io.Copy(bw, body)

	return err
}

// writeContinue writes a bare "100 Continue" interim response, terminated
// by its own blank line so the client doesn't mistake the real response's
// status line for one of its headers, and flushes immediately so a client
// withholding the body until it sees 100 Continue doesn't stall.
func writeContinue(bc *bufferedConn, version string) error {
	if err := writeStatusLine(bc.bw, version, 100); err != nil {
		return err
	}

	if _, err := bc.bw.WriteString("\r\n"); err != nil {
		return err
	}

	return bc.flush()
}

func bytesReader(b []byte) io.Reader {
	return &byteSliceReader{b: b}
}

// byteSliceReader avoids pulling in bytes.Reader's ReadAt/Seek surface
// for what is, in the hot path, a write-only body.
type byteSliceReader struct {
	b   []byte
	pos int
}

func (r *byteSliceReader) Read(p []byte) (int, error) {
	if r.pos >= len(r.b) {
		return 0, io.EOF
	}

	n := copy(p, r.b[r.pos:])
	r.pos += n

	return n, nil
}
