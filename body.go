package nimbus

import (
	"bufio"
	"io"
	"net/textproto"
	"strconv"

	"golang.org/x/net/http/httpguts"

	"github.com/nimbushttp/nimbus/headers"
	"github.com/nimbushttp/nimbus/wserr"
)

// maxDrainBytes bounds how much of an unread request body the driver will
// discard to keep a connection alive for the next keep-alive request.
// Beyond this, draining gives up and the connection is closed instead of
// reused.
const maxDrainBytes = 256 << 10

// RequestBody is the read-once byte sequence of an incoming request:
// either empty, a fixed Content-Length, or chunked. Once any byte has been
// consumed by user code the connection is "tainted" with respect to
// replay — the driver must still drain it before reusing the connection.
type RequestBody struct {
	br *bufio.Reader

	fixedRemain int64 // valid when !chunked
	chunked     bool
	chunkRemain int64 // bytes left in the current chunk
	sawLastChunk bool
	trailers    *headers.Headers

	closed bool
	err    error // sticky error from a failed read; fatal to the connection

	// onFirstRead, if non-nil, fires exactly once on the first Read call
	// to implement Expect: 100-continue.
	onFirstRead func()
	firedFirst  bool
}

func newRequestBody(br *bufio.Reader, head *RequestHead) *RequestBody {
	b := &RequestBody{br: br}

	if head.Chunked {
		b.chunked = true
	} else {
		b.fixedRemain = head.ContentLength
		if b.fixedRemain < 0 {
			b.fixedRemain = 0
		}
	}

	return b
}

// Len reports how many bytes of a fixed-length body are still unread
// (the full content-length before the first Read, 0 once it is
// consumed), or -1 if the body is chunked.
func (b *RequestBody) Len() int64 {
	if b.chunked {
		return -1
	}

	return b.fixedRemain
}

// Trailers returns any trailer headers seen after a chunked body's final
// chunk. It is only meaningful after Read has returned io.EOF.
func (b *RequestBody) Trailers() *headers.Headers {
	return b.trailers
}

func (b *RequestBody) Read(p []byte) (int, error) {
	if b.onFirstRead != nil && !b.firedFirst {
		b.firedFirst = true
		b.onFirstRead()
	}

	if b.err != nil {
		return 0, b.err
	}

	if b.closed {
		return 0, io.EOF
	}

	var n int
	var err error

	if b.chunked {
		n, err = b.readChunked(p)
	} else {
		n, err = b.readFixed(p)
	}

	if err != nil && err != io.EOF {
		b.err = wserr.Wrap(wserr.KindUnexpectedEOF, err, "reading request body")

		return n, b.err
	}

	return n, err
}

func (b *RequestBody) readFixed(p []byte) (int, error) {
	if b.fixedRemain <= 0 {
		return 0, io.EOF
	}

	if int64(len(p)) > b.fixedRemain {
		p = p[:b.fixedRemain]
	}

	n, err := b.br.Read(p)
	b.fixedRemain -= int64(n)

	if err == io.EOF && b.fixedRemain > 0 {
		err = io.ErrUnexpectedEOF
	}

	return n, err
}

func (b *RequestBody) readChunked(p []byte) (int, error) {
	if b.sawLastChunk {
		return 0, io.EOF
	}

	if b.chunkRemain == 0 {
		size, err := readChunkSize(b.br)
		if err != nil {
			return 0, err
		}

		if size == 0 {
			trailers, err := readTrailers(b.br)
			if err != nil {
				return 0, err
			}

			b.trailers = trailers
			b.sawLastChunk = true

			return 0, io.EOF
		}

		b.chunkRemain = size
	}

	if int64(len(p)) > b.chunkRemain {
		p = p[:b.chunkRemain]
	}

	n, err := b.br.Read(p)
	b.chunkRemain -= int64(n)

	if err != nil {
		return n, err
	}

	if b.chunkRemain == 0 {
		if err := consumeCRLF(b.br); err != nil {
			return n, err
		}
	}

	return n, nil
}

// readChunkSize reads one "hex-size[;ext]\r\n" chunk header line.
func readChunkSize(br *bufio.Reader) (int64, error) {
	line, err := readCRLFLine(br)
	if err != nil {
		return 0, err
	}

	if semi := indexByte(line, ';'); semi >= 0 {
		line = line[:semi]
	}

	line = trimTrailingCR(line)

	size, err := strconv.ParseInt(string(line), 16, 64)
	if err != nil || size < 0 {
		return 0, wserr.New(wserr.KindMalformedRequest, "malformed chunk size")
	}

	return size, nil
}

func readTrailers(br *bufio.Reader) (*headers.Headers, error) {
	tr := textproto.NewReader(br)

	mh, err := tr.ReadMIMEHeader()
	if err != nil && err != io.EOF {
		return nil, wserr.New(wserr.KindMalformedRequest, "malformed chunk trailer")
	}

	if len(mh) == 0 {
		return nil, nil
	}

	h := headers.New()

	for name, vals := range mh {
		if !httpguts.ValidTrailerHeader(name) {
			// Forbidden by RFC 7230 §4.1.2 (e.g. Content-Length,
			// Transfer-Encoding, Trailer itself) — silently dropped
			// rather than failing the request.
			continue
		}

		for _, v := range vals {
			h.Add(name, v)
		}
	}

	return h, nil
}

func consumeCRLF(br *bufio.Reader) error {
	b1, err := br.ReadByte()
	if err != nil {
		return err
	}

	b2, err := br.ReadByte()
	if err != nil {
		return err
	}

	if b1 != '\r' || b2 != '\n' {
		return wserr.New(wserr.KindMalformedRequest, "malformed chunk terminator")
	}

	return nil
}

func readCRLFLine(br *bufio.Reader) ([]byte, error) {
	line, err := br.ReadSlice('\n')
	if err != nil {
		return nil, err
	}

	out := make([]byte, len(line))
	copy(out, line)

	return out, nil
}

func trimTrailingCR(b []byte) []byte {
	b = trimTrailingByte(b, '\n')
	b = trimTrailingByte(b, '\r')

	return b
}

func trimTrailingByte(b []byte, c byte) []byte {
	if len(b) > 0 && b[len(b)-1] == c {
		return b[:len(b)-1]
	}

	return b
}

func indexByte(b []byte, c byte) int {
	for i, v := range b {
		if v == c {
			return i
		}
	}

	return -1
}

// drain discards the remainder of the body so the connection can be
// reused for the next keep-alive request.
// A read failure while draining is fatal to the connection.
func (b *RequestBody) drain() error {
	if b.closed {
		return nil
	}

	b.closed = true

	if b.err != nil {
		return nil // already fatally tainted; nothing more to drain
	}

	n, err := io.CopyN(io.Discard, drainReader{b}, maxDrainBytes+1)
	if err == io.EOF {
		return nil
	}

	if err != nil {
		return wserr.Wrap(wserr.KindUnexpectedEOF, err, "draining request body")
	}

	if n > maxDrainBytes {
		return wserr.New(wserr.KindIO, "request body too large to drain for reuse")
	}

	return nil
}

// drainReader re-exposes RequestBody.Read without re-triggering the
// Expect-100-continue hook. That hook has either already fired, or the
// endpoint never read the body at all — in which case it must still not
// fire during drain: a handler that writes a final response without
// reading the body should never cause a 100 Continue to go out.
type drainReader struct{ b *RequestBody }

func (d drainReader) Read(p []byte) (int, error) {
	if d.b.err != nil {
		return 0, d.b.err
	}

	if d.b.closed && !d.b.sawLastChunk && d.b.fixedRemain == 0 && !d.b.chunked {
		return 0, io.EOF
	}

	var n int
	var err error

	if d.b.chunked {
		n, err = d.b.readChunked(p)
	} else {
		n, err = d.b.readFixed(p)
	}

	if err != nil && err != io.EOF {
		d.b.err = wserr.Wrap(wserr.KindUnexpectedEOF, err, "draining request body")
	}

	return n, err
}
