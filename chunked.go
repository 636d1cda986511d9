package nimbus

import (
	"bufio"
	"io"

	"github.com/valyala/bytebufferpool"

	"github.com/nimbushttp/nimbus/headers"
)

// chunkWriteBufSize is the size of the scratch buffer used to pull bytes
// from a response body reader before framing each chunk, so a single
// chunk carries at most this many bytes. It is larger than the
// connection's write buffer (defaultWriteBufSize), so writing a full
// chunk passes through to the Connection rather than fitting in the
// buffer.
const chunkWriteBufSize = 32 << 10

// writeChunkedBody frames body as a sequence of "size\r\ndata\r\n" chunks
// terminated by a zero-size chunk, followed by trailers (if non-empty)
// and the final CRLF, per RFC 7230 §4.1. This is the write-side
// counterpart of RequestBody's chunked decoder in body.go.
func writeChunkedBody(bw *bufio.Writer, body io.Reader, trailers *headers.Headers) error {
	bb := bytebufferpool.Get()
	defer bytebufferpool.Put(bb)

	if cap(bb.B) < chunkWriteBufSize {
		bb.B = make([]byte, chunkWriteBufSize)
	} else {
		bb.B = bb.B[:chunkWriteBufSize]
	}

	buf := bb.B

	for {
		n, readErr := body.Read(buf)

		if n > 0 {
			if err := writeChunk(bw, buf[:n]); err != nil {
				return err
			}
		}

		if readErr == io.EOF {
			break
		}

		if readErr != nil {
			return readErr
		}
	}

	if _, err := bw.WriteString("0\r\n"); err != nil {
		return err
	}

	if trailers != nil && trailers.Len() > 0 {
		if err := trailers.WriteTo(bw); err != nil {
			return err
		}
	}

	_, err := bw.WriteString("\r\n")

	return err
}

func writeChunk(bw *bufio.Writer, p []byte) error {
	if _, err := bw.WriteString(formatChunkSize(len(p))); err != nil {
		return err
	}

	if _, err := bw.WriteString("\r\n"); err != nil {
		return err
	}

	if _, err := bw.Write(p); err != nil {
		return err
	}

	_, err := bw.WriteString("\r\n")

	return err
}

const hexDigits = "0123456789abcdef"

// formatChunkSize renders n as a lowercase hexadecimal chunk-size line,
// matching what most HTTP/1.1 servers and clients emit (uppercase is
// equally valid per RFC 7230 but less common in the wild).
func formatChunkSize(n int) string {
	if n == 0 {
		return "0"
	}

	var buf [16]byte

	i := len(buf)
	for n > 0 {
		i--
		buf[i] = hexDigits[n&0xf]
		n >>= 4
	}

	return string(buf[i:])
}
