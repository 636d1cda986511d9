package nimbus

import (
	"bufio"
	"bytes"
	"strings"
	"testing"

	"github.com/nimbushttp/nimbus/headers"
)

func TestWriteChunkedBodyRoundTripsThroughRequestBodyDecoder(t *testing.T) {
	var buf bytes.Buffer
	bw := bufio.NewWriter(&buf)

	body := strings.NewReader(strings.Repeat("ab", 20000)) // larger than chunkWriteBufSize

	if err := writeChunkedBody(bw, body, nil); err != nil {
		t.Fatalf("writeChunkedBody: %v", err)
	}

	if err := bw.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}

	head := &RequestHead{Chunked: true, ContentLength: -1}
	decoded := newTestBody(t, head, buf.String())

	var out bytes.Buffer

	buf2 := make([]byte, 4096)
	for {
		n, err := decoded.Read(buf2)
		out.Write(buf2[:n])

		if err != nil {
			break
		}
	}

	if out.String() != strings.Repeat("ab", 20000) {
		t.Fatalf("round trip mismatch, got %d bytes", out.Len())
	}
}

func TestWriteChunkedBodyWithTrailers(t *testing.T) {
	var buf bytes.Buffer
	bw := bufio.NewWriter(&buf)

	tr := headers.New()
	tr.Set("X-Checksum", "abc123")

	if err := writeChunkedBody(bw, strings.NewReader("hi"), tr); err != nil {
		t.Fatalf("writeChunkedBody: %v", err)
	}

	_ = bw.Flush()

	if !strings.Contains(buf.String(), "X-Checksum: abc123\r\n") {
		t.Fatalf("expected trailer in output: %q", buf.String())
	}

	if !strings.HasSuffix(buf.String(), "\r\n\r\n") {
		t.Fatalf("expected trailer section to end with the final CRLF, got %q", buf.String())
	}
}

func TestFormatChunkSizeHex(t *testing.T) {
	cases := map[int]string{0: "0", 1: "1", 15: "f", 16: "10", 255: "ff", 4096: "1000"}

	for n, want := range cases {
		if got := formatChunkSize(n); got != want {
			t.Fatalf("formatChunkSize(%d) = %q, want %q", n, got, want)
		}
	}
}
