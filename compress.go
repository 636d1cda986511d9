package nimbus

import (
	"io"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
)

// wrapCompressedReader wraps body so that reading from the result
// yields encoding-compressed bytes of body's contents, streamed through
// an io.Pipe so the driver never has to buffer a whole response to
// compress it. encoding must be one of "gzip", "br", or
// "deflate"; any other value is a programmer error in negotiateContentEncoding.
func wrapCompressedReader(body io.Reader, encoding string) (io.Reader, error) {
	pr, pw := io.Pipe()

	var cw io.WriteCloser

	switch encoding {
	case "gzip":
		cw, _ = gzip.NewWriterLevel(pw, gzip.DefaultCompression)
	case "deflate":
		cw, _ = flate.NewWriter(pw, flate.DefaultCompression)
	case "br":
		cw = brotli.NewWriter(pw)
	default:
		return body, nil
	}

	go func() {
		_, err := io.Copy(cw, body)

		closeErr := cw.Close()
		if err == nil {
			err = closeErr
		}

		_ = pw.CloseWithError(err)
	}()

	return pr, nil
}
