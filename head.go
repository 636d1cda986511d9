package nimbus

import (
	"bufio"
	"io"
	"net/textproto"
	"net/url"
	"strings"
	"sync"

	"golang.org/x/net/http/httpguts"

	"github.com/nimbushttp/nimbus/headers"
	"github.com/nimbushttp/nimbus/internal/ascii"
	"github.com/nimbushttp/nimbus/wserr"
)

// Limits bounds request-line + header parsing.
type Limits struct {
	// MaxHeadSize bounds the request line plus every header line,
	// including their terminating CRLFs. Default 8 KiB.
	MaxHeadSize int
	// MaxHeaderCount bounds the number of header lines. Default 256.
	MaxHeaderCount int
	// MaxHeaderLen bounds any single header line. Default 8 KiB.
	MaxHeaderLen int
	// AllowHTTP10 permits HTTP/1.0 request lines; when false, an
	// HTTP/1.0 request line is a KindMalformedRequest.
	AllowHTTP10 bool
}

// DefaultLimits returns a conservative set of parsing limits suitable
// for most hosts.
func DefaultLimits() Limits {
	return Limits{
		MaxHeadSize:    8 << 10,
		MaxHeaderCount: 256,
		MaxHeaderLen:   8 << 10,
	}
}

// RequestHead is the parsed request line and headers. It is
// immutable after parse except for Path, which pre-routing filters may
// rewrite.
type RequestHead struct {
	Method  string
	Target  string // origin-form request-target, as received
	Path    string // decoded path portion of Target; mutable
	RawPath string // Path as originally parsed, never mutated
	Query   string
	Version string // "HTTP/1.1" or, if enabled, "HTTP/1.0"

	Headers *headers.Headers

	Host          string
	ContentLength int64 // -1 when chunked, 0 when absent
	Chunked       bool
	Expect100     bool
	Accept        string
	ContentType   string

	connectionClose      bool
	wantsHTTP10KeepAlive bool
}

// ProtoAtLeast11 reports whether the request declared HTTP/1.1.
func (h *RequestHead) ProtoAtLeast11() bool {
	return h.Version == "HTTP/1.1"
}

// WantsClose reports whether the request asked the connection be closed
// after this exchange (Connection: close, or bare HTTP/1.0 without
// keep-alive).
func (h *RequestHead) WantsClose() bool {
	return h.connectionClose
}

var textprotoReaderPool sync.Pool

func newTextprotoReader(br *bufio.Reader) *textproto.Reader {
	if v := textprotoReaderPool.Get(); v != nil {
		tr := v.(*textproto.Reader)
		tr.R = br

		return tr
	}

	return textproto.NewReader(br)
}

func putTextprotoReader(tr *textproto.Reader) {
	tr.R = nil
	textprotoReaderPool.Put(tr)
}

// parseRequestLine splits "GET /foo?x=1 HTTP/1.1" into its three tokens.
func parseRequestLine(line string) (method, target, version string, ok bool) {
	method, rest, ok1 := strings.Cut(line, " ")
	target, version, ok2 := strings.Cut(rest, " ")

	return method, target, version, ok1 && ok2
}

func validMethod(method string) bool {
	if method == "" {
		return false
	}

	for i := 0; i < len(method); i++ {
		if !httpguts.IsTokenRune(rune(method[i])) {
			return false
		}
	}

	return true
}

// parseHead runs three phases: leading-CRLF tolerance, the request line,
// and headers until the blank line, enforcing the configured Limits
// throughout.
func parseHead(br *bufio.Reader, limits Limits) (*RequestHead, error) {
	total := 0

	// (a) RFC 7230 §3.5 tolerance: skip any number of leading CRLFs.
	for {
		b, err := br.Peek(1)
		if err != nil {
			return nil, err
		}

		if b[0] != '\r' && b[0] != '\n' {
			break
		}

		_, _ = br.ReadByte()

		total++
		if total > limits.MaxHeadSize {
			return nil, wserr.New(wserr.KindHeaderTooLarge, "leading CRLFs exceeded max head size")
		}
	}

	tp := newTextprotoReader(br)
	defer putTextprotoReader(tp)

	line, err := tp.ReadLine()
	if err != nil {
		return nil, err
	}

	total += len(line) + 2
	if total > limits.MaxHeadSize {
		return nil, wserr.New(wserr.KindHeaderTooLarge, "request line exceeded max head size")
	}

	if len(line) > limits.MaxHeaderLen {
		return nil, wserr.New(wserr.KindHeaderTooLarge, "request line too long")
	}

	method, target, version, ok := parseRequestLine(line)
	if !ok {
		return nil, wserr.New(wserr.KindMalformedRequest, "malformed request line: "+line)
	}

	if !validMethod(method) {
		return nil, wserr.New(wserr.KindMalformedRequest, "invalid method: "+method)
	}

	if target == "" || strings.ContainsAny(target, " \t") {
		return nil, wserr.New(wserr.KindMalformedRequest, "malformed request target: "+target)
	}

	switch version {
	case "HTTP/1.1":
	case "HTTP/1.0":
		if !limits.AllowHTTP10 {
			return nil, wserr.New(wserr.KindMalformedRequest, "HTTP/1.0 not permitted")
		}
	default:
		return nil, wserr.New(wserr.KindMalformedRequest, "unsupported version: "+version)
	}

	u, err := url.ParseRequestURI(target)
	if err != nil {
		return nil, wserr.New(wserr.KindMalformedRequest, "malformed request target: "+target)
	}

	head := &RequestHead{
		Method:        method,
		Target:        target,
		Path:          u.Path,
		RawPath:       u.Path,
		Query:         u.RawQuery,
		Version:       version,
		ContentLength: -1,
	}

	h := headers.New()
	count := 0

	for {
		rawLine, err := tp.ReadContinuedLine()
		if err != nil {
			if err == io.EOF {
				// The request line was already read: this EOF is mid-request.
				err = io.ErrUnexpectedEOF
			}

			return nil, err
		}

		total += len(rawLine) + 2
		if total > limits.MaxHeadSize {
			return nil, wserr.New(wserr.KindHeaderTooLarge, "headers exceeded max head size")
		}

		if rawLine == "" {
			break
		}

		if len(rawLine) > limits.MaxHeaderLen {
			return nil, wserr.New(wserr.KindHeaderTooLarge, "header line too long")
		}

		count++
		if count > limits.MaxHeaderCount {
			return nil, wserr.New(wserr.KindHeaderTooLarge, "too many headers")
		}

		name, value, ok := splitHeaderLine(rawLine)
		if !ok {
			return nil, wserr.New(wserr.KindMalformedRequest, "malformed header: "+rawLine)
		}

		h.Add(name, value)
	}

	head.Headers = h

	if hostVals := h.Values("Host"); len(hostVals) > 1 {
		return nil, wserr.New(wserr.KindMalformedRequest, "too many Host headers")
	}

	head.Host = h.Get("Host")

	if err := fillFraming(head, h, limits); err != nil {
		return nil, err
	}

	return head, nil
}

// splitHeaderLine splits "Name: value" and trims optional leading/trailing
// whitespace from the value, per RFC 7230 §3.2.
func splitHeaderLine(line string) (name, value string, ok bool) {
	name, value, ok = strings.Cut(line, ":")
	if !ok {
		return "", "", false
	}

	if name == "" || strings.ContainsAny(name, " \t") {
		return "", "", false
	}

	return name, ascii.TrimSpace(value), true
}

// fillFraming resolves Transfer-Encoding/Content-Length priority,
// Connection tokens, Expect, Accept and Content-Type.
func fillFraming(head *RequestHead, h *headers.Headers, limits Limits) error {
	if te := h.Get("Transfer-Encoding"); te != "" {
		tokens := strings.Split(te, ",")
		last := ascii.TrimSpace(tokens[len(tokens)-1])

		if !ascii.EqualFold(last, "chunked") {
			return wserr.New(wserr.KindMalformedRequest, "unsupported transfer-encoding: "+te)
		}

		head.Chunked = true
		head.ContentLength = -1
	} else if cl, ok := h.ContentLength(); ok {
		head.ContentLength = cl
	} else if h.Has("Content-Length") {
		return wserr.New(wserr.KindMalformedRequest, "malformed content-length")
	} else {
		head.ContentLength = 0
	}

	head.Expect100 = h.HasToken("Expect", "100-continue")
	head.Accept = h.Get("Accept")
	head.ContentType = h.Get("Content-Type")

	closeToken := h.HasToken("Connection", "close")
	keepAliveToken := h.HasToken("Connection", "keep-alive")

	switch head.Version {
	case "HTTP/1.1":
		head.connectionClose = closeToken
	case "HTTP/1.0":
		head.wantsHTTP10KeepAlive = keepAliveToken
		head.connectionClose = !keepAliveToken || closeToken
	}

	_ = limits

	return nil
}

func headerTooLargeResponse() *Response {
	return NewResponse(431)
}

func badRequestResponse(msg string) *Response {
	r := NewResponse(400)
	if msg != "" {
		r.SetFixedBody([]byte(msg))
		r.Headers.Set("Content-Type", "text/plain; charset=utf-8")
	}

	return r
}
