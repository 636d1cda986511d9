package nimbus

import (
	"strings"

	"github.com/nimbushttp/nimbus/wserr"
)

// defaultNotFoundHandler answers with a bare 404 and no body, matching
// the "404 fallback" testable property.
func defaultNotFoundHandler(*Request) (*Response, error) {
	return NewResponse(404), nil
}

// defaultNotAcceptableHandler answers 406 when no endpoint's Produces
// set satisfies the request's Accept header.
func defaultNotAcceptableHandler(*Request) (*Response, error) {
	return NewResponse(406), nil
}

// defaultUnsupportedMediaTypeHandler answers 415 when no endpoint's
// Consumes set accepts the request's Content-Type.
func defaultUnsupportedMediaTypeHandler(*Request) (*Response, error) {
	return NewResponse(415), nil
}

// defaultMethodNotAllowedHandler answers 405 with an Allow header built
// from every endpoint whose path matched but whose method didn't.
func defaultMethodNotAllowedHandler(allow []string) HandlerFunc {
	return func(*Request) (*Response, error) {
		resp := NewResponse(405)

		if len(allow) > 0 {
			resp.Headers.Set("Allow", strings.Join(dedupeStrings(allow), ", "))
		}

		return resp, nil
	}
}

func dedupeStrings(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))

	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}

	return out
}

// defaultErrorHandler maps a tagged error's Kind to a Response, falling
// back to 500 Internal Server Error for anything it doesn't recognize.
// Fatal kinds (timeout, unexpected EOF, I/O) are never expected to reach
// here — the driver intercepts those before routing — but are handled
// defensively with 500 in case a handler wraps and rethrows one.
func defaultErrorHandler(_ *Request, err error) (*Response, error) {
	wrapped, ok := wserr.As(err)
	if !ok {
		return NewResponse(500), nil
	}

	status := wrapped.Kind.StatusCode()
	if status == 0 {
		status = 500
	}

	resp := NewResponse(status)

	if len(wrapped.Allow) > 0 {
		resp.Headers.Set("Allow", strings.Join(dedupeStrings(wrapped.Allow), ", "))
	}

	return resp, nil
}
