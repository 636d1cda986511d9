package nimbus

import "context"

// Request is what routers, filters, and endpoint handlers operate on: a
// parsed head, a read-once body, and the path parameters the router
// bound while matching.
type Request struct {
	*RequestHead

	Body *RequestBody

	// ctx is the context the host passed to HandleConnection, shared by
	// every request on the connection. The core adds no values to it and
	// never cancels it.
	ctx context.Context

	params map[string]string

	// RemoteAddr is a peer address slot. HandleConnection never fills it
	// in, so it is empty unless code that builds the Request sets it.
	RemoteAddr string
}

// Context returns the request's context.Context. It is never nil.
func (r *Request) Context() context.Context {
	if r.ctx == nil {
		return context.Background()
	}

	return r.ctx
}

// Param returns the value the router bound to a {name} path segment, or
// "" if name was not part of the matched route's template.
func (r *Request) Param(name string) string {
	return r.params[name]
}

// wildcardParamKey is the key a trailing "*" path template segment is
// bound under.
const wildcardParamKey = "*"

// Wildcard returns whatever a route's trailing "*" segment captured.
func (r *Request) Wildcard() string {
	return r.params[wildcardParamKey]
}
