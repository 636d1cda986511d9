package nimbus

import (
	"strings"

	"github.com/nimbushttp/nimbus/wserr"
)

// HandlerFunc is the signature every endpoint handler, filter, and
// default error/not-found handler shares: given a Request, produce a
// Response or an error.
type HandlerFunc func(req *Request) (*Response, error)

// pathToken is one "/"-separated piece of an endpoint's path pattern.
type pathTokenKind int

const (
	tokenLiteral pathTokenKind = iota
	tokenParam
	tokenWildcard
)

type pathToken struct {
	kind    pathTokenKind
	literal string // valid when kind == tokenLiteral
	name    string // valid when kind == tokenParam
}

// compilePathPattern splits a path pattern into tokens, validating that
// a wildcard "*" token, if present, is the final one.
func compilePathPattern(pattern string) ([]pathToken, error) {
	pattern = strings.TrimPrefix(pattern, "/")
	if pattern == "" {
		return nil, nil
	}

	parts := strings.Split(pattern, "/")
	tokens := make([]pathToken, 0, len(parts))

	for i, part := range parts {
		switch {
		case part == "*":
			if i != len(parts)-1 {
				return nil, wserr.New(wserr.KindUser, "wildcard path token must be last: "+pattern)
			}

			tokens = append(tokens, pathToken{kind: tokenWildcard})
		case strings.HasPrefix(part, "{") && strings.HasSuffix(part, "}") && len(part) > 2:
			tokens = append(tokens, pathToken{kind: tokenParam, name: part[1 : len(part)-1]})
		default:
			tokens = append(tokens, pathToken{kind: tokenLiteral, literal: part})
		}
	}

	return tokens, nil
}

// matchPath strips path's leading slash, splits it on "/", and matches
// the segments against tokens, returning captured parameters on success.
func matchPath(tokens []pathToken, path string) (map[string]string, bool) {
	path = strings.TrimPrefix(path, "/")

	var segments []string
	if path != "" {
		segments = strings.Split(path, "/")
	}

	params := make(map[string]string)

	for i, tok := range tokens {
		if tok.kind == tokenWildcard {
			if i >= len(segments) {
				return nil, false
			}

			params[wildcardParamKey] = strings.Join(segments[i:], "/")

			return params, true
		}

		if i >= len(segments) {
			return nil, false
		}

		seg := segments[i]

		switch tok.kind {
		case tokenLiteral:
			if seg != tok.literal {
				return nil, false
			}
		case tokenParam:
			if seg == "" {
				return nil, false
			}

			params[tok.name] = seg
		}
	}

	if len(segments) != len(tokens) {
		return nil, false
	}

	return params, true
}

// Endpoint is a (path pattern, method, produces, consumes, handler)
// tuple. It carries no compression setting; eligibility for negotiated
// compression is a property of each Response.
type Endpoint struct {
	Pattern  string
	Method   string // "" matches any method
	Produces []string
	Consumes []string
	Handler  HandlerFunc

	tokens []pathToken
}

// NewEndpoint compiles pattern and returns an Endpoint. It panics if the
// pattern places a wildcard token anywhere but last — a build-time, not
// request-time, failure.
func NewEndpoint(method, pattern string, handler HandlerFunc) *Endpoint {
	tokens, err := compilePathPattern(pattern)
	if err != nil {
		panic(err)
	}

	return &Endpoint{Pattern: pattern, Method: method, Handler: handler, tokens: tokens}
}

// WithProduces records the media types this endpoint can render, most
// preferred first, for Accept negotiation.
func (e *Endpoint) WithProduces(types ...string) *Endpoint {
	e.Produces = types

	return e
}

// WithConsumes records the media types this endpoint accepts as request
// bodies, for Content-Type matching.
func (e *Endpoint) WithConsumes(types ...string) *Endpoint {
	e.Consumes = types

	return e
}

func (e *Endpoint) matchesMethod(method string) bool {
	return e.Method == "" || strings.EqualFold(e.Method, method)
}
