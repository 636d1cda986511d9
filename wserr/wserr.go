// Package wserr defines the tagged, downcastable error value that crosses
// the connection/router boundary. Error handlers receive a plain error
// and use As to recover a *wserr.Error and inspect its Kind, rather than
// needing to know concrete error types; errors that are not tagged
// yield no *wserr.Error.
package wserr

import (
	"fmt"

	pkgerrors "github.com/pkg/errors"
)

// Kind identifies the class of failure. Kinds group by how the driver
// must react: some are always fatal (connection closed, no response),
// others have a default response status that the not-found/error
// machinery can emit.
type Kind int

const (
	// KindMalformedRequest covers a bad request line, header, or framing.
	KindMalformedRequest Kind = iota
	// KindHeaderTooLarge means the request line + headers exceeded the
	// configured maximum head size or header count.
	KindHeaderTooLarge
	// KindUnsupportedMediaType means no endpoint's consumes set matched
	// the request's Content-Type.
	KindUnsupportedMediaType
	// KindMethodNotAllowed means the path matched but no endpoint accepts
	// the request method.
	KindMethodNotAllowed
	// KindNotAcceptable means no endpoint's produces set satisfies the
	// request's Accept header.
	KindNotAcceptable
	// KindTimeout covers a read or write deadline expiring.
	KindTimeout
	// KindUnexpectedEOF covers the peer closing mid-request or mid-body.
	KindUnexpectedEOF
	// KindIO covers any other transport-level I/O failure.
	KindIO
	// KindUser wraps an error surfaced by endpoint/filter/handler code.
	KindUser
)

func (k Kind) String() string {
	switch k {
	case KindMalformedRequest:
		return "malformed-request"
	case KindHeaderTooLarge:
		return "header-too-large"
	case KindUnsupportedMediaType:
		return "unsupported-media-type"
	case KindMethodNotAllowed:
		return "method-not-allowed"
	case KindNotAcceptable:
		return "not-acceptable"
	case KindTimeout:
		return "timeout"
	case KindUnexpectedEOF:
		return "unexpected-eof"
	case KindIO:
		return "io-error"
	case KindUser:
		return "user-error"
	default:
		return "unknown"
	}
}

// StatusCode returns the default HTTP status for kind, or 0 if the kind
// has no associated response (the connection is simply closed instead).
func (k Kind) StatusCode() int {
	switch k {
	case KindMalformedRequest:
		return 400
	case KindHeaderTooLarge:
		return 431
	case KindUnsupportedMediaType:
		return 415
	case KindMethodNotAllowed:
		return 405
	case KindNotAcceptable:
		return 406
	default:
		return 0
	}
}

// Error is the tagged error value passed to error handlers. It supports
// both stdlib errors.Unwrap/errors.As chains and github.com/pkg/errors'
// Cause() convention, since the rest of the module's internal wrapping
// uses pkg/errors for stack-trace-carrying wraps.
type Error struct {
	Kind Kind
	// Allow lists the methods that would have matched, for
	// KindMethodNotAllowed responses' Allow header.
	Allow []string
	msg   string
	cause error
}

// New creates a bare *Error of the given kind.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, msg: msg}
}

// Wrap creates an *Error of the given kind, carrying cause as its wrapped
// cause. The cause is itself wrapped with pkg/errors so a stack trace is
// captured at the point of failure.
func Wrap(kind Kind, cause error, msg string) *Error {
	if cause == nil {
		return New(kind, msg)
	}

	return &Error{Kind: kind, msg: msg, cause: pkgerrors.Wrap(cause, msg)}
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.msg, e.cause)
	}

	if e.msg != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.msg)
	}

	return e.Kind.String()
}

// Unwrap supports errors.Is/errors.As chains over the wrapped cause.
func (e *Error) Unwrap() error {
	return e.cause
}

// Cause supports the github.com/pkg/errors Cause() convention.
func (e *Error) Cause() error {
	return e.cause
}

// As reports whether err is (or wraps) a *wserr.Error, returning it.
// Unlike errors.As, this does not require the caller to already know the
// concrete type — it is the documented downcast path for callers that
// only have an error interface value.
func As(err error) (*Error, bool) {
	for err != nil {
		if e, ok := err.(*Error); ok {
			return e, true
		}

		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return nil, false
		}

		err = u.Unwrap()
	}

	return nil, false
}

// Is reports whether err is (or wraps) a *wserr.Error of the given kind.
func Is(err error, kind Kind) bool {
	e, ok := As(err)

	return ok && e.Kind == kind
}

// Fatal reports whether a Kind leaves the connection with no possible
// response.
func (k Kind) Fatal() bool {
	switch k {
	case KindTimeout, KindUnexpectedEOF, KindIO:
		return true
	default:
		return false
	}
}
