package nimbus

import (
	"context"
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/xyproto/randomstring"

	"github.com/nimbushttp/nimbus/wserr"
)

// Server is the immutable, build-time-constructed configuration the
// connection driver reads from. It is never mutated after Build returns
// and may be used concurrently by as many goroutines, each driving one
// connection, as the host likes.
type Server struct {
	routers []*Router

	limits Limits

	keepAliveTimeout   time.Duration
	readTimeout        time.Duration
	writeTimeout       time.Duration
	maxRequestsPerConn int

	serverHeader       string
	compressionEnabled bool
	logger             zerolog.Logger
}

// HandleConnection drives one connection to completion. It never spawns
// a goroutine or opens a socket; conn
// is already established by the host. A nil error means the connection
// ended cleanly (EOF before any bytes of a new request, or the peer/host
// chose to stop reusing it); any other error is fatal and conn should be
// closed by the caller if it is not already.
func (s *Server) HandleConnection(ctx context.Context, conn Connection) error {
	bc := newBufferedConn(conn, s.limits.MaxHeadSize, s.readTimeout, s.writeTimeout)
	defer bc.release()

	connID := randomstring.HumanFriendlyString(10)

	requests := 0

	for {
		if s.maxRequestsPerConn > 0 && requests >= s.maxRequestsPerConn {
			return nil
		}

		idleTimeout := s.readTimeout
		if requests > 0 {
			idleTimeout = s.keepAliveTimeout
		}

		bc.readTimeout = idleTimeout

		head, err := parseHead(bc.br, s.limits)
		if err != nil {
			return s.handleHeadError(bc, connID, err, requests)
		}

		requests++

		reqLog := s.logger.With().
			Str("connection_id", connID).
			Str("method", head.Method).
			Str("path", head.Path).
			Logger()

		body := newRequestBody(bc.br, head)

		req := &Request{
			RequestHead: head,
			Body:        body,
			ctx:         ctx,
		}

		if head.Expect100 {
			body.onFirstRead = func() { _ = writeContinue(bc, head.Version) }
		}

		resp, fatalErr := s.dispatch(req)
		if fatalErr != nil {
			reqLog.Error().Err(fatalErr).Msg("fatal error handling request")
			bc.taint(fatalErr)

			return fatalErr
		}

		wantsClose := head.WantsClose()

		acceptEncoding := head.Headers.Get("Accept-Encoding")
		if !s.compressionEnabled {
			acceptEncoding = ""
		}

		if err := writeResponse(bc, head.Version, resp, wantsClose, acceptEncoding, s.serverHeader); err != nil {
			reqLog.Error().Err(err).Msg("failed to write response")

			return err
		}

		if err := bc.flush(); err != nil {
			reqLog.Error().Err(err).Msg("failed to flush response")

			return err
		}

		if drainErr := body.drain(); drainErr != nil {
			reqLog.Error().Err(drainErr).Msg("failed to drain request body")

			return drainErr
		}

		reqLog.Debug().Int("status", resp.Code).Msg("request handled")

		if resp.hijack != nil {
			return resp.hijack(conn)
		}

		if wantsClose {
			return nil
		}
	}
}

// handleHeadError implements the clean-EOF-vs-fatal-EOF split: EOF with
// nothing read yet ends the connection cleanly, anything else (including
// EOF mid-request) is fatal.
func (s *Server) handleHeadError(bc *bufferedConn, connID string, err error, requestsSoFar int) error {
	if err == io.EOF {
		return nil
	}

	if err == io.EOF || err == io.ErrUnexpectedEOF {
		err = wserr.Wrap(wserr.KindUnexpectedEOF, err, "connection closed mid-request")
	}

	if wsErr, ok := wserr.As(err); ok && !wsErr.Kind.Fatal() {
		resp := headErrorResponse(wsErr)

		_ = writeResponse(bc, "HTTP/1.1", resp, true, "", s.serverHeader)
		_ = bc.flush()

		return nil
	}

	s.logger.Error().Str("connection_id", connID).Err(err).Msg("fatal error parsing request head")

	return err
}

func headErrorResponse(e *wserr.Error) *Response {
	switch e.Kind {
	case wserr.KindHeaderTooLarge:
		return headerTooLargeResponse()
	default:
		return badRequestResponse(e.Error())
	}
}

// dispatch runs the router chain for one request: claim, filters,
// endpoint selection, response filters, and error-handler re-entry.
// Its second return value is only non-nil for
// fatal (connection-ending) failures; ordinary error conditions are
// always converted to a Response by a handler before dispatch returns.
func (s *Server) dispatch(req *Request) (*Response, error) {
	var rt *Router

	for _, candidate := range s.routers {
		if candidate.Predicate(req.RequestHead) {
			rt = candidate
			break
		}
	}

	if rt == nil {
		return NewResponse(404), nil
	}

	skip := make(map[int]bool)

	resp, err := s.runRouter(rt, req, skip)
	if err == nil {
		return resp, nil
	}

	if wsErr, ok := wserr.As(err); ok && wsErr.Kind.Fatal() {
		return nil, err
	}

	return s.recoverWithErrorHandler(rt, req, err, skip)
}

func (s *Server) runRouter(rt *Router, req *Request, skip map[int]bool) (*Response, error) {
	if result := runFilterChain(rt.preRoutingFilters, req); !result.isContinue() {
		if result.Err != nil {
			return nil, result.Err
		}

		return s.runResponseFiltersOrRecover(rt, req, result.Response, skip)
	}

	sel := rt.selectEndpoint(req.RequestHead)
	req.params = sel.params

	var resp *Response
	var err error

	switch {
	case sel.endpoint != nil:
		if result := runFilterChain(rt.postRoutingFilters, req); !result.isContinue() {
			if result.Err != nil {
				return nil, result.Err
			}

			return s.runResponseFiltersOrRecover(rt, req, result.Response, skip)
		}

		resp, err = sel.endpoint.Handler(req)
	case sel.mediaReason == failMethodNotAllowed:
		resp, err = rt.methodNotAllowedHandler(sel.methodAllow)(req)
	case sel.mediaReason == failUnsupportedMediaType:
		resp, err = rt.unsupportedMediaTypeHandler(req)
	case sel.mediaReason == failNotAcceptable:
		resp, err = rt.notAcceptableHandler(req)
	default:
		resp, err = rt.notFoundHandler(req)
	}

	if err != nil {
		return nil, err
	}

	return s.runResponseFiltersOrRecover(rt, req, resp, skip)
}

func (s *Server) runResponseFiltersOrRecover(rt *Router, req *Request, resp *Response, skip map[int]bool) (*Response, error) {
	final, err := runResponseFilters(rt.responseFilters, req, resp, skip)
	if err != nil {
		return s.recoverWithErrorHandler(rt, req, err, skip)
	}

	return final, nil
}

// recoverWithErrorHandler implements the re-entry rule: the
// error handler may produce a Response, which re-enters response
// filtering with the same, monotonically-growing skip-set, so a filter
// that already ran for this request never runs twice even across
// repeated error-handler invocations.
func (s *Server) recoverWithErrorHandler(rt *Router, req *Request, err error, skip map[int]bool) (*Response, error) {
	resp, handlerErr := rt.errorHandler(req, err)
	if handlerErr != nil {
		return nil, handlerErr
	}

	return s.runResponseFiltersOrRecover(rt, req, resp, skip)
}
