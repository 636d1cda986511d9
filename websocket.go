package nimbus

import (
	"github.com/nimbushttp/nimbus/wserr"
	"github.com/nimbushttp/nimbus/wsupgrade"
)

// WebSocketHandlerFunc is invoked once the 101 Switching Protocols
// response has been written and flushed; it receives the raw
// Connection so the caller can hand it off to whatever subprotocol
// implementation it likes. This core implements only the handshake
// — everything past the 101 response, including framing,
// masking, and ping/pong, is out of scope.
type WebSocketHandlerFunc func(req *Request, conn Connection) error

// UpgradeResponse builds the 101 Switching Protocols Response for a
// validated WebSocket handshake request, per RFC 6455 §1.3.
// Callers are expected to check IsWebSocketUpgrade first. once is
// handed the raw Connection after the 101 response is flushed; the
// core's involvement with the connection ends there.
func UpgradeResponse(req *Request, once WebSocketHandlerFunc) (*Response, error) {
	if !IsWebSocketUpgrade(req) {
		return nil, wserr.New(wserr.KindMalformedRequest, "not a websocket upgrade request")
	}

	key := wsupgrade.RequestKey(req.Headers)
	if key == "" {
		return nil, wserr.New(wserr.KindMalformedRequest, "missing Sec-WebSocket-Key")
	}

	resp := NewResponse(101)
	resp.DisableCompression()
	resp.Headers.Set("Upgrade", "websocket")
	resp.Headers.Set("Connection", "Upgrade")
	resp.Headers.Set("Sec-WebSocket-Accept", wsupgrade.Accept(key))

	if once != nil {
		resp.SetHijack(func(conn Connection) error { return once(req, conn) })
	}

	return resp, nil
}

// IsWebSocketUpgrade reports whether req carries the Upgrade/Connection
// header combination RFC 6455 requires.
func IsWebSocketUpgrade(req *Request) bool {
	return wsupgrade.IsUpgradeRequest(req.Headers)
}
