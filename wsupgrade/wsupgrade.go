// Package wsupgrade implements the WebSocket handshake switchover point
// (RFC 6455 §1.3). It stops at the handshake: the subprotocol itself
// (frames, masking, ping/pong) is out of scope for this core.
package wsupgrade

import (
	"crypto/sha1" //nolint:gosec // RFC 6455 mandates SHA-1 for the accept key.
	"encoding/base64"

	"github.com/nimbushttp/nimbus/headers"
	"github.com/nimbushttp/nimbus/internal/ascii"
)

// GUID is the fixed magic string RFC 6455 §1.3 specifies for computing
// Sec-WebSocket-Accept.
const GUID = "258EAFA5-E914-47DA-95CA-C5AB0DC85B11"

// Accept computes the Sec-WebSocket-Accept value for the given
// Sec-WebSocket-Key request header value.
func Accept(secWebSocketKey string) string {
	sum := sha1.Sum([]byte(secWebSocketKey + GUID)) //nolint:gosec

	return base64.StdEncoding.EncodeToString(sum[:])
}

// IsUpgradeRequest reports whether h carries the header combination that
// requests a WebSocket upgrade: Upgrade: websocket plus a Connection
// header containing the Upgrade token.
func IsUpgradeRequest(h *headers.Headers) bool {
	upgrade := h.Get("Upgrade")
	if upgrade == "" {
		return false
	}

	return ascii.EqualFold(upgrade, "websocket") && h.HasToken("Connection", "upgrade")
}

// RequestKey returns the Sec-WebSocket-Key header value, or "" if absent.
func RequestKey(h *headers.Headers) string {
	return h.Get("Sec-WebSocket-Key")
}
