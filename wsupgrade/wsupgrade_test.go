package wsupgrade

import (
	"testing"

	"github.com/nimbushttp/nimbus/headers"
)

func TestAcceptKnownVector(t *testing.T) {
	// RFC 6455 §1.3 worked example.
	got := Accept("dGhlIHNhbXBsZSBub25jZQ==")
	want := "s3pPLMBiTxaQ9kYGzzhZRbK+xOo="

	if got != want {
		t.Fatalf("Accept() = %q, want %q", got, want)
	}
}

func TestIsUpgradeRequest(t *testing.T) {
	h := headers.New()
	h.Add("Upgrade", "websocket")
	h.Add("Connection", "Upgrade")

	if !IsUpgradeRequest(h) {
		t.Fatal("expected upgrade request to be recognized")
	}

	h2 := headers.New()
	h2.Add("Upgrade", "websocket")

	if IsUpgradeRequest(h2) {
		t.Fatal("missing Connection: Upgrade token must not be recognized")
	}
}
