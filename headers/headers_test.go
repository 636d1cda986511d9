package headers

import (
	"bufio"
	"bytes"
	"testing"
)

func TestAddGetCaseInsensitive(t *testing.T) {
	h := New()
	h.Add("Content-Type", "text/plain")
	h.Add("X-Trace", "a")
	h.Add("X-Trace", "b")

	if got := h.Get("content-type"); got != "text/plain" {
		t.Fatalf("Get content-type = %q", got)
	}

	if got := h.Values("x-trace"); len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("Values x-trace = %v", got)
	}
}

func TestSetReplacesAllAndPreservesPosition(t *testing.T) {
	h := New()
	h.Add("A", "1")
	h.Add("B", "2")
	h.Add("a", "3")

	h.Set("a", "final")

	var order []string
	h.Range(func(name, value string) { order = append(order, name+"="+value) })

	if len(order) != 2 || order[0] != "A=final" || order[1] != "B=2" {
		t.Fatalf("unexpected order after Set: %v", order)
	}
}

func TestDel(t *testing.T) {
	h := New()
	h.Add("Keep", "1")
	h.Add("Drop", "2")
	h.Del("drop")

	if h.Has("Drop") {
		t.Fatal("Drop should have been removed")
	}

	if !h.Has("Keep") {
		t.Fatal("Keep should remain")
	}
}

func TestContentLengthConflict(t *testing.T) {
	h := New()
	h.Add("Content-Length", "5")
	h.Add("Content-Length", "6")

	if _, ok := h.ContentLength(); ok {
		t.Fatal("conflicting Content-Length values must be rejected")
	}
}

func TestContentLengthDuplicateAgreeing(t *testing.T) {
	h := New()
	h.Add("Content-Length", "5")
	h.Add("Content-Length", "5")

	n, ok := h.ContentLength()
	if !ok || n != 5 {
		t.Fatalf("ContentLength() = %d, %v, want 5, true", n, ok)
	}
}

func TestHasToken(t *testing.T) {
	h := New()
	h.Add("Connection", "Keep-Alive, Upgrade")

	if !h.HasToken("Connection", "upgrade") {
		t.Fatal("expected token match")
	}

	if h.HasToken("Connection", "close") {
		t.Fatal("unexpected token match")
	}
}

func TestWriteToPreservesOrderAndCase(t *testing.T) {
	h := New()
	h.Add("Server", "nimbus")
	h.Add("X-Id", "42")

	var buf bytes.Buffer
	bw := bufio.NewWriter(&buf)

	if err := h.WriteTo(bw); err != nil {
		t.Fatal(err)
	}

	bw.Flush()

	want := "Server: nimbus\r\nX-Id: 42\r\n"
	if buf.String() != want {
		t.Fatalf("WriteTo = %q, want %q", buf.String(), want)
	}
}

func TestClone(t *testing.T) {
	h := New()
	h.Add("A", "1")

	clone := h.Clone()
	clone.Add("B", "2")

	if h.Has("B") {
		t.Fatal("mutating clone must not affect original")
	}
}
