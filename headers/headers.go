// Package headers implements the case-insensitive, order-preserving,
// repeatable header multimap used throughout nimbus. Lookups are
// case-insensitive; emission preserves both insertion order and the
// original case of each header name, per RFC 7230 §3.2.
package headers

import (
	"bufio"
	"strconv"

	"golang.org/x/net/http/httpguts"

	"github.com/nimbushttp/nimbus/internal/ascii"
)

// Header is a single name/value pair in arrival order.
type Header struct {
	Name  string
	Value string
}

// Headers is an ordered, repeatable list of HTTP headers. A naive
// map[string][]string loses either original casing or insertion order;
// this type keeps both by storing a flat slice and scanning it
// case-insensitively for lookups.
type Headers struct {
	list []Header
}

// New returns an empty header multimap.
func New() *Headers {
	return &Headers{}
}

// Get returns the first value for name (case-insensitive), or "".
func (h *Headers) Get(name string) string {
	if h == nil {
		return ""
	}

	for _, kv := range h.list {
		if ascii.EqualFold(kv.Name, name) {
			return kv.Value
		}
	}

	return ""
}

// Has reports whether any header with the given name is present.
func (h *Headers) Has(name string) bool {
	if h == nil {
		return false
	}

	for _, kv := range h.list {
		if ascii.EqualFold(kv.Name, name) {
			return true
		}
	}

	return false
}

// Values returns every value for name, in arrival order.
func (h *Headers) Values(name string) []string {
	if h == nil {
		return nil
	}

	var out []string

	for _, kv := range h.list {
		if ascii.EqualFold(kv.Name, name) {
			out = append(out, kv.Value)
		}
	}

	return out
}

// Add appends a header without replacing any existing one with the same
// name.
func (h *Headers) Add(name, value string) {
	h.list = append(h.list, Header{Name: name, Value: value})
}

// Set replaces every existing header with the given name with a single
// header carrying value, preserving the position of the first occurrence.
// If name is not present, it is appended.
func (h *Headers) Set(name, value string) {
	for i := range h.list {
		if ascii.EqualFold(h.list[i].Name, name) {
			h.list[i].Value = value
			h.deleteFrom(i+1, name)

			return
		}
	}

	h.Add(name, value)
}

func (h *Headers) deleteFrom(start int, name string) {
	j := start

	for i := start; i < len(h.list); i++ {
		if ascii.EqualFold(h.list[i].Name, name) {
			continue
		}

		h.list[j] = h.list[i]
		j++
	}

	h.list = h.list[:j]
}

// Del removes every header with the given name.
func (h *Headers) Del(name string) {
	j := 0

	for _, kv := range h.list {
		if ascii.EqualFold(kv.Name, name) {
			continue
		}

		h.list[j] = kv
		j++
	}

	h.list = h.list[:j]
}

// Len returns the number of header entries (not distinct names).
func (h *Headers) Len() int {
	if h == nil {
		return 0
	}

	return len(h.list)
}

// Range calls fn for every header in arrival order. fn must not mutate h.
func (h *Headers) Range(fn func(name, value string)) {
	if h == nil {
		return
	}

	for _, kv := range h.list {
		fn(kv.Name, kv.Value)
	}
}

// Clone returns a deep copy.
func (h *Headers) Clone() *Headers {
	if h == nil {
		return nil
	}

	out := &Headers{list: make([]Header, len(h.list))}
	copy(out.list, h.list)

	return out
}

// ContentLength parses the Content-Length header. ok is false when the
// header is absent, non-numeric, negative, or duplicated with conflicting
// values (RFC 7230 §3.3.2).
func (h *Headers) ContentLength() (n int64, ok bool) {
	vals := h.Values("Content-Length")
	if len(vals) == 0 {
		return 0, false
	}

	n, err := strconv.ParseInt(vals[0], 10, 64)
	if err != nil || n < 0 {
		return 0, false
	}

	for _, v := range vals[1:] {
		m, err := strconv.ParseInt(v, 10, 64)
		if err != nil || m != n {
			return 0, false
		}
	}

	return n, true
}

// HasToken reports whether the comma-separated value of header name
// contains token, ASCII case-insensitively, across every occurrence of
// the header.
func (h *Headers) HasToken(name, token string) bool {
	return httpguts.HeaderValuesContainsToken(h.Values(name), token)
}

// WriteTo writes every header as "Name: Value\r\n" in insertion order.
func (h *Headers) WriteTo(bw *bufio.Writer) error {
	if h == nil {
		return nil
	}

	for _, kv := range h.list {
		if _, err := bw.WriteString(kv.Name); err != nil {
			return err
		}

		if _, err := bw.WriteString(": "); err != nil {
			return err
		}

		if _, err := bw.WriteString(kv.Value); err != nil {
			return err
		}

		if _, err := bw.WriteString("\r\n"); err != nil {
			return err
		}
	}

	return nil
}
