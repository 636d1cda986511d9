package nimbus

import (
	"sort"
	"strconv"
	"strings"

	"github.com/nimbushttp/nimbus/internal/ascii"
)

// mimeSpecificity orders candidate Accept tokens by how narrowly they
// match: specific > group-wildcard > wildcard. Higher values win.
// Accept-Encoding negotiation does not use it.
type mimeSpecificity int

const (
	specWildcard mimeSpecificity = iota
	specGroupWildcard
	specSpecific
)

// qualityToken is one comma-separated entry of an Accept or
// Accept-Encoding header: a token plus its optional q= weight.
type qualityToken struct {
	token string
	q     float64
}

// parseQualityList parses a header value shaped like
// "gzip;q=1.0, br;q=0.8, *;q=0.1" or "text/html, application/json;q=0.9"
// into tokens, preserving header order for ties. Malformed q values
// default to 1.0 rather than rejecting the whole header.
func parseQualityList(header string) []qualityToken {
	if header == "" {
		return nil
	}

	parts := strings.Split(header, ",")
	out := make([]qualityToken, 0, len(parts))

	for _, part := range parts {
		part = ascii.TrimSpace(part)
		if part == "" {
			continue
		}

		token := part
		q := 1.0

		if semi := strings.IndexByte(part, ';'); semi >= 0 {
			token = ascii.TrimSpace(part[:semi])
			params := part[semi+1:]

			for _, p := range strings.Split(params, ";") {
				p = ascii.TrimSpace(p)
				name, val, ok := strings.Cut(p, "=")

				if ok && ascii.EqualFold(ascii.TrimSpace(name), "q") {
					if f, err := strconv.ParseFloat(ascii.TrimSpace(val), 64); err == nil {
						q = f
					}
				}
			}
		}

		if token == "" {
			continue
		}

		out = append(out, qualityToken{token: token, q: q})
	}

	return out
}

// mediaTypeSpecificity classifies an Accept entry's specificity.
func mediaTypeSpecificity(token string) mimeSpecificity {
	if token == "*/*" {
		return specWildcard
	}

	if strings.HasSuffix(token, "/*") {
		return specGroupWildcard
	}

	return specSpecific
}

// mediaTypePermits reports whether accept token `a` (possibly containing
// wildcards) permits the concrete candidate media type `c`.
func mediaTypePermits(a, c string) bool {
	if a == "*/*" {
		return true
	}

	aType, aSub, aOK := strings.Cut(a, "/")
	cType, cSub, cOK := strings.Cut(c, "/")

	if !aOK || !cOK {
		return ascii.EqualFold(a, c)
	}

	if !ascii.EqualFold(aType, cType) {
		return false
	}

	return aSub == "*" || ascii.EqualFold(aSub, cSub)
}

// stripParams discards "; charset=..."-style parameters, leaving the
// bare "type/subtype" token Accept matching operates on.
func stripParams(mediaType string) string {
	if semi := strings.IndexByte(mediaType, ';'); semi >= 0 {
		mediaType = mediaType[:semi]
	}

	return ascii.TrimSpace(mediaType)
}

// bestMediaTypeMatch picks the content-negotiation winner: of the
// candidates an endpoint produces, pick the one the Accept header
// permits with the highest specificity, breaking ties by the client's
// declared quality and then candidate order. It returns ok=false if no
// candidate is acceptable (the caller should answer 406 Not Acceptable).
func bestMediaTypeMatch(acceptHeader string, candidates []string) (string, bool) {
	if acceptHeader == "" {
		if len(candidates) == 0 {
			return "", false
		}

		return candidates[0], true
	}

	accepted := parseQualityList(acceptHeader)
	if len(accepted) == 0 {
		if len(candidates) == 0 {
			return "", false
		}

		return candidates[0], true
	}

	type scored struct {
		candidate   string
		specificity mimeSpecificity
		q           float64
		order       int
	}

	var best scored
	found := false

	for ci, cand := range candidates {
		bare := stripParams(cand)

		for _, a := range accepted {
			if a.q <= 0 {
				continue
			}

			if !mediaTypePermits(a.token, bare) {
				continue
			}

			s := scored{candidate: cand, specificity: mediaTypeSpecificity(a.token), q: a.q, order: ci}

			if !found || better(s, best) {
				best = s
				found = true
			}
		}
	}

	if !found {
		return "", false
	}

	return best.candidate, true
}

func better(a, b struct {
	candidate   string
	specificity mimeSpecificity
	q           float64
	order       int
}) bool {
	if a.specificity != b.specificity {
		return a.specificity > b.specificity
	}

	if a.q != b.q {
		return a.q > b.q
	}

	return a.order < b.order
}

// mediaTypeAccepted reports whether the Content-Type of an incoming
// request is one of the endpoint's declared consumable media types.
func mediaTypeAccepted(contentType string, consumes []string) bool {
	if len(consumes) == 0 {
		return true
	}

	bare := stripParams(contentType)

	for _, c := range consumes {
		if mediaTypePermits(c, bare) || mediaTypePermits(bare, c) {
			return true
		}
	}

	return false
}

// negotiateContentEncoding picks a response Content-Encoding from the
// client's Accept-Encoding header. Ties among equally
// weighted, equally specific tokens break gzip > br > deflate.
func negotiateContentEncoding(acceptEncoding string) string {
	if acceptEncoding == "" {
		return ""
	}

	tokens := parseQualityList(acceptEncoding)
	if len(tokens) == 0 {
		return ""
	}

	rank := map[string]int{"gzip": 3, "br": 2, "deflate": 1}

	sort.SliceStable(tokens, func(i, j int) bool {
		return tokens[i].q > tokens[j].q
	})

	bestQ := tokens[0].q
	if bestQ <= 0 {
		return ""
	}

	best := ""
	bestRank := -1

	for _, t := range tokens {
		if t.q != bestQ {
			break
		}

		name := ascii.TrimSpace(t.token)

		if name == "identity" || name == "*" {
			continue
		}

		if r, ok := rank[name]; ok && r > bestRank {
			best = name
			bestRank = r
		}
	}

	return best
}
