package nimbus

import "testing"

func TestParseQualityListDefaultsAndOrder(t *testing.T) {
	tokens := parseQualityList("gzip;q=1.0, br;q=0.8, *;q=0.1")

	if len(tokens) != 3 {
		t.Fatalf("got %d tokens", len(tokens))
	}

	if tokens[0].token != "gzip" || tokens[0].q != 1.0 {
		t.Fatalf("unexpected first token %+v", tokens[0])
	}

	if tokens[2].token != "*" || tokens[2].q != 0.1 {
		t.Fatalf("unexpected last token %+v", tokens[2])
	}
}

func TestParseQualityListMalformedQDefaultsToOne(t *testing.T) {
	tokens := parseQualityList("gzip;q=notanumber")

	if len(tokens) != 1 || tokens[0].q != 1.0 {
		t.Fatalf("expected malformed q to default to 1.0, got %+v", tokens)
	}
}

func TestBestMediaTypeMatchSpecificityOrdering(t *testing.T) {
	candidates := []string{"application/json", "text/html"}

	got, ok := bestMediaTypeMatch("text/*;q=0.9, application/json;q=0.9", candidates)
	if !ok {
		t.Fatalf("expected a match")
	}

	if got != "application/json" {
		t.Fatalf("specific type should win over group-wildcard at equal q, got %q", got)
	}
}

func TestBestMediaTypeMatchNoAcceptableCandidate(t *testing.T) {
	_, ok := bestMediaTypeMatch("application/xml", []string{"application/json"})
	if ok {
		t.Fatalf("expected no match")
	}
}

func TestBestMediaTypeMatchEmptyAcceptPicksFirst(t *testing.T) {
	got, ok := bestMediaTypeMatch("", []string{"application/json", "text/html"})
	if !ok || got != "application/json" {
		t.Fatalf("got %q, %v", got, ok)
	}
}

func TestMediaTypeAcceptedWildcardConsumer(t *testing.T) {
	if !mediaTypeAccepted("application/json; charset=utf-8", []string{"application/*"}) {
		t.Fatalf("expected application/json to be accepted by application/*")
	}
}

func TestMediaTypeAcceptedNoConsumesMeansAnything(t *testing.T) {
	if !mediaTypeAccepted("anything/whatever", nil) {
		t.Fatalf("an endpoint with no Consumes should accept any Content-Type")
	}
}

func TestNegotiateContentEncodingTieBreakOrder(t *testing.T) {
	got := negotiateContentEncoding("br;q=1.0, gzip;q=1.0, deflate;q=1.0")
	if got != "gzip" {
		t.Fatalf("expected gzip to win the tie, got %q", got)
	}
}

func TestNegotiateContentEncodingSkipsIdentityAndStar(t *testing.T) {
	got := negotiateContentEncoding("identity;q=1.0, *;q=1.0")
	if got != "" {
		t.Fatalf("expected no real encoding to be chosen, got %q", got)
	}
}

func TestNegotiateContentEncodingHonorsHighestQFirst(t *testing.T) {
	got := negotiateContentEncoding("deflate;q=1.0, gzip;q=0.5")
	if got != "deflate" {
		t.Fatalf("expected deflate (higher q) over gzip, got %q", got)
	}
}

func TestNegotiateContentEncodingEmptyHeader(t *testing.T) {
	if got := negotiateContentEncoding(""); got != "" {
		t.Fatalf("expected no encoding for an empty header, got %q", got)
	}
}
