package nimbus

import "testing"

func TestCompilePathPatternLiteralsParamsWildcard(t *testing.T) {
	tokens, err := compilePathPattern("/api/{id}/files/*")
	if err != nil {
		t.Fatalf("compilePathPattern: %v", err)
	}

	if len(tokens) != 4 {
		t.Fatalf("got %d tokens", len(tokens))
	}

	if tokens[0].kind != tokenLiteral || tokens[0].literal != "api" {
		t.Fatalf("unexpected first token %+v", tokens[0])
	}

	if tokens[1].kind != tokenParam || tokens[1].name != "id" {
		t.Fatalf("unexpected second token %+v", tokens[1])
	}

	if tokens[3].kind != tokenWildcard {
		t.Fatalf("unexpected last token %+v", tokens[3])
	}
}

func TestCompilePathPatternWildcardMustBeLast(t *testing.T) {
	if _, err := compilePathPattern("/a/*/b"); err == nil {
		t.Fatalf("expected an error for a non-terminal wildcard")
	}
}

func TestMatchPathBindsParamsAndWildcard(t *testing.T) {
	tokens, err := compilePathPattern("/api/{id}/*")
	if err != nil {
		t.Fatalf("compilePathPattern: %v", err)
	}

	params, ok := matchPath(tokens, "/api/42/a/b/c")
	if !ok {
		t.Fatalf("expected a match")
	}

	if params["id"] != "42" || params[wildcardParamKey] != "a/b/c" {
		t.Fatalf("got %+v", params)
	}
}

func TestMatchPathRejectsWrongSegmentCount(t *testing.T) {
	tokens, _ := compilePathPattern("/a/b")

	if _, ok := matchPath(tokens, "/a/b/c"); ok {
		t.Fatalf("expected no match for a longer path")
	}

	if _, ok := matchPath(tokens, "/a"); ok {
		t.Fatalf("expected no match for a shorter path")
	}
}

func TestMatchPathRejectsEmptyParamSegment(t *testing.T) {
	tokens, _ := compilePathPattern("/a/{id}")

	if _, ok := matchPath(tokens, "/a/"); ok {
		t.Fatalf("expected an empty {id} segment to fail to match")
	}
}

func TestNewEndpointPanicsOnBadPattern(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected NewEndpoint to panic on a non-terminal wildcard")
		}
	}()

	NewEndpoint("GET", "/a/*/b", func(*Request) (*Response, error) { return nil, nil })
}

func TestEndpointMatchesMethodIsCaseInsensitiveAndOpen(t *testing.T) {
	ep := NewEndpoint("GET", "/a", nil)
	if !ep.matchesMethod("get") {
		t.Fatalf("expected a case-insensitive method match")
	}

	open := NewEndpoint("", "/a", nil)
	if !open.matchesMethod("DELETE") {
		t.Fatalf("an endpoint with no Method should match any method")
	}
}

func TestEndpointWithProducesConsumesChaining(t *testing.T) {
	ep := NewEndpoint("GET", "/a", nil).WithProduces("application/json").WithConsumes("text/plain")

	if len(ep.Produces) != 1 || ep.Produces[0] != "application/json" {
		t.Fatalf("got %+v", ep.Produces)
	}

	if len(ep.Consumes) != 1 || ep.Consumes[0] != "text/plain" {
		t.Fatalf("got %+v", ep.Consumes)
	}
}
