package nimbus

import "testing"

func TestHostPredicateExactMatch(t *testing.T) {
	p := HostPredicate("example.com")

	if !p(&RequestHead{Host: "example.com"}) {
		t.Fatalf("expected an exact host match to claim the request")
	}

	if p(&RequestHead{Host: "other.com"}) {
		t.Fatalf("expected a different host not to be claimed")
	}
}

func TestPathPrefixPredicate(t *testing.T) {
	p := PathPrefixPredicate("/api/")

	if !p(&RequestHead{Path: "/api/users"}) {
		t.Fatalf("expected a prefix match to claim the request")
	}

	if p(&RequestHead{Path: "/other"}) {
		t.Fatalf("expected a non-matching path not to be claimed")
	}
}

func TestAlwaysPredicateClaimsEverything(t *testing.T) {
	if !AlwaysPredicate(&RequestHead{}) {
		t.Fatalf("AlwaysPredicate must claim every request")
	}
}

func TestSelectEndpointNotFound(t *testing.T) {
	rt := NewRouter(AlwaysPredicate)
	rt.Get("/a", nil)

	sel := rt.selectEndpoint(&RequestHead{Method: "GET", Path: "/b"})
	if sel.mediaReason != failNotFound {
		t.Fatalf("expected failNotFound, got %+v", sel)
	}
}

func TestSelectEndpointMethodNotAllowedCollectsAllow(t *testing.T) {
	rt := NewRouter(AlwaysPredicate)
	rt.Get("/a", nil)
	rt.Post("/a", nil)

	sel := rt.selectEndpoint(&RequestHead{Method: "DELETE", Path: "/a"})
	if sel.mediaReason != failMethodNotAllowed {
		t.Fatalf("expected failMethodNotAllowed, got %+v", sel)
	}

	if len(sel.methodAllow) != 2 {
		t.Fatalf("expected both GET and POST in Allow, got %+v", sel.methodAllow)
	}
}

func TestSelectEndpointUnsupportedMediaType(t *testing.T) {
	rt := NewRouter(AlwaysPredicate)
	rt.Post("/a", nil).WithConsumes("application/json")

	sel := rt.selectEndpoint(&RequestHead{Method: "POST", Path: "/a", ContentType: "text/plain"})
	if sel.mediaReason != failUnsupportedMediaType {
		t.Fatalf("expected failUnsupportedMediaType, got %+v", sel)
	}
}

func TestSelectEndpointNotAcceptable(t *testing.T) {
	rt := NewRouter(AlwaysPredicate)
	rt.Get("/a", nil).WithProduces("application/json")
	rt.Get("/a", nil).WithProduces("text/plain")

	sel := rt.selectEndpoint(&RequestHead{Method: "GET", Path: "/a", Accept: "application/xml"})
	if sel.mediaReason != failNotAcceptable {
		t.Fatalf("expected failNotAcceptable, got %+v", sel)
	}
}

func TestSelectEndpointSingleConsumesMatchSkipsAcceptNegotiation(t *testing.T) {
	rt := NewRouter(AlwaysPredicate)
	ep := rt.Get("/a", nil)

	sel := rt.selectEndpoint(&RequestHead{Method: "GET", Path: "/a", Accept: "application/xml"})
	if sel.endpoint != ep {
		t.Fatalf("expected the sole endpoint to be selected regardless of Accept")
	}
}

func TestSelectEndpointPicksHighestScoringProduces(t *testing.T) {
	rt := NewRouter(AlwaysPredicate)
	jsonEp := rt.Get("/a", nil).WithProduces("application/json")
	rt.Get("/a", nil).WithProduces("text/plain")

	sel := rt.selectEndpoint(&RequestHead{Method: "GET", Path: "/a", Accept: "application/json, text/plain;q=0.5"})
	if sel.endpoint != jsonEp {
		t.Fatalf("expected the higher-quality application/json endpoint to win")
	}
}

func TestRouterHandleBindsParams(t *testing.T) {
	rt := NewRouter(AlwaysPredicate)
	ep := rt.Get("/users/{id}", nil)

	sel := rt.selectEndpoint(&RequestHead{Method: "GET", Path: "/users/7"})
	if sel.endpoint != ep || sel.params["id"] != "7" {
		t.Fatalf("got %+v", sel)
	}
}

func TestRouterFluentFilterRegistration(t *testing.T) {
	rt := NewRouter(AlwaysPredicate)

	rt.UsePreRouting(func(*Request) FilterResult { return Continue }).
		UsePostRouting(func(*Request) FilterResult { return Continue }).
		UseResponseFilter(func(req *Request, resp *Response) (*Response, error) { return resp, nil })

	if len(rt.preRoutingFilters) != 1 || len(rt.postRoutingFilters) != 1 || len(rt.responseFilters) != 1 {
		t.Fatalf("expected each filter list to have exactly one entry")
	}
}
