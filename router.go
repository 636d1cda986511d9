package nimbus

// PredicateFunc decides whether a Router claims a request, consulting
// only the parts of the request that are safe to inspect before routing
// (the head — method, path, host, headers). Returning true claims the
// request; the router list stops consulting further routers — first
// claiming router wins.
type PredicateFunc func(head *RequestHead) bool

// HostPredicate builds a PredicateFunc that claims requests whose Host
// header exactly matches host.
func HostPredicate(host string) PredicateFunc {
	return func(head *RequestHead) bool { return head.Host == host }
}

// PathPrefixPredicate builds a PredicateFunc that claims requests whose
// path starts with prefix.
func PathPrefixPredicate(prefix string) PredicateFunc {
	return func(head *RequestHead) bool {
		return len(head.Path) >= len(prefix) && head.Path[:len(prefix)] == prefix
	}
}

// AlwaysPredicate claims every request; it is the predicate a catch-all
// default router is built with.
func AlwaysPredicate(*RequestHead) bool { return true }

// Router is the ordered bundle of endpoints, filters, and handlers: a
// predicate deciding whether it claims a request, plus everything needed
// to service a request it claims.
type Router struct {
	Predicate PredicateFunc

	endpoints []*Endpoint

	preRoutingFilters  []FilterFunc
	postRoutingFilters []FilterFunc
	responseFilters    []ResponseFilterFunc

	notFoundHandler            HandlerFunc
	notAcceptableHandler       HandlerFunc
	methodNotAllowedHandler    func(allow []string) HandlerFunc
	unsupportedMediaTypeHandler HandlerFunc
	errorHandler               ErrorHandlerFunc
}

// NewRouter constructs a Router claiming requests predicate accepts,
// pre-populated with the default fallback handlers (404/405/406/415/500).
func NewRouter(predicate PredicateFunc) *Router {
	return &Router{
		Predicate:                   predicate,
		notFoundHandler:             defaultNotFoundHandler,
		notAcceptableHandler:        defaultNotAcceptableHandler,
		methodNotAllowedHandler:     defaultMethodNotAllowedHandler,
		unsupportedMediaTypeHandler: defaultUnsupportedMediaTypeHandler,
		errorHandler:                defaultErrorHandler,
	}
}

// Handle registers an endpoint. Endpoints are matched in insertion
// order for tie-breaking.
func (rt *Router) Handle(ep *Endpoint) *Router {
	rt.endpoints = append(rt.endpoints, ep)

	return rt
}

// Get, Post, Put, Delete, Patch register a method-restricted endpoint
// with no produces/consumes constraints; callers chain WithProduces /
// WithConsumes on the returned *Endpoint for negotiation.
func (rt *Router) Get(pattern string, h HandlerFunc) *Endpoint    { return rt.method("GET", pattern, h) }
func (rt *Router) Post(pattern string, h HandlerFunc) *Endpoint   { return rt.method("POST", pattern, h) }
func (rt *Router) Put(pattern string, h HandlerFunc) *Endpoint    { return rt.method("PUT", pattern, h) }
func (rt *Router) Delete(pattern string, h HandlerFunc) *Endpoint { return rt.method("DELETE", pattern, h) }
func (rt *Router) Patch(pattern string, h HandlerFunc) *Endpoint  { return rt.method("PATCH", pattern, h) }

func (rt *Router) method(method, pattern string, h HandlerFunc) *Endpoint {
	ep := NewEndpoint(method, pattern, h)
	rt.Handle(ep)

	return ep
}

// UsePreRouting, UsePostRouting, UseResponseFilter append filters in
// registration order.
func (rt *Router) UsePreRouting(f FilterFunc) *Router    { rt.preRoutingFilters = append(rt.preRoutingFilters, f); return rt }
func (rt *Router) UsePostRouting(f FilterFunc) *Router   { rt.postRoutingFilters = append(rt.postRoutingFilters, f); return rt }
func (rt *Router) UseResponseFilter(f ResponseFilterFunc) *Router {
	rt.responseFilters = append(rt.responseFilters, f)
	return rt
}

// SetNotFoundHandler, SetNotAcceptableHandler, SetUnsupportedMediaTypeHandler,
// SetErrorHandler override the corresponding default handler.
func (rt *Router) SetNotFoundHandler(h HandlerFunc) *Router        { rt.notFoundHandler = h; return rt }
func (rt *Router) SetNotAcceptableHandler(h HandlerFunc) *Router   { rt.notAcceptableHandler = h; return rt }
func (rt *Router) SetUnsupportedMediaTypeHandler(h HandlerFunc) *Router {
	rt.unsupportedMediaTypeHandler = h
	return rt
}
func (rt *Router) SetErrorHandler(h ErrorHandlerFunc) *Router { rt.errorHandler = h; return rt }

// selection is the outcome of endpoint matching: either a
// claimed endpoint with bound params, or a reason no endpoint remained.
type selection struct {
	endpoint *Endpoint
	params   map[string]string

	pathMatched  bool   // at least one endpoint matched the path
	methodAllow  []string // Allow header candidates, if path matched but method didn't
	mediaReason  selectionFailure
}

type selectionFailure int

const (
	failNone selectionFailure = iota
	failNotFound
	failMethodNotAllowed
	failUnsupportedMediaType
	failNotAcceptable
)

// selectEndpoint runs the narrowing pipeline: path, then
// method, then consumes, then produces (scored by quality/specificity).
// The produces step runs only when more than one endpoint survives the
// consumes step: a single survivor is selected without consulting
// Accept, whatever its Produces set.
func (rt *Router) selectEndpoint(head *RequestHead) selection {
	var pathMatches []*Endpoint
	paramsByEndpoint := make(map[*Endpoint]map[string]string)

	for _, ep := range rt.endpoints {
		if params, ok := matchPath(ep.tokens, head.Path); ok {
			pathMatches = append(pathMatches, ep)
			paramsByEndpoint[ep] = params
		}
	}

	if len(pathMatches) == 0 {
		return selection{mediaReason: failNotFound}
	}

	var methodMatches []*Endpoint
	var allow []string

	for _, ep := range pathMatches {
		if ep.matchesMethod(head.Method) {
			methodMatches = append(methodMatches, ep)
		} else if ep.Method != "" {
			allow = append(allow, ep.Method)
		}
	}

	if len(methodMatches) == 0 {
		return selection{pathMatched: true, methodAllow: allow, mediaReason: failMethodNotAllowed}
	}

	var consumesMatches []*Endpoint

	for _, ep := range methodMatches {
		if mediaTypeAccepted(head.ContentType, ep.Consumes) {
			consumesMatches = append(consumesMatches, ep)
		}
	}

	if len(consumesMatches) == 0 {
		return selection{pathMatched: true, mediaReason: failUnsupportedMediaType}
	}

	if len(consumesMatches) == 1 {
		ep := consumesMatches[0]

		return selection{endpoint: ep, params: paramsByEndpoint[ep]}
	}

	best, ok := bestEndpointByAccept(head.Accept, consumesMatches)
	if !ok {
		return selection{pathMatched: true, mediaReason: failNotAcceptable}
	}

	return selection{endpoint: best, params: paramsByEndpoint[best]}
}

// bestEndpointByAccept narrows candidates by their Produces sets against
// the Accept header, reusing bestMediaTypeMatch per candidate and then
// picking the candidate whose matched media type scored highest.
func bestEndpointByAccept(accept string, candidates []*Endpoint) (*Endpoint, bool) {
	if accept == "" {
		return candidates[0], true
	}

	var flat []string
	owner := make(map[string]*Endpoint)

	for _, ep := range candidates {
		produces := ep.Produces
		if len(produces) == 0 {
			produces = []string{"*/*"}
		}

		for _, p := range produces {
			flat = append(flat, p)

			if _, seen := owner[p]; !seen {
				owner[p] = ep
			}
		}
	}

	match, ok := bestMediaTypeMatch(accept, flat)
	if !ok {
		return nil, false
	}

	return owner[match], true
}
