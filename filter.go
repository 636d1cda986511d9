package nimbus

// FilterResult is what a pre-routing or post-routing filter returns:
// either continue (Response is nil, Err is nil), abort with a Response,
// or abort with an error that is routed to the error handler.
type FilterResult struct {
	Response *Response
	Err      error
}

// Continue is the zero FilterResult: proceed to the next step.
var Continue = FilterResult{}

// Abort builds a FilterResult that short-circuits the pipeline with resp
// as the working response.
func Abort(resp *Response) FilterResult { return FilterResult{Response: resp} }

// Fail builds a FilterResult that routes err to the error handler.
func Fail(err error) FilterResult { return FilterResult{Err: err} }

func (r FilterResult) isContinue() bool { return r.Response == nil && r.Err == nil }

// FilterFunc is a pre-routing or post-routing filter. It may mutate
// req.Path and req.Headers in place.
type FilterFunc func(req *Request) FilterResult

// ResponseFilterFunc may fully rewrite the working Response, or return
// an error that re-enters the error handler.
type ResponseFilterFunc func(req *Request, resp *Response) (*Response, error)

// ErrorHandlerFunc receives the request head, the (possibly consumed)
// body, and the error that aborted the pipeline; it produces either a
// replacement Response or a fatal error.
type ErrorHandlerFunc func(req *Request, err error) (*Response, error)

// runFilterChain runs a pre-routing or post-routing filter slice in
// order, stopping at the first non-continue result.
func runFilterChain(filters []FilterFunc, req *Request) FilterResult {
	for _, f := range filters {
		result := f(req)
		if !result.isContinue() {
			return result
		}
	}

	return Continue
}

// runResponseFilters runs the router's response filters in order,
// skipping any whose index is already present in skip.
// It records every filter it runs into skip before returning.
func runResponseFilters(filters []ResponseFilterFunc, req *Request, resp *Response, skip map[int]bool) (*Response, error) {
	for i, f := range filters {
		if skip[i] {
			continue
		}

		skip[i] = true

		next, err := f(req, resp)
		if err != nil {
			return nil, err
		}

		resp = next
	}

	return resp, nil
}
