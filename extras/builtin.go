package extras

import (
	"encoding/json"
	"io"

	"github.com/nimbushttp/nimbus"
)

// Echo is a ready-made endpoint handler that mirrors the request body
// back verbatim with the same Content-Type, useful for smoke-testing a
// freshly wired Server.
func Echo(req *nimbus.Request) (*nimbus.Response, error) {
	body, err := io.ReadAll(req.Body)
	if err != nil {
		return nil, err
	}

	resp := nimbus.NewResponse(200)
	resp.SetFixedBody(body)

	if ct := req.ContentType; ct != "" {
		resp.Headers.Set("Content-Type", ct)
	} else {
		resp.Headers.Set("Content-Type", "application/octet-stream")
	}

	return resp, nil
}

// healthBody is the fixed JSON payload Health answers with.
type healthBody struct {
	Status string `json:"status"`
}

// Health is a ready-made endpoint handler answering `{"status":"ok"}`
// as application/json, for use as a liveness/readiness probe target.
func Health(*nimbus.Request) (*nimbus.Response, error) {
	body, err := json.Marshal(healthBody{Status: "ok"})
	if err != nil {
		return nil, err
	}

	resp := nimbus.NewResponse(200)
	resp.SetFixedBody(body)
	resp.Headers.Set("Content-Type", "application/json")

	return resp, nil
}

// Redirect returns a handler issuing a 301 redirect to location, with no
// body.
func Redirect(location string) nimbus.HandlerFunc {
	return func(*nimbus.Request) (*nimbus.Response, error) {
		resp := nimbus.NewResponse(301)
		resp.Headers.Set("Location", location)

		return resp, nil
	}
}
