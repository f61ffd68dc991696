package gateway

import (
	"net/http"
	"net/url"
)

// Request describes one outbound API call. The body is held as bytes so the
// gateway can replay the request after a token renewal; a request is replayed
// at most once.
type Request struct {
	Method string
	Path   string // relative to the gateway's base URL, e.g. "/budget"
	Query  url.Values
	Header http.Header
	Body   []byte
}

// Response is a fully-read API response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// OK reports whether the status code is in the 2xx range.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode <= 299
}
