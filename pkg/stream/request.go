package stream

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"
)

// Request describes one streamed HTTP exchange.
type Request struct {
	// Method defaults to GET without a body and POST with one.
	Method string
	URL    string
	Header http.Header
	Body   []byte

	// Token is sent as a bearer token when non-empty.
	Token string

	// Timeout bounds the whole session, from connect to resolution.
	// Zero means no deadline beyond the caller's context.
	Timeout time.Duration

	// Record, when set, receives every raw byte of the response body.
	Record io.Writer

	// OnContent, when set, is called with each content fragment as it
	// arrives, in order, from the session goroutine.
	OnContent func(content string)

	// RequireTerminal makes a Sequence session fail with ErrTruncated when
	// the body ends without the terminal frame.
	RequireTerminal bool
}

// transportOwned are caller headers dropped before sending. net/http manages
// them per connection; a caller Accept-Encoding would also disable
// transparent gzip decoding and hand compressed bytes to the frame buffer.
var transportOwned = map[string]struct{}{
	"Connection":        {},
	"Host":              {},
	"Accept-Encoding":   {},
	"Content-Length":    {},
	"Transfer-Encoding": {},
}

func (r Request) method() string {
	if r.Method != "" {
		return r.Method
	}
	if len(r.Body) > 0 {
		return http.MethodPost
	}
	return http.MethodGet
}

// newHTTPRequest builds the transport request bound to ctx.
func (r Request) newHTTPRequest(ctx context.Context) (*http.Request, error) {
	var body io.Reader
	if len(r.Body) > 0 {
		body = bytes.NewReader(r.Body)
	}

	req, err := http.NewRequestWithContext(ctx, r.method(), r.URL, body)
	if err != nil {
		return nil, err
	}

	for key, values := range r.Header {
		if _, skip := transportOwned[http.CanonicalHeaderKey(key)]; skip {
			continue
		}
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}

	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "text/event-stream")
	}
	req.Header.Set("Cache-Control", "no-cache")

	if body != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}

	if r.Token != "" {
		req.Header.Set("Authorization", "Bearer "+r.Token)
	}

	return req, nil
}
