// Package transport implements the one HTTP transport every gateway call
// goes through.
//
// The transport is built once at start-up with the base URL and a fixed
// timeout, then shared by all callers. Each Send is one POST; calls are
// independent and may complete in any order.
//
//	goroutine-1 ──Send──┐
//	goroutine-2 ──Send──┼──→ http.Client (keep-alive pool) ──→ POST /api/gateway
//	goroutine-3 ──Send──┘
package transport

import (
	"context"
	"fmt"
	"net/http"
	"oars-console/codec"
	"oars-console/message"
	"oars-console/protocol"
	"time"
)

// HTTPTransport sends envelopes to a single gateway.
type HTTPTransport struct {
	baseURL string       // e.g. "http://192.168.1.120:8801"
	client  *http.Client // shared, safe for concurrent use
	codec   codec.Codec  // the gateway only speaks JSON
}

// NewHTTPTransport builds the transport. When httpClient is nil a new
// client is created; otherwise a copy of it is used so the timeout does not
// leak into the caller's client.
func NewHTTPTransport(baseURL string, timeout time.Duration, httpClient *http.Client) *HTTPTransport {
	c := &http.Client{}
	if httpClient != nil {
		copied := *httpClient
		c = &copied
	}
	c.Timeout = timeout

	return &HTTPTransport{
		baseURL: baseURL,
		client:  c,
		codec:   codec.GetCodec(codec.CodecTypeJSON),
	}
}

// Send posts req and decodes the reply envelope. Any error returned here is
// a transport-level failure: the envelope was never read.
func (t *HTTPTransport) Send(ctx context.Context, req *message.Request) (*message.Response, error) {
	httpReq, err := protocol.Encode(ctx, t.baseURL, req, t.codec)
	if err != nil {
		return nil, err
	}

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, err
	}

	envelope, err := protocol.Decode(resp, t.codec)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", protocol.GatewayURL(t.baseURL), err)
	}
	return envelope, nil
}

func (t *HTTPTransport) BaseURL() string {
	return t.baseURL
}

func (t *HTTPTransport) Timeout() time.Duration {
	return t.client.Timeout
}
