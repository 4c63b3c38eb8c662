// Package protocol implements the HTTP wire contract of the gateway.
//
// Every logical call is one POST to a single path. The body is the JSON
// envelope, the reply is the JSON status envelope:
//
//	POST <base>/api/gateway
//	Content-Type: application/json
//	token: <auth token, only when present>
//
//	{"method":"...","args":...,"version":...}
//	──────────────────────────────────────────
//	{"code":10000,"data":...,"msg":"..."}
package protocol

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"oars-console/codec"
	"oars-console/message"
	"strings"
)

const (
	GatewayPath = "/api/gateway"
	HealthPath  = "/health"

	HeaderContentType = "Content-Type"
	HeaderToken       = "token"

	// MaxBodySize caps how much of a reply is read before giving up.
	MaxBodySize = 32 << 20
)

// ErrEmptyBody is returned when the gateway replies without a body.
var ErrEmptyBody = errors.New("empty response body")

// StatusError is a non-2xx reply whose body is not a gateway envelope.
type StatusError struct {
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected http status: %s", e.Status)
}

// GatewayURL joins the base URL and the gateway path.
func GatewayURL(base string) string {
	return strings.TrimRight(base, "/") + GatewayPath
}

// Encode builds the POST for req. The body is the envelope only; req.Header
// is copied onto the HTTP request and the codec decides the Content-Type.
func Encode(ctx context.Context, base string, req *message.Request, c codec.Codec) (*http.Request, error) {
	body, err := c.Encode(req)
	if err != nil {
		return nil, fmt.Errorf("encode envelope: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, GatewayURL(base), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	httpReq.Header.Set(HeaderContentType, c.ContentType())
	return httpReq, nil
}

// Decode reads the reply envelope.
//
// A 2xx reply must carry a decodable envelope. A non-2xx reply is accepted
// only if its body is an envelope with a failure code; otherwise the status
// itself is the error. A non-2xx reply never succeeds.
func Decode(resp *http.Response, c codec.Codec) (*message.Response, error) {
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodySize))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	ok := resp.StatusCode >= 200 && resp.StatusCode < 300
	if len(data) == 0 {
		if !ok {
			return nil, &StatusError{StatusCode: resp.StatusCode, Status: resp.Status}
		}
		return nil, ErrEmptyBody
	}

	var envelope message.Response
	if err := c.Decode(data, &envelope); err != nil {
		if !ok {
			return nil, &StatusError{StatusCode: resp.StatusCode, Status: resp.Status}
		}
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	if !ok && (envelope.Code == 0 || envelope.Code == message.CodeSuccess) {
		return nil, &StatusError{StatusCode: resp.StatusCode, Status: resp.Status}
	}
	return &envelope, nil
}

// ReadRequest decodes an envelope from an incoming gateway request and
// attaches the incoming headers to it.
func ReadRequest(r *http.Request, c codec.Codec) (*message.Request, error) {
	data, err := io.ReadAll(io.LimitReader(r.Body, MaxBodySize))
	if err != nil {
		return nil, err
	}
	req := &message.Request{}
	if err := c.Decode(data, req); err != nil {
		return nil, err
	}
	req.Header = r.Header.Clone()
	return req, nil
}

// WriteResponse writes the envelope with HTTP 200. The gateway reports
// failures through the envelope code, never through the HTTP status.
func WriteResponse(w http.ResponseWriter, resp *message.Response, c codec.Codec) error {
	data, err := c.Encode(resp)
	if err != nil {
		return err
	}
	w.Header().Set(HeaderContentType, c.ContentType())
	w.WriteHeader(http.StatusOK)
	_, err = w.Write(data)
	return err
}
