// Package client is the gateway client: every backend interaction of the
// console goes through Call.
//
// Call pipeline:
//
//	Call → envelope → middleware chain (token → logging → user → timeout) → HTTPTransport → classify
//
// Each failure is surfaced twice: once to the user through the Notifier,
// once to the caller as an *Error.
package client

import (
	"context"
	"net/http"
	"oars-console/message"
	"oars-console/middleware"
	"oars-console/notify"
	"oars-console/protocol"
	"oars-console/transport"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultTimeout is the fixed transport timeout when none is configured.
const DefaultTimeout = 3 * time.Second

// Config carries everything the client needs. Collaborators are passed in
// explicitly; the client reads no global state.
type Config struct {
	BaseURL string
	Timeout time.Duration

	// TokenSource returns the auth token at call time, "" for none.
	TokenSource func() string
	Notifier    notify.Notifier
	Logger      logrus.FieldLogger

	// Middlewares run after the token and logging middlewares and before
	// the timeout.
	Middlewares []middleware.Middleware
	HTTPClient  *http.Client
}

type Client struct {
	transport *transport.HTTPTransport
	handler   middleware.HandlerFunc
	notifier  notify.Notifier
}

// New validates cfg and builds the shared transport.
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, &Error{Kind: KindConfig, Message: "base URL is required"}
	}
	if cfg.Timeout < 0 {
		return nil, &Error{Kind: KindConfig, Message: "timeout must not be negative"}
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Notifier == nil {
		cfg.Notifier = notify.Discard
	}

	c := &Client{
		transport: transport.NewHTTPTransport(cfg.BaseURL, cfg.Timeout, cfg.HTTPClient),
		notifier:  cfg.Notifier,
	}

	// Build the chain once at construction, not per call.
	chain := []middleware.Middleware{
		middleware.TokenMiddleware(cfg.TokenSource),
		middleware.LoggingMiddleware(cfg.Logger),
	}
	chain = append(chain, cfg.Middlewares...)
	chain = append(chain, middleware.TimeOutMiddleware(cfg.Timeout))
	c.handler = middleware.Chain(chain...)(c.transport.Send)
	return c, nil
}

// BaseURL returns the gateway the client was built for.
func (c *Client) BaseURL() string {
	return c.transport.BaseURL()
}

// Call issues one POST for method and classifies the reply.
//
// A nil error always comes with a response whose code is the success
// sentinel. A business failure notifies the user with the gateway's msg; a
// transport failure notifies UnreachableMessage. Either way exactly one
// notification is sent and an *Error is returned.
func (c *Client) Call(ctx context.Context, method string, args any, version any) (*message.Response, error) {
	if strings.TrimSpace(method) == "" {
		return nil, &Error{Kind: KindInvalid, Message: "method is required"}
	}

	resp, err := c.handler(ctx, message.NewRequest(method, args, version))
	if err == nil && resp == nil {
		err = protocol.ErrEmptyBody
	}
	if err != nil {
		c.notifier.Error(UnreachableMessage)
		return nil, &Error{Kind: KindTransport, Method: method, Message: UnreachableMessage, Err: err}
	}
	if !resp.OK() {
		c.notifier.Error(resp.Msg)
		return nil, &Error{Kind: KindBusiness, Method: method, Code: resp.Code, Message: resp.Msg}
	}
	return resp, nil
}

// CallInto calls method and decodes the response data into reply. A nil
// reply skips decoding.
func (c *Client) CallInto(ctx context.Context, method string, args any, version any, reply any) error {
	resp, err := c.Call(ctx, method, args, version)
	if err != nil {
		return err
	}
	if reply == nil {
		return nil
	}
	if err := resp.Decode(reply); err != nil {
		return &Error{Kind: KindInvalid, Method: method, Message: "decode data: " + err.Error(), Err: err}
	}
	return nil
}

// Result is the settled outcome of an asynchronous call.
type Result struct {
	Response *message.Response
	Err      error
}

// Go starts the call in its own goroutine. The returned channel receives
// exactly one Result and is then closed.
func (c *Client) Go(ctx context.Context, method string, args any, version any) <-chan *Result {
	done := make(chan *Result, 1)
	go func() {
		defer close(done)
		resp, err := c.Call(ctx, method, args, version)
		done <- &Result{Response: resp, Err: err}
	}()
	return done
}
