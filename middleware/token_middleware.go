package middleware

import (
	"context"
	"net/http"
	"oars-console/message"
	"oars-console/protocol"
)

// TokenMiddleware attaches the auth token read from source at call time.
// An empty token leaves the request without a token header.
func TokenMiddleware(source func() string) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *message.Request) (*message.Response, error) {
			if source != nil {
				if token := source(); token != "" {
					if req.Header == nil {
						req.Header = make(http.Header)
					}
					req.Header.Set(protocol.HeaderToken, token)
				}
			}
			return next(ctx, req)
		}
	}
}
