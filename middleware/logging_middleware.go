package middleware

import (
	"context"
	"oars-console/message"
	"time"

	"github.com/sirupsen/logrus"
)

func LoggingMiddleware(logger logrus.FieldLogger) Middleware {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *message.Request) (*message.Response, error) {
			start := time.Now()
			resp, err := next(ctx, req)
			entry := logger.WithFields(logrus.Fields{
				"method":   req.Method,
				"duration": time.Since(start),
			})
			switch {
			case err != nil:
				entry.WithError(err).Warn("gateway call failed")
			case resp != nil && !resp.OK():
				entry.WithField("code", int(resp.Code)).Warnf("gateway call rejected: %s", resp.Msg)
			default:
				entry.Debug("gateway call")
			}
			return resp, err
		}
	}
}
