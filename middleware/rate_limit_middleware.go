package middleware

import (
	"context"

	"dds-rpc/message"

	"golang.org/x/time/rate"
)

// RateLimitMiddleware admits calls through a token bucket of r calls per
// second with the given burst. Calls over the limit get SYSTEM_ERR.
func RateLimitMiddleware(r float64, burst int) Middleware {
	limiter := rate.NewLimiter(rate.Limit(r), burst)
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *message.Request) *message.Reply {
			if !limiter.Allow() {
				return message.NewAccepted(req.Header.Xid, message.SystemErr)
			}
			return next(ctx, req)
		}
	}
}
