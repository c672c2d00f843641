package middleware

import (
	"context"
	"time"

	"dds-rpc/message"
)

// TimeOutMiddleware answers SYSTEM_ERR when the handler does not finish in
// time. The handler keeps running with a cancelled context.
func TimeOutMiddleware(timeout time.Duration) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *message.Request) *message.Reply {
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			done := make(chan *message.Reply, 1)
			go func() {
				done <- next(ctx, req)
			}()

			select {
			case rep := <-done:
				return rep
			case <-ctx.Done():
				return message.NewAccepted(req.Header.Xid, message.SystemErr)
			}
		}
	}
}
