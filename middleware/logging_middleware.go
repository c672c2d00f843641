package middleware

import (
	"context"
	"time"

	"dds-rpc/message"

	"go.uber.org/zap"
)

func LoggingMiddleware(logger *zap.Logger) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *message.Request) *message.Reply {
			start := time.Now()
			rep := next(ctx, req)

			fields := []zap.Field{
				zap.Uint32("xid", req.Header.Xid),
				zap.Uint32("prog", req.Header.Prog),
				zap.Uint32("vers", req.Header.Vers),
				zap.Uint32("proc", req.Header.Proc),
				zap.Duration("duration", time.Since(start)),
			}
			switch {
			case rep == nil:
				logger.Warn("call dropped", fields...)
			case rep.Err() != nil:
				logger.Info("call failed", append(fields, zap.Error(rep.Err()))...)
			default:
				logger.Debug("call served", append(fields, zap.Int("result_bytes", len(rep.Body)))...)
			}
			return rep
		}
	}
}
