// Package middleware wraps server-side call handling.
//
// Middlewares compose like onion layers around the procedure dispatcher:
//
//	Chain(A, B, C)(handler) → A(B(C(handler)))
//
// A handler returns the reply to send for a call, or nil when the server
// must drop the call without answering.
package middleware

import (
	"context"

	"dds-rpc/message"
)

type HandlerFunc func(ctx context.Context, req *message.Request) *message.Reply

type Middleware func(next HandlerFunc) HandlerFunc

// Chain combines middlewares into one; the first runs outermost.
func Chain(middlewares ...Middleware) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		for i := len(middlewares) - 1; i >= 0; i-- {
			next = middlewares[i](next)
		}
		return next
	}
}
