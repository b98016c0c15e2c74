// Package kit holds transport-agnostic endpoint plumbing: a business
// operation is an Endpoint, middleware wraps it, and transport adapters
// (MCP here) expose it without the operation knowing the wire format.
package kit

import (
	"context"
	"log/slog"
	"time"
)

// Endpoint is one business operation: typed request in, typed response out.
type Endpoint func(ctx context.Context, req any) (any, error)

// Middleware wraps an Endpoint with cross-cutting behaviour.
type Middleware func(Endpoint) Endpoint

// Chain composes middlewares; the first argument is outermost.
func Chain(mw ...Middleware) Middleware {
	return func(next Endpoint) Endpoint {
		for i := len(mw) - 1; i >= 0; i-- {
			next = mw[i](next)
		}
		return next
	}
}

// Logging returns a middleware that records each call's duration and
// outcome under the given operation name.
func Logging(logger *slog.Logger, name string) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next Endpoint) Endpoint {
		return func(ctx context.Context, req any) (any, error) {
			start := time.Now()
			resp, err := next(ctx, req)
			if err != nil {
				logger.Warn("endpoint failed", "op", name, "duration", time.Since(start), "error", err)
			} else {
				logger.Debug("endpoint done", "op", name, "duration", time.Since(start))
			}
			return resp, err
		}
	}
}
