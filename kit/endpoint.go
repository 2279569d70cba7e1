// Package kit adapts transport-neutral endpoints to the HTTP and MCP
// surfaces of webclip.
package kit

import (
	"context"
	"log/slog"
	"time"

	"github.com/hazyhaar/webclip/idgen"
)

// Endpoint is one operation, independent of the transport that invoked it.
type Endpoint func(ctx context.Context, req any) (any, error)

// Middleware wraps an Endpoint.
type Middleware func(Endpoint) Endpoint

// Chain composes middlewares; the first one is the outermost.
func Chain(mws ...Middleware) Middleware {
	return func(next Endpoint) Endpoint {
		for i := len(mws) - 1; i >= 0; i-- {
			next = mws[i](next)
		}
		return next
	}
}

// WithRequestIDs assigns a request ID when the context has none.
func WithRequestIDs(gen idgen.Generator) Middleware {
	if gen == nil {
		gen = idgen.Prefixed("req_", idgen.Default)
	}
	return func(next Endpoint) Endpoint {
		return func(ctx context.Context, req any) (any, error) {
			if GetRequestID(ctx) == "" {
				ctx = WithRequestID(ctx, gen())
			}
			return next(ctx, req)
		}
	}
}

// Logging logs every call with its duration and outcome.
func Logging(logger *slog.Logger, name string) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next Endpoint) Endpoint {
		return func(ctx context.Context, req any) (any, error) {
			start := time.Now()
			resp, err := next(ctx, req)
			attrs := []any{
				"endpoint", name,
				"transport", GetTransport(ctx),
				"request_id", GetRequestID(ctx),
				"duration", time.Since(start),
			}
			if id := GetSessionID(ctx); id != "" {
				attrs = append(attrs, "session", id)
			}
			if addr := GetRemoteAddr(ctx); addr != "" {
				attrs = append(attrs, "remote_addr", addr)
			}
			if err != nil {
				logger.Warn("kit: endpoint failed", append(attrs, "error", err)...)
			} else {
				logger.Debug("kit: endpoint done", attrs...)
			}
			return resp, err
		}
	}
}
