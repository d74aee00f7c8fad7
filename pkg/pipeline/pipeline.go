// Package pipeline composes the request middleware chain as a series of
// func(http.Handler) http.Handler wrappers, the way the teacher composes
// Middleware methods around a request in pkg/ingress/middleware.go.
package pipeline

import (
	"net/http"

	"github.com/enkryptcom/enkrypt-backend/pkg/config"
)

// Middleware wraps a handler with one pipeline concern.
type Middleware func(http.Handler) http.Handler

// Chain composes middlewares in the given order: the first middleware is
// outermost (runs first on the way in, last on the way out).
func Chain(final http.Handler, mws ...Middleware) http.Handler {
	h := final
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// Build assembles the full ordered pipeline from spec.md §4.D: init,
// compression, CORS, body limit, latency injection, random-error injection,
// routes, 404 (via mux default), error handler. The error handler comes last
// in that list but wraps everything just inside init, so errors raised by any
// later stage reach it.
func Build(cfg config.APIConfig, routes http.Handler) http.Handler {
	errHandler := NewErrorHandler(cfg.DebugErrors)

	h := routes
	h = WithRandomErrorInjection(cfg.ExtraRandomErrorRate, cfg.ExtraRandomErrorBaseMs, cfg.ExtraRandomErrorJitterMs)(h)
	h = WithLatencyInjection(cfg.ExtraLatencyBaseMs, cfg.ExtraLatencyJitterMs)(h)
	h = WithBodyLimit(cfg.ReqBodySizeLimitBytes)(h)
	h = WithCORS(cfg.OriginWhitelist)(h)
	if cfg.Compression {
		h = WithCompression()(h)
	}
	h = errHandler.Wrap(h)
	h = WithInit()(h)
	return h
}
