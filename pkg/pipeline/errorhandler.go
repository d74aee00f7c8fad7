package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/enkryptcom/enkrypt-backend/pkg/apierrors"
	"github.com/enkryptcom/enkrypt-backend/pkg/log"
)

// ErrorHandler is the mandatory final middleware: it recovers panics from
// downstream handlers and renders any error set via SetError on the request
// context, matching spec.md §7's production/debug rendering rules.
type ErrorHandler struct {
	debug bool
}

func NewErrorHandler(debug bool) *ErrorHandler {
	return &ErrorHandler{debug: debug}
}

type errHolder struct {
	err *apierrors.Error
}

type errCtxKey struct{}

// SetError records a handler-level failure to be rendered by the error
// handler once the handler chain unwinds. Handlers call this instead of
// writing an error response directly.
func SetError(r *http.Request, err *apierrors.Error) {
	if h, ok := r.Context().Value(errCtxKey{}).(*errHolder); ok {
		h.err = err
	}
}

func (e *ErrorHandler) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		holder := &errHolder{}
		ctx := context.WithValue(r.Context(), errCtxKey{}, holder)
		ctx = context.WithValue(ctx, debugErrorsKey{}, e.debug)
		r = r.WithContext(ctx)

		defer func() {
			if rec := recover(); rec != nil {
				var apiErr *apierrors.Error
				if err, ok := rec.(error); ok {
					apiErr = apierrors.As(err)
				} else {
					apiErr = apierrors.Internal(errors.New("panic in handler"))
				}
				log.Logger.Error().Interface("panic", rec).Msg("recovered panic in request handler")
				writeErr(w, r, apiErr)
			}
		}()

		next.ServeHTTP(w, r)

		if holder.err != nil {
			log.Logger.Error().Err(holder.err).Msg("request failed")
			writeErr(w, r, holder.err)
		}
	})
}

// NotFound renders a JSON 404 for an unmatched route. Build does not install
// it: unmatched routes get the route mux's own default 404.
func NotFound(w http.ResponseWriter, r *http.Request) {
	writeErr(w, r, apierrors.NotFound("ROUTE_NOT_FOUND", "no such route"))
}

// WriteJSON writes a successful JSON response body.
func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
