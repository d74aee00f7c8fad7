package pipeline

import (
	"net/http"

	"github.com/enkryptcom/enkrypt-backend/pkg/apierrors"
)

// WithBodyLimit bounds the request body to limitBytes, rejecting with 413
// when exceeded. A limitBytes <= 0 disables the check.
func WithBodyLimit(limitBytes int64) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limitBytes <= 0 {
				next.ServeHTTP(w, r)
				return
			}
			if r.ContentLength > limitBytes {
				writeErr(w, r, apierrors.PayloadTooLarge())
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, limitBytes)
			next.ServeHTTP(w, r)
		})
	}
}
