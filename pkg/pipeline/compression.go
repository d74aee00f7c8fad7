package pipeline

import (
	"net/http"

	"github.com/klauspost/compress/gzhttp"
)

// WithCompression negotiates response content-encoding via
// klauspost/compress's gzhttp wrapper, already a transitive dependency
// surface in the pack (storj) and adopted directly here.
func WithCompression() Middleware {
	return func(next http.Handler) http.Handler {
		wrapped, err := gzhttp.NewWrapper()
		if err != nil {
			return next
		}
		return wrapped(next)
	}
}
