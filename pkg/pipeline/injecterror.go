package pipeline

import (
	"fmt"
	"math/rand"
	"net/http"
	"time"

	"github.com/enkryptcom/enkrypt-backend/pkg/apierrors"
)

// injectableStatuses is the fixed 17-element list random-error injection
// draws from.
var injectableStatuses = []int{403, 406, 408, 418, 422, 429, 451, 500, 501, 502, 503, 504, 505, 506, 507, 508, 510}

// WithRandomErrorInjection fails a fraction of requests (errorRate) after
// sleeping base + jitter*U(0,1) ms, drawing a status from the fixed list.
// Disabled on /health; the noInjectErrors query flag bypasses it on any
// request.
func WithRandomErrorInjection(errorRate float64, baseMs, jitterMs int) Middleware {
	return func(next http.Handler) http.Handler {
		if errorRate <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/health" {
				next.ServeHTTP(w, r)
				return
			}
			if r.URL.Query().Get("noInjectErrors") != "" {
				next.ServeHTTP(w, r)
				return
			}
			if rand.Float64() >= errorRate {
				next.ServeHTTP(w, r)
				return
			}

			delay := time.Duration(baseMs)*time.Millisecond + time.Duration(rand.Float64()*float64(jitterMs))*time.Millisecond
			select {
			case <-time.After(delay):
			case <-r.Context().Done():
				return
			}

			status := injectableStatuses[rand.Intn(len(injectableStatuses))]
			err := apierrors.Injected(status, fmt.Sprintf("injected error %d", status))
			writeErr(w, r, err)
		})
	}
}
