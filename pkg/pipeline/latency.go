package pipeline

import (
	"math/rand"
	"net/http"
	"time"
)

// WithLatencyInjection sleeps base + jitter*U(0,1) milliseconds before
// calling through, active only when either knob is positive.
func WithLatencyInjection(baseMs, jitterMs int) Middleware {
	return func(next http.Handler) http.Handler {
		if baseMs <= 0 && jitterMs <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			delay := time.Duration(baseMs)*time.Millisecond + time.Duration(rand.Float64()*float64(jitterMs))*time.Millisecond
			select {
			case <-time.After(delay):
			case <-r.Context().Done():
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
