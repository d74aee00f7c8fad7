package pipeline

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/enkryptcom/enkrypt-backend/pkg/log"
)

type ctxKey string

const startedAtKey ctxKey = "pipeline.started_at"

// WithInit is the mandatory first middleware: assigns a request id, binds a
// child logger carrying {reqid, method, url, ip, remotePort}, and logs the
// outcome when the response finishes.
func WithInit() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqid := uuid.NewString()
			ip, portStr, _ := net.SplitHostPort(r.RemoteAddr)
			port, _ := strconv.Atoi(portStr)

			reqLogger := log.WithRequestID(reqid, r.Method, r.URL.String(), ip, port)
			ctx := reqLogger.WithContext(r.Context())
			ctx = context.WithValue(ctx, startedAtKey, time.Now())

			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r.WithContext(ctx))

			started, _ := ctx.Value(startedAtKey).(time.Time)
			reqLogger.Info().
				Int("status", sw.status).
				Dur("duration", time.Since(started)).
				Msg("request completed")
		})
	}
}

// statusWriter captures the status code written so the init middleware can
// log the final outcome.
type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(status int) {
	if !w.wroteHeader {
		w.status = status
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.wroteHeader = true
	}
	return w.ResponseWriter.Write(b)
}
