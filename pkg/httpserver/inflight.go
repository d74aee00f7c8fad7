package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/enkryptcom/enkrypt-backend/pkg/apierrors"
	"github.com/enkryptcom/enkrypt-backend/pkg/log"
)

type inflightRequest struct {
	startedAt time.Time
	cancel    context.CancelFunc
	tw        *timeoutWriter
}

// inflightSet tracks every request currently being served, keyed by its
// generated reqid, so the sweeper can abort requests that outlive the soft
// timeout.
type inflightSet struct {
	mu      sync.Mutex
	entries map[string]*inflightRequest
	debug   bool
}

type reqidKey struct{}

// ReqID extracts the per-request id assigned by the wrapping handler.
func ReqID(ctx context.Context) string {
	id, _ := ctx.Value(reqidKey{}).(string)
	return id
}

// timeoutWriter guards an http.ResponseWriter so that at most one of {the
// handler goroutine, the sweeper} ever writes a response, mirroring
// net/http.TimeoutHandler's internal writer: whichever side commits first
// wins, and the loser's writes are silently discarded rather than racing
// or double-writing headers.
type timeoutWriter struct {
	mu          sync.Mutex
	w           http.ResponseWriter
	timedOut    bool
	wroteHeader bool
}

func (tw *timeoutWriter) Header() http.Header {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	return tw.w.Header()
}

func (tw *timeoutWriter) WriteHeader(status int) {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	if tw.timedOut || tw.wroteHeader {
		return
	}
	tw.wroteHeader = true
	tw.w.WriteHeader(status)
}

func (tw *timeoutWriter) Write(b []byte) (int, error) {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	if tw.timedOut {
		return len(b), nil
	}
	if !tw.wroteHeader {
		tw.wroteHeader = true
		tw.w.WriteHeader(http.StatusOK)
	}
	return tw.w.Write(b)
}

// renderTimeout writes the 408 response if the handler hasn't already
// written one, and marks the writer so any response the handler produces
// afterward (for example once a cancelled storage call unblocks and
// returns) is dropped instead of following the 408 onto the wire.
func (tw *timeoutWriter) renderTimeout(debug bool) {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	if tw.wroteHeader {
		tw.timedOut = true
		return
	}
	tw.timedOut = true
	tw.wroteHeader = true
	status, body := apierrors.Render(apierrors.RequestTimeout(), debug)
	tw.w.Header().Set("Content-Type", "application/json; charset=utf-8")
	tw.w.WriteHeader(status)
	_ = json.NewEncoder(tw.w).Encode(body)
}

func (s *inflightSet) wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqid := uuid.NewString()
		ctx, cancel := context.WithCancel(r.Context())
		ctx = context.WithValue(ctx, reqidKey{}, reqid)
		tw := &timeoutWriter{w: w}

		s.mu.Lock()
		s.entries[reqid] = &inflightRequest{startedAt: time.Now(), cancel: cancel, tw: tw}
		s.mu.Unlock()

		defer func() {
			s.mu.Lock()
			delete(s.entries, reqid)
			s.mu.Unlock()
			cancel()
		}()

		next.ServeHTTP(tw, r.WithContext(ctx))
	})
}

// startSweeper runs a ticker at interval that aborts any request older than
// softTimeout: it writes a 408 directly to the client and cancels the
// request's context so any blocked storage call observing ctx can return
// promptly. Returns a stop function. A non-positive softTimeout disables
// sweeping.
func (s *inflightSet) startSweeper(softTimeout, interval time.Duration) func() {
	if softTimeout <= 0 {
		return func() {}
	}
	stop := make(chan struct{})
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case now := <-ticker.C:
				s.sweep(now, softTimeout)
			}
		}
	}()
	return func() { close(stop) }
}

func (s *inflightSet) sweep(now time.Time, softTimeout time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for reqid, req := range s.entries {
		if now.Sub(req.startedAt) > softTimeout {
			log.Logger.Warn().Str("reqid", reqid).Err(apierrors.RequestTimeout()).Msg("request exceeded soft timeout, aborting")
			req.tw.renderTimeout(s.debug)
			req.cancel()
			delete(s.entries, reqid)
		}
	}
}
