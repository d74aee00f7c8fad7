package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/enkryptcom/enkrypt-backend/pkg/log"
)

// backoffSchedule is the fixed sidecar restart backoff ladder: 500ms, 1s,
// 5s, 10s, 30s, 60s, 90s, then capped at 120s.
var backoffSchedule = []time.Duration{
	500 * time.Millisecond,
	1 * time.Second,
	5 * time.Second,
	10 * time.Second,
	30 * time.Second,
	60 * time.Second,
	90 * time.Second,
	120 * time.Second,
}

func backoffFor(attempt int) time.Duration {
	if attempt >= len(backoffSchedule) {
		return backoffSchedule[len(backoffSchedule)-1]
	}
	return backoffSchedule[attempt]
}

// RegistryMode selects what the /metrics handler serves.
type RegistryMode int

const (
	// Standalone emits this process's own collectors only.
	Standalone RegistryMode = iota
	// ClusterAggregator emits aggregated cluster metrics concatenated with
	// this process's local metrics (used by the cluster primary).
	ClusterAggregator
)

// AggregateFunc fetches the cluster-wide metrics text to concatenate with
// the local handler's output, used only in ClusterAggregator mode.
type AggregateFunc func() ([]byte, error)

// Sidecar runs the /metrics HTTP server and supervises itself: on
// listen/close failure it restarts with exponential backoff rather than
// crashing the host process.
type Sidecar struct {
	Addr      string
	Mode      RegistryMode
	Aggregate AggregateFunc
}

func (s *Sidecar) handler() http.Handler {
	local := Handler()
	if s.Mode == Standalone || s.Aggregate == nil {
		return local
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		if agg, err := s.Aggregate(); err == nil {
			_, _ = w.Write(agg)
			_, _ = w.Write([]byte("\n"))
		} else {
			log.Logger.Warn().Err(err).Msg("cluster metrics aggregation failed, serving local only")
		}
		local.ServeHTTP(w, r)
	})
}

// Run blocks, serving /metrics and restarting on failure until ctx is
// canceled. It never returns an error to the caller: failures are logged
// and retried.
func (s *Sidecar) Run(ctx context.Context) {
	attempt := 0
	for {
		if ctx.Err() != nil {
			return
		}

		mux := http.NewServeMux()
		mux.Handle("/metrics", s.handler())
		server := &http.Server{Addr: s.Addr, Handler: mux}

		errCh := make(chan error, 1)
		go func() {
			errCh <- server.ListenAndServe()
		}()

		select {
		case <-ctx.Done():
			_ = server.Close()
			return
		case err := <-errCh:
			if err != nil && err != http.ErrServerClosed {
				log.Logger.Error().Err(err).Int("attempt", attempt).Msg("metrics sidecar failed, restarting")
				wait := backoffFor(attempt)
				attempt++
				select {
				case <-time.After(wait):
				case <-ctx.Done():
					return
				}
				continue
			}
			return
		}
	}
}
