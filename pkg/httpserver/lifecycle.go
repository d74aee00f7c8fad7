// Package httpserver wraps net/http.Server in an explicit three-phase
// shutdown state machine, mirroring the teacher's small Start/Stop server
// wrappers (pkg/api/health.go, pkg/api/server.go) but generalized into a
// reusable Lifecycle type with bounded waits and a request sweeper.
package httpserver

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/enkryptcom/enkrypt-backend/pkg/disposer"
	"github.com/enkryptcom/enkrypt-backend/pkg/log"
)

// State is one phase of the lifecycle state machine.
type State int

const (
	StateListening State = iota
	StateGracefulShutdown
	StateAcceleratedShutdown
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateListening:
		return "listening"
	case StateGracefulShutdown:
		return "graceful_shutdown"
	case StateAcceleratedShutdown:
		return "accelerated_shutdown"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Config bounds the lifecycle's waits.
type Config struct {
	ListenBound time.Duration // default 5s
	SoftBound   time.Duration // default 15s, from graceful signal
	HardBound   time.Duration // default 15s, from accelerated signal

	ReqSoftTimeout         time.Duration
	ReqSoftTimeoutInterval time.Duration

	// DebugErrors controls whether the sweeper's 408 response includes
	// debug-mode error detail, matching the pipeline error handler's own
	// debug/production rendering split.
	DebugErrors bool
}

func defaults(cfg Config) Config {
	if cfg.ListenBound == 0 {
		cfg.ListenBound = 5 * time.Second
	}
	if cfg.SoftBound == 0 {
		cfg.SoftBound = 15 * time.Second
	}
	if cfg.HardBound == 0 {
		cfg.HardBound = 15 * time.Second
	}
	if cfg.ReqSoftTimeoutInterval == 0 {
		cfg.ReqSoftTimeoutInterval = time.Second
	}
	return cfg
}

// Lifecycle manages one net/http.Server through Listening ->
// GracefulShutdown -> AcceleratedShutdown -> Terminated.
type Lifecycle struct {
	cfg    Config
	server *http.Server
	disp   *disposer.Stack

	mu    sync.Mutex
	state State

	inflight inflightSet
}

// New wraps handler in a Lifecycle bound to addr. Callers register extra
// teardown with Disposer().Add before calling Start.
func New(addr string, handler http.Handler, cfg Config) *Lifecycle {
	cfg = defaults(cfg)
	l := &Lifecycle{
		cfg:  cfg,
		disp: &disposer.Stack{},
		state: StateListening,
		inflight: inflightSet{
			entries: make(map[string]*inflightRequest),
			debug:   cfg.DebugErrors,
		},
	}
	l.server = &http.Server{
		Addr:    addr,
		Handler: l.inflight.wrap(handler),
	}
	return l
}

// Disposer exposes the lifecycle's teardown stack so callers can register
// additional cleanup (metrics server, cluster manager, etc.) that should run
// in reverse order alongside the HTTP server's own shutdown.
func (l *Lifecycle) Disposer() *disposer.Stack { return l.disp }

// State returns the current lifecycle phase.
func (l *Lifecycle) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

func (l *Lifecycle) setState(s State) {
	l.mu.Lock()
	l.state = s
	l.mu.Unlock()
}

// Start binds the listener, verifies it entered listening state within the
// listen bound, starts the request sweeper, and begins serving in the
// background. It returns once listening is confirmed (or the bound expires).
func (l *Lifecycle) Start() error {
	lc := net.ListenConfig{}
	ctx, cancel := context.WithTimeout(context.Background(), l.cfg.ListenBound)
	defer cancel()

	ln, err := lc.Listen(ctx, "tcp", l.server.Addr)
	if err != nil {
		return err
	}
	return l.serve(ln)
}

// StartOn serves on a listener the caller already obtained (for example one
// inherited from the primary over a shared file descriptor), skipping the
// bind step but otherwise behaving exactly like Start.
func (l *Lifecycle) StartOn(ln net.Listener) error {
	return l.serve(ln)
}

func (l *Lifecycle) serve(ln net.Listener) error {
	stopSweeper := l.inflight.startSweeper(l.cfg.ReqSoftTimeout, l.cfg.ReqSoftTimeoutInterval)
	l.disp.Add(func() error {
		stopSweeper()
		return nil
	})

	serveErrCh := make(chan error, 1)
	go func() {
		serveErrCh <- l.server.Serve(ln)
	}()

	select {
	case err := <-serveErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	default:
	}

	log.Logger.Info().Str("addr", l.server.Addr).Msg("http server listening")
	return nil
}

// Shutdown drives the escalation ladder: soft shutdown (stop accepting,
// drain in-flight) bounded by SoftBound, then a hard shutdown bounded by
// HardBound. It always finishes in StateTerminated.
func (l *Lifecycle) Shutdown() error {
	l.setState(StateGracefulShutdown)
	log.Logger.Info().Msg("graceful shutdown: draining in-flight requests")

	softCtx, cancel := context.WithTimeout(context.Background(), l.cfg.SoftBound)
	defer cancel()
	softErr := l.server.Shutdown(softCtx)

	if softErr != nil {
		l.setState(StateAcceleratedShutdown)
		log.Logger.Warn().Err(softErr).Msg("soft shutdown bound exceeded, forcing close")

		hardCtx, hardCancel := context.WithTimeout(context.Background(), l.cfg.HardBound)
		defer hardCancel()
		done := make(chan error, 1)
		go func() { done <- l.server.Close() }()

		select {
		case err := <-done:
			if err != nil {
				l.setState(StateTerminated)
				return err
			}
		case <-hardCtx.Done():
			l.setState(StateTerminated)
			return errors.New("hard shutdown bound exceeded: close not confirmed")
		}
	}

	l.setState(StateTerminated)
	if err := l.disp.Close(); err != nil {
		log.Logger.Error().Err(err).Msg("teardown errors during shutdown")
		return err
	}
	return nil
}

// Accelerate forces escalation to accelerated shutdown regardless of the
// current phase: an in-progress graceful shutdown jumps straight to force
// -closing connections, and a still-listening server is force-closed
// outright (used when a worker receives a forceful shutdown message before
// a graceful one).
func (l *Lifecycle) Accelerate() {
	switch l.State() {
	case StateGracefulShutdown, StateListening:
		l.setState(StateAcceleratedShutdown)
		_ = l.server.Close()
	}
}
