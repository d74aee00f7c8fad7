// Package cluster implements the primary process's worker pool: sizing,
// spawning, shutdown escalation, and rolling restart, generalized from the
// teacher's ticker-driven reconciliation loops (pkg/scheduler/scheduler.go)
// and batch rollout (pkg/deploy/deploy.go) onto OS processes instead of
// containers.
package cluster

import (
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"github.com/enkryptcom/enkrypt-backend/pkg/config"
	"github.com/enkryptcom/enkrypt-backend/pkg/log"
	"github.com/enkryptcom/enkrypt-backend/pkg/metrics"
)

// runState is the primary's own lifecycle phase, distinct from each
// worker's workerState.
type runState int

const (
	runRunning runState = iota
	runStopping
)

// Manager owns the shared listener and the set of worker processes bound
// to it, reconciling actual worker count against the configured pool size.
type Manager struct {
	cfg         config.ClusterConfig
	shutdownCfg config.ShutdownConfig

	selfExe    string
	workerArgs []string

	mu           sync.Mutex
	state        runState
	workers      []*workerProc
	generation   int
	lastSpawn    time.Time
	everListened bool
	signalCount  int

	stopCh    chan struct{}
	stopOnce  sync.Once
	doneCh    chan error
}

func (m *Manager) closeStop() {
	m.stopOnce.Do(func() { close(m.stopCh) })
}

// NewManager builds a Manager that will exec selfExe with workerArgs for
// each worker process (typically os.Args[0] plus a "worker" subcommand).
func NewManager(cfg config.ClusterConfig, shutdownCfg config.ShutdownConfig, selfExe string, workerArgs []string) *Manager {
	return &Manager{
		cfg:         cfg,
		shutdownCfg: shutdownCfg,
		selfExe:     selfExe,
		workerArgs:  workerArgs,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan error, 1),
	}
}

// Snapshot reports cluster state for pkg/metrics.Collector.
func (m *Manager) Snapshot() metrics.ClusterState {
	m.mu.Lock()
	defer m.mu.Unlock()
	running := 0
	for _, w := range m.workers {
		if w.getState() == workerListening {
			running++
		}
	}
	return metrics.ClusterState{
		Desired:    m.desired(),
		Running:    running,
		Generation: m.generation,
	}
}

func (m *Manager) desired() int {
	return desiredWorkers(
		m.cfg.MinWorkers, m.cfg.MaxWorkers,
		m.cfg.EstimatedMemoryMaxBytes, m.cfg.EstimatedMemoryPrimaryBytes,
		m.cfg.MemoryReservedBytes, m.cfg.EstimatedMemoryWorkerBytes,
	)
}

// Run binds the shared listener on addr and drives the spawn loop until
// Stop is called or a startup failure is declared. It blocks until every
// worker has exited.
func (m *Manager) Run(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("cluster: bind shared listener: %w", err)
	}
	tcpLn, ok := ln.(*net.TCPListener)
	if !ok {
		return fmt.Errorf("cluster: shared listener is not TCP")
	}
	lnFile, err := tcpLn.File()
	if err != nil {
		return fmt.Errorf("cluster: dup shared listener: %w", err)
	}
	defer lnFile.Close()

	debounce := m.cfg.AddWorkerDebounce
	if debounce <= 0 {
		debounce = time.Second
	}
	tickInterval := debounce
	if tickInterval > time.Second {
		tickInterval = time.Second
	}

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	log.Logger.Info().Str("addr", addr).Int("desired_workers", m.desired()).Msg("cluster primary starting")

	for {
		select {
		case <-ticker.C:
			if done := m.tick(lnFile, debounce); done {
				return m.waitAll()
			}
		case <-m.stopCh:
			return m.waitAll()
		}
	}
}

// tick runs one spawn-loop evaluation, grounded on Scheduler.schedule's
// per-tick reconciliation. Returns true once shutdown has fully drained.
func (m *Manager) tick(lnFile *os.File, debounce time.Duration) bool {
	m.mu.Lock()
	state := m.state
	count := len(m.activeLocked())
	desired := m.desired()
	sinceLastSpawn := time.Since(m.lastSpawn)
	everListened := m.everListened
	exitedCount := m.exitedCountLocked()
	m.mu.Unlock()

	if state == runRunning && count < desired && sinceLastSpawn > debounce {
		if err := m.spawnOneLocked(lnFile); err != nil {
			log.Logger.Error().Err(err).Msg("failed to spawn worker")
		}
		return false
	}

	if state == runRunning && !everListened && exitedCount > 0 && exitedCount == desired {
		log.Logger.Error().Msg("startup failure: every worker exited before any reached listening")
		m.beginStartupFailureShutdown()
		return false
	}

	if state == runStopping && count == 0 {
		return true
	}

	return false
}

func (m *Manager) activeLocked() []*workerProc {
	var active []*workerProc
	for _, w := range m.workers {
		if w.getState() != workerExited {
			active = append(active, w)
		}
	}
	return active
}

func (m *Manager) exitedCountLocked() int {
	n := 0
	for _, w := range m.workers {
		if w.getState() == workerExited {
			n++
		}
	}
	return n
}

func (m *Manager) spawnOneLocked(lnFile *os.File) error {
	m.mu.Lock()
	generation := m.generation
	m.mu.Unlock()

	w, err := spawnWorker(lnFile, generation, m.selfExe, m.workerArgs)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.workers = append(m.workers, w)
	m.lastSpawn = time.Now()
	m.mu.Unlock()

	go w.readLoop(func(_ *workerProc) {
		m.mu.Lock()
		m.everListened = true
		m.mu.Unlock()
	})
	go func() { _ = w.wait() }()

	log.Logger.Info().Str("worker_id", w.id).Int("generation", generation).Msg("spawned worker")
	return nil
}

// waitAll blocks until every tracked worker process has exited.
func (m *Manager) waitAll() error {
	for {
		m.mu.Lock()
		pending := 0
		failed := false
		for _, w := range m.workers {
			if w.getState() != workerExited {
				pending++
			} else {
				w.mu.Lock()
				if w.exitErr != nil {
					failed = true
				}
				w.mu.Unlock()
			}
		}
		m.mu.Unlock()
		if pending == 0 {
			if failed {
				return fmt.Errorf("cluster: one or more workers exited with an error")
			}
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}
}
