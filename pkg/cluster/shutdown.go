package cluster

import (
	"syscall"
	"time"

	"github.com/enkryptcom/enkrypt-backend/pkg/log"
)

// HandleSignal applies one incoming shutdown signal to the escalation
// ladder: the first signal begins graceful shutdown, the configured
// accelerated threshold force-closes idle and active connections, and the
// immediate threshold SIGKILLs every worker outright.
func (m *Manager) HandleSignal() {
	m.mu.Lock()
	m.signalCount++
	count := m.signalCount
	m.mu.Unlock()

	switch {
	case count >= m.shutdownCfg.SignalCountImmediate:
		log.Logger.Warn().Int("signal_count", count).Msg("shutdown escalated to immediate")
		m.killAll()
	case count >= m.shutdownCfg.SignalCountAccelerated:
		log.Logger.Warn().Int("signal_count", count).Msg("shutdown escalated to accelerated")
		m.broadcastShutdown(MsgBeginForcefulShutdown)
	case count == 1:
		log.Logger.Info().Msg("shutdown: graceful")
		m.broadcastShutdown(MsgBeginGracefulShutdown)
	default:
		// Counts between 1 and the accelerated threshold stay at the
		// graceful level; nothing further to escalate to yet.
	}

	m.mu.Lock()
	m.state = runStopping
	m.mu.Unlock()
	m.closeStop()
}

// beginStartupFailureShutdown drives graceful shutdown with the fixed 5s
// escalation-to-accelerated and 10s escalation-to-immediate timers used
// when no worker ever reaches the listening state.
func (m *Manager) beginStartupFailureShutdown() {
	m.mu.Lock()
	m.state = runStopping
	m.mu.Unlock()

	m.broadcastShutdown(MsgBeginGracefulShutdown)

	// closeStop below wakes Run so it can wait for the workers; these timers
	// must outlive it, so they do not watch stopCh.
	go func() {
		time.Sleep(5 * time.Second)
		m.broadcastShutdown(MsgBeginForcefulShutdown)
	}()
	go func() {
		time.Sleep(10 * time.Second)
		m.killAll()
	}()

	m.closeStop()
}

func (m *Manager) broadcastShutdown(t MessageType) {
	m.mu.Lock()
	workers := append([]*workerProc{}, m.workers...)
	m.mu.Unlock()
	for _, w := range workers {
		if w.getState() == workerExited {
			continue
		}
		if err := w.sendShutdown(Message{Type: t}); err != nil {
			log.Logger.Warn().Str("worker_id", w.id).Err(err).Msg("failed to deliver shutdown message, signaling directly")
			_ = w.signal(syscall.SIGTERM)
		}
	}
}

func (m *Manager) killAll() {
	m.mu.Lock()
	workers := append([]*workerProc{}, m.workers...)
	m.mu.Unlock()
	for _, w := range workers {
		if w.getState() == workerExited {
			continue
		}
		_ = w.kill()
	}
}

// Stop requests shutdown directly (used by tests and non-signal callers)
// without going through the signal-count ladder.
func (m *Manager) Stop() {
	m.broadcastShutdown(MsgBeginGracefulShutdown)
	m.mu.Lock()
	m.state = runStopping
	m.mu.Unlock()
	m.closeStop()
}
