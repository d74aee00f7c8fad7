package cluster

import (
	"time"

	"github.com/enkryptcom/enkrypt-backend/pkg/log"
)

// rolloverAcceleratedTimeout and rolloverImmediateTimeout bound how long a
// single worker's rollover may take before the primary escalates it, the
// same "per-batch timers" shape as the teacher's rolling update delay.
const (
	rolloverAcceleratedTimeout = 45 * time.Second
	rolloverImmediateTimeout   = 90 * time.Second
	rolloverSafetyInterval     = 17500 * time.Millisecond
)

// RollingRestart increments the generation id and starts the one-at-a-time
// rollover loop, triggered by SIGHUP. Mirrors deploy.rollingUpdate's "bump
// the target, let reconciliation replace instances one at a time."
func (m *Manager) RollingRestart() {
	m.mu.Lock()
	m.generation++
	gen := m.generation
	m.mu.Unlock()

	log.Logger.Info().Int("generation", gen).Msg("rolling restart requested")

	go m.rolloverLoop()
}

// rolloverLoop re-evaluates every safety interval, rolling over at most one
// stale worker per pass until none remain.
func (m *Manager) rolloverLoop() {
	ticker := time.NewTicker(rolloverSafetyInterval)
	defer ticker.Stop()

	m.rolloverOnce()
	for {
		select {
		case <-ticker.C:
			if !m.rolloverOnce() {
				return
			}
		case <-m.stopCh:
			return
		}
	}
}

// rolloverOnce rolls over the single oldest worker of a prior generation,
// if eligible, and reports whether any stale worker remains afterward.
func (m *Manager) rolloverOnce() bool {
	m.mu.Lock()
	gen := m.generation
	desired := m.desired()

	var target *workerProc
	staleRemaining := 0
	for _, w := range m.workers {
		if w.getState() == workerExited {
			continue
		}
		if w.generation < gen {
			staleRemaining++
			if w.getState() != workerShuttingDown && (target == nil || w.startedAt.Before(target.startedAt)) {
				target = w
			}
		}
	}

	// anyOtherListening must consider every worker but the rollover target,
	// of any generation: a listening worker left over from an earlier
	// rollover pass can absorb traffic just as well as a current-generation
	// one.
	anyOtherListening := false
	for _, w := range m.workers {
		if w == target || w.getState() == workerExited {
			continue
		}
		if w.getState() == workerListening {
			anyOtherListening = true
			break
		}
	}
	m.mu.Unlock()

	if target == nil {
		return staleRemaining > 0
	}
	if !anyOtherListening && desired != 1 {
		log.Logger.Warn().Msg("rollover deferred: no other listening worker to absorb traffic")
		return true
	}

	log.Logger.Info().Str("worker_id", target.id).Int("stale_generation", target.generation).Msg("rolling over worker")
	if err := target.sendShutdown(Message{Type: MsgBeginGracefulShutdown}); err != nil {
		log.Logger.Warn().Str("worker_id", target.id).Err(err).Msg("rollover shutdown message failed")
	}

	go m.escalateRollover(target)
	return staleRemaining > 1
}

// escalateRollover force-closes, then kills, a rolling-over worker that
// doesn't exit within its timers.
func (m *Manager) escalateRollover(w *workerProc) {
	select {
	case <-time.After(rolloverAcceleratedTimeout):
	case <-m.stopCh:
		return
	}
	if w.getState() == workerExited {
		return
	}
	_ = w.sendShutdown(Message{Type: MsgBeginForcefulShutdown})

	select {
	case <-time.After(rolloverImmediateTimeout - rolloverAcceleratedTimeout):
	case <-m.stopCh:
		return
	}
	if w.getState() == workerExited {
		return
	}
	_ = w.kill()
}
