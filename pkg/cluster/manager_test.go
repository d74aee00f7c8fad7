package cluster

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/enkryptcom/enkrypt-backend/pkg/config"
)

func newTestManager() *Manager {
	return NewManager(
		config.ClusterConfig{
			MinWorkers: 1, MaxWorkers: 4,
			EstimatedMemoryMaxBytes: 0,
		},
		config.ShutdownConfig{
			SignalCountAccelerated: 3,
			SignalCountImmediate:   5,
		},
		"/bin/true", nil,
	)
}

func TestManagerSnapshotWithNoWorkers(t *testing.T) {
	m := newTestManager()
	snap := m.Snapshot()
	assert.Equal(t, 4, snap.Desired)
	assert.Equal(t, 0, snap.Running)
	assert.Equal(t, 0, snap.Generation)
}

func TestHandleSignalEscalatesBySignalCount(t *testing.T) {
	m := newTestManager()

	m.HandleSignal()
	assert.Equal(t, 1, m.signalCount)
	assert.Equal(t, runStopping, m.state)

	m.HandleSignal()
	m.HandleSignal()
	assert.Equal(t, 3, m.signalCount)

	m.HandleSignal()
	m.HandleSignal()
	assert.Equal(t, 5, m.signalCount)
}

func TestRollingRestartIncrementsGeneration(t *testing.T) {
	m := newTestManager()
	m.RollingRestart()
	assert.Equal(t, 1, m.generation)
	m.RollingRestart()
	assert.Equal(t, 2, m.generation)
	close(m.stopCh)
}
