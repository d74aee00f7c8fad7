package metrics

import "time"

// ClusterState is the minimal snapshot the collector needs from the
// cluster's worker-pool manager.
type ClusterState struct {
	Desired    int
	Running    int
	Generation int
}

// ClusterStateFunc reports the current cluster state; implemented by
// pkg/cluster.Manager.Snapshot.
type ClusterStateFunc func() ClusterState

// Collector periodically copies cluster worker-pool state into the
// cluster-state gauges, the way the teacher's Collector periodically
// refreshes Raft/node gauges from the manager.
type Collector struct {
	state  ClusterStateFunc
	stopCh chan struct{}
}

func NewCollector(state ClusterStateFunc) *Collector {
	return &Collector{state: state, stopCh: make(chan struct{})}
}

// Start begins collecting on a 15s cadence, matching the teacher's interval.
func (c *Collector) Start() {
	ticker := time.NewTicker(15 * time.Second)
	go func() {
		c.collect()
		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
}

func (c *Collector) Stop() {
	close(c.stopCh)
}

func (c *Collector) collect() {
	if c.state == nil {
		return
	}
	s := c.state()
	DesiredWorkers.Set(float64(s.Desired))
	RunningWorkers.Set(float64(s.Running))
	ClusterGeneration.Set(float64(s.Generation))
}
