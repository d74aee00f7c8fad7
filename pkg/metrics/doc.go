// Package metrics registers the service's Prometheus collectors (API
// request counts/latency, injected-error counts, storage operation
// counts/latency, cluster worker-pool gauges) at init and exposes them via
// a self-restarting sidecar HTTP server. The sidecar supports two registry
// modes: Standalone (this process's own collectors) and cluster-aggregator
// (local collectors, preceded by the output of the Sidecar's AggregateFunc
// when one is set). The cluster primary starts the sidecar without an
// AggregateFunc, so it serves only its own collectors; worker metrics are
// not collected or merged.
package metrics
