// Package monitoring provides Prometheus metrics for the session core.
//
// Metrics cover the session store (live/engaged gauges, created, evicted,
// removed, and switch counters), reported connection outcomes, the
// recent-server history, WebSocket subscribers, and the control-plane
// HTTP surface. Exposed at /metrics in the standard exposition format.
package monitoring
