// Package metric provides Prometheus metrics for walletlink.
//
//   - prometheus.go: registry, counters, histograms and HTTP handler
//   - collector.go: scrape-time collector for the live session state
//
// Metrics are exposed at /metrics when the CLI runs with a metrics address.
package metric
