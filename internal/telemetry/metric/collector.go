package metric

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/yndnr/walletlink-go/internal/core/domain"
)

// SessionCollector reports the live session state at scrape time.
type SessionCollector struct {
	snapshot func() domain.Session

	connected     *prometheus.Desc
	authenticated *prometheus.Desc
	provisional   *prometheus.Desc
	chainID       *prometheus.Desc
}

// NewSessionCollector creates a collector reading state through snapshot.
func NewSessionCollector(snapshot func() domain.Session) *SessionCollector {
	return &SessionCollector{
		snapshot: snapshot,
		connected: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "session", "connected"),
			"1 when a provider session exists.", nil, nil),
		authenticated: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "session", "authenticated"),
			"1 when the session holds a backend token.", nil, nil),
		provisional: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "session", "provisional"),
			"1 when authentication was restored but not yet confirmed.", nil, nil),
		chainID: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "session", "chain_id"),
			"Provider chain id, 0 when unknown.", nil, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *SessionCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.connected
	ch <- c.authenticated
	ch <- c.provisional
	ch <- c.chainID
}

// Collect implements prometheus.Collector.
func (c *SessionCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.snapshot()
	ch <- prometheus.MustNewConstMetric(c.connected, prometheus.GaugeValue, boolValue(s.IsConnected))
	ch <- prometheus.MustNewConstMetric(c.authenticated, prometheus.GaugeValue, boolValue(s.IsAuthenticated))
	ch <- prometheus.MustNewConstMetric(c.provisional, prometheus.GaugeValue, boolValue(s.Provisional))
	ch <- prometheus.MustNewConstMetric(c.chainID, prometheus.GaugeValue, float64(s.ChainID))
}

// RegisterSession registers a SessionCollector on r.
func (r *Registry) RegisterSession(snapshot func() domain.Session) error {
	if r == nil {
		return nil
	}
	return r.registry.Register(NewSessionCollector(snapshot))
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
