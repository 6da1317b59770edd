// Package metrics exposes prometheus collectors for dialogue sessions.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "conciliate"

// Collector groups the dialogue metrics. A nil *Collector is valid and records
// nothing, so the controller can call it unconditionally.
type Collector struct {
	rounds           *prometheus.CounterVec
	callDuration     *prometheus.HistogramVec
	remoteFailures   *prometheus.CounterVec
	automationActive prometheus.Gauge
}

func NewCollector() *Collector {
	return &Collector{
		rounds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rounds_total",
			Help:      "Dialogue rounds by outcome.",
		}, []string{"outcome"}),
		callDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "remote_call_duration_seconds",
			Help:      "Latency of seeker and responder calls.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"role"}),
		remoteFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "remote_failures_total",
			Help:      "Failed seeker and responder calls, including protocol violations.",
		}, []string{"role"}),
		automationActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "automation_active",
			Help:      "1 while automation is enabled for the session.",
		}),
	}
}

// Register adds all collectors to reg, typically prometheus.DefaultRegisterer.
func (c *Collector) Register(reg prometheus.Registerer) error {
	for _, col := range []prometheus.Collector{c.rounds, c.callDuration, c.remoteFailures, c.automationActive} {
		if err := reg.Register(col); err != nil {
			return err
		}
	}
	return nil
}

func (c *Collector) RoundFinished(outcome string) {
	if c == nil {
		return
	}
	c.rounds.WithLabelValues(outcome).Inc()
}

func (c *Collector) ObserveCall(role string, d time.Duration, err error) {
	if c == nil {
		return
	}
	c.callDuration.WithLabelValues(role).Observe(d.Seconds())
	if err != nil {
		c.remoteFailures.WithLabelValues(role).Inc()
	}
}

func (c *Collector) SetAutomationActive(active bool) {
	if c == nil {
		return
	}
	if active {
		c.automationActive.Set(1)
	} else {
		c.automationActive.Set(0)
	}
}
