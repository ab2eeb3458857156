package stats

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/travigo/corridor/pkg/ctdf"
	"github.com/travigo/corridor/pkg/dataaggregator"
)

var feedHealths = []ctdf.FeedHealth{ctdf.FeedHealthOnline, ctdf.FeedHealthDegraded, ctdf.FeedHealthOffline}

var confidenceLevels = []ctdf.ConfidenceLevel{
	ctdf.ConfidenceScheduled,
	ctdf.ConfidenceConfirmedUpdated,
	ctdf.ConfidenceConfirmedLive,
	ctdf.ConfidenceEstimatedFreight,
}

// Collector records every aggregation cycle as Prometheus metrics. Gauges
// describe the latest cycle only.
type Collector struct {
	reg *prometheus.Registry

	Cycles         prometheus.Counter
	FallbackCycles prometheus.Counter
	CycleDuration  prometheus.Histogram

	FeedStatus   *prometheus.GaugeVec // feed, status
	Movements    *prometheus.GaugeVec // confidence
	Statuses     *prometheus.GaugeVec // status
	ActiveAlerts prometheus.Gauge
}

func NewCollector() *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		Cycles: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "corridor_cycles_total",
			Help: "Total aggregation cycles completed.",
		}),
		FallbackCycles: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "corridor_fallback_cycles_total",
			Help: "Aggregation cycles that ran with realtime fallback active.",
		}),
		CycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "corridor_cycle_duration_seconds",
			Help:    "Duration of aggregation cycles.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 14),
		}),
		FeedStatus: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "corridor_feed_status",
			Help: "1 for the status each feed reported in the latest cycle, 0 otherwise.",
		}, []string{"feed", "status"}),
		Movements: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "corridor_movements",
			Help: "Movements returned by the latest cycle by confidence level.",
		}, []string{"confidence"}),
		Statuses: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "corridor_movement_statuses",
			Help: "Movements returned by the latest cycle by lifecycle status.",
		}, []string{"status"}),
		ActiveAlerts: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "corridor_active_alerts",
			Help: "Active service alerts in the latest cycle.",
		}),
	}

	reg.MustRegister(
		c.Cycles, c.FallbackCycles, c.CycleDuration,
		c.FeedStatus, c.Movements, c.Statuses, c.ActiveAlerts,
	)

	return c
}

func (c *Collector) RecordCycle(duration time.Duration, response *dataaggregator.Response) {
	c.Cycles.Inc()
	c.CycleDuration.Observe(duration.Seconds())

	if response.FallbackActive {
		c.FallbackCycles.Inc()
	}

	for _, feed := range response.Feeds {
		for _, health := range feedHealths {
			value := 0.0
			if feed.Status == health {
				value = 1
			}
			c.FeedStatus.WithLabelValues(feed.Name, string(health)).Set(value)
		}
	}

	confidence := map[ctdf.ConfidenceLevel]int{}
	statuses := map[ctdf.MovementStatus]int{}
	for _, movement := range response.Movements {
		confidence[movement.Confidence.Level]++
		statuses[movement.Status]++
	}

	for _, level := range confidenceLevels {
		c.Movements.WithLabelValues(string(level)).Set(float64(confidence[level]))
	}
	for _, status := range []ctdf.MovementStatus{
		ctdf.MovementStatusScheduled,
		ctdf.MovementStatusLive,
		ctdf.MovementStatusDelayed,
		ctdf.MovementStatusCancelled,
		ctdf.MovementStatusCompleted,
	} {
		c.Statuses.WithLabelValues(string(status)).Set(float64(statuses[status]))
	}

	c.ActiveAlerts.Set(float64(len(response.Alerts)))
}

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{})
}
