package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"satcatflow/logger"
)

// RunMetrics holds the Prometheus series of a single catalog run. The run is
// a batch job, so series live in a private registry and are pushed to a
// Pushgateway at the end instead of being scraped.
type RunMetrics struct {
	registry *prometheus.Registry

	RecordsFetched    prometheus.Counter
	RecordsWellFormed prometheus.Counter
	RecordsDegraded   prometheus.Counter
	RecordsWritten    prometheus.Counter
	RatePauses        prometheus.Counter
	RunDuration       prometheus.Gauge
	LastSuccess       prometheus.Gauge
}

// NewRunMetrics registers the run series on a fresh registry.
func NewRunMetrics() *RunMetrics {
	reg := prometheus.NewRegistry()
	counter := func(name, help string) prometheus.Counter {
		c := prometheus.NewCounter(prometheus.CounterOpts{Namespace: "satcatflow", Name: name, Help: help})
		reg.MustRegister(c)
		return c
	}
	gauge := func(name, help string) prometheus.Gauge {
		g := prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "satcatflow", Name: name, Help: help})
		reg.MustRegister(g)
		return g
	}

	return &RunMetrics{
		registry:          reg,
		RecordsFetched:    counter("records_fetched_total", "Catalog records returned by the catalog query."),
		RecordsWellFormed: counter("records_well_formed_total", "Records whose orbit geometry was derived from catalog data."),
		RecordsDegraded:   counter("records_degraded_total", "Records emitted with placeholder orbit values."),
		RecordsWritten:    counter("records_written_total", "Records written to every configured sink."),
		RatePauses:        counter("rate_pauses_total", "Pauses taken to stay under the catalog request ceiling."),
		RunDuration:       gauge("run_duration_seconds", "Wall time of the last run."),
		LastSuccess:       gauge("last_success_timestamp_seconds", "Unix time of the last successful run."),
	}
}

// Registry exposes the registry for gathering in tests and pushers.
func (m *RunMetrics) Registry() *prometheus.Registry {
	return m.registry
}

// Observe records the outcome of a finished run.
func (m *RunMetrics) Observe(stats logger.RunStats, succeeded bool, now time.Time) {
	m.RecordsFetched.Add(float64(stats.Fetched))
	m.RecordsWellFormed.Add(float64(stats.WellFormed))
	m.RecordsDegraded.Add(float64(stats.Degraded))
	m.RecordsWritten.Add(float64(stats.Written))
	m.RatePauses.Add(float64(stats.Pauses))
	m.RunDuration.Set(stats.Duration.Seconds())
	if succeeded {
		m.LastSuccess.Set(float64(now.Unix()))
	}
}

// Push sends the registry to the Pushgateway at url under job, grouped by
// run id.
func (m *RunMetrics) Push(ctx context.Context, url, job, runID string) error {
	err := push.New(url, job).
		Gatherer(m.registry).
		Grouping("run_id", runID).
		PushContext(ctx)
	if err != nil {
		return fmt.Errorf("push metrics to %s: %w", url, err)
	}
	return nil
}

// ReportQuality logs the record quality figures of a run through the logger's
// metric helper, which also forwards them to CloudWatch when configured.
func ReportQuality(log *logger.Log, stats logger.RunStats) {
	l := log.WithComponent("normalizer")

	degradedRatio := float64(0)
	if stats.Processed > 0 {
		degradedRatio = float64(stats.Degraded) / float64(stats.Processed)
	}

	l.LogMetric("normalizer", "records_processed", stats.Processed, "counter", logger.Fields{})
	l.LogMetric("normalizer", "records_degraded", stats.Degraded, "counter", logger.Fields{})
	l.LogMetric("normalizer", "degraded_ratio", degradedRatio, "gauge", logger.Fields{})
}
