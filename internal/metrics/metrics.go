package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/siteshift/siteshift/internal/engine"
)

const metricPrefix = "siteshift_"

// Metrics bundles transform engine metrics and observes engine transactions.
type Metrics struct {
	TransformsTotal   *prometheus.CounterVec
	TransformDuration *prometheus.HistogramVec
	EntitiesTotal     *prometheus.CounterVec
	SkippedTotal      prometheus.Counter
	ViolationsTotal   *prometheus.CounterVec
	SyncIssuesTotal   prometheus.Counter
	InFlight          prometheus.Gauge
}

// New constructs the metrics and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		TransformsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "transforms_total",
				Help: "Total transform transactions by final state and failure code",
			},
			[]string{"state", "code"},
		),
		TransformDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "transform_duration_seconds",
				Help:    "Transform transaction duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"state"},
		),
		EntitiesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "entities_transformed_total",
				Help: "Total committed entity transforms by kind",
			},
			[]string{"kind"},
		),
		SkippedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricPrefix + "entities_skipped_total",
			Help: "Total entities reached but skipped for lack of transformable state",
		}),
		ViolationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "invariant_violations_total",
				Help: "Total post-apply invariant violations by invariant",
			},
			[]string{"invariant"},
		),
		SyncIssuesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricPrefix + "sync_issues_total",
			Help: "Total view and annotation synchronization issues",
		}),
		InFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: metricPrefix + "transforms_in_flight",
			Help: "Transform transactions currently running",
		}),
	}
	reg.MustRegister(
		m.TransformsTotal,
		m.TransformDuration,
		m.EntitiesTotal,
		m.SkippedTotal,
		m.ViolationsTotal,
		m.SyncIssuesTotal,
		m.InFlight,
	)
	return m
}

func (m *Metrics) OnTransformStart(context.Context, string, int) {
	m.InFlight.Inc()
}

func (m *Metrics) OnTransformComplete(_ context.Context, res *engine.Result, elapsed time.Duration) {
	m.InFlight.Dec()

	code := ""
	if res.Failure != nil {
		code = string(res.Failure.Code)
	}
	state := string(res.State)
	m.TransformsTotal.WithLabelValues(state, code).Inc()
	m.TransformDuration.WithLabelValues(state).Observe(elapsed.Seconds())

	for kind, n := range res.Counts {
		m.EntitiesTotal.WithLabelValues(string(kind)).Add(float64(n))
	}
	m.SkippedTotal.Add(float64(len(res.Skipped)))
	for _, v := range res.Violations {
		m.ViolationsTotal.WithLabelValues(string(v.Kind)).Inc()
	}
	if res.Sync != nil {
		m.SyncIssuesTotal.Add(float64(len(res.Sync.Issues)))
	}
}
