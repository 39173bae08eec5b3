package server

import (
	model "ansible-webui/datamodel/service-model"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "ansible_webui"

// NewMetrics registers the service collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		RunsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "playbook_runs_total",
				Help:      "Playbook run requests by outcome kind",
			},
			[]string{"kind"},
		),
		RunDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "playbook_run_duration_seconds",
				Help:      "Wall time of playbook runner processes",
				Buckets:   prometheus.ExponentialBuckets(0.5, 2, 11),
			},
		),
		SyncsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "repo_syncs_total",
				Help:      "Playbook repository syncs by result",
			},
			[]string{"result"},
		),
		PlaybooksScanned: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Name:      "playbooks_scanned",
				Help:      "Number of playbooks found by the most recent catalog scan",
			},
		),
		RateLimited: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "rate_limited_requests_total",
				Help:      "Requests rejected by the rate limiter",
			},
		),
	}
}

// ObserveRun records one run outcome. Runs rejected before the runner started
// carry no duration.
func (m *Metrics) ObserveRun(result model.ExecutionResult) {
	m.RunsTotal.WithLabelValues(string(result.Kind)).Inc()
	if len(result.Args) > 0 {
		m.RunDuration.Observe(result.Duration.Seconds())
	}
}

func (m *Metrics) ObserveSync(result string) {
	m.SyncsTotal.WithLabelValues(result).Inc()
}
