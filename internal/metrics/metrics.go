package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// OutcomeSuccess labels report passes that completed normally.
	OutcomeSuccess = "success"
	// OutcomeFallback labels passes where the summarizer degraded to the template.
	OutcomeFallback = "fallback"
)

var (
	failuresRecordedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "failwatch",
			Name:      "failures_recorded_total",
			Help:      "Total failure events accepted by the store, partitioned by failure type.",
		},
		[]string{"failure_type"},
	)

	reportsGeneratedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "failwatch",
			Name:      "reports_generated_total",
			Help:      "Total RCA reports generated, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	reportBuildSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "failwatch",
			Name:      "report_build_seconds",
			Help:      "Report generation latency in seconds, summarizer call included.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
		},
	)

	summarizerFallbacksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "failwatch",
			Name:      "summarizer_fallbacks_total",
			Help:      "Times the AI summary degraded to the deterministic template.",
		},
	)
)

// Register attaches failwatch collectors to the supplied Prometheus registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		failuresRecordedTotal,
		reportsGeneratedTotal,
		reportBuildSeconds,
		summarizerFallbacksTotal,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// RecordFailure counts one accepted failure event.
func RecordFailure(failureType string) {
	failuresRecordedTotal.WithLabelValues(failureType).Inc()
}

// ObserveReportBuild records one report pass with its duration and outcome.
func ObserveReportBuild(duration time.Duration, outcome string) {
	if outcome != OutcomeFallback {
		outcome = OutcomeSuccess
	}
	reportsGeneratedTotal.WithLabelValues(outcome).Inc()
	if duration < 0 {
		duration = 0
	}
	reportBuildSeconds.Observe(duration.Seconds())
}

// SummarizerFallback counts one degraded summary.
func SummarizerFallback() {
	summarizerFallbacksTotal.Inc()
}
