package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "pipeline"

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	HTTPInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_requests_in_flight",
			Help:      "Number of HTTP requests being served",
		},
	)

	leadsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "leads_created_total",
			Help:      "Leads created, by origin (api or import)",
		},
		[]string{"origin"},
	)

	stageTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_transitions_total",
			Help:      "Lead stage changes, by target stage",
		},
		[]string{"stage"},
	)

	activitiesLogged = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "activities_logged_total",
			Help:      "Activities logged, by outcome",
		},
		[]string{"outcome"},
	)

	emailDrafts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "email_drafts_total",
			Help:      "Follow-up drafts, by source (generated or fallback)",
		},
		[]string{"source"},
	)

	leadsRescored = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "leads_rescored_total",
			Help:      "Leads whose stored score changed during a rescore",
		},
	)
)

func RecordLeadCreated(origin string) {
	leadsCreated.WithLabelValues(origin).Inc()
}

func RecordStageTransition(stage string) {
	stageTransitions.WithLabelValues(stage).Inc()
}

func RecordActivityLogged(outcome string) {
	activitiesLogged.WithLabelValues(outcome).Inc()
}

// RecordEmailDraft counts a draft; generated is false when the template was used
func RecordEmailDraft(generated bool) {
	source := "fallback"
	if generated {
		source = "generated"
	}
	emailDrafts.WithLabelValues(source).Inc()
}

func RecordLeadsRescored(n int) {
	leadsRescored.Add(float64(n))
}
