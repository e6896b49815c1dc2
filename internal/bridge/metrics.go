package bridge

import "github.com/prometheus/client_golang/prometheus"

var (
	sessionsCreatedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "modelbridge",
			Name:      "sessions_created_total",
			Help:      "Sessions created, labelled by whether an existing id was replaced",
		},
		[]string{"replaced"},
	)

	sessionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "modelbridge",
			Name:      "sessions_active",
			Help:      "Sessions currently held by the registry",
		},
	)

	generationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "modelbridge",
			Name:      "generations_total",
			Help:      "Synchronous generations by outcome (ok or error code)",
		},
		[]string{"outcome"},
	)

	generationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "modelbridge",
			Name:      "generation_duration_seconds",
			Help:      "Model time spent in synchronous generations",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 20, 40, 80, 160},
		},
		[]string{"outcome"},
	)

	streamsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "modelbridge",
			Name:      "streams_total",
			Help:      "Stream subscriptions by terminal state",
		},
		[]string{"outcome"},
	)

	streamsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "modelbridge",
			Name:      "streams_active",
			Help:      "Stream subscriptions currently active",
		},
	)

	streamChunksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "modelbridge",
			Name:      "stream_chunks_total",
			Help:      "Chunks delivered to stream subscribers",
		},
	)

	eventsDroppedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "modelbridge",
			Name:      "events_dropped_total",
			Help:      "Lifecycle events dropped by an external publisher",
		},
	)
)

func init() {
	prometheus.MustRegister(
		sessionsCreatedTotal, sessionsActive,
		generationsTotal, generationDuration,
		streamsTotal, streamsActive, streamChunksTotal,
		eventsDroppedTotal,
	)
}
