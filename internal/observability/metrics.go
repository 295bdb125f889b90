package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ScansProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "aidecare",
		Name:      "scans_processed_total",
		Help:      "Total number of scan pipeline runs",
	}, []string{"outcome"})

	RegionsDetected = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "aidecare",
		Name:      "regions_detected_total",
		Help:      "Total number of candidate regions detected across all scans",
	})

	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "aidecare",
		Name:      "pipeline_stage_duration_seconds",
		Help:      "Duration of scan pipeline stages",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
	}, []string{"stage"})

	ChatTurns = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "aidecare",
		Name:      "chat_turns_total",
		Help:      "Total number of chat turns generated",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "aidecare",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	WSConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "aidecare",
		Name:      "ws_connections",
		Help:      "Number of active WebSocket connections",
	})
)
