package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ledctl",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ledctl",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
	framesReceived = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ledctl",
			Subsystem: "listener",
			Name:      "frames_total",
			Help:      "Decoded frames per transport and kind.",
		},
		[]string{"transport", "kind"},
	)
	decodeErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ledctl",
			Subsystem: "listener",
			Name:      "decode_errors_total",
			Help:      "Dropped frames per transport and decode failure reason.",
		},
		[]string{"transport", "reason"},
	)
	streamsGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "ledctl",
			Subsystem: "arbiter",
			Name:      "streams",
			Help:      "Streams currently tracked by the arbiter.",
		},
	)
	evictions = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "ledctl",
			Subsystem: "arbiter",
			Name:      "evictions_total",
			Help:      "Streams removed for staleness.",
		},
	)
	activeChanges = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "ledctl",
			Subsystem: "arbiter",
			Name:      "active_changes_total",
			Help:      "Changes of the active stream, including to and from none.",
		},
	)
	sinkErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ledctl",
			Subsystem: "sink",
			Name:      "errors_total",
			Help:      "Render sink failures per operation.",
		},
		[]string{"op"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			httpRequests,
			httpDuration,
			framesReceived,
			decodeErrors,
			streamsGauge,
			evictions,
			activeChanges,
			sinkErrors,
		)
	})
}

func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(method, path, statusLabel).Observe(duration.Seconds())
}

func RecordFrame(transport, kind string) {
	RegisterMetrics()
	framesReceived.WithLabelValues(transport, kind).Inc()
}

func RecordDecodeError(transport, reason string) {
	RegisterMetrics()
	decodeErrors.WithLabelValues(transport, reason).Inc()
}

func SetStreams(n int) {
	RegisterMetrics()
	streamsGauge.Set(float64(n))
}

func RecordEvictions(n int) {
	RegisterMetrics()
	evictions.Add(float64(n))
}

func RecordActiveChange() {
	RegisterMetrics()
	activeChanges.Inc()
}

func RecordSinkError(op string) {
	RegisterMetrics()
	sinkErrors.WithLabelValues(op).Inc()
}
