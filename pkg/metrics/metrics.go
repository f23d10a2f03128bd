package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Storage metrics
	EventsAppended = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "nostrd_events_appended_total",
			Help: "Total number of events successfully appended to the log",
		},
	)

	EventsRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nostrd_events_rejected_total",
			Help: "Total number of events rejected before being appended, by reason",
		},
		[]string{"reason"},
	)

	EventsDeleted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "nostrd_events_deleted_total",
			Help: "Total number of events marked deleted via kind-5 requests",
		},
	)

	MigrationLevel = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "nostrd_migration_level",
			Help: "Current on-disk migration_level of the storage database",
		},
	)

	AppendDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "nostrd_append_duration_seconds",
			Help:    "Time taken to append a single event, including index writes",
			Buckets: prometheus.DefBuckets,
		},
	)

	ScanDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nostrd_scan_duration_seconds",
			Help:    "Time taken to run a filter scan, by index used",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"index"},
	)

	// Relay transport metrics
	ConnectionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "nostrd_connections_active",
			Help: "Number of currently open WebSocket connections",
		},
	)

	SubscriptionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "nostrd_subscriptions_active",
			Help: "Number of currently open REQ subscriptions across all connections",
		},
	)

	WSMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nostrd_ws_messages_total",
			Help: "Total number of WebSocket messages processed, by message type",
		},
		[]string{"type"},
	)

	// Blossom blob store metrics
	BlossomBlobsTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "nostrd_blossom_blobs_total",
			Help: "Total number of blobs stored in the Blossom blob store",
		},
	)

	BlossomBytesTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "nostrd_blossom_bytes_total",
			Help: "Total bytes stored in the Blossom blob store",
		},
	)
)

func init() {
	prometheus.MustRegister(EventsAppended)
	prometheus.MustRegister(EventsRejected)
	prometheus.MustRegister(EventsDeleted)
	prometheus.MustRegister(MigrationLevel)
	prometheus.MustRegister(AppendDuration)
	prometheus.MustRegister(ScanDuration)
	prometheus.MustRegister(ConnectionsActive)
	prometheus.MustRegister(SubscriptionsActive)
	prometheus.MustRegister(WSMessagesTotal)
	prometheus.MustRegister(BlossomBlobsTotal)
	prometheus.MustRegister(BlossomBytesTotal)
}

// Handler returns the Prometheus HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	duration := time.Since(t.start).Seconds()
	histogram.Observe(duration)
}

// ObserveDurationVec records the duration to a histogram vec with labels.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	duration := time.Since(t.start).Seconds()
	histogram.WithLabelValues(labels...).Observe(duration)
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
