package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HttpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"service", "method", "path", "status"},
	)

	HttpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service", "method", "path", "status"},
	)

	HttpRequestsInFlight = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Current number of HTTP requests being processed",
		},
		[]string{"service"},
	)

	WebSocketConnectionsGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections_total",
			Help: "Current number of active WebSocket connections",
		},
	)

	// Session metrics
	DriverOnlineGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "driver_online",
			Help: "1 while the driver session is online",
		},
	)

	ReconcileActionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "availability_reconcile_actions_total",
			Help: "Reconciliation passes by action taken on the tracker",
		},
		[]string{"action"},
	)

	ToggleTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "availability_toggles_total",
			Help: "Availability toggles by target and outcome",
		},
		[]string{"target", "state"},
	)

	ForcedOfflineTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "balance_forced_offline_total",
			Help: "Times the driver was forced offline for crossing the debt ceiling",
		},
	)

	LocationBatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "location_batches_total",
			Help: "Location batches delivered to the ingest",
		},
		[]string{"status"},
	)

	LocationSamplesDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "location_samples_dropped_total",
			Help: "Buffered samples discarded after the buffer overflowed",
		},
	)

	OffersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ride_offers_total",
			Help: "Ride offers by resolution",
		},
		[]string{"resolution"},
	)

	RidesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rides_total",
			Help: "Rides finished by this driver by final status",
		},
		[]string{"status"},
	)

	PaymentDisputesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "payment_disputes_total",
			Help: "Cash shortfalls recorded at completion",
		},
	)

	SweptOffersTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "offer_sweeper_released_total",
			Help: "Offers released by the sweeper after their countdown passed",
		},
	)

	DatabaseQueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "database_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"operation", "status"},
	)

	DatabaseQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "database_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	RabbitMQMessagesConsumed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rabbitmq_messages_consumed_total",
			Help: "Total number of messages consumed from RabbitMQ",
		},
		[]string{"queue", "status"},
	)
)

// RecordHTTPMetrics records HTTP request metrics
func RecordHTTPMetrics(service, method, path string, statusCode int, duration time.Duration) {
	status := strconv.Itoa(statusCode)
	HttpRequestsTotal.WithLabelValues(service, method, path, status).Inc()
	HttpRequestDuration.WithLabelValues(service, method, path, status).Observe(duration.Seconds())
}

// RecordDatabaseQuery records database query metrics
func RecordDatabaseQuery(operation string, err error, duration time.Duration) {
	DatabaseQueriesTotal.WithLabelValues(operation, status(err)).Inc()
	DatabaseQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordRabbitMQConsume records RabbitMQ consume metrics
func RecordRabbitMQConsume(queue string, err error) {
	RabbitMQMessagesConsumed.WithLabelValues(queue, status(err)).Inc()
}

// RecordLocationBatch records one ingest delivery attempt.
func RecordLocationBatch(err error) {
	LocationBatchesTotal.WithLabelValues(status(err)).Inc()
}

// SetOnline mirrors the session online flag.
func SetOnline(online bool) {
	if online {
		DriverOnlineGauge.Set(1)
		return
	}
	DriverOnlineGauge.Set(0)
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
