package monitoring

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP request metrics
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status_code", "service"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint", "service"},
	)

	// Database metrics
	dbConnectionsActive = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "db_connections_active",
			Help: "Number of active database connections",
		},
		[]string{"database", "service"},
	)

	dbQueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Duration of database queries in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 2.0, 5.0},
		},
		[]string{"query_type", "service"},
	)

	// Claim metrics
	reminderClaimsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reminder_claims_total",
			Help: "Total number of reminder claim attempts",
		},
		[]string{"result", "service"},
	)

	// Dispatch metrics
	reminderSendsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reminder_sends_total",
			Help: "Total number of provider send attempts",
		},
		[]string{"channel", "status", "service"},
	)

	reminderDispatchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "reminder_dispatch_duration_seconds",
			Help:    "Duration of reminder dispatch attempts in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0},
		},
		[]string{"channel", "service"},
	)

	// Retry metrics
	reminderRetriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reminder_retries_total",
			Help: "Total number of retries scheduled",
		},
		[]string{"service"},
	)

	reminderRetriesExhaustedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reminder_retries_exhausted_total",
			Help: "Total number of reminders that exhausted their retry budget",
		},
		[]string{"service"},
	)

	// Delivery callback metrics
	deliveryCallbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "delivery_callbacks_total",
			Help: "Total number of asynchronous delivery callbacks processed",
		},
		[]string{"outcome", "service"},
	)

	// System metrics
	systemErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "system_errors_total",
			Help: "Total number of system errors",
		},
		[]string{"error_type", "service", "component"},
	)
)

// MetricsCollector handles Prometheus metrics collection
type MetricsCollector struct {
	serviceName string
}

// NewMetricsCollector creates a new metrics collector
func NewMetricsCollector(serviceName string) *MetricsCollector {
	// Register metrics
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		dbConnectionsActive,
		dbQueryDuration,
		reminderClaimsTotal,
		reminderSendsTotal,
		reminderDispatchDuration,
		reminderRetriesTotal,
		reminderRetriesExhaustedTotal,
		deliveryCallbacksTotal,
		systemErrors,
	)

	return &MetricsCollector{
		serviceName: serviceName,
	}
}

// RecordHTTPRequest records HTTP request metrics
func (m *MetricsCollector) RecordHTTPRequest(method, endpoint, statusCode string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, endpoint, statusCode, m.serviceName).Inc()
	httpRequestDuration.WithLabelValues(method, endpoint, m.serviceName).Observe(duration.Seconds())
}

// RecordDBConnection records database connection metrics
func (m *MetricsCollector) RecordDBConnection(database string, activeConnections int) {
	dbConnectionsActive.WithLabelValues(database, m.serviceName).Set(float64(activeConnections))
}

// RecordDBQuery records database query metrics
func (m *MetricsCollector) RecordDBQuery(queryType string, duration time.Duration) {
	dbQueryDuration.WithLabelValues(queryType, m.serviceName).Observe(duration.Seconds())
}

// RecordClaim records the outcome of a reminder claim attempt ("won" or "lost")
func (m *MetricsCollector) RecordClaim(result string) {
	reminderClaimsTotal.WithLabelValues(result, m.serviceName).Inc()
}

// RecordSend records a provider send attempt with its outcome and duration
func (m *MetricsCollector) RecordSend(channel, status string, duration time.Duration) {
	reminderSendsTotal.WithLabelValues(channel, status, m.serviceName).Inc()
	reminderDispatchDuration.WithLabelValues(channel, m.serviceName).Observe(duration.Seconds())
}

// RecordRetryScheduled records a retry being scheduled
func (m *MetricsCollector) RecordRetryScheduled() {
	reminderRetriesTotal.WithLabelValues(m.serviceName).Inc()
}

// RecordRetryExhausted records a reminder whose retry budget ran out
func (m *MetricsCollector) RecordRetryExhausted() {
	reminderRetriesExhaustedTotal.WithLabelValues(m.serviceName).Inc()
}

// RecordDeliveryCallback records a processed delivery callback
// (applied, duplicate, out_of_order, unknown_reference, error)
func (m *MetricsCollector) RecordDeliveryCallback(outcome string) {
	deliveryCallbacksTotal.WithLabelValues(outcome, m.serviceName).Inc()
}

// RecordSystemError records system error metrics
func (m *MetricsCollector) RecordSystemError(errorType, component string) {
	systemErrors.WithLabelValues(errorType, m.serviceName, component).Inc()
}

// Handler returns the Prometheus metrics HTTP handler
func (m *MetricsCollector) Handler() http.Handler {
	return promhttp.Handler()
}

// HTTPMiddleware creates middleware for HTTP request metrics
func (m *MetricsCollector) HTTPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Create a response writer wrapper to capture status code
		wrapper := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapper, r)

		duration := time.Since(start)
		statusCode := strconv.Itoa(wrapper.statusCode)

		m.RecordHTTPRequest(r.Method, r.URL.Path, statusCode, duration)
	})
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
