package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus collectors for the application.
// Following the explicit dependency injection pattern, this struct
// is passed to all components that need to record metrics.
type Metrics struct {
	// Solana RPC Metrics
	solanaRPCCallsTotal    *prometheus.CounterVec
	solanaRPCCallDuration  *prometheus.HistogramVec
	solanaRPCRateLimitHits *prometheus.CounterVec
	solanaRPCRetries       *prometheus.CounterVec

	// Movement Processing Metrics
	movementsClassifiedTotal *prometheus.CounterVec
	movementsWrittenTotal    *prometheus.CounterVec
	movementsDuplicateTotal  *prometheus.CounterVec
	transactionsSkippedTotal *prometheus.CounterVec
	walletsAbandonedTotal    *prometheus.CounterVec

	// Pricing Metrics
	priceLookupsTotal *prometheus.CounterVec

	// Tracking Pass Metrics
	trackingPassDuration *prometheus.HistogramVec
	trackingPassTotal    *prometheus.CounterVec

	// HTTP Metrics
	httpRequestDuration *prometheus.HistogramVec
	httpRequestsTotal   *prometheus.CounterVec

	// NATS Metrics
	natsMessagesPublished *prometheus.CounterVec
	natsPublishDuration   *prometheus.HistogramVec
}

// NewMetrics creates a new Metrics instance and registers all collectors.
// If registry is nil, prometheus.DefaultRegisterer is used.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	factory := promauto.With(registry)

	return &Metrics{
		// Solana RPC Metrics
		solanaRPCCallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "solana_rpc_calls_total",
				Help: "Total number of Solana RPC calls by method and status",
			},
			[]string{"method", "status", "endpoint"},
		),
		solanaRPCCallDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "solana_rpc_call_duration_seconds",
				Help:    "Duration of Solana RPC calls in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
			},
			[]string{"method", "endpoint"},
		),
		solanaRPCRateLimitHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "solana_rpc_rate_limit_hits_total",
				Help: "Total number of Solana RPC rate limit hits (429 errors)",
			},
			[]string{"endpoint"},
		),
		solanaRPCRetries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "solana_rpc_retries_total",
				Help: "Total number of Solana RPC retry attempts",
			},
			[]string{"method", "reason"},
		),

		// Movement Processing Metrics
		movementsClassifiedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "movements_classified_total",
				Help: "Total number of movements classified by direction and tier",
			},
			[]string{"direction", "tier"},
		),
		movementsWrittenTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "movements_written_total",
				Help: "Total number of movements written to a ledger",
			},
			[]string{"ledger"},
		),
		movementsDuplicateTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "movements_duplicate_total",
				Help: "Total number of movements skipped because the signature was already recorded",
			},
			[]string{"ledger"},
		),
		transactionsSkippedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "transactions_skipped_total",
				Help: "Total number of transactions skipped during ingestion",
			},
			[]string{"reason"},
		),
		walletsAbandonedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wallets_abandoned_total",
				Help: "Total number of wallets abandoned mid-pass",
			},
			[]string{"reason"},
		),

		// Pricing Metrics
		priceLookupsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "price_lookups_total",
				Help: "Total number of historical price lookups",
			},
			[]string{"status"},
		),

		// Tracking Pass Metrics
		trackingPassDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tracking_pass_duration_seconds",
				Help:    "Duration of a full tracking pass in seconds",
				Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
			},
			[]string{"status"},
		),
		trackingPassTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tracking_pass_total",
				Help: "Total number of tracking pass executions",
			},
			[]string{"status"},
		),

		// HTTP Metrics
		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5},
			},
			[]string{"handler", "method", "status"},
		),
		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"handler", "method", "status"},
		),

		// NATS Metrics
		natsMessagesPublished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nats_messages_published_total",
				Help: "Total number of NATS messages published",
			},
			[]string{"subject", "status"},
		),
		natsPublishDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "nats_publish_duration_seconds",
				Help:    "Duration of NATS publish operations in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
			},
			[]string{"subject"},
		),
	}
}

// Solana RPC metric helpers

// RecordRPCCall records a Solana RPC call with duration.
func (m *Metrics) RecordRPCCall(method, status, endpoint string, duration float64) {
	m.solanaRPCCallsTotal.WithLabelValues(method, status, endpoint).Inc()
	m.solanaRPCCallDuration.WithLabelValues(method, endpoint).Observe(duration)
}

// RecordRateLimitHit records a rate limit hit (429 error).
func (m *Metrics) RecordRateLimitHit(endpoint string) {
	m.solanaRPCRateLimitHits.WithLabelValues(endpoint).Inc()
}

// RecordRPCRetry records a retry attempt.
func (m *Metrics) RecordRPCRetry(method, reason string) {
	m.solanaRPCRetries.WithLabelValues(method, reason).Inc()
}

// Movement processing metric helpers

// RecordMovementClassified records a movement classification with the
// fallback tier that produced it.
func (m *Metrics) RecordMovementClassified(direction, tier string) {
	m.movementsClassifiedTotal.WithLabelValues(direction, tier).Inc()
}

// RecordMovementWritten records a movement appended to a ledger.
func (m *Metrics) RecordMovementWritten(ledger string) {
	m.movementsWrittenTotal.WithLabelValues(ledger).Inc()
}

// RecordMovementDuplicate records a movement suppressed as already recorded.
func (m *Metrics) RecordMovementDuplicate(ledger string) {
	m.movementsDuplicateTotal.WithLabelValues(ledger).Inc()
}

// RecordTransactionSkipped records a transaction skipped during ingestion.
func (m *Metrics) RecordTransactionSkipped(reason string) {
	m.transactionsSkippedTotal.WithLabelValues(reason).Inc()
}

// RecordWalletAbandoned records a wallet abandoned mid-pass.
func (m *Metrics) RecordWalletAbandoned(reason string) {
	m.walletsAbandonedTotal.WithLabelValues(reason).Inc()
}

// Pricing metric helpers

// RecordPriceLookup records a historical price lookup outcome.
func (m *Metrics) RecordPriceLookup(status string) {
	m.priceLookupsTotal.WithLabelValues(status).Inc()
}

// Tracking pass metric helpers

// RecordTrackingPass records a tracking pass execution with duration.
func (m *Metrics) RecordTrackingPass(status string, duration float64) {
	m.trackingPassDuration.WithLabelValues(status).Observe(duration)
	m.trackingPassTotal.WithLabelValues(status).Inc()
}

// HTTP metric helpers

// RecordHTTPRequest records an HTTP request with duration.
func (m *Metrics) RecordHTTPRequest(handler, method string, statusCode int, duration float64) {
	status := statusCodeToString(statusCode)
	m.httpRequestDuration.WithLabelValues(handler, method, status).Observe(duration)
	m.httpRequestsTotal.WithLabelValues(handler, method, status).Inc()
}

// NATS metric helpers

// RecordNATSPublish records a NATS publish operation.
func (m *Metrics) RecordNATSPublish(subject, status string, duration float64) {
	m.natsMessagesPublished.WithLabelValues(subject, status).Inc()
	m.natsPublishDuration.WithLabelValues(subject).Observe(duration)
}

// Helper functions

func statusCodeToString(code int) string {
	// Group status codes by class
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500 && code < 600:
		return "5xx"
	default:
		return "unknown"
	}
}
