// Storefront - Commerce and CRM Administration Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storefront

// Package metrics declares the Prometheus collectors for the service. All
// collectors are registered on the default registry through promauto and
// exposed by promhttp on /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	// Audit trail
	AuditWritesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audit_writes_total",
			Help: "Audit records processed by the async writer",
		},
		[]string{"outcome"}, // persisted, failed, dropped
	)

	AuditWriteDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "audit_write_duration_seconds",
			Help:    "Time spent persisting one audit record",
			Buckets: prometheus.DefBuckets,
		},
	)

	AuditBufferDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "audit_buffer_depth",
			Help: "Audit records waiting in the write buffer",
		},
	)

	AuditRecordsLost = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audit_records_lost_total",
			Help: "Audit records that were never persisted",
		},
		[]string{"kind"}, // buffer_full, persist
	)

	AuditRecordsPurged = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "audit_records_purged_total",
			Help: "Audit records removed by age-based purges",
		},
	)

	// Store
	StoreOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "store_operation_duration_seconds",
			Help:    "Duration of storage backend operations",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"backend", "operation"},
	)

	StoreOperationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "store_operation_errors_total",
			Help: "Storage backend operation failures",
		},
		[]string{"backend", "operation"},
	)

	// Exports
	ExportsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "exports_total",
			Help: "Log exports by format and result",
		},
		[]string{"format", "result"},
	)

	ExportRows = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "export_rows",
			Help:    "Rows written per export",
			Buckets: []float64{10, 100, 1000, 5000, 10000, 50000},
		},
		[]string{"format"},
	)

	// Notifications
	NotificationsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_created_total",
			Help: "Notifications persisted, by type",
		},
		[]string{"type"},
	)

	NotificationsDelivered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_delivered_total",
			Help: "Envelopes pushed to live connections, by event",
		},
		[]string{"event"},
	)

	DomainEventsConsumed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "domain_events_consumed_total",
			Help: "Domain events read from the event bus",
		},
		[]string{"result"}, // processed, invalid, failed
	)

	DomainEventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "domain_events_published_total",
			Help: "Domain events published to the event bus",
		},
		[]string{"result"},
	)

	// WebSocket
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections",
			Help: "Current number of active WebSocket connections",
		},
	)

	WSMessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_messages_sent_total",
			Help: "Total number of WebSocket messages sent",
		},
	)

	WSMessagesReceived = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_messages_received_total",
			Help: "Total number of WebSocket messages received",
		},
	)

	WSErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_errors_total",
			Help: "Total number of WebSocket errors",
		},
		[]string{"error_type"},
	)

	// Circuit breakers
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// Auth
	LoginAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_login_attempts_total",
			Help: "Login attempts by result",
		},
		[]string{"result"},
	)

	AuthzDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authz_decisions_total",
			Help: "Authorization decisions by object and result",
		},
		[]string{"object", "result"},
	)
)

func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordAuditWrite records a persisted or failed write along with its latency.
func RecordAuditWrite(duration time.Duration, err error) {
	AuditWriteDuration.Observe(duration.Seconds())
	if err != nil {
		AuditWritesTotal.WithLabelValues("failed").Inc()
		return
	}
	AuditWritesTotal.WithLabelValues("persisted").Inc()
}

// RecordAuditDrop counts a record rejected because the buffer was full.
func RecordAuditDrop() {
	AuditWritesTotal.WithLabelValues("dropped").Inc()
}

// RecordAuditLoss counts a record that will not reach the store.
func RecordAuditLoss(kind string) {
	AuditRecordsLost.WithLabelValues(kind).Inc()
}

func RecordStoreOperation(backend, operation string, duration time.Duration, err error) {
	StoreOperationDuration.WithLabelValues(backend, operation).Observe(duration.Seconds())
	if err != nil {
		StoreOperationErrors.WithLabelValues(backend, operation).Inc()
	}
}

func RecordExport(format string, rows int, err error) {
	if err != nil {
		ExportsTotal.WithLabelValues(format, "error").Inc()
		return
	}
	ExportsTotal.WithLabelValues(format, "success").Inc()
	ExportRows.WithLabelValues(format).Observe(float64(rows))
}

// RecordBreakerTransition updates both the state gauge and the transition counter.
func RecordBreakerTransition(name, from, to string, state float64) {
	CircuitBreakerState.WithLabelValues(name).Set(state)
	CircuitBreakerTransitions.WithLabelValues(name, from, to).Inc()
}
