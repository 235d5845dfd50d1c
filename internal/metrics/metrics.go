// Projectionist - Self-Hosted Media Catalog with Synchronized Viewing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/projectionist

// Package metrics provides Prometheus instrumentation for the catalog,
// indexer, ordering cache, WebSocket hub and sync coordinator.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API endpoint metrics
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

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_rate_limit_hits_total",
			Help: "Total number of rate limit rejections",
		},
		[]string{"endpoint"},
	)

	// Index metrics
	IndexScanDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "index_scan_duration_seconds",
			Help:    "Duration of directory index scans in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60, 300},
		},
	)

	IndexJobsStarted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "index_jobs_started_total",
			Help: "Total number of background index jobs started",
		},
	)

	IndexJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "index_jobs_completed_total",
			Help: "Total number of background index jobs finished",
		},
		[]string{"status"}, // "complete", "error"
	)

	IndexSnapshotHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "index_snapshot_hits_total",
			Help: "Listings served from a fresh index snapshot",
		},
	)

	IndexSnapshotMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "index_snapshot_misses_total",
			Help: "Listings that required a directory scan",
		},
	)

	// Ordering cache metrics
	OrderingCategoryCaches = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ordering_category_caches",
			Help: "Current number of category listing caches",
		},
	)

	OrderingSessionEvictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ordering_session_evictions_total",
			Help: "Session ordering entries evicted by cap or expiry",
		},
	)

	OrderingReshuffles = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ordering_reshuffles_total",
			Help: "Times a session order was reshuffled",
		},
	)

	// WebSocket metrics
	WSConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections_active",
			Help: "Current number of connected WebSocket clients",
		},
	)

	WSMessagesReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_messages_received_total",
			Help: "Inbound WebSocket messages by type",
		},
		[]string{"type"},
	)

	WSMessagesDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_messages_dropped_total",
			Help: "Messages dropped due to slow clients or rate limiting",
		},
	)

	// Sync coordinator metrics
	SyncBroadcasts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_broadcasts_total",
			Help: "Sync notifications sent, by event type",
		},
		[]string{"event"},
	)

	SyncActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sync_active",
			Help: "1 when synchronized viewing is enabled, 0 otherwise",
		},
	)

	// Chat metrics
	ChatMessagesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_messages_total",
			Help: "Total chat messages relayed",
		},
	)
)

// RecordAPIRequest records a completed API request with its outcome.
func RecordAPIRequest(method, endpoint string, statusCode int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordIndexJob records a finished background index job.
func RecordIndexJob(status string, duration time.Duration) {
	IndexJobsCompleted.WithLabelValues(status).Inc()
	IndexScanDuration.Observe(duration.Seconds())
}

// TrackActiveRequest adjusts the in-flight request gauge.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}
