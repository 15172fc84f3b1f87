// Package monitoring collects Prometheus metrics for the engine and its
// HTTP surface.
package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics. A nil *Metrics is safe to use;
// every recorder method no-ops on nil so the engine can run unmetered in
// tests.
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Engine metrics
	CapturesTotal     *prometheus.CounterVec
	CaptureFailures   prometheus.Counter
	TasksRecorded     prometheus.Counter
	SnapshotsReverted prometheus.Counter
	SnapshotsSkipped  prometheus.Counter
	StoreSaves        prometheus.Counter

	// Skill metrics
	SkillCalls    *prometheus.CounterVec
	SkillDuration *prometheus.HistogramVec
	SkillErrors   *prometheus.CounterVec

	// WebSocket metrics
	WSConnections prometheus.Gauge

	startTime time.Time
}

// NewMetrics creates a metrics collector registered on the default
// Prometheus registry.
func NewMetrics() *Metrics {
	return &Metrics{
		startTime: time.Now(),

		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rewind_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "rewind_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),

		CapturesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rewind_captures_total",
				Help: "Snapshots captured, by classification and kind",
			},
			[]string{"classification", "kind"},
		),
		CaptureFailures: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "rewind_capture_failures_total",
				Help: "Captures that recorded an empty state blob after a serialization failure",
			},
		),
		TasksRecorded: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "rewind_tasks_recorded_total",
				Help: "Workflow tasks sealed and appended to history",
			},
		),
		SnapshotsReverted: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "rewind_snapshots_reverted_total",
				Help: "Snapshots successfully reverted or reapplied",
			},
		),
		SnapshotsSkipped: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "rewind_snapshots_skipped_total",
				Help: "Snapshots skipped during reversal (stale identity, unknown type, bad state)",
			},
		),
		StoreSaves: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "rewind_store_saves_total",
				Help: "History store writes",
			},
		),

		SkillCalls: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rewind_skill_calls_total",
				Help: "Skill tool invocations",
			},
			[]string{"skill", "tool"},
		),
		SkillDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "rewind_skill_duration_seconds",
				Help:    "Skill tool execution duration in seconds",
				Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 5},
			},
			[]string{"skill", "tool"},
		),
		SkillErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rewind_skill_errors_total",
				Help: "Skill tool invocations that returned an error",
			},
			[]string{"skill", "tool"},
		),

		WSConnections: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "rewind_ws_connections",
				Help: "Active websocket event-stream connections",
			},
		),
	}
}

// RecordHTTPRequest records one completed HTTP request.
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordCapture records one snapshot capture.
func (m *Metrics) RecordCapture(classification, kind string) {
	if m == nil {
		return
	}
	m.CapturesTotal.WithLabelValues(classification, kind).Inc()
}

// RecordCaptureFailure records a swallowed serialization failure.
func (m *Metrics) RecordCaptureFailure() {
	if m == nil {
		return
	}
	m.CaptureFailures.Inc()
}

// RecordTask records a sealed task.
func (m *Metrics) RecordTask() {
	if m == nil {
		return
	}
	m.TasksRecorded.Inc()
}

// RecordReversal records the outcome counts of an undo/redo walk.
func (m *Metrics) RecordReversal(reverted, skipped int) {
	if m == nil {
		return
	}
	m.SnapshotsReverted.Add(float64(reverted))
	m.SnapshotsSkipped.Add(float64(skipped))
}

// RecordStoreSave records one history file write.
func (m *Metrics) RecordStoreSave() {
	if m == nil {
		return
	}
	m.StoreSaves.Inc()
}

// RecordSkillCall records one skill invocation.
func (m *Metrics) RecordSkillCall(skill, tool string, duration time.Duration, failed bool) {
	if m == nil {
		return
	}
	m.SkillCalls.WithLabelValues(skill, tool).Inc()
	m.SkillDuration.WithLabelValues(skill, tool).Observe(duration.Seconds())
	if failed {
		m.SkillErrors.WithLabelValues(skill, tool).Inc()
	}
}

// WSConnect tracks a websocket client attach/detach.
func (m *Metrics) WSConnect(delta int) {
	if m == nil {
		return
	}
	m.WSConnections.Add(float64(delta))
}
