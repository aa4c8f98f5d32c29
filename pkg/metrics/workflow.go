package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "catering"

// WorkflowMetrics records stage timings for agent workflow runs and the
// outcome of every remote tool call.
type WorkflowMetrics struct {
	duration  *prometheus.HistogramVec
	success   *prometheus.CounterVec
	failure   *prometheus.CounterVec
	skipped   *prometheus.CounterVec
	toolCalls *prometheus.CounterVec
}

// NewWorkflowMetrics registers the workflow metrics on the provided registerer.
// A nil registerer yields a no-op recorder.
func NewWorkflowMetrics(reg prometheus.Registerer) *WorkflowMetrics {
	if reg == nil {
		return &WorkflowMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "workflow_stage_duration_seconds",
		Help:      "Duration of agent workflow stages in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"stage"})
	success := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "workflow_stage_success_total",
		Help:      "Successful agent workflow stage executions.",
	}, []string{"stage"})
	failure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "workflow_stage_failure_total",
		Help:      "Failed agent workflow stage executions.",
	}, []string{"stage"})
	skipped := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "workflow_stage_skipped_total",
		Help:      "Optional agent workflow stages skipped by run options.",
	}, []string{"stage"})
	toolCalls := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tool_calls_total",
		Help:      "Remote tool calls by tool and outcome.",
	}, []string{"tool", "outcome"})
	reg.MustRegister(duration, success, failure, skipped, toolCalls)
	return &WorkflowMetrics{
		duration:  duration,
		success:   success,
		failure:   failure,
		skipped:   skipped,
		toolCalls: toolCalls,
	}
}

// ObserveDuration records the duration for the named stage.
func (m *WorkflowMetrics) ObserveDuration(stage string, duration time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	m.duration.WithLabelValues(normalizeLabel(stage)).Observe(duration.Seconds())
}

// IncSuccess increments the success counter for the named stage.
func (m *WorkflowMetrics) IncSuccess(stage string) {
	if m == nil || m.success == nil {
		return
	}
	m.success.WithLabelValues(normalizeLabel(stage)).Inc()
}

// IncFailure increments the failure counter for the named stage.
func (m *WorkflowMetrics) IncFailure(stage string) {
	if m == nil || m.failure == nil {
		return
	}
	m.failure.WithLabelValues(normalizeLabel(stage)).Inc()
}

// IncSkipped increments the skipped counter for the named stage.
func (m *WorkflowMetrics) IncSkipped(stage string) {
	if m == nil || m.skipped == nil {
		return
	}
	m.skipped.WithLabelValues(normalizeLabel(stage)).Inc()
}

// ObserveToolCall counts one tool call. err decides the outcome label.
func (m *WorkflowMetrics) ObserveToolCall(tool string, err error) {
	if m == nil || m.toolCalls == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.toolCalls.WithLabelValues(normalizeLabel(tool), outcome).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
