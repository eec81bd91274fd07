// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package observability provides metrics for the chat service.
//
// # Description
//
// This package implements Prometheus metrics for monitoring assistant
// exchanges. Metrics include:
//   - Exchange counters (by outcome)
//   - Directive counters (by kind)
//   - Iteration count histograms per exchange
//   - Active detached-loop gauge
//
// # Integration
//
// Metrics are exposed via /metrics endpoint. Use with Prometheus + Grafana
// for dashboards and alerting.
//
// # Thread Safety
//
// All metric operations are thread-safe via Prometheus's internal locking.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// Metric Definitions
// =============================================================================

// Namespace for all metrics
const metricsNamespace = "aleutian"

// Subsystem for assistant metrics
const assistantSubsystem = "assistant"

// AssistantMetrics holds all Prometheus metrics for assistant exchanges.
//
// # Description
//
// Provides counters, histograms, and gauges for monitoring the
// action-resolution loop. Initialize once at startup via InitMetrics().
//
// # Thread Safety
//
// All operations are thread-safe.
type AssistantMetrics struct {
	// ExchangesTotal counts exchanges by outcome.
	// Labels: outcome (no_actions, completed, cap_reached, model_error)
	ExchangesTotal *prometheus.CounterVec

	// DirectivesTotal counts parsed directives by kind.
	// Labels: kind (query-messages, query-channels, query-users, unknown)
	DirectivesTotal *prometheus.CounterVec

	// LoopIterations measures iterations per asynchronous continuation.
	LoopIterations prometheus.Histogram

	// ActiveLoops tracks currently running detached continuations.
	ActiveLoops prometheus.Gauge

	// MalformedDirectivesTotal counts directive payloads skipped by the parser.
	MalformedDirectivesTotal prometheus.Counter
}

// DefaultMetrics is the singleton instance of AssistantMetrics.
// Initialized by InitMetrics().
var DefaultMetrics *AssistantMetrics

// InitMetrics initializes the default metrics instance.
//
// # Description
//
// Creates and registers all Prometheus metrics. Should be called once
// at application startup.
//
// # Limitations
//
//   - Panics if called twice (duplicate registration).
func InitMetrics() *AssistantMetrics {
	DefaultMetrics = &AssistantMetrics{
		ExchangesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: assistantSubsystem,
				Name:      "exchanges_total",
				Help:      "Total assistant exchanges by outcome",
			},
			[]string{"outcome"},
		),

		DirectivesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: assistantSubsystem,
				Name:      "directives_total",
				Help:      "Total parsed directives by kind",
			},
			[]string{"kind"},
		),

		LoopIterations: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: assistantSubsystem,
				Name:      "loop_iterations",
				Help:      "Iterations per asynchronous continuation",
				Buckets:   []float64{1, 2, 3, 4, 5},
			},
		),

		ActiveLoops: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: assistantSubsystem,
				Name:      "active_loops",
				Help:      "Currently running detached continuations",
			},
		),

		MalformedDirectivesTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: assistantSubsystem,
				Name:      "malformed_directives_total",
				Help:      "Directive payloads skipped by the parser",
			},
		),
	}

	return DefaultMetrics
}

// =============================================================================
// Exchange Outcomes
// =============================================================================

// Outcome categorizes how an exchange ended for metrics labeling.
type Outcome string

const (
	// OutcomeNoActions means the first response contained no directives.
	OutcomeNoActions Outcome = "no_actions"

	// OutcomeCompleted means the detached loop ended with a response
	// containing no further directives.
	OutcomeCompleted Outcome = "completed"

	// OutcomeCapReached means the iteration cap stopped the loop.
	OutcomeCapReached Outcome = "cap_reached"

	// OutcomeModelError means a model invocation failed mid-loop.
	OutcomeModelError Outcome = "model_error"
)

// =============================================================================
// Helper Methods
// =============================================================================

// RecordExchange records a finished exchange.
func (m *AssistantMetrics) RecordExchange(outcome Outcome) {
	m.ExchangesTotal.WithLabelValues(string(outcome)).Inc()
}

// RecordDirective records one parsed directive.
func (m *AssistantMetrics) RecordDirective(kind string) {
	m.DirectivesTotal.WithLabelValues(kind).Inc()
}

// LoopStarted increments the active loop gauge.
func (m *AssistantMetrics) LoopStarted() {
	m.ActiveLoops.Inc()
}

// LoopEnded decrements the active loop gauge and records the iteration
// count.
func (m *AssistantMetrics) LoopEnded(iterations int) {
	m.ActiveLoops.Dec()
	m.LoopIterations.Observe(float64(iterations))
}
