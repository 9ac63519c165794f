// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package algorithms

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/AleutianAI/cipherbreak/services/breaker/eval"
)

// -----------------------------------------------------------------------------
// Known Strategy Names (for cardinality protection)
// -----------------------------------------------------------------------------

var (
	knownMu         sync.RWMutex
	knownStrategies = map[string]bool{
		"exhaustive":          true,
		"hill_climbing":       true,
		"simulated_annealing": true,
		"genetic":             true,
		"hybrid":              true,
	}
)

// sanitizeStrategyName returns name if it is a known strategy, else "unknown".
//
// Thread Safety: Safe for concurrent use.
func sanitizeStrategyName(name string) string {
	knownMu.RLock()
	defer knownMu.RUnlock()
	if knownStrategies[name] {
		return name
	}
	return "unknown"
}

// RegisterStrategyName adds name to the set of metric label values.
func RegisterStrategyName(name string) {
	knownMu.Lock()
	defer knownMu.Unlock()
	knownStrategies[name] = true
}

// -----------------------------------------------------------------------------
// Metrics
// -----------------------------------------------------------------------------

var (
	// strategyRunsTotal counts strategy runs.
	//
	// Labels:
	//   - strategy: sanitized against knownStrategies
	//   - status: "success", "failure" or "cancelled"
	strategyRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cipherbreak",
			Subsystem: "strategy",
			Name:      "runs_total",
			Help:      "Total strategy runs by strategy and status",
		},
		[]string{"strategy", "status"},
	)

	strategyDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "cipherbreak",
			Subsystem: "strategy",
			Name:      "duration_seconds",
			Help:      "Strategy run duration in seconds",
			Buckets:   durationBuckets,
		},
		[]string{"strategy"},
	)

	candidatesEvaluatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cipherbreak",
			Name:      "candidates_evaluated_total",
			Help:      "Total keys applied and scored by strategy",
		},
		[]string{"strategy"},
	)
)

var durationBuckets = []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

// RecordRun records one finished run.
//
// Thread Safety: Safe for concurrent use.
func RecordRun(strategy string, status string, seconds float64, evaluations int) {
	name := sanitizeStrategyName(strategy)
	strategyRunsTotal.WithLabelValues(name, status).Inc()
	strategyDurationSeconds.WithLabelValues(name).Observe(seconds)
	if evaluations > 0 {
		candidatesEvaluatedTotal.WithLabelValues(name).Add(float64(evaluations))
	}
}

// StandardMetrics describes the metrics every strategy reports through the
// Runner. Strategies return it from Metrics().
func StandardMetrics() []eval.MetricDefinition {
	return []eval.MetricDefinition{
		{
			Name:        "cipherbreak_strategy_runs_total",
			Type:        eval.MetricCounter,
			Description: "Total strategy runs by strategy and status",
			Labels:      []string{"strategy", "status"},
		},
		{
			Name:        "cipherbreak_strategy_duration_seconds",
			Type:        eval.MetricHistogram,
			Description: "Strategy run duration in seconds",
			Labels:      []string{"strategy"},
			Buckets:     durationBuckets,
		},
		{
			Name:        "cipherbreak_candidates_evaluated_total",
			Type:        eval.MetricCounter,
			Description: "Total keys applied and scored by strategy",
			Labels:      []string{"strategy"},
		},
	}
}
