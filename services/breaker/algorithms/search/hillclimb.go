// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package search

import (
	"context"
	"fmt"

	"github.com/AleutianAI/cipherbreak/services/breaker/algorithms"
	"github.com/AleutianAI/cipherbreak/services/breaker/breakerr"
	"github.com/AleutianAI/cipherbreak/services/breaker/eval"
)

// -----------------------------------------------------------------------------
// Hill Climbing
// -----------------------------------------------------------------------------

// HillClimbConfig configures hill climbing.
type HillClimbConfig struct {
	// MaxIterations is the proposal budget.
	MaxIterations int `json:"max_iterations" yaml:"max_iterations"`

	// StagnationLimit stops the climb after this many consecutive
	// rejections. 0 disables the check.
	StagnationLimit int `json:"stagnation_limit" yaml:"stagnation_limit"`

	// Keep is the number of candidates returned (DefaultKeep if <= 0).
	Keep int `json:"keep" yaml:"keep"`
}

// DefaultHillClimbConfig returns the default configuration.
func DefaultHillClimbConfig() HillClimbConfig {
	return HillClimbConfig{MaxIterations: 1000, StagnationLimit: 200}
}

// Validate checks the configuration.
func (c HillClimbConfig) Validate() error {
	switch {
	case c.MaxIterations < 1:
		return breakerr.NewConfigurationError("hill_climbing.max_iterations", "must be >= 1")
	case c.StagnationLimit < 0:
		return breakerr.NewConfigurationError("hill_climbing.stagnation_limit", "must be >= 0")
	}
	return nil
}

// HillClimbing is strict-improvement local search.
//
// Description:
//
//	From the start key, repeatedly proposes a neighbor through the
//	adapter's mutation and moves only when the neighbor scores strictly
//	higher. Ties and regressions are rejected. Stops after MaxIterations
//	proposals or StagnationLimit consecutive rejections.
//
//	Limitation: converges to the first local optimum and cannot leave it.
//
// Thread Safety: Safe for concurrent use.
type HillClimbing struct {
	config HillClimbConfig
}

// NewHillClimbing creates a hill climber.
//
// Outputs:
//   - *HillClimbing: The strategy.
//   - error: *breakerr.ConfigurationError if config is invalid.
func NewHillClimbing(config HillClimbConfig) (*HillClimbing, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &HillClimbing{config: config}, nil
}

// Config returns the configuration.
func (h *HillClimbing) Config() HillClimbConfig { return h.config }

// Name implements eval.Evaluable.
func (h *HillClimbing) Name() string { return "hill_climbing" }

// Search implements algorithms.Strategy.
func (h *HillClimbing) Search(ctx context.Context, p *algorithms.Problem) (*algorithms.Outcome, error) {
	return walk(ctx, p, walkConfig{
		name:       h.Name(),
		steps:      h.config.MaxIterations,
		stagnation: h.config.StagnationLimit,
		keep:       h.config.Keep,
		accept:     func(_ int, delta float64) bool { return delta > 0 },
	})
}

// Properties implements eval.Evaluable.
func (h *HillClimbing) Properties() []eval.Property {
	return append(algorithms.OutcomeProperties(), eval.Property{
		Name:        "within_budget",
		Description: "Hill climbing never exceeds its proposal budget and accepts at most one move per proposal.",
		Check: func(input, output any) error {
			_, o, err := algorithms.CheckPair(input, output)
			if err != nil {
				return err
			}
			if o.Iterations > h.config.MaxIterations || o.Accepted > o.Iterations {
				return fmt.Errorf("iterations=%d accepted=%d budget=%d", o.Iterations, o.Accepted, h.config.MaxIterations)
			}
			return nil
		},
	})
}

// Metrics implements eval.Evaluable.
func (h *HillClimbing) Metrics() []eval.MetricDefinition { return algorithms.StandardMetrics() }

// HealthCheck implements eval.Evaluable.
func (h *HillClimbing) HealthCheck(ctx context.Context) error {
	if err := h.config.Validate(); err != nil {
		return fail(h.Name(), "HealthCheck", err)
	}
	return selfTest(ctx, h)
}
