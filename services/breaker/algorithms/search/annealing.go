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
	"math"
	"math/rand/v2"

	"github.com/AleutianAI/cipherbreak/services/breaker/algorithms"
	"github.com/AleutianAI/cipherbreak/services/breaker/breakerr"
	"github.com/AleutianAI/cipherbreak/services/breaker/eval"
)

// -----------------------------------------------------------------------------
// Simulated Annealing
// -----------------------------------------------------------------------------

// AnnealingConfig configures simulated annealing.
type AnnealingConfig struct {
	// InitialTemp is the temperature at step 0. 0 makes annealing a pure
	// hill climb without stagnation stop.
	InitialTemp float64 `json:"initial_temp" yaml:"initial_temp"`

	// MaxIterations is the proposal budget; the temperature reaches 0 on
	// the last proposal.
	MaxIterations int `json:"max_iterations" yaml:"max_iterations"`

	// Keep is the number of candidates returned (DefaultKeep if <= 0).
	Keep int `json:"keep" yaml:"keep"`
}

// DefaultAnnealingConfig returns the default configuration.
func DefaultAnnealingConfig() AnnealingConfig {
	return AnnealingConfig{InitialTemp: 100, MaxIterations: 5000}
}

// Validate checks the configuration.
func (c AnnealingConfig) Validate() error {
	switch {
	case c.InitialTemp < 0 || math.IsNaN(c.InitialTemp) || math.IsInf(c.InitialTemp, 0):
		return breakerr.NewConfigurationError("simulated_annealing.initial_temp", "must be a finite value >= 0")
	case c.MaxIterations < 1:
		return breakerr.NewConfigurationError("simulated_annealing.max_iterations", "must be >= 1")
	}
	return nil
}

// Temperature returns the linear cooling schedule at 1-based step t:
// InitialTemp * (1 - t/MaxIterations), clamped to [0, InitialTemp].
func (c AnnealingConfig) Temperature(t int) float64 {
	temp := c.InitialTemp * (1 - float64(t)/float64(c.MaxIterations))
	return max(0, min(c.InitialTemp, temp))
}

// SimulatedAnnealing is local search with probabilistic acceptance of
// worse moves.
//
// Description:
//
//	Improvements are always accepted. A move that changes the score by
//	delta <= 0 is accepted with probability exp(delta / temperature) while
//	the temperature is positive, and never once it reaches 0. The best state
//	ever visited is returned, not the final one.
//
//	Acceptance randomness is drawn only for non-improving moves at positive
//	temperature, so with InitialTemp 0 the walk matches HillClimbing with
//	StagnationLimit 0 on the same RNG state.
//
// Thread Safety: Safe for concurrent use.
type SimulatedAnnealing struct {
	config AnnealingConfig
}

// NewSimulatedAnnealing creates an annealer.
//
// Outputs:
//   - *SimulatedAnnealing: The strategy.
//   - error: *breakerr.ConfigurationError if config is invalid.
func NewSimulatedAnnealing(config AnnealingConfig) (*SimulatedAnnealing, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &SimulatedAnnealing{config: config}, nil
}

// Config returns the configuration.
func (s *SimulatedAnnealing) Config() AnnealingConfig { return s.config }

// Name implements eval.Evaluable.
func (s *SimulatedAnnealing) Name() string { return "simulated_annealing" }

// Search implements algorithms.Strategy.
func (s *SimulatedAnnealing) Search(ctx context.Context, p *algorithms.Problem) (*algorithms.Outcome, error) {
	var rng *rand.Rand
	if p != nil {
		rng = p.RNG
	}
	return walk(ctx, p, walkConfig{
		name:   s.Name(),
		steps:  s.config.MaxIterations,
		keep:   s.config.Keep,
		accept: s.acceptor(rng),
	})
}

func (s *SimulatedAnnealing) acceptor(rng *rand.Rand) acceptFunc {
	return func(t int, delta float64) bool {
		if delta > 0 {
			return true
		}
		temp := s.config.Temperature(t)
		if temp <= 0 {
			return false
		}
		return rng.Float64() < math.Exp(delta/temp)
	}
}

// Properties implements eval.Evaluable.
func (s *SimulatedAnnealing) Properties() []eval.Property {
	return append(algorithms.OutcomeProperties(), eval.Property{
		Name:        "best_not_worse_than_start",
		Description: "The returned best scores at least as high as the start key.",
		Check: func(input, output any) error {
			p, o, err := algorithms.CheckPair(input, output)
			if err != nil {
				return err
			}
			if p.Start == nil {
				return nil
			}
			start, err := p.Evaluate(p.Start)
			if err != nil {
				return err
			}
			if o.Best.Score < start.Score {
				return fmt.Errorf("best %.2f below start %.2f", o.Best.Score, start.Score)
			}
			return nil
		},
	})
}

// Metrics implements eval.Evaluable.
func (s *SimulatedAnnealing) Metrics() []eval.MetricDefinition { return algorithms.StandardMetrics() }

// HealthCheck implements eval.Evaluable.
func (s *SimulatedAnnealing) HealthCheck(ctx context.Context) error {
	if err := s.config.Validate(); err != nil {
		return fail(s.Name(), "HealthCheck", err)
	}
	return selfTest(ctx, s)
}
