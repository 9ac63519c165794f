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
	"github.com/AleutianAI/cipherbreak/services/breaker/eval"
)

// -----------------------------------------------------------------------------
// Hybrid
// -----------------------------------------------------------------------------

// HybridConfig configures the genetic-then-annealing hybrid.
type HybridConfig struct {
	Genetic   GeneticConfig   `json:"genetic" yaml:"genetic"`
	Annealing AnnealingConfig `json:"annealing" yaml:"annealing"`

	// Keep is the number of candidates returned (DefaultKeep if <= 0).
	Keep int `json:"keep" yaml:"keep"`
}

// DefaultHybridConfig returns a lighter genetic phase followed by a cool
// annealing refinement.
func DefaultHybridConfig() HybridConfig {
	ga := DefaultGeneticConfig()
	ga.PopulationSize = 20
	ga.Generations = 30
	return HybridConfig{
		Genetic:   ga,
		Annealing: AnnealingConfig{InitialTemp: 50, MaxIterations: 2000},
	}
}

// Validate checks both phases.
func (c HybridConfig) Validate() error {
	if err := c.Genetic.Validate(); err != nil {
		return err
	}
	return c.Annealing.Validate()
}

// Hybrid runs the genetic algorithm, then anneals from its best key.
//
// Description:
//
//	Both phases share the problem's RNG, so a fixed seed reproduces the
//	whole run. The returned ranking merges both phases' candidates;
//	History is the genetic phase's history.
//
// Thread Safety: Safe for concurrent use.
type Hybrid struct {
	config    HybridConfig
	genetic   *Genetic
	annealing *SimulatedAnnealing
}

// NewHybrid creates the hybrid strategy.
func NewHybrid(config HybridConfig) (*Hybrid, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	ga, annealing := config.Genetic, config.Annealing
	ga.Keep, annealing.Keep = config.Keep, config.Keep
	return &Hybrid{
		config:    config,
		genetic:   &Genetic{config: ga},
		annealing: &SimulatedAnnealing{config: annealing},
	}, nil
}

// Name implements eval.Evaluable.
func (h *Hybrid) Name() string { return "hybrid" }

// Search implements algorithms.Strategy.
func (h *Hybrid) Search(ctx context.Context, p *algorithms.Problem) (*algorithms.Outcome, error) {
	first, err := h.genetic.Search(ctx, p)
	if err != nil {
		if first != nil {
			first.Strategy = h.Name()
		}
		return first, err
	}

	refine := *p
	refine.Start = first.Best.Key
	second, err := h.annealing.Search(ctx, &refine)

	out := &algorithms.Outcome{
		Strategy:    h.Name(),
		Iterations:  first.Iterations,
		Evaluations: first.Evaluations,
		History:     first.History,
	}
	lists := [][]algorithms.Candidate{first.Candidates}
	if second != nil {
		out.Iterations += second.Iterations
		out.Accepted = second.Accepted
		out.Evaluations += second.Evaluations
		lists = append(lists, second.Candidates)
	}
	keep := h.config.Keep
	if keep <= 0 {
		keep = algorithms.DefaultKeep
	}
	out.Candidates = algorithms.Rank(keep, lists...)
	if len(out.Candidates) > 0 {
		out.Best = out.Candidates[0]
	}
	if err != nil && second == nil {
		return nil, fail(h.Name(), "Refine", err)
	}
	return out, err
}

// Properties implements eval.Evaluable.
func (h *Hybrid) Properties() []eval.Property {
	return append(algorithms.OutcomeProperties(), eval.Property{
		Name:        "history_within_generations",
		Description: "The genetic phase records at most one history entry per generation.",
		Check: func(input, output any) error {
			_, o, err := algorithms.CheckPair(input, output)
			if err != nil {
				return err
			}
			if len(o.History) > h.config.Genetic.Generations {
				return fmt.Errorf("history has %d entries for %d generations", len(o.History), h.config.Genetic.Generations)
			}
			return nonDecreasing(o.History)
		},
	})
}

// Metrics implements eval.Evaluable.
func (h *Hybrid) Metrics() []eval.MetricDefinition { return algorithms.StandardMetrics() }

// HealthCheck implements eval.Evaluable.
func (h *Hybrid) HealthCheck(ctx context.Context) error {
	if err := h.config.Validate(); err != nil {
		return fail(h.Name(), "HealthCheck", err)
	}
	return selfTest(ctx, h)
}
