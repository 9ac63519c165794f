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

	"github.com/AleutianAI/cipherbreak/services/breaker/adapter"
	"github.com/AleutianAI/cipherbreak/services/breaker/algorithms"
	"github.com/AleutianAI/cipherbreak/services/breaker/breakerr"
	"github.com/AleutianAI/cipherbreak/services/breaker/eval"
)

// -----------------------------------------------------------------------------
// Exhaustive Search
// -----------------------------------------------------------------------------

// DefaultCeiling is the largest key space exhaustive search accepts: 2^20.
const DefaultCeiling int64 = 1 << 20

// ExhaustiveConfig configures exhaustive search.
type ExhaustiveConfig struct {
	// Ceiling is the largest key-space size accepted.
	Ceiling int64 `json:"ceiling" yaml:"ceiling"`

	// Keep caps the returned candidates. <= 0 returns every distinct plaintext.
	Keep int `json:"keep" yaml:"keep"`
}

// DefaultExhaustiveConfig returns the default configuration.
func DefaultExhaustiveConfig() ExhaustiveConfig {
	return ExhaustiveConfig{Ceiling: DefaultCeiling}
}

// Validate checks the configuration.
func (c ExhaustiveConfig) Validate() error {
	if c.Ceiling < 1 {
		return breakerr.NewConfigurationError("exhaustive.ceiling", "must be >= 1")
	}
	return nil
}

// Exhaustive scores every key of a small enumerable key space.
//
// Description:
//
//	No pruning: every key is applied and scored, so the scoring optimum is
//	always found. Spaces that are not enumerable or exceed Ceiling are
//	rejected with *breakerr.DomainSizeError.
//
// Thread Safety: Safe for concurrent use.
type Exhaustive struct {
	config ExhaustiveConfig
}

// NewExhaustive creates an exhaustive search.
func NewExhaustive(config ExhaustiveConfig) (*Exhaustive, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Exhaustive{config: config}, nil
}

// Name implements eval.Evaluable.
func (e *Exhaustive) Name() string { return "exhaustive" }

// Accepts reports whether space is small enough to enumerate.
func (e *Exhaustive) Accepts(space adapter.KeySpace) bool {
	return space.Small(e.config.Ceiling)
}

// Search implements algorithms.Strategy.
func (e *Exhaustive) Search(ctx context.Context, p *algorithms.Problem) (*algorithms.Outcome, error) {
	space, err := prepare(e.Name(), p)
	if err != nil {
		return nil, err
	}
	if !e.Accepts(space) {
		return nil, breakerr.NewDomainSizeError(space.Size, e.config.Ceiling)
	}

	out := &algorithms.Outcome{Strategy: e.Name()}
	var all []algorithms.Candidate
	for key := range space.Keys {
		if err := ctx.Err(); err != nil {
			out.Candidates = algorithms.Rank(e.config.Keep, all)
			if len(out.Candidates) > 0 {
				out.Best = out.Candidates[0]
			}
			return out, err
		}
		c, err := p.Evaluate(key)
		if err != nil {
			return nil, fail(e.Name(), "Evaluate", err)
		}
		out.Iterations++
		out.Evaluations++
		all = append(all, c)
	}

	out.Candidates = algorithms.Rank(e.config.Keep, all)
	if len(out.Candidates) > 0 {
		out.Best = out.Candidates[0]
	}
	return out, nil
}

// Properties implements eval.Evaluable.
func (e *Exhaustive) Properties() []eval.Property {
	return append(algorithms.OutcomeProperties(), eval.Property{
		Name:        "exhaustive_complete",
		Description: "Every key of the declared space was evaluated exactly once.",
		Tags:        []string{eval.TagCritical},
		Check: func(input, output any) error {
			p, o, err := algorithms.CheckPair(input, output)
			if err != nil {
				return err
			}
			space, err := p.Adapter.KeySpace(p.Ciphertext)
			if err != nil {
				return err
			}
			if int64(o.Evaluations) != space.Size.Int64() {
				return fmt.Errorf("evaluated %d of %s keys", o.Evaluations, space.Size)
			}
			return nil
		},
	})
}

// Metrics implements eval.Evaluable.
func (e *Exhaustive) Metrics() []eval.MetricDefinition { return algorithms.StandardMetrics() }

// HealthCheck implements eval.Evaluable.
func (e *Exhaustive) HealthCheck(ctx context.Context) error {
	if err := e.config.Validate(); err != nil {
		return fail(e.Name(), "HealthCheck", err)
	}
	return selfTest(ctx, e)
}
