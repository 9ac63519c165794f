// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package orchestrator

import (
	"fmt"
	"math"

	"github.com/AleutianAI/cipherbreak/services/breaker/adapter"
	"github.com/AleutianAI/cipherbreak/services/breaker/algorithms"
	"github.com/AleutianAI/cipherbreak/services/breaker/algorithms/search"
	"github.com/AleutianAI/cipherbreak/services/breaker/breakerr"
	"github.com/AleutianAI/cipherbreak/services/breaker/eval"
	"github.com/AleutianAI/cipherbreak/services/breaker/seed"
)

// Kind tags a Variant with the strategy it runs. Values are the strategy
// names.
type Kind string

const (
	KindExhaustive Kind = "exhaustive"
	KindHillClimb  Kind = "hill_climbing"
	KindAnnealing  Kind = "simulated_annealing"
	KindGenetic    Kind = "genetic"
	KindHybrid     Kind = "hybrid"
)

// Kinds lists every strategy kind in a stable order.
func Kinds() []Kind {
	return []Kind{KindExhaustive, KindHillClimb, KindAnnealing, KindGenetic, KindHybrid}
}

// ParseKind validates a strategy name.
func ParseKind(name string) (Kind, error) {
	for _, k := range Kinds() {
		if string(k) == name {
			return k, nil
		}
	}
	return "", breakerr.NewConfigurationError("strategy", fmt.Sprintf("unknown strategy %q (known: %v)", name, Kinds()))
}

// Supports reports whether strategies of this kind can search space.
func (k Kind) Supports(space adapter.KeySpace, ceiling int64) bool {
	switch k {
	case KindExhaustive:
		return space.Small(ceiling)
	case KindGenetic, KindHybrid:
		return space.Kind == adapter.SpacePermutation
	default:
		return true
	}
}

// Variant is one configured attempt in an ensemble: a tagged strategy kind
// plus the configuration for that kind. Only the field matching Kind is
// read; a nil config means the kind's defaults.
type Variant struct {
	Label   string    `json:"label" yaml:"label"`
	Kind    Kind      `json:"kind" yaml:"kind"`
	Seeding seed.Kind `json:"seeding" yaml:"seeding"`

	Exhaustive *search.ExhaustiveConfig `json:"exhaustive,omitempty" yaml:"exhaustive,omitempty"`
	HillClimb  *search.HillClimbConfig  `json:"hill_climb,omitempty" yaml:"hill_climb,omitempty"`
	Annealing  *search.AnnealingConfig  `json:"annealing,omitempty" yaml:"annealing,omitempty"`
	Genetic    *search.GeneticConfig    `json:"genetic,omitempty" yaml:"genetic,omitempty"`
	Hybrid     *search.HybridConfig     `json:"hybrid,omitempty" yaml:"hybrid,omitempty"`
}

// name returns Label, or kind/seeding when unset.
func (v Variant) name() string {
	if v.Label != "" {
		return v.Label
	}
	switch v.Kind {
	case KindHillClimb, KindAnnealing:
		return string(v.Kind) + "/" + v.Seeding.String()
	}
	return string(v.Kind)
}

// Strategy builds the variant's strategy with iteration and generation
// budgets multiplied by scale.
//
// Inputs:
//   - scale: Budget multiplier. <= 0 means 1. Scaled budgets are at least 1.
//   - keep: Candidates kept per run when the config leaves Keep unset.
//
// Outputs:
//   - algorithms.Strategy: The configured strategy.
//   - error: *breakerr.ConfigurationError for an unknown kind or an invalid config.
func (v Variant) Strategy(scale float64, keep int) (algorithms.Strategy, error) {
	if scale <= 0 {
		scale = 1
	}
	switch v.Kind {
	case KindExhaustive:
		cfg := orDefault(v.Exhaustive, search.DefaultExhaustiveConfig)
		cfg.Keep = keepOr(cfg.Keep, keep)
		return search.NewExhaustive(cfg)
	case KindHillClimb:
		cfg := orDefault(v.HillClimb, search.DefaultHillClimbConfig)
		cfg.MaxIterations = scaled(cfg.MaxIterations, scale)
		cfg.Keep = keepOr(cfg.Keep, keep)
		return search.NewHillClimbing(cfg)
	case KindAnnealing:
		cfg := orDefault(v.Annealing, search.DefaultAnnealingConfig)
		cfg.MaxIterations = scaled(cfg.MaxIterations, scale)
		cfg.Keep = keepOr(cfg.Keep, keep)
		return search.NewSimulatedAnnealing(cfg)
	case KindGenetic:
		cfg := orDefault(v.Genetic, search.DefaultGeneticConfig)
		cfg.Generations = scaled(cfg.Generations, scale)
		cfg.Keep = keepOr(cfg.Keep, keep)
		return search.NewGenetic(cfg)
	case KindHybrid:
		cfg := orDefault(v.Hybrid, search.DefaultHybridConfig)
		cfg.Genetic.Generations = scaled(cfg.Genetic.Generations, scale)
		cfg.Annealing.MaxIterations = scaled(cfg.Annealing.MaxIterations, scale)
		cfg.Keep = keepOr(cfg.Keep, keep)
		return search.NewHybrid(cfg)
	}
	return nil, breakerr.NewConfigurationError("variant.kind", fmt.Sprintf("unknown strategy %q", v.Kind))
}

// Registry returns an eval registry holding one default-configured
// strategy per kind, for health checks and introspection.
func Registry() (*eval.Registry, error) {
	r := eval.NewRegistry()
	for _, k := range Kinds() {
		s, err := Variant{Kind: k}.Strategy(1, 0)
		if err != nil {
			return nil, err
		}
		if err := r.Register(s); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func orDefault[T any](cfg *T, def func() T) T {
	if cfg != nil {
		return *cfg
	}
	return def()
}

func keepOr(configured, keep int) int {
	if configured > 0 {
		return configured
	}
	return keep
}

func scaled(n int, scale float64) int {
	return max(1, int(math.Round(float64(n)*scale)))
}

// DefaultEnsemble returns the eight attempts run against spaces too large
// to enumerate.
//
// Description:
//
//	Two frequency- and pattern-seeded hill climbs, three annealers from
//	different seeds and temperatures, two genetic runs of different sizes,
//	and the genetic-then-annealing hybrid. Genetic and hybrid variants are
//	skipped for non-permutation spaces.
func DefaultEnsemble() []Variant {
	return []Variant{
		{Label: "hc_frequency", Kind: KindHillClimb, Seeding: seed.KindFrequency,
			HillClimb: &search.HillClimbConfig{MaxIterations: 1000, StagnationLimit: 200}},
		{Label: "hc_pattern", Kind: KindHillClimb, Seeding: seed.KindPattern,
			HillClimb: &search.HillClimbConfig{MaxIterations: 1000, StagnationLimit: 200}},
		{Label: "sa_frequency", Kind: KindAnnealing, Seeding: seed.KindFrequency,
			Annealing: &search.AnnealingConfig{InitialTemp: 100, MaxIterations: 5000}},
		{Label: "sa_pattern", Kind: KindAnnealing, Seeding: seed.KindPattern,
			Annealing: &search.AnnealingConfig{InitialTemp: 50, MaxIterations: 3000}},
		{Label: "sa_random", Kind: KindAnnealing, Seeding: seed.KindRandom,
			Annealing: &search.AnnealingConfig{InitialTemp: 200, MaxIterations: 4000}},
		{Label: "ga_standard", Kind: KindGenetic,
			Genetic: &search.GeneticConfig{PopulationSize: 30, Generations: 50, EliteFraction: 0.25, MutationRate: 0.10, TournamentSize: 3}},
		{Label: "hybrid", Kind: KindHybrid},
		{Label: "ga_large", Kind: KindGenetic,
			Genetic: &search.GeneticConfig{PopulationSize: 40, Generations: 100, EliteFraction: 0.25, MutationRate: 0.10, TournamentSize: 3}},
	}
}
