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
	"math/rand/v2"
	"slices"

	"github.com/AleutianAI/cipherbreak/services/breaker/adapter"
	"github.com/AleutianAI/cipherbreak/services/breaker/algorithms"
	"github.com/AleutianAI/cipherbreak/services/breaker/breakerr"
	"github.com/AleutianAI/cipherbreak/services/breaker/eval"
	"github.com/AleutianAI/cipherbreak/services/breaker/keys"
	"github.com/AleutianAI/cipherbreak/services/breaker/seed"
)

// -----------------------------------------------------------------------------
// Genetic Algorithm
// -----------------------------------------------------------------------------

// GeneticConfig configures the genetic algorithm.
type GeneticConfig struct {
	PopulationSize int     `json:"population_size" yaml:"population_size"`
	Generations    int     `json:"generations" yaml:"generations"`
	EliteFraction  float64 `json:"elite_fraction" yaml:"elite_fraction"`
	MutationRate   float64 `json:"mutation_rate" yaml:"mutation_rate"`
	TournamentSize int     `json:"tournament_size" yaml:"tournament_size"`

	// Keep is the number of candidates returned (DefaultKeep if <= 0).
	Keep int `json:"keep" yaml:"keep"`
}

// DefaultGeneticConfig returns the default configuration.
func DefaultGeneticConfig() GeneticConfig {
	return GeneticConfig{
		PopulationSize: 30,
		Generations:    50,
		EliteFraction:  0.25,
		MutationRate:   0.10,
		TournamentSize: 3,
	}
}

// Validate checks the configuration.
func (c GeneticConfig) Validate() error {
	switch {
	case c.PopulationSize < 2:
		return breakerr.NewConfigurationError("genetic.population_size", "must be >= 2")
	case c.Generations < 1:
		return breakerr.NewConfigurationError("genetic.generations", "must be >= 1")
	case c.EliteFraction < 0 || c.EliteFraction >= 1:
		return breakerr.NewConfigurationError("genetic.elite_fraction", "must be in [0, 1)")
	case c.MutationRate < 0 || c.MutationRate > 1:
		return breakerr.NewConfigurationError("genetic.mutation_rate", "must be in [0, 1]")
	case c.TournamentSize < 1:
		return breakerr.NewConfigurationError("genetic.tournament_size", "must be >= 1")
	}
	return nil
}

// elites returns the number of individuals carried over unchanged; at
// least one so the best-ever score cannot regress.
func (c GeneticConfig) elites() int {
	return min(c.PopulationSize, max(1, int(float64(c.PopulationSize)*c.EliteFraction)))
}

// Genetic is population search over permutation keys.
//
// Description:
//
//	Init builds PopulationSize random permutations (Problem.Start, when it
//	is a permutation, replaces the first). Each generation sorts by score,
//	keeps the elites, and fills the rest with children of two
//	tournament-selected parents. A child is mutated through the adapter
//	with probability MutationRate. The population size never changes and
//	the best candidate ever seen is returned.
//
// Thread Safety: Safe for concurrent use.
type Genetic struct {
	config GeneticConfig
}

// NewGenetic creates a genetic algorithm.
func NewGenetic(config GeneticConfig) (*Genetic, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Genetic{config: config}, nil
}

// Config returns the configuration.
func (g *Genetic) Config() GeneticConfig { return g.config }

// Name implements eval.Evaluable.
func (g *Genetic) Name() string { return "genetic" }

// Search implements algorithms.Strategy.
func (g *Genetic) Search(ctx context.Context, p *algorithms.Problem) (*algorithms.Outcome, error) {
	space, err := prepare(g.Name(), p)
	if err != nil {
		return nil, err
	}
	if space.Kind != adapter.SpacePermutation {
		return nil, fail(g.Name(), "Search", fmt.Errorf("%w: %s", algorithms.ErrUnsupportedSpace, space.Kind))
	}

	out := &algorithms.Outcome{Strategy: g.Name()}
	board := algorithms.NewLeaderboard(g.config.Keep)
	evaluate := func(k keys.Permutation) (algorithms.Candidate, error) {
		c, err := p.Evaluate(k)
		if err != nil {
			return c, fail(g.Name(), "Evaluate", err)
		}
		out.Evaluations++
		board.Offer(c)
		return c, nil
	}

	population := make([]algorithms.Candidate, 0, g.config.PopulationSize)
	for i := range g.config.PopulationSize {
		k := seed.RandomPermutation(space.Alphabet, p.RNG)
		if start, ok := p.Start.(keys.Permutation); ok && i == 0 && start.Alphabet() == space.Alphabet {
			k = start
		}
		c, err := evaluate(k)
		if err != nil {
			return nil, err
		}
		population = append(population, c)
	}

	elites := g.config.elites()
	for range g.config.Generations {
		if err := ctx.Err(); err != nil {
			return out.Finish(board), err
		}

		slices.SortStableFunc(population, func(a, b algorithms.Candidate) int {
			switch {
			case a.Better(b):
				return -1
			case b.Better(a):
				return 1
			}
			return 0
		})

		next := make([]algorithms.Candidate, 0, g.config.PopulationSize)
		next = append(next, population[:elites]...)
		for len(next) < g.config.PopulationSize {
			p1 := tournament(population, g.config.TournamentSize, p.RNG)
			p2 := tournament(population, g.config.TournamentSize, p.RNG)
			child, err := Crossover(p1.Key.(keys.Permutation), p2.Key.(keys.Permutation), p.RNG)
			if err != nil {
				return nil, fail(g.Name(), "Crossover", err)
			}
			if p.RNG.Float64() < g.config.MutationRate {
				child, err = mutatePermutation(p, child)
				if err != nil {
					return nil, fail(g.Name(), "Mutate", err)
				}
			}
			c, err := evaluate(child)
			if err != nil {
				return nil, err
			}
			next = append(next, c)
		}
		population = next

		out.Iterations++
		best, _ := board.Best()
		out.History = append(out.History, best.Score)
	}
	return out.Finish(board), nil
}

// tournament samples k individuals uniformly with replacement and returns
// the fittest.
func tournament(population []algorithms.Candidate, k int, rng *rand.Rand) algorithms.Candidate {
	best := population[rng.IntN(len(population))]
	for range k - 1 {
		if c := population[rng.IntN(len(population))]; c.Better(best) {
			best = c
		}
	}
	return best
}

func mutatePermutation(p *algorithms.Problem, k keys.Permutation) (keys.Permutation, error) {
	m, err := p.Adapter.Mutate(k, p.RNG)
	if err != nil {
		return keys.Permutation{}, err
	}
	mp, ok := m.(keys.Permutation)
	if !ok {
		return keys.Permutation{}, fmt.Errorf("adapter %s mutated a permutation into %T", p.Adapter.Name(), m)
	}
	return mp, nil
}

// Crossover builds a child permutation from two parents.
//
// Description:
//
//	Walks the alphabet in order. For each cipher symbol it picks parent 1's
//	or parent 2's plain symbol with equal probability; a pick whose plain
//	symbol is already used leaves the cipher symbol unmapped. Unmapped
//	symbols are then filled, in alphabet order, with the unused plain
//	symbols in alphabet order. The child is always a bijection.
//
// Inputs:
//   - a, b: Parents over the same alphabet.
//   - rng: One draw per alphabet position.
//
// Outputs:
//   - keys.Permutation: The child.
//   - error: keys.ErrNotBijective if the parents' alphabets differ.
func Crossover(a, b keys.Permutation, rng *rand.Rand) (keys.Permutation, error) {
	alphabet := a.Alphabet()
	if b.Alphabet() != alphabet {
		return keys.Permutation{}, fmt.Errorf("%w: parents over %q and %q", keys.ErrNotBijective, alphabet, b.Alphabet())
	}

	n := a.Len()
	image := make([]rune, n)
	used := make(map[rune]bool, n)
	for i := range n {
		pick := a.At(i)
		if rng.IntN(2) == 1 {
			pick = b.At(i)
		}
		if used[pick] {
			continue
		}
		image[i] = pick
		used[pick] = true
	}

	var free []rune
	for _, r := range alphabet {
		if !used[r] {
			free = append(free, r)
		}
	}
	for i := range image {
		if image[i] == 0 {
			image[i], free = free[0], free[1:]
		}
	}
	return keys.FromImage(alphabet, image)
}

// Properties implements eval.Evaluable.
func (g *Genetic) Properties() []eval.Property {
	return append(algorithms.OutcomeProperties(), eval.Property{
		Name:        "elitism_non_decreasing",
		Description: "The best-ever score never decreases from one generation to the next.",
		Tags:        []string{eval.TagCritical},
		Check: func(input, output any) error {
			_, o, err := algorithms.CheckPair(input, output)
			if err != nil {
				return err
			}
			return nonDecreasing(o.History)
		},
	})
}

func nonDecreasing(history []float64) error {
	for i := 1; i < len(history); i++ {
		if history[i] < history[i-1] {
			return fmt.Errorf("generation %d best %.2f below generation %d best %.2f", i, history[i], i-1, history[i-1])
		}
	}
	return nil
}

// Metrics implements eval.Evaluable.
func (g *Genetic) Metrics() []eval.MetricDefinition { return algorithms.StandardMetrics() }

// HealthCheck implements eval.Evaluable.
func (g *Genetic) HealthCheck(ctx context.Context) error {
	if err := g.config.Validate(); err != nil {
		return fail(g.Name(), "HealthCheck", err)
	}
	return selfTest(ctx, g)
}
