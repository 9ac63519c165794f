// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package search implements the key-search strategies: exhaustive
// enumeration, hill climbing, simulated annealing, a genetic algorithm and
// a genetic-then-annealing hybrid.
package search

import (
	"context"

	"github.com/AleutianAI/cipherbreak/services/breaker/adapter"
	"github.com/AleutianAI/cipherbreak/services/breaker/algorithms"
)

// fail wraps err as an AlgorithmError.
func fail(name, op string, err error) error {
	return &algorithms.AlgorithmError{Algorithm: name, Operation: op, Err: err}
}

// prepare validates the problem and returns its validated key space.
func prepare(name string, p *algorithms.Problem) (adapter.KeySpace, error) {
	if err := p.Validate(); err != nil {
		return adapter.KeySpace{}, err
	}
	space, err := p.Adapter.KeySpace(p.Ciphertext)
	if err != nil {
		return adapter.KeySpace{}, err
	}
	if err := space.Validate(); err != nil {
		return adapter.KeySpace{}, fail(name, "KeySpace", err)
	}
	return space, nil
}

// acceptFunc decides whether to move from the current state to a proposal
// whose score differs by delta at 1-based step t.
type acceptFunc func(t int, delta float64) bool

// walkConfig parameterizes the shared local-search loop.
type walkConfig struct {
	name       string
	steps      int
	stagnation int // consecutive rejections before stopping; 0 disables
	keep       int
	accept     acceptFunc
}

// walk is the propose/accept loop shared by hill climbing and annealing.
//
// Description:
//
//	Starting from p.StartKey, each step proposes Adapter.Mutate(current)
//	and moves to it when accept says so. Proposals are always drawn before
//	acceptance randomness, so two walks with the same RNG state and an
//	accept func that never draws see the same proposal sequence.
//	Accepted states go on the leaderboard, so Best is the best state the
//	walk ever occupied.
func walk(ctx context.Context, p *algorithms.Problem, cfg walkConfig) (*algorithms.Outcome, error) {
	space, err := prepare(cfg.name, p)
	if err != nil {
		return nil, err
	}
	start, err := p.StartKey(space)
	if err != nil {
		return nil, fail(cfg.name, "StartKey", err)
	}

	out := &algorithms.Outcome{Strategy: cfg.name}
	board := algorithms.NewLeaderboard(cfg.keep)

	current, err := p.Evaluate(start)
	if err != nil {
		return nil, fail(cfg.name, "Evaluate", err)
	}
	out.Evaluations++
	board.Offer(current)

	rejected := 0
	for t := 1; t <= cfg.steps; t++ {
		if err := ctx.Err(); err != nil {
			return out.Finish(board), err
		}

		next, err := p.Adapter.Mutate(current.Key, p.RNG)
		if err != nil {
			return nil, fail(cfg.name, "Mutate", err)
		}
		proposal, err := p.Evaluate(next)
		if err != nil {
			return nil, fail(cfg.name, "Evaluate", err)
		}
		out.Evaluations++
		out.Iterations++

		if cfg.accept(t, proposal.Score-current.Score) {
			current = proposal
			out.Accepted++
			rejected = 0
			board.Offer(current)
			continue
		}
		rejected++
		if cfg.stagnation > 0 && rejected >= cfg.stagnation {
			break
		}
	}
	return out.Finish(board), nil
}
