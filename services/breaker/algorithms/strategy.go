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
	"context"
	"errors"
	"math/rand/v2"
	"strings"

	"github.com/AleutianAI/cipherbreak/services/breaker/adapter"
	"github.com/AleutianAI/cipherbreak/services/breaker/breakerr"
	"github.com/AleutianAI/cipherbreak/services/breaker/eval"
	"github.com/AleutianAI/cipherbreak/services/breaker/keys"
	"github.com/AleutianAI/cipherbreak/services/breaker/language"
	"github.com/AleutianAI/cipherbreak/services/breaker/seed"
)

// -----------------------------------------------------------------------------
// Errors
// -----------------------------------------------------------------------------

var (
	// ErrUnsupportedSpace is returned when a strategy cannot search the
	// adapter's kind of key space.
	ErrUnsupportedSpace = errors.New("strategy does not support this key space")

	// ErrInvalidConfig is returned when a strategy's configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrNoCandidates is returned when a run finished without evaluating a key.
	ErrNoCandidates = errors.New("no candidates produced")
)

// AlgorithmError wraps a failure with the strategy and operation it came from.
type AlgorithmError struct {
	Algorithm string
	Operation string
	Err       error
}

func (e *AlgorithmError) Error() string {
	return e.Algorithm + "." + e.Operation + ": " + e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *AlgorithmError) Unwrap() error { return e.Err }

// -----------------------------------------------------------------------------
// Contract
// -----------------------------------------------------------------------------

// Scorer rates the English-likeness of a candidate plaintext.
// *scoring.Scorer satisfies it.
type Scorer interface {
	Score(text string) float64
}

// Strategy searches an adapter's key space for the highest-scoring key.
//
// Thread Safety: Implementations hold only immutable configuration and are
// safe for concurrent use; all run state lives in Search's locals.
type Strategy interface {
	eval.Evaluable

	// Search runs one attack.
	//
	// Inputs:
	//   - ctx: Polled at every iteration boundary.
	//   - p: The problem. Read-only.
	//
	// Outputs:
	//   - *Outcome: Ranked candidates. Non-nil with ctx.Err() on cancellation.
	//   - error: *AlgorithmError, *breakerr.AdapterError,
	//     *breakerr.DomainSizeError, or ctx.Err().
	Search(ctx context.Context, p *Problem) (*Outcome, error)
}

// Problem is the input to one strategy run.
type Problem struct {
	// Ciphertext is the text under attack. Must contain a non-space rune.
	Ciphertext string

	// Adapter applies and mutates keys. Required.
	Adapter adapter.Adapter

	// Scorer rates plaintexts. Required.
	Scorer Scorer

	// RNG is the run's private randomness. Required; never shared between
	// concurrent runs.
	RNG *rand.Rand

	// Start is the initial key for local search. Optional.
	Start keys.Key

	// Model seeds Start by frequency analysis when Start is nil. Optional.
	Model *language.Model
}

// Validate checks that the problem can be searched.
func (p *Problem) Validate() error {
	switch {
	case p == nil:
		return breakerr.NewConfigurationError("problem", "is nil")
	case strings.TrimSpace(p.Ciphertext) == "":
		return breakerr.NewConfigurationError("ciphertext", "must not be empty")
	case p.Adapter == nil:
		return breakerr.NewConfigurationError("adapter", "is required")
	case p.Scorer == nil:
		return breakerr.NewConfigurationError("scorer", "is required")
	case p.RNG == nil:
		return breakerr.NewConfigurationError("rng", "is required")
	}
	return nil
}

// Evaluate decrypts ciphertext under key and scores the result.
func (p *Problem) Evaluate(key keys.Key) (Candidate, error) {
	plain, err := p.Adapter.Apply(key, p.Ciphertext)
	if err != nil {
		return Candidate{}, err
	}
	return Candidate{Key: key, Plaintext: plain, Score: p.Scorer.Score(plain)}, nil
}

// StartKey returns the key local search begins from: Start if set, else a
// frequency seed when the space is a permutation space and Model is set,
// else a random permutation.
func (p *Problem) StartKey(space adapter.KeySpace) (keys.Key, error) {
	if p.Start != nil {
		return p.Start, nil
	}
	if space.Kind != adapter.SpacePermutation {
		for k := range space.Keys {
			return k, nil
		}
		return nil, breakerr.NewConfigurationError("key_space", "enumerable space is empty")
	}
	if p.Model != nil && p.Model.Alphabet() == space.Alphabet {
		return seed.Frequency(p.Ciphertext, p.Model), nil
	}
	return seed.RandomPermutation(space.Alphabet, p.RNG), nil
}

// -----------------------------------------------------------------------------
// Outcome
// -----------------------------------------------------------------------------

// Outcome is the result of one strategy run.
type Outcome struct {
	// Strategy is the strategy name.
	Strategy string

	// Candidates are ranked best first with distinct plaintexts.
	Candidates []Candidate

	// Best is the highest-scoring candidate ever evaluated.
	Best Candidate

	// Iterations counts loop steps (proposals, keys or generations).
	Iterations int

	// Accepted counts accepted moves. Local search only.
	Accepted int

	// Evaluations counts Apply+Score calls.
	Evaluations int

	// History is the best-ever score after each generation. Population
	// search only.
	History []float64
}

// Finish ranks the board into the outcome. Best becomes the top candidate.
func (o *Outcome) Finish(board *Leaderboard) *Outcome {
	o.Candidates = board.Ranked()
	if len(o.Candidates) > 0 {
		o.Best = o.Candidates[0]
	}
	return o
}
