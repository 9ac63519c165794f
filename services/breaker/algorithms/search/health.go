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
	"strings"

	"github.com/AleutianAI/cipherbreak/services/breaker/adapter"
	"github.com/AleutianAI/cipherbreak/services/breaker/algorithms"
	"github.com/AleutianAI/cipherbreak/services/breaker/eval"
	"github.com/AleutianAI/cipherbreak/services/breaker/language"
	"github.com/AleutianAI/cipherbreak/services/breaker/scoring"
	"github.com/AleutianAI/cipherbreak/services/breaker/seed"
)

const (
	healthSeed       = 7
	healthCaesar     = "KHOOR ZRUOG"
	healthCaesarWant = "HELLO WORLD"
	healthPlaintext  = "THE QUICK BROWN FOX JUMPS OVER THE LAZY DOG"
)

// selfTest runs s on a fixed problem and checks its properties.
//
// Exhaustive search must recover a Caesar shift outright. The permutation
// strategies run on a short substitution ciphertext and only need to
// produce a verified outcome.
func selfTest(ctx context.Context, s algorithms.Strategy) error {
	model := language.MustEnglish()
	scorer, err := scoring.New(model, scoring.DefaultWeights())
	if err != nil {
		return fail(s.Name(), "HealthCheck", err)
	}

	p := &algorithms.Problem{
		Scorer: scorer,
		RNG:    seed.NewRand(healthSeed),
		Model:  model,
	}
	if _, ok := s.(*Exhaustive); ok {
		p.Adapter, p.Ciphertext = adapter.NewCaesar(), healthCaesar
	} else {
		sub := adapter.NewSubstitution()
		ct, err := sub.Encrypt(seed.Random(sub.Alphabet(), healthSeed), healthPlaintext)
		if err != nil {
			return fail(s.Name(), "HealthCheck", err)
		}
		p.Adapter, p.Ciphertext = sub, ct
	}

	out, err := s.Search(ctx, p)
	if err != nil {
		return fail(s.Name(), "HealthCheck", err)
	}
	if len(out.Candidates) == 0 {
		return fail(s.Name(), "HealthCheck", algorithms.ErrNoCandidates)
	}
	if res := eval.VerifyOutcome(s, p, out); !res.Passed {
		return fail(s.Name(), "HealthCheck", res.Err())
	}
	if _, ok := s.(*Exhaustive); ok && !strings.EqualFold(out.Best.Plaintext, healthCaesarWant) {
		return fail(s.Name(), "HealthCheck", fmt.Errorf("recovered %q, want %q", out.Best.Plaintext, healthCaesarWant))
	}
	return nil
}
