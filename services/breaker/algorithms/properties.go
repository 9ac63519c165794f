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
	"fmt"

	"github.com/AleutianAI/cipherbreak/services/breaker/eval"
	"github.com/AleutianAI/cipherbreak/services/breaker/keys"
)

// CheckPair asserts the (input, output) types every strategy property uses.
func CheckPair(input, output any) (*Problem, *Outcome, error) {
	p, ok := input.(*Problem)
	if !ok || p == nil {
		return nil, nil, fmt.Errorf("input is %T, want *Problem", input)
	}
	o, ok := output.(*Outcome)
	if !ok || o == nil {
		return nil, nil, fmt.Errorf("output is %T, want *Outcome", output)
	}
	return p, o, nil
}

// OutcomeProperties are the invariants every strategy guarantees.
func OutcomeProperties() []eval.Property {
	return []eval.Property{
		{
			Name:        "candidates_ranked",
			Description: "Candidates are sorted by descending score with distinct plaintexts and Best first.",
			Tags:        []string{eval.TagCritical},
			Check: func(input, output any) error {
				_, o, err := CheckPair(input, output)
				if err != nil {
					return err
				}
				seen := make(map[string]bool, len(o.Candidates))
				for i, c := range o.Candidates {
					if seen[c.Plaintext] {
						return fmt.Errorf("plaintext %q appears twice", c.Plaintext)
					}
					seen[c.Plaintext] = true
					if i > 0 && c.Better(o.Candidates[i-1]) {
						return fmt.Errorf("candidate %d outranks candidate %d", i, i-1)
					}
				}
				if len(o.Candidates) > 0 && o.Best.Plaintext != o.Candidates[0].Plaintext {
					return fmt.Errorf("best %q is not the top candidate", o.Best.Plaintext)
				}
				return nil
			},
		},
		{
			Name:        "candidates_reproducible",
			Description: "Every candidate's plaintext and score are reproduced by applying its key.",
			Tags:        []string{eval.TagCritical},
			Check: func(input, output any) error {
				p, o, err := CheckPair(input, output)
				if err != nil {
					return err
				}
				for _, c := range o.Candidates {
					again, err := p.Evaluate(c.Key)
					if err != nil {
						return fmt.Errorf("key %s: %w", keyText(c.Key), err)
					}
					if again.Plaintext != c.Plaintext || again.Score != c.Score {
						return fmt.Errorf("key %s does not reproduce its candidate", keyText(c.Key))
					}
				}
				return nil
			},
		},
		{
			Name:        "permutation_keys_bijective",
			Description: "Every permutation key in the outcome is a bijection over its alphabet.",
			Check: func(input, output any) error {
				_, o, err := CheckPair(input, output)
				if err != nil {
					return err
				}
				for _, c := range o.Candidates {
					if p, ok := c.Key.(keys.Permutation); ok && !p.Bijective() {
						return fmt.Errorf("key %s is not bijective", p)
					}
				}
				return nil
			},
		},
	}
}
