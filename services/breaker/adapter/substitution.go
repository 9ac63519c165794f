// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package adapter

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"unicode"

	"github.com/AleutianAI/cipherbreak/services/breaker/breakerr"
	"github.com/AleutianAI/cipherbreak/services/breaker/keys"
)

// LatinAlphabet is the alphabet every built-in adapter works over.
const LatinAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// Substitution is the monoalphabetic substitution cipher.
//
// Description:
//
//	Keys are keys.Permutation values over the adapter alphabet mapping each
//	cipher symbol to its plain symbol. Lower-case input maps through the
//	upper-case entry and stays lower-case. Runes outside the alphabet pass
//	through unchanged.
//
// Thread Safety: Immutable; safe for concurrent use.
type Substitution struct {
	alphabet string
}

// NewSubstitution creates a Substitution adapter over A-Z.
func NewSubstitution() *Substitution {
	return &Substitution{alphabet: LatinAlphabet}
}

// Name implements Adapter.
func (s *Substitution) Name() string { return "substitution" }

// Alphabet returns the cipher alphabet.
func (s *Substitution) Alphabet() string { return s.alphabet }

// Apply implements Adapter.
func (s *Substitution) Apply(key keys.Key, ciphertext string) (string, error) {
	p, err := s.permutation(key)
	if err != nil {
		return "", err
	}
	return substitute(p, ciphertext), nil
}

// Encrypt substitutes plaintext through key, where key maps plain symbols to
// cipher symbols. Its Inverse is the matching decryption key.
func (s *Substitution) Encrypt(key keys.Key, plaintext string) (string, error) {
	return s.Apply(key, plaintext)
}

// KeySpace implements Adapter.
func (s *Substitution) KeySpace(string) (KeySpace, error) {
	return KeySpace{
		Kind:     SpacePermutation,
		Size:     factorial(len([]rune(s.alphabet))),
		Alphabet: s.alphabet,
	}, nil
}

// Mutate implements Adapter by swapping two distinct positions.
func (s *Substitution) Mutate(key keys.Key, rng *rand.Rand) (keys.Key, error) {
	p, err := s.permutation(key)
	if err != nil {
		return nil, err
	}
	return SwapMutation(p, rng), nil
}

// ParseKey reads a key written either as the 26-letter image or as
// "ALPHABET->IMAGE".
func (s *Substitution) ParseKey(text string) (keys.Key, error) {
	image := strings.ToUpper(strings.TrimSpace(text))
	if i := strings.Index(image, "->"); i >= 0 {
		if image[:i] != s.alphabet {
			return nil, breakerr.NewConfigurationError("key", "alphabet must be "+s.alphabet)
		}
		image = image[i+2:]
	}
	p, err := keys.NewPermutation(s.alphabet, image)
	if err != nil {
		return nil, breakerr.NewConfigurationError("key", err.Error())
	}
	return p, nil
}

func (s *Substitution) permutation(key keys.Key) (keys.Permutation, error) {
	p, ok := key.(keys.Permutation)
	if !ok {
		return keys.Permutation{}, breakerr.NewAdapterError(s.Name(), keyString(key), fmt.Errorf("want keys.Permutation, got %T", key))
	}
	if p.Alphabet() != s.alphabet {
		return keys.Permutation{}, breakerr.NewAdapterError(s.Name(), p.String(),
			fmt.Errorf("%w: key alphabet %q, want %q", keys.ErrNotBijective, p.Alphabet(), s.alphabet))
	}
	return p, nil
}

// SwapMutation exchanges two distinct random positions of p.
func SwapMutation(p keys.Permutation, rng *rand.Rand) keys.Permutation {
	if p.Len() < 2 {
		return p
	}
	i, j := swapPositions(p.Len(), rng)
	q, _ := p.Swap(i, j) // indices are in range by construction
	return q
}

func substitute(p keys.Permutation, text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		upper := unicode.ToUpper(r)
		plain, ok := p.Map(upper)
		switch {
		case !ok:
			b.WriteRune(r)
		case upper != r:
			b.WriteRune(unicode.ToLower(plain))
		default:
			b.WriteRune(plain)
		}
	}
	return b.String()
}
