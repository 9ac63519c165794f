// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package seed builds starting keys for permutation searches.
//
// Every function here returns a total bijection over the model alphabet by
// construction; none of them can fail.
package seed

import (
	"cmp"
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"
	"unicode"

	"github.com/AleutianAI/cipherbreak/services/breaker/breakerr"
	"github.com/AleutianAI/cipherbreak/services/breaker/keys"
	"github.com/AleutianAI/cipherbreak/services/breaker/language"
)

// Kind names a seeding strategy.
type Kind int

const (
	// KindFrequency pairs cipher symbols with plain letters by frequency rank.
	KindFrequency Kind = iota
	// KindPattern anchors common short words, then falls back to frequency.
	KindPattern
	// KindRandom draws a uniform random permutation.
	KindRandom
)

// String returns the string representation of a Kind.
func (k Kind) String() string {
	switch k {
	case KindFrequency:
		return "frequency"
	case KindPattern:
		return "pattern"
	case KindRandom:
		return "random"
	default:
		return "unknown"
	}
}

// ParseKind maps a name back to a Kind.
func ParseKind(name string) (Kind, bool) {
	switch strings.ToLower(name) {
	case "frequency", "freq":
		return KindFrequency, true
	case "pattern":
		return KindPattern, true
	case "random":
		return KindRandom, true
	}
	return KindFrequency, false
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	v, ok := ParseKind(string(text))
	if !ok {
		return breakerr.NewConfigurationError("seeding", fmt.Sprintf("unknown seeding %q", text))
	}
	*k = v
	return nil
}

// Build dispatches on kind. rng is only consulted for KindRandom.
func Build(kind Kind, ciphertext string, model *language.Model, rng *rand.Rand) keys.Permutation {
	switch kind {
	case KindPattern:
		return Pattern(ciphertext, model)
	case KindRandom:
		return RandomPermutation(model.Alphabet(), rng)
	default:
		return Frequency(ciphertext, model)
	}
}

// -----------------------------------------------------------------------------
// Frequency
// -----------------------------------------------------------------------------

// Frequency pairs cipher symbols with plain letters rank for rank.
//
// Description:
//
//	Cipher symbols are ranked by how often they occur in ciphertext (ties
//	broken by alphabet order); plain letters are ranked by the model's
//	canonical frequency order. Symbols absent from the text take the unused
//	plain letters in frequency order.
//
// Inputs:
//   - ciphertext: Text to analyze. Case is ignored; non-alphabet runes are skipped.
//   - model: Supplies the alphabet and frequency order.
//
// Outputs:
//   - keys.Permutation: A total bijection over model.Alphabet().
func Frequency(ciphertext string, model *language.Model) keys.Permutation {
	return complete(ciphertext, model, map[rune]rune{})
}

// -----------------------------------------------------------------------------
// Pattern
// -----------------------------------------------------------------------------

// anchor maps a repeated short cipher word to a known plain word.
type anchor struct {
	length int
	plain  string
}

// anchors are tried in order; earlier anchors win conflicting symbols.
var anchors = []anchor{
	{length: 3, plain: "THE"},
	{length: 1, plain: "A"},
	{length: 2, plain: "OF"},
}

// Pattern anchors frequent short words, then completes by frequency.
//
// Description:
//
//	Tokenizes ciphertext into alphanumeric words. The most frequent
//	3-letter word with 3 distinct symbols is mapped to THE, the most frequent
//	1-letter word to A, and the most frequent 2-letter word with 2 distinct
//	symbols to OF. An anchor symbol already assigned, or a plain letter
//	already used, is skipped. The remaining symbols are paired by frequency
//	rank with the unused plain letters. With no word tokens this is exactly
//	Frequency.
//
// Inputs:
//   - ciphertext: Text to analyze.
//   - model: Supplies the alphabet and frequency order.
//
// Outputs:
//   - keys.Permutation: A total bijection over model.Alphabet().
func Pattern(ciphertext string, model *language.Model) keys.Permutation {
	alphabet := model.Alphabet()
	words := tokenize(ciphertext)
	fixed := make(map[rune]rune)
	used := make(map[rune]bool)

	for _, a := range anchors {
		word := mostFrequentWord(words, a.length, alphabet)
		if word == "" {
			continue
		}
		for i, c := range word {
			p := rune(a.plain[i])
			if _, taken := fixed[c]; taken || used[p] {
				continue
			}
			fixed[c] = p
			used[p] = true
		}
	}
	return complete(ciphertext, model, fixed)
}

// tokenize splits on anything that is not a letter or digit, upper-cased.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToUpper(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// mostFrequentWord returns the most frequent word of the given length whose
// symbols are distinct and all in alphabet. Ties go to the first occurrence.
func mostFrequentWord(words []string, length int, alphabet string) string {
	counts := make(map[string]int)
	var order []string
	for _, w := range words {
		r := []rune(w)
		if len(r) != length || !distinctIn(r, alphabet) {
			continue
		}
		if counts[w] == 0 {
			order = append(order, w)
		}
		counts[w]++
	}
	best := ""
	for _, w := range order {
		if counts[w] > counts[best] {
			best = w
		}
	}
	return best
}

func distinctIn(r []rune, alphabet string) bool {
	seen := make(map[rune]bool, len(r))
	for _, c := range r {
		if seen[c] || !strings.ContainsRune(alphabet, c) {
			return false
		}
		seen[c] = true
	}
	return true
}

// -----------------------------------------------------------------------------
// Random
// -----------------------------------------------------------------------------

// Random returns the permutation of alphabet determined by rngSeed.
func Random(alphabet string, rngSeed uint64) keys.Permutation {
	return RandomPermutation(alphabet, NewRand(rngSeed))
}

// RandomPermutation draws a uniform random permutation of alphabet from rng.
func RandomPermutation(alphabet string, rng *rand.Rand) keys.Permutation {
	return keys.Identity(alphabet).Shuffle(rng)
}

// NewRand returns the PCG generator used throughout the engine for seed.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// -----------------------------------------------------------------------------
// Completion
// -----------------------------------------------------------------------------

// complete extends the partial mapping fixed to a total bijection by
// frequency rank.
func complete(ciphertext string, model *language.Model, fixed map[rune]rune) keys.Permutation {
	alphabet := []rune(model.Alphabet())
	counts := make(map[rune]int, len(alphabet))
	for _, r := range strings.ToUpper(ciphertext) {
		counts[r]++
	}

	used := make(map[rune]bool, len(fixed))
	for _, p := range fixed {
		used[p] = true
	}

	// Unassigned symbols by descending count; absent symbols (count 0) sort last.
	rank := make([]int, 0, len(alphabet))
	for i, c := range alphabet {
		if _, ok := fixed[c]; !ok {
			rank = append(rank, i)
		}
	}
	slices.SortStableFunc(rank, func(a, b int) int {
		return cmp.Compare(counts[alphabet[b]], counts[alphabet[a]])
	})

	plain := make([]rune, 0, len(alphabet))
	for _, p := range model.FrequencyOrder() {
		if !used[p] {
			plain = append(plain, p)
		}
	}

	image := make([]rune, len(alphabet))
	for i, c := range alphabet {
		if p, ok := fixed[c]; ok {
			image[i] = p
		}
	}
	for n, i := range rank {
		image[i] = plain[n]
	}
	return keys.MustPermutation(string(alphabet), string(image))
}
