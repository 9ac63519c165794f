// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package scoring estimates how much a candidate plaintext looks like
// natural language.
//
// The score is a sum of independent terms computed over the letters of the
// text (everything else is stripped):
//
//   - Unigram: -(observed% - expected%)^2 per distinct letter. Dominant.
//   - Words: bonus per model word found as a substring, scaled by length.
//     There is no word-boundary check; ciphertexts often drop spaces.
//   - N-grams: fixed bonus per bigram and trigram occurrence.
//   - Doubles: small reward or penalty per doubled letter by class.
//   - Vowels: reward for a plausible vowel ratio.
//   - Consonants: penalty for consonant runs longer than three.
//
// Score never fails. Text with no letters scores Sentinel.
package scoring

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"unicode"

	"github.com/AleutianAI/cipherbreak/services/breaker/breakerr"
	"github.com/AleutianAI/cipherbreak/services/breaker/language"
)

// Sentinel is the score of degenerate input (no letters at all).
const Sentinel = -1000.0

// -----------------------------------------------------------------------------
// Weights
// -----------------------------------------------------------------------------

// Weights are the per-term coefficients of the score.
type Weights struct {
	WordPerLetter      float64 `json:"word_per_letter" yaml:"word_per_letter" validate:"gte=0"`
	Bigram             float64 `json:"bigram" yaml:"bigram" validate:"gte=0"`
	Trigram            float64 `json:"trigram" yaml:"trigram" validate:"gte=0"`
	CommonDouble       float64 `json:"common_double" yaml:"common_double"`
	NeutralDouble      float64 `json:"neutral_double" yaml:"neutral_double"`
	RareDouble         float64 `json:"rare_double" yaml:"rare_double"`
	VowelIdeal         float64 `json:"vowel_ideal" yaml:"vowel_ideal"`
	VowelPartial       float64 `json:"vowel_partial" yaml:"vowel_partial"`
	VowelOff           float64 `json:"vowel_off" yaml:"vowel_off"`
	ConsonantRunLetter float64 `json:"consonant_run_letter" yaml:"consonant_run_letter" validate:"gte=0"`
}

// DefaultWeights returns the standard English weights.
func DefaultWeights() Weights {
	return Weights{
		WordPerLetter:      15,
		Bigram:             8,
		Trigram:            12,
		CommonDouble:       3,
		NeutralDouble:      1,
		RareDouble:         -2,
		VowelIdeal:         15,
		VowelPartial:       8,
		VowelOff:           -10,
		ConsonantRunLetter: 5,
	}
}

// Validate checks that bonuses are bonuses and penalties are penalties.
func (w Weights) Validate() error {
	switch {
	case w.WordPerLetter < 0:
		return breakerr.NewConfigurationError("word_per_letter", "must be >= 0")
	case w.Trigram < w.Bigram:
		return breakerr.NewConfigurationError("trigram", "must be >= bigram")
	case w.Bigram < 0:
		return breakerr.NewConfigurationError("bigram", "must be >= 0")
	case w.VowelIdeal < w.VowelPartial:
		return breakerr.NewConfigurationError("vowel_ideal", "must be >= vowel_partial")
	case w.ConsonantRunLetter < 0:
		return breakerr.NewConfigurationError("consonant_run_letter", "must be >= 0")
	}
	return nil
}

// -----------------------------------------------------------------------------
// Scorer
// -----------------------------------------------------------------------------

// Vowel ratio bands.
const (
	idealVowelLow    = 0.30
	idealVowelHigh   = 0.50
	partialVowelLow  = 0.25
	partialVowelHigh = 0.55

	// maxConsonantRun is the longest consonant run with no penalty.
	maxConsonantRun = 3
)

// Scorer scores candidate plaintexts against one language model.
//
// Thread Safety: Immutable; safe for concurrent use.
type Scorer struct {
	model   *language.Model
	weights Weights
}

// New creates a Scorer.
//
// Inputs:
//   - model: The language model. Must not be nil.
//   - weights: Term weights. Use DefaultWeights() for English.
//
// Outputs:
//   - *Scorer: The scorer.
//   - error: *breakerr.ConfigurationError if model is nil or weights are invalid.
func New(model *language.Model, weights Weights) (*Scorer, error) {
	if model == nil {
		return nil, breakerr.NewConfigurationError("model", "language model is required")
	}
	if err := weights.Validate(); err != nil {
		return nil, err
	}
	return &Scorer{model: model, weights: weights}, nil
}

// Model returns the scorer's language model.
func (s *Scorer) Model() *language.Model { return s.model }

// Weights returns the scorer's weights.
func (s *Scorer) Weights() Weights { return s.weights }

// Fingerprint identifies everything that affects Score: the weights and the
// model contents. Result caches key on it.
func (s *Scorer) Fingerprint() string {
	w := s.weights
	return fmt.Sprintf("%s|%g,%g,%g,%g,%g,%g,%g,%g,%g,%g", s.model.Fingerprint(),
		w.WordPerLetter, w.Bigram, w.Trigram,
		w.CommonDouble, w.NeutralDouble, w.RareDouble,
		w.VowelIdeal, w.VowelPartial, w.VowelOff,
		w.ConsonantRunLetter)
}

// Score returns the English-likeness of text. Higher is better.
func (s *Scorer) Score(text string) float64 {
	return s.Breakdown(text).Total
}

// Breakdown is the per-term decomposition of a score.
type Breakdown struct {
	Letters    int     `json:"letters"`
	Degenerate bool    `json:"degenerate"`
	Unigram    float64 `json:"unigram"`
	Words      float64 `json:"words"`
	Ngrams     float64 `json:"ngrams"`
	Doubles    float64 `json:"doubles"`
	Vowels     float64 `json:"vowels"`
	Consonants float64 `json:"consonants"`
	Total      float64 `json:"total"`

	// Matched lists the model words found in the text, longest first.
	Matched []string `json:"matched,omitempty"`
}

// String renders the breakdown on one line.
func (b Breakdown) String() string {
	if b.Degenerate {
		return fmt.Sprintf("total=%.2f (no letters)", b.Total)
	}
	return fmt.Sprintf("total=%.2f unigram=%.2f words=%.2f ngrams=%.2f doubles=%.2f vowels=%.2f consonants=%.2f letters=%d",
		b.Total, b.Unigram, b.Words, b.Ngrams, b.Doubles, b.Vowels, b.Consonants, b.Letters)
}

// Breakdown scores text and reports every term.
func (s *Scorer) Breakdown(text string) Breakdown {
	letters := normalize(text)
	n := len(letters)
	if n == 0 {
		return Breakdown{Degenerate: true, Total: Sentinel}
	}

	b := Breakdown{Letters: n}
	b.Unigram = s.unigram(letters)
	b.Words, b.Matched = s.words(string(letters))
	b.Ngrams = s.ngrams(letters)
	b.Doubles = s.doubles(letters)
	b.Vowels, b.Consonants = s.structure(letters)
	b.Total = b.Unigram + b.Words + b.Ngrams + b.Doubles + b.Vowels + b.Consonants
	return b
}

// normalize keeps letters only, upper-cased.
func normalize(text string) []rune {
	out := make([]rune, 0, len(text))
	for _, r := range text {
		if unicode.IsLetter(r) {
			out = append(out, unicode.ToUpper(r))
		}
	}
	return out
}

func (s *Scorer) unigram(letters []rune) float64 {
	var (
		counts [26]int
		other  map[rune]int
	)
	for _, r := range letters {
		if r >= 'A' && r <= 'Z' {
			counts[r-'A']++
			continue
		}
		if other == nil {
			other = make(map[rune]int)
		}
		other[r]++
	}

	// Fixed summation order keeps Score bit-for-bit deterministic.
	n := float64(len(letters))
	var total float64
	for i, c := range counts {
		if c == 0 {
			continue
		}
		d := float64(c)/n*100 - s.model.Expected(rune('A'+i))
		total -= d * d
	}
	for _, r := range slices.Sorted(maps.Keys(other)) {
		d := float64(other[r])/n*100 - s.model.Expected(r)
		total -= d * d
	}
	return total
}

// words rewards every model word found anywhere in the letter stream. There
// is no boundary check, so THE inside FATHER counts.
func (s *Scorer) words(text string) (float64, []string) {
	var (
		total   float64
		matched []string
	)
	s.model.EachWord(func(w string) {
		if strings.Contains(text, w) {
			total += float64(len(w)) * s.weights.WordPerLetter
			matched = append(matched, w)
		}
	})
	return total, matched
}

func (s *Scorer) ngrams(letters []rune) float64 {
	var total float64
	for i := 0; i+1 < len(letters); i++ {
		if s.model.IsBigram(letters[i], letters[i+1]) {
			total += s.weights.Bigram
		}
		if i+2 < len(letters) && s.model.IsTrigram(letters[i], letters[i+1], letters[i+2]) {
			total += s.weights.Trigram
		}
	}
	return total
}

func (s *Scorer) doubles(letters []rune) float64 {
	var total float64
	for i := 0; i+1 < len(letters); i++ {
		if letters[i] != letters[i+1] {
			continue
		}
		switch s.model.DoubleClass(letters[i]) {
		case language.DoubleCommon:
			total += s.weights.CommonDouble
		case language.DoubleNeutral:
			total += s.weights.NeutralDouble
		default:
			total += s.weights.RareDouble
		}
	}
	return total
}

// structure returns the vowel-ratio term and the consonant-run term.
func (s *Scorer) structure(letters []rune) (float64, float64) {
	vowels, run := 0, 0
	var runs float64
	for _, r := range letters {
		if s.model.IsVowel(r) {
			vowels++
			if run > maxConsonantRun {
				runs -= float64(run-maxConsonantRun) * s.weights.ConsonantRunLetter
			}
			run = 0
			continue
		}
		run++
	}
	if run > maxConsonantRun {
		runs -= float64(run-maxConsonantRun) * s.weights.ConsonantRunLetter
	}

	ratio := float64(vowels) / float64(len(letters))
	var vowelTerm float64
	switch {
	case ratio >= idealVowelLow && ratio <= idealVowelHigh:
		vowelTerm = s.weights.VowelIdeal
	case ratio >= partialVowelLow && ratio <= partialVowelHigh:
		vowelTerm = s.weights.VowelPartial
	default:
		vowelTerm = s.weights.VowelOff
	}
	return vowelTerm, runs
}
