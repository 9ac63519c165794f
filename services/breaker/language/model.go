// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package language provides the immutable language model used for scoring
// candidate plaintexts.
//
// A Model is built once from a Config and shared by reference. Nothing in
// the model is mutable after New returns, so a single Model can back any
// number of concurrent scorers.
package language

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/AleutianAI/cipherbreak/services/breaker/breakerr"
	"github.com/go-playground/validator/v10"
)

// DoubleClass classifies a doubled letter for the structural bonus.
type DoubleClass int

const (
	// DoubleRare is any doubled letter not listed below.
	DoubleRare DoubleClass = iota
	// DoubleCommon is a doubled letter frequent in the language (LL, EE, SS).
	DoubleCommon
	// DoubleNeutral is a doubled letter that occurs but is not characteristic.
	DoubleNeutral
)

// String returns the string representation of a DoubleClass.
func (d DoubleClass) String() string {
	switch d {
	case DoubleCommon:
		return "common"
	case DoubleNeutral:
		return "neutral"
	default:
		return "rare"
	}
}

// -----------------------------------------------------------------------------
// Configuration
// -----------------------------------------------------------------------------

// Config selects the constant tables and optional priming words.
type Config struct {
	// LanguageTag selects the built-in tables. Only "EN" is built in.
	LanguageTag string `json:"language_tag" yaml:"language_tag" validate:"required,oneof=EN"`

	// CustomWords are added to the built-in word list. Letters only; case is ignored.
	CustomWords []string `json:"custom_words" yaml:"custom_words" validate:"dive,required,alpha"`
}

// DefaultConfig returns the English configuration with no custom words.
func DefaultConfig() Config {
	return Config{LanguageTag: "EN"}
}

var configValidate = validator.New()

// Validate checks the configuration.
//
// Outputs:
//   - error: *breakerr.ConfigurationError naming the first invalid field, or nil.
func (c Config) Validate() error {
	err := configValidate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return breakerr.NewConfigurationError(fe.Namespace(),
			fmt.Sprintf("failed %q validation (value %v)", fe.Tag(), fe.Value()))
	}
	return breakerr.NewConfigurationError("language", err.Error())
}

// -----------------------------------------------------------------------------
// Model
// -----------------------------------------------------------------------------

// Model holds the constant tables for one language.
//
// Thread Safety: Immutable after New returns; safe for concurrent use.
type Model struct {
	tag            string
	alphabet       string
	frequencies    [26]float64
	frequencyOrder string
	bigrams        [26 * 26]bool
	trigrams       [26 * 26 * 26]bool
	words          []string
	vowels         [26]bool
	doubles        [26]DoubleClass
}

// New builds a Model from cfg.
//
// Description:
//
//	Looks up the built-in tables for cfg.LanguageTag, validates them, and
//	merges cfg.CustomWords (upper-cased, deduplicated) into the word list.
//
// Inputs:
//   - cfg: Model configuration. Use DefaultConfig() for English.
//
// Outputs:
//   - *Model: The immutable model.
//   - error: *breakerr.ConfigurationError for an unknown tag, a bad custom
//     word, or a malformed table.
func New(cfg Config) (*Model, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	load, ok := builtin[cfg.LanguageTag]
	if !ok {
		return nil, breakerr.NewConfigurationError("language_tag", "no tables for "+cfg.LanguageTag)
	}
	t := load()
	t.words = append(t.words, cfg.CustomWords...)
	return build(cfg.LanguageTag, t)
}

// MustEnglish returns the built-in English model and panics on failure.
// Intended for tests and static initialization only.
func MustEnglish() *Model {
	m, err := New(DefaultConfig())
	if err != nil {
		panic(fmt.Sprintf("language: build EN model: %v", err))
	}
	return m
}

func build(tag string, t tables) (*Model, error) {
	if len(t.alphabet) != 26 || t.alphabet != "ABCDEFGHIJKLMNOPQRSTUVWXYZ" {
		return nil, breakerr.NewConfigurationError("alphabet", "tables must use the A-Z alphabet")
	}
	if len(t.frequencies) == 0 {
		return nil, breakerr.NewConfigurationError("frequencies", "unigram table missing")
	}
	if !isPermutationOf(t.frequencyOrder, t.alphabet) {
		return nil, breakerr.NewConfigurationError("frequency_order", "must list every alphabet letter exactly once")
	}

	m := &Model{tag: tag, alphabet: t.alphabet, frequencyOrder: t.frequencyOrder}
	for r, f := range t.frequencies {
		i, ok := index(r)
		if !ok || f < 0 {
			return nil, breakerr.NewConfigurationError("frequencies", fmt.Sprintf("invalid entry %q=%v", r, f))
		}
		m.frequencies[i] = f
	}
	for _, bg := range t.bigrams {
		if len(bg) != 2 {
			return nil, breakerr.NewConfigurationError("bigrams", "invalid bigram "+bg)
		}
		a, okA := index(rune(bg[0]))
		b, okB := index(rune(bg[1]))
		if !okA || !okB {
			return nil, breakerr.NewConfigurationError("bigrams", "invalid bigram "+bg)
		}
		m.bigrams[a*26+b] = true
	}
	for _, tg := range t.trigrams {
		if len(tg) != 3 {
			return nil, breakerr.NewConfigurationError("trigrams", "invalid trigram "+tg)
		}
		a, okA := index(rune(tg[0]))
		b, okB := index(rune(tg[1]))
		c, okC := index(rune(tg[2]))
		if !okA || !okB || !okC {
			return nil, breakerr.NewConfigurationError("trigrams", "invalid trigram "+tg)
		}
		m.trigrams[(a*26+b)*26+c] = true
	}
	for _, v := range t.vowels {
		i, ok := index(v)
		if !ok {
			return nil, breakerr.NewConfigurationError("vowels", "invalid vowel "+string(v))
		}
		m.vowels[i] = true
	}
	for _, d := range t.commonDoubles {
		if i, ok := index(d); ok {
			m.doubles[i] = DoubleCommon
		}
	}
	for _, d := range t.neutralDoubles {
		if i, ok := index(d); ok {
			m.doubles[i] = DoubleNeutral
		}
	}

	seen := make(map[string]bool, len(t.words))
	for _, w := range t.words {
		w = strings.ToUpper(strings.TrimSpace(w))
		if w == "" || seen[w] {
			continue
		}
		seen[w] = true
		m.words = append(m.words, w)
	}
	if len(m.words) == 0 {
		return nil, breakerr.NewConfigurationError("words", "word list missing")
	}
	// Longest first keeps the scan order stable and readable in breakdowns.
	slices.SortFunc(m.words, func(a, b string) int {
		if len(a) != len(b) {
			return len(b) - len(a)
		}
		return strings.Compare(a, b)
	})
	return m, nil
}

// Tag returns the language tag, e.g. "EN".
func (m *Model) Tag() string { return m.tag }

// Alphabet returns the plain alphabet in canonical order.
func (m *Model) Alphabet() string { return m.alphabet }

// FrequencyOrder returns the plain letters from most to least frequent.
func (m *Model) FrequencyOrder() string { return m.frequencyOrder }

// Expected returns the expected percentage of r in running text.
// Letters outside the alphabet have expected percentage 0.
func (m *Model) Expected(r rune) float64 {
	if i, ok := index(r); ok {
		return m.frequencies[i]
	}
	return 0
}

// IsBigram reports whether ab is in the bigram set.
func (m *Model) IsBigram(a, b rune) bool {
	i, okA := index(a)
	j, okB := index(b)
	return okA && okB && m.bigrams[i*26+j]
}

// IsTrigram reports whether abc is in the trigram set.
func (m *Model) IsTrigram(a, b, c rune) bool {
	i, okA := index(a)
	j, okB := index(b)
	k, okC := index(c)
	return okA && okB && okC && m.trigrams[(i*26+j)*26+k]
}

// IsVowel reports whether r is a vowel.
func (m *Model) IsVowel(r rune) bool {
	i, ok := index(r)
	return ok && m.vowels[i]
}

// DoubleClass classifies the doubled letter rr.
func (m *Model) DoubleClass(r rune) DoubleClass {
	if i, ok := index(r); ok {
		return m.doubles[i]
	}
	return DoubleRare
}

// Words returns a copy of the word list, longest first.
func (m *Model) Words() []string {
	return slices.Clone(m.words)
}

// Fingerprint identifies the model contents: the tag and the full word list.
// Models built from equal configurations share a fingerprint.
func (m *Model) Fingerprint() string {
	h := sha256.New()
	h.Write([]byte(m.tag))
	for _, w := range m.words {
		h.Write([]byte{0})
		h.Write([]byte(w))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// EachWord calls fn for every word without copying the list.
func (m *Model) EachWord(fn func(word string)) {
	for _, w := range m.words {
		fn(w)
	}
}

// index maps an upper-case ASCII letter to 0..25.
func index(r rune) (int, bool) {
	if r < 'A' || r > 'Z' {
		return 0, false
	}
	return int(r - 'A'), true
}

func isPermutationOf(s, alphabet string) bool {
	if len(s) != len(alphabet) {
		return false
	}
	seen := make(map[rune]bool, len(s))
	for _, r := range s {
		if seen[r] || !strings.ContainsRune(alphabet, r) {
			return false
		}
		seen[r] = true
	}
	return true
}
