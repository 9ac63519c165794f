// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package language

import (
	"testing"

	"github.com/AleutianAI/cipherbreak/services/breaker/breakerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_English(t *testing.T) {
	m, err := New(DefaultConfig())
	require.NoError(t, err)

	assert.Equal(t, "EN", m.Tag())
	assert.Equal(t, "ABCDEFGHIJKLMNOPQRSTUVWXYZ", m.Alphabet())
	assert.Equal(t, "ETAOINSHRDLUCMWFGYPBVKJXQZ", m.FrequencyOrder())
	assert.InDelta(t, 12.7, m.Expected('E'), 1e-9)
	assert.InDelta(t, 0.07, m.Expected('Z'), 1e-9)
	assert.Zero(t, m.Expected('É'))
	assert.Zero(t, m.Expected('e'), "lookups are upper-case only")

	assert.True(t, m.IsBigram('T', 'H'))
	assert.False(t, m.IsBigram('Q', 'X'))
	assert.True(t, m.IsTrigram('T', 'H', 'E'))
	assert.False(t, m.IsTrigram('Z', 'Z', 'Z'))

	assert.True(t, m.IsVowel('A'))
	assert.False(t, m.IsVowel('Y'))

	assert.Equal(t, DoubleCommon, m.DoubleClass('L'))
	assert.Equal(t, DoubleNeutral, m.DoubleClass('T'))
	assert.Equal(t, DoubleRare, m.DoubleClass('Q'))

	words := m.Words()
	assert.Contains(t, words, "HELLO")
	assert.Contains(t, words, "THE")
	for i := 1; i < len(words); i++ {
		assert.GreaterOrEqual(t, len(words[i-1]), len(words[i]), "words sorted longest first")
	}
}

func TestNew_FrequenciesSumToRoughlyHundred(t *testing.T) {
	m := MustEnglish()
	var sum float64
	for _, r := range m.Alphabet() {
		sum += m.Expected(r)
	}
	assert.InDelta(t, 100, sum, 1.5)
}

func TestNew_CustomWords(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CustomWords = []string{"zephyr", "Quasar", "the"}

	m, err := New(cfg)
	require.NoError(t, err)

	words := m.Words()
	assert.Contains(t, words, "ZEPHYR")
	assert.Contains(t, words, "QUASAR")

	count := 0
	for _, w := range words {
		if w == "THE" {
			count++
		}
	}
	assert.Equal(t, 1, count, "custom words are deduplicated against the built-in list")
}

func TestNew_InvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"missing tag", Config{}},
		{"unsupported tag", Config{LanguageTag: "FR"}},
		{"non-letter word", Config{LanguageTag: "EN", CustomWords: []string{"r2d2"}}},
		{"empty word", Config{LanguageTag: "EN", CustomWords: []string{""}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := New(tt.cfg)
			assert.Nil(t, m)
			assert.ErrorIs(t, err, breakerr.ErrConfiguration)
		})
	}
}

func TestWords_ReturnsCopy(t *testing.T) {
	m := MustEnglish()
	words := m.Words()
	words[0] = "MUTATED"
	assert.NotEqual(t, "MUTATED", m.Words()[0])
}

func TestFingerprint(t *testing.T) {
	en := MustEnglish()
	assert.Equal(t, en.Fingerprint(), MustEnglish().Fingerprint())

	again, err := New(Config{LanguageTag: "EN", CustomWords: []string{"the"}})
	require.NoError(t, err)
	assert.Equal(t, en.Fingerprint(), again.Fingerprint(), "duplicate words do not change the model")

	primed, err := New(Config{LanguageTag: "EN", CustomWords: []string{"qwxz"}})
	require.NoError(t, err)
	assert.NotEqual(t, en.Fingerprint(), primed.Fingerprint())
}

func TestParseWordList(t *testing.T) {
	got := parseWordList("# header\nhello\n\n  World \n#skip\n")
	assert.Equal(t, []string{"HELLO", "WORLD"}, got)
}
