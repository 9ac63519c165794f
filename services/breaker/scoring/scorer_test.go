// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package scoring

import (
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/AleutianAI/cipherbreak/services/breaker/breakerr"
	"github.com/AleutianAI/cipherbreak/services/breaker/language"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var englishSentences = []string{
	"THE QUICK BROWN FOX JUMPS OVER THE LAZY DOG NEAR THE RIVER",
	"IT WAS THE BEST OF TIMES AND IT WAS THE WORST OF TIMES",
	"ALL THAT GLITTERS IS NOT GOLD AND NOT ALL WHO WANDER ARE LOST",
	"TO BE OR NOT TO BE THAT IS THE QUESTION HE ASKED HIMSELF",
	"THE ENEMY KNOWS THE SYSTEM AND WILL READ EVERY MESSAGE WE SEND",
	"ATTACK THE NORTH GATE AT DAWN WHEN THE GUARDS ARE CHANGING",
	"MEET ME NEAR THE OLD CHURCH AFTER MIDNIGHT AND COME ALONE",
	"THE RAIN IN SPAIN STAYS MAINLY IN THE PLAIN DURING THE SPRING",
	"KNOWLEDGE IS POWER BUT ONLY WHEN IT IS SHARED WITH OTHERS",
	"WE SHALL FIGHT ON THE BEACHES AND WE SHALL NEVER SURRENDER",
	"THE TREASURE IS BURIED UNDER THE BIG OAK TREE BY THE HOUSE",
	"NEVER TRUST A MAN WHO HAS NOTHING TO LOSE AND EVERYTHING TO GAIN",
	"THE ONLY THING WE HAVE TO FEAR IS FEAR ITSELF SAID THE PRESIDENT",
	"ONE SMALL STEP FOR MAN ONE GIANT LEAP FOR MANKIND",
	"A JOURNEY OF A THOUSAND MILES BEGINS WITH A SINGLE STEP",
	"THE SECRET MESSAGE WILL ARRIVE ON MONDAY MORNING BY TRAIN",
	"SEND MORE TROOPS TO THE EASTERN FRONT BEFORE THE WINTER COMES",
	"HISTORY IS WRITTEN BY THE VICTORS AND READ BY THEIR CHILDREN",
	"THE PEN IS MIGHTIER THAN THE SWORD IN THE HANDS OF A WRITER",
	"WHERE THERE IS A WILL THERE IS A WAY TO FINISH THE WORK",
	"LIFE IS WHAT HAPPENS WHEN YOU ARE BUSY MAKING OTHER PLANS",
	"THE EARLY BIRD CATCHES THE WORM BUT THE SECOND MOUSE GETS THE CHEESE",
}

func newTestScorer(t *testing.T) *Scorer {
	t.Helper()
	s, err := New(language.MustEnglish(), DefaultWeights())
	require.NoError(t, err)
	return s
}

func lettersOf(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= 'A' && r <= 'Z' {
			return r
		}
		return -1
	}, strings.ToUpper(s))
}

func TestScore_EnglishBeatsShuffledLetters(t *testing.T) {
	s := newTestScorer(t)
	require.GreaterOrEqual(t, len(englishSentences), 20)

	for i, sentence := range englishSentences {
		t.Run(sentence, func(t *testing.T) {
			require.GreaterOrEqual(t, len(sentence), 40)
			rng := rand.New(rand.NewPCG(uint64(i), 7))
			original := s.Score(sentence)
			letters := []rune(lettersOf(sentence))
			for trial := 0; trial < 10; trial++ {
				rng.Shuffle(len(letters), func(a, b int) { letters[a], letters[b] = letters[b], letters[a] })
				shuffled := string(letters)
				if shuffled == lettersOf(sentence) {
					continue
				}
				assert.Greater(t, original, s.Score(shuffled), "shuffle %q", shuffled)
			}
		})
	}
}

func TestScore_CaesarShiftsOfHelloWorld(t *testing.T) {
	s := newTestScorer(t)
	best := s.Score("HELLO WORLD")
	for k := 1; k < 26; k++ {
		shifted := strings.Map(func(r rune) rune {
			if r < 'A' || r > 'Z' {
				return r
			}
			return 'A' + (r-'A'+rune(k))%26
		}, "HELLO WORLD")
		assert.Greater(t, best, s.Score(shifted), "shift %d: %s", k, shifted)
	}
}

func TestScore_Degenerate(t *testing.T) {
	s := newTestScorer(t)

	for _, in := range []string{"", "   ", "1234 !?", "\n\t"} {
		assert.Equal(t, Sentinel, s.Score(in), "input %q", in)
		assert.True(t, s.Breakdown(in).Degenerate)
	}
}

func TestScore_IgnoresCaseAndPunctuation(t *testing.T) {
	s := newTestScorer(t)
	assert.Equal(t, s.Score("HELLOWORLD"), s.Score("Hello, world!"))
	assert.Equal(t, s.Score("Hello, world!"), s.Score("Hello, world!"), "scores are deterministic")
}

func TestScore_UnigramPenalizesSkew(t *testing.T) {
	s := newTestScorer(t)
	flat := s.Breakdown("ZZZZZZZZZZZZZZZZZZZZ")
	english := s.Breakdown("THEREISNOPLACELIKEHOME")

	assert.Less(t, flat.Unigram, english.Unigram)
	assert.Less(t, flat.Total, english.Total)
	assert.Less(t, flat.Consonants, 0.0, "a run of twenty consonants is penalized")
}

func TestBreakdown_Terms(t *testing.T) {
	s := newTestScorer(t)
	w := DefaultWeights()

	t.Run("words", func(t *testing.T) {
		b := s.Breakdown("HELLO")
		assert.Contains(t, b.Matched, "HELLO")
		assert.GreaterOrEqual(t, b.Words, 5*w.WordPerLetter)
	})

	t.Run("substring without boundary", func(t *testing.T) {
		b := s.Breakdown("FATHER")
		assert.Contains(t, b.Matched, "THE", "substrings count with no word boundary")
	})

	t.Run("ngrams", func(t *testing.T) {
		// TH, HE bigrams and THE trigram.
		assert.Equal(t, 2*w.Bigram+w.Trigram, s.Breakdown("THE").Ngrams)
	})

	t.Run("doubles", func(t *testing.T) {
		assert.Equal(t, w.CommonDouble, s.Breakdown("LL").Doubles)
		assert.Equal(t, w.NeutralDouble, s.Breakdown("TT").Doubles)
		assert.Equal(t, w.RareDouble, s.Breakdown("QQ").Doubles)
	})

	t.Run("vowel bands", func(t *testing.T) {
		assert.Equal(t, w.VowelIdeal, s.Breakdown("BABAB").Vowels)    // 0.40
		assert.Equal(t, w.VowelPartial, s.Breakdown("ABBB").Vowels)   // 0.25
		assert.Equal(t, w.VowelOff, s.Breakdown("BCDFG").Vowels) // 0.00
	})

	t.Run("consonant runs", func(t *testing.T) {
		assert.Zero(t, s.Breakdown("STRAB").Consonants)
		assert.Equal(t, -2*w.ConsonantRunLetter, s.Breakdown("ASTRNDA").Consonants) // run of 5
		assert.Equal(t, -1*w.ConsonantRunLetter, s.Breakdown("ABCDF").Consonants)   // trailing run of 4
	})

	t.Run("sum", func(t *testing.T) {
		b := s.Breakdown("Meet me at the old church")
		assert.InDelta(t, b.Unigram+b.Words+b.Ngrams+b.Doubles+b.Vowels+b.Consonants, b.Total, 1e-9)
		assert.Equal(t, 20, b.Letters)
	})
}

func TestNew_Validation(t *testing.T) {
	_, err := New(nil, DefaultWeights())
	assert.ErrorIs(t, err, breakerr.ErrConfiguration)

	bad := DefaultWeights()
	bad.Trigram = 1
	_, err = New(language.MustEnglish(), bad)
	assert.ErrorIs(t, err, breakerr.ErrConfiguration)
}

func TestFingerprint(t *testing.T) {
	base := newTestScorer(t)
	assert.Equal(t, base.Fingerprint(), newTestScorer(t).Fingerprint())

	w := DefaultWeights()
	w.Bigram = 9
	reweighted, err := New(language.MustEnglish(), w)
	require.NoError(t, err)
	assert.NotEqual(t, base.Fingerprint(), reweighted.Fingerprint())

	m, err := language.New(language.Config{LanguageTag: "EN", CustomWords: []string{"zyxwv"}})
	require.NoError(t, err)
	primed, err := New(m, DefaultWeights())
	require.NoError(t, err)
	assert.NotEqual(t, base.Fingerprint(), primed.Fingerprint())
}

func TestScore_SingleSwapIsSmooth(t *testing.T) {
	s := newTestScorer(t)
	text := "THEREWASATIMEWHENTHEPEOPLEOFTHETOWNWOULDGATHERINTHESQUARE"
	base := s.Score(text)

	// Swapping two rare letters barely moves the score.
	swapped := strings.Map(func(r rune) rune {
		switch r {
		case 'Q':
			return 'Z'
		case 'Z':
			return 'Q'
		}
		return r
	}, text)
	assert.InDelta(t, base, s.Score(swapped), 40)
}
