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
	"errors"
	"math/big"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/cipherbreak/services/breaker/breakerr"
	"github.com/AleutianAI/cipherbreak/services/breaker/keys"
)

const sample = "Attack at dawn, retreat at dusk!"

func collect(t *testing.T, s KeySpace) []keys.Key {
	t.Helper()
	require.NotNil(t, s.Keys)
	return slices.Collect(s.Keys)
}

func TestCaesar(t *testing.T) {
	c := NewCaesar()

	t.Run("decrypts the textbook example", func(t *testing.T) {
		got, err := c.Apply(keys.Shift(3), "KHOOR ZRUOG")
		require.NoError(t, err)
		assert.Equal(t, "HELLO WORLD", got)
	})

	t.Run("preserves case and punctuation", func(t *testing.T) {
		ct, err := c.Encrypt(keys.Shift(13), sample)
		require.NoError(t, err)
		assert.Equal(t, "Nggnpx ng qnja, ergerng ng qhfx!", ct)

		back, err := c.Apply(keys.Shift(13), ct)
		require.NoError(t, err)
		assert.Equal(t, sample, back)
	})

	t.Run("key space has every shift", func(t *testing.T) {
		s, err := c.KeySpace("anything")
		require.NoError(t, err)
		require.NoError(t, s.Validate())
		assert.Equal(t, SpaceEnumerable, s.Kind)
		assert.Equal(t, int64(26), s.Size.Int64())
		ks := collect(t, s)
		require.Len(t, ks, 26)
		assert.True(t, ks[0].Equal(keys.Shift(0)))
		assert.True(t, ks[25].Equal(keys.Shift(25)))
	})

	t.Run("mutate always moves", func(t *testing.T) {
		rng := rand.New(rand.NewPCG(1, 2))
		for range 100 {
			next, err := c.Mutate(keys.Shift(7), rng)
			require.NoError(t, err)
			s := next.(keys.Shift)
			assert.NotEqual(t, keys.Shift(7), s)
			assert.True(t, s >= 0 && s < 26)
		}
	})

	t.Run("rejects foreign keys", func(t *testing.T) {
		for _, k := range []keys.Key{keys.Rails(3), keys.Shift(-1), keys.Shift(26), nil} {
			_, err := c.Apply(k, "ABC")
			var ae *breakerr.AdapterError
			assert.ErrorAs(t, err, &ae)
			assert.ErrorIs(t, err, breakerr.ErrAdapter)
		}
	})

	t.Run("parse key", func(t *testing.T) {
		k, err := ParseKey(c, "29")
		require.NoError(t, err)
		assert.True(t, k.Equal(keys.Shift(3)))
		k, err = ParseKey(c, "-1")
		require.NoError(t, err)
		assert.True(t, k.Equal(keys.Shift(25)))
		_, err = ParseKey(c, "three")
		assert.ErrorIs(t, err, breakerr.ErrConfiguration)
	})
}

func TestSubstitution(t *testing.T) {
	s := NewSubstitution()
	enc := keys.MustPermutation(LatinAlphabet, "QWERTYUIOPASDFGHJKLZXCVBNM")

	t.Run("round trip through the inverse key", func(t *testing.T) {
		ct, err := s.Encrypt(enc, sample)
		require.NoError(t, err)
		assert.NotEqual(t, sample, ct)

		back, err := s.Apply(enc.Inverse(), ct)
		require.NoError(t, err)
		assert.Equal(t, sample, back)
	})

	t.Run("round trip for random keys", func(t *testing.T) {
		rng := rand.New(rand.NewPCG(3, 4))
		for range 50 {
			k := keys.Identity(LatinAlphabet).Shuffle(rng)
			ct, err := s.Encrypt(k, sample)
			require.NoError(t, err)
			back, err := s.Apply(k.Inverse(), ct)
			require.NoError(t, err)
			assert.Equal(t, sample, back)
		}
	})

	t.Run("key space is 26 factorial", func(t *testing.T) {
		ks, err := s.KeySpace(sample)
		require.NoError(t, err)
		require.NoError(t, ks.Validate())
		assert.Equal(t, SpacePermutation, ks.Kind)
		assert.Equal(t, LatinAlphabet, ks.Alphabet)
		want, ok := new(big.Int).SetString("403291461126605635584000000", 10)
		require.True(t, ok)
		assert.Zero(t, want.Cmp(ks.Size))
		assert.False(t, ks.Small(1<<20))
	})

	t.Run("mutation is a single swap and keeps the bijection", func(t *testing.T) {
		rng := rand.New(rand.NewPCG(5, 6))
		key := keys.Identity(LatinAlphabet)
		for range 200 {
			next, err := s.Mutate(key, rng)
			require.NoError(t, err)
			p := next.(keys.Permutation)
			require.True(t, p.Bijective())

			diff := 0
			for i := range p.Len() {
				if p.At(i) != key.At(i) {
					diff++
				}
			}
			assert.Equal(t, 2, diff)
			key = p
		}
	})

	t.Run("rejects keys over another alphabet", func(t *testing.T) {
		_, err := s.Apply(keys.Identity("ABC"), "ABC")
		assert.ErrorIs(t, err, breakerr.ErrAdapter)
		assert.ErrorIs(t, err, keys.ErrNotBijective)

		_, err = s.Apply(keys.Shift(1), "ABC")
		assert.ErrorIs(t, err, breakerr.ErrAdapter)
	})

	t.Run("parse key", func(t *testing.T) {
		k, err := ParseKey(s, "qwertyuiopasdfghjklzxcvbnm")
		require.NoError(t, err)
		assert.True(t, k.Equal(enc))

		k, err = ParseKey(s, enc.String())
		require.NoError(t, err)
		assert.True(t, k.Equal(enc))

		_, err = ParseKey(s, "QWERTY")
		assert.ErrorIs(t, err, breakerr.ErrConfiguration)
	})
}

func TestRailFence(t *testing.T) {
	f := NewRailFence()

	t.Run("textbook example", func(t *testing.T) {
		ct, err := f.Encrypt(keys.Rails(3), "WEAREDISCOVEREDFLEEATONCE")
		require.NoError(t, err)
		assert.Equal(t, "WECRLTEERDSOEEFEAOCAIVDEN", ct)

		pt, err := f.Apply(keys.Rails(3), ct)
		require.NoError(t, err)
		assert.Equal(t, "WEAREDISCOVEREDFLEEATONCE", pt)
	})

	t.Run("round trip for every rail count", func(t *testing.T) {
		for r := 2; r <= 40; r++ {
			ct, err := f.Encrypt(keys.Rails(r), sample)
			require.NoError(t, err)
			pt, err := f.Apply(keys.Rails(r), ct)
			require.NoError(t, err)
			assert.Equal(t, sample, pt, "rails %d", r)
		}
	})

	t.Run("key space is capped by length and max rails", func(t *testing.T) {
		s, err := f.KeySpace("ABCDE")
		require.NoError(t, err)
		ks := collect(t, s)
		assert.Equal(t, []keys.Key{keys.Rails(2), keys.Rails(3), keys.Rails(4), keys.Rails(5)}, ks)
		assert.Equal(t, int64(4), s.Size.Int64())

		s, err = f.KeySpace(sample)
		require.NoError(t, err)
		assert.Equal(t, int64(DefaultMaxRails-1), s.Size.Int64())
	})

	t.Run("too short to attack", func(t *testing.T) {
		_, err := f.KeySpace("A")
		assert.ErrorIs(t, err, breakerr.ErrConfiguration)
	})

	t.Run("mutate stays in range and moves", func(t *testing.T) {
		rng := rand.New(rand.NewPCG(7, 8))
		for range 200 {
			next, err := f.Mutate(keys.Rails(4), rng)
			require.NoError(t, err)
			r := next.(keys.Rails)
			assert.NotEqual(t, keys.Rails(4), r)
			assert.True(t, r >= 2 && r <= DefaultMaxRails)
		}
	})

	t.Run("rejects one rail", func(t *testing.T) {
		_, err := f.Apply(keys.Rails(1), "ABC")
		assert.ErrorIs(t, err, breakerr.ErrAdapter)
	})
}

func TestBacon(t *testing.T) {
	a := NewBacon()
	ab := keys.Bacon{A: 'A', B: 'B'}

	t.Run("round trip", func(t *testing.T) {
		ct, err := a.Encrypt(ab, "Hello world")
		require.NoError(t, err)
		assert.Equal(t, "AABBB", ct[:5])
		assert.Equal(t, 5*5+1+5*5, len(ct))

		pt, err := a.Apply(ab, ct)
		require.NoError(t, err)
		assert.Equal(t, "HELLO WORLD", pt)
	})

	t.Run("punctuation symbols", func(t *testing.T) {
		k := keys.Bacon{A: '.', B: '-'}
		ct, err := a.Encrypt(k, "ATTACK AT DAWN")
		require.NoError(t, err)
		pt, err := a.Apply(k, ct)
		require.NoError(t, err)
		assert.Equal(t, "ATTACK AT DAWN", pt)
	})

	t.Run("24 letter variant merges I/J and U/V", func(t *testing.T) {
		k := keys.Bacon{A: 'A', B: 'B', Letters24: true}
		ct, err := a.Encrypt(k, "JUVENILE")
		require.NoError(t, err)
		pt, err := a.Apply(k, ct)
		require.NoError(t, err)
		assert.Equal(t, "IUUENILE", pt)
	})

	t.Run("key space includes the symbol pair", func(t *testing.T) {
		ct, err := a.Encrypt(keys.Bacon{A: 'X', B: 'O'}, "MEET AT NOON")
		require.NoError(t, err)
		s, err := a.KeySpace(ct)
		require.NoError(t, err)
		require.NoError(t, s.Validate())
		assert.Equal(t, SpaceEnumerable, s.Kind)

		ks := collect(t, s)
		assert.Equal(t, s.Size.Int64(), int64(len(ks)))
		assert.True(t, slices.ContainsFunc(ks, keys.Bacon{A: 'X', B: 'O'}.Equal))
		assert.True(t, slices.ContainsFunc(ks, keys.Bacon{A: 'O', B: 'X'}.Equal))
		assert.True(t, slices.ContainsFunc(ks, keys.Bacon{A: 'X', B: 'O', Letters24: true}.Equal))
	})

	t.Run("no symbol pair", func(t *testing.T) {
		_, err := a.KeySpace("hi there")
		assert.ErrorIs(t, err, breakerr.ErrConfiguration)
	})

	t.Run("mutate stays valid", func(t *testing.T) {
		rng := rand.New(rand.NewPCG(3, 4))
		for range 50 {
			next, err := a.Mutate(ab, rng)
			require.NoError(t, err)
			assert.False(t, next.Equal(ab))
			_, err = a.Apply(next, "ABABA")
			assert.NoError(t, err)
		}
	})

	tests := []struct {
		text string
		want keys.Key
	}{
		{"AB", ab},
		{"AB/24", keys.Bacon{A: 'A', B: 'B', Letters24: true}},
		{" .-/26 ", keys.Bacon{A: '.', B: '-'}},
		{"A", nil},
		{"AA", nil},
		{"A B", nil},
		{"AB/25", nil},
	}
	for _, tt := range tests {
		t.Run("parse "+tt.text, func(t *testing.T) {
			got, err := a.ParseKey(tt.text)
			if tt.want == nil {
				assert.ErrorIs(t, err, breakerr.ErrConfiguration)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), got)
			again, err := a.ParseKey(got.String())
			require.NoError(t, err)
			assert.True(t, got.Equal(again))
		})
	}
}

func TestPolybius(t *testing.T) {
	a := NewPolybius()
	standard := keys.Grid(polybius5)

	t.Run("standard square", func(t *testing.T) {
		ct, err := a.Encrypt(standard, "Hello world")
		require.NoError(t, err)
		assert.Equal(t, "2315313134 5234423114", ct)

		pt, err := a.Apply(standard, ct)
		require.NoError(t, err)
		assert.Equal(t, "HELLO WORLD", pt)
	})

	t.Run("keyword square", func(t *testing.T) {
		g := KeywordGrid("secret", 5)
		assert.Equal(t, keys.Grid("SECRTABDFGHIKLMNOPQUVWXYZ"), g)

		ct, err := a.Encrypt(g, "JAM TODAY")
		require.NoError(t, err)
		pt, err := a.Apply(g, ct)
		require.NoError(t, err)
		assert.Equal(t, "IAM TODAY", pt)
	})

	t.Run("6x6 square writes digits", func(t *testing.T) {
		g := KeywordGrid("CIPHER", 6)
		require.Equal(t, 6, g.Side())
		ct, err := a.Encrypt(g, "AGENT 007")
		require.NoError(t, err)
		pt, err := a.Apply(g, ct)
		require.NoError(t, err)
		assert.Equal(t, "AGENT 007", pt)
	})

	t.Run("5x5 square rejects digits", func(t *testing.T) {
		_, err := a.Encrypt(standard, "AGENT 007")
		assert.ErrorIs(t, err, breakerr.ErrAdapter)
	})

	t.Run("out of range coordinates pass through", func(t *testing.T) {
		pt, err := a.Apply(standard, "11 70 99")
		require.NoError(t, err)
		assert.Equal(t, "A 70 99", pt)
	})

	t.Run("key space", func(t *testing.T) {
		s, err := a.KeySpace("2315313134")
		require.NoError(t, err)
		require.NoError(t, s.Validate())
		ks := collect(t, s)
		assert.Len(t, ks, 2*(1+len(PolybiusSeeds)+len(PolybiusKeywords)))
		assert.Equal(t, s.Size.Int64(), int64(len(ks)))
		assert.True(t, ks[0].Equal(standard))
		assert.True(t, slices.ContainsFunc(ks, KeywordGrid("SECRET", 5).Equal))

		six, err := a.KeySpace("2366")
		require.NoError(t, err)
		for _, k := range collect(t, six) {
			assert.Equal(t, 6, k.(keys.Grid).Side())
		}

		_, err = a.KeySpace("hello")
		assert.ErrorIs(t, err, breakerr.ErrConfiguration)
	})

	t.Run("mutate swaps two cells", func(t *testing.T) {
		rng := rand.New(rand.NewPCG(5, 6))
		next, err := a.Mutate(standard, rng)
		require.NoError(t, err)
		g := next.(keys.Grid)
		assert.NotEqual(t, standard, g)
		assert.True(t, validGrid(g))
	})

	tests := []struct {
		text string
		want keys.Key
		ok   bool
	}{
		{"secret", KeywordGrid("SECRET", 5), true},
		{polybius5, standard, true},
		{string(ShuffledGrid(6, 42)), ShuffledGrid(6, 42), true},
		{"SECRET1", nil, false},
		{"", nil, false},
	}
	for _, tt := range tests {
		t.Run("parse "+tt.text, func(t *testing.T) {
			got, err := a.ParseKey(tt.text)
			if !tt.ok {
				assert.ErrorIs(t, err, breakerr.ErrConfiguration)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), got)
		})
	}

	_, err := a.Apply(keys.Grid("ABC"), "11")
	assert.ErrorIs(t, err, breakerr.ErrAdapter)
}

func TestKeySpace_Validate(t *testing.T) {
	tests := []struct {
		name  string
		space KeySpace
		field string
	}{
		{"missing size", KeySpace{Kind: SpacePermutation, Alphabet: "AB"}, "key_space.size"},
		{"zero size", KeySpace{Kind: SpacePermutation, Alphabet: "AB", Size: big.NewInt(0)}, "key_space.size"},
		{"enumerable without keys", KeySpace{Kind: SpaceEnumerable, Size: big.NewInt(3)}, "key_space.keys"},
		{"permutation without alphabet", KeySpace{Kind: SpacePermutation, Size: big.NewInt(2)}, "key_space.alphabet"},
		{"unknown kind", KeySpace{Kind: SpaceKind(9), Size: big.NewInt(2)}, "key_space.kind"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.space.Validate()
			var ce *breakerr.ConfigurationError
			require.True(t, errors.As(err, &ce))
			assert.Equal(t, tt.field, ce.Field)
		})
	}
}

func TestRegistry(t *testing.T) {
	assert.Equal(t, []string{"bacon", "caesar", "polybius", "railfence", "substitution"}, Names())
	for _, name := range Names() {
		a, err := Lookup(name)
		require.NoError(t, err)
		assert.Equal(t, name, a.Name())
		assert.True(t, IsKnown(name))
	}
	_, err := Lookup("enigma")
	assert.ErrorIs(t, err, breakerr.ErrConfiguration)
	assert.False(t, IsKnown("enigma"))
}

func TestEncrypt_RoundTrip(t *testing.T) {
	perm := keys.MustPermutation("ABCDEFGHIJKLMNOPQRSTUVWXYZ", "QWERTYUIOPASDFGHJKLZXCVBNM")
	tests := []struct {
		name    string
		key     keys.Key
		inverse keys.Key
	}{
		{"caesar", keys.Shift(7), keys.Shift(7)},
		{"railfence", keys.Rails(4), keys.Rails(4)},
		{"substitution", perm, perm.Inverse()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := Lookup(tt.name)
			require.NoError(t, err)

			ct, err := Encrypt(a, tt.key, sample)
			require.NoError(t, err)
			assert.NotEqual(t, sample, ct)

			pt, err := a.Apply(tt.inverse, ct)
			require.NoError(t, err)
			assert.Equal(t, sample, pt)
		})
	}
}
