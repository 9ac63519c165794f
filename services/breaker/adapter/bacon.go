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
	"cmp"
	"errors"
	"fmt"
	"maps"
	"math/big"
	"math/rand/v2"
	"slices"
	"strings"
	"unicode"

	"github.com/AleutianAI/cipherbreak/services/breaker/breakerr"
	"github.com/AleutianAI/cipherbreak/services/breaker/keys"
)

const (
	baconLetters26 = LatinAlphabet
	baconLetters24 = "ABCDEFGHIKLMNOPQRSTUWXYZ"

	// baconCodeLen is the number of symbols per letter.
	baconCodeLen = 5

	// baconMinCount is how often a rune must occur to be a symbol candidate.
	baconMinCount = 5

	// baconMaxSymbols caps the frequent runes paired with each other.
	baconMaxSymbols = 10
)

// baconCommonPairs are symbol pairs tried whenever both occur in the text.
var baconCommonPairs = [][2]rune{
	{'A', 'B'}, {'0', '1'}, {'a', 'b'}, {'.', '-'}, {'*', '#'},
	{'X', 'O'}, {'I', 'V'}, {'L', 'S'}, {'!', '?'}, {'+', '-'},
	{'>', '<'}, {'(', ')'}, {'[', ']'}, {'{', '}'}, {'|', '/'},
	{'~', '^'}, {'@', '$'}, {'%', '&'}, {'=', '_'}, {':', ';'},
}

// Bacon is the Baconian cipher: every letter becomes a five-symbol binary
// code written with two arbitrary symbols.
//
// Description:
//
//	Keys are keys.Bacon values naming the 0 and 1 symbols and the 24 or
//	26 letter variant. Apply decodes every run of five symbols and passes
//	everything else through. Encrypt upper-cases letters and passes other
//	runes through, so plaintext must not contain the symbols themselves
//	as non-letters.
//
//	The key space for a ciphertext is every ordered pair of its frequent
//	runes, plus the common symbol pairs present in it, in both variants.
type Bacon struct{}

// NewBacon creates a Bacon adapter.
func NewBacon() *Bacon { return &Bacon{} }

// Name implements Adapter.
func (a *Bacon) Name() string { return "bacon" }

// Apply implements Adapter.
func (a *Bacon) Apply(key keys.Key, ciphertext string) (string, error) {
	k, err := a.key(key)
	if err != nil {
		return "", err
	}
	letters := baconAlphabet(k.Letters24)
	text := []rune(ciphertext)

	var b strings.Builder
	b.Grow(len(text) / baconCodeLen)
	for i := 0; i < len(text); {
		if v, ok := baconCode(text[i:], k); ok && v < len(letters) {
			b.WriteByte(letters[v])
			i += baconCodeLen
			continue
		}
		b.WriteRune(text[i])
		i++
	}
	return b.String(), nil
}

// Encrypt writes every letter of plaintext as its five-symbol code.
func (a *Bacon) Encrypt(key keys.Key, plaintext string) (string, error) {
	k, err := a.key(key)
	if err != nil {
		return "", err
	}
	letters := baconAlphabet(k.Letters24)

	var b strings.Builder
	b.Grow(len(plaintext) * baconCodeLen)
	for _, r := range plaintext {
		u := unicode.ToUpper(r)
		if u < 'A' || u > 'Z' {
			b.WriteRune(r)
			continue
		}
		if k.Letters24 {
			switch u {
			case 'J':
				u = 'I'
			case 'V':
				u = 'U'
			}
		}
		v := strings.IndexRune(letters, u)
		for bit := baconCodeLen - 1; bit >= 0; bit-- {
			if v>>bit&1 == 1 {
				b.WriteRune(k.B)
			} else {
				b.WriteRune(k.A)
			}
		}
	}
	return b.String(), nil
}

// KeySpace implements Adapter.
func (a *Bacon) KeySpace(ciphertext string) (KeySpace, error) {
	pairs := baconPairs(ciphertext)
	if len(pairs) == 0 {
		return KeySpace{}, breakerr.NewConfigurationError("ciphertext", "no candidate Baconian symbol pair")
	}
	ks := make([]keys.Key, 0, 2*len(pairs))
	for _, p := range pairs {
		ks = append(ks,
			keys.Bacon{A: p[0], B: p[1]},
			keys.Bacon{A: p[0], B: p[1], Letters24: true},
		)
	}
	return KeySpace{
		Kind: SpaceEnumerable,
		Size: big.NewInt(int64(len(ks))),
		Keys: slices.Values(ks),
	}, nil
}

// Mutate implements Adapter by either switching the variant or swapping
// which symbol means 0.
func (a *Bacon) Mutate(key keys.Key, rng *rand.Rand) (keys.Key, error) {
	k, err := a.key(key)
	if err != nil {
		return nil, err
	}
	if rng.IntN(2) == 0 {
		k.Letters24 = !k.Letters24
	} else {
		k.A, k.B = k.B, k.A
	}
	return k, nil
}

// ParseKey reads "AB", "AB/24" or "AB/26": the 0 symbol, the 1 symbol and
// an optional variant (26 when omitted).
func (a *Bacon) ParseKey(text string) (keys.Key, error) {
	symbols, variant, _ := strings.Cut(strings.TrimSpace(text), "/")
	var k keys.Bacon
	switch variant {
	case "", "26":
	case "24":
		k.Letters24 = true
	default:
		return nil, breakerr.NewConfigurationError("key", "bacon variant must be 24 or 26")
	}
	rs := []rune(symbols)
	if len(rs) != 2 {
		return nil, breakerr.NewConfigurationError("key", "bacon key needs exactly two symbols, e.g. AB/26")
	}
	k.A, k.B = rs[0], rs[1]
	if _, err := a.key(k); err != nil {
		return nil, breakerr.NewConfigurationError("key", err.Error())
	}
	return k, nil
}

func (a *Bacon) key(key keys.Key) (keys.Bacon, error) {
	k, ok := key.(keys.Bacon)
	if !ok {
		return keys.Bacon{}, breakerr.NewAdapterError(a.Name(), keyString(key), fmt.Errorf("want keys.Bacon, got %T", key))
	}
	switch {
	case k.A == k.B:
		return keys.Bacon{}, breakerr.NewAdapterError(a.Name(), k.String(), errors.New("symbols must differ"))
	case unicode.IsSpace(k.A) || unicode.IsSpace(k.B):
		return keys.Bacon{}, breakerr.NewAdapterError(a.Name(), k.String(), errors.New("symbols must not be whitespace"))
	}
	return k, nil
}

func baconAlphabet(letters24 bool) string {
	if letters24 {
		return baconLetters24
	}
	return baconLetters26
}

// baconCode reads the code at the start of text. ok is false unless the
// first five runes are all symbols.
func baconCode(text []rune, k keys.Bacon) (int, bool) {
	if len(text) < baconCodeLen {
		return 0, false
	}
	v := 0
	for _, r := range text[:baconCodeLen] {
		switch r {
		case k.A:
			v <<= 1
		case k.B:
			v = v<<1 | 1
		default:
			return 0, false
		}
	}
	return v, true
}

// baconPairs lists candidate (0, 1) symbol pairs for text, most frequent
// runes first, without duplicates.
func baconPairs(text string) [][2]rune {
	counts := make(map[rune]int)
	for _, r := range text {
		if !unicode.IsSpace(r) {
			counts[r]++
		}
	}
	frequent := slices.SortedFunc(maps.Keys(counts), func(x, y rune) int {
		if c := cmp.Compare(counts[y], counts[x]); c != 0 {
			return c
		}
		return cmp.Compare(x, y)
	})
	frequent = slices.DeleteFunc(frequent, func(r rune) bool { return counts[r] < baconMinCount })
	if len(frequent) > baconMaxSymbols {
		frequent = frequent[:baconMaxSymbols]
	}

	var pairs [][2]rune
	seen := make(map[[2]rune]bool)
	add := func(p [2]rune) {
		if !seen[p] {
			seen[p] = true
			pairs = append(pairs, p)
		}
	}
	for i := range frequent {
		for j := i + 1; j < len(frequent); j++ {
			add([2]rune{frequent[i], frequent[j]})
			add([2]rune{frequent[j], frequent[i]})
		}
	}
	for _, p := range baconCommonPairs {
		if counts[p[0]] > 0 && counts[p[1]] > 0 {
			add(p)
		}
	}
	return pairs
}
