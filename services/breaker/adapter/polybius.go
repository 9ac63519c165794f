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
	"fmt"
	"math/big"
	"math/rand/v2"
	"slices"
	"strings"
	"unicode"

	"github.com/AleutianAI/cipherbreak/services/breaker/breakerr"
	"github.com/AleutianAI/cipherbreak/services/breaker/keys"
)

const (
	// polybius5 fills a 5x5 square; J is written as I.
	polybius5 = "ABCDEFGHIKLMNOPQRSTUVWXYZ"
	// polybius6 fills a 6x6 square.
	polybius6 = LatinAlphabet + "0123456789"
)

// PolybiusKeywords are the keywords every Polybius key space includes.
var PolybiusKeywords = []string{
	"SECRET", "CIPHER", "KEY", "CODE", "POLYBIUS", "GRID", "SQUARE",
	"ENCRYPT", "DECODE", "MATRIX", "TABLE", "ALPHA", "BETA", "GAMMA",
	"PASSWORD", "HIDDEN", "MESSAGE", "PRIVATE", "SECURE", "VAULT",
}

// PolybiusSeeds are the shuffle seeds every Polybius key space includes.
var PolybiusSeeds = []uint64{7, 12, 21, 31, 42, 85, 100, 123, 456, 789}

// Polybius is the Polybius square: each symbol becomes its 1-based row and
// column digits in a keyed 5x5 or 6x6 grid.
//
// Description:
//
//	Keys are keys.Grid values. Apply decodes every pair of adjacent
//	digits that addresses a cell and passes everything else through, so
//	spaces between words survive. The key space is a dictionary attack:
//	the standard grid, the grids shuffled by PolybiusSeeds and the
//	keyword grids of PolybiusKeywords, for every square size the
//	ciphertext's digits allow.
type Polybius struct{}

// NewPolybius creates a Polybius adapter.
func NewPolybius() *Polybius { return &Polybius{} }

// Name implements Adapter.
func (a *Polybius) Name() string { return "polybius" }

// Apply implements Adapter.
func (a *Polybius) Apply(key keys.Key, ciphertext string) (string, error) {
	g, err := a.grid(key)
	if err != nil {
		return "", err
	}
	side := g.Side()
	text := []rune(ciphertext)

	var b strings.Builder
	b.Grow(len(text) / 2)
	for i := 0; i < len(text); {
		if i+1 < len(text) && isDigit(text[i]) && isDigit(text[i+1]) {
			row, col := int(text[i]-'0'), int(text[i+1]-'0')
			if row >= 1 && row <= side && col >= 1 && col <= side {
				b.WriteByte(g[(row-1)*side+col-1])
			} else {
				b.WriteRune(text[i])
				b.WriteRune(text[i+1])
			}
			i += 2
			continue
		}
		b.WriteRune(text[i])
		i++
	}
	return b.String(), nil
}

// Encrypt writes every grid symbol of plaintext as its coordinates.
//
// Outputs:
//   - error: *breakerr.AdapterError if plaintext holds a digit that a 5x5
//     square cannot write.
func (a *Polybius) Encrypt(key keys.Key, plaintext string) (string, error) {
	g, err := a.grid(key)
	if err != nil {
		return "", err
	}
	side := g.Side()

	var b strings.Builder
	b.Grow(len(plaintext) * 2)
	for _, r := range plaintext {
		u := unicode.ToUpper(r)
		if side == 5 && u == 'J' {
			u = 'I'
		}
		i := strings.IndexRune(string(g), u)
		switch {
		case i >= 0:
			b.WriteByte(byte('1' + i/side))
			b.WriteByte(byte('1' + i%side))
		case isDigit(r):
			return "", breakerr.NewAdapterError(a.Name(), g.String(), fmt.Errorf("digit %q has no cell in a 5x5 square", r))
		default:
			b.WriteRune(r)
		}
	}
	return b.String(), nil
}

// KeySpace implements Adapter.
func (a *Polybius) KeySpace(ciphertext string) (KeySpace, error) {
	sides, err := polybiusSides(ciphertext)
	if err != nil {
		return KeySpace{}, err
	}
	var ks []keys.Key
	for _, side := range sides {
		ks = append(ks, polybiusGrids(side)...)
	}
	return KeySpace{
		Kind: SpaceEnumerable,
		Size: big.NewInt(int64(len(ks))),
		Keys: slices.Values(ks),
	}, nil
}

// Mutate implements Adapter by swapping two cells.
func (a *Polybius) Mutate(key keys.Key, rng *rand.Rand) (keys.Key, error) {
	g, err := a.grid(key)
	if err != nil {
		return nil, err
	}
	cells := []byte(g)
	i, j := swapPositions(len(cells), rng)
	cells[i], cells[j] = cells[j], cells[i]
	return keys.Grid(cells), nil
}

// ParseKey reads either a full grid (25 or 36 symbols, row by row) or a
// keyword, which builds a 5x5 keyword grid.
func (a *Polybius) ParseKey(text string) (keys.Key, error) {
	s := strings.ToUpper(strings.TrimSpace(text))
	if g := keys.Grid(s); g.Side() != 0 && validGrid(g) {
		return g, nil
	}
	if s == "" || strings.IndexFunc(s, func(r rune) bool { return r < 'A' || r > 'Z' }) >= 0 {
		return nil, breakerr.NewConfigurationError("key", "polybius key must be a full grid or a keyword of letters")
	}
	return KeywordGrid(s, 5), nil
}

// KeywordGrid builds the square that starts with the distinct symbols of
// keyword and continues with the rest in standard order. side is 5 or 6.
func KeywordGrid(keyword string, side int) keys.Grid {
	set := polybiusSet(side)
	seen := make(map[rune]bool, len(set))
	var b strings.Builder
	b.Grow(len(set))
	for _, r := range strings.ToUpper(keyword) {
		if side == 5 && r == 'J' {
			r = 'I'
		}
		if seen[r] || !strings.ContainsRune(set, r) {
			continue
		}
		seen[r] = true
		b.WriteRune(r)
	}
	for _, r := range set {
		if !seen[r] {
			b.WriteRune(r)
		}
	}
	return keys.Grid(b.String())
}

// ShuffledGrid returns the standard square shuffled by rngSeed.
func ShuffledGrid(side int, rngSeed uint64) keys.Grid {
	cells := []byte(polybiusSet(side))
	rng := rand.New(rand.NewPCG(rngSeed, rngSeed^0x9e3779b97f4a7c15))
	rng.Shuffle(len(cells), func(i, j int) { cells[i], cells[j] = cells[j], cells[i] })
	return keys.Grid(cells)
}

func (a *Polybius) grid(key keys.Key) (keys.Grid, error) {
	g, ok := key.(keys.Grid)
	if !ok {
		return "", breakerr.NewAdapterError(a.Name(), keyString(key), fmt.Errorf("want keys.Grid, got %T", key))
	}
	if g.Side() == 0 || !validGrid(g) {
		return "", breakerr.NewAdapterError(a.Name(), g.String(), errors.New("grid must hold every square symbol exactly once"))
	}
	return g, nil
}

// polybiusGrids lists the dictionary for one square size: standard grid,
// seeded shuffles, then keyword grids, without duplicates.
func polybiusGrids(side int) []keys.Key {
	var out []keys.Key
	seen := make(map[keys.Grid]bool)
	add := func(g keys.Grid) {
		if !seen[g] {
			seen[g] = true
			out = append(out, g)
		}
	}
	add(keys.Grid(polybiusSet(side)))
	for _, s := range PolybiusSeeds {
		add(ShuffledGrid(side, s))
	}
	for _, kw := range PolybiusKeywords {
		add(KeywordGrid(kw, side))
	}
	return out
}

// polybiusSides returns the square sizes the ciphertext's coordinates
// allow. A 6 in any coordinate rules out the 5x5 square.
func polybiusSides(ciphertext string) ([]int, error) {
	text := []rune(ciphertext)
	pairs, six := 0, false
	for i := 0; i+1 < len(text); {
		if isDigit(text[i]) && isDigit(text[i+1]) {
			pairs++
			six = six || text[i] == '6' || text[i+1] == '6'
			i += 2
			continue
		}
		i++
	}
	switch {
	case pairs == 0:
		return nil, breakerr.NewConfigurationError("ciphertext", "no Polybius coordinate pairs")
	case six:
		return []int{6}, nil
	}
	return []int{5, 6}, nil
}

func polybiusSet(side int) string {
	if side == 6 {
		return polybius6
	}
	return polybius5
}

func validGrid(g keys.Grid) bool {
	set := polybiusSet(g.Side())
	if len(g) != len(set) {
		return false
	}
	seen := make(map[byte]bool, len(g))
	for i := 0; i < len(g); i++ {
		c := g[i]
		if seen[c] || !strings.ContainsRune(set, rune(c)) {
			return false
		}
		seen[c] = true
	}
	return true
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }
