// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package keys

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
)

var (
	// ErrEmptyAlphabet is returned for a zero-length alphabet.
	ErrEmptyAlphabet = errors.New("alphabet must not be empty")

	// ErrNotBijective is returned when an image is not a permutation of its alphabet.
	ErrNotBijective = errors.New("mapping is not a bijection over the alphabet")

	// ErrIndexRange is returned for a swap index outside the alphabet.
	ErrIndexRange = errors.New("index out of range")
)

// Permutation maps each cipher symbol of an alphabet to a distinct plain symbol.
//
// Description:
//
//	The alphabet lists the cipher symbols in a fixed order; image[i] is the
//	plain symbol for alphabet[i]. Neither slice is written after
//	construction, so copies may share them freely.
//
// Invariant: image is a permutation of alphabet (injective and surjective).
//
// Thread Safety: Immutable; safe for concurrent use.
type Permutation struct {
	alphabet []rune
	image    []rune
	text     string
	pos      map[rune]int
}

// NewPermutation validates and builds a permutation.
//
// Inputs:
//   - alphabet: The cipher symbols, each distinct.
//   - image: The plain symbol for each alphabet position.
//
// Outputs:
//   - Permutation: The key.
//   - error: ErrEmptyAlphabet or ErrNotBijective.
func NewPermutation(alphabet, image string) (Permutation, error) {
	a := []rune(alphabet)
	img := []rune(image)
	if len(a) == 0 {
		return Permutation{}, ErrEmptyAlphabet
	}
	if err := checkBijective(a, img); err != nil {
		return Permutation{}, err
	}
	return newPermutation(a, img), nil
}

// MustPermutation is NewPermutation that panics on error. For literals in tests
// and tables.
func MustPermutation(alphabet, image string) Permutation {
	p, err := NewPermutation(alphabet, image)
	if err != nil {
		panic(fmt.Sprintf("keys: %v", err))
	}
	return p
}

// Identity returns the permutation mapping every symbol to itself.
func Identity(alphabet string) Permutation {
	a := []rune(alphabet)
	return newPermutation(a, append([]rune(nil), a...))
}

// FromImage builds a permutation over alphabet from an image slice. The slice
// is copied.
func FromImage(alphabet string, image []rune) (Permutation, error) {
	return NewPermutation(alphabet, string(image))
}

// newPermutation takes ownership of a and img, which must already be valid.
func newPermutation(a, img []rune) Permutation {
	pos := make(map[rune]int, len(a))
	for i, r := range a {
		pos[r] = i
	}
	return Permutation{alphabet: a, image: img, text: string(img), pos: pos}
}

func checkBijective(a, img []rune) error {
	if len(img) != len(a) {
		return fmt.Errorf("%w: image has %d symbols, alphabet has %d", ErrNotBijective, len(img), len(a))
	}
	inAlphabet := make(map[rune]bool, len(a))
	for _, r := range a {
		if inAlphabet[r] {
			return fmt.Errorf("%w: alphabet repeats %q", ErrNotBijective, r)
		}
		inAlphabet[r] = true
	}
	used := make(map[rune]bool, len(img))
	for _, r := range img {
		if !inAlphabet[r] {
			return fmt.Errorf("%w: %q is not in the alphabet", ErrNotBijective, r)
		}
		if used[r] {
			return fmt.Errorf("%w: %q is used twice", ErrNotBijective, r)
		}
		used[r] = true
	}
	return nil
}

// Alphabet returns the cipher alphabet.
func (p Permutation) Alphabet() string { return string(p.alphabet) }

// Image returns the plain symbols in alphabet order.
func (p Permutation) Image() string { return p.text }

// Len returns the alphabet size.
func (p Permutation) Len() int { return len(p.alphabet) }

// IsZero reports whether p is the zero value.
func (p Permutation) IsZero() bool { return len(p.alphabet) == 0 }

// At returns the plain symbol at alphabet position i.
func (p Permutation) At(i int) rune { return p.image[i] }

// Map returns the plain symbol for cipher symbol r.
func (p Permutation) Map(r rune) (rune, bool) {
	i, ok := p.pos[r]
	if !ok {
		return r, false
	}
	return p.image[i], true
}

// Swap returns a new permutation with positions i and j exchanged.
func (p Permutation) Swap(i, j int) (Permutation, error) {
	if i < 0 || j < 0 || i >= len(p.image) || j >= len(p.image) {
		return Permutation{}, fmt.Errorf("%w: swap(%d, %d) over %d symbols", ErrIndexRange, i, j, len(p.image))
	}
	img := append([]rune(nil), p.image...)
	img[i], img[j] = img[j], img[i]
	return Permutation{alphabet: p.alphabet, image: img, text: string(img), pos: p.pos}, nil
}

// Shuffle returns a uniformly random rearrangement of p's image drawn from rng.
func (p Permutation) Shuffle(rng *rand.Rand) Permutation {
	img := append([]rune(nil), p.image...)
	rng.Shuffle(len(img), func(i, j int) { img[i], img[j] = img[j], img[i] })
	return Permutation{alphabet: p.alphabet, image: img, text: string(img), pos: p.pos}
}

// Inverse returns the permutation mapping plain symbols back to cipher symbols.
func (p Permutation) Inverse() Permutation {
	img := make([]rune, len(p.alphabet))
	for i, plain := range p.image {
		img[p.pos[plain]] = p.alphabet[i]
	}
	return Permutation{alphabet: p.alphabet, image: img, text: string(img), pos: p.pos}
}

// Bijective re-checks the invariant. Always true for values built by this
// package; exposed for property checks.
func (p Permutation) Bijective() bool {
	return len(p.alphabet) > 0 && checkBijective(p.alphabet, p.image) == nil
}

// String renders the key as "alphabet->image".
func (p Permutation) String() string {
	var b strings.Builder
	b.WriteString(string(p.alphabet))
	b.WriteString("->")
	b.WriteString(p.text)
	return b.String()
}

// Equal reports whether other maps the same alphabet the same way.
func (p Permutation) Equal(other Key) bool {
	o, ok := other.(Permutation)
	return ok && string(o.alphabet) == string(p.alphabet) && o.text == p.text
}
