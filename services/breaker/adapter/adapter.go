// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package adapter binds concrete classical ciphers to the search engine.
//
// An Adapter is the only place that knows what a key means: the strategies
// treat keys as opaque values they obtain from a KeySpace or a seed, perturb
// through Mutate, and evaluate through Apply.
package adapter

import (
	"fmt"
	"iter"
	"math/big"
	"math/rand/v2"
	"slices"
	"sort"

	"github.com/AleutianAI/cipherbreak/services/breaker/breakerr"
	"github.com/AleutianAI/cipherbreak/services/breaker/keys"
)

// Adapter applies keys of one cipher family to ciphertext.
//
// Description:
//
//	Apply is the decryption direction: it maps ciphertext to a candidate
//	plaintext under key. All methods are pure and deterministic for a given
//	rng state.
//
// Thread Safety: Implementations must be safe for concurrent use.
type Adapter interface {
	// Name returns the registry name, e.g. "caesar".
	Name() string

	// Apply decrypts ciphertext under key.
	//
	// Outputs:
	//   - string: The candidate plaintext.
	//   - error: *breakerr.AdapterError if key is not structurally valid for this cipher.
	Apply(key keys.Key, ciphertext string) (string, error)

	// KeySpace describes the keys worth trying for ciphertext.
	//
	// Outputs:
	//   - KeySpace: The descriptor.
	//   - error: *breakerr.ConfigurationError if ciphertext cannot be attacked.
	KeySpace(ciphertext string) (KeySpace, error)

	// Mutate returns a small random valid perturbation of key. key is never modified.
	Mutate(key keys.Key, rng *rand.Rand) (keys.Key, error)
}

// -----------------------------------------------------------------------------
// KeySpace
// -----------------------------------------------------------------------------

// SpaceKind distinguishes enumerable key spaces from permutation spaces.
type SpaceKind int

const (
	// SpaceEnumerable lists every key through KeySpace.Keys.
	SpaceEnumerable SpaceKind = iota

	// SpacePermutation is every bijection over KeySpace.Alphabet.
	SpacePermutation
)

// String returns the string representation of a SpaceKind.
func (k SpaceKind) String() string {
	switch k {
	case SpaceEnumerable:
		return "enumerable"
	case SpacePermutation:
		return "permutation"
	default:
		return "unknown"
	}
}

// KeySpace describes the shape of an adapter's key space for one ciphertext.
type KeySpace struct {
	// Kind selects which of the remaining fields are meaningful.
	Kind SpaceKind

	// Size is the number of keys. Always set.
	Size *big.Int

	// Alphabet is the permuted alphabet. SpacePermutation only.
	Alphabet string

	// Keys yields every key in a stable order. SpaceEnumerable only.
	Keys iter.Seq[keys.Key]
}

// Validate checks that the descriptor is well formed.
func (s KeySpace) Validate() error {
	if s.Size == nil || s.Size.Sign() <= 0 {
		return breakerr.NewConfigurationError("key_space.size", "must be positive")
	}
	switch s.Kind {
	case SpaceEnumerable:
		if s.Keys == nil {
			return breakerr.NewConfigurationError("key_space.keys", "enumerable space has no key sequence")
		}
	case SpacePermutation:
		if s.Alphabet == "" {
			return breakerr.NewConfigurationError("key_space.alphabet", "permutation space has no alphabet")
		}
	default:
		return breakerr.NewConfigurationError("key_space.kind", fmt.Sprintf("unknown kind %d", s.Kind))
	}
	return nil
}

// Small reports whether the space is enumerable with at most ceiling keys.
func (s KeySpace) Small(ceiling int64) bool {
	return s.Kind == SpaceEnumerable && s.Size != nil && s.Size.Cmp(big.NewInt(ceiling)) <= 0
}

// enumerable builds an enumerable space over ints in [lo, hi].
func enumerable(lo, hi int, key func(int) keys.Key) KeySpace {
	return KeySpace{
		Kind: SpaceEnumerable,
		Size: big.NewInt(int64(hi - lo + 1)),
		Keys: func(yield func(keys.Key) bool) {
			for i := lo; i <= hi; i++ {
				if !yield(key(i)) {
					return
				}
			}
		},
	}
}

// factorial returns n!.
func factorial(n int) *big.Int {
	return new(big.Int).MulRange(1, int64(max(n, 1)))
}

// swapPositions draws two distinct indices in [0, n). n must be at least 2.
func swapPositions(n int, rng *rand.Rand) (int, int) {
	i := rng.IntN(n)
	j := rng.IntN(n - 1)
	if j >= i {
		j++
	}
	return i, j
}

// -----------------------------------------------------------------------------
// Registry
// -----------------------------------------------------------------------------

var registry = map[string]func() Adapter{
	"caesar":       func() Adapter { return NewCaesar() },
	"substitution": func() Adapter { return NewSubstitution() },
	"railfence":    func() Adapter { return NewRailFence() },
	"bacon":        func() Adapter { return NewBacon() },
	"polybius":     func() Adapter { return NewPolybius() },
}

// Lookup returns a fresh adapter by name.
func Lookup(name string) (Adapter, error) {
	ctor, ok := registry[name]
	if !ok {
		return nil, breakerr.NewConfigurationError("cipher", fmt.Sprintf("unknown cipher %q (known: %v)", name, Names()))
	}
	return ctor(), nil
}

// Names returns the registered adapter names, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ParseKey parses a key in the textual form the named adapter accepts, as
// produced by Key.String().
func ParseKey(a Adapter, text string) (keys.Key, error) {
	p, ok := a.(interface {
		ParseKey(string) (keys.Key, error)
	})
	if !ok {
		return nil, breakerr.NewConfigurationError("key", fmt.Sprintf("adapter %s cannot parse keys", a.Name()))
	}
	return p.ParseKey(text)
}

// Encrypt applies the adapter's forward transform. Shift, rail, Baconian and
// grid keys decrypt with the same key; a substitution key decrypts with its
// Inverse.
func Encrypt(a Adapter, key keys.Key, plaintext string) (string, error) {
	e, ok := a.(interface {
		Encrypt(keys.Key, string) (string, error)
	})
	if !ok {
		return "", breakerr.NewConfigurationError("cipher", fmt.Sprintf("adapter %s cannot encrypt", a.Name()))
	}
	return e.Encrypt(key, plaintext)
}

// IsKnown reports whether name is registered.
func IsKnown(name string) bool {
	return slices.Contains(Names(), name)
}
