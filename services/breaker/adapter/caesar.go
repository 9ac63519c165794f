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
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"

	"github.com/AleutianAI/cipherbreak/services/breaker/breakerr"
	"github.com/AleutianAI/cipherbreak/services/breaker/keys"
)

// caesarModulus is the size of the Latin alphabet the shift wraps over.
const caesarModulus = 26

// Caesar is the shift cipher over A-Z. Case is preserved; every other rune
// passes through unchanged.
//
// Keys are keys.Shift in [0, 26). Apply undoes an encryption shift of k.
type Caesar struct{}

// NewCaesar creates a Caesar adapter.
func NewCaesar() *Caesar { return &Caesar{} }

// Name implements Adapter.
func (c *Caesar) Name() string { return "caesar" }

// Apply implements Adapter.
func (c *Caesar) Apply(key keys.Key, ciphertext string) (string, error) {
	k, err := c.shift(key)
	if err != nil {
		return "", err
	}
	return shiftText(ciphertext, caesarModulus-k), nil
}

// Encrypt shifts plaintext forward by key. Used to build fixtures.
func (c *Caesar) Encrypt(key keys.Key, plaintext string) (string, error) {
	k, err := c.shift(key)
	if err != nil {
		return "", err
	}
	return shiftText(plaintext, k), nil
}

// KeySpace implements Adapter. Every shift is tried, including zero.
func (c *Caesar) KeySpace(string) (KeySpace, error) {
	return enumerable(0, caesarModulus-1, func(i int) keys.Key { return keys.Shift(i) }), nil
}

// Mutate implements Adapter by moving to a different random shift.
func (c *Caesar) Mutate(key keys.Key, rng *rand.Rand) (keys.Key, error) {
	k, err := c.shift(key)
	if err != nil {
		return nil, err
	}
	return keys.Shift((k + 1 + rng.IntN(caesarModulus-1)) % caesarModulus), nil
}

// ParseKey reads a decimal shift, reduced modulo 26.
func (c *Caesar) ParseKey(text string) (keys.Key, error) {
	n, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil {
		return nil, breakerr.NewConfigurationError("key", fmt.Sprintf("caesar key must be an integer: %v", err))
	}
	return keys.Shift(((n % caesarModulus) + caesarModulus) % caesarModulus), nil
}

func (c *Caesar) shift(key keys.Key) (int, error) {
	s, ok := key.(keys.Shift)
	if !ok {
		return 0, breakerr.NewAdapterError(c.Name(), keyString(key), fmt.Errorf("want keys.Shift, got %T", key))
	}
	if s < 0 || s >= caesarModulus {
		return 0, breakerr.NewAdapterError(c.Name(), s.String(), fmt.Errorf("shift outside [0, %d)", caesarModulus))
	}
	return int(s), nil
}

// shiftText rotates every ASCII letter forward by k, preserving case.
func shiftText(text string, k int) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		switch {
		case r >= 'A' && r <= 'Z':
			b.WriteRune('A' + (r-'A'+rune(k))%caesarModulus)
		case r >= 'a' && r <= 'z':
			b.WriteRune('a' + (r-'a'+rune(k))%caesarModulus)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// keyString renders a possibly nil key for error messages.
func keyString(key keys.Key) string {
	if key == nil {
		return "<nil>"
	}
	return key.String()
}
