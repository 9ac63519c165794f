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
	"math/rand/v2"
	"strconv"
	"strings"

	"github.com/AleutianAI/cipherbreak/services/breaker/breakerr"
	"github.com/AleutianAI/cipherbreak/services/breaker/keys"
)

// DefaultMaxRails is the largest rail count a RailFence key space includes.
const DefaultMaxRails = 20

// RailFence is the zigzag transposition cipher.
//
// Description:
//
//	Every rune, spaces and punctuation included, takes part in the zigzag.
//	Keys are keys.Rails values of at least 2. The key space for a
//	ciphertext of n runes is rails 2..min(MaxRails, n).
type RailFence struct {
	// MaxRails caps the key space.
	MaxRails int
}

// NewRailFence creates a RailFence adapter with DefaultMaxRails.
func NewRailFence() *RailFence { return &RailFence{MaxRails: DefaultMaxRails} }

// Name implements Adapter.
func (f *RailFence) Name() string { return "railfence" }

// Apply implements Adapter.
func (f *RailFence) Apply(key keys.Key, ciphertext string) (string, error) {
	n, err := f.rails(key)
	if err != nil {
		return "", err
	}
	text := []rune(ciphertext)
	pattern := zigzag(len(text), n)

	// Rail r occupies a contiguous run of ciphertext; hand it out in order.
	starts := make([]int, n+1)
	for _, r := range pattern {
		starts[r+1]++
	}
	for r := 1; r <= n; r++ {
		starts[r] += starts[r-1]
	}
	out := make([]rune, len(text))
	for i, r := range pattern {
		out[i] = text[starts[r]]
		starts[r]++
	}
	return string(out), nil
}

// Encrypt writes plaintext along the zigzag and reads it off rail by rail.
func (f *RailFence) Encrypt(key keys.Key, plaintext string) (string, error) {
	n, err := f.rails(key)
	if err != nil {
		return "", err
	}
	text := []rune(plaintext)
	rows := make([][]rune, n)
	for i, r := range zigzag(len(text), n) {
		rows[r] = append(rows[r], text[i])
	}
	var b strings.Builder
	b.Grow(len(plaintext))
	for _, row := range rows {
		b.WriteString(string(row))
	}
	return b.String(), nil
}

// KeySpace implements Adapter.
func (f *RailFence) KeySpace(ciphertext string) (KeySpace, error) {
	n := len([]rune(ciphertext))
	if n < 2 {
		return KeySpace{}, breakerr.NewConfigurationError("ciphertext", "rail fence needs at least two symbols")
	}
	hi := min(f.maxRails(), n)
	return enumerable(2, hi, func(i int) keys.Key { return keys.Rails(i) }), nil
}

// Mutate implements Adapter by moving to a different rail count within
// 2..MaxRails.
func (f *RailFence) Mutate(key keys.Key, rng *rand.Rand) (keys.Key, error) {
	n, err := f.rails(key)
	if err != nil {
		return nil, err
	}
	span := f.maxRails() - 1 // number of valid rail counts
	if span < 2 {
		return key, nil
	}
	next := 2 + (n-2+1+rng.IntN(span-1))%span
	return keys.Rails(next), nil
}

// ParseKey reads a decimal rail count.
func (f *RailFence) ParseKey(text string) (keys.Key, error) {
	n, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil || n < 2 {
		return nil, breakerr.NewConfigurationError("key", "rail fence key must be an integer >= 2")
	}
	return keys.Rails(n), nil
}

func (f *RailFence) maxRails() int {
	if f.MaxRails < 2 {
		return DefaultMaxRails
	}
	return f.MaxRails
}

func (f *RailFence) rails(key keys.Key) (int, error) {
	r, ok := key.(keys.Rails)
	if !ok {
		return 0, breakerr.NewAdapterError(f.Name(), keyString(key), fmt.Errorf("want keys.Rails, got %T", key))
	}
	if r < 2 {
		return 0, breakerr.NewAdapterError(f.Name(), r.String(), errors.New("need at least 2 rails"))
	}
	return int(r), nil
}

// zigzag returns the rail index of each of n positions over rails rails.
func zigzag(n, rails int) []int {
	pattern := make([]int, n)
	r, step := 0, 1
	for i := range pattern {
		pattern[i] = r
		switch {
		case r == 0:
			step = 1
		case r == rails-1:
			step = -1
		}
		r += step
	}
	return pattern
}
