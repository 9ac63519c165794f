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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const alpha = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"

func TestNewPermutation(t *testing.T) {
	tests := []struct {
		name     string
		alphabet string
		image    string
		wantErr  error
	}{
		{"identity", alpha, alpha, nil},
		{"reversed", alpha, "ZYXWVUTSRQPONMLKJIHGFEDCBA", nil},
		{"short image", alpha, "ABC", ErrNotBijective},
		{"duplicate plain", "ABC", "AAB", ErrNotBijective},
		{"foreign symbol", "ABC", "ABZ", ErrNotBijective},
		{"duplicate alphabet", "ABA", "ABA", ErrNotBijective},
		{"empty", "", "", ErrEmptyAlphabet},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewPermutation(tt.alphabet, tt.image)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.True(t, p.IsZero())
				return
			}
			require.NoError(t, err)
			assert.True(t, p.Bijective())
			assert.Equal(t, tt.image, p.Image())
		})
	}
}

func TestPermutation_SwapReturnsNewValue(t *testing.T) {
	p := Identity(alpha)

	q, err := p.Swap(0, 25)
	require.NoError(t, err)

	assert.Equal(t, alpha, p.Image(), "original is untouched")
	assert.Equal(t, "ZBCDEFGHIJKLMNOPQRSTUVWXYA", q.Image())
	assert.True(t, q.Bijective())
	assert.False(t, p.Equal(q))

	_, err = p.Swap(-1, 3)
	assert.ErrorIs(t, err, ErrIndexRange)
	_, err = p.Swap(0, 26)
	assert.ErrorIs(t, err, ErrIndexRange)
}

func TestPermutation_Inverse(t *testing.T) {
	p := MustPermutation(alpha, "QWERTYUIOPASDFGHJKLZXCVBNM")
	inv := p.Inverse()

	require.True(t, inv.Bijective())
	for _, r := range alpha {
		plain, ok := p.Map(r)
		require.True(t, ok)
		back, ok := inv.Map(plain)
		require.True(t, ok)
		assert.Equal(t, r, back)
	}
	assert.True(t, inv.Inverse().Equal(p))
}

func TestPermutation_Map(t *testing.T) {
	p := MustPermutation("ABC", "CAB")

	got, ok := p.Map('A')
	assert.True(t, ok)
	assert.Equal(t, 'C', got)

	got, ok = p.Map('!')
	assert.False(t, ok)
	assert.Equal(t, '!', got)
}

func TestPermutation_String(t *testing.T) {
	assert.Equal(t, "ABC->CAB", MustPermutation("ABC", "CAB").String())
}

func TestKeys_Equal(t *testing.T) {
	assert.True(t, Shift(3).Equal(Shift(3)))
	assert.False(t, Shift(3).Equal(Shift(4)))
	assert.False(t, Shift(3).Equal(Rails(3)))
	assert.True(t, Rails(5).Equal(Rails(5)))
	assert.Equal(t, "3", Shift(3).String())
	assert.False(t, Identity("AB").Equal(Shift(0)))
}
