// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package breakerr

import (
	"errors"
	"fmt"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSentinelMatching(t *testing.T) {
	cause := errors.New("duplicate plain letter")

	tests := []struct {
		name     string
		err      error
		sentinel error
	}{
		{"configuration", NewConfigurationError("ciphertext", "must not be empty"), ErrConfiguration},
		{"adapter", NewAdapterError("substitution", "ABC", cause), ErrAdapter},
		{"adapter cause", NewAdapterError("substitution", "ABC", cause), cause},
		{"domain size", NewDomainSizeError(big.NewInt(1<<30), 1<<20), ErrDomainSize},
		{"aggregate", NewAggregateError([]StrategyFailure{{Strategy: "genetic", Err: cause}}), ErrAllStrategiesFailed},
		{"aggregate member", NewAggregateError([]StrategyFailure{{Strategy: "genetic", Err: cause}}), cause},
		{"wrapped", fmt.Errorf("run: %w", NewConfigurationError("", "bad")), ErrConfiguration},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.err, tt.sentinel)
		})
	}
}

func TestAggregateError_ListsEveryStrategy(t *testing.T) {
	agg := NewAggregateError([]StrategyFailure{
		{Strategy: "hill_climbing", Err: errors.New("first")},
		{Strategy: "genetic", Err: NewConfigurationError("alphabet", "empty")},
	})

	msg := agg.Error()
	assert.Contains(t, msg, "hill_climbing: first")
	assert.Contains(t, msg, "genetic: configuration error: alphabet: empty")
	assert.Contains(t, msg, "(2)")

	var cfgErr *ConfigurationError
	require.ErrorAs(t, agg, &cfgErr)
	assert.Equal(t, "alphabet", cfgErr.Field)
}

func TestDomainSizeError_Message(t *testing.T) {
	err := NewDomainSizeError(big.NewInt(2_000_000), 1<<20)
	assert.Contains(t, err.Error(), "2000000")
	assert.Contains(t, err.Error(), "1048576")

	assert.Contains(t, NewDomainSizeError(nil, 10).Error(), "unknown")
}
