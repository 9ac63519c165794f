// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package breakerr defines the error taxonomy shared by the key-recovery engine.
//
// Every typed error unwraps to one of the sentinels below, so callers can
// branch with errors.Is without caring about the concrete type:
//
//	if errors.Is(err, breakerr.ErrDomainSize) {
//	    // fall back to a heuristic strategy
//	}
package breakerr

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
)

// -----------------------------------------------------------------------------
// Sentinels
// -----------------------------------------------------------------------------

var (
	// ErrConfiguration marks malformed configuration, key-space descriptors,
	// missing language tables, or empty ciphertext.
	ErrConfiguration = errors.New("configuration error")

	// ErrAdapter marks a cipher adapter rejecting a structurally invalid key.
	ErrAdapter = errors.New("adapter error")

	// ErrDomainSize marks an exhaustive search over a key space that is too large.
	ErrDomainSize = errors.New("key space too large for exhaustive search")

	// ErrAllStrategiesFailed marks an ensemble run in which no strategy produced
	// a candidate.
	ErrAllStrategiesFailed = errors.New("all strategies failed")
)

// -----------------------------------------------------------------------------
// ConfigurationError
// -----------------------------------------------------------------------------

// ConfigurationError reports an invalid input to the engine itself.
type ConfigurationError struct {
	// Field names the offending option or input, e.g. "ciphertext".
	Field string

	// Reason is a human-readable description.
	Reason string
}

// NewConfigurationError creates a ConfigurationError.
func NewConfigurationError(field, reason string) *ConfigurationError {
	return &ConfigurationError{Field: field, Reason: reason}
}

func (e *ConfigurationError) Error() string {
	if e.Field == "" {
		return "configuration error: " + e.Reason
	}
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Reason)
}

// Unwrap returns ErrConfiguration.
func (e *ConfigurationError) Unwrap() error {
	return ErrConfiguration
}

// -----------------------------------------------------------------------------
// AdapterError
// -----------------------------------------------------------------------------

// AdapterError reports a key the adapter cannot apply.
//
// Seeding and mutation build valid keys by construction, so an AdapterError
// reaching a caller indicates a programming bug and must not be retried.
type AdapterError struct {
	// Adapter is the adapter name, e.g. "substitution".
	Adapter string

	// Key is the rendered key that was rejected.
	Key string

	// Err is the underlying cause.
	Err error
}

// NewAdapterError creates an AdapterError.
func NewAdapterError(adapter, key string, err error) *AdapterError {
	return &AdapterError{Adapter: adapter, Key: key, Err: err}
}

func (e *AdapterError) Error() string {
	msg := fmt.Sprintf("adapter %s rejected key %q", e.Adapter, e.Key)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns ErrAdapter and the underlying cause.
func (e *AdapterError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrAdapter}
	}
	return []error{ErrAdapter, e.Err}
}

// -----------------------------------------------------------------------------
// DomainSizeError
// -----------------------------------------------------------------------------

// DomainSizeError reports a key space above the exhaustive-search ceiling.
type DomainSizeError struct {
	// Size is the declared key-space size.
	Size *big.Int

	// Ceiling is the largest size exhaustive search accepts.
	Ceiling int64
}

// NewDomainSizeError creates a DomainSizeError.
func NewDomainSizeError(size *big.Int, ceiling int64) *DomainSizeError {
	return &DomainSizeError{Size: size, Ceiling: ceiling}
}

func (e *DomainSizeError) Error() string {
	size := "unknown"
	if e.Size != nil {
		size = e.Size.String()
	}
	return fmt.Sprintf("key space of %s keys exceeds exhaustive ceiling %d; use a heuristic strategy", size, e.Ceiling)
}

// Unwrap returns ErrDomainSize.
func (e *DomainSizeError) Unwrap() error {
	return ErrDomainSize
}

// -----------------------------------------------------------------------------
// AggregateError
// -----------------------------------------------------------------------------

// StrategyFailure is the first failure recorded for one strategy.
type StrategyFailure struct {
	Strategy string
	Err      error
}

// AggregateError is returned when every configured strategy failed.
type AggregateError struct {
	Failures []StrategyFailure
}

// NewAggregateError creates an AggregateError from per-strategy failures.
func NewAggregateError(failures []StrategyFailure) *AggregateError {
	return &AggregateError{Failures: failures}
}

func (e *AggregateError) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, f.Strategy+": "+f.Err.Error())
	}
	return fmt.Sprintf("%s (%d): %s", ErrAllStrategiesFailed, len(e.Failures), strings.Join(parts, "; "))
}

// Unwrap returns ErrAllStrategiesFailed followed by every recorded failure.
func (e *AggregateError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures)+1)
	errs = append(errs, ErrAllStrategiesFailed)
	for _, f := range e.Failures {
		errs = append(errs, f.Err)
	}
	return errs
}
