// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package eval lets search strategies declare the invariants they guarantee
// and the metrics they expose, so both can be checked uniformly.
package eval

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"
)

// -----------------------------------------------------------------------------
// Errors
// -----------------------------------------------------------------------------

var (
	// ErrAlreadyRegistered is returned when a name is registered twice.
	ErrAlreadyRegistered = errors.New("component already registered")

	// ErrNilComponent is returned when registering nil.
	ErrNilComponent = errors.New("component must not be nil")

	// ErrInvalidProperty is returned when a property is malformed.
	ErrInvalidProperty = errors.New("invalid property definition")

	// ErrPropertyFailed is returned when a property check fails.
	ErrPropertyFailed = errors.New("property check failed")
)

// -----------------------------------------------------------------------------
// Core Interfaces
// -----------------------------------------------------------------------------

// Evaluable is implemented by every search strategy.
//
// Thread Safety: Implementations must be safe for concurrent use.
type Evaluable interface {
	// Name returns a stable identifier suitable for metric labels
	// (lowercase, underscore-separated). Example: "simulated_annealing".
	Name() string

	// Properties returns the invariants this component guarantees for every
	// (input, output) pair it produces.
	Properties() []Property

	// Metrics returns the metrics this component exposes.
	Metrics() []MetricDefinition

	// HealthCheck runs a tiny end-to-end self test.
	//
	// Inputs:
	//   - ctx: Context for cancellation. Must not be nil.
	//
	// Outputs:
	//   - error: nil if healthy, descriptive error otherwise.
	HealthCheck(ctx context.Context) error
}

// -----------------------------------------------------------------------------
// Property Definition
// -----------------------------------------------------------------------------

// Property is one checkable invariant.
//
// Example:
//
//	Property{
//	    Name:        "best_is_top_candidate",
//	    Description: "Outcome.Best equals the first ranked candidate",
//	    Check:       func(input, output any) error { ... },
//	}
type Property struct {
	// Name is lowercase with underscores.
	Name string

	// Description is a complete sentence.
	Description string

	// Check returns nil if the property holds for input and output.
	Check func(input any, output any) error

	// Tags categorize the property, e.g. TagCritical.
	Tags []string
}

// TagCritical marks a property whose violation means the output is wrong,
// not merely suboptimal.
const TagCritical = "critical"

// Validate checks that the property is well-formed.
func (p *Property) Validate() error {
	switch {
	case p.Name == "":
		return fmt.Errorf("%w: name is required", ErrInvalidProperty)
	case p.Description == "":
		return fmt.Errorf("%w: description is required for %s", ErrInvalidProperty, p.Name)
	case p.Check == nil:
		return fmt.Errorf("%w: check function is required for %s", ErrInvalidProperty, p.Name)
	}
	return nil
}

// HasTag reports whether the property carries tag.
func (p *Property) HasTag(tag string) bool {
	return slices.Contains(p.Tags, tag)
}

// -----------------------------------------------------------------------------
// Metric Definition
// -----------------------------------------------------------------------------

// MetricType identifies the type of metric.
type MetricType int

const (
	// MetricCounter is a monotonically increasing value.
	MetricCounter MetricType = iota
	// MetricGauge is a value that can go up or down.
	MetricGauge
	// MetricHistogram records observations in buckets.
	MetricHistogram
)

// String returns the string representation of a MetricType.
func (m MetricType) String() string {
	switch m {
	case MetricCounter:
		return "counter"
	case MetricGauge:
		return "gauge"
	case MetricHistogram:
		return "histogram"
	default:
		return fmt.Sprintf("metric_type(%d)", m)
	}
}

// MetricDefinition describes a metric exposed by a component.
type MetricDefinition struct {
	// Name follows Prometheus conventions, e.g. "cipherbreak_strategy_runs_total".
	Name string

	Type        MetricType
	Description string
	Labels      []string

	// Buckets are histogram bucket boundaries. Histograms only.
	Buckets []float64
}

// Validate checks that the metric definition is well-formed.
func (m *MetricDefinition) Validate() error {
	if m.Name == "" {
		return errors.New("metric name is required")
	}
	if m.Description == "" {
		return errors.New("metric description is required")
	}
	if m.Type == MetricHistogram && len(m.Buckets) == 0 {
		return errors.New("histogram metrics require buckets")
	}
	return nil
}

// -----------------------------------------------------------------------------
// Results
// -----------------------------------------------------------------------------

// VerifyResult is the outcome of checking every property of one component
// against one (input, output) pair.
type VerifyResult struct {
	Component  string
	Properties []PropertyResult
	Duration   time.Duration
	Passed     bool
}

// FailedProperties returns the properties that failed.
func (r *VerifyResult) FailedProperties() []PropertyResult {
	var failed []PropertyResult
	for _, pr := range r.Properties {
		if !pr.Passed {
			failed = append(failed, pr)
		}
	}
	return failed
}

// Err joins every failure into one error wrapping ErrPropertyFailed, or nil.
func (r *VerifyResult) Err() error {
	var errs []error
	for _, pr := range r.FailedProperties() {
		errs = append(errs, fmt.Errorf("%w: %s.%s: %w", ErrPropertyFailed, r.Component, pr.Name, pr.Error))
	}
	return errors.Join(errs...)
}

// PropertyResult is the outcome of one property check.
type PropertyResult struct {
	Name     string
	Passed   bool
	Error    error
	Critical bool
}

// HealthStatus represents the health state of a component.
type HealthStatus int

const (
	// HealthUnknown is the zero value.
	HealthUnknown HealthStatus = iota
	// HealthHealthy indicates the component is functioning correctly.
	HealthHealthy
	// HealthUnhealthy indicates the self test failed.
	HealthUnhealthy
)

// String returns the string representation of a HealthStatus.
func (h HealthStatus) String() string {
	switch h {
	case HealthUnknown:
		return "unknown"
	case HealthHealthy:
		return "healthy"
	case HealthUnhealthy:
		return "unhealthy"
	default:
		return fmt.Sprintf("health_status(%d)", h)
	}
}

// HealthResult contains the result of a health check.
type HealthResult struct {
	Component string        `json:"component"`
	Status    HealthStatus  `json:"-"`
	State     string        `json:"status"`
	Message   string        `json:"message"`
	Duration  time.Duration `json:"duration_ns"`
}
