// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package eval

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Registry holds evaluable components by name.
//
// Thread Safety: Safe for concurrent use via read-write mutex.
type Registry struct {
	mu         sync.RWMutex
	components map[string]Evaluable
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{components: make(map[string]Evaluable)}
}

// Register adds a component under its Name().
//
// Outputs:
//   - error: ErrNilComponent if component is nil, ErrAlreadyRegistered if
//     the name is taken.
//
// Thread Safety: Safe for concurrent use.
func (r *Registry) Register(component Evaluable) error {
	if component == nil {
		return ErrNilComponent
	}
	name := component.Name()

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.components[name]; exists {
		return fmt.Errorf("%w: %s", ErrAlreadyRegistered, name)
	}
	r.components[name] = component
	return nil
}

// Get retrieves a component by name.
func (r *Registry) Get(name string) (Evaluable, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.components[name]
	return c, ok
}

// List returns all registered names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.components))
	for name := range r.components {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// VerifyOutcome checks every property of component against one
// (input, output) pair. A malformed property counts as failed.
func VerifyOutcome(component Evaluable, input, output any) *VerifyResult {
	start := time.Now()
	res := &VerifyResult{Component: component.Name(), Passed: true}
	for _, p := range component.Properties() {
		pr := PropertyResult{Name: p.Name, Passed: true, Critical: p.HasTag(TagCritical)}
		if err := p.Validate(); err != nil {
			pr.Passed, pr.Error = false, err
		} else if err := p.Check(input, output); err != nil {
			pr.Passed, pr.Error = false, err
		}
		res.Passed = res.Passed && pr.Passed
		res.Properties = append(res.Properties, pr)
	}
	res.Duration = time.Since(start)
	return res
}

// HealthCheckAll runs every component's health check with at most
// concurrency checks in flight (10 if concurrency <= 0). Results are sorted
// by component name; failures are reported, never returned as errors.
//
// Thread Safety: Safe for concurrent use.
func (r *Registry) HealthCheckAll(ctx context.Context, concurrency int) []HealthResult {
	if concurrency <= 0 {
		concurrency = 10
	}
	names := r.List()
	results := make([]HealthResult, len(names))

	g := new(errgroup.Group)
	g.SetLimit(concurrency)
	for i, name := range names {
		component, _ := r.Get(name)
		g.Go(func() error {
			res := HealthResult{Component: name}
			if err := ctx.Err(); err != nil {
				res.Status, res.Message = HealthUnknown, "context cancelled"
			} else {
				start := time.Now()
				err := component.HealthCheck(ctx)
				res.Duration = time.Since(start)
				if err != nil {
					res.Status, res.Message = HealthUnhealthy, err.Error()
				} else {
					res.Status, res.Message = HealthHealthy, "OK"
				}
			}
			res.State = res.Status.String()
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// Healthy reports whether every result is HealthHealthy.
func Healthy(results []HealthResult) bool {
	for _, r := range results {
		if r.Status != HealthHealthy {
			return false
		}
	}
	return true
}
