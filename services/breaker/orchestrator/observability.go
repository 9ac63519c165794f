// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package orchestrator

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const instrumentationName = "cipherbreak/orchestrator"

var meter = otel.Meter(instrumentationName)

var (
	runsTotal      metric.Int64Counter
	failuresTotal  metric.Int64Counter
	cacheHitsTotal metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics creates the instruments. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		runsTotal, err = meter.Int64Counter(
			"cipherbreak.autodecrypt.runs",
			metric.WithDescription("Key-recovery runs by adapter and status"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		failuresTotal, err = meter.Int64Counter(
			"cipherbreak.autodecrypt.failures",
			metric.WithDescription("Ensemble attempts that produced no candidate"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		cacheHitsTotal, err = meter.Int64Counter(
			"cipherbreak.autodecrypt.cache_hits",
			metric.WithDescription("Runs answered from the result store"),
		)
		if err != nil {
			metricsErr = err
		}
	})
	return metricsErr
}

func recordRun(ctx context.Context, adapterName, status string) {
	if initMetrics() != nil {
		return
	}
	runsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("adapter", adapterName),
		attribute.String("status", status),
	))
}

func recordFailure(ctx context.Context, label string) {
	if initMetrics() != nil {
		return
	}
	failuresTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("variant", label)))
}

func recordCacheHit(ctx context.Context, adapterName string) {
	if initMetrics() != nil {
		return
	}
	cacheHitsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("adapter", adapterName)))
}

// runTracer opens spans around orchestrator entry points.
//
// Thread Safety: Safe for concurrent use.
type runTracer struct {
	tracer  trace.Tracer
	enabled bool
}

func newRunTracer(enabled bool) *runTracer {
	return &runTracer{tracer: otel.Tracer(instrumentationName), enabled: enabled}
}

// start opens a span named op. Returns a noop span when tracing is off.
func (t *runTracer) start(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if !t.enabled {
		return ctx, noop.Span{}
	}
	return t.tracer.Start(ctx, op,
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// end records the result on span and ends it.
func (t *runTracer) end(span trace.Span, candidates int, err error) {
	span.SetAttributes(attribute.Int("cipherbreak.candidates", candidates))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
