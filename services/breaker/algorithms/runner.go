// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package algorithms

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/cipherbreak/services/breaker/eval"
)

// -----------------------------------------------------------------------------
// Runner
// -----------------------------------------------------------------------------

// Job pairs a strategy with the problem it should solve.
type Job struct {
	// Label identifies the job in logs and results, e.g. "sa_pattern".
	// Defaults to the strategy name.
	Label string

	Strategy Strategy
	Problem  *Problem
}

// Result is the outcome of one Job.
type Result struct {
	Label     string
	Strategy  string
	Outcome   *Outcome
	Err       error
	Duration  time.Duration
	Cancelled bool

	// Violations lists failed property checks when verification is enabled.
	Violations []eval.PropertyResult
}

// Success reports whether the job produced at least one candidate without error.
func (r *Result) Success() bool {
	return r.Err == nil && r.Outcome != nil && len(r.Outcome.Candidates) > 0
}

// Runner executes jobs concurrently and joins their results.
//
// Description:
//
//	Jobs run on a bounded errgroup. A failing job never cancels its
//	siblings: its error is recorded in its Result and the group sees nil.
//	Results are returned in job order only after every job has finished.
//
// Thread Safety: Safe for concurrent use; each Execute call is independent.
type Runner struct {
	limit  int
	verify bool
	logger *slog.Logger
	tracer trace.Tracer
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithConcurrency caps the number of jobs in flight. <= 0 means GOMAXPROCS.
func WithConcurrency(n int) RunnerOption {
	return func(r *Runner) { r.limit = n }
}

// WithVerification checks each outcome against its strategy's properties and
// records violations on the Result.
func WithVerification(on bool) RunnerOption {
	return func(r *Runner) { r.verify = on }
}

// WithRunnerLogger sets the logger. nil means slog.Default().
func WithRunnerLogger(l *slog.Logger) RunnerOption {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewRunner creates a Runner.
func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{logger: slog.Default(), tracer: otel.Tracer("cipherbreak/algorithms")}
	for _, opt := range opts {
		opt(r)
	}
	if r.limit <= 0 {
		r.limit = runtime.GOMAXPROCS(0)
	}
	r.logger = r.logger.With(slog.String("component", "strategy_runner"))
	return r
}

// Execute runs every job and returns one Result per job, in job order.
//
// Inputs:
//   - ctx: Passed to every strategy. Cancellation stops all jobs at their
//     next iteration boundary.
//   - jobs: The jobs. Each must own its Problem.RNG.
//
// Outputs:
//   - []*Result: Never nil; len(jobs) entries.
func (r *Runner) Execute(ctx context.Context, jobs []Job) []*Result {
	results := make([]*Result, len(jobs))

	g := new(errgroup.Group)
	g.SetLimit(r.limit)
	for i, job := range jobs {
		g.Go(func() error {
			results[i] = r.run(ctx, job)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (r *Runner) run(ctx context.Context, job Job) (res *Result) {
	name := job.Strategy.Name()
	label := job.Label
	if label == "" {
		label = name
	}
	res = &Result{Label: label, Strategy: name}
	start := time.Now()

	ctx, span := r.tracer.Start(ctx, "strategy."+name,
		trace.WithAttributes(
			attribute.String("strategy", name),
			attribute.String("label", label),
		),
	)
	defer span.End()

	defer func() {
		if p := recover(); p != nil {
			res.Err = &AlgorithmError{Algorithm: name, Operation: "Search", Err: fmt.Errorf("panic: %v", p)}
		}
		res.Duration = time.Since(start)
		r.finish(span, job, res)
	}()

	res.Outcome, res.Err = job.Strategy.Search(ctx, job.Problem)
	if res.Err != nil && (errors.Is(res.Err, context.Canceled) || errors.Is(res.Err, context.DeadlineExceeded)) {
		res.Cancelled = true
	}
	if res.Err == nil && (res.Outcome == nil || len(res.Outcome.Candidates) == 0) {
		res.Err = &AlgorithmError{Algorithm: name, Operation: "Search", Err: ErrNoCandidates}
	}
	if r.verify && res.Err == nil {
		v := eval.VerifyOutcome(job.Strategy, job.Problem, res.Outcome)
		res.Violations = v.FailedProperties()
	}
	return res
}

func (r *Runner) finish(span trace.Span, job Job, res *Result) {
	status := "success"
	switch {
	case res.Cancelled:
		status = "cancelled"
	case res.Err != nil:
		status = "failure"
	}

	evaluations := 0
	if res.Outcome != nil {
		evaluations = res.Outcome.Evaluations
		span.SetAttributes(
			attribute.Int("iterations", res.Outcome.Iterations),
			attribute.Int("evaluations", evaluations),
			attribute.Float64("best_score", res.Outcome.Best.Score),
		)
	}
	span.SetAttributes(
		attribute.Int64("duration_ms", res.Duration.Milliseconds()),
		attribute.String("status", status),
	)
	RecordRun(res.Strategy, status, res.Duration.Seconds(), evaluations)

	if res.Err != nil {
		span.RecordError(res.Err)
		span.SetStatus(codes.Error, res.Err.Error())
		if !res.Cancelled {
			r.logger.Warn("strategy failed",
				slog.String("label", res.Label),
				slog.Duration("duration", res.Duration),
				slog.String("error", res.Err.Error()),
			)
			return
		}
	}
	for _, v := range res.Violations {
		level := slog.LevelWarn
		if v.Critical {
			level = slog.LevelError
		}
		r.logger.LogAttrs(context.Background(), level, "strategy property violated",
			slog.String("label", res.Label),
			slog.String("property", v.Name),
			slog.Bool("critical", v.Critical),
			slog.Any("error", v.Error),
		)
	}
	r.logger.Debug("strategy completed",
		slog.String("label", res.Label),
		slog.Duration("duration", res.Duration),
		slog.Int("evaluations", evaluations),
		slog.Bool("cancelled", res.Cancelled),
	)
}
