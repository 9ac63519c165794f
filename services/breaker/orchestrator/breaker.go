// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package orchestrator runs key-recovery strategies against one adapter and
// merges their candidates.
//
// # Overview
//
// A Breaker owns an adapter, a shared scorer and a strategy runner.
// AutoDecrypt picks exhaustive search for small enumerable key spaces and
// an ensemble of Variants otherwise; every variant gets its own RNG derived
// from the budget seed, runs concurrently, and contributes candidates to
// one ranking. A failing variant is logged and skipped unless every
// variant fails.
//
// # Reproducibility
//
// With Budget.Seed != 0 the run is fully reproducible and, when a store is
// attached, cached by fingerprint. Seed 0 draws from entropy and is never
// cached.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/AleutianAI/cipherbreak/services/breaker/adapter"
	"github.com/AleutianAI/cipherbreak/services/breaker/algorithms"
	"github.com/AleutianAI/cipherbreak/services/breaker/algorithms/search"
	"github.com/AleutianAI/cipherbreak/services/breaker/breakerr"
	"github.com/AleutianAI/cipherbreak/services/breaker/keys"
	"github.com/AleutianAI/cipherbreak/services/breaker/language"
	"github.com/AleutianAI/cipherbreak/services/breaker/seed"
	"github.com/AleutianAI/cipherbreak/services/breaker/store"
)

// -----------------------------------------------------------------------------
// Configuration
// -----------------------------------------------------------------------------

// Config configures a Breaker.
type Config struct {
	// TopN is the ranking length used when a call passes topN <= 0.
	TopN int `json:"top_n" yaml:"top_n" validate:"gte=1,lte=1000"`

	// Concurrency caps variants in flight. 0 means GOMAXPROCS.
	Concurrency int `json:"concurrency" yaml:"concurrency" validate:"gte=0"`

	// ExhaustiveCeiling is the largest key space searched exhaustively.
	ExhaustiveCeiling int64 `json:"exhaustive_ceiling" yaml:"exhaustive_ceiling" validate:"gte=1"`

	// Verify checks every outcome against its strategy's properties and
	// logs violations.
	Verify bool `json:"verify" yaml:"verify"`

	// Tracing opens OpenTelemetry spans around each run.
	Tracing bool `json:"tracing" yaml:"tracing"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		TopN:              algorithms.DefaultKeep,
		ExhaustiveCeiling: search.DefaultCeiling,
		Tracing:           true,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	switch {
	case c.TopN < 1:
		return breakerr.NewConfigurationError("orchestrator.top_n", "must be >= 1")
	case c.Concurrency < 0:
		return breakerr.NewConfigurationError("orchestrator.concurrency", "must be >= 0")
	case c.ExhaustiveCeiling < 1:
		return breakerr.NewConfigurationError("orchestrator.exhaustive_ceiling", "must be >= 1")
	}
	return nil
}

// Budget bounds one AutoDecrypt call.
type Budget struct {
	// Scale multiplies every variant's iteration or generation budget.
	// <= 0 means 1.
	Scale float64 `json:"scale"`

	// Seed makes the run reproducible. 0 draws from entropy.
	Seed uint64 `json:"seed"`

	// Variants overrides the automatic plan when non-empty.
	Variants []Variant `json:"variants,omitempty"`
}

// Params configures one RunStrategy call. The embedded Variant carries the
// strategy configuration and seeding; its Kind is set from the strategy name.
type Params struct {
	Variant

	TopN  int
	Seed  uint64
	Scale float64

	// Start overrides seeding for local search.
	Start keys.Key
}

// -----------------------------------------------------------------------------
// Breaker
// -----------------------------------------------------------------------------

// Option configures a Breaker.
type Option func(*Breaker)

// WithLogger sets the logger. nil means slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(b *Breaker) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithStore caches seeded runs in s.
func WithStore(s *store.ResultStore) Option {
	return func(b *Breaker) { b.store = s }
}

// WithEnsemble replaces DefaultEnsemble in the automatic plan. Variants that
// do not support a key space are still skipped.
func WithEnsemble(vs []Variant) Option {
	return func(b *Breaker) {
		if len(vs) > 0 {
			b.ensemble = vs
		}
	}
}

// WithModel sets the language model used for frequency and pattern seeding.
// Defaults to the scorer's model when it exposes one.
func WithModel(m *language.Model) Option {
	return func(b *Breaker) { b.model = m }
}

// Breaker recovers keys for one cipher adapter.
//
// Thread Safety: Safe for concurrent use. The scorer and model are shared
// read-only; every run builds its own problems and RNGs.
type Breaker struct {
	adapter  adapter.Adapter
	scorer   algorithms.Scorer
	model    *language.Model
	config   Config
	ensemble []Variant
	store    *store.ResultStore
	runner   *algorithms.Runner
	tracer   *runTracer
	logger   *slog.Logger
}

// New creates a Breaker.
//
// Inputs:
//   - a: The cipher adapter. Required.
//   - scorer: Shared by every strategy. Required.
//   - config: Validated before use.
//   - opts: Logger, store, ensemble and model options.
//
// Outputs:
//   - *Breaker: Ready to use.
//   - error: *breakerr.ConfigurationError on a missing dependency or invalid config.
func New(a adapter.Adapter, scorer algorithms.Scorer, config Config, opts ...Option) (*Breaker, error) {
	if a == nil {
		return nil, breakerr.NewConfigurationError("adapter", "is required")
	}
	if scorer == nil {
		return nil, breakerr.NewConfigurationError("scorer", "is required")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	b := &Breaker{
		adapter: a,
		scorer:  scorer,
		config:  config,
		logger:  slog.Default(),
		tracer:  newRunTracer(config.Tracing),
	}
	if m, ok := scorer.(interface{ Model() *language.Model }); ok {
		b.model = m.Model()
	}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = b.logger.With(slog.String("component", "orchestrator"), slog.String("adapter", a.Name()))
	b.runner = algorithms.NewRunner(
		algorithms.WithConcurrency(config.Concurrency),
		algorithms.WithVerification(config.Verify),
		algorithms.WithRunnerLogger(b.logger),
	)
	return b, nil
}

// Adapter returns the cipher adapter.
func (b *Breaker) Adapter() adapter.Adapter { return b.adapter }

// Config returns the configuration.
func (b *Breaker) Config() Config { return b.config }

// AutoDecrypt ranks the most English-like decryptions of ciphertext.
//
// Description:
//
//	Small enumerable key spaces are searched exhaustively. Larger spaces
//	run budget.Variants, or the DefaultEnsemble filtered to the variants
//	that support the space. Candidates from every successful variant are
//	merged, deduplicated by plaintext and truncated to topN. The result is a
//	statistical best guess, not a certified decryption.
//
// Inputs:
//   - ctx: Cancels every variant at its next iteration boundary.
//   - ciphertext: Must contain a non-space rune.
//   - topN: Ranking length. <= 0 uses Config.TopN.
//   - budget: Scale, seed and optional variant override.
//
// Outputs:
//   - []algorithms.Candidate: Best first. On cancellation, the partial
//     ranking gathered so far alongside ctx.Err().
//   - error: *breakerr.ConfigurationError for empty input,
//     *breakerr.AggregateError when every variant failed, or ctx.Err().
func (b *Breaker) AutoDecrypt(ctx context.Context, ciphertext string, topN int, budget Budget) ([]algorithms.Candidate, error) {
	if strings.TrimSpace(ciphertext) == "" {
		return nil, breakerr.NewConfigurationError("ciphertext", "must not be empty")
	}
	if topN <= 0 {
		topN = b.config.TopN
	}

	runID := uuid.NewString()
	start := time.Now()
	ctx, span := b.tracer.start(ctx, "orchestrator.AutoDecrypt",
		attribute.String("cipherbreak.run_id", runID),
		attribute.String("cipherbreak.adapter", b.adapter.Name()),
		attribute.Int("cipherbreak.ciphertext_len", len(ciphertext)),
		attribute.Int("cipherbreak.top_n", topN),
		attribute.Float64("cipherbreak.scale", budget.Scale),
		attribute.Bool("cipherbreak.seeded", budget.Seed != 0),
	)

	ranked, cached, err := b.autoDecrypt(ctx, runID, ciphertext, topN, budget)
	b.tracer.end(span, len(ranked), err)
	recordRun(ctx, b.adapter.Name(), status(err))

	attrs := []any{
		slog.String("run_id", runID),
		slog.Int("candidates", len(ranked)),
		slog.Bool("cached", cached),
		slog.Duration("duration", time.Since(start)),
	}
	if len(ranked) > 0 {
		attrs = append(attrs, slog.Float64("best_score", ranked[0].Score))
	}
	if err != nil {
		b.logger.Warn("auto decrypt failed", append(attrs, slog.String("error", err.Error()))...)
	} else {
		b.logger.Info("auto decrypt completed", attrs...)
	}
	return ranked, err
}

func (b *Breaker) autoDecrypt(ctx context.Context, runID, ciphertext string, topN int, budget Budget) ([]algorithms.Candidate, bool, error) {
	var fingerprint string
	if b.store != nil && budget.Seed != 0 {
		fp, err := store.Fingerprint(b.adapter.Name(), ciphertext, topN, budget.Seed, budget.Scale,
			budget.Variants, b.ensemble, b.config.ExhaustiveCeiling, scorerIdentity(b.scorer))
		if err != nil {
			b.logger.Warn("fingerprint failed", slog.String("error", err.Error()))
		} else {
			fingerprint = fp
			if ranked, ok := b.cached(ctx, fingerprint); ok {
				recordCacheHit(ctx, b.adapter.Name())
				return ranked, true, nil
			}
		}
	}

	space, err := b.keySpace(ciphertext)
	if err != nil {
		return nil, false, err
	}
	variants := b.plan(space, budget)
	if len(variants) == 0 {
		return nil, false, breakerr.NewConfigurationError("variants", fmt.Sprintf("no strategy supports a %s key space", space.Kind))
	}

	base := budget.Seed
	if base == 0 {
		base = rand.Uint64()
	}

	var (
		jobs     []algorithms.Job
		failures []breakerr.StrategyFailure
	)
	for i, v := range variants {
		job, err := b.job(ciphertext, space, v, deriveSeed(base, i), budget.Scale, topN, nil)
		if err != nil {
			failures = append(failures, breakerr.StrategyFailure{Strategy: v.name(), Err: err})
			recordFailure(ctx, v.name())
			continue
		}
		jobs = append(jobs, job)
	}

	var lists [][]algorithms.Candidate
	for _, res := range b.runner.Execute(ctx, jobs) {
		if res.Outcome != nil && len(res.Outcome.Candidates) > 0 && (res.Err == nil || res.Cancelled) {
			lists = append(lists, res.Outcome.Candidates)
		}
		if res.Err != nil && !res.Cancelled {
			failures = append(failures, breakerr.StrategyFailure{Strategy: res.Label, Err: res.Err})
			recordFailure(ctx, res.Label)
		}
	}

	if len(lists) == 0 {
		if err := ctx.Err(); err != nil {
			return nil, false, err
		}
		return nil, false, breakerr.NewAggregateError(failures)
	}
	ranked := algorithms.Rank(topN, lists...)
	if err := ctx.Err(); err != nil {
		return ranked, false, err
	}

	if fingerprint != "" {
		b.save(ctx, runID, fingerprint, ranked)
	}
	return ranked, false, nil
}

// RunStrategy runs a single named strategy.
//
// Description:
//
//	Unlike AutoDecrypt, the strategy's error is returned as is. Local
//	search starts from params.Start, or from params.Seeding over the
//	model alphabet.
//
// Inputs:
//   - ctx: Cancels the run at its next iteration boundary.
//   - name: One of exhaustive, hill_climbing, simulated_annealing, genetic, hybrid.
//   - ciphertext: Must contain a non-space rune.
//   - params: Strategy configuration, seed and ranking length.
//
// Outputs:
//   - []algorithms.Candidate: Best first; partial on cancellation.
//   - error: The strategy's error, or *breakerr.ConfigurationError.
func (b *Breaker) RunStrategy(ctx context.Context, name, ciphertext string, params Params) ([]algorithms.Candidate, error) {
	kind, err := ParseKind(name)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(ciphertext) == "" {
		return nil, breakerr.NewConfigurationError("ciphertext", "must not be empty")
	}
	topN := params.TopN
	if topN <= 0 {
		topN = b.config.TopN
	}

	ctx, span := b.tracer.start(ctx, "orchestrator.RunStrategy",
		attribute.String("cipherbreak.adapter", b.adapter.Name()),
		attribute.String("cipherbreak.strategy", name),
		attribute.Int("cipherbreak.top_n", topN),
	)
	ranked, err := b.runStrategy(ctx, kind, ciphertext, topN, params)
	b.tracer.end(span, len(ranked), err)
	recordRun(ctx, b.adapter.Name(), status(err))
	return ranked, err
}

func (b *Breaker) runStrategy(ctx context.Context, kind Kind, ciphertext string, topN int, params Params) ([]algorithms.Candidate, error) {
	space, err := b.keySpace(ciphertext)
	if err != nil {
		return nil, err
	}
	v := params.Variant
	v.Kind = kind

	base := params.Seed
	if base == 0 {
		base = rand.Uint64()
	}
	job, err := b.job(ciphertext, space, v, deriveSeed(base, 0), params.Scale, topN, params.Start)
	if err != nil {
		return nil, err
	}

	res := b.runner.Execute(ctx, []algorithms.Job{job})[0]
	var ranked []algorithms.Candidate
	if res.Outcome != nil {
		ranked = algorithms.Rank(topN, res.Outcome.Candidates)
	}
	return ranked, res.Err
}

// keySpace returns the adapter's validated key space for ciphertext.
func (b *Breaker) keySpace(ciphertext string) (adapter.KeySpace, error) {
	space, err := b.adapter.KeySpace(ciphertext)
	if err != nil {
		return adapter.KeySpace{}, err
	}
	if err := space.Validate(); err != nil {
		return adapter.KeySpace{}, err
	}
	return space, nil
}

// plan picks the variants for space.
func (b *Breaker) plan(space adapter.KeySpace, budget Budget) []Variant {
	if len(budget.Variants) > 0 {
		return budget.Variants
	}
	if KindExhaustive.Supports(space, b.config.ExhaustiveCeiling) {
		return []Variant{{
			Label:      string(KindExhaustive),
			Kind:       KindExhaustive,
			Exhaustive: &search.ExhaustiveConfig{Ceiling: b.config.ExhaustiveCeiling},
		}}
	}
	ensemble := b.ensemble
	if len(ensemble) == 0 {
		ensemble = DefaultEnsemble()
	}
	var out []Variant
	for _, v := range ensemble {
		if v.Kind.Supports(space, b.config.ExhaustiveCeiling) {
			out = append(out, v)
		}
	}
	return out
}

// job builds the problem for one variant. Each job owns its RNG.
func (b *Breaker) job(ciphertext string, space adapter.KeySpace, v Variant, rngSeed uint64, scale float64, keep int, start keys.Key) (algorithms.Job, error) {
	strategy, err := v.Strategy(scale, keep)
	if err != nil {
		return algorithms.Job{}, err
	}
	p := &algorithms.Problem{
		Ciphertext: ciphertext,
		Adapter:    b.adapter,
		Scorer:     b.scorer,
		RNG:        seed.NewRand(rngSeed),
		Start:      start,
		Model:      b.model,
	}
	if p.Start == nil && space.Kind == adapter.SpacePermutation && (v.Kind == KindHillClimb || v.Kind == KindAnnealing) {
		p.Start = b.seedKey(v.Seeding, ciphertext, space, p.RNG)
	}
	return algorithms.Job{Label: v.name(), Strategy: strategy, Problem: p}, nil
}

// seedKey builds a starting permutation over the space alphabet. Frequency
// and pattern seeding need a model over the same alphabet; without one the
// start is random.
func (b *Breaker) seedKey(kind seed.Kind, ciphertext string, space adapter.KeySpace, rng *rand.Rand) keys.Key {
	if b.model != nil && b.model.Alphabet() == space.Alphabet {
		return seed.Build(kind, ciphertext, b.model, rng)
	}
	return seed.RandomPermutation(space.Alphabet, rng)
}

// cached returns the stored ranking for fingerprint, if any and parseable.
func (b *Breaker) cached(ctx context.Context, fingerprint string) ([]algorithms.Candidate, bool) {
	rec, err := b.store.Get(ctx, fingerprint)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			b.logger.Warn("result store read failed", slog.String("error", err.Error()))
		}
		return nil, false
	}
	out := make([]algorithms.Candidate, 0, len(rec.Candidates))
	for _, c := range rec.Candidates {
		k, err := adapter.ParseKey(b.adapter, c.Key)
		if err != nil {
			b.logger.Warn("discarding unreadable cached result",
				slog.String("fingerprint", fingerprint),
				slog.String("error", err.Error()),
			)
			return nil, false
		}
		out = append(out, algorithms.Candidate{Key: k, Plaintext: c.Plaintext, Score: c.Score})
	}
	b.logger.Debug("result served from store", slog.String("fingerprint", fingerprint), slog.String("run_id", rec.RunID))
	return out, true
}

func (b *Breaker) save(ctx context.Context, runID, fingerprint string, ranked []algorithms.Candidate) {
	rec := &store.Record{
		Fingerprint: fingerprint,
		RunID:       runID,
		Adapter:     b.adapter.Name(),
		Candidates:  make([]store.StoredCandidate, 0, len(ranked)),
	}
	for _, c := range ranked {
		rec.Candidates = append(rec.Candidates, store.StoredCandidate{Key: c.Key.String(), Plaintext: c.Plaintext, Score: c.Score})
	}
	if err := b.store.Put(ctx, rec); err != nil {
		b.logger.Warn("result store write failed", slog.String("error", err.Error()))
	}
}

// scorerIdentity names the scoring configuration for cache keys. Scorers
// without a Fingerprint method are identified by type only.
func scorerIdentity(s algorithms.Scorer) string {
	if f, ok := s.(interface{ Fingerprint() string }); ok {
		return f.Fingerprint()
	}
	return fmt.Sprintf("%T", s)
}

// deriveSeed spreads base across variant indices with splitmix64 so
// neighbouring variants get unrelated streams.
func deriveSeed(base uint64, index int) uint64 {
	z := base + uint64(index+1)*0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

func status(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	}
	return "failure"
}
