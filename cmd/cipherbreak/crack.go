// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/cipherbreak/pkg/ux"
	"github.com/AleutianAI/cipherbreak/services/breaker/adapter"
	"github.com/AleutianAI/cipherbreak/services/breaker/algorithms"
	"github.com/AleutianAI/cipherbreak/services/breaker/breakerr"
	"github.com/AleutianAI/cipherbreak/services/breaker/orchestrator"
	"github.com/AleutianAI/cipherbreak/services/breaker/seed"
)

// candidateJSON is the --json form of one candidate.
type candidateJSON struct {
	Rank      int     `json:"rank"`
	Score     float64 `json:"score"`
	Key       string  `json:"key"`
	Plaintext string  `json:"plaintext"`
}

func runCrack(cmd *cobra.Command, root *rootOptions, opts *crackOptions, args []string) error {
	text, err := readInput(cmd, opts.file, args)
	if err != nil {
		return err
	}
	a, err := newApp(cmd, root, appOptions{cacheDir: opts.cacheDir})
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	b, err := a.breaker(opts.cipher)
	if err != nil {
		return err
	}

	start := time.Now()
	ranked, err := b.AutoDecrypt(cmd.Context(), text, opts.top, orchestrator.Budget{
		Scale: opts.scale,
		Seed:  opts.seed,
	})
	return a.report(cmd.OutOrStdout(), opts, ranked, err, time.Since(start))
}

func runStrategy(cmd *cobra.Command, root *rootOptions, opts *crackOptions, args []string) error {
	kind, err := orchestrator.ParseKind(opts.strategy)
	if err != nil {
		return err
	}
	seeding, ok := seed.ParseKind(opts.seeding)
	if !ok {
		return breakerr.NewConfigurationError("seeding", fmt.Sprintf("unknown seeding %q", opts.seeding))
	}
	text, err := readInput(cmd, opts.file, args)
	if err != nil {
		return err
	}
	a, err := newApp(cmd, root, appOptions{cacheDir: opts.cacheDir})
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	b, err := a.breaker(opts.cipher)
	if err != nil {
		return err
	}

	params := orchestrator.Params{
		Variant: a.cfg.Strategies.Variant(kind),
		TopN:    opts.top,
		Seed:    opts.seed,
		Scale:   opts.scale,
	}
	params.Seeding = seeding
	if opts.start != "" {
		params.Start, err = adapter.ParseKey(b.Adapter(), opts.start)
		if err != nil {
			return err
		}
	}

	start := time.Now()
	ranked, err := b.RunStrategy(cmd.Context(), string(kind), text, params)
	return a.report(cmd.OutOrStdout(), opts, ranked, err, time.Since(start))
}

// report prints a ranking. A cancelled run with candidates prints them with
// a warning and still returns the context error.
func (a *app) report(w io.Writer, opts *crackOptions, ranked []algorithms.Candidate, err error, elapsed time.Duration) error {
	if err != nil {
		if len(ranked) == 0 || !isContextErr(err) {
			return err
		}
		a.errOut.Warning("interrupted: showing the best candidates found so far")
	}

	a.logger.Info("search finished",
		slog.String("cipher", opts.cipher),
		slog.Int("candidates", len(ranked)),
		slog.Duration("elapsed", elapsed),
	)

	if opts.jsonOut {
		out := make([]candidateJSON, len(ranked))
		for i, c := range ranked {
			out[i] = candidateJSON{Rank: i + 1, Score: c.Score, Key: keyString(c), Plaintext: c.Plaintext}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if encErr := enc.Encode(out); encErr != nil {
			return encErr
		}
		return err
	}

	rows := make([]ux.CandidateRow, len(ranked))
	for i, c := range ranked {
		rows[i] = ux.CandidateRow{Rank: i + 1, Score: c.Score, Key: keyString(c), Plaintext: c.Plaintext}
	}
	a.out.Candidates(rows)
	a.errOut.Muted(fmt.Sprintf("%d candidates in %s", len(ranked), elapsed.Round(time.Millisecond)))
	return err
}

func keyString(c algorithms.Candidate) string {
	if c.Key == nil {
		return ""
	}
	return c.Key.String()
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
