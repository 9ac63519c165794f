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
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/cipherbreak/pkg/ux"
	"github.com/AleutianAI/cipherbreak/services/breaker/adapter"
	"github.com/AleutianAI/cipherbreak/services/breaker/eval"
	"github.com/AleutianAI/cipherbreak/services/breaker/keys"
	"github.com/AleutianAI/cipherbreak/services/breaker/orchestrator"
	"github.com/AleutianAI/cipherbreak/services/breaker/seed"
)

func runScore(cmd *cobra.Command, root *rootOptions, file string, args []string) error {
	text, err := readInput(cmd, file, args)
	if err != nil {
		return err
	}
	a, err := newApp(cmd, root, appOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	b := a.scorer.Breakdown(text)
	if b.Degenerate {
		a.out.KeyValues("Score", []ux.KV{{Key: "total", Value: ftoa(b.Total)}, {Key: "note", Value: "no letters"}})
		return nil
	}
	a.out.KeyValues("Score", []ux.KV{
		{Key: "total", Value: ftoa(b.Total)},
		{Key: "letters", Value: strconv.Itoa(b.Letters)},
		{Key: "unigram", Value: ftoa(b.Unigram)},
		{Key: "words", Value: ftoa(b.Words)},
		{Key: "ngrams", Value: ftoa(b.Ngrams)},
		{Key: "doubles", Value: ftoa(b.Doubles)},
		{Key: "vowels", Value: ftoa(b.Vowels)},
		{Key: "consonants", Value: ftoa(b.Consonants)},
		{Key: "matched", Value: strings.Join(b.Matched, " ")},
	})
	return nil
}

func ftoa(f float64) string { return strconv.FormatFloat(f, 'f', 2, 64) }

// runEncrypt needs no language model, so it skips newApp.
func runEncrypt(cmd *cobra.Command, root *rootOptions, cipher, keyText string, rngSeed uint64, file string, args []string) error {
	text, err := readInput(cmd, file, args)
	if err != nil {
		return err
	}
	ad, err := adapter.Lookup(cipher)
	if err != nil {
		return err
	}

	var key keys.Key
	switch {
	case keyText != "":
		key, err = adapter.ParseKey(ad, keyText)
		if err != nil {
			return err
		}
	case rngSeed != 0:
		alpha, ok := ad.(interface{ Alphabet() string })
		if !ok {
			return errors.New("--seed draws substitution keys only; pass --key")
		}
		key = seed.Random(alpha.Alphabet(), rngSeed)
	default:
		return errors.New("--key is required (or --seed for a random substitution key)")
	}

	ciphertext, err := adapter.Encrypt(ad, key, text)
	if err != nil {
		return err
	}

	out := newPrinter(cmd.OutOrStdout(), root.output)
	if out.Mode() == ux.ModeMachine {
		out.Line(ciphertext)
		return nil
	}
	out.KeyValues("Encrypted", []ux.KV{
		{Key: "cipher", Value: ad.Name()},
		{Key: "key", Value: key.String()},
		{Key: "ciphertext", Value: ciphertext},
	})
	return nil
}

func runStrategies(cmd *cobra.Command, root *rootOptions, health bool) error {
	a, err := newApp(cmd, root, appOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	registry, err := orchestrator.Registry()
	if err != nil {
		return err
	}

	names := registry.List()
	props := make([]ux.KV, len(names))
	metrics := make([]ux.KV, len(names))
	for i, name := range names {
		component, _ := registry.Get(name)
		props[i] = ux.KV{Key: name, Value: strings.Join(propertyNames(component), ", ")}
		metrics[i] = ux.KV{Key: name, Value: strings.Join(metricNames(component), ", ")}
	}
	a.out.KeyValues("Properties", props)
	a.out.KeyValues("Metrics", metrics)

	ensemble := a.cfg.Ensemble
	if len(ensemble) == 0 {
		ensemble = orchestrator.DefaultEnsemble()
	}
	labels := make([]ux.KV, len(ensemble))
	for i, v := range ensemble {
		label := v.Label
		if label == "" {
			label = fmt.Sprintf("#%d", i+1)
		}
		labels[i] = ux.KV{Key: label, Value: string(v.Kind)}
	}
	a.out.KeyValues("Ensemble", labels)

	if !health {
		return nil
	}
	results := registry.HealthCheckAll(cmd.Context(), 0)
	for _, r := range results {
		msg := fmt.Sprintf("%s %s (%s)", r.Component, r.State, r.Duration.Round(time.Microsecond))
		if r.Status != eval.HealthHealthy && r.Message != "" {
			msg += ": " + r.Message
		}
		if r.Status == eval.HealthHealthy {
			a.out.Success(msg)
		} else {
			a.out.Error(msg)
		}
	}
	if !eval.Healthy(results) {
		return errors.New("one or more strategies failed their self test")
	}
	return nil
}

func propertyNames(c eval.Evaluable) []string {
	props := c.Properties()
	names := make([]string, len(props))
	for i, p := range props {
		names[i] = p.Name
	}
	return names
}

func metricNames(c eval.Evaluable) []string {
	defs := c.Metrics()
	names := make([]string, len(defs))
	for i, m := range defs {
		names[i] = m.Name
	}
	return names
}
