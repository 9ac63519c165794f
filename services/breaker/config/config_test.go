// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/cipherbreak/services/breaker/breakerr"
	"github.com/AleutianAI/cipherbreak/services/breaker/orchestrator"
	"github.com/AleutianAI/cipherbreak/services/breaker/seed"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefaultFullConfig_Valid(t *testing.T) {
	cfg := DefaultFullConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "EN", cfg.Language.LanguageTag)
	assert.Equal(t, 10, cfg.Orchestrator.TopN)
	assert.Equal(t, 5000, cfg.Strategies.Annealing.MaxIterations)
	assert.Equal(t, 30, cfg.Strategies.Genetic.PopulationSize)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Empty(t, cfg.Store.Dir)
}

func TestLoad(t *testing.T) {
	t.Run("no file", func(t *testing.T) {
		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, DefaultFullConfig().Orchestrator, cfg.Orchestrator)
	})

	t.Run("missing file uses defaults", func(t *testing.T) {
		cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
		require.NoError(t, err)
		assert.Equal(t, 10, cfg.Orchestrator.TopN)
	})

	t.Run("yaml file", func(t *testing.T) {
		path := writeFile(t, "cipherbreak.yaml", `
orchestrator:
  top_n: 5
  concurrency: 2
strategies:
  simulated_annealing:
    initial_temp: 25
    max_iterations: 800
server:
  request_timeout: 30s
ensemble:
  - label: quick
    kind: hill_climbing
    seeding: pattern
`)
		cfg, err := Load(path)
		require.NoError(t, err)

		assert.Equal(t, 5, cfg.Orchestrator.TopN)
		assert.Equal(t, 2, cfg.Orchestrator.Concurrency)
		assert.Equal(t, 25.0, cfg.Strategies.Annealing.InitialTemp)
		assert.Equal(t, 800, cfg.Strategies.Annealing.MaxIterations)
		assert.Equal(t, 30*time.Second, cfg.Server.RequestTimeout)
		assert.Equal(t, ":8090", cfg.Server.Addr, "unset fields keep defaults")

		require.Len(t, cfg.Ensemble, 1)
		assert.Equal(t, orchestrator.KindHillClimb, cfg.Ensemble[0].Kind)
		assert.Equal(t, seed.KindPattern, cfg.Ensemble[0].Seeding)
	})

	t.Run("json file", func(t *testing.T) {
		path := writeFile(t, "cipherbreak.json", `{"orchestrator": {"top_n": 3}, "logging": {"level": "debug"}}`)
		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, 3, cfg.Orchestrator.TopN)
		assert.Equal(t, "debug", cfg.Logging.Level)
	})

	t.Run("unparseable file", func(t *testing.T) {
		path := writeFile(t, "broken.yaml", "orchestrator: [unterminated")
		_, err := Load(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "tried YAML and JSON")
	})

	t.Run("invalid value", func(t *testing.T) {
		path := writeFile(t, "bad.yaml", "logging:\n  level: chatty\n")
		_, err := Load(path)
		require.Error(t, err)
		assert.ErrorIs(t, err, breakerr.ErrConfiguration)

		var cfgErr *breakerr.ConfigurationError
		require.ErrorAs(t, err, &cfgErr)
		assert.Contains(t, cfgErr.Field, "Level")
	})

	t.Run("unknown seeding", func(t *testing.T) {
		path := writeFile(t, "seeding.yaml", "ensemble:\n  - kind: hill_climbing\n    seeding: psychic\n")
		_, err := Load(path)
		require.Error(t, err)
	})
}

func TestLoad_Environment(t *testing.T) {
	path := writeFile(t, "cipherbreak.yaml", "orchestrator:\n  top_n: 5\n")

	t.Setenv("CIPHERBREAK_TOP_N", "7")
	t.Setenv("CIPHERBREAK_VERIFY", "1")
	t.Setenv("CIPHERBREAK_CACHE_DIR", "/tmp/cipherbreak-cache")
	t.Setenv("CIPHERBREAK_CACHE_TTL", "2h")
	t.Setenv("CIPHERBREAK_LOG_LEVEL", "WARN")
	t.Setenv("CIPHERBREAK_CUSTOM_WORDS", "zephyr,quixotic")
	t.Setenv("CIPHERBREAK_MAX_CONCURRENT", "not-a-number")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.Orchestrator.TopN, "environment overrides file")
	assert.True(t, cfg.Orchestrator.Verify)
	assert.Equal(t, "/tmp/cipherbreak-cache", cfg.Store.Dir)
	assert.Equal(t, 2*time.Hour, cfg.Store.TTL)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, []string{"zephyr", "quixotic"}, cfg.Language.CustomWords)
	assert.Equal(t, 4, cfg.Server.MaxConcurrent, "unparseable values are ignored")
}

func TestFullConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*FullConfig)
	}{
		{"unknown language", func(c *FullConfig) { c.Language.LanguageTag = "XX" }},
		{"top n", func(c *FullConfig) { c.Orchestrator.TopN = 0 }},
		{"negative weight", func(c *FullConfig) { c.Weights.Bigram = -1 }},
		{"annealing temperature", func(c *FullConfig) { c.Strategies.Annealing.InitialTemp = -1 }},
		{"genetic population", func(c *FullConfig) { c.Strategies.Genetic.PopulationSize = 1 }},
		{"hybrid phase", func(c *FullConfig) { c.Strategies.Hybrid.Annealing.MaxIterations = 0 }},
		{"server concurrency", func(c *FullConfig) { c.Server.MaxConcurrent = 0 }},
		{"trace exporter", func(c *FullConfig) { c.Telemetry.TraceExporter = "zipkin" }},
		{"ensemble kind", func(c *FullConfig) {
			c.Ensemble = []orchestrator.Variant{{Kind: "psychic"}}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultFullConfig()
			tt.modify(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, breakerr.ErrConfiguration)
		})
	}
}

func TestStrategiesConfig_Variant(t *testing.T) {
	s := DefaultFullConfig().Strategies
	s.Annealing.MaxIterations = 123

	v := s.Variant(orchestrator.KindAnnealing)
	assert.Equal(t, orchestrator.KindAnnealing, v.Kind)
	require.NotNil(t, v.Annealing)
	assert.Equal(t, 123, v.Annealing.MaxIterations)
	assert.Nil(t, v.Genetic)

	for _, k := range orchestrator.Kinds() {
		_, err := s.Variant(k).Strategy(1, 1)
		assert.NoError(t, err, k)
	}
}
