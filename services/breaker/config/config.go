// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads the complete cipherbreak configuration.
//
// Precedence, lowest first: DefaultFullConfig, the YAML (or JSON) file,
// CIPHERBREAK_* environment variables.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/cipherbreak/pkg/telemetry"
	"github.com/AleutianAI/cipherbreak/services/breaker/algorithms/search"
	"github.com/AleutianAI/cipherbreak/services/breaker/breakerr"
	"github.com/AleutianAI/cipherbreak/services/breaker/language"
	"github.com/AleutianAI/cipherbreak/services/breaker/orchestrator"
	"github.com/AleutianAI/cipherbreak/services/breaker/scoring"
)

// FullConfig contains all cipherbreak configuration.
//
// Thread Safety: Safe to read concurrently. Not safe to modify after creation.
type FullConfig struct {
	// Language selects the language model.
	Language language.Config `json:"language" yaml:"language"`

	// Weights are the scoring term weights.
	Weights scoring.Weights `json:"weights" yaml:"weights"`

	// Orchestrator configures AutoDecrypt and RunStrategy.
	Orchestrator orchestrator.Config `json:"orchestrator" yaml:"orchestrator"`

	// Strategies are the defaults for single-strategy runs.
	Strategies StrategiesConfig `json:"strategies" yaml:"strategies"`

	// Ensemble replaces the built-in ensemble when non-empty.
	Ensemble []orchestrator.Variant `json:"ensemble,omitempty" yaml:"ensemble,omitempty"`

	// Store configures the result cache.
	Store StoreConfig `json:"store" yaml:"store"`

	// Server configures the HTTP API.
	Server ServerConfig `json:"server" yaml:"server"`

	// Logging configures the logger.
	Logging LoggingConfig `json:"logging" yaml:"logging"`

	// Telemetry configures trace and metric exporters.
	Telemetry telemetry.Config `json:"telemetry" yaml:"telemetry"`
}

// StrategiesConfig holds one configuration per strategy.
type StrategiesConfig struct {
	Exhaustive search.ExhaustiveConfig `json:"exhaustive" yaml:"exhaustive"`
	HillClimb  search.HillClimbConfig  `json:"hill_climbing" yaml:"hill_climbing"`
	Annealing  search.AnnealingConfig  `json:"simulated_annealing" yaml:"simulated_annealing"`
	Genetic    search.GeneticConfig    `json:"genetic" yaml:"genetic"`
	Hybrid     search.HybridConfig     `json:"hybrid" yaml:"hybrid"`
}

// Variant returns a Variant of kind k carrying this configuration.
func (s StrategiesConfig) Variant(k orchestrator.Kind) orchestrator.Variant {
	v := orchestrator.Variant{Kind: k}
	switch k {
	case orchestrator.KindExhaustive:
		cfg := s.Exhaustive
		v.Exhaustive = &cfg
	case orchestrator.KindHillClimb:
		cfg := s.HillClimb
		v.HillClimb = &cfg
	case orchestrator.KindAnnealing:
		cfg := s.Annealing
		v.Annealing = &cfg
	case orchestrator.KindGenetic:
		cfg := s.Genetic
		v.Genetic = &cfg
	case orchestrator.KindHybrid:
		cfg := s.Hybrid
		v.Hybrid = &cfg
	}
	return v
}

// StoreConfig configures the Badger result cache.
type StoreConfig struct {
	// Dir is the database directory. Empty disables caching.
	Dir string `json:"dir" yaml:"dir"`

	// TTL expires cached results. 0 keeps them forever.
	TTL time.Duration `json:"ttl" yaml:"ttl" validate:"gte=0"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr string `json:"addr" yaml:"addr" validate:"required"`

	// MaxConcurrent caps crack and run requests in flight.
	MaxConcurrent int `json:"max_concurrent" yaml:"max_concurrent" validate:"gte=1"`

	// RequestTimeout bounds each crack or run request.
	RequestTimeout time.Duration `json:"request_timeout" yaml:"request_timeout" validate:"gt=0"`

	// MaxCiphertextBytes rejects larger request texts.
	MaxCiphertextBytes int `json:"max_ciphertext_bytes" yaml:"max_ciphertext_bytes" validate:"gte=1"`
}

// LoggingConfig configures pkg/logging.
type LoggingConfig struct {
	Level string `json:"level" yaml:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `json:"json" yaml:"json"`

	// Dir enables a JSON log file per day when set.
	Dir string `json:"dir" yaml:"dir"`
}

// DefaultFullConfig returns the built-in defaults.
func DefaultFullConfig() FullConfig {
	return FullConfig{
		Language:     language.DefaultConfig(),
		Weights:      scoring.DefaultWeights(),
		Orchestrator: orchestrator.DefaultConfig(),
		Strategies: StrategiesConfig{
			Exhaustive: search.DefaultExhaustiveConfig(),
			HillClimb:  search.DefaultHillClimbConfig(),
			Annealing:  search.DefaultAnnealingConfig(),
			Genetic:    search.DefaultGeneticConfig(),
			Hybrid:     search.DefaultHybridConfig(),
		},
		Store: StoreConfig{TTL: 24 * time.Hour},
		Server: ServerConfig{
			Addr:               ":8090",
			MaxConcurrent:      4,
			RequestTimeout:     60 * time.Second,
			MaxCiphertextBytes: 64 << 10,
		},
		Logging:   LoggingConfig{Level: "info"},
		Telemetry: telemetry.DefaultConfig(),
	}
}

// Load builds the configuration from defaults, an optional file and the
// environment.
//
// Description:
//
//	A missing file is not an error. The file is parsed as YAML, then as
//	JSON if YAML fails. Environment overrides are applied last, then the
//	result is validated.
//
// Inputs:
//   - path: Path to a YAML or JSON file. Empty skips the file.
//
// Outputs:
//   - FullConfig: The merged configuration.
//   - error: Non-nil if the file is unreadable or invalid, or validation fails.
func Load(path string) (FullConfig, error) {
	config := DefaultFullConfig()

	if path != "" {
		if err := loadConfigFile(path, &config); err != nil {
			return config, fmt.Errorf("load config file: %w", err)
		}
	}

	loadConfigFromEnv(&config)

	if err := config.Validate(); err != nil {
		return config, fmt.Errorf("invalid config: %w", err)
	}
	return config, nil
}

func loadConfigFile(path string, config *FullConfig) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		if jsonErr := json.Unmarshal(data, config); jsonErr != nil {
			return fmt.Errorf("parse config (tried YAML and JSON): YAML error: %v, JSON error: %w", err, jsonErr)
		}
	}
	return nil
}

func loadConfigFromEnv(config *FullConfig) {
	// Language
	if v := os.Getenv("CIPHERBREAK_LANGUAGE"); v != "" {
		config.Language.LanguageTag = strings.ToUpper(v)
	}
	if v := os.Getenv("CIPHERBREAK_CUSTOM_WORDS"); v != "" {
		config.Language.CustomWords = strings.Split(v, ",")
	}

	// Orchestrator
	if v := os.Getenv("CIPHERBREAK_TOP_N"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			config.Orchestrator.TopN = i
		}
	}
	if v := os.Getenv("CIPHERBREAK_CONCURRENCY"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			config.Orchestrator.Concurrency = i
		}
	}
	if v := os.Getenv("CIPHERBREAK_EXHAUSTIVE_CEILING"); v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			config.Orchestrator.ExhaustiveCeiling = i
			config.Strategies.Exhaustive.Ceiling = i
		}
	}
	if v := os.Getenv("CIPHERBREAK_VERIFY"); v != "" {
		config.Orchestrator.Verify = v == "true" || v == "1"
	}
	if v := os.Getenv("CIPHERBREAK_TRACING"); v != "" {
		config.Orchestrator.Tracing = v == "true" || v == "1"
	}

	// Store
	if v := os.Getenv("CIPHERBREAK_CACHE_DIR"); v != "" {
		config.Store.Dir = v
	}
	if v := os.Getenv("CIPHERBREAK_CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			config.Store.TTL = d
		}
	}

	// Server
	if v := os.Getenv("CIPHERBREAK_ADDR"); v != "" {
		config.Server.Addr = v
	}
	if v := os.Getenv("CIPHERBREAK_MAX_CONCURRENT"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			config.Server.MaxConcurrent = i
		}
	}
	if v := os.Getenv("CIPHERBREAK_REQUEST_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			config.Server.RequestTimeout = d
		}
	}

	// Logging
	if v := os.Getenv("CIPHERBREAK_LOG_LEVEL"); v != "" {
		config.Logging.Level = strings.ToLower(v)
	}
	if v := os.Getenv("CIPHERBREAK_LOG_JSON"); v != "" {
		config.Logging.JSON = v == "true" || v == "1"
	}
	if v := os.Getenv("CIPHERBREAK_LOG_DIR"); v != "" {
		config.Logging.Dir = v
	}

	// Telemetry
	if v := os.Getenv("CIPHERBREAK_TRACE_EXPORTER"); v != "" {
		config.Telemetry.TraceExporter = v
	}
	if v := os.Getenv("CIPHERBREAK_METRIC_EXPORTER"); v != "" {
		config.Telemetry.MetricExporter = v
	}
}

var validate = validator.New()

// Validate checks struct tags, then each component's own rules.
//
// Outputs:
//   - error: *breakerr.ConfigurationError for the first problem found.
func (c FullConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return breakerr.NewConfigurationError(fe.Namespace(),
				fmt.Sprintf("failed %q validation (value %v)", fe.Tag(), fe.Value()))
		}
		return breakerr.NewConfigurationError("config", err.Error())
	}

	checks := []func() error{
		c.Language.Validate,
		c.Weights.Validate,
		c.Orchestrator.Validate,
		c.Strategies.Exhaustive.Validate,
		c.Strategies.HillClimb.Validate,
		c.Strategies.Annealing.Validate,
		c.Strategies.Genetic.Validate,
		c.Strategies.Hybrid.Validate,
	}
	for _, check := range checks {
		if err := check(); err != nil {
			return err
		}
	}

	for i, v := range c.Ensemble {
		if _, err := v.Strategy(1, 1); err != nil {
			return fmt.Errorf("ensemble[%d]: %w", i, err)
		}
	}
	return nil
}
