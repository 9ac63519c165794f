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
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/cipherbreak/pkg/logging"
	"github.com/AleutianAI/cipherbreak/pkg/telemetry"
	"github.com/AleutianAI/cipherbreak/pkg/ux"
	"github.com/AleutianAI/cipherbreak/services/breaker/adapter"
	"github.com/AleutianAI/cipherbreak/services/breaker/config"
	"github.com/AleutianAI/cipherbreak/services/breaker/language"
	"github.com/AleutianAI/cipherbreak/services/breaker/orchestrator"
	"github.com/AleutianAI/cipherbreak/services/breaker/scoring"
	"github.com/AleutianAI/cipherbreak/services/breaker/store"
)

// app holds everything a command needs. Close releases it.
type app struct {
	cfg      config.FullConfig
	logger   *logging.Logger
	out      *ux.Printer
	errOut   *ux.Printer
	scorer   *scoring.Scorer
	store    *store.ResultStore
	shutdown func(context.Context) error
}

// appOptions selects the optional parts of an app.
type appOptions struct {
	// serve keeps the configured metric exporter. Other commands disable it.
	serve bool

	// cacheDir overrides the configured store directory.
	cacheDir string
}

// newApp loads configuration, then builds the logger, telemetry, scorer and
// optional result store.
//
// Inputs:
//   - cmd: Supplies the context and the output streams.
//   - root: Persistent flag values, applied over the loaded configuration.
//   - opts: Command-specific options.
//
// Outputs:
//   - *app: Caller must Close it.
//   - error: Configuration, telemetry or store errors.
func newApp(cmd *cobra.Command, root *rootOptions, opts appOptions) (*app, error) {
	cfg, err := config.Load(root.configPath)
	if err != nil {
		return nil, err
	}

	if root.logLevel != "" {
		cfg.Logging.Level = strings.ToLower(root.logLevel)
	}
	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, err
	}
	logger := logging.New(logging.Config{
		Level:   level,
		LogDir:  cfg.Logging.Dir,
		Service: cfg.Telemetry.ServiceName,
		JSON:    cfg.Logging.JSON || root.logJSON,
		Writer:  cmd.ErrOrStderr(),
	})

	a := &app{
		cfg:    cfg,
		logger: logger,
		out:    newPrinter(cmd.OutOrStdout(), root.output),
		errOut: newPrinter(cmd.ErrOrStderr(), root.output),
	}

	tcfg := cfg.Telemetry
	tcfg.Writer = cmd.ErrOrStderr()
	if root.trace {
		a.cfg.Orchestrator.Tracing = true
		if tcfg.TraceExporter == "none" {
			tcfg.TraceExporter = "stdout"
		}
	}
	if !opts.serve {
		tcfg.MetricExporter = "none"
	}
	a.shutdown, err = telemetry.Init(cmd.Context(), tcfg)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	model, err := language.New(cfg.Language)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.scorer, err = scoring.New(model, cfg.Weights)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	dir := opts.cacheDir
	if dir == "" {
		dir = cfg.Store.Dir
	}
	if dir != "" {
		a.store, err = store.Open(store.Config{
			Path:       dir,
			TTL:        cfg.Store.TTL,
			SyncWrites: true,
			Logger:     logger.Slog(),
		})
		if err != nil {
			_ = a.Close()
			return nil, err
		}
		logger.Debug("result cache open", slog.String("dir", dir))
	}
	return a, nil
}

// breaker builds a Breaker for the named cipher.
func (a *app) breaker(cipher string) (*orchestrator.Breaker, error) {
	ad, err := adapter.Lookup(cipher)
	if err != nil {
		return nil, err
	}
	opts := []orchestrator.Option{
		orchestrator.WithLogger(a.logger.Slog()),
		orchestrator.WithEnsemble(a.cfg.Ensemble),
	}
	if a.store != nil {
		opts = append(opts, orchestrator.WithStore(a.store))
	}
	return orchestrator.New(ad, a.scorer, a.cfg.Orchestrator, opts...)
}

// breakers builds one Breaker per registered cipher.
func (a *app) breakers() (map[string]*orchestrator.Breaker, error) {
	out := make(map[string]*orchestrator.Breaker)
	for _, name := range adapter.Names() {
		b, err := a.breaker(name)
		if err != nil {
			return nil, fmt.Errorf("cipher %s: %w", name, err)
		}
		out[name] = b
	}
	return out, nil
}

// Close flushes telemetry and closes the store and the log file.
func (a *app) Close() error {
	var errs []error
	if a.shutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		errs = append(errs, a.shutdown(ctx))
	}
	if a.store != nil {
		errs = append(errs, a.store.Close())
	}
	errs = append(errs, a.logger.Close())
	return errors.Join(errs...)
}

func newPrinter(w io.Writer, mode string) *ux.Printer {
	if mode != "" {
		return ux.NewPrinterMode(w, ux.ParseMode(mode))
	}
	return ux.NewPrinter(w)
}

// readInput returns the text to process: the file named by file ("-" for
// stdin), or the positional arguments joined by spaces.
func readInput(cmd *cobra.Command, file string, args []string) (string, error) {
	switch {
	case file == "-":
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return strings.TrimRight(string(data), "\r\n"), nil
	case file != "":
		if len(args) > 0 {
			return "", errors.New("pass text or --file, not both")
		}
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", file, err)
		}
		return strings.TrimRight(string(data), "\r\n"), nil
	case len(args) > 0:
		return strings.Join(args, " "), nil
	default:
		return "", errors.New("no input: pass text as arguments, --file PATH, or --file - for stdin")
	}
}
