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
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/AleutianAI/cipherbreak/services/breaker/api"
	"github.com/AleutianAI/cipherbreak/services/breaker/orchestrator"
)

const shutdownGrace = 10 * time.Second

func runServe(cmd *cobra.Command, root *rootOptions, addr string) error {
	a, err := newApp(cmd, root, appOptions{serve: true})
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	if addr == "" {
		addr = a.cfg.Server.Addr
	}
	if a.cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	breakers, err := a.breakers()
	if err != nil {
		return err
	}
	registry, err := orchestrator.Registry()
	if err != nil {
		return err
	}
	s, err := api.NewServer(a.scorer, breakers, registry, api.Limits{
		MaxConcurrent:  a.cfg.Server.MaxConcurrent,
		RequestTimeout: a.cfg.Server.RequestTimeout,
		MaxTextBytes:   a.cfg.Server.MaxCiphertextBytes,
	}, a.logger.Slog())
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           api.NewRouter(s, a.cfg.Telemetry.ServiceName),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("listening", slog.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve %s: %w", addr, err)
	case <-cmd.Context().Done():
	}

	a.logger.Info("shutting down", slog.Duration("grace", shutdownGrace))
	ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
