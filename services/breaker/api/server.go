// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package api exposes scoring and key recovery over HTTP.
//
// Routes:
//
//	POST /v1/score   score a text, with its breakdown
//	POST /v1/crack   AutoDecrypt
//	POST /v1/run     RunStrategy
//	GET  /health     strategy self tests, cached for healthTTL
//	GET  /metrics    Prometheus exposition
//
// Crack, run and uncached health requests hold a slot from a fixed pool; a
// request that finds the pool full is rejected with 429 rather than queued.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/singleflight"

	"github.com/AleutianAI/cipherbreak/services/breaker/adapter"
	"github.com/AleutianAI/cipherbreak/services/breaker/algorithms"
	"github.com/AleutianAI/cipherbreak/services/breaker/breakerr"
	"github.com/AleutianAI/cipherbreak/services/breaker/eval"
	"github.com/AleutianAI/cipherbreak/services/breaker/orchestrator"
	"github.com/AleutianAI/cipherbreak/services/breaker/scoring"
	"github.com/AleutianAI/cipherbreak/services/breaker/seed"
)

// Limits bounds the work a request may ask for.
type Limits struct {
	// MaxConcurrent caps crack and run requests in flight.
	MaxConcurrent int

	// RequestTimeout bounds each crack or run request.
	RequestTimeout time.Duration

	// MaxTextBytes rejects larger texts.
	MaxTextBytes int
}

// DefaultLimits returns the limits used when none are configured.
func DefaultLimits() Limits {
	return Limits{MaxConcurrent: 4, RequestTimeout: 60 * time.Second, MaxTextBytes: 64 << 10}
}

// healthTTL is how long a deep health result is served before the strategy
// self tests run again.
const healthTTL = 30 * time.Second

var errBusy = errors.New("too many concurrent requests")

// healthCache holds the last complete deep health result.
type healthCache struct {
	mu      sync.Mutex
	results []eval.HealthResult
	at      time.Time
}

func (h *healthCache) get(now time.Time) ([]eval.HealthResult, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.results == nil || now.Sub(h.at) > healthTTL {
		return nil, false
	}
	return h.results, true
}

func (h *healthCache) put(results []eval.HealthResult, now time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.results, h.at = results, now
}

// Server holds the shared engine state behind the HTTP handlers.
//
// Thread Safety: Safe for concurrent use. Breakers and the scorer are
// shared read-only.
type Server struct {
	scorer   *scoring.Scorer
	breakers map[string]*orchestrator.Breaker
	registry *eval.Registry
	limits   Limits
	slots    chan struct{}
	logger   *slog.Logger

	health       healthCache
	healthFlight singleflight.Group
}

// NewServer creates a Server.
//
// Inputs:
//   - scorer: Used by /v1/score. Required.
//   - breakers: One Breaker per adapter name. Required, non-empty.
//   - registry: Strategy registry for /health. nil disables deep checks.
//   - limits: Zero fields take DefaultLimits values.
//   - logger: nil means slog.Default().
//
// Outputs:
//   - *Server: Ready to route.
//   - error: *breakerr.ConfigurationError on a missing dependency.
func NewServer(scorer *scoring.Scorer, breakers map[string]*orchestrator.Breaker, registry *eval.Registry,
	limits Limits, logger *slog.Logger) (*Server, error) {
	if scorer == nil {
		return nil, breakerr.NewConfigurationError("scorer", "is required")
	}
	if len(breakers) == 0 {
		return nil, breakerr.NewConfigurationError("breakers", "at least one is required")
	}
	def := DefaultLimits()
	if limits.MaxConcurrent <= 0 {
		limits.MaxConcurrent = def.MaxConcurrent
	}
	if limits.RequestTimeout <= 0 {
		limits.RequestTimeout = def.RequestTimeout
	}
	if limits.MaxTextBytes <= 0 {
		limits.MaxTextBytes = def.MaxTextBytes
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		scorer:   scorer,
		breakers: breakers,
		registry: registry,
		limits:   limits,
		slots:    make(chan struct{}, limits.MaxConcurrent),
		logger:   logger.With(slog.String("component", "api")),
	}, nil
}

// HandleScore scores a text.
func (s *Server) HandleScore(c *gin.Context) {
	var req ScoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, "invalid request body", err)
		return
	}
	if len(req.Text) > s.limits.MaxTextBytes {
		s.tooLarge(c, len(req.Text))
		return
	}
	b := s.scorer.Breakdown(req.Text)
	c.JSON(http.StatusOK, ScoreResponse{Score: b.Total, Breakdown: b})
}

// HandleCrack runs AutoDecrypt.
func (s *Server) HandleCrack(c *gin.Context) {
	var req CrackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, "invalid request body", err)
		return
	}
	b, ok := s.admit(c, req)
	if !ok {
		return
	}
	defer s.release()

	ctx, cancel := context.WithTimeout(c.Request.Context(), s.limits.RequestTimeout)
	defer cancel()

	start := time.Now()
	ranked, err := b.AutoDecrypt(ctx, req.Ciphertext, req.Top, orchestrator.Budget{
		Scale: req.Scale,
		Seed:  req.Seed,
	})
	s.respond(c, req.Cipher, "", ranked, err, start)
}

// HandleRun runs a single strategy.
func (s *Server) HandleRun(c *gin.Context) {
	var req RunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, "invalid request body", err)
		return
	}

	params := orchestrator.Params{TopN: req.Top, Seed: req.Seed, Scale: req.Scale}
	if req.Seeding != "" {
		kind, ok := seed.ParseKind(req.Seeding)
		if !ok {
			s.badRequest(c, "invalid seeding", fmt.Errorf("unknown seeding %q", req.Seeding))
			return
		}
		params.Seeding = kind
	}

	b, ok := s.admit(c, req.CrackRequest)
	if !ok {
		return
	}
	defer s.release()

	if req.Start != "" {
		start, err := adapter.ParseKey(b.Adapter(), req.Start)
		if err != nil {
			s.badRequest(c, "invalid start key", err)
			return
		}
		params.Start = start
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), s.limits.RequestTimeout)
	defer cancel()

	start := time.Now()
	ranked, err := b.RunStrategy(ctx, req.Strategy, req.Ciphertext, params)
	s.respond(c, req.Cipher, req.Strategy, ranked, err, start)
}

// HandleHealth runs every strategy's self test. Results are cached for
// healthTTL and concurrent callers share one run, which holds a slot.
func (s *Server) HandleHealth(c *gin.Context) {
	if s.registry == nil {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
		return
	}
	results, ok := s.health.get(time.Now())
	if !ok {
		v, err, _ := s.healthFlight.Do("health", func() (any, error) {
			return s.checkHealth(c.Request.Context())
		})
		if err != nil {
			c.JSON(http.StatusTooManyRequests, ErrorResponse{Error: err.Error(), RequestID: requestID(c)})
			return
		}
		results = v.([]eval.HealthResult)
	}
	status, code := "healthy", http.StatusOK
	if !eval.Healthy(results) {
		status, code = "unhealthy", http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{"status": status, "components": results})
}

func (s *Server) checkHealth(ctx context.Context) ([]eval.HealthResult, error) {
	select {
	case s.slots <- struct{}{}:
	default:
		return nil, errBusy
	}
	defer s.release()

	ctx, cancel := context.WithTimeout(ctx, s.limits.RequestTimeout)
	defer cancel()
	results := s.registry.HealthCheckAll(ctx, 0)
	if ctx.Err() == nil {
		s.health.put(results, time.Now())
	}
	return results, nil
}

// HandleLive reports that the process is serving.
func (s *Server) HandleLive(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// admit resolves the breaker and takes a slot. On false the response has
// been written.
func (s *Server) admit(c *gin.Context, req CrackRequest) (*orchestrator.Breaker, bool) {
	b, ok := s.breakers[req.Cipher]
	if !ok {
		s.badRequest(c, "unknown cipher", fmt.Errorf("cipher %q is not served", req.Cipher))
		return nil, false
	}
	if len(req.Ciphertext) > s.limits.MaxTextBytes {
		s.tooLarge(c, len(req.Ciphertext))
		return nil, false
	}
	select {
	case s.slots <- struct{}{}:
		return b, true
	default:
		c.JSON(http.StatusTooManyRequests, ErrorResponse{
			Error:     errBusy.Error(),
			RequestID: requestID(c),
		})
		return nil, false
	}
}

func (s *Server) release() { <-s.slots }

func (s *Server) respond(c *gin.Context, cipher, strategy string, ranked []algorithms.Candidate, err error, start time.Time) {
	partial := err != nil && len(ranked) > 0 && isContextErr(err)
	if err != nil && !partial {
		code := statusFor(err)
		s.logger.Warn("request failed",
			slog.String("request_id", requestID(c)),
			slog.String("cipher", cipher),
			slog.Int("status", code),
			slog.String("error", err.Error()),
		)
		c.JSON(code, ErrorResponse{Error: http.StatusText(code), Details: err.Error(), RequestID: requestID(c)})
		return
	}
	c.JSON(http.StatusOK, CrackResponse{
		RequestID:  requestID(c),
		Cipher:     cipher,
		Strategy:   strategy,
		Candidates: toCandidates(ranked),
		DurationMS: time.Since(start).Milliseconds(),
		Partial:    partial,
	})
}

func (s *Server) badRequest(c *gin.Context, msg string, err error) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg, Details: err.Error(), RequestID: requestID(c)})
}

func (s *Server) tooLarge(c *gin.Context, n int) {
	c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{
		Error:     "text too large",
		Details:   fmt.Sprintf("%d bytes exceeds the %d byte limit", n, s.limits.MaxTextBytes),
		RequestID: requestID(c),
	})
}

func isContextErr(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
}

// statusFor maps engine errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, breakerr.ErrAllStrategiesFailed), errors.Is(err, breakerr.ErrDomainSize),
		errors.Is(err, algorithms.ErrUnsupportedSpace):
		return http.StatusUnprocessableEntity
	case errors.Is(err, breakerr.ErrConfiguration), errors.Is(err, breakerr.ErrAdapter):
		return http.StatusBadRequest
	case isContextErr(err):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
