// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/cipherbreak/services/breaker/adapter"
	"github.com/AleutianAI/cipherbreak/services/breaker/algorithms"
	"github.com/AleutianAI/cipherbreak/services/breaker/breakerr"
	"github.com/AleutianAI/cipherbreak/services/breaker/eval"
	"github.com/AleutianAI/cipherbreak/services/breaker/language"
	"github.com/AleutianAI/cipherbreak/services/breaker/orchestrator"
	"github.com/AleutianAI/cipherbreak/services/breaker/scoring"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestServer(t *testing.T, limits Limits) *Server {
	t.Helper()
	scorer, err := scoring.New(language.MustEnglish(), scoring.DefaultWeights())
	require.NoError(t, err)

	breakers := make(map[string]*orchestrator.Breaker)
	for _, name := range adapter.Names() {
		a, err := adapter.Lookup(name)
		require.NoError(t, err)
		cfg := orchestrator.DefaultConfig()
		cfg.Tracing = false
		b, err := orchestrator.New(a, scorer, cfg)
		require.NoError(t, err)
		breakers[name] = b
	}

	registry, err := orchestrator.Registry()
	require.NoError(t, err)

	s, err := NewServer(scorer, breakers, registry, limits, nil)
	require.NoError(t, err)
	return s
}

func do(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestNewServer_Validation(t *testing.T) {
	_, err := NewServer(nil, nil, nil, Limits{}, nil)
	assert.ErrorIs(t, err, breakerr.ErrConfiguration)

	scorer, err := scoring.New(language.MustEnglish(), scoring.DefaultWeights())
	require.NoError(t, err)
	_, err = NewServer(scorer, nil, nil, Limits{}, nil)
	assert.ErrorIs(t, err, breakerr.ErrConfiguration)
}

func TestHandleScore(t *testing.T) {
	router := NewRouter(newTestServer(t, Limits{MaxTextBytes: 64}), "cipherbreak-test")

	t.Run("english beats gibberish", func(t *testing.T) {
		english := decode[ScoreResponse](t, do(t, router, http.MethodPost, "/v1/score", ScoreRequest{Text: "THE QUICK BROWN FOX"}))
		gibberish := decode[ScoreResponse](t, do(t, router, http.MethodPost, "/v1/score", ScoreRequest{Text: "XQZ JVKW PFMB"}))
		assert.Greater(t, english.Score, gibberish.Score)
		assert.Equal(t, english.Score, english.Breakdown.Total)
	})

	t.Run("missing text", func(t *testing.T) {
		rec := do(t, router, http.MethodPost, "/v1/score", `{}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("malformed json", func(t *testing.T) {
		rec := do(t, router, http.MethodPost, "/v1/score", `{"text":`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("too large", func(t *testing.T) {
		rec := do(t, router, http.MethodPost, "/v1/score", ScoreRequest{Text: strings.Repeat("A", 65)})
		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	})
}

func TestHandleCrack(t *testing.T) {
	router := NewRouter(newTestServer(t, Limits{}), "cipherbreak-test")

	t.Run("caesar", func(t *testing.T) {
		rec := do(t, router, http.MethodPost, "/v1/crack", CrackRequest{
			Cipher: "caesar", Ciphertext: "KHOOR ZRUOG", Top: 3, Seed: 1,
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		resp := decode[CrackResponse](t, rec)
		require.Len(t, resp.Candidates, 3)
		assert.Equal(t, "HELLO WORLD", resp.Candidates[0].Plaintext)
		assert.Equal(t, "3", resp.Candidates[0].Key)
		assert.Equal(t, 1, resp.Candidates[0].Rank)
		assert.False(t, resp.Partial)
		assert.NotEmpty(t, resp.RequestID)
		assert.Equal(t, resp.RequestID, rec.Header().Get(RequestIDHeader))
	})

	t.Run("request id propagates", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/v1/crack",
			strings.NewReader(`{"cipher":"caesar","ciphertext":"KHOOR","seed":2}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set(RequestIDHeader, "req-123")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "req-123", rec.Header().Get(RequestIDHeader))
		assert.Equal(t, "req-123", decode[CrackResponse](t, rec).RequestID)
	})

	tests := []struct {
		name string
		body string
		want int
	}{
		{"unknown cipher", `{"cipher":"enigma","ciphertext":"ABC"}`, http.StatusBadRequest},
		{"missing ciphertext", `{"cipher":"caesar"}`, http.StatusBadRequest},
		{"blank ciphertext", `{"cipher":"caesar","ciphertext":"   "}`, http.StatusBadRequest},
		{"top out of range", `{"cipher":"caesar","ciphertext":"ABC","top":1000}`, http.StatusBadRequest},
		{"scale out of range", `{"cipher":"caesar","ciphertext":"ABC","scale":-1}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, router, http.MethodPost, "/v1/crack", tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
			assert.NotEmpty(t, decode[ErrorResponse](t, rec).Error)
		})
	}
}

func TestHandleCrack_PoolFull(t *testing.T) {
	s := newTestServer(t, Limits{MaxConcurrent: 1})
	router := NewRouter(s, "cipherbreak-test")

	s.slots <- struct{}{}
	rec := do(t, router, http.MethodPost, "/v1/crack", CrackRequest{Cipher: "caesar", Ciphertext: "KHOOR"})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	s.release()
	rec = do(t, router, http.MethodPost, "/v1/crack", CrackRequest{Cipher: "caesar", Ciphertext: "KHOOR", Seed: 3})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, s.slots, "slot returned after the request")
}

func TestHandleRun(t *testing.T) {
	router := NewRouter(newTestServer(t, Limits{}), "cipherbreak-test")

	t.Run("exhaustive caesar", func(t *testing.T) {
		rec := do(t, router, http.MethodPost, "/v1/run", RunRequest{
			CrackRequest: CrackRequest{Cipher: "caesar", Ciphertext: "KHOOR ZRUOG", Top: 2},
			Strategy:     "exhaustive",
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		resp := decode[CrackResponse](t, rec)
		assert.Equal(t, "exhaustive", resp.Strategy)
		require.Len(t, resp.Candidates, 2)
		assert.Equal(t, "HELLO WORLD", resp.Candidates[0].Plaintext)
	})

	t.Run("hill climbing from start key", func(t *testing.T) {
		rec := do(t, router, http.MethodPost, "/v1/run", RunRequest{
			CrackRequest: CrackRequest{Cipher: "caesar", Ciphertext: "KHOOR ZRUOG", Seed: 5},
			Strategy:     "hill_climbing",
			Start:        "1",
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.NotEmpty(t, decode[CrackResponse](t, rec).Candidates)
	})

	tests := []struct {
		name string
		body RunRequest
		want int
	}{
		{"unknown strategy", RunRequest{
			CrackRequest: CrackRequest{Cipher: "caesar", Ciphertext: "KHOOR"},
			Strategy:     "psychic",
		}, http.StatusBadRequest},
		{"unknown seeding", RunRequest{
			CrackRequest: CrackRequest{Cipher: "substitution", Ciphertext: "KHOOR"},
			Strategy:     "hill_climbing",
			Seeding:      "tarot",
		}, http.StatusBadRequest},
		{"bad start key", RunRequest{
			CrackRequest: CrackRequest{Cipher: "substitution", Ciphertext: "KHOOR"},
			Strategy:     "hill_climbing",
			Start:        "ABC",
		}, http.StatusBadRequest},
		{"genetic on enumerable space", RunRequest{
			CrackRequest: CrackRequest{Cipher: "caesar", Ciphertext: "KHOOR", Seed: 1},
			Strategy:     "genetic",
		}, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, router, http.MethodPost, "/v1/run", tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestHealthAndMetrics(t *testing.T) {
	router := NewRouter(newTestServer(t, Limits{}), "cipherbreak-test")

	rec := do(t, router, http.MethodGet, "/health/live", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, router, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	if testing.Short() {
		t.Skip("deep health check runs every strategy")
	}
	rec = do(t, router, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"status":"healthy"`)
}

func TestHandleHealth_Cached(t *testing.T) {
	s := newTestServer(t, Limits{MaxConcurrent: 1})
	router := NewRouter(s, "cipherbreak-test")

	// Hold the only slot so an uncached check cannot run.
	s.slots <- struct{}{}
	defer s.release()

	rec := do(t, router, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code, rec.Body.String())

	s.health.put([]eval.HealthResult{{Component: "exhaustive", Status: eval.HealthHealthy, State: "healthy"}}, time.Now())
	rec = do(t, router, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"status":"healthy"`)

	s.health.put([]eval.HealthResult{{Component: "exhaustive", Status: eval.HealthHealthy}}, time.Now().Add(-2*healthTTL))
	rec = do(t, router, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code, "stale results are not served")
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"all failed", breakerr.NewAggregateError(nil), http.StatusUnprocessableEntity},
		{"domain size", breakerr.NewDomainSizeError(big.NewInt(1<<40), 10), http.StatusUnprocessableEntity},
		{"unsupported space", algorithms.ErrUnsupportedSpace, http.StatusUnprocessableEntity},
		{"configuration", breakerr.NewConfigurationError("ciphertext", "empty"), http.StatusBadRequest},
		{"deadline", context.DeadlineExceeded, http.StatusGatewayTimeout},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}
