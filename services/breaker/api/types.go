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
	"github.com/AleutianAI/cipherbreak/services/breaker/algorithms"
	"github.com/AleutianAI/cipherbreak/services/breaker/scoring"
)

// ScoreRequest is the body of POST /v1/score.
type ScoreRequest struct {
	Text string `json:"text" binding:"required"`
}

// ScoreResponse reports a score and its breakdown.
type ScoreResponse struct {
	Score     float64           `json:"score"`
	Breakdown scoring.Breakdown `json:"breakdown"`
}

// CrackRequest is the body of POST /v1/crack.
type CrackRequest struct {
	Cipher     string  `json:"cipher" binding:"required,oneof=caesar substitution railfence bacon polybius"`
	Ciphertext string  `json:"ciphertext" binding:"required"`
	Top        int     `json:"top" binding:"omitempty,gte=1,lte=100"`
	Seed       uint64  `json:"seed"`
	Scale      float64 `json:"scale" binding:"omitempty,gt=0,lte=10"`
}

// RunRequest is the body of POST /v1/run.
type RunRequest struct {
	CrackRequest

	Strategy string `json:"strategy" binding:"required,oneof=exhaustive hill_climbing simulated_annealing genetic hybrid"`
	Seeding  string `json:"seeding" binding:"omitempty,oneof=frequency pattern random"`

	// Start is a key in the adapter's textual form, e.g. "3" for caesar or
	// a 26-letter image for substitution.
	Start string `json:"start"`
}

// CandidateResponse is one ranked decryption.
type CandidateResponse struct {
	Rank      int     `json:"rank"`
	Score     float64 `json:"score"`
	Key       string  `json:"key"`
	Plaintext string  `json:"plaintext"`
}

// CrackResponse is returned by /v1/crack and /v1/run.
type CrackResponse struct {
	RequestID  string              `json:"request_id"`
	Cipher     string              `json:"cipher"`
	Strategy   string              `json:"strategy,omitempty"`
	Candidates []CandidateResponse `json:"candidates"`
	DurationMS int64               `json:"duration_ms"`

	// Partial is set when the request deadline cut the search short.
	Partial bool `json:"partial,omitempty"`
}

// ErrorResponse is returned for every failed request.
type ErrorResponse struct {
	Error     string `json:"error"`
	Details   string `json:"details,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

func toCandidates(ranked []algorithms.Candidate) []CandidateResponse {
	out := make([]CandidateResponse, len(ranked))
	for i, c := range ranked {
		key := ""
		if c.Key != nil {
			key = c.Key.String()
		}
		out[i] = CandidateResponse{Rank: i + 1, Score: c.Score, Key: key, Plaintext: c.Plaintext}
	}
	return out
}
