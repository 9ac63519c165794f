// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ux

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMode(t *testing.T) {
	tests := []struct {
		in   string
		want Mode
	}{
		{"rich", ModeRich},
		{"COLOR", ModeRich},
		{"machine", ModeMachine},
		{"tsv", ModeMachine},
		{"plain", ModePlain},
		{"whatever", ModePlain},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseMode(tt.in))
		})
	}
}

func TestDetectMode(t *testing.T) {
	t.Run("buffer is machine", func(t *testing.T) {
		t.Setenv("CIPHERBREAK_OUTPUT", "")
		assert.Equal(t, ModeMachine, DetectMode(&bytes.Buffer{}))
	})

	t.Run("environment wins", func(t *testing.T) {
		t.Setenv("CIPHERBREAK_OUTPUT", "rich")
		assert.Equal(t, ModeRich, DetectMode(&bytes.Buffer{}))
	})
}

func sampleRows() []CandidateRow {
	return []CandidateRow{
		{Rank: 1, Score: 412.5, Key: "shift=3", Plaintext: "HELLO WORLD"},
		{Rank: 2, Score: 101.25, Key: "shift=16", Plaintext: "URYYB JBEYQ"},
	}
}

func TestPrinter_Candidates(t *testing.T) {
	t.Run("machine", func(t *testing.T) {
		var buf bytes.Buffer
		NewPrinterMode(&buf, ModeMachine).Candidates(sampleRows())

		lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
		require.Len(t, lines, 2)
		assert.Equal(t, "1\t412.50\tshift=3\tHELLO WORLD", lines[0])
		assert.Equal(t, "2\t101.25\tshift=16\tURYYB JBEYQ", lines[1])
	})

	t.Run("machine joins lines", func(t *testing.T) {
		var buf bytes.Buffer
		NewPrinterMode(&buf, ModeMachine).Candidates([]CandidateRow{
			{Rank: 1, Score: 1, Key: "rails=2", Plaintext: "TWO\nLINES"},
		})
		assert.Equal(t, "1\t1.00\trails=2\tTWO LINES\n", buf.String())
	})

	for _, mode := range []Mode{ModePlain, ModeRich} {
		t.Run(string(mode), func(t *testing.T) {
			var buf bytes.Buffer
			NewPrinterMode(&buf, mode).Candidates(sampleRows())

			out := buf.String()
			assert.Contains(t, out, "PLAINTEXT")
			assert.Contains(t, out, "HELLO WORLD")
			assert.Contains(t, out, "shift=16")
			assert.Contains(t, out, "412.50")
		})
	}

	t.Run("empty", func(t *testing.T) {
		var buf bytes.Buffer
		NewPrinterMode(&buf, ModePlain).Candidates(nil)
		assert.Contains(t, buf.String(), "no candidates")
	})
}

func TestPrinter_Status(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinterMode(&buf, ModeMachine)
	p.Title("hidden")
	p.Muted("hidden")
	p.Success("done")
	p.Warning("careful")
	p.Error("failed")

	assert.Equal(t, "OK: done\nWARN: careful\nERROR: failed\n", buf.String())
}

func TestPrinter_KeyValues(t *testing.T) {
	pairs := []KV{{"total", "120.00"}, {"bigram", "48.00"}}

	t.Run("machine", func(t *testing.T) {
		var buf bytes.Buffer
		NewPrinterMode(&buf, ModeMachine).KeyValues("Score", pairs)
		assert.Equal(t, "total\t120.00\nbigram\t48.00\n", buf.String())
	})

	t.Run("plain", func(t *testing.T) {
		var buf bytes.Buffer
		NewPrinterMode(&buf, ModePlain).KeyValues("Score", pairs)
		assert.Equal(t, "Score\ntotal   120.00\nbigram  48.00\n", buf.String())
	})
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcd…", truncate("abcdefgh", 5))
	assert.Len(t, []rune(truncate(strings.Repeat("É", 80), PlaintextWidth)), PlaintextWidth)
}
