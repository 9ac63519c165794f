// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package algorithms

import (
	"cmp"
	"slices"
	"strings"

	"github.com/AleutianAI/cipherbreak/services/breaker/keys"
)

// Candidate is a key with the plaintext it produces and that plaintext's score.
// Scores are comparable only for one ciphertext and one language model.
type Candidate struct {
	Key       keys.Key
	Plaintext string
	Score     float64
}

// Better reports whether c ranks strictly ahead of o.
func (c Candidate) Better(o Candidate) bool {
	return compareCandidates(c, o) < 0
}

// compareCandidates orders by score descending, then plaintext, then key.
func compareCandidates(a, b Candidate) int {
	if c := cmp.Compare(b.Score, a.Score); c != 0 {
		return c
	}
	if c := strings.Compare(a.Plaintext, b.Plaintext); c != 0 {
		return c
	}
	return strings.Compare(keyText(a.Key), keyText(b.Key))
}

func keyText(k keys.Key) string {
	if k == nil {
		return ""
	}
	return k.String()
}

// Rank merges candidate lists into one ranking.
//
// Description:
//
//	Sorts by score descending with deterministic tie-breaks, keeps the first
//	candidate for each distinct plaintext, and truncates to topN.
//
// Inputs:
//   - topN: Maximum results. <= 0 keeps all.
//   - lists: Candidate lists in any order. Not modified.
//
// Outputs:
//   - []Candidate: The ranking. Never nil.
func Rank(topN int, lists ...[]Candidate) []Candidate {
	var all []Candidate
	for _, l := range lists {
		all = append(all, l...)
	}
	slices.SortStableFunc(all, compareCandidates)

	out := make([]Candidate, 0, len(all))
	seen := make(map[string]bool, len(all))
	for _, c := range all {
		if seen[c.Plaintext] {
			continue
		}
		seen[c.Plaintext] = true
		out = append(out, c)
		if topN > 0 && len(out) == topN {
			break
		}
	}
	return out
}

// -----------------------------------------------------------------------------
// Leaderboard
// -----------------------------------------------------------------------------

// DefaultKeep is the leaderboard capacity strategies use unless configured.
const DefaultKeep = 10

// Leaderboard keeps the best candidates with distinct plaintexts seen during
// one run. The best candidate offered is never evicted.
//
// Thread Safety: Not safe for concurrent use; owned by a single run.
type Leaderboard struct {
	capacity int
	entries  []Candidate
	index    map[string]int
}

// NewLeaderboard creates a board holding at most capacity candidates
// (DefaultKeep if capacity <= 0).
func NewLeaderboard(capacity int) *Leaderboard {
	if capacity <= 0 {
		capacity = DefaultKeep
	}
	return &Leaderboard{capacity: capacity, index: make(map[string]int, capacity+1)}
}

// Offer records c if it beats the worst entry or the entry with the same
// plaintext. Reports whether c is now the best entry.
func (b *Leaderboard) Offer(c Candidate) bool {
	if i, ok := b.index[c.Plaintext]; ok {
		if c.Better(b.entries[i]) {
			b.entries[i] = c
		}
		return b.isBest(c)
	}
	if len(b.entries) < b.capacity {
		b.index[c.Plaintext] = len(b.entries)
		b.entries = append(b.entries, c)
		return b.isBest(c)
	}
	worst := 0
	for i := range b.entries {
		if b.entries[worst].Better(b.entries[i]) {
			worst = i
		}
	}
	if !c.Better(b.entries[worst]) {
		return false
	}
	delete(b.index, b.entries[worst].Plaintext)
	b.entries[worst] = c
	b.index[c.Plaintext] = worst
	return b.isBest(c)
}

func (b *Leaderboard) isBest(c Candidate) bool {
	for _, e := range b.entries {
		if e.Better(c) {
			return false
		}
	}
	return true
}

// Best returns the best entry and whether the board is non-empty.
func (b *Leaderboard) Best() (Candidate, bool) {
	if len(b.entries) == 0 {
		return Candidate{}, false
	}
	best := b.entries[0]
	for _, e := range b.entries[1:] {
		if e.Better(best) {
			best = e
		}
	}
	return best, true
}

// Len returns the number of entries.
func (b *Leaderboard) Len() int { return len(b.entries) }

// Ranked returns the entries best first.
func (b *Leaderboard) Ranked() []Candidate {
	return Rank(0, b.entries)
}
