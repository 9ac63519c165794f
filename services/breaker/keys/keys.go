// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package keys defines cipher keys with value semantics.
//
// Every key type is immutable: operations that "change" a key return a new
// value, so a key shared between a search loop and a candidate list can never
// be observed half-mutated.
package keys

import (
	"strconv"
)

// Key is an opaque cipher key. Adapters define which concrete types they accept.
type Key interface {
	// String renders the key for logs, caches and output.
	String() string

	// Equal reports whether other is the same key.
	Equal(other Key) bool
}

// Shift is a Caesar-style offset.
type Shift int

// String renders the shift as a decimal.
func (s Shift) String() string { return strconv.Itoa(int(s)) }

// Equal reports whether other is the same shift.
func (s Shift) Equal(other Key) bool {
	o, ok := other.(Shift)
	return ok && o == s
}

// Rails is a rail-fence rail count.
type Rails int

// String renders the rail count as a decimal.
func (r Rails) String() string { return strconv.Itoa(int(r)) }

// Equal reports whether other is the same rail count.
func (r Rails) Equal(other Key) bool {
	o, ok := other.(Rails)
	return ok && o == r
}

// Bacon selects the two symbols of a Baconian ciphertext and the alphabet
// variant. A is the symbol for bit 0, B for bit 1.
type Bacon struct {
	A, B rune

	// Letters24 merges I/J and U/V into 24 codes; otherwise each of the 26
	// letters has its own code.
	Letters24 bool
}

// String renders the key as "AB/26" or "AB/24".
func (k Bacon) String() string {
	n := "26"
	if k.Letters24 {
		n = "24"
	}
	return string([]rune{k.A, k.B}) + "/" + n
}

// Equal reports whether other is the same symbol pair and variant.
func (k Bacon) Equal(other Key) bool {
	o, ok := other.(Bacon)
	return ok && o == k
}

// Grid is a Polybius square read row by row: 25 letters for 5x5, 36
// symbols for 6x6.
type Grid string

// String returns the cells row by row.
func (g Grid) String() string { return string(g) }

// Equal reports whether other is the same grid.
func (g Grid) Equal(other Key) bool {
	o, ok := other.(Grid)
	return ok && o == g
}

// Side returns the grid's row length, or 0 if the grid is not square.
func (g Grid) Side() int {
	switch len(g) {
	case 25:
		return 5
	case 36:
		return 6
	}
	return 0
}
