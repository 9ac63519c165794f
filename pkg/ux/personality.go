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
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

// Mode controls how rich CLI output is.
type Mode string

const (
	// ModeRich renders colors, borders and icons.
	ModeRich Mode = "rich"

	// ModePlain renders aligned text without escape sequences.
	ModePlain Mode = "plain"

	// ModeMachine renders tab-separated lines for scripts.
	ModeMachine Mode = "machine"
)

// ParseMode converts a string to a Mode. Unknown names mean ModePlain.
func ParseMode(s string) Mode {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "rich", "full", "color":
		return ModeRich
	case "machine", "tsv", "quiet":
		return ModeMachine
	default:
		return ModePlain
	}
}

// DetectMode picks the output mode for w.
//
// Description:
//
//	CIPHERBREAK_OUTPUT wins when set. Otherwise a terminal gets ModeRich,
//	and anything else (pipes, files, buffers) gets ModeMachine. NO_COLOR
//	downgrades ModeRich to ModePlain.
func DetectMode(w io.Writer) Mode {
	if env := os.Getenv("CIPHERBREAK_OUTPUT"); env != "" {
		return ParseMode(env)
	}
	if !isTerminal(w) {
		return ModeMachine
	}
	if os.Getenv("NO_COLOR") != "" {
		return ModePlain
	}
	return ModeRich
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
