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
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// PlaintextWidth is where table cells truncate plaintext.
const PlaintextWidth = 60

// CandidateRow is one ranked decryption.
type CandidateRow struct {
	Rank      int
	Score     float64
	Key       string
	Plaintext string
}

// Candidates prints a ranking.
//
// Description:
//
//	Rich mode draws a rounded table with the best row highlighted. Plain
//	mode draws an ASCII table. Machine mode prints one
//	rank<TAB>score<TAB>key<TAB>plaintext line per row with the full
//	plaintext on a single line. Table cells truncate plaintext to
//	PlaintextWidth runes.
func (p *Printer) Candidates(rows []CandidateRow) {
	if p.mode == ModeMachine {
		for _, r := range rows {
			fmt.Fprintf(p.w, "%d\t%.2f\t%s\t%s\n", r.Rank, r.Score, r.Key, singleLine(r.Plaintext))
		}
		return
	}
	if len(rows) == 0 {
		p.Warning("no candidates")
		return
	}

	cells := make([][]string, len(rows))
	for i, r := range rows {
		cells[i] = []string{
			strconv.Itoa(r.Rank),
			strconv.FormatFloat(r.Score, 'f', 2, 64),
			r.Key,
			truncate(singleLine(r.Plaintext), PlaintextWidth),
		}
	}

	t := table.New().
		Headers("#", "SCORE", "KEY", "PLAINTEXT").
		Rows(cells...)

	if p.mode == ModePlain {
		t = t.Border(lipgloss.ASCIIBorder())
	} else {
		t = t.Border(lipgloss.RoundedBorder()).
			BorderStyle(lipgloss.NewStyle().Foreground(ColorTealDeep)).
			StyleFunc(func(row, col int) lipgloss.Style {
				base := lipgloss.NewStyle().Padding(0, 1)
				switch {
				case row == table.HeaderRow:
					return base.Inherit(Styles.Title)
				case row == 0:
					return base.Inherit(Styles.Highlight)
				case col == 1:
					return base.Inherit(Styles.Muted)
				}
				return base
			})
	}
	fmt.Fprintln(p.w, t.String())
}

var lineBreaks = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ", "\t", " ")

func singleLine(s string) string {
	return lineBreaks.Replace(s)
}

func truncate(s string, width int) string {
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	return string(runes[:width-1]) + "…"
}
