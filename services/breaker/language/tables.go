// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package language

import (
	_ "embed"
	"strings"
)

//go:embed english_words.txt
var englishWordsData string

// tables holds the raw constant data for one language tag.
type tables struct {
	alphabet       string
	frequencies    map[rune]float64
	frequencyOrder string
	bigrams        []string
	trigrams       []string
	words          []string
	vowels         string
	commonDoubles  string
	neutralDoubles string
}

// builtin maps language tags to their tables. Only EN ships.
var builtin = map[string]func() tables{
	"EN": englishTables,
}

func englishTables() tables {
	return tables{
		alphabet: "ABCDEFGHIJKLMNOPQRSTUVWXYZ",
		frequencies: map[rune]float64{
			'E': 12.7, 'T': 9.1, 'A': 8.2, 'O': 7.5, 'I': 7.0, 'N': 6.7,
			'S': 6.3, 'H': 6.1, 'R': 6.0, 'D': 4.3, 'L': 4.0, 'C': 2.8,
			'U': 2.8, 'M': 2.4, 'W': 2.4, 'F': 2.2, 'G': 2.0, 'Y': 2.0,
			'P': 1.9, 'B': 1.3, 'V': 1.0, 'K': 0.8, 'J': 0.15, 'X': 0.15,
			'Q': 0.10, 'Z': 0.07,
		},
		frequencyOrder: "ETAOINSHRDLUCMWFGYPBVKJXQZ",
		bigrams: strings.Fields(`
			TH HE IN ER AN RE ED ND ON EN AT OU EA HA NG AS OR TI IS ET
			IT AR TE SE AL HI NT ES CO DE TO RA SA RM RO ME NE LE VE OF
			ST LL SS EE TT OO CE RI LI IC NO IO EL MA DI GE NS SH HO UR
			CH WH WA LA EC BE US LO NI OT CA IL ID SI OM EM UT LY SO PR PE`),
		trigrams: strings.Fields(`
			THE AND ING HER HAT HIS THA ERE FOR ENT ION TER WAS YOU ITH
			VER ALL WIT THI TIO NDE HAS NCE TIS OFT STH MEN ARE EST OUR
			NOT ONE OUT ERS ATI RES ATE THR ONS HEN EAR EVE IVE TED STA
			OME OTH ITS NTH TTH HIN SIN OUL ULD`),
		words:          parseWordList(englishWordsData),
		vowels:         "AEIOU",
		commonDoubles:  "EFILOSZ",
		neutralDoubles: "BCDHMNPRT",
	}
}

// parseWordList reads one word per line, skipping blanks and # comments.
func parseWordList(data string) []string {
	var words []string
	for _, line := range strings.Split(data, "\n") {
		word := strings.TrimSpace(line)
		if word == "" || strings.HasPrefix(word, "#") {
			continue
		}
		words = append(words, strings.ToUpper(word))
	}
	return words
}
