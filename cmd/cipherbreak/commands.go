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
	"github.com/spf13/cobra"
)

// rootOptions holds the persistent flags.
type rootOptions struct {
	configPath string
	logLevel   string
	logJSON    bool
	trace      bool
	output     string
}

// crackOptions holds the flags shared by crack and run.
type crackOptions struct {
	cipher   string
	top      int
	seed     uint64
	scale    float64
	cacheDir string
	file     string
	jsonOut  bool

	// run only
	strategy string
	seeding  string
	start    string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "cipherbreak",
		Short: "Recover keys for classical ciphers by scoring English-likeness",
		Long: `cipherbreak searches the key space of a classical cipher for the
decryptions that look most like English. Small key spaces (caesar,
rail fence) are enumerated; substitution keys are found with an ensemble
of hill climbing, simulated annealing and genetic search.

Results are statistical best guesses, not certified decryptions.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "", "Path to a YAML or JSON config file")
	pf.StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	pf.BoolVar(&opts.logJSON, "log-json", false, "Write logs to stderr as JSON")
	pf.BoolVar(&opts.trace, "trace", false, "Record OpenTelemetry spans (stdout exporter unless configured)")
	pf.StringVar(&opts.output, "output", "", "Output mode: rich, plain, machine (default: detect)")

	root.AddCommand(
		newCrackCmd(opts),
		newRunCmd(opts),
		newScoreCmd(opts),
		newEncryptCmd(opts),
		newStrategiesCmd(opts),
		newServeCmd(opts),
	)
	return root
}

func newCrackCmd(root *rootOptions) *cobra.Command {
	opts := &crackOptions{}
	cmd := &cobra.Command{
		Use:   "crack [ciphertext...]",
		Short: "Rank the most English-like decryptions of a ciphertext",
		Example: `  cipherbreak crack --cipher caesar "KHOOR ZRUOG"
  cipherbreak crack --cipher substitution --seed 42 -f message.txt
  echo "WKH HQG" | cipherbreak crack --cipher caesar -f -`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCrack(cmd, root, opts, args)
		},
	}
	addCrackFlags(cmd, opts)
	return cmd
}

func newRunCmd(root *rootOptions) *cobra.Command {
	opts := &crackOptions{}
	cmd := &cobra.Command{
		Use:   "run [ciphertext...]",
		Short: "Run a single search strategy",
		Example: `  cipherbreak run --cipher substitution --strategy simulated_annealing --seeding pattern -f message.txt
  cipherbreak run --cipher caesar --strategy exhaustive "KHOOR ZRUOG"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStrategy(cmd, root, opts, args)
		},
	}
	addCrackFlags(cmd, opts)
	cmd.Flags().StringVar(&opts.strategy, "strategy", "", "exhaustive, hill_climbing, simulated_annealing, genetic, hybrid")
	cmd.Flags().StringVar(&opts.seeding, "seeding", "frequency", "Local search start: frequency, pattern, random")
	cmd.Flags().StringVar(&opts.start, "start", "", "Explicit starting key, overriding --seeding")
	_ = cmd.MarkFlagRequired("strategy")
	return cmd
}

func addCrackFlags(cmd *cobra.Command, opts *crackOptions) {
	f := cmd.Flags()
	f.StringVarP(&opts.cipher, "cipher", "c", "substitution", "Cipher: bacon, caesar, polybius, railfence, substitution")
	f.IntVarP(&opts.top, "top", "n", 0, "Number of candidates (default from config)")
	f.Uint64Var(&opts.seed, "seed", 0, "Random seed; non-zero makes the run reproducible")
	f.Float64Var(&opts.scale, "scale", 1, "Multiplier for iteration and generation budgets")
	f.StringVar(&opts.cacheDir, "cache-dir", "", "Cache seeded results in this directory")
	f.StringVarP(&opts.file, "file", "f", "", "Read ciphertext from a file, or - for stdin")
	f.BoolVar(&opts.jsonOut, "json", false, "Print candidates as JSON")
}

func newScoreCmd(root *rootOptions) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "score [text...]",
		Short: "Show how English-like a text is, term by term",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScore(cmd, root, file, args)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Read text from a file, or - for stdin")
	return cmd
}

func newEncryptCmd(root *rootOptions) *cobra.Command {
	var (
		cipher, key, file string
		seed              uint64
	)
	cmd := &cobra.Command{
		Use:   "encrypt [plaintext...]",
		Short: "Encrypt a plaintext, e.g. to build test ciphertexts",
		Example: `  cipherbreak encrypt --cipher caesar --key 3 "HELLO WORLD"
  cipherbreak encrypt --cipher substitution --seed 7 -f passage.txt`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEncrypt(cmd, root, cipher, key, seed, file, args)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&cipher, "cipher", "c", "caesar", "Cipher: bacon, caesar, polybius, railfence, substitution")
	f.StringVarP(&key, "key", "k", "", "Key: shift, rail count, or 26-letter substitution image")
	f.Uint64Var(&seed, "seed", 0, "Draw a random substitution key from this seed when --key is empty")
	f.StringVarP(&file, "file", "f", "", "Read plaintext from a file, or - for stdin")
	return cmd
}

func newStrategiesCmd(root *rootOptions) *cobra.Command {
	var health bool
	cmd := &cobra.Command{
		Use:   "strategies",
		Short: "List search strategies, their properties and metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStrategies(cmd, root, health)
		},
	}
	cmd.Flags().BoolVar(&health, "health", false, "Run every strategy's self test")
	return cmd
}

func newServeCmd(root *rootOptions) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, root, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from config)")
	return cmd
}
