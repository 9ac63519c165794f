// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package algorithms defines the contract shared by every key-search strategy
// and the Runner that executes several of them side by side.
//
// Architecture:
//
//	┌──────────────────────────────────────────────────────────────┐
//	│                        Orchestrator                          │
//	└──────────────────────────────┬───────────────────────────────┘
//	                               │ []Job
//	                               ▼
//	┌──────────────────────────────────────────────────────────────┐
//	│   Runner: bounded errgroup, one span per job, join at end    │
//	└───────┬──────────────────────┬──────────────────────┬────────┘
//	        ▼                      ▼                      ▼
//	  ┌───────────┐          ┌───────────┐          ┌───────────┐
//	  │ Strategy  │          │ Strategy  │          │ Strategy  │
//	  │ own RNG,  │          │ own RNG,  │          │ own RNG,  │
//	  │ own keys  │          │ own keys  │          │ own keys  │
//	  └─────┬─────┘          └─────┬─────┘          └─────┬─────┘
//	        ▼                      ▼                      ▼
//	     Result                 Result                 Result
//	        └──────────────────────┼──────────────────────┘
//	                               ▼
//	                       Rank (merge, dedupe)
//
// Strategy Contract:
//
//	Strategies MUST:
//	1. Treat the Problem as read-only; keys are values and never aliased.
//	2. Draw randomness only from Problem.RNG.
//	3. Poll ctx at every iteration boundary and return the best-so-far
//	   Outcome together with ctx.Err() when cancelled.
//	4. Implement eval.Evaluable.
//
//	Strategies MUST NOT:
//	1. Share mutable state with another run.
//	2. Log or perform I/O inside the search loop.
//
// The Scorer and language model are immutable and shared read-only by every
// concurrent run, so the Runner needs no locking beyond the final join.
package algorithms
