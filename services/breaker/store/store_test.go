// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(fp string) *Record {
	return &Record{
		Fingerprint: fp,
		RunID:       "run-1",
		Adapter:     "caesar",
		Candidates: []StoredCandidate{
			{Key: "3", Plaintext: "HELLO WORLD", Score: 120.5},
			{Key: "4", Plaintext: "GDKKN VNQKC", Score: -300},
		},
	}
}

func TestResultStore_PutGet(t *testing.T) {
	s, err := OpenInMemory()
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	require.NoError(t, s.Put(ctx, record("abc")))

	got, err := s.Get(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, "run-1", got.RunID)
	assert.Equal(t, "caesar", got.Adapter)
	require.Len(t, got.Candidates, 2)
	assert.Equal(t, "HELLO WORLD", got.Candidates[0].Plaintext)
	assert.False(t, got.CreatedAt.IsZero())

	n, err := s.Len()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestResultStore_Missing(t *testing.T) {
	s, err := OpenInMemory()
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResultStore_Delete(t *testing.T) {
	s, err := OpenInMemory()
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	require.NoError(t, s.Put(ctx, record("abc")))
	require.NoError(t, s.Delete(ctx, "abc"))
	require.NoError(t, s.Delete(ctx, "never-stored"))

	_, err = s.Get(ctx, "abc")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResultStore_Persistent(t *testing.T) {
	dir := t.TempDir()

	s, err := Open(DefaultConfig(dir))
	require.NoError(t, err)
	require.NoError(t, s.Put(context.Background(), record("persisted")))
	require.NoError(t, s.Close())

	s2, err := Open(DefaultConfig(dir))
	require.NoError(t, err)
	defer s2.Close()
	got, err := s2.Get(context.Background(), "persisted")
	require.NoError(t, err)
	assert.Len(t, got.Candidates, 2)
}

func TestResultStore_Errors(t *testing.T) {
	_, err := Open(Config{})
	assert.Error(t, err, "path is required")

	s, err := OpenInMemory()
	require.NoError(t, err)
	defer s.Close()

	assert.Error(t, s.Put(context.Background(), &Record{}))
	assert.Error(t, s.Put(context.Background(), nil))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.Put(ctx, record("x")), context.Canceled)
	_, err = s.Get(ctx, "x")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFingerprint(t *testing.T) {
	type budget struct {
		Seed  uint64
		Scale float64
	}
	a, err := Fingerprint("caesar", "KHOOR", budget{Seed: 1, Scale: 1})
	require.NoError(t, err)
	b, err := Fingerprint("caesar", "KHOOR", budget{Seed: 1, Scale: 1})
	require.NoError(t, err)
	c, err := Fingerprint("caesar", "KHOOR", budget{Seed: 2, Scale: 1})
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64)

	_, err = Fingerprint(func() {})
	assert.Error(t, err)
}
