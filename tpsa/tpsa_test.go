// Copyright 2025 Buf Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package tpsa

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grounding-example.dev/tpt/internal/tokenindex"
)

var seedSentences = []string{
	"the black cat sat",
	"the black dog ran",
	"a black cat slept",
}

func buildSeed(t *testing.T) (string, string, string) {
	t.Helper()
	vocab := tokenindex.NewBuilder()
	track, sufa := Build(vocab, seedSentences)

	dir := t.TempDir()
	vocabPath := filepath.Join(dir, "vocab.tdx")
	trackPath := filepath.Join(dir, "corpus.mct")
	sufaPath := filepath.Join(dir, "suffix.mmsufa")

	require.NoError(t, os.WriteFile(vocabPath, vocab.Encode(uint32(vocab.Len())), 0o644))
	require.NoError(t, os.WriteFile(trackPath, track, 0o644))
	require.NoError(t, os.WriteFile(sufaPath, sufa, 0o644))
	return vocabPath, trackPath, sufaPath
}

func TestBuildAndQuery(t *testing.T) {
	vocabPath, trackPath, sufaPath := buildSeed(t)
	r, err := Open(vocabPath, trackPath, sufaPath)
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, uint32(3), r.NumSentences())
	assert.Equal(t, []string{"the", "black", "cat", "sat"}, r.Sentence(0))

	lo, hi, ok := r.Bounds([]string{"black"})
	require.True(t, ok)
	assert.Equal(t, 3, r.RawCount(lo, hi))
	assert.Equal(t, 3, r.SntCount(lo, hi))

	lo2, hi2, ok := r.Bounds([]string{"black", "cat"})
	require.True(t, ok)
	assert.Equal(t, 2, r.RawCount(lo2, hi2))

	_, _, ok = r.Bounds([]string{"nonexistent"})
	assert.False(t, ok)
}

func TestIteratorWalk(t *testing.T) {
	vocabPath, trackPath, sufaPath := buildSeed(t)
	r, err := Open(vocabPath, trackPath, sufaPath)
	require.NoError(t, err)
	defer r.Close()

	it := r.NewIterator()
	require.True(t, it.Extend("black"))
	assert.Equal(t, 1, it.Depth())
	require.True(t, it.Extend("cat"))
	assert.Equal(t, 2, it.Depth())

	assert.False(t, it.Extend("zzz"))
	require.True(t, it.Up())
	assert.Equal(t, 1, it.Depth())
	assert.False(t, it.Over("nope-token"))
}

func TestRandomSampleDeterministic(t *testing.T) {
	vocabPath, trackPath, sufaPath := buildSeed(t)
	r, err := Open(vocabPath, trackPath, sufaPath)
	require.NoError(t, err)
	defer r.Close()

	lo, hi, ok := r.Bounds([]string{"black"})
	require.True(t, ok)
	samples := r.RandomSample(lo, hi, 2, func(span uint32) uint32 { return 0 })
	assert.Len(t, samples, 2)
}
