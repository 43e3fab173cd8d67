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

package tppt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seedEntries is spec.md §8 seed test #4, the smallest phrase table: one
// single-token source phrase and one two-token source phrase, each with a
// single candidate and two score columns.
var seedEntries = []Entry{
	{Src: []string{"a"}, Trg: []string{"b"}, Scores: []float32{1.0, 1.0}},
	{Src: []string{"a", "b"}, Trg: []string{"c"}, Scores: []float32{0.5, 0.5}},
}

func TestBuildAndLookup(t *testing.T) {
	data := Build(seedEntries)
	r, err := Load(data)
	require.NoError(t, err)

	cands, found := r.Lookup([]string{"a"})
	require.True(t, found)
	require.Len(t, cands, 1)
	assert.Equal(t, []string{"b"}, cands[0].Trg)
	assert.Equal(t, []float32{1.0, 1.0}, cands[0].Scores)

	cands, found = r.Lookup([]string{"a", "b"})
	require.True(t, found)
	require.Len(t, cands, 1)
	assert.Equal(t, []string{"c"}, cands[0].Trg)
	assert.Equal(t, []float32{0.5, 0.5}, cands[0].Scores)

	_, found = r.Lookup([]string{"b"})
	assert.False(t, found)
}

func TestBuildAndLookupWithCountsAndAlignment(t *testing.T) {
	entries := []Entry{
		{
			Src:       []string{"le", "chat"},
			Trg:       []string{"the", "cat"},
			Scores:    []float32{0.9, 0.8},
			Counts:    []uint32{3, 3},
			Alignment: [][]int{{0}, {1}},
		},
		{
			Src:    []string{"le", "chien"},
			Trg:    []string{"the", "dog"},
			Scores: []float32{0.7, 0.6},
			Counts: []uint32{1, 1},
		},
	}
	data := Build(entries)
	r, err := Load(data)
	require.NoError(t, err)

	cands, found := r.Lookup([]string{"le", "chat"})
	require.True(t, found)
	require.Len(t, cands, 1)
	assert.Equal(t, []string{"the", "cat"}, cands[0].Trg)
	assert.Equal(t, []uint32{3, 3}, cands[0].Counts)
	assert.Equal(t, [][]int{{0}, {1}}, cands[0].Alignment)

	cands, found = r.Lookup([]string{"le", "chien"})
	require.True(t, found)
	require.Len(t, cands, 1)
	assert.Equal(t, []uint32{1, 1}, cands[0].Counts)
	assert.Nil(t, cands[0].Alignment)
}

func TestEncodePhrasesSharesRepeatedPhrases(t *testing.T) {
	res := EncodePhrases([][]string{{"a", "b"}, {"a", "b"}, {"a", "c"}})
	assert.Equal(t, res.Col[0], res.Col[1])
	assert.NotEqual(t, res.Col[0], res.Col[2])
}
