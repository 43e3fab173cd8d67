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

package tokenindex_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grounding-example.dev/tpt/internal/tokenindex"
)

func TestEncodeLoadRoundTrip(t *testing.T) {
	b := tokenindex.NewBuilder()
	words := []string{"the", "cat", "sat", "on", "the", "mat"}
	ids := make(map[string]uint32)
	for _, w := range words {
		ids[w] = b.Intern(w)
	}

	data := b.Encode(uint32(b.Len()))
	f, err := tokenindex.Load(data)
	require.NoError(t, err)

	assert.EqualValues(t, 5, f.NumTokens())
	assert.False(t, f.HasUnk())

	for w, id := range ids {
		got, ok := f.Lookup(w)
		require.True(t, ok, w)
		assert.Equal(t, id, got)
		assert.Equal(t, w, f.String(id))
	}

	_, ok := f.Lookup("dog")
	assert.False(t, ok)
}

func TestRemapPreservesLookups(t *testing.T) {
	b := tokenindex.NewBuilder()
	aID := b.Intern("a")
	bID := b.Intern("b")
	cID := b.Intern("c")

	// Reverse frequency order: c becomes 0, b becomes 1, a becomes 2.
	newID := make([]uint32, 3)
	newID[aID] = 2
	newID[bID] = 1
	newID[cID] = 0
	b.Remap(newID)

	got, ok := b.Lookup("c")
	require.True(t, ok)
	assert.EqualValues(t, 0, got)

	data := b.Encode(uint32(b.Len()))
	f, err := tokenindex.Load(data)
	require.NoError(t, err)
	id, ok := f.Lookup("a")
	require.True(t, ok)
	assert.EqualValues(t, 2, id)
	assert.Equal(t, "a", f.String(2))
}

func TestUnkID(t *testing.T) {
	b := tokenindex.NewBuilder()
	b.Intern("known")
	unk := b.Intern("<unk>")
	data := b.Encode(unk)
	f, err := tokenindex.Load(data)
	require.NoError(t, err)
	assert.True(t, f.HasUnk())
	assert.Equal(t, unk, f.UnkID())
}

func TestLoadTruncated(t *testing.T) {
	_, err := tokenindex.Load([]byte{1, 2, 3})
	assert.Error(t, err)
}
