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

package seqrepo_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grounding-example.dev/tpt/internal/arena"
	"grounding-example.dev/tpt/internal/seqrepo"
)

func TestBuildAndReloadRoundTrip(t *testing.T) {
	b := seqrepo.NewBuilder()
	idAB := b.Insert([]uint32{1, 2})    // a, b
	idA := b.Insert([]uint32{1})        // a
	idAC := b.Insert([]uint32{1, 3})    // a, c
	idABAgain := b.Insert([]uint32{1, 2})

	assert.Equal(t, idAB, idABAgain, "repeated insert must reuse the node")
	assert.NotEqual(t, idA, idAB)
	assert.NotEqual(t, idAB, idAC)

	a := arena.New(0)
	remap, rootIdx := b.Build(a)

	repo, err := seqrepo.Load(a.Bytes(), rootIdx)
	require.NoError(t, err)

	seq, err := repo.Sequence(remap[idAB])
	require.NoError(t, err)
	assert.Equal(t, []uint32{1, 2}, seq)

	seq, err = repo.Sequence(remap[idA])
	require.NoError(t, err)
	assert.Equal(t, []uint32{1}, seq)

	seq, err = repo.Sequence(remap[idAC])
	require.NoError(t, err)
	assert.Equal(t, []uint32{1, 3}, seq)
}

func TestRootIndexLookup(t *testing.T) {
	b := seqrepo.NewBuilder()
	b.Insert([]uint32{5})
	b.Insert([]uint32{2, 9})

	a := arena.New(0)
	_, rootIdx := b.Build(a)
	repo, err := seqrepo.Load(a.Bytes(), rootIdx)
	require.NoError(t, err)

	off, ok := repo.RootOffset(5)
	assert.True(t, ok)
	tok, parent, err := repo.NodeAt(off)
	require.NoError(t, err)
	assert.EqualValues(t, 5, tok)
	assert.EqualValues(t, 0, parent)

	_, ok = repo.RootOffset(2)
	assert.True(t, ok)

	_, ok = repo.RootOffset(99)
	assert.False(t, ok)
}

func TestEmptySequenceIsRoot(t *testing.T) {
	b := seqrepo.NewBuilder()
	id := b.Insert(nil)
	assert.EqualValues(t, 0, id)

	a := arena.New(0)
	remap, _ := b.Build(a)
	repo, err := seqrepo.Load(a.Bytes(), nil)
	require.NoError(t, err)

	seq, err := repo.Sequence(remap[id])
	require.NoError(t, err)
	assert.Empty(t, seq)
}

func TestSharedPrefixesAreSingleNodes(t *testing.T) {
	b := seqrepo.NewBuilder()
	b.Insert([]uint32{1, 2, 3})
	b.Insert([]uint32{1, 2, 4})
	// Sequences sharing the "1,2" prefix should reuse that subpath, so the
	// total node count is root + 1 + 2 + 3 + 4 = 5, not 7.
	assert.Equal(t, 5, b.NumSequences())
}
