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

package tpttrie_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grounding-example.dev/tpt/internal/tpttrie"
)

// buildSmallestCase mirrors §8 scenario 4: "a" -> payload A, "a","b" ->
// payload AB, with "b" alone absent.
func buildSmallestCase(t *testing.T) *tpttrie.Reader {
	root := tpttrie.NewBuildNode()
	a := root.Child(1) // token "a"
	a.Payload = []byte("A")
	ab := a.Child(2) // token "b"
	ab.Payload = []byte("AB")

	data := tpttrie.Assemble(root, tpttrie.Header{})
	r, err := tpttrie.Load(data)
	require.NoError(t, err)
	return r
}

func TestRootFindAndLookup(t *testing.T) {
	r := buildSmallestCase(t)

	n, ok := r.Find(1)
	require.True(t, ok)
	assert.True(t, n.HasValue())
	assert.Equal(t, []byte("A"), n.Value())

	n2, ok := r.Lookup([]uint32{1, 2})
	require.True(t, ok)
	assert.Equal(t, []byte("AB"), n2.Value())

	_, ok = r.Find(2) // "b" alone was never inserted at the root
	assert.False(t, ok)
}

func TestFindMissingToken(t *testing.T) {
	r := buildSmallestCase(t)
	n, _ := r.Find(1)
	_, ok := n.Find(99)
	assert.False(t, ok)
}

func TestWideRootIndexLookup(t *testing.T) {
	root := tpttrie.NewBuildNode()
	const n = 200
	for tok := uint32(0); tok < n; tok++ {
		c := root.Child(tok)
		c.Payload = []byte{byte(tok), byte(tok >> 8)}
	}
	data := tpttrie.Assemble(root, tpttrie.Header{})
	r, err := tpttrie.Load(data)
	require.NoError(t, err)

	for tok := uint32(0); tok < n; tok++ {
		node, ok := r.Find(tok)
		require.True(t, ok, "token %d", tok)
		assert.Equal(t, []byte{byte(tok), byte(tok >> 8)}, node.Value())
	}
}

func TestDeepChainBinarySearch(t *testing.T) {
	root := tpttrie.NewBuildNode()
	cur := root
	path := []uint32{3, 50, 1000, 7, 42}
	for _, tok := range path {
		cur = cur.Child(tok)
	}
	cur.Payload = []byte("deep")
	// Give the deepest node several siblings so Find must
	// actually binary-search rather than trivially match a single entry.
	parent := root
	for _, tok := range path[:len(path)-1] {
		parent = parent.Child(tok)
	}
	for extra := uint32(0); extra < 30; extra++ {
		parent.Child(extra + 10000)
	}

	data := tpttrie.Assemble(root, tpttrie.Header{})
	r, err := tpttrie.Load(data)
	require.NoError(t, err)

	n, ok := r.Lookup(path)
	require.True(t, ok)
	assert.Equal(t, []byte("deep"), n.Value())
}

func TestInlineLeafChild(t *testing.T) {
	root := tpttrie.NewBuildNode()
	parent := root.Child(1)
	leaf := tpttrie.NewBuildNode()
	leaf.Inline = true
	leaf.InlineValue = 42
	parent.SetInlineChild(7, leaf)

	data := tpttrie.Assemble(root, tpttrie.Header{})
	r, err := tpttrie.Load(data)
	require.NoError(t, err)

	p, ok := r.Find(1)
	require.True(t, ok)
	child, ok := p.Find(7)
	require.True(t, ok)
	assert.True(t, child.IsInline())
	assert.EqualValues(t, 42, child.InlineValue())
}

func TestHeaderDefaults(t *testing.T) {
	root := tpttrie.NewBuildNode()
	root.Child(1).Payload = []byte("x")
	data := tpttrie.Assemble(root, tpttrie.Header{Default1: 7, Default2: 99})
	r, err := tpttrie.Load(data)
	require.NoError(t, err)
	assert.EqualValues(t, 7, r.Default1)
	assert.EqualValues(t, 99, r.Default2)
}
