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

// Package seqrepo implements the reverse-linked sequence repository of
// §3.4: every distinct token-ID sequence encountered while building a TPPT
// or TPLM side is stored once, sharing common prefixes, as a chain of
// (token_id, back_offset_to_parent) nodes. A sequence's ID is the file
// offset of its deepest node; walking back_offset pointers reconstructs
// the sequence in reverse.
package seqrepo

import (
	"encoding/binary"
	"sort"

	"grounding-example.dev/tpt/internal/arena"
	"grounding-example.dev/tpt/internal/tpterr"
	"grounding-example.dev/tpt/internal/varint"
)

// Node is an in-memory trie node accumulated during Build. Nodes are kept
// in memory for the lifetime of a build so that the tightly packed trie
// writer (internal/tpttrie) can walk this structure directly instead of
// round-tripping through the serialized repository (§4.5's "walk the
// source repository index" uses this in-process form; the serialized
// .idx only needs to support the root-level lookup described in §3.4).
type Node struct {
	Token    uint32
	PrelimID uint32
	Offset   int // final .dat offset, valid only after Build

	children map[uint32]*Node
}

// SortedChildren returns this node's children ordered by token ID
// ascending, the ordering contract required wherever a trie binary-searches
// a child list (§4.5).
func (n *Node) SortedChildren() []*Node {
	out := make([]*Node, 0, len(n.children))
	for _, c := range n.children {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Token < out[j].Token })
	return out
}

// Child looks up a direct child by token ID.
func (n *Node) Child(token uint32) (*Node, bool) {
	c, ok := n.children[token]
	return c, ok
}

// Builder accumulates sequences in memory before a single Build call
// flushes them, in the two-pass offset-then-fixup style noted for
// back-offset structures in §9.
type Builder struct {
	root   *Node
	nextID uint32 // 0 is reserved for the root
}

// NewBuilder returns an empty sequence-repository builder.
func NewBuilder() *Builder {
	return &Builder{
		root:   &Node{children: make(map[uint32]*Node)},
		nextID: 1,
	}
}

// Root returns the builder's in-memory root node.
func (b *Builder) Root() *Node { return b.root }

// Insert records path (a token-ID sequence) in the repository, creating any
// missing nodes along the way, and returns the preliminary sequence ID of
// its deepest node. Calling Insert again with the same path returns the
// same ID.
func (b *Builder) Insert(path []uint32) uint32 {
	n := b.root
	for _, tok := range path {
		c, ok := n.children[tok]
		if !ok {
			c = &Node{Token: tok, PrelimID: b.nextID, children: make(map[uint32]*Node)}
			b.nextID++
			n.children[tok] = c
		}
		n = c
	}
	return n.PrelimID
}

// NumSequences returns the number of distinct nodes created so far
// (including the synthetic root at preliminary ID 0).
func (b *Builder) NumSequences() int { return int(b.nextID) }

// Build flushes the in-memory trie into a, writing each node as
// (token_id: TUI, back_offset_to_parent: TUI) per §3.4.
//
// Nodes are written in pre-order (parent immediately before its children),
// which differs from the post-order walk suggested by §4.4's prose but
// satisfies the same §3.4 invariant (current_offset - back_offset equals
// the parent's offset): writing the parent first means its offset is
// already known when each child's back_offset is computed, avoiding a
// second fix-up pass for a field whose width is not known until the value
// itself is (see DESIGN.md).
//
// It returns remap, where remap[prelimID] gives that sequence's final
// offset in a, and the root index (§3.5's fixed-width root-index layout,
// restricted to this repository's top-level tokens) used for O(1) lookup
// of a root-level child's offset.
func (b *Builder) Build(a *arena.Arena) (remap []uint32, rootIndex []byte) {
	remap = make([]uint32, b.nextID)

	rootStart := a.Alloc(varint.AppendTUI(nil, 0))
	a.Alloc(varint.AppendTUI(nil, 0))
	b.root.Offset = rootStart
	remap[0] = uint32(rootStart)

	writeChildren(a, b.root, remap)
	return remap, buildRootIndex(b.root)
}

func writeChildren(a *arena.Arena, n *Node, remap []uint32) {
	for _, c := range n.SortedChildren() {
		start := a.Alloc(varint.AppendTUI(nil, uint64(c.Token)))
		backOffset := start - n.Offset
		a.Alloc(varint.AppendTUI(nil, uint64(backOffset)))
		c.Offset = start
		remap[c.PrelimID] = uint32(start)
		writeChildren(a, c, remap)
	}
}

const rootIndexEntrySize = 9 // 8-byte offset + 1-byte flags

func buildRootIndex(root *Node) []byte {
	numTokens := uint32(0)
	for tok := range root.children {
		if tok+1 > numTokens {
			numTokens = tok + 1
		}
	}
	out := make([]byte, int(numTokens)*rootIndexEntrySize)
	for tok, c := range root.children {
		base := int(tok) * rootIndexEntrySize
		binary.LittleEndian.PutUint64(out[base:base+8], uint64(c.Offset))
		out[base+8] = 1
	}
	return out
}

// Repository is a loaded, read-only sequence repository, typically backed
// by memory-mapped .dat and .idx files (see internal/mmio).
type Repository struct {
	dat []byte
	idx []byte
}

// Load wraps raw .dat and .idx bytes.
func Load(dat, idx []byte) (*Repository, error) {
	if len(dat) < 2 {
		return nil, tpterr.Format("seqrepo", 0, tpterr.ErrTruncated)
	}
	if len(idx)%rootIndexEntrySize != 0 {
		return nil, tpterr.Formatf("seqrepo", int64(len(idx)), "root index length %d is not a multiple of %d", len(idx), rootIndexEntrySize)
	}
	return &Repository{dat: dat, idx: idx}, nil
}

// NumRootTokens returns the size of the root index.
func (r *Repository) NumRootTokens() int { return len(r.idx) / rootIndexEntrySize }

// RootOffset returns the .dat offset of the top-level node for token, and
// whether one exists.
func (r *Repository) RootOffset(token uint32) (uint32, bool) {
	if int(token) >= r.NumRootTokens() {
		return 0, false
	}
	base := int(token) * rootIndexEntrySize
	if r.idx[base+8] == 0 {
		return 0, false
	}
	return uint32(binary.LittleEndian.Uint64(r.idx[base : base+8])), true
}

// NodeAt decodes the node at offset, returning its token ID and its
// parent's offset (0 for the root, whose own offset is also 0).
func (r *Repository) NodeAt(offset uint32) (token uint32, parentOffset uint32, err error) {
	tok, n, err := varint.ReadTUI(r.dat[offset:])
	if err != nil {
		return 0, 0, tpterr.Format("seqrepo", int64(offset), err)
	}
	back, _, err := varint.ReadTUI(r.dat[int(offset)+n:])
	if err != nil {
		return 0, 0, tpterr.Format("seqrepo", int64(offset), err)
	}
	if back == 0 {
		return uint32(tok), 0, nil
	}
	return uint32(tok), offset - uint32(back), nil
}

// Sequence reconstructs the token-ID sequence terminating at offset, in
// forward order, by walking back_offset pointers to the root.
func (r *Repository) Sequence(offset uint32) ([]uint32, error) {
	var rev []uint32
	cur := offset
	for {
		tok, parent, err := r.NodeAt(cur)
		if err != nil {
			return nil, err
		}
		if cur == 0 {
			break
		}
		rev = append(rev, tok)
		cur = parent
	}
	out := make([]uint32, len(rev))
	for i, t := range rev {
		out[len(rev)-1-i] = t
	}
	return out, nil
}
