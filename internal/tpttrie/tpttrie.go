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

// Package tpttrie implements the tightly packed trie of §3.5/§4.5/§4.6,
// shared by both the TPPT source-phrase index and the TPLM reverse-context
// index: a node optionally carries a child index (a TIP-packed, token-ID
// sorted list of (token_id<<FLAGBITS|child_flags, child_ref) pairs) and an
// optional opaque value payload, whose bytes are interpreted by the caller
// (TPPT candidate lists, §3.6; TPLM probability tables, §3.7).
package tpttrie

import (
	"encoding/binary"
	"sort"

	"grounding-example.dev/tpt/internal/arena"
	"grounding-example.dev/tpt/internal/bitblock"
	"grounding-example.dev/tpt/internal/tpterr"
	"grounding-example.dev/tpt/internal/varint"
)

// FlagBits is the width of the child-flags field packed into the low bits
// of every child-index key.
const FlagBits = 2

// Flag values per §3.5.
const (
	FlagHasChild uint64 = 1 << 0
	FlagHasValue uint64 = 2 << 0
)

const flagMask = uint64(1)<<FlagBits - 1

// BuildNode is an in-memory trie node accumulated by a builder before
// Assemble flushes the whole trie to bytes.
type BuildNode struct {
	Payload []byte

	// Inline marks a §3.7 leaf-inlining optimization: this node is never
	// materialized in the data stream. Instead, the parent's child-index
	// entry stores InlineValue directly as the "child_ref" with
	// child_flags == 0, and a reader recognizes the inlined case by
	// seeing those clear flags rather than dereferencing a node.
	Inline      bool
	InlineValue uint64

	children map[uint32]*BuildNode
	offset  uint32
}

// NewBuildNode returns an empty node with no children or payload.
func NewBuildNode() *BuildNode {
	return &BuildNode{children: make(map[uint32]*BuildNode)}
}

// Child returns the child of n keyed by token, creating it if absent.
func (n *BuildNode) Child(token uint32) *BuildNode {
	c, ok := n.children[token]
	if !ok {
		c = NewBuildNode()
		n.children[token] = c
	}
	return c
}

// HasChild reports whether n already has a child for token, without
// creating one.
func (n *BuildNode) HasChild(token uint32) bool {
	_, ok := n.children[token]
	return ok
}

// SetInlineChild attaches child under token, inline or not, overwriting any
// existing child. Used to attach a §3.7 inlined leaf (child.Inline == true)
// whose value is never written as a physical node.
func (n *BuildNode) SetInlineChild(token uint32, child *BuildNode) {
	n.children[token] = child
}

type sortedChild struct {
	token uint32
	node  *BuildNode
}

func sortedChildren(n *BuildNode) []sortedChild {
	out := make([]sortedChild, 0, len(n.children))
	for t, c := range n.children {
		out = append(out, sortedChild{t, c})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].token < out[j].token })
	return out
}

func flagsOf(n *BuildNode) uint64 {
	var f uint64
	if len(n.children) > 0 {
		f |= FlagHasChild
	}
	if n.Payload != nil {
		f |= FlagHasValue
	}
	return f
}

// writeNode writes n's full subtree into a: first every non-inline child's
// subtree (so each child's final offset is known), then n's own child
// index (if any), then n's own (idx_back_offset, payload) region. It
// returns the position a reader must start from to interpret n, which is
// also the offset recorded in n for use by n's parent.
func writeNode(a *arena.Arena, n *BuildNode) uint32 {
	children := sortedChildren(n)
	for _, c := range children {
		if !c.node.Inline {
			writeNode(a, c.node)
		}
	}

	idxStart := uint32(a.Len())
	if len(children) > 0 {
		var buf []byte
		for _, c := range children {
			var flags, ref uint64
			if c.node.Inline {
				flags, ref = 0, c.node.InlineValue
			} else {
				flags = flagsOf(c.node)
				ref = uint64(idxStart - c.node.offset)
			}
			key := uint64(c.token)<<FlagBits | flags
			buf = bitblock.AppendPair(buf, key, ref)
		}
		a.Alloc(buf)
	}

	pos := uint32(a.Len())
	flags := flagsOf(n)
	if flags&FlagHasChild != 0 {
		a.Alloc(varint.AppendTUI(nil, uint64(pos-idxStart)))
	}
	if flags&FlagHasValue != 0 {
		a.Alloc(n.Payload)
	}
	n.offset = pos
	return pos
}

// Header carries the two format-specific "default/placeholder" values of
// §3.5, whose meaning is assigned by the caller (TPPT and TPLM each use
// them differently; see their own assemblers).
type Header struct {
	Default1 uint64
	Default2 uint64
}

const headerSize = 8 /* root_index_start */ + 4 /* num_root_tokens */ + 8 + 8
const rootEntrySize = 9 // offset: u64, flags: u8

// Assemble flushes the trie rooted at root into a single byte slice: the
// §3.5 header (root_index_start, num_root_tokens, the two default values),
// the node data, then the fixed-width root index.
func Assemble(root *BuildNode, hdr Header) []byte {
	a := arena.New(0)
	children := sortedChildren(root)
	for _, c := range children {
		if !c.node.Inline {
			writeNode(a, c.node)
		}
	}

	var numRootTokens uint32
	for _, c := range children {
		if c.token+1 > numRootTokens {
			numRootTokens = c.token + 1
		}
	}

	const bias = uint32(headerSize)
	rootIdx := make([]byte, int(numRootTokens)*rootEntrySize)
	for _, c := range children {
		base := int(c.token) * rootEntrySize
		var off uint64
		var flags byte
		if c.node.Inline {
			off = c.node.InlineValue
			flags = 0
		} else {
			off = uint64(c.node.offset + bias)
			flags = byte(flagsOf(c.node))
		}
		binary.LittleEndian.PutUint64(rootIdx[base:base+8], off)
		rootIdx[base+8] = flags
	}

	nodeData := a.Bytes()
	rootIndexStart := uint64(bias) + uint64(len(nodeData))

	out := make([]byte, 0, headerSize+len(nodeData)+len(rootIdx))
	var b8 [8]byte
	binary.LittleEndian.PutUint64(b8[:], rootIndexStart)
	out = append(out, b8[:]...)
	var b4 [4]byte
	binary.LittleEndian.PutUint32(b4[:], numRootTokens)
	out = append(out, b4[:]...)
	binary.LittleEndian.PutUint64(b8[:], hdr.Default1)
	out = append(out, b8[:]...)
	binary.LittleEndian.PutUint64(b8[:], hdr.Default2)
	out = append(out, b8[:]...)
	out = append(out, nodeData...)
	out = append(out, rootIdx...)
	return out
}

// Reader is a loaded, read-only tightly packed trie, typically backed by a
// memory mapping (see internal/mmio).
type Reader struct {
	data           []byte
	rootIndexStart uint32
	numRootTokens  uint32

	Default1 uint64
	Default2 uint64
}

// Load parses the §3.5 header and validates that the root index fits
// within data.
func Load(data []byte) (*Reader, error) {
	if len(data) < headerSize {
		return nil, tpterr.Format("tpttrie", 0, tpterr.ErrTruncated)
	}
	rootIndexStart := binary.LittleEndian.Uint64(data[0:8])
	numRootTokens := binary.LittleEndian.Uint32(data[8:12])
	d1 := binary.LittleEndian.Uint64(data[12:20])
	d2 := binary.LittleEndian.Uint64(data[20:28])

	need := rootIndexStart + uint64(numRootTokens)*rootEntrySize
	if uint64(len(data)) < need {
		return nil, tpterr.Format("tpttrie", int64(len(data)), tpterr.ErrIndexOutOfRange)
	}
	return &Reader{
		data:           data,
		rootIndexStart: uint32(rootIndexStart),
		numRootTokens:  numRootTokens,
		Default1:       d1,
		Default2:       d2,
	}, nil
}

// NumRootTokens returns the size of the root index.
func (r *Reader) NumRootTokens() uint32 { return r.numRootTokens }

// Find performs the O(1) root-level lookup of §4.6.
func (r *Reader) Find(token uint32) (Node, bool) {
	if token >= r.numRootTokens {
		return Node{}, false
	}
	base := int(r.rootIndexStart) + int(token)*rootEntrySize
	off := binary.LittleEndian.Uint64(r.data[base : base+8])
	flags := uint64(r.data[base+8])
	if off == 0 {
		return Node{}, false
	}
	if flags&flagMask == 0 {
		return Node{r: r, inline: true, inlineValue: off}, true
	}
	return Node{r: r, offset: uint32(off), flags: flags}, true
}

// Lookup chains Find/Node.Find across tokens and returns the deepest node
// reached, mirroring §4.6's lookup(sentence, i, j).
func (r *Reader) Lookup(tokens []uint32) (Node, bool) {
	if len(tokens) == 0 {
		return Node{}, false
	}
	n, ok := r.Find(tokens[0])
	if !ok {
		return Node{}, false
	}
	for _, t := range tokens[1:] {
		n, ok = n.Find(t)
		if !ok {
			return Node{}, false
		}
	}
	return n, true
}

// Node is a handle to a single tightly packed trie node.
type Node struct {
	r      *Reader
	offset uint32
	flags  uint64

	inline      bool
	inlineValue uint64
}

// IsInline reports whether this handle is a §3.7 inlined leaf: it has no
// physical node, and InlineValue carries its entire payload.
func (n Node) IsInline() bool { return n.inline }

// InlineValue returns the raw child_ref value for an inlined leaf. Only
// meaningful when IsInline is true.
func (n Node) InlineValue() uint64 { return n.inlineValue }

// HasValue reports whether this node carries a payload.
func (n Node) HasValue() bool { return n.flags&FlagHasValue != 0 }

// HasChildren reports whether this node has a child index.
func (n Node) HasChildren() bool { return n.flags&FlagHasChild != 0 }

func (n Node) idxStart() uint32 {
	if n.flags&FlagHasChild == 0 {
		return n.offset
	}
	back, _, err := varint.ReadTUI(n.r.data[n.offset:])
	if err != nil {
		return n.offset
	}
	return n.offset - uint32(back)
}

func (n Node) valueStart() uint32 {
	pos := n.offset
	if n.flags&FlagHasChild != 0 {
		_, sz, err := varint.ReadTUI(n.r.data[pos:])
		if err != nil {
			return pos
		}
		pos += uint32(sz)
	}
	return pos
}

// Value returns the slice beginning at this node's payload. The trie
// itself does not know the payload's length; the domain-specific decoder
// (§3.6, §3.7) consumes exactly as many bytes as its own format specifies.
func (n Node) Value() []byte {
	if !n.HasValue() {
		return nil
	}
	return n.r.data[n.valueStart():]
}

// ChildEntry is one entry of Node.Children: a child's token key alongside
// the already-resolved Node handle reached through it.
type ChildEntry struct {
	Token uint32
	Child Node
}

// Children lists every entry in this node's child index in ascending
// token order, for callers that need to enumerate a whole subtrie (e.g.
// cmd/tppt-dump reconstructing every source phrase) rather than probe for
// one specific token via Find.
func (n Node) Children() []ChildEntry {
	if n.inline || n.flags&FlagHasChild == 0 {
		return nil
	}
	data := n.r.data
	pos, end := n.idxStart(), n.offset
	var out []ChildEntry
	for pos < end {
		key, ref, sz, err := bitblock.ReadPair(data[pos:])
		if err != nil {
			break
		}
		token := uint32(key >> FlagBits)
		flags := key & flagMask
		var child Node
		if flags == 0 {
			child = Node{r: n.r, inline: true, inlineValue: ref}
		} else {
			child = Node{r: n.r, offset: n.idxStart() - uint32(ref), flags: flags}
		}
		out = append(out, ChildEntry{Token: token, Child: child})
		pos += uint32(sz)
	}
	return out
}

// Find binary-searches this node's child index for token (§4.6).
func (n Node) Find(token uint32) (Node, bool) {
	if n.inline || n.flags&FlagHasChild == 0 {
		return Node{}, false
	}
	data := n.r.data
	lo, hi := n.idxStart(), n.offset
	for lo < hi {
		mid := lo + (hi-lo)/2
		entryStart := uint32(bitblock.ScanBackToStop(data, int(mid), int(lo)))
		key, ref, sz, err := bitblock.ReadPair(data[entryStart:])
		if err != nil {
			return Node{}, false
		}
		entryEnd := entryStart + uint32(sz)
		gotToken := uint32(key >> FlagBits)
		switch {
		case gotToken == token:
			flags := key & flagMask
			if flags == 0 {
				return Node{r: n.r, inline: true, inlineValue: ref}, true
			}
			return Node{r: n.r, offset: n.idxStart() - uint32(ref), flags: flags}, true
		case gotToken < token:
			lo = entryEnd
		default:
			hi = entryStart
		}
	}
	return Node{}, false
}
