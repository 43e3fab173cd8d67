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

// Package tokenindex implements the alphabetically sorted string dictionary
// of §3.2: string->id in O(log V) via binary search over the mapped file,
// id->string in O(1) via a reverse table built lazily on first use.
package tokenindex

import (
	"bytes"
	"encoding/binary"
	"sort"
	"strings"
	"sync"

	"grounding-example.dev/tpt/internal/tpterr"
)

// Builder assigns IDs to tokens in first-seen order as they are interned,
// and later serializes the §3.2 file layout. Downstream builders (TPPT's
// encode-phrases, TPLM's encode) are free to call Remap to replace these
// preliminary IDs with a frequency-ordered assignment before Encode.
type Builder struct {
	ids  map[string]uint32
	strs []string
}

// NewBuilder returns an empty token-index builder.
func NewBuilder() *Builder {
	return &Builder{ids: make(map[string]uint32)}
}

// Intern returns s's ID, assigning it the next sequential ID on first sight.
func (b *Builder) Intern(s string) uint32 {
	if id, ok := b.ids[s]; ok {
		return id
	}
	id := uint32(len(b.strs))
	b.ids[s] = id
	b.strs = append(b.strs, s)
	return id
}

// Lookup returns s's ID if it has already been interned.
func (b *Builder) Lookup(s string) (uint32, bool) {
	id, ok := b.ids[s]
	return id, ok
}

// Len returns the number of distinct tokens interned so far.
func (b *Builder) Len() int { return len(b.strs) }

// String returns the token currently assigned id.
func (b *Builder) String(id uint32) string { return b.strs[id] }

// Remap replaces every token's ID: newID[oldID] gives the token's final ID.
// newID must be a permutation of 0..Len()-1. Used to move high-frequency
// tokens to low IDs before the codes are baked into downstream streams
// (§4.8 step 1, §4.9 step 1).
func (b *Builder) Remap(newID []uint32) {
	newStrs := make([]string, len(b.strs))
	newIDs := make(map[string]uint32, len(b.ids))
	for oldID, s := range b.strs {
		nid := newID[oldID]
		newStrs[nid] = s
		newIDs[s] = nid
	}
	b.strs = newStrs
	b.ids = newIDs
}

// Encode serializes the token index per §3.2: num_tokens, unk_id, the
// alphabetically sorted (offset, id) entry table, then null-terminated
// string data. unkID should be Len() (== V) if there is no configured
// unknown-token placeholder.
func (b *Builder) Encode(unkID uint32) []byte {
	type entry struct {
		s  string
		id uint32
	}
	entries := make([]entry, len(b.strs))
	for id, s := range b.strs {
		entries[id] = entry{s: s, id: uint32(id)}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].s < entries[j].s })

	var strs bytes.Buffer
	offsets := make([]uint32, len(entries))
	for i, e := range entries {
		offsets[i] = uint32(strs.Len())
		strs.WriteString(e.s)
		strs.WriteByte(0)
	}

	out := make([]byte, 0, 8+8*len(entries)+strs.Len())
	var hdr [8]byte
	binary.LittleEndian.PutUint32(hdr[0:4], uint32(len(entries)))
	binary.LittleEndian.PutUint32(hdr[4:8], unkID)
	out = append(out, hdr[:]...)

	var rec [8]byte
	for i, e := range entries {
		binary.LittleEndian.PutUint32(rec[0:4], offsets[i])
		binary.LittleEndian.PutUint32(rec[4:8], e.id)
		out = append(out, rec[:]...)
	}
	out = append(out, strs.Bytes()...)
	return out
}

// File is a loaded, read-only token index, typically backed by a memory
// mapping (see internal/mmio).
type File struct {
	data       []byte
	numTokens  uint32
	unkID      uint32
	entriesOff int
	stringsOff int

	reverseOnce sync.Once
	reverse     []uint32 // id -> string offset, built lazily
}

// Load parses a token index from data without copying the string region.
func Load(data []byte) (*File, error) {
	if len(data) < 8 {
		return nil, tpterr.Format("tokenindex", 0, tpterr.ErrTruncated)
	}
	n := binary.LittleEndian.Uint32(data[0:4])
	unk := binary.LittleEndian.Uint32(data[4:8])
	entriesOff := 8
	stringsOff := entriesOff + int(n)*8
	if len(data) < stringsOff {
		return nil, tpterr.Format("tokenindex", int64(len(data)), tpterr.ErrTruncated)
	}
	return &File{
		data:       data,
		numTokens:  n,
		unkID:      unk,
		entriesOff: entriesOff,
		stringsOff: stringsOff,
	}, nil
}

// NumTokens returns the vocabulary size V.
func (f *File) NumTokens() uint32 { return f.numTokens }

// UnkID returns the configured unknown-token ID, or NumTokens() if absent.
func (f *File) UnkID() uint32 { return f.unkID }

// HasUnk reports whether an unknown-token placeholder is configured.
func (f *File) HasUnk() bool { return f.unkID < f.numTokens }

func (f *File) entry(i int) (strOff, id uint32) {
	base := f.entriesOff + i*8
	return binary.LittleEndian.Uint32(f.data[base : base+4]),
		binary.LittleEndian.Uint32(f.data[base+4 : base+8])
}

func (f *File) stringAt(off uint32) string {
	start := f.stringsOff + int(off)
	end := start
	for end < len(f.data) && f.data[end] != 0 {
		end++
	}
	return string(f.data[start:end])
}

// Lookup performs a binary search for s over the alphabetically sorted
// entry table and returns its ID.
func (f *File) Lookup(s string) (uint32, bool) {
	lo, hi := 0, int(f.numTokens)
	for lo < hi {
		mid := (lo + hi) / 2
		off, id := f.entry(mid)
		switch cmp := strings.Compare(f.stringAt(off), s); {
		case cmp == 0:
			return id, true
		case cmp < 0:
			lo = mid + 1
		default:
			hi = mid
		}
	}
	return 0, false
}

// String returns the token for id in O(1), building the reverse index from
// the entry table on first call (§3.2).
func (f *File) String(id uint32) string {
	f.reverseOnce.Do(f.buildReverse)
	if id >= uint32(len(f.reverse)) {
		return ""
	}
	return f.stringAt(f.reverse[id])
}

func (f *File) buildReverse() {
	f.reverse = make([]uint32, f.numTokens)
	for i := 0; i < int(f.numTokens); i++ {
		off, id := f.entry(i)
		f.reverse[id] = off
	}
}
