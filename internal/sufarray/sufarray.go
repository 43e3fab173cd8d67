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

package sufarray

import (
	"encoding/binary"
	"math"
	"sort"

	"grounding-example.dev/tpt/internal/bitblock"
	"grounding-example.dev/tpt/internal/codebook"
	"grounding-example.dev/tpt/internal/tpterr"
)

// index_start(u64), num_top_ids(u32), avg_bytes_per_entry(float64).
const suffixHeaderSize = 8 + 4 + 8

type suffixKey struct {
	sid, off uint32
}

// BuildSuffixArray enumerates every (sentence, offset) suffix in track,
// sorts them, and serializes the §3.9/§4.7 suffix-array layout: entries
// grouped contiguously by first-token ID (a direct consequence of sorting
// primarily on the first token), followed by a fixed top-ID index giving
// each group's byte range.
//
// Real deployments build this by an external merge sort over a corpus far
// larger than memory (see internal/shardsort); this builder sorts the
// whole suffix set in memory, which is the faithful algorithm at any scale
// that fits.
func BuildSuffixArray(track *CorpusTrack) []byte {
	var keys []suffixKey
	for sid := uint32(0); sid < track.NumSentences(); sid++ {
		n := uint32(len(track.Sentence(sid)))
		for off := uint32(0); off < n; off++ {
			keys = append(keys, suffixKey{sid, off})
		}
	}

	sort.Slice(keys, func(i, j int) bool {
		return compareSuffixes(suffixAt(track, keys[i]), suffixAt(track, keys[j])) < 0
	})

	var entries []byte
	groupStart := make(map[uint32]uint32)
	var numTopIDs uint32
	var approx codebook.ApproxBytesPerEntry
	for _, k := range keys {
		first := track.Sentence(k.sid)[k.off]
		if first+1 > numTopIDs {
			numTopIDs = first + 1
		}
		if _, ok := groupStart[first]; !ok {
			groupStart[first] = uint32(len(entries))
		}
		before := len(entries)
		entries = bitblock.AppendPair(entries, uint64(k.sid), uint64(k.off))
		approx.Record(len(entries) - before)
	}

	offsets := make([]uint32, numTopIDs+1)
	offsets[numTopIDs] = uint32(len(entries))
	for i := int(numTopIDs) - 1; i >= 0; i-- {
		if s, ok := groupStart[uint32(i)]; ok {
			offsets[i] = s
		} else {
			offsets[i] = offsets[i+1]
		}
	}

	topIdx := make([]byte, len(offsets)*8)
	for i, o := range offsets {
		binary.LittleEndian.PutUint64(topIdx[i*8:i*8+8], uint64(o)+suffixHeaderSize)
	}

	indexStart := uint64(suffixHeaderSize + len(entries))
	out := make([]byte, 0, suffixHeaderSize+len(entries)+len(topIdx))
	var b8 [8]byte
	binary.LittleEndian.PutUint64(b8[:], indexStart)
	out = append(out, b8[:]...)
	var b4 [4]byte
	binary.LittleEndian.PutUint32(b4[:], numTopIDs)
	out = append(out, b4[:]...)
	binary.LittleEndian.PutUint64(b8[:], math.Float64bits(approx.Estimate()))
	out = append(out, b8[:]...)
	out = append(out, entries...)
	out = append(out, topIdx...)
	return out
}

func suffixAt(track *CorpusTrack, k suffixKey) []uint32 {
	return track.Sentence(k.sid)[k.off:]
}

// compareSuffixes compares two token sequences lexicographically; a
// sequence that is a strict prefix of the other sorts first (§4.7's
// suffix ordering rule).
func compareSuffixes(a, b []uint32) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	default:
		return 0
	}
}

// SuffixArray is a loaded, read-only suffix array, typically backed by a
// memory mapping.
type SuffixArray struct {
	data          []byte
	indexStart    uint32
	numTopIDs     uint32
	avgBytesEntry float64
}

// Load parses the §3.9 header and validates that the top-ID index fits
// within data.
func Load(data []byte) (*SuffixArray, error) {
	if len(data) < suffixHeaderSize {
		return nil, tpterr.Format("sufarray", 0, tpterr.ErrTruncated)
	}
	indexStart := binary.LittleEndian.Uint64(data[0:8])
	numTopIDs := binary.LittleEndian.Uint32(data[8:12])
	avg := math.Float64frombits(binary.LittleEndian.Uint64(data[12:20]))
	need := indexStart + uint64(numTopIDs+1)*8
	if uint64(len(data)) < need {
		return nil, tpterr.Format("sufarray", int64(len(data)), tpterr.ErrIndexOutOfRange)
	}
	return &SuffixArray{data: data, indexStart: uint32(indexStart), numTopIDs: numTopIDs, avgBytesEntry: avg}, nil
}

// entriesStart is the "array_start" byte position referred to by §4.7's
// boundary behaviors (e.g. the empty-query degenerate range).
func (s *SuffixArray) entriesStart() uint32 { return suffixHeaderSize }

func (s *SuffixArray) groupRange(firstToken uint32) (lo, hi uint32, ok bool) {
	if firstToken >= s.numTopIDs {
		return 0, 0, false
	}
	base := int(s.indexStart) + int(firstToken)*8
	lo64 := binary.LittleEndian.Uint64(s.data[base : base+8])
	hi64 := binary.LittleEndian.Uint64(s.data[base+8 : base+16])
	if lo64 == hi64 {
		return 0, 0, false
	}
	return uint32(lo64), uint32(hi64), true
}

// boundAtDepth binary-searches [lo, hi) for the leftmost entry whose
// suffix, compared to token at position depth, is >= token (or > token if
// strictlyGreater), walking to entry boundaries via ScanBackToStop exactly
// as the trie child index does (§4.6/§4.7 share the same packed-pair
// binary-search primitive). A suffix shorter than depth+1 sorts before
// token, matching the "shorter suffix precedes longer" ordering rule.
func (s *SuffixArray) boundAtDepth(track *CorpusTrack, token uint32, lo, hi uint32, depth int, strictlyGreater bool) uint32 {
	data := s.data
	for lo < hi {
		mid := lo + (hi-lo)/2
		entryStart := uint32(bitblock.ScanBackToStop(data, int(mid), int(lo)))
		sid, off, sz, err := bitblock.ReadPair(data[entryStart:])
		if err != nil {
			return hi
		}
		suffix := track.Sentence(uint32(sid))[off:]

		var c int
		switch {
		case depth >= len(suffix):
			c = -1
		case suffix[depth] == token:
			c = 0
		case suffix[depth] < token:
			c = -1
		default:
			c = 1
		}

		var pred bool
		if strictlyGreater {
			pred = c > 0
		} else {
			pred = c >= 0
		}
		if pred {
			hi = entryStart
		} else {
			lo = entryStart + uint32(sz)
		}
	}
	return lo
}

// Bounds returns [lower_bound, upper_bound) for key: the contiguous byte
// range of entries whose suffix begins with key. ok is false only when no
// suffix in the corpus even begins with key[0] (§8 scenario 6's "not
// found" sentinel); a key whose later tokens never match still reports
// ok == true with an empty (lo == hi) range.
func (s *SuffixArray) Bounds(track *CorpusTrack, key []uint32) (lo, hi uint32, ok bool) {
	if len(key) == 0 {
		start := s.entriesStart()
		return start, start, true
	}
	lo, hi, ok = s.groupRange(key[0])
	if !ok {
		return 0, 0, false
	}
	for depth := 1; depth < len(key) && lo < hi; depth++ {
		newLo := s.boundAtDepth(track, key[depth], lo, hi, depth, false)
		newHi := s.boundAtDepth(track, key[depth], lo, hi, depth, true)
		lo, hi = newLo, newHi
	}
	return lo, hi, true
}

// LowerBound returns the byte offset of the first entry whose suffix
// begins with key.
func (s *SuffixArray) LowerBound(track *CorpusTrack, key []uint32) (uint32, bool) {
	lo, _, ok := s.Bounds(track, key)
	return lo, ok
}

// UpperBound returns the byte offset just past the last entry whose suffix
// begins with key.
func (s *SuffixArray) UpperBound(track *CorpusTrack, key []uint32) (uint32, bool) {
	_, hi, ok := s.Bounds(track, key)
	return hi, ok
}

// RawCount exactly decodes and counts the entries within [lo, hi).
func (s *SuffixArray) RawCount(lo, hi uint32) int {
	data := s.data
	count := 0
	for pos := lo; pos < hi; {
		_, _, sz, err := bitblock.ReadPair(data[pos:])
		if err != nil {
			break
		}
		pos += uint32(sz)
		count++
	}
	return count
}

// ApproxCount estimates the number of entries within [lo, hi) in O(1)
// using the average entry width recorded at build time, per §4.7's
// approxCount. It falls back to RawCount if no average was recorded (an
// empty corpus).
func (s *SuffixArray) ApproxCount(lo, hi uint32) int {
	if s.avgBytesEntry <= 0 {
		return s.RawCount(lo, hi)
	}
	return int(float64(hi-lo) / s.avgBytesEntry)
}

// SntCount counts the number of distinct sentence IDs among the entries
// within [lo, hi).
func (s *SuffixArray) SntCount(lo, hi uint32) int {
	seen := make(map[uint32]struct{})
	data := s.data
	for pos := lo; pos < hi; {
		sid, _, sz, err := bitblock.ReadPair(data[pos:])
		if err != nil {
			break
		}
		seen[uint32(sid)] = struct{}{}
		pos += uint32(sz)
	}
	return len(seen)
}

// Entry decodes the (sentence ID, offset) pair at byte position pos.
func (s *SuffixArray) Entry(pos uint32) (sid, off uint32, size int, err error) {
	s64, o64, sz, err := bitblock.ReadPair(s.data[pos:])
	if err != nil {
		return 0, 0, 0, err
	}
	return uint32(s64), uint32(o64), sz, nil
}

// RandomSample draws n entries from [lo, hi) using pick to choose a byte
// offset within the range on each draw; pick is injected so sampling is
// deterministic under test. This supplements §4.7 with the "random
// sample of occurrences" access pattern used by concordancers built on
// top of a suffix array.
func (s *SuffixArray) RandomSample(lo, hi uint32, n int, pick func(span uint32) uint32) [][2]uint32 {
	if hi <= lo {
		return nil
	}
	span := hi - lo
	out := make([][2]uint32, 0, n)
	for i := 0; i < n; i++ {
		at := lo + pick(span)
		if at >= hi {
			at = lo
		}
		entryStart := uint32(bitblock.ScanBackToStop(s.data, int(at), int(lo)))
		sid, off, _, err := s.Entry(entryStart)
		if err != nil {
			continue
		}
		out = append(out, [2]uint32{sid, off})
	}
	return out
}
