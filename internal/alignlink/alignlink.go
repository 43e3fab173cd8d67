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

// Package alignlink implements the alignment-link packing scheme shared by
// §3.6 (the TPPT candidate payload's alignment field) and §3.8 (the TPA
// per-sentence packed alignment): a source-token's word-alignment set is
// flattened into a run of links, one per target index it aligns to, with
// the run's final link flagged "last"; an aligned-to-nothing set is instead
// a single reserved "empty" link. Both consumers (tpa, tppt) share this
// value-level packing and layer their own wire encoding over it: tpa
// TUI-encodes each raw link value directly (§4.10), while tppt looks each
// value up through a codebook so that repeated link values share a compact
// ID (§3.6).
package alignlink

// Empty is the reserved link value standing for a source token with no
// alignment at all (an empty set).
const Empty uint64 = 1

// Link packs one alignment entry: the 0-based target index this source
// token links to, and whether this is the final link of its set.
func Link(targetIdx int, last bool) uint64 {
	v := (uint64(targetIdx) + 1) << 1
	if last {
		v |= 1
	}
	return v
}

// Decode unpacks a single raw link value. empty reports whether v was the
// reserved Empty sentinel, in which case targetIdx and last are meaningless.
func Decode(v uint64) (targetIdx int, last, empty bool) {
	if v == Empty {
		return 0, true, true
	}
	return int(v>>1) - 1, v&1 != 0, false
}

// EncodeSets flattens sets — one alignment set per source token, in
// left-to-right order — into the flat link sequence of §3.6/§3.8.
func EncodeSets(sets [][]int) []uint64 {
	var out []uint64
	for _, set := range sets {
		if len(set) == 0 {
			out = append(out, Empty)
			continue
		}
		for i, t := range set {
			out = append(out, Link(t, i == len(set)-1))
		}
	}
	return out
}

// DecodeSets regroups a flat link sequence back into per-source-token
// alignment sets.
func DecodeSets(links []uint64) [][]int {
	var sets [][]int
	var cur []int
	for _, v := range links {
		targetIdx, last, empty := Decode(v)
		if empty {
			sets = append(sets, []int{})
			continue
		}
		cur = append(cur, targetIdx)
		if last {
			sets = append(sets, cur)
			cur = nil
		}
	}
	return sets
}
