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

// TreeIterator walks the virtual trie of suffixes that a suffix array
// represents: Extend descends to the child reached by appending one more
// token, Up backs out to the parent, and Bounds reports the current
// node's byte range, the same [lo, hi) pair RawCount/ApproxCount/SntCount
// consume. This is the DFS walk of §4.7 used by tools that need to
// enumerate or sample matches token by token (e.g. "find sentences
// similar to this one") rather than issuing one Bounds call per full key.
type TreeIterator struct {
	sa    *SuffixArray
	track *CorpusTrack
	stack []frame
}

type frame struct {
	lo, hi uint32
	depth  int
}

// NewIterator returns an iterator positioned at the root: the full span
// of every suffix in the array.
func (s *SuffixArray) NewIterator(track *CorpusTrack) *TreeIterator {
	start := s.entriesStart()
	return &TreeIterator{
		sa:    s,
		track: track,
		stack: []frame{{lo: start, hi: s.indexStart, depth: 0}},
	}
}

// Depth returns the number of tokens matched since the root.
func (it *TreeIterator) Depth() int { return it.stack[len(it.stack)-1].depth }

// Bounds returns the current node's entry byte range.
func (it *TreeIterator) Bounds() (lo, hi uint32) {
	top := it.stack[len(it.stack)-1]
	return top.lo, top.hi
}

// Extend descends to the child reached by appending token, reporting
// whether any suffix extends the current path with token. On failure the
// iterator's position is unchanged.
func (it *TreeIterator) Extend(token uint32) bool {
	top := it.stack[len(it.stack)-1]
	var lo, hi uint32
	if top.depth == 0 {
		var ok bool
		lo, hi, ok = it.sa.groupRange(token)
		if !ok {
			return false
		}
	} else {
		lo = it.sa.boundAtDepth(it.track, token, top.lo, top.hi, top.depth, false)
		hi = it.sa.boundAtDepth(it.track, token, top.lo, top.hi, top.depth, true)
	}
	if lo >= hi {
		return false
	}
	it.stack = append(it.stack, frame{lo: lo, hi: hi, depth: top.depth + 1})
	return true
}

// Up backs out to the parent node, reporting whether there was one to
// back out to (Up at the root is a no-op that returns false).
func (it *TreeIterator) Up() bool {
	if len(it.stack) <= 1 {
		return false
	}
	it.stack = it.stack[:len(it.stack)-1]
	return true
}

// Over moves from the current node to its next sibling under the same
// parent, the third leg of the extend/down/over/up DFS: it backs out one
// level then re-descends along next instead of the token that reached the
// current node.
func (it *TreeIterator) Over(next uint32) bool {
	if !it.Up() {
		return false
	}
	return it.Extend(next)
}
