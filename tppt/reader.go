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
	"encoding/binary"
	"unsafe"

	"github.com/timandy/routine"

	"grounding-example.dev/tpt/internal/alignlink"
	"grounding-example.dev/tpt/internal/bitblock"
	"grounding-example.dev/tpt/internal/codebook"
	"grounding-example.dev/tpt/internal/seqrepo"
	"grounding-example.dev/tpt/internal/tokenindex"
	"grounding-example.dev/tpt/internal/tptcontainer"
	"grounding-example.dev/tpt/internal/tpterr"
	"grounding-example.dev/tpt/internal/tpttrie"
	"grounding-example.dev/tpt/internal/varint"
)

// Candidate is one decoded translation candidate, matching the shape
// PhraseTable::lookup promises a hosting runtime per §6.4.
type Candidate struct {
	Trg       []string
	Scores    []float32
	Counts    []uint32
	Alignment [][]int // nil if this phrase table carries no alignments
}

// Reader is a loaded, read-only tightly packed phrase table.
type Reader struct {
	srcVocab *tokenindex.File
	trgVocab *tokenindex.File
	trgRepo  *seqrepo.Repository
	trie     *tpttrie.Reader

	nFloat    int
	nCount    int
	hasAlign  bool
	refWidth  int
	floatBook []codebook.Book
	countBook codebook.Book
	alignBook codebook.Book
}

// candidateCache is the per-goroutine decoded-payload cache §5 requires of
// Node.Value(): a node's candidate list is a pure function of its payload
// bytes, so it is safe to memoize keyed by the payload slice's backing
// pointer. §9's Open Questions flag a process-global map here as a
// concurrency hazard; keeping the cache goroutine-local (one map per
// goroutine, via internal/routine's ThreadLocal) sidesteps that without
// needing a concurrent map implementation, at the cost of repeating the
// decode once per goroutine that touches a given node.
var candidateCache = routine.NewThreadLocalWithInitial[map[uintptr][]Candidate](func() map[uintptr][]Candidate {
	return make(map[uintptr][]Candidate)
})

func cacheKeyFor(value []byte) uintptr {
	if len(value) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(&value[0]))
}

// Load parses a .tppt container produced by Build/Assemble.
func Load(data []byte) (*Reader, error) {
	sections, err := tptcontainer.Parse(containerMagic, data)
	if err != nil {
		return nil, err
	}
	meta, ok := sections["meta"]
	if !ok || len(meta) < 13 {
		return nil, tpterr.Format("tppt", 0, tpterr.ErrTruncated)
	}
	nFloat := int(binary.LittleEndian.Uint32(meta[0:4]))
	nCount := int(binary.LittleEndian.Uint32(meta[4:8]))
	hasAlign := meta[8] != 0
	refWidth := int(binary.LittleEndian.Uint32(meta[9:13]))

	srcVocab, err := tokenindex.Load(sections["srcv"])
	if err != nil {
		return nil, err
	}
	trgVocab, err := tokenindex.Load(sections["trgv"])
	if err != nil {
		return nil, err
	}
	trgRepo, err := seqrepo.Load(sections["rdat"], sections["ridx"])
	if err != nil {
		return nil, err
	}
	cbk, err := codebook.Load(sections["cbk "])
	if err != nil {
		return nil, err
	}
	trie, err := tpttrie.Load(sections["trie"])
	if err != nil {
		return nil, err
	}

	r := &Reader{
		srcVocab: srcVocab, trgVocab: trgVocab, trgRepo: trgRepo, trie: trie,
		nFloat: nFloat, nCount: nCount, hasAlign: hasAlign, refWidth: refWidth,
	}
	i := 0
	r.floatBook = cbk.Books[i : i+nFloat]
	i += nFloat
	if nCount > 0 {
		r.countBook = cbk.Books[i]
		i++
	}
	if hasAlign {
		r.alignBook = cbk.Books[i]
		i++
	}
	return r, nil
}

// Lookup resolves tokens (a full source phrase) to its candidate list, or
// reports found == false if no phrase in the table matches exactly —
// matching §6.4's PhraseTable::lookup and §8's "zero matches" boundary
// behavior (an empty, not missing, candidate slice for a phrase with
// matches but this particular query outside it is not applicable here:
// Lookup is exact-phrase, the per-sentence extension loop described in
// §4.6 is the caller's job).
func (r *Reader) Lookup(tokens []string) (cands []Candidate, found bool) {
	ids := make([]uint32, len(tokens))
	for i, t := range tokens {
		id, ok := r.srcVocab.Lookup(t)
		if !ok {
			return nil, false
		}
		ids[i] = id
	}
	node, ok := r.trie.Lookup(ids)
	if !ok || !node.HasValue() {
		return nil, false
	}
	return r.decodeCandidates(node.Value()), true
}

// Find descends one token from the trie's root (or from an already
// descended Node), supporting the per-sentence-offset extension scan
// described in §4.6.
func (r *Reader) Find(token string) (tpttrie.Node, bool) {
	id, ok := r.srcVocab.Lookup(token)
	if !ok {
		return tpttrie.Node{}, false
	}
	return r.trie.Find(id)
}

// Candidates decodes the candidate list carried by an already-located
// trie node.
func (r *Reader) Candidates(n tpttrie.Node) []Candidate {
	if !n.HasValue() {
		return nil
	}
	return r.decodeCandidates(n.Value())
}

// Walk visits every accepting node of the source trie in source-phrase
// lexicographic order (ascending by each level's token ID, which is this
// implementation's frequency-remapped vocabulary order — see DESIGN.md's
// Open Question on §8's sort(P) comparator), calling fn with the decoded
// source phrase and its candidates. This is cmd/tppt-dump's only access
// path into the trie's internal node structure, so §8's round-trip
// property (tppt_dump(build(P)) == sort(P)) can be checked without
// exposing tpttrie.Node outside this package's own Lookup/Find/Candidates
// triple.
func (r *Reader) Walk(fn func(srcTokens []string, cands []Candidate)) {
	for tok := uint32(0); tok < r.trie.NumRootTokens(); tok++ {
		n, ok := r.trie.Find(tok)
		if !ok {
			continue
		}
		r.walk(n, []string{r.srcVocab.String(tok)}, fn)
	}
}

func (r *Reader) walk(n tpttrie.Node, path []string, fn func([]string, []Candidate)) {
	if n.HasValue() {
		fn(append([]string(nil), path...), r.decodeCandidates(n.Value()))
	}
	if n.IsInline() {
		return
	}
	for _, ce := range n.Children() {
		r.walk(ce.Child, append(path, r.srcVocab.String(ce.Token)), fn)
	}
}

func (r *Reader) decodeCandidates(value []byte) []Candidate {
	key := cacheKeyFor(value)
	cache := candidateCache.Get()
	if cached, ok := cache[key]; ok {
		return cached
	}
	cands := r.decodeCandidatesUncached(value)
	cache[key] = cands
	return cands
}

func (r *Reader) decodeCandidatesUncached(value []byte) []Candidate {
	numCand, n, err := varint.ReadTUI(value)
	if err != nil {
		return nil
	}
	bits := value[n:]
	boff := 0
	out := make([]Candidate, numCand)
	for i := range out {
		var refID uint64
		refID, boff = bitblock.ReadValue(bits, boff, bitblock.Schema{r.refWidth})
		seq, err := r.trgRepo.Sequence(uint32(refID))
		if err != nil {
			return nil
		}
		trg := make([]string, len(seq))
		for j, id := range seq {
			trg[j] = r.trgVocab.String(id)
		}

		scores := make([]float32, r.nFloat)
		for col := 0; col < r.nFloat; col++ {
			var id uint64
			id, boff = bitblock.ReadValue(bits, boff, r.floatBook[col].Schema)
			scores[col] = r.floatBook[col].DecodeFloat(uint32(id))
		}

		var counts []uint32
		if r.nCount > 0 {
			counts = make([]uint32, r.nCount)
			for col := 0; col < r.nCount; col++ {
				var id uint64
				id, boff = bitblock.ReadValue(bits, boff, r.countBook.Schema)
				counts[col] = r.countBook.DecodeUint32(uint32(id))
			}
		}

		var alignment [][]int
		if r.hasAlign {
			var links []uint64
			for {
				var id uint64
				id, boff = bitblock.ReadValue(bits, boff, r.alignBook.Schema)
				v := r.alignBook.DecodeUint32(uint32(id))
				if v == 0 {
					break
				}
				links = append(links, uint64(v))
			}
			alignment = alignlink.DecodeSets(links)
		}

		out[i] = Candidate{Trg: trg, Scores: scores, Counts: counts, Alignment: alignment}
	}
	return out
}
