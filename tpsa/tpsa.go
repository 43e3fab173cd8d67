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

// Package tpsa assembles the three on-disk components of a token-sequence
// array deployment — a token index (internal/tokenindex), a corpus track
// and suffix array (internal/sufarray) — behind the single string-level
// §6.4 SuffixArray interface: lookups take and return token strings, not
// the IDs those lower packages operate on internally. tppt.Contingency
// reads corpora through this package; cmd/mmsufa-build works on
// internal/sufarray directly. internal/sufarray stays ID-only so it has
// no dependency on tokenindex.
package tpsa

import (
	"strings"

	"grounding-example.dev/tpt/internal/mmio"
	"grounding-example.dev/tpt/internal/sufarray"
	"grounding-example.dev/tpt/internal/tokenindex"
)

// Build tokenizes sentences (whitespace-split) against vocab, assigning
// new IDs to any token not already interned, and returns the serialized
// corpus-track and suffix-array blobs ready to be written to the
// .mct/.mmsufa files named in §6.3's mmsufa-build command.
func Build(vocab *tokenindex.Builder, sentences []string) (corpusTrack, suffixArr []byte) {
	toks := make([][]uint32, len(sentences))
	for i, s := range sentences {
		fields := strings.Fields(s)
		ids := make([]uint32, len(fields))
		for j, f := range fields {
			ids[j] = vocab.Intern(f)
		}
		toks[i] = ids
	}
	corpusTrack = sufarray.BuildCorpusTrack(toks)
	track, err := sufarray.LoadCorpusTrack(corpusTrack)
	if err != nil {
		// BuildCorpusTrack's own output always round-trips through
		// LoadCorpusTrack; a failure here means the two fell out of sync.
		panic(err)
	}
	suffixArr = sufarray.BuildSuffixArray(track)
	return corpusTrack, suffixArr
}

// Reader combines a mapped token index, corpus track, and suffix array
// into the string-level query surface.
type Reader struct {
	vocabFile *mmio.File
	trackFile *mmio.File
	sufaFile  *mmio.File

	vocab *tokenindex.File
	track *sufarray.CorpusTrack
	sufa  *sufarray.SuffixArray
}

// Open memory-maps the vocabulary, corpus track, and suffix array files
// that make up one deployed token-sequence array.
func Open(vocabPath, trackPath, sufaPath string) (*Reader, error) {
	vf, err := mmio.Open(vocabPath, mmio.HintRandom)
	if err != nil {
		return nil, err
	}
	tf, err := mmio.Open(trackPath, mmio.HintNormal)
	if err != nil {
		vf.Close()
		return nil, err
	}
	sf, err := mmio.Open(sufaPath, mmio.HintRandom)
	if err != nil {
		vf.Close()
		tf.Close()
		return nil, err
	}

	vocab, err := tokenindex.Load(vf.Bytes())
	if err != nil {
		vf.Close()
		tf.Close()
		sf.Close()
		return nil, err
	}
	track, err := sufarray.LoadCorpusTrack(tf.Bytes())
	if err != nil {
		vf.Close()
		tf.Close()
		sf.Close()
		return nil, err
	}
	sufa, err := sufarray.Load(sf.Bytes())
	if err != nil {
		vf.Close()
		tf.Close()
		sf.Close()
		return nil, err
	}

	return &Reader{
		vocabFile: vf, trackFile: tf, sufaFile: sf,
		vocab: vocab, track: track, sufa: sufa,
	}, nil
}

// Close unmaps all three underlying files.
func (r *Reader) Close() error {
	var first error
	for _, f := range []*mmio.File{r.vocabFile, r.trackFile, r.sufaFile} {
		if err := f.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// NumSentences returns the number of sentences in the corpus track.
func (r *Reader) NumSentences() uint32 { return r.track.NumSentences() }

// Sentence returns sentence i as its original token strings.
func (r *Reader) Sentence(i uint32) []string {
	ids := r.track.Sentence(i)
	out := make([]string, len(ids))
	for j, id := range ids {
		out[j] = r.vocab.String(id)
	}
	return out
}

// encodeKey translates a string query into token IDs, reporting false if
// any token is out of vocabulary (in which case no suffix can possibly
// match, per §8 scenario 6's "not found" case).
func (r *Reader) encodeKey(key []string) ([]uint32, bool) {
	ids := make([]uint32, len(key))
	for i, s := range key {
		id, ok := r.vocab.Lookup(s)
		if !ok {
			return nil, false
		}
		ids[i] = id
	}
	return ids, true
}

// Bounds returns the [lo, hi) byte range of suffix-array entries whose
// suffix begins with key, translating key's tokens through the vocabulary
// first.
func (r *Reader) Bounds(key []string) (lo, hi uint32, ok bool) {
	ids, ok := r.encodeKey(key)
	if !ok {
		return 0, 0, false
	}
	return r.sufa.Bounds(r.track, ids)
}

// LowerBound returns the byte offset of the first entry whose suffix
// begins with key.
func (r *Reader) LowerBound(key []string) (uint32, bool) {
	lo, _, ok := r.Bounds(key)
	return lo, ok
}

// UpperBound returns the byte offset just past the last entry whose
// suffix begins with key.
func (r *Reader) UpperBound(key []string) (uint32, bool) {
	_, hi, ok := r.Bounds(key)
	return hi, ok
}

// RawCount exactly counts the entries within [lo, hi).
func (r *Reader) RawCount(lo, hi uint32) int { return r.sufa.RawCount(lo, hi) }

// ApproxCount estimates, in O(1), the number of entries within [lo, hi).
func (r *Reader) ApproxCount(lo, hi uint32) int { return r.sufa.ApproxCount(lo, hi) }

// SntCount counts the distinct sentences represented within [lo, hi).
func (r *Reader) SntCount(lo, hi uint32) int { return r.sufa.SntCount(lo, hi) }

// Occurrence is one (sentence, offset) match returned by RandomSample.
type Occurrence struct {
	SentenceID uint32
	Offset     uint32
}

// SentenceIDs decodes every entry in [lo, hi) and returns the distinct
// sentence IDs it touches, used by tppt's contingency-count utility to
// build the per-phrase sentence membership sets it intersects.
func (r *Reader) SentenceIDs(lo, hi uint32) []uint32 {
	seen := make(map[uint32]bool)
	var out []uint32
	for pos := lo; pos < hi; {
		sid, _, size, err := r.sufa.Entry(pos)
		if err != nil {
			break
		}
		if !seen[sid] {
			seen[sid] = true
			out = append(out, sid)
		}
		pos += uint32(size)
	}
	return out
}

// RandomSample draws n occurrences from [lo, hi), delegating the random
// position choice to pick so callers (and tests) can make sampling
// deterministic.
func (r *Reader) RandomSample(lo, hi uint32, n int, pick func(span uint32) uint32) []Occurrence {
	raw := r.sufa.RandomSample(lo, hi, n, pick)
	out := make([]Occurrence, len(raw))
	for i, e := range raw {
		out[i] = Occurrence{SentenceID: e[0], Offset: e[1]}
	}
	return out
}

// NewIterator returns a token-by-token DFS walker positioned at the root
// of the suffix array's virtual trie. Extend takes a token string,
// translated through the vocabulary, returning false for an
// out-of-vocabulary token exactly as it would for one that simply has no
// suffix extending the current path.
func (r *Reader) NewIterator() *Iterator {
	return &Iterator{r: r, it: r.sufa.NewIterator(r.track)}
}

// Iterator is the string-level counterpart of sufarray.TreeIterator.
type Iterator struct {
	r  *Reader
	it *sufarray.TreeIterator
}

// Depth returns the number of tokens matched since the root.
func (it *Iterator) Depth() int { return it.it.Depth() }

// Bounds returns the current node's entry byte range.
func (it *Iterator) Bounds() (lo, hi uint32) { return it.it.Bounds() }

// Extend descends to the child reached by appending token.
func (it *Iterator) Extend(token string) bool {
	id, ok := it.r.vocab.Lookup(token)
	if !ok {
		return false
	}
	return it.it.Extend(id)
}

// Up backs out to the parent node.
func (it *Iterator) Up() bool { return it.it.Up() }

// Over moves to the current node's next sibling under the same parent.
func (it *Iterator) Over(next string) bool {
	id, ok := it.r.vocab.Lookup(next)
	if !ok {
		return false
	}
	return it.it.Over(id)
}
