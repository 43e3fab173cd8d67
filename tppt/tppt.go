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

// Package tppt implements the tightly packed phrase table of §3.6/§4.8: a
// tightly packed trie (internal/tpttrie) keyed by source-phrase token
// sequences, whose accepting nodes carry a candidate list compressed
// through per-column codebooks (internal/codebook), referencing shared
// target phrases stored once in a sequence repository (internal/seqrepo)
// and, optionally, word alignments packed per internal/alignlink.
//
// §4.8 names three build passes: encode-phrases, encode-scores, and
// assemble. EncodePhrases is exposed standalone, matching the
// cmd/textpt-encode-phrases program, since its output (a vocabulary and,
// for the target side, a sequence repository) is a real, independently
// useful intermediate file set. Build composes all three passes in one
// call. EncodeScores and AssembleParts (multipass.go) expose encode-scores
// and assemble separately, with this package's own ".scr"/".aln"/".config"
// intermediate file formats between them; cmd/textpt-encode-scores and
// cmd/textpt-assemble are separate programs (§6.3's CLI surface) built on
// those, wired so the former's output feeds the latter.
package tppt

import (
	"sort"

	"grounding-example.dev/tpt/internal/alignlink"
	"grounding-example.dev/tpt/internal/arena"
	"grounding-example.dev/tpt/internal/bitblock"
	"grounding-example.dev/tpt/internal/codebook"
	"grounding-example.dev/tpt/internal/seqrepo"
	"grounding-example.dev/tpt/internal/tokenindex"
	"grounding-example.dev/tpt/internal/tptcontainer"
	"grounding-example.dev/tpt/internal/tpttrie"
	"grounding-example.dev/tpt/internal/valuetable"
	"grounding-example.dev/tpt/internal/varint"
)

// Entry is one text phrase-table row, the builder's unit of input.
type Entry struct {
	Src       []string
	Trg       []string
	Scores    []float32 // the N_float score columns, e.g. p(trg|src), p(src|trg)
	Counts    []uint32  // optional count columns, shared across one count codebook
	Alignment [][]int   // optional, one alignment set per Src token; nil if absent
}

func freqRemap(b *tokenindex.Builder, freq map[string]int) {
	type tf struct {
		id   uint32
		freq int
	}
	items := make([]tf, b.Len())
	for id := 0; id < b.Len(); id++ {
		items[id] = tf{id: uint32(id), freq: freq[b.String(uint32(id))]}
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].freq != items[j].freq {
			return items[i].freq > items[j].freq
		}
		return items[i].id < items[j].id
	})
	newID := make([]uint32, len(items))
	for rank, it := range items {
		newID[it.id] = uint32(rank)
	}
	b.Remap(newID)
}

// phrasesBuild is the shared result of encoding one side's phrases (§4.8
// step 1), used both for the source side (consumed directly by the trie
// walk) and the target side (consumed through a sequence repository).
type phrasesBuild struct {
	vocab *tokenindex.Builder
	ids   [][]uint32 // per-entry token-ID sequence, in vocab's final (remapped) IDs
}

func encodeSide(strsPerEntry [][]string) phrasesBuild {
	vocab := tokenindex.NewBuilder()
	freq := make(map[string]int)
	prelim := make([][]uint32, len(strsPerEntry))
	for i, toks := range strsPerEntry {
		ids := make([]uint32, len(toks))
		for j, t := range toks {
			ids[j] = vocab.Intern(t)
			freq[t]++
		}
		prelim[i] = ids
	}
	freqRemap(vocab, freq)
	// Re-resolve: Remap changed the string->id table in place, so re-intern
	// (a no-op lookup, since every string was already seen) to get the final
	// remapped IDs for every entry.
	final := make([][]uint32, len(strsPerEntry))
	for i, toks := range strsPerEntry {
		ids := make([]uint32, len(toks))
		for j, t := range toks {
			ids[j], _ = vocab.Lookup(t)
		}
		final[i] = ids
	}
	return phrasesBuild{vocab: vocab, ids: final}
}

// EncodePhrasesResult is the output of one side's §4.8 step 1: the
// interned, frequency-remapped vocabulary, the per-entry token-ID
// sequence, and the sequence repository built over those sequences with
// the per-entry final offset into it — the ".tdx"/".repos.{idx,dat}"/
// ".col" files of §6.3. Both sides get a repository and a .col file per
// that table; Build's in-process path uses IDs directly to walk the
// source-side trie rather than re-reading the serialized repository back,
// since within one process there is nothing to gain from round-tripping
// through the .dat bytes it just produced (the cmd/textpt-assemble
// program, which runs as a separate process from cmd/textpt-encode-
// phrases, does read the repository back from disk — see DESIGN.md).
type EncodePhrasesResult struct {
	Vocab   *tokenindex.Builder
	IDs     [][]uint32
	RepoDat []byte
	RepoIdx []byte
	Col     []uint32 // final repository offset per entry
}

// EncodePhrases runs §4.8 step 1 for one side: assign frequency-ranked
// token IDs, then build a sequence repository over the resulting phrases
// so identical phrases (common on the target side, but possible on either)
// share storage.
func EncodePhrases(strsPerEntry [][]string) EncodePhrasesResult {
	pb := encodeSide(strsPerEntry)
	res := EncodePhrasesResult{Vocab: pb.vocab, IDs: pb.ids}

	repoBuilder := seqrepo.NewBuilder()
	prelim := make([]uint32, len(pb.ids))
	for i, ids := range pb.ids {
		prelim[i] = repoBuilder.Insert(ids)
	}
	a := arena.New(0)
	remap, rootIdx := repoBuilder.Build(a)
	res.RepoDat = a.Bytes()
	res.RepoIdx = rootIdx
	res.Col = make([]uint32, len(prelim))
	for i, p := range prelim {
		res.Col[i] = remap[p]
	}
	return res
}

// resolvedCandidate is one candidate with every reference fully resolved:
// its target sequence's final repository offset, its raw (unencoded)
// score/count/alignment values.
type resolvedCandidate struct {
	srcIDs    []uint32
	trgOffset uint32
	scores    []float32
	counts    []uint32
	alignment [][]int
}

// Build is a single-process composition of all three §4.8 passes: it
// encodes both sides' phrases, builds the score/count/alignment codebooks,
// and assembles the final tightly packed phrase-table container in one
// call. Real deployments run the three passes as separate executables
// over intermediate files (§6.3); this entry point is for callers that
// just want a .tppt's bytes from a set of entries.
func Build(entries []Entry) []byte {
	srcStrs := make([][]string, len(entries))
	trgStrs := make([][]string, len(entries))
	for i, e := range entries {
		srcStrs[i] = e.Src
		trgStrs[i] = e.Trg
	}
	srcRes := EncodePhrases(srcStrs)
	trgRes := EncodePhrases(trgStrs)

	cands := make([]resolvedCandidate, len(entries))
	nFloat := 0
	nCount := 0
	hasAlign := false
	for i, e := range entries {
		cands[i] = resolvedCandidate{
			srcIDs:    srcRes.IDs[i],
			trgOffset: trgRes.Col[i],
			scores:    e.Scores,
			counts:    e.Counts,
			alignment: e.Alignment,
		}
		if len(e.Scores) > nFloat {
			nFloat = len(e.Scores)
		}
		if len(e.Counts) > nCount {
			nCount = len(e.Counts)
		}
		if e.Alignment != nil {
			hasAlign = true
		}
	}

	maxOffset := uint32(0)
	for _, c := range cands {
		if c.trgOffset > maxOffset {
			maxOffset = c.trgOffset
		}
	}
	refWidth := valuetable.BitsNeeded(int(maxOffset) + 1)

	floatBooks := make([]codebook.Book, nFloat)
	floatVTs := make([]valuetable.Table[float32], nFloat)
	for col := 0; col < nFloat; col++ {
		vals := make([]float32, 0, len(cands))
		for _, c := range cands {
			if col < len(c.scores) {
				vals = append(vals, c.scores[col])
			}
		}
		floatBooks[col], floatVTs[col] = valuetable.FloatBook(vals)
	}

	var countBook codebook.Book
	var countVT valuetable.Table[uint32]
	if nCount > 0 {
		vals := make([]uint32, 0, len(cands)*nCount)
		for _, c := range cands {
			vals = append(vals, c.counts...)
		}
		countBook, countVT = valuetable.UintBook(vals)
	}

	var alignBook codebook.Book
	var alignVT valuetable.Table[uint64]
	if hasAlign {
		var raw []uint64
		for _, c := range cands {
			raw = append(raw, alignlink.EncodeSets(c.alignment)...)
			raw = append(raw, 0) // per-candidate terminator sentinel, §3.6
		}
		vt := valuetable.Build(raw)
		alignBook = codebook.Book{Kind: codebook.KindUint32, Schema: vt.Schema, UintValues: uint64sToU32(vt.Values)}
		alignVT = vt
	}

	root := tpttrie.NewBuildNode()
	type nodeCands struct {
		node  *tpttrie.BuildNode
		order []int
	}
	byNode := make(map[*tpttrie.BuildNode]*nodeCands)
	var order []*tpttrie.BuildNode
	for i, c := range cands {
		n := root
		for _, tok := range c.srcIDs {
			n = n.Child(tok)
		}
		nc, ok := byNode[n]
		if !ok {
			nc = &nodeCands{node: n}
			byNode[n] = nc
			order = append(order, n)
		}
		nc.order = append(nc.order, i)
	}

	for _, n := range order {
		nc := byNode[n]
		var bitstream []byte
		boff := 0
		for _, idx := range nc.order {
			c := cands[idx]
			boff = bitblock.WriteValue(&bitstream, boff, uint64(c.trgOffset), bitblock.Schema{refWidth})
			for col := 0; col < nFloat; col++ {
				var v float32
				if col < len(c.scores) {
					v = c.scores[col]
				}
				boff = bitblock.WriteValue(&bitstream, boff, uint64(floatVTs[col].IDFor(v)), floatBooks[col].Schema)
			}
			if nCount > 0 {
				for col := 0; col < nCount; col++ {
					var v uint32
					if col < len(c.counts) {
						v = c.counts[col]
					}
					boff = bitblock.WriteValue(&bitstream, boff, uint64(countVT.IDFor(v)), countBook.Schema)
				}
			}
			if hasAlign {
				links := alignlink.EncodeSets(c.alignment)
				links = append(links, 0)
				for _, lv := range links {
					boff = bitblock.WriteValue(&bitstream, boff, uint64(alignVT.IDFor(lv)), alignBook.Schema)
				}
			}
		}
		payload := varint.AppendTUI(nil, uint64(len(nc.order)))
		payload = append(payload, bitstream...)
		n.Payload = payload
	}

	trieBytes := tpttrie.Assemble(root, tpttrie.Header{})

	cbk := &codebook.File{Version: 1}
	cbk.Books = append(cbk.Books, floatBooks...)
	if nCount > 0 {
		cbk.Books = append(cbk.Books, countBook)
	}
	if hasAlign {
		cbk.Books = append(cbk.Books, alignBook)
	}
	if nCount > 0 || hasAlign {
		cbk.Version = 2
	}
	var cbkBuf []byte
	cbkBuf = appendViaWriter(cbkBuf, cbk)

	meta := make([]byte, 0, 16)
	meta = tptcontainer.AppendU32(meta, uint32(nFloat))
	meta = tptcontainer.AppendU32(meta, uint32(nCount))
	if hasAlign {
		meta = append(meta, 1)
	} else {
		meta = append(meta, 0)
	}
	meta = tptcontainer.AppendU32(meta, uint32(refWidth))

	return tptcontainer.Assemble(containerMagic, []tptcontainer.Section{
		{Name: "meta", Data: meta},
		{Name: "srcv", Data: srcRes.Vocab.Encode(uint32(srcRes.Vocab.Len()))},
		{Name: "trgv", Data: trgRes.Vocab.Encode(uint32(trgRes.Vocab.Len()))},
		{Name: "rdat", Data: trgRes.RepoDat},
		{Name: "ridx", Data: trgRes.RepoIdx},
		{Name: "cbk ", Data: cbkBuf},
		{Name: "trie", Data: trieBytes},
	})
}

func uint64sToU32(vs []uint64) []uint32 {
	out := make([]uint32, len(vs))
	for i, v := range vs {
		out[i] = uint32(v)
	}
	return out
}

type byteWriter struct{ buf []byte }

func (w *byteWriter) Write(p []byte) (int, error) {
	w.buf = append(w.buf, p...)
	return len(p), nil
}

func appendViaWriter(dst []byte, f *codebook.File) []byte {
	w := &byteWriter{}
	if _, err := f.WriteTo(w); err != nil {
		// codebook.File.WriteTo only fails if the underlying writer fails,
		// and byteWriter.Write never returns an error.
		panic(err)
	}
	return append(dst, w.buf...)
}

// containerMagic identifies tppt's own top-level wire format (DESIGN.md):
// §3.6 specifies the per-node payload but leaves file-level bundling of
// its component files to the implementer.
const containerMagic = "TPT_TPPT1"
