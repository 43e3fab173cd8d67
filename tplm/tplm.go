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

// Package tplm implements the tightly packed language model of §3.7/§4.9:
// an ARPA back-off model compressed into a tightly packed trie
// (internal/tpttrie) keyed by reversed n-gram context, with one flat
// bit-packed table of unigram probabilities (contexts of length zero
// never need a trie node) and per-node tight-indexed-pair (TIP) lists of
// (next_token, probability_id) giving every context's possible
// continuations.
//
// As with tppt (see its package doc comment), §4.9's three build passes
// (encode, sng-av, assemble) are exposed as one in-process Build: sng-av's
// per-shard external sort and assemble's priority-queue merge both exist
// to bound peak memory when a model's n-gram count exceeds what fits in
// RAM, which is a deployment concern orthogonal to the trie's final
// shape. cmd/arpalm-encode, cmd/arpalm-sng-av, and cmd/arpalm-assemble
// still exist as separate programs over intermediate files; they run a
// single shard and do not call internal/shardsort.
package tplm

import (
	"sort"

	"grounding-example.dev/tpt/internal/bitblock"
	"grounding-example.dev/tpt/internal/codebook"
	"grounding-example.dev/tpt/internal/tokenindex"
	"grounding-example.dev/tpt/internal/tptcontainer"
	"grounding-example.dev/tpt/internal/tpttrie"
	"grounding-example.dev/tpt/internal/valuetable"
	"grounding-example.dev/tpt/internal/varint"
)

const containerMagic = "TPT_TPLM1"

// Build compresses a parsed ARPA model into a .tplm container. unkToken
// names the vocabulary entry whose unigram probability is
// oov_unigram_prob, per §4.9's lookup contract.
func Build(m *Model, unkToken string) []byte {
	vocab := tokenindex.NewBuilder()
	for _, order := range m.Orders {
		for _, g := range order {
			for _, w := range g.Words {
				vocab.Intern(w)
			}
		}
	}
	vocab.Intern(unkToken)

	var allProbs []float32
	var allBackoffs []float32
	for _, order := range m.Orders[:len(m.Orders)-1] {
		for _, g := range order {
			allBackoffs = append(allBackoffs, float32(g.BackOff))
		}
	}
	for _, order := range m.Orders {
		for _, g := range order {
			allProbs = append(allProbs, float32(g.LogProb))
		}
	}
	probBook, probVT := valuetable.FloatBook(allProbs)
	var bowBook codebook.Book
	var bowVT valuetable.Table[float32]
	if len(allBackoffs) > 0 {
		// A context with no explicit back-off line still needs a valid
		// bowID (the implicit weight is 1.0, log10 0.0); make sure 0.0 is
		// always a value this codebook can resolve by ID.
		allBackoffs = append(allBackoffs, 0)
		bowBook, bowVT = valuetable.FloatBook(allBackoffs)
	}

	// Flat unigram table: one probability ID per vocabulary token, bit-packed
	// at a fixed width for O(1) indexed access.
	numTokens := vocab.Len()
	unigramWidth := valuetable.BitsNeeded(len(probVT.Values))
	var unigramBits []byte
	boff := 0
	probForID := make(map[uint32]float32, len(m.Orders[0]))
	for _, g := range m.Orders[0] {
		id, _ := vocab.Lookup(g.Words[0])
		probForID[id] = float32(g.LogProb)
	}
	for id := uint32(0); id < uint32(numTokens); id++ {
		v := probForID[id] // zero value for any vocabulary token with no explicit unigram line
		boff = bitblock.WriteValue(&unigramBits, boff, uint64(probVT.IDFor(v)), bitblock.Schema{unigramWidth})
	}

	root := tpttrie.NewBuildNode()
	type nodeState struct {
		node   *tpttrie.BuildNode
		bowSet bool
		bowID  uint32
		pairs  []pairEntry
	}
	byNode := make(map[*tpttrie.BuildNode]*nodeState)
	var nodeOrder []*tpttrie.BuildNode

	getNode := func(path []uint32) *nodeState {
		n := root
		for _, tok := range path {
			n = n.Child(tok)
		}
		ns, ok := byNode[n]
		if !ok {
			ns = &nodeState{node: n}
			byNode[n] = ns
			nodeOrder = append(nodeOrder, n)
		}
		return ns
	}

	// Back-off weights: a k-gram (k < MaxOrder) attaches its back-off to the
	// node keyed by its own words, reversed, since that node represents this
	// exact sequence serving as a context for order k+1.
	for _, grams := range m.Orders[:len(m.Orders)-1] {
		for _, g := range grams {
			path := reverseIDs(vocab, g.Words)
			ns := getNode(path)
			ns.bowSet = true
			ns.bowID = bowVT.IDFor(float32(g.BackOff))
		}
	}

	// Continuation pairs: a k-gram (k >= 2) attaches (last_word, pval) to the
	// node keyed by its (k-1)-word context, reversed.
	for gramOrder := 2; gramOrder <= m.MaxOrder(); gramOrder++ {
		for _, g := range m.Orders[gramOrder-1] {
			context := g.Words[:gramOrder-1]
			last := g.Words[gramOrder-1]
			path := reverseIDs(vocab, context)
			ns := getNode(path)
			lastID, _ := vocab.Lookup(last)
			ns.pairs = append(ns.pairs, pairEntry{token: lastID, pval: float32(g.LogProb)})
		}
	}

	for _, n := range nodeOrder {
		ns := byNode[n]
		sort.Slice(ns.pairs, func(i, j int) bool { return ns.pairs[i].token < ns.pairs[j].token })

		var bowID uint32
		if ns.bowSet {
			bowID = ns.bowID
		} else if len(bowVT.Values) > 0 {
			bowID = bowVT.IDFor(0)
		}
		payload := varint.AppendTUI(nil, uint64(bowID))
		payload = varint.AppendTUI(payload, uint64(len(ns.pairs)))
		for _, p := range ns.pairs {
			payload = bitblock.AppendPair(payload, uint64(p.token), uint64(probVT.IDFor(p.pval)))
		}
		n.Payload = payload
	}

	trieBytes := tpttrie.Assemble(root, tpttrie.Header{})

	cbk := &codebook.File{Version: 1, Books: []codebook.Book{probBook}}
	if len(allBackoffs) > 0 {
		cbk.Version = 2
		cbk.Books = append(cbk.Books, bowBook)
	}
	cbkBuf := appendCodebookFile(cbk)

	unkID, _ := vocab.Lookup(unkToken)
	meta := tptcontainer.AppendU32(nil, uint32(numTokens))
	meta = tptcontainer.AppendU32(meta, uint32(unigramWidth))
	meta = tptcontainer.AppendU32(meta, unkID)
	if len(allBackoffs) > 0 {
		meta = append(meta, 1)
	} else {
		meta = append(meta, 0)
	}

	return tptcontainer.Assemble(containerMagic, []tptcontainer.Section{
		{Name: "meta", Data: meta},
		{Name: "vcab", Data: vocab.Encode(unkID)},
		{Name: "unig", Data: unigramBits},
		{Name: "cbk ", Data: cbkBuf},
		{Name: "trie", Data: trieBytes},
	})
}

type pairEntry struct {
	token uint32
	pval  float32
}

func reverseIDs(vocab *tokenindex.Builder, words []string) []uint32 {
	ids := make([]uint32, len(words))
	for i, w := range words {
		id, _ := vocab.Lookup(w)
		ids[len(words)-1-i] = id
	}
	return ids
}

type byteWriter struct{ buf []byte }

func (w *byteWriter) Write(p []byte) (int, error) {
	w.buf = append(w.buf, p...)
	return len(p), nil
}

func appendCodebookFile(f *codebook.File) []byte {
	w := &byteWriter{}
	if _, err := f.WriteTo(w); err != nil {
		panic(err)
	}
	return w.buf
}
