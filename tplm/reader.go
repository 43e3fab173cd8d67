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

package tplm

import (
	"encoding/binary"
	"unsafe"

	"github.com/timandy/routine"

	"grounding-example.dev/tpt/internal/bitblock"
	"grounding-example.dev/tpt/internal/codebook"
	"grounding-example.dev/tpt/internal/tokenindex"
	"grounding-example.dev/tpt/internal/tptcontainer"
	"grounding-example.dev/tpt/internal/tpterr"
	"grounding-example.dev/tpt/internal/tpttrie"
	"grounding-example.dev/tpt/internal/varint"
)

// Reader is a loaded, read-only tightly packed language model, answering
// §6.4's LanguageModel::word_prob / word_prob_with_depth.
type Reader struct {
	vocab *tokenindex.File
	trie  *tpttrie.Reader

	unigramBits  []byte
	unigramWidth int
	numTokens    uint32
	unkID        uint32
	probBook     codebook.Book
	bowBook      codebook.Book
	hasBow       bool
}

// nodePayload is a trie node's decoded back-off weight ID and its
// (predicted_token_id -> pval_id) table, sorted by token (§3.7).
type nodePayload struct {
	bowID uint32
	pairs []nodePair
}

type nodePair struct {
	token  uint32
	pvalID uint32
}

// payloadCache is the per-goroutine memoization of a node's decoded
// payload, mirroring tppt.Reader's candidateCache: §5 requires this cache
// be either thread-safe or documented unsafe for concurrent use, and §9's
// Open Questions favor goroutine-local storage over a global concurrent
// map for exactly this kind of per-node decode cache.
var payloadCache = routine.NewThreadLocalWithInitial[map[uintptr]nodePayload](func() map[uintptr]nodePayload {
	return make(map[uintptr]nodePayload)
})

func cacheKeyFor(value []byte) uintptr {
	if len(value) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(&value[0]))
}

// Load parses a .tplm container produced by Build.
func Load(data []byte) (*Reader, error) {
	sections, err := tptcontainer.Parse(containerMagic, data)
	if err != nil {
		return nil, err
	}
	meta, ok := sections["meta"]
	if !ok || len(meta) < 13 {
		return nil, tpterr.Format("tplm", 0, tpterr.ErrTruncated)
	}
	numTokens := binary.LittleEndian.Uint32(meta[0:4])
	unigramWidth := binary.LittleEndian.Uint32(meta[4:8])
	unkID := binary.LittleEndian.Uint32(meta[8:12])
	hasBow := meta[12] != 0

	vocab, err := tokenindex.Load(sections["vcab"])
	if err != nil {
		return nil, err
	}
	trie, err := tpttrie.Load(sections["trie"])
	if err != nil {
		return nil, err
	}
	cbk, err := codebook.Load(sections["cbk "])
	if err != nil {
		return nil, err
	}
	if len(cbk.Books) < 1 {
		return nil, tpterr.Format("tplm", 0, tpterr.ErrArityMismatch)
	}

	r := &Reader{
		vocab:        vocab,
		trie:         trie,
		unigramBits:  sections["unig"],
		unigramWidth: int(unigramWidth),
		numTokens:    numTokens,
		unkID:        unkID,
		probBook:     cbk.Books[0],
		hasBow:       hasBow,
	}
	if hasBow {
		if len(cbk.Books) < 2 {
			return nil, tpterr.Format("tplm", 0, tpterr.ErrArityMismatch)
		}
		r.bowBook = cbk.Books[1]
	}
	return r, nil
}

// OOVUnigramProb returns the unigram log-probability of the model's
// configured unknown-token placeholder — the value word_prob falls back to
// (plus any accumulated back-off) when the queried word is outside the
// vocabulary (§4.9's lookup contract).
func (r *Reader) OOVUnigramProb() float64 {
	return float64(r.unigramProbByID(r.unkID))
}

func (r *Reader) unigramProbByID(id uint32) float32 {
	if id >= r.numTokens {
		id = r.unkID
	}
	pid, _ := bitblock.ReadValue(r.unigramBits, int(id)*r.unigramWidth, bitblock.Schema{r.unigramWidth})
	return r.probBook.DecodeFloat(uint32(pid))
}

func (r *Reader) backOffWeight(bowID uint32) float64 {
	if !r.hasBow {
		return 0
	}
	return float64(r.bowBook.DecodeFloat(bowID))
}

// payloadFor decodes (or returns the cached decoding of) the node's
// (bow_id, pval table) payload, handling the §3.7 inlined-leaf
// optimization: a node with neither children nor predictions, only a
// back-off, stores bow_id directly as its "position" with both trie flags
// clear, which tpttrie surfaces as Node.IsInline()/InlineValue().
func payloadFor(n tpttrie.Node) nodePayload {
	if n.IsInline() {
		return nodePayload{bowID: uint32(n.InlineValue())}
	}
	if !n.HasValue() {
		return nodePayload{}
	}
	value := n.Value()
	key := cacheKeyFor(value)
	cache := payloadCache.Get()
	if cached, ok := cache[key]; ok {
		return cached
	}
	p := decodePayload(value)
	cache[key] = p
	return p
}

func decodePayload(value []byte) nodePayload {
	bowID, n1, err := varint.ReadTUI(value)
	if err != nil {
		return nodePayload{}
	}
	encSize, n2, err := varint.ReadTUI(value[n1:])
	if err != nil {
		return nodePayload{bowID: uint32(bowID)}
	}
	start := n1 + n2
	end := start + int(encSize)
	if end > len(value) {
		end = len(value)
	}
	body := value[start:end]

	var pairs []nodePair
	for len(body) > 0 {
		tok, pval, n, err := bitblock.ReadPair(body)
		if err != nil {
			break
		}
		pairs = append(pairs, nodePair{token: uint32(tok), pvalID: uint32(pval)})
		body = body[n:]
	}
	return nodePayload{bowID: uint32(bowID), pairs: pairs}
}

// findPair binary-searches a node's token-sorted pval table for token
// (§4.9's "binary-search (token_id -> pval_id) for w").
func findPair(pairs []nodePair, token uint32) (uint32, bool) {
	lo, hi := 0, len(pairs)
	for lo < hi {
		mid := (lo + hi) / 2
		switch {
		case pairs[mid].token == token:
			return pairs[mid].pvalID, true
		case pairs[mid].token < token:
			lo = mid + 1
		default:
			hi = mid
		}
	}
	return 0, false
}

// walkContext walks the trie along context (given nearest-word-first, the
// reversed order §3.4's reverse-context keying requires), returning the
// node reached at each depth 1..L, where L is the deepest depth the walk
// reaches before a miss or the end of context.
func (r *Reader) walkContext(contextIDs []uint32) []tpttrie.Node {
	if len(contextIDs) == 0 {
		return nil
	}
	n, ok := r.trie.Find(contextIDs[0])
	if !ok {
		return nil
	}
	nodes := []tpttrie.Node{n}
	for _, tok := range contextIDs[1:] {
		n, ok = n.Find(tok)
		if !ok {
			break
		}
		nodes = append(nodes, n)
	}
	return nodes
}

// WordProb returns the back-off log10 probability of w following context,
// matching §6.4's LanguageModel::word_prob. context is given in normal
// left-to-right sentence order (context[len(context)-1] is the word
// immediately preceding w); internally the lookup walks the reverse-context
// trie nearest-word-first, per §4.9.
func (r *Reader) WordProb(w string, context []string) float64 {
	p, _ := r.WordProbWithDepth(w, context)
	return p
}

// WordProbWithDepth is WordProb, additionally reporting the order (number
// of words, including w) of the longest n-gram actually matched, for
// observability (§4.9).
func (r *Reader) WordProbWithDepth(w string, context []string) (logProb float64, order int) {
	wID, wKnown := r.vocab.Lookup(w)

	pathIDs := make([]uint32, len(context))
	for i, c := range context {
		id, ok := r.vocab.Lookup(c)
		if !ok {
			id = r.unkID
		}
		pathIDs[len(context)-1-i] = id
	}

	nodes := r.walkContext(pathIDs)

	var backoffAcc float64
	if wKnown {
		for d := len(nodes); d >= 1; d-- {
			p := payloadFor(nodes[d-1])
			if pvalID, ok := findPair(p.pairs, wID); ok {
				return float64(r.probBook.DecodeFloat(pvalID)) + backoffAcc, d + 1
			}
			backoffAcc += r.backOffWeight(p.bowID)
		}
		return float64(r.unigramProbByID(wID)) + backoffAcc, 1
	}

	// w itself is out of vocabulary: §4.9 says to fall back to
	// oov_unigram_prob plus whatever back-off the traversed context
	// accumulates, without ever searching a pval table for an ID that
	// does not exist.
	for _, n := range nodes {
		backoffAcc += r.backOffWeight(payloadFor(n).bowID)
	}
	return r.OOVUnigramProb() + backoffAcc, 0
}
