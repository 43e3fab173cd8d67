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

import "grounding-example.dev/tpt/tpsa"

// ContingencyCounts is the raw 2x2 phrase-pair contingency table
// phrasepair-contingency.cc computes for one source/target phrase pair:
// how many sentences each phrase occurs in, and how many sentences
// contain both.
type ContingencyCounts struct {
	Joint     int // sentences containing both phrases
	Marginal  int // sentences containing the source phrase
	Marginal2 int // sentences containing the target phrase
	Corpus    int // total sentence count, for computing the 2x2 table's fourth cell
}

// Contingency computes ContingencyCounts for one (src, trg) phrase pair
// drawn from two token-sequence arrays (typically the same parallel
// corpus's source- and target-language halves). It reports ok == false if
// either phrase is never attested in its corpus, mirroring the original
// tool's silent all-zero line for unseen pairs.
//
// Phrases are matched by sentence membership, not exact alignment: a pair
// is "joint" in a sentence if both phrases occur anywhere in it, same as
// phrasepair-contingency.cc's bitset intersection over suffix-array
// occurrence ranges.
func Contingency(src *tpsa.Reader, trg *tpsa.Reader, srcPhrase, trgPhrase []string) (ContingencyCounts, bool) {
	loS, hiS, ok := src.Bounds(srcPhrase)
	if !ok {
		return ContingencyCounts{}, false
	}
	loT, hiT, ok := trg.Bounds(trgPhrase)
	if !ok {
		return ContingencyCounts{}, false
	}

	srcSents := src.SentenceIDs(loS, hiS)
	trgSents := trg.SentenceIDs(loT, hiT)

	set := make(map[uint32]bool, len(trgSents))
	for _, sid := range trgSents {
		set[sid] = true
	}
	joint := 0
	for _, sid := range srcSents {
		if set[sid] {
			joint++
		}
	}

	return ContingencyCounts{
		Joint:     joint,
		Marginal:  len(srcSents),
		Marginal2: len(trgSents),
		Corpus:    int(src.NumSentences()),
	}, true
}
