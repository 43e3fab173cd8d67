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
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seedARPA is spec.md §8 seed test #5: a 2-gram model over <s>, a, b, </s>
// with p(a) = 0.1, p(b|a) = 0.5, bow(a) = 0.3.
const seedARPA = `\data\
ngram 1=4
ngram 2=1

\1-grams:
-3.0	<s>
-1.0	a	-0.522878745
-2.0	b
-1.0	</s>

\2-grams:
-0.301029996	a b

\end\
`

func mustParse(t *testing.T) *Model {
	t.Helper()
	m, err := ParseARPA(strings.NewReader(seedARPA))
	require.NoError(t, err)
	return m
}

func TestBuildAndWordProb(t *testing.T) {
	m := mustParse(t)
	data := Build(m, "<unk>")
	r, err := Load(data)
	require.NoError(t, err)

	// word_prob(b, [a]) == log10(0.5): the direct 2-gram hit, no back-off.
	p, order := r.WordProbWithDepth("b", []string{"a"})
	assert.InDelta(t, math.Log10(0.5), p, 1e-4)
	assert.Equal(t, 2, order)

	// word_prob(<unk>, [a]) falls back through a's back-off weight, since
	// <unk> never appears as a 2-gram continuation of a.
	oov := r.OOVUnigramProb()
	p, order = r.WordProbWithDepth("<unk>", []string{"a"})
	assert.InDelta(t, oov+math.Log10(0.3), p, 1e-4)
	assert.Equal(t, 0, order)
}

func TestWordProbUnigramFallback(t *testing.T) {
	m := mustParse(t)
	data := Build(m, "<unk>")
	r, err := Load(data)
	require.NoError(t, err)

	// With no context at all, word_prob degrades to the flat unigram table.
	p := r.WordProb("a", nil)
	assert.InDelta(t, -1.0, p, 1e-4)
}

func TestWordProbOutOfVocabularyWord(t *testing.T) {
	m := mustParse(t)
	data := Build(m, "<unk>")
	r, err := Load(data)
	require.NoError(t, err)

	p := r.WordProb("never-seen-token", []string{"a"})
	assert.InDelta(t, r.OOVUnigramProb()+math.Log10(0.3), p, 1e-4)
}
