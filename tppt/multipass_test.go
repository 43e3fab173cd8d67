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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestMultipassMatchesBuild checks that running the three §4.8 passes as
// separate EncodePhrases/EncodeScores/AssembleParts calls — the way
// cmd/textpt-encode-phrases, cmd/textpt-encode-scores, and
// cmd/textpt-assemble wire them across process boundaries — yields a
// .tppt that answers lookups identically to the single-process Build.
func TestMultipassMatchesBuild(t *testing.T) {
	entries := seedEntries

	srcStrs := make([][]string, len(entries))
	trgStrs := make([][]string, len(entries))
	for i, e := range entries {
		srcStrs[i] = e.Src
		trgStrs[i] = e.Trg
	}
	srcRes := EncodePhrases(srcStrs)
	trgRes := EncodePhrases(trgStrs)

	inputs := make([]ScoreInput, len(entries))
	for i, e := range entries {
		inputs[i] = ScoreInput{TrgOffset: trgRes.Col[i], Scores: e.Scores, Counts: e.Counts, Alignment: e.Alignment}
	}
	sr := EncodeScores(inputs)

	data := AssembleParts(srcRes.IDs, sr,
		srcRes.Vocab.Encode(uint32(srcRes.Vocab.Len())),
		trgRes.Vocab.Encode(uint32(trgRes.Vocab.Len())),
		trgRes.RepoDat, trgRes.RepoIdx)

	r, err := Load(data)
	require.NoError(t, err)

	cands, found := r.Lookup([]string{"a"})
	require.True(t, found)
	require.Len(t, cands, 1)
	assert.Equal(t, []string{"b"}, cands[0].Trg)
	assert.Equal(t, []float32{1.0, 1.0}, cands[0].Scores)

	cands, found = r.Lookup([]string{"a", "b"})
	require.True(t, found)
	require.Len(t, cands, 1)
	assert.Equal(t, []string{"c"}, cands[0].Trg)
	assert.Equal(t, []float32{0.5, 0.5}, cands[0].Scores)
}
