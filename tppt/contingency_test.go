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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grounding-example.dev/tpt/internal/tokenindex"
	"grounding-example.dev/tpt/tpsa"
)

func openSide(t *testing.T, dir, name string, sentences []string) *tpsa.Reader {
	t.Helper()
	vocab := tokenindex.NewBuilder()
	track, sufa := tpsa.Build(vocab, sentences)

	vocabPath := filepath.Join(dir, name+".tdx")
	trackPath := filepath.Join(dir, name+".mct")
	sufaPath := filepath.Join(dir, name+".mmsufa")
	require.NoError(t, os.WriteFile(vocabPath, vocab.Encode(uint32(vocab.Len())), 0o644))
	require.NoError(t, os.WriteFile(trackPath, track, 0o644))
	require.NoError(t, os.WriteFile(sufaPath, sufa, 0o644))

	r, err := tpsa.Open(vocabPath, trackPath, sufaPath)
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r
}

func TestContingency(t *testing.T) {
	dir := t.TempDir()
	src := openSide(t, dir, "src", []string{
		"le chat noir dort",
		"le chien aboie",
		"un chat gris",
	})
	trg := openSide(t, dir, "trg", []string{
		"the black cat sleeps",
		"the dog barks",
		"a gray cat",
	})

	counts, ok := Contingency(src, trg, []string{"chat"}, []string{"cat"})
	require.True(t, ok)
	assert.Equal(t, 2, counts.Marginal)
	assert.Equal(t, 2, counts.Marginal2)
	assert.Equal(t, 2, counts.Joint)
	assert.Equal(t, 3, counts.Corpus)

	_, ok = Contingency(src, trg, []string{"nonexistent"}, []string{"cat"})
	assert.False(t, ok)
}
