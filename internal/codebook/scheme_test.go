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

package codebook_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grounding-example.dev/tpt/internal/bitblock"
	"grounding-example.dev/tpt/internal/codebook"
)

func TestSelectSingleBlockWhenValuesAreUniform(t *testing.T) {
	bits := make([]int, 1000)
	for i := range bits {
		bits[i] = 4
	}
	counts := codebook.NewCounts(bits)
	sel := codebook.Select(counts, codebook.DefaultMaxBlocks)

	require.NotEmpty(t, sel.Schema)
	assert.GreaterOrEqual(t, sel.Schema.TotalBits(), 4)
	assert.LessOrEqual(t, len(sel.Schema), codebook.DefaultMaxBlocks)
}

func TestSelectPrefersFewerBlocksWithinEpsilon(t *testing.T) {
	bits := make([]int, 0, 2000)
	for i := 0; i < 1000; i++ {
		bits = append(bits, 8)
	}
	for i := 0; i < 1000; i++ {
		bits = append(bits, 8)
	}
	counts := codebook.NewCounts(bits)
	sel := codebook.Select(counts, codebook.DefaultMaxBlocks)
	assert.Equal(t, 1, len(sel.Schema), "a perfectly uniform histogram should pick one block")
}

func TestSelectedSchemaRoundTripsRealValues(t *testing.T) {
	// A skewed histogram: most values small, a long tail of large ones,
	// similar in shape to real phrase-table score-ID distributions.
	bits := make([]int, 0, 5000)
	for i := 0; i < 4000; i++ {
		bits = append(bits, 5)
	}
	for i := 0; i < 900; i++ {
		bits = append(bits, 12)
	}
	for i := 0; i < 100; i++ {
		bits = append(bits, 24)
	}
	counts := codebook.NewCounts(bits)
	sel := codebook.Select(counts, codebook.DefaultMaxBlocks)
	require.GreaterOrEqual(t, sel.Schema.TotalBits(), 24)

	values := []uint64{0, 1, 31, 300, 4095, 1 << 20}
	var buf []byte
	nbits := 0
	for _, v := range values {
		nbits = bitblock.WriteValue(&buf, nbits, v, sel.Schema)
	}
	_ = nbits

	pos := 0
	for _, v := range values {
		got, newPos := bitblock.ReadValue(buf, pos, sel.Schema)
		assert.Equal(t, v, got)
		pos = newPos
	}
}

func TestApproxBytesPerEntry(t *testing.T) {
	var a codebook.ApproxBytesPerEntry
	assert.Equal(t, 0.0, a.Estimate())
	a.Record(4)
	a.Record(6)
	assert.Equal(t, 5.0, a.Estimate())
}
