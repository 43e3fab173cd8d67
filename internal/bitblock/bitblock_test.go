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

package bitblock_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grounding-example.dev/tpt/internal/bitblock"
)

func TestRoundTripSchema354(t *testing.T) {
	// The schema and value set from §8 scenario 3.
	schema := bitblock.Schema{3, 5, 4}
	values := []uint64{0, 5, 7, 8, 19, 107, 255, 256, 726, 4095}

	var buf []byte
	offsets := make([]int, 0, len(values))
	nbits := 0
	for _, v := range values {
		offsets = append(offsets, nbits)
		nbits = bitblock.WriteValue(&buf, nbits, v, schema)
	}

	pos := 0
	for i, v := range values {
		got, newPos := bitblock.ReadValue(buf, pos, schema)
		assert.Equal(t, v, got, "value %d (offset %d)", i, offsets[i])
		pos = newPos
	}
	assert.Equal(t, nbits, pos)
}

func TestSingleBlockSchemaAlwaysFits(t *testing.T) {
	schema := bitblock.Schema{8}
	for _, v := range []uint64{0, 1, 255} {
		var buf []byte
		end := bitblock.WriteValue(&buf, 0, v, schema)
		got, pos := bitblock.ReadValue(buf, 0, schema)
		assert.Equal(t, v, got)
		assert.Equal(t, end, pos)
	}
}

func TestLargeValuesAcrossManyBlocks(t *testing.T) {
	schema := bitblock.Schema{1, 2, 4, 8, 16, 32}
	values := []uint64{0, 1, 2, 3, 16, 300, 1 << 20, 1<<32 - 1}

	var buf []byte
	nbits := 0
	starts := make([]int, len(values))
	for i, v := range values {
		starts[i] = nbits
		nbits = bitblock.WriteValue(&buf, nbits, v, schema)
	}
	pos := 0
	for i, v := range values {
		got, newPos := bitblock.ReadValue(buf, pos, schema)
		require.Equal(t, v, got, "index %d", i)
		pos = newPos
	}
}

func TestValidateSchema(t *testing.T) {
	assert.NoError(t, bitblock.ValidateSchema(bitblock.Schema{8, 8}, 200))
	assert.Error(t, bitblock.ValidateSchema(bitblock.Schema{}, 200))
	assert.Error(t, bitblock.ValidateSchema(bitblock.Schema{2}, 200))
}

func TestTIPPairRoundTrip(t *testing.T) {
	pairs := [][2]uint64{
		{0, 0}, {1, 2}, {63, 64}, {127, 1000}, {1 << 20, 1 << 40},
	}
	var buf []byte
	for _, p := range pairs {
		buf = bitblock.AppendPair(buf, p[0], p[1])
	}
	pos := 0
	for _, want := range pairs {
		a, b, n, err := bitblock.ReadPair(buf[pos:])
		require.NoError(t, err)
		assert.Equal(t, want[0], a)
		assert.Equal(t, want[1], b)
		pos += n
	}
	assert.Equal(t, len(buf), pos)
}

func TestScanBackToStop(t *testing.T) {
	var buf []byte
	buf = bitblock.AppendPair(buf, 5, 10)
	entry1End := len(buf)
	// A multi-byte first member so there are several interior positions
	// that must all resolve back to the same entry start.
	buf = bitblock.AppendPair(buf, 1<<20, 11)
	_, _, firstMemberLen, err := bitblock.ReadTIPValue(buf[entry1End:])
	require.NoError(t, err)

	// Landing anywhere inside the first member's multi-byte encoding
	// (before its own stop byte) should walk back to the entry start.
	for pos := entry1End + 1; pos < entry1End+firstMemberLen; pos++ {
		got := bitblock.ScanBackToStop(buf, pos, 0)
		assert.Equal(t, entry1End, got, "pos=%d", pos)
	}

	// A multi-byte second member: landing inside it must still resolve
	// back to the pair's start, not the second member's own start, since
	// the first member's stop byte in between carries the roleFirst bit.
	entry2End := len(buf)
	buf = bitblock.AppendPair(buf, 3, 1<<30)
	_, _, firstMemberLen2, err := bitblock.ReadTIPValue(buf[entry2End:])
	require.NoError(t, err)
	secondMemberStart := entry2End + firstMemberLen2
	_, _, secondMemberLen, err := bitblock.ReadTIPValue(buf[secondMemberStart:])
	require.NoError(t, err)

	for pos := secondMemberStart + 1; pos < secondMemberStart+secondMemberLen; pos++ {
		got := bitblock.ScanBackToStop(buf, pos, 0)
		assert.Equal(t, entry2End, got, "pos=%d", pos)
	}
}
