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

package varint_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grounding-example.dev/tpt/internal/varint"
)

func TestRoundTrip(t *testing.T) {
	values := []uint64{
		0, 1, 127, 128, 255, 256,
		1<<16 - 1, 1 << 16,
		1<<32 - 1, 1 << 32,
		1 << 63,
	}
	for _, v := range values {
		enc := varint.AppendTUI(nil, v)
		got, n, err := varint.ReadTUI(enc)
		require.NoError(t, err)
		assert.Equal(t, v, got)
		assert.Equal(t, len(enc), n)
		assert.Equal(t, varint.SizeTUI(v), len(enc))
	}
}

func TestZeroIsSingleTerminatorByte(t *testing.T) {
	enc := varint.AppendTUI(nil, 0)
	require.Len(t, enc, 1)
	assert.Equal(t, byte(0x80), enc[0])
}

func TestByteWidth(t *testing.T) {
	// Matches the "seed test 2" shape: ceil(log2(v+1)/7), minimum 1.
	cases := map[uint64]int{
		0:          1,
		1:          1,
		127:        1,
		128:        2,
		255:        2,
		256:        2,
		1<<16 - 1:  3,
		1 << 16:    3,
		1<<32 - 1:  5,
		1 << 32:    5,
		1 << 63:    10,
	}
	for v, want := range cases {
		assert.Equal(t, want, varint.SizeTUI(v), "v=%d", v)
	}
}

func TestReadTruncated(t *testing.T) {
	// No byte has its high bit set: the stream looks like it keeps going
	// forever, which must be reported as truncated rather than panicking.
	_, _, err := varint.ReadTUI([]byte{0x01, 0x02, 0x03})
	require.Error(t, err)
}

func TestAppendOntoExisting(t *testing.T) {
	var buf []byte
	buf = varint.AppendTUI(buf, 5)
	buf = varint.AppendTUI(buf, 300)
	v1, n1, err := varint.ReadTUI(buf)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), v1)
	v2, n2, err := varint.ReadTUI(buf[n1:])
	require.NoError(t, err)
	assert.Equal(t, uint64(300), v2)
	assert.Equal(t, len(buf), n1+n2)
}
