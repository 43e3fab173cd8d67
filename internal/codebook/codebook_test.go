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
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grounding-example.dev/tpt/internal/bitblock"
	"grounding-example.dev/tpt/internal/codebook"
)

func TestFileRoundTripV1(t *testing.T) {
	f := &codebook.File{
		Version: 1,
		Books: []codebook.Book{
			{
				Kind:        codebook.KindFloat,
				Schema:      bitblock.Schema{8, 8},
				FloatValues: []float32{0, 0.5, -1.25, 3.75},
			},
		},
	}

	var buf bytes.Buffer
	_, err := f.WriteTo(&buf)
	require.NoError(t, err)

	got, err := codebook.Load(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, 1, got.Version)
	require.Len(t, got.Books, 1)
	assert.Equal(t, f.Books[0].FloatValues, got.Books[0].FloatValues)
}

func TestFileRoundTripV2MixedKinds(t *testing.T) {
	f := &codebook.File{
		Version: 2,
		Books: []codebook.Book{
			{
				Kind:        codebook.KindFloat,
				Schema:      bitblock.Schema{16},
				FloatValues: []float32{1, 2, 3},
			},
			{
				Kind:       codebook.KindUint32,
				Schema:     bitblock.Schema{8, 8},
				UintValues: []uint32{0, 1, 2, 3, 4},
			},
		},
	}

	var buf bytes.Buffer
	_, err := f.WriteTo(&buf)
	require.NoError(t, err)

	got, err := codebook.Load(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, 2, got.Version)
	require.Len(t, got.Books, 2)
	assert.Equal(t, codebook.KindFloat, got.Books[0].Kind)
	assert.Equal(t, f.Books[0].FloatValues, got.Books[0].FloatValues)
	assert.Equal(t, codebook.KindUint32, got.Books[1].Kind)
	assert.Equal(t, f.Books[1].UintValues, got.Books[1].UintValues)
}

func TestLoadTruncatedReturnsFormatError(t *testing.T) {
	_, err := codebook.Load([]byte{1, 2})
	assert.Error(t, err)
}

func TestBookDecodeAccessors(t *testing.T) {
	b := codebook.Book{Kind: codebook.KindUint32, Schema: bitblock.Schema{8}, UintValues: []uint32{10, 20, 30}}
	assert.Equal(t, uint32(20), b.DecodeUint32(1))
	assert.NoError(t, b.Validate())
}
