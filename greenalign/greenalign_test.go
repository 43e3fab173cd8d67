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

package greenalign

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFormatRoundTrip(t *testing.T) {
	cases := [][][]int{
		{{0, 1}, {3}},
		{{}, {1, 2, 3}, {}},
		{{}, {}, {}, {}, {}, {}},
		nil,
	}
	for _, sets := range cases {
		line := FormatLine(sets)
		got, err := ParseLine(line)
		require.NoError(t, err)
		assert.Equal(t, sets, got)
	}
}

func TestReadAllWriteAll(t *testing.T) {
	lines := [][][]int{
		{{0, 1}, {3}},
		{{}, {1, 2, 3}, {}},
	}
	var buf strings.Builder
	require.NoError(t, WriteAll(&buf, lines))

	got, err := ReadAll(strings.NewReader(buf.String()))
	require.NoError(t, err)
	assert.Equal(t, lines, got)
}

func TestParseLineSortsIndices(t *testing.T) {
	sets, err := ParseLine("3,1,2")
	require.NoError(t, err)
	assert.Equal(t, [][]int{{1, 2, 3}}, sets)
}
