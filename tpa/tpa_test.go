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

package tpa

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grounding-example.dev/tpt/greenalign"
)

// seekBuffer adapts a bytes.Buffer into an io.WriteSeeker, the way a real
// *os.File would behave, since bytes.Buffer itself has no Seek method.
type seekBuffer struct {
	buf []byte
	pos int64
}

func (s *seekBuffer) Write(p []byte) (int, error) {
	end := s.pos + int64(len(p))
	if end > int64(len(s.buf)) {
		grown := make([]byte, end)
		copy(grown, s.buf)
		s.buf = grown
	}
	n := copy(s.buf[s.pos:end], p)
	s.pos = end
	return n, nil
}

func (s *seekBuffer) Seek(offset int64, whence int) (int64, error) {
	switch whence {
	case io.SeekStart:
		s.pos = offset
	case io.SeekCurrent:
		s.pos += offset
	case io.SeekEnd:
		s.pos = int64(len(s.buf)) + offset
	}
	return s.pos, nil
}

const seedGreen = `0,1 3
_ 1,2,3 _
0
_
0 1 2
_ _
0,1,2
_
`

func buildSeed(t *testing.T) []byte {
	t.Helper()
	lines, err := greenalign.ReadAll(strings.NewReader(seedGreen))
	require.NoError(t, err)
	require.Len(t, lines, 8)

	sb := &seekBuffer{}
	w, err := NewWriter(sb)
	require.NoError(t, err)
	for _, sets := range lines {
		require.NoError(t, w.PutLine(sets))
	}
	require.NoError(t, w.Close())
	return sb.buf
}

func TestRoundTripSeedScenario(t *testing.T) {
	data := buildSeed(t)

	f, err := Load(data)
	require.NoError(t, err)
	assert.Equal(t, 8, f.Size())

	lines, err := greenalign.ReadAll(strings.NewReader(seedGreen))
	require.NoError(t, err)

	for i, want := range lines {
		got, ok := f.Get(i)
		require.True(t, ok)
		assert.Equal(t, want, got, "line %d", i)
	}

	_, ok := f.Get(8)
	assert.False(t, ok)
	_, ok = f.Get(-1)
	assert.False(t, ok)
}

func TestLoadRejectsBadMagic(t *testing.T) {
	data := buildSeed(t)
	corrupt := bytes.Clone(data)
	corrupt[0] = 'x'
	_, err := Load(corrupt)
	assert.Error(t, err)
}

func TestLoadRejectsTruncated(t *testing.T) {
	data := buildSeed(t)
	_, err := Load(data[:len(Magic)+2])
	assert.Error(t, err)
}

func TestEmptyFile(t *testing.T) {
	sb := &seekBuffer{}
	w, err := NewWriter(sb)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	f, err := Load(sb.buf)
	require.NoError(t, err)
	assert.Equal(t, 0, f.Size())
	_, ok := f.Get(0)
	assert.False(t, ok)
}
