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

package mmio_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grounding-example.dev/tpt/internal/mmio"
)

func TestOpenReadsMappedContents(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.bin")
	want := []byte("tightly packed test fixture")
	require.NoError(t, os.WriteFile(path, want, 0o644))

	f, err := mmio.Open(path, mmio.HintRandom)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, want, f.Bytes())
}

func TestOpenEmptyFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.bin")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	f, err := mmio.Open(path, mmio.HintNormal)
	require.NoError(t, err)
	defer f.Close()

	assert.Empty(t, f.Bytes())
}

func TestOpenMissingFile(t *testing.T) {
	_, err := mmio.Open(filepath.Join(t.TempDir(), "missing.bin"), mmio.HintNormal)
	assert.Error(t, err)
}

func TestPageSizePositive(t *testing.T) {
	assert.Greater(t, mmio.PageSize(), 0)
}
