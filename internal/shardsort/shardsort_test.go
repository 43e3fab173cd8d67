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

package shardsort_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grounding-example.dev/tpt/internal/shardsort"
)

func TestSortFile(t *testing.T) {
	if _, err := os.Stat("/usr/bin/sort"); err != nil {
		t.Skip("system sort(1) not available")
	}
	dir := t.TempDir()
	in := filepath.Join(dir, "in.txt")
	out := filepath.Join(dir, "out.txt")
	require.NoError(t, os.WriteFile(in, []byte("banana\napple\ncherry\n"), 0o644))

	require.NoError(t, shardsort.SortFile(context.Background(), in, out, shardsort.Options{}))

	got, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, []string{"apple", "banana", "cherry"}, strings.Fields(string(got)))
}

func TestMergeSortedShards(t *testing.T) {
	dir := t.TempDir()
	shard1 := filepath.Join(dir, "s1.txt")
	shard2 := filepath.Join(dir, "s2.txt")
	require.NoError(t, os.WriteFile(shard1, []byte("apple\ncherry\n"), 0o644))
	require.NoError(t, os.WriteFile(shard2, []byte("banana\ndate\n"), 0o644))

	var buf strings.Builder
	err := shardsort.Merge(&buf, []string{shard1, shard2}, func(a, b string) bool { return a < b })
	require.NoError(t, err)
	assert.Equal(t, "apple\nbanana\ncherry\ndate\n", buf.String())
}

func TestMergeEmptyShards(t *testing.T) {
	var buf strings.Builder
	err := shardsort.Merge(&buf, nil, func(a, b string) bool { return a < b })
	require.NoError(t, err)
	assert.Empty(t, buf.String())
}
