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

// Package shardsort externally sorts line-oriented shard files too large
// to sort in memory by shelling out to the system sort(1) utility, the
// conventional way to build a suffix array (internal/sufarray) over a
// corpus bigger than RAM: shard the corpus's suffix keys to disk, sort
// each shard externally, then merge.
package shardsort

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"

	"al.essio.dev/pkg/shellescape"
)

// Options configures an external sort invocation.
type Options struct {
	// Numeric sorts fields as numbers (sort -n) instead of byte order.
	Numeric bool
	// Unique collapses adjacent duplicate lines (sort -u).
	Unique bool
	// TempDir overrides sort's scratch directory (sort -T); left empty to
	// use sort's own default.
	TempDir string
}

func (o Options) args() []string {
	var args []string
	if o.Numeric {
		args = append(args, "-n")
	}
	if o.Unique {
		args = append(args, "-u")
	}
	if o.TempDir != "" {
		args = append(args, "-T", o.TempDir)
	}
	return args
}

// SortFile sorts the lines of the file at inPath into a new file at
// outPath using the system sort(1) binary, returning an error naming both
// paths (shell-escaped, since they are echoed verbatim into the error
// message) if the external command fails.
func SortFile(ctx context.Context, inPath, outPath string, opts Options) error {
	out, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("shardsort: create %s: %w", shellescape.Quote(outPath), err)
	}
	defer out.Close()

	args := append(opts.args(), inPath)
	cmd := exec.CommandContext(ctx, "sort", args...)
	cmd.Stdout = out
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("shardsort: sort %s > %s: %w",
			shellescape.Quote(inPath), shellescape.Quote(outPath), err)
	}
	return nil
}

// Merge k-way merges already-sorted shard files (as produced by SortFile)
// into w, preserving global order. Shards are read one line at a time,
// holding one current line per shard, via a min-heap-free linear scan suitable for a modest
// shard count; a corpus sharded into many more pieces than this can hold
// open at once should merge in multiple passes.
func Merge(w io.Writer, shardPaths []string, less func(a, b string) bool) error {
	readers := make([]*bufio.Scanner, len(shardPaths))
	files := make([]*os.File, len(shardPaths))
	lines := make([]string, len(shardPaths))
	live := make([]bool, len(shardPaths))

	for i, p := range shardPaths {
		f, err := os.Open(p)
		if err != nil {
			return fmt.Errorf("shardsort: open shard %s: %w", shellescape.Quote(p), err)
		}
		files[i] = f
		defer f.Close()
		readers[i] = bufio.NewScanner(f)
		readers[i].Buffer(make([]byte, 0, 64*1024), 1<<20)
		live[i] = advance(readers[i], &lines[i])
	}

	bw := bufio.NewWriter(w)
	defer bw.Flush()

	for {
		best := -1
		for i := range live {
			if !live[i] {
				continue
			}
			if best == -1 || less(lines[i], lines[best]) {
				best = i
			}
		}
		if best == -1 {
			return nil
		}
		if _, err := bw.WriteString(lines[best]); err != nil {
			return err
		}
		if _, err := bw.WriteString("\n"); err != nil {
			return err
		}
		live[best] = advance(readers[best], &lines[best])
	}
}

func advance(sc *bufio.Scanner, dst *string) bool {
	if !sc.Scan() {
		return false
	}
	*dst = sc.Text()
	return true
}
