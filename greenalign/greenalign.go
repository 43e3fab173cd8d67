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

// Package greenalign reads and writes the "green" word-alignment text
// format: one line per sentence pair, each line a sequence of
// whitespace-separated groups, one group per source-token position, in
// order. A group is either "_" (this source token aligns to nothing) or a
// comma-separated, ascending list of 0-based target-token indices it links
// to, e.g.:
//
//	0,1 3
//	_ 1,2,3 _
//
// This is the external wire contract consumed by tpa's builder (which
// packs a parsed line's sets into §3.8 alignment links) and by tppt's
// score-encoding pass (which does the same for a phrase pair's "a=" field,
// §3.6). The format's own design — a text rendition of a
// vector<vector<Uint>> alignment, one group per source word — is grounded
// on the shape described for the original Green writer/reader in
// original_source/src/tm/word_align_io.h; this module does not reproduce
// that format byte-for-byte since its text-level punctuation was never
// part of the retrieved source, only its role as the input to tp_alignment
// and ptable.encode-scores.
package greenalign

import (
	"bufio"
	"io"
	"sort"
	"strconv"
	"strings"

	"grounding-example.dev/tpt/internal/tpterr"
)

const emptyGroup = "_"

// ParseLine parses one green-format line into its per-source-token
// alignment sets. A blank line parses as zero sets (a source phrase with no
// tokens).
func ParseLine(line string) ([][]int, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil, nil
	}
	sets := make([][]int, 0, len(fields))
	for _, f := range fields {
		if f == emptyGroup {
			sets = append(sets, []int{})
			continue
		}
		parts := strings.Split(f, ",")
		set := make([]int, 0, len(parts))
		for _, p := range parts {
			v, err := strconv.Atoi(p)
			if err != nil {
				return nil, tpterr.Argumentf("greenalign", "bad target index %q in group %q: %v", p, f, err)
			}
			set = append(set, v)
		}
		sort.Ints(set)
		sets = append(sets, set)
	}
	return sets, nil
}

// FormatLine renders sets (one alignment set per source token, in order)
// back into a single green-format line, with no trailing newline.
func FormatLine(sets [][]int) string {
	groups := make([]string, len(sets))
	for i, set := range sets {
		if len(set) == 0 {
			groups[i] = emptyGroup
			continue
		}
		parts := make([]string, len(set))
		for j, v := range set {
			parts[j] = strconv.Itoa(v)
		}
		groups[i] = strings.Join(parts, ",")
	}
	return strings.Join(groups, " ")
}

// Reader scans a green-format file one sentence (line) at a time.
type Reader struct {
	sc *bufio.Scanner
}

// NewReader wraps r as a green-format reader.
func NewReader(r io.Reader) *Reader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16<<20)
	return &Reader{sc: sc}
}

// Next reads and parses the next line's alignment sets. It returns
// io.EOF once the underlying reader is exhausted.
func (r *Reader) Next() ([][]int, error) {
	if !r.sc.Scan() {
		if err := r.sc.Err(); err != nil {
			return nil, tpterr.IO("greenalign", err)
		}
		return nil, io.EOF
	}
	return ParseLine(r.sc.Text())
}

// Writer writes sentences, one per line, in green format.
type Writer struct {
	w io.Writer
}

// NewWriter wraps w as a green-format writer.
func NewWriter(w io.Writer) *Writer { return &Writer{w: w} }

// WriteLine writes one sentence's alignment sets, followed by a newline.
func (w *Writer) WriteLine(sets [][]int) error {
	_, err := io.WriteString(w.w, FormatLine(sets)+"\n")
	return err
}

// ReadAll reads every line from r into a slice, for callers (tests, small
// tools) that don't need streaming.
func ReadAll(r io.Reader) ([][][]int, error) {
	gr := NewReader(r)
	var out [][][]int
	for {
		sets, err := gr.Next()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, sets)
	}
}

// WriteAll writes every sentence in lines to w, one per line.
func WriteAll(w io.Writer, lines [][][]int) error {
	gw := NewWriter(w)
	for _, sets := range lines {
		if err := gw.WriteLine(sets); err != nil {
			return err
		}
	}
	return nil
}
