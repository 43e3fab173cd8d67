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

// Package texttable reads the Moses-style text phrase table that feeds
// cmd/textpt-encode-phrases and cmd/textpt-encode-scores (§6.3): one line
// per phrase pair, "|||"-delimited columns of source tokens, target
// tokens, whitespace-separated scores, an optional green-format alignment
// column (internal/greenalign, one set per source token), and an optional
// whitespace-separated counts column.
package texttable

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"grounding-example.dev/tpt/greenalign"
)

// Row is one parsed phrase-table line.
type Row struct {
	Src       []string
	Trg       []string
	Scores    []float32
	Alignment [][]int // nil if the line has no 4th column
	Counts    []uint32 // nil if the line has no 5th column
}

// ReadAll reads every line of r as a Row, per this package's column
// convention.
func ReadAll(r io.Reader) ([]Row, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	var rows []Row
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := sc.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		row, err := parseLine(line)
		if err != nil {
			return nil, fmt.Errorf("texttable: line %d: %w", lineNo, err)
		}
		rows = append(rows, row)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return rows, nil
}

func parseLine(line string) (Row, error) {
	cols := strings.Split(line, "|||")
	if len(cols) < 3 {
		return Row{}, fmt.Errorf("expected at least 3 ||| -delimited columns, got %d", len(cols))
	}
	row := Row{
		Src: strings.Fields(cols[0]),
		Trg: strings.Fields(cols[1]),
	}
	scoreFields := strings.Fields(cols[2])
	row.Scores = make([]float32, len(scoreFields))
	for i, f := range scoreFields {
		v, err := strconv.ParseFloat(f, 32)
		if err != nil {
			return Row{}, fmt.Errorf("bad score %q: %w", f, err)
		}
		row.Scores[i] = float32(v)
	}
	if len(cols) > 3 && strings.TrimSpace(cols[3]) != "" {
		sets, err := greenalign.ParseLine(strings.TrimSpace(cols[3]))
		if err != nil {
			return Row{}, fmt.Errorf("bad alignment column: %w", err)
		}
		row.Alignment = sets
	}
	if len(cols) > 4 && strings.TrimSpace(cols[4]) != "" {
		countFields := strings.Fields(cols[4])
		row.Counts = make([]uint32, len(countFields))
		for i, f := range countFields {
			v, err := strconv.ParseUint(f, 10, 32)
			if err != nil {
				return Row{}, fmt.Errorf("bad count %q: %w", f, err)
			}
			row.Counts[i] = uint32(v)
		}
	}
	return row, nil
}
