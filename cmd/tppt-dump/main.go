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

// tppt-dump prints every phrase pair of a .tppt file to stdout in the
// texttable format cmd/textpt-encode-phrases/cmd/textpt-encode-scores
// accept (§6.3's tppt_dump).
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"grounding-example.dev/tpt/greenalign"
	"grounding-example.dev/tpt/tppt"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s <base-name>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(1)
	}
	if err := run(flag.Arg(0)); err != nil {
		log.Fatalf("tppt-dump: %v", err)
	}
}

func run(base string) error {
	data, err := os.ReadFile(base + ".tppt")
	if err != nil {
		return err
	}
	r, err := tppt.Load(data)
	if err != nil {
		return err
	}

	w := bufio.NewWriter(os.Stdout)
	defer w.Flush()

	var n int
	r.Walk(func(srcTokens []string, cands []tppt.Candidate) {
		for _, c := range cands {
			n++
			fmt.Fprintf(w, "%s ||| %s ||| %s", strings.Join(srcTokens, " "), strings.Join(c.Trg, " "), formatScores(c.Scores))
			if c.Alignment != nil {
				fmt.Fprintf(w, " ||| %s", greenalign.FormatLine(c.Alignment))
			} else if len(c.Counts) > 0 {
				fmt.Fprint(w, " ||| ")
			}
			if len(c.Counts) > 0 {
				fmt.Fprintf(w, " ||| %s", formatCounts(c.Counts))
			}
			fmt.Fprintln(w)
		}
	})
	log.Printf("tppt-dump: wrote %d phrase pairs", n)
	return nil
}

func formatScores(scores []float32) string {
	parts := make([]string, len(scores))
	for i, s := range scores {
		parts[i] = strconv.FormatFloat(float64(s), 'g', -1, 32)
	}
	return strings.Join(parts, " ")
}

func formatCounts(counts []uint32) string {
	parts := make([]string, len(counts))
	for i, c := range counts {
		parts[i] = strconv.FormatUint(uint64(c), 10)
	}
	return strings.Join(parts, " ")
}
