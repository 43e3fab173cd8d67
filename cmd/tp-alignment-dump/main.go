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

// tp-alignment-dump prints a .tpa file's alignments back out in
// green format, optionally restricted to a [start, end) line range
// (§6.3's tp_alignment_dump).
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"

	"grounding-example.dev/tpt/greenalign"
	"grounding-example.dev/tpt/internal/mmio"
	"grounding-example.dev/tpt/tpa"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s <input.tpa> [start end]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 && flag.NArg() != 3 {
		flag.Usage()
		os.Exit(1)
	}

	start, end := 0, -1
	if flag.NArg() == 3 {
		var err error
		start, err = strconv.Atoi(flag.Arg(1))
		if err != nil {
			log.Fatalf("tp-alignment-dump: bad start %q: %v", flag.Arg(1), err)
		}
		end, err = strconv.Atoi(flag.Arg(2))
		if err != nil {
			log.Fatalf("tp-alignment-dump: bad end %q: %v", flag.Arg(2), err)
		}
	}

	if err := run(flag.Arg(0), start, end); err != nil {
		log.Fatalf("tp-alignment-dump: %v", err)
	}
}

func run(path string, start, end int) error {
	mf, err := mmio.Open(path, mmio.HintSequential)
	if err != nil {
		return err
	}
	defer mf.Close()

	f, err := tpa.Load(mf.Bytes())
	if err != nil {
		return err
	}
	if end < 0 {
		end = f.Size()
	}

	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()
	for i := start; i < end; i++ {
		sets, ok := f.Get(i)
		if !ok {
			return fmt.Errorf("line %d out of range (size %d)", i, f.Size())
		}
		if _, err := fmt.Fprintln(out, greenalign.FormatLine(sets)); err != nil {
			return err
		}
	}
	return nil
}
