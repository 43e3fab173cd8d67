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

// tp-alignment-build reads a green-format alignment stream from stdin and
// writes the §3.8/§4.10 tightly packed alignment file (§6.3's
// tp_alignment_build).
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"grounding-example.dev/tpt/greenalign"
	"grounding-example.dev/tpt/tpa"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s <output.tpa>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(1)
	}
	if err := run(os.Stdin, flag.Arg(0)); err != nil {
		log.Fatalf("tp-alignment-build: %v", err)
	}
}

func run(stdin *os.File, outPath string) error {
	out, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer out.Close()

	w, err := tpa.NewWriter(out)
	if err != nil {
		return err
	}

	gr := greenalign.NewReader(stdin)
	n := 0
	for {
		sets, err := gr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		if err := w.PutLine(sets); err != nil {
			return err
		}
		n++
	}
	if err := w.Close(); err != nil {
		return err
	}
	log.Printf("tp-alignment-build: wrote %d alignment(s) to %s", n, outPath)
	return nil
}
