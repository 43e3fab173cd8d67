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

// vocab-build reads whitespace-tokenized text from stdin, one sentence per
// line, and writes the §3.2 token index built over every distinct token to
// the given output path (§6.3's vocab_build).
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"grounding-example.dev/tpt/internal/tokenindex"
)

var unkToken = flag.String("unk", "", "vocabulary entry to record as the unknown-token placeholder")

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [-unk token] <output-path>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(1)
	}
	if err := run(os.Stdin, flag.Arg(0), *unkToken); err != nil {
		log.Fatalf("vocab-build: %v", err)
	}
}

func run(stdin *os.File, outPath, unk string) error {
	vocab := tokenindex.NewBuilder()
	sc := bufio.NewScanner(stdin)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	n := 0
	for sc.Scan() {
		for _, tok := range strings.Fields(sc.Text()) {
			vocab.Intern(tok)
			n++
		}
	}
	if err := sc.Err(); err != nil {
		return err
	}

	unkID := uint32(vocab.Len())
	if unk != "" {
		unkID = vocab.Intern(unk)
	}
	log.Printf("vocab-build: interned %d tokens (%d distinct)", n, vocab.Len())
	return os.WriteFile(outPath, vocab.Encode(unkID), 0o644)
}
