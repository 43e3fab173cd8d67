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

// mmctrack-build reads whitespace-tokenized text from stdin, one sentence
// per line, encodes each line against an existing §3.2 token index, and
// writes the §3.9 corpus track to the given output path (§6.3's
// mmctrack_build).
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"grounding-example.dev/tpt/internal/sufarray"
	"grounding-example.dev/tpt/internal/tokenindex"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s <vocab.tdx> <output.mct>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 2 {
		flag.Usage()
		os.Exit(1)
	}
	if err := run(flag.Arg(0), flag.Arg(1), os.Stdin); err != nil {
		log.Fatalf("mmctrack-build: %v", err)
	}
}

func run(vocabPath, outPath string, stdin *os.File) error {
	vocabBytes, err := os.ReadFile(vocabPath)
	if err != nil {
		return err
	}
	vocab, err := tokenindex.Load(vocabBytes)
	if err != nil {
		return err
	}

	var sentences [][]uint32
	sc := bufio.NewScanner(stdin)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		ids := make([]uint32, len(fields))
		for i, tok := range fields {
			id, ok := vocab.Lookup(tok)
			if !ok {
				id = vocab.UnkID()
			}
			ids[i] = id
		}
		sentences = append(sentences, ids)
	}
	if err := sc.Err(); err != nil {
		return err
	}

	track := sufarray.BuildCorpusTrack(sentences)
	log.Printf("mmctrack-build: encoded %d sentences into %d bytes", len(sentences), len(track))
	return os.WriteFile(outPath, track, 0o644)
}
