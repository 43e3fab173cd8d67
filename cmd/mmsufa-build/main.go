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

// mmsufa-build reads a §3.9 corpus track and writes the §3.9/§4.7 suffix
// array built over it (§6.3's mmsufa_build). It takes no vocabulary: the
// suffix array sorts and groups by token ID alone.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"grounding-example.dev/tpt/internal/sufarray"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s <input.mct> <output.msa>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 2 {
		flag.Usage()
		os.Exit(1)
	}
	if err := run(flag.Arg(0), flag.Arg(1)); err != nil {
		log.Fatalf("mmsufa-build: %v", err)
	}
}

func run(mctPath, outPath string) error {
	mctBytes, err := os.ReadFile(mctPath)
	if err != nil {
		return err
	}
	track, err := sufarray.LoadCorpusTrack(mctBytes)
	if err != nil {
		return err
	}
	sa := sufarray.BuildSuffixArray(track)
	log.Printf("mmsufa-build: built suffix array over %d sentences (%d bytes)", track.NumSentences(), len(sa))
	return os.WriteFile(outPath, sa, 0o644)
}
