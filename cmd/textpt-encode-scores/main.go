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

// textpt-encode-scores runs §4.8 step 2 over a text phrase table, writing
// <base>.scr, <base>.cbk, <base>.aln (if any row carries alignments), and
// <base>.config (§6.3's textpt_encode_scores). It expects
// cmd/textpt-encode-phrases to have already been run against column 2 of
// the same table and the same base name, so <base>.trg.col gives each
// row's resolved target-repository offset.
package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	"log"
	"os"

	"grounding-example.dev/tpt/internal/atomicfile"
	"grounding-example.dev/tpt/internal/texttable"
	"grounding-example.dev/tpt/tppt"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s <phrase-table> <base-name>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 2 {
		flag.Usage()
		os.Exit(1)
	}
	if err := run(flag.Arg(0), flag.Arg(1)); err != nil {
		log.Fatalf("textpt-encode-scores: %v", err)
	}
}

func run(tablePath, base string) error {
	f, err := os.Open(tablePath)
	if err != nil {
		return err
	}
	defer f.Close()
	rows, err := texttable.ReadAll(f)
	if err != nil {
		return err
	}

	colData, err := os.ReadFile(base + ".trg.col")
	if err != nil {
		return fmt.Errorf("reading %s.trg.col (run textpt-encode-phrases on column 2 first): %w", base, err)
	}
	if len(colData) != 4*len(rows) {
		return fmt.Errorf("%s.trg.col has %d entries, phrase table has %d rows", base, len(colData)/4, len(rows))
	}

	inputs := make([]tppt.ScoreInput, len(rows))
	for i, r := range rows {
		inputs[i] = tppt.ScoreInput{
			TrgOffset: binary.LittleEndian.Uint32(colData[i*4:]),
			Scores:    r.Scores,
			Counts:    r.Counts,
			Alignment: r.Alignment,
		}
	}

	sr := tppt.EncodeScores(inputs)
	log.Printf("textpt-encode-scores: encoded %d rows (%d float cols, %d count cols, alignments=%v)",
		len(rows), sr.NFloat, sr.NCount, sr.HasAlign)

	if err := atomicfile.Write(base+".scr", tppt.EncodeScr(sr.Rows, sr.NFloat, sr.NCount), 0o644); err != nil {
		return err
	}
	if err := atomicfile.Write(base+".cbk", sr.CodebookFile, 0o644); err != nil {
		return err
	}
	if sr.HasAlign {
		if err := atomicfile.Write(base+".aln", tppt.EncodeAln(sr.Rows), 0o644); err != nil {
			return err
		}
	}

	version := 1
	if sr.NCount > 0 || sr.HasAlign {
		version = 2
	}
	cfgBytes, err := tppt.Config{
		Version: version, NumRows: len(rows), NFloat: sr.NFloat, NCount: sr.NCount,
		HasAlign: sr.HasAlign, RefWidth: sr.RefWidth,
	}.MarshalToYAML()
	if err != nil {
		return err
	}
	return atomicfile.Write(base+".config", cfgBytes, 0o644)
}
