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

// textpt-assemble runs §4.8 step 3, joining cmd/textpt-encode-phrases'
// source-side output against cmd/textpt-encode-scores' output by row index
// and writing the final <base>.tppt (§6.3's textpt_assemble).
package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	"log"
	"os"

	"grounding-example.dev/tpt/internal/seqrepo"
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
		log.Fatalf("textpt-assemble: %v", err)
	}
}

func run(base string) error {
	cfgBytes, err := os.ReadFile(base + ".config")
	if err != nil {
		return err
	}
	cfg, err := tppt.LoadConfig(cfgBytes)
	if err != nil {
		return err
	}

	scrBytes, err := os.ReadFile(base + ".scr")
	if err != nil {
		return err
	}
	rows, err := tppt.DecodeScr(scrBytes, cfg.NFloat, cfg.NCount)
	if err != nil {
		return err
	}
	if cfg.HasAlign {
		alnBytes, err := os.ReadFile(base + ".aln")
		if err != nil {
			return err
		}
		alignIDs, err := tppt.DecodeAln(alnBytes)
		if err != nil {
			return err
		}
		if len(alignIDs) != len(rows) {
			return fmt.Errorf("%s.aln has %d rows, %s.scr has %d", base, len(alignIDs), base, len(rows))
		}
		for i := range rows {
			rows[i].AlignIDs = alignIDs[i]
		}
	}

	cbkBytes, err := os.ReadFile(base + ".cbk")
	if err != nil {
		return err
	}
	sr, err := tppt.LoadScores(cbkBytes, cfg.NFloat, cfg.NCount, cfg.HasAlign, cfg.RefWidth, rows)
	if err != nil {
		return err
	}

	srcRepoDat, err := os.ReadFile(base + ".src.repos.dat")
	if err != nil {
		return err
	}
	srcRepoIdx, err := os.ReadFile(base + ".src.repos.idx")
	if err != nil {
		return err
	}
	srcRepo, err := seqrepo.Load(srcRepoDat, srcRepoIdx)
	if err != nil {
		return err
	}
	srcCol, err := os.ReadFile(base + ".src.col")
	if err != nil {
		return err
	}
	if len(srcCol) != 4*len(rows) {
		return fmt.Errorf("%s.src.col has %d entries, %s.scr has %d rows", base, len(srcCol)/4, base, len(rows))
	}
	srcIDs := make([][]uint32, len(rows))
	for i := range rows {
		offset := binary.LittleEndian.Uint32(srcCol[i*4:])
		seq, err := srcRepo.Sequence(offset)
		if err != nil {
			return err
		}
		srcIDs[i] = seq
	}

	srcVocab, err := os.ReadFile(base + ".src.tdx")
	if err != nil {
		return err
	}
	trgVocab, err := os.ReadFile(base + ".trg.tdx")
	if err != nil {
		return err
	}
	trgRepoDat, err := os.ReadFile(base + ".trg.repos.dat")
	if err != nil {
		return err
	}
	trgRepoIdx, err := os.ReadFile(base + ".trg.repos.idx")
	if err != nil {
		return err
	}

	data := tppt.AssembleParts(srcIDs, sr, srcVocab, trgVocab, trgRepoDat, trgRepoIdx)
	log.Printf("textpt-assemble: assembled %d rows into %s.tppt", len(rows), base)
	return os.WriteFile(base+".tppt", data, 0o644)
}
