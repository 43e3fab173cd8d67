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

// textpt-encode-phrases runs §4.8 step 1 over a text phrase table for one
// side, writing <base>.<side>.tdx, <base>.<side>.repos.{idx,dat}, and
// <base>.<side>.col (§6.3's textpt_encode_phrases).
package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	"log"
	"os"

	"grounding-example.dev/tpt/internal/texttable"
	"grounding-example.dev/tpt/tppt"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s <phrase-table> <column:1|2> <base-name>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 3 {
		flag.Usage()
		os.Exit(1)
	}
	if err := run(flag.Arg(0), flag.Arg(1), flag.Arg(2)); err != nil {
		log.Fatalf("textpt-encode-phrases: %v", err)
	}
}

func run(tablePath, columnArg, base string) error {
	var column int
	if _, err := fmt.Sscanf(columnArg, "%d", &column); err != nil || (column != 1 && column != 2) {
		return fmt.Errorf("column must be 1 (source) or 2 (target), got %q", columnArg)
	}
	side := "src"
	if column == 2 {
		side = "trg"
	}

	f, err := os.Open(tablePath)
	if err != nil {
		return err
	}
	defer f.Close()
	rows, err := texttable.ReadAll(f)
	if err != nil {
		return err
	}

	strs := make([][]string, len(rows))
	for i, r := range rows {
		if column == 1 {
			strs[i] = r.Src
		} else {
			strs[i] = r.Trg
		}
	}

	res := tppt.EncodePhrases(strs)
	log.Printf("textpt-encode-phrases: encoded %d phrases (%s side, %d vocabulary tokens)", len(strs), side, res.Vocab.Len())

	if err := os.WriteFile(base+"."+side+".tdx", res.Vocab.Encode(uint32(res.Vocab.Len())), 0o644); err != nil {
		return err
	}
	if err := os.WriteFile(base+"."+side+".repos.dat", res.RepoDat, 0o644); err != nil {
		return err
	}
	if err := os.WriteFile(base+"."+side+".repos.idx", res.RepoIdx, 0o644); err != nil {
		return err
	}

	col := make([]byte, 4*len(res.Col))
	for i, v := range res.Col {
		binary.LittleEndian.PutUint32(col[i*4:], v)
	}
	return os.WriteFile(base+"."+side+".col", col, 0o644)
}
