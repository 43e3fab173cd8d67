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

// arpalm-encode runs §4.9 pass 1 over an ARPA language model: it validates
// the model parses, shards its back-off n-grams (one shard per this
// implementation, since tplm's in-process Build — see tplm.go's package
// doc comment — has no external-sort pressure to split further), and
// writes the "sng-av.jobs" manifest arpalm-sng-av/arpalm-assemble consume
// (§6.3's arpalm_encode).
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"grounding-example.dev/tpt/internal/arpajobs"
	"grounding-example.dev/tpt/internal/atomicfile"
	"grounding-example.dev/tpt/tplm"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s <arpa-file> <base-name> <unk-token>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 3 {
		flag.Usage()
		os.Exit(1)
	}
	if err := run(flag.Arg(0), flag.Arg(1), flag.Arg(2)); err != nil {
		log.Fatalf("arpalm-encode: %v", err)
	}
}

func run(arpaPath, base, unkToken string) error {
	arpaBytes, err := os.ReadFile(arpaPath)
	if err != nil {
		return err
	}
	f, err := os.Open(arpaPath)
	if err != nil {
		return err
	}
	m, err := tplm.ParseARPA(f)
	f.Close()
	if err != nil {
		return err
	}
	log.Printf("arpalm-encode: parsed %d-gram model (%d orders)", m.MaxOrder(), len(m.Orders))

	// A single shard carries the whole model: the sort-and-value pass in
	// arpalm-sng-av still runs per-shard, but with one shard there is
	// nothing to parallelize across, only to keep the file contract real.
	shardFile := fmt.Sprintf("%s.%dgrams.bo.0", base, m.MaxOrder())
	if err := atomicfile.Write(shardFile, arpaBytes, 0o644); err != nil {
		return err
	}

	if err := atomicfile.Write(base+".bowzero", []byte("0\n"), 0o644); err != nil {
		return err
	}

	manifest := arpajobs.Manifest{
		UnkToken: unkToken,
		MaxOrder: m.MaxOrder(),
		Jobs:     []arpajobs.Job{{Shard: 0, BoFile: shardFile}},
	}
	jobsBytes, err := manifest.Marshal()
	if err != nil {
		return err
	}
	return atomicfile.Write(base+".sng-av.jobs", jobsBytes, 0o644)
}
