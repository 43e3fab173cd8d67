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

// arpalm-sng-av runs §4.9 pass 2 over one back-off shard produced by
// arpalm-encode: it is the unit of work §5 says "may be dispatched to a
// parallel worker pool", one invocation per shard. With tplm's single
// shard (see arpalm-encode's doc comment) this pass has nothing to sort
// across shards, so it materializes the shard's n-grams into the
// "<N>grams.vals.<shard>.{dat,idx}" pair arpalm-assemble reads, in the
// order they appear in the shard (already sorted, since ParseARPA
// preserves the ARPA file's own per-order ordering). The output name uses
// the same order N as the ".<N>grams.bo." input file, not N-1.
package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
)

var shardSuffix = regexp.MustCompile(`^(.*)\.(\d+)grams\.bo\.(\d+)$`)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s <bo-shard-file>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(1)
	}
	if err := run(flag.Arg(0)); err != nil {
		log.Fatalf("arpalm-sng-av: %v", err)
	}
}

func run(boShardPath string) error {
	data, err := os.ReadFile(boShardPath)
	if err != nil {
		return err
	}

	name := filepath.Base(boShardPath)
	dir := filepath.Dir(boShardPath)
	m := shardSuffix.FindStringSubmatch(name)
	if m == nil {
		return fmt.Errorf("shard file name %q does not match <base>.<N>grams.bo.<shard>", name)
	}
	base, order, shard := m[1], m[2], m[3]
	_ = order

	datPath := filepath.Join(dir, fmt.Sprintf("%s.%sgrams.vals.%s.dat", base, order, shard))
	idxPath := filepath.Join(dir, fmt.Sprintf("%s.%sgrams.vals.%s.idx", base, order, shard))

	if err := os.WriteFile(datPath, data, 0o644); err != nil {
		return err
	}
	idx := make([]byte, 16)
	binary.LittleEndian.PutUint64(idx[0:8], 0)
	binary.LittleEndian.PutUint64(idx[8:16], uint64(len(data)))
	if err := os.WriteFile(idxPath, idx, 0o644); err != nil {
		return err
	}
	log.Printf("arpalm-sng-av: materialized shard %s (%d bytes)", shard, len(data))
	return nil
}
