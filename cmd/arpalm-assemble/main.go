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

// arpalm-assemble runs §4.9 pass 3: it reads the "sng-av.jobs" manifest
// arpalm-encode wrote, gathers every shard's materialized n-grams from
// arpalm-sng-av's output, and re-runs tplm.Build over the reassembled
// model to write <base-name>.tplm (§6.3's arpalm_assemble).
package main

import (
	"bytes"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strconv"

	"grounding-example.dev/tpt/internal/arpajobs"
	"grounding-example.dev/tpt/tplm"
)

var shardSuffix = regexp.MustCompile(`^(.*)\.(\d+)grams\.bo\.(\d+)$`)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s <lm-order> <base-name>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 2 {
		flag.Usage()
		os.Exit(1)
	}
	order, err := strconv.Atoi(flag.Arg(0))
	if err != nil {
		log.Fatalf("arpalm-assemble: bad lm-order %q: %v", flag.Arg(0), err)
	}
	if err := run(order, flag.Arg(1)); err != nil {
		log.Fatalf("arpalm-assemble: %v", err)
	}
}

func run(order int, base string) error {
	jobsBytes, err := os.ReadFile(base + ".sng-av.jobs")
	if err != nil {
		return err
	}
	manifest, err := arpajobs.Load(jobsBytes)
	if err != nil {
		return err
	}
	if manifest.MaxOrder != order {
		return fmt.Errorf("manifest records order %d, got %d", manifest.MaxOrder, order)
	}

	var arpaText bytes.Buffer
	for _, job := range manifest.Jobs {
		name := filepath.Base(job.BoFile)
		dir := filepath.Dir(job.BoFile)
		m := shardSuffix.FindStringSubmatch(name)
		if m == nil {
			return fmt.Errorf("job bo_file %q does not match <base>.<N>grams.bo.<shard>", job.BoFile)
		}
		jbase, jorder, jshard := m[1], m[2], m[3]
		valsPath := filepath.Join(dir, fmt.Sprintf("%s.%sgrams.vals.%s.dat", jbase, jorder, jshard))
		data, err := os.ReadFile(valsPath)
		if err != nil {
			return err
		}
		arpaText.Write(data)
	}

	m, err := tplm.ParseARPA(&arpaText)
	if err != nil {
		return err
	}
	if m.MaxOrder() != order {
		return fmt.Errorf("reassembled model has order %d, expected %d", m.MaxOrder(), order)
	}

	data := tplm.Build(m, manifest.UnkToken)
	log.Printf("arpalm-assemble: built %s.tplm (%d bytes) from %d shard(s)", base, len(data), len(manifest.Jobs))
	return os.WriteFile(base+".tplm", data, 0o644)
}
