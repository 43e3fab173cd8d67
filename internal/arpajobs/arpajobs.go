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

// Package arpajobs defines the "sng-av.jobs" manifest §6.3's arpalm_encode
// writes and arpalm_sng_av/arpalm_assemble consume: one independent
// per-shard sort-and-value job (§4.9 pass 2, §5's note that these jobs
// "may be dispatched to a parallel worker pool"), plus the unknown-token
// name arpalm_assemble needs but whose own positional arguments (per
// §6.3's table) don't carry.
package arpajobs

import "gopkg.in/yaml.v3"

// Job describes one shard's back-off-weight file awaiting
// arpalm_sng_av's sort-and-materialize pass.
type Job struct {
	Shard  int    `yaml:"shard"`
	BoFile string `yaml:"bo_file"`
}

// Manifest is the full "sng-av.jobs" document.
type Manifest struct {
	UnkToken string `yaml:"unk_token"`
	MaxOrder int    `yaml:"max_order"`
	Jobs     []Job  `yaml:"jobs"`
}

// Marshal renders m as the bytes of a "sng-av.jobs" file.
func (m Manifest) Marshal() ([]byte, error) {
	return yaml.Marshal(m)
}

// Load parses a "sng-av.jobs" file's bytes.
func Load(data []byte) (Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Manifest{}, err
	}
	return m, nil
}
