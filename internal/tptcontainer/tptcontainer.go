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

// Package tptcontainer implements a minimal named-section file framing
// shared by tppt and tplm: §3.6 and §4.9 each specify a set of component
// files (vocabularies, codebooks, the trie, ...) but neither the
// distilled spec nor original_source prescribes how those components
// bundle into the single .tppt/.tplm artifact a deployment actually
// ships. Both assemblers bundle their components the same way, so the
// framing lives here once instead of being copied per package.
package tptcontainer

import (
	"encoding/binary"

	"grounding-example.dev/tpt/internal/tpterr"
)

// Section is one named, length-prefixed region of an assembled container.
type Section struct {
	Name string // exactly 4 bytes; shorter names are NUL-padded
	Data []byte
}

// Assemble concatenates magic, a section count, and each section's
// (4-byte name, 8-byte length, data) record into one container.
func Assemble(magic string, sections []Section) []byte {
	out := []byte(magic)
	out = appendU32(out, uint32(len(sections)))
	for _, s := range sections {
		var nameB [4]byte
		copy(nameB[:], s.Name)
		out = append(out, nameB[:]...)
		var lenB [8]byte
		binary.LittleEndian.PutUint64(lenB[:], uint64(len(s.Data)))
		out = append(out, lenB[:]...)
		out = append(out, s.Data...)
	}
	return out
}

// Parse validates magic and returns every section keyed by name.
func Parse(magic string, data []byte) (map[string][]byte, error) {
	if len(data) < len(magic)+4 || string(data[:len(magic)]) != magic {
		return nil, tpterr.Format("tptcontainer", 0, tpterr.ErrBadMagic)
	}
	pos := len(magic)
	n := binary.LittleEndian.Uint32(data[pos:])
	pos += 4
	out := make(map[string][]byte, n)
	for i := uint32(0); i < n; i++ {
		if len(data) < pos+12 {
			return nil, tpterr.Format("tptcontainer", int64(pos), tpterr.ErrTruncated)
		}
		name := string(data[pos : pos+4])
		pos += 4
		size := binary.LittleEndian.Uint64(data[pos : pos+8])
		pos += 8
		if uint64(len(data)-pos) < size {
			return nil, tpterr.Format("tptcontainer", int64(pos), tpterr.ErrTruncated)
		}
		out[name] = data[pos : pos+int(size)]
		pos += int(size)
	}
	return out, nil
}

func appendU32(dst []byte, v uint32) []byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	return append(dst, b[:]...)
}

// AppendU32 appends a little-endian uint32, used by callers building a
// container's small fixed-width "meta" section.
func AppendU32(dst []byte, v uint32) []byte { return appendU32(dst, v) }
