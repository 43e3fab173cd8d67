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

package bitblock

import "grounding-example.dev/tpt/internal/tpterr"

// Tight-indexed pair (TIP, §3.1): two TUI-like values packed back to back,
// where the terminating byte of each value additionally carries a "role"
// bit identifying it as the first or second member of the pair. Forward
// decode never needs the role bit (each pair is always read as exactly two
// values); it exists so that a reader landing on an arbitrary byte offset
// inside a packed list of pairs (as in a binary search over the trie child
// index or the suffix array's sorted entries, §4.5/§4.7) can walk
// backwards to the nearest terminating byte and immediately know whether
// the value that follows it is a key or an offset, without having
// pre-scanned the whole entry.
//
// Each group uses 7 payload bits, exactly like a TUI group, except for the
// final group of a value: it gives up one more bit to the role flag,
// leaving 6 payload bits, 1 role bit, and the usual 1 stop bit (always
// set) in that last byte.
const (
	roleFirst  = 0
	roleSecond = 1
)

// AppendPair appends the TIP encoding of (first, second) to dst: first is
// tagged with the "first member" role, second with the "second member"
// role.
func AppendPair(dst []byte, first, second uint64) []byte {
	dst = appendTIPValue(dst, first, roleFirst)
	dst = appendTIPValue(dst, second, roleSecond)
	return dst
}

func appendTIPValue(dst []byte, v uint64, role byte) []byte {
	for v >= 1<<6 {
		dst = append(dst, byte(v&0x7f))
		v >>= 7
	}
	return append(dst, byte(v&0x3f)|role<<6|0x80)
}

// ReadTIPValue decodes a single TIP-tagged value starting at src[0], returning
// the value, its role (roleFirst/roleSecond), and the number of bytes
// consumed.
func ReadTIPValue(src []byte) (value uint64, role byte, n int, err error) {
	var shift uint
	for i, b := range src {
		if b&0x80 != 0 {
			value |= uint64(b&0x3f) << shift
			return value, (b >> 6) & 1, i + 1, nil
		}
		value |= uint64(b&0x7f) << shift
		shift += 7
	}
	return 0, 0, 0, tpterr.Format("tip", int64(len(src)), tpterr.ErrTruncated)
}

// ReadPair decodes a (first, second) TIP pair starting at src[0], returning
// both values and the total number of bytes consumed.
func ReadPair(src []byte) (first, second uint64, n int, err error) {
	first, _, n1, err := ReadTIPValue(src)
	if err != nil {
		return 0, 0, 0, err
	}
	second, _, n2, err := ReadTIPValue(src[n1:])
	if err != nil {
		return 0, 0, 0, err
	}
	return first, second, n1 + n2, nil
}

// ScanBackToStop walks backwards from byte offset pos (exclusive) in data
// until it finds the boundary between one packed (first, second) TIP pair
// and the next, or reaches start, and returns that boundary. This is the
// "walk back to the last stop-bit" routine used by the suffix array's and
// trie child index's midpoint-seeking binary search (§4.5/§4.7), which
// must land on a pair (entry) boundary even though both entries and their
// individual members are variable-width.
//
// A stop byte's role bit disambiguates which member it terminates: a
// roleSecond stop byte ends a pair, so the byte after it starts the next
// one; a roleFirst stop byte only ends a pair's first member, so the
// scan must keep walking back past it to find the pair's actual start.
func ScanBackToStop(data []byte, pos, start int) int {
	for i := pos - 1; i >= start; i-- {
		if data[i]&0x80 == 0 {
			continue
		}
		if (data[i]>>6)&1 == roleFirst {
			continue
		}
		return i + 1
	}
	return start
}
