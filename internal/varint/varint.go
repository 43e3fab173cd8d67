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

// Package varint implements the "tight unsigned integer" (TUI) encoding of
// §3.1/§4.1: 7-bit little-endian groups, with the final group's high bit
// set as a terminator. This is deliberately the mirror image of Protobuf's
// base-128 varint (which sets the high bit to mean "continue"): here the
// high bit means "stop", so the very first byte of a single-byte value
// already carries its own terminator and a reader never needs to look
// ahead to know whether a value was truncated mid-group.
package varint

import "grounding-example.dev/tpt/internal/tpterr"

// MaxLen64 is the maximum number of bytes produced by AppendTUI for any
// uint64 value.
const MaxLen64 = 10

// AppendTUI appends the TUI encoding of v to dst and returns the extended
// slice. This is the single encoding used for 16-, 32-, and 64-bit target
// types alike (§3.1): width is a property of the call site, not the wire
// encoding.
func AppendTUI(dst []byte, v uint64) []byte {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v == 0 {
			return append(dst, b|0x80)
		}
		dst = append(dst, b)
	}
}

// SizeTUI returns the number of bytes AppendTUI would produce for v,
// without allocating.
func SizeTUI(v uint64) int {
	n := 1
	for v >>= 7; v != 0; v >>= 7 {
		n++
	}
	return n
}

// ReadTUI decodes a TUI value starting at src[0], returning the value and
// the number of bytes consumed. It returns an error wrapping
// tpterr.ErrTruncated if src is exhausted before a terminator byte (one
// with its high bit set) is found.
func ReadTUI(src []byte) (value uint64, n int, err error) {
	var shift uint
	for i, b := range src {
		if shift >= 64 {
			return 0, 0, tpterr.Format("varint", int64(i), tpterr.ErrUnsupportedValue)
		}
		value |= uint64(b&0x7f) << shift
		shift += 7
		if b&0x80 != 0 {
			return value, i + 1, nil
		}
	}
	return 0, 0, tpterr.Format("varint", int64(len(src)), tpterr.ErrTruncated)
}

// Writer is a minimal append-only sink, satisfied by *bytes.Buffer. The
// arena-backed builders in internal/seqrepo and internal/tpttrie do not
// use it; they encode with AppendTUI.
type Writer interface {
	Write(p []byte) (int, error)
}

// WriteTUI writes the TUI encoding of v to w and returns the number of
// bytes written, matching write_tui(sink, v) -> bytes_written from §4.1.
func WriteTUI(w Writer, v uint64) (int, error) {
	var buf [MaxLen64]byte
	enc := AppendTUI(buf[:0], v)
	return w.Write(enc)
}
