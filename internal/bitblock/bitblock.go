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

// Package bitblock implements the bit-block value (BBV) codec of §3.1/§4.2:
// a configurable sequence of fixed bit-width blocks, each optionally
// followed by a stop bit, used by every codebook-backed payload (TPPT
// candidate scores, TPLM probability/back-off IDs, TPA alignment links).
//
// Bits are packed least-significant-bit first within each byte, matching
// the "little-end-first" block order called out in §3.1 and the bit
// window conventions used elsewhere in this kind of codec (compare
// deepteams/webp's VP8L bit reader, which likewise treats a byte's bit 0
// as the first bit of the stream).
package bitblock

import (
	"math/bits"

	"grounding-example.dev/tpt/internal/tpterr"
)

// Schema is an ordered list of block bit-widths, e.g. [3, 5, 4] from the
// worked example in §8 scenario 3.
type Schema []int

// TotalBits returns the sum of all block widths in the schema.
func (s Schema) TotalBits() int {
	total := 0
	for _, w := range s {
		total += w
	}
	return total
}

// bitsNeeded returns the number of bits required to represent v, treating 0
// as needing 1 bit so that it always occupies at least the schema's first
// block.
func bitsNeeded(v uint64) int {
	if v == 0 {
		return 1
	}
	return bits.Len64(v)
}

// writeBits appends the low `width` bits of val (width <= 57) to buf
// starting at bit offset nbits, LSB-first, and returns the new bit offset.
func writeBits(buf *[]byte, nbits int, val uint64, width int) int {
	for width > 0 {
		byteIdx := nbits / 8
		bitIdx := uint(nbits % 8)
		for byteIdx >= len(*buf) {
			*buf = append(*buf, 0)
		}
		room := 8 - int(bitIdx)
		n := min(room, width)
		mask := uint64(1)<<uint(n) - 1
		(*buf)[byteIdx] |= byte((val&mask)<<bitIdx) & 0xff
		val >>= uint(n)
		width -= n
		nbits += n
	}
	return nbits
}

// readBits reads `width` bits starting at bit offset bitOff, LSB-first.
func readBits(data []byte, bitOff, width int) (val uint64, newOff int) {
	var shift uint
	for width > 0 {
		byteIdx := bitOff / 8
		bitIdx := uint(bitOff % 8)
		var b byte
		if byteIdx < len(data) {
			b = data[byteIdx]
		}
		room := 8 - int(bitIdx)
		n := min(room, width)
		mask := uint64(1)<<uint(n) - 1
		val |= ((uint64(b) >> bitIdx) & mask) << shift
		shift += uint(n)
		width -= n
		bitOff += n
	}
	return val, bitOff
}

// WriteValue writes v into *buf at bit offset nbits using the smallest
// schema prefix whose total width covers v (§4.2 steps 1-4), and returns
// the new bit offset. *buf is grown as needed.
func WriteValue(buf *[]byte, nbits int, v uint64, schema Schema) int {
	need := bitsNeeded(v)
	m := 1
	total := schema[0]
	for total < need && m < len(schema) {
		total += schema[m]
		m++
	}

	rem := v
	for i := 0; i < m; i++ {
		width := schema[i]
		mask := uint64(1)<<uint(width) - 1
		group := rem & mask
		rem >>= uint(width)
		nbits = writeBits(buf, nbits, group, width)

		switch {
		case i < m-1:
			nbits = writeBits(buf, nbits, 1, 1) // continue
		case m < len(schema):
			nbits = writeBits(buf, nbits, 0, 1) // terminator
		}
	}
	return nbits
}

// ReadValue is the inverse of WriteValue: it reads a value encoded against
// schema starting at bit offset bitOff and returns the value and the bit
// offset immediately past it.
func ReadValue(data []byte, bitOff int, schema Schema) (value uint64, newOff int) {
	var shift uint
	for i, width := range schema {
		var group uint64
		group, bitOff = readBits(data, bitOff, width)
		value |= group << shift
		shift += uint(width)

		if i == len(schema)-1 {
			break
		}
		var flag uint64
		flag, bitOff = readBits(data, bitOff, 1)
		if flag == 0 {
			break
		}
	}
	return value, bitOff
}

// ByteLen returns the number of bytes needed to hold nbits bits.
func ByteLen(nbits int) int {
	return (nbits + 7) / 8
}

// ValidateSchema checks that a codebook's declared schema covers its
// num_values, per the §3.3 contract ("blocks[c] covers at least
// ceil(log2(num_values[c])) bits across its schema").
func ValidateSchema(schema Schema, numValues uint32) error {
	if len(schema) == 0 {
		return tpterr.Format("codebook", -1, tpterr.ErrEmptyCodebook)
	}
	need := 1
	if numValues > 1 {
		need = bitsNeeded(uint64(numValues - 1))
	}
	if schema.TotalBits() < need {
		return tpterr.Formatf("codebook", -1,
			"schema covers %d bits but num_values=%d needs %d", schema.TotalBits(), numValues, need)
	}
	return nil
}
