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

package codebook

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"grounding-example.dev/tpt/internal/bitblock"
	"grounding-example.dev/tpt/internal/tpterr"
)

// Kind identifies a book's stored primitive type.
type Kind int

const (
	KindFloat Kind = iota
	KindUint32
)

var kindTags = map[Kind][8]byte{
	KindFloat:  [8]byte{'f', 'l', 'o', 'a', 't', ' ', ' ', ' '},
	KindUint32: [8]byte{'u', 'i', 'n', 't', '3', '2', '_', 't'},
}

func kindFromTag(tag [8]byte) (Kind, error) {
	for k, t := range kindTags {
		if t == tag {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown codebook type tag %q", tag[:])
}

// Book is a single column's codebook: a bit-block schema for its compact
// IDs, and the table of primitive values those IDs index into (§3.3).
type Book struct {
	Kind        Kind
	Schema      bitblock.Schema
	FloatValues []float32
	UintValues  []uint32
}

// NumValues returns the number of entries in this book's value table.
func (b *Book) NumValues() int {
	if b.Kind == KindFloat {
		return len(b.FloatValues)
	}
	return len(b.UintValues)
}

// DecodeFloat returns the float32 value for id. Panics if Kind is not
// KindFloat; callers are expected to know a book's kind from its config.
func (b *Book) DecodeFloat(id uint32) float32 {
	return b.FloatValues[id]
}

// DecodeUint32 returns the uint32 value for id.
func (b *Book) DecodeUint32(id uint32) uint32 {
	return b.UintValues[id]
}

// Validate checks the §3.3 contract that every ID appearing in a stream
// for this column must be strictly less than NumValues, and that the
// schema covers the value table.
func (b *Book) Validate() error {
	return bitblock.ValidateSchema(b.Schema, uint32(b.NumValues()))
}

// File is the full sequence of per-column codebooks (§3.3). Version 1 has
// no type tags (every book is implicitly float) and no leading magic;
// version 2 prefixes a zero word and a magic string, then a real
// num_books, and gives every book an explicit type tag. Implementations
// must accept both; this module always emits v2 when any count or
// alignment book is present, per §3.3.
type File struct {
	Version int
	Books   []Book
}

const v2Magic = "TPT_CBK2"

// WriteTo serializes the codebook file, matching the v1/v2 layouts of
// §3.3. All multi-byte fields are little-endian (§9).
func (f *File) WriteTo(w io.Writer) (int64, error) {
	var written int64
	writeU32 := func(v uint32) error {
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], v)
		n, err := w.Write(b[:])
		written += int64(n)
		return err
	}

	if f.Version >= 2 {
		if err := writeU32(0); err != nil {
			return written, err
		}
		n, err := w.Write([]byte(v2Magic))
		written += int64(n)
		if err != nil {
			return written, err
		}
	}
	if err := writeU32(uint32(len(f.Books))); err != nil {
		return written, err
	}

	for _, book := range f.Books {
		if f.Version >= 2 {
			tag := kindTags[book.Kind]
			n, err := w.Write(tag[:])
			written += int64(n)
			if err != nil {
				return written, err
			}
		}
		if err := writeU32(uint32(book.NumValues())); err != nil {
			return written, err
		}
		if err := writeU32(uint32(len(book.Schema))); err != nil {
			return written, err
		}
		for _, blk := range book.Schema {
			if err := writeU32(uint32(blk)); err != nil {
				return written, err
			}
		}
		if book.Kind == KindFloat {
			for _, v := range book.FloatValues {
				if err := writeU32(math.Float32bits(v)); err != nil {
					return written, err
				}
			}
		} else {
			for _, v := range book.UintValues {
				if err := writeU32(v); err != nil {
					return written, err
				}
			}
		}
	}
	return written, nil
}

// Load parses a codebook file from data, auto-detecting v1 vs v2 by
// probing for the magic string immediately following a leading zero word
// (§3.3).
func Load(data []byte) (*File, error) {
	if len(data) < 4 {
		return nil, tpterr.Format("codebook", 0, tpterr.ErrTruncated)
	}
	pos := 0
	first := binary.LittleEndian.Uint32(data[pos:])
	f := &File{Version: 1}
	pos += 4

	if first == 0 && len(data) >= pos+len(v2Magic) && string(data[pos:pos+len(v2Magic)]) == v2Magic {
		f.Version = 2
		pos += len(v2Magic)
		if len(data) < pos+4 {
			return nil, tpterr.Format("codebook", int64(pos), tpterr.ErrTruncated)
		}
		first = binary.LittleEndian.Uint32(data[pos:])
		pos += 4
	}

	numBooks := int(first)
	f.Books = make([]Book, numBooks)
	for i := 0; i < numBooks; i++ {
		book := &f.Books[i]
		book.Kind = KindFloat
		if f.Version >= 2 {
			if len(data) < pos+8 {
				return nil, tpterr.Format("codebook", int64(pos), tpterr.ErrTruncated)
			}
			var tag [8]byte
			copy(tag[:], data[pos:pos+8])
			pos += 8
			kind, err := kindFromTag(tag)
			if err != nil {
				return nil, tpterr.Format("codebook", int64(pos-8), err)
			}
			book.Kind = kind
		}

		if len(data) < pos+8 {
			return nil, tpterr.Format("codebook", int64(pos), tpterr.ErrTruncated)
		}
		numValues := binary.LittleEndian.Uint32(data[pos:])
		pos += 4
		numBlocks := binary.LittleEndian.Uint32(data[pos:])
		pos += 4

		schema := make(bitblock.Schema, numBlocks)
		for b := range schema {
			if len(data) < pos+4 {
				return nil, tpterr.Format("codebook", int64(pos), tpterr.ErrTruncated)
			}
			schema[b] = int(binary.LittleEndian.Uint32(data[pos:]))
			pos += 4
		}
		book.Schema = schema

		if len(data) < pos+4*int(numValues) {
			return nil, tpterr.Format("codebook", int64(pos), tpterr.ErrTruncated)
		}
		if book.Kind == KindFloat {
			book.FloatValues = make([]float32, numValues)
			for v := range book.FloatValues {
				book.FloatValues[v] = math.Float32frombits(binary.LittleEndian.Uint32(data[pos:]))
				pos += 4
			}
		} else {
			book.UintValues = make([]uint32, numValues)
			for v := range book.UintValues {
				book.UintValues[v] = binary.LittleEndian.Uint32(data[pos:])
				pos += 4
			}
		}
		if err := book.Validate(); err != nil {
			return nil, err
		}
	}
	return f, nil
}
