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

// Package tpa implements the tightly packed alignment file of §3.8/§4.10/
// §6.2: a magic-framed, line-indexed store giving O(1) random access to a
// per-sentence word alignment, built once from a green-format stream
// (greenalign) and read back through a memory mapping (internal/mmio).
package tpa

import (
	"encoding/binary"
	"io"

	"grounding-example.dev/tpt/internal/alignlink"
	"grounding-example.dev/tpt/internal/tpterr"
	"grounding-example.dev/tpt/internal/varint"
)

// Magic, MiddleMarker and FinalMarker are the §6.2 framing strings, each
// written as literal ASCII with no trailing null.
const (
	Magic        = "Portage tightly packed alignment track v1.0"
	MiddleMarker = ": end of data, beginning of index"
	FinalMarker  = ": end of index and file."
)

const paramBlockSize = 4 + 8 + 8 // line_count: u32, index_start: i64, index_end: i64

// Writer streams green-format sentences into the §3.8 tightly packed
// layout. It requires a WriteSeeker because the parameter block is written
// as a placeholder up front and patched in place once the final line count
// and index extent are known (§4.10), mirroring the original writer's
// seekp-back-to-the-header step.
type Writer struct {
	w           io.WriteSeeker
	pos         int64
	paramOffset int64
	index       []int64
	lineCount   uint32
	closed      bool
}

// NewWriter writes the magic header and a placeholder parameter block, and
// returns a Writer ready to accept lines via PutLine.
func NewWriter(w io.WriteSeeker) (*Writer, error) {
	tw := &Writer{w: w}
	if err := tw.writeString(Magic); err != nil {
		return nil, err
	}
	tw.paramOffset = tw.pos
	if err := tw.writeParamBlock(0, 0, 0); err != nil {
		return nil, err
	}
	tw.index = append(tw.index, tw.pos)
	return tw, nil
}

func (tw *Writer) writeString(s string) error {
	n, err := io.WriteString(tw.w, s)
	tw.pos += int64(n)
	if err != nil {
		return tpterr.IO("tpa.Writer", err)
	}
	return nil
}

func (tw *Writer) writeParamBlock(lineCount uint32, indexStart, indexEnd int64) error {
	var buf [paramBlockSize]byte
	binary.LittleEndian.PutUint32(buf[0:4], lineCount)
	binary.LittleEndian.PutUint64(buf[4:12], uint64(indexStart))
	binary.LittleEndian.PutUint64(buf[12:20], uint64(indexEnd))
	n, err := tw.w.Write(buf[:])
	tw.pos += int64(n)
	if err != nil {
		return tpterr.IO("tpa.Writer", err)
	}
	return nil
}

// PutLine packs one sentence's alignment sets (as parsed by greenalign) and
// appends it to the data block, recording its end offset in the index.
func (tw *Writer) PutLine(sets [][]int) error {
	links := alignlink.EncodeSets(sets)
	var buf []byte
	for _, v := range links {
		buf = varint.AppendTUI(buf, v)
	}
	n, err := tw.w.Write(buf)
	tw.pos += int64(n)
	if err != nil {
		return tpterr.IO("tpa.Writer", err)
	}
	tw.lineCount++
	tw.index = append(tw.index, tw.pos)
	return nil
}

// Close writes the middle marker, the line index, the final marker, then
// seeks back and stamps the parameter block with the real line count and
// index extent (§4.10, §6.2).
func (tw *Writer) Close() error {
	if tw.closed {
		return nil
	}
	tw.closed = true

	if err := tw.writeString(Magic + MiddleMarker); err != nil {
		return err
	}
	indexStart := tw.pos
	for _, off := range tw.index {
		var b8 [8]byte
		binary.LittleEndian.PutUint64(b8[:], uint64(off))
		n, err := tw.w.Write(b8[:])
		tw.pos += int64(n)
		if err != nil {
			return tpterr.IO("tpa.Writer", err)
		}
	}
	indexEnd := tw.pos
	if err := tw.writeString(Magic + FinalMarker); err != nil {
		return err
	}

	if _, err := tw.w.Seek(tw.paramOffset, io.SeekStart); err != nil {
		return tpterr.IO("tpa.Writer", err)
	}
	return tw.writeParamBlock(tw.lineCount, indexStart, indexEnd)
}

// File is a loaded, read-only tightly packed alignment file, typically
// backed by a memory mapping.
type File struct {
	data       []byte
	lineCount  uint32
	indexStart int64
	indexEnd   int64
}

// Load parses and validates the §6.2 framing of a .tpa file already read or
// mapped into data.
func Load(data []byte) (*File, error) {
	if len(data) < len(Magic)+paramBlockSize {
		return nil, tpterr.Format("tpa", 0, tpterr.ErrTruncated)
	}
	if string(data[:len(Magic)]) != Magic {
		return nil, tpterr.Format("tpa", 0, tpterr.ErrBadMagic)
	}
	pos := len(Magic)
	lineCount := binary.LittleEndian.Uint32(data[pos : pos+4])
	indexStart := int64(binary.LittleEndian.Uint64(data[pos+4 : pos+12]))
	indexEnd := int64(binary.LittleEndian.Uint64(data[pos+12 : pos+20]))

	if int64(lineCount+1)*8+indexStart != indexEnd {
		return nil, tpterr.Formatf("tpa", indexStart,
			"index start (%d) + count ((%d+1)*8) != index end (%d)", indexStart, lineCount, indexEnd)
	}
	trailer := Magic + FinalMarker
	if int64(len(data)) != indexEnd+int64(len(trailer)) {
		return nil, tpterr.Formatf("tpa", int64(len(data)), "wrong file size: want trailer at %d", indexEnd)
	}
	if string(data[indexEnd:]) != trailer {
		return nil, tpterr.Format("tpa", indexEnd, tpterr.ErrBadMagic)
	}
	midMarker := Magic + MiddleMarker
	if indexStart < int64(len(midMarker)) || string(data[indexStart-int64(len(midMarker)):indexStart]) != midMarker {
		return nil, tpterr.Format("tpa", indexStart, tpterr.ErrBadMagic)
	}
	firstLine := int64(binary.LittleEndian.Uint64(data[indexStart : indexStart+8]))
	if firstLine != int64(pos+paramBlockSize) {
		return nil, tpterr.Formatf("tpa", indexStart, "first line index entry (%d) is not where expected (%d)", firstLine, pos+paramBlockSize)
	}

	return &File{data: data, lineCount: lineCount, indexStart: indexStart, indexEnd: indexEnd}, nil
}

// Size returns the number of sentences stored (§8: "size() = line_count").
func (f *File) Size() int { return int(f.lineCount) }

func (f *File) lineOffset(i uint32) int64 {
	base := f.indexStart + int64(i)*8
	return int64(binary.LittleEndian.Uint64(f.data[base : base+8]))
}

// Get returns the alignment sets for line i, and whether i was in range.
func (f *File) Get(i int) ([][]int, bool) {
	if i < 0 || uint32(i) >= f.lineCount {
		return nil, false
	}
	lo := f.lineOffset(uint32(i))
	hi := f.lineOffset(uint32(i) + 1)
	if hi == lo {
		return [][]int{}, true
	}

	var links []uint64
	pos := lo
	for pos < hi {
		v, n, err := varint.ReadTUI(f.data[pos:hi])
		if err != nil {
			return nil, false
		}
		links = append(links, v)
		pos += int64(n)
	}
	return alignlink.DecodeSets(links), true
}
