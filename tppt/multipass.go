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

package tppt

import (
	"encoding/binary"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"grounding-example.dev/tpt/internal/alignlink"
	"grounding-example.dev/tpt/internal/bitblock"
	"grounding-example.dev/tpt/internal/codebook"
	"grounding-example.dev/tpt/internal/tpterr"
	"grounding-example.dev/tpt/internal/tptcontainer"
	"grounding-example.dev/tpt/internal/tpttrie"
	"grounding-example.dev/tpt/internal/valuetable"
	"grounding-example.dev/tpt/internal/varint"
)

// Config is the YAML-serialized companion to a standalone
// cmd/textpt-encode-scores run's ".scr"/".cbk"/".aln" triple: the row
// shape cmd/textpt-assemble needs to read them back, resolving §3.3's
// "Implementers MUST ... emit version 2 when any 4th-column scores, count
// fields, or alignment information are present" Open Question by
// recording the version alongside the column counts rather than forcing a
// second pass over the raw phrase table to rediscover it.
type Config struct {
	Version  int  `yaml:"version"`
	NumRows  int  `yaml:"num_rows"`
	NFloat   int  `yaml:"n_float"`
	NCount   int  `yaml:"n_count"`
	HasAlign bool `yaml:"has_align"`
	RefWidth int  `yaml:"ref_width"`
}

// MarshalToYAML renders cfg as the bytes of a ".config" file.
func (cfg Config) MarshalToYAML() ([]byte, error) {
	return yaml.Marshal(cfg)
}

// LoadConfig parses a ".config" file's bytes.
func LoadConfig(data []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ScoreInput is one row of §4.8 step 2's input: a candidate with its
// target phrase already resolved to a repository offset by a prior
// cmd/textpt-encode-phrases run (or an in-process EncodePhrases call),
// paired with its raw score/count/alignment values.
type ScoreInput struct {
	TrgOffset uint32
	Scores    []float32
	Counts    []uint32
	Alignment [][]int
}

// EncodeScoresResult is §4.8 step 2's output: the score/count/alignment
// codebooks built over the whole corpus, and each row's values resolved to
// codebook IDs — everything cmd/textpt-assemble needs to pack payloads
// without re-seeing a single raw float or count.
type EncodeScoresResult struct {
	NFloat   int
	NCount   int
	HasAlign bool
	RefWidth int

	floatBooks []codebook.Book
	floatVTs   []valuetable.Table[float32]
	countBook  codebook.Book
	countVT    valuetable.Table[uint32]
	alignBook  codebook.Book
	alignVT    valuetable.Table[uint64]

	// Rows holds, per input row, its trg offset alongside IDs pre-resolved
	// against the codebooks above; AssembleParts bit-packs these directly.
	// Exported (unlike the codebooks above) so cmd/textpt-encode-scores can
	// serialize it to a ".scr" file and cmd/textpt-assemble can read one
	// back via LoadScores.
	Rows []ScoredRow

	// CodebookFile is the serialized internal/codebook.File produced over
	// the whole corpus, ready to drop straight into a container's "cbk "
	// section.
	CodebookFile []byte
}

// ScoredRow is one phrase pair's codebook-ID-resolved score payload —
// the ".scr" file's per-row unit of cmd/textpt-encode-scores's output.
type ScoredRow struct {
	TrgOffset uint32
	ScoreIDs  []uint32
	CountIDs  []uint32
	AlignIDs  []uint32 // includes the trailing zero-ID terminator, if hasAlign
}

// EncodeScores runs §4.8 step 2 standalone: build one codebook per
// score/count column (and one for alignment links, if any row carries
// alignments) over the whole corpus, then resolve every row's raw values
// to codebook IDs. This is the same codebook-building logic Build uses
// internally, factored out so cmd/textpt-encode-scores can run it as its
// own pass over a file of already phrase-encoded rows, independent of
// cmd/textpt-assemble's trie-grouping and bit-packing pass.
func EncodeScores(inputs []ScoreInput) EncodeScoresResult {
	nFloat := 0
	nCount := 0
	hasAlign := false
	maxOffset := uint32(0)
	for _, in := range inputs {
		if len(in.Scores) > nFloat {
			nFloat = len(in.Scores)
		}
		if len(in.Counts) > nCount {
			nCount = len(in.Counts)
		}
		if in.Alignment != nil {
			hasAlign = true
		}
		if in.TrgOffset > maxOffset {
			maxOffset = in.TrgOffset
		}
	}

	res := EncodeScoresResult{
		NFloat:   nFloat,
		NCount:   nCount,
		HasAlign: hasAlign,
		RefWidth: valuetable.BitsNeeded(int(maxOffset) + 1),
	}

	// Each score column's codebook depends only on that column's own
	// values, so building them is embarrassingly parallel: one goroutine
	// per column (Build runs the same per-column loop sequentially).
	res.floatBooks = make([]codebook.Book, nFloat)
	res.floatVTs = make([]valuetable.Table[float32], nFloat)
	var g errgroup.Group
	for col := 0; col < nFloat; col++ {
		col := col
		g.Go(func() error {
			vals := make([]float32, 0, len(inputs))
			for _, in := range inputs {
				if col < len(in.Scores) {
					vals = append(vals, in.Scores[col])
				}
			}
			res.floatBooks[col], res.floatVTs[col] = valuetable.FloatBook(vals)
			return nil
		})
	}
	_ = g.Wait() // FloatBook never fails; g only buys the parallelism

	if nCount > 0 {
		vals := make([]uint32, 0, len(inputs)*nCount)
		for _, in := range inputs {
			vals = append(vals, in.Counts...)
		}
		res.countBook, res.countVT = valuetable.UintBook(vals)
	}

	if hasAlign {
		var raw []uint64
		for _, in := range inputs {
			raw = append(raw, alignlink.EncodeSets(in.Alignment)...)
			raw = append(raw, 0)
		}
		res.alignVT = valuetable.Build(raw)
		res.alignBook = codebook.Book{Kind: codebook.KindUint32, Schema: res.alignVT.Schema, UintValues: uint64sToU32(res.alignVT.Values)}
	}

	res.Rows = make([]ScoredRow, len(inputs))
	for i, in := range inputs {
		row := ScoredRow{TrgOffset: in.TrgOffset}
		row.ScoreIDs = make([]uint32, nFloat)
		for col := 0; col < nFloat; col++ {
			var v float32
			if col < len(in.Scores) {
				v = in.Scores[col]
			}
			row.ScoreIDs[col] = res.floatVTs[col].IDFor(v)
		}
		if nCount > 0 {
			row.CountIDs = make([]uint32, nCount)
			for col := 0; col < nCount; col++ {
				var v uint32
				if col < len(in.Counts) {
					v = in.Counts[col]
				}
				row.CountIDs[col] = res.countVT.IDFor(v)
			}
		}
		if hasAlign {
			links := alignlink.EncodeSets(in.Alignment)
			links = append(links, 0)
			row.AlignIDs = make([]uint32, len(links))
			for j, lv := range links {
				row.AlignIDs[j] = res.alignVT.IDFor(lv)
			}
		}
		res.Rows[i] = row
	}

	cbk := &codebook.File{Version: 1}
	cbk.Books = append(cbk.Books, res.floatBooks...)
	if nCount > 0 {
		cbk.Books = append(cbk.Books, res.countBook)
	}
	if hasAlign {
		cbk.Books = append(cbk.Books, res.alignBook)
	}
	if nCount > 0 || hasAlign {
		cbk.Version = 2
	}
	res.CodebookFile = appendViaWriter(nil, cbk)

	return res
}

// AssembleParts runs §4.8 step 3 standalone: group sr's already
// codebook-encoded rows by source-phrase trie position, bit-pack each
// node's candidate stream, and bundle the result with the given
// vocabulary/repository sections into a final .tppt container. srcIDs
// gives each row's source phrase as a token-ID sequence in the source
// vocabulary's final (frequency-remapped) ID space, in the same row order
// as sr.Rows — matching cmd/textpt-assemble's job of joining
// cmd/textpt-encode-phrases' source-side output against
// cmd/textpt-encode-scores' output by row index.
func AssembleParts(srcIDs [][]uint32, sr EncodeScoresResult, srcVocab, trgVocab, repoDat, repoIdx []byte) []byte {
	root := tpttrie.NewBuildNode()
	type nodeCands struct {
		node  *tpttrie.BuildNode
		order []int
	}
	byNode := make(map[*tpttrie.BuildNode]*nodeCands)
	var order []*tpttrie.BuildNode
	for i, ids := range srcIDs {
		n := root
		for _, tok := range ids {
			n = n.Child(tok)
		}
		nc, ok := byNode[n]
		if !ok {
			nc = &nodeCands{node: n}
			byNode[n] = nc
			order = append(order, n)
		}
		nc.order = append(nc.order, i)
	}

	for _, n := range order {
		nc := byNode[n]
		var bitstream []byte
		boff := 0
		for _, idx := range nc.order {
			row := sr.Rows[idx]
			boff = bitblock.WriteValue(&bitstream, boff, uint64(row.TrgOffset), bitblock.Schema{sr.RefWidth})
			for col := 0; col < sr.NFloat; col++ {
				boff = bitblock.WriteValue(&bitstream, boff, uint64(row.ScoreIDs[col]), sr.floatBooks[col].Schema)
			}
			for col := 0; col < sr.NCount; col++ {
				boff = bitblock.WriteValue(&bitstream, boff, uint64(row.CountIDs[col]), sr.countBook.Schema)
			}
			if sr.HasAlign {
				for _, id := range row.AlignIDs {
					boff = bitblock.WriteValue(&bitstream, boff, uint64(id), sr.alignBook.Schema)
				}
			}
		}
		payload := varint.AppendTUI(nil, uint64(len(nc.order)))
		payload = append(payload, bitstream...)
		n.Payload = payload
	}

	trieBytes := tpttrie.Assemble(root, tpttrie.Header{})

	meta := make([]byte, 0, 16)
	meta = tptcontainer.AppendU32(meta, uint32(sr.NFloat))
	meta = tptcontainer.AppendU32(meta, uint32(sr.NCount))
	if sr.HasAlign {
		meta = append(meta, 1)
	} else {
		meta = append(meta, 0)
	}
	meta = tptcontainer.AppendU32(meta, uint32(sr.RefWidth))

	return tptcontainer.Assemble(containerMagic, []tptcontainer.Section{
		{Name: "meta", Data: meta},
		{Name: "srcv", Data: srcVocab},
		{Name: "trgv", Data: trgVocab},
		{Name: "rdat", Data: repoDat},
		{Name: "ridx", Data: repoIdx},
		{Name: "cbk ", Data: sr.CodebookFile},
		{Name: "trie", Data: trieBytes},
	})
}

// LoadScores reconstructs an EncodeScoresResult from a previously
// serialized codebook file and rows — the inverse of EncodeScores' output,
// letting cmd/textpt-assemble rebuild sr from the ".cbk"/".scr"/".aln"/
// ".config" files cmd/textpt-encode-scores wrote, without re-deriving any
// codebook from raw scores.
func LoadScores(cbkData []byte, nFloat, nCount int, hasAlign bool, refWidth int, rows []ScoredRow) (EncodeScoresResult, error) {
	cbk, err := codebook.Load(cbkData)
	if err != nil {
		return EncodeScoresResult{}, err
	}
	res := EncodeScoresResult{
		NFloat: nFloat, NCount: nCount, HasAlign: hasAlign, RefWidth: refWidth,
		CodebookFile: cbkData, Rows: rows,
	}
	i := 0
	res.floatBooks = cbk.Books[i : i+nFloat]
	i += nFloat
	if nCount > 0 {
		res.countBook = cbk.Books[i]
		i++
	}
	if hasAlign {
		res.alignBook = cbk.Books[i]
		i++
	}
	return res, nil
}

// EncodeScr serializes rows' trg offsets, score IDs, and count IDs (every
// row's fixed-width fields) into the ".scr" file cmd/textpt-encode-scores
// writes: a flat sequence of little-endian u32s, nFloat+nCount+1 per row.
func EncodeScr(rows []ScoredRow, nFloat, nCount int) []byte {
	out := make([]byte, 0, len(rows)*4*(1+nFloat+nCount))
	var buf [4]byte
	putU32 := func(v uint32) {
		binary.LittleEndian.PutUint32(buf[:], v)
		out = append(out, buf[:]...)
	}
	for _, row := range rows {
		putU32(row.TrgOffset)
		for _, id := range row.ScoreIDs {
			putU32(id)
		}
		for _, id := range row.CountIDs {
			putU32(id)
		}
	}
	return out
}

// DecodeScr is EncodeScr's inverse, returning one ScoredRow per row (with
// AlignIDs left nil — DecodeAln fills that in separately).
func DecodeScr(data []byte, nFloat, nCount int) ([]ScoredRow, error) {
	stride := 4 * (1 + nFloat + nCount)
	if stride == 0 || len(data)%stride != 0 {
		return nil, tpterr.Format("tppt", 0, tpterr.ErrTruncated)
	}
	rows := make([]ScoredRow, len(data)/stride)
	off := 0
	for i := range rows {
		rows[i].TrgOffset = binary.LittleEndian.Uint32(data[off:])
		off += 4
		rows[i].ScoreIDs = make([]uint32, nFloat)
		for c := 0; c < nFloat; c++ {
			rows[i].ScoreIDs[c] = binary.LittleEndian.Uint32(data[off:])
			off += 4
		}
		rows[i].CountIDs = make([]uint32, nCount)
		for c := 0; c < nCount; c++ {
			rows[i].CountIDs[c] = binary.LittleEndian.Uint32(data[off:])
			off += 4
		}
	}
	return rows, nil
}

// EncodeAln serializes rows' variable-length alignment-ID lists (including
// each row's trailing zero-ID terminator) into the ".aln" file: per row, a
// u32 count followed by that many little-endian u32 IDs.
func EncodeAln(rows []ScoredRow) []byte {
	var out []byte
	var buf [4]byte
	putU32 := func(v uint32) {
		binary.LittleEndian.PutUint32(buf[:], v)
		out = append(out, buf[:]...)
	}
	for _, row := range rows {
		putU32(uint32(len(row.AlignIDs)))
		for _, id := range row.AlignIDs {
			putU32(id)
		}
	}
	return out
}

// DecodeAln is EncodeAln's inverse, returning one row's AlignIDs slice per
// entry found in data.
func DecodeAln(data []byte) ([][]uint32, error) {
	var out [][]uint32
	off := 0
	for off < len(data) {
		if off+4 > len(data) {
			return nil, tpterr.Format("tppt", int64(off), tpterr.ErrTruncated)
		}
		n := int(binary.LittleEndian.Uint32(data[off:]))
		off += 4
		if off+4*n > len(data) {
			return nil, tpterr.Format("tppt", int64(off), tpterr.ErrTruncated)
		}
		ids := make([]uint32, n)
		for i := range ids {
			ids[i] = binary.LittleEndian.Uint32(data[off:])
			off += 4
		}
		out = append(out, ids)
	}
	return out, nil
}
