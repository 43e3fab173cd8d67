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

// Package sufarray implements the token-sequence array of §3.9/§4.7: the
// corpus track (all sentences' token IDs concatenated, with a
// sentence-boundary index) and the suffix array built over it (sorted
// (sid, offset) suffix entries grouped by first-token ID, with
// lower/upper-bound binary search and a tree-iterator DFS walk).
package sufarray

import (
	"encoding/binary"

	"grounding-example.dev/tpt/internal/tpterr"
)

const corpusHeaderSize = 8 + 4 + 4 // index_start, num_sent, num_tokens

// BuildCorpusTrack serializes sentences into the §3.9 corpus-track layout.
func BuildCorpusTrack(sentences [][]uint32) []byte {
	bounds := make([]uint32, 0, len(sentences)+1)
	bounds = append(bounds, 0)
	numTokens := 0
	for _, s := range sentences {
		numTokens += len(s)
		bounds = append(bounds, uint32(numTokens))
	}

	payload := make([]byte, numTokens*4)
	pos := 0
	for _, s := range sentences {
		for _, tok := range s {
			binary.LittleEndian.PutUint32(payload[pos:pos+4], tok)
			pos += 4
		}
	}

	idxBytes := make([]byte, len(bounds)*4)
	for i, b := range bounds {
		binary.LittleEndian.PutUint32(idxBytes[i*4:i*4+4], b)
	}

	indexStart := uint64(corpusHeaderSize + len(payload))
	out := make([]byte, 0, corpusHeaderSize+len(payload)+len(idxBytes))
	var b8 [8]byte
	binary.LittleEndian.PutUint64(b8[:], indexStart)
	out = append(out, b8[:]...)
	var b4 [4]byte
	binary.LittleEndian.PutUint32(b4[:], uint32(len(sentences)))
	out = append(out, b4[:]...)
	binary.LittleEndian.PutUint32(b4[:], uint32(numTokens))
	out = append(out, b4[:]...)
	out = append(out, payload...)
	out = append(out, idxBytes...)
	return out
}

// CorpusTrack is a loaded, read-only corpus track.
type CorpusTrack struct {
	data       []byte
	indexStart uint32
	numSent    uint32
	numTokens  uint32
}

// LoadCorpusTrack parses a corpus track from data.
func LoadCorpusTrack(data []byte) (*CorpusTrack, error) {
	if len(data) < corpusHeaderSize {
		return nil, tpterr.Format("corpustrack", 0, tpterr.ErrTruncated)
	}
	indexStart := binary.LittleEndian.Uint64(data[0:8])
	numSent := binary.LittleEndian.Uint32(data[8:12])
	numTokens := binary.LittleEndian.Uint32(data[12:16])
	need := indexStart + uint64(numSent+1)*4
	if uint64(len(data)) < need {
		return nil, tpterr.Format("corpustrack", int64(len(data)), tpterr.ErrIndexOutOfRange)
	}
	return &CorpusTrack{data: data, indexStart: uint32(indexStart), numSent: numSent, numTokens: numTokens}, nil
}

// NumSentences returns the number of sentences in the track.
func (c *CorpusTrack) NumSentences() uint32 { return c.numSent }

// NumTokens returns the total token count across all sentences.
func (c *CorpusTrack) NumTokens() uint32 { return c.numTokens }

func (c *CorpusTrack) bound(i uint32) uint32 {
	base := int(c.indexStart) + int(i)*4
	return binary.LittleEndian.Uint32(c.data[base : base+4])
}

// Sentence returns the token-ID sequence for sentence i.
func (c *CorpusTrack) Sentence(i uint32) []uint32 {
	lo, hi := c.bound(i), c.bound(i+1)
	out := make([]uint32, hi-lo)
	base := corpusHeaderSize + int(lo)*4
	for j := range out {
		out[j] = binary.LittleEndian.Uint32(c.data[base+j*4 : base+j*4+4])
	}
	return out
}
