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

// Package valuetable implements the value-to-codebook-ID assignment step
// that both the TPPT and TPLM assemblers perform: §4.8 step 2 and §4.9
// step 1 both "choose sort-order for value IDs by frequency" before
// writing a column's codebook, so this is factored out once rather than
// duplicated per assembler.
package valuetable

import (
	"math/bits"
	"sort"

	"grounding-example.dev/tpt/internal/bitblock"
	"grounding-example.dev/tpt/internal/codebook"
)

// BitsNeeded returns the number of bits needed to represent n distinct
// values (n-1 as the largest zero-based ID).
func BitsNeeded(n int) int {
	if n <= 1 {
		return 1
	}
	return bits.Len(uint(n - 1))
}

// Table assigns compact IDs to raw values in descending-frequency order
// (ties broken by first sight), builds the bit-block schema fitting that
// ID space, and remaps every occurrence to its ID.
type Table[T comparable] struct {
	ids    map[T]uint32
	Values []T
	Schema bitblock.Schema
}

// IDFor returns v's assigned codebook ID.
func (t Table[T]) IDFor(v T) uint32 { return t.ids[v] }

// Build ranks the distinct values in occurrences by descending frequency
// (ties broken by first occurrence), assigns codebook IDs accordingly, and
// selects a bit-block schema sized for the resulting ID distribution via
// internal/codebook.
func Build[T comparable](occurrences []T) Table[T] {
	freq := make(map[T]int)
	firstSeen := make(map[T]int)
	for i, v := range occurrences {
		if _, ok := firstSeen[v]; !ok {
			firstSeen[v] = i
		}
		freq[v]++
	}
	uniq := make([]T, 0, len(freq))
	for v := range freq {
		uniq = append(uniq, v)
	}
	sort.Slice(uniq, func(i, j int) bool {
		if freq[uniq[i]] != freq[uniq[j]] {
			return freq[uniq[i]] > freq[uniq[j]]
		}
		return firstSeen[uniq[i]] < firstSeen[uniq[j]]
	})
	idOf := make(map[T]uint32, len(uniq))
	for id, v := range uniq {
		idOf[v] = uint32(id)
	}
	bitsPerOcc := make([]int, len(occurrences))
	for i, v := range occurrences {
		bitsPerOcc[i] = BitsNeeded(int(idOf[v]) + 1)
	}
	counts := codebook.NewCounts(bitsPerOcc)
	sel := codebook.Select(counts, codebook.DefaultMaxBlocks)
	return Table[T]{ids: idOf, Values: uniq, Schema: sel.Schema}
}

// FloatBook builds a Book and the Table that produced it for a float
// column.
func FloatBook(values []float32) (codebook.Book, Table[float32]) {
	vt := Build(values)
	return codebook.Book{Kind: codebook.KindFloat, Schema: vt.Schema, FloatValues: vt.Values}, vt
}

// UintBook builds a Book and the Table that produced it for an unsigned
// integer column.
func UintBook(values []uint32) (codebook.Book, Table[uint32]) {
	vt := Build(values)
	return codebook.Book{Kind: codebook.KindUint32, Schema: vt.Schema, UintValues: vt.Values}, vt
}
