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

// Package codebook implements the per-column codebook of §3.3: a mapping
// from compact value IDs to the primitive values (float32 or uint32) they
// stand for, plus the bit-block schema (§4.3) chosen to encode those IDs
// as densely as possible.
package codebook

import (
	"grounding-example.dev/tpt/internal/bitblock"
	"grounding-example.dev/tpt/internal/stats"
)

// DefaultMaxBlocks is the default partition width from §4.3.
const DefaultMaxBlocks = 5

// epsilonBits is the tie-break window from §4.3: schemes within this many
// bits of the cheapest one prefer fewer blocks, since fewer blocks decode
// faster.
const epsilonBits = 80_000_000

// Counts is a per-bit-length histogram: Counts[b] is the number of values
// whose ID requires exactly b bits to represent (b ranges over
// 1..len(Counts)-1; Counts[0] is unused since bitsNeeded never returns 0).
type Counts []int64

// NewCounts builds a Counts histogram from one bits-needed measurement per
// value.
func NewCounts(bitsNeededPerValue []int) Counts {
	maxBits := 1
	for _, b := range bitsNeededPerValue {
		if b > maxBits {
			maxBits = b
		}
	}
	c := make(Counts, maxBits+1)
	for _, b := range bitsNeededPerValue {
		c[b]++
	}
	return c
}

// MaxBits returns the highest bit-length present in the histogram.
func (c Counts) MaxBits() int { return len(c) - 1 }

// family1Cost computes the cost of encoding this histogram with the given
// schema under the continuation-bit scheme of §3.1/§4.2 (the only scheme
// this module's codec actually reads and writes): each value pays for the
// data bits of every block up to and including the one it terminates in,
// plus one continuation flag per block before that, plus one terminator
// flag unless it used every block in the schema.
func (c Counts) family1Cost(schema bitblock.Schema) int64 {
	var total int64
	cum := 0
	for m, w := range schema {
		cum += w
		lo := cum - w + 1
		hi := cum
		if m == len(schema)-1 {
			hi = c.MaxBits()
		}
		if lo > c.MaxBits() {
			break
		}
		if hi > c.MaxBits() {
			hi = c.MaxBits()
		}
		var n int64
		for b := lo; b <= hi; b++ {
			if b >= 0 && b < len(c) {
				n += c[b]
			}
		}
		extraFlags := m // one continuation flag per prior block
		if m < len(schema)-1 {
			extraFlags++ // terminator flag, since this isn't the last schema block
		}
		total += n * int64(cum+extraFlags)
	}
	return total
}

// family2Cost computes the cost under the size-prefix scheme of §4.3: a
// fixed ceil(log2 k) header per value instead of per-block continuation
// flags. This module never emits family-2 streams (§3.1 only specifies
// the continuation-bit wire format), but the cost is still computed here
// so the scheme selector can record, for diagnostics, how close the two
// families come on real histograms.
func (c Counts) family2Cost(schema bitblock.Schema) int64 {
	header := bitLen(len(schema))
	var total int64
	cum := 0
	for m, w := range schema {
		cum += w
		lo := cum - w + 1
		hi := cum
		if m == len(schema)-1 {
			hi = c.MaxBits()
		}
		if lo > c.MaxBits() {
			break
		}
		if hi > c.MaxBits() {
			hi = c.MaxBits()
		}
		var n int64
		for b := lo; b <= hi; b++ {
			if b >= 0 && b < len(c) {
				n += c[b]
			}
		}
		total += n * int64(cum+header)
	}
	return total
}

func bitLen(k int) int {
	n := 0
	for (1 << n) < k {
		n++
	}
	return n
}

// Selected is the result of scheme selection: the chosen schema, its cost
// under the wire format, and the family-2 cost computed purely for
// comparison/diagnostics.
type Selected struct {
	Schema       bitblock.Schema
	Cost         int64
	Family2Cost  int64
}

// Select chooses a bit-block schema for this histogram by partitioning the
// bit budget (the histogram's MaxBits) into at most maxBlocks ordered
// parts and minimizing family1Cost, using dynamic programming over the cut
// points (§4.3). Ties within epsilonBits of the minimum prefer the
// candidate with fewer blocks.
func Select(c Counts, maxBlocks int) Selected {
	if maxBlocks <= 0 {
		maxBlocks = DefaultMaxBlocks
	}
	maxBits := c.MaxBits()
	if maxBits < 1 {
		maxBits = 1
	}

	var best Selected
	haveBest := false
	for k := 1; k <= maxBlocks && k <= maxBits; k++ {
		schema, cost := bestPartition(c, maxBits, k)
		if !haveBest {
			best = Selected{Schema: schema, Cost: cost}
			haveBest = true
			continue
		}
		switch {
		case cost < best.Cost-epsilonBits:
			best = Selected{Schema: schema, Cost: cost}
		case cost <= best.Cost+epsilonBits && len(schema) < len(best.Schema):
			best = Selected{Schema: schema, Cost: cost}
		}
	}
	best.Family2Cost = c.family2Cost(best.Schema)
	return best
}

// bestPartition finds the partition of [1, maxBits] into exactly k ordered
// positive-width blocks minimizing family1Cost, via DP over (blocks used,
// cumulative bit position).
func bestPartition(c Counts, maxBits, k int) (bitblock.Schema, int64) {
	const inf = int64(1) << 62

	// dp[j][b] = best cost of filling blocks j..k-1 starting at cumulative
	// position b (0-indexed bits already committed), reaching exactly
	// maxBits by block k-1.
	dp := make([][]int64, k+1)
	choice := make([][]int, k+1)
	for j := range dp {
		dp[j] = make([]int64, maxBits+1)
		choice[j] = make([]int, maxBits+1)
		for b := range dp[j] {
			dp[j][b] = inf
		}
	}
	dp[k][maxBits] = 0

	for j := k - 1; j >= 0; j-- {
		for b := maxBits - 1; b >= 0; b-- {
			for next := b + 1; next <= maxBits; next++ {
				if dp[j+1][next] == inf {
					continue
				}
				w := next - b
				n := sumRange(c, b+1, next)
				extraFlags := j
				if j < k-1 {
					extraFlags++
				}
				cost := n*int64(next+extraFlags) + dp[j+1][next]
				if cost < dp[j][b] {
					dp[j][b] = cost
					choice[j][b] = w
				}
			}
		}
	}

	schema := make(bitblock.Schema, 0, k)
	b := 0
	for j := 0; j < k; j++ {
		w := choice[j][b]
		if w == 0 {
			w = 1
		}
		schema = append(schema, w)
		b += w
	}
	return schema, dp[0][0]
}

func sumRange(c Counts, lo, hi int) int64 {
	var total int64
	for b := lo; b <= hi && b < len(c); b++ {
		if b >= 0 {
			total += c[b]
		}
	}
	return total
}

// ApproxBytesPerEntry is a small running estimate, used by the suffix
// array's approxCount (§4.7): track total bytes written against total
// entries written and divide.
type ApproxBytesPerEntry struct {
	mean stats.Mean
}

// Record records one entry's encoded byte length.
func (a *ApproxBytesPerEntry) Record(n int) { a.mean.Record(float64(n)) }

// Estimate returns the current average bytes per entry, or 0 if nothing has
// been recorded yet.
func (a *ApproxBytesPerEntry) Estimate() float64 { return a.mean.Get() }
