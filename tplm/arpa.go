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

package tplm

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// NGram is one parsed ARPA n-gram line: a log10 probability, the words it
// covers, and (for all but the model's highest order) an optional back-off
// weight, also log10-scale, applied when this n-gram's words serve as the
// context for the next order up.
type NGram struct {
	Words   []string
	LogProb float64
	BackOff float64 // 0 (log10(1), i.e. no penalty) if the ARPA line omitted it
}

// Model is a parsed ARPA language model: one []NGram per order, indexed
// 0-based (Orders[0] is unigrams).
type Model struct {
	Orders [][]NGram
}

// MaxOrder returns the model's highest n-gram order.
func (m *Model) MaxOrder() int { return len(m.Orders) }

// ParseARPA reads the standard ARPA back-off LM text format: a \data\
// section declaring per-order counts, followed by one \N-grams: section
// per order, each line "logprob<TAB>w1 w2 ... wN[<TAB>backoff]", terminated
// by \end\. This implementation intentionally does not special-case
// vertical tab as whitespace the way the legacy reader's "exclude VT from
// whitespace" facet does (§1's Non-goals excludes that facet); fields
// split on any run of ASCII whitespace via strings.Fields.
func ParseARPA(r io.Reader) (*Model, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)

	m := &Model{}
	order := 0
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || line == "\\data\\" {
			continue
		}
		if line == "\\end\\" {
			break
		}
		if strings.HasPrefix(line, "ngram ") {
			continue // "ngram N=count" header line; counts aren't load-bearing here
		}
		if strings.HasPrefix(line, "\\") && strings.HasSuffix(line, "-grams:") {
			var n int
			if _, err := fmt.Sscanf(line, "\\%d-grams:", &n); err != nil {
				return nil, fmt.Errorf("tplm: malformed section header %q: %w", line, err)
			}
			order = n
			for len(m.Orders) < order {
				m.Orders = append(m.Orders, nil)
			}
			continue
		}
		if order == 0 {
			continue // stray line before the first section header
		}
		fields := strings.Fields(line)
		if len(fields) < 1+order {
			return nil, fmt.Errorf("tplm: %d-gram line has too few fields: %q", order, line)
		}
		logProb, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return nil, fmt.Errorf("tplm: bad log-prob in %q: %w", line, err)
		}
		words := fields[1 : 1+order]
		var backOff float64
		if len(fields) > 1+order {
			backOff, err = strconv.ParseFloat(fields[1+order], 64)
			if err != nil {
				return nil, fmt.Errorf("tplm: bad back-off in %q: %w", line, err)
			}
		}
		m.Orders[order-1] = append(m.Orders[order-1], NGram{
			Words: append([]string(nil), words...), LogProb: logProb, BackOff: backOff,
		})
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return m, nil
}
