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

// Package mmio provides the shared memory-mapped file handling used by
// tpsa.Open (token index, corpus track and suffix array files) and
// cmd/tp-alignment-dump; the package-level readers themselves take a
// []byte and do not depend on it. Its job is to open a file read-only,
// map its full contents, advise the kernel on expected access pattern, and
// keep the mapping alive until Close.
package mmio

import (
	"os"

	"github.com/edsrzf/mmap-go"
	"golang.org/x/sys/unix"

	"grounding-example.dev/tpt/internal/tpterr"
)

// AccessHint selects the madvise(2) hint applied to a fresh mapping.
type AccessHint int

const (
	// HintNormal leaves the kernel's default readahead behavior in place.
	// Appropriate for files read close to sequentially, such as a freshly
	// opened sequence repository during a bulk dump.
	HintNormal AccessHint = iota
	// HintRandom disables readahead, appropriate for index structures
	// accessed via binary search (token index, trie, suffix array).
	HintRandom
	// HintSequential advises aggressive readahead and early eviction,
	// appropriate for a one-pass streaming read of an entire file.
	HintSequential
)

// File is a read-only memory-mapped file. The zero value is not usable;
// construct with Open.
type File struct {
	f  *os.File
	mm mmap.MMap
}

// Open maps path read-only in its entirety and applies hint.
func Open(path string, hint AccessHint) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, tpterr.IO("mmio.Open", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, tpterr.IO("mmio.Open", err)
	}
	if info.Size() == 0 {
		// mmap-go rejects zero-length mappings; callers of an empty file
		// (e.g. a freshly created, not-yet-built shard) get a File whose
		// Bytes() is an empty slice instead of an error.
		return &File{f: f}, nil
	}

	mm, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, tpterr.IO("mmio.Open", err)
	}
	fl := &File{f: f, mm: mm}
	fl.advise(hint)
	return fl, nil
}

func (fl *File) advise(hint AccessHint) {
	if len(fl.mm) == 0 {
		return
	}
	var advice int
	switch hint {
	case HintRandom:
		advice = unix.MADV_RANDOM
	case HintSequential:
		advice = unix.MADV_SEQUENTIAL
	default:
		return
	}
	// Best-effort: a failed madvise never invalidates the mapping, it only
	// costs a readahead hint, so the error is deliberately discarded.
	_ = unix.Madvise(fl.mm, advice)
}

// Bytes returns the mapped region. The returned slice is valid until Close.
func (fl *File) Bytes() []byte {
	if fl.mm == nil {
		return nil
	}
	return fl.mm
}

// Close unmaps the file and releases its descriptor.
func (fl *File) Close() error {
	var err error
	if fl.mm != nil {
		err = fl.mm.Unmap()
	}
	if cerr := fl.f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return tpterr.IO("mmio.Close", err)
	}
	return nil
}

// PageSize reports the host's page size. No builder in this module aligns
// its sections to it.
func PageSize() int {
	return os.Getpagesize()
}
