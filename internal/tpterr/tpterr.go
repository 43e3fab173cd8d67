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

// Package tpterr defines the error taxonomy shared by every builder and
// reader in this module (§7): argument errors, I/O errors, format errors,
// and data warnings. Builders and readers wrap a sentinel Code with
// positional context so that a corrupt file's forensic trail survives
// propagation up through several layers of trie/codebook/repository code.
package tpterr

import (
	"errors"
	"fmt"
)

// Code classifies the kind of failure, matching the four kinds in §7.
type Code int

const (
	// CodeArgument marks a missing or invalid command-line argument.
	CodeArgument Code = iota
	// CodeIO marks a failure to open, read, write, or memory-map a file.
	CodeIO
	// CodeFormat marks a violated on-disk invariant: bad magic, a corrupt
	// offset, a mismatched codebook arity, an index pointing outside the
	// file, or a missing terminator bit.
	CodeFormat
	// CodeWarning marks a recoverable data inconsistency that is reported
	// and skipped rather than treated as fatal (§7).
	CodeWarning
)

func (c Code) String() string {
	switch c {
	case CodeArgument:
		return "argument error"
	case CodeIO:
		return "I/O error"
	case CodeFormat:
		return "format error"
	case CodeWarning:
		return "warning"
	default:
		return "unknown error"
	}
}

// Error is the concrete error type returned by this module's packages. It
// always carries a Code and, when known, the byte offset or line number at
// which the problem was discovered.
type Error struct {
	Code   Code
	Where  string // file path or component name, e.g. "trg.repos.dat"
	Offset int64  // byte offset or line number; -1 if not applicable
	cause  error
}

// Unwrap implements error unwrapping via errors.Unwrap.
func (e *Error) Unwrap() error { return e.cause }

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Offset >= 0 {
		return fmt.Sprintf("tpt: %s: %s at offset %d: %v", e.Code, e.Where, e.Offset, e.cause)
	}
	return fmt.Sprintf("tpt: %s: %s: %v", e.Code, e.Where, e.cause)
}

// Argument builds a CodeArgument error.
func Argument(where string, cause error) error {
	return &Error{Code: CodeArgument, Where: where, Offset: -1, cause: cause}
}

// Argumentf is like Argument but builds its cause from a format string.
func Argumentf(where, format string, args ...any) error {
	return Argument(where, fmt.Errorf(format, args...))
}

// IO builds a CodeIO error.
func IO(where string, cause error) error {
	return &Error{Code: CodeIO, Where: where, Offset: -1, cause: cause}
}

// Format builds a CodeFormat error at the given byte offset. Pass offset -1
// when no specific position applies.
func Format(where string, offset int64, cause error) error {
	return &Error{Code: CodeFormat, Where: where, Offset: offset, cause: cause}
}

// Formatf is like Format but builds its cause from a format string.
func Formatf(where string, offset int64, format string, args ...any) error {
	return Format(where, offset, fmt.Errorf(format, args...))
}

// Warning builds a CodeWarning error, a data warning that does not abort a
// pass. No code in this module emits one.
func Warning(where string, cause error) error {
	return &Error{Code: CodeWarning, Where: where, Offset: -1, cause: cause}
}

// Is reports whether err carries the given Code, unwrapping as needed.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// Sentinel causes reused across packages so callers can match on them with
// errors.Is regardless of which Code wraps them.
var (
	ErrTruncated        = errors.New("truncated data: missing terminator bit")
	ErrBadMagic         = errors.New("bad magic header")
	ErrIndexOutOfRange  = errors.New("index points outside file")
	ErrArityMismatch    = errors.New("codebook arity does not match config")
	ErrEmptyCodebook    = errors.New("codebook has zero blocks")
	ErrMissingSequence  = errors.New("referenced sequence is missing from repository")
	ErrUnsupportedValue = errors.New("value exceeds the declared bit-block schema")
)
