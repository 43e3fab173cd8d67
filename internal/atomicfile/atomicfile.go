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

// Package atomicfile writes a multi-pass build's intermediate and final
// files through a uniquely named temp file that is renamed into place
// only once its contents are fully written, so a killed pass's leftovers
// (§5's cancellation contract) never collide with, or get mistaken for,
// the output of a concurrent rerun over the same base name.
package atomicfile

import (
	"fmt"
	"os"

	"github.com/google/uuid"
)

// Write creates path's contents via a "<path>.tmp.<uuid>" sibling file,
// then renames it into place. The temp file is removed if any step before
// the rename fails.
func Write(path string, data []byte, perm os.FileMode) (err error) {
	tmp := fmt.Sprintf("%s.tmp.%s", path, uuid.NewString())
	defer func() {
		if err != nil {
			os.Remove(tmp)
		}
	}()
	if err := os.WriteFile(tmp, data, perm); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		return err
	}
	return nil
}
