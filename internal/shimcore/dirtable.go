// Copyright 2015 Google Inc. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package shimcore

import "sync"

// dirMaxHandles bounds the number of concurrently open DIR streams the
// shim will track, matching the supervisor's own wire.MaxDirs — there is
// no point admitting more locally than the other side can ever hand back.
const dirMaxHandles = 32

// DirTable hands cmd/shim's opendir() export a small integer token in
// place of the supervisor's own dir handle, dense-packed first-free exactly
// like fdtable.DirTable, so that a DIR* the C layer mallocs can carry a
// single int32 field rather than a Go pointer. Go pointers must never cross
// the cgo boundary into a value libc code (or the untrusted process image)
// can retain past the call that produced them.
type DirTable struct {
	mu       sync.Mutex
	supHandl [dirMaxHandles]int32
	inUse    [dirMaxHandles]bool
}

func NewDirTable() *DirTable {
	return &DirTable{}
}

// Register allocates the first free token for a supervisor handle and
// returns it.
func (t *DirTable) Register(supervisorHandle int32) (token int, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i, used := range t.inUse {
		if !used {
			t.inUse[i] = true
			t.supHandl[i] = supervisorHandle
			return i, true
		}
	}
	return -1, false
}

// Lookup returns the supervisor handle for token.
func (t *DirTable) Lookup(token int) (int32, bool) {
	if token < 0 || token >= dirMaxHandles {
		return 0, false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.inUse[token] {
		return 0, false
	}
	return t.supHandl[token], true
}

// Release frees token for reuse.
func (t *DirTable) Release(token int) {
	if token < 0 || token >= dirMaxHandles {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.inUse[token] = false
}
