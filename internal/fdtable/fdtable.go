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

// Package fdtable implements the supervisor-side bookkeeping of spec.md §3:
// the child-FD table (a bit per index in [0, wire.MaxFD)) and the child-DIR
// table (a fixed-capacity, dense-packed map from handle to live directory
// stream). Neither type performs any I/O; they only track which integers
// the child is currently allowed to name.
package fdtable

import (
	"fmt"
	"os"
	"sync"

	"github.com/jacobsa/seccomp-launcher/internal/wire"
)

// FDTable is a fixed-size mapping from child-visible fd to "owned by
// child". It is the supervisor's only record of which of its own open
// descriptors the child is allowed to reference.
type FDTable struct {
	mu    sync.Mutex
	owned [wire.MaxFD]bool
}

// NewFDTable returns a table with stdin/stdout/stderr pre-marked as owned,
// per spec.md §3 and §4.1 step 5 — the child may legitimately refer to fds
// 0, 1, 2 without ever having OPENed them.
func NewFDTable() *FDTable {
	t := &FDTable{}
	t.owned[0] = true
	t.owned[1] = true
	t.owned[2] = true
	return t
}

// Owned reports whether fd is currently marked as belonging to the child.
// Out-of-range values (including negative ones) are never owned.
func (t *FDTable) Owned(fd int) bool {
	if fd < 0 || fd >= wire.MaxFD {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.owned[fd]
}

// Set marks fd as owned by the child, e.g. after a successful OPEN, DUP, or
// DUP2. It is a no-op (not a panic) for an out-of-range fd; callers are
// expected to have already rejected those with ENFILE before reaching this
// point, but Set stays defensive since it is the last line of the
// single-writer invariant spec.md §8 cares about.
func (t *FDTable) Set(fd int) {
	if fd < 0 || fd >= wire.MaxFD {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.owned[fd] = true
}

// Clear marks fd as no longer owned, e.g. after CLOSE.
func (t *FDTable) Clear(fd int) {
	if fd < 0 || fd >= wire.MaxFD {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.owned[fd] = false
}

// Checked returns fd unchanged if it is owned, or -1 otherwise — the
// substitution spec.md §3's invariant describes: "else the supervisor
// substitutes -1 and the underlying call fails."
func (t *FDTable) Checked(fd int) int {
	if t.Owned(fd) {
		return fd
	}
	return -1
}

// DirTable is the supervisor-side child-DIR table: a fixed-capacity,
// dense-packed map from integer handle to a live *os.File opened for
// directory reads. Handles are stable for the stream's lifetime and are
// assigned first-free on insert, per spec.md §3.
type DirTable struct {
	mu      sync.Mutex
	streams [wire.MaxDirs]*os.File
}

// NewDirTable returns an empty directory table.
func NewDirTable() *DirTable {
	return &DirTable{}
}

// ErrDirTableFull is returned by Insert when all wire.MaxDirs slots are in
// use — the supervisor should translate this into the ENFILE reply spec.md
// §7 kind 4 describes.
var ErrDirTableFull = fmt.Errorf("fdtable: directory table full (capacity %d)", wire.MaxDirs)

// Insert allocates the first free handle for f and returns it.
func (t *DirTable) Insert(f *os.File) (handle int, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i, s := range t.streams {
		if s == nil {
			t.streams[i] = f
			return i, nil
		}
	}
	return -1, ErrDirTableFull
}

// Get returns the stream for handle, or nil if the handle is unknown.
func (t *DirTable) Get(handle int) *os.File {
	if handle < 0 || handle >= wire.MaxDirs {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.streams[handle]
}

// Free releases handle, allowing it to be reused by a later Insert.
func (t *DirTable) Free(handle int) {
	if handle < 0 || handle >= wire.MaxDirs {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.streams[handle] = nil
}
