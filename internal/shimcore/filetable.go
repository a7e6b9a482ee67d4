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

// fileEntry is the shim's own record of a descriptor the supervisor has
// handed back. The descriptor number it names is meaningless on this side
// of the pipe (the supervisor never shares its address space with the
// child); what matters is that the child keeps using the exact number the
// OPEN/DUP/DUP2 reply gave it, since that's the handle the supervisor's own
// fdtable.FDTable recognizes on the next request.
type fileEntry struct {
	path     string
	writable bool
	eof      bool
	hasError bool

	// offset is the shim's own idea of the stream position, maintained
	// locally across read/write/seek instead of asking the supervisor.
	// ftell(3) reads this directly rather than issuing a real SEEK_CUR
	// round trip (spec.md §4.5).
	offset int64
}

// FileTable is the shim-side bookkeeping for open descriptors, mirroring
// the supervisor's own fdtable.FDTable closely enough to answer feof/
// ferror/fileno locally instead of round-tripping for state the shim
// already knows. It does not gate any operation — the supervisor is the
// only side that enforces policy.
type FileTable struct {
	mu      sync.Mutex
	entries map[int32]*fileEntry
}

func NewFileTable() *FileTable {
	return &FileTable{entries: make(map[int32]*fileEntry)}
}

func (t *FileTable) Register(fd int32, path string, writable bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[fd] = &fileEntry{path: path, writable: writable}
}

func (t *FileTable) Forget(fd int32) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, fd)
}

// Alias records newFD as referring to the same open file as fd, for DUP
// and DUP2 — both the path and the writable bit carry over, but the EOF/
// error flags start fresh since POSIX dup doesn't share stream state, only
// the underlying file description.
func (t *FileTable) Alias(fd, newFD int32) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[fd]
	if !ok {
		return
	}
	cp := *e
	cp.eof, cp.hasError = false, false
	t.entries[newFD] = &cp
}

func (t *FileTable) SetEOF(fd int32, v bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if e, ok := t.entries[fd]; ok {
		e.eof = v
	}
}

func (t *FileTable) SetError(fd int32, v bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if e, ok := t.entries[fd]; ok {
		e.hasError = v
	}
}

func (t *FileTable) EOF(fd int32) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[fd]
	return ok && e.eof
}

func (t *FileTable) HasError(fd int32) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[fd]
	return ok && e.hasError
}

func (t *FileTable) ClearError(fd int32) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if e, ok := t.entries[fd]; ok {
		e.eof, e.hasError = false, false
	}
}

// Offset returns the locally cached stream position for fd.
func (t *FileTable) Offset(fd int32) int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if e, ok := t.entries[fd]; ok {
		return e.offset
	}
	return 0
}

// SetOffset overwrites the cached stream position for fd, used after a
// real SEEK reply establishes an absolute position.
func (t *FileTable) SetOffset(fd int32, v int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if e, ok := t.entries[fd]; ok {
		e.offset = v
	}
}

// AddOffset advances the cached stream position for fd by delta, used
// after a successful READ or WRITE moves the position without a seek.
func (t *FileTable) AddOffset(fd int32, delta int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if e, ok := t.entries[fd]; ok {
		e.offset += delta
	}
}
