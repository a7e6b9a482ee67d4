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

// Package shimcore is the pure-Go implementation behind the shim's cgo
// exports in cmd/shim. It holds every piece of process-wide state the
// shim needs — the IPC client, the FILE table, the DIR handle map, the
// bootstrap caches — so that cmd/shim itself stays a thin layer of
// //export wrappers translating C calling convention to these functions,
// the same split the teacher draws between internal/fusekernel (wire
// conversion) and server.go/connection.go (the logic that consumes it).
//
// Nothing in this package may be reached before Bootstrap has run, and
// after Bootstrap nothing in this package may perform a syscall outside
// the four the kernel's strict filter still permits (read, write, exit,
// sigreturn) except through the Client, which talks to the supervisor
// instead.
package shimcore

import "sync"

// State is the shim's single process-wide instance of everything bootstrap
// assembles. A real LD_PRELOAD target is single-threaded by precondition
// (spec.md §5), so State needs no internal locking of its own beyond what
// its constituent tables already provide; no code in this package locks
// the mutex below.
type State struct {
	mu sync.Mutex

	Client *Client

	Files *FileTable
	Dirs  *DirTable

	// Bootstrap caches — populated once in Bootstrap, read-only afterward.
	CachedCWD     string
	CachedExePath string
	CachedClkTck  int64

	// Libs/Syms are keyed by library and symbol name. Bootstrap marks a
	// fixed list of library names in Libs (see resolveSymbolTables) and
	// leaves Syms empty; no handles or function pointers are stored, and no
	// dlopen/dlsym override reads these maps.
	Libs map[string]bool
	Syms map[string]bool

	SeccompEngaged bool

	// heapReservation is the mmap'd region MaxVirtualMem carves out before
	// lockdown. Nothing reads it back; it exists so the mapping itself
	// isn't garbage-collected away (it can't be — it was never a Go
	// allocation) and so a future accounting pass has something to size
	// against.
	heapReservation []byte
}

var global *State

// Install installs s as the process-wide State. Bootstrap calls this
// exactly once; a State built with NewStateForTest can also be installed
// this way so Current() returns it.
func Install(s *State) {
	global = s
}

// Current returns the process-wide State installed by Bootstrap. Calling
// any shimcore function before Install panics rather than silently
// operating on a nil client — there is no safe fallback for a shim that
// hasn't bootstrapped.
func Current() *State {
	if global == nil {
		panic("shimcore: used before Bootstrap/Install")
	}
	return global
}

// NewStateForTest constructs a State around an already-connected Client,
// skipping the bootstrap sequence entirely. It exists so other packages'
// tests (and this package's own) can exercise shim logic against a real
// supervisor.Server without engaging seccomp or touching the real
// environment.
func NewStateForTest(c *Client) *State {
	return newState(c)
}

func newState(c *Client) *State {
	return &State{
		Client: c,
		Files:  NewFileTable(),
		Dirs:   NewDirTable(),
		Libs:   make(map[string]bool),
		Syms:   make(map[string]bool),
	}
}
