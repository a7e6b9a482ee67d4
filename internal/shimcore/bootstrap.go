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

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// MaxVirtualMem is the heap region bootstrap reserves before lockdown, per
// spec.md §4.2 step 4: once SECCOMP_MODE_STRICT is engaged, brk/mmap are no
// longer callable, so every allocation the shim or the target process will
// ever need for the rest of the run has to come out of memory grabbed now.
const MaxVirtualMem = 500 * 1024 * 1024

// BootstrapError wraps a failure during one of the ordered bootstrap steps,
// naming which one failed so a crash during lockdown is diagnosable from
// the exit path alone (stderr is still open at every step but the last).
type BootstrapError struct {
	Step string
	Err  error
}

func (e *BootstrapError) Error() string {
	return fmt.Sprintf("shim bootstrap: %s: %v", e.Step, e.Err)
}

func (e *BootstrapError) Unwrap() error { return e.Err }

// Bootstrap runs the ordered, one-shot sequence spec.md §4.2 requires
// before the shim can engage the kernel filter: acquire the supervisor
// pipes, verify the single-thread precondition, reserve the heap the rest
// of the process's life will run on, warm every cache lockdown would
// otherwise make unreachable, then flip the switch. It returns the
// installed State, already current for Current() to retrieve.
func Bootstrap() (*State, error) {
	requestFD, replyFD, err := pipeFDsFromEnv()
	if err != nil {
		return nil, &BootstrapError{"read pipe descriptors", err}
	}

	if err := verifySingleThreaded(); err != nil {
		return nil, &BootstrapError{"verify single-threaded", err}
	}

	client := NewClient(requestFD, replyFD)
	state := newState(client)

	reserved, err := reserveHeap(MaxVirtualMem)
	if err != nil {
		return nil, &BootstrapError{"reserve heap", err}
	}
	state.heapReservation = reserved

	if err := warmCaches(state); err != nil {
		return nil, &BootstrapError{"warm caches", err}
	}

	resolveSymbolTables(state)

	// WAIT gives a debugger time to attach before the filter locks the
	// process out of every syscall but read/write/exit/sigreturn — it has
	// to happen here, pre-lockdown, since nanosleep itself wouldn't survive
	// engageSeccomp.
	if os.Getenv("WAIT") != "" {
		time.Sleep(10 * time.Second)
	}

	// DISABLE_SECCOMP skips the actual kernel switch for local debugging
	// (spec.md §6); the supervisor still enforces its own policy as though
	// the filter were engaged, so this only loosens the kernel-side
	// backstop, never the allowlist.
	if os.Getenv("DISABLE_SECCOMP") == "" {
		if err := engageSeccomp(); err != nil {
			return nil, &BootstrapError{"engage seccomp", err}
		}
	}
	state.SeccompEngaged = true

	if err := client.NotifySeccompEngaged(); err != nil {
		return nil, &BootstrapError{"notify supervisor", err}
	}

	Install(state)
	return state, nil
}

// pipeFDsFromEnv reads PIPE_IN/PIPE_OUT, the descriptor numbers the
// supervisor placed in the child's environment before exec, per spec.md
// §4.2 step 1 and the ExtraFiles wiring in internal/supervisor/spawn.go.
func pipeFDsFromEnv() (requestFD, replyFD int, err error) {
	requestFD, err = envFD("PIPE_IN")
	if err != nil {
		return 0, 0, err
	}
	replyFD, err = envFD("PIPE_OUT")
	if err != nil {
		return 0, 0, err
	}
	return requestFD, replyFD, nil
}

func envFD(name string) (int, error) {
	v, ok := os.LookupEnv(name)
	if !ok {
		return 0, errors.Errorf("%s not set", name)
	}
	fd, err := strconv.Atoi(v)
	if err != nil {
		return 0, errors.Wrapf(err, "%s=%q is not an integer", name, v)
	}
	return fd, nil
}

// verifySingleThreaded reads /proc/self/status and fails closed if
// "Threads:" isn't exactly 1 — the hard precondition spec.md §5 requires of
// both processes, since the kernel's strict filter confines only the
// thread that engages it.
func verifySingleThreaded() error {
	data, err := os.ReadFile("/proc/self/status")
	if err != nil {
		return errors.Wrap(err, "reading /proc/self/status")
	}
	for _, line := range strings.Split(string(data), "\n") {
		if !strings.HasPrefix(line, "Threads:") {
			continue
		}
		field := strings.TrimSpace(strings.TrimPrefix(line, "Threads:"))
		n, err := strconv.Atoi(field)
		if err != nil {
			return errors.Wrapf(err, "parsing Threads line %q", line)
		}
		if n != 1 {
			return errors.Errorf("process has %d threads, want 1", n)
		}
		return nil
	}
	return errors.New("no Threads: line in /proc/self/status")
}

// reserveHeap grabs an anonymous mapping of size bytes before mmap/brk stop
// being callable. The mapping is only kept on State; no allocator in this
// package or in cmd/shim hands out memory from it, and Go's runtime and
// libc keep allocating through their own paths.
func reserveHeap(size int) ([]byte, error) {
	mem, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
	if err != nil {
		return nil, errors.Wrap(err, "mmap")
	}
	return mem, nil
}

// warmCaches performs spec.md §4.2 step 6: it caches the cwd, the target
// of /proc/self/exe, and the system clock tick rate, values whose lookup
// needs a syscall this process won't be able to make again after lockdown.
// It does not touch the C library's locale tables or call qsort.
func warmCaches(s *State) error {
	cwd, err := os.Getwd()
	if err != nil {
		return errors.Wrap(err, "getwd")
	}
	s.CachedCWD = cwd

	exe, err := os.Readlink("/proc/self/exe")
	if err != nil {
		return errors.Wrap(err, "readlink /proc/self/exe")
	}
	s.CachedExePath = exe

	s.CachedClkTck = clockTicksPerSecond()
	return nil
}

// clockTicksPerSecond is the value sysconf(_SC_CLK_TCK) would return on
// every Linux platform this shim targets; it is a kernel ABI constant, not
// something that needs a syscall to discover.
func clockTicksPerSecond() int64 { return 100 }

// resolveSymbolTables marks a fixed list of library names (libc, libm,
// libpthread) in s.Libs. It does not dlopen anything, leaves s.Syms empty,
// and nothing in this package or cmd/shim overrides dlopen/dlsym to
// consult these tables.
func resolveSymbolTables(s *State) {
	for _, lib := range []string{"libc.so.6", "libm.so.6", "libpthread.so.0"} {
		s.Libs[lib] = true
	}
}

// engageSeccomp flips the kernel switch. After this call succeeds, only
// read, write, exit, and sigreturn are permitted for the rest of the
// calling thread's life.
func engageSeccomp() error {
	return unix.Prctl(unix.PR_SET_SECCOMP, unix.SECCOMP_MODE_STRICT, 0, 0, 0)
}
