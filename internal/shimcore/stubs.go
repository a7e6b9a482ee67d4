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

// stubs.go implements spec.md §4.6: the calls the shim answers entirely
// out of bootstrap-cached state or a fixed constant, without ever talking
// to the supervisor, because either the kernel filter would reject the
// real syscall outright or the target process has no legitimate need to
// see anything but a fixed answer.
package shimcore

import "golang.org/x/sys/unix"

// Getcwd returns the working directory Bootstrap cached before lockdown;
// getcwd(2) itself isn't one of the four syscalls SECCOMP_MODE_STRICT
// still permits.
func (s *State) Getcwd() string {
	return s.CachedCWD
}

// ReadlinkSelfExe answers readlink("/proc/self/exe") from the cache,
// matching the fixed-target semantics the interpreter bootstrap code in
// SPEC_FULL.md §3 relies on.
func (s *State) ReadlinkSelfExe() string {
	return s.CachedExePath
}

// ClockTicksPerSecond answers sysconf(_SC_CLK_TCK).
func (s *State) ClockTicksPerSecond() int64 {
	return s.CachedClkTck
}

// Getuid/Getgid/Geteuid/Getegid always report uid/gid 1: the sandboxed
// process never needs to know or act on its real identity, and reporting
// a fixed non-root, non-nobody value avoids both "running as root" and
// "running as nobody" code paths some interpreters special-case.
func (s *State) Getuid() int32  { return 1 }
func (s *State) Getgid() int32  { return 1 }
func (s *State) Geteuid() int32 { return 1 }
func (s *State) Getegid() int32 { return 1 }

// Hostname is always "localhost" — the sandboxed process has no network
// identity worth revealing.
func (s *State) Hostname() string { return "localhost" }

// Isatty reports true for fds 0/1/2 regardless of what the launching
// shell's own fds were: the target program inherited those three and
// expects the usual interactive-looking defaults (line buffering, prompt
// detection) even though they're actually pipes to the supervisor. Any
// other fd is never a terminal.
func (s *State) Isatty(fd int32) bool { return fd == 0 || fd == 1 || fd == 2 }

// ForkExecveUnsupported is what fork(2)/vfork(2)/execve(2) answer: -1/
// EPERM. Spawning more processes is out of scope for a single sandboxed
// child (SPEC_FULL.md §3 Non-goals); a seccomp-strict child that actually
// called fork would just be SIGKILLed by the kernel, so answering EPERM
// here produces a much more diagnosable failure for the target program.
func (s *State) ForkExecveUnsupported() (int32, int32) {
	return -1, int32(unix.EPERM)
}

// SignalUnsupported is what sigaction/signal/kill answer: seccomp strict
// mode can still deliver SIGKILL/SIGSYS to the process itself, but the
// process may not install handlers or signal anyone else.
func (s *State) SignalUnsupported() (int32, int32) {
	return -1, int32(unix.EPERM)
}

// TimeUnsupported is what the handful of wall-clock syscalls not on the
// strict-mode allowlist (clock_gettime, gettimeofday, time) answer when
// the interpreter bootstrap didn't already cache a value for them. Zero is
// a safe no-op answer here, not an error: a caller that only wants a
// monotonic-looking value to bound a timeout sees the epoch rather than a
// failure it might not check for.
func (s *State) TimeUnsupported() (int64, int32) {
	return 0, 0
}
