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

// Package policy implements the per-mode path-access decision described in
// spec.md §4.1 "Path policy". It knows nothing about pipes, file
// descriptors, or the wire protocol — it answers exactly one question,
// "may the child touch this path for this operation", given the launch
// mode, the command-line allowlist, and the dynamic /tmp allowlist.
package policy

import (
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sys/unix"
)

// Mode selects how strict path admission is. RO and RW consult the
// allowlist; the _EXTENDED variants trust the kernel's own permission
// checks and admit anything.
type Mode int

const (
	RO Mode = iota
	ROExtended
	RW
	RWExtended
)

func (m Mode) String() string {
	switch m {
	case RO:
		return "ro"
	case ROExtended:
		return "ro_extended"
	case RW:
		return "rw"
	case RWExtended:
		return "rw_extended"
	default:
		return "unknown"
	}
}

// Writable reports whether the mode permits write-shaped operations at all
// (subject to the allowlist in non-extended modes).
func (m Mode) Writable() bool {
	return m == RW || m == RWExtended
}

// Extended reports whether the mode skips the allowlist and trusts the
// kernel's own filesystem permissions.
func (m Mode) Extended() bool {
	return m == ROExtended || m == RWExtended
}

// ParseMode maps a CLI flag spelling to a Mode. The zero value is not
// returned on failure; ok is false instead, so callers can't silently fall
// through to RO on a typo.
func ParseMode(s string) (m Mode, ok bool) {
	switch s {
	case "ro":
		return RO, true
	case "ro_extended":
		return ROExtended, true
	case "rw":
		return RW, true
	case "rw_extended":
		return RWExtended, true
	default:
		return 0, false
	}
}

// SystemRead is one entry in the fixed set of system reads strict modes
// admit regardless of the command-line allowlist (spec.md §4.1 rule (b),
// resolved against original_source/seccomp_launcher.c). Dir, when true,
// means Path is a directory prefix rather than an exact file.
type SystemRead struct {
	Path string
	Dir  bool
}

// Policy decides path admission for one child process under one Mode.
//
// Policy is safe for concurrent use; the dynamic /tmp allowlist is the only
// mutable state and is guarded by its own mutex, even though the
// supervisor's request loop is itself single-threaded (spec.md §5) — the
// guard costs nothing and avoids coupling this package to that invariant.
type Policy struct {
	Mode Mode

	// Args is the command-line allowlist: the target's own argv, treated as
	// paths the child may open for read (spec.md §4.1 rule (c)).
	Args []string

	// SystemReads is the fixed set from spec.md §4.1 rule (b). Callers build
	// this once at startup from the environment (GDAL_DATA, the
	// interpreter's runtime directory, etc); see BuildSystemReads.
	SystemReads []SystemRead

	mu      sync.Mutex
	tmpFile map[string]bool // dynamic allowlist of /tmp paths the child wrote
}

// NewPolicy constructs a Policy for the given mode, argv allowlist, and
// fixed system-read set.
func NewPolicy(mode Mode, args []string, systemReads []SystemRead) *Policy {
	return &Policy{
		Mode:        mode,
		Args:        args,
		SystemReads: systemReads,
		tmpFile:     make(map[string]bool),
	}
}

// AllowOpen decides whether path may be opened with the given flags,
// implementing spec.md §4.1 OPEN rules (ii)–(iii) (rule (i), the
// "seccomp not yet engaged" bypass, is the caller's responsibility — it
// depends on connection state this package doesn't track). writeRequested
// should be true whenever flags requests anything other than read-only
// access.
func (p *Policy) AllowOpen(path string, writeRequested bool) bool {
	if writeRequested && !p.Mode.Writable() {
		return false
	}

	if p.Mode.Extended() {
		return true
	}

	// A /tmp path with no ".." is admitted unconditionally for the write
	// that creates it; a read of the same path is admitted once the dynamic
	// allowlist has recorded a prior write (spec.md §8 invariant:
	// read-after-write-succeeds, read-after-unlink-fails-again), or when it
	// matches the system-read or command-line allowlist.
	if !writeRequested && isDir(path) {
		return true
	}
	return p.allowPath(path, !writeRequested)
}

// AllowMkdir and AllowRmdir decide whether a directory-shaped write
// operation on path is admitted: the mode must be writable, and in
// non-extended mode the path must pass the allowlist. Unlike AllowUnlink,
// these do not require a prior dynamic-allowlist entry — the whole point of
// MKDIR is to create something that was never there to be recorded.
func (p *Policy) AllowMkdir(path string) bool { return p.allowWrite(path, false) }
func (p *Policy) AllowRmdir(path string) bool { return p.allowWrite(path, false) }

// AllowUnlink decides whether UNLINK/REMOVE of path is admitted. In
// non-extended mode, a /tmp path must already be in the dynamic allowlist
// populated by a prior successful write-open, unless it matches the
// system-read or command-line allowlist (spec.md §4.1: "UNLINK
// against a previously-written /tmp path removes it from the dynamic
// allowlist").
func (p *Policy) AllowUnlink(path string) bool { return p.allowWrite(path, true) }

func (p *Policy) allowWrite(path string, requireWriteRecord bool) bool {
	if !p.Mode.Writable() {
		return false
	}
	if p.Mode.Extended() {
		return true
	}
	return p.allowPath(path, requireWriteRecord)
}

// AllowRead decides whether a read-shaped directory operation (OPENDIR) on
// path is admitted under the allowlist. STAT does not consult it. It does
// not check writability.
func (p *Policy) AllowRead(path string) bool {
	if p.Mode.Extended() {
		return true
	}
	if isDir(path) {
		return true
	}
	return p.allowPath(path, false)
}

func (p *Policy) allowPath(path string, requireWriteRecord bool) bool {
	if isUnderTmp(path) {
		if !noDotDot(path) {
			return false
		}
		if !requireWriteRecord {
			return true
		}
		p.mu.Lock()
		wrote := p.tmpFile[filepath.Clean(path)]
		p.mu.Unlock()
		if wrote {
			return true
		}
		// A /tmp path with no write record may still be a system read or a
		// command-line argument; fall through to those checks.
	}

	for _, sr := range p.SystemReads {
		if sr.Dir {
			if pathUnderDir(path, sr.Path) {
				return true
			}
			continue
		}
		if filepath.Clean(path) == filepath.Clean(sr.Path) {
			return true
		}
	}

	for _, arg := range p.Args {
		if matchesArg(path, arg) {
			return true
		}
	}

	return false
}

// NoteWrite records that the child successfully opened path under /tmp for
// writing, adding it to the dynamic allowlist (spec.md §3, §4.1 rule (a)).
func (p *Policy) NoteWrite(path string) {
	if !isUnderTmp(path) || !noDotDot(path) {
		return
	}
	p.mu.Lock()
	p.tmpFile[filepath.Clean(path)] = true
	p.mu.Unlock()
}

// NoteUnlink removes path from the dynamic /tmp allowlist after a
// successful UNLINK, per spec.md §4.1 "UNLINK against a previously-written
// /tmp path removes it from the dynamic allowlist."
func (p *Policy) NoteUnlink(path string) {
	if !isUnderTmp(path) {
		return
	}
	p.mu.Lock()
	delete(p.tmpFile, filepath.Clean(path))
	p.mu.Unlock()
}

// isDir reports whether path resolves to a directory. A read of any such
// path is allowed unconditionally (original_source/seccomp_launcher.c's
// file_allowed: opening a directory is never a content-disclosure risk by
// itself, independent of whether the path also happens to match argv).
// stat failing — ENOENT, a dangling symlink, whatever — means the answer
// is "no", not "crash the policy check".
func isDir(path string) bool {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return false
	}
	return st.Mode&unix.S_IFMT == unix.S_IFDIR
}

func isUnderTmp(path string) bool {
	return strings.HasPrefix(path, "/tmp/") || path == "/tmp"
}

func noDotDot(path string) bool {
	for _, seg := range strings.Split(path, "/") {
		if seg == ".." {
			return false
		}
	}
	return true
}

func pathUnderDir(path, dir string) bool {
	dir = strings.TrimRight(dir, "/")
	if dir == "" {
		return false
	}
	return path == dir || strings.HasPrefix(path, dir+"/")
}

// matchesArg implements spec.md §4.1 rule (c)'s three comparison rules
// against one command-line argument treated as an allowed target:
//
//  1. exact match after lexical cleaning (filepath.Clean; symlinks are not
//     resolved and no realpath lookup is made);
//  2. share-a-radix-and-no-further-slash, so that "foo.bar" being named on
//     the command line admits "foo.baz" sitting next to it;
//  3. the candidate is a path under the argument, treated as a directory
//     prefix; whether the argument really is a directory is not checked.
func matchesArg(path, arg string) bool {
	cleanPath := filepath.Clean(path)
	cleanArg := filepath.Clean(arg)

	if cleanPath == cleanArg {
		return true
	}

	argDir := filepath.Dir(cleanArg)
	pathDir := filepath.Dir(cleanPath)
	if argDir == pathDir {
		// Same radix: identical basename up to (but not including) the
		// extension, i.e. foo.bar and foo.baz share "foo".
		argBase := stripExt(filepath.Base(cleanArg))
		pathBase := stripExt(filepath.Base(cleanPath))
		if argBase != "" && argBase == pathBase {
			return true
		}
	}

	return pathUnderDir(cleanPath, cleanArg)
}

func stripExt(base string) string {
	if i := strings.LastIndex(base, "."); i > 0 {
		return base[:i]
	}
	return base
}
