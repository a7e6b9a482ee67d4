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

// Package supervisor implements the long-running, single-threaded request
// server of spec.md §4.1: it owns the child's file-descriptor table,
// enforces the path policy, performs real syscalls on the child's behalf,
// and replies on the parent-to-child pipe. Requests are served strictly in
// arrival order (spec.md §5) — there is exactly one goroutine reading the
// request pipe and no concurrent dispatch.
package supervisor

import (
	"io"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/jacobsa/seccomp-launcher/internal/fdtable"
	"github.com/jacobsa/seccomp-launcher/internal/policy"
	"github.com/jacobsa/seccomp-launcher/internal/wire"
)

// Server serves one child's requests for the lifetime of that child. It is
// not safe for concurrent Serve calls on the same Server — there is only
// ever one request loop per spawned child.
type Server struct {
	conn   *wire.Conn
	log    *logrus.Entry
	policy *policy.Policy

	fds  *fdtable.FDTable
	dirs *fdtable.DirTable

	// files records, per child-visible fd, what OPEN (or DUP/DUP2) was asked
	// for. The fd number is the real fd OPEN returned (spec.md §4.1 OPEN: the
	// reply IS the real fd, reused directly as the child's handle), so
	// CLOSE/READ/WRITE/SEEK/FSTAT operate on that raw int directly; entries
	// are added and removed but no handler reads them back.
	files map[int]fileHandle

	// dirCursors holds the batching state for each open directory handle,
	// keyed the same as dirs. See dirCursor in dirent.go.
	dirCursors map[int]*dirCursor

	// seccompEngaged switches on OPEN's policy check (before it, OPEN is
	// accepted unconditionally so bootstrap can resolve its native
	// libraries) and is required for MKDIR/UNLINK/REMOVE/RMDIR; no other
	// command consults it. Set once, never reset; mirrors the original's
	// g_already_in_seccomp_mode.
	seccompEngaged bool
}

// NewServer constructs a Server that will read requests from r and write
// replies to w — the supervisor's ends of the two pipes described in
// spec.md §2's "Data flow".
func NewServer(r io.Reader, w io.Writer, pol *policy.Policy, logger *logrus.Logger) *Server {
	sessionID := uuid.New().String()
	return &Server{
		conn:   wire.NewConn(r, w),
		log:    logger.WithField("session", sessionID),
		policy: pol,
		fds:    fdtable.NewFDTable(),
		dirs:   fdtable.NewDirTable(),
		files:      make(map[int]fileHandle),
		dirCursors: make(map[int]*dirCursor),
	}
}

type fileHandle struct {
	// path is the path OPEN was given; the supervisor never re-resolves it
	// for access decisions after OPEN has already been adjudicated.
	path string
	// writable records whether this fd was opened for writing. The dynamic
	// /tmp allowlist is seeded by handleOpen itself (NoteWrite at OPEN
	// time), not from this field.
	writable bool
}

// Serve reads commands from the request pipe and dispatches them until the
// pipe reaches end-of-file, per spec.md §2 and §4.1 step 6. It returns nil
// on a clean EOF and a non-nil error for anything else.
func (s *Server) Serve() error {
	for {
		cmd, err := s.conn.ReadCmd()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}

		if err := s.dispatch(cmd); err != nil {
			return err
		}
	}
}

func (s *Server) dispatch(cmd wire.Cmd) error {
	switch cmd {
	case wire.HasSwitchedToSeccomp:
		return s.handleHasSwitchedToSeccomp()
	case wire.Open:
		return s.handleOpen()
	case wire.Close:
		return s.handleClose()
	case wire.Read:
		return s.handleRead()
	case wire.Write:
		return s.handleWrite()
	case wire.Seek:
		return s.handleSeek()
	case wire.Stat:
		return s.handleStat()
	case wire.Fstat:
		return s.handleFstat()
	case wire.Mkdir:
		return s.handleMkdir()
	case wire.Unlink, wire.Remove:
		return s.handleUnlink()
	case wire.Rmdir:
		return s.handleRmdir()
	case wire.Ftruncate:
		return s.handleFtruncate()
	case wire.Dup:
		return s.handleDup()
	case wire.Dup2:
		return s.handleDup2()
	case wire.Opendir:
		return s.handleOpendir()
	case wire.Readdir, wire.Readdir64:
		return s.handleReaddir()
	case wire.Rewinddir:
		return s.handleRewinddir()
	case wire.Closedir:
		return s.handleClosedir()
	case wire.SelectStdin:
		return s.handleSelectStdin()
	default:
		s.log.WithField("cmd", uint32(cmd)).Error("UNIMPLEMENTED: unknown command code")
		return nil
	}
}

// reject logs the spec.md §7 kind 2 policy-rejection line. It never
// returns an error; callers still must write whatever reply shape the
// command requires.
func (s *Server) reject(cmdName, path string) {
	s.log.WithFields(logrus.Fields{
		"cmd":  cmdName,
		"path": path,
		"mode": s.policy.Mode.String(),
	}).Warnf("AccCtrl: %s(%s) rejected", cmdName, path)
}
