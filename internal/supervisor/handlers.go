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

package supervisor

import (
	"golang.org/x/sys/unix"

	"github.com/jacobsa/seccomp-launcher/internal/wire"
)

func (s *Server) handleHasSwitchedToSeccomp() error {
	s.seccompEngaged = true
	s.log.Debug("child reports seccomp engaged")
	return nil
}

// handleOpen implements spec.md §4.1 OPEN: rules (i)-(iv) in order.
func (s *Server) handleOpen() error {
	path, err := s.conn.ReadPath()
	if err != nil {
		return err
	}
	flags, err := s.conn.ReadI32()
	if err != nil {
		return err
	}
	mode, err := s.conn.ReadU32()
	if err != nil {
		return err
	}

	accessMode := int(flags) & unix.O_ACCMODE
	writeRequested := accessMode != unix.O_RDONLY

	// Rule (i): bootstrap needs to open its native libraries before it can
	// announce seccomp engagement.
	if s.seccompEngaged && !s.policy.AllowOpen(path, writeRequested) {
		s.reject("open", path)
		return s.replyOpen(-1, unix.EACCES)
	}

	fd, oerr := unix.Open(path, int(flags), mode)
	if oerr != nil {
		return s.replyOpen(-1, errnoOf(oerr))
	}

	if fd >= wire.MaxFD {
		unix.Close(fd)
		return s.replyOpen(-1, unix.ENFILE)
	}

	s.fds.Set(fd)
	s.files[fd] = fileHandle{path: path, writable: writeRequested}
	if writeRequested {
		s.policy.NoteWrite(path)
	}

	return s.replyOpen(int32(fd), 0)
}

func (s *Server) replyOpen(fd int32, errno int32) error {
	if err := s.conn.WriteI32(fd); err != nil {
		return err
	}
	if fd < 0 {
		return s.conn.WriteI32(errno)
	}
	return nil
}

func (s *Server) handleClose() error {
	fd, err := s.conn.ReadI32()
	if err != nil {
		return err
	}

	checked := s.fds.Checked(int(fd))
	var rc int32
	var errno int32
	if checked < 0 {
		rc = -1
		errno = unix.EBADF
	} else {
		s.fds.Clear(checked)
		delete(s.files, checked)
		if cerr := unix.Close(checked); cerr != nil {
			rc, errno = -1, errnoOf(cerr)
		}
	}

	if err := s.conn.WriteI32(rc); err != nil {
		return err
	}
	if rc < 0 {
		return s.conn.WriteI32(errno)
	}
	return nil
}

func (s *Server) handleRead() error {
	fd, err := s.conn.ReadI32()
	if err != nil {
		return err
	}
	length, err := s.conn.ReadU64()
	if err != nil {
		return err
	}

	checked := s.fds.Checked(int(fd))
	if checked < 0 {
		if err := s.conn.WriteI32(-1); err != nil {
			return err
		}
		return s.conn.WriteI32(unix.EBADF)
	}

	buf := make([]byte, length)
	n, rerr := unix.Read(checked, buf)
	if rerr != nil || n <= 0 {
		if err := s.conn.WriteI32(int32(n)); err != nil {
			return err
		}
		return s.conn.WriteI32(errnoOf(rerr))
	}

	if err := s.conn.WriteI32(int32(n)); err != nil {
		return err
	}
	return s.conn.WriteBytes(buf[:n])
}

func (s *Server) handleWrite() error {
	fd, err := s.conn.ReadI32()
	if err != nil {
		return err
	}
	length, err := s.conn.ReadU64()
	if err != nil {
		return err
	}
	data, err := s.conn.ReadN(int(length))
	if err != nil {
		return err
	}

	checked := s.fds.Checked(int(fd))
	if checked < 0 {
		if err := s.conn.WriteI32(-1); err != nil {
			return err
		}
		return s.conn.WriteI32(unix.EBADF)
	}

	n, werr := unix.Write(checked, data)
	if werr != nil || n <= 0 {
		if err := s.conn.WriteI32(int32(n)); err != nil {
			return err
		}
		return s.conn.WriteI32(errnoOf(werr))
	}

	return s.conn.WriteI32(int32(n))
}

func (s *Server) handleSeek() error {
	fd, err := s.conn.ReadI32()
	if err != nil {
		return err
	}
	off, err := s.conn.ReadI64()
	if err != nil {
		return err
	}
	whence, err := s.conn.ReadI32()
	if err != nil {
		return err
	}

	checked := s.fds.Checked(int(fd))
	if checked < 0 {
		if err := s.conn.WriteI64(-1); err != nil {
			return err
		}
		return s.conn.WriteI32(unix.EBADF)
	}

	newOff, serr := unix.Seek(checked, off, int(whence))
	if serr != nil {
		if err := s.conn.WriteI64(-1); err != nil {
			return err
		}
		return s.conn.WriteI32(errnoOf(serr))
	}

	return s.conn.WriteI64(newOff)
}

func (s *Server) handleStat() error {
	path, err := s.conn.ReadPath()
	if err != nil {
		return err
	}

	// Always allowed per spec.md §4.1: the kernel already performed path
	// resolution during OPEN approval, and stat of a non-allowed path only
	// leaks size/mtime.
	var st unix.Stat_t
	serr := unix.Stat(path, &st)

	rc := int32(0)
	if serr != nil {
		rc = -1
	}
	if err := s.conn.WriteI32(rc); err != nil {
		return err
	}
	if err := s.conn.WriteBytes(marshalStat(&st)); err != nil {
		return err
	}
	if rc < 0 {
		return s.conn.WriteI32(errnoOf(serr))
	}
	return nil
}

func (s *Server) handleFstat() error {
	fd, err := s.conn.ReadI32()
	if err != nil {
		return err
	}

	checked := s.fds.Checked(int(fd))

	var st unix.Stat_t
	var serr error
	if checked < 0 {
		serr = unix.EBADF
	} else {
		serr = unix.Fstat(checked, &st)
	}

	rc := int32(0)
	if serr != nil {
		rc = -1
	}
	if err := s.conn.WriteI32(rc); err != nil {
		return err
	}
	if err := s.conn.WriteBytes(marshalStat(&st)); err != nil {
		return err
	}
	if rc < 0 {
		return s.conn.WriteI32(errnoOf(serr))
	}
	return nil
}

// writeOpAllowed covers the shared gating logic of spec.md §4.1
// MKDIR/UNLINK/REMOVE/RMDIR: "Require seccomp engaged, require a writable
// mode".
func (s *Server) writeOpAllowed(path string, forUnlink bool) (allowed bool, rejectErrno int32) {
	if !s.seccompEngaged {
		return false, unix.EACCES
	}
	var ok bool
	if forUnlink {
		ok = s.policy.AllowUnlink(path)
	} else {
		ok = s.policy.AllowMkdir(path)
	}
	if !ok {
		return false, unix.EACCES
	}
	return true, 0
}

func (s *Server) handleMkdir() error {
	path, err := s.conn.ReadPath()
	if err != nil {
		return err
	}
	mode, err := s.conn.ReadU32()
	if err != nil {
		return err
	}

	allowed, rejectErrno := s.writeOpAllowed(path, false)
	if !allowed {
		s.reject("mkdir", path)
		return s.replySimple(-1, rejectErrno)
	}

	merr := unix.Mkdir(path, mode)
	if merr != nil {
		return s.replySimple(-1, errnoOf(merr))
	}
	return s.replySimple(0, 0)
}

func (s *Server) handleUnlink() error {
	path, err := s.conn.ReadPath()
	if err != nil {
		return err
	}

	allowed, rejectErrno := s.writeOpAllowed(path, true)
	if !allowed {
		s.reject("unlink", path)
		return s.replySimple(-1, rejectErrno)
	}

	uerr := unix.Unlink(path)
	if uerr != nil {
		return s.replySimple(-1, errnoOf(uerr))
	}
	s.policy.NoteUnlink(path)
	return s.replySimple(0, 0)
}

func (s *Server) handleRmdir() error {
	path, err := s.conn.ReadPath()
	if err != nil {
		return err
	}

	allowed, rejectErrno := s.writeOpAllowed(path, false)
	if !allowed {
		s.reject("rmdir", path)
		return s.replySimple(-1, rejectErrno)
	}

	rerr := unix.Rmdir(path)
	if rerr != nil {
		return s.replySimple(-1, errnoOf(rerr))
	}
	return s.replySimple(0, 0)
}

// handleFtruncate is unconditional per spec.md §4.1: "assumes prior OPEN
// approval authorized write access."
func (s *Server) handleFtruncate() error {
	fd, err := s.conn.ReadI32()
	if err != nil {
		return err
	}
	off, err := s.conn.ReadI64()
	if err != nil {
		return err
	}

	checked := s.fds.Checked(int(fd))
	if checked < 0 {
		return s.replySimple(-1, unix.EBADF)
	}

	terr := unix.Ftruncate(checked, off)
	if terr != nil {
		return s.replySimple(-1, errnoOf(terr))
	}
	return s.replySimple(0, 0)
}

func (s *Server) handleDup() error {
	fd, err := s.conn.ReadI32()
	if err != nil {
		return err
	}

	checked := s.fds.Checked(int(fd))
	if checked < 0 {
		return s.replyOpen(-1, unix.EBADF)
	}

	newfd, derr := unix.Dup(checked)
	if derr != nil {
		return s.replyOpen(-1, errnoOf(derr))
	}
	if newfd >= wire.MaxFD {
		unix.Close(newfd)
		return s.replyOpen(-1, unix.ENFILE)
	}

	s.fds.Set(newfd)
	s.files[newfd] = s.files[checked]
	return s.replyOpen(int32(newfd), 0)
}

func (s *Server) handleDup2() error {
	oldfd, err := s.conn.ReadI32()
	if err != nil {
		return err
	}
	newfd, err := s.conn.ReadI32()
	if err != nil {
		return err
	}

	checked := s.fds.Checked(int(oldfd))
	if checked < 0 {
		return s.replyOpen(-1, unix.EBADF)
	}
	if int(newfd) >= wire.MaxFD {
		return s.replyOpen(-1, unix.ENFILE)
	}

	if derr := unix.Dup2(checked, int(newfd)); derr != nil {
		return s.replyOpen(-1, errnoOf(derr))
	}

	s.fds.Set(int(newfd))
	s.files[int(newfd)] = s.files[checked]
	return s.replyOpen(newfd, 0)
}

func (s *Server) replySimple(rc int32, errno int32) error {
	if err := s.conn.WriteI32(rc); err != nil {
		return err
	}
	if rc < 0 {
		return s.conn.WriteI32(errno)
	}
	return nil
}
