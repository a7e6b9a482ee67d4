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
	"os"

	"golang.org/x/sys/unix"

	"github.com/jacobsa/seccomp-launcher/internal/fdtable"
)

func (s *Server) handleOpendir() error {
	path, err := s.conn.ReadPath()
	if err != nil {
		return err
	}

	if !s.policy.AllowRead(path) {
		s.reject("opendir", path)
		return s.replySimple(-1, unix.EACCES)
	}

	fd, oerr := unix.Open(path, unix.O_RDONLY|unix.O_DIRECTORY, 0)
	if oerr != nil {
		return s.replySimple(-1, errnoOf(oerr))
	}

	f := os.NewFile(uintptr(fd), path)
	handle, ierr := s.dirs.Insert(f)
	if ierr == fdtable.ErrDirTableFull {
		f.Close()
		return s.replySimple(-1, unix.ENFILE)
	}

	s.dirCursors[handle] = &dirCursor{}
	return s.replySimple(int32(handle), 0)
}

func (s *Server) handleReaddir() error {
	handle, err := s.conn.ReadI32()
	if err != nil {
		return err
	}

	f := s.dirs.Get(int(handle))
	if f == nil {
		return s.replySimple(-1, unix.EBADF)
	}

	cursor := s.dirCursors[int(handle)]
	if cursor == nil {
		cursor = &dirCursor{}
		s.dirCursors[int(handle)] = cursor
	}
	record, ok, derr := cursor.next(int(f.Fd()))
	if derr != nil {
		return s.replySimple(-1, errnoOf(derr))
	}
	if !ok {
		// End of directory: status 0, no blob, matching readdir()'s own
		// NULL-without-errno-change convention. Distinct from the "entry
		// follows" status below so the reader never has to guess whether a
		// blob is coming.
		return s.conn.WriteI32(0)
	}

	if err := s.conn.WriteI32(1); err != nil {
		return err
	}
	return s.conn.WriteBytes(padDirentBlob(record))
}

func (s *Server) handleRewinddir() error {
	handle, err := s.conn.ReadI32()
	if err != nil {
		return err
	}

	f := s.dirs.Get(int(handle))
	if f == nil {
		return nil
	}
	unix.Seek(int(f.Fd()), 0, 0)
	if cursor := s.dirCursors[int(handle)]; cursor != nil {
		cursor.reset()
	}
	return nil
}

func (s *Server) handleClosedir() error {
	handle, err := s.conn.ReadI32()
	if err != nil {
		return err
	}

	f := s.dirs.Get(int(handle))
	rc := int32(0)
	if f == nil {
		rc = -1
	} else {
		f.Close()
		s.dirs.Free(int(handle))
		delete(s.dirCursors, int(handle))
	}
	return s.conn.WriteI32(rc)
}

// handleSelectStdin is the narrow substitute for select(1, {0}, ...) of
// spec.md §4.1, used by interactive input. It blocks until stdin is ready
// or an error occurs; if stdin isn't owned by the child at all (it always
// should be, per spec.md §3) it reports not-ready rather than touching the
// real descriptor.
func (s *Server) handleSelectStdin() error {
	if !s.fds.Owned(0) {
		if err := s.conn.WriteI32(0); err != nil {
			return err
		}
		return s.conn.WriteI32(0)
	}

	var readSet unix.FdSet
	readSet.Bits[0] |= 1 // fd 0

	n, err := unix.Select(1, &readSet, nil, nil, nil)
	if err != nil {
		if werr := s.conn.WriteI32(-1); werr != nil {
			return werr
		}
		return s.conn.WriteI32(errnoOf(err))
	}

	isSet := int32(0)
	if readSet.Bits[0]&1 != 0 {
		isSet = 1
	}

	if err := s.conn.WriteI32(int32(n)); err != nil {
		return err
	}
	return s.conn.WriteI32(isSet)
}
