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

// fileops.go implements the file/dir intercept surface of spec.md §4.4: the
// libc calls a preloaded shim must forward to the supervisor instead of
// letting the kernel see them directly. Every exported method here returns
// a (result, errno) pair in the libc convention — negative/zero-ish result,
// positive errno — so that cmd/shim's //export wrappers only have to copy
// the pair into C's errno global and the call's return value, never decide
// anything themselves.
package shimcore

import (
	"golang.org/x/sys/unix"

	"github.com/jacobsa/seccomp-launcher/internal/wire"
)

// OpenFile forwards open(2)/creat(2).
func (s *State) OpenFile(path string, flags int32, mode uint32) (fd int32, errno int32) {
	fd, errno, err := s.Client.Open(path, flags, mode)
	if err != nil {
		return -1, int32(unix.EIO)
	}
	if fd >= 0 {
		writable := int(flags)&unix.O_ACCMODE != unix.O_RDONLY
		s.Files.Register(fd, path, writable)
	}
	return fd, errno
}

func (s *State) CloseFile(fd int32) (rc int32, errno int32) {
	rc, errno, err := s.Client.Close(fd)
	if err != nil {
		return -1, int32(unix.EIO)
	}
	if rc == 0 {
		s.Files.Forget(fd)
	}
	return rc, errno
}

// ReadFile reads into buf, returning the number of bytes actually placed
// there. It updates the shim's local EOF/error bookkeeping so feof/ferror
// can answer without a round trip, per spec.md §4.5.
func (s *State) ReadFile(fd int32, buf []byte) (n int32, errno int32) {
	data, errno, err := s.Client.Read(fd, len(buf))
	if err != nil {
		s.Files.SetError(fd, true)
		return -1, int32(unix.EIO)
	}
	if errno != 0 {
		s.Files.SetError(fd, true)
		return -1, errno
	}
	copy(buf, data)
	if len(data) == 0 {
		s.Files.SetEOF(fd, true)
	} else {
		s.Files.AddOffset(fd, int64(len(data)))
	}
	return int32(len(data)), 0
}

func (s *State) WriteFile(fd int32, buf []byte) (n int32, errno int32) {
	n, errno, err := s.Client.Write(fd, buf)
	if err != nil {
		s.Files.SetError(fd, true)
		return -1, int32(unix.EIO)
	}
	if n < 0 {
		s.Files.SetError(fd, true)
	} else {
		s.Files.AddOffset(fd, int64(n))
	}
	return n, errno
}

func (s *State) SeekFile(fd int32, offset int64, whence int32) (newOffset int64, errno int32) {
	newOffset, errno, err := s.Client.Seek(fd, offset, whence)
	if err != nil {
		return -1, int32(unix.EIO)
	}
	if newOffset >= 0 {
		s.Files.SetEOF(fd, false)
		s.Files.SetOffset(fd, newOffset)
	}
	return newOffset, errno
}

// StatFile copies the raw blob into out, which must be at least
// wire.StatBlobSize bytes — the same opaque struct stat layout the caller's
// libc expects, verbatim.
func (s *State) StatFile(path string, out []byte) (rc int32, errno int32) {
	blob, rc, errno, err := s.Client.Stat(path)
	if err != nil {
		return -1, int32(unix.EIO)
	}
	copy(out, blob)
	return rc, errno
}

func (s *State) FstatFile(fd int32, out []byte) (rc int32, errno int32) {
	blob, rc, errno, err := s.Client.Fstat(fd)
	if err != nil {
		return -1, int32(unix.EIO)
	}
	copy(out, blob)
	return rc, errno
}

func (s *State) Mkdir(path string, mode uint32) (rc int32, errno int32) {
	rc, errno, err := s.Client.Mkdir(path, mode)
	if err != nil {
		return -1, int32(unix.EIO)
	}
	return rc, errno
}

func (s *State) Unlink(path string) (rc int32, errno int32) {
	rc, errno, err := s.Client.Unlink(path)
	if err != nil {
		return -1, int32(unix.EIO)
	}
	return rc, errno
}

// Remove forwards the stdio-level remove(), which the shim's server side
// treats identically to unlink() of a non-directory (spec.md §4.4).
func (s *State) Remove(path string) (rc int32, errno int32) {
	rc, errno, err := s.Client.Remove(path)
	if err != nil {
		return -1, int32(unix.EIO)
	}
	return rc, errno
}

func (s *State) Rmdir(path string) (rc int32, errno int32) {
	rc, errno, err := s.Client.Rmdir(path)
	if err != nil {
		return -1, int32(unix.EIO)
	}
	return rc, errno
}

func (s *State) Ftruncate(fd int32, length int64) (rc int32, errno int32) {
	rc, errno, err := s.Client.Ftruncate(fd, length)
	if err != nil {
		return -1, int32(unix.EIO)
	}
	return rc, errno
}

func (s *State) DupFile(fd int32) (newFD int32, errno int32) {
	newFD, errno, err := s.Client.Dup(fd)
	if err != nil {
		return -1, int32(unix.EIO)
	}
	if newFD >= 0 {
		s.Files.Alias(fd, newFD)
	}
	return newFD, errno
}

func (s *State) Dup2File(oldFD, newFD int32) (result int32, errno int32) {
	result, errno, err := s.Client.Dup2(oldFD, newFD)
	if err != nil {
		return -1, int32(unix.EIO)
	}
	if result >= 0 {
		s.Files.Alias(oldFD, newFD)
	}
	return result, errno
}

// Opendir returns a local token for cmd/shim to embed in the DIR* it
// mallocs, not the supervisor's own handle — see DirTable's doc comment.
func (s *State) Opendir(path string) (token int32, errno int32) {
	handle, errno, err := s.Client.Opendir(path)
	if err != nil {
		return -1, int32(unix.EIO)
	}
	if handle < 0 {
		return -1, errno
	}
	tok, ok := s.Dirs.Register(handle)
	if !ok {
		s.Client.Closedir(handle)
		return -1, int32(unix.ENFILE)
	}
	return int32(tok), 0
}

// ReaddirInto copies the next raw dirent64 blob into out (at least
// wire.DirentBlobSize bytes). hasEntry is false at end of directory, with
// errno left at 0 to match readdir()'s own "NULL means either EOF or error,
// check errno" ambiguity resolved here by the caller checking errno.
func (s *State) ReaddirInto(token int32, out []byte, cmd wire.Cmd) (hasEntry bool, errno int32) {
	supHandle, ok := s.Dirs.Lookup(int(token))
	if !ok {
		return false, int32(unix.EBADF)
	}
	blob, ok, errno, err := s.Client.Readdir(supHandle, cmd)
	if err != nil {
		return false, int32(unix.EIO)
	}
	if !ok {
		return false, errno
	}
	copy(out, blob)
	return true, 0
}

func (s *State) Rewinddir(token int32) {
	if supHandle, ok := s.Dirs.Lookup(int(token)); ok {
		s.Client.Rewinddir(supHandle)
	}
}

func (s *State) Closedir(token int32) (rc int32) {
	supHandle, ok := s.Dirs.Lookup(int(token))
	if !ok {
		return -1
	}
	rc, _ = s.Client.Closedir(supHandle)
	s.Dirs.Release(int(token))
	return rc
}

// SelectStdin forwards the narrow select(1, {0}, ...) substitute of
// spec.md §4.1.
func (s *State) SelectStdin() (result int32, isSet bool, errno int32) {
	result, isSet, errno, err := s.Client.SelectStdin()
	if err != nil {
		return -1, false, int32(unix.EIO)
	}
	return result, isSet, errno
}
