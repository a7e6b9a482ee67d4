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

// stdio.go implements spec.md §4.5's stdio surface on top of the raw fd
// operations in fileops.go. A FILE* in the target process is a small
// struct cmd/shim mallocs holding only the fd OpenFile/Fopen handed back;
// every method here takes that fd — there is no separate buffering layer here,
// matching the target's observed behavior (every stdio call forwards
// immediately rather than batching writes, since the supervisor is the
// only thing actually touching a disk).
package shimcore

import (
	"golang.org/x/sys/unix"
)

// Fopen translates an fopen(3) mode string into open(2) flags and forwards
// to OpenFile.
func (s *State) Fopen(path string, mode string) (fd int32, errno int32) {
	flags, ok := fopenFlags(mode)
	if !ok {
		return -1, int32(unix.EINVAL)
	}
	return s.OpenFile(path, flags, 0644)
}

func fopenFlags(mode string) (int32, bool) {
	plus := len(mode) > 1 && mode[1] == '+'
	switch mode[:1] {
	case "r":
		if plus {
			return unix.O_RDWR, true
		}
		return unix.O_RDONLY, true
	case "w":
		if plus {
			return unix.O_RDWR | unix.O_CREAT | unix.O_TRUNC, true
		}
		return unix.O_WRONLY | unix.O_CREAT | unix.O_TRUNC, true
	case "a":
		if plus {
			return unix.O_RDWR | unix.O_CREAT | unix.O_APPEND, true
		}
		return unix.O_WRONLY | unix.O_CREAT | unix.O_APPEND, true
	default:
		return 0, false
	}
}

// Fclose is CloseFile under the name the stdio export uses; it exists
// separately so cmd/shim's fclose export doesn't have to know the two are
// the same operation.
func (s *State) Fclose(fd int32) (rc int32, errno int32) {
	return s.CloseFile(fd)
}

func (s *State) Fread(fd int32, buf []byte) (n int32, errno int32) {
	return s.ReadFile(fd, buf)
}

func (s *State) Fwrite(fd int32, buf []byte) (n int32, errno int32) {
	return s.WriteFile(fd, buf)
}

// whence values match the C library's SEEK_SET/SEEK_CUR/SEEK_END, which
// are themselves the same integers the kernel's lseek(2) uses — fseek
// passes them straight through.
func (s *State) Fseek(fd int32, offset int64, whence int32) (rc int32, errno int32) {
	_, errno = s.SeekFile(fd, offset, whence)
	if errno != 0 {
		return -1, errno
	}
	return 0, 0
}

// Ftell answers from the locally cached offset ReadFile/WriteFile/SeekFile
// maintain, rather than issuing a real SEEK_CUR round trip — ftell
// immediately after fwrite(n) must read back priorOffset+n without ever
// talking to the supervisor (spec.md §4.5).
func (s *State) Ftell(fd int32) (offset int64, errno int32) {
	return s.Files.Offset(fd), 0
}

func (s *State) Feof(fd int32) bool {
	return s.Files.EOF(fd)
}

func (s *State) Ferror(fd int32) bool {
	return s.Files.HasError(fd)
}

func (s *State) Clearerr(fd int32) {
	s.Files.ClearError(fd)
}

// Fileno is trivial here: the fd is the only thing the FILE*-equivalent
// struct cmd/shim carries, and it is the same number OPEN's reply gave.
func (s *State) Fileno(fd int32) int32 {
	return fd
}

// Vfprintf is the funnel every member of the printf family reduces to:
// cmd/shim's cgo layer does the actual vsnprintf formatting (it alone has
// the va_list), then hands the fully-formatted bytes here to write exactly
// once. This keeps %-format parsing out of the pure-Go layer entirely,
// which has no business interpreting a C format string.
func (s *State) Vfprintf(fd int32, formatted []byte) (n int32, errno int32) {
	return s.Fwrite(fd, formatted)
}
