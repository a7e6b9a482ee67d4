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

package main

/*
#include <errno.h>
#include <sys/stat.h>
#include <sys/types.h>
#include <unistd.h>

// errno is a macro in glibc, not a plain extern int, so cgo can't assign
// to it directly from Go; routing the assignment through a tiny helper is
// the usual workaround.
static void shim_set_errno(int e) { errno = e; }
*/
import "C"

import (
	"unsafe"

	"github.com/jacobsa/seccomp-launcher/internal/shimcore"
)

func setErrno(errno int32) {
	if errno != 0 {
		C.shim_set_errno(C.int(errno))
	}
}

// open intentionally takes a fixed third argument rather than the real
// open(2)'s variadic mode — cgo cannot export a variadic C function, and
// every call site the bootstrap's pre-lockdown warmup and the target
// program make always passes a mode, even if it's ignored for O_RDONLY.
//
//export open
func open(path *C.char, flags C.int, mode C.mode_t) C.int {
	fd, errno := shimcore.Current().OpenFile(C.GoString(path), int32(flags), uint32(mode))
	setErrno(errno)
	return C.int(fd)
}

//export close
func close(fd C.int) C.int {
	rc, errno := shimcore.Current().CloseFile(int32(fd))
	setErrno(errno)
	return C.int(rc)
}

//export read
func read(fd C.int, buf unsafe.Pointer, count C.size_t) C.ssize_t {
	slice := unsafe.Slice((*byte)(buf), int(count))
	n, errno := shimcore.Current().ReadFile(int32(fd), slice)
	setErrno(errno)
	return C.ssize_t(n)
}

//export write
func write(fd C.int, buf unsafe.Pointer, count C.size_t) C.ssize_t {
	slice := unsafe.Slice((*byte)(buf), int(count))
	n, errno := shimcore.Current().WriteFile(int32(fd), slice)
	setErrno(errno)
	return C.ssize_t(n)
}

//export lseek
func lseek(fd C.int, offset C.off_t, whence C.int) C.off_t {
	newOffset, errno := shimcore.Current().SeekFile(int32(fd), int64(offset), int32(whence))
	setErrno(errno)
	return C.off_t(newOffset)
}

//export stat
func stat(path *C.char, buf *C.struct_stat) C.int {
	out := unsafe.Slice((*byte)(unsafe.Pointer(buf)), C.sizeof_struct_stat)
	rc, errno := shimcore.Current().StatFile(C.GoString(path), out)
	setErrno(errno)
	return C.int(rc)
}

//export fstat
func fstat(fd C.int, buf *C.struct_stat) C.int {
	out := unsafe.Slice((*byte)(unsafe.Pointer(buf)), C.sizeof_struct_stat)
	rc, errno := shimcore.Current().FstatFile(int32(fd), out)
	setErrno(errno)
	return C.int(rc)
}

//export mkdir
func mkdir(path *C.char, mode C.mode_t) C.int {
	rc, errno := shimcore.Current().Mkdir(C.GoString(path), uint32(mode))
	setErrno(errno)
	return C.int(rc)
}

//export unlink
func unlink(path *C.char) C.int {
	rc, errno := shimcore.Current().Unlink(C.GoString(path))
	setErrno(errno)
	return C.int(rc)
}

//export remove
func remove(path *C.char) C.int {
	rc, errno := shimcore.Current().Remove(C.GoString(path))
	setErrno(errno)
	return C.int(rc)
}

//export rmdir
func rmdir(path *C.char) C.int {
	rc, errno := shimcore.Current().Rmdir(C.GoString(path))
	setErrno(errno)
	return C.int(rc)
}

//export ftruncate
func ftruncate(fd C.int, length C.off_t) C.int {
	rc, errno := shimcore.Current().Ftruncate(int32(fd), int64(length))
	setErrno(errno)
	return C.int(rc)
}

//export dup
func dup(fd C.int) C.int {
	newFD, errno := shimcore.Current().DupFile(int32(fd))
	setErrno(errno)
	return C.int(newFD)
}

//export dup2
func dup2(oldFD, newFD C.int) C.int {
	result, errno := shimcore.Current().Dup2File(int32(oldFD), int32(newFD))
	setErrno(errno)
	return C.int(result)
}
