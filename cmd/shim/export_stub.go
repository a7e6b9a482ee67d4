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
#include <stdint.h>
#include <sys/types.h>
#include <unistd.h>

static void shim_set_errno(int e) { errno = e; }
*/
import "C"

import (
	"unsafe"

	"github.com/jacobsa/seccomp-launcher/internal/shimcore"
)

//export getcwd
func getcwd(buf *C.char, size C.size_t) *C.char {
	cwd := shimcore.Current().Getcwd()
	if len(cwd)+1 > int(size) {
		C.shim_set_errno(34) // ERANGE
		return nil
	}
	dst := unsafe.Slice((*byte)(unsafe.Pointer(buf)), size)
	copy(dst, cwd)
	dst[len(cwd)] = 0
	return buf
}

//export readlink
func readlink(path *C.char, buf *C.char, bufsiz C.size_t) C.ssize_t {
	// /proc/self/exe is the only readlink target the bootstrap warmup
	// relies on (SPEC_FULL.md §3); anything else answers ENOENT rather
	// than silently fabricating a link.
	if C.GoString(path) != "/proc/self/exe" {
		C.shim_set_errno(2) // ENOENT
		return -1
	}
	target := shimcore.Current().ReadlinkSelfExe()
	n := len(target)
	if n > int(bufsiz) {
		n = int(bufsiz)
	}
	dst := unsafe.Slice((*byte)(unsafe.Pointer(buf)), bufsiz)
	copy(dst, target[:n])
	return C.ssize_t(n)
}

//export getuid
func getuid() C.uint32_t { return C.uint32_t(shimcore.Current().Getuid()) }

//export getgid
func getgid() C.uint32_t { return C.uint32_t(shimcore.Current().Getgid()) }

//export geteuid
func geteuid() C.uint32_t { return C.uint32_t(shimcore.Current().Geteuid()) }

//export getegid
func getegid() C.uint32_t { return C.uint32_t(shimcore.Current().Getegid()) }

//export gethostname
func gethostname(name *C.char, namelen C.size_t) C.int {
	host := shimcore.Current().Hostname()
	if len(host)+1 > int(namelen) {
		C.shim_set_errno(34) // ERANGE
		return -1
	}
	dst := unsafe.Slice((*byte)(unsafe.Pointer(name)), namelen)
	copy(dst, host)
	dst[len(host)] = 0
	return 0
}

//export isatty
func isatty(fd C.int) C.int {
	if shimcore.Current().Isatty(int32(fd)) {
		return 1
	}
	C.shim_set_errno(25) // ENOTTY
	return 0
}

//export fork
func fork() C.int {
	_, errno := shimcore.Current().ForkExecveUnsupported()
	C.shim_set_errno(C.int(errno))
	return -1
}

//export execve
func execve(path *C.char, argv, envp **C.char) C.int {
	_, errno := shimcore.Current().ForkExecveUnsupported()
	C.shim_set_errno(C.int(errno))
	return -1
}
