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
#include <dirent.h>
#include <errno.h>
#include <stdint.h>
#include <stdlib.h>

// A DIR* is opaque to every caller by contract; nothing in the target
// program is entitled to look inside it. That lets this shim use its own
// layout instead of glibc's — a token identifying the supervisor-side
// stream, plus a reusable buffer for the dirent64 readdir() hands back
// (reused across calls on the same stream, matching glibc's own behavior
// of owning that storage).
typedef struct {
	int32_t token;
	char dirent_buf[280];
} shim_dir_t;

static void shim_set_errno(int e) { errno = e; }
*/
import "C"

import (
	"unsafe"

	"github.com/jacobsa/seccomp-launcher/internal/shimcore"
	"github.com/jacobsa/seccomp-launcher/internal/wire"
)

//export opendir
func opendir(path *C.char) *C.DIR {
	token, errno := shimcore.Current().Opendir(C.GoString(path))
	if errno != 0 {
		C.shim_set_errno(C.int(errno))
		return nil
	}
	d := (*C.shim_dir_t)(C.malloc(C.sizeof_shim_dir_t))
	d.token = C.int32_t(token)
	return (*C.DIR)(unsafe.Pointer(d))
}

//export readdir
func readdir(dir *C.DIR) *C.struct_dirent {
	d := (*C.shim_dir_t)(unsafe.Pointer(dir))
	buf := unsafe.Slice((*byte)(unsafe.Pointer(&d.dirent_buf[0])), len(d.dirent_buf))
	hasEntry, errno := shimcore.Current().ReaddirInto(int32(d.token), buf, wire.Readdir)
	if errno != 0 {
		C.shim_set_errno(C.int(errno))
		return nil
	}
	if !hasEntry {
		return nil
	}
	return (*C.struct_dirent)(unsafe.Pointer(&d.dirent_buf[0]))
}

//export readdir64
func readdir64(dir *C.DIR) *C.struct_dirent64 {
	d := (*C.shim_dir_t)(unsafe.Pointer(dir))
	buf := unsafe.Slice((*byte)(unsafe.Pointer(&d.dirent_buf[0])), len(d.dirent_buf))
	hasEntry, errno := shimcore.Current().ReaddirInto(int32(d.token), buf, wire.Readdir64)
	if errno != 0 {
		C.shim_set_errno(C.int(errno))
		return nil
	}
	if !hasEntry {
		return nil
	}
	return (*C.struct_dirent64)(unsafe.Pointer(&d.dirent_buf[0]))
}

//export rewinddir
func rewinddir(dir *C.DIR) {
	d := (*C.shim_dir_t)(unsafe.Pointer(dir))
	shimcore.Current().Rewinddir(int32(d.token))
}

//export closedir
func closedir(dir *C.DIR) C.int {
	d := (*C.shim_dir_t)(unsafe.Pointer(dir))
	rc := shimcore.Current().Closedir(int32(d.token))
	C.free(unsafe.Pointer(d))
	return C.int(rc)
}
