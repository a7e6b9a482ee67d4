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
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/jacobsa/seccomp-launcher/internal/wire"
)

// marshalStat renders a unix.Stat_t as the raw byte layout the kernel's
// stat syscall produced it in, per spec.md §6: "The opaque stat and dirent
// blobs are passed with a known fixed size agreed between the two sides —
// they must be ABI-compatible." Neither side interprets the bytes; the
// shim hands them straight back to libc's caller as a struct stat.
func marshalStat(st *unix.Stat_t) []byte {
	size := int(unsafe.Sizeof(*st))
	b := unsafe.Slice((*byte)(unsafe.Pointer(st)), size)

	out := make([]byte, wire.StatBlobSize)
	copy(out, b)
	return out
}
