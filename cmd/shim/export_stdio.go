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
#include <stdarg.h>
#include <stdint.h>
#include <stdio.h>
#include <stdlib.h>

// Like DIR, a FILE* is opaque to every caller; this shim's own layout
// needs nothing more than the fd fread/fwrite/fseek already forward on.
typedef struct {
	int32_t fd;
} shim_file_t;

static void shim_set_errno(int e) { errno = e; }

extern long long shimVfprintfBytes(int32_t fd, void *buf, long long n);

// printf's whole family reduces to vsnprintf plus one write, and va_list
// construction/consumption has no Go representation at all — it's the one
// piece of genuine logic this package keeps in C rather than delegating to
// internal/shimcore, narrowly scoped to interpreting the format string.
static int shim_vfprintf(shim_file_t *f, const char *format, va_list ap) {
	char buf[4096];
	int n = vsnprintf(buf, sizeof(buf), format, ap);
	if (n < 0) {
		return n;
	}
	if ((size_t)n >= sizeof(buf)) {
		n = sizeof(buf) - 1;
	}
	long long written = shimVfprintfBytes(f->fd, buf, (long long)n);
	if (written < 0) {
		return -1;
	}
	return (int)written;
}

int fprintf(shim_file_t *stream, const char *format, ...) {
	va_list ap;
	va_start(ap, format);
	int n = shim_vfprintf(stream, format, ap);
	va_end(ap);
	return n;
}

int printf(const char *format, ...) {
	static shim_file_t stdout_file = {1};
	va_list ap;
	va_start(ap, format);
	int n = shim_vfprintf(&stdout_file, format, ap);
	va_end(ap);
	return n;
}
*/
import "C"

import (
	"unsafe"

	"github.com/jacobsa/seccomp-launcher/internal/shimcore"
)

//export shimVfprintfBytes
func shimVfprintfBytes(fd C.int32_t, buf unsafe.Pointer, n C.longlong) C.longlong {
	slice := unsafe.Slice((*byte)(buf), int(n))
	written, errno := shimcore.Current().Vfprintf(int32(fd), slice)
	setErrno(errno)
	return C.longlong(written)
}

//export fopen
func fopen(path *C.char, mode *C.char) *C.shim_file_t {
	fd, errno := shimcore.Current().Fopen(C.GoString(path), C.GoString(mode))
	if errno != 0 {
		C.shim_set_errno(C.int(errno))
		return nil
	}
	f := (*C.shim_file_t)(C.malloc(C.sizeof_shim_file_t))
	f.fd = C.int32_t(fd)
	return f
}

//export fclose
func fclose(stream *C.shim_file_t) C.int {
	rc, errno := shimcore.Current().Fclose(int32(stream.fd))
	setErrno(errno)
	C.free(unsafe.Pointer(stream))
	return C.int(rc)
}

//export fread
func fread(ptr unsafe.Pointer, size, nmemb C.size_t, stream *C.shim_file_t) C.size_t {
	total := int(size) * int(nmemb)
	buf := unsafe.Slice((*byte)(ptr), total)
	n, errno := shimcore.Current().Fread(int32(stream.fd), buf)
	setErrno(errno)
	if size == 0 {
		return 0
	}
	return C.size_t(int(n) / int(size))
}

//export fwrite
func fwrite(ptr unsafe.Pointer, size, nmemb C.size_t, stream *C.shim_file_t) C.size_t {
	total := int(size) * int(nmemb)
	buf := unsafe.Slice((*byte)(ptr), total)
	n, errno := shimcore.Current().Fwrite(int32(stream.fd), buf)
	setErrno(errno)
	if size == 0 {
		return 0
	}
	return C.size_t(int(n) / int(size))
}

//export fseek
func fseek(stream *C.shim_file_t, offset C.long, whence C.int) C.int {
	rc, errno := shimcore.Current().Fseek(int32(stream.fd), int64(offset), int32(whence))
	setErrno(errno)
	return C.int(rc)
}

//export ftell
func ftell(stream *C.shim_file_t) C.long {
	offset, errno := shimcore.Current().Ftell(int32(stream.fd))
	setErrno(errno)
	return C.long(offset)
}

//export feof
func feof(stream *C.shim_file_t) C.int {
	if shimcore.Current().Feof(int32(stream.fd)) {
		return 1
	}
	return 0
}

//export ferror
func ferror(stream *C.shim_file_t) C.int {
	if shimcore.Current().Ferror(int32(stream.fd)) {
		return 1
	}
	return 0
}

//export clearerr
func clearerr(stream *C.shim_file_t) {
	shimcore.Current().Clearerr(int32(stream.fd))
}

//export fileno
func fileno(stream *C.shim_file_t) C.int {
	return C.int(shimcore.Current().Fileno(int32(stream.fd)))
}

//export fputs
func fputs(s *C.char, stream *C.shim_file_t) C.int {
	b := C.GoString(s)
	_, errno := shimcore.Current().Fwrite(int32(stream.fd), []byte(b))
	setErrno(errno)
	if errno != 0 {
		return -1
	}
	return 0
}

//export puts
func puts(s *C.char) C.int {
	b := append([]byte(C.GoString(s)), '\n')
	_, errno := shimcore.Current().Fwrite(1, b)
	setErrno(errno)
	if errno != 0 {
		return -1
	}
	return 0
}
