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
	"encoding/binary"

	"golang.org/x/sys/unix"

	"github.com/jacobsa/seccomp-launcher/internal/wire"
)

// direntReclenOffset and direntReclenSize locate the reclen field within a
// raw linux_dirent64 record: { ino uint64; off uint64; reclen uint16; type
// uint8; name[] }. libc's readdir() yields one such record per call even
// though the kernel's getdents64 syscall returns them in batches; dirCursor
// reproduces that by buffering a batch and handing out one record at a
// time.
const direntReclenOffset = 16

// dirCursor buffers the raw bytes of one unconsumed getdents64 batch for a
// single open directory handle, so READDIR can hand the shim one
// fixed-size blob per call.
type dirCursor struct {
	buf    []byte
	offset int
}

// next returns the next raw dirent64 record, refilling from fd via
// getdents64 if the buffer is exhausted. ok is false at end of directory.
func (c *dirCursor) next(fd int) (record []byte, ok bool, err error) {
	if c.offset >= len(c.buf) {
		c.buf = make([]byte, 32*1024)
		n, gerr := unix.Getdents(fd, c.buf)
		if gerr != nil {
			return nil, false, gerr
		}
		if n == 0 {
			return nil, false, nil
		}
		c.buf = c.buf[:n]
		c.offset = 0
	}

	reclen := int(binary.LittleEndian.Uint16(c.buf[c.offset+direntReclenOffset : c.offset+direntReclenOffset+2]))
	if reclen <= 0 || c.offset+reclen > len(c.buf) {
		return nil, false, unix.EIO
	}

	record = c.buf[c.offset : c.offset+reclen]
	c.offset += reclen
	return record, true, nil
}

// reset discards any buffered records, so the next call to next re-reads
// from the directory's current (post-rewind) offset.
func (c *dirCursor) reset() {
	c.buf = nil
	c.offset = 0
}

// padDirentBlob fits one raw dirent64 record into the fixed wire.DirentBlobSize
// envelope the protocol exchanges, zero-padding beyond the record's own
// reclen. The consumer trusts the record's own reclen/type fields, not the
// envelope size.
func padDirentBlob(record []byte) []byte {
	out := make([]byte, wire.DirentBlobSize)
	copy(out, record)
	return out
}
