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

package shimcore

import (
	"golang.org/x/sys/unix"

	"github.com/jacobsa/seccomp-launcher/internal/wire"
)

// rawFD is an io.Reader/io.Writer over a bare file descriptor using the raw
// read/write syscalls directly, per spec.md §4.3: "Every framing operation
// must use the raw system-call primitives (not the interposed ones) so
// that it works after lockdown." unix.Read/unix.Write already are that
// raw primitive — nothing in this package routes through libc.
type rawFD int

func (f rawFD) Read(p []byte) (int, error)  { return unix.Read(int(f), p) }
func (f rawFD) Write(p []byte) (int, error) { return unix.Write(int(f), p) }

// pathTooLong reports whether path exceeds wire.MaxPathLen. Every method
// that writes a path checks this before issuing WriteCmd: the command code
// goes out first on the wire, so discovering the path is too long only
// after that point leaves the connection mid-frame with no way to recover
// — the check has to happen before a single byte is written.
func pathTooLong(path string) bool {
	return len(path) > wire.MaxPathLen
}

// Client is the shim's IPC substrate: a synchronous, non-reentrant framer
// for the command protocol, safe to use only because the shim's precondition
// (spec.md §5) guarantees a single thread ever calls into it.
type Client struct {
	conn *wire.Conn
}

// NewClient wraps the child's two pipe ends — requestFD for writes, replyFD
// for reads — as a Client. Both fds are raw numbers read out of PIPE_IN /
// PIPE_OUT by Bootstrap.
func NewClient(requestFD, replyFD int) *Client {
	return &Client{conn: wire.NewConn(rawFD(replyFD), rawFD(requestFD))}
}

// NotifySeccompEngaged sends HAS_SWITCHED_TO_SECCOMP, which carries no
// reply (spec.md §3).
func (c *Client) NotifySeccompEngaged() error {
	return c.conn.WriteCmd(wire.HasSwitchedToSeccomp)
}

// Open performs OPEN and returns (fd, errno) exactly as spec.md §4.1
// describes the reply shape.
func (c *Client) Open(path string, flags int32, mode uint32) (fd int32, errno int32, err error) {
	if pathTooLong(path) {
		return -1, int32(unix.ENAMETOOLONG), nil
	}
	if err = c.conn.WriteCmd(wire.Open); err != nil {
		return
	}
	if err = c.conn.WritePath(path); err != nil {
		return
	}
	if err = c.conn.WriteI32(flags); err != nil {
		return
	}
	if err = c.conn.WriteU32(mode); err != nil {
		return
	}
	if fd, err = c.conn.ReadI32(); err != nil {
		return
	}
	if fd < 0 {
		errno, err = c.conn.ReadI32()
	}
	return
}

func (c *Client) Close(fd int32) (rc int32, errno int32, err error) {
	if err = c.conn.WriteCmd(wire.Close); err != nil {
		return
	}
	if err = c.conn.WriteI32(fd); err != nil {
		return
	}
	if rc, err = c.conn.ReadI32(); err != nil {
		return
	}
	if rc < 0 {
		errno, err = c.conn.ReadI32()
	}
	return
}

func (c *Client) Read(fd int32, n int) (data []byte, errno int32, err error) {
	if err = c.conn.WriteCmd(wire.Read); err != nil {
		return
	}
	if err = c.conn.WriteI32(fd); err != nil {
		return
	}
	if err = c.conn.WriteU64(uint64(n)); err != nil {
		return
	}
	count, rerr := c.conn.ReadI32()
	if rerr != nil {
		err = rerr
		return
	}
	if count <= 0 {
		errno, err = c.conn.ReadI32()
		return nil, errno, err
	}
	data, err = c.conn.ReadN(int(count))
	return
}

func (c *Client) Write(fd int32, data []byte) (n int32, errno int32, err error) {
	if err = c.conn.WriteCmd(wire.Write); err != nil {
		return
	}
	if err = c.conn.WriteI32(fd); err != nil {
		return
	}
	if err = c.conn.WriteU64(uint64(len(data))); err != nil {
		return
	}
	if err = c.conn.WriteBytes(data); err != nil {
		return
	}
	if n, err = c.conn.ReadI32(); err != nil {
		return
	}
	if n <= 0 {
		errno, err = c.conn.ReadI32()
	}
	return
}

func (c *Client) Seek(fd int32, offset int64, whence int32) (newOffset int64, errno int32, err error) {
	if err = c.conn.WriteCmd(wire.Seek); err != nil {
		return
	}
	if err = c.conn.WriteI32(fd); err != nil {
		return
	}
	if err = c.conn.WriteI64(offset); err != nil {
		return
	}
	if err = c.conn.WriteI32(whence); err != nil {
		return
	}
	if newOffset, err = c.conn.ReadI64(); err != nil {
		return
	}
	if newOffset < 0 {
		errno, err = c.conn.ReadI32()
	}
	return
}

func (c *Client) statCommon(cmd wire.Cmd, writeArgs func() error) (blob []byte, rc int32, errno int32, err error) {
	if err = c.conn.WriteCmd(cmd); err != nil {
		return
	}
	if err = writeArgs(); err != nil {
		return
	}
	if rc, err = c.conn.ReadI32(); err != nil {
		return
	}
	if blob, err = c.conn.ReadN(wire.StatBlobSize); err != nil {
		return
	}
	if rc < 0 {
		errno, err = c.conn.ReadI32()
	}
	return
}

func (c *Client) Stat(path string) (blob []byte, rc int32, errno int32, err error) {
	if pathTooLong(path) {
		return nil, -1, int32(unix.ENAMETOOLONG), nil
	}
	return c.statCommon(wire.Stat, func() error { return c.conn.WritePath(path) })
}

func (c *Client) Fstat(fd int32) (blob []byte, rc int32, errno int32, err error) {
	return c.statCommon(wire.Fstat, func() error { return c.conn.WriteI32(fd) })
}

func (c *Client) simpleReply() (rc int32, errno int32, err error) {
	if rc, err = c.conn.ReadI32(); err != nil {
		return
	}
	if rc < 0 {
		errno, err = c.conn.ReadI32()
	}
	return
}

func (c *Client) Mkdir(path string, mode uint32) (rc int32, errno int32, err error) {
	if pathTooLong(path) {
		return -1, int32(unix.ENAMETOOLONG), nil
	}
	if err = c.conn.WriteCmd(wire.Mkdir); err != nil {
		return
	}
	if err = c.conn.WritePath(path); err != nil {
		return
	}
	if err = c.conn.WriteU32(mode); err != nil {
		return
	}
	return c.simpleReply()
}

func (c *Client) unlinkLike(cmd wire.Cmd, path string) (rc int32, errno int32, err error) {
	if pathTooLong(path) {
		return -1, int32(unix.ENAMETOOLONG), nil
	}
	if err = c.conn.WriteCmd(cmd); err != nil {
		return
	}
	if err = c.conn.WritePath(path); err != nil {
		return
	}
	return c.simpleReply()
}

func (c *Client) Unlink(path string) (int32, int32, error) { return c.unlinkLike(wire.Unlink, path) }
func (c *Client) Remove(path string) (int32, int32, error) { return c.unlinkLike(wire.Remove, path) }
func (c *Client) Rmdir(path string) (int32, int32, error)  { return c.unlinkLike(wire.Rmdir, path) }

func (c *Client) Ftruncate(fd int32, length int64) (rc int32, errno int32, err error) {
	if err = c.conn.WriteCmd(wire.Ftruncate); err != nil {
		return
	}
	if err = c.conn.WriteI32(fd); err != nil {
		return
	}
	if err = c.conn.WriteI64(length); err != nil {
		return
	}
	return c.simpleReply()
}

func (c *Client) Dup(fd int32) (newFD int32, errno int32, err error) {
	if err = c.conn.WriteCmd(wire.Dup); err != nil {
		return
	}
	if err = c.conn.WriteI32(fd); err != nil {
		return
	}
	if newFD, err = c.conn.ReadI32(); err != nil {
		return
	}
	if newFD < 0 {
		errno, err = c.conn.ReadI32()
	}
	return
}

func (c *Client) Dup2(oldFD, newFD int32) (result int32, errno int32, err error) {
	if err = c.conn.WriteCmd(wire.Dup2); err != nil {
		return
	}
	if err = c.conn.WriteI32(oldFD); err != nil {
		return
	}
	if err = c.conn.WriteI32(newFD); err != nil {
		return
	}
	if result, err = c.conn.ReadI32(); err != nil {
		return
	}
	if result < 0 {
		errno, err = c.conn.ReadI32()
	}
	return
}

func (c *Client) Opendir(path string) (handle int32, errno int32, err error) {
	if pathTooLong(path) {
		return -1, int32(unix.ENAMETOOLONG), nil
	}
	if err = c.conn.WriteCmd(wire.Opendir); err != nil {
		return
	}
	if err = c.conn.WritePath(path); err != nil {
		return
	}
	if handle, err = c.conn.ReadI32(); err != nil {
		return
	}
	if handle < 0 {
		errno, err = c.conn.ReadI32()
	}
	return
}

// Readdir requests one directory entry. Status on the wire is 1 (entry
// follows, read the blob), 0 (end of directory, no blob — mirroring
// readdir()'s NULL-without-errno-change), or negative (error, errno
// follows). ok is false for both the end-of-directory and error cases.
func (c *Client) Readdir(handle int32, cmd wire.Cmd) (blob []byte, ok bool, errno int32, err error) {
	if err = c.conn.WriteCmd(cmd); err != nil {
		return
	}
	if err = c.conn.WriteI32(handle); err != nil {
		return
	}
	status, rerr := c.conn.ReadI32()
	if rerr != nil {
		err = rerr
		return
	}
	switch {
	case status < 0:
		errno, err = c.conn.ReadI32()
		return nil, false, errno, err
	case status == 0:
		return nil, false, 0, nil
	default:
		blob, err = c.conn.ReadN(wire.DirentBlobSize)
		return blob, true, 0, err
	}
}

func (c *Client) Rewinddir(handle int32) error {
	if err := c.conn.WriteCmd(wire.Rewinddir); err != nil {
		return err
	}
	return c.conn.WriteI32(handle)
}

func (c *Client) Closedir(handle int32) (rc int32, err error) {
	if err = c.conn.WriteCmd(wire.Closedir); err != nil {
		return
	}
	if err = c.conn.WriteI32(handle); err != nil {
		return
	}
	rc, err = c.conn.ReadI32()
	return
}

func (c *Client) SelectStdin() (result int32, isSet bool, errno int32, err error) {
	if err = c.conn.WriteCmd(wire.SelectStdin); err != nil {
		return
	}
	if result, err = c.conn.ReadI32(); err != nil {
		return
	}
	flag, ferr := c.conn.ReadI32()
	if ferr != nil {
		err = ferr
		return
	}
	isSet = flag != 0
	if result < 0 {
		errno = int32(flag)
	}
	return
}
