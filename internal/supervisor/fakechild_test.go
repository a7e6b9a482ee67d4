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

package supervisor_test

import (
	"io"
	"os"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/jacobsa/seccomp-launcher/internal/policy"
	"github.com/jacobsa/seccomp-launcher/internal/supervisor"
	"github.com/jacobsa/seccomp-launcher/internal/wire"
)

// fakeChild drives a supervisor.Server exactly the way the real shim's IPC
// substrate would, over an in-process pipe pair, standing in for the
// LD_PRELOAD-ed binary spec.md §8's end-to-end scenarios describe. It lets
// the supervisor package's tests assert those scenarios without needing a
// real cgo shim or a seccomp-capable kernel.
type fakeChild struct {
	conn *wire.Conn
}

func newHarness(t *testing.T, mode policy.Mode, args []string, sysReads []policy.SystemRead) (*fakeChild, func()) {
	t.Helper()

	reqR, reqW, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	repR, repW, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}

	pol := policy.NewPolicy(mode, args, sysReads)
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	srv := supervisor.NewServer(reqR, repW, pol, logger)

	done := make(chan error, 1)
	go func() { done <- srv.Serve() }()

	child := &fakeChild{conn: wire.NewConn(repR, reqW)}

	cleanup := func() {
		reqW.Close()
		repR.Close()
		<-done
	}

	return child, cleanup
}

func (c *fakeChild) open(path string, flags int32, mode uint32) (fd int32, errno int32) {
	must(c.conn.WriteCmd(wire.Open))
	must(c.conn.WritePath(path))
	must(c.conn.WriteI32(flags))
	must(c.conn.WriteU32(mode))

	fd = must32(c.conn.ReadI32())
	if fd < 0 {
		errno = must32(c.conn.ReadI32())
	}
	return
}

func (c *fakeChild) close(fd int32) (rc int32, errno int32) {
	must(c.conn.WriteCmd(wire.Close))
	must(c.conn.WriteI32(fd))
	rc = must32(c.conn.ReadI32())
	if rc < 0 {
		errno = must32(c.conn.ReadI32())
	}
	return
}

func (c *fakeChild) write(fd int32, data []byte) (n int32, errno int32) {
	must(c.conn.WriteCmd(wire.Write))
	must(c.conn.WriteI32(fd))
	must(c.conn.WriteU64(uint64(len(data))))
	must(c.conn.WriteBytes(data))
	n = must32(c.conn.ReadI32())
	if n <= 0 {
		errno = must32(c.conn.ReadI32())
	}
	return
}

func (c *fakeChild) read(fd int32, n int) (data []byte, errno int32) {
	must(c.conn.WriteCmd(wire.Read))
	must(c.conn.WriteI32(fd))
	must(c.conn.WriteU64(uint64(n)))
	count := must32(c.conn.ReadI32())
	if count <= 0 {
		errno = must32(c.conn.ReadI32())
		return nil, errno
	}
	b, err := c.conn.ReadN(int(count))
	if err != nil {
		panic(err)
	}
	return b, 0
}

func (c *fakeChild) seek(fd int32, off int64, whence int32) (newOff int64, errno int32) {
	must(c.conn.WriteCmd(wire.Seek))
	must(c.conn.WriteI32(fd))
	must(c.conn.WriteI64(off))
	must(c.conn.WriteI32(whence))
	newOff, err := c.conn.ReadI64()
	if err != nil {
		panic(err)
	}
	if newOff < 0 {
		errno = must32(c.conn.ReadI32())
	}
	return
}

func (c *fakeChild) hasSwitchedToSeccomp() {
	must(c.conn.WriteCmd(wire.HasSwitchedToSeccomp))
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}

func must32(v int32, err error) int32 {
	if err != nil {
		panic(err)
	}
	return v
}
