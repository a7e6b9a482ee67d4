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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/jacobsa/seccomp-launcher/internal/policy"
)

// TestROBaseline covers spec.md §8 scenario 1: a read of an allowed system
// path succeeds under -ro.
func TestROBaseline(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "inputrc")
	require.NoError(t, os.WriteFile(target, []byte("set bell-style none\n"), 0o644))

	sysReads := []policy.SystemRead{{Path: target}}
	child, cleanup := newHarness(t, policy.RO, nil, sysReads)
	defer cleanup()

	child.hasSwitchedToSeccomp()

	fd, errno := child.open(target, unix.O_RDONLY, 0)
	require.GreaterOrEqual(t, fd, int32(0), "errno=%d", errno)

	data, errno := child.read(fd, 64)
	require.Equal(t, int32(0), errno)
	assert.Equal(t, "set bell-style none\n", string(data))

	rc, _ := child.close(fd)
	assert.Equal(t, int32(0), rc)
}

// TestRODeniesWrite covers spec.md §8 scenario 2: fopen for write under -ro
// is rejected with EACCES, and the supervisor substitutes fd=-1.
func TestRODeniesWrite(t *testing.T) {
	child, cleanup := newHarness(t, policy.RO, nil, nil)
	defer cleanup()

	child.hasSwitchedToSeccomp()

	fd, errno := child.open("/tmp/out.txt", unix.O_WRONLY|unix.O_CREAT|unix.O_TRUNC, 0o644)
	assert.Equal(t, int32(-1), fd)
	assert.Equal(t, int32(unix.EACCES), errno)
}

// TestRWTmpRoundTrip covers spec.md §8 scenario 3.
func TestRWTmpRoundTrip(t *testing.T) {
	child, cleanup := newHarness(t, policy.RW, nil, nil)
	defer cleanup()

	child.hasSwitchedToSeccomp()

	path := filepath.Join("/tmp", "seccomp-launcher-test-roundtrip")
	defer os.Remove(path)

	fd, errno := child.open(path, unix.O_WRONLY|unix.O_CREAT|unix.O_TRUNC, 0o644)
	require.GreaterOrEqual(t, fd, int32(0), "errno=%d", errno)

	n, werrno := child.write(fd, []byte("hello\n"))
	require.Equal(t, int32(0), werrno)
	assert.Equal(t, int32(6), n)

	rc, _ := child.close(fd)
	require.Equal(t, int32(0), rc)

	fd2, errno2 := child.open(path, unix.O_RDONLY, 0)
	require.GreaterOrEqual(t, fd2, int32(0), "errno=%d", errno2)

	data, rerrno := child.read(fd2, 64)
	require.Equal(t, int32(0), rerrno)
	assert.Equal(t, "hello\n", string(data))
}

// TestWriteThenSeekThenReadRoundTrip covers the spec.md §8 round-trip
// invariant: write(buf) then lseek(0, SEEK_SET) then read(len(buf)) yields
// buf back bytewise.
func TestWriteThenSeekThenReadRoundTrip(t *testing.T) {
	child, cleanup := newHarness(t, policy.RW, nil, nil)
	defer cleanup()

	child.hasSwitchedToSeccomp()

	path := filepath.Join("/tmp", "seccomp-launcher-test-seek")
	defer os.Remove(path)

	fd, errno := child.open(path, unix.O_RDWR|unix.O_CREAT|unix.O_TRUNC, 0o644)
	require.GreaterOrEqual(t, fd, int32(0), "errno=%d", errno)

	buf := []byte("round-trip-bytes")
	n, werrno := child.write(fd, buf)
	require.Equal(t, int32(0), werrno)
	require.Equal(t, int32(len(buf)), n)

	off, serrno := child.seek(fd, 0, 0) // SEEK_SET
	require.Equal(t, int32(0), serrno)
	require.Equal(t, int64(0), off)

	got, rerrno := child.read(fd, len(buf))
	require.Equal(t, int32(0), rerrno)
	assert.Equal(t, buf, got)
}

// TestAllowlistedArgvPath covers spec.md §8: "For all paths P named on the
// command line: in strict mode, the child may open P for read."
func TestAllowlistedArgvPath(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "script.py")
	require.NoError(t, os.WriteFile(target, []byte("print(1)\n"), 0o644))

	child, cleanup := newHarness(t, policy.RO, []string{target}, nil)
	defer cleanup()

	child.hasSwitchedToSeccomp()

	fd, errno := child.open(target, unix.O_RDONLY, 0)
	assert.GreaterOrEqual(t, fd, int32(0), "errno=%d", errno)
}

// TestFDNotOwnedAlwaysFails covers spec.md §8: "Reads/writes/seeks with fd
// not present in the supervisor's table always fail."
func TestFDNotOwnedAlwaysFails(t *testing.T) {
	child, cleanup := newHarness(t, policy.RWExtended, nil, nil)
	defer cleanup()

	_, errno := child.read(99, 16)
	assert.Equal(t, int32(unix.EBADF), errno)

	_, werrno := child.write(99, []byte("x"))
	assert.Equal(t, int32(unix.EBADF), werrno)

	_, serrno := child.seek(99, 0, 0)
	assert.Equal(t, int32(unix.EBADF), serrno)
}

// TestBootstrapOpenBypassesPolicy covers spec.md §4.1 OPEN rule (i): before
// HAS_SWITCHED_TO_SECCOMP, OPEN is accepted unconditionally.
func TestBootstrapOpenBypassesPolicy(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "native_ext.so")
	require.NoError(t, os.WriteFile(target, []byte("\x7fELF"), 0o644))

	child, cleanup := newHarness(t, policy.RO, nil, nil) // no allowlist at all
	defer cleanup()

	fd, errno := child.open(target, unix.O_RDONLY, 0)
	assert.GreaterOrEqual(t, fd, int32(0), "errno=%d", errno)
}
