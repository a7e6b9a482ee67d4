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

package shimcore_test

import (
	"io"
	"os"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/jacobsa/seccomp-launcher/internal/policy"
	"github.com/jacobsa/seccomp-launcher/internal/shimcore"
	"github.com/jacobsa/seccomp-launcher/internal/supervisor"
	"github.com/jacobsa/seccomp-launcher/internal/wire"
)

// newRig wires a real supervisor.Server and a real shimcore.State together
// over two os.Pipe pairs, the same substrate Bootstrap would find in
// PIPE_IN/PIPE_OUT — only here both ends are in the same test process so
// the fakeChild-style fds never actually need a second binary.
func newRig(t *testing.T, mode policy.Mode) *shimcore.State {
	t.Helper()

	reqR, reqW, err := os.Pipe()
	require.NoError(t, err)
	repR, repW, err := os.Pipe()
	require.NoError(t, err)

	pol := policy.NewPolicy(mode, nil, nil)
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	srv := supervisor.NewServer(reqR, repW, pol, logger)
	go srv.Serve()

	client := shimcore.NewClient(int(reqW.Fd()), int(repR.Fd()))
	t.Cleanup(func() {
		reqW.Close()
		repR.Close()
	})

	return shimcore.NewStateForTest(client)
}

func TestOpenWriteReadRoundTrip(t *testing.T) {
	state := newRig(t, policy.RWExtended)

	path := "/tmp/shimcore-rig-test"
	defer os.Remove(path)

	fd, errno := state.OpenFile(path, int32(unix.O_WRONLY|unix.O_CREAT|unix.O_TRUNC), 0644)
	require.Zero(t, errno)
	require.GreaterOrEqual(t, fd, int32(0))

	n, errno := state.WriteFile(fd, []byte("hello"))
	assert.Zero(t, errno)
	assert.Equal(t, int32(5), n)

	rc, errno := state.CloseFile(fd)
	assert.Zero(t, errno)
	assert.Zero(t, rc)

	fd, errno = state.OpenFile(path, int32(unix.O_RDONLY), 0)
	require.Zero(t, errno)

	buf := make([]byte, 16)
	n, errno = state.ReadFile(fd, buf)
	assert.Zero(t, errno)
	assert.Equal(t, "hello", string(buf[:n]))
	assert.False(t, state.Feof(fd))

	n, errno = state.ReadFile(fd, buf)
	assert.Zero(t, errno)
	assert.Zero(t, n)
	assert.True(t, state.Feof(fd))

	state.CloseFile(fd)
}

func TestFopenModeTranslation(t *testing.T) {
	state := newRig(t, policy.RWExtended)

	path := "/tmp/shimcore-fopen-test"
	defer os.Remove(path)

	fd, errno := state.Fopen(path, "w")
	require.Zero(t, errno)
	n, errno := state.Fwrite(fd, []byte("data"))
	assert.Zero(t, errno)
	assert.Equal(t, int32(4), n)
	state.Fclose(fd)

	fd, errno = state.Fopen(path, "r")
	require.Zero(t, errno)
	buf := make([]byte, 8)
	n, errno = state.Fread(fd, buf)
	assert.Zero(t, errno)
	assert.Equal(t, "data", string(buf[:n]))
	state.Fclose(fd)
}

// TestFtellAfterFwriteNoSeekRoundTrip proves Ftell answers from local state
// rather than a real SEEK_CUR round trip: it closes the request pipe after
// the write, so any further WriteCmd on that connection would fail, then
// shows Ftell still returns the correct post-write offset.
func TestFtellAfterFwriteNoSeekRoundTrip(t *testing.T) {
	reqR, reqW, err := os.Pipe()
	require.NoError(t, err)
	repR, repW, err := os.Pipe()
	require.NoError(t, err)

	pol := policy.NewPolicy(policy.RWExtended, nil, nil)
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	srv := supervisor.NewServer(reqR, repW, pol, logger)
	go srv.Serve()

	client := shimcore.NewClient(int(reqW.Fd()), int(repR.Fd()))
	state := shimcore.NewStateForTest(client)

	path := "/tmp/shimcore-ftell-test"
	defer os.Remove(path)

	fd, errno := state.OpenFile(path, int32(unix.O_WRONLY|unix.O_CREAT|unix.O_TRUNC), 0644)
	require.Zero(t, errno)

	before, errno := state.Ftell(fd)
	require.Zero(t, errno)
	assert.Zero(t, before)

	n, errno := state.WriteFile(fd, []byte("hello"))
	require.Zero(t, errno)
	require.Equal(t, int32(5), n)

	// Cutting the request pipe here means any command that still tried to
	// round-trip through the supervisor would fail from this point on.
	require.NoError(t, reqW.Close())
	require.NoError(t, repR.Close())

	after, errno := state.Ftell(fd)
	assert.Zero(t, errno)
	assert.Equal(t, before+int64(n), after)
}

func TestStubsAnswerFixedValues(t *testing.T) {
	state := newRig(t, policy.RO)
	assert.Equal(t, int32(1), state.Getuid())
	assert.Equal(t, int32(1), state.Getgid())
	assert.Equal(t, "localhost", state.Hostname())
	assert.True(t, state.Isatty(0))
	assert.True(t, state.Isatty(1))
	assert.True(t, state.Isatty(2))
	assert.False(t, state.Isatty(3))

	rc, errno := state.ForkExecveUnsupported()
	assert.Equal(t, int32(-1), rc)
	assert.NotZero(t, errno)
}

func TestOpendirReaddirRoundTrip(t *testing.T) {
	state := newRig(t, policy.RWExtended)

	dir := t.TempDir()
	f, err := os.Create(dir + "/one")
	require.NoError(t, err)
	f.Close()

	token, errno := state.Opendir(dir)
	require.Zero(t, errno)
	require.GreaterOrEqual(t, token, int32(0))

	found := false
	buf := make([]byte, 280)
	for {
		hasEntry, errno := state.ReaddirInto(token, buf, wire.Readdir)
		require.Zero(t, errno)
		if !hasEntry {
			break
		}
		found = true
	}
	assert.True(t, found)

	rc := state.Closedir(token)
	assert.Zero(t, rc)
}
