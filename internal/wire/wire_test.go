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

package wire_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jacobsa/seccomp-launcher/internal/wire"
)

func TestCmdRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	c := wire.NewConn(&buf, &buf)

	require.NoError(t, c.WriteCmd(wire.Open))
	got, err := c.ReadCmd()
	require.NoError(t, err)
	assert.Equal(t, wire.Open, got)
}

func TestIntRoundTrips(t *testing.T) {
	var buf bytes.Buffer
	c := wire.NewConn(&buf, &buf)

	require.NoError(t, c.WriteI32(-42))
	require.NoError(t, c.WriteU64(1<<40))
	require.NoError(t, c.WriteI64(-1))

	i32, err := c.ReadI32()
	require.NoError(t, err)
	assert.Equal(t, int32(-42), i32)

	u64, err := c.ReadU64()
	require.NoError(t, err)
	assert.Equal(t, uint64(1<<40), u64)

	i64, err := c.ReadI64()
	require.NoError(t, err)
	assert.Equal(t, int64(-1), i64)
}

func TestPathRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	c := wire.NewConn(&buf, &buf)

	require.NoError(t, c.WritePath("/tmp/example"))
	got, err := c.ReadPath()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/example", got)
}

func TestWritePathRejectsOverlong(t *testing.T) {
	var buf bytes.Buffer
	c := wire.NewConn(&buf, &buf)

	long := make([]byte, wire.MaxPathLen+1)
	for i := range long {
		long[i] = 'a'
	}
	err := c.WritePath(string(long))
	assert.ErrorIs(t, err, wire.ErrPathTooLong)
}

func TestCmdStringNames(t *testing.T) {
	assert.Equal(t, "OPEN", wire.Open.String())
	assert.Equal(t, "SELECT_STDIN", wire.SelectStdin.String())
	assert.Equal(t, "UNKNOWN", wire.Cmd(9999).String())
}
