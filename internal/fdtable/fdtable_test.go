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

package fdtable_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jacobsa/seccomp-launcher/internal/fdtable"
	"github.com/jacobsa/seccomp-launcher/internal/wire"
)

func TestStdioPreowned(t *testing.T) {
	tbl := fdtable.NewFDTable()
	assert.True(t, tbl.Owned(0))
	assert.True(t, tbl.Owned(1))
	assert.True(t, tbl.Owned(2))
	assert.False(t, tbl.Owned(3))
}

func TestSetClearChecked(t *testing.T) {
	tbl := fdtable.NewFDTable()
	assert.Equal(t, -1, tbl.Checked(5))

	tbl.Set(5)
	assert.Equal(t, 5, tbl.Checked(5))

	tbl.Clear(5)
	assert.Equal(t, -1, tbl.Checked(5))
}

func TestOutOfRangeNeverOwned(t *testing.T) {
	tbl := fdtable.NewFDTable()
	assert.False(t, tbl.Owned(-1))
	assert.False(t, tbl.Owned(wire.MaxFD))
	tbl.Set(wire.MaxFD) // must not panic
	assert.False(t, tbl.Owned(wire.MaxFD))
}

func TestDirTableDensePack(t *testing.T) {
	dt := fdtable.NewDirTable()

	h0, err := dt.Insert(nil)
	require.NoError(t, err)
	assert.Equal(t, 0, h0)

	h1, err := dt.Insert(nil)
	require.NoError(t, err)
	assert.Equal(t, 1, h1)

	dt.Free(h0)

	h2, err := dt.Insert(nil)
	require.NoError(t, err)
	assert.Equal(t, 0, h2, "freed slot should be reused before growing")
}

func TestDirTableFull(t *testing.T) {
	dt := fdtable.NewDirTable()
	for i := 0; i < wire.MaxDirs; i++ {
		_, err := dt.Insert(nil)
		require.NoError(t, err)
	}
	_, err := dt.Insert(nil)
	assert.ErrorIs(t, err, fdtable.ErrDirTableFull)
}

func TestDirTableGetUnknownHandle(t *testing.T) {
	dt := fdtable.NewDirTable()
	assert.Nil(t, dt.Get(3))
	assert.Nil(t, dt.Get(-1))
	assert.Nil(t, dt.Get(wire.MaxDirs))
}
