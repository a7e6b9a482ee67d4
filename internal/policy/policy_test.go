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

package policy_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jacobsa/seccomp-launcher/internal/policy"
)

func TestParseMode(t *testing.T) {
	cases := map[string]policy.Mode{
		"ro":          policy.RO,
		"ro_extended": policy.ROExtended,
		"rw":          policy.RW,
		"rw_extended": policy.RWExtended,
	}
	for s, want := range cases {
		got, ok := policy.ParseMode(s)
		assert.True(t, ok, s)
		assert.Equal(t, want, got, s)
	}

	_, ok := policy.ParseMode("bogus")
	assert.False(t, ok)
}

func TestExtendedModeAdmitsAnything(t *testing.T) {
	p := policy.NewPolicy(policy.ROExtended, nil, nil)
	assert.True(t, p.AllowOpen("/etc/shadow", false))
}

func TestStrictModeDeniesOutsideAllowlist(t *testing.T) {
	p := policy.NewPolicy(policy.RO, []string{"/data/input.csv"}, nil)
	assert.False(t, p.AllowOpen("/etc/shadow", false))
}

func TestArgvAllowlistExactAndSiblingMatch(t *testing.T) {
	p := policy.NewPolicy(policy.RO, []string{"/data/input.foo"}, nil)
	assert.True(t, p.AllowOpen("/data/input.foo", false))
	// sibling with same radix, different extension
	assert.True(t, p.AllowOpen("/data/input.bar", false))
	// unrelated file in the same directory is not admitted
	assert.False(t, p.AllowOpen("/data/other.bar", false))
}

func TestArgvDirectoryAllowlist(t *testing.T) {
	p := policy.NewPolicy(policy.RO, []string{"/data/"}, nil)
	assert.True(t, p.AllowOpen("/data/nested/input.csv", false))
}

func TestSystemReads(t *testing.T) {
	reads := policy.BuildSystemReads("/opt/python/bin/python3", "/opt/gdal-data", "/opt/extra/site-packages:/opt/extra2")
	p := policy.NewPolicy(policy.RO, nil, reads)
	assert.True(t, p.AllowOpen("/etc/inputrc", false))
	assert.True(t, p.AllowOpen("/dev/urandom", false))
	assert.True(t, p.AllowOpen("/opt/gdal-data/datum.csv", false))
	assert.True(t, p.AllowOpen("/opt/python/lib/encodings/utf_8.py", false))
	assert.True(t, p.AllowOpen("/opt/extra/site-packages/pkg/mod.py", false))
	assert.True(t, p.AllowOpen("/opt/extra2/mod.py", false))
}

func TestDirectoryReadAlwaysAllowed(t *testing.T) {
	dir := t.TempDir()
	p := policy.NewPolicy(policy.RO, nil, nil)
	assert.True(t, p.AllowOpen(dir, false))
	assert.True(t, p.AllowRead(dir))

	// The same policy still refuses a write to that directory and a read
	// of an unrelated, non-directory path.
	assert.False(t, p.AllowOpen(dir, true))
	require.False(t, p.AllowOpen("/etc/shadow", false))
}

func TestRWModeDeniesWriteOutsideAllowlist(t *testing.T) {
	p := policy.NewPolicy(policy.RW, nil, nil)
	assert.False(t, p.AllowOpen("/etc/passwd", true))
}

func TestTmpRoundTrip(t *testing.T) {
	p := policy.NewPolicy(policy.RW, nil, nil)

	// Write-open of a brand new /tmp path is admitted unconditionally.
	assert.True(t, p.AllowOpen("/tmp/x", true))
	p.NoteWrite("/tmp/x")

	// Read is now admitted, having been recorded.
	assert.True(t, p.AllowOpen("/tmp/x", false))

	// A different, never-written /tmp path is not readable.
	assert.False(t, p.AllowOpen("/tmp/y", false))

	p.NoteUnlink("/tmp/x")
	assert.False(t, p.AllowOpen("/tmp/x", false))
}

func TestTmpRejectsDotDot(t *testing.T) {
	p := policy.NewPolicy(policy.RW, nil, nil)
	assert.False(t, p.AllowOpen("/tmp/../etc/passwd", true))
}

func TestAllowUnlinkRequiresWriteRecord(t *testing.T) {
	p := policy.NewPolicy(policy.RW, nil, nil)
	assert.False(t, p.AllowUnlink("/tmp/never-written"))
	p.NoteWrite("/tmp/x")
	assert.True(t, p.AllowUnlink("/tmp/x"))
}

func TestAllowMkdirDoesNotRequireWriteRecord(t *testing.T) {
	p := policy.NewPolicy(policy.RW, nil, nil)
	assert.True(t, p.AllowMkdir("/tmp/newdir"))
}

func TestROModeRejectsWrite(t *testing.T) {
	p := policy.NewPolicy(policy.RO, nil, nil)
	assert.False(t, p.AllowMkdir("/tmp/x"))
	assert.False(t, p.AllowUnlink("/tmp/x"))
}
