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

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jacobsa/seccomp-launcher/internal/policy"
)

func TestParseArgsDefaultsToRO(t *testing.T) {
	mode, target, targetArgs, err := parseArgs([]string{"/usr/bin/python3", "script.py"})
	require.NoError(t, err)
	assert.Equal(t, policy.RO, mode)
	assert.Equal(t, "/usr/bin/python3", target)
	assert.Equal(t, []string{"script.py"}, targetArgs)
}

func TestParseArgsModeFlag(t *testing.T) {
	mode, target, _, err := parseArgs([]string{"-rw_extended", "/bin/cat", "/etc/inputrc"})
	require.NoError(t, err)
	assert.Equal(t, policy.RWExtended, mode)
	assert.Equal(t, "/bin/cat", target)
}

func TestParseArgsStopsAtFirstPositional(t *testing.T) {
	// Flags meant for the child (here "-n") must not be consumed by us.
	_, target, targetArgs, err := parseArgs([]string{"-ro", "/bin/cat", "-n", "/etc/inputrc"})
	require.NoError(t, err)
	assert.Equal(t, "/bin/cat", target)
	assert.Equal(t, []string{"-n", "/etc/inputrc"}, targetArgs)
}

func TestParseArgsUnknownFlag(t *testing.T) {
	_, _, _, err := parseArgs([]string{"-bogus", "/bin/cat"})
	assert.Error(t, err)
}

func TestParseArgsMissingBinary(t *testing.T) {
	_, _, _, err := parseArgs([]string{"-ro"})
	assert.Error(t, err)
}
